package models

import "time"

// ColumnDef describes a single column as reported by schema introspection.
type ColumnDef struct {
	Name       string       `json:"name"`
	DataType   string       `json:"data_type"`
	Category   TypeCategory `json:"category"`
	Nullable   bool         `json:"nullable"`
	PrimaryKey bool         `json:"primary_key"`
	Unique     bool         `json:"unique"` // single-column unique constraint
	ForeignKey bool         `json:"foreign_key"`
}

// ForeignKeyEdge links a source column to the column it references.
type ForeignKeyEdge struct {
	Column       string `json:"column"`
	TargetSchema string `json:"target_schema,omitempty"`
	TargetTable  string `json:"target_table"`
	TargetColumn string `json:"target_column"`
}

// TableSchema is the introspected shape of one table. It is treated as
// immutable for the duration of an analysis pass.
type TableSchema struct {
	SchemaName  string           `json:"schema_name,omitempty"`
	TableName   string           `json:"table_name"`
	Columns     []ColumnDef      `json:"columns"`
	ForeignKeys []ForeignKeyEdge `json:"foreign_keys,omitempty"`
	RowCount    int64            `json:"row_count"`
}

// QualifiedName returns schema.table, or just the table when no schema is set.
func (s TableSchema) QualifiedName() string {
	if s.SchemaName == "" {
		return s.TableName
	}
	return s.SchemaName + "." + s.TableName
}

// PrimaryKeyColumns returns the names of all primary key members in column order.
func (s TableSchema) PrimaryKeyColumns() []string {
	var pk []string
	for _, c := range s.Columns {
		if c.PrimaryKey {
			pk = append(pk, c.Name)
		}
	}
	return pk
}

// IsUniquenessConstrained reports whether a column must hold distinct values
// on its own. Members of a composite primary key are not individually unique.
func (s TableSchema) IsUniquenessConstrained(col ColumnDef) bool {
	if col.Unique {
		return true
	}
	return col.PrimaryKey && len(s.PrimaryKeyColumns()) == 1
}

// Column looks up a column definition by name (case-sensitive).
func (s TableSchema) Column(name string) (ColumnDef, bool) {
	for _, c := range s.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnDef{}, false
}

// ColumnStats holds the observed statistics of one column for one pass.
type ColumnStats struct {
	ColumnName string `json:"column_name"`
	RowCount   int64  `json:"row_count"`
	NullCount  int64  `json:"null_count"`
	// DistinctCount is nil for types that cannot be compared for equality
	// (json, xml, binary blobs).
	DistinctCount *int64     `json:"distinct_count,omitempty"`
	MinTime       *time.Time `json:"min_time,omitempty"`
	MaxTime       *time.Time `json:"max_time,omitempty"`

	// Numeric columns only. Nil when the column is empty or the driver
	// returned something that is not a number.
	MinValue *float64 `json:"min_value,omitempty"`
	MaxValue *float64 `json:"max_value,omitempty"`
	AvgValue *float64 `json:"avg_value,omitempty"`

	// TopValues holds the most frequent values of a low-cardinality column,
	// most frequent first. Empty unless top values were requested.
	TopValues []ValueFrequency `json:"top_values,omitempty"`
}

// ValueFrequency is one value and the number of rows holding it.
type ValueFrequency struct {
	Value string `json:"value" yaml:"value"`
	Count int64  `json:"count" yaml:"count"`
}

// NonNullCount returns the number of rows with a value in this column.
func (s ColumnStats) NonNullCount() int64 {
	return s.RowCount - s.NullCount
}

// NullRatio returns null_count / row_count, or 0 for an empty table.
func (s ColumnStats) NullRatio() float64 {
	if s.RowCount <= 0 {
		return 0
	}
	return float64(s.NullCount) / float64(s.RowCount)
}
