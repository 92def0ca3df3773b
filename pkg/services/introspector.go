package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-quality/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-quality/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-quality/pkg/models"
)

// Introspector turns adapter metadata into the models.TableSchema the quality
// engine consumes. Foreign keys are discovered once per pass and grouped by
// source table. Safe for concurrent Introspect calls.
type Introspector struct {
	discoverer datasource.SchemaDiscoverer
	logger     *zap.Logger

	fkOnce sync.Once
	fks    map[string][]models.ForeignKeyEdge
	fkErr  error
}

// NewIntrospector wraps a schema discoverer. The caller keeps ownership of
// the discoverer and closes it.
func NewIntrospector(discoverer datasource.SchemaDiscoverer, logger *zap.Logger) *Introspector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Introspector{
		discoverer: discoverer,
		logger:     logger.Named("introspector"),
	}
}

func tableKey(schemaName, tableName string) string {
	if schemaName == "" {
		return tableName
	}
	return schemaName + "." + tableName
}

// ListTables returns the tables to analyze, sorted by schema and name.
// filter entries are either "table" or "schema.table"; an empty filter selects
// every table. A filter entry that matches nothing is a ConfigurationError.
func (i *Introspector) ListTables(ctx context.Context, filter []string) ([]datasource.TableMetadata, error) {
	tables, err := i.discoverer.DiscoverTables(ctx)
	if err != nil {
		return nil, &apperrors.DataAccessError{Op: "discover tables", Err: err}
	}
	sort.Slice(tables, func(a, b int) bool {
		if tables[a].SchemaName != tables[b].SchemaName {
			return tables[a].SchemaName < tables[b].SchemaName
		}
		return tables[a].TableName < tables[b].TableName
	})

	if len(filter) == 0 {
		return tables, nil
	}

	selected := make([]datasource.TableMetadata, 0, len(filter))
	matched := make(map[string]bool, len(filter))
	for _, t := range tables {
		for _, f := range filter {
			if f == t.TableName || f == tableKey(t.SchemaName, t.TableName) {
				selected = append(selected, t)
				matched[f] = true
				break
			}
		}
	}

	var missing []string
	for _, f := range filter {
		if !matched[f] {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return nil, &apperrors.ConfigurationError{
			Field:  "tables",
			Reason: fmt.Sprintf("unknown table(s): %s", strings.Join(missing, ", ")),
		}
	}
	return selected, nil
}

// foreignKeys discovers and groups foreign keys on first use.
func (i *Introspector) foreignKeys(ctx context.Context) (map[string][]models.ForeignKeyEdge, error) {
	i.fkOnce.Do(func() {
		i.fks = make(map[string][]models.ForeignKeyEdge)
		if !i.discoverer.SupportsForeignKeys() {
			return
		}
		fks, err := i.discoverer.DiscoverForeignKeys(ctx)
		if err != nil {
			i.fkErr = err
			return
		}
		for _, fk := range fks {
			key := tableKey(fk.SourceSchema, fk.SourceTable)
			i.fks[key] = append(i.fks[key], models.ForeignKeyEdge{
				Column:       fk.SourceColumn,
				TargetSchema: fk.TargetSchema,
				TargetTable:  fk.TargetTable,
				TargetColumn: fk.TargetColumn,
			})
		}
		i.logger.Debug("Discovered foreign keys", zap.Int("count", len(fks)))
	})
	return i.fks, i.fkErr
}

// Introspect returns the schema of one table.
func (i *Introspector) Introspect(ctx context.Context, table datasource.TableMetadata) (models.TableSchema, error) {
	name := tableKey(table.SchemaName, table.TableName)

	columns, err := i.discoverer.DiscoverColumns(ctx, table.SchemaName, table.TableName)
	if err != nil {
		return models.TableSchema{}, &apperrors.DataAccessError{Table: name, Op: "discover columns", Err: err}
	}
	if len(columns) == 0 {
		// Dropped between listing and introspection, or no privileges on it.
		return models.TableSchema{}, &apperrors.DataAccessError{
			Table: name,
			Op:    "discover columns",
			Err:   fmt.Errorf("%w: no visible columns", apperrors.ErrNotFound),
		}
	}

	fks, err := i.foreignKeys(ctx)
	if err != nil {
		// Foreign keys only annotate columns; analysis proceeds without them.
		i.logger.Warn("Foreign key discovery failed", zap.String("table", name), zap.Error(err))
	}
	edges := fks[name]
	fkColumns := make(map[string]bool, len(edges))
	for _, e := range edges {
		fkColumns[e.Column] = true
	}

	sort.SliceStable(columns, func(a, b int) bool {
		return columns[a].OrdinalPosition < columns[b].OrdinalPosition
	})

	schema := models.TableSchema{
		SchemaName:  table.SchemaName,
		TableName:   table.TableName,
		Columns:     make([]models.ColumnDef, 0, len(columns)),
		ForeignKeys: edges,
		RowCount:    table.RowCount,
	}
	for _, c := range columns {
		schema.Columns = append(schema.Columns, models.ColumnDef{
			Name:       c.ColumnName,
			DataType:   c.DataType,
			Category:   models.CategorizeType(c.DataType),
			Nullable:   c.IsNullable,
			PrimaryKey: c.IsPrimaryKey,
			Unique:     c.IsUnique,
			ForeignKey: fkColumns[c.ColumnName],
		})
	}
	return schema, nil
}

// LoadForeignKeys runs foreign key discovery ahead of concurrent Introspect
// calls. Failures are returned but do not prevent later introspection.
func (i *Introspector) LoadForeignKeys(ctx context.Context) error {
	_, err := i.foreignKeys(ctx)
	return err
}
