package quality

import (
	"time"

	"github.com/ekaya-inc/ekaya-quality/pkg/models"
)

var testAsOf = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func int64Ptr(v int64) *int64 { return &v }

func timePtr(t time.Time) *time.Time { return &t }

func col(name, dataType string) models.ColumnDef {
	return models.ColumnDef{
		Name:     name,
		DataType: dataType,
		Category: models.CategorizeType(dataType),
		Nullable: true,
	}
}

func pkCol(name, dataType string) models.ColumnDef {
	c := col(name, dataType)
	c.PrimaryKey = true
	c.Nullable = false
	return c
}

func uniqueCol(name, dataType string) models.ColumnDef {
	c := col(name, dataType)
	c.Unique = true
	return c
}

func stat(name string, rows, nulls int64, distinct *int64) models.ColumnStats {
	return models.ColumnStats{
		ColumnName:    name,
		RowCount:      rows,
		NullCount:     nulls,
		DistinctCount: distinct,
	}
}

func temporalStat(name string, rows, nulls int64, latest time.Time) models.ColumnStats {
	s := stat(name, rows, nulls, int64Ptr(rows-nulls))
	s.MinTime = timePtr(latest.AddDate(-1, 0, 0))
	s.MaxTime = timePtr(latest)
	return s
}

// cleanUsers is a fully complete table with a unique single-column key.
func cleanUsers() (models.TableSchema, []models.ColumnStats) {
	schema := models.TableSchema{
		SchemaName: "public",
		TableName:  "users",
		Columns: []models.ColumnDef{
			pkCol("id", "integer"),
			uniqueCol("email", "varchar(255)"),
			col("name", "text"),
			col("created_at", "timestamp with time zone"),
		},
		RowCount: 100,
	}
	stats := []models.ColumnStats{
		stat("id", 100, 0, int64Ptr(100)),
		stat("email", 100, 0, int64Ptr(100)),
		stat("name", 100, 0, int64Ptr(80)),
		temporalStat("created_at", 100, 0, testAsOf.AddDate(0, 0, -1)),
	}
	return schema, stats
}

func countBySeverity(issues []models.Issue, severity models.Severity) int {
	n := 0
	for _, i := range issues {
		if i.Severity == severity {
			n++
		}
	}
	return n
}
