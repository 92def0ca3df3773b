package quality

import (
	"fmt"
	"strings"

	"github.com/ekaya-inc/ekaya-quality/pkg/models"
)

// Remediation SQL uses ANSI double-quoted identifiers so the statements run
// unchanged on PostgreSQL, SQLite, SQL Server (QUOTED_IDENTIFIER ON) and
// MySQL in ANSI_QUOTES mode. Every statement is a read-only SELECT.

const maxCandidateKeyColumns = 5

func quoteANSI(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func tableRef(schema models.TableSchema) string {
	if schema.SchemaName == "" {
		return quoteANSI(schema.TableName)
	}
	return quoteANSI(schema.SchemaName) + "." + quoteANSI(schema.TableName)
}

func nullRowsSQL(schema models.TableSchema, column string) string {
	return fmt.Sprintf("SELECT * FROM %s WHERE %s IS NULL", tableRef(schema), quoteANSI(column))
}

func duplicateGroupsSQL(schema models.TableSchema, column string) string {
	col := quoteANSI(column)
	return fmt.Sprintf("SELECT %s, COUNT(*) FROM %s GROUP BY %s HAVING COUNT(*) > 1", col, tableRef(schema), col)
}

func negativeRowsSQL(schema models.TableSchema, column string) string {
	return fmt.Sprintf("SELECT * FROM %s WHERE %s < 0", tableRef(schema), quoteANSI(column))
}

func latestValueSQL(schema models.TableSchema, column string) string {
	return fmt.Sprintf("SELECT MAX(%s) AS latest_value FROM %s", quoteANSI(column), tableRef(schema))
}

// candidateKeySQL compares distinct counts of the first few comparable
// columns against the row count to help pick a primary key.
func candidateKeySQL(schema models.TableSchema) string {
	var b strings.Builder
	b.WriteString("SELECT COUNT(*) AS total_rows")
	n := 0
	for _, col := range schema.Columns {
		if n == maxCandidateKeyColumns {
			break
		}
		if !models.IsDistinctComparable(col.DataType) {
			continue
		}
		n++
		fmt.Fprintf(&b, ", COUNT(DISTINCT %s) AS distinct_%d", quoteANSI(col.Name), n)
	}
	b.WriteString(" FROM ")
	b.WriteString(tableRef(schema))
	return b.String()
}

func rowCountSQL(schema models.TableSchema) string {
	return "SELECT COUNT(*) FROM " + tableRef(schema)
}
