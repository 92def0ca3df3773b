package mysql

import sq "github.com/Masterminds/squirrel"

// uniqueColumnExpr is true when the column alone backs a non-primary unique index.
const uniqueColumnExpr = `EXISTS (
	SELECT 1 FROM information_schema.statistics s
	WHERE s.table_schema = c.table_schema
	  AND s.table_name = c.table_name
	  AND s.column_name = c.column_name
	  AND s.non_unique = 0
	  AND s.index_name <> 'PRIMARY'
	  AND (SELECT COUNT(*) FROM information_schema.statistics s2
	       WHERE s2.table_schema = s.table_schema
	         AND s2.table_name = s.table_name
	         AND s2.index_name = s.index_name) = 1
) AS is_unique`

// catalogQueries builds the information_schema queries used for discovery.
type catalogQueries struct {
	qb      sq.StatementBuilderType
	schemas []string
}

func newCatalogQueries(schemas []string) catalogQueries {
	return catalogQueries{
		qb:      sq.StatementBuilder.PlaceholderFormat(sq.Question),
		schemas: schemas,
	}
}

func (q catalogQueries) tablesQuery() (string, []any, error) {
	return q.qb.
		Select("table_schema", "table_name", "COALESCE(table_rows, 0)").
		From("information_schema.tables").
		Where(sq.Eq{"table_type": "BASE TABLE", "table_schema": q.schemas}).
		OrderBy("table_schema", "table_name").
		ToSql()
}

func (q catalogQueries) columnsQuery(schemaName, tableName string) (string, []any, error) {
	return q.qb.
		Select(
			"c.column_name",
			"c.data_type",
			"CASE WHEN c.is_nullable = 'YES' THEN 1 ELSE 0 END",
			"CASE WHEN c.column_key = 'PRI' THEN 1 ELSE 0 END",
			uniqueColumnExpr,
			"c.ordinal_position",
			"c.column_default",
		).
		From("information_schema.columns c").
		Where(sq.Eq{"c.table_schema": schemaName, "c.table_name": tableName}).
		OrderBy("c.ordinal_position").
		ToSql()
}

func (q catalogQueries) foreignKeysQuery() (string, []any, error) {
	return q.qb.
		Select(
			"kcu.constraint_name",
			"kcu.table_schema",
			"kcu.table_name",
			"kcu.column_name",
			"kcu.referenced_table_schema",
			"kcu.referenced_table_name",
			"kcu.referenced_column_name",
		).
		From("information_schema.key_column_usage kcu").
		Where(sq.NotEq{"kcu.referenced_table_name": nil}).
		Where(sq.Eq{"kcu.table_schema": q.schemas}).
		OrderBy("kcu.table_schema", "kcu.table_name", "kcu.constraint_name", "kcu.ordinal_position").
		ToSql()
}
