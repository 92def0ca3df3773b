//go:build sqlite || all_adapters

package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-quality/pkg/adapters/datasource"
)

// SchemaDiscoverer provides SQLite schema discovery through the pragma
// table-valued functions. SQLite has no schemas, so SchemaName is always empty.
type SchemaDiscoverer struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSchemaDiscoverer creates a SQLite schema discoverer that owns its pool.
func NewSchemaDiscoverer(ctx context.Context, cfg *Config, opts datasource.ConnectionOptions) (*SchemaDiscoverer, error) {
	db, err := openDB(ctx, cfg, opts)
	if err != nil {
		return nil, err
	}
	return &SchemaDiscoverer{
		db:     db,
		logger: opts.Normalize().Logger.Named("sqlite-schema"),
	}, nil
}

// DiscoverTables returns all user tables. RowCount is left at zero since
// SQLite keeps no cheap estimate.
func (d *SchemaDiscoverer) DiscoverTables(ctx context.Context) ([]datasource.TableMetadata, error) {
	const query = `
		SELECT name
		FROM sqlite_master
		WHERE type = 'table'
		  AND name NOT LIKE 'sqlite_%'
		ORDER BY name
	`

	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query tables: %w", err)
	}
	defer rows.Close()

	var tables []datasource.TableMetadata
	for rows.Next() {
		var t datasource.TableMetadata
		if err := rows.Scan(&t.TableName); err != nil {
			return nil, fmt.Errorf("scan table: %w", err)
		}
		tables = append(tables, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tables: %w", err)
	}

	d.logger.Debug("Discovered tables", zap.Int("count", len(tables)))
	return tables, nil
}

// DiscoverColumns returns columns for a table in declaration order.
// pk > 0 marks every member of the primary key; unique flags come from
// single-column unique indexes, including those backing UNIQUE constraints.
func (d *SchemaDiscoverer) DiscoverColumns(ctx context.Context, schemaName, tableName string) ([]datasource.ColumnMetadata, error) {
	const query = `
		SELECT
			c.cid,
			c.name,
			c.type,
			c."notnull",
			c.pk,
			c.dflt_value,
			EXISTS (
				SELECT 1
				FROM pragma_index_list(?1) il
				JOIN pragma_index_info(il.name) ii
				WHERE il."unique" = 1
				  AND il.origin != 'pk'
				  AND ii.name = c.name
				  AND (SELECT COUNT(*) FROM pragma_index_info(il.name)) = 1
			) AS is_unique
		FROM pragma_table_info(?1) c
		ORDER BY c.cid
	`

	rows, err := d.db.QueryContext(ctx, query, tableName)
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}
	defer rows.Close()

	var columns []datasource.ColumnMetadata
	for rows.Next() {
		var (
			c        datasource.ColumnMetadata
			cid      int
			notNull  int
			pk       int
			def      sql.NullString
			isUnique int
		)
		if err := rows.Scan(&cid, &c.ColumnName, &c.DataType, &notNull, &pk, &def, &isUnique); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		c.OrdinalPosition = cid + 1
		c.IsNullable = notNull == 0
		c.IsPrimaryKey = pk > 0
		c.IsUnique = isUnique == 1
		if def.Valid {
			c.DefaultValue = &def.String
		}
		columns = append(columns, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate columns: %w", err)
	}

	return columns, nil
}

// DiscoverForeignKeys returns all foreign key relationships. A foreign key
// without an explicit target column references the target's primary key,
// which pragma_foreign_key_list reports as NULL; those rows are resolved
// against the target's first primary key column.
func (d *SchemaDiscoverer) DiscoverForeignKeys(ctx context.Context) ([]datasource.ForeignKeyMetadata, error) {
	const query = `
		SELECT
			m.name,
			fk.id,
			fk."from",
			fk."table",
			COALESCE(fk."to", (
				SELECT p.name FROM pragma_table_info(fk."table") p
				WHERE p.pk = 1
			), '')
		FROM sqlite_master m
		JOIN pragma_foreign_key_list(m.name) fk
		WHERE m.type = 'table'
		  AND m.name NOT LIKE 'sqlite_%'
		ORDER BY m.name, fk.id, fk.seq
	`

	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query foreign keys: %w", err)
	}
	defer rows.Close()

	var fks []datasource.ForeignKeyMetadata
	for rows.Next() {
		var fk datasource.ForeignKeyMetadata
		var id int
		if err := rows.Scan(&fk.SourceTable, &id, &fk.SourceColumn, &fk.TargetTable, &fk.TargetColumn); err != nil {
			return nil, fmt.Errorf("scan foreign key: %w", err)
		}
		// SQLite foreign keys are unnamed; synthesize a stable name.
		fk.ConstraintName = fmt.Sprintf("fk_%s_%d", fk.SourceTable, id)
		fks = append(fks, fk)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate foreign keys: %w", err)
	}

	return fks, nil
}

// SupportsForeignKeys returns true since SQLite records declared foreign keys.
func (d *SchemaDiscoverer) SupportsForeignKeys() bool {
	return true
}

// Close releases the connection pool.
func (d *SchemaDiscoverer) Close() error {
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}

// Ensure SchemaDiscoverer implements datasource.SchemaDiscoverer at compile time.
var _ datasource.SchemaDiscoverer = (*SchemaDiscoverer)(nil)
