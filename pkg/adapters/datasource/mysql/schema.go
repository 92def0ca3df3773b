//go:build mysql || all_adapters

package mysql

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-quality/pkg/adapters/datasource"
)

// SchemaDiscoverer provides MySQL schema discovery over information_schema.
// A MySQL database plays the role of a schema.
type SchemaDiscoverer struct {
	catalogQueries
	db     *sql.DB
	logger *zap.Logger
}

// NewSchemaDiscoverer creates a MySQL schema discoverer that owns its pool.
func NewSchemaDiscoverer(ctx context.Context, cfg *Config, opts datasource.ConnectionOptions) (*SchemaDiscoverer, error) {
	db, err := openDB(ctx, cfg, opts)
	if err != nil {
		return nil, err
	}
	return newSchemaDiscoverer(db, cfg, opts.Normalize().Logger), nil
}

func newSchemaDiscoverer(db *sql.DB, cfg *Config, logger *zap.Logger) *SchemaDiscoverer {
	return &SchemaDiscoverer{
		catalogQueries: newCatalogQueries(cfg.discoverySchemas()),
		db:             db,
		logger:         logger.Named("mysql-schema"),
	}
}

// DiscoverTables returns the base tables of the configured databases.
// RowCount is the InnoDB estimate.
func (d *SchemaDiscoverer) DiscoverTables(ctx context.Context) ([]datasource.TableMetadata, error) {
	query, args, err := d.tablesQuery()
	if err != nil {
		return nil, fmt.Errorf("build tables query: %w", err)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tables: %w", err)
	}
	defer rows.Close()

	var tables []datasource.TableMetadata
	for rows.Next() {
		var t datasource.TableMetadata
		if err := rows.Scan(&t.SchemaName, &t.TableName, &t.RowCount); err != nil {
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

// DiscoverColumns returns columns for a specific table in ordinal order.
func (d *SchemaDiscoverer) DiscoverColumns(ctx context.Context, schemaName, tableName string) ([]datasource.ColumnMetadata, error) {
	query, args, err := d.columnsQuery(schemaName, tableName)
	if err != nil {
		return nil, fmt.Errorf("build columns query: %w", err)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}
	defer rows.Close()

	var columns []datasource.ColumnMetadata
	for rows.Next() {
		var c datasource.ColumnMetadata
		var isNullable, isPrimary, isUnique int
		var def sql.NullString
		if err := rows.Scan(&c.ColumnName, &c.DataType, &isNullable, &isPrimary, &isUnique, &c.OrdinalPosition, &def); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		c.IsNullable = isNullable == 1
		c.IsPrimaryKey = isPrimary == 1
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

// DiscoverForeignKeys returns all foreign key relationships.
func (d *SchemaDiscoverer) DiscoverForeignKeys(ctx context.Context) ([]datasource.ForeignKeyMetadata, error) {
	query, args, err := d.foreignKeysQuery()
	if err != nil {
		return nil, fmt.Errorf("build foreign keys query: %w", err)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query foreign keys: %w", err)
	}
	defer rows.Close()

	var fks []datasource.ForeignKeyMetadata
	for rows.Next() {
		var fk datasource.ForeignKeyMetadata
		if err := rows.Scan(&fk.ConstraintName, &fk.SourceSchema, &fk.SourceTable, &fk.SourceColumn,
			&fk.TargetSchema, &fk.TargetTable, &fk.TargetColumn); err != nil {
			return nil, fmt.Errorf("scan foreign key: %w", err)
		}
		fks = append(fks, fk)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate foreign keys: %w", err)
	}

	return fks, nil
}

// SupportsForeignKeys returns true; InnoDB records foreign keys in information_schema.
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
