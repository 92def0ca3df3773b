package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/ekaya-inc/ekaya-quality/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-quality/pkg/apperrors"
)

// mockDiscoverer serves a fixed catalog.
type mockDiscoverer struct {
	tables    []datasource.TableMetadata
	columns   map[string][]datasource.ColumnMetadata // keyed by schema.table
	fks       []datasource.ForeignKeyMetadata
	tablesErr error
	columnErr map[string]error
	hang      map[string]bool // DiscoverColumns blocks until ctx is done
	fkErr     error
	noFKs     bool

	fkCalls atomic.Int32
	closed  atomic.Int32
}

func (m *mockDiscoverer) DiscoverTables(ctx context.Context) ([]datasource.TableMetadata, error) {
	if m.tablesErr != nil {
		return nil, m.tablesErr
	}
	return append([]datasource.TableMetadata(nil), m.tables...), nil
}

func (m *mockDiscoverer) DiscoverColumns(ctx context.Context, schemaName, tableName string) ([]datasource.ColumnMetadata, error) {
	key := tableKey(schemaName, tableName)
	if m.hang[key] {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err := m.columnErr[key]; err != nil {
		return nil, err
	}
	return append([]datasource.ColumnMetadata(nil), m.columns[key]...), nil
}

func (m *mockDiscoverer) DiscoverForeignKeys(ctx context.Context) ([]datasource.ForeignKeyMetadata, error) {
	m.fkCalls.Add(1)
	if m.fkErr != nil {
		return nil, m.fkErr
	}
	return m.fks, nil
}

func (m *mockDiscoverer) SupportsForeignKeys() bool { return !m.noFKs }

func (m *mockDiscoverer) Close() error {
	m.closed.Add(1)
	return nil
}

// mockExecutor answers aggregate statistics queries per table. The table is
// recognized from the FROM clause.
type mockExecutor struct {
	mu      sync.Mutex
	rows    map[string]map[string]any // keyed by schema.table
	errs    map[string]error
	queries []string

	closed atomic.Int32
}

func (m *mockExecutor) Query(ctx context.Context, sqlQuery string, limit int) (*datasource.QueryExecutionResult, error) {
	m.mu.Lock()
	m.queries = append(m.queries, sqlQuery)
	m.mu.Unlock()

	idx := strings.LastIndex(sqlQuery, " FROM ")
	if idx < 0 {
		return nil, fmt.Errorf("unexpected query: %s", sqlQuery)
	}
	table := strings.ReplaceAll(sqlQuery[idx+len(" FROM "):], `"`, "")
	if err := m.errs[table]; err != nil {
		return nil, err
	}
	row, ok := m.rows[table]
	if !ok {
		return nil, fmt.Errorf("no rows for %s", table)
	}
	return &datasource.QueryExecutionResult{Rows: []map[string]any{row}, RowCount: 1}, nil
}

func (m *mockExecutor) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (m *mockExecutor) Close() error {
	m.closed.Add(1)
	return nil
}

// mockFactory hands out the same discoverer and executor for every request.
type mockFactory struct {
	discoverer  *mockDiscoverer
	executor    *mockExecutor
	maxConns    int
	types       []datasource.DatasourceAdapterInfo
	connectErr  error
	discovererN atomic.Int32
}

func (f *mockFactory) NewConnectionTester(ctx context.Context, dsType string, config map[string]any) (datasource.ConnectionTester, error) {
	return nil, fmt.Errorf("not used")
}

func (f *mockFactory) NewSchemaDiscoverer(ctx context.Context, dsType string, config map[string]any) (datasource.SchemaDiscoverer, error) {
	f.discovererN.Add(1)
	if f.connectErr != nil {
		return nil, f.connectErr
	}
	if dsType != "mock" {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrUnsupportedDatasource, dsType)
	}
	return f.discoverer, nil
}

func (f *mockFactory) NewQueryExecutor(ctx context.Context, dsType string, config map[string]any) (datasource.QueryExecutor, error) {
	return f.executor, nil
}

func (f *mockFactory) ListTypes() []datasource.DatasourceAdapterInfo { return f.types }

func (f *mockFactory) MaxConnections() int { return f.maxConns }

var (
	_ datasource.SchemaDiscoverer         = (*mockDiscoverer)(nil)
	_ datasource.QueryExecutor            = (*mockExecutor)(nil)
	_ datasource.DatasourceAdapterFactory = (*mockFactory)(nil)
)

// cleanTable registers a two-column table whose statistics score 100.
func cleanTable(d *mockDiscoverer, e *mockExecutor, schema, table string) {
	d.tables = append(d.tables, datasource.TableMetadata{SchemaName: schema, TableName: table, RowCount: 10})
	if d.columns == nil {
		d.columns = map[string][]datasource.ColumnMetadata{}
	}
	d.columns[tableKey(schema, table)] = []datasource.ColumnMetadata{
		{ColumnName: "id", DataType: "integer", IsPrimaryKey: true, OrdinalPosition: 1},
		{ColumnName: "name", DataType: "text", IsNullable: true, OrdinalPosition: 2},
	}
	if e.rows == nil {
		e.rows = map[string]map[string]any{}
	}
	e.rows[tableKey(schema, table)] = map[string]any{
		"row_count": int64(10),
		"nn_0":      int64(10),
		"dc_0":      int64(10),
		"nn_1":      int64(10),
		"dc_1":      int64(5),
	}
}
