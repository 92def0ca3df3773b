package datasource

import (
	"context"
	"fmt"

	"github.com/ekaya-inc/ekaya-quality/pkg/apperrors"
)

// DatasourceAdapterFactory creates adapters from the registry.
type DatasourceAdapterFactory interface {
	// NewConnectionTester creates a connection tester for the given datasource type.
	NewConnectionTester(ctx context.Context, dsType string, config map[string]any) (ConnectionTester, error)

	// NewSchemaDiscoverer creates a schema discoverer for the given datasource type.
	NewSchemaDiscoverer(ctx context.Context, dsType string, config map[string]any) (SchemaDiscoverer, error)

	// NewQueryExecutor creates a query executor for the given datasource type.
	NewQueryExecutor(ctx context.Context, dsType string, config map[string]any) (QueryExecutor, error)

	// ListTypes returns info for all registered adapter types.
	ListTypes() []DatasourceAdapterInfo

	// MaxConnections is the per-adapter pool size handed to every factory.
	MaxConnections() int
}

type registryFactory struct {
	opts ConnectionOptions
}

// NewDatasourceAdapterFactory returns a factory that uses the global registry.
func NewDatasourceAdapterFactory(opts ConnectionOptions) DatasourceAdapterFactory {
	return &registryFactory{
		opts: opts.Normalize(),
	}
}

func (f *registryFactory) NewConnectionTester(ctx context.Context, dsType string, config map[string]any) (ConnectionTester, error) {
	reg, ok := lookup(dsType)
	if !ok || reg.Factory == nil {
		return nil, fmt.Errorf("%w: %s (not compiled in)", apperrors.ErrUnsupportedDatasource, dsType)
	}
	return reg.Factory(ctx, config, f.opts)
}

func (f *registryFactory) NewSchemaDiscoverer(ctx context.Context, dsType string, config map[string]any) (SchemaDiscoverer, error) {
	reg, ok := lookup(dsType)
	if !ok || reg.SchemaDiscovererFactory == nil {
		return nil, fmt.Errorf("%w: schema discovery not supported for type %s", apperrors.ErrUnsupportedDatasource, dsType)
	}
	return reg.SchemaDiscovererFactory(ctx, config, f.opts)
}

func (f *registryFactory) NewQueryExecutor(ctx context.Context, dsType string, config map[string]any) (QueryExecutor, error) {
	reg, ok := lookup(dsType)
	if !ok || reg.QueryExecutorFactory == nil {
		return nil, fmt.Errorf("%w: query execution not supported for type %s", apperrors.ErrUnsupportedDatasource, dsType)
	}
	return reg.QueryExecutorFactory(ctx, config, f.opts)
}

func (f *registryFactory) ListTypes() []DatasourceAdapterInfo {
	return RegisteredAdapters()
}

func (f *registryFactory) MaxConnections() int {
	return int(f.opts.PoolMaxConns)
}

// Ensure registryFactory implements DatasourceAdapterFactory at compile time.
var _ DatasourceAdapterFactory = (*registryFactory)(nil)
