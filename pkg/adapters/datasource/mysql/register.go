//go:build mysql || all_adapters

package mysql

import (
	"context"

	"github.com/ekaya-inc/ekaya-quality/pkg/adapters/datasource"
)

func init() {
	datasource.Register(datasource.DatasourceAdapterRegistration{
		Info: datasource.DatasourceAdapterInfo{
			Type:        "mysql",
			DisplayName: "MySQL",
			Description: "Connect to MySQL 8+, MariaDB, Aurora MySQL",
			Icon:        "mysql",
		},
		Factory: func(ctx context.Context, config map[string]any, opts datasource.ConnectionOptions) (datasource.ConnectionTester, error) {
			cfg, err := FromMap(config)
			if err != nil {
				return nil, datasource.InvalidConfig(err)
			}
			return NewAdapter(ctx, cfg, opts)
		},
		SchemaDiscovererFactory: func(ctx context.Context, config map[string]any, opts datasource.ConnectionOptions) (datasource.SchemaDiscoverer, error) {
			cfg, err := FromMap(config)
			if err != nil {
				return nil, datasource.InvalidConfig(err)
			}
			return NewSchemaDiscoverer(ctx, cfg, opts)
		},
		QueryExecutorFactory: func(ctx context.Context, config map[string]any, opts datasource.ConnectionOptions) (datasource.QueryExecutor, error) {
			cfg, err := FromMap(config)
			if err != nil {
				return nil, datasource.InvalidConfig(err)
			}
			return NewQueryExecutor(ctx, cfg, opts)
		},
	})
}
