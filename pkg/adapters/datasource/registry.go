package datasource

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-quality/pkg/apperrors"
)

// DatasourceAdapterInfo describes a registered adapter for API discovery.
type DatasourceAdapterInfo struct {
	Type        string `json:"type" yaml:"type"`                 // "postgres", "mssql", "sqlite", "mysql"
	DisplayName string `json:"display_name" yaml:"display_name"` // "PostgreSQL", "Microsoft SQL Server"
	Description string `json:"description" yaml:"description"`   // "Connect to PostgreSQL 12+"
	Icon        string `json:"icon" yaml:"icon"`                 // Icon identifier for UI
}

// ConnectionOptions are server-level settings passed to every adapter factory.
type ConnectionOptions struct {
	// PoolMaxConns bounds the connections an adapter opens. It is also the
	// upper bound on how many tables are analyzed in parallel.
	PoolMaxConns int32
	// ConnectTimeout bounds the initial connection attempt.
	ConnectTimeout time.Duration
	Logger         *zap.Logger
}

// DefaultConnectionOptions returns sensible defaults.
func DefaultConnectionOptions() ConnectionOptions {
	return ConnectionOptions{
		PoolMaxConns:   10,
		ConnectTimeout: 30 * time.Second,
		Logger:         zap.NewNop(),
	}
}

// Normalize fills zero values with defaults.
func (o ConnectionOptions) Normalize() ConnectionOptions {
	def := DefaultConnectionOptions()
	if o.PoolMaxConns <= 0 {
		o.PoolMaxConns = def.PoolMaxConns
	}
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = def.ConnectTimeout
	}
	if o.Logger == nil {
		o.Logger = def.Logger
	}
	return o
}

// DatasourceAdapterRegistration contains info + factories for creating adapters.
type DatasourceAdapterRegistration struct {
	Info                    DatasourceAdapterInfo
	Factory                 func(ctx context.Context, config map[string]any, opts ConnectionOptions) (ConnectionTester, error)
	SchemaDiscovererFactory func(ctx context.Context, config map[string]any, opts ConnectionOptions) (SchemaDiscoverer, error)
	QueryExecutorFactory    func(ctx context.Context, config map[string]any, opts ConnectionOptions) (QueryExecutor, error)
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]DatasourceAdapterRegistration)
)

// Register is called by each adapter's init() function.
// Thread-safe for concurrent init() calls.
func Register(reg DatasourceAdapterRegistration) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[reg.Info.Type] = reg
}

// RegisteredAdapters returns info for all registered adapters, sorted by type.
func RegisteredAdapters() []DatasourceAdapterInfo {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]DatasourceAdapterInfo, 0, len(registry))
	for _, reg := range registry {
		result = append(result, reg.Info)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Type < result[j].Type })
	return result
}

func lookup(dsType string) (DatasourceAdapterRegistration, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	reg, ok := registry[dsType]
	return reg, ok
}

// IsRegistered checks if an adapter type is available.
func IsRegistered(dsType string) bool {
	_, ok := lookup(dsType)
	return ok
}

// InvalidConfig reports a connection config map an adapter cannot parse.
// Factories return it so callers can tell bad input from an unreachable server.
func InvalidConfig(err error) error {
	return &apperrors.ConfigurationError{Field: "config", Reason: err.Error()}
}
