package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"

	_ "github.com/microsoft/go-mssqldb"         // SQL Server driver
	_ "github.com/microsoft/go-mssqldb/azuread" // Azure AD support
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-quality/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-quality/pkg/config"
)

// Adapter provides SQL Server connectivity with support for multiple authentication methods.
type Adapter struct {
	config *Config
	db     *sql.DB
	logger *zap.Logger
}

// openDB opens and pings a SQL Server connection pool.
// Supports two authentication methods:
//  1. SQL Authentication (username/password)
//  2. Service Principal (Azure AD with client credentials)
func openDB(ctx context.Context, cfg *Config, opts datasource.ConnectionOptions) (*sql.DB, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	opts = opts.Normalize()

	var db *sql.DB
	var err error
	switch cfg.AuthMethod {
	case AuthSQL:
		db, err = createSQLAuthConnection(cfg)
	case AuthServicePrincipal:
		db, err = createServicePrincipalConnection(cfg)
	default:
		return nil, fmt.Errorf("unsupported auth method: %s", cfg.AuthMethod)
	}
	if err != nil {
		return nil, fmt.Errorf("create connection: %w", err)
	}

	db.SetMaxOpenConns(int(opts.PoolMaxConns))
	db.SetMaxIdleConns(int(opts.PoolMaxConns))

	pingCtx, cancel := context.WithTimeout(ctx, opts.ConnectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connection test failed: %w", err)
	}
	return db, nil
}

// NewAdapter creates a SQL Server adapter that owns its connection pool.
func NewAdapter(ctx context.Context, cfg *Config, opts datasource.ConnectionOptions) (*Adapter, error) {
	db, err := openDB(ctx, cfg, opts)
	if err != nil {
		return nil, err
	}
	return &Adapter{
		config: cfg,
		db:     db,
		logger: opts.Normalize().Logger.Named("mssql"),
	}, nil
}

func baseQuery(cfg *Config) url.Values {
	query := url.Values{}
	query.Add("database", cfg.Database)

	if cfg.Encrypt {
		query.Add("encrypt", "true")
	} else {
		query.Add("encrypt", "false")
	}
	if cfg.TrustServerCertificate {
		query.Add("TrustServerCertificate", "true")
	}
	if cfg.ConnectionTimeout > 0 {
		query.Add("connection timeout", fmt.Sprintf("%d", cfg.ConnectionTimeout))
	}
	// Read-only routing on availability groups; ignored by standalone servers.
	query.Add("ApplicationIntent", "ReadOnly")
	return query
}

// buildSQLAuthConnectionString builds a sqlserver:// URL for SQL Server authentication.
func buildSQLAuthConnectionString(cfg *Config) string {
	return fmt.Sprintf("sqlserver://%s:%s@%s:%d?%s",
		url.QueryEscape(cfg.Username),
		url.QueryEscape(cfg.Password),
		config.ResolveHostForDocker(cfg.Host),
		cfg.Port,
		baseQuery(cfg).Encode(),
	)
}

// buildServicePrincipalConnectionString builds a URL with the fedauth parameter
// for Azure AD service principal authentication.
func buildServicePrincipalConnectionString(cfg *Config) string {
	query := baseQuery(cfg)
	query.Add("fedauth", "ActiveDirectoryServicePrincipal")
	query.Add("user id", cfg.ClientID)
	query.Add("password", cfg.ClientSecret)
	query.Add("tenant id", cfg.TenantID)

	return fmt.Sprintf("sqlserver://%s:%d?%s",
		cfg.Host,
		cfg.Port,
		query.Encode(),
	)
}

// createSQLAuthConnection creates a connection using SQL Server authentication.
func createSQLAuthConnection(cfg *Config) (*sql.DB, error) {
	db, err := sql.Open("sqlserver", buildSQLAuthConnectionString(cfg))
	if err != nil {
		return nil, fmt.Errorf("open SQL auth connection: %w", err)
	}
	return db, nil
}

// createServicePrincipalConnection creates a connection using Azure AD Service Principal.
func createServicePrincipalConnection(cfg *Config) (*sql.DB, error) {
	// For Azure AD, use azuresql driver
	db, err := sql.Open("azuresql", buildServicePrincipalConnectionString(cfg))
	if err != nil {
		return nil, fmt.Errorf("open service principal connection: %w", err)
	}
	return db, nil
}

// TestConnection verifies the database is reachable with valid credentials.
func (a *Adapter) TestConnection(ctx context.Context) error {
	if err := a.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}

	var result int
	if err := a.db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("test query failed: %w", err)
	}

	a.logger.Debug("Connection test passed", zap.String("database", a.config.Database))
	return nil
}

// Close releases the connection pool.
func (a *Adapter) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

// Ensure Adapter implements ConnectionTester at compile time.
var _ datasource.ConnectionTester = (*Adapter)(nil)
