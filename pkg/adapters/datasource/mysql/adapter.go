package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"strconv"

	mysqldriver "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-quality/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-quality/pkg/config"
)

// Adapter provides MySQL connectivity.
type Adapter struct {
	config *Config
	db     *sql.DB
	logger *zap.Logger
}

// buildDSN builds a driver DSN. parseTime makes DATETIME and TIMESTAMP
// values arrive as time.Time.
func buildDSN(cfg *Config, opts datasource.ConnectionOptions) string {
	dc := mysqldriver.NewConfig()
	dc.User = cfg.User
	dc.Passwd = cfg.Password
	dc.Net = "tcp"
	dc.Addr = net.JoinHostPort(config.ResolveHostForDocker(cfg.Host), strconv.Itoa(cfg.Port))
	dc.DBName = cfg.Database
	dc.TLSConfig = cfg.TLS
	dc.ParseTime = true
	dc.Timeout = opts.ConnectTimeout
	return dc.FormatDSN()
}

// openDB opens and pings a MySQL connection pool.
func openDB(ctx context.Context, cfg *Config, opts datasource.ConnectionOptions) (*sql.DB, error) {
	opts = opts.Normalize()

	db, err := sql.Open("mysql", buildDSN(cfg, opts))
	if err != nil {
		return nil, fmt.Errorf("open mysql connection: %w", err)
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

// NewAdapter creates a MySQL adapter that owns its connection pool.
func NewAdapter(ctx context.Context, cfg *Config, opts datasource.ConnectionOptions) (*Adapter, error) {
	db, err := openDB(ctx, cfg, opts)
	if err != nil {
		return nil, err
	}
	return &Adapter{
		config: cfg,
		db:     db,
		logger: opts.Normalize().Logger.Named("mysql"),
	}, nil
}

// TestConnection verifies the database is reachable and that the session is
// connected to the configured database.
func (a *Adapter) TestConnection(ctx context.Context) error {
	var current sql.NullString
	if err := a.db.QueryRowContext(ctx, "SELECT DATABASE()").Scan(&current); err != nil {
		return fmt.Errorf("test query failed: %w", err)
	}
	if current.String != a.config.Database {
		return fmt.Errorf("connected to wrong database: expected %q, got %q", a.config.Database, current.String)
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
