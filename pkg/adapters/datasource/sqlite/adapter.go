package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-quality/pkg/adapters/datasource"
)

// Adapter provides SQLite connectivity for a database file.
type Adapter struct {
	config *Config
	db     *sql.DB
	logger *zap.Logger
}

// openDB opens a read-only connection pool on the database file.
// The file must already exist; SQLite would otherwise create an empty one.
func openDB(ctx context.Context, cfg *Config, opts datasource.ConnectionOptions) (*sql.DB, error) {
	opts = opts.Normalize()

	if _, err := os.Stat(cfg.Path); err != nil {
		return nil, fmt.Errorf("database file: %w", err)
	}

	db, err := sql.Open("sqlite3", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(int(opts.PoolMaxConns))

	pingCtx, cancel := context.WithTimeout(ctx, opts.ConnectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connection test failed: %w", err)
	}
	return db, nil
}

// NewAdapter creates a SQLite adapter that owns its connection pool.
func NewAdapter(ctx context.Context, cfg *Config, opts datasource.ConnectionOptions) (*Adapter, error) {
	db, err := openDB(ctx, cfg, opts)
	if err != nil {
		return nil, err
	}
	return &Adapter{
		config: cfg,
		db:     db,
		logger: opts.Normalize().Logger.Named("sqlite"),
	}, nil
}

// TestConnection verifies the file is a readable SQLite database.
func (a *Adapter) TestConnection(ctx context.Context) error {
	// A non-SQLite file opens fine and only fails once the schema is read.
	var count int
	if err := a.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sqlite_master").Scan(&count); err != nil {
		return fmt.Errorf("test query failed: %w", err)
	}
	a.logger.Debug("Connection test passed", zap.String("path", a.config.Path), zap.Int("objects", count))
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
