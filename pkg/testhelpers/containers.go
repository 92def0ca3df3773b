package testhelpers

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// PostgresImage is the stock PostgreSQL image used for integration tests.
const PostgresImage = "postgres:16-alpine"

const (
	testUser     = "ekaya"
	testPassword = "test_password"
	testDatabase = "test_data"
)

// FixtureSchema is the schema that holds the seeded quality fixtures.
const FixtureSchema = "quality_fixture"

// fixtureSQL seeds tables with known quality characteristics:
//   - customers: single-column key, a unique email, an optional notes
//     column that is mostly NULL, a fresh timestamp
//   - order_items: composite primary key
//   - raw_events: no primary key and a stale timestamp
var fixtureSQL = []string{
	`CREATE SCHEMA IF NOT EXISTS ` + FixtureSchema,
	`CREATE TABLE ` + FixtureSchema + `.customers (
		id integer PRIMARY KEY,
		email varchar(255) UNIQUE,
		notes text,
		created_at timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE ` + FixtureSchema + `.order_items (
		order_id integer NOT NULL,
		line_no integer NOT NULL,
		sku text,
		PRIMARY KEY (order_id, line_no)
	)`,
	`CREATE TABLE ` + FixtureSchema + `.raw_events (
		source text,
		payload jsonb,
		seen_at timestamp
	)`,
	`INSERT INTO ` + FixtureSchema + `.customers (id, email, notes)
		SELECT g, 'user' || g || '@example.com', CASE WHEN g % 10 = 0 THEN 'vip' END
		FROM generate_series(1, 100) g`,
	`INSERT INTO ` + FixtureSchema + `.order_items (order_id, line_no, sku)
		SELECT (g - 1) / 4 + 1, (g - 1) % 4 + 1, 'SKU-' || (g % 7)
		FROM generate_series(1, 40) g`,
	`INSERT INTO ` + FixtureSchema + `.raw_events (source, payload, seen_at)
		SELECT 'web', '{"n": 1}'::jsonb, timestamp '2019-01-01 00:00:00' + g * interval '1 hour'
		FROM generate_series(1, 20) g`,
}

// TestDB holds a shared test database container and connection pool.
type TestDB struct {
	Container testcontainers.Container
	Pool      *pgxpool.Pool
	ConnStr   string
	Host      string
	Port      int
}

// DatasourceConfig returns the adapter config map for the container.
func (db *TestDB) DatasourceConfig() map[string]any {
	return map[string]any{
		"host":     db.Host,
		"port":     float64(db.Port),
		"user":     testUser,
		"password": testPassword,
		"database": testDatabase,
		"ssl_mode": "disable",
	}
}

var (
	sharedTestDB     *TestDB
	sharedTestDBOnce sync.Once
	sharedTestDBErr  error
)

// GetTestDB returns a shared PostgreSQL container for integration tests.
// The container is created once, seeded with the quality fixtures, and reused
// across all tests in the run.
func GetTestDB(t *testing.T) *TestDB {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}

	sharedTestDBOnce.Do(func() {
		sharedTestDB, sharedTestDBErr = setupTestDB()
	})

	if sharedTestDBErr != nil {
		t.Fatalf("Failed to setup test database: %v", sharedTestDBErr)
	}

	return sharedTestDB
}

func setupTestDB() (*TestDB, error) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        PostgresImage,
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       testDatabase,
			"POSTGRES_USER":     testUser,
			"POSTGRES_PASSWORD": testPassword,
		},
		// The server logs readiness twice: once for the init run, once for real.
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start test container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get container host: %w", err)
	}

	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		return nil, fmt.Errorf("failed to get container port: %w", err)
	}

	connStr := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		testUser, testPassword, host, port.Port(), testDatabase)

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Verify connection with retry
	for i := 0; i < 10; i++ {
		if err := pool.Ping(ctx); err == nil {
			break
		}
		time.Sleep(500 * time.Millisecond)
	}

	for _, stmt := range fixtureSQL {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to seed fixtures: %w", err)
		}
	}

	return &TestDB{
		Container: container,
		Pool:      pool,
		ConnStr:   connStr,
		Host:      host,
		Port:      port.Int(),
	}, nil
}
