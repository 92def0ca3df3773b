package postgres

import (
	"fmt"
	"slices"

	"github.com/ekaya-inc/ekaya-quality/pkg/adapters/datasource"
)

// Config contains PostgreSQL-specific connection options.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string

	// Schemas limits discovery to these schemas. Empty means every user schema.
	Schemas []string
}

// sslModes are the libpq sslmode values pgx understands.
var sslModes = []string{"disable", "allow", "prefer", "require", "verify-ca", "verify-full"}

// DefaultPort returns the default PostgreSQL port.
func DefaultPort() int {
	return 5432
}

// DefaultSSLMode returns the default SSL mode.
func DefaultSSLMode() string {
	return "require"
}

// FromMap creates a Config from a generic config map.
// "name" is accepted for "database" and "sslmode" for "ssl_mode".
func FromMap(config map[string]any) (*Config, error) {
	m := datasource.ConfigMap(config)
	cfg := &Config{
		Host:     m.String("host"),
		User:     m.String("user", "username"),
		Password: m.String("password"),
		Database: m.String("database", "name"),
		SSLMode:  m.String("ssl_mode", "sslmode"),
		Schemas:  m.Strings("schemas"),
	}

	switch {
	case cfg.Host == "":
		return nil, fmt.Errorf("host is required")
	case cfg.User == "":
		return nil, fmt.Errorf("user is required")
	case cfg.Database == "":
		return nil, fmt.Errorf("database is required")
	}

	port, err := m.Int("port", DefaultPort())
	if err != nil {
		return nil, err
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("invalid port: %d", port)
	}
	cfg.Port = port

	if cfg.SSLMode == "" {
		cfg.SSLMode = DefaultSSLMode()
	} else if !slices.Contains(sslModes, cfg.SSLMode) {
		return nil, fmt.Errorf("invalid ssl_mode: %s", cfg.SSLMode)
	}

	return cfg, nil
}
