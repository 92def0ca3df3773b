package mysql

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/ekaya-inc/ekaya-quality/pkg/adapters/datasource"
)

// Config contains MySQL-specific connection options.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	// TLS is passed to the driver: "true", "false", "skip-verify" or "preferred".
	TLS string
	// Schemas limits discovery to these databases. Empty means the connected database only.
	Schemas []string
}

var tlsModes = []string{"true", "false", "skip-verify", "preferred"}

// DefaultPort returns the default MySQL port.
func DefaultPort() int {
	return 3306
}

// FromMap creates a Config from a generic config map.
func FromMap(config map[string]any) (*Config, error) {
	m := datasource.ConfigMap(config)
	cfg := &Config{
		Host:     m.String("host"),
		User:     m.String("user", "username"),
		Password: m.String("password"),
		Database: m.String("database"),
		TLS:      "preferred",
		Schemas:  m.Strings("schemas"),
	}

	if cfg.Host == "" {
		return nil, fmt.Errorf("host is required")
	}

	port, err := m.Int("port", DefaultPort())
	if err != nil {
		return nil, err
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("invalid port: %d", port)
	}
	cfg.Port = port

	if cfg.User == "" {
		return nil, fmt.Errorf("user is required")
	}
	if cfg.Database == "" {
		return nil, fmt.Errorf("database is required")
	}

	switch tls := config["tls"].(type) {
	case bool:
		cfg.TLS = strconv.FormatBool(tls)
	case string:
		if tls != "" && !slices.Contains(tlsModes, tls) {
			return nil, fmt.Errorf("invalid tls mode: %s", tls)
		}
		if tls != "" {
			cfg.TLS = tls
		}
	}

	return cfg, nil
}

// discoverySchemas returns the databases discovery is limited to.
func (c *Config) discoverySchemas() []string {
	if len(c.Schemas) > 0 {
		return c.Schemas
	}
	return []string{c.Database}
}
