package sqlite

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/ekaya-inc/ekaya-quality/pkg/adapters/datasource"
)

// Config contains SQLite-specific connection options.
type Config struct {
	// Path is the database file. It is always opened read-only.
	Path string
	// BusyTimeoutMs is how long a reader waits on a locked database.
	BusyTimeoutMs int
}

// DefaultBusyTimeoutMs returns the default busy timeout in milliseconds.
func DefaultBusyTimeoutMs() int {
	return 5000
}

// FromMap creates a Config from a generic config map. "file" is accepted
// for "path".
func FromMap(config map[string]any) (*Config, error) {
	m := datasource.ConfigMap(config)
	cfg := &Config{Path: m.String("path", "file")}
	if cfg.Path == "" {
		return nil, fmt.Errorf("path is required")
	}

	timeout, err := m.Int("busy_timeout_ms", DefaultBusyTimeoutMs())
	if err != nil {
		return nil, err
	}
	if timeout < 0 {
		return nil, fmt.Errorf("invalid busy_timeout_ms: %d", timeout)
	}
	cfg.BusyTimeoutMs = timeout

	return cfg, nil
}

// DSN builds a read-only file URI for the mattn/go-sqlite3 driver.
func (c *Config) DSN() string {
	query := url.Values{}
	query.Set("mode", "ro")
	query.Set("_busy_timeout", strconv.Itoa(c.BusyTimeoutMs))
	return "file:" + c.Path + "?" + query.Encode()
}
