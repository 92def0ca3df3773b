package mssql

import (
	"fmt"

	"github.com/ekaya-inc/ekaya-quality/pkg/adapters/datasource"
)

// Supported authentication methods.
const (
	AuthSQL              = "sql"
	AuthServicePrincipal = "service_principal"
)

// Config contains SQL Server-specific connection options.
type Config struct {
	Host     string
	Port     int
	Database string

	// AuthMethod is AuthSQL or AuthServicePrincipal.
	AuthMethod string

	Username string
	Password string

	// Azure AD service principal
	TenantID     string
	ClientID     string
	ClientSecret string

	// Schemas limits discovery to these schemas. Empty means every user schema.
	Schemas []string

	Encrypt                bool
	TrustServerCertificate bool
	ConnectionTimeout      int // seconds
}

// DefaultPort returns the default SQL Server port.
func DefaultPort() int {
	return 1433
}

// DefaultConnectionTimeout returns the default connection timeout in seconds.
func DefaultConnectionTimeout() int {
	return 30
}

// FromMap creates a Config from a generic config map. When auth_method is
// omitted it is inferred: a client_id selects the service principal,
// otherwise a username selects SQL authentication.
func FromMap(config map[string]any) (*Config, error) {
	m := datasource.ConfigMap(config)
	cfg := &Config{
		Host:       m.String("host"),
		Database:   m.String("database", "name"),
		AuthMethod: m.String("auth_method"),
		Schemas:    m.Strings("schemas"),
	}
	if cfg.Host == "" {
		return nil, fmt.Errorf("host is required")
	}
	if cfg.Database == "" {
		return nil, fmt.Errorf("database is required")
	}

	var err error
	if cfg.Port, err = m.Int("port", DefaultPort()); err != nil {
		return nil, err
	}
	if cfg.ConnectionTimeout, err = m.Int("connection_timeout", DefaultConnectionTimeout()); err != nil {
		return nil, err
	}
	if cfg.TrustServerCertificate, err = m.Bool("trust_server_certificate", false); err != nil {
		return nil, err
	}
	if cfg.Encrypt, err = parseEncrypt(config["encrypt"]); err != nil {
		return nil, err
	}

	if cfg.AuthMethod == "" {
		switch {
		case m.String("client_id") != "":
			cfg.AuthMethod = AuthServicePrincipal
		case m.String("username", "user") != "":
			cfg.AuthMethod = AuthSQL
		default:
			return nil, fmt.Errorf("could not auto-detect auth method; no credentials provided")
		}
	}

	switch cfg.AuthMethod {
	case AuthSQL:
		cfg.Username = m.String("username", "user")
		cfg.Password = m.String("password") // may be empty
	case AuthServicePrincipal:
		cfg.TenantID = m.String("tenant_id")
		cfg.ClientID = m.String("client_id")
		cfg.ClientSecret = m.String("client_secret")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseEncrypt accepts a bool or the driver's string modes. Anything but
// "false", "disable" or "optional" keeps encryption on.
func parseEncrypt(v any) (bool, error) {
	switch e := v.(type) {
	case nil:
		return true, nil
	case bool:
		return e, nil
	case string:
		switch e {
		case "", "true", "strict", "mandatory":
			return true, nil
		case "false", "disable", "optional":
			return false, nil
		}
	}
	return false, fmt.Errorf("invalid encrypt value: %v", v)
}

// Validate checks that the fields required by the auth method are set.
func (c *Config) Validate() error {
	switch {
	case c.Host == "":
		return fmt.Errorf("host is required")
	case c.Database == "":
		return fmt.Errorf("database is required")
	case c.Port <= 0 || c.Port > 65535:
		return fmt.Errorf("invalid port: %d", c.Port)
	}

	switch c.AuthMethod {
	case AuthSQL:
		if c.Username == "" {
			return fmt.Errorf("username is required for SQL authentication")
		}
	case AuthServicePrincipal:
		required := [][2]string{
			{"tenant_id", c.TenantID},
			{"client_id", c.ClientID},
			{"client_secret", c.ClientSecret},
		}
		for _, f := range required {
			if f[1] == "" {
				return fmt.Errorf("%s is required for service principal authentication", f[0])
			}
		}
	default:
		return fmt.Errorf("invalid auth method: %s (must be %s or %s)", c.AuthMethod, AuthSQL, AuthServicePrincipal)
	}
	return nil
}
