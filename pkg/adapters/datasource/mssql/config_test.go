package mssql

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromMap_SQLAuth(t *testing.T) {
	cfg, err := FromMap(map[string]any{
		"host":     "sql.internal",
		"port":     float64(14330),
		"database": "warehouse",
		"username": "analyst",
		"password": "secret",
		"schemas":  []any{"dbo", "", "sales"},
	})
	require.NoError(t, err)

	assert.Equal(t, "sql", cfg.AuthMethod)
	assert.Equal(t, "sql.internal", cfg.Host)
	assert.Equal(t, 14330, cfg.Port)
	assert.Equal(t, "warehouse", cfg.Database)
	assert.Equal(t, "analyst", cfg.Username)
	assert.Equal(t, []string{"dbo", "sales"}, cfg.Schemas)
	assert.True(t, cfg.Encrypt)
	assert.Equal(t, DefaultConnectionTimeout(), cfg.ConnectionTimeout)
	require.NoError(t, cfg.Validate())
}

func TestFromMap_ServicePrincipalAutoDetected(t *testing.T) {
	cfg, err := FromMap(map[string]any{
		"host":          "example.database.windows.net",
		"database":      "warehouse",
		"tenant_id":     "tenant",
		"client_id":     "client",
		"client_secret": "shh",
	})
	require.NoError(t, err)

	assert.Equal(t, "service_principal", cfg.AuthMethod)
	assert.Equal(t, DefaultPort(), cfg.Port)
	require.NoError(t, cfg.Validate())
}

func TestFromMap_Errors(t *testing.T) {
	tests := []struct {
		name    string
		config  map[string]any
		wantErr string
	}{
		{
			name:    "missing host",
			config:  map[string]any{"database": "db", "username": "u"},
			wantErr: "host is required",
		},
		{
			name:    "missing database",
			config:  map[string]any{"host": "h", "username": "u"},
			wantErr: "database is required",
		},
		{
			name:    "no credentials",
			config:  map[string]any{"host": "h", "database": "db"},
			wantErr: "could not auto-detect auth method",
		},
		{
			name:    "unknown auth method",
			config:  map[string]any{"host": "h", "database": "db", "auth_method": "kerberos"},
			wantErr: "invalid auth method",
		},
		{
			name: "service principal missing secret",
			config: map[string]any{
				"host": "h", "database": "db", "auth_method": "service_principal",
				"tenant_id": "t", "client_id": "c",
			},
			wantErr: "client_secret is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromMap(tt.config)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_ValidateRejectsBadPort(t *testing.T) {
	cfg := &Config{Host: "h", Database: "db", Port: 70000, AuthMethod: "sql", Username: "u"}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid port")
}

func TestBuildSQLAuthConnectionString(t *testing.T) {
	cfg := &Config{
		Host:                   "sql.internal",
		Port:                   1433,
		Database:               "warehouse",
		Username:               "ana lyst",
		Password:               "p@ss:word",
		TrustServerCertificate: true,
		ConnectionTimeout:      15,
	}

	dsn := buildSQLAuthConnectionString(cfg)
	require.True(t, strings.HasPrefix(dsn, "sqlserver://"))

	u, err := url.Parse(dsn)
	require.NoError(t, err)
	assert.Equal(t, "sql.internal:1433", u.Host)

	q := u.Query()
	assert.Equal(t, "warehouse", q.Get("database"))
	assert.Equal(t, "false", q.Get("encrypt"))
	assert.Equal(t, "true", q.Get("TrustServerCertificate"))
	assert.Equal(t, "15", q.Get("connection timeout"))
	assert.Equal(t, "ReadOnly", q.Get("ApplicationIntent"))
}

func TestBuildServicePrincipalConnectionString(t *testing.T) {
	cfg := &Config{
		Host:         "example.database.windows.net",
		Port:         1433,
		Database:     "warehouse",
		Encrypt:      true,
		TenantID:     "tenant",
		ClientID:     "client",
		ClientSecret: "secret",
	}

	u, err := url.Parse(buildServicePrincipalConnectionString(cfg))
	require.NoError(t, err)

	q := u.Query()
	assert.Equal(t, "ActiveDirectoryServicePrincipal", q.Get("fedauth"))
	assert.Equal(t, "client", q.Get("user id"))
	assert.Equal(t, "tenant", q.Get("tenant id"))
	assert.Equal(t, "true", q.Get("encrypt"))
}

func TestFromMap_Encrypt(t *testing.T) {
	base := func(encrypt any) map[string]any {
		return map[string]any{"host": "h", "database": "db", "user": "u", "encrypt": encrypt}
	}

	tests := []struct {
		value any
		want  bool
	}{
		{true, true},
		{false, false},
		{"strict", true},
		{"disable", false},
		{"optional", false},
	}
	for _, tt := range tests {
		cfg, err := FromMap(base(tt.value))
		require.NoError(t, err)
		assert.Equal(t, tt.want, cfg.Encrypt, "encrypt=%v", tt.value)
	}

	_, err := FromMap(base("maybe"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid encrypt value")
}

func TestFromMap_YAMLDecodedValues(t *testing.T) {
	cfg, err := FromMap(map[string]any{
		"host":                     "sql.internal",
		"port":                     14330,
		"database":                 "warehouse",
		"user":                     "analyst",
		"connection_timeout":       5,
		"trust_server_certificate": "true",
		"schemas":                  "dbo, sales",
	})
	require.NoError(t, err)

	assert.Equal(t, AuthSQL, cfg.AuthMethod)
	assert.Equal(t, 14330, cfg.Port)
	assert.Equal(t, 5, cfg.ConnectionTimeout)
	assert.True(t, cfg.TrustServerCertificate)
	assert.Equal(t, []string{"dbo", "sales"}, cfg.Schemas)
}
