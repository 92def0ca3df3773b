package sqlite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromMap(t *testing.T) {
	cfg, err := FromMap(map[string]any{"path": "/data/app.db"})
	require.NoError(t, err)
	assert.Equal(t, "/data/app.db", cfg.Path)
	assert.Equal(t, DefaultBusyTimeoutMs(), cfg.BusyTimeoutMs)

	cfg, err = FromMap(map[string]any{"file": "upload.sqlite", "busy_timeout_ms": float64(250)})
	require.NoError(t, err)
	assert.Equal(t, "upload.sqlite", cfg.Path)
	assert.Equal(t, 250, cfg.BusyTimeoutMs)
}

func TestFromMap_Errors(t *testing.T) {
	_, err := FromMap(map[string]any{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "path is required")

	_, err = FromMap(map[string]any{"path": "x.db", "busy_timeout_ms": -1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid busy_timeout_ms")
}

func TestConfig_DSNIsReadOnly(t *testing.T) {
	cfg := &Config{Path: "/tmp/app.db", BusyTimeoutMs: 100}
	assert.Equal(t, "file:/tmp/app.db?_busy_timeout=100&mode=ro", cfg.DSN())
}
