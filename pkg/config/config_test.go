package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-quality/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-quality/pkg/models"
	"github.com/ekaya-inc/ekaya-quality/pkg/quality"
)

// qualityEnvVars are cleared before every Load so the host environment cannot
// leak into assertions.
var qualityEnvVars = []string{
	"PORT", "BASE_URL", "ENVIRONMENT", "TLS_CERT_PATH", "TLS_KEY_PATH",
	"QUALITY_STALENESS_DAYS", "QUALITY_NULL_RATIO_WARNING", "QUALITY_NULL_RATIO_CRITICAL",
	"QUALITY_OPTIONAL_FIELD_PATTERNS", "QUALITY_WEIGHT_COMPLETENESS", "QUALITY_WEIGHT_UNIQUENESS",
	"QUALITY_WEIGHT_FRESHNESS", "QUALITY_FRESHNESS_PENALTY", "QUALITY_QUERY_TIMEOUT_SECONDS",
	"QUALITY_MAX_COLUMNS_PER_QUERY", "QUALITY_MAX_CONCURRENT_TABLES",
	"DATASOURCE_POOL_MAX_CONNS", "DATASOURCE_CONNECTION_TIMEOUT_SECONDS",
	"ANALYZE_RATE_PER_SECOND", "ANALYZE_BURST",
}

// withConfigFile writes config.yaml into a temp directory and makes it the
// working directory for the rest of the test.
func withConfigFile(t *testing.T, yamlContent string) string {
	t.Helper()

	tmpDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmpDir, "config.yaml"), []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	originalDir, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("failed to change directory: %v", err)
	}
	t.Cleanup(func() {
		os.Chdir(originalDir)
	})

	for _, name := range qualityEnvVars {
		if value, ok := os.LookupEnv(name); ok {
			os.Unsetenv(name)
			t.Cleanup(func() { os.Setenv(name, value) })
		}
	}
	return tmpDir
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	withConfigFile(t, `
port: "3480"
env: "test"
quality:
  staleness_days: 90
`)

	t.Setenv("PORT", "4480")
	t.Setenv("ENVIRONMENT", "production")

	cfg, err := Load("test-version")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	// Verify env vars override YAML
	if cfg.Port != "4480" {
		t.Errorf("expected Port=4480 (from env), got %s", cfg.Port)
	}
	if cfg.Env != "production" {
		t.Errorf("expected Env=production (from env), got %s", cfg.Env)
	}
	if cfg.IsLocal() {
		t.Error("expected production environment not to be local")
	}

	// Verify version was set
	if cfg.Version != "test-version" {
		t.Errorf("expected Version=test-version, got %s", cfg.Version)
	}

	// Verify BaseURL was auto-derived from PORT
	if cfg.BaseURL != "http://localhost:4480" {
		t.Errorf("expected BaseURL=http://localhost:4480 (auto-derived from PORT), got %s", cfg.BaseURL)
	}

	// Verify YAML value used where no env var is set (proves YAML was read)
	if cfg.Quality.StalenessDays != 90 {
		t.Errorf("expected StalenessDays=90 (from yaml), got %d", cfg.Quality.StalenessDays)
	}
}

func TestLoad_BaseURLExplicit(t *testing.T) {
	withConfigFile(t, `
port: "5678"
base_url: "https://quality.example.com"
`)

	cfg, err := Load("test-version")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.BaseURL != "https://quality.example.com" {
		t.Errorf("expected explicit BaseURL, got %s", cfg.BaseURL)
	}
}

func TestLoad_MissingConfigFile(t *testing.T) {
	tmpDir := t.TempDir()

	originalDir, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("failed to change directory: %v", err)
	}
	t.Cleanup(func() {
		os.Chdir(originalDir)
	})

	_, err = Load("test-version")
	if err == nil {
		t.Error("expected error when config.yaml is missing")
	}
}

func TestLoad_QualityDefaults(t *testing.T) {
	withConfigFile(t, `
port: "3480"
env: "local"
`)

	cfg, err := Load("test-version")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	q := cfg.Quality
	if q.StalenessDays != 365 {
		t.Errorf("expected StalenessDays=365 (default), got %d", q.StalenessDays)
	}
	if q.NullRatioWarning != 0.2 || q.NullRatioCritical != 0.5 {
		t.Errorf("expected null ratios 0.2/0.5 (default), got %g/%g", q.NullRatioWarning, q.NullRatioCritical)
	}
	if q.FreshnessPenalty != 25 {
		t.Errorf("expected FreshnessPenalty=25 (default), got %g", q.FreshnessPenalty)
	}
	if q.QueryTimeoutSeconds != 30 {
		t.Errorf("expected QueryTimeoutSeconds=30 (default), got %d", q.QueryTimeoutSeconds)
	}
	if q.MaxConcurrentTables != 4 {
		t.Errorf("expected MaxConcurrentTables=4 (default), got %d", q.MaxConcurrentTables)
	}
	if strings.Join(q.OptionalFieldPatterns, ",") != strings.Join(quality.DefaultOptionalFieldPatterns, ",") {
		t.Errorf("expected default optional field patterns, got %v", q.OptionalFieldPatterns)
	}

	engine := q.EngineConfig()
	if strings.Join(engine.NonNegativePatterns, ",") != "price" {
		t.Errorf("expected default non-negative patterns [price], got %v", engine.NonNegativePatterns)
	}
	if engine.TopValues != 0 || engine.TopValuesMaxDistinct != 50 {
		t.Errorf("expected top values off with cardinality 50 (default), got %d/%d", engine.TopValues, engine.TopValuesMaxDistinct)
	}
	if engine.Weights != quality.DefaultWeights() {
		t.Errorf("expected default weights when none configured, got %+v", engine.Weights)
	}
	if err := engine.Validate(); err != nil {
		t.Errorf("expected default engine config to validate, got %v", err)
	}

	if cfg.Datasource.PoolMaxConns != 10 {
		t.Errorf("expected PoolMaxConns=10 (default), got %d", cfg.Datasource.PoolMaxConns)
	}
	if cfg.Datasource.ConnectionTimeoutSeconds != 30 {
		t.Errorf("expected ConnectionTimeoutSeconds=30 (default), got %d", cfg.Datasource.ConnectionTimeoutSeconds)
	}
	if !cfg.IsLocal() {
		t.Error("expected local environment")
	}
}

func TestLoad_QualityFromYAML(t *testing.T) {
	withConfigFile(t, `
port: "3480"
quality:
  staleness_days: 30
  null_ratio_warning: 0.1
  null_ratio_critical: 0.3
  optional_field_patterns: ["memo", "Remark"]
  weight_completeness: 0.6
  weight_uniqueness: 0.4
  weight_freshness: 0
  freshness_penalty: 10
  query_timeout_seconds: 5
  max_columns_per_query: 8
  max_concurrent_tables: 2
  non_negative_patterns: ["amount", " cost "]
  top_values: 3
  top_values_max_distinct: 10
datasource:
  pool_max_conns: 3
  connection_timeout_seconds: 7
`)

	cfg, err := Load("test-version")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	engine := cfg.Quality.EngineConfig()
	if engine.StalenessDays != 30 {
		t.Errorf("expected StalenessDays=30, got %d", engine.StalenessDays)
	}
	if engine.NullRatioWarning != 0.1 || engine.NullRatioCritical != 0.3 {
		t.Errorf("expected null ratios 0.1/0.3, got %g/%g", engine.NullRatioWarning, engine.NullRatioCritical)
	}
	want := quality.Weights{Completeness: 0.6, Uniqueness: 0.4, Freshness: 0}
	if engine.Weights != want {
		t.Errorf("expected weights %+v, got %+v", want, engine.Weights)
	}
	if engine.FreshnessPenalty != 10 {
		t.Errorf("expected FreshnessPenalty=10, got %g", engine.FreshnessPenalty)
	}
	if engine.QueryTimeout != 5*time.Second {
		t.Errorf("expected QueryTimeout=5s, got %s", engine.QueryTimeout)
	}
	if engine.MaxColumnsPerQuery != 8 {
		t.Errorf("expected MaxColumnsPerQuery=8, got %d", engine.MaxColumnsPerQuery)
	}
	if !engine.OptionalFields.IsOptionalField(models.ColumnDef{Name: "remarks", DataType: "text"}) {
		t.Error("expected configured pattern to match case-insensitively")
	}
	if engine.OptionalFields.IsOptionalField(models.ColumnDef{Name: "comment", DataType: "text"}) {
		t.Error("expected configured patterns to replace the defaults")
	}
	if cfg.Quality.MaxConcurrentTables != 2 {
		t.Errorf("expected MaxConcurrentTables=2, got %d", cfg.Quality.MaxConcurrentTables)
	}
	if strings.Join(engine.NonNegativePatterns, ",") != "amount,cost" {
		t.Errorf("expected trimmed non-negative patterns, got %v", engine.NonNegativePatterns)
	}
	if engine.TopValues != 3 || engine.TopValuesMaxDistinct != 10 {
		t.Errorf("expected top values 3/10, got %d/%d", engine.TopValues, engine.TopValuesMaxDistinct)
	}

	opts := cfg.Datasource.ConnectionOptions(zap.NewNop())
	if opts.PoolMaxConns != 3 {
		t.Errorf("expected PoolMaxConns=3, got %d", opts.PoolMaxConns)
	}
	if opts.ConnectTimeout != 7*time.Second {
		t.Errorf("expected ConnectTimeout=7s, got %s", opts.ConnectTimeout)
	}
}

func TestLoad_QualityFromEnv(t *testing.T) {
	withConfigFile(t, `
port: "3480"
quality:
  staleness_days: 30
`)

	t.Setenv("QUALITY_STALENESS_DAYS", "14")
	t.Setenv("QUALITY_OPTIONAL_FIELD_PATTERNS", "memo, annotation")
	t.Setenv("QUALITY_MAX_CONCURRENT_TABLES", "8")
	t.Setenv("DATASOURCE_POOL_MAX_CONNS", "20")

	cfg, err := Load("test-version")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Quality.StalenessDays != 14 {
		t.Errorf("expected StalenessDays=14 (from env), got %d", cfg.Quality.StalenessDays)
	}
	if cfg.Quality.MaxConcurrentTables != 8 {
		t.Errorf("expected MaxConcurrentTables=8 (from env), got %d", cfg.Quality.MaxConcurrentTables)
	}
	if cfg.Datasource.PoolMaxConns != 20 {
		t.Errorf("expected PoolMaxConns=20 (from env), got %d", cfg.Datasource.PoolMaxConns)
	}

	engine := cfg.Quality.EngineConfig()
	if !engine.OptionalFields.IsOptionalField(models.ColumnDef{Name: "annotation", DataType: "text"}) {
		t.Error("expected whitespace around env patterns to be trimmed")
	}
}

func TestLoad_InvalidQualityConfig(t *testing.T) {
	tests := []struct {
		name  string
		yaml  string
		field string
	}{
		{
			name:  "warning above critical",
			yaml:  "quality:\n  null_ratio_warning: 0.6\n  null_ratio_critical: 0.4\n",
			field: "null_ratio_warning",
		},
		{
			name:  "negative weight",
			yaml:  "quality:\n  weight_completeness: -1\n  weight_uniqueness: 1\n",
			field: "weight_completeness",
		},
		{
			name:  "negative concurrency",
			yaml:  "quality:\n  max_concurrent_tables: -1\n",
			field: "max_concurrent_tables",
		},
		{
			name:  "negative analyze rate",
			yaml:  "analyze_rate_per_second: -2\n",
			field: "analyze_rate_per_second",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withConfigFile(t, "port: \"3480\"\n"+tt.yaml)

			_, err := Load("test-version")
			if err == nil {
				t.Fatal("expected error for invalid quality configuration")
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Errorf("expected error to mention %q, got: %v", tt.field, err)
			}
		})
	}
}

func TestLoad_ZeroQueryTimeoutRejected(t *testing.T) {
	withConfigFile(t, "port: \"3480\"\n")
	t.Setenv("QUALITY_QUERY_TIMEOUT_SECONDS", "0")

	_, err := Load("test-version")
	if err == nil {
		t.Fatal("expected error for zero query timeout")
	}
	if !strings.Contains(err.Error(), "query_timeout") {
		t.Errorf("expected error to mention query_timeout, got: %v", err)
	}
}

func TestLoad_AnalyzeRateLimit(t *testing.T) {
	withConfigFile(t, "port: \"3480\"\n")

	cfg, err := Load("test-version")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.AnalyzeRatePerSecond != 1 || cfg.AnalyzeBurst != 5 {
		t.Errorf("expected default rate 1/s burst 5, got %v/s burst %d", cfg.AnalyzeRatePerSecond, cfg.AnalyzeBurst)
	}

	t.Setenv("ANALYZE_RATE_PER_SECOND", "0")
	cfg, err = Load("test-version")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.AnalyzeRatePerSecond != 0 {
		t.Errorf("expected rate limit disabled, got %v", cfg.AnalyzeRatePerSecond)
	}
}

func TestLoad_NoTLS(t *testing.T) {
	withConfigFile(t, `
port: "3480"
env: "test"
`)

	cfg, err := Load("test-version")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	// Verify TLS fields are empty
	if cfg.TLSCertPath != "" {
		t.Errorf("expected empty TLSCertPath, got %s", cfg.TLSCertPath)
	}
	if cfg.TLSKeyPath != "" {
		t.Errorf("expected empty TLSKeyPath, got %s", cfg.TLSKeyPath)
	}
}

func TestValidateTLS_BothProvided(t *testing.T) {
	tmpDir := t.TempDir()
	certPath := filepath.Join(tmpDir, "test-cert.pem")
	keyPath := filepath.Join(tmpDir, "test-key.pem")

	// Create dummy cert and key files
	if err := os.WriteFile(certPath, []byte("fake-cert-content"), 0644); err != nil {
		t.Fatalf("failed to write test cert: %v", err)
	}
	if err := os.WriteFile(keyPath, []byte("fake-key-content"), 0644); err != nil {
		t.Fatalf("failed to write test key: %v", err)
	}

	withConfigFile(t, fmt.Sprintf(`
port: "3480"
tls_cert_path: "%s"
tls_key_path: "%s"
`, certPath, keyPath))

	cfg, err := Load("test-version")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.TLSCertPath != certPath {
		t.Errorf("expected TLSCertPath=%s, got %s", certPath, cfg.TLSCertPath)
	}
	if cfg.BaseURL != "https://localhost:3480" {
		t.Errorf("expected https BaseURL when TLS is configured, got %s", cfg.BaseURL)
	}
}

func TestValidateTLS_OnlyOneProvided(t *testing.T) {
	tmpDir := t.TempDir()
	certPath := filepath.Join(tmpDir, "test-cert.pem")
	if err := os.WriteFile(certPath, []byte("fake-cert-content"), 0644); err != nil {
		t.Fatalf("failed to write test cert: %v", err)
	}

	withConfigFile(t, fmt.Sprintf("port: \"3480\"\ntls_cert_path: %q\n", certPath))

	_, err := Load("test-version")
	if err == nil {
		t.Fatal("expected error when only tls_cert_path is provided")
	}
	if !strings.Contains(err.Error(), "must be provided together") {
		t.Errorf("expected error about both paths, got: %v", err)
	}
}

func TestValidateTLS_KeyFileNotFound(t *testing.T) {
	tmpDir := t.TempDir()
	certPath := filepath.Join(tmpDir, "test-cert.pem")
	if err := os.WriteFile(certPath, []byte("fake-cert-content"), 0644); err != nil {
		t.Fatalf("failed to write test cert: %v", err)
	}

	withConfigFile(t, fmt.Sprintf("port: \"3480\"\ntls_cert_path: %q\ntls_key_path: %q\n",
		certPath, filepath.Join(tmpDir, "missing-key.pem")))

	_, err := Load("test-version")
	if err == nil {
		t.Fatal("expected error when key file does not exist")
	}
	if !strings.Contains(err.Error(), "key") {
		t.Errorf("expected error to mention 'key', got: %v", err)
	}
}

func TestDatasourceConfig_ConnectionOptionsNormalizes(t *testing.T) {
	opts := DatasourceConfig{}.ConnectionOptions(nil)

	def := datasource.DefaultConnectionOptions()
	if opts.PoolMaxConns != def.PoolMaxConns {
		t.Errorf("expected PoolMaxConns=%d, got %d", def.PoolMaxConns, opts.PoolMaxConns)
	}
	if opts.ConnectTimeout != def.ConnectTimeout {
		t.Errorf("expected ConnectTimeout=%s, got %s", def.ConnectTimeout, opts.ConnectTimeout)
	}
	if opts.Logger == nil {
		t.Error("expected a no-op logger when none is given")
	}
}
