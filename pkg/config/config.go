package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-quality/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-quality/pkg/quality"
)

// Config holds all configuration for ekaya-quality.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values.
// Datasource credentials are never part of server configuration; they arrive
// with each analysis request.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"3480"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	BaseURL  string `yaml:"base_url" env:"BASE_URL" env-default:""` // Auto-derived from Port if empty
	Version  string `yaml:"-"`                                      // Set at load time, not from config

	// TLS configuration (optional - if both provided, server uses HTTPS)
	TLSCertPath string `yaml:"tls_cert_path" env:"TLS_CERT_PATH" env-default:""`
	TLSKeyPath  string `yaml:"tls_key_path" env:"TLS_KEY_PATH" env-default:""`

	// AnalyzeRatePerSecond limits analysis requests server-wide. Zero disables
	// the limit.
	AnalyzeRatePerSecond float64 `yaml:"analyze_rate_per_second" env:"ANALYZE_RATE_PER_SECOND" env-default:"1"`
	AnalyzeBurst         int     `yaml:"analyze_burst" env:"ANALYZE_BURST" env-default:"5"`

	// Server-wide quality analysis defaults; requests may override them.
	Quality QualityConfig `yaml:"quality"`

	// Datasource connection management configuration
	Datasource DatasourceConfig `yaml:"datasource"`
}

// QualityConfig holds the default analysis settings.
type QualityConfig struct {
	StalenessDays     int     `yaml:"staleness_days" env:"QUALITY_STALENESS_DAYS" env-default:"365"`
	NullRatioWarning  float64 `yaml:"null_ratio_warning" env:"QUALITY_NULL_RATIO_WARNING" env-default:"0.2"`
	NullRatioCritical float64 `yaml:"null_ratio_critical" env:"QUALITY_NULL_RATIO_CRITICAL" env-default:"0.5"`

	// OptionalFieldPatterns are substrings of text column names whose NULLs are
	// expected. Comma-separated in the environment.
	OptionalFieldPatterns []string `yaml:"optional_field_patterns" env:"QUALITY_OPTIONAL_FIELD_PATTERNS" env-separator:"," env-default:"comment,note,message,description,remark,feedback,summary"`

	// Weights have no env-default so that a single zero weight survives
	// loading. When all three are zero the engine defaults apply.
	WeightCompleteness float64 `yaml:"weight_completeness" env:"QUALITY_WEIGHT_COMPLETENESS"`
	WeightUniqueness   float64 `yaml:"weight_uniqueness" env:"QUALITY_WEIGHT_UNIQUENESS"`
	WeightFreshness    float64 `yaml:"weight_freshness" env:"QUALITY_WEIGHT_FRESHNESS"`

	FreshnessPenalty    float64 `yaml:"freshness_penalty" env:"QUALITY_FRESHNESS_PENALTY" env-default:"25"`
	QueryTimeoutSeconds int     `yaml:"query_timeout_seconds" env:"QUALITY_QUERY_TIMEOUT_SECONDS" env-default:"30"`
	MaxColumnsPerQuery  int     `yaml:"max_columns_per_query" env:"QUALITY_MAX_COLUMNS_PER_QUERY" env-default:"50"`

	// NonNegativePatterns are substrings of numeric column names that must
	// never hold negative values.
	NonNegativePatterns []string `yaml:"non_negative_patterns" env:"QUALITY_NON_NEGATIVE_PATTERNS" env-separator:"," env-default:"price"`

	// TopValues > 0 reports the most frequent values of columns with at most
	// TopValuesMaxDistinct distinct values, at the cost of one query each.
	TopValues            int `yaml:"top_values" env:"QUALITY_TOP_VALUES" env-default:"0"`
	TopValuesMaxDistinct int `yaml:"top_values_max_distinct" env:"QUALITY_TOP_VALUES_MAX_DISTINCT" env-default:"50"`

	// MaxConcurrentTables bounds how many tables one pass analyzes at once.
	// The datasource pool size caps it further.
	MaxConcurrentTables int `yaml:"max_concurrent_tables" env:"QUALITY_MAX_CONCURRENT_TABLES" env-default:"4"`
}

// DatasourceConfig holds datasource connection management settings.
type DatasourceConfig struct {
	// PoolMaxConns is the maximum number of connections per datasource pool.
	PoolMaxConns int32 `yaml:"pool_max_conns" env:"DATASOURCE_POOL_MAX_CONNS" env-default:"10"`
	// ConnectionTimeoutSeconds bounds the initial connection to a datasource.
	ConnectionTimeoutSeconds int `yaml:"connection_timeout_seconds" env:"DATASOURCE_CONNECTION_TIMEOUT_SECONDS" env-default:"30"`
}

// Load reads configuration from config.yaml with environment variable overrides.
// The version parameter is injected at build time and set on the returned Config.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	// Load config from YAML file with environment variable overrides
	if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
		return nil, fmt.Errorf("failed to read config.yaml: %w", err)
	}

	// Validate TLS configuration
	if err := cfg.validateTLS(); err != nil {
		return nil, fmt.Errorf("invalid TLS configuration: %w", err)
	}

	// Fail at startup rather than on the first request
	if err := cfg.Quality.EngineConfig().Validate(); err != nil {
		return nil, fmt.Errorf("invalid quality configuration: %w", err)
	}
	if cfg.Quality.MaxConcurrentTables < 1 {
		return nil, fmt.Errorf("invalid quality configuration: max_concurrent_tables must be at least 1")
	}

	if cfg.AnalyzeRatePerSecond < 0 || cfg.AnalyzeBurst < 0 {
		return nil, fmt.Errorf("invalid rate limit: analyze_rate_per_second and analyze_burst must not be negative")
	}

	// Auto-derive BaseURL from Port if not explicitly set
	// Use HTTPS scheme if TLS is configured
	if cfg.BaseURL == "" {
		scheme := "http"
		if cfg.TLSCertPath != "" {
			scheme = "https"
		}
		cfg.BaseURL = (&url.URL{
			Scheme: scheme,
			Host:   "localhost:" + cfg.Port,
		}).String()
	}

	return cfg, nil
}

// validateTLS ensures TLS configuration is valid if provided.
// Both cert and key must be provided together, and files must exist and be readable.
func (c *Config) validateTLS() error {
	certSet := c.TLSCertPath != ""
	keySet := c.TLSKeyPath != ""

	// Both must be provided together or both empty
	if certSet != keySet {
		return fmt.Errorf("both tls_cert_path and tls_key_path must be provided together")
	}

	// If both provided, verify files exist (actual readability checked by tls.LoadX509KeyPair at startup)
	if certSet {
		if _, err := os.Stat(c.TLSCertPath); err != nil {
			return fmt.Errorf("TLS cert file does not exist: %w", err)
		}
		if _, err := os.Stat(c.TLSKeyPath); err != nil {
			return fmt.Errorf("TLS key file does not exist: %w", err)
		}
	}

	return nil
}

// IsLocal reports whether the server runs in a developer environment.
func (c *Config) IsLocal() bool {
	return c.Env == "" || c.Env == "local" || c.Env == "dev"
}

// EngineConfig converts the loaded settings into the engine's configuration.
// The result is not validated.
func (q QualityConfig) EngineConfig() quality.Config {
	cfg := quality.DefaultConfig()
	cfg.StalenessDays = q.StalenessDays
	cfg.NullRatioWarning = q.NullRatioWarning
	cfg.NullRatioCritical = q.NullRatioCritical
	cfg.FreshnessPenalty = q.FreshnessPenalty
	cfg.QueryTimeout = time.Duration(q.QueryTimeoutSeconds) * time.Second
	cfg.MaxColumnsPerQuery = q.MaxColumnsPerQuery
	cfg.TopValues = q.TopValues
	cfg.TopValuesMaxDistinct = q.TopValuesMaxDistinct
	if q.NonNegativePatterns != nil {
		cfg.NonNegativePatterns = trimPatterns(q.NonNegativePatterns)
	}

	if q.OptionalFieldPatterns != nil {
		cfg.OptionalFields = quality.NewPatternPolicy(trimPatterns(q.OptionalFieldPatterns)...)
	}

	if q.WeightCompleteness != 0 || q.WeightUniqueness != 0 || q.WeightFreshness != 0 {
		cfg.Weights = quality.Weights{
			Completeness: q.WeightCompleteness,
			Uniqueness:   q.WeightUniqueness,
			Freshness:    q.WeightFreshness,
		}
	}
	return cfg
}

func trimPatterns(in []string) []string {
	out := make([]string, 0, len(in))
	for _, p := range in {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ConnectionOptions returns the options handed to every datasource adapter.
func (d DatasourceConfig) ConnectionOptions(logger *zap.Logger) datasource.ConnectionOptions {
	return datasource.ConnectionOptions{
		PoolMaxConns:   d.PoolMaxConns,
		ConnectTimeout: time.Duration(d.ConnectionTimeoutSeconds) * time.Second,
		Logger:         logger,
	}.Normalize()
}
