package quality

import (
	"fmt"
	"math"
	"time"

	"github.com/ekaya-inc/ekaya-quality/pkg/apperrors"
)

// Defaults for Config.
const (
	DefaultStalenessDays      = 365
	DefaultNullRatioWarning   = 0.2
	DefaultNullRatioCritical  = 0.5
	DefaultFreshnessPenalty   = 25.0
	DefaultQueryTimeout       = 30 * time.Second
	DefaultMaxColumnsPerQuery = 50

	// DefaultTopValuesMaxDistinct is the largest distinct count for which
	// top values are collected.
	DefaultTopValuesMaxDistinct = 50
)

// DefaultNonNegativePatterns name numeric columns that must never go below zero.
var DefaultNonNegativePatterns = []string{"price"}

// Weights are the relative contributions of each sub-score to the composite.
// They do not have to sum to 1; they are normalized over the sub-scores that
// apply to a table.
type Weights struct {
	Completeness float64
	Uniqueness   float64
	Freshness    float64
}

// DefaultWeights returns completeness 0.5, uniqueness 0.3, freshness 0.2.
func DefaultWeights() Weights {
	return Weights{Completeness: 0.5, Uniqueness: 0.3, Freshness: 0.2}
}

func (w Weights) sum() float64 {
	return w.Completeness + w.Uniqueness + w.Freshness
}

// Config controls one analysis pass. It is passed by value into every engine
// call so concurrent passes with different settings never share state.
type Config struct {
	// StalenessDays is the age of the newest value after which a temporal
	// column is considered stale.
	StalenessDays int

	// NULL ratio thresholds. A ratio strictly greater than the threshold
	// triggers the corresponding severity.
	NullRatioWarning  float64
	NullRatioCritical float64

	// OptionalFields decides which columns legitimately hold NULLs.
	OptionalFields OptionalFieldPolicy

	Weights Weights

	// FreshnessPenalty is subtracted from the freshness sub-score per stale column.
	FreshnessPenalty float64

	// QueryTimeout bounds the work for one table: catalog introspection plus
	// every statistics query. It must be positive.
	QueryTimeout time.Duration

	// MaxColumnsPerQuery caps how many columns share one aggregate query.
	MaxColumnsPerQuery int

	// NonNegativePatterns are case-insensitive name fragments of numeric
	// columns whose minimum must not be negative.
	NonNegativePatterns []string

	// TopValues is how many of the most frequent values to report for
	// columns with at most TopValuesMaxDistinct distinct values. Zero turns
	// the extra per-column query off.
	TopValues            int
	TopValuesMaxDistinct int
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		StalenessDays:      DefaultStalenessDays,
		NullRatioWarning:   DefaultNullRatioWarning,
		NullRatioCritical:  DefaultNullRatioCritical,
		OptionalFields:     NewPatternPolicy(DefaultOptionalFieldPatterns...),
		Weights:            DefaultWeights(),
		FreshnessPenalty:   DefaultFreshnessPenalty,
		QueryTimeout:       DefaultQueryTimeout,
		MaxColumnsPerQuery: DefaultMaxColumnsPerQuery,

		NonNegativePatterns:  append([]string(nil), DefaultNonNegativePatterns...),
		TopValuesMaxDistinct: DefaultTopValuesMaxDistinct,
	}
}

// Validate checks the configuration before any query is issued.
func (c Config) Validate() error {
	for _, w := range []struct {
		field string
		value float64
	}{
		{"weight_completeness", c.Weights.Completeness},
		{"weight_uniqueness", c.Weights.Uniqueness},
		{"weight_freshness", c.Weights.Freshness},
	} {
		if math.IsNaN(w.value) || math.IsInf(w.value, 0) {
			return &apperrors.ConfigurationError{Field: w.field, Reason: "must be a finite number"}
		}
		if w.value < 0 {
			return &apperrors.ConfigurationError{Field: w.field, Reason: fmt.Sprintf("must not be negative (got %g)", w.value)}
		}
	}
	if c.Weights.sum() <= 0 {
		return &apperrors.ConfigurationError{Field: "weights", Reason: "must not sum to zero"}
	}

	if !inUnitInterval(c.NullRatioWarning) {
		return &apperrors.ConfigurationError{Field: "null_ratio_warning", Reason: "must be between 0 and 1"}
	}
	if !inUnitInterval(c.NullRatioCritical) {
		return &apperrors.ConfigurationError{Field: "null_ratio_critical", Reason: "must be between 0 and 1"}
	}
	if c.NullRatioWarning > c.NullRatioCritical {
		return &apperrors.ConfigurationError{Field: "null_ratio_warning", Reason: "must not exceed null_ratio_critical"}
	}

	if c.StalenessDays < 1 {
		return &apperrors.ConfigurationError{Field: "staleness_days", Reason: "must be at least 1"}
	}
	if c.FreshnessPenalty < 0 || math.IsNaN(c.FreshnessPenalty) || math.IsInf(c.FreshnessPenalty, 0) {
		return &apperrors.ConfigurationError{Field: "freshness_penalty", Reason: "must be a non-negative number"}
	}
	if c.QueryTimeout <= 0 {
		return &apperrors.ConfigurationError{Field: "query_timeout", Reason: "must be positive"}
	}
	if c.MaxColumnsPerQuery < 0 {
		return &apperrors.ConfigurationError{Field: "max_columns_per_query", Reason: "must not be negative"}
	}
	if c.TopValues < 0 {
		return &apperrors.ConfigurationError{Field: "top_values", Reason: "must not be negative"}
	}
	if c.TopValuesMaxDistinct < 0 {
		return &apperrors.ConfigurationError{Field: "top_values_max_distinct", Reason: "must not be negative"}
	}
	if c.OptionalFields == nil {
		return &apperrors.ConfigurationError{Field: "optional_field_patterns", Reason: "policy is required"}
	}
	return nil
}

func inUnitInterval(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 1
}

func (c Config) staleness() time.Duration {
	return time.Duration(c.StalenessDays) * 24 * time.Hour
}

func (c Config) topValuesMaxDistinct() int64 {
	if c.TopValuesMaxDistinct <= 0 {
		return DefaultTopValuesMaxDistinct
	}
	return int64(c.TopValuesMaxDistinct)
}

func (c Config) columnsPerQuery() int {
	if c.MaxColumnsPerQuery <= 0 {
		return DefaultMaxColumnsPerQuery
	}
	return c.MaxColumnsPerQuery
}
