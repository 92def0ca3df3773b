package services

import (
	"time"

	"github.com/ekaya-inc/ekaya-quality/pkg/quality"
)

// QualityOptions are per-request overrides of the server's quality settings.
// Nil fields keep the server value.
type QualityOptions struct {
	StalenessDays         *int     `json:"staleness_days,omitempty" yaml:"staleness_days,omitempty"`
	NullRatioWarning      *float64 `json:"null_ratio_warning,omitempty" yaml:"null_ratio_warning,omitempty"`
	NullRatioCritical     *float64 `json:"null_ratio_critical,omitempty" yaml:"null_ratio_critical,omitempty"`
	OptionalFieldPatterns []string `json:"optional_field_patterns,omitempty" yaml:"optional_field_patterns,omitempty" validate:"dive,required"`
	WeightCompleteness    *float64 `json:"weight_completeness,omitempty" yaml:"weight_completeness,omitempty"`
	WeightUniqueness      *float64 `json:"weight_uniqueness,omitempty" yaml:"weight_uniqueness,omitempty"`
	WeightFreshness       *float64 `json:"weight_freshness,omitempty" yaml:"weight_freshness,omitempty"`
	FreshnessPenalty      *float64 `json:"freshness_penalty,omitempty" yaml:"freshness_penalty,omitempty"`
	QueryTimeoutSeconds   *int     `json:"query_timeout_seconds,omitempty" yaml:"query_timeout_seconds,omitempty"`
	NonNegativePatterns   []string `json:"non_negative_patterns,omitempty" yaml:"non_negative_patterns,omitempty" validate:"dive,required"`
	TopValues             *int     `json:"top_values,omitempty" yaml:"top_values,omitempty" validate:"omitempty,max=20"`
}

// Apply returns base with the set overrides applied. base is not modified.
// The result is not validated.
func (o *QualityOptions) Apply(base quality.Config) quality.Config {
	cfg := base
	if o == nil {
		return cfg
	}
	if o.StalenessDays != nil {
		cfg.StalenessDays = *o.StalenessDays
	}
	if o.NullRatioWarning != nil {
		cfg.NullRatioWarning = *o.NullRatioWarning
	}
	if o.NullRatioCritical != nil {
		cfg.NullRatioCritical = *o.NullRatioCritical
	}
	if o.OptionalFieldPatterns != nil {
		cfg.OptionalFields = quality.NewPatternPolicy(o.OptionalFieldPatterns...)
	}
	if o.WeightCompleteness != nil {
		cfg.Weights.Completeness = *o.WeightCompleteness
	}
	if o.WeightUniqueness != nil {
		cfg.Weights.Uniqueness = *o.WeightUniqueness
	}
	if o.WeightFreshness != nil {
		cfg.Weights.Freshness = *o.WeightFreshness
	}
	if o.FreshnessPenalty != nil {
		cfg.FreshnessPenalty = *o.FreshnessPenalty
	}
	if o.QueryTimeoutSeconds != nil {
		cfg.QueryTimeout = time.Duration(*o.QueryTimeoutSeconds) * time.Second
	}
	if o.NonNegativePatterns != nil {
		cfg.NonNegativePatterns = append([]string(nil), o.NonNegativePatterns...)
	}
	if o.TopValues != nil {
		cfg.TopValues = *o.TopValues
	}
	return cfg
}
