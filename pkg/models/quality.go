package models

import "time"

// ============================================================================
// Issues
// ============================================================================

// Severity ranks how serious a detected issue is.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Rank orders severities so that critical > warning > info.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 3
	case SeverityWarning:
		return 2
	case SeverityInfo:
		return 1
	default:
		return 0
	}
}

// Classification separates real defects from anomalies that are expected
// for the column (for example NULLs in an optional free-text field).
type Classification string

const (
	ClassificationDefect           Classification = "defect"
	ClassificationExpectedBehavior Classification = "expected_behavior"
)

// IssueKind names the check that produced an issue.
type IssueKind string

const (
	IssueKindCompleteness  IssueKind = "completeness"
	IssueKindUniqueness    IssueKind = "uniqueness"
	IssueKindFreshness     IssueKind = "freshness"
	IssueKindPrimaryKey    IssueKind = "primary_key"
	IssueKindRange         IssueKind = "range"
	IssueKindAnalysisError IssueKind = "analysis_error"
)

// Issue is a single finding with a ready-to-run SQL statement that helps
// investigate or fix it.
type Issue struct {
	TableName      string         `json:"table_name" yaml:"table_name"`
	ColumnName     string         `json:"column_name,omitempty" yaml:"column_name,omitempty"`
	Severity       Severity       `json:"severity" yaml:"severity"`
	Description    string         `json:"description" yaml:"description"`
	SQLFix         string         `json:"sql_fix" yaml:"sql_fix"`
	Classification Classification `json:"classification" yaml:"classification"`
	Kind           IssueKind      `json:"kind" yaml:"kind"`
}

// ============================================================================
// Reports
// ============================================================================

// GradeNotAvailable is the grade of a table whose analysis failed.
const GradeNotAvailable = "N/A"

// SubScores are the 0-100 component scores of a table.
type SubScores struct {
	Completeness float64 `json:"completeness" yaml:"completeness"`
	Uniqueness   float64 `json:"uniqueness" yaml:"uniqueness"`
	Freshness    float64 `json:"freshness" yaml:"freshness"`
}

// ScoreWeights are the effective weights used for the composite score after
// redistributing the weight of inapplicable sub-scores. They sum to 1.0
// unless no sub-score applies.
type ScoreWeights struct {
	Completeness float64 `json:"completeness" yaml:"completeness"`
	Uniqueness   float64 `json:"uniqueness" yaml:"uniqueness"`
	Freshness    float64 `json:"freshness" yaml:"freshness"`
}

// Uniqueness labels for column metrics.
const (
	UniquenessLabelFullyUnique    = "fully_unique"
	UniquenessLabelLowCardinality = "low_cardinality"
)

// ColumnQuality is the per-column breakdown included in a report.
type ColumnQuality struct {
	ColumnName      string       `json:"column_name" yaml:"column_name"`
	DataType        string       `json:"data_type" yaml:"data_type"`
	Category        TypeCategory `json:"category" yaml:"category"`
	PrimaryKey      bool         `json:"primary_key" yaml:"primary_key"`
	Nullable        bool         `json:"nullable" yaml:"nullable"`
	NullCount       int64        `json:"null_count" yaml:"null_count"`
	DistinctCount   *int64       `json:"distinct_count,omitempty" yaml:"distinct_count,omitempty"`
	CompletenessPct float64      `json:"completeness_pct" yaml:"completeness_pct"`
	UniquenessPct   *float64     `json:"uniqueness_pct,omitempty" yaml:"uniqueness_pct,omitempty"`
	UniquenessLabel string       `json:"uniqueness_label,omitempty" yaml:"uniqueness_label,omitempty"`
	ExpectedNulls   bool         `json:"expected_nulls" yaml:"expected_nulls"`
	LatestValue     *time.Time   `json:"latest_value,omitempty" yaml:"latest_value,omitempty"`
	Stale           bool         `json:"stale" yaml:"stale"`

	Range        *NumericRange    `json:"range,omitempty" yaml:"range,omitempty"`
	RangeSummary string           `json:"range_summary,omitempty" yaml:"range_summary,omitempty"`
	TopValues    []ValueFrequency `json:"top_values,omitempty" yaml:"top_values,omitempty"`
}

// NumericRange is the observed spread of a numeric column.
type NumericRange struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
	Avg float64 `json:"avg" yaml:"avg"`
}

// QualityReport is the assessment of one table.
type QualityReport struct {
	TableName    string          `json:"table_name" yaml:"table_name"`
	SchemaName   string          `json:"schema_name,omitempty" yaml:"schema_name,omitempty"`
	Score        int             `json:"score" yaml:"score"`
	Grade        string          `json:"grade" yaml:"grade"`
	SubScores    SubScores       `json:"sub_scores" yaml:"sub_scores"`
	Weights      ScoreWeights    `json:"weights" yaml:"weights"`
	Issues       []Issue         `json:"issues" yaml:"issues"`
	Observations []Issue         `json:"observations" yaml:"observations"`
	Columns      []ColumnQuality `json:"columns" yaml:"columns"`
	Highlights   []string        `json:"highlights,omitempty" yaml:"highlights,omitempty"`
	RowCount     int64           `json:"row_count" yaml:"row_count"`
	AnalyzedAt   time.Time       `json:"analyzed_at" yaml:"analyzed_at"`
	Error        string          `json:"error,omitempty" yaml:"error,omitempty"`
}

// Failed reports whether the table could not be analyzed.
func (r *QualityReport) Failed() bool {
	return r.Grade == GradeNotAvailable
}

// ============================================================================
// Database overview
// ============================================================================

// ScoreDistribution buckets table scores.
type ScoreDistribution struct {
	Excellent int `json:"excellent" yaml:"excellent"` // >= 90
	Good      int `json:"good" yaml:"good"`           // 75-89
	Fair      int `json:"fair" yaml:"fair"`           // 60-74
	Poor      int `json:"poor" yaml:"poor"`           // < 60
}

// DatabaseOverview aggregates table reports of one analysis pass.
type DatabaseOverview struct {
	DatabaseScore     float64           `json:"database_score" yaml:"database_score"`
	DatabaseGrade     string            `json:"database_grade" yaml:"database_grade"`
	TotalTables       int               `json:"total_tables" yaml:"total_tables"`
	TablesAnalyzed    int               `json:"tables_analyzed" yaml:"tables_analyzed"`
	TablesFailed      int               `json:"tables_failed" yaml:"tables_failed"`
	CriticalIssues    int               `json:"critical_issues" yaml:"critical_issues"`
	WarningIssues     int               `json:"warning_issues" yaml:"warning_issues"`
	TopIssues         []Issue           `json:"top_issues" yaml:"top_issues"`
	BestTable         string            `json:"best_table,omitempty" yaml:"best_table,omitempty"`
	WorstTable        string            `json:"worst_table,omitempty" yaml:"worst_table,omitempty"`
	ScoreDistribution ScoreDistribution `json:"score_distribution" yaml:"score_distribution"`
}
