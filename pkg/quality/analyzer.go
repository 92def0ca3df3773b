// Package quality implements the data quality engine: it collects column
// statistics from a live table, classifies NULL, uniqueness and freshness
// signals, scores and grades the table, and reports issues with SQL that
// helps investigate them.
package quality

import (
	"math"
	"sort"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/ekaya-inc/ekaya-quality/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-quality/pkg/models"
)

// AnalyzeQuality scores one table from its schema and collected statistics.
// It is a pure function of its inputs: asOf is the reference time for
// freshness, so identical inputs always yield an identical report.
//
// Returns *apperrors.ConfigurationError for an invalid cfg and
// *apperrors.SchemaMismatchError when a schema column has no statistics.
func AnalyzeQuality(schema models.TableSchema, stats []models.ColumnStats, cfg Config, asOf time.Time) (*models.QualityReport, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	byName := make(map[string]models.ColumnStats, len(stats))
	for _, s := range stats {
		byName[s.ColumnName] = s
	}
	var missing []string
	for _, col := range schema.Columns {
		if _, ok := byName[col.Name]; !ok {
			missing = append(missing, col.Name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, &apperrors.SchemaMismatchError{Table: schema.QualifiedName(), Columns: missing}
	}

	cls := NewClassifier(cfg).Classify(schema, byName, asOf)
	score := NewScorer(cfg).Score(cls)
	issues, observations := Report(cls.Issues)

	return &models.QualityReport{
		TableName:    schema.TableName,
		SchemaName:   schema.SchemaName,
		Score:        score.Composite,
		Grade:        Grade(score.Composite),
		SubScores:    score.SubScores,
		Weights:      score.Weights,
		Issues:       issues,
		Observations: observations,
		Columns:      columnQuality(cls.Columns),
		Highlights:   highlights(cls.Columns),
		RowCount:     tableRowCount(schema, byName),
		AnalyzedAt:   asOf.UTC(),
	}, nil
}

// FailedReport is the report entry for a table whose analysis failed. It has
// grade N/A and a single critical issue describing the failure.
func FailedReport(schema models.TableSchema, err error, asOf time.Time) *models.QualityReport {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return &models.QualityReport{
		TableName:  schema.TableName,
		SchemaName: schema.SchemaName,
		Score:      0,
		Grade:      models.GradeNotAvailable,
		Issues: []models.Issue{{
			TableName:      schema.TableName,
			Severity:       models.SeverityCritical,
			Description:    "Quality analysis failed: " + msg,
			SQLFix:         rowCountSQL(schema),
			Classification: models.ClassificationDefect,
			Kind:           models.IssueKindAnalysisError,
		}},
		Observations: []models.Issue{},
		Columns:      []models.ColumnQuality{},
		RowCount:     schema.RowCount,
		AnalyzedAt:   asOf.UTC(),
		Error:        msg,
	}
}

// tableRowCount prefers the live count from the statistics over the
// introspected estimate. Wide tables are aggregated in several queries and
// each sees its own COUNT(*), which can differ under concurrent writes; the
// count reported is always the one measured with the first schema column.
// Null ratios stay per column against the count of the same query.
func tableRowCount(schema models.TableSchema, byName map[string]models.ColumnStats) int64 {
	if len(schema.Columns) > 0 {
		if s, ok := byName[schema.Columns[0].Name]; ok {
			return s.RowCount
		}
	}
	return schema.RowCount
}

func columnQuality(cols []ColumnAssessment) []models.ColumnQuality {
	out := make([]models.ColumnQuality, 0, len(cols))
	for _, a := range cols {
		cq := models.ColumnQuality{
			ColumnName:      a.Column.Name,
			DataType:        a.Column.DataType,
			Category:        columnCategory(a.Column),
			PrimaryKey:      a.Column.PrimaryKey,
			Nullable:        a.Column.Nullable,
			NullCount:       a.Stats.NullCount,
			DistinctCount:   a.Stats.DistinctCount,
			CompletenessPct: round2(100 * (1 - a.Stats.NullRatio())),
			ExpectedNulls:   a.Optional && a.Stats.NullCount > 0,
			LatestValue:     a.Stats.MaxTime,
			Stale:           a.Stale,
			TopValues:       a.Stats.TopValues,
		}
		if r := numericRange(a.Stats); r != nil {
			cq.Range = r
			cq.RangeSummary = rangeSummary(*r)
		}
		if nonNull := a.Stats.NonNullCount(); a.Stats.DistinctCount != nil && nonNull > 0 {
			pct := round2(100 * float64(*a.Stats.DistinctCount) / float64(nonNull))
			cq.UniquenessPct = &pct
			switch {
			case pct >= 100 && *a.Stats.DistinctCount > 1:
				cq.UniquenessLabel = models.UniquenessLabelFullyUnique
			case pct < 5:
				cq.UniquenessLabel = models.UniquenessLabelLowCardinality
			}
		}
		out = append(out, cq)
	}
	return out
}

func numericRange(s models.ColumnStats) *models.NumericRange {
	if s.MinValue == nil || s.MaxValue == nil || s.AvgValue == nil {
		return nil
	}
	return &models.NumericRange{Min: *s.MinValue, Max: *s.MaxValue, Avg: round2(*s.AvgValue)}
}

// rangeSummary renders a range for people, with thousands separators.
func rangeSummary(r models.NumericRange) string {
	p := message.NewPrinter(language.English)
	return p.Sprintf("%.2f to %.2f (avg %.2f)", r.Min, r.Max, r.Avg)
}

// highlights lists the columns declared NOT NULL that are fully populated,
// in schema order.
func highlights(cols []ColumnAssessment) []string {
	var out []string
	for _, a := range cols {
		if a.Column.Nullable || a.Stats.RowCount <= 0 || a.Stats.NullCount != 0 {
			continue
		}
		out = append(out, a.Column.Name+": 100% complete")
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
