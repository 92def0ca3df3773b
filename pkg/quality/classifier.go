package quality

import (
	"fmt"
	"strings"
	"time"

	"github.com/ekaya-inc/ekaya-quality/pkg/models"
)

// ColumnAssessment is the classifier's verdict on one column.
type ColumnAssessment struct {
	Column models.ColumnDef
	Stats  models.ColumnStats

	// Optional is true when the policy treats NULLs in this column as
	// expected. Optional columns do not count towards completeness.
	Optional bool

	// UniquenessChecked is true for uniqueness-constrained columns whose
	// distinct count is known; Unique reports whether the constraint holds.
	UniquenessChecked bool
	Unique            bool

	// FreshnessChecked is true for temporal columns with a known newest value.
	FreshnessChecked bool
	Stale            bool
	AgeDays          int
}

// Classification is the classifier output for one table.
type Classification struct {
	Columns []ColumnAssessment
	Issues  []models.Issue
}

// Classifier turns column statistics into issues, separating defects from
// expected behavior.
type Classifier struct {
	cfg Config
}

// NewClassifier returns a classifier bound to cfg.
func NewClassifier(cfg Config) *Classifier {
	return &Classifier{cfg: cfg}
}

// Classify assesses every schema column. stats must hold an entry for each
// column; AnalyzeQuality enforces that before calling.
func (c *Classifier) Classify(schema models.TableSchema, stats map[string]models.ColumnStats, asOf time.Time) *Classification {
	out := &Classification{
		Columns: make([]ColumnAssessment, 0, len(schema.Columns)),
	}

	if len(schema.PrimaryKeyColumns()) == 0 {
		out.Issues = append(out.Issues, models.Issue{
			TableName:      schema.TableName,
			Severity:       models.SeverityInfo,
			Description:    "Table has no primary key defined",
			SQLFix:         candidateKeySQL(schema),
			Classification: models.ClassificationDefect,
			Kind:           models.IssueKindPrimaryKey,
		})
	}

	for _, col := range schema.Columns {
		s := stats[col.Name]
		a := ColumnAssessment{Column: col, Stats: s}

		if issue := c.classifyNulls(schema, &a); issue != nil {
			out.Issues = append(out.Issues, *issue)
		}
		if issue := c.classifyUniqueness(schema, &a); issue != nil {
			out.Issues = append(out.Issues, *issue)
		}
		if issue := c.classifyFreshness(schema, &a, asOf); issue != nil {
			out.Issues = append(out.Issues, *issue)
		}
		if issue := c.classifyRange(schema, &a); issue != nil {
			out.Issues = append(out.Issues, *issue)
		}
		out.Columns = append(out.Columns, a)
	}
	return out
}

// classifyNulls applies the NULL rules. Primary key members are checked first
// so that a key column is never excused by its name. NULLs in a column the
// catalog declares NOT NULL are critical whatever their ratio.
func (c *Classifier) classifyNulls(schema models.TableSchema, a *ColumnAssessment) *models.Issue {
	col, s := a.Column, a.Stats

	if col.PrimaryKey {
		if s.NullCount <= 0 {
			return nil
		}
		return &models.Issue{
			TableName:      schema.TableName,
			ColumnName:     col.Name,
			Severity:       models.SeverityCritical,
			Description:    fmt.Sprintf("Primary key column %s has %d NULL value(s) out of %d rows", col.Name, s.NullCount, s.RowCount),
			SQLFix:         nullRowsSQL(schema, col.Name),
			Classification: models.ClassificationDefect,
			Kind:           models.IssueKindPrimaryKey,
		}
	}

	if c.cfg.OptionalFields != nil && c.cfg.OptionalFields.IsOptionalField(col) {
		a.Optional = true
		if s.NullCount <= 0 {
			return nil
		}
		return &models.Issue{
			TableName:      schema.TableName,
			ColumnName:     col.Name,
			Severity:       models.SeverityInfo,
			Description:    fmt.Sprintf("Column %s is %.1f%% NULL; NULLs are expected for this optional field", col.Name, 100*s.NullRatio()),
			SQLFix:         nullRowsSQL(schema, col.Name),
			Classification: models.ClassificationExpectedBehavior,
			Kind:           models.IssueKindCompleteness,
		}
	}

	ratio := s.NullRatio()
	if !col.Nullable && s.NullCount > 0 {
		return &models.Issue{
			TableName:      schema.TableName,
			ColumnName:     col.Name,
			Severity:       models.SeverityCritical,
			Description:    fmt.Sprintf("Column %s is declared NOT NULL but holds %d NULL value(s) out of %d rows (%.1f%%)", col.Name, s.NullCount, s.RowCount, 100*ratio),
			SQLFix:         nullRowsSQL(schema, col.Name),
			Classification: models.ClassificationDefect,
			Kind:           models.IssueKindCompleteness,
		}
	}

	var severity models.Severity
	switch {
	case ratio > c.cfg.NullRatioCritical:
		severity = models.SeverityCritical
	case ratio > c.cfg.NullRatioWarning:
		severity = models.SeverityWarning
	case ratio > 0:
		severity = models.SeverityInfo
	default:
		return nil
	}
	return &models.Issue{
		TableName:      schema.TableName,
		ColumnName:     col.Name,
		Severity:       severity,
		Description:    fmt.Sprintf("Column %s is %.1f%% NULL (%d of %d rows)", col.Name, 100*ratio, s.NullCount, s.RowCount),
		SQLFix:         nullRowsSQL(schema, col.Name),
		Classification: models.ClassificationDefect,
		Kind:           models.IssueKindCompleteness,
	}
}

func (c *Classifier) classifyUniqueness(schema models.TableSchema, a *ColumnAssessment) *models.Issue {
	col, s := a.Column, a.Stats
	if !schema.IsUniquenessConstrained(col) || s.DistinctCount == nil {
		return nil
	}

	a.UniquenessChecked = true
	nonNull := s.NonNullCount()
	distinct := *s.DistinctCount
	if distinct >= nonNull {
		a.Unique = true
		return nil
	}

	constraint := "unique"
	if col.PrimaryKey && len(schema.PrimaryKeyColumns()) == 1 {
		constraint = "primary key"
	}
	return &models.Issue{
		TableName:  schema.TableName,
		ColumnName: col.Name,
		Severity:   models.SeverityCritical,
		Description: fmt.Sprintf("Column %s violates its %s constraint: %d distinct values across %d non-NULL rows (%d duplicates)",
			col.Name, constraint, distinct, nonNull, nonNull-distinct),
		SQLFix:         duplicateGroupsSQL(schema, col.Name),
		Classification: models.ClassificationDefect,
		Kind:           models.IssueKindUniqueness,
	}
}

func (c *Classifier) classifyFreshness(schema models.TableSchema, a *ColumnAssessment, asOf time.Time) *models.Issue {
	col, s := a.Column, a.Stats
	if columnCategory(col) != models.TypeCategoryTemporal || s.MaxTime == nil {
		return nil
	}

	a.FreshnessChecked = true
	age := asOf.Sub(*s.MaxTime)
	a.AgeDays = int(age / (24 * time.Hour))
	if age <= c.cfg.staleness() {
		return nil
	}

	a.Stale = true
	return &models.Issue{
		TableName:  schema.TableName,
		ColumnName: col.Name,
		Severity:   models.SeverityWarning,
		Description: fmt.Sprintf("Newest value in %s is %d days old (latest %s, threshold %d days)",
			col.Name, a.AgeDays, s.MaxTime.UTC().Format(time.RFC3339), c.cfg.StalenessDays),
		SQLFix:         latestValueSQL(schema, col.Name),
		Classification: models.ClassificationDefect,
		Kind:           models.IssueKindFreshness,
	}
}

// classifyRange flags negative values in numeric columns whose name marks
// them as non-negative (prices by default). It does not affect the score.
func (c *Classifier) classifyRange(schema models.TableSchema, a *ColumnAssessment) *models.Issue {
	col, s := a.Column, a.Stats
	if !hasNumericRange(col) || s.MinValue == nil || *s.MinValue >= 0 || !c.mustBeNonNegative(col.Name) {
		return nil
	}
	return &models.Issue{
		TableName:      schema.TableName,
		ColumnName:     col.Name,
		Severity:       models.SeverityCritical,
		Description:    fmt.Sprintf("Column %s holds negative values (minimum %g)", col.Name, *s.MinValue),
		SQLFix:         negativeRowsSQL(schema, col.Name),
		Classification: models.ClassificationDefect,
		Kind:           models.IssueKindRange,
	}
}

func (c *Classifier) mustBeNonNegative(name string) bool {
	lower := strings.ToLower(name)
	for _, p := range c.cfg.NonNegativePatterns {
		if p != "" && strings.Contains(lower, strings.ToLower(p)) {
			return true
		}
	}
	return false
}
