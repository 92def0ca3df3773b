package quality

import (
	"strings"

	"github.com/ekaya-inc/ekaya-quality/pkg/models"
)

// DefaultOptionalFieldPatterns name free-text columns whose NULLs are expected.
var DefaultOptionalFieldPatterns = []string{
	"comment",
	"note",
	"message",
	"description",
	"remark",
	"feedback",
	"summary",
}

// OptionalFieldPolicy decides whether NULLs in a column are expected behavior
// rather than a defect.
type OptionalFieldPolicy interface {
	IsOptionalField(col models.ColumnDef) bool
}

// PolicyFunc adapts a plain function to OptionalFieldPolicy.
type PolicyFunc func(col models.ColumnDef) bool

// IsOptionalField calls f(col).
func (f PolicyFunc) IsOptionalField(col models.ColumnDef) bool {
	return f(col)
}

// PatternPolicy matches text columns whose name contains any of its patterns,
// case-insensitively.
type PatternPolicy struct {
	patterns []string
}

var _ OptionalFieldPolicy = (*PatternPolicy)(nil)

// NewPatternPolicy returns a policy over the given patterns. Empty patterns are
// ignored; an empty set matches nothing.
func NewPatternPolicy(patterns ...string) *PatternPolicy {
	p := &PatternPolicy{}
	for _, pat := range patterns {
		pat = strings.ToLower(strings.TrimSpace(pat))
		if pat != "" {
			p.patterns = append(p.patterns, pat)
		}
	}
	return p
}

// Patterns returns a copy of the normalized patterns.
func (p *PatternPolicy) Patterns() []string {
	return append([]string(nil), p.patterns...)
}

func (p *PatternPolicy) IsOptionalField(col models.ColumnDef) bool {
	if columnCategory(col) != models.TypeCategoryText {
		return false
	}
	name := strings.ToLower(col.Name)
	for _, pat := range p.patterns {
		if strings.Contains(name, pat) {
			return true
		}
	}
	return false
}

// columnCategory returns the column's category, deriving it from the declared
// type when introspection did not set one.
func columnCategory(col models.ColumnDef) models.TypeCategory {
	if col.Category != "" {
		return col.Category
	}
	return models.CategorizeType(col.DataType)
}
