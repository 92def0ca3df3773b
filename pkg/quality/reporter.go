package quality

import (
	"sort"

	"github.com/ekaya-inc/ekaya-quality/pkg/models"
)

// Report splits issues into defects and expected-behavior observations, each
// ordered by severity (most severe first), then column name, then description.
// Both returned slices are non-nil.
func Report(issues []models.Issue) (defects, observations []models.Issue) {
	defects = []models.Issue{}
	observations = []models.Issue{}
	for _, issue := range issues {
		if issue.Classification == models.ClassificationExpectedBehavior {
			observations = append(observations, issue)
		} else {
			defects = append(defects, issue)
		}
	}
	SortIssues(defects)
	SortIssues(observations)
	return defects, observations
}

// SortIssues orders issues in place for stable, reproducible output.
func SortIssues(issues []models.Issue) {
	sort.SliceStable(issues, func(i, j int) bool {
		a, b := issues[i], issues[j]
		if ra, rb := a.Severity.Rank(), b.Severity.Rank(); ra != rb {
			return ra > rb
		}
		if a.ColumnName != b.ColumnName {
			return a.ColumnName < b.ColumnName
		}
		return a.Description < b.Description
	})
}
