package quality

import (
	"math"

	"github.com/ekaya-inc/ekaya-quality/pkg/models"
)

const maxTopIssues = 5

// ComputeOverview aggregates the reports of one analysis pass. Failed tables
// count towards totals and issue counts but not towards the database score,
// the distribution or best/worst table. Reports are read in the given order,
// which decides ties.
func ComputeOverview(reports []*models.QualityReport) models.DatabaseOverview {
	ov := models.DatabaseOverview{
		TotalTables: len(reports),
		TopIssues:   []models.Issue{},
	}

	var (
		sum               int
		best, worst       *models.QualityReport
		critical, warning []models.Issue
	)
	for _, r := range reports {
		for _, issue := range r.Issues {
			switch issue.Severity {
			case models.SeverityCritical:
				critical = append(critical, issue)
			case models.SeverityWarning:
				warning = append(warning, issue)
			}
		}

		if r.Failed() {
			ov.TablesFailed++
			continue
		}
		ov.TablesAnalyzed++
		sum += r.Score
		if best == nil || r.Score > best.Score {
			best = r
		}
		if worst == nil || r.Score < worst.Score {
			worst = r
		}

		switch {
		case r.Score >= 90:
			ov.ScoreDistribution.Excellent++
		case r.Score >= 75:
			ov.ScoreDistribution.Good++
		case r.Score >= 60:
			ov.ScoreDistribution.Fair++
		default:
			ov.ScoreDistribution.Poor++
		}
	}

	ov.CriticalIssues = len(critical)
	ov.WarningIssues = len(warning)
	for _, issue := range append(critical, warning...) {
		if len(ov.TopIssues) == maxTopIssues {
			break
		}
		ov.TopIssues = append(ov.TopIssues, issue)
	}

	if ov.TablesAnalyzed == 0 {
		ov.DatabaseGrade = models.GradeNotAvailable
		return ov
	}
	mean := float64(sum) / float64(ov.TablesAnalyzed)
	ov.DatabaseScore = math.Round(mean*10) / 10
	ov.DatabaseGrade = Grade(int(math.Round(mean)))
	ov.BestTable = reportName(best)
	ov.WorstTable = reportName(worst)
	return ov
}

func reportName(r *models.QualityReport) string {
	if r.SchemaName == "" {
		return r.TableName
	}
	return r.SchemaName + "." + r.TableName
}
