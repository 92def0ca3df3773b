package quality

import (
	"math"
	"sort"

	"github.com/ekaya-inc/ekaya-quality/pkg/models"
)

// Score is the scorer output for one table.
type Score struct {
	SubScores models.SubScores
	Weights   models.ScoreWeights
	Composite int
}

// Scorer turns a classification into sub-scores and the composite score.
type Scorer struct {
	cfg Config
}

// NewScorer returns a scorer bound to cfg.
func NewScorer(cfg Config) *Scorer {
	return &Scorer{cfg: cfg}
}

// Score computes completeness, uniqueness and freshness. A sub-score with no
// applicable column is 100 and its weight is shared proportionally among the
// others. Columns are visited in name order so the result does not depend on
// input order.
func (s *Scorer) Score(cls *Classification) Score {
	cols := append([]ColumnAssessment(nil), cls.Columns...)
	sort.Slice(cols, func(i, j int) bool { return cols[i].Column.Name < cols[j].Column.Name })

	var (
		nullRatioSum                   float64
		scoredColumns                  int
		uniqueChecked, uniqueSatisfied int
		freshnessChecked, staleColumns int
	)
	for _, a := range cols {
		if !a.Optional {
			nullRatioSum += a.Stats.NullRatio()
			scoredColumns++
		}
		if a.UniquenessChecked {
			uniqueChecked++
			if a.Unique {
				uniqueSatisfied++
			}
		}
		if a.FreshnessChecked {
			freshnessChecked++
			if a.Stale {
				staleColumns++
			}
		}
	}

	sub := models.SubScores{Completeness: 100, Uniqueness: 100, Freshness: 100}
	weights := s.cfg.Weights

	if scoredColumns > 0 {
		sub.Completeness = 100 * (1 - nullRatioSum/float64(scoredColumns))
	} else {
		weights.Completeness = 0
	}
	if uniqueChecked > 0 {
		sub.Uniqueness = 100 * float64(uniqueSatisfied) / float64(uniqueChecked)
	} else {
		weights.Uniqueness = 0
	}
	if freshnessChecked > 0 {
		sub.Freshness = math.Max(0, 100-s.cfg.FreshnessPenalty*float64(staleColumns))
	} else {
		weights.Freshness = 0
	}

	total := weights.sum()
	if total <= 0 {
		return Score{SubScores: sub, Composite: 100}
	}

	effective := models.ScoreWeights{
		Completeness: weights.Completeness / total,
		Uniqueness:   weights.Uniqueness / total,
		Freshness:    weights.Freshness / total,
	}
	composite := effective.Completeness*sub.Completeness +
		effective.Uniqueness*sub.Uniqueness +
		effective.Freshness*sub.Freshness

	return Score{
		SubScores: sub,
		Weights:   effective,
		Composite: clampScore(int(math.Round(composite))),
	}
}

func clampScore(score int) int {
	return max(0, min(100, score))
}
