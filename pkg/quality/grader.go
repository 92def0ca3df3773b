package quality

type gradeBand struct {
	min   int
	grade string
}

// gradeBands are ordered from highest to lowest; each lower edge is inclusive.
var gradeBands = []gradeBand{
	{97, "A+"},
	{93, "A"},
	{88, "B+"},
	{80, "B"},
	{70, "C"},
	{60, "D"},
}

// Grade maps a composite score to its letter grade.
func Grade(score int) string {
	for _, band := range gradeBands {
		if score >= band.min {
			return band.grade
		}
	}
	return "F"
}
