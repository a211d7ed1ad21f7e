package academic

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/academic-standing/internal/models"
)

var (
	goodStandingGPA = decimal.RequireFromString("2.0")
	warningGPA      = decimal.RequireFromString("1.75")
	probationGPA    = decimal.RequireFromString("1.5")
)

// ClassifyStanding maps a GPA to its standing tier.
func ClassifyStanding(gpa decimal.Decimal) models.AcademicStanding {
	switch {
	case gpa.GreaterThanOrEqual(goodStandingGPA):
		return models.StandingGood
	case gpa.GreaterThanOrEqual(warningGPA):
		return models.StandingWarning
	case gpa.GreaterThanOrEqual(probationGPA):
		return models.StandingProbation
	default:
		return models.StandingSuspended
	}
}

// NextProbationCount returns the consecutive probation counter after a
// classification: incremented on probation, reset otherwise.
func NextProbationCount(standing models.AcademicStanding, current int) int {
	if standing == models.StandingProbation {
		return current + 1
	}
	return 0
}
