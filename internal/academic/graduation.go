package academic

import "github.com/shopspring/decimal"

// DefaultRequiredCredits applies when a program has no credit requirement set.
const DefaultRequiredCredits = 120

// GraduationLevel is the minimum level for graduation.
const GraduationLevel = Level400

// MinimumGraduationGPA is the minimum cumulative GPA for graduation.
var MinimumGraduationGPA = decimal.RequireFromString("2.0")

// GraduationGaps lists what a student still lacks. Empty means eligible.
type GraduationGaps struct {
	RemainingCredits int
	GPAShortfall     decimal.Decimal
	MissingGPA       bool
	LevelShortfall   bool
}

// Eligible reports whether no gap remains.
func (g GraduationGaps) Eligible() bool {
	return g.RemainingCredits == 0 && !g.MissingGPA && g.GPAShortfall.IsZero() && !g.LevelShortfall
}

// EvaluateGraduation compares a student's totals with the requirements. A
// null GPA is treated as missing, never as zero.
func EvaluateGraduation(creditsEarned, requiredCredits int, gpa decimal.NullDecimal, level int) GraduationGaps {
	gaps := GraduationGaps{GPAShortfall: decimal.Zero}
	if creditsEarned < requiredCredits {
		gaps.RemainingCredits = requiredCredits - creditsEarned
	}
	switch {
	case !gpa.Valid:
		gaps.MissingGPA = true
	case gpa.Decimal.LessThan(MinimumGraduationGPA):
		gaps.GPAShortfall = MinimumGraduationGPA.Sub(gpa.Decimal)
	}
	gaps.LevelShortfall = level < GraduationLevel
	return gaps
}
