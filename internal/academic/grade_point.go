// Package academic holds the fixed rules of the progression engine: the grade
// point table, standing thresholds, level thresholds and graduation minimums.
// Everything here is pure and safe for concurrent use.
package academic

import (
	"strings"

	"github.com/shopspring/decimal"
)

// GPAPrecision is the number of decimal places GPA values are stored with.
const GPAPrecision = 2

var (
	// PassingGradePoint is the minimum grade point that earns credit.
	PassingGradePoint = decimal.NewFromInt(1)

	gradePoints = map[string]decimal.Decimal{
		"A":  decimal.RequireFromString("4.0"),
		"B+": decimal.RequireFromString("3.5"),
		"B":  decimal.RequireFromString("3.0"),
		"C+": decimal.RequireFromString("2.5"),
		"C":  decimal.RequireFromString("2.0"),
		"D+": decimal.RequireFromString("1.5"),
		"D":  decimal.RequireFromString("1.0"),
		"F":  decimal.Zero,
		// Incomplete, withdrawn and pass carry no numeric points.
		"I": decimal.Zero,
		"W": decimal.Zero,
		"P": decimal.Zero,
	}
)

// GradePoint looks up the grade point for a letter grade. Unknown grades
// report false and must be left out of any aggregation.
func GradePoint(grade string) (decimal.Decimal, bool) {
	points, ok := gradePoints[strings.ToUpper(strings.TrimSpace(grade))]
	return points, ok
}

// IsPassing reports whether points are enough to earn the course credits.
func IsPassing(points decimal.Decimal) bool {
	return points.GreaterThanOrEqual(PassingGradePoint)
}

// Round rounds a GPA or grade point total to GPAPrecision places, half away from zero.
func Round(v decimal.Decimal) decimal.Decimal {
	return v.Round(GPAPrecision)
}

// Average divides grade points by credits and rounds the result. ok is false
// when no credits were attempted.
func Average(gradePoints decimal.Decimal, credits int) (gpa decimal.Decimal, ok bool) {
	if credits <= 0 {
		return decimal.Zero, false
	}
	return Round(gradePoints.Div(decimal.NewFromInt(int64(credits)))), true
}
