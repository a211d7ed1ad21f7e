package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AcademicStanding is the categorical academic health derived from a GPA.
type AcademicStanding string

const (
	StandingGood      AcademicStanding = "GOOD_STANDING"
	StandingWarning   AcademicStanding = "ACADEMIC_WARNING"
	StandingProbation AcademicStanding = "PROBATION"
	StandingSuspended AcademicStanding = "SUSPENDED"
)

// AcademicHistory is the single lifetime row kept per student.
type AcademicHistory struct {
	ID                      string              `db:"id" json:"id"`
	StudentID               string              `db:"student_id" json:"student_id"`
	ProgramID               *string             `db:"program_id" json:"program_id,omitempty"`
	AdmissionYear           int                 `db:"admission_year" json:"admission_year"`
	CurrentLevel            int                 `db:"current_level" json:"current_level"`
	CurrentSemester         int                 `db:"current_semester" json:"current_semester"`
	CumulativeGPA           decimal.NullDecimal `db:"cumulative_gpa" json:"cumulative_gpa"`
	OverallCreditsAttempted int                 `db:"overall_credits_attempted" json:"overall_credits_attempted"`
	OverallCreditsEarned    int                 `db:"overall_credits_earned" json:"overall_credits_earned"`
	TotalSemestersCompleted int                 `db:"total_semesters_completed" json:"total_semesters_completed"`
	CurrentStatus           AcademicStanding    `db:"current_status" json:"current_status"`
	HasGraduated            bool                `db:"has_graduated" json:"has_graduated"`
	GraduationDate          *time.Time          `db:"graduation_date" json:"graduation_date,omitempty"`
	CreatedAt               time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt               time.Time           `db:"updated_at" json:"updated_at"`
}

// CumulativeTotals is the aggregate written back by a cumulative GPA refresh.
type CumulativeTotals struct {
	CumulativeGPA           decimal.NullDecimal
	OverallCreditsAttempted int
	OverallCreditsEarned    int
	TotalSemestersCompleted int
}
