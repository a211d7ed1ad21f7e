package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SemesterRecord holds one student's statistics for one semester.
type SemesterRecord struct {
	ID                string              `db:"id" json:"id"`
	StudentID         string              `db:"student_id" json:"student_id"`
	SemesterID        string              `db:"semester_id" json:"semester_id"`
	AcademicHistoryID string              `db:"academic_history_id" json:"academic_history_id"`
	CoursesRegistered int                 `db:"courses_registered" json:"courses_registered"`
	CoursesCompleted  int                 `db:"courses_completed" json:"courses_completed"`
	CoursesFailed     int                 `db:"courses_failed" json:"courses_failed"`
	CoursesDropped    int                 `db:"courses_dropped" json:"courses_dropped"`
	CoursesInProgress int                 `db:"courses_in_progress" json:"courses_in_progress"`
	CreditsAttempted  int                 `db:"credits_attempted" json:"credits_attempted"`
	CreditsEarned     int                 `db:"credits_earned" json:"credits_earned"`
	SemesterGPA       decimal.NullDecimal `db:"semester_gpa" json:"semester_gpa"`
	TotalGradePoints  decimal.Decimal     `db:"total_grade_points" json:"total_grade_points"`
	AcademicStanding  AcademicStanding    `db:"academic_standing" json:"academic_standing"`
	IsOnProbation     bool                `db:"is_on_probation" json:"is_on_probation"`
	ProbationCount    int                 `db:"probation_count" json:"probation_count"`
	IsFinalized       bool                `db:"is_finalized" json:"is_finalized"`
	FinalizedAt       *time.Time          `db:"finalized_at" json:"finalized_at,omitempty"`
	FinalizedBy       *string             `db:"finalized_by" json:"finalized_by,omitempty"`
	HistorySyncedAt   *time.Time          `db:"history_synced_at" json:"history_synced_at,omitempty"`
	CreatedAt         time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time           `db:"updated_at" json:"updated_at"`
}

// SemesterCourseCounts are the registration counters maintained by the
// enrollment workflow.
type SemesterCourseCounts struct {
	CoursesRegistered int `db:"courses_registered" json:"courses_registered"`
	CoursesCompleted  int `db:"courses_completed" json:"courses_completed"`
	CoursesFailed     int `db:"courses_failed" json:"courses_failed"`
	CoursesDropped    int `db:"courses_dropped" json:"courses_dropped"`
	CoursesInProgress int `db:"courses_in_progress" json:"courses_in_progress"`
}
