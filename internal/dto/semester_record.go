package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/academic-standing/internal/models"
)

// CreateSemesterRecordRequest opens an empty record for a student and semester.
type CreateSemesterRecordRequest struct {
	StudentID  string `json:"studentId" validate:"required"`
	SemesterID string `json:"semesterId" validate:"required"`
}

// UpdateSemesterStatisticsRequest replaces the course counters of a record.
type UpdateSemesterStatisticsRequest struct {
	CoursesRegistered *int `json:"coursesRegistered" validate:"omitempty,min=0"`
	CoursesFailed     *int `json:"coursesFailed" validate:"omitempty,min=0"`
	CoursesDropped    *int `json:"coursesDropped" validate:"omitempty,min=0"`
	CoursesInProgress *int `json:"coursesInProgress" validate:"omitempty,min=0"`
}

// FinalizeSemesterRequest carries the actor who locks the record.
type FinalizeSemesterRequest struct {
	FinalizedBy string `json:"finalizedBy" validate:"required"`
}

// SemesterGPAResult is the outcome of a semester GPA calculation. HasData is
// false when no graded credits exist; GPA is then null and every count zero.
type SemesterGPAResult struct {
	StudentID        string              `json:"studentId"`
	SemesterID       string              `json:"semesterId"`
	HasData          bool                `json:"hasData"`
	SemesterGPA      decimal.NullDecimal `json:"semesterGpa"`
	TotalGradePoints decimal.Decimal     `json:"totalGradePoints"`
	CreditsAttempted int                 `json:"creditsAttempted"`
	CreditsEarned    int                 `json:"creditsEarned"`
	CoursesCompleted int                 `json:"coursesCompleted"`
	SkippedGrades    []string            `json:"skippedGrades,omitempty"`
}

// StandingResult is the outcome of a standing classification.
type StandingResult struct {
	StudentID        string                  `json:"studentId"`
	SemesterID       string                  `json:"semesterId,omitempty"`
	GPA              decimal.Decimal         `json:"gpa"`
	PreviousStanding models.AcademicStanding `json:"previousStanding"`
	Standing         models.AcademicStanding `json:"standing"`
	IsOnProbation    bool                    `json:"isOnProbation"`
	ProbationCount   int                     `json:"probationCount"`
}

// FinalizeSemesterResult reports every stage of the finalize pipeline.
type FinalizeSemesterResult struct {
	Record      *models.SemesterRecord  `json:"record"`
	GPA         SemesterGPAResult       `json:"gpa"`
	Standing    StandingResult          `json:"standing"`
	Cumulative  CumulativeGPAResult     `json:"cumulative"`
	Level       LevelProgressionResult  `json:"level"`
	Status      models.AcademicStanding `json:"status"`
	FinalizedAt time.Time               `json:"finalizedAt"`
	// Resumed is set when the record was already finalized and only the
	// history refresh ran.
	Resumed     bool                    `json:"resumed"`
}

// SemesterStatistics summarises a record for dashboards and advisors.
type SemesterStatistics struct {
	StudentID        string                      `json:"studentId"`
	SemesterID       string                      `json:"semesterId"`
	Counts           models.SemesterCourseCounts `json:"counts"`
	CreditsAttempted int                         `json:"creditsAttempted"`
	CreditsEarned    int                         `json:"creditsEarned"`
	SemesterGPA      decimal.NullDecimal         `json:"semesterGpa"`
	Standing         models.AcademicStanding     `json:"standing"`
	ProbationCount   int                         `json:"probationCount"`
	CompletionRate   decimal.Decimal             `json:"completionRate"`
	CreditEarnRate   decimal.Decimal             `json:"creditEarnRate"`
	IsFinalized      bool                        `json:"isFinalized"`
}
