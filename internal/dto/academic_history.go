package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/academic-standing/internal/models"
)

// CreateAcademicHistoryRequest opens the lifetime history at admission.
type CreateAcademicHistoryRequest struct {
	StudentID     string `json:"studentId" validate:"required"`
	AdmissionYear int    `json:"admissionYear" validate:"required,min=1900,max=3000"`
}

// UpdateCurrentSemesterRequest moves the current semester pointer.
type UpdateCurrentSemesterRequest struct {
	CurrentSemester int `json:"currentSemester" validate:"required,min=1"`
}

// MarkGraduationRequest records the graduation date.
type MarkGraduationRequest struct {
	GraduationDate time.Time `json:"graduationDate" validate:"required"`
}

// CumulativeGPAResult is the outcome of a full cumulative recomputation.
type CumulativeGPAResult struct {
	StudentID               string              `json:"studentId"`
	HasData                 bool                `json:"hasData"`
	CumulativeGPA           decimal.NullDecimal `json:"cumulativeGpa"`
	OverallCreditsAttempted int                 `json:"overallCreditsAttempted"`
	OverallCreditsEarned    int                 `json:"overallCreditsEarned"`
	TotalSemestersCompleted int                 `json:"totalSemestersCompleted"`
}

// LevelProgressionResult reports either a level change or the distance to the
// next level.
type LevelProgressionResult struct {
	StudentID          string `json:"studentId"`
	Changed            bool   `json:"changed"`
	PreviousLevel      int    `json:"previousLevel"`
	CurrentLevel       int    `json:"currentLevel"`
	CreditsEarned      int    `json:"creditsEarned"`
	CreditsToNextLevel int    `json:"creditsToNextLevel"`
}

// GraduationEligibility lists every requirement and the gap to it.
type GraduationEligibility struct {
	StudentID        string                  `json:"studentId"`
	Eligible         bool                    `json:"eligible"`
	CreditsEarned    int                     `json:"creditsEarned"`
	RequiredCredits  int                     `json:"requiredCredits"`
	RemainingCredits int                     `json:"remainingCredits"`
	CumulativeGPA    decimal.NullDecimal     `json:"cumulativeGpa"`
	MinimumGPA       decimal.Decimal         `json:"minimumGpa"`
	CurrentLevel     int                     `json:"currentLevel"`
	RequiredLevel    int                     `json:"requiredLevel"`
	CurrentStatus    models.AcademicStanding `json:"currentStatus"`
	HasGraduated     bool                    `json:"hasGraduated"`
	Missing          []string                `json:"missing,omitempty"`
}

// GraduationResult is returned after a successful graduation mark.
type GraduationResult struct {
	StudentID      string    `json:"studentId"`
	GraduationDate time.Time `json:"graduationDate"`
	AlreadyMarked  bool      `json:"alreadyMarked"`
}

// AcademicSummary is the snapshot of a student's progression.
type AcademicSummary struct {
	Student            models.StudentProfile   `json:"student"`
	History            *models.AcademicHistory `json:"history"`
	CreditsToNextLevel int                     `json:"creditsToNextLevel"`
	SemesterCount      int                     `json:"semesterCount"`
	LatestSemester     *models.SemesterRecord  `json:"latestSemester,omitempty"`
}
