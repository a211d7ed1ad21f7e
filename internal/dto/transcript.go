package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/academic-standing/internal/models"
)

// TranscriptCourse is one graded course line.
type TranscriptCourse struct {
	CourseCode  string `json:"courseCode"`
	CourseName  string `json:"courseName"`
	CreditHours int    `json:"creditHours"`
	Grade       string `json:"grade"`
}

// TranscriptSemester groups courses taken in one semester.
type TranscriptSemester struct {
	AcademicYear   string             `json:"academicYear"`
	SemesterNumber int                `json:"semesterNumber"`
	Courses        []TranscriptCourse `json:"courses"`
}

// Transcript combines identity, the history snapshot and graded courses.
type Transcript struct {
	StudentID               string                  `json:"studentId"`
	StudentName             string                  `json:"studentName"`
	StudentNumber           string                  `json:"studentNumber"`
	ProgramID               *string                 `json:"programId,omitempty"`
	ProgramName             *string                 `json:"programName,omitempty"`
	CumulativeGPA           decimal.NullDecimal     `json:"cumulativeGpa"`
	OverallCreditsAttempted int                     `json:"overallCreditsAttempted"`
	OverallCreditsEarned    int                     `json:"overallCreditsEarned"`
	CurrentLevel            int                     `json:"currentLevel"`
	CurrentStatus           models.AcademicStanding `json:"currentStatus"`
	HasGraduated            bool                    `json:"hasGraduated"`
	GraduationDate          *time.Time              `json:"graduationDate,omitempty"`
	Semesters               []TranscriptSemester    `json:"semesters"`
	GeneratedAt             time.Time               `json:"generatedAt"`
}
