package models

// EnrollmentStatus represents the lifecycle of a course enrollment.
type EnrollmentStatus string

// Possible enrollment statuses.
const (
	EnrollmentStatusActive    EnrollmentStatus = "ACTIVE"
	EnrollmentStatusCompleted EnrollmentStatus = "COMPLETED"
	EnrollmentStatusWithdrawn EnrollmentStatus = "WITHDRAWN"
	EnrollmentStatusDropped   EnrollmentStatus = "DROPPED"
)

// GradedEnrollment is a graded course enrollment joined with its course and
// semester. Grade is never nil for rows returned by the enrollment reader.
type GradedEnrollment struct {
	ID               string           `db:"id" json:"id"`
	StudentID        string           `db:"student_id" json:"student_id"`
	SemesterID       string           `db:"semester_id" json:"semester_id"`
	CourseOfferingID string           `db:"course_offering_id" json:"course_offering_id"`
	Grade            *string          `db:"grade" json:"grade,omitempty"`
	Status           EnrollmentStatus `db:"status" json:"status"`
	CourseCode       string           `db:"course_code" json:"course_code"`
	CourseName       string           `db:"course_name" json:"course_name"`
	CreditHours      int              `db:"credit_hours" json:"credit_hours"`
	AcademicYear     string           `db:"academic_year" json:"academic_year"`
	SemesterNumber   int              `db:"semester_number" json:"semester_number"`
}
