package models

// StudentProfile is the identity and program reference owned by the student
// registry.
type StudentProfile struct {
	ID            string  `db:"id" json:"id"`
	FullName      string  `db:"full_name" json:"full_name"`
	StudentNumber string  `db:"student_number" json:"student_number"`
	ProgramID     *string `db:"program_id" json:"program_id,omitempty"`
	ProgramName   *string `db:"program_name" json:"program_name,omitempty"`
}

// Program carries the credit requirement used for graduation checks.
type Program struct {
	ID              string `db:"id" json:"id"`
	Name            string `db:"name" json:"name"`
	RequiredCredits *int   `db:"required_credits" json:"required_credits,omitempty"`
}
