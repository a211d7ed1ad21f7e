package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/academic-standing/internal/models"
)

// StudentRepository reads identity, program and semester references kept by
// the registry services.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs the repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// FindProfile returns the student with program name, or sql.ErrNoRows.
func (r *StudentRepository) FindProfile(ctx context.Context, studentID string) (*models.StudentProfile, error) {
	const query = `SELECT st.id, st.full_name, st.student_number, st.program_id, p.name AS program_name
        FROM students st
        LEFT JOIN programs p ON p.id = st.program_id
        WHERE st.id = $1`
	var profile models.StudentProfile
	if err := r.db.GetContext(ctx, &profile, query, studentID); err != nil {
		return nil, err
	}
	return &profile, nil
}

// FindProgram returns a program or sql.ErrNoRows.
func (r *StudentRepository) FindProgram(ctx context.Context, programID string) (*models.Program, error) {
	const query = `SELECT id, name, required_credits FROM programs WHERE id = $1`
	var program models.Program
	if err := r.db.GetContext(ctx, &program, query, programID); err != nil {
		return nil, err
	}
	return &program, nil
}

// SemesterExists reports whether the semester is known to the calendar.
func (r *StudentRepository) SemesterExists(ctx context.Context, semesterID string) (bool, error) {
	const query = `SELECT 1 FROM semesters WHERE id = $1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, semesterID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check semester: %w", err)
	}
	return true, nil
}
