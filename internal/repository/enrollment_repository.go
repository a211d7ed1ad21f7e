package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/academic-standing/internal/models"
)

const gradedEnrollmentSelect = `SELECT e.id, e.student_id, e.semester_id, e.course_offering_id, e.grade, e.status,
        c.code AS course_code, c.name AS course_name, c.credit_hours,
        s.academic_year, s.semester_number
        FROM enrollments e
        JOIN course_offerings co ON co.id = e.course_offering_id
        JOIN courses c ON c.id = co.course_id
        JOIN semesters s ON s.id = e.semester_id`

// EnrollmentRepository reads graded enrollments owned by the registration service.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// ListGradedBySemester returns the student's enrollments in a semester that
// carry a grade and are completed or still active.
func (r *EnrollmentRepository) ListGradedBySemester(ctx context.Context, studentID, semesterID string) ([]models.GradedEnrollment, error) {
	query := gradedEnrollmentSelect + `
        WHERE e.student_id = $1 AND e.semester_id = $2 AND e.grade IS NOT NULL AND e.status IN ($3, $4)
        ORDER BY c.code`
	var enrollments []models.GradedEnrollment
	if err := r.db.SelectContext(ctx, &enrollments, query, studentID, semesterID,
		models.EnrollmentStatusCompleted, models.EnrollmentStatusActive); err != nil {
		return nil, fmt.Errorf("list graded enrollments: %w", err)
	}
	return enrollments, nil
}

// ListCompletedGraded returns every completed, graded enrollment of a student
// in chronological semester order.
func (r *EnrollmentRepository) ListCompletedGraded(ctx context.Context, studentID string) ([]models.GradedEnrollment, error) {
	query := gradedEnrollmentSelect + `
        WHERE e.student_id = $1 AND e.grade IS NOT NULL AND e.status = $2
        ORDER BY s.academic_year, s.semester_number, c.code`
	var enrollments []models.GradedEnrollment
	if err := r.db.SelectContext(ctx, &enrollments, query, studentID, models.EnrollmentStatusCompleted); err != nil {
		return nil, fmt.Errorf("list completed enrollments: %w", err)
	}
	return enrollments, nil
}
