package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/academic-standing/internal/models"
)

const academicHistoryColumns = `id, student_id, program_id, admission_year, current_level, current_semester,
        cumulative_gpa, overall_credits_attempted, overall_credits_earned, total_semesters_completed,
        current_status, has_graduated, graduation_date, created_at, updated_at`

// AcademicHistoryRepository persists the lifetime academic history rows.
type AcademicHistoryRepository struct {
	db *sqlx.DB
}

// NewAcademicHistoryRepository constructs the repository.
func NewAcademicHistoryRepository(db *sqlx.DB) *AcademicHistoryRepository {
	return &AcademicHistoryRepository{db: db}
}

// Create inserts a history at admission.
func (r *AcademicHistoryRepository) Create(ctx context.Context, history *models.AcademicHistory) error {
	if history.ID == "" {
		history.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	history.CreatedAt = now
	history.UpdatedAt = now
	const query = `INSERT INTO academic_histories (id, student_id, program_id, admission_year, current_level, current_semester,
        overall_credits_attempted, overall_credits_earned, total_semesters_completed, current_status, has_graduated, created_at, updated_at)
        VALUES (:id, :student_id, :program_id, :admission_year, :current_level, :current_semester,
        :overall_credits_attempted, :overall_credits_earned, :total_semesters_completed, :current_status, :has_graduated, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, history); err != nil {
		return fmt.Errorf("create academic history: %w", err)
	}
	return nil
}

// FindByStudentID returns the student's history or sql.ErrNoRows.
func (r *AcademicHistoryRepository) FindByStudentID(ctx context.Context, studentID string) (*models.AcademicHistory, error) {
	query := `SELECT ` + academicHistoryColumns + ` FROM academic_histories WHERE student_id = $1`
	var history models.AcademicHistory
	if err := r.db.GetContext(ctx, &history, query, studentID); err != nil {
		return nil, err
	}
	return &history, nil
}

// UpdateCumulative overwrites the cumulative totals.
func (r *AcademicHistoryRepository) UpdateCumulative(ctx context.Context, studentID string, totals models.CumulativeTotals) error {
	const query = `UPDATE academic_histories SET cumulative_gpa = $2, overall_credits_attempted = $3, overall_credits_earned = $4,
        total_semesters_completed = $5, updated_at = $6 WHERE student_id = $1`
	if _, err := r.db.ExecContext(ctx, query, studentID, totals.CumulativeGPA, totals.OverallCreditsAttempted,
		totals.OverallCreditsEarned, totals.TotalSemestersCompleted, time.Now().UTC()); err != nil {
		return fmt.Errorf("update cumulative gpa: %w", err)
	}
	return nil
}

// UpdateLevel raises the current level. It reports false when the stored
// level is already at or above level; levels never move down.
func (r *AcademicHistoryRepository) UpdateLevel(ctx context.Context, studentID string, level int) (bool, error) {
	const query = `UPDATE academic_histories SET current_level = $2, updated_at = $3
        WHERE student_id = $1 AND current_level < $2`
	res, err := r.db.ExecContext(ctx, query, studentID, level, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("update current level: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// UpdateStatus stores the history-level standing.
func (r *AcademicHistoryRepository) UpdateStatus(ctx context.Context, studentID string, status models.AcademicStanding) error {
	const query = `UPDATE academic_histories SET current_status = $2, updated_at = $3 WHERE student_id = $1`
	if _, err := r.db.ExecContext(ctx, query, studentID, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("update academic status: %w", err)
	}
	return nil
}

// UpdateCurrentSemester moves the current semester pointer.
func (r *AcademicHistoryRepository) UpdateCurrentSemester(ctx context.Context, studentID string, semester int) error {
	const query = `UPDATE academic_histories SET current_semester = $2, updated_at = $3 WHERE student_id = $1`
	if _, err := r.db.ExecContext(ctx, query, studentID, semester, time.Now().UTC()); err != nil {
		return fmt.Errorf("update current semester: %w", err)
	}
	return nil
}

// MarkGraduated sets the graduation flag once. It reports false when the
// student had already graduated.
func (r *AcademicHistoryRepository) MarkGraduated(ctx context.Context, studentID string, graduationDate time.Time) (bool, error) {
	const query = `UPDATE academic_histories SET has_graduated = TRUE, graduation_date = $2, updated_at = $3
        WHERE student_id = $1 AND has_graduated = FALSE`
	res, err := r.db.ExecContext(ctx, query, studentID, graduationDate, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("mark graduated: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}
