package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/academic-standing/internal/models"
)

// ErrRecordLocked is returned when a guarded update touches no row because
// the semester record is finalized (or was removed underneath the caller).
var ErrRecordLocked = errors.New("semester record is finalized")

const semesterRecordColumns = `id, student_id, semester_id, academic_history_id,
        courses_registered, courses_completed, courses_failed, courses_dropped, courses_in_progress,
        credits_attempted, credits_earned, semester_gpa, total_grade_points,
        academic_standing, is_on_probation, probation_count,
        is_finalized, finalized_at, finalized_by, history_synced_at, created_at, updated_at`

// SemesterRecordRepository persists per-semester academic records.
type SemesterRecordRepository struct {
	db *sqlx.DB
}

// NewSemesterRecordRepository constructs the repository.
func NewSemesterRecordRepository(db *sqlx.DB) *SemesterRecordRepository {
	return &SemesterRecordRepository{db: db}
}

// Create inserts an empty record in good standing.
func (r *SemesterRecordRepository) Create(ctx context.Context, record *models.SemesterRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	if record.AcademicStanding == "" {
		record.AcademicStanding = models.StandingGood
	}
	const query = `INSERT INTO semester_records (id, student_id, semester_id, academic_history_id, total_grade_points, academic_standing, created_at, updated_at)
        VALUES (:id, :student_id, :semester_id, :academic_history_id, :total_grade_points, :academic_standing, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("create semester record: %w", err)
	}
	return nil
}

// FindByStudentAndSemester returns the record for the pair or sql.ErrNoRows.
func (r *SemesterRecordRepository) FindByStudentAndSemester(ctx context.Context, studentID, semesterID string) (*models.SemesterRecord, error) {
	query := `SELECT ` + semesterRecordColumns + ` FROM semester_records WHERE student_id = $1 AND semester_id = $2`
	var record models.SemesterRecord
	if err := r.db.GetContext(ctx, &record, query, studentID, semesterID); err != nil {
		return nil, err
	}
	return &record, nil
}

// ListByStudent returns every record of a student in creation order.
func (r *SemesterRecordRepository) ListByStudent(ctx context.Context, studentID string) ([]models.SemesterRecord, error) {
	query := `SELECT ` + semesterRecordColumns + ` FROM semester_records WHERE student_id = $1 ORDER BY created_at, id`
	var records []models.SemesterRecord
	if err := r.db.SelectContext(ctx, &records, query, studentID); err != nil {
		return nil, fmt.Errorf("list semester records: %w", err)
	}
	return records, nil
}

// ListFinalizedWithGPA returns the finalized, calculated records used for
// cumulative totals, oldest first.
func (r *SemesterRecordRepository) ListFinalizedWithGPA(ctx context.Context, studentID string) ([]models.SemesterRecord, error) {
	query := `SELECT ` + semesterRecordColumns + ` FROM semester_records
        WHERE student_id = $1 AND is_finalized = TRUE AND semester_gpa IS NOT NULL
        ORDER BY created_at, id`
	var records []models.SemesterRecord
	if err := r.db.SelectContext(ctx, &records, query, studentID); err != nil {
		return nil, fmt.Errorf("list finalized semester records: %w", err)
	}
	return records, nil
}

// UpdateCounts replaces the course counters of an open record.
func (r *SemesterRecordRepository) UpdateCounts(ctx context.Context, id string, counts models.SemesterCourseCounts) error {
	const query = `UPDATE semester_records SET courses_registered = $2, courses_failed = $3, courses_dropped = $4,
        courses_in_progress = $5, updated_at = $6
        WHERE id = $1 AND is_finalized = FALSE`
	res, err := r.db.ExecContext(ctx, query, id, counts.CoursesRegistered, counts.CoursesFailed, counts.CoursesDropped, counts.CoursesInProgress, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update semester counts: %w", err)
	}
	return guardAffected(res)
}

// SaveGPA writes the calculated GPA figures of an open record.
func (r *SemesterRecordRepository) SaveGPA(ctx context.Context, record *models.SemesterRecord) error {
	record.UpdatedAt = time.Now().UTC()
	const query = `UPDATE semester_records SET credits_attempted = :credits_attempted, credits_earned = :credits_earned,
        courses_completed = :courses_completed, semester_gpa = :semester_gpa, total_grade_points = :total_grade_points,
        updated_at = :updated_at
        WHERE id = :id AND is_finalized = FALSE`
	res, err := r.db.NamedExecContext(ctx, query, record)
	if err != nil {
		return fmt.Errorf("save semester gpa: %w", err)
	}
	return guardAffected(res)
}

// SaveStanding writes the standing and probation counter of an open record.
func (r *SemesterRecordRepository) SaveStanding(ctx context.Context, record *models.SemesterRecord) error {
	record.UpdatedAt = time.Now().UTC()
	const query = `UPDATE semester_records SET academic_standing = :academic_standing, is_on_probation = :is_on_probation,
        probation_count = :probation_count, updated_at = :updated_at
        WHERE id = :id AND is_finalized = FALSE`
	res, err := r.db.NamedExecContext(ctx, query, record)
	if err != nil {
		return fmt.Errorf("save semester standing: %w", err)
	}
	return guardAffected(res)
}

// MarkFinalized locks an open record.
func (r *SemesterRecordRepository) MarkFinalized(ctx context.Context, id, finalizedBy string, at time.Time) error {
	const query = `UPDATE semester_records SET is_finalized = TRUE, finalized_at = $2, finalized_by = $3, updated_at = $2
        WHERE id = $1 AND is_finalized = FALSE`
	res, err := r.db.ExecContext(ctx, query, id, at, finalizedBy)
	if err != nil {
		return fmt.Errorf("finalize semester record: %w", err)
	}
	return guardAffected(res)
}

// MarkHistorySynced records that the academic history was refreshed from a
// finalized record. Only the sync marker of a finalized record is writable.
func (r *SemesterRecordRepository) MarkHistorySynced(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE semester_records SET history_synced_at = $2 WHERE id = $1 AND is_finalized = TRUE`
	res, err := r.db.ExecContext(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("mark history synced: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func guardAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrRecordLocked
	}
	return nil
}
