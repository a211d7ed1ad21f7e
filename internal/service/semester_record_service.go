package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/academic-standing/internal/academic"
	"github.com/noah-isme/academic-standing/internal/dto"
	"github.com/noah-isme/academic-standing/internal/models"
	"github.com/noah-isme/academic-standing/internal/repository"
	"github.com/noah-isme/academic-standing/pkg/database"
	appErrors "github.com/noah-isme/academic-standing/pkg/errors"
	"github.com/noah-isme/academic-standing/pkg/lock"
)

type semesterRecordRepo interface {
	Create(ctx context.Context, record *models.SemesterRecord) error
	FindByStudentAndSemester(ctx context.Context, studentID, semesterID string) (*models.SemesterRecord, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.SemesterRecord, error)
	UpdateCounts(ctx context.Context, id string, counts models.SemesterCourseCounts) error
	SaveGPA(ctx context.Context, record *models.SemesterRecord) error
	SaveStanding(ctx context.Context, record *models.SemesterRecord) error
	MarkFinalized(ctx context.Context, id, finalizedBy string, at time.Time) error
	MarkHistorySynced(ctx context.Context, id string, at time.Time) error
}

type gradedEnrollmentReader interface {
	ListGradedBySemester(ctx context.Context, studentID, semesterID string) ([]models.GradedEnrollment, error)
}

type academicHistoryFinder interface {
	FindByStudentID(ctx context.Context, studentID string) (*models.AcademicHistory, error)
}

type semesterChecker interface {
	SemesterExists(ctx context.Context, semesterID string) (bool, error)
}

// progressionUpdater runs the history side of finalization.
type progressionUpdater interface {
	UpdateCumulativeGPA(ctx context.Context, studentID string) (*dto.CumulativeGPAResult, error)
	CheckLevelProgression(ctx context.Context, studentID string) (*dto.LevelProgressionResult, error)
	UpdateStanding(ctx context.Context, studentID string) (*dto.StandingResult, error)
}

// SemesterRecordService calculates, classifies and finalizes semester records.
// Every read-modify-write on a record runs under the record's lock.
type SemesterRecordService struct {
	records     semesterRecordRepo
	enrollments gradedEnrollmentReader
	histories   academicHistoryFinder
	semesters   semesterChecker
	progression progressionUpdater
	locker      lock.Locker
	cache       *CacheService
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// NewSemesterRecordService constructs SemesterRecordService. A nil locker
// falls back to an in-process keyed mutex.
func NewSemesterRecordService(records semesterRecordRepo, enrollments gradedEnrollmentReader, histories academicHistoryFinder, semesters semesterChecker, progression progressionUpdater, locker lock.Locker, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *SemesterRecordService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if locker == nil {
		locker = lock.NewKeyedMutex(0)
	}
	return &SemesterRecordService{
		records:     records,
		enrollments: enrollments,
		histories:   histories,
		semesters:   semesters,
		progression: progression,
		locker:      locker,
		cache:       cache,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Create opens an empty record for a student and semester.
func (s *SemesterRecordService) Create(ctx context.Context, req dto.CreateSemesterRecordRequest) (*models.SemesterRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid semester record payload")
	}
	history, err := s.histories.FindByStudentID(ctx, req.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Errorf(appErrors.ErrPreconditionFailed, "student %s has no academic history", req.StudentID)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load academic history")
	}
	exists, err := s.semesters.SemesterExists(ctx, req.SemesterID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check semester")
	}
	if !exists {
		return nil, appErrors.Errorf(appErrors.ErrNotFound, "semester %s not found", req.SemesterID)
	}
	if _, err := s.records.FindByStudentAndSemester(ctx, req.StudentID, req.SemesterID); err == nil {
		return nil, appErrors.Errorf(appErrors.ErrConflict, "semester record for student %s semester %s already exists", req.StudentID, req.SemesterID)
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load semester record")
	}

	record := &models.SemesterRecord{
		StudentID:         req.StudentID,
		SemesterID:        req.SemesterID,
		AcademicHistoryID: history.ID,
		TotalGradePoints:  decimal.Zero,
		AcademicStanding:  models.StandingGood,
	}
	if err := s.records.Create(ctx, record); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, appErrors.Errorf(appErrors.ErrConflict, "semester record for student %s semester %s already exists", req.StudentID, req.SemesterID)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create semester record")
	}
	s.cache.InvalidateStudent(ctx, req.StudentID)
	s.logger.Info("semester record created", zap.String("student_id", req.StudentID), zap.String("semester_id", req.SemesterID))
	return record, nil
}

// Get returns the record of a student for a semester.
func (s *SemesterRecordService) Get(ctx context.Context, studentID, semesterID string) (*models.SemesterRecord, error) {
	if err := requireIDs(studentID, semesterID); err != nil {
		return nil, err
	}
	return s.loadRecord(ctx, studentID, semesterID)
}

// ListByStudent returns every record of a student.
func (s *SemesterRecordService) ListByStudent(ctx context.Context, studentID string) ([]models.SemesterRecord, error) {
	if studentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student id required")
	}
	records, err := s.records.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list semester records")
	}
	if records == nil {
		records = []models.SemesterRecord{}
	}
	return records, nil
}

// UpdateStatistics replaces the registration counters of an open record.
// Completed courses are owned by the GPA calculation and cannot be patched.
func (s *SemesterRecordService) UpdateStatistics(ctx context.Context, studentID, semesterID string, req dto.UpdateSemesterStatisticsRequest) (*models.SemesterRecord, error) {
	if err := requireIDs(studentID, semesterID); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid statistics payload")
	}
	release, err := s.acquire(ctx, studentID, semesterID)
	if err != nil {
		return nil, err
	}
	defer release()

	record, err := s.loadOpenRecord(ctx, studentID, semesterID)
	if err != nil {
		return nil, err
	}
	counts := models.SemesterCourseCounts{
		CoursesRegistered: record.CoursesRegistered,
		CoursesCompleted:  record.CoursesCompleted,
		CoursesFailed:     record.CoursesFailed,
		CoursesDropped:    record.CoursesDropped,
		CoursesInProgress: record.CoursesInProgress,
	}
	if req.CoursesRegistered != nil {
		counts.CoursesRegistered = *req.CoursesRegistered
	}
	if req.CoursesFailed != nil {
		counts.CoursesFailed = *req.CoursesFailed
	}
	if req.CoursesDropped != nil {
		counts.CoursesDropped = *req.CoursesDropped
	}
	if req.CoursesInProgress != nil {
		counts.CoursesInProgress = *req.CoursesInProgress
	}
	if err := s.records.UpdateCounts(ctx, record.ID, counts); err != nil {
		return nil, s.mapWriteError(err, studentID, semesterID, "failed to update semester statistics")
	}
	record.CoursesRegistered = counts.CoursesRegistered
	record.CoursesFailed = counts.CoursesFailed
	record.CoursesDropped = counts.CoursesDropped
	record.CoursesInProgress = counts.CoursesInProgress
	s.cache.InvalidateStudent(ctx, studentID)
	return record, nil
}

// CalculateGPA recomputes the semester GPA from graded enrollments.
func (s *SemesterRecordService) CalculateGPA(ctx context.Context, studentID, semesterID string) (*dto.SemesterGPAResult, error) {
	if err := requireIDs(studentID, semesterID); err != nil {
		return nil, err
	}
	release, err := s.acquire(ctx, studentID, semesterID)
	if err != nil {
		return nil, err
	}
	defer release()

	record, err := s.loadOpenRecord(ctx, studentID, semesterID)
	if err != nil {
		return nil, err
	}
	result, err := s.calculate(ctx, record)
	if err != nil {
		return nil, err
	}
	s.cache.InvalidateStudent(ctx, studentID)
	return result, nil
}

// UpdateStanding classifies the semester GPA and advances the probation
// counter. Calling it twice on a probation record counts twice.
func (s *SemesterRecordService) UpdateStanding(ctx context.Context, studentID, semesterID string) (*dto.StandingResult, error) {
	if err := requireIDs(studentID, semesterID); err != nil {
		return nil, err
	}
	release, err := s.acquire(ctx, studentID, semesterID)
	if err != nil {
		return nil, err
	}
	defer release()

	record, err := s.loadOpenRecord(ctx, studentID, semesterID)
	if err != nil {
		return nil, err
	}
	result, err := s.classify(ctx, record)
	if err != nil {
		return nil, err
	}
	s.cache.InvalidateStudent(ctx, studentID)
	return result, nil
}

// Finalize runs the whole end-of-semester pipeline: semester GPA, semester
// standing, the finalize lock, cumulative totals, level and history standing.
// The first failing step aborts the rest. A record finalized by an earlier
// call whose history refresh failed only reruns the history steps; once the
// history is in sync a further Finalize is rejected as FINALIZED.
func (s *SemesterRecordService) Finalize(ctx context.Context, studentID, semesterID string, req dto.FinalizeSemesterRequest) (*dto.FinalizeSemesterResult, error) {
	if err := requireIDs(studentID, semesterID); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid finalize payload")
	}
	release, err := s.acquire(ctx, studentID, semesterID)
	if err != nil {
		return nil, err
	}
	defer release()

	record, err := s.loadRecord(ctx, studentID, semesterID)
	if err != nil {
		return nil, err
	}
	if record.IsFinalized {
		if record.HistorySyncedAt != nil {
			return nil, finalizedError(studentID, semesterID)
		}
		s.logger.Info("resuming history refresh for finalized semester",
			zap.String("student_id", studentID),
			zap.String("semester_id", semesterID))
		result := storedFinalizeResult(record)
		return s.syncHistory(ctx, record, result)
	}

	gpa, err := s.calculate(ctx, record)
	if err != nil {
		return nil, err
	}
	standing, err := s.classify(ctx, record)
	if err != nil {
		return nil, err
	}

	finalizedAt := s.now()
	if err := s.records.MarkFinalized(ctx, record.ID, req.FinalizedBy, finalizedAt); err != nil {
		return nil, s.mapWriteError(err, studentID, semesterID, "failed to finalize semester record")
	}
	record.IsFinalized = true
	record.FinalizedAt = &finalizedAt
	finalizedBy := req.FinalizedBy
	record.FinalizedBy = &finalizedBy
	s.cache.InvalidateStudent(ctx, studentID)
	s.metrics.RecordFinalization()
	s.logger.Info("semester record finalized",
		zap.String("student_id", studentID),
		zap.String("semester_id", semesterID),
		zap.String("finalized_by", req.FinalizedBy))

	return s.syncHistory(ctx, record, &dto.FinalizeSemesterResult{
		Record:      record,
		GPA:         *gpa,
		Standing:    *standing,
		FinalizedAt: finalizedAt,
	})
}

// syncHistory refreshes the academic history from a finalized record and
// marks the record as synced. Every step is a full recomputation, so a failed
// run can be repeated.
func (s *SemesterRecordService) syncHistory(ctx context.Context, record *models.SemesterRecord, result *dto.FinalizeSemesterResult) (*dto.FinalizeSemesterResult, error) {
	cumulative, err := s.progression.UpdateCumulativeGPA(ctx, record.StudentID)
	if err != nil {
		return nil, err
	}
	level, err := s.progression.CheckLevelProgression(ctx, record.StudentID)
	if err != nil {
		return nil, err
	}
	status, err := s.progression.UpdateStanding(ctx, record.StudentID)
	if err != nil {
		return nil, err
	}

	syncedAt := s.now()
	if err := s.records.MarkHistorySynced(ctx, record.ID, syncedAt); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status,
			fmt.Sprintf("failed to mark history synced for student %s semester %s", record.StudentID, record.SemesterID))
	}
	record.HistorySyncedAt = &syncedAt

	result.Cumulative = *cumulative
	result.Level = *level
	result.Status = status.Standing
	return result, nil
}

func storedFinalizeResult(record *models.SemesterRecord) *dto.FinalizeSemesterResult {
	result := &dto.FinalizeSemesterResult{
		Record: record,
		GPA: dto.SemesterGPAResult{
			StudentID:        record.StudentID,
			SemesterID:       record.SemesterID,
			HasData:          record.SemesterGPA.Valid,
			SemesterGPA:      record.SemesterGPA,
			TotalGradePoints: record.TotalGradePoints,
			CreditsAttempted: record.CreditsAttempted,
			CreditsEarned:    record.CreditsEarned,
			CoursesCompleted: record.CoursesCompleted,
		},
		Standing: dto.StandingResult{
			StudentID:        record.StudentID,
			SemesterID:       record.SemesterID,
			GPA:              record.SemesterGPA.Decimal,
			PreviousStanding: record.AcademicStanding,
			Standing:         record.AcademicStanding,
			IsOnProbation:    record.IsOnProbation,
			ProbationCount:   record.ProbationCount,
		},
		Resumed: true,
	}
	if record.FinalizedAt != nil {
		result.FinalizedAt = *record.FinalizedAt
	}
	return result
}

// GetStatistics returns counters, credit figures and derived rates.
func (s *SemesterRecordService) GetStatistics(ctx context.Context, studentID, semesterID string) (*dto.SemesterStatistics, error) {
	if err := requireIDs(studentID, semesterID); err != nil {
		return nil, err
	}
	record, err := s.loadRecord(ctx, studentID, semesterID)
	if err != nil {
		return nil, err
	}
	return &dto.SemesterStatistics{
		StudentID:  studentID,
		SemesterID: semesterID,
		Counts: models.SemesterCourseCounts{
			CoursesRegistered: record.CoursesRegistered,
			CoursesCompleted:  record.CoursesCompleted,
			CoursesFailed:     record.CoursesFailed,
			CoursesDropped:    record.CoursesDropped,
			CoursesInProgress: record.CoursesInProgress,
		},
		CreditsAttempted: record.CreditsAttempted,
		CreditsEarned:    record.CreditsEarned,
		SemesterGPA:      record.SemesterGPA,
		Standing:         record.AcademicStanding,
		ProbationCount:   record.ProbationCount,
		CompletionRate:   ratio(record.CoursesCompleted, record.CoursesRegistered),
		CreditEarnRate:   ratio(record.CreditsEarned, record.CreditsAttempted),
		IsFinalized:      record.IsFinalized,
	}, nil
}

// calculate expects the record lock to be held.
func (s *SemesterRecordService) calculate(ctx context.Context, record *models.SemesterRecord) (*dto.SemesterGPAResult, error) {
	enrollments, err := s.enrollments.ListGradedBySemester(ctx, record.StudentID, record.SemesterID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load graded enrollments")
	}

	result := &dto.SemesterGPAResult{StudentID: record.StudentID, SemesterID: record.SemesterID, TotalGradePoints: decimal.Zero}
	points := decimal.Zero
	for _, enrollment := range enrollments {
		if enrollment.Grade == nil {
			continue
		}
		gradePoint, ok := academic.GradePoint(*enrollment.Grade)
		if !ok {
			result.SkippedGrades = append(result.SkippedGrades, *enrollment.Grade)
			s.logger.Warn("skipping unknown grade",
				zap.String("student_id", record.StudentID),
				zap.String("semester_id", record.SemesterID),
				zap.String("course_code", enrollment.CourseCode),
				zap.String("grade", *enrollment.Grade))
			continue
		}
		points = points.Add(gradePoint.Mul(decimal.NewFromInt(int64(enrollment.CreditHours))))
		result.CreditsAttempted += enrollment.CreditHours
		if academic.IsPassing(gradePoint) {
			result.CreditsEarned += enrollment.CreditHours
		}
		result.CoursesCompleted++
	}

	if gpa, ok := academic.Average(points, result.CreditsAttempted); ok {
		result.HasData = true
		result.SemesterGPA = decimal.NewNullDecimal(gpa)
		result.TotalGradePoints = academic.Round(points)
	} else {
		result.CreditsAttempted = 0
		result.CreditsEarned = 0
		result.CoursesCompleted = 0
	}

	record.CreditsAttempted = result.CreditsAttempted
	record.CreditsEarned = result.CreditsEarned
	record.CoursesCompleted = result.CoursesCompleted
	record.SemesterGPA = result.SemesterGPA
	record.TotalGradePoints = result.TotalGradePoints
	if err := s.records.SaveGPA(ctx, record); err != nil {
		return nil, s.mapWriteError(err, record.StudentID, record.SemesterID, "failed to save semester gpa")
	}

	fields := []zap.Field{
		zap.String("student_id", record.StudentID),
		zap.String("semester_id", record.SemesterID),
		zap.Int("credits_attempted", result.CreditsAttempted),
		zap.Int("credits_earned", result.CreditsEarned),
	}
	if result.HasData {
		fields = append(fields, zap.String("semester_gpa", result.SemesterGPA.Decimal.StringFixed(academic.GPAPrecision)))
	}
	s.logger.Info("semester gpa calculated", fields...)
	return result, nil
}

// classify expects the record lock to be held.
func (s *SemesterRecordService) classify(ctx context.Context, record *models.SemesterRecord) (*dto.StandingResult, error) {
	if !record.SemesterGPA.Valid {
		return nil, appErrors.Errorf(appErrors.ErrPreconditionFailed, "semester gpa for student %s semester %s has not been calculated", record.StudentID, record.SemesterID)
	}
	previous := record.AcademicStanding
	standing := academic.ClassifyStanding(record.SemesterGPA.Decimal)
	record.AcademicStanding = standing
	record.IsOnProbation = standing == models.StandingProbation
	record.ProbationCount = academic.NextProbationCount(standing, record.ProbationCount)
	if err := s.records.SaveStanding(ctx, record); err != nil {
		return nil, s.mapWriteError(err, record.StudentID, record.SemesterID, "failed to save semester standing")
	}
	s.metrics.RecordStanding("semester", standing)

	if standing != previous {
		s.logger.Info("semester standing changed",
			zap.String("student_id", record.StudentID),
			zap.String("semester_id", record.SemesterID),
			zap.String("previous", string(previous)),
			zap.String("standing", string(standing)),
			zap.Int("probation_count", record.ProbationCount))
	}
	return &dto.StandingResult{
		StudentID:        record.StudentID,
		SemesterID:       record.SemesterID,
		GPA:              record.SemesterGPA.Decimal,
		PreviousStanding: previous,
		Standing:         standing,
		IsOnProbation:    record.IsOnProbation,
		ProbationCount:   record.ProbationCount,
	}, nil
}

func (s *SemesterRecordService) acquire(ctx context.Context, studentID, semesterID string) (lock.Release, error) {
	return acquireLock(ctx, s.locker, s.metrics, lock.Key("semester-record", studentID, semesterID))
}

func acquireLock(ctx context.Context, locker lock.Locker, metrics *MetricsService, key string) (lock.Release, error) {
	start := time.Now()
	release, err := locker.Acquire(ctx, key)
	metrics.ObserveLockWait(time.Since(start))
	if err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to acquire "+key)
	}
	return release, nil
}

func (s *SemesterRecordService) loadRecord(ctx context.Context, studentID, semesterID string) (*models.SemesterRecord, error) {
	record, err := s.records.FindByStudentAndSemester(ctx, studentID, semesterID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Errorf(appErrors.ErrNotFound, "semester record for student %s semester %s not found", studentID, semesterID)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load semester record")
	}
	return record, nil
}

func (s *SemesterRecordService) loadOpenRecord(ctx context.Context, studentID, semesterID string) (*models.SemesterRecord, error) {
	record, err := s.loadRecord(ctx, studentID, semesterID)
	if err != nil {
		return nil, err
	}
	if record.IsFinalized {
		return nil, finalizedError(studentID, semesterID)
	}
	return record, nil
}

func (s *SemesterRecordService) mapWriteError(err error, studentID, semesterID, message string) error {
	if errors.Is(err, repository.ErrRecordLocked) {
		return finalizedError(studentID, semesterID)
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

func finalizedError(studentID, semesterID string) error {
	return appErrors.Errorf(appErrors.ErrFinalized, "semester record for student %s semester %s is finalized", studentID, semesterID)
}

func requireIDs(studentID, semesterID string) error {
	if studentID == "" || semesterID == "" {
		return appErrors.Clone(appErrors.ErrValidation, "student id and semester id required")
	}
	return nil
}

func ratio(part, whole int) decimal.Decimal {
	if whole <= 0 {
		return decimal.Zero
	}
	return academic.Round(decimal.NewFromInt(int64(part)).Div(decimal.NewFromInt(int64(whole))))
}
