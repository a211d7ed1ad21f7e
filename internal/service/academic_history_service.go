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
	"github.com/noah-isme/academic-standing/pkg/database"
	appErrors "github.com/noah-isme/academic-standing/pkg/errors"
	"github.com/noah-isme/academic-standing/pkg/lock"
)

type academicHistoryRepo interface {
	Create(ctx context.Context, history *models.AcademicHistory) error
	FindByStudentID(ctx context.Context, studentID string) (*models.AcademicHistory, error)
	UpdateCumulative(ctx context.Context, studentID string, totals models.CumulativeTotals) error
	UpdateLevel(ctx context.Context, studentID string, level int) (bool, error)
	UpdateStatus(ctx context.Context, studentID string, status models.AcademicStanding) error
	UpdateCurrentSemester(ctx context.Context, studentID string, semester int) error
	MarkGraduated(ctx context.Context, studentID string, graduationDate time.Time) (bool, error)
}

type semesterRecordLister interface {
	ListByStudent(ctx context.Context, studentID string) ([]models.SemesterRecord, error)
	ListFinalizedWithGPA(ctx context.Context, studentID string) ([]models.SemesterRecord, error)
}

type studentReader interface {
	FindProfile(ctx context.Context, studentID string) (*models.StudentProfile, error)
	FindProgram(ctx context.Context, programID string) (*models.Program, error)
}

// AcademicHistoryService maintains the lifetime history of each student:
// cumulative totals, level, standing and graduation. Writes to one history
// are serialised on the student's history lock.
type AcademicHistoryService struct {
	histories       academicHistoryRepo
	records         semesterRecordLister
	students        studentReader
	locker          lock.Locker
	cache           *CacheService
	metrics         *MetricsService
	validator       *validator.Validate
	logger          *zap.Logger
	requiredCredits int
}

// NewAcademicHistoryService constructs AcademicHistoryService. requiredCredits
// applies to programs without their own credit requirement. A nil locker
// falls back to an in-process keyed mutex.
func NewAcademicHistoryService(histories academicHistoryRepo, records semesterRecordLister, students studentReader, locker lock.Locker, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, requiredCredits int) *AcademicHistoryService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if requiredCredits <= 0 {
		requiredCredits = academic.DefaultRequiredCredits
	}
	if locker == nil {
		locker = lock.NewKeyedMutex(0)
	}
	return &AcademicHistoryService{
		histories:       histories,
		records:         records,
		students:        students,
		locker:          locker,
		cache:           cache,
		metrics:         metrics,
		validator:       validate,
		logger:          logger,
		requiredCredits: requiredCredits,
	}
}

// Create opens the academic history of an admitted student.
func (s *AcademicHistoryService) Create(ctx context.Context, req dto.CreateAcademicHistoryRequest) (*models.AcademicHistory, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid academic history payload")
	}
	profile, err := s.loadProfile(ctx, req.StudentID)
	if err != nil {
		return nil, err
	}
	if _, err := s.histories.FindByStudentID(ctx, req.StudentID); err == nil {
		return nil, appErrors.Errorf(appErrors.ErrConflict, "academic history for student %s already exists", req.StudentID)
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load academic history")
	}

	history := &models.AcademicHistory{
		StudentID:       req.StudentID,
		ProgramID:       profile.ProgramID,
		AdmissionYear:   req.AdmissionYear,
		CurrentLevel:    academic.Level100,
		CurrentSemester: 1,
		CurrentStatus:   models.StandingGood,
	}
	if err := s.histories.Create(ctx, history); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, appErrors.Errorf(appErrors.ErrConflict, "academic history for student %s already exists", req.StudentID)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create academic history")
	}
	s.logger.Info("academic history created", zap.String("student_id", req.StudentID), zap.Int("admission_year", req.AdmissionYear))
	return history, nil
}

// Get returns the student's academic history.
func (s *AcademicHistoryService) Get(ctx context.Context, studentID string) (*models.AcademicHistory, error) {
	if studentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student id required")
	}
	return s.loadHistory(ctx, studentID)
}

// UpdateCumulativeGPA recomputes the cumulative totals from every finalized,
// calculated semester record. The history is overwritten on every call.
func (s *AcademicHistoryService) UpdateCumulativeGPA(ctx context.Context, studentID string) (*dto.CumulativeGPAResult, error) {
	if studentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student id required")
	}
	release, err := s.acquire(ctx, studentID)
	if err != nil {
		return nil, err
	}
	defer release()

	if _, err := s.loadHistory(ctx, studentID); err != nil {
		return nil, err
	}
	records, err := s.records.ListFinalizedWithGPA(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fmt.Sprintf("failed to list finalized semesters for student %s", studentID))
	}

	result := aggregateSemesters(studentID, records)
	totals := models.CumulativeTotals{
		CumulativeGPA:           result.CumulativeGPA,
		OverallCreditsAttempted: result.OverallCreditsAttempted,
		OverallCreditsEarned:    result.OverallCreditsEarned,
		TotalSemestersCompleted: result.TotalSemestersCompleted,
	}
	if err := s.histories.UpdateCumulative(ctx, studentID, totals); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fmt.Sprintf("failed to update cumulative gpa for student %s", studentID))
	}
	s.cache.InvalidateStudent(ctx, studentID)

	fields := []zap.Field{
		zap.String("student_id", studentID),
		zap.Int("semesters", result.TotalSemestersCompleted),
		zap.Int("credits_earned", result.OverallCreditsEarned),
	}
	if result.HasData {
		fields = append(fields, zap.String("cumulative_gpa", result.CumulativeGPA.Decimal.StringFixed(academic.GPAPrecision)))
	}
	s.logger.Info("cumulative gpa updated", fields...)
	return &result, nil
}

func aggregateSemesters(studentID string, records []models.SemesterRecord) dto.CumulativeGPAResult {
	result := dto.CumulativeGPAResult{StudentID: studentID}
	points := decimal.Zero
	for _, record := range records {
		if !record.IsFinalized || !record.SemesterGPA.Valid {
			continue
		}
		points = points.Add(record.TotalGradePoints)
		result.OverallCreditsAttempted += record.CreditsAttempted
		result.OverallCreditsEarned += record.CreditsEarned
		result.TotalSemestersCompleted++
	}
	if gpa, ok := academic.Average(points, result.OverallCreditsAttempted); ok {
		result.HasData = true
		result.CumulativeGPA = decimal.NewNullDecimal(gpa)
	}
	return result
}

// CheckLevelProgression resolves the level for the stored credits earned and
// persists it when it moved up. Run it after UpdateCumulativeGPA.
func (s *AcademicHistoryService) CheckLevelProgression(ctx context.Context, studentID string) (*dto.LevelProgressionResult, error) {
	if studentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student id required")
	}
	release, err := s.acquire(ctx, studentID)
	if err != nil {
		return nil, err
	}
	defer release()

	history, err := s.loadHistory(ctx, studentID)
	if err != nil {
		return nil, err
	}

	credits := history.OverallCreditsEarned
	resolved := academic.ResolveLevel(credits)
	result := &dto.LevelProgressionResult{
		StudentID:          studentID,
		PreviousLevel:      history.CurrentLevel,
		CurrentLevel:       history.CurrentLevel,
		CreditsEarned:      credits,
		CreditsToNextLevel: academic.CreditsToNextLevel(credits),
	}
	switch {
	case resolved == history.CurrentLevel:
		return result, nil
	case resolved < history.CurrentLevel:
		s.logger.Warn("resolved level below stored level, keeping stored level",
			zap.String("student_id", studentID),
			zap.Int("stored_level", history.CurrentLevel),
			zap.Int("resolved_level", resolved),
			zap.Int("credits_earned", credits))
		return result, nil
	}

	raised, err := s.histories.UpdateLevel(ctx, studentID, resolved)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fmt.Sprintf("failed to update level for student %s", studentID))
	}
	if !raised {
		s.logger.Warn("stored level already at or above resolved level",
			zap.String("student_id", studentID),
			zap.Int("resolved_level", resolved))
		return result, nil
	}
	s.cache.InvalidateStudent(ctx, studentID)
	s.metrics.RecordLevelChange(resolved)
	s.logger.Info("level changed",
		zap.String("student_id", studentID),
		zap.Int("previous_level", history.CurrentLevel),
		zap.Int("level", resolved),
		zap.Int("credits_earned", credits))

	result.Changed = true
	result.CurrentLevel = resolved
	return result, nil
}

// UpdateStanding classifies the cumulative GPA onto the history status.
func (s *AcademicHistoryService) UpdateStanding(ctx context.Context, studentID string) (*dto.StandingResult, error) {
	if studentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student id required")
	}
	release, err := s.acquire(ctx, studentID)
	if err != nil {
		return nil, err
	}
	defer release()

	history, err := s.loadHistory(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if !history.CumulativeGPA.Valid {
		return nil, appErrors.Errorf(appErrors.ErrPreconditionFailed, "cumulative gpa for student %s has not been calculated", studentID)
	}

	standing := academic.ClassifyStanding(history.CumulativeGPA.Decimal)
	if standing != history.CurrentStatus {
		if err := s.histories.UpdateStatus(ctx, studentID, standing); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fmt.Sprintf("failed to update standing for student %s", studentID))
		}
		s.cache.InvalidateStudent(ctx, studentID)
		s.logger.Info("academic status changed",
			zap.String("student_id", studentID),
			zap.String("previous", string(history.CurrentStatus)),
			zap.String("status", string(standing)))
	}
	s.metrics.RecordStanding("history", standing)

	return &dto.StandingResult{
		StudentID:        studentID,
		GPA:              history.CumulativeGPA.Decimal,
		PreviousStanding: history.CurrentStatus,
		Standing:         standing,
		IsOnProbation:    standing == models.StandingProbation,
	}, nil
}

// UpdateCurrentSemester moves the current semester pointer.
func (s *AcademicHistoryService) UpdateCurrentSemester(ctx context.Context, studentID string, req dto.UpdateCurrentSemesterRequest) (*models.AcademicHistory, error) {
	if studentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student id required")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid current semester payload")
	}
	release, err := s.acquire(ctx, studentID)
	if err != nil {
		return nil, err
	}
	defer release()

	history, err := s.loadHistory(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if history.HasGraduated {
		return nil, appErrors.Errorf(appErrors.ErrPreconditionFailed, "student %s has already graduated", studentID)
	}
	if err := s.histories.UpdateCurrentSemester(ctx, studentID, req.CurrentSemester); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fmt.Sprintf("failed to update current semester for student %s", studentID))
	}
	s.cache.InvalidateStudent(ctx, studentID)
	history.CurrentSemester = req.CurrentSemester
	return history, nil
}

// CheckGraduationEligibility reports eligibility together with every gap.
func (s *AcademicHistoryService) CheckGraduationEligibility(ctx context.Context, studentID string) (*dto.GraduationEligibility, error) {
	if studentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student id required")
	}
	history, err := s.loadHistory(ctx, studentID)
	if err != nil {
		return nil, err
	}
	required, err := s.requiredCreditsFor(ctx, studentID)
	if err != nil {
		return nil, err
	}

	gaps := academic.EvaluateGraduation(history.OverallCreditsEarned, required, history.CumulativeGPA, history.CurrentLevel)
	eligibility := &dto.GraduationEligibility{
		StudentID:        studentID,
		Eligible:         gaps.Eligible(),
		CreditsEarned:    history.OverallCreditsEarned,
		RequiredCredits:  required,
		RemainingCredits: gaps.RemainingCredits,
		CumulativeGPA:    history.CumulativeGPA,
		MinimumGPA:       academic.MinimumGraduationGPA,
		CurrentLevel:     history.CurrentLevel,
		RequiredLevel:    academic.GraduationLevel,
		CurrentStatus:    history.CurrentStatus,
		HasGraduated:     history.HasGraduated,
	}
	if gaps.RemainingCredits > 0 {
		eligibility.Missing = append(eligibility.Missing, fmt.Sprintf("%d more credits required", gaps.RemainingCredits))
	}
	if gaps.MissingGPA {
		eligibility.Missing = append(eligibility.Missing, "cumulative gpa not calculated")
	} else if !gaps.GPAShortfall.IsZero() {
		eligibility.Missing = append(eligibility.Missing, fmt.Sprintf("cumulative gpa below %s", academic.MinimumGraduationGPA.StringFixed(academic.GPAPrecision)))
	}
	if gaps.LevelShortfall {
		eligibility.Missing = append(eligibility.Missing, fmt.Sprintf("level %d required", academic.GraduationLevel))
	}
	return eligibility, nil
}

// MarkGraduated records graduation after re-checking eligibility. Marking an
// already graduated student returns the stored date.
func (s *AcademicHistoryService) MarkGraduated(ctx context.Context, studentID string, req dto.MarkGraduationRequest) (*dto.GraduationResult, error) {
	if studentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student id required")
	}
	if req.GraduationDate.IsZero() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "graduation date required")
	}
	release, err := s.acquire(ctx, studentID)
	if err != nil {
		return nil, err
	}
	defer release()

	history, err := s.loadHistory(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if history.HasGraduated {
		return graduatedResult(history), nil
	}

	eligibility, err := s.CheckGraduationEligibility(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if !eligibility.Eligible {
		return nil, appErrors.Errorf(appErrors.ErrPreconditionFailed, "student %s is not eligible to graduate: %v", studentID, eligibility.Missing)
	}

	date := truncateToDate(req.GraduationDate)
	marked, err := s.histories.MarkGraduated(ctx, studentID, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fmt.Sprintf("failed to mark graduation for student %s", studentID))
	}
	if !marked {
		// Another request graduated the student first.
		history, err = s.loadHistory(ctx, studentID)
		if err != nil {
			return nil, err
		}
		return graduatedResult(history), nil
	}
	s.cache.InvalidateStudent(ctx, studentID)
	s.metrics.RecordGraduation()
	s.logger.Info("student graduated", zap.String("student_id", studentID), zap.Time("graduation_date", date))
	return &dto.GraduationResult{StudentID: studentID, GraduationDate: date}, nil
}

// GetAcademicSummary returns the student's progression snapshot.
func (s *AcademicHistoryService) GetAcademicSummary(ctx context.Context, studentID string) (*dto.AcademicSummary, error) {
	if studentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student id required")
	}
	var cached dto.AcademicSummary
	if s.cache.Get(ctx, summaryCacheKey(studentID), &cached) {
		return &cached, nil
	}

	profile, err := s.loadProfile(ctx, studentID)
	if err != nil {
		return nil, err
	}
	history, err := s.loadHistory(ctx, studentID)
	if err != nil {
		return nil, err
	}
	records, err := s.records.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fmt.Sprintf("failed to list semester records for student %s", studentID))
	}

	summary := &dto.AcademicSummary{
		Student:            *profile,
		History:            history,
		CreditsToNextLevel: academic.CreditsToNextLevel(history.OverallCreditsEarned),
		SemesterCount:      len(records),
	}
	if len(records) > 0 {
		latest := records[len(records)-1]
		summary.LatestSemester = &latest
	}
	s.cache.Set(ctx, summaryCacheKey(studentID), summary)
	return summary, nil
}

func (s *AcademicHistoryService) requiredCreditsFor(ctx context.Context, studentID string) (int, error) {
	profile, err := s.loadProfile(ctx, studentID)
	if err != nil {
		return 0, err
	}
	if profile.ProgramID == nil || *profile.ProgramID == "" {
		return 0, appErrors.Errorf(appErrors.ErrPreconditionFailed, "student %s has no program", studentID)
	}
	program, err := s.students.FindProgram(ctx, *profile.ProgramID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, appErrors.Errorf(appErrors.ErrPreconditionFailed, "program %s of student %s not found", *profile.ProgramID, studentID)
		}
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load program")
	}
	if program.RequiredCredits == nil || *program.RequiredCredits <= 0 {
		return s.requiredCredits, nil
	}
	return *program.RequiredCredits, nil
}

func (s *AcademicHistoryService) acquire(ctx context.Context, studentID string) (lock.Release, error) {
	return acquireLock(ctx, s.locker, s.metrics, lock.Key("academic-history", studentID))
}

func (s *AcademicHistoryService) loadHistory(ctx context.Context, studentID string) (*models.AcademicHistory, error) {
	history, err := s.histories.FindByStudentID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Errorf(appErrors.ErrNotFound, "academic history for student %s not found", studentID)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fmt.Sprintf("failed to load academic history for student %s", studentID))
	}
	return history, nil
}

func (s *AcademicHistoryService) loadProfile(ctx context.Context, studentID string) (*models.StudentProfile, error) {
	profile, err := s.students.FindProfile(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Errorf(appErrors.ErrNotFound, "student %s not found", studentID)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fmt.Sprintf("failed to load student %s", studentID))
	}
	return profile, nil
}

func graduatedResult(history *models.AcademicHistory) *dto.GraduationResult {
	result := &dto.GraduationResult{StudentID: history.StudentID, AlreadyMarked: true}
	if history.GraduationDate != nil {
		result.GraduationDate = *history.GraduationDate
	}
	return result
}

func truncateToDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
