package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/academic-standing/internal/dto"
	"github.com/noah-isme/academic-standing/internal/models"
	appErrors "github.com/noah-isme/academic-standing/pkg/errors"
)

type completedEnrollmentReader interface {
	ListCompletedGraded(ctx context.Context, studentID string) ([]models.GradedEnrollment, error)
}

type studentProfileReader interface {
	FindProfile(ctx context.Context, studentID string) (*models.StudentProfile, error)
}

// TranscriptService assembles the graded course history of a student.
type TranscriptService struct {
	enrollments completedEnrollmentReader
	students    studentProfileReader
	histories   academicHistoryFinder
	cache       *CacheService
	logger      *zap.Logger
	now         func() time.Time
}

// NewTranscriptService constructs TranscriptService.
func NewTranscriptService(enrollments completedEnrollmentReader, students studentProfileReader, histories academicHistoryFinder, cache *CacheService, logger *zap.Logger) *TranscriptService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TranscriptService{
		enrollments: enrollments,
		students:    students,
		histories:   histories,
		cache:       cache,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Generate returns the transcript with semesters in chronological order and
// courses sorted by code.
func (s *TranscriptService) Generate(ctx context.Context, studentID string) (*dto.Transcript, error) {
	if studentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student id required")
	}
	var cached dto.Transcript
	if s.cache.Get(ctx, transcriptCacheKey(studentID), &cached) {
		return &cached, nil
	}

	profile, err := s.students.FindProfile(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Errorf(appErrors.ErrNotFound, "student %s not found", studentID)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fmt.Sprintf("failed to load student %s", studentID))
	}
	history, err := s.histories.FindByStudentID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Errorf(appErrors.ErrNotFound, "academic history for student %s not found", studentID)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fmt.Sprintf("failed to load academic history for student %s", studentID))
	}
	enrollments, err := s.enrollments.ListCompletedGraded(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load completed enrollments")
	}

	transcript := &dto.Transcript{
		StudentID:               studentID,
		StudentName:             profile.FullName,
		StudentNumber:           profile.StudentNumber,
		ProgramID:               profile.ProgramID,
		ProgramName:             profile.ProgramName,
		CumulativeGPA:           history.CumulativeGPA,
		OverallCreditsAttempted: history.OverallCreditsAttempted,
		OverallCreditsEarned:    history.OverallCreditsEarned,
		CurrentLevel:            history.CurrentLevel,
		CurrentStatus:           history.CurrentStatus,
		HasGraduated:            history.HasGraduated,
		GraduationDate:          history.GraduationDate,
		Semesters:               groupBySemester(enrollments),
		GeneratedAt:             s.now(),
	}
	s.cache.Set(ctx, transcriptCacheKey(studentID), transcript)
	s.logger.Debug("transcript generated", zap.String("student_id", studentID), zap.Int("semesters", len(transcript.Semesters)))
	return transcript, nil
}

func groupBySemester(enrollments []models.GradedEnrollment) []dto.TranscriptSemester {
	type semesterKey struct {
		year   string
		number int
	}
	index := make(map[semesterKey]int)
	semesters := make([]dto.TranscriptSemester, 0)
	for _, enrollment := range enrollments {
		if enrollment.Grade == nil {
			continue
		}
		key := semesterKey{year: enrollment.AcademicYear, number: enrollment.SemesterNumber}
		pos, ok := index[key]
		if !ok {
			pos = len(semesters)
			index[key] = pos
			semesters = append(semesters, dto.TranscriptSemester{
				AcademicYear:   enrollment.AcademicYear,
				SemesterNumber: enrollment.SemesterNumber,
				Courses:        make([]dto.TranscriptCourse, 0),
			})
		}
		semesters[pos].Courses = append(semesters[pos].Courses, dto.TranscriptCourse{
			CourseCode:  enrollment.CourseCode,
			CourseName:  enrollment.CourseName,
			CreditHours: enrollment.CreditHours,
			Grade:       *enrollment.Grade,
		})
	}

	sort.SliceStable(semesters, func(i, j int) bool {
		if semesters[i].AcademicYear != semesters[j].AcademicYear {
			return semesters[i].AcademicYear < semesters[j].AcademicYear
		}
		return semesters[i].SemesterNumber < semesters[j].SemesterNumber
	})
	for i := range semesters {
		courses := semesters[i].Courses
		sort.SliceStable(courses, func(a, b int) bool { return courses[a].CourseCode < courses[b].CourseCode })
	}
	return semesters
}
