package handler

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academic-standing/internal/dto"
	"github.com/noah-isme/academic-standing/internal/models"
	"github.com/noah-isme/academic-standing/internal/service"
	appErrors "github.com/noah-isme/academic-standing/pkg/errors"
)

type academicHistoryServiceMock struct {
	history     *models.AcademicHistory
	cumulative  *dto.CumulativeGPAResult
	level       *dto.LevelProgressionResult
	standing    *dto.StandingResult
	eligibility *dto.GraduationEligibility
	graduation  *dto.GraduationResult
	summary     *dto.AcademicSummary
	err         error
	lastStudent string
	lastGrad    dto.MarkGraduationRequest
	lastCreate  dto.CreateAcademicHistoryRequest
}

func (m *academicHistoryServiceMock) Create(ctx context.Context, req dto.CreateAcademicHistoryRequest) (*models.AcademicHistory, error) {
	m.lastCreate = req
	return m.history, m.err
}

func (m *academicHistoryServiceMock) Get(ctx context.Context, studentID string) (*models.AcademicHistory, error) {
	m.lastStudent = studentID
	return m.history, m.err
}

func (m *academicHistoryServiceMock) UpdateCumulativeGPA(ctx context.Context, studentID string) (*dto.CumulativeGPAResult, error) {
	m.lastStudent = studentID
	return m.cumulative, m.err
}

func (m *academicHistoryServiceMock) CheckLevelProgression(ctx context.Context, studentID string) (*dto.LevelProgressionResult, error) {
	m.lastStudent = studentID
	return m.level, m.err
}

func (m *academicHistoryServiceMock) UpdateStanding(ctx context.Context, studentID string) (*dto.StandingResult, error) {
	m.lastStudent = studentID
	return m.standing, m.err
}

func (m *academicHistoryServiceMock) UpdateCurrentSemester(ctx context.Context, studentID string, req dto.UpdateCurrentSemesterRequest) (*models.AcademicHistory, error) {
	m.lastStudent = studentID
	return m.history, m.err
}

func (m *academicHistoryServiceMock) CheckGraduationEligibility(ctx context.Context, studentID string) (*dto.GraduationEligibility, error) {
	m.lastStudent = studentID
	return m.eligibility, m.err
}

func (m *academicHistoryServiceMock) MarkGraduated(ctx context.Context, studentID string, req dto.MarkGraduationRequest) (*dto.GraduationResult, error) {
	m.lastStudent = studentID
	m.lastGrad = req
	return m.graduation, m.err
}

func (m *academicHistoryServiceMock) GetAcademicSummary(ctx context.Context, studentID string) (*dto.AcademicSummary, error) {
	m.lastStudent = studentID
	return m.summary, m.err
}

type transcriptServiceMock struct {
	transcript *dto.Transcript
	err        error
}

func (m *transcriptServiceMock) Generate(ctx context.Context, studentID string) (*dto.Transcript, error) {
	return m.transcript, m.err
}

func newHistoryRouter(svc *academicHistoryServiceMock, transcripts *transcriptServiceMock) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewAcademicHistoryHandler(svc, transcripts)
	r := gin.New()
	r.POST("/academic-histories", h.Create)
	student := r.Group("/students/:studentId")
	student.GET("/academic-history", h.Get)
	student.POST("/academic-history/level-progression", h.CheckLevelProgression)
	student.GET("/graduation-eligibility", h.GraduationEligibility)
	student.POST("/graduation", h.MarkGraduated)
	student.GET("/transcript", h.Transcript)
	return r
}

func TestAcademicHistoryHandlerCreate(t *testing.T) {
	svc := &academicHistoryServiceMock{history: &models.AcademicHistory{ID: "hist-1", StudentID: "stu-1"}}
	r := newHistoryRouter(svc, &transcriptServiceMock{})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/academic-histories", bytes.NewBufferString(`{"studentId":"stu-1","admissionYear":2023}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 2023, svc.lastCreate.AdmissionYear)
}

func TestAcademicHistoryHandlerGetNotFound(t *testing.T) {
	svc := &academicHistoryServiceMock{err: appErrors.Clone(appErrors.ErrNotFound, "academic history not found")}
	r := newHistoryRouter(svc, &transcriptServiceMock{})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/students/stu-1/academic-history", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "stu-1", svc.lastStudent)
}

func TestAcademicHistoryHandlerMarkGraduatedParsesDate(t *testing.T) {
	svc := &academicHistoryServiceMock{graduation: &dto.GraduationResult{StudentID: "stu-1"}}
	r := newHistoryRouter(svc, &transcriptServiceMock{})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/students/stu-1/graduation", bytes.NewBufferString(`{"graduationDate":"2027-06-30"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, time.Date(2027, 6, 30, 0, 0, 0, 0, time.UTC), svc.lastGrad.GraduationDate)
}

func TestAcademicHistoryHandlerMarkGraduatedRejectsBadDate(t *testing.T) {
	svc := &academicHistoryServiceMock{}
	r := newHistoryRouter(svc, &transcriptServiceMock{})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/students/stu-1/graduation", bytes.NewBufferString(`{"graduationDate":"30/06/2027"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, svc.lastStudent)
}

func TestAcademicHistoryHandlerMarkGraduatedIneligible(t *testing.T) {
	svc := &academicHistoryServiceMock{err: appErrors.Clone(appErrors.ErrPreconditionFailed, "not eligible")}
	r := newHistoryRouter(svc, &transcriptServiceMock{})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/students/stu-1/graduation", bytes.NewBufferString(`{"graduationDate":"2027-06-30T10:00:00Z"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusPreconditionFailed, w.Code)
}

func TestAcademicHistoryHandlerEligibilityAndTranscript(t *testing.T) {
	svc := &academicHistoryServiceMock{eligibility: &dto.GraduationEligibility{StudentID: "stu-1", Eligible: true}}
	transcripts := &transcriptServiceMock{transcript: &dto.Transcript{StudentID: "stu-1", Semesters: []dto.TranscriptSemester{}}}
	r := newHistoryRouter(svc, transcripts)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/students/stu-1/graduation-eligibility", nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"eligible":true`)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/students/stu-1/transcript", nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"studentId":"stu-1"`)
}

type pingerStub struct {
	err error
}

func (p pingerStub) PingContext(ctx context.Context) error {
	return p.err
}

func TestMetricsHandlerReadyAndSummary(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics := service.NewMetricsService()
	r := gin.New()
	healthy := NewMetricsHandler(metrics, pingerStub{})
	broken := NewMetricsHandler(metrics, pingerStub{err: errors.New("connection refused")})
	r.GET("/ready", healthy.Ready)
	r.GET("/ready-broken", broken.Ready)
	r.GET("/metrics/summary", healthy.Summary)
	r.GET("/metrics", healthy.Prometheus)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/ready", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/ready-broken", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	metrics.RecordFinalization()
	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/metrics/summary", nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/metrics", nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "academic_semester_finalizations_total 1")
}
