package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academic-standing/internal/dto"
	"github.com/noah-isme/academic-standing/internal/models"
	appErrors "github.com/noah-isme/academic-standing/pkg/errors"
)

type semesterRecordServiceMock struct {
	record       *models.SemesterRecord
	records      []models.SemesterRecord
	gpa          *dto.SemesterGPAResult
	standing     *dto.StandingResult
	finalize     *dto.FinalizeSemesterResult
	stats        *dto.SemesterStatistics
	err          error
	lastStudent  string
	lastSemester string
	lastCreate   dto.CreateSemesterRecordRequest
	lastFinalize dto.FinalizeSemesterRequest
	lastCounts   dto.UpdateSemesterStatisticsRequest
}

func (m *semesterRecordServiceMock) Create(ctx context.Context, req dto.CreateSemesterRecordRequest) (*models.SemesterRecord, error) {
	m.lastCreate = req
	return m.record, m.err
}

func (m *semesterRecordServiceMock) Get(ctx context.Context, studentID, semesterID string) (*models.SemesterRecord, error) {
	m.lastStudent, m.lastSemester = studentID, semesterID
	return m.record, m.err
}

func (m *semesterRecordServiceMock) ListByStudent(ctx context.Context, studentID string) ([]models.SemesterRecord, error) {
	m.lastStudent = studentID
	return m.records, m.err
}

func (m *semesterRecordServiceMock) UpdateStatistics(ctx context.Context, studentID, semesterID string, req dto.UpdateSemesterStatisticsRequest) (*models.SemesterRecord, error) {
	m.lastStudent, m.lastSemester = studentID, semesterID
	m.lastCounts = req
	return m.record, m.err
}

func (m *semesterRecordServiceMock) CalculateGPA(ctx context.Context, studentID, semesterID string) (*dto.SemesterGPAResult, error) {
	m.lastStudent, m.lastSemester = studentID, semesterID
	return m.gpa, m.err
}

func (m *semesterRecordServiceMock) UpdateStanding(ctx context.Context, studentID, semesterID string) (*dto.StandingResult, error) {
	m.lastStudent, m.lastSemester = studentID, semesterID
	return m.standing, m.err
}

func (m *semesterRecordServiceMock) Finalize(ctx context.Context, studentID, semesterID string, req dto.FinalizeSemesterRequest) (*dto.FinalizeSemesterResult, error) {
	m.lastStudent, m.lastSemester = studentID, semesterID
	m.lastFinalize = req
	return m.finalize, m.err
}

func (m *semesterRecordServiceMock) GetStatistics(ctx context.Context, studentID, semesterID string) (*dto.SemesterStatistics, error) {
	m.lastStudent, m.lastSemester = studentID, semesterID
	return m.stats, m.err
}

func newSemesterRouter(svc *semesterRecordServiceMock) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewSemesterRecordHandler(svc)
	r := gin.New()
	r.POST("/semester-records", h.Create)
	r.GET("/students/:studentId/semester-records", h.List)
	record := r.Group("/students/:studentId/semesters/:semesterId/record")
	record.GET("", h.Get)
	record.PATCH("", h.UpdateStatistics)
	record.POST("/gpa", h.CalculateGPA)
	record.POST("/standing", h.UpdateStanding)
	record.POST("/finalize", h.Finalize)
	record.GET("/statistics", h.Statistics)
	return r
}

func TestSemesterRecordHandlerCreate(t *testing.T) {
	svc := &semesterRecordServiceMock{record: &models.SemesterRecord{ID: "rec-1"}}
	r := newSemesterRouter(svc)

	body, _ := json.Marshal(dto.CreateSemesterRecordRequest{StudentID: "stu-1", SemesterID: "sem-1"})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/semester-records", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "sem-1", svc.lastCreate.SemesterID)
}

func TestSemesterRecordHandlerCreateInvalidBody(t *testing.T) {
	r := newSemesterRouter(&semesterRecordServiceMock{})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/semester-records", bytes.NewBufferString(`{"studentId":`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSemesterRecordHandlerCalculateGPA(t *testing.T) {
	svc := &semesterRecordServiceMock{gpa: &dto.SemesterGPAResult{
		HasData:     true,
		SemesterGPA: decimal.NewNullDecimal(decimal.RequireFromString("3.05")),
	}}
	r := newSemesterRouter(svc)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/students/stu-1/semesters/sem-1/record/gpa", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "stu-1", svc.lastStudent)
	assert.Equal(t, "sem-1", svc.lastSemester)
	var body struct {
		Data dto.SemesterGPAResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "3.05", body.Data.SemesterGPA.Decimal.StringFixed(2))
}

func TestSemesterRecordHandlerFinalizedConflict(t *testing.T) {
	svc := &semesterRecordServiceMock{err: appErrors.Clone(appErrors.ErrFinalized, "semester record is finalized")}
	r := newSemesterRouter(svc)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/students/stu-1/semesters/sem-1/record/finalize", bytes.NewBufferString(`{"finalizedBy":"registrar"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "registrar", svc.lastFinalize.FinalizedBy)
	assert.Contains(t, w.Body.String(), "FINALIZED")
}

func TestSemesterRecordHandlerUpdateStatistics(t *testing.T) {
	svc := &semesterRecordServiceMock{record: &models.SemesterRecord{ID: "rec-1", CoursesRegistered: 6}}
	r := newSemesterRouter(svc)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPatch, "/students/stu-1/semesters/sem-1/record", bytes.NewBufferString(`{"coursesRegistered":6}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, svc.lastCounts.CoursesRegistered)
	assert.Equal(t, 6, *svc.lastCounts.CoursesRegistered)
	assert.Nil(t, svc.lastCounts.CoursesDropped)
}

func TestSemesterRecordHandlerGetNotFound(t *testing.T) {
	svc := &semesterRecordServiceMock{err: appErrors.ErrNotFound}
	r := newSemesterRouter(svc)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/students/stu-1/semesters/sem-9/record", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestSemesterRecordHandlerList(t *testing.T) {
	svc := &semesterRecordServiceMock{records: []models.SemesterRecord{{ID: "a"}, {ID: "b"}}}
	r := newSemesterRouter(svc)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/students/stu-1/semester-records", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":2`)
}
