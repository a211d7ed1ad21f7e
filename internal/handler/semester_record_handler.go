package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academic-standing/internal/dto"
	"github.com/noah-isme/academic-standing/internal/models"
	appErrors "github.com/noah-isme/academic-standing/pkg/errors"
	"github.com/noah-isme/academic-standing/pkg/response"
)

type semesterRecordService interface {
	Create(ctx context.Context, req dto.CreateSemesterRecordRequest) (*models.SemesterRecord, error)
	Get(ctx context.Context, studentID, semesterID string) (*models.SemesterRecord, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.SemesterRecord, error)
	UpdateStatistics(ctx context.Context, studentID, semesterID string, req dto.UpdateSemesterStatisticsRequest) (*models.SemesterRecord, error)
	CalculateGPA(ctx context.Context, studentID, semesterID string) (*dto.SemesterGPAResult, error)
	UpdateStanding(ctx context.Context, studentID, semesterID string) (*dto.StandingResult, error)
	Finalize(ctx context.Context, studentID, semesterID string, req dto.FinalizeSemesterRequest) (*dto.FinalizeSemesterResult, error)
	GetStatistics(ctx context.Context, studentID, semesterID string) (*dto.SemesterStatistics, error)
}

// SemesterRecordHandler exposes per-semester record endpoints.
type SemesterRecordHandler struct {
	service semesterRecordService
}

// NewSemesterRecordHandler builds a new handler.
func NewSemesterRecordHandler(service semesterRecordService) *SemesterRecordHandler {
	return &SemesterRecordHandler{service: service}
}

// Create godoc
// @Summary Open a semester record
// @Tags SemesterRecords
// @Accept json
// @Produce json
// @Param payload body dto.CreateSemesterRecordRequest true "Semester record payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /semester-records [post]
func (h *SemesterRecordHandler) Create(c *gin.Context) {
	var req dto.CreateSemesterRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid semester record payload"))
		return
	}
	record, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, record)
}

// List godoc
// @Summary List a student's semester records
// @Tags SemesterRecords
// @Produce json
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{studentId}/semester-records [get]
func (h *SemesterRecordHandler) List(c *gin.Context) {
	records, err := h.service.ListByStudent(c.Request.Context(), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, map[string]interface{}{"count": len(records)})
}

// Get godoc
// @Summary Get a semester record
// @Tags SemesterRecords
// @Produce json
// @Param studentId path string true "Student ID"
// @Param semesterId path string true "Semester ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{studentId}/semesters/{semesterId}/record [get]
func (h *SemesterRecordHandler) Get(c *gin.Context) {
	record, err := h.service.Get(c.Request.Context(), c.Param("studentId"), c.Param("semesterId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record)
}

// UpdateStatistics godoc
// @Summary Update registration counters of an open record
// @Tags SemesterRecords
// @Accept json
// @Produce json
// @Param studentId path string true "Student ID"
// @Param semesterId path string true "Semester ID"
// @Param payload body dto.UpdateSemesterStatisticsRequest true "Counters"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /students/{studentId}/semesters/{semesterId}/record [patch]
func (h *SemesterRecordHandler) UpdateStatistics(c *gin.Context) {
	var req dto.UpdateSemesterStatisticsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid statistics payload"))
		return
	}
	record, err := h.service.UpdateStatistics(c.Request.Context(), c.Param("studentId"), c.Param("semesterId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record)
}

// CalculateGPA godoc
// @Summary Recalculate the semester GPA
// @Tags SemesterRecords
// @Produce json
// @Param studentId path string true "Student ID"
// @Param semesterId path string true "Semester ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /students/{studentId}/semesters/{semesterId}/record/gpa [post]
func (h *SemesterRecordHandler) CalculateGPA(c *gin.Context) {
	result, err := h.service.CalculateGPA(c.Request.Context(), c.Param("studentId"), c.Param("semesterId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// UpdateStanding godoc
// @Summary Classify the semester standing
// @Tags SemesterRecords
// @Produce json
// @Param studentId path string true "Student ID"
// @Param semesterId path string true "Semester ID"
// @Success 200 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /students/{studentId}/semesters/{semesterId}/record/standing [post]
func (h *SemesterRecordHandler) UpdateStanding(c *gin.Context) {
	result, err := h.service.UpdateStanding(c.Request.Context(), c.Param("studentId"), c.Param("semesterId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// Finalize godoc
// @Summary Finalize a semester record
// @Description Calculates GPA, classifies standing, locks the record and refreshes the academic history.
// @Tags SemesterRecords
// @Accept json
// @Produce json
// @Param studentId path string true "Student ID"
// @Param semesterId path string true "Semester ID"
// @Param payload body dto.FinalizeSemesterRequest true "Finalize payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /students/{studentId}/semesters/{semesterId}/record/finalize [post]
func (h *SemesterRecordHandler) Finalize(c *gin.Context) {
	var req dto.FinalizeSemesterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid finalize payload"))
		return
	}
	result, err := h.service.Finalize(c.Request.Context(), c.Param("studentId"), c.Param("semesterId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// Statistics godoc
// @Summary Get semester statistics
// @Tags SemesterRecords
// @Produce json
// @Param studentId path string true "Student ID"
// @Param semesterId path string true "Semester ID"
// @Success 200 {object} response.Envelope
// @Router /students/{studentId}/semesters/{semesterId}/record/statistics [get]
func (h *SemesterRecordHandler) Statistics(c *gin.Context) {
	stats, err := h.service.GetStatistics(c.Request.Context(), c.Param("studentId"), c.Param("semesterId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats)
}
