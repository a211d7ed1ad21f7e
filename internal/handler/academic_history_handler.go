package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academic-standing/internal/dto"
	"github.com/noah-isme/academic-standing/internal/models"
	appErrors "github.com/noah-isme/academic-standing/pkg/errors"
	"github.com/noah-isme/academic-standing/pkg/response"
)

type academicHistoryService interface {
	Create(ctx context.Context, req dto.CreateAcademicHistoryRequest) (*models.AcademicHistory, error)
	Get(ctx context.Context, studentID string) (*models.AcademicHistory, error)
	UpdateCumulativeGPA(ctx context.Context, studentID string) (*dto.CumulativeGPAResult, error)
	CheckLevelProgression(ctx context.Context, studentID string) (*dto.LevelProgressionResult, error)
	UpdateStanding(ctx context.Context, studentID string) (*dto.StandingResult, error)
	UpdateCurrentSemester(ctx context.Context, studentID string, req dto.UpdateCurrentSemesterRequest) (*models.AcademicHistory, error)
	CheckGraduationEligibility(ctx context.Context, studentID string) (*dto.GraduationEligibility, error)
	MarkGraduated(ctx context.Context, studentID string, req dto.MarkGraduationRequest) (*dto.GraduationResult, error)
	GetAcademicSummary(ctx context.Context, studentID string) (*dto.AcademicSummary, error)
}

type transcriptService interface {
	Generate(ctx context.Context, studentID string) (*dto.Transcript, error)
}

// AcademicHistoryHandler exposes lifetime history, graduation and transcript endpoints.
type AcademicHistoryHandler struct {
	service     academicHistoryService
	transcripts transcriptService
}

// NewAcademicHistoryHandler builds a new handler.
func NewAcademicHistoryHandler(service academicHistoryService, transcripts transcriptService) *AcademicHistoryHandler {
	return &AcademicHistoryHandler{service: service, transcripts: transcripts}
}

// graduationPayload accepts either a calendar date or an RFC3339 timestamp.
type graduationPayload struct {
	GraduationDate string `json:"graduationDate"`
}

// Create godoc
// @Summary Open a student's academic history
// @Tags AcademicHistory
// @Accept json
// @Produce json
// @Param payload body dto.CreateAcademicHistoryRequest true "History payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /academic-histories [post]
func (h *AcademicHistoryHandler) Create(c *gin.Context) {
	var req dto.CreateAcademicHistoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid academic history payload"))
		return
	}
	history, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, history)
}

// Get godoc
// @Summary Get a student's academic history
// @Tags AcademicHistory
// @Produce json
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{studentId}/academic-history [get]
func (h *AcademicHistoryHandler) Get(c *gin.Context) {
	history, err := h.service.Get(c.Request.Context(), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, history)
}

// UpdateCumulativeGPA godoc
// @Summary Recompute cumulative GPA from finalized semesters
// @Tags AcademicHistory
// @Produce json
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{studentId}/academic-history/cumulative-gpa [post]
func (h *AcademicHistoryHandler) UpdateCumulativeGPA(c *gin.Context) {
	result, err := h.service.UpdateCumulativeGPA(c.Request.Context(), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// CheckLevelProgression godoc
// @Summary Resolve the student's level from credits earned
// @Tags AcademicHistory
// @Produce json
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{studentId}/academic-history/level-progression [post]
func (h *AcademicHistoryHandler) CheckLevelProgression(c *gin.Context) {
	result, err := h.service.CheckLevelProgression(c.Request.Context(), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// UpdateStanding godoc
// @Summary Classify the student's cumulative standing
// @Tags AcademicHistory
// @Produce json
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /students/{studentId}/academic-history/standing [post]
func (h *AcademicHistoryHandler) UpdateStanding(c *gin.Context) {
	result, err := h.service.UpdateStanding(c.Request.Context(), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// UpdateCurrentSemester godoc
// @Summary Move the current semester pointer
// @Tags AcademicHistory
// @Accept json
// @Produce json
// @Param studentId path string true "Student ID"
// @Param payload body dto.UpdateCurrentSemesterRequest true "Semester payload"
// @Success 200 {object} response.Envelope
// @Router /students/{studentId}/academic-history/current-semester [put]
func (h *AcademicHistoryHandler) UpdateCurrentSemester(c *gin.Context) {
	var req dto.UpdateCurrentSemesterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid current semester payload"))
		return
	}
	history, err := h.service.UpdateCurrentSemester(c.Request.Context(), c.Param("studentId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, history)
}

// GraduationEligibility godoc
// @Summary Check graduation eligibility
// @Tags Graduation
// @Produce json
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /students/{studentId}/graduation-eligibility [get]
func (h *AcademicHistoryHandler) GraduationEligibility(c *gin.Context) {
	result, err := h.service.CheckGraduationEligibility(c.Request.Context(), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// MarkGraduated godoc
// @Summary Mark a student as graduated
// @Tags Graduation
// @Accept json
// @Produce json
// @Param studentId path string true "Student ID"
// @Param payload body graduationPayload true "Graduation date (YYYY-MM-DD or RFC3339)"
// @Success 200 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /students/{studentId}/graduation [post]
func (h *AcademicHistoryHandler) MarkGraduated(c *gin.Context) {
	var payload graduationPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid graduation payload"))
		return
	}
	date, err := parseDate(payload.GraduationDate)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "graduationDate must be YYYY-MM-DD or RFC3339"))
		return
	}
	result, err := h.service.MarkGraduated(c.Request.Context(), c.Param("studentId"), dto.MarkGraduationRequest{GraduationDate: date})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// Summary godoc
// @Summary Get a student's academic summary
// @Tags AcademicHistory
// @Produce json
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{studentId}/academic-summary [get]
func (h *AcademicHistoryHandler) Summary(c *gin.Context) {
	summary, err := h.service.GetAcademicSummary(c.Request.Context(), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary)
}

// Transcript godoc
// @Summary Get a student's transcript
// @Tags AcademicHistory
// @Produce json
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{studentId}/transcript [get]
func (h *AcademicHistoryHandler) Transcript(c *gin.Context) {
	transcript, err := h.transcripts.Generate(c.Request.Context(), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, transcript)
}

func parseDate(value string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, value)
}
