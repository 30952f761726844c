package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academy-lifecycle-api/internal/dto"
	"github.com/noah-isme/academy-lifecycle-api/internal/models"
	appErrors "github.com/noah-isme/academy-lifecycle-api/pkg/errors"
	"github.com/noah-isme/academy-lifecycle-api/pkg/response"
)

type graduationService interface {
	Checklist(ctx context.Context, studentID string) (*models.GraduationChecklist, error)
	UpdateGrades(ctx context.Context, actor *models.AuthContext, studentID string, req dto.UpdateGradesRequest) (*models.Student, error)
	Graduate(ctx context.Context, actor *models.AuthContext, studentID string, req dto.GraduateRequest) (*models.Alumnus, error)
}

// GraduationHandler exposes grading and graduation endpoints.
type GraduationHandler struct {
	service graduationService
}

// NewGraduationHandler builds a new handler.
func NewGraduationHandler(service graduationService) *GraduationHandler {
	return &GraduationHandler{service: service}
}

// Checklist godoc
// @Summary Graduation checklist of a student
// @Tags Graduation
// @Produce json
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{studentId}/checklist [get]
func (h *GraduationHandler) Checklist(c *gin.Context) {
	checklist, err := h.service.Checklist(c.Request.Context(), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, checklist, nil)
}

// UpdateGrades godoc
// @Summary Apply exam grades
// @Tags Graduation
// @Accept json
// @Produce json
// @Param studentId path string true "Student ID"
// @Param payload body dto.UpdateGradesRequest true "Exam grades"
// @Success 200 {object} response.Envelope
// @Router /students/{studentId}/exams [put]
func (h *GraduationHandler) UpdateGrades(c *gin.Context) {
	var req dto.UpdateGradesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid exam grades payload"))
		return
	}
	student, err := h.service.UpdateGrades(c.Request.Context(), actorFromContext(c), c.Param("studentId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// Graduate godoc
// @Summary Graduate a student, optionally applying final grades first
// @Tags Graduation
// @Accept json
// @Produce json
// @Param studentId path string true "Student ID"
// @Param payload body dto.GraduateRequest false "Final exam grades"
// @Success 201 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /students/{studentId}/graduate [post]
func (h *GraduationHandler) Graduate(c *gin.Context) {
	var req dto.GraduateRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid graduation payload"))
			return
		}
	}
	alumnus, err := h.service.Graduate(c.Request.Context(), actorFromContext(c), c.Param("studentId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, alumnus)
}
