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

type enrollmentService interface {
	Enroll(ctx context.Context, actor *models.AuthContext, courseID string, req dto.EnrollRequest) (*models.Enrollment, error)
	Get(ctx context.Context, courseID, studentID string) (*models.Enrollment, error)
	ListByStatus(ctx context.Context, courseID string, status models.AssignmentStatus) ([]models.Enrollment, error)
	ListAssignments(ctx context.Context, courseID string) (*models.AssignmentBuckets, error)
}

type assignmentService interface {
	Assign(ctx context.Context, actor *models.AuthContext, courseID, studentID string, req dto.AssignRequest) (*models.Enrollment, error)
	Cancel(ctx context.Context, actor *models.AuthContext, courseID, studentID string, req dto.CancelRequest) (*models.Enrollment, error)
	Release(ctx context.Context, actor *models.AuthContext, courseID, studentID string) (*models.Enrollment, error)
	TutorDetail(ctx context.Context, tutorID string) (*models.TutorDetail, error)
}

// AssignmentHandler exposes course enrollment and tutor assignment endpoints.
type AssignmentHandler struct {
	enrollments enrollmentService
	assignments assignmentService
}

// NewAssignmentHandler builds a new handler.
func NewAssignmentHandler(enrollments enrollmentService, assignments assignmentService) *AssignmentHandler {
	return &AssignmentHandler{enrollments: enrollments, assignments: assignments}
}

// ListAssignments godoc
// @Summary List course enrollments grouped by assignment status
// @Tags Assignments
// @Produce json
// @Param courseId path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{courseId}/assignments [get]
func (h *AssignmentHandler) ListAssignments(c *gin.Context) {
	buckets, err := h.enrollments.ListAssignments(c.Request.Context(), c.Param("courseId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, buckets, nil)
}

// Enroll godoc
// @Summary Enroll a student on a course as pending
// @Tags Assignments
// @Accept json
// @Produce json
// @Param courseId path string true "Course ID"
// @Param payload body dto.EnrollRequest true "Enrollment payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /courses/{courseId}/enrollments [post]
func (h *AssignmentHandler) Enroll(c *gin.Context) {
	var req dto.EnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid enrollment payload"))
		return
	}
	enrollment, err := h.enrollments.Enroll(c.Request.Context(), actorFromContext(c), c.Param("courseId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, enrollment)
}

// ListEnrollments godoc
// @Summary List course enrollments in one status
// @Tags Assignments
// @Produce json
// @Param courseId path string true "Course ID"
// @Param status query string false "PENDING, ASSIGNED or CANCELLED" default(PENDING)
// @Success 200 {object} response.Envelope
// @Router /courses/{courseId}/enrollments [get]
func (h *AssignmentHandler) ListEnrollments(c *gin.Context) {
	status := models.AssignmentStatus(c.DefaultQuery("status", string(models.AssignmentStatusPending)))
	enrollments, err := h.enrollments.ListByStatus(c.Request.Context(), c.Param("courseId"), status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollments, nil)
}

// GetEnrollment godoc
// @Summary Get one enrollment
// @Tags Assignments
// @Produce json
// @Param courseId path string true "Course ID"
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{courseId}/enrollments/{studentId} [get]
func (h *AssignmentHandler) GetEnrollment(c *gin.Context) {
	enrollment, err := h.enrollments.Get(c.Request.Context(), c.Param("courseId"), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollment, nil)
}

// Assign godoc
// @Summary Assign a pending enrollment to a tutor
// @Tags Assignments
// @Accept json
// @Produce json
// @Param courseId path string true "Course ID"
// @Param studentId path string true "Student ID"
// @Param payload body dto.AssignRequest true "Assignment payload"
// @Success 200 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /courses/{courseId}/enrollments/{studentId}/assign [post]
func (h *AssignmentHandler) Assign(c *gin.Context) {
	var req dto.AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "tutor required"))
		return
	}
	enrollment, err := h.assignments.Assign(c.Request.Context(), actorFromContext(c), c.Param("courseId"), c.Param("studentId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollment, nil)
}

// Cancel godoc
// @Summary Cancel an enrollment
// @Tags Assignments
// @Accept json
// @Produce json
// @Param courseId path string true "Course ID"
// @Param studentId path string true "Student ID"
// @Param payload body dto.CancelRequest true "Cancellation payload"
// @Success 200 {object} response.Envelope
// @Router /courses/{courseId}/enrollments/{studentId}/cancel [post]
func (h *AssignmentHandler) Cancel(c *gin.Context) {
	var req dto.CancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "cancel reason required"))
		return
	}
	enrollment, err := h.assignments.Cancel(c.Request.Context(), actorFromContext(c), c.Param("courseId"), c.Param("studentId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollment, nil)
}

// Release godoc
// @Summary Release an assigned enrollment back to pending
// @Tags Assignments
// @Produce json
// @Param courseId path string true "Course ID"
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{courseId}/enrollments/{studentId}/release [post]
func (h *AssignmentHandler) Release(c *gin.Context) {
	enrollment, err := h.assignments.Release(c.Request.Context(), actorFromContext(c), c.Param("courseId"), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollment, nil)
}

// GetTutor godoc
// @Summary Get a tutor with its active and certified rosters
// @Tags Assignments
// @Produce json
// @Param tutorId path string true "Tutor ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /tutors/{tutorId} [get]
func (h *AssignmentHandler) GetTutor(c *gin.Context) {
	detail, err := h.assignments.TutorDetail(c.Request.Context(), c.Param("tutorId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}
