package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academy-lifecycle-api/internal/dto"
	"github.com/noah-isme/academy-lifecycle-api/internal/models"
	appErrors "github.com/noah-isme/academy-lifecycle-api/pkg/errors"
	"github.com/noah-isme/academy-lifecycle-api/pkg/response"
)

type settlementService interface {
	RecordPayment(ctx context.Context, actor *models.AuthContext, tutorID, studentID string, req dto.PaymentRequest) (*models.Settlement, error)
	Settlement(ctx context.Context, tutorID, studentID, courseID string) (*models.Settlement, error)
	FinanceOverview(ctx context.Context) (*models.FinanceOverview, bool, error)
	ExportLedgerCSV(ctx context.Context) ([]byte, error)
}

// FinanceHandler exposes tutor settlement and revenue endpoints.
type FinanceHandler struct {
	service settlementService
	now     func() time.Time
}

// NewFinanceHandler builds a new handler.
func NewFinanceHandler(service settlementService) *FinanceHandler {
	return &FinanceHandler{service: service, now: time.Now}
}

// RecordPayment godoc
// @Summary Record the settlement payment of a tutor for one student
// @Tags Finance
// @Accept json
// @Produce json
// @Param tutorId path string true "Tutor ID"
// @Param studentId path string true "Student ID"
// @Param payload body dto.PaymentRequest true "Payment payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /tutors/{tutorId}/students/{studentId}/payments [post]
func (h *FinanceHandler) RecordPayment(c *gin.Context) {
	var req dto.PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payment payload"))
		return
	}
	settlement, err := h.service.RecordPayment(c.Request.Context(), actorFromContext(c), c.Param("tutorId"), c.Param("studentId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, settlement, nil)
}

// GetSettlement godoc
// @Summary Get the settlement of a tutor for one student
// @Tags Finance
// @Produce json
// @Param tutorId path string true "Tutor ID"
// @Param studentId path string true "Student ID"
// @Param courseId query string false "Course ID, defaults to the latest assigned course"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /tutors/{tutorId}/students/{studentId}/settlement [get]
func (h *FinanceHandler) GetSettlement(c *gin.Context) {
	settlement, err := h.service.Settlement(c.Request.Context(), c.Param("tutorId"), c.Param("studentId"), c.Query("courseId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, settlement, nil)
}

// Overview godoc
// @Summary Revenue and tutor payout overview
// @Tags Finance
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /finance/overview [get]
func (h *FinanceHandler) Overview(c *gin.Context) {
	overview, hit, err := h.service.FinanceOverview(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	respondWithMeta(c, http.StatusOK, overview, hit)
}

// ExportLedger godoc
// @Summary Download the tutor settlement ledger
// @Tags Finance
// @Produce text/csv
// @Success 200 {file} file
// @Router /finance/ledger/export [get]
func (h *FinanceHandler) ExportLedger(c *gin.Context) {
	content, err := h.service.ExportLedgerCSV(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	filename := fmt.Sprintf("settlement-ledger-%s.csv", h.now().UTC().Format("20060102"))
	response.Attachment(c, filename, "text/csv", content)
}
