package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academy-lifecycle-api/internal/dto"
	"github.com/noah-isme/academy-lifecycle-api/internal/models"
	appErrors "github.com/noah-isme/academy-lifecycle-api/pkg/errors"
	"github.com/noah-isme/academy-lifecycle-api/pkg/response"
)

type subscriptionService interface {
	RecordCpd(ctx context.Context, actor *models.AuthContext, alumnusID string, req dto.CpdRequest) (*models.CpdRecord, error)
	RecordSubscriptionPayment(ctx context.Context, actor *models.AuthContext, alumnusID string, req dto.SubscriptionPaymentRequest) (*models.SubscriptionPayment, error)
	StatsForYear(ctx context.Context, year int) (*models.SubscriptionStats, bool, error)
	PracticingHistory(ctx context.Context, alumnusID string) ([]models.PracticingYear, error)
	ExportPracticingCertificate(ctx context.Context, alumnusID string) ([]byte, error)
}

// AlumniHandler exposes CPD, subscription and public practicing-status endpoints.
type AlumniHandler struct {
	service subscriptionService
	now     func() time.Time
}

// NewAlumniHandler builds a new handler.
func NewAlumniHandler(service subscriptionService) *AlumniHandler {
	return &AlumniHandler{service: service, now: time.Now}
}

// RecordCpd godoc
// @Summary Record or overwrite the CPD entry of an alumnus for a year
// @Tags Alumni
// @Accept json
// @Produce json
// @Param alumnusId path string true "Alumnus ID"
// @Param payload body dto.CpdRequest true "CPD record"
// @Success 200 {object} response.Envelope
// @Router /alumni/{alumnusId}/cpd [put]
func (h *AlumniHandler) RecordCpd(c *gin.Context) {
	var req dto.CpdRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid cpd payload"))
		return
	}
	record, err := h.service.RecordCpd(c.Request.Context(), actorFromContext(c), c.Param("alumnusId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// RecordSubscriptionPayment godoc
// @Summary Record a yearly subscription payment
// @Tags Alumni
// @Accept json
// @Produce json
// @Param alumnusId path string true "Alumnus ID"
// @Param payload body dto.SubscriptionPaymentRequest true "Subscription payment"
// @Success 201 {object} response.Envelope
// @Router /alumni/{alumnusId}/subscriptions [post]
func (h *AlumniHandler) RecordSubscriptionPayment(c *gin.Context) {
	var req dto.SubscriptionPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid subscription payload"))
		return
	}
	payment, err := h.service.RecordSubscriptionPayment(c.Request.Context(), actorFromContext(c), c.Param("alumnusId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, payment)
}

// SubscriptionStats godoc
// @Summary Subscription statistics for a year
// @Tags Alumni
// @Produce json
// @Param year query int false "Year (defaults to current)"
// @Success 200 {object} response.Envelope
// @Router /subscriptions/stats [get]
func (h *AlumniHandler) SubscriptionStats(c *gin.Context) {
	year := h.now().Year()
	if raw := c.Query("year"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "year must be numeric"))
			return
		}
		year = parsed
	}
	stats, hit, err := h.service.StatsForYear(c.Request.Context(), year)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondWithMeta(c, http.StatusOK, stats, hit)
}

// PracticingHistory godoc
// @Summary Public practicing history of an alumnus
// @Tags Public
// @Produce json
// @Param alumnusId path string true "Alumnus ID"
// @Success 200 {object} response.Envelope
// @Router /public/alumni/{alumnusId}/practicing [get]
func (h *AlumniHandler) PracticingHistory(c *gin.Context) {
	history, err := h.service.PracticingHistory(c.Request.Context(), c.Param("alumnusId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, history, nil)
}

// PracticingCertificate godoc
// @Summary Download the practicing certificate of an alumnus
// @Tags Public
// @Produce application/pdf
// @Param alumnusId path string true "Alumnus ID"
// @Success 200 {file} file
// @Router /public/alumni/{alumnusId}/practicing/certificate [get]
func (h *AlumniHandler) PracticingCertificate(c *gin.Context) {
	alumnusID := c.Param("alumnusId")
	content, err := h.service.ExportPracticingCertificate(c.Request.Context(), alumnusID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, fmt.Sprintf("practicing-%s.pdf", alumnusID), "application/pdf", content)
}
