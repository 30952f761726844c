package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/academy-lifecycle-api/internal/dto"
	"github.com/noah-isme/academy-lifecycle-api/internal/models"
	"github.com/noah-isme/academy-lifecycle-api/internal/repository"
	appErrors "github.com/noah-isme/academy-lifecycle-api/pkg/errors"
	"github.com/noah-isme/academy-lifecycle-api/pkg/export"
)

type alumniRepository interface {
	FindByID(ctx context.Context, id string) (*models.Alumnus, error)
	UpsertCpd(ctx context.Context, record *models.CpdRecord) error
	ListCpd(ctx context.Context, alumnusID string) ([]models.CpdRecord, error)
	CreateSubscriptionPayment(ctx context.Context, payment *models.SubscriptionPayment) error
	ListSubscriptionPayments(ctx context.Context, year int) ([]models.SubscriptionPayment, error)
	ListGraduatedBefore(ctx context.Context, cutoff time.Time) ([]models.AlumnusSummary, error)
}

// YearsCovered lists every year from the first CPD record (or the graduation year when there is none)
// through the later of currentYear and the newest record, newest first.
func YearsCovered(graduatedAt time.Time, records []models.CpdRecord, currentYear int) []int {
	first := graduatedAt.Year()
	last := currentYear
	for i, r := range records {
		if i == 0 || r.Year < first {
			first = r.Year
		}
		if r.Year > last {
			last = r.Year
		}
	}
	if first > last {
		first = last
	}
	years := make([]int, 0, last-first+1)
	for y := last; y >= first; y-- {
		years = append(years, y)
	}
	return years
}

// PracticingStatus is active for a year iff a CPD record exists for it.
func PracticingStatus(records []models.CpdRecord, year int) models.PracticingStatus {
	for _, r := range records {
		if r.Year == year {
			return models.PracticingActive
		}
	}
	return models.PracticingInactive
}

// SubscriptionServiceConfig tunes subscription behaviour.
type SubscriptionServiceConfig struct {
	StatsTTL time.Duration
}

// SubscriptionService tracks alumni CPD records and subscription payments.
type SubscriptionService struct {
	repo      alumniRepository
	cache     *CacheService
	pdf       *export.PDFExporter
	metrics   operationRecorder
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
	cfg       SubscriptionServiceConfig
}

// SubscriptionServiceParams groups constructor dependencies.
type SubscriptionServiceParams struct {
	Repo      alumniRepository
	Cache     *CacheService
	Metrics   *MetricsService
	Validator *validator.Validate
	Logger    *zap.Logger
	Config    SubscriptionServiceConfig
}

// NewSubscriptionService constructs SubscriptionService.
func NewSubscriptionService(params SubscriptionServiceParams) *SubscriptionService {
	cfg := params.Config
	if cfg.StatsTTL <= 0 {
		cfg.StatsTTL = 10 * time.Minute
	}
	validate := params.Validator
	if validate == nil {
		validate = validator.New()
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubscriptionService{
		repo:      params.Repo,
		cache:     params.Cache,
		pdf:       export.NewPDFExporter(),
		metrics:   params.Metrics,
		validator: validate,
		logger:    logger,
		now:       time.Now,
		cfg:       cfg,
	}
}

// RecordCpd stores the CPD record of an alumnus for a year, overwriting an earlier one.
func (s *SubscriptionService) RecordCpd(ctx context.Context, actor *models.AuthContext, alumnusID string, req dto.CpdRequest) (cpd *models.CpdRecord, err error) {
	defer func() { record(s.metrics, opRecordCpd, err) }()

	if err := authorize(actor); err != nil {
		return nil, err
	}
	req.Remarks = strings.TrimSpace(req.Remarks)
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidPayload(err, "invalid cpd record")
	}
	alumnus, err := s.repo.FindByID(ctx, alumnusID)
	if err != nil {
		return nil, storeError(err, "alumnus not found", "load alumnus")
	}

	cpd = &models.CpdRecord{
		AlumnusID: alumnus.ID,
		Year:      req.Year,
		DateTaken: req.DateTaken.UTC(),
		Result:    req.Result,
		Score:     req.Score,
		Remarks:   req.Remarks,
		UpdatedAt: s.now().UTC(),
	}
	if err := s.repo.UpsertCpd(ctx, cpd); err != nil {
		return nil, appErrors.Internal(err, "failed to record cpd")
	}
	s.logger.Info("cpd recorded", zap.String("alumnus_id", alumnus.ID), zap.Int("year", req.Year), zap.String("actor", actor.UserID))
	return cpd, nil
}

// RecordSubscriptionPayment appends a yearly subscription payment. It does not affect practicing status.
func (s *SubscriptionService) RecordSubscriptionPayment(ctx context.Context, actor *models.AuthContext, alumnusID string, req dto.SubscriptionPaymentRequest) (payment *models.SubscriptionPayment, err error) {
	defer func() { record(s.metrics, opSubscriptionPayment, err) }()

	if err := authorize(actor); err != nil {
		return nil, err
	}
	req.PaymentMethod = strings.TrimSpace(req.PaymentMethod)
	req.TransactionID = strings.TrimSpace(req.TransactionID)
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidPayload(err, "invalid subscription payment")
	}
	alumnus, err := s.repo.FindByID(ctx, alumnusID)
	if err != nil {
		return nil, storeError(err, "alumnus not found", "load alumnus")
	}

	paidAt := s.now().UTC()
	if req.PaymentDate != nil {
		paidAt = req.PaymentDate.UTC()
	}
	payment = &models.SubscriptionPayment{
		AlumnusID:     alumnus.ID,
		FullName:      alumnus.FullName,
		Year:          req.Year,
		Amount:        req.Amount,
		PaymentMethod: req.PaymentMethod,
		TransactionID: req.TransactionID,
		PaymentDate:   paidAt,
	}
	if err := s.repo.CreateSubscriptionPayment(ctx, payment); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateYear):
			return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("subscription for %d already paid", req.Year))
		case errors.Is(err, repository.ErrDuplicate):
			return nil, appErrors.Clone(appErrors.ErrConflict, "subscription payment already recorded for transaction")
		}
		return nil, appErrors.Internal(err, "failed to record subscription payment")
	}
	if err := s.cache.Invalidate(ctx, fmt.Sprintf(subscriptionStatsKey, req.Year)); err != nil {
		s.logger.Warn("failed to invalidate subscription stats cache", zap.Int("year", req.Year), zap.Error(err))
	}
	s.logger.Info("subscription payment recorded", zap.String("alumnus_id", alumnus.ID), zap.Int("year", req.Year), zap.String("actor", actor.UserID))
	return payment, nil
}

// PracticingHistory returns one row per covered year, newest first.
func (s *SubscriptionService) PracticingHistory(ctx context.Context, alumnusID string) ([]models.PracticingYear, error) {
	alumnus, err := s.repo.FindByID(ctx, alumnusID)
	if err != nil {
		return nil, storeError(err, "alumnus not found", "load alumnus")
	}
	return s.history(ctx, alumnus)
}

func (s *SubscriptionService) history(ctx context.Context, alumnus *models.Alumnus) ([]models.PracticingYear, error) {
	records, err := s.repo.ListCpd(ctx, alumnus.ID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load cpd records")
	}
	byYear := make(map[int]models.CpdRecord, len(records))
	for _, r := range records {
		byYear[r.Year] = r
	}

	years := YearsCovered(alumnus.GraduatedAt, records, s.now().Year())
	history := make([]models.PracticingYear, 0, len(years))
	for _, year := range years {
		row := models.PracticingYear{Year: year, Status: PracticingStatus(records, year)}
		if r, ok := byYear[year]; ok {
			row.CpdPoints = r.Score
		}
		history = append(history, row)
	}
	return history, nil
}

// StatsForYear summarises subscription payments for a year. Alumni graduated by the end of the year who
// have not paid are pending while the year is current or ahead, and expired once it has passed.
func (s *SubscriptionService) StatsForYear(ctx context.Context, year int) (*models.SubscriptionStats, bool, error) {
	if year < 1900 || year > 9999 {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "year must be between 1900 and 9999")
	}
	key := fmt.Sprintf(subscriptionStatsKey, year)
	var cached models.SubscriptionStats
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return &cached, true, nil
	}

	payments, err := s.repo.ListSubscriptionPayments(ctx, year)
	if err != nil {
		return nil, false, appErrors.Internal(err, "failed to load subscription payments")
	}
	alumni, err := s.repo.ListGraduatedBefore(ctx, time.Date(year+1, time.January, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		return nil, false, appErrors.Internal(err, "failed to load alumni")
	}

	stats := &models.SubscriptionStats{
		Year:            year,
		RevenueByMethod: map[string]float64{},
		PaidAlumni:      []models.PaidAlumnus{},
	}
	paid := make(map[string]struct{}, len(payments))
	for _, p := range payments {
		paid[p.AlumnusID] = struct{}{}
		stats.TotalRevenue += p.Amount
		stats.RevenueByMethod[p.PaymentMethod] += p.Amount
		stats.PaidAlumni = append(stats.PaidAlumni, models.PaidAlumnus{
			AlumnusID:     p.AlumnusID,
			FullName:      p.FullName,
			Amount:        p.Amount,
			PaymentMethod: p.PaymentMethod,
			PaymentDate:   p.PaymentDate,
		})
	}
	stats.Paid = len(paid)

	lapsed := year < s.now().Year()
	for _, a := range alumni {
		if _, ok := paid[a.ID]; ok {
			continue
		}
		if lapsed {
			stats.Expired++
		} else {
			stats.Pending++
		}
	}

	_ = s.cache.Set(ctx, key, stats, s.cfg.StatsTTL)
	return stats, false, nil
}

// ExportPracticingCertificate renders the practicing history of an alumnus as a PDF certificate.
func (s *SubscriptionService) ExportPracticingCertificate(ctx context.Context, alumnusID string) ([]byte, error) {
	alumnus, err := s.repo.FindByID(ctx, alumnusID)
	if err != nil {
		return nil, storeError(err, "alumnus not found", "load alumnus")
	}
	history, err := s.history(ctx, alumnus)
	if err != nil {
		return nil, err
	}

	table := export.Table{
		Title:   "Certificate of Practicing Status",
		Columns: []string{"Year", "Status", "CPD points"},
	}
	for _, row := range history {
		table.Append(strconv.Itoa(row.Year), string(row.Status), strconv.FormatFloat(row.CpdPoints, 'f', -1, 64))
	}
	current := s.now().Year()
	headings := []export.Heading{
		{Label: "Name", Value: alumnus.FullName},
		{Label: "Alumnus ID", Value: alumnus.ID},
		{Label: "Course", Value: alumnus.CourseID},
		{Label: "Graduated", Value: alumnus.GraduatedAt.Format("2 January 2006")},
		{Label: fmt.Sprintf("Status %d", current), Value: string(practicingIn(history, current))},
	}
	content, err := s.pdf.Render(table, headings...)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to render practicing certificate")
	}
	return content, nil
}

func practicingIn(history []models.PracticingYear, year int) models.PracticingStatus {
	idx := sort.Search(len(history), func(i int) bool { return history[i].Year <= year })
	if idx < len(history) && history[idx].Year == year {
		return history[idx].Status
	}
	return models.PracticingInactive
}
