package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/academy-lifecycle-api/internal/dto"
	"github.com/noah-isme/academy-lifecycle-api/internal/models"
	appErrors "github.com/noah-isme/academy-lifecycle-api/pkg/errors"
	"github.com/noah-isme/academy-lifecycle-api/pkg/export"
)

type settlementRepository interface {
	Find(ctx context.Context, studentID, courseID, tutorID string) (*models.Settlement, error)
	Upsert(ctx context.Context, settlement *models.Settlement) error
	ListLedger(ctx context.Context) ([]models.LedgerEntry, error)
}

type rosterReader interface {
	FindRosterEntry(ctx context.Context, tutorID, studentID, courseID string) (*models.TutorStudent, error)
	Count(ctx context.Context) (int, error)
}

type rosterStudentCounter interface {
	CountOnRosters(ctx context.Context) (int, error)
}

// ComputeShare returns the nominal tutor share of a course fee.
func ComputeShare(courseFee float64) float64 {
	return courseFee * models.TutorSharePercent / 100
}

// SettlementServiceConfig tunes settlement behaviour.
type SettlementServiceConfig struct {
	OverviewTTL time.Duration
}

// SettlementService records tutor payments and rolls them into revenue figures.
type SettlementService struct {
	repo      settlementRepository
	rosters   rosterReader
	students  rosterStudentCounter
	cache     *CacheService
	csv       *export.CSVExporter
	metrics   operationRecorder
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
	cfg       SettlementServiceConfig
}

// SettlementServiceParams groups constructor dependencies.
type SettlementServiceParams struct {
	Repo      settlementRepository
	Rosters   rosterReader
	Students  rosterStudentCounter
	Cache     *CacheService
	Metrics   *MetricsService
	Validator *validator.Validate
	Logger    *zap.Logger
	Config    SettlementServiceConfig
}

// NewSettlementService constructs SettlementService.
func NewSettlementService(params SettlementServiceParams) *SettlementService {
	cfg := params.Config
	if cfg.OverviewTTL <= 0 {
		cfg.OverviewTTL = 5 * time.Minute
	}
	validate := params.Validator
	if validate == nil {
		validate = validator.New()
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettlementService{
		repo:      params.Repo,
		rosters:   params.Rosters,
		students:  params.Students,
		cache:     params.Cache,
		csv:       export.NewCSVExporter(),
		metrics:   params.Metrics,
		validator: validate,
		logger:    logger,
		now:       time.Now,
		cfg:       cfg,
	}
}

// RecordPayment marks the tutor's settlement for a student PAID. A repeated call replaces the previous payment.
// Released tutors keep their roster entry, so they can still be paid for work done before the release.
func (s *SettlementService) RecordPayment(ctx context.Context, actor *models.AuthContext, tutorID, studentID string, req dto.PaymentRequest) (settlement *models.Settlement, err error) {
	defer func() { record(s.metrics, opRecordPayment, err) }()

	if err := authorize(actor); err != nil {
		return nil, err
	}
	req.Phone = strings.TrimSpace(req.Phone)
	req.TransactionID = strings.TrimSpace(req.TransactionID)
	req.CourseID = strings.TrimSpace(req.CourseID)
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidPayload(err, "invalid payment")
	}

	entry, err := s.rosters.FindRosterEntry(ctx, tutorID, studentID, req.CourseID)
	if err != nil {
		return nil, storeError(err, "student not found in tutor records", "load tutor roster")
	}

	now := s.now().UTC()
	settlement = &models.Settlement{
		StudentID:     entry.StudentID,
		CourseID:      entry.CourseID,
		TutorID:       entry.TutorID,
		Status:        models.SettlementPaid,
		Amount:        req.Amount,
		Phone:         req.Phone,
		TransactionID: req.TransactionID,
		TimeOfPayment: &now,
		UpdatedAt:     now,
	}
	if err := s.repo.Upsert(ctx, settlement); err != nil {
		return nil, appErrors.Internal(err, "failed to record settlement payment")
	}
	if err := s.cache.Invalidate(ctx, financeOverviewKey); err != nil {
		s.logger.Warn("failed to invalidate finance overview cache", zap.Error(err))
	}
	s.logger.Info("settlement paid",
		zap.String("tutor_id", tutorID),
		zap.String("student_id", studentID),
		zap.Float64("amount", req.Amount),
		zap.String("actor", actor.UserID))
	return settlement, nil
}

// Settlement returns the settlement recorded for a tutor's student. An empty courseID selects the
// most recently assigned course.
func (s *SettlementService) Settlement(ctx context.Context, tutorID, studentID, courseID string) (*models.Settlement, error) {
	entry, err := s.rosters.FindRosterEntry(ctx, tutorID, studentID, strings.TrimSpace(courseID))
	if err != nil {
		return nil, storeError(err, "student not found in tutor records", "load tutor roster")
	}
	settlement, err := s.repo.Find(ctx, entry.StudentID, entry.CourseID, entry.TutorID)
	if err != nil {
		return nil, storeError(err, "settlement not found", "load settlement")
	}
	return settlement, nil
}

// Aggregate rolls ledger entries into revenue figures. A PAID entry contributes its actual amount,
// anything else contributes the nominal share. A released entry only contributes what was paid on
// it; the course fee is counted on the entry of the current tutor.
func (s *SettlementService) Aggregate(entries []models.LedgerEntry) models.RevenueAggregate {
	var agg models.RevenueAggregate
	for _, entry := range entries {
		if entry.Roster == models.RosterReleased {
			if entry.Paid() {
				amount := paidAmount(entry)
				agg.TotalPaidToTutors += amount
				agg.AdminRevenue -= amount
			}
			continue
		}
		fee := s.courseFee(entry)
		agg.TotalRevenue += fee
		if entry.Paid() {
			amount := paidAmount(entry)
			agg.TotalPaidToTutors += amount
			agg.AdminRevenue += fee - amount
			continue
		}
		share := ComputeShare(fee)
		agg.TotalPendingToTutors += share
		agg.AdminRevenue += fee - share
	}
	return agg
}

// FinanceOverview returns the revenue aggregate with head counts, served from cache when possible.
func (s *SettlementService) FinanceOverview(ctx context.Context) (*models.FinanceOverview, bool, error) {
	var cached models.FinanceOverview
	if hit, err := s.cache.Get(ctx, financeOverviewKey, &cached); err == nil && hit {
		return &cached, true, nil
	}

	entries, err := s.repo.ListLedger(ctx)
	if err != nil {
		return nil, false, appErrors.Internal(err, "failed to load settlement ledger")
	}
	tutors, err := s.rosters.Count(ctx)
	if err != nil {
		return nil, false, appErrors.Internal(err, "failed to count tutors")
	}
	students, err := s.students.CountOnRosters(ctx)
	if err != nil {
		return nil, false, appErrors.Internal(err, "failed to count students")
	}

	overview := &models.FinanceOverview{
		RevenueAggregate: s.Aggregate(entries),
		TotalStudents:    students,
		TotalTutors:      tutors,
		GeneratedAt:      s.now().UTC(),
	}
	_ = s.cache.Set(ctx, financeOverviewKey, overview, s.cfg.OverviewTTL)
	return overview, false, nil
}

// Ledger returns every (tutor, student) pair with its settlement state.
func (s *SettlementService) Ledger(ctx context.Context) ([]models.LedgerEntry, error) {
	entries, err := s.repo.ListLedger(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load settlement ledger")
	}
	return entries, nil
}

// ExportLedgerCSV renders the settlement ledger as CSV.
func (s *SettlementService) ExportLedgerCSV(ctx context.Context) ([]byte, error) {
	entries, err := s.Ledger(ctx)
	if err != nil {
		return nil, err
	}
	table := export.Table{
		Title:   "Tutor settlement ledger",
		Columns: []string{"Tutor", "Student", "Course", "Roster", "Course fee", "Tutor share", "Status", "Amount paid", "Transaction ID"},
	}
	for _, entry := range entries {
		fee := s.courseFee(entry)
		status := string(models.SettlementPending)
		if entry.SettlementStatus != nil {
			status = string(*entry.SettlementStatus)
		}
		var paid, txID string
		if entry.Paid() {
			paid = formatAmount(paidAmount(entry))
		}
		if entry.TransactionID != nil {
			txID = *entry.TransactionID
		}
		table.Append(entry.TutorName, entry.StudentName, entry.CourseID, string(entry.Roster),
			formatAmount(fee), formatAmount(ComputeShare(fee)), status, paid, txID)
	}
	content, err := s.csv.Render(table)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to render settlement ledger")
	}
	return content, nil
}

func (s *SettlementService) courseFee(entry models.LedgerEntry) float64 {
	fee, fallback := models.EffectiveCourseFee(entry.CourseFee)
	if fallback {
		s.logger.Warn("course fee missing, using fallback",
			zap.String("student_id", entry.StudentID),
			zap.String("course_id", entry.CourseID),
			zap.Float64("fallback_fee", fee))
	}
	return fee
}

func paidAmount(entry models.LedgerEntry) float64 {
	if entry.SettlementAmount == nil {
		return 0
	}
	return *entry.SettlementAmount
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
