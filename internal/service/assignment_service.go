package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/academy-lifecycle-api/internal/dto"
	"github.com/noah-isme/academy-lifecycle-api/internal/models"
	appErrors "github.com/noah-isme/academy-lifecycle-api/pkg/errors"
)

type assignmentRepository interface {
	Get(ctx context.Context, courseID, studentID string) (*models.Enrollment, error)
	Upsert(ctx context.Context, enrollment *models.Enrollment) error
	Assign(ctx context.Context, enrollment *models.Enrollment, entry models.TutorStudent) error
	Release(ctx context.Context, enrollment *models.Enrollment, tutorID string) error
}

type tutorReader interface {
	FindByID(ctx context.Context, id string) (*models.Tutor, error)
	ListRoster(ctx context.Context, tutorID string) ([]models.TutorStudent, error)
}

// AssignmentService drives the PENDING / ASSIGNED / CANCELLED state machine of enrollments.
type AssignmentService struct {
	repo      assignmentRepository
	tutors    tutorReader
	cache     *CacheService
	metrics   operationRecorder
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// AssignmentServiceParams groups constructor dependencies.
type AssignmentServiceParams struct {
	Repo      assignmentRepository
	Tutors    tutorReader
	Cache     *CacheService
	Metrics   *MetricsService
	Validator *validator.Validate
	Logger    *zap.Logger
}

// NewAssignmentService constructs AssignmentService.
func NewAssignmentService(params AssignmentServiceParams) *AssignmentService {
	validate := params.Validator
	if validate == nil {
		validate = validator.New()
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentService{
		repo:      params.Repo,
		tutors:    params.Tutors,
		cache:     params.Cache,
		metrics:   params.Metrics,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// Assign binds a PENDING enrollment to a tutor and adds the student to the tutor's active roster.
func (s *AssignmentService) Assign(ctx context.Context, actor *models.AuthContext, courseID, studentID string, req dto.AssignRequest) (updated *models.Enrollment, err error) {
	defer func() { record(s.metrics, opAssign, err) }()

	if err := authorize(actor); err != nil {
		return nil, err
	}
	req.TutorID = strings.TrimSpace(req.TutorID)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "tutor required")
	}

	enrollment, err := s.repo.Get(ctx, courseID, studentID)
	if err != nil {
		return nil, storeError(err, "enrollment not found", "load enrollment")
	}
	switch enrollment.AssignmentStatus {
	case models.AssignmentStatusAssigned:
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "enrollment already assigned to a tutor; release or cancel it first")
	case models.AssignmentStatusCancelled:
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "cancelled enrollment cannot be assigned")
	}

	tutor, err := s.tutors.FindByID(ctx, req.TutorID)
	if err != nil {
		return nil, storeError(err, "tutor not found", "load tutor")
	}

	now := s.now().UTC()
	next := *enrollment
	next.AssignmentStatus = models.AssignmentStatusAssigned
	next.TutorID = &tutor.ID
	entry := models.TutorStudent{
		TutorID:    tutor.ID,
		StudentID:  enrollment.StudentID,
		CourseID:   enrollment.CourseID,
		Roster:     models.RosterActive,
		AssignedAt: now,
	}
	if err := s.repo.Assign(ctx, &next, entry); err != nil {
		return nil, storeError(err, "enrollment not found", "assign enrollment")
	}
	s.invalidateFinance(ctx)
	s.logger.Info("enrollment assigned",
		zap.String("course_id", courseID),
		zap.String("student_id", studentID),
		zap.String("tutor_id", tutor.ID),
		zap.String("actor", actor.UserID))
	return &next, nil
}

// Cancel marks an enrollment CANCELLED keeping the reason as admin notes.
// Any tutor binding and roster history stay in place.
func (s *AssignmentService) Cancel(ctx context.Context, actor *models.AuthContext, courseID, studentID string, req dto.CancelRequest) (updated *models.Enrollment, err error) {
	defer func() { record(s.metrics, opCancel, err) }()

	if err := authorize(actor); err != nil {
		return nil, err
	}
	req.Reason = strings.TrimSpace(req.Reason)
	if req.Reason == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "cancel reason required")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidPayload(err, "invalid cancel payload")
	}

	enrollment, err := s.repo.Get(ctx, courseID, studentID)
	if err != nil {
		return nil, storeError(err, "enrollment not found", "load enrollment")
	}
	if enrollment.AssignmentStatus == models.AssignmentStatusCancelled {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "enrollment already cancelled")
	}

	next := *enrollment
	next.AssignmentStatus = models.AssignmentStatusCancelled
	next.AdminNotes = &req.Reason
	if err := s.repo.Upsert(ctx, &next); err != nil {
		return nil, storeError(err, "enrollment not found", "cancel enrollment")
	}
	s.logger.Info("enrollment cancelled", zap.String("course_id", courseID), zap.String("student_id", studentID), zap.String("actor", actor.UserID))
	return &next, nil
}

// Release returns an ASSIGNED enrollment to PENDING and removes the student from the tutor's active roster.
// Settlements recorded for the enrollment are kept.
func (s *AssignmentService) Release(ctx context.Context, actor *models.AuthContext, courseID, studentID string) (updated *models.Enrollment, err error) {
	defer func() { record(s.metrics, opRelease, err) }()

	if err := authorize(actor); err != nil {
		return nil, err
	}
	enrollment, err := s.repo.Get(ctx, courseID, studentID)
	if err != nil {
		return nil, storeError(err, "enrollment not found", "load enrollment")
	}
	if enrollment.AssignmentStatus != models.AssignmentStatusAssigned || enrollment.TutorID == nil {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "only assigned enrollments can be released")
	}

	tutorID := *enrollment.TutorID
	next := *enrollment
	next.AssignmentStatus = models.AssignmentStatusPending
	next.TutorID = nil
	if err := s.repo.Release(ctx, &next, tutorID); err != nil {
		return nil, storeError(err, "enrollment not found", "release enrollment")
	}
	s.invalidateFinance(ctx)
	s.logger.Info("enrollment released",
		zap.String("course_id", courseID),
		zap.String("student_id", studentID),
		zap.String("tutor_id", tutorID),
		zap.String("actor", actor.UserID))
	return &next, nil
}

// TutorDetail returns a tutor with its active and certified rosters.
func (s *AssignmentService) TutorDetail(ctx context.Context, tutorID string) (*models.TutorDetail, error) {
	tutor, err := s.tutors.FindByID(ctx, tutorID)
	if err != nil {
		return nil, storeError(err, "tutor not found", "load tutor")
	}
	roster, err := s.tutors.ListRoster(ctx, tutor.ID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load tutor roster")
	}
	detail := models.NewTutorDetail(*tutor, roster)
	return &detail, nil
}

func (s *AssignmentService) invalidateFinance(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, financeOverviewKey); err != nil {
		s.logger.Warn("failed to invalidate finance overview cache", zap.Error(err))
	}
}
