package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/academy-lifecycle-api/internal/dto"
	"github.com/noah-isme/academy-lifecycle-api/internal/models"
	"github.com/noah-isme/academy-lifecycle-api/internal/repository"
	appErrors "github.com/noah-isme/academy-lifecycle-api/pkg/errors"
)

type enrollmentRepository interface {
	Get(ctx context.Context, courseID, studentID string) (*models.Enrollment, error)
	ListByCourse(ctx context.Context, courseID string, status models.AssignmentStatus) ([]models.Enrollment, error)
	Upsert(ctx context.Context, enrollment *models.Enrollment) error
}

type studentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

// EnrollmentService owns the enrollment records of every course roster.
type EnrollmentService struct {
	repo      enrollmentRepository
	students  studentReader
	metrics   operationRecorder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(repo enrollmentRepository, students studentReader, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{repo: repo, students: students, metrics: metrics, validator: validate, logger: logger}
}

// Enroll places a student on a course roster as PENDING.
func (s *EnrollmentService) Enroll(ctx context.Context, actor *models.AuthContext, courseID string, req dto.EnrollRequest) (enrollment *models.Enrollment, err error) {
	defer func() { record(s.metrics, opEnroll, err) }()

	if err := authorize(actor); err != nil {
		return nil, err
	}
	req.StudentID = strings.TrimSpace(req.StudentID)
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidPayload(err, "invalid enrollment payload")
	}
	if strings.TrimSpace(courseID) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "course id required")
	}

	student, err := s.students.FindByID(ctx, req.StudentID)
	if err != nil {
		return nil, storeError(err, "student not found", "load student")
	}
	if student.IsAlumni {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "student has already graduated")
	}

	enrollment = &models.Enrollment{CourseID: courseID, StudentID: student.ID, AssignmentStatus: models.AssignmentStatusPending}
	if err := s.repo.Upsert(ctx, enrollment); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "student already enrolled in course")
		}
		return nil, storeError(err, "enrollment not found", "create enrollment")
	}
	s.logger.Info("student enrolled", zap.String("course_id", courseID), zap.String("student_id", student.ID), zap.String("actor", actor.UserID))
	return enrollment, nil
}

// Get returns one enrollment.
func (s *EnrollmentService) Get(ctx context.Context, courseID, studentID string) (*models.Enrollment, error) {
	enrollment, err := s.repo.Get(ctx, courseID, studentID)
	if err != nil {
		return nil, storeError(err, "enrollment not found", "load enrollment")
	}
	return enrollment, nil
}

// ListByStatus returns the enrollments of a course in one status.
func (s *EnrollmentService) ListByStatus(ctx context.Context, courseID string, status models.AssignmentStatus) ([]models.Enrollment, error) {
	if !status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "status must be one of PENDING, ASSIGNED, CANCELLED")
	}
	enrollments, err := s.repo.ListByCourse(ctx, courseID, status)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list enrollments")
	}
	return enrollments, nil
}

// ListAssignments returns the course roster partitioned by assignment status.
func (s *EnrollmentService) ListAssignments(ctx context.Context, courseID string) (*models.AssignmentBuckets, error) {
	enrollments, err := s.repo.ListByCourse(ctx, courseID, "")
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list course assignments")
	}
	buckets := models.PartitionEnrollments(courseID, enrollments)
	return &buckets, nil
}

// Upsert stores an enrollment after checking its status invariants. A stale version yields a conflict.
func (s *EnrollmentService) Upsert(ctx context.Context, enrollment *models.Enrollment) error {
	if err := enrollment.Validate(); err != nil {
		return validationError(err, err.Error())
	}
	if err := s.repo.Upsert(ctx, enrollment); err != nil {
		return storeError(err, "enrollment not found", "save enrollment")
	}
	return nil
}
