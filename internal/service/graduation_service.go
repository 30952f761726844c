package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/academy-lifecycle-api/internal/dto"
	"github.com/noah-isme/academy-lifecycle-api/internal/models"
	"github.com/noah-isme/academy-lifecycle-api/internal/repository"
	appErrors "github.com/noah-isme/academy-lifecycle-api/pkg/errors"
)

type graduationStudentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	UpdateExams(ctx context.Context, student *models.Student) error
}

type alumniPromoter interface {
	FindByStudentID(ctx context.Context, studentID string) (*models.Alumnus, error)
	Promote(ctx context.Context, params repository.PromoteParams) error
}

// GPA averages the grade points of the exams.
func GPA(exams models.ExamList) float64 {
	return exams.GPA()
}

// GraduationService evaluates and executes the promotion of students to alumni.
type GraduationService struct {
	students  graduationStudentRepository
	alumni    alumniPromoter
	cache     *CacheService
	metrics   operationRecorder
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// GraduationServiceParams groups constructor dependencies.
type GraduationServiceParams struct {
	Students  graduationStudentRepository
	Alumni    alumniPromoter
	Cache     *CacheService
	Metrics   *MetricsService
	Validator *validator.Validate
	Logger    *zap.Logger
}

// NewGraduationService constructs GraduationService.
func NewGraduationService(params GraduationServiceParams) *GraduationService {
	validate := params.Validator
	if validate == nil {
		validate = validator.New()
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GraduationService{
		students:  params.Students,
		alumni:    params.Alumni,
		cache:     params.Cache,
		metrics:   params.Metrics,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// Checklist reports whether a student may graduate.
func (s *GraduationService) Checklist(ctx context.Context, studentID string) (*models.GraduationChecklist, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		return nil, storeError(err, "student not found", "load student")
	}
	s.warnFeeFallback(student)
	checklist := student.Checklist()
	return &checklist, nil
}

// UpdateGrades applies exam grades by index. Applying the same grades twice leaves the same exams.
func (s *GraduationService) UpdateGrades(ctx context.Context, actor *models.AuthContext, studentID string, req dto.UpdateGradesRequest) (student *models.Student, err error) {
	defer func() { record(s.metrics, opUpdateGrades, err) }()

	if err := authorize(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidPayload(err, "invalid exam grades")
	}

	student, err = s.students.FindByID(ctx, studentID)
	if err != nil {
		return nil, storeError(err, "student not found", "load student")
	}
	if student.IsAlumni {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "grades of a graduated student are frozen")
	}
	exams, err := applyGrades(student.Exams, req.ExamGrades)
	if err != nil {
		return nil, err
	}
	student.Exams = exams
	if err := s.students.UpdateExams(ctx, student); err != nil {
		return nil, storeError(err, "student not found", "update exam grades")
	}
	s.logger.Info("exam grades updated", zap.String("student_id", studentID), zap.Int("grades", len(req.ExamGrades)), zap.String("actor", actor.UserID))
	return student, nil
}

// Graduate promotes an eligible student to alumnus. Grades in the request are applied first and eligibility
// is re-checked; an ineligible student is rejected without any write. Repeating a completed graduation
// returns the existing alumnus.
func (s *GraduationService) Graduate(ctx context.Context, actor *models.AuthContext, studentID string, req dto.GraduateRequest) (alumnus *models.Alumnus, err error) {
	defer func() { record(s.metrics, opGraduate, err) }()

	if err := authorize(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidPayload(err, "invalid graduation payload")
	}

	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		return nil, storeError(err, "student not found", "load student")
	}
	if student.IsAlumni {
		existing, err := s.alumni.FindByStudentID(ctx, studentID)
		if err != nil {
			return nil, storeError(err, "alumnus record missing for graduated student", "load alumnus")
		}
		return existing, nil
	}

	candidate := *student
	candidate.Exams, err = applyGrades(student.Exams, req.ExamGrades)
	if err != nil {
		return nil, err
	}
	s.warnFeeFallback(&candidate)
	if checklist := candidate.Checklist(); !checklist.Eligible {
		return nil, appErrors.Violations(appErrors.ErrPreconditionFailed, "student not eligible for graduation", checklist.Missing)
	}

	alumnus = &models.Alumnus{
		StudentID:   candidate.ID,
		CourseID:    candidate.CourseID,
		FullName:    candidate.FullName,
		Exams:       candidate.Exams,
		GPA:         GPA(candidate.Exams),
		GraduatedAt: s.now().UTC(),
	}
	if err := s.alumni.Promote(ctx, repository.PromoteParams{Student: &candidate, Alumnus: alumnus}); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "student is already being graduated")
		}
		return nil, storeError(err, "student not found", "graduate student")
	}
	if err := s.cache.Invalidate(ctx, subscriptionStatsGlob); err != nil {
		s.logger.Warn("failed to invalidate subscription stats cache", zap.Error(err))
	}
	s.logger.Info("student graduated",
		zap.String("student_id", studentID),
		zap.String("alumnus_id", alumnus.ID),
		zap.Float64("gpa", alumnus.GPA),
		zap.String("actor", actor.UserID))
	return alumnus, nil
}

func (s *GraduationService) warnFeeFallback(student *models.Student) {
	if fee, fallback := models.EffectiveCourseFee(student.CourseFee); fallback {
		s.logger.Warn("course fee missing, using fallback", zap.String("student_id", student.ID), zap.Float64("fallback_fee", fee))
	}
}

// applyGrades returns a copy of exams with the grades applied.
func applyGrades(exams models.ExamList, grades []dto.ExamGrade) (models.ExamList, error) {
	out := exams.Clone()
	for _, g := range grades {
		if g.ExamIndex < 0 || g.ExamIndex >= len(out) {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("exam index %d out of range, student has %d exams", g.ExamIndex, len(out)))
		}
		if !g.Score.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown grade %q for exam %d", g.Score, g.ExamIndex))
		}
		out[g.ExamIndex].Score = g.Score
	}
	return out, nil
}
