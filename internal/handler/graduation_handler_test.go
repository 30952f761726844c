package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academy-lifecycle-api/internal/dto"
	"github.com/noah-isme/academy-lifecycle-api/internal/models"
	appErrors "github.com/noah-isme/academy-lifecycle-api/pkg/errors"
)

type graduationServiceMock struct {
	checklist      *models.GraduationChecklist
	student        *models.Student
	alumnus        *models.Alumnus
	graduateErr    error
	lastGrades     dto.UpdateGradesRequest
	lastGraduate   dto.GraduateRequest
	graduateCalled bool
}

func (m *graduationServiceMock) Checklist(ctx context.Context, studentID string) (*models.GraduationChecklist, error) {
	return m.checklist, nil
}

func (m *graduationServiceMock) UpdateGrades(ctx context.Context, actor *models.AuthContext, studentID string, req dto.UpdateGradesRequest) (*models.Student, error) {
	m.lastGrades = req
	return m.student, nil
}

func (m *graduationServiceMock) Graduate(ctx context.Context, actor *models.AuthContext, studentID string, req dto.GraduateRequest) (*models.Alumnus, error) {
	m.graduateCalled = true
	m.lastGraduate = req
	return m.alumnus, m.graduateErr
}

func studentParams(studentID string) gin.Params {
	return gin.Params{{Key: "studentId", Value: studentID}}
}

func TestGraduationHandlerUpdateGrades(t *testing.T) {
	svc := &graduationServiceMock{student: &models.Student{ID: "s1"}}
	handler := NewGraduationHandler(svc)

	c, w := newAdminContext(http.MethodPut, "/students/s1/exams", `{"examGrades":[{"examIndex":1,"score":"Merit"}]}`, studentParams("s1"))
	handler.UpdateGrades(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, svc.lastGrades.ExamGrades, 1)
	assert.Equal(t, 1, svc.lastGrades.ExamGrades[0].ExamIndex)
	assert.Equal(t, models.Grade("Merit"), svc.lastGrades.ExamGrades[0].Score)
}

func TestGraduationHandlerGraduateWithoutBody(t *testing.T) {
	svc := &graduationServiceMock{alumnus: &models.Alumnus{ID: "a1", StudentID: "s1"}}
	handler := NewGraduationHandler(svc)

	c, w := newAdminContext(http.MethodPost, "/students/s1/graduate", "", studentParams("s1"))
	handler.Graduate(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, svc.graduateCalled)
	assert.Empty(t, svc.lastGraduate.ExamGrades)
}

func TestGraduationHandlerGraduateInvalidBody(t *testing.T) {
	svc := &graduationServiceMock{}
	handler := NewGraduationHandler(svc)

	c, w := newAdminContext(http.MethodPost, "/students/s1/graduate", `{"examGrades":`, studentParams("s1"))
	handler.Graduate(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, svc.graduateCalled)
}

func TestGraduationHandlerGraduateNotEligible(t *testing.T) {
	missing := []string{"course fee not fully paid", "exam grades incomplete"}
	svc := &graduationServiceMock{graduateErr: appErrors.Violations(appErrors.ErrPreconditionFailed, "student not eligible for graduation", missing)}
	handler := NewGraduationHandler(svc)

	c, w := newAdminContext(http.MethodPost, "/students/s1/graduate", `{"examGrades":[]}`, studentParams("s1"))
	handler.Graduate(c)

	require.Equal(t, http.StatusPreconditionFailed, w.Code)
	assert.Equal(t, missing, decodeError(t, w).Error.Rules)
}
