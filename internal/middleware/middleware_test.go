package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academy-lifecycle-api/internal/models"
	appErrors "github.com/noah-isme/academy-lifecycle-api/pkg/errors"
)

type stubTokens struct {
	claims *models.JWTClaims
	err    error
	seen   string
}

func (s *stubTokens) ValidateToken(token string) (*models.JWTClaims, error) {
	s.seen = token
	return s.claims, s.err
}

type auditSpy struct {
	logs []*models.AuditLog
	err  error
}

func (a *auditSpy) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	a.logs = append(a.logs, log)
	return a.err
}

type observerSpy struct {
	path   string
	status int
}

func (o *observerSpy) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	o.path, o.status = path, status
}

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r *gin.Engine, method, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTAndRequireRoles(t *testing.T) {
	tokens := &stubTokens{claims: &models.JWTClaims{UserID: "u1", Role: models.RoleAdmin}}
	r := gin.New()
	r.GET("/admin", JWT(tokens), RequireRoles(models.RoleAdmin, models.RoleSuperAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/admin", "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/admin", "Basic abc").Code)

	assert.Equal(t, http.StatusNoContent, serve(r, http.MethodGet, "/admin", "Bearer good-token").Code)
	assert.Equal(t, "good-token", tokens.seen)

	tokens.claims = &models.JWTClaims{UserID: "u2", Role: models.RoleTutor}
	assert.Equal(t, http.StatusForbidden, serve(r, http.MethodGet, "/admin", "Bearer tutor-token").Code)

	tokens.claims, tokens.err = nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/admin", "Bearer bad").Code)
}

func TestRequireRolesWithoutClaims(t *testing.T) {
	r := gin.New()
	r.GET("/admin", RequireRoles(models.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/admin", "").Code)
}

func TestAuditRecordsSuccessfulRequestsOnly(t *testing.T) {
	spy := &auditSpy{}
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(ContextUserKey, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})
		c.Next()
	})
	r.POST("/courses/:courseId/enrollments/:studentId/assign",
		Audit(spy, nil, models.AuditActionAssign, "enrollment", "courseId", "studentId"),
		func(c *gin.Context) { c.Status(http.StatusOK) })
	r.POST("/fail", Audit(spy, nil, models.AuditActionCancel, "enrollment"), func(c *gin.Context) {
		c.Status(http.StatusPreconditionFailed)
	})

	serve(r, http.MethodPost, "/courses/c1/enrollments/s1/assign", "")
	serve(r, http.MethodPost, "/fail", "")

	require.Len(t, spy.logs, 1)
	entry := spy.logs[0]
	assert.Equal(t, models.AuditActionAssign, entry.Action)
	require.NotNil(t, entry.ResourceID)
	assert.Equal(t, "c1/s1", *entry.ResourceID)
	require.NotNil(t, entry.UserID)
	assert.Equal(t, "admin-1", *entry.UserID)
	assert.Contains(t, string(entry.NewValues), `"status":200`)
}

func TestAuditFailureDoesNotAffectResponse(t *testing.T) {
	spy := &auditSpy{err: errors.New("db down")}
	r := gin.New()
	r.POST("/x", Audit(spy, nil, models.AuditActionEnroll, "enrollment"), func(c *gin.Context) { c.Status(http.StatusCreated) })
	assert.Equal(t, http.StatusCreated, serve(r, http.MethodPost, "/x", "").Code)
	assert.Len(t, spy.logs, 1)
}

func TestMetricsUsesRouteTemplate(t *testing.T) {
	spy := &observerSpy{}
	r := gin.New()
	r.Use(Metrics(spy))
	r.GET("/students/:studentId/checklist", func(c *gin.Context) { c.Status(http.StatusOK) })

	serve(r, http.MethodGet, "/students/s1/checklist", "")
	assert.Equal(t, "/students/:studentId/checklist", spy.path)
	assert.Equal(t, http.StatusOK, spy.status)

	serve(r, http.MethodGet, "/nowhere", "")
	assert.Equal(t, "unmatched", spy.path)
	assert.Equal(t, http.StatusNotFound, spy.status)
}

func TestSetCacheHit(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	SetCacheHit(c, true)
	assert.Equal(t, true, ResponseMeta(c)["cache_hit"])
}
