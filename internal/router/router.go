package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/academy-lifecycle-api/internal/handler"
	"github.com/noah-isme/academy-lifecycle-api/internal/middleware"
	"github.com/noah-isme/academy-lifecycle-api/internal/models"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	APIPrefix         string
	AssignmentHandler *handler.AssignmentHandler
	FinanceHandler    *handler.FinanceHandler
	GraduationHandler *handler.GraduationHandler
	AlumniHandler     *handler.AlumniHandler
	MetricsHandler    *handler.MetricsHandler
	Tokens            middleware.TokenValidator
	Audit             middleware.AuditRecorder
	Logger            *zap.Logger
}

// Register wires the HTTP routes into the gin engine.
func Register(r *gin.Engine, deps Dependencies) {
	prefix := deps.APIPrefix
	if prefix == "" {
		prefix = "/api/v1"
	}

	if deps.MetricsHandler != nil {
		r.GET("/health", deps.MetricsHandler.Health)
		r.GET("/ready", deps.MetricsHandler.Ready)
		r.GET("/metrics", deps.MetricsHandler.Prometheus)
	}

	api := r.Group(prefix)

	// Public practicing-status lookups
	if deps.AlumniHandler != nil {
		public := api.Group("/public/alumni/:alumnusId")
		public.GET("/practicing", deps.AlumniHandler.PracticingHistory)
		public.GET("/practicing/certificate", deps.AlumniHandler.PracticingCertificate)
	}

	admin := api.Group("", middleware.JWT(deps.Tokens), middleware.RequireRoles(models.RoleAdmin, models.RoleSuperAdmin))
	audit := func(action, resource string, params ...string) gin.HandlerFunc {
		return middleware.Audit(deps.Audit, deps.Logger, action, resource, params...)
	}

	if h := deps.AssignmentHandler; h != nil {
		courses := admin.Group("/courses/:courseId")
		courses.GET("/assignments", h.ListAssignments)
		courses.GET("/enrollments", h.ListEnrollments)
		courses.POST("/enrollments", audit(models.AuditActionEnroll, "enrollment", "courseId"), h.Enroll)
		courses.GET("/enrollments/:studentId", h.GetEnrollment)
		courses.POST("/enrollments/:studentId/assign", audit(models.AuditActionAssign, "enrollment", "courseId", "studentId"), h.Assign)
		courses.POST("/enrollments/:studentId/cancel", audit(models.AuditActionCancel, "enrollment", "courseId", "studentId"), h.Cancel)
		courses.POST("/enrollments/:studentId/release", audit(models.AuditActionRelease, "enrollment", "courseId", "studentId"), h.Release)
		admin.GET("/tutors/:tutorId", h.GetTutor)
	}

	if h := deps.FinanceHandler; h != nil {
		admin.GET("/tutors/:tutorId/students/:studentId/settlement", h.GetSettlement)
		admin.POST("/tutors/:tutorId/students/:studentId/payments", audit(models.AuditActionSettlementPayment, "settlement", "tutorId", "studentId"), h.RecordPayment)
		finance := admin.Group("/finance")
		finance.GET("/overview", h.Overview)
		finance.GET("/ledger/export", h.ExportLedger)
	}

	if h := deps.GraduationHandler; h != nil {
		students := admin.Group("/students/:studentId")
		students.GET("/checklist", h.Checklist)
		students.PUT("/exams", audit(models.AuditActionGradesUpdate, "student", "studentId"), h.UpdateGrades)
		students.POST("/graduate", audit(models.AuditActionGraduate, "student", "studentId"), h.Graduate)
	}

	if h := deps.AlumniHandler; h != nil {
		alumni := admin.Group("/alumni/:alumnusId")
		alumni.PUT("/cpd", audit(models.AuditActionCpdRecord, "alumnus", "alumnusId"), h.RecordCpd)
		alumni.POST("/subscriptions", audit(models.AuditActionSubscriptionPayment, "alumnus", "alumnusId"), h.RecordSubscriptionPayment)
		admin.GET("/subscriptions/stats", h.SubscriptionStats)
	}
}
