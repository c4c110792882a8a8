package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/AurelMV/cbt-admin-api/internal/middleware"
	"github.com/AurelMV/cbt-admin-api/internal/models"
	"github.com/AurelMV/cbt-admin-api/internal/service"
)

// Handlers groups every HTTP handler for route registration.
type Handlers struct {
	Auth          *AuthHandler
	Cycles        *CycleHandler
	Students      *StudentHandler
	Groups        *GroupHandler
	Attendance    *AttendanceHandler
	Inbox         *InboxHandler
	Uploads       *UploadHandler
	Reports       *ReportHandler
	Notifications *NotificationHandler
	Metrics       *MetricsHandler
}

// RegisterRoutes mounts the API route tree. Submission endpoints are public;
// everything else under the prefix requires an authenticated admin.
func RegisterRoutes(r *gin.Engine, prefix string, h Handlers, authSvc *service.AuthService) {
	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Health)
	r.GET("/metrics", h.Metrics.Prometheus)

	api := r.Group(prefix)

	api.POST("/auth/login", h.Auth.Login)
	api.POST("/auth/refresh", h.Auth.Refresh)

	// Applicant-facing submissions do not require an account.
	api.POST("/inbox/enrollments", h.Inbox.SubmitEnrollment)
	api.POST("/inbox/payments", h.Inbox.SubmitPayment)
	api.POST("/uploads", h.Uploads.Upload)

	authed := api.Group("")
	authed.Use(middleware.JWT(authSvc))
	authed.POST("/auth/logout", h.Auth.Logout)
	authed.GET("/auth/me", h.Auth.Me)

	admin := authed.Group("")
	admin.Use(middleware.RequireRoles(models.RoleAdmin))

	admin.GET("/cycles", h.Cycles.List)
	admin.POST("/cycles", h.Cycles.Create)
	admin.GET("/cycles/:id", h.Cycles.Get)
	admin.PUT("/cycles/:id", h.Cycles.Update)
	admin.POST("/cycles/:id/sessions", h.Cycles.AddSession)
	admin.GET("/cycles/:id/summary", h.Cycles.Summary)
	admin.GET("/cycles/:id/groups", h.Groups.ListByCycle)
	admin.GET("/cycles/:id/eligibility", h.Attendance.Eligibility)
	admin.POST("/cycles/:id/restrictions", h.Attendance.ApplyRestrictions)
	admin.GET("/cycles/:id/students/:studentId/attendance", h.Attendance.StudentStats)
	admin.GET("/cycles/:id/reports/attendance", h.Reports.AttendanceSheet)

	admin.POST("/groups", h.Groups.Create)
	admin.POST("/groups/:id/classes", h.Groups.CreateClass)

	admin.GET("/students", h.Students.List)
	admin.POST("/students", h.Students.Create)
	admin.GET("/students/:id", h.Students.Get)
	admin.PUT("/students/:id", h.Students.Update)
	admin.DELETE("/students/:id", h.Students.Delete)
	admin.POST("/students/:id/restrict", h.Attendance.Restrict)
	admin.DELETE("/students/:id/restrict", h.Attendance.Unrestrict)

	admin.PUT("/attendance/marks", h.Attendance.MarkCell)
	admin.POST("/attendance/marks/bulk", h.Attendance.BulkMark)

	admin.GET("/inbox/enrollments", h.Inbox.ListEnrollments)
	admin.GET("/inbox/payments", h.Inbox.ListPayments)
	admin.GET("/inbox/enrollments/history", h.Inbox.EnrollmentHistory)
	admin.GET("/inbox/counts", h.Inbox.Counts)
	admin.POST("/inbox/enrollments/:id/approve", h.Inbox.ApproveEnrollment)
	admin.POST("/inbox/enrollments/:id/reject", h.Inbox.RejectEnrollment)
	admin.POST("/inbox/payments/:id/approve", h.Inbox.ApprovePayment)
	admin.POST("/inbox/payments/:id/reject", h.Inbox.RejectPayment)

	admin.GET("/uploads", h.Uploads.List)
	admin.GET("/uploads/:id/download", h.Uploads.Download)
	admin.DELETE("/uploads/:id", h.Uploads.Delete)

	admin.GET("/notifications", h.Notifications.Recent)
}
