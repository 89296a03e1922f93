package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/workpulse/workpulse/internal/auth"
	"github.com/workpulse/workpulse/internal/metrics"
	"github.com/workpulse/workpulse/internal/middleware"
)

// Handlers collects the wired handler set for router assembly.
type Handlers struct {
	Auth      *AuthHandler
	Clock     *ClockHandler
	Leave     *LeaveHandler
	LeaveType *LeaveTypeHandler
	Report    *ReportHandler
	Audit     *AuditHandler
}

// RouterConfig carries the cross-cutting pieces the router needs.
type RouterConfig struct {
	AuthMW      *middleware.AuthMiddleware
	Metrics     *metrics.Metrics
	MetricsPath string
}

// NewRouter assembles the HTTP surface. Route groups carry the capability
// checks; handlers stay free of role logic.
func NewRouter(h Handlers, rc RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	if rc.Metrics != nil {
		r.Use(rc.Metrics.Middleware())
		path := rc.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, rc.Metrics.Handler())
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/api/v1")

	v1.POST("/auth/login", h.Auth.Login)
	v1.POST("/auth/logout", rc.AuthMW.RequireAuth(), h.Auth.Logout)

	clock := v1.Group("/clock", rc.AuthMW.RequireAuth(), rc.AuthMW.RequireAction(auth.ActionClockUse))
	{
		clock.POST("/in", h.Clock.ClockIn)
		clock.POST("/out", h.Clock.ClockOut)
		clock.POST("/break/start", h.Clock.StartBreak)
		clock.POST("/break/end", h.Clock.EndBreak)
		clock.GET("/active", h.Clock.Active)
		clock.GET("/sessions", h.Clock.Sessions)
	}
	v1.GET("/clock/sessions/all",
		rc.AuthMW.RequireAuth(), rc.AuthMW.RequireAction(auth.ActionClockViewOthers),
		h.Clock.AllSessions)

	leave := v1.Group("/leave", rc.AuthMW.RequireAuth())
	{
		leave.POST("", rc.AuthMW.RequireAction(auth.ActionLeaveApply), h.Leave.Apply)
		leave.GET("", h.Leave.ListOwn)
		leave.GET("/balances", h.Leave.Balances)
		leave.POST("/:id/cancel", h.Leave.Cancel)

		leave.GET("/pending", rc.AuthMW.RequireAction(auth.ActionLeaveDecide), h.Leave.Pending)
		leave.POST("/:id/approve", rc.AuthMW.RequireAction(auth.ActionLeaveDecide), h.Leave.Approve)
		leave.POST("/:id/reject", rc.AuthMW.RequireAction(auth.ActionLeaveDecide), h.Leave.Reject)
		leave.GET("/all", rc.AuthMW.RequireAction(auth.ActionLeaveListAll), h.Leave.ListAll)
	}

	types := v1.Group("/leave-types", rc.AuthMW.RequireAuth())
	{
		types.GET("", h.LeaveType.List)
		types.POST("", rc.AuthMW.RequireAction(auth.ActionLeaveTypesAdmin), h.LeaveType.Create)
		types.PUT("/:id", rc.AuthMW.RequireAction(auth.ActionLeaveTypesAdmin), h.LeaveType.Update)
	}

	v1.GET("/reports/attendance.xlsx",
		rc.AuthMW.RequireAuth(), rc.AuthMW.RequireAction(auth.ActionReportExport),
		h.Report.AttendanceXLSX)

	v1.GET("/audit",
		rc.AuthMW.RequireAuth(), rc.AuthMW.RequireAction(auth.ActionAuditRead),
		h.Audit.List)

	return r
}
