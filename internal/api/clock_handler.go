package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/workpulse/workpulse/internal/metrics"
	"github.com/workpulse/workpulse/internal/middleware"
	"github.com/workpulse/workpulse/internal/models"
)

type clockService interface {
	ClockIn(userID int, now time.Time) (*models.TimeSession, error)
	StartBreak(actorID, sessionID int, reason string, now time.Time) (*models.SessionBreak, error)
	EndBreak(actorID, breakID int, now time.Time) (*models.SessionBreak, error)
	ClockOut(actorID, sessionID int, now time.Time) (*models.TimeSession, error)
	GetActive(userID int, now time.Time) (*models.ActiveSessionView, error)
	ListSessions(userID int, fromDate, toDate string) ([]models.TimeSession, error)
	ListAllSessions(fromDate, toDate string) ([]models.TimeSession, error)
}

// ClockHandler serves the time-tracking routes.
type ClockHandler struct {
	svc     clockService
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewClockHandler(svc clockService, m *metrics.Metrics) *ClockHandler {
	return &ClockHandler{svc: svc, metrics: m, now: time.Now}
}

func (h *ClockHandler) ClockIn(c *gin.Context) {
	identity, _ := middleware.CurrentIdentity(c)
	session, err := h.svc.ClockIn(identity.UserID, h.now())
	if err != nil {
		respondError(c, err)
		return
	}
	h.metrics.CountClockIn()
	respondCreated(c, session)
}

type breakStartRequest struct {
	SessionID int    `json:"session_id" validate:"required,gt=0"`
	Reason    string `json:"reason"`
}

func (h *ClockHandler) StartBreak(c *gin.Context) {
	var req breakStartRequest
	if !bindJSON(c, &req) {
		return
	}
	identity, _ := middleware.CurrentIdentity(c)
	b, err := h.svc.StartBreak(identity.UserID, req.SessionID, req.Reason, h.now())
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, b)
}

type breakEndRequest struct {
	BreakID int `json:"break_id" validate:"required,gt=0"`
}

func (h *ClockHandler) EndBreak(c *gin.Context) {
	var req breakEndRequest
	if !bindJSON(c, &req) {
		return
	}
	identity, _ := middleware.CurrentIdentity(c)
	b, err := h.svc.EndBreak(identity.UserID, req.BreakID, h.now())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, b)
}

type clockOutRequest struct {
	SessionID int `json:"session_id" validate:"required,gt=0"`
}

func (h *ClockHandler) ClockOut(c *gin.Context) {
	var req clockOutRequest
	if !bindJSON(c, &req) {
		return
	}
	identity, _ := middleware.CurrentIdentity(c)
	session, err := h.svc.ClockOut(identity.UserID, req.SessionID, h.now())
	if err != nil {
		respondError(c, err)
		return
	}
	h.metrics.CountClockOut()
	respondOK(c, session)
}

// Active returns the running session projection, or data null when the
// caller is not clocked in.
func (h *ClockHandler) Active(c *gin.Context) {
	identity, _ := middleware.CurrentIdentity(c)
	view, err := h.svc.GetActive(identity.UserID, h.now())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, view)
}

func (h *ClockHandler) Sessions(c *gin.Context) {
	identity, _ := middleware.CurrentIdentity(c)
	from, to := dateRange(c, h.now())
	sessions, err := h.svc.ListSessions(identity.UserID, from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, sessions)
}

// AllSessions is the cross-user listing for managers.
func (h *ClockHandler) AllSessions(c *gin.Context) {
	from, to := dateRange(c, h.now())
	sessions, err := h.svc.ListAllSessions(from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, sessions)
}

// dateRange reads from/to query params, defaulting to the last 30 days.
func dateRange(c *gin.Context, now time.Time) (string, string) {
	from := c.Query("from")
	to := c.Query("to")
	if to == "" {
		to = now.Format("2006-01-02")
	}
	if from == "" {
		from = now.AddDate(0, 0, -30).Format("2006-01-02")
	}
	return from, to
}
