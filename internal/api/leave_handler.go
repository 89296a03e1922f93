package api

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/workpulse/workpulse/internal/metrics"
	"github.com/workpulse/workpulse/internal/middleware"
	"github.com/workpulse/workpulse/internal/models"
)

type leaveService interface {
	Apply(userID int, typeCode, startDate, endDate, durationKind, reason string, ccUserIDs []int) (*models.LeaveRequest, error)
	Approve(requestID, approverID int, comment string) (*models.LeaveRequest, error)
	Reject(requestID, approverID int, comment string) (*models.LeaveRequest, error)
	Cancel(requestID, actorID int, actorRole string) (*models.LeaveRequest, error)
	ListForUser(userID int) ([]models.LeaveRequestView, error)
	ListAll() ([]models.LeaveRequestView, error)
	ListPendingForManager(managerID int) ([]models.LeaveRequestView, error)
	Balances(userID, year int) ([]models.BalanceView, error)
}

// LeaveHandler serves the leave-request routes.
type LeaveHandler struct {
	svc     leaveService
	metrics *metrics.Metrics
}

func NewLeaveHandler(svc leaveService, m *metrics.Metrics) *LeaveHandler {
	return &LeaveHandler{svc: svc, metrics: m}
}

type applyLeaveRequest struct {
	TypeCode     string `json:"type_code" validate:"required"`
	StartDate    string `json:"start_date" validate:"required"`
	EndDate      string `json:"end_date" validate:"required"`
	DurationKind string `json:"duration_kind" validate:"required"`
	Reason       string `json:"reason"`
	CCUserIDs    []int  `json:"cc_user_ids"`
}

func (h *LeaveHandler) Apply(c *gin.Context) {
	var req applyLeaveRequest
	if !bindJSON(c, &req) {
		return
	}
	identity, _ := middleware.CurrentIdentity(c)
	created, err := h.svc.Apply(identity.UserID, req.TypeCode, req.StartDate, req.EndDate,
		req.DurationKind, req.Reason, req.CCUserIDs)
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, created)
}

type decisionRequest struct {
	Comment string `json:"comment"`
}

func (h *LeaveHandler) Approve(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req decisionRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	identity, _ := middleware.CurrentIdentity(c)
	decided, err := h.svc.Approve(id, identity.UserID, req.Comment)
	if err != nil {
		respondError(c, err)
		return
	}
	h.metrics.CountLeaveDecision("approved")
	respondOK(c, decided)
}

func (h *LeaveHandler) Reject(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req decisionRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	identity, _ := middleware.CurrentIdentity(c)
	decided, err := h.svc.Reject(id, identity.UserID, req.Comment)
	if err != nil {
		respondError(c, err)
		return
	}
	h.metrics.CountLeaveDecision("rejected")
	respondOK(c, decided)
}

func (h *LeaveHandler) Cancel(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	identity, _ := middleware.CurrentIdentity(c)
	cancelled, err := h.svc.Cancel(id, identity.UserID, identity.Role)
	if err != nil {
		respondError(c, err)
		return
	}
	h.metrics.CountLeaveDecision("cancelled")
	respondOK(c, cancelled)
}

func (h *LeaveHandler) ListOwn(c *gin.Context) {
	identity, _ := middleware.CurrentIdentity(c)
	items, err := h.svc.ListForUser(identity.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, items)
}

func (h *LeaveHandler) ListAll(c *gin.Context) {
	items, err := h.svc.ListAll()
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, items)
}

// Pending is the manager's decision queue over their direct reports.
func (h *LeaveHandler) Pending(c *gin.Context) {
	identity, _ := middleware.CurrentIdentity(c)
	items, err := h.svc.ListPendingForManager(identity.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, items)
}

func (h *LeaveHandler) Balances(c *gin.Context) {
	identity, _ := middleware.CurrentIdentity(c)
	year := time.Now().Year()
	if q := c.Query("year"); q != "" {
		parsed, err := strconv.Atoi(q)
		if err != nil {
			respondBadRequest(c, "year must be a number")
			return
		}
		year = parsed
	}
	views, err := h.svc.Balances(identity.UserID, year)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, views)
}

func pathID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		respondBadRequest(c, "invalid id")
		return 0, false
	}
	return id, true
}

// bindOptionalJSON tolerates an empty body; decision comments are optional.
func bindOptionalJSON(c *gin.Context, dst interface{}) bool {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(dst); err != nil {
		respondBadRequest(c, "invalid request payload")
		return false
	}
	return true
}
