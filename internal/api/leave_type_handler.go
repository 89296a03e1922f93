package api

import (
	"github.com/gin-gonic/gin"

	"github.com/workpulse/workpulse/internal/models"
)

type leaveTypeService interface {
	CreateType(lt *models.LeaveType) error
	UpdateType(lt *models.LeaveType) error
	ListTypes(onlyValid bool) ([]models.LeaveType, error)
}

// LeaveTypeHandler serves the leave-type catalogue admin routes.
type LeaveTypeHandler struct {
	svc leaveTypeService
}

func NewLeaveTypeHandler(svc leaveTypeService) *LeaveTypeHandler {
	return &LeaveTypeHandler{svc: svc}
}

func (h *LeaveTypeHandler) List(c *gin.Context) {
	onlyValid := c.Query("all") == ""
	types, err := h.svc.ListTypes(onlyValid)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, types)
}

type leaveTypePayload struct {
	Code               string `json:"code" validate:"required"`
	Name               string `json:"name" validate:"required"`
	AnnualQuotaMinutes int    `json:"annual_quota_minutes" validate:"gte=0"`
	CarryForward       bool   `json:"carry_forward"`
	RequiresApproval   bool   `json:"requires_approval"`
	ValidID            int    `json:"valid_id"`
}

func (h *LeaveTypeHandler) Create(c *gin.Context) {
	var req leaveTypePayload
	if !bindJSON(c, &req) {
		return
	}
	lt := &models.LeaveType{
		Code:               req.Code,
		Name:               req.Name,
		AnnualQuotaMinutes: req.AnnualQuotaMinutes,
		CarryForward:       req.CarryForward,
		RequiresApproval:   req.RequiresApproval,
		ValidID:            req.ValidID,
	}
	if err := h.svc.CreateType(lt); err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, lt)
}

func (h *LeaveTypeHandler) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req leaveTypePayload
	if !bindJSON(c, &req) {
		return
	}
	lt := &models.LeaveType{
		ID:                 id,
		Code:               req.Code,
		Name:               req.Name,
		AnnualQuotaMinutes: req.AnnualQuotaMinutes,
		CarryForward:       req.CarryForward,
		RequiresApproval:   req.RequiresApproval,
		ValidID:            req.ValidID,
	}
	if err := h.svc.UpdateType(lt); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, lt)
}
