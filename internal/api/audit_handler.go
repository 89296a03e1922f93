package api

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/workpulse/workpulse/internal/models"
)

type auditLister interface {
	ListRecent(limit int) ([]models.AuditLog, error)
}

// AuditHandler serves the audit trail review listing.
type AuditHandler struct {
	store auditLister
}

func NewAuditHandler(store auditLister) *AuditHandler {
	return &AuditHandler{store: store}
}

func (h *AuditHandler) List(c *gin.Context) {
	limit := 100
	if q := c.Query("limit"); q != "" {
		parsed, err := strconv.Atoi(q)
		if err != nil || parsed <= 0 {
			respondBadRequest(c, "limit must be a positive number")
			return
		}
		limit = parsed
	}
	entries, err := h.store.ListRecent(limit)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, entries)
}
