package models

import "time"

// Audit action names recorded by the services.
const (
	AuditClockIn      = "ClockIn"
	AuditClockOut     = "ClockOut"
	AuditAutoClockOut = "AutoClockOut"
	AuditLeaveApply   = "LeaveApply"
	AuditLeaveApprove = "LeaveApprove"
	AuditLeaveReject  = "LeaveReject"
	AuditLeaveCancel  = "LeaveCancel"
)

// AuditLog captures one state transition for review. OldValues/NewValues are
// JSON snapshots; writes are best-effort and never block the primary change.
type AuditLog struct {
	ID             int       `json:"id" db:"id"`
	Action         string    `json:"action" db:"action"`
	ActorID        int       `json:"actor_id" db:"actor_id"`
	AffectedUserID int       `json:"affected_user_id" db:"affected_user_id"`
	Entity         string    `json:"entity" db:"entity"`
	EntityID       int       `json:"entity_id" db:"entity_id"`
	OldValues      string    `json:"old_values" db:"old_values"`
	NewValues      string    `json:"new_values" db:"new_values"`
	Reason         string    `json:"reason" db:"reason"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}
