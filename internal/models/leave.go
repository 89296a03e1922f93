package models

import "time"

// LeaveRequest status values. Transitions are allowed only out of pending;
// decided requests are immutable except cancel-after-approve.
const (
	LeavePending   = "pending"
	LeaveApproved  = "approved"
	LeaveRejected  = "rejected"
	LeaveCancelled = "cancelled"
)

// Duration kinds. Half-day kinds are only valid for single-day requests.
const (
	DurationFullDay    = "full-day"
	DurationHalfFirst  = "half-first"
	DurationHalfSecond = "half-second"
)

// LeaveType is a configured category of leave (casual, sick, ...).
// AnnualQuotaMinutes feeds the yearly balance allocation job.
type LeaveType struct {
	ID                 int       `json:"id" db:"id"`
	Code               string    `json:"code" db:"code"`
	Name               string    `json:"name" db:"name"`
	AnnualQuotaMinutes int       `json:"annual_quota_minutes" db:"annual_quota_minutes"`
	CarryForward       bool      `json:"carry_forward" db:"carry_forward"`
	RequiresApproval   bool      `json:"requires_approval" db:"requires_approval"`
	ValidID            int       `json:"valid_id" db:"valid_id"`
	CreateTime         time.Time `json:"create_time" db:"create_time"`
	ChangeTime         time.Time `json:"change_time" db:"change_time"`
}

// LeaveBalance is the per (user, year, type) allocation and consumption
// counter. Remaining is clamped at zero on read; UsedMinutes may exceed
// AllocatedMinutes when a request is approved against an implicit zero row.
type LeaveBalance struct {
	ID               int `json:"id" db:"id"`
	UserID           int `json:"user_id" db:"user_id"`
	Year             int `json:"year" db:"year"`
	LeaveTypeID      int `json:"leave_type_id" db:"leave_type_id"`
	AllocatedMinutes int `json:"allocated_minutes" db:"allocated_minutes"`
	UsedMinutes      int `json:"used_minutes" db:"used_minutes"`
}

// RemainingMinutes never reports negative.
func (b *LeaveBalance) RemainingMinutes() int {
	if r := b.AllocatedMinutes - b.UsedMinutes; r > 0 {
		return r
	}
	return 0
}

// LeaveRequest is one application for leave over an inclusive date range.
type LeaveRequest struct {
	ID             int        `json:"id" db:"id"`
	UserID         int        `json:"user_id" db:"user_id"`
	LeaveTypeID    int        `json:"leave_type_id" db:"leave_type_id"`
	StartDate      string     `json:"start_date" db:"start_date"` // YYYY-MM-DD
	EndDate        string     `json:"end_date" db:"end_date"`     // YYYY-MM-DD, inclusive
	DurationKind   string     `json:"duration_kind" db:"duration_kind"`
	Reason         string     `json:"reason" db:"reason"`
	Status         string     `json:"status" db:"status"`
	DebitedMinutes int        `json:"debited_minutes" db:"debited_minutes"`
	DecidedBy      *int       `json:"decided_by,omitempty" db:"decided_by"`
	DecidedAt      *time.Time `json:"decided_at,omitempty" db:"decided_at"`
	ManagerComment *string    `json:"manager_comment,omitempty" db:"manager_comment"`
	AppliedAt      time.Time  `json:"applied_at" db:"applied_at"`
	CCUserIDs      []int      `json:"cc_user_ids,omitempty" db:"-"`
}

// LeaveAttachment is a file attached to a leave request. The core only lists
// attachments; upload and download live outside the ledger.
type LeaveAttachment struct {
	ID          int       `json:"id" db:"id"`
	RequestID   int       `json:"request_id" db:"request_id"`
	FileName    string    `json:"file_name" db:"file_name"`
	ContentType string    `json:"content_type" db:"content_type"`
	SizeBytes   int64     `json:"size_bytes" db:"size_bytes"`
	StorageKey  string    `json:"storage_key" db:"storage_key"`
	CreateTime  time.Time `json:"create_time" db:"create_time"`
}

// LeaveRequestView is the enriched projection for lists: populated references
// and attachments are a presentation concern layered over the ledger rows.
type LeaveRequestView struct {
	LeaveRequest
	Requester   *UserRef          `json:"requester,omitempty"`
	LeaveType   *LeaveType        `json:"leave_type,omitempty"`
	CCUsers     []UserRef         `json:"cc_users,omitempty"`
	Attachments []LeaveAttachment `json:"attachments,omitempty"`
	AppliedAgo  string            `json:"applied_ago,omitempty"`
}

// BalanceView is a balance row with its remaining minutes precomputed for
// display, including implicit zero rows for types without an allocation.
type BalanceView struct {
	LeaveType        *LeaveType `json:"leave_type"`
	Year             int        `json:"year"`
	AllocatedMinutes int        `json:"allocated_minutes"`
	UsedMinutes      int        `json:"used_minutes"`
	RemainingMinutes int        `json:"remaining_minutes"`
}
