package repository

import (
	"context"
	"time"

	"github.com/workpulse/workpulse/internal/models"
)

// TimeSessionStore is the Clock Engine's storage contract. Mutations that
// guard an invariant (one active session per user, one open break per
// session, close-only-once) are single conditional statements, never
// read-then-write.
type TimeSessionStore interface {
	// CreateActive inserts a new active session unless the user already has
	// one anywhere in the system. Returns a Conflict fault otherwise.
	CreateActive(session *models.TimeSession) error
	GetByID(id int) (*models.TimeSession, error)
	// GetActiveByUser returns nil without error when no active session exists.
	GetActiveByUser(userID int) (*models.TimeSession, error)
	// Complete closes an active session with its final counters. Fails with
	// InvalidState when the session is not active or still has an open break.
	Complete(sessionID int, clockOut time.Time, workMinutes, breakMinutes int, overtime, lateIn, earlyOut, auto bool) error
	ListByUserRange(userID int, fromDate, toDate string) ([]models.TimeSession, error)
	ListRange(fromDate, toDate string) ([]models.TimeSession, error)
	// ListStaleActive returns active sessions clocked in before the cutoff.
	ListStaleActive(before time.Time) ([]models.TimeSession, error)

	// OpenBreak inserts a break if the session is active and has no open
	// break; both conditions are part of the insert statement.
	OpenBreak(b *models.SessionBreak) error
	GetBreak(id int) (*models.SessionBreak, error)
	// CloseBreak sets end/duration once and adds the duration to the parent
	// session's break counter.
	CloseBreak(breakID int, end time.Time, durationMinutes int) error
	ListBreaks(sessionID int) ([]models.SessionBreak, error)
}

// LeaveRequestStore is the Leave Ledger's request storage contract.
type LeaveRequestStore interface {
	Create(req *models.LeaveRequest) error
	GetByID(id int) (*models.LeaveRequest, error)
	// Transition moves a request between statuses only when the current
	// status matches from; otherwise it fails with InvalidState carrying the
	// actual status. debitedMinutes is persisted on approval so a later
	// cancel credits back exactly what was taken.
	Transition(id int, from, to string, decidedBy *int, comment *string, at time.Time, debitedMinutes int) error
	ListByUser(userID int) ([]models.LeaveRequest, error)
	ListAll() ([]models.LeaveRequest, error)
	ListPendingForManager(managerID int) ([]models.LeaveRequest, error)
	// ListOverlapping returns pending or approved requests of the user whose
	// inclusive date range intersects [startDate, endDate].
	ListOverlapping(userID int, startDate, endDate string) ([]models.LeaveRequest, error)
}

// LeaveBalanceStore mutates balances only through atomic upserts.
type LeaveBalanceStore interface {
	// AddUsed adds minutes (negative to credit back) to the (user, year,
	// type) row, creating it with zero allocation when absent.
	AddUsed(userID, year, leaveTypeID, minutes int) error
	Get(userID, year, leaveTypeID int) (*models.LeaveBalance, error)
	ListByUserYear(userID, year int) ([]models.LeaveBalance, error)
	// Allocate creates the year's row with the given allocation, leaving an
	// existing row untouched.
	Allocate(userID, year, leaveTypeID, allocatedMinutes int) error
}

// LeaveTypeStore provides the leave-type catalogue.
type LeaveTypeStore interface {
	Create(lt *models.LeaveType) error
	Update(lt *models.LeaveType) error
	GetByID(id int) (*models.LeaveType, error)
	GetByCode(code string) (*models.LeaveType, error)
	List(onlyValid bool) ([]models.LeaveType, error)
}

// UserStore is the account and org-directory lookup contract.
type UserStore interface {
	Create(u *models.User) error
	GetByID(id int) (*models.User, error)
	GetByLogin(login string) (*models.User, error)
	ListValid() ([]models.User, error)
	ListRefs(ids []int) ([]models.UserRef, error)
}

// AttachmentStore lists files attached to a leave request. Upload and
// download live outside the ledger.
type AttachmentStore interface {
	Insert(a *models.LeaveAttachment) error
	ListByRequest(requestID int) ([]models.LeaveAttachment, error)
}

// AuditStore persists audit entries and serves the review listing.
type AuditStore interface {
	Insert(ctx context.Context, entry *models.AuditLog) error
	ListRecent(limit int) ([]models.AuditLog, error)
}
