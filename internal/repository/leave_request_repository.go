package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/workpulse/workpulse/internal/database"
	"github.com/workpulse/workpulse/internal/faults"
	"github.com/workpulse/workpulse/internal/models"
)

// LeaveRequestRepository handles leave_requests and their CC rows.
type LeaveRequestRepository struct {
	db *database.DB
}

func NewLeaveRequestRepository(db *database.DB) *LeaveRequestRepository {
	return &LeaveRequestRepository{db: db}
}

const leaveRequestColumns = `id, user_id, leave_type_id, start_date, end_date,
	duration_kind, reason, status, debited_minutes, decided_by, decided_at,
	manager_comment, applied_at`

func (r *LeaveRequestRepository) Create(req *models.LeaveRequest) error {
	req.Status = models.LeavePending
	req.AppliedAt = time.Now()

	id, err := r.db.InsertReturningID(`
		INSERT INTO leave_requests (user_id, leave_type_id, start_date, end_date,
			duration_kind, reason, status, applied_at)
		VALUES ($1, $2, $3, $4, $5, $6, 'pending', $7)
		RETURNING id`,
		req.UserID, req.LeaveTypeID, req.StartDate, req.EndDate,
		req.DurationKind, req.Reason, req.AppliedAt,
	)
	if err != nil {
		return fmt.Errorf("insert leave request: %w", err)
	}
	req.ID = int(id)

	for _, ccID := range req.CCUserIDs {
		if _, err := r.db.Exec(`
			INSERT INTO leave_request_cc (request_id, user_id) VALUES ($1, $2)`,
			req.ID, ccID); err != nil {
			return fmt.Errorf("insert cc row: %w", err)
		}
	}
	return nil
}

func (r *LeaveRequestRepository) GetByID(id int) (*models.LeaveRequest, error) {
	row := r.db.QueryRow(`
		SELECT `+leaveRequestColumns+`
		FROM leave_requests WHERE id = $1`, id)
	req, err := scanLeaveRequest(row)
	if err != nil {
		return nil, err
	}
	req.CCUserIDs, err = r.listCC(id)
	return req, err
}

func (r *LeaveRequestRepository) listCC(requestID int) ([]int, error) {
	rows, err := r.db.Query(`
		SELECT user_id FROM leave_request_cc WHERE request_id = $1 ORDER BY user_id`,
		requestID)
	if err != nil {
		return nil, fmt.Errorf("list cc: %w", err)
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan cc: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Transition is the single mutation path for request statuses. The WHERE
// clause compares the expected current status, so two concurrent decisions
// on the same request cannot both take effect.
func (r *LeaveRequestRepository) Transition(id int, from, to string, decidedBy *int, comment *string, at time.Time, debitedMinutes int) error {
	res, err := r.db.Exec(`
		UPDATE leave_requests
		SET status = $1, decided_by = $2, decided_at = $3,
			manager_comment = COALESCE($4, manager_comment),
			debited_minutes = debited_minutes + $5
		WHERE id = $6 AND status = $7`,
		to, decidedBy, at, comment, debitedMinutes, id, from,
	)
	if err != nil {
		return fmt.Errorf("transition leave request: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("transition leave request: %w", err)
	}
	if n == 1 {
		return nil
	}

	current, err := r.GetByID(id)
	if err != nil {
		return err
	}
	return faults.Newf(faults.InvalidState,
		"request is not %s (status %s)", from, current.Status)
}

func (r *LeaveRequestRepository) ListByUser(userID int) ([]models.LeaveRequest, error) {
	rows, err := r.db.Query(`
		SELECT `+leaveRequestColumns+`
		FROM leave_requests WHERE user_id = $1
		ORDER BY applied_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list leave requests: %w", err)
	}
	return collectLeaveRequests(rows)
}

func (r *LeaveRequestRepository) ListAll() ([]models.LeaveRequest, error) {
	rows, err := r.db.Query(`
		SELECT ` + leaveRequestColumns + `
		FROM leave_requests
		ORDER BY applied_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list leave requests: %w", err)
	}
	return collectLeaveRequests(rows)
}

// ListPendingForManager resolves the one-hop reporting edge: pending requests
// of users whose manager_id equals managerID.
func (r *LeaveRequestRepository) ListPendingForManager(managerID int) ([]models.LeaveRequest, error) {
	rows, err := r.db.Query(`
		SELECT r.id, r.user_id, r.leave_type_id, r.start_date, r.end_date,
			r.duration_kind, r.reason, r.status, r.debited_minutes, r.decided_by,
			r.decided_at, r.manager_comment, r.applied_at
		FROM leave_requests r
		JOIN users u ON u.id = r.user_id
		WHERE u.manager_id = $1 AND r.status = 'pending'
		ORDER BY r.applied_at ASC`, managerID)
	if err != nil {
		return nil, fmt.Errorf("list pending for manager: %w", err)
	}
	return collectLeaveRequests(rows)
}

// ListOverlapping uses inclusive interval intersection:
// existing.start <= queryEnd AND existing.end >= queryStart.
func (r *LeaveRequestRepository) ListOverlapping(userID int, startDate, endDate string) ([]models.LeaveRequest, error) {
	rows, err := r.db.Query(`
		SELECT `+leaveRequestColumns+`
		FROM leave_requests
		WHERE user_id = $1 AND start_date <= $2 AND end_date >= $3
			AND status IN ('pending', 'approved')
		ORDER BY start_date ASC`,
		userID, endDate, startDate)
	if err != nil {
		return nil, fmt.Errorf("list overlapping: %w", err)
	}
	return collectLeaveRequests(rows)
}

func scanLeaveRequest(row rowScanner) (*models.LeaveRequest, error) {
	var req models.LeaveRequest
	err := row.Scan(
		&req.ID, &req.UserID, &req.LeaveTypeID, &req.StartDate, &req.EndDate,
		&req.DurationKind, &req.Reason, &req.Status, &req.DebitedMinutes,
		&req.DecidedBy, &req.DecidedAt, &req.ManagerComment, &req.AppliedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, faults.New(faults.NotFound, "leave request not found")
	}
	if err != nil {
		return nil, fmt.Errorf("scan leave request: %w", err)
	}
	return &req, nil
}

func collectLeaveRequests(rows *sql.Rows) ([]models.LeaveRequest, error) {
	defer rows.Close()
	var items []models.LeaveRequest
	for rows.Next() {
		req, err := scanLeaveRequest(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *req)
	}
	return items, rows.Err()
}
