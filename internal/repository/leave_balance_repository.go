package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/workpulse/workpulse/internal/database"
	"github.com/workpulse/workpulse/internal/faults"
	"github.com/workpulse/workpulse/internal/models"
)

// LeaveBalanceRepository handles the per (user, year, type) counters.
type LeaveBalanceRepository struct {
	db *database.DB
}

func NewLeaveBalanceRepository(db *database.DB) *LeaveBalanceRepository {
	return &LeaveBalanceRepository{db: db}
}

// AddUsed debits (or credits, with negative minutes) in one upsert. A missing
// row is created with zero allocation, so used may exceed allocated and the
// read side clamps remaining at zero.
func (r *LeaveBalanceRepository) AddUsed(userID, year, leaveTypeID, minutes int) error {
	if _, err := r.db.Exec(r.db.UpsertAddUsed(), userID, year, leaveTypeID, minutes); err != nil {
		return fmt.Errorf("upsert balance: %w", err)
	}
	return nil
}

func (r *LeaveBalanceRepository) Get(userID, year, leaveTypeID int) (*models.LeaveBalance, error) {
	row := r.db.QueryRow(`
		SELECT id, user_id, year, leave_type_id, allocated_minutes, used_minutes
		FROM leave_balances
		WHERE user_id = $1 AND year = $2 AND leave_type_id = $3`,
		userID, year, leaveTypeID)

	var b models.LeaveBalance
	err := row.Scan(&b.ID, &b.UserID, &b.Year, &b.LeaveTypeID, &b.AllocatedMinutes, &b.UsedMinutes)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, faults.New(faults.NotFound, "leave balance not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get balance: %w", err)
	}
	return &b, nil
}

func (r *LeaveBalanceRepository) ListByUserYear(userID, year int) ([]models.LeaveBalance, error) {
	rows, err := r.db.Query(`
		SELECT id, user_id, year, leave_type_id, allocated_minutes, used_minutes
		FROM leave_balances
		WHERE user_id = $1 AND year = $2
		ORDER BY leave_type_id ASC`, userID, year)
	if err != nil {
		return nil, fmt.Errorf("list balances: %w", err)
	}
	defer rows.Close()

	var items []models.LeaveBalance
	for rows.Next() {
		var b models.LeaveBalance
		if err := rows.Scan(&b.ID, &b.UserID, &b.Year, &b.LeaveTypeID, &b.AllocatedMinutes, &b.UsedMinutes); err != nil {
			return nil, fmt.Errorf("scan balance: %w", err)
		}
		items = append(items, b)
	}
	return items, rows.Err()
}

// Allocate creates the year's row without touching an existing one; the
// annual job calls it once per user and type.
func (r *LeaveBalanceRepository) Allocate(userID, year, leaveTypeID, allocatedMinutes int) error {
	query := `
		INSERT INTO leave_balances (user_id, year, leave_type_id, allocated_minutes, used_minutes)
		VALUES ($1, $2, $3, $4, 0)
		ON CONFLICT (user_id, year, leave_type_id) DO NOTHING`
	if r.db.Dialect() == database.DialectMySQL {
		query = `
			INSERT IGNORE INTO leave_balances (user_id, year, leave_type_id, allocated_minutes, used_minutes)
			VALUES ($1, $2, $3, $4, 0)`
	}
	if _, err := r.db.Exec(query, userID, year, leaveTypeID, allocatedMinutes); err != nil {
		return fmt.Errorf("allocate balance: %w", err)
	}
	return nil
}
