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

// LeaveTypeRepository handles the leave-type catalogue.
type LeaveTypeRepository struct {
	db *database.DB
}

func NewLeaveTypeRepository(db *database.DB) *LeaveTypeRepository {
	return &LeaveTypeRepository{db: db}
}

const leaveTypeColumns = `id, code, name, annual_quota_minutes, carry_forward,
	requires_approval, valid_id, create_time, change_time`

func (r *LeaveTypeRepository) Create(lt *models.LeaveType) error {
	lt.CreateTime = time.Now()
	lt.ChangeTime = lt.CreateTime
	if lt.ValidID == 0 {
		lt.ValidID = 1
	}
	id, err := r.db.InsertReturningID(`
		INSERT INTO leave_types (code, name, annual_quota_minutes, carry_forward,
			requires_approval, valid_id, create_time, change_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		lt.Code, lt.Name, lt.AnnualQuotaMinutes, lt.CarryForward,
		lt.RequiresApproval, lt.ValidID, lt.CreateTime, lt.ChangeTime,
	)
	if err != nil {
		return fmt.Errorf("insert leave type: %w", err)
	}
	lt.ID = int(id)
	return nil
}

func (r *LeaveTypeRepository) Update(lt *models.LeaveType) error {
	lt.ChangeTime = time.Now()
	res, err := r.db.Exec(`
		UPDATE leave_types
		SET name = $1, annual_quota_minutes = $2, carry_forward = $3,
			requires_approval = $4, valid_id = $5, change_time = $6
		WHERE id = $7`,
		lt.Name, lt.AnnualQuotaMinutes, lt.CarryForward,
		lt.RequiresApproval, lt.ValidID, lt.ChangeTime, lt.ID,
	)
	if err != nil {
		return fmt.Errorf("update leave type: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update leave type: %w", err)
	}
	if n == 0 {
		return faults.New(faults.NotFound, "leave type not found")
	}
	return nil
}

func (r *LeaveTypeRepository) GetByID(id int) (*models.LeaveType, error) {
	row := r.db.QueryRow(`
		SELECT `+leaveTypeColumns+`
		FROM leave_types WHERE id = $1`, id)
	return scanLeaveType(row)
}

func (r *LeaveTypeRepository) GetByCode(code string) (*models.LeaveType, error) {
	row := r.db.QueryRow(`
		SELECT `+leaveTypeColumns+`
		FROM leave_types WHERE code = $1`, code)
	return scanLeaveType(row)
}

func (r *LeaveTypeRepository) List(onlyValid bool) ([]models.LeaveType, error) {
	query := `SELECT ` + leaveTypeColumns + ` FROM leave_types ORDER BY code ASC`
	if onlyValid {
		query = `SELECT ` + leaveTypeColumns + ` FROM leave_types WHERE valid_id = 1 ORDER BY code ASC`
	}
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("list leave types: %w", err)
	}
	defer rows.Close()

	var items []models.LeaveType
	for rows.Next() {
		lt, err := scanLeaveType(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *lt)
	}
	return items, rows.Err()
}

func scanLeaveType(row rowScanner) (*models.LeaveType, error) {
	var lt models.LeaveType
	err := row.Scan(
		&lt.ID, &lt.Code, &lt.Name, &lt.AnnualQuotaMinutes, &lt.CarryForward,
		&lt.RequiresApproval, &lt.ValidID, &lt.CreateTime, &lt.ChangeTime,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, faults.New(faults.NotFound, "leave type not found")
	}
	if err != nil {
		return nil, fmt.Errorf("scan leave type: %w", err)
	}
	return &lt, nil
}
