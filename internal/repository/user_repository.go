package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/workpulse/workpulse/internal/database"
	"github.com/workpulse/workpulse/internal/faults"
	"github.com/workpulse/workpulse/internal/models"
)

// UserRepository handles accounts and the reporting edge used as the org
// directory.
type UserRepository struct {
	db *database.DB
}

func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, login, full_name, email, password_hash, role,
	manager_id, valid_id, create_time, create_by, change_time, change_by`

func (r *UserRepository) Create(u *models.User) error {
	u.CreateTime = time.Now()
	u.ChangeTime = u.CreateTime
	if u.ValidID == 0 {
		u.ValidID = 1
	}
	if u.Role == "" {
		u.Role = models.RoleEmployee
	}
	id, err := r.db.InsertReturningID(`
		INSERT INTO users (login, full_name, email, password_hash, role,
			manager_id, valid_id, create_time, create_by, change_time, change_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`,
		u.Login, u.FullName, u.Email, u.PasswordHash, u.Role,
		u.ManagerID, u.ValidID, u.CreateTime, u.CreateBy, u.ChangeTime, u.ChangeBy,
	)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	u.ID = int(id)
	return nil
}

func (r *UserRepository) GetByID(id int) (*models.User, error) {
	row := r.db.QueryRow(`
		SELECT `+userColumns+`
		FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (r *UserRepository) GetByLogin(login string) (*models.User, error) {
	row := r.db.QueryRow(`
		SELECT `+userColumns+`
		FROM users WHERE login = $1 AND valid_id = 1`, login)
	return scanUser(row)
}

func (r *UserRepository) ListValid() ([]models.User, error) {
	rows, err := r.db.Query(`
		SELECT ` + userColumns + `
		FROM users WHERE valid_id = 1
		ORDER BY login ASC`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var items []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *u)
	}
	return items, rows.Err()
}

// ListRefs fetches display references for the given ids. Order follows the
// database, not the input.
func (r *UserRepository) ListRefs(ids []int) ([]models.UserRef, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	rows, err := r.db.Query(`
		SELECT id, login, full_name FROM users
		WHERE id IN (`+strings.Join(placeholders, ", ")+`)
		ORDER BY id ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("list user refs: %w", err)
	}
	defer rows.Close()

	var refs []models.UserRef
	for rows.Next() {
		var ref models.UserRef
		if err := rows.Scan(&ref.ID, &ref.Login, &ref.FullName); err != nil {
			return nil, fmt.Errorf("scan user ref: %w", err)
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID, &u.Login, &u.FullName, &u.Email, &u.PasswordHash, &u.Role,
		&u.ManagerID, &u.ValidID, &u.CreateTime, &u.CreateBy, &u.ChangeTime, &u.ChangeBy,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, faults.New(faults.NotFound, "user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}
