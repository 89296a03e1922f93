package models

import "time"

// UserRole enumerates the application roles.
type UserRole string

const (
	RoleAdmin    UserRole = "admin"
	RoleManager  UserRole = "manager"
	RoleEmployee UserRole = "employee"
)

// User represents an employee account. ManagerID is the one-hop reporting
// edge used to build a manager's pending-approval queue.
type User struct {
	ID           int       `json:"id" db:"id"`
	Login        string    `json:"login" db:"login"`
	FullName     string    `json:"full_name" db:"full_name"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Role         UserRole  `json:"role" db:"role"`
	ManagerID    *int      `json:"manager_id,omitempty" db:"manager_id"`
	ValidID      int       `json:"valid_id" db:"valid_id"`
	CreateTime   time.Time `json:"create_time" db:"create_time"`
	CreateBy     int       `json:"create_by" db:"create_by"`
	ChangeTime   time.Time `json:"change_time" db:"change_time"`
	ChangeBy     int       `json:"change_by" db:"change_by"`
}

// UserRef is the shape embedded in list projections instead of the full row.
type UserRef struct {
	ID       int    `json:"id" db:"id"`
	Login    string `json:"login" db:"login"`
	FullName string `json:"full_name" db:"full_name"`
}
