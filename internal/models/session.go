package models

import "time"

// Session status values. A session is created active and is completed exactly
// once; there is no reopen.
const (
	SessionActive    = "active"
	SessionCompleted = "completed"
)

// TimeSession is one user's working period for a calendar day. WorkDate is
// fixed at clock-in and never changes, even when the session is closed after
// midnight.
type TimeSession struct {
	ID            int        `json:"id" db:"id"`
	UserID        int        `json:"user_id" db:"user_id"`
	WorkDate      string     `json:"work_date" db:"work_date"` // YYYY-MM-DD
	ClockIn       time.Time  `json:"clock_in" db:"clock_in"`
	ClockOut      *time.Time `json:"clock_out,omitempty" db:"clock_out"`
	WorkMinutes   int        `json:"work_minutes" db:"work_minutes"`
	BreakMinutes  int        `json:"break_minutes" db:"break_minutes"`
	Status        string     `json:"status" db:"status"`
	Overtime      bool       `json:"overtime" db:"overtime"`
	LateIn        bool       `json:"late_in" db:"late_in"`
	EarlyOut      bool       `json:"early_out" db:"early_out"`
	AutoClockedOut bool      `json:"auto_clocked_out" db:"auto_clocked_out"`
	CreateTime    time.Time  `json:"create_time" db:"create_time"`
	ChangeTime    time.Time  `json:"change_time" db:"change_time"`
}

// SessionBreak is a pause within a session. DurationMinutes is computed when
// the break closes and is zero while EndTime is nil.
type SessionBreak struct {
	ID              int        `json:"id" db:"id"`
	SessionID       int        `json:"session_id" db:"session_id"`
	StartTime       time.Time  `json:"start_time" db:"start_time"`
	EndTime         *time.Time `json:"end_time,omitempty" db:"end_time"`
	DurationMinutes int        `json:"duration_minutes" db:"duration_minutes"`
	Reason          string     `json:"reason" db:"reason"`
}

// ActiveSessionView is the read-only projection served while a session is
// running. Durations are derived from "now" at query time, not stored.
type ActiveSessionView struct {
	Session        *TimeSession   `json:"session"`
	ElapsedMinutes int            `json:"elapsed_minutes"`
	WorkMinutes    int            `json:"work_minutes"`
	BreakMinutes   int            `json:"break_minutes"`
	OnBreak        bool           `json:"on_break"`
	Breaks         []SessionBreak `json:"breaks"`
}
