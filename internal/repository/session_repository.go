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

// SessionRepository handles time_sessions and session_breaks.
type SessionRepository struct {
	db *database.DB
}

func NewSessionRepository(db *database.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

const sessionColumns = `id, user_id, work_date, clock_in, clock_out, work_minutes,
	break_minutes, status, overtime, late_in, early_out, auto_clocked_out,
	create_time, change_time`

// CreateActive inserts the session only when the user has no active session
// anywhere. The guard is part of the INSERT, so two concurrent clock-ins
// cannot both succeed; the partial unique index backs this up where the
// dialect has one. The one-row derived table keeps the guarded SELECT valid
// on MySQL, which rejects a bare SELECT ... WHERE.
func (r *SessionRepository) CreateActive(session *models.TimeSession) error {
	session.Status = models.SessionActive
	session.CreateTime = time.Now()
	session.ChangeTime = session.CreateTime

	res, err := r.db.Exec(`
		INSERT INTO time_sessions (user_id, work_date, clock_in, status, create_time, change_time)
		SELECT $1, $2, $3, 'active', $4, $5 FROM (SELECT 1) AS one
		WHERE NOT EXISTS (
			SELECT 1 FROM time_sessions WHERE user_id = $6 AND status = 'active'
		)`,
		session.UserID, session.WorkDate, session.ClockIn,
		session.CreateTime, session.ChangeTime, session.UserID,
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	if n == 0 {
		return faults.New(faults.Conflict, "an active session already exists")
	}

	created, err := r.GetActiveByUser(session.UserID)
	if err != nil {
		return err
	}
	if created != nil {
		session.ID = created.ID
	}
	return nil
}

func (r *SessionRepository) GetByID(id int) (*models.TimeSession, error) {
	row := r.db.QueryRow(`
		SELECT `+sessionColumns+`
		FROM time_sessions WHERE id = $1`, id)
	return scanSession(row)
}

func (r *SessionRepository) GetActiveByUser(userID int) (*models.TimeSession, error) {
	row := r.db.QueryRow(`
		SELECT `+sessionColumns+`
		FROM time_sessions WHERE user_id = $1 AND status = 'active'`, userID)
	s, err := scanSession(row)
	if faults.Is(err, faults.NotFound) {
		return nil, nil
	}
	return s, err
}

// Complete closes the session. The status condition and the open-break
// subquery make the close atomic with its preconditions.
func (r *SessionRepository) Complete(sessionID int, clockOut time.Time, workMinutes, breakMinutes int, overtime, lateIn, earlyOut, auto bool) error {
	res, err := r.db.Exec(`
		UPDATE time_sessions
		SET clock_out = $1, work_minutes = $2, break_minutes = $3,
			status = 'completed', overtime = $4, late_in = $5, early_out = $6,
			auto_clocked_out = $7, change_time = $8
		WHERE id = $9 AND status = 'active'
			AND NOT EXISTS (
				SELECT 1 FROM session_breaks
				WHERE session_id = $10 AND end_time IS NULL
			)`,
		clockOut, workMinutes, breakMinutes, overtime, lateIn, earlyOut,
		auto, time.Now(), sessionID, sessionID,
	)
	if err != nil {
		return fmt.Errorf("complete session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("complete session: %w", err)
	}
	if n == 1 {
		return nil
	}
	return r.explainCompleteFailure(sessionID)
}

// explainCompleteFailure re-reads the session so the caller gets a reason,
// not a bare failure.
func (r *SessionRepository) explainCompleteFailure(sessionID int) error {
	s, err := r.GetByID(sessionID)
	if err != nil {
		return err
	}
	if s.Status != models.SessionActive {
		return faults.Newf(faults.InvalidState, "session is not active (status %s)", s.Status)
	}
	return faults.New(faults.InvalidState, "session has an open break; end it before clocking out")
}

func (r *SessionRepository) ListByUserRange(userID int, fromDate, toDate string) ([]models.TimeSession, error) {
	rows, err := r.db.Query(`
		SELECT `+sessionColumns+`
		FROM time_sessions
		WHERE user_id = $1 AND work_date >= $2 AND work_date <= $3
		ORDER BY work_date DESC, clock_in DESC`,
		userID, fromDate, toDate)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return collectSessions(rows)
}

func (r *SessionRepository) ListRange(fromDate, toDate string) ([]models.TimeSession, error) {
	rows, err := r.db.Query(`
		SELECT `+sessionColumns+`
		FROM time_sessions
		WHERE work_date >= $1 AND work_date <= $2
		ORDER BY user_id ASC, work_date ASC`,
		fromDate, toDate)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return collectSessions(rows)
}

func (r *SessionRepository) ListStaleActive(before time.Time) ([]models.TimeSession, error) {
	rows, err := r.db.Query(`
		SELECT `+sessionColumns+`
		FROM time_sessions
		WHERE status = 'active' AND clock_in < $1
		ORDER BY clock_in ASC`, before)
	if err != nil {
		return nil, fmt.Errorf("list stale sessions: %w", err)
	}
	return collectSessions(rows)
}

// OpenBreak inserts the break only when the parent session is active and has
// no other open break.
func (r *SessionRepository) OpenBreak(b *models.SessionBreak) error {
	res, err := r.db.Exec(`
		INSERT INTO session_breaks (session_id, start_time, reason)
		SELECT $1, $2, $3 FROM (SELECT 1) AS one
		WHERE EXISTS (
			SELECT 1 FROM time_sessions WHERE id = $4 AND status = 'active'
		) AND NOT EXISTS (
			SELECT 1 FROM session_breaks WHERE session_id = $5 AND end_time IS NULL
		)`,
		b.SessionID, b.StartTime, b.Reason, b.SessionID, b.SessionID,
	)
	if err != nil {
		return fmt.Errorf("open break: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("open break: %w", err)
	}
	if n == 0 {
		return r.explainOpenBreakFailure(b.SessionID)
	}

	row := r.db.QueryRow(`
		SELECT id FROM session_breaks
		WHERE session_id = $1 AND end_time IS NULL`, b.SessionID)
	if err := row.Scan(&b.ID); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("open break: %w", err)
	}
	return nil
}

func (r *SessionRepository) explainOpenBreakFailure(sessionID int) error {
	s, err := r.GetByID(sessionID)
	if err != nil {
		return err
	}
	if s.Status != models.SessionActive {
		return faults.Newf(faults.InvalidState, "session is not active (status %s)", s.Status)
	}
	return faults.New(faults.InvalidState, "session already has an open break")
}

func (r *SessionRepository) GetBreak(id int) (*models.SessionBreak, error) {
	row := r.db.QueryRow(`
		SELECT id, session_id, start_time, end_time, duration_minutes, reason
		FROM session_breaks WHERE id = $1`, id)
	var b models.SessionBreak
	err := row.Scan(&b.ID, &b.SessionID, &b.StartTime, &b.EndTime, &b.DurationMinutes, &b.Reason)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, faults.New(faults.NotFound, "break not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get break: %w", err)
	}
	return &b, nil
}

// CloseBreak sets end and duration exactly once, then adds the duration to
// the parent session's counter.
func (r *SessionRepository) CloseBreak(breakID int, end time.Time, durationMinutes int) error {
	res, err := r.db.Exec(`
		UPDATE session_breaks
		SET end_time = $1, duration_minutes = $2
		WHERE id = $3 AND end_time IS NULL`,
		end, durationMinutes, breakID,
	)
	if err != nil {
		return fmt.Errorf("close break: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("close break: %w", err)
	}
	if n == 0 {
		if _, err := r.GetBreak(breakID); err != nil {
			return err
		}
		return faults.New(faults.InvalidState, "break is already closed")
	}

	b, err := r.GetBreak(breakID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(`
		UPDATE time_sessions
		SET break_minutes = break_minutes + $1, change_time = $2
		WHERE id = $3`,
		durationMinutes, time.Now(), b.SessionID,
	)
	if err != nil {
		return fmt.Errorf("accumulate break minutes: %w", err)
	}
	return nil
}

func (r *SessionRepository) ListBreaks(sessionID int) ([]models.SessionBreak, error) {
	rows, err := r.db.Query(`
		SELECT id, session_id, start_time, end_time, duration_minutes, reason
		FROM session_breaks WHERE session_id = $1
		ORDER BY start_time ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list breaks: %w", err)
	}
	defer rows.Close()

	var items []models.SessionBreak
	for rows.Next() {
		var b models.SessionBreak
		if err := rows.Scan(&b.ID, &b.SessionID, &b.StartTime, &b.EndTime, &b.DurationMinutes, &b.Reason); err != nil {
			return nil, fmt.Errorf("scan break: %w", err)
		}
		items = append(items, b)
	}
	return items, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(row rowScanner) (*models.TimeSession, error) {
	var s models.TimeSession
	err := row.Scan(
		&s.ID, &s.UserID, &s.WorkDate, &s.ClockIn, &s.ClockOut,
		&s.WorkMinutes, &s.BreakMinutes, &s.Status,
		&s.Overtime, &s.LateIn, &s.EarlyOut, &s.AutoClockedOut,
		&s.CreateTime, &s.ChangeTime,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, faults.New(faults.NotFound, "session not found")
	}
	if err != nil {
		return nil, fmt.Errorf("scan session: %w", err)
	}
	return &s, nil
}

func collectSessions(rows *sql.Rows) ([]models.TimeSession, error) {
	defer rows.Close()
	var items []models.TimeSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *s)
	}
	return items, rows.Err()
}
