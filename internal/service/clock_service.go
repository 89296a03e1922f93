package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/workpulse/workpulse/internal/audit"
	"github.com/workpulse/workpulse/internal/config"
	"github.com/workpulse/workpulse/internal/faults"
	"github.com/workpulse/workpulse/internal/models"
	"github.com/workpulse/workpulse/internal/repository"
)

// ClockService owns the time-session lifecycle: clock-in, breaks, clock-out
// and the derived duration arithmetic. All uniqueness and state invariants
// are enforced by the store's conditional writes; the service adds the
// arithmetic, the attendance flags and the audit trail.
type ClockService struct {
	sessions repository.TimeSessionStore
	recorder *audit.Recorder
	cfg      config.AttendanceConfig
	log      *logrus.Logger
}

func NewClockService(sessions repository.TimeSessionStore, recorder *audit.Recorder, cfg config.AttendanceConfig, log *logrus.Logger) *ClockService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &ClockService{sessions: sessions, recorder: recorder, cfg: cfg, log: log}
}

// minutesBetween rounds a millisecond difference to the nearest whole
// minute, ties rounding up. Negative spans clamp to zero.
func minutesBetween(from, to time.Time) int {
	ms := to.Sub(from).Milliseconds()
	if ms <= 0 {
		return 0
	}
	return int((ms + 30_000) / 60_000)
}

// ClockIn opens a new session dated at now's calendar day. At most one
// active session may exist per user system-wide; a second clock-in fails
// with Conflict regardless of date.
func (s *ClockService) ClockIn(userID int, now time.Time) (*models.TimeSession, error) {
	session := &models.TimeSession{
		UserID:   userID,
		WorkDate: now.Format("2006-01-02"),
		ClockIn:  now,
	}
	if err := s.sessions.CreateActive(session); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"user_id":    userID,
		"session_id": session.ID,
		"work_date":  session.WorkDate,
	}).Info("clocked in")
	s.recorder.Record(context.Background(), models.AuditClockIn, userID, userID,
		"time_session", session.ID, nil,
		map[string]interface{}{"status": models.SessionActive, "clock_in": now},
		"")
	return session, nil
}

// StartBreak opens a break on the caller's session. The store rejects a
// second open break or a break on a non-active session.
func (s *ClockService) StartBreak(actorID, sessionID int, reason string, now time.Time) (*models.SessionBreak, error) {
	session, err := s.sessions.GetByID(sessionID)
	if err != nil {
		return nil, err
	}
	if session.UserID != actorID {
		return nil, faults.New(faults.Forbidden, "session belongs to another user")
	}

	b := &models.SessionBreak{SessionID: sessionID, StartTime: now, Reason: reason}
	if err := s.sessions.OpenBreak(b); err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{
		"session_id": sessionID,
		"break_id":   b.ID,
	}).Info("break started")
	return b, nil
}

// EndBreak closes an open break and adds its rounded duration to the parent
// session's accumulated break minutes.
func (s *ClockService) EndBreak(actorID, breakID int, now time.Time) (*models.SessionBreak, error) {
	b, err := s.sessions.GetBreak(breakID)
	if err != nil {
		return nil, err
	}
	session, err := s.sessions.GetByID(b.SessionID)
	if err != nil {
		return nil, err
	}
	if session.UserID != actorID {
		return nil, faults.New(faults.Forbidden, "break belongs to another user")
	}

	duration := minutesBetween(b.StartTime, now)
	if err := s.sessions.CloseBreak(breakID, now, duration); err != nil {
		return nil, err
	}
	return s.sessions.GetBreak(breakID)
}

// ClockOut completes the session: elapsed = now - clockIn, work = elapsed
// minus accumulated break minutes, floored at zero. Open breaks must be
// ended first.
func (s *ClockService) ClockOut(actorID, sessionID int, now time.Time) (*models.TimeSession, error) {
	session, err := s.sessions.GetByID(sessionID)
	if err != nil {
		return nil, err
	}
	if session.UserID != actorID {
		return nil, faults.New(faults.Forbidden, "session belongs to another user")
	}

	return s.complete(session, now, false)
}

func (s *ClockService) complete(session *models.TimeSession, now time.Time, auto bool) (*models.TimeSession, error) {
	elapsed := minutesBetween(session.ClockIn, now)
	work := elapsed - session.BreakMinutes
	if work < 0 {
		work = 0
	}

	overtime := work > s.cfg.RequiredMinutes+s.cfg.OvertimeAfter
	lateIn := s.minuteOfDay(session.ClockIn) > s.startOfDayMinute()+s.cfg.GraceMinutes
	earlyOut := s.minuteOfDay(now) < s.endOfDayMinute()-s.cfg.GraceMinutes

	err := s.sessions.Complete(session.ID, now, work, session.BreakMinutes,
		overtime, lateIn, earlyOut, auto)
	if err != nil {
		return nil, err
	}

	action := models.AuditClockOut
	if auto {
		action = models.AuditAutoClockOut
	}
	s.log.WithFields(logrus.Fields{
		"session_id":   session.ID,
		"work_minutes": work,
		"auto":         auto,
	}).Info("clocked out")
	s.recorder.Record(context.Background(), action, session.UserID, session.UserID,
		"time_session", session.ID,
		map[string]interface{}{"status": models.SessionActive},
		map[string]interface{}{"status": models.SessionCompleted, "work_minutes": work},
		"")

	return s.sessions.GetByID(session.ID)
}

// GetActive returns the running-session projection, or nil when the user has
// no active session; that absence is not an error.
func (s *ClockService) GetActive(userID int, now time.Time) (*models.ActiveSessionView, error) {
	session, err := s.sessions.GetActiveByUser(userID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, nil
	}

	breaks, err := s.sessions.ListBreaks(session.ID)
	if err != nil {
		return nil, err
	}

	breakMinutes := session.BreakMinutes
	onBreak := false
	for i := range breaks {
		if breaks[i].EndTime == nil {
			onBreak = true
			// Include the running break in the projection only; the stored
			// counter is updated when the break closes.
			breakMinutes += minutesBetween(breaks[i].StartTime, now)
		}
	}

	elapsed := minutesBetween(session.ClockIn, now)
	work := elapsed - breakMinutes
	if work < 0 {
		work = 0
	}
	return &models.ActiveSessionView{
		Session:        session,
		ElapsedMinutes: elapsed,
		WorkMinutes:    work,
		BreakMinutes:   breakMinutes,
		OnBreak:        onBreak,
		Breaks:         breaks,
	}, nil
}

// ListSessions returns a user's sessions in a date range, newest first.
func (s *ClockService) ListSessions(userID int, fromDate, toDate string) ([]models.TimeSession, error) {
	if !validDate(fromDate) || !validDate(toDate) {
		return nil, faults.New(faults.InvalidInput, "dates must be YYYY-MM-DD")
	}
	return s.sessions.ListByUserRange(userID, fromDate, toDate)
}

// ListAllSessions is the privileged range listing behind the export.
func (s *ClockService) ListAllSessions(fromDate, toDate string) ([]models.TimeSession, error) {
	if !validDate(fromDate) || !validDate(toDate) {
		return nil, faults.New(faults.InvalidInput, "dates must be YYYY-MM-DD")
	}
	return s.sessions.ListRange(fromDate, toDate)
}

// AutoClockOutStale completes sessions whose clock-in is older than the
// configured cutoff, closing any open break first. Called by the scheduler.
func (s *ClockService) AutoClockOutStale(now time.Time) int {
	cutoff := now.Add(-s.cfg.AutoClockOutAfter)
	stale, err := s.sessions.ListStaleActive(cutoff)
	if err != nil {
		s.log.WithError(err).Error("stale session sweep failed")
		return 0
	}

	closed := 0
	for i := range stale {
		session := stale[i]
		breaks, err := s.sessions.ListBreaks(session.ID)
		if err != nil {
			s.log.WithError(err).WithField("session_id", session.ID).Warn("sweep: list breaks failed")
			continue
		}
		for j := range breaks {
			if breaks[j].EndTime == nil {
				d := minutesBetween(breaks[j].StartTime, now)
				if err := s.sessions.CloseBreak(breaks[j].ID, now, d); err != nil {
					s.log.WithError(err).WithField("break_id", breaks[j].ID).Warn("sweep: close break failed")
				} else {
					session.BreakMinutes += d
				}
			}
		}
		if _, err := s.complete(&session, now, true); err != nil {
			s.log.WithError(err).WithField("session_id", session.ID).Warn("sweep: complete failed")
			continue
		}
		closed++
	}
	if closed > 0 {
		s.log.WithField("sessions", closed).Info("auto clock-out sweep done")
	}
	return closed
}

func (s *ClockService) minuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

func (s *ClockService) startOfDayMinute() int {
	ct, err := config.ParseClock(s.cfg.WorkdayStart)
	if err != nil {
		return 9 * 60
	}
	return ct.MinuteOfDay()
}

func (s *ClockService) endOfDayMinute() int {
	ct, err := config.ParseClock(s.cfg.WorkdayEnd)
	if err != nil {
		return 18 * 60
	}
	return ct.MinuteOfDay()
}

func validDate(s string) bool {
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}
