package service

import (
	"context"
	"time"

	"github.com/rickar/cal/v2"
	"github.com/sirupsen/logrus"
	"github.com/xeonx/timeago"

	"github.com/workpulse/workpulse/internal/audit"
	"github.com/workpulse/workpulse/internal/auth"
	"github.com/workpulse/workpulse/internal/config"
	"github.com/workpulse/workpulse/internal/faults"
	"github.com/workpulse/workpulse/internal/models"
	"github.com/workpulse/workpulse/internal/repository"
)

// LeaveService owns the leave-request lifecycle and the balance ledger.
// Status transitions go through the store's compare-and-swap, so a request
// is decided at most once and the balance is debited exactly once.
type LeaveService struct {
	requests    repository.LeaveRequestStore
	balances    repository.LeaveBalanceStore
	types       repository.LeaveTypeStore
	users       repository.UserStore
	attachments repository.AttachmentStore
	recorder    *audit.Recorder
	caps        *auth.Capabilities
	calendar    *cal.BusinessCalendar
	cfg         config.LeaveConfig
	log         *logrus.Logger
}

func NewLeaveService(
	requests repository.LeaveRequestStore,
	balances repository.LeaveBalanceStore,
	types repository.LeaveTypeStore,
	users repository.UserStore,
	attachments repository.AttachmentStore,
	recorder *audit.Recorder,
	caps *auth.Capabilities,
	cfg config.LeaveConfig,
	log *logrus.Logger,
) *LeaveService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if caps == nil {
		caps = auth.NewCapabilities()
	}
	return &LeaveService{
		requests:    requests,
		balances:    balances,
		types:       types,
		users:       users,
		attachments: attachments,
		recorder:    recorder,
		caps:        caps,
		calendar:    buildCalendar(cfg.Holidays),
		cfg:         cfg,
		log:         log,
	}
}

// buildCalendar sets up the business-day calendar: weekends plus the
// configured holidays are not leave-consuming days.
func buildCalendar(holidays []string) *cal.BusinessCalendar {
	c := cal.NewBusinessCalendar()
	for _, h := range holidays {
		d, err := time.Parse("2006-01-02", h)
		if err != nil {
			continue
		}
		c.AddHoliday(&cal.Holiday{
			Name:      "configured holiday",
			Type:      cal.ObservancePublic,
			Month:     d.Month(),
			Day:       d.Day(),
			StartYear: d.Year(),
			EndYear:   d.Year(),
			Func:      cal.CalcDayOfMonth,
		})
	}
	return c
}

// Apply files a pending request. No balance is touched here; the debit
// happens on approval.
func (s *LeaveService) Apply(userID int, typeCode, startDate, endDate, durationKind, reason string, ccUserIDs []int) (*models.LeaveRequest, error) {
	if !validDate(startDate) || !validDate(endDate) {
		return nil, faults.New(faults.InvalidInput, "dates must be YYYY-MM-DD")
	}
	if startDate > endDate {
		return nil, faults.New(faults.InvalidInput, "start date is after end date")
	}
	switch durationKind {
	case models.DurationFullDay:
	case models.DurationHalfFirst, models.DurationHalfSecond:
		if startDate != endDate {
			return nil, faults.New(faults.InvalidInput, "half-day leave must cover a single day")
		}
	default:
		return nil, faults.New(faults.InvalidInput, "unknown duration kind")
	}

	lt, err := s.types.GetByCode(typeCode)
	if err != nil {
		return nil, err
	}
	if lt.ValidID != 1 {
		return nil, faults.Newf(faults.InvalidInput, "leave type %s is not active", typeCode)
	}
	for _, ccID := range ccUserIDs {
		if _, err := s.users.GetByID(ccID); err != nil {
			return nil, faults.Newf(faults.InvalidInput, "cc user %d does not exist", ccID)
		}
	}

	overlapping, err := s.requests.ListOverlapping(userID, startDate, endDate)
	if err != nil {
		return nil, err
	}
	if len(overlapping) > 0 {
		return nil, faults.Newf(faults.Conflict,
			"overlapping leave request exists (%s to %s)",
			overlapping[0].StartDate, overlapping[0].EndDate)
	}

	req := &models.LeaveRequest{
		UserID:       userID,
		LeaveTypeID:  lt.ID,
		StartDate:    startDate,
		EndDate:      endDate,
		DurationKind: durationKind,
		Reason:       reason,
		CCUserIDs:    ccUserIDs,
	}
	if err := s.requests.Create(req); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"request_id": req.ID,
		"user_id":    userID,
		"type":       typeCode,
	}).Info("leave applied")
	s.recorder.Record(context.Background(), models.AuditLeaveApply, userID, userID,
		"leave_request", req.ID, nil,
		map[string]interface{}{"status": models.LeavePending, "start": startDate, "end": endDate},
		reason)
	return req, nil
}

// RequestMinutes converts a request's range and kind into leave minutes:
// business days in the inclusive range times the configured day length, or
// half a day length for half-day kinds.
func (s *LeaveService) RequestMinutes(req *models.LeaveRequest) (int, error) {
	switch req.DurationKind {
	case models.DurationHalfFirst, models.DurationHalfSecond:
		return s.cfg.DayMinutes / 2, nil
	}

	start, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return 0, faults.Wrap(faults.InvalidInput, err, "bad start date")
	}
	end, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		return 0, faults.Wrap(faults.InvalidInput, err, "bad end date")
	}

	days := 0
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if s.calendar.IsWorkday(d) {
			days++
		}
	}
	// A request placed entirely on non-business days still consumes one day.
	if days == 0 {
		days = 1
	}
	return days * s.cfg.DayMinutes, nil
}

// Approve decides a pending request and debits the balance for the year of
// the start date. The transition is conditional on status=pending, so a
// second approval fails with InvalidState and the debit happens once.
func (s *LeaveService) Approve(requestID, approverID int, comment string) (*models.LeaveRequest, error) {
	req, err := s.requests.GetByID(requestID)
	if err != nil {
		return nil, err
	}
	minutes, err := s.RequestMinutes(req)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	commentPtr := optionalString(comment)
	if err := s.requests.Transition(requestID, models.LeavePending, models.LeaveApproved,
		&approverID, commentPtr, now, minutes); err != nil {
		return nil, err
	}

	year := yearOf(req.StartDate)
	if err := s.balances.AddUsed(req.UserID, year, req.LeaveTypeID, minutes); err != nil {
		s.log.WithError(err).WithField("request_id", requestID).Error("balance debit failed")
		// Revert the transition so the request stays pending and decidable
		// instead of sitting approved with nothing debited.
		if rbErr := s.requests.Transition(requestID, models.LeaveApproved, models.LeavePending,
			nil, nil, now, -minutes); rbErr != nil {
			s.log.WithError(rbErr).WithField("request_id", requestID).Error("approval revert failed")
		}
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"request_id": requestID,
		"approver":   approverID,
		"minutes":    minutes,
	}).Info("leave approved")
	s.recorder.Record(context.Background(), models.AuditLeaveApprove, approverID, req.UserID,
		"leave_request", requestID,
		map[string]interface{}{"status": models.LeavePending},
		map[string]interface{}{"status": models.LeaveApproved, "debited_minutes": minutes},
		comment)
	return s.requests.GetByID(requestID)
}

// Reject decides a pending request with no balance effect.
func (s *LeaveService) Reject(requestID, approverID int, comment string) (*models.LeaveRequest, error) {
	req, err := s.requests.GetByID(requestID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if err := s.requests.Transition(requestID, models.LeavePending, models.LeaveRejected,
		&approverID, optionalString(comment), now, 0); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"request_id": requestID,
		"approver":   approverID,
	}).Info("leave rejected")
	s.recorder.Record(context.Background(), models.AuditLeaveReject, approverID, req.UserID,
		"leave_request", requestID,
		map[string]interface{}{"status": models.LeavePending},
		map[string]interface{}{"status": models.LeaveRejected},
		comment)
	return s.requests.GetByID(requestID)
}

// Cancel withdraws a request. The owner may cancel while pending; deciders
// may cancel at any pre-terminal point. Cancelling an approved request
// credits back exactly the minutes that were debited.
func (s *LeaveService) Cancel(requestID, actorID int, actorRole string) (*models.LeaveRequest, error) {
	req, err := s.requests.GetByID(requestID)
	if err != nil {
		return nil, err
	}

	isOwner := req.UserID == actorID
	isDecider := s.caps.Allowed(actorRole, auth.ActionLeaveDecide)
	if !isOwner && !isDecider {
		return nil, faults.New(faults.Forbidden, "not permitted to cancel this request")
	}

	now := time.Now()
	switch req.Status {
	case models.LeavePending:
		if err := s.requests.Transition(requestID, models.LeavePending, models.LeaveCancelled,
			&actorID, nil, now, 0); err != nil {
			return nil, err
		}
	case models.LeaveApproved:
		if err := s.requests.Transition(requestID, models.LeaveApproved, models.LeaveCancelled,
			&actorID, nil, now, 0); err != nil {
			return nil, err
		}
		if req.DebitedMinutes > 0 {
			year := yearOf(req.StartDate)
			if err := s.balances.AddUsed(req.UserID, year, req.LeaveTypeID, -req.DebitedMinutes); err != nil {
				s.log.WithError(err).WithField("request_id", requestID).Error("balance credit failed")
				return nil, err
			}
		}
	default:
		return nil, faults.Newf(faults.InvalidState, "request is already %s", req.Status)
	}

	s.log.WithFields(logrus.Fields{
		"request_id": requestID,
		"actor":      actorID,
	}).Info("leave cancelled")
	s.recorder.Record(context.Background(), models.AuditLeaveCancel, actorID, req.UserID,
		"leave_request", requestID,
		map[string]interface{}{"status": req.Status},
		map[string]interface{}{"status": models.LeaveCancelled},
		"")
	return s.requests.GetByID(requestID)
}

// ListForUser returns the user's requests newest first, enriched for display.
func (s *LeaveService) ListForUser(userID int) ([]models.LeaveRequestView, error) {
	items, err := s.requests.ListByUser(userID)
	if err != nil {
		return nil, err
	}
	return s.enrich(items)
}

// ListAll is the privileged listing across all users.
func (s *LeaveService) ListAll() ([]models.LeaveRequestView, error) {
	items, err := s.requests.ListAll()
	if err != nil {
		return nil, err
	}
	return s.enrich(items)
}

// ListPendingForManager returns pending requests of the manager's direct
// reports, oldest first.
func (s *LeaveService) ListPendingForManager(managerID int) ([]models.LeaveRequestView, error) {
	items, err := s.requests.ListPendingForManager(managerID)
	if err != nil {
		return nil, err
	}
	return s.enrich(items)
}

func (s *LeaveService) enrich(items []models.LeaveRequest) ([]models.LeaveRequestView, error) {
	views := make([]models.LeaveRequestView, 0, len(items))
	for i := range items {
		req := items[i]
		view := models.LeaveRequestView{
			LeaveRequest: req,
			AppliedAgo:   timeago.English.Format(req.AppliedAt),
		}
		if lt, err := s.types.GetByID(req.LeaveTypeID); err == nil {
			view.LeaveType = lt
		}
		if refs, err := s.users.ListRefs([]int{req.UserID}); err == nil && len(refs) == 1 {
			view.Requester = &refs[0]
		}
		if len(req.CCUserIDs) > 0 {
			if refs, err := s.users.ListRefs(req.CCUserIDs); err == nil {
				view.CCUsers = refs
			}
		}
		if atts, err := s.attachments.ListByRequest(req.ID); err == nil {
			view.Attachments = atts
		}
		views = append(views, view)
	}
	return views, nil
}

// Balances reports the user's balances for a year, including implicit zero
// rows for active types with no allocation yet. Remaining never goes
// negative.
func (s *LeaveService) Balances(userID, year int) ([]models.BalanceView, error) {
	types, err := s.types.List(true)
	if err != nil {
		return nil, err
	}
	rows, err := s.balances.ListByUserYear(userID, year)
	if err != nil {
		return nil, err
	}

	byType := make(map[int]models.LeaveBalance, len(rows))
	for _, b := range rows {
		byType[b.LeaveTypeID] = b
	}

	views := make([]models.BalanceView, 0, len(types))
	for i := range types {
		lt := types[i]
		b := byType[lt.ID]
		views = append(views, models.BalanceView{
			LeaveType:        &lt,
			Year:             year,
			AllocatedMinutes: b.AllocatedMinutes,
			UsedMinutes:      b.UsedMinutes,
			RemainingMinutes: (&b).RemainingMinutes(),
		})
	}
	return views, nil
}

// AllocateYear creates the year's balance rows for every valid user and
// active type from the type quota, carrying forward the previous year's
// remainder when the type allows it. Existing rows are left untouched.
func (s *LeaveService) AllocateYear(year int) error {
	users, err := s.users.ListValid()
	if err != nil {
		return err
	}
	types, err := s.types.List(true)
	if err != nil {
		return err
	}

	for _, u := range users {
		for _, lt := range types {
			allocated := lt.AnnualQuotaMinutes
			if lt.CarryForward {
				if prev, err := s.balances.Get(u.ID, year-1, lt.ID); err == nil {
					allocated += prev.RemainingMinutes()
				}
			}
			if err := s.balances.Allocate(u.ID, year, lt.ID, allocated); err != nil {
				return err
			}
		}
	}
	s.log.WithFields(logrus.Fields{
		"year":  year,
		"users": len(users),
		"types": len(types),
	}).Info("annual leave allocation done")
	return nil
}

// CreateType adds a leave type to the catalogue.
func (s *LeaveService) CreateType(lt *models.LeaveType) error {
	if lt.Code == "" || lt.Name == "" {
		return faults.New(faults.InvalidInput, "code and name are required")
	}
	if existing, err := s.types.GetByCode(lt.Code); err == nil && existing != nil {
		return faults.Newf(faults.Conflict, "leave type %s already exists", lt.Code)
	}
	return s.types.Create(lt)
}

// UpdateType edits a leave type.
func (s *LeaveService) UpdateType(lt *models.LeaveType) error {
	if lt.ID == 0 {
		return faults.New(faults.InvalidInput, "leave type id is required")
	}
	return s.types.Update(lt)
}

// ListTypes returns the catalogue.
func (s *LeaveService) ListTypes(onlyValid bool) ([]models.LeaveType, error) {
	return s.types.List(onlyValid)
}

// Attachments lists the files attached to a request.
func (s *LeaveService) Attachments(requestID int) ([]models.LeaveAttachment, error) {
	return s.attachments.ListByRequest(requestID)
}

func yearOf(date string) int {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return time.Now().Year()
	}
	return t.Year()
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
