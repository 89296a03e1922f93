package service

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/workpulse/workpulse/internal/audit"
	"github.com/workpulse/workpulse/internal/config"
	"github.com/workpulse/workpulse/internal/faults"
	"github.com/workpulse/workpulse/internal/models"
	"github.com/workpulse/workpulse/internal/repository"
)

type leaveFixture struct {
	svc      *LeaveService
	users    *repository.MemoryUserStore
	types    *repository.MemoryLeaveTypeStore
	balances *repository.MemoryBalanceStore
	requests *repository.MemoryLeaveRequestStore
	audits   *repository.MemoryAuditStore

	employee *models.User
	manager  *models.User
	casual   *models.LeaveType
}

func newLeaveFixture(t *testing.T) *leaveFixture {
	t.Helper()

	users := repository.NewMemoryUserStore()
	types := repository.NewMemoryLeaveTypeStore()
	balances := repository.NewMemoryBalanceStore()
	requests := repository.NewMemoryLeaveRequestStore(users)
	attachments := repository.NewMemoryAttachmentStore()
	audits := repository.NewMemoryAuditStore()

	manager := &models.User{Login: "boss", FullName: "The Boss", Role: models.RoleManager}
	require.NoError(t, users.Create(manager))
	employee := &models.User{Login: "worker", FullName: "A Worker", Role: models.RoleEmployee, ManagerID: &manager.ID}
	require.NoError(t, users.Create(employee))

	casual := &models.LeaveType{Code: "CL", Name: "Casual Leave", AnnualQuotaMinutes: 960}
	require.NoError(t, types.Create(casual))

	cfg := config.LeaveConfig{DayMinutes: 480}
	recorder := audit.NewRecorder(audits, nil)
	svc := NewLeaveService(requests, balances, types, users, attachments, recorder, nil, cfg, nil)

	return &leaveFixture{
		svc: svc, users: users, types: types, balances: balances, requests: requests,
		audits: audits, employee: employee, manager: manager, casual: casual,
	}
}

// Monday to Friday of the first week of March 2026.
const (
	monday = "2026-03-02"
	friday = "2026-03-06"
	sunday = "2026-03-08"
)

func TestApplyApproveDebitsBalanceOnce(t *testing.T) {
	f := newLeaveFixture(t)
	require.NoError(t, f.balances.Allocate(f.employee.ID, 2026, f.casual.ID, 960))

	req, err := f.svc.Apply(f.employee.ID, "CL", monday, monday, models.DurationFullDay, "errand", nil)
	require.NoError(t, err)
	assert.Equal(t, models.LeavePending, req.Status)

	approved, err := f.svc.Approve(req.ID, f.manager.ID, "ok")
	require.NoError(t, err)
	assert.Equal(t, models.LeaveApproved, approved.Status)
	assert.Equal(t, 480, approved.DebitedMinutes)
	require.NotNil(t, approved.DecidedBy)
	assert.Equal(t, f.manager.ID, *approved.DecidedBy)

	views, err := f.svc.Balances(f.employee.ID, 2026)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, 960, views[0].AllocatedMinutes)
	assert.Equal(t, 480, views[0].UsedMinutes)
	assert.Equal(t, 480, views[0].RemainingMinutes)

	// The decision is final; a second approval must not debit again.
	_, err = f.svc.Approve(req.ID, f.manager.ID, "again")
	require.Error(t, err)
	assert.True(t, faults.Is(err, faults.InvalidState))

	views, err = f.svc.Balances(f.employee.ID, 2026)
	require.NoError(t, err)
	assert.Equal(t, 480, views[0].UsedMinutes)
}

func TestWeekRequestCountsBusinessDays(t *testing.T) {
	f := newLeaveFixture(t)

	req, err := f.svc.Apply(f.employee.ID, "CL", monday, sunday, models.DurationFullDay, "", nil)
	require.NoError(t, err)

	minutes, err := f.svc.RequestMinutes(req)
	require.NoError(t, err)
	// Mon through Sun spans five business days; the weekend is free.
	assert.Equal(t, 5*480, minutes)
}

func TestHalfDayDebitsHalfTheDayLength(t *testing.T) {
	f := newLeaveFixture(t)

	req, err := f.svc.Apply(f.employee.ID, "CL", monday, monday, models.DurationHalfFirst, "", nil)
	require.NoError(t, err)

	approved, err := f.svc.Approve(req.ID, f.manager.ID, "")
	require.NoError(t, err)
	assert.Equal(t, 240, approved.DebitedMinutes)
}

func TestHalfDayMustBeSingleDay(t *testing.T) {
	f := newLeaveFixture(t)
	_, err := f.svc.Apply(f.employee.ID, "CL", monday, friday, models.DurationHalfSecond, "", nil)
	require.Error(t, err)
	assert.True(t, faults.Is(err, faults.InvalidInput))
}

func TestApplyValidation(t *testing.T) {
	f := newLeaveFixture(t)

	_, err := f.svc.Apply(f.employee.ID, "CL", "02-03-2026", monday, models.DurationFullDay, "", nil)
	assert.True(t, faults.Is(err, faults.InvalidInput))

	_, err = f.svc.Apply(f.employee.ID, "CL", friday, monday, models.DurationFullDay, "", nil)
	assert.True(t, faults.Is(err, faults.InvalidInput))

	_, err = f.svc.Apply(f.employee.ID, "NOPE", monday, monday, models.DurationFullDay, "", nil)
	assert.True(t, faults.Is(err, faults.NotFound))

	_, err = f.svc.Apply(f.employee.ID, "CL", monday, monday, "quarter-day", "", nil)
	assert.True(t, faults.Is(err, faults.InvalidInput))

	_, err = f.svc.Apply(f.employee.ID, "CL", monday, monday, models.DurationFullDay, "", []int{999})
	assert.True(t, faults.Is(err, faults.InvalidInput))
}

func TestOverlappingRequestRejected(t *testing.T) {
	f := newLeaveFixture(t)

	_, err := f.svc.Apply(f.employee.ID, "CL", monday, friday, models.DurationFullDay, "", nil)
	require.NoError(t, err)

	_, err = f.svc.Apply(f.employee.ID, "CL", "2026-03-04", "2026-03-10", models.DurationFullDay, "", nil)
	require.Error(t, err)
	assert.True(t, faults.Is(err, faults.Conflict))

	// A rejected request no longer blocks the range.
	reqs, err := f.requests.ListByUser(f.employee.ID)
	require.NoError(t, err)
	_, err = f.svc.Reject(reqs[0].ID, f.manager.ID, "no")
	require.NoError(t, err)

	_, err = f.svc.Apply(f.employee.ID, "CL", "2026-03-04", "2026-03-10", models.DurationFullDay, "", nil)
	assert.NoError(t, err)
}

func TestCancelAfterApproveCreditsExactly(t *testing.T) {
	f := newLeaveFixture(t)

	req, err := f.svc.Apply(f.employee.ID, "CL", monday, friday, models.DurationFullDay, "", nil)
	require.NoError(t, err)
	approved, err := f.svc.Approve(req.ID, f.manager.ID, "")
	require.NoError(t, err)
	assert.Equal(t, 2400, approved.DebitedMinutes)

	b, err := f.balances.Get(f.employee.ID, 2026, f.casual.ID)
	require.NoError(t, err)
	assert.Equal(t, 2400, b.UsedMinutes)

	cancelled, err := f.svc.Cancel(req.ID, f.employee.ID, string(models.RoleEmployee))
	require.NoError(t, err)
	assert.Equal(t, models.LeaveCancelled, cancelled.Status)

	b, err = f.balances.Get(f.employee.ID, 2026, f.casual.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, b.UsedMinutes)
}

func TestCancelPendingByStranger(t *testing.T) {
	f := newLeaveFixture(t)

	stranger := &models.User{Login: "other", Role: models.RoleEmployee}
	require.NoError(t, f.users.Create(stranger))

	req, err := f.svc.Apply(f.employee.ID, "CL", monday, monday, models.DurationFullDay, "", nil)
	require.NoError(t, err)

	_, err = f.svc.Cancel(req.ID, stranger.ID, string(models.RoleEmployee))
	require.Error(t, err)
	assert.True(t, faults.Is(err, faults.Forbidden))

	// A decider role may cancel someone else's request.
	_, err = f.svc.Cancel(req.ID, f.manager.ID, string(models.RoleManager))
	assert.NoError(t, err)
}

func TestCancelTerminalRequestIsInvalidState(t *testing.T) {
	f := newLeaveFixture(t)

	req, err := f.svc.Apply(f.employee.ID, "CL", monday, monday, models.DurationFullDay, "", nil)
	require.NoError(t, err)
	_, err = f.svc.Reject(req.ID, f.manager.ID, "no")
	require.NoError(t, err)

	_, err = f.svc.Cancel(req.ID, f.employee.ID, string(models.RoleEmployee))
	require.Error(t, err)
	assert.True(t, faults.Is(err, faults.InvalidState))
}

func TestPendingQueueFollowsManagerEdge(t *testing.T) {
	f := newLeaveFixture(t)

	otherManager := &models.User{Login: "boss2", Role: models.RoleManager}
	require.NoError(t, f.users.Create(otherManager))
	otherReport := &models.User{Login: "worker2", Role: models.RoleEmployee, ManagerID: &otherManager.ID}
	require.NoError(t, f.users.Create(otherReport))

	_, err := f.svc.Apply(f.employee.ID, "CL", monday, monday, models.DurationFullDay, "", nil)
	require.NoError(t, err)
	_, err = f.svc.Apply(otherReport.ID, "CL", monday, monday, models.DurationFullDay, "", nil)
	require.NoError(t, err)

	queue, err := f.svc.ListPendingForManager(f.manager.ID)
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, f.employee.ID, queue[0].UserID)
	require.NotNil(t, queue[0].Requester)
	assert.Equal(t, "worker", queue[0].Requester.Login)
	require.NotNil(t, queue[0].LeaveType)
	assert.Equal(t, "CL", queue[0].LeaveType.Code)
	assert.NotEmpty(t, queue[0].AppliedAgo)
}

func TestBalancesIncludeImplicitZeroRows(t *testing.T) {
	f := newLeaveFixture(t)
	sick := &models.LeaveType{Code: "SL", Name: "Sick Leave", AnnualQuotaMinutes: 480}
	require.NoError(t, f.types.Create(sick))

	require.NoError(t, f.balances.Allocate(f.employee.ID, 2026, f.casual.ID, 960))

	views, err := f.svc.Balances(f.employee.ID, 2026)
	require.NoError(t, err)
	require.Len(t, views, 2)
	// Sorted by code: CL then SL.
	assert.Equal(t, 960, views[0].AllocatedMinutes)
	assert.Equal(t, 0, views[1].AllocatedMinutes)
	assert.Equal(t, 0, views[1].RemainingMinutes)
}

func TestAllocateYearCarriesForwardRemainder(t *testing.T) {
	f := newLeaveFixture(t)
	carry := &models.LeaveType{Code: "PL", Name: "Privilege Leave", AnnualQuotaMinutes: 960, CarryForward: true}
	require.NoError(t, f.types.Create(carry))

	require.NoError(t, f.balances.Allocate(f.employee.ID, 2025, carry.ID, 960))
	require.NoError(t, f.balances.AddUsed(f.employee.ID, 2025, carry.ID, 480))

	require.NoError(t, f.svc.AllocateYear(2026))

	pl, err := f.balances.Get(f.employee.ID, 2026, carry.ID)
	require.NoError(t, err)
	assert.Equal(t, 960+480, pl.AllocatedMinutes)

	// Non-carrying types get the plain quota.
	cl, err := f.balances.Get(f.employee.ID, 2026, f.casual.ID)
	require.NoError(t, err)
	assert.Equal(t, 960, cl.AllocatedMinutes)

	// Re-running the job leaves existing rows untouched.
	require.NoError(t, f.svc.AllocateYear(2026))
	pl, err = f.balances.Get(f.employee.ID, 2026, carry.ID)
	require.NoError(t, err)
	assert.Equal(t, 960+480, pl.AllocatedMinutes)
}

func TestTypeCatalogue(t *testing.T) {
	f := newLeaveFixture(t)

	err := f.svc.CreateType(&models.LeaveType{Code: "CL", Name: "Duplicate"})
	assert.True(t, faults.Is(err, faults.Conflict))

	err = f.svc.CreateType(&models.LeaveType{Name: "No Code"})
	assert.True(t, faults.Is(err, faults.InvalidInput))

	require.NoError(t, f.svc.CreateType(&models.LeaveType{Code: "SL", Name: "Sick Leave", AnnualQuotaMinutes: 480}))
	types, err := f.svc.ListTypes(true)
	require.NoError(t, err)
	assert.Len(t, types, 2)
}

func TestRejectAlreadyRejectedLeavesAuditAlone(t *testing.T) {
	f := newLeaveFixture(t)

	req, err := f.svc.Apply(f.employee.ID, "CL", monday, monday, models.DurationFullDay, "errand", nil)
	require.NoError(t, err)

	_, err = f.svc.Reject(req.ID, f.manager.ID, "no cover")
	require.NoError(t, err)
	entries, err := f.audits.ListRecent(100)
	require.NoError(t, err)
	recorded := len(entries)
	require.Greater(t, recorded, 0)

	_, err = f.svc.Reject(req.ID, f.manager.ID, "again")
	require.Error(t, err)
	assert.Equal(t, faults.InvalidState, faults.KindOf(err))

	// The failed second decision writes no audit entry and keeps the
	// original comment.
	entries, err = f.audits.ListRecent(100)
	require.NoError(t, err)
	assert.Len(t, entries, recorded)

	current, err := f.requests.GetByID(req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LeaveRejected, current.Status)
	require.NotNil(t, current.ManagerComment)
	assert.Equal(t, "no cover", *current.ManagerComment)
}

type debitFailingBalances struct {
	*repository.MemoryBalanceStore
	fail bool
}

func (d *debitFailingBalances) AddUsed(userID, year, leaveTypeID, minutes int) error {
	if d.fail {
		d.fail = false
		return errors.New("balance storage offline")
	}
	return d.MemoryBalanceStore.AddUsed(userID, year, leaveTypeID, minutes)
}

func TestApproveRevertsTransitionWhenDebitFails(t *testing.T) {
	f := newLeaveFixture(t)
	balances := &debitFailingBalances{MemoryBalanceStore: f.balances, fail: true}
	svc := NewLeaveService(f.requests, balances, f.types, f.users,
		repository.NewMemoryAttachmentStore(), nil, nil, config.LeaveConfig{DayMinutes: 480}, nil)

	require.NoError(t, f.balances.Allocate(f.employee.ID, 2026, f.casual.ID, 960))
	req, err := svc.Apply(f.employee.ID, "CL", monday, monday, models.DurationFullDay, "errand", nil)
	require.NoError(t, err)

	_, err = svc.Approve(req.ID, f.manager.ID, "ok")
	require.Error(t, err)

	current, err := f.requests.GetByID(req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LeavePending, current.Status)
	assert.Zero(t, current.DebitedMinutes)

	// The request stays decidable and a retry debits exactly once.
	approved, err := svc.Approve(req.ID, f.manager.ID, "ok")
	require.NoError(t, err)
	assert.Equal(t, models.LeaveApproved, approved.Status)
	assert.Equal(t, 480, approved.DebitedMinutes)

	b, err := f.balances.Get(f.employee.ID, 2026, f.casual.ID)
	require.NoError(t, err)
	assert.Equal(t, 480, b.UsedMinutes)
}
