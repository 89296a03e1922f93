package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/workpulse/workpulse/internal/faults"
	"github.com/workpulse/workpulse/internal/models"
)

// In-memory stores used by service tests and local development without a
// database. Each guards its state with a mutex, so the conditional-mutation
// semantics match the SQL stores: the invariant check and the write happen
// under one lock.

// MemorySessionStore implements TimeSessionStore.
type MemorySessionStore struct {
	mu       sync.Mutex
	nextID   int
	sessions map[int]*models.TimeSession
	breaks   map[int]*models.SessionBreak
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		nextID:   1,
		sessions: make(map[int]*models.TimeSession),
		breaks:   make(map[int]*models.SessionBreak),
	}
}

func (m *MemorySessionStore) CreateActive(session *models.TimeSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.UserID == session.UserID && s.Status == models.SessionActive {
			return faults.New(faults.Conflict, "an active session already exists")
		}
	}
	session.ID = m.nextID
	m.nextID++
	session.Status = models.SessionActive
	session.CreateTime = time.Now()
	session.ChangeTime = session.CreateTime
	cp := *session
	m.sessions[session.ID] = &cp
	return nil
}

func (m *MemorySessionStore) GetByID(id int) (*models.TimeSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, faults.New(faults.NotFound, "session not found")
	}
	cp := *s
	return &cp, nil
}

func (m *MemorySessionStore) GetActiveByUser(userID int) (*models.TimeSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.UserID == userID && s.Status == models.SessionActive {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *MemorySessionStore) Complete(sessionID int, clockOut time.Time, workMinutes, breakMinutes int, overtime, lateIn, earlyOut, auto bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return faults.New(faults.NotFound, "session not found")
	}
	if s.Status != models.SessionActive {
		return faults.Newf(faults.InvalidState, "session is not active (status %s)", s.Status)
	}
	for _, b := range m.breaks {
		if b.SessionID == sessionID && b.EndTime == nil {
			return faults.New(faults.InvalidState, "session has an open break; end it before clocking out")
		}
	}
	out := clockOut
	s.ClockOut = &out
	s.WorkMinutes = workMinutes
	s.BreakMinutes = breakMinutes
	s.Status = models.SessionCompleted
	s.Overtime = overtime
	s.LateIn = lateIn
	s.EarlyOut = earlyOut
	s.AutoClockedOut = auto
	s.ChangeTime = time.Now()
	return nil
}

func (m *MemorySessionStore) ListByUserRange(userID int, fromDate, toDate string) ([]models.TimeSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var items []models.TimeSession
	for _, s := range m.sessions {
		if s.UserID == userID && s.WorkDate >= fromDate && s.WorkDate <= toDate {
			items = append(items, *s)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].WorkDate > items[j].WorkDate })
	return items, nil
}

func (m *MemorySessionStore) ListRange(fromDate, toDate string) ([]models.TimeSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var items []models.TimeSession
	for _, s := range m.sessions {
		if s.WorkDate >= fromDate && s.WorkDate <= toDate {
			items = append(items, *s)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].UserID != items[j].UserID {
			return items[i].UserID < items[j].UserID
		}
		return items[i].WorkDate < items[j].WorkDate
	})
	return items, nil
}

func (m *MemorySessionStore) ListStaleActive(before time.Time) ([]models.TimeSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var items []models.TimeSession
	for _, s := range m.sessions {
		if s.Status == models.SessionActive && s.ClockIn.Before(before) {
			items = append(items, *s)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ClockIn.Before(items[j].ClockIn) })
	return items, nil
}

func (m *MemorySessionStore) OpenBreak(b *models.SessionBreak) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[b.SessionID]
	if !ok {
		return faults.New(faults.NotFound, "session not found")
	}
	if s.Status != models.SessionActive {
		return faults.Newf(faults.InvalidState, "session is not active (status %s)", s.Status)
	}
	for _, existing := range m.breaks {
		if existing.SessionID == b.SessionID && existing.EndTime == nil {
			return faults.New(faults.InvalidState, "session already has an open break")
		}
	}
	b.ID = m.nextID
	m.nextID++
	cp := *b
	m.breaks[b.ID] = &cp
	return nil
}

func (m *MemorySessionStore) GetBreak(id int) (*models.SessionBreak, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.breaks[id]
	if !ok {
		return nil, faults.New(faults.NotFound, "break not found")
	}
	cp := *b
	return &cp, nil
}

func (m *MemorySessionStore) CloseBreak(breakID int, end time.Time, durationMinutes int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.breaks[breakID]
	if !ok {
		return faults.New(faults.NotFound, "break not found")
	}
	if b.EndTime != nil {
		return faults.New(faults.InvalidState, "break is already closed")
	}
	endCp := end
	b.EndTime = &endCp
	b.DurationMinutes = durationMinutes
	if s, ok := m.sessions[b.SessionID]; ok {
		s.BreakMinutes += durationMinutes
		s.ChangeTime = time.Now()
	}
	return nil
}

func (m *MemorySessionStore) ListBreaks(sessionID int) ([]models.SessionBreak, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var items []models.SessionBreak
	for _, b := range m.breaks {
		if b.SessionID == sessionID {
			items = append(items, *b)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].StartTime.Before(items[j].StartTime) })
	return items, nil
}

// MemoryLeaveRequestStore implements LeaveRequestStore. It needs the user
// store to resolve the manager edge for the pending queue.
type MemoryLeaveRequestStore struct {
	mu       sync.Mutex
	nextID   int
	requests map[int]*models.LeaveRequest
	users    *MemoryUserStore
}

func NewMemoryLeaveRequestStore(users *MemoryUserStore) *MemoryLeaveRequestStore {
	return &MemoryLeaveRequestStore{
		nextID:   1,
		requests: make(map[int]*models.LeaveRequest),
		users:    users,
	}
}

func (m *MemoryLeaveRequestStore) Create(req *models.LeaveRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	req.ID = m.nextID
	m.nextID++
	req.Status = models.LeavePending
	req.AppliedAt = time.Now()
	cp := *req
	m.requests[req.ID] = &cp
	return nil
}

func (m *MemoryLeaveRequestStore) GetByID(id int) (*models.LeaveRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[id]
	if !ok {
		return nil, faults.New(faults.NotFound, "leave request not found")
	}
	cp := *req
	return &cp, nil
}

func (m *MemoryLeaveRequestStore) Transition(id int, from, to string, decidedBy *int, comment *string, at time.Time, debitedMinutes int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[id]
	if !ok {
		return faults.New(faults.NotFound, "leave request not found")
	}
	if req.Status != from {
		return faults.Newf(faults.InvalidState, "request is not %s (status %s)", from, req.Status)
	}
	req.Status = to
	req.DecidedBy = decidedBy
	decided := at
	req.DecidedAt = &decided
	if comment != nil {
		req.ManagerComment = comment
	}
	req.DebitedMinutes += debitedMinutes
	return nil
}

func (m *MemoryLeaveRequestStore) ListByUser(userID int) ([]models.LeaveRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var items []models.LeaveRequest
	for _, req := range m.requests {
		if req.UserID == userID {
			items = append(items, *req)
		}
	}
	sortRequestsDesc(items)
	return items, nil
}

func (m *MemoryLeaveRequestStore) ListAll() ([]models.LeaveRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := make([]models.LeaveRequest, 0, len(m.requests))
	for _, req := range m.requests {
		items = append(items, *req)
	}
	sortRequestsDesc(items)
	return items, nil
}

func (m *MemoryLeaveRequestStore) ListPendingForManager(managerID int) ([]models.LeaveRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var items []models.LeaveRequest
	for _, req := range m.requests {
		if req.Status != models.LeavePending {
			continue
		}
		u, err := m.users.GetByID(req.UserID)
		if err != nil {
			continue
		}
		if u.ManagerID != nil && *u.ManagerID == managerID {
			items = append(items, *req)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].AppliedAt.Before(items[j].AppliedAt) })
	return items, nil
}

func (m *MemoryLeaveRequestStore) ListOverlapping(userID int, startDate, endDate string) ([]models.LeaveRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var items []models.LeaveRequest
	for _, req := range m.requests {
		if req.UserID != userID {
			continue
		}
		if req.Status != models.LeavePending && req.Status != models.LeaveApproved {
			continue
		}
		if req.StartDate <= endDate && req.EndDate >= startDate {
			items = append(items, *req)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].StartDate < items[j].StartDate })
	return items, nil
}

func sortRequestsDesc(items []models.LeaveRequest) {
	sort.Slice(items, func(i, j int) bool { return items[i].AppliedAt.After(items[j].AppliedAt) })
}

// MemoryBalanceStore implements LeaveBalanceStore.
type MemoryBalanceStore struct {
	mu       sync.Mutex
	nextID   int
	balances map[[3]int]*models.LeaveBalance // key: user, year, type
}

func NewMemoryBalanceStore() *MemoryBalanceStore {
	return &MemoryBalanceStore{nextID: 1, balances: make(map[[3]int]*models.LeaveBalance)}
}

func (m *MemoryBalanceStore) AddUsed(userID, year, leaveTypeID, minutes int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := [3]int{userID, year, leaveTypeID}
	b, ok := m.balances[key]
	if !ok {
		b = &models.LeaveBalance{
			ID: m.nextID, UserID: userID, Year: year, LeaveTypeID: leaveTypeID,
		}
		m.nextID++
		m.balances[key] = b
	}
	b.UsedMinutes += minutes
	return nil
}

func (m *MemoryBalanceStore) Get(userID, year, leaveTypeID int) (*models.LeaveBalance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.balances[[3]int{userID, year, leaveTypeID}]
	if !ok {
		return nil, faults.New(faults.NotFound, "leave balance not found")
	}
	cp := *b
	return &cp, nil
}

func (m *MemoryBalanceStore) ListByUserYear(userID, year int) ([]models.LeaveBalance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var items []models.LeaveBalance
	for _, b := range m.balances {
		if b.UserID == userID && b.Year == year {
			items = append(items, *b)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].LeaveTypeID < items[j].LeaveTypeID })
	return items, nil
}

func (m *MemoryBalanceStore) Allocate(userID, year, leaveTypeID, allocatedMinutes int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := [3]int{userID, year, leaveTypeID}
	if _, ok := m.balances[key]; ok {
		return nil
	}
	m.balances[key] = &models.LeaveBalance{
		ID: m.nextID, UserID: userID, Year: year, LeaveTypeID: leaveTypeID,
		AllocatedMinutes: allocatedMinutes,
	}
	m.nextID++
	return nil
}

// MemoryLeaveTypeStore implements LeaveTypeStore.
type MemoryLeaveTypeStore struct {
	mu     sync.Mutex
	nextID int
	types  map[int]*models.LeaveType
}

func NewMemoryLeaveTypeStore() *MemoryLeaveTypeStore {
	return &MemoryLeaveTypeStore{nextID: 1, types: make(map[int]*models.LeaveType)}
}

func (m *MemoryLeaveTypeStore) Create(lt *models.LeaveType) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.types {
		if existing.Code == lt.Code {
			return faults.Newf(faults.Conflict, "leave type %s already exists", lt.Code)
		}
	}
	lt.ID = m.nextID
	m.nextID++
	if lt.ValidID == 0 {
		lt.ValidID = 1
	}
	cp := *lt
	m.types[lt.ID] = &cp
	return nil
}

func (m *MemoryLeaveTypeStore) Update(lt *models.LeaveType) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.types[lt.ID]; !ok {
		return faults.New(faults.NotFound, "leave type not found")
	}
	cp := *lt
	m.types[lt.ID] = &cp
	return nil
}

func (m *MemoryLeaveTypeStore) GetByID(id int) (*models.LeaveType, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lt, ok := m.types[id]
	if !ok {
		return nil, faults.New(faults.NotFound, "leave type not found")
	}
	cp := *lt
	return &cp, nil
}

func (m *MemoryLeaveTypeStore) GetByCode(code string) (*models.LeaveType, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, lt := range m.types {
		if lt.Code == code {
			cp := *lt
			return &cp, nil
		}
	}
	return nil, faults.New(faults.NotFound, "leave type not found")
}

func (m *MemoryLeaveTypeStore) List(onlyValid bool) ([]models.LeaveType, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var items []models.LeaveType
	for _, lt := range m.types {
		if onlyValid && lt.ValidID != 1 {
			continue
		}
		items = append(items, *lt)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Code < items[j].Code })
	return items, nil
}

// MemoryUserStore implements UserStore.
type MemoryUserStore struct {
	mu     sync.Mutex
	nextID int
	users  map[int]*models.User
}

func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{nextID: 1, users: make(map[int]*models.User)}
}

func (m *MemoryUserStore) Create(u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Login == u.Login {
			return faults.Newf(faults.Conflict, "login %s already exists", u.Login)
		}
	}
	u.ID = m.nextID
	m.nextID++
	if u.ValidID == 0 {
		u.ValidID = 1
	}
	if u.Role == "" {
		u.Role = models.RoleEmployee
	}
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *MemoryUserStore) GetByID(id int) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, faults.New(faults.NotFound, "user not found")
	}
	cp := *u
	return &cp, nil
}

func (m *MemoryUserStore) GetByLogin(login string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Login == login && u.ValidID == 1 {
			cp := *u
			return &cp, nil
		}
	}
	return nil, faults.New(faults.NotFound, "user not found")
}

func (m *MemoryUserStore) ListValid() ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var items []models.User
	for _, u := range m.users {
		if u.ValidID == 1 {
			items = append(items, *u)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Login < items[j].Login })
	return items, nil
}

func (m *MemoryUserStore) ListRefs(ids []int) ([]models.UserRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var refs []models.UserRef
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			refs = append(refs, models.UserRef{ID: u.ID, Login: u.Login, FullName: u.FullName})
		}
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].ID < refs[j].ID })
	return refs, nil
}

// MemoryAttachmentStore implements AttachmentStore.
type MemoryAttachmentStore struct {
	mu     sync.Mutex
	nextID int
	items  []models.LeaveAttachment
}

func NewMemoryAttachmentStore() *MemoryAttachmentStore {
	return &MemoryAttachmentStore{nextID: 1}
}

func (m *MemoryAttachmentStore) Insert(a *models.LeaveAttachment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.ID = m.nextID
	m.nextID++
	a.CreateTime = time.Now()
	m.items = append(m.items, *a)
	return nil
}

func (m *MemoryAttachmentStore) ListByRequest(requestID int) ([]models.LeaveAttachment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.LeaveAttachment
	for _, a := range m.items {
		if a.RequestID == requestID {
			out = append(out, a)
		}
	}
	return out, nil
}

// MemoryAuditStore implements AuditStore.
type MemoryAuditStore struct {
	mu      sync.Mutex
	nextID  int
	Entries []models.AuditLog
}

func NewMemoryAuditStore() *MemoryAuditStore {
	return &MemoryAuditStore{nextID: 1}
}

func (m *MemoryAuditStore) Insert(_ context.Context, entry *models.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry.ID = m.nextID
	m.nextID++
	entry.CreatedAt = time.Now()
	m.Entries = append(m.Entries, *entry)
	return nil
}

func (m *MemoryAuditStore) ListRecent(limit int) ([]models.AuditLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 || limit > len(m.Entries) {
		limit = len(m.Entries)
	}
	out := make([]models.AuditLog, 0, limit)
	for i := len(m.Entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.Entries[i])
	}
	return out, nil
}
