package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/workpulse/workpulse/internal/auth"
	"github.com/workpulse/workpulse/internal/faults"
	"github.com/workpulse/workpulse/internal/middleware"
	"github.com/workpulse/workpulse/internal/models"
)

type stubAuthService struct {
	token string
	user  *models.User
	err   error
}

func (s *stubAuthService) Login(login, password string) (string, *models.User, error) {
	if s.err != nil {
		return "", nil, s.err
	}
	return s.token, s.user, nil
}

func (s *stubAuthService) Logout(ctx context.Context, claims *auth.Claims) error { return nil }

type stubClockService struct {
	session *models.TimeSession
	brk     *models.SessionBreak
	view    *models.ActiveSessionView
	list    []models.TimeSession
	err     error
}

func (s *stubClockService) ClockIn(userID int, now time.Time) (*models.TimeSession, error) {
	return s.session, s.err
}

func (s *stubClockService) StartBreak(actorID, sessionID int, reason string, now time.Time) (*models.SessionBreak, error) {
	return s.brk, s.err
}

func (s *stubClockService) EndBreak(actorID, breakID int, now time.Time) (*models.SessionBreak, error) {
	return s.brk, s.err
}

func (s *stubClockService) ClockOut(actorID, sessionID int, now time.Time) (*models.TimeSession, error) {
	return s.session, s.err
}

func (s *stubClockService) GetActive(userID int, now time.Time) (*models.ActiveSessionView, error) {
	return s.view, s.err
}

func (s *stubClockService) ListSessions(userID int, fromDate, toDate string) ([]models.TimeSession, error) {
	return s.list, s.err
}

func (s *stubClockService) ListAllSessions(fromDate, toDate string) ([]models.TimeSession, error) {
	return s.list, s.err
}

type stubLeaveService struct {
	request  *models.LeaveRequest
	views    []models.LeaveRequestView
	balances []models.BalanceView
	err      error

	lastActorID int
	lastRole    string
}

func (s *stubLeaveService) Apply(userID int, typeCode, startDate, endDate, durationKind, reason string, ccUserIDs []int) (*models.LeaveRequest, error) {
	s.lastActorID = userID
	return s.request, s.err
}

func (s *stubLeaveService) Approve(requestID, approverID int, comment string) (*models.LeaveRequest, error) {
	s.lastActorID = approverID
	return s.request, s.err
}

func (s *stubLeaveService) Reject(requestID, approverID int, comment string) (*models.LeaveRequest, error) {
	s.lastActorID = approverID
	return s.request, s.err
}

func (s *stubLeaveService) Cancel(requestID, actorID int, actorRole string) (*models.LeaveRequest, error) {
	s.lastActorID = actorID
	s.lastRole = actorRole
	return s.request, s.err
}

func (s *stubLeaveService) ListForUser(userID int) ([]models.LeaveRequestView, error) {
	return s.views, s.err
}

func (s *stubLeaveService) ListAll() ([]models.LeaveRequestView, error) { return s.views, s.err }

func (s *stubLeaveService) ListPendingForManager(managerID int) ([]models.LeaveRequestView, error) {
	s.lastActorID = managerID
	return s.views, s.err
}

func (s *stubLeaveService) Balances(userID, year int) ([]models.BalanceView, error) {
	return s.balances, s.err
}

type stubTypeService struct {
	types []models.LeaveType
	err   error
}

func (s *stubTypeService) CreateType(lt *models.LeaveType) error { return s.err }
func (s *stubTypeService) UpdateType(lt *models.LeaveType) error { return s.err }
func (s *stubTypeService) ListTypes(v bool) ([]models.LeaveType, error) {
	return s.types, s.err
}

type stubUserDirectory struct{}

func (stubUserDirectory) ListRefs(ids []int) ([]models.UserRef, error) {
	refs := make([]models.UserRef, 0, len(ids))
	for _, id := range ids {
		refs = append(refs, models.UserRef{ID: id, Login: "user"})
	}
	return refs, nil
}

type stubAuditStore struct {
	entries []models.AuditLog
}

func (s *stubAuditStore) ListRecent(limit int) ([]models.AuditLog, error) { return s.entries, nil }

type routerFixture struct {
	engine http.Handler
	clock  *stubClockService
	leave  *stubLeaveService
}

func newRouterFixture(clock *stubClockService, leave *stubLeaveService) (*routerFixture, *auth.TokenManager) {
	gin.SetMode(gin.TestMode)
	tokens := auth.NewTokenManager("test-secret", time.Hour)
	mw := middleware.NewAuthMiddleware(tokens, nil, nil, "wp_token")

	h := Handlers{
		Auth:      NewAuthHandler(&stubAuthService{token: "t", user: &models.User{ID: 1, Login: "w"}}, "wp_token", 3600),
		Clock:     NewClockHandler(clock, nil),
		Leave:     NewLeaveHandler(leave, nil),
		LeaveType: NewLeaveTypeHandler(&stubTypeService{}),
		Report:    NewReportHandler(clock, stubUserDirectory{}, nil),
		Audit:     NewAuditHandler(&stubAuditStore{}),
	}
	engine := NewRouter(h, RouterConfig{AuthMW: mw})
	return &routerFixture{engine: engine, clock: clock, leave: leave}, tokens
}

func doJSON(t *testing.T, engine http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestClockInRoute(t *testing.T) {
	clock := &stubClockService{session: &models.TimeSession{ID: 3, UserID: 1, Status: models.SessionActive}}
	f, tokens := newRouterFixture(clock, &stubLeaveService{})
	token, err := tokens.Issue(1, "employee")
	require.NoError(t, err)

	w := doJSON(t, f.engine, http.MethodPost, "/api/v1/clock/in", token, nil)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"success":true`)
}

func TestClockRoutesRequireAuth(t *testing.T) {
	f, _ := newRouterFixture(&stubClockService{}, &stubLeaveService{})
	w := doJSON(t, f.engine, http.MethodPost, "/api/v1/clock/in", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestConflictMapsTo409(t *testing.T) {
	clock := &stubClockService{err: faults.New(faults.Conflict, "an active session already exists")}
	f, tokens := newRouterFixture(clock, &stubLeaveService{})
	token, _ := tokens.Issue(1, "employee")

	w := doJSON(t, f.engine, http.MethodPost, "/api/v1/clock/in", token, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "an active session already exists")
}

func TestInvalidStateMapsTo422(t *testing.T) {
	clock := &stubClockService{err: faults.New(faults.InvalidState, "session has an open break; end it before clocking out")}
	f, tokens := newRouterFixture(clock, &stubLeaveService{})
	token, _ := tokens.Issue(1, "employee")

	w := doJSON(t, f.engine, http.MethodPost, "/api/v1/clock/out", token, gin.H{"session_id": 3})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestClockOutValidatesPayload(t *testing.T) {
	f, tokens := newRouterFixture(&stubClockService{}, &stubLeaveService{})
	token, _ := tokens.Issue(1, "employee")

	w := doJSON(t, f.engine, http.MethodPost, "/api/v1/clock/out", token, gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLeaveDecisionRoutesNeedDeciderRole(t *testing.T) {
	leave := &stubLeaveService{request: &models.LeaveRequest{ID: 9, Status: models.LeaveApproved}}
	f, tokens := newRouterFixture(&stubClockService{}, leave)

	employee, _ := tokens.Issue(1, "employee")
	manager, _ := tokens.Issue(2, "manager")

	w := doJSON(t, f.engine, http.MethodPost, "/api/v1/leave/9/approve", employee, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, f.engine, http.MethodPost, "/api/v1/leave/9/approve", manager, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, leave.lastActorID)
}

func TestCancelPassesActorRole(t *testing.T) {
	leave := &stubLeaveService{request: &models.LeaveRequest{ID: 9, Status: models.LeaveCancelled}}
	f, tokens := newRouterFixture(&stubClockService{}, leave)
	token, _ := tokens.Issue(4, "employee")

	w := doJSON(t, f.engine, http.MethodPost, "/api/v1/leave/9/cancel", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 4, leave.lastActorID)
	assert.Equal(t, "employee", leave.lastRole)
}

func TestDecisionRouteRejectsNonNumericID(t *testing.T) {
	f, tokens := newRouterFixture(&stubClockService{}, &stubLeaveService{})
	manager, _ := tokens.Issue(2, "manager")

	w := doJSON(t, f.engine, http.MethodPost, "/api/v1/leave/zero/approve", manager, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLeaveTypeAdminOnly(t *testing.T) {
	f, tokens := newRouterFixture(&stubClockService{}, &stubLeaveService{})
	manager, _ := tokens.Issue(2, "manager")
	admin, _ := tokens.Issue(3, "admin")

	payload := gin.H{"code": "SL", "name": "Sick Leave"}
	w := doJSON(t, f.engine, http.MethodPost, "/api/v1/leave-types", manager, payload)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, f.engine, http.MethodPost, "/api/v1/leave-types", admin, payload)
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestAttendanceExportStreamsWorkbook(t *testing.T) {
	clock := &stubClockService{list: []models.TimeSession{
		{ID: 1, UserID: 1, WorkDate: "2026-03-02", ClockIn: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC), WorkMinutes: 465, BreakMinutes: 15},
	}}
	f, tokens := newRouterFixture(clock, &stubLeaveService{})
	manager, _ := tokens.Issue(2, "manager")

	w := doJSON(t, f.engine, http.MethodGet, "/api/v1/reports/attendance.xlsx?from=2026-03-01&to=2026-03-07", manager, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attendance_2026-03-01_2026-03-07.xlsx")
	assert.NotZero(t, w.Body.Len())
}

func TestHealthz(t *testing.T) {
	f, _ := newRouterFixture(&stubClockService{}, &stubLeaveService{})
	w := doJSON(t, f.engine, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLoginSetsCookie(t *testing.T) {
	f, _ := newRouterFixture(&stubClockService{}, &stubLeaveService{})
	w := doJSON(t, f.engine, http.MethodPost, "/api/v1/auth/login", "", gin.H{"login": "w", "password": "pw"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Set-Cookie"), "wp_token=")
}
