package repository

import (
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/workpulse/workpulse/internal/database"
	"github.com/workpulse/workpulse/internal/faults"
	"github.com/workpulse/workpulse/internal/models"
)

func newLeaveRepo(t *testing.T) (*LeaveRequestRepository, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return NewLeaveRequestRepository(database.Wrap(conn, database.DialectPostgres)), mock
}

func leaveRequestRows(req *models.LeaveRequest) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "user_id", "leave_type_id", "start_date", "end_date",
		"duration_kind", "reason", "status", "debited_minutes", "decided_by",
		"decided_at", "manager_comment", "applied_at",
	}).AddRow(
		req.ID, req.UserID, req.LeaveTypeID, req.StartDate, req.EndDate,
		req.DurationKind, req.Reason, req.Status, req.DebitedMinutes,
		req.DecidedBy, req.DecidedAt, req.ManagerComment, req.AppliedAt,
	)
}

func TestCreateInsertsRequestAndCC(t *testing.T) {
	repo, mock := newLeaveRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO leave_requests")).
		WithArgs(3, 1, "2024-06-10", "2024-06-10", models.DurationFullDay,
			"family visit", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(5))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO leave_request_cc")).
		WithArgs(5, 9).
		WillReturnResult(sqlmock.NewResult(0, 1))

	req := &models.LeaveRequest{
		UserID: 3, LeaveTypeID: 1,
		StartDate: "2024-06-10", EndDate: "2024-06-10",
		DurationKind: models.DurationFullDay, Reason: "family visit",
		CCUserIDs: []int{9},
	}
	require.NoError(t, repo.Create(req))
	assert.Equal(t, 5, req.ID)
	assert.Equal(t, models.LeavePending, req.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransitionPendingToApproved(t *testing.T) {
	repo, mock := newLeaveRepo(t)
	approver := 2
	comment := "enjoy"
	at := time.Date(2024, 6, 9, 10, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE leave_requests")).
		WithArgs(models.LeaveApproved, &approver, at, &comment, 480, 5, models.LeavePending).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Transition(5, models.LeavePending, models.LeaveApproved, &approver, &comment, at, 480)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransitionRejectsNonPending(t *testing.T) {
	repo, mock := newLeaveRepo(t)
	approver := 2
	at := time.Now()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE leave_requests")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	decided := at.Add(-time.Hour)
	mock.ExpectQuery("SELECT .+ FROM leave_requests WHERE id").
		WillReturnRows(leaveRequestRows(&models.LeaveRequest{
			ID: 5, UserID: 3, LeaveTypeID: 1,
			StartDate: "2024-06-10", EndDate: "2024-06-10",
			DurationKind: models.DurationFullDay, Status: models.LeaveRejected,
			DecidedBy: &approver, DecidedAt: &decided, AppliedAt: at.Add(-2 * time.Hour),
		}))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT user_id FROM leave_request_cc")).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}))

	err := repo.Transition(5, models.LeavePending, models.LeaveRejected, &approver, nil, at, 0)
	require.Error(t, err)
	assert.Equal(t, faults.InvalidState, faults.KindOf(err))
	assert.Contains(t, err.Error(), "status rejected")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransitionMissingRequestIsNotFound(t *testing.T) {
	repo, mock := newLeaveRepo(t)
	at := time.Now()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE leave_requests")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	empty := sqlmock.NewRows([]string{
		"id", "user_id", "leave_type_id", "start_date", "end_date",
		"duration_kind", "reason", "status", "debited_minutes", "decided_by",
		"decided_at", "manager_comment", "applied_at",
	})
	mock.ExpectQuery("SELECT .+ FROM leave_requests WHERE id").
		WillReturnRows(empty)

	err := repo.Transition(404, models.LeavePending, models.LeaveApproved, nil, nil, at, 0)
	require.Error(t, err)
	assert.Equal(t, faults.NotFound, faults.KindOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListOverlappingUsesInclusiveIntersection(t *testing.T) {
	repo, mock := newLeaveRepo(t)

	mock.ExpectQuery("SELECT .+ FROM leave_requests\\s+WHERE user_id .+ start_date <= .+ end_date >=").
		WithArgs(3, "2024-06-14", "2024-06-12").
		WillReturnRows(leaveRequestRows(&models.LeaveRequest{
			ID: 8, UserID: 3, LeaveTypeID: 1,
			StartDate: "2024-06-10", EndDate: "2024-06-12",
			DurationKind: models.DurationFullDay, Status: models.LeaveApproved,
			AppliedAt: time.Now(),
		}))

	items, err := repo.ListOverlapping(3, "2024-06-12", "2024-06-14")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 8, items[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListPendingForManagerJoinsReportingEdge(t *testing.T) {
	repo, mock := newLeaveRepo(t)

	mock.ExpectQuery("SELECT .+ FROM leave_requests r\\s+JOIN users u").
		WithArgs(2).
		WillReturnRows(leaveRequestRows(&models.LeaveRequest{
			ID: 5, UserID: 3, LeaveTypeID: 1,
			StartDate: "2024-06-10", EndDate: "2024-06-10",
			DurationKind: models.DurationFullDay, Status: models.LeavePending,
			AppliedAt: time.Now(),
		}))

	items, err := repo.ListPendingForManager(2)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, models.LeavePending, items[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}
