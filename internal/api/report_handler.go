package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"github.com/workpulse/workpulse/internal/models"
)

type sessionLister interface {
	ListAllSessions(fromDate, toDate string) ([]models.TimeSession, error)
}

type userDirectory interface {
	ListRefs(ids []int) ([]models.UserRef, error)
}

// ReportHandler produces the attendance spreadsheet export.
type ReportHandler struct {
	sessions sessionLister
	users    userDirectory
	log      *logrus.Logger
	now      func() time.Time
}

func NewReportHandler(sessions sessionLister, users userDirectory, log *logrus.Logger) *ReportHandler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &ReportHandler{sessions: sessions, users: users, log: log, now: time.Now}
}

var attendanceHeader = []string{
	"Date", "User", "Clock In", "Clock Out",
	"Work Minutes", "Break Minutes", "Late", "Early Out", "Overtime", "Auto",
}

// AttendanceXLSX streams the range's sessions as a spreadsheet.
func (h *ReportHandler) AttendanceXLSX(c *gin.Context) {
	from, to := dateRange(c, h.now())
	sessions, err := h.sessions.ListAllSessions(from, to)
	if err != nil {
		respondError(c, err)
		return
	}

	f := excelize.NewFile()
	defer f.Close()
	const sheet = "Attendance"
	f.SetSheetName("Sheet1", sheet)

	for col, title := range attendanceHeader {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		f.SetCellValue(sheet, cell, title)
	}

	names := h.loginIndex(sessions)
	for row, s := range sessions {
		values := []interface{}{
			s.WorkDate,
			names[s.UserID],
			s.ClockIn.Format("15:04"),
			formatClockOut(s.ClockOut),
			s.WorkMinutes,
			s.BreakMinutes,
			s.LateIn,
			s.EarlyOut,
			s.Overtime,
			s.AutoClockedOut,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheet, cell, v)
		}
	}

	filename := fmt.Sprintf("attendance_%s_%s.xlsx", from, to)
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Status(http.StatusOK)
	if err := f.Write(c.Writer); err != nil {
		h.log.WithError(err).Error("attendance export write failed")
	}
}

// loginIndex resolves user IDs to logins for the export, falling back to the
// numeric ID when the directory misses one.
func (h *ReportHandler) loginIndex(sessions []models.TimeSession) map[int]string {
	seen := make(map[int]bool)
	ids := make([]int, 0)
	for _, s := range sessions {
		if !seen[s.UserID] {
			seen[s.UserID] = true
			ids = append(ids, s.UserID)
		}
	}

	names := make(map[int]string, len(ids))
	for _, id := range ids {
		names[id] = fmt.Sprintf("user-%d", id)
	}
	refs, err := h.users.ListRefs(ids)
	if err != nil {
		h.log.WithError(err).Warn("export: user lookup failed")
		return names
	}
	for _, ref := range refs {
		names[ref.ID] = ref.Login
	}
	return names
}

func formatClockOut(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("15:04")
}
