package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/workpulse/workpulse/internal/audit"
	"github.com/workpulse/workpulse/internal/database"
	"github.com/workpulse/workpulse/internal/repository"
	"github.com/workpulse/workpulse/internal/scheduler"
	"github.com/workpulse/workpulse/internal/service"
)

var jobCmd = &cobra.Command{
	Use:   "job <name>",
	Short: "Run a background job once and exit",
	Long:  fmt.Sprintf("Known jobs: %s, %s", scheduler.JobAutoClockOut, scheduler.JobAnnualAllocation),
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log := newLogger(cfg.Logging)

		db, err := database.Open(&cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()

		sessions := repository.NewSessionRepository(db)
		requests := repository.NewLeaveRequestRepository(db)
		balances := repository.NewLeaveBalanceRepository(db)
		types := repository.NewLeaveTypeRepository(db)
		users := repository.NewUserRepository(db)
		attachments := repository.NewAttachmentRepository(db)
		recorder := audit.NewRecorder(repository.NewAuditRepository(db), log)

		clockSvc := service.NewClockService(sessions, recorder, cfg.Attendance, log)
		leaveSvc := service.NewLeaveService(requests, balances, types, users, attachments,
			recorder, nil, cfg.Leave, log)

		jobs := scheduler.NewService(clockSvc, leaveSvc, cfg.Jobs(), scheduler.WithLogger(log))
		return jobs.RunJob(args[0])
	},
}
