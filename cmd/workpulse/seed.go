package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/workpulse/workpulse/internal/auth"
	"github.com/workpulse/workpulse/internal/config"
	"github.com/workpulse/workpulse/internal/database"
	"github.com/workpulse/workpulse/internal/faults"
	"github.com/workpulse/workpulse/internal/models"
	"github.com/workpulse/workpulse/internal/repository"
	"github.com/workpulse/workpulse/internal/service"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the starter accounts, leave types and this year's balances",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return seed(cfg)
	},
}

type seedUser struct {
	login    string
	fullName string
	email    string
	role     models.UserRole
	manager  string // login of the manager, resolved after insert
}

var seedUsers = []seedUser{
	{login: "admin", fullName: "System Admin", email: "admin@example.com", role: models.RoleAdmin},
	{login: "manager", fullName: "Team Manager", email: "manager@example.com", role: models.RoleManager},
	{login: "employee", fullName: "First Employee", email: "employee@example.com", role: models.RoleEmployee, manager: "manager"},
}

var seedTypes = []models.LeaveType{
	{Code: "CL", Name: "Casual Leave", AnnualQuotaMinutes: 12 * 480, RequiresApproval: true},
	{Code: "SL", Name: "Sick Leave", AnnualQuotaMinutes: 10 * 480, RequiresApproval: true},
	{Code: "PL", Name: "Privilege Leave", AnnualQuotaMinutes: 15 * 480, RequiresApproval: true, CarryForward: true},
}

func seed(cfg *config.Config) error {
	log := newLogger(cfg.Logging)

	db, err := database.Open(&cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		return err
	}

	users := repository.NewUserRepository(db)
	types := repository.NewLeaveTypeRepository(db)
	balances := repository.NewLeaveBalanceRepository(db)

	hash, err := auth.HashPassword("changeme", cfg.Auth.BcryptCost)
	if err != nil {
		return err
	}

	created := make(map[string]int)
	for _, su := range seedUsers {
		if existing, err := users.GetByLogin(su.login); err == nil {
			created[su.login] = existing.ID
			continue
		} else if !faults.Is(err, faults.NotFound) {
			return err
		}
		u := &models.User{
			Login:        su.login,
			FullName:     su.fullName,
			Email:        su.email,
			PasswordHash: hash,
			Role:         su.role,
			ValidID:      1,
		}
		if su.manager != "" {
			if id, ok := created[su.manager]; ok {
				u.ManagerID = &id
			}
		}
		if err := users.Create(u); err != nil {
			return err
		}
		created[su.login] = u.ID
		log.WithField("login", su.login).Info("user created")
	}

	for i := range seedTypes {
		lt := seedTypes[i]
		if _, err := types.GetByCode(lt.Code); err == nil {
			continue
		} else if !faults.Is(err, faults.NotFound) {
			return err
		}
		lt.ValidID = 1
		if err := types.Create(&lt); err != nil {
			return err
		}
		log.WithField("code", lt.Code).Info("leave type created")
	}

	attachments := repository.NewAttachmentRepository(db)
	requests := repository.NewLeaveRequestRepository(db)
	leaveSvc := service.NewLeaveService(requests, balances, types, users, attachments,
		nil, nil, cfg.Leave, log)
	if err := leaveSvc.AllocateYear(time.Now().Year()); err != nil {
		return err
	}

	log.Info("seed complete; default password is changeme")
	return nil
}
