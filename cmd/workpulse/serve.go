package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/workpulse/workpulse/internal/api"
	"github.com/workpulse/workpulse/internal/audit"
	"github.com/workpulse/workpulse/internal/auth"
	"github.com/workpulse/workpulse/internal/cache"
	"github.com/workpulse/workpulse/internal/config"
	"github.com/workpulse/workpulse/internal/database"
	"github.com/workpulse/workpulse/internal/metrics"
	"github.com/workpulse/workpulse/internal/middleware"
	"github.com/workpulse/workpulse/internal/repository"
	"github.com/workpulse/workpulse/internal/scheduler"
	"github.com/workpulse/workpulse/internal/service"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server and the background jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return serve(cfg)
	},
}

func serve(cfg *config.Config) error {
	log := newLogger(cfg.Logging)
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Open(&cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		return err
	}

	denylist := cache.NewTokenDenylist(&cfg.Redis)
	defer denylist.Close()

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	caps := auth.NewCapabilities()

	sessions := repository.NewSessionRepository(db)
	requests := repository.NewLeaveRequestRepository(db)
	balances := repository.NewLeaveBalanceRepository(db)
	types := repository.NewLeaveTypeRepository(db)
	users := repository.NewUserRepository(db)
	attachments := repository.NewAttachmentRepository(db)
	audits := repository.NewAuditRepository(db)

	recorder := audit.NewRecorder(audits, log)

	clockSvc := service.NewClockService(sessions, recorder, cfg.Attendance, log)
	leaveSvc := service.NewLeaveService(requests, balances, types, users, attachments,
		recorder, caps, cfg.Leave, log)
	authSvc := service.NewAuthService(users, tokens, denylist, log)

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	authMW := middleware.NewAuthMiddleware(tokens, caps, denylist, cfg.Auth.CookieName)
	handlers := api.Handlers{
		Auth:      api.NewAuthHandler(authSvc, cfg.Auth.CookieName, int(cfg.Auth.TokenTTL.Seconds())),
		Clock:     api.NewClockHandler(clockSvc, m),
		Leave:     api.NewLeaveHandler(leaveSvc, m),
		LeaveType: api.NewLeaveTypeHandler(leaveSvc),
		Report:    api.NewReportHandler(clockSvc, users, log),
		Audit:     api.NewAuditHandler(audits),
	}
	router := api.NewRouter(handlers, api.RouterConfig{
		AuthMW:      authMW,
		Metrics:     m,
		MetricsPath: cfg.Metrics.Path,
	})

	jobs := scheduler.NewService(clockSvc, leaveSvc, cfg.Jobs(), scheduler.WithLogger(log))
	if err := jobs.Start(); err != nil {
		return err
	}
	defer jobs.Stop()

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", srv.Addr).Info("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.WithField("signal", sig.String()).Info("shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(ctx)
}
