// Package scheduler runs the background jobs: the stale-session sweep and
// the yearly balance allocation. Jobs are registered from cron expressions
// in the configuration and can also be triggered by hand.
package scheduler

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/workpulse/workpulse/internal/config"
)

const (
	JobAutoClockOut     = "auto-clockout"
	JobAnnualAllocation = "annual-allocation"
)

type staleSweeper interface {
	AutoClockOutStale(now time.Time) int
}

type yearAllocator interface {
	AllocateYear(year int) error
}

// Service owns the cron engine and the job registry.
type Service struct {
	cron     *cron.Cron
	clock    staleSweeper
	leave    yearAllocator
	cfg      config.JobsConfig
	log      *logrus.Logger
	entries  map[string]cron.EntryID
	mu       sync.Mutex
	nowFunc  func() time.Time
	started  bool
	stopOnce sync.Once
}

func NewService(clock staleSweeper, leave yearAllocator, cfg config.JobsConfig, opts ...Option) *Service {
	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}

	engine := options.Cron
	if engine == nil {
		engine = cron.New(cron.WithLocation(options.Location))
	}

	return &Service{
		cron:    engine,
		clock:   clock,
		leave:   leave,
		cfg:     cfg,
		log:     options.Logger,
		entries: make(map[string]cron.EntryID),
		nowFunc: options.Now,
	}
}

// Start registers the configured jobs and starts the engine. Calling Start
// twice is an error.
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return fmt.Errorf("scheduler already started")
	}

	if err := s.register(JobAutoClockOut, s.cfg.AutoClockOutCron, s.runAutoClockOut); err != nil {
		return err
	}
	if err := s.register(JobAnnualAllocation, s.cfg.AnnualAllocationCron, s.runAnnualAllocation); err != nil {
		return err
	}

	s.cron.Start()
	s.started = true
	s.log.WithField("jobs", len(s.entries)).Info("scheduler started")
	return nil
}

func (s *Service) register(name, spec string, fn func()) error {
	if spec == "" {
		s.log.WithField("job", name).Warn("job has no schedule, skipping")
		return nil
	}
	id, err := s.cron.AddFunc(spec, fn)
	if err != nil {
		return fmt.Errorf("register %s (%q): %w", name, spec, err)
	}
	s.entries[name] = id
	return nil
}

// Stop halts the engine and waits for running jobs to finish.
func (s *Service) Stop() {
	s.stopOnce.Do(func() {
		ctx := s.cron.Stop()
		<-ctx.Done()
		s.log.Info("scheduler stopped")
	})
}

// RunJob triggers a job by name outside its schedule.
func (s *Service) RunJob(name string) error {
	switch name {
	case JobAutoClockOut:
		s.runAutoClockOut()
	case JobAnnualAllocation:
		s.runAnnualAllocation()
	default:
		return fmt.Errorf("unknown job %q", name)
	}
	return nil
}

// Jobs lists the registered job names.
func (s *Service) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.entries))
	for name := range s.entries {
		names = append(names, name)
	}
	return names
}

func (s *Service) runAutoClockOut() {
	now := s.nowFunc()
	closed := s.clock.AutoClockOutStale(now)
	s.log.WithFields(logrus.Fields{
		"job":      JobAutoClockOut,
		"sessions": closed,
	}).Info("job finished")
}

func (s *Service) runAnnualAllocation() {
	year := s.nowFunc().Year()
	if err := s.leave.AllocateYear(year); err != nil {
		s.log.WithError(err).WithField("job", JobAnnualAllocation).Error("job failed")
		return
	}
	s.log.WithFields(logrus.Fields{
		"job":  JobAnnualAllocation,
		"year": year,
	}).Info("job finished")
}
