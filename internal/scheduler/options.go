package scheduler

import (
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

type options struct {
	Logger   *logrus.Logger
	Cron     *cron.Cron
	Location *time.Location
	Now      func() time.Time
}

// Option applies configuration to the scheduler service.
type Option func(*options)

func defaultOptions() options {
	return options{
		Logger:   logrus.StandardLogger(),
		Location: time.UTC,
		Now:      time.Now,
	}
}

// WithLogger injects a custom logger.
func WithLogger(l *logrus.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.Logger = l
		}
	}
}

// WithCron supplies a preconfigured cron engine.
func WithCron(c *cron.Cron) Option {
	return func(o *options) {
		o.Cron = c
	}
}

// WithLocation sets the scheduler timezone.
func WithLocation(loc *time.Location) Option {
	return func(o *options) {
		if loc != nil {
			o.Location = loc
		}
	}
}

// WithNow replaces the clock, used by tests.
func WithNow(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.Now = now
		}
	}
}
