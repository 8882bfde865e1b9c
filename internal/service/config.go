package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/Leganyst/clinic-scheduling/internal/billing"
	"github.com/Leganyst/clinic-scheduling/internal/calendar"
	"github.com/Leganyst/clinic-scheduling/internal/config"
	"github.com/Leganyst/clinic-scheduling/internal/logging"
	"github.com/Leganyst/clinic-scheduling/internal/model"
	"github.com/Leganyst/clinic-scheduling/internal/notify"
	"github.com/Leganyst/clinic-scheduling/internal/repository"
)

// Config holds the engine constants shared by the services.
type Config struct {
	Granularity       int
	MaxDuration       int
	Location          *time.Location
	Policy            billing.Policy
	FreeSessions      int
	SessionUnitCharge model.Money
	// Now is the clock; tests pin it.
	Now func() time.Time
}

// DefaultConfig is the 30-minute grid, 2-hour cap and six-month cycle.
func DefaultConfig() Config {
	return Config{
		Granularity:  calendar.DefaultGranularity,
		MaxDuration:  120,
		Location:     time.UTC,
		Policy:       billing.DefaultPolicy(),
		FreeSessions: 3,
		Now:          time.Now,
	}
}

// ConfigFrom maps the loaded engine settings.
func ConfigFrom(e config.EngineConfig) (Config, error) {
	loc, err := e.Location()
	if err != nil {
		return Config{}, err
	}
	return Config{
		Granularity: e.GranularityMinutes,
		MaxDuration: e.MaxDurationMinutes,
		Location:    loc,
		Policy: billing.Policy{
			WaitingMonths:   e.WaitingMonths,
			ConsultationFee: e.ConsultationFee,
		},
		FreeSessions:      e.FreeSessions,
		SessionUnitCharge: e.SessionUnitCharge,
		Now:               time.Now,
	}, nil
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Granularity <= 0 {
		c.Granularity = d.Granularity
	}
	if c.MaxDuration <= 0 {
		c.MaxDuration = d.MaxDuration
	}
	if c.Location == nil {
		c.Location = d.Location
	}
	if c.Policy.WaitingMonths <= 0 {
		c.Policy.WaitingMonths = d.Policy.WaitingMonths
	}
	if c.Policy.ConsultationFee <= 0 {
		c.Policy.ConsultationFee = d.Policy.ConsultationFee
	}
	if c.Now == nil {
		c.Now = d.Now
	}
	return c
}

func (c Config) calendarOptions() calendar.Options {
	return calendar.Options{Granularity: c.Granularity, Location: c.Location}
}

// deps is what every service is built from.
type deps struct {
	store    *repository.Store
	cfg      Config
	notifier notify.Notifier
	log      zerolog.Logger
}

func newDeps(store *repository.Store, cfg Config, notifier notify.Notifier, log zerolog.Logger) deps {
	if notifier == nil {
		notifier = notify.Discard{}
	}
	return deps{store: store, cfg: cfg.withDefaults(), notifier: notifier, log: log}
}

// logger is the service logger tagged with the trace of ctx.
func (d deps) logger(ctx context.Context) *zerolog.Logger {
	return logging.WithTrace(ctx, d.log)
}

func (d deps) now() time.Time {
	return d.cfg.Now().UTC()
}
