// Package config loads service settings from the environment and an optional
// .env file.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/Leganyst/clinic-scheduling/internal/model"
)

type Config struct {
	Env      string
	HTTPAddr string
	GRPCAddr string
	LogLevel string

	DB     DBConfig
	Redis  RedisConfig
	Engine EngineConfig
	Notify NotifyConfig
}

// RedisConfig is optional; an empty Addr disables the distributed lock.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	LockTTL  time.Duration
}

// EngineConfig holds the scheduling and billing constants.
type EngineConfig struct {
	GranularityMinutes int
	MaxDurationMinutes int
	ConsultationFee    model.Money
	SessionUnitCharge  model.Money
	FreeSessions       int
	WaitingMonths      int
	ClinicTimeZone     string
	ReconcileInterval  time.Duration
}

type NotifyConfig struct {
	MaxElapsed time.Duration
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	setDBDefaults(v)
	v.SetDefault("ENV", "development")
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("GRPC_ADDR", ":50051")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_LOCK_TTL", "5m")
	v.SetDefault("SLOT_GRANULARITY_MIN", 30)
	v.SetDefault("MAX_APPOINTMENT_MIN", 120)
	v.SetDefault("CONSULTATION_FEE_CENTS", int64(50000))
	v.SetDefault("SESSION_UNIT_CHARGE_CENTS", int64(30000))
	v.SetDefault("FREE_SESSIONS", 3)
	v.SetDefault("CYCLE_WAITING_MONTHS", 6)
	v.SetDefault("CLINIC_TIMEZONE", "UTC")
	v.SetDefault("RECONCILE_INTERVAL", "1h")
	v.SetDefault("NOTIFY_MAX_ELAPSED", "30s")

	// .env is optional
	_ = v.ReadInConfig()
	return v
}

func Load() (*Config, error) {
	v := newViper()

	cfg := &Config{
		Env:      v.GetString("ENV"),
		HTTPAddr: v.GetString("HTTP_ADDR"),
		GRPCAddr: v.GetString("GRPC_ADDR"),
		LogLevel: v.GetString("LOG_LEVEL"),
		DB:       *dbConfigFrom(v),
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
			LockTTL:  v.GetDuration("REDIS_LOCK_TTL"),
		},
		Engine: EngineConfig{
			GranularityMinutes: v.GetInt("SLOT_GRANULARITY_MIN"),
			MaxDurationMinutes: v.GetInt("MAX_APPOINTMENT_MIN"),
			ConsultationFee:    model.Money(v.GetInt64("CONSULTATION_FEE_CENTS")),
			SessionUnitCharge:  model.Money(v.GetInt64("SESSION_UNIT_CHARGE_CENTS")),
			FreeSessions:       v.GetInt("FREE_SESSIONS"),
			WaitingMonths:      v.GetInt("CYCLE_WAITING_MONTHS"),
			ClinicTimeZone:     v.GetString("CLINIC_TIMEZONE"),
			ReconcileInterval:  v.GetDuration("RECONCILE_INTERVAL"),
		},
		Notify: NotifyConfig{
			MaxElapsed: v.GetDuration("NOTIFY_MAX_ELAPSED"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

func (c *Config) Validate() error {
	if err := c.DB.Validate(); err != nil {
		return err
	}
	return c.Engine.Validate()
}

func (e EngineConfig) Validate() error {
	if e.GranularityMinutes <= 0 || e.GranularityMinutes > 24*60 {
		return fmt.Errorf("SLOT_GRANULARITY_MIN must be in (0, 1440], got %d", e.GranularityMinutes)
	}
	if e.MaxDurationMinutes < e.GranularityMinutes {
		return fmt.Errorf("MAX_APPOINTMENT_MIN (%d) is shorter than one slot (%d)", e.MaxDurationMinutes, e.GranularityMinutes)
	}
	if e.MaxDurationMinutes%e.GranularityMinutes != 0 {
		return fmt.Errorf("MAX_APPOINTMENT_MIN (%d) must be a multiple of SLOT_GRANULARITY_MIN (%d)", e.MaxDurationMinutes, e.GranularityMinutes)
	}
	if e.ConsultationFee <= 0 {
		return fmt.Errorf("CONSULTATION_FEE_CENTS must be positive")
	}
	if e.SessionUnitCharge < 0 || e.FreeSessions < 0 {
		return fmt.Errorf("SESSION_UNIT_CHARGE_CENTS and FREE_SESSIONS must not be negative")
	}
	if e.WaitingMonths <= 0 {
		return fmt.Errorf("CYCLE_WAITING_MONTHS must be positive")
	}
	if e.ReconcileInterval <= 0 {
		return fmt.Errorf("RECONCILE_INTERVAL must be positive")
	}
	if _, err := e.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves the clinic time zone.
func (e EngineConfig) Location() (*time.Location, error) {
	if e.ClinicTimeZone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(e.ClinicTimeZone)
	if err != nil {
		return nil, fmt.Errorf("CLINIC_TIMEZONE: %w", err)
	}
	return loc, nil
}
