package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validEngine() EngineConfig {
	return EngineConfig{
		GranularityMinutes: 30,
		MaxDurationMinutes: 120,
		ConsultationFee:    50000,
		SessionUnitCharge:  30000,
		FreeSessions:       3,
		WaitingMonths:      6,
		ClinicTimeZone:     "UTC",
		ReconcileInterval:  time.Hour,
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DB_DRIVER", DriverSQLite)
	t.Setenv("DB_SQLITE_PATH", ":memory:")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 30, cfg.Engine.GranularityMinutes)
	assert.Equal(t, 120, cfg.Engine.MaxDurationMinutes)
	assert.Equal(t, 6, cfg.Engine.WaitingMonths)
	assert.Equal(t, time.Hour, cfg.Engine.ReconcileInterval)
	assert.Equal(t, ":50051", cfg.GRPCAddr)
	assert.Empty(t, cfg.Redis.Addr)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DB_DRIVER", DriverSQLite)
	t.Setenv("DB_SQLITE_PATH", ":memory:")
	t.Setenv("SLOT_GRANULARITY_MIN", "15")
	t.Setenv("MAX_APPOINTMENT_MIN", "90")
	t.Setenv("RECONCILE_INTERVAL", "10m")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 15, cfg.Engine.GranularityMinutes)
	assert.Equal(t, 90, cfg.Engine.MaxDurationMinutes)
	assert.Equal(t, 10*time.Minute, cfg.Engine.ReconcileInterval)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
}

func TestEngineConfig_Validate(t *testing.T) {
	require.NoError(t, validEngine().Validate())

	cases := map[string]func(*EngineConfig){
		"zero granularity":   func(e *EngineConfig) { e.GranularityMinutes = 0 },
		"max below slot":     func(e *EngineConfig) { e.MaxDurationMinutes = 15 },
		"max off grid":       func(e *EngineConfig) { e.MaxDurationMinutes = 100 },
		"free fee":           func(e *EngineConfig) { e.ConsultationFee = 0 },
		"negative sessions":  func(e *EngineConfig) { e.FreeSessions = -1 },
		"no waiting period":  func(e *EngineConfig) { e.WaitingMonths = 0 },
		"unknown time zone":  func(e *EngineConfig) { e.ClinicTimeZone = "Mars/Olympus" },
		"no reconcile cycle": func(e *EngineConfig) { e.ReconcileInterval = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			e := validEngine()
			mutate(&e)
			assert.Error(t, e.Validate())
		})
	}
}

func TestDBConfig_Validate(t *testing.T) {
	assert.NoError(t, (&DBConfig{Driver: DriverSQLite, SQLitePath: "x.db"}).Validate())
	assert.Error(t, (&DBConfig{Driver: DriverSQLite}).Validate())
	assert.Error(t, (&DBConfig{Driver: DriverPostgres}).Validate())
	assert.Error(t, (&DBConfig{Driver: "mysql"}).Validate())
}
