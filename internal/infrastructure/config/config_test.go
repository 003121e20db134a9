package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "settlement-engine", cfg.App.Name)
	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 30*time.Second, cfg.Alerts.EvaluationInterval)
	assert.Equal(t, 1, cfg.Alerts.ImminentDays)
	assert.Equal(t, 2.0, cfg.Alerts.ThresholdMultiplier)
	assert.Equal(t, 4, cfg.Processor.Workers)
	assert.Equal(t, 30*time.Second, cfg.Processor.ResolveTimeout)
	assert.Equal(t, 24*time.Hour, cfg.Processor.IdempotencyTTL)
}

func TestLoadEnvOverrides(t *testing.T) {
	os.Setenv("SETTLE_DATABASE_HOST", "db.internal")
	os.Setenv("SETTLE_DATABASE_PORT", "5433")
	os.Setenv("SETTLE_LOG_LEVEL", "debug")
	os.Setenv("SETTLE_PROCESSOR_WORKERS", "8")
	defer func() {
		os.Unsetenv("SETTLE_DATABASE_HOST")
		os.Unsetenv("SETTLE_DATABASE_PORT")
		os.Unsetenv("SETTLE_LOG_LEVEL")
		os.Unsetenv("SETTLE_PROCESSOR_WORKERS")
	}()

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 5433, cfg.Database.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 8, cfg.Processor.Workers)
}

func TestValidateProduction(t *testing.T) {
	base := func() *Config {
		cfg := &Config{}
		applyDefaults(cfg)
		cfg.App.Env = "production"
		cfg.Database.Password = "secret"
		cfg.Database.SSLMode = "require"
		return cfg
	}

	t.Run("valid production config", func(t *testing.T) {
		assert.NoError(t, base().validate())
	})

	t.Run("missing password", func(t *testing.T) {
		cfg := base()
		cfg.Database.Password = ""
		assert.Error(t, cfg.validate())
	})

	t.Run("sslmode disable rejected", func(t *testing.T) {
		cfg := base()
		cfg.Database.SSLMode = "disable"
		assert.Error(t, cfg.validate())
	})

	t.Run("sqlite rejected", func(t *testing.T) {
		cfg := base()
		cfg.Database.Driver = "sqlite"
		assert.Error(t, cfg.validate())
	})

	t.Run("wildcard cors rejected", func(t *testing.T) {
		cfg := base()
		cfg.HTTP.CORSAllowOrigins = []string{"*"}
		assert.Error(t, cfg.validate())
	})
}

func TestValidate(t *testing.T) {
	t.Run("unknown driver", func(t *testing.T) {
		cfg := &Config{}
		applyDefaults(cfg)
		cfg.Database.Driver = "mysql"
		assert.Error(t, cfg.validate())
	})

	t.Run("idle conns exceed open conns", func(t *testing.T) {
		cfg := &Config{}
		applyDefaults(cfg)
		cfg.Database.MaxIdleConns = 50
		assert.Error(t, cfg.validate())
	})

	t.Run("threshold multiplier below one", func(t *testing.T) {
		cfg := &Config{}
		applyDefaults(cfg)
		cfg.Alerts.ThresholdMultiplier = 0.5
		assert.Error(t, cfg.validate())
	})
}

func TestDSN(t *testing.T) {
	t.Run("postgres escapes credentials", func(t *testing.T) {
		d := &DatabaseConfig{
			Driver:   "postgres",
			Host:     "localhost",
			Port:     5432,
			User:     "user@domain",
			Password: "p@ss:word/123",
			DBName:   "settlement",
			SSLMode:  "require",
		}
		dsn := d.DSN()
		assert.Contains(t, dsn, "postgres://")
		assert.Contains(t, dsn, "user%40domain")
		assert.Contains(t, dsn, "sslmode=require")
		assert.NotContains(t, dsn, "p@ss:word/123")
	})

	t.Run("sqlite returns file path", func(t *testing.T) {
		d := &DatabaseConfig{Driver: "sqlite", SQLitePath: "test.db"}
		assert.Equal(t, "test.db", d.DSN())
	})
}
