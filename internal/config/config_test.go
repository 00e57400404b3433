package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Guanfancy/internal/model"
	"Guanfancy/internal/policy"
)

var envKeys = []string{
	"TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID", "HTTPS_PROXY", "SQLITE_PATH", "SETTINGS_FILE",
	"CRON_SWEEP", "CRON_DAILY", "MEDICATION_TYPE", "GUANFANCY_TIMEZONE", "LOG_LEVEL",
	"LOG_FORMAT", "METRICS_LISTEN_ADDR",
}

func clearEnv(t *testing.T) {
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const sampleYAML = `
telegram:
  bot_token: "file-token"
  chat_id: "100"
database:
  sqlite_path: "data/test.db"
medication:
  type: tenex
intake:
  default_hour: 21
  default_minute: 30
timezone: "Europe/Berlin"
logger:
  level: debug
  format: json
metrics:
  listen_addr: ":9090"
`

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", "env-token")
	t.Setenv("TELEGRAM_CHAT_ID", "42")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "env-token", cfg.Telegram.BotToken)
	assert.Equal(t, "data/settings.json", cfg.Settings.StateFile)
	assert.Equal(t, "0 * * * * *", cfg.Schedule.SweepCron)
	assert.Equal(t, "0 0 7 * * *", cfg.Schedule.DailyCron)
	assert.Equal(t, model.MedicationIntuniv, cfg.MedicationType())
	assert.Equal(t, policy.DefaultScheduleConfig(), cfg.Intake)
	assert.Empty(t, cfg.Database.SQLitePath)
	assert.Empty(t, cfg.Metrics.ListenAddr)
	assert.Equal(t, zerolog.InfoLevel, cfg.LogLevel())
}

func TestLoad_YAMLKeepsUnsetIntakeDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "file-token", cfg.Telegram.BotToken)
	assert.Equal(t, model.MedicationTenex, cfg.MedicationType())
	assert.Equal(t, 21, cfg.Intake.DefaultHour)
	assert.Equal(t, 30, cfg.Intake.DefaultMinute)
	assert.Equal(t, policy.DefaultDizzyDelayHours, cfg.Intake.FeedbackDelays.Dizzy)
	assert.Equal(t, policy.DefaultRescheduleWindowHours, cfg.Intake.RescheduleWindowHours)
	assert.Equal(t, zerolog.DebugLevel, cfg.LogLevel())

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", loc.String())
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", "env-token")
	t.Setenv("MEDICATION_TYPE", "intuniv")
	t.Setenv("SQLITE_PATH", "/tmp/other.db")
	t.Setenv("METRICS_LISTEN_ADDR", "127.0.0.1:2112")

	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)
	assert.Equal(t, "env-token", cfg.Telegram.BotToken)
	assert.Equal(t, "100", cfg.Telegram.ChatID)
	assert.Equal(t, model.MedicationIntuniv, cfg.MedicationType())
	assert.Equal(t, "/tmp/other.db", cfg.Database.SQLitePath)
	assert.Equal(t, "127.0.0.1:2112", cfg.Metrics.ListenAddr)
}

func TestLoad_RejectsMalformedYAML(t *testing.T) {
	clearEnv(t)
	_, err := Load(writeConfig(t, "telegram: [unclosed"))
	assert.Error(t, err)
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing token", func(c *Config) { c.Telegram.BotToken = "" }},
		{"missing chat", func(c *Config) { c.Telegram.ChatID = "" }},
		{"unknown medication", func(c *Config) { c.Medication.Type = "ASPIRIN" }},
		{"bad timezone", func(c *Config) { c.Timezone = "Mars/Olympus" }},
		{"bad sweep cron", func(c *Config) { c.Schedule.SweepCron = "every minute" }},
		{"bad daily cron", func(c *Config) { c.Schedule.DailyCron = "0 0 25 * * *" }},
		{"bad log level", func(c *Config) { c.Logger.Level = "loud" }},
		{"bad log format", func(c *Config) { c.Logger.Format = "xml" }},
		{"intake hour out of range", func(c *Config) { c.Intake.DefaultHour = 24 }},
		{"negative delay", func(c *Config) { c.Intake.FeedbackDelays.Good = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			cfg, err := Load(writeConfig(t, sampleYAML))
			require.NoError(t, err)
			require.NoError(t, cfg.Validate())

			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidate_IntakeErrorIsSentinel(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)
	cfg.Intake.DefaultMinute = 60
	assert.ErrorIs(t, cfg.Validate(), policy.ErrInvalidSchedule)
}
