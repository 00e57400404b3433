package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/gookit/validate"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"Guanfancy/internal/model"
	"Guanfancy/internal/policy"
)

type TelegramConfig struct {
	BotToken string `yaml:"bot_token" validate:"required"`
	ChatID   string `yaml:"chat_id" validate:"required"`
}

type DatabaseConfig struct {
	// SQLitePath empty keeps intakes in memory.
	SQLitePath string `yaml:"sqlite_path"`
}

type SettingsConfig struct {
	StateFile string `yaml:"state_file" validate:"required"`
}

type ScheduleConfig struct {
	SweepCron string `yaml:"sweep_cron" validate:"required"`
	DailyCron string `yaml:"daily_cron" validate:"required"`
}

type MedicationConfig struct {
	Type string `yaml:"type" validate:"required|in:INTUNIV,TENEX"`
}

type LoggerConfig struct {
	Level  string `yaml:"level" validate:"required|in:trace,debug,info,warn,error"`
	Format string `yaml:"format" validate:"required|in:console,json"`
}

type MetricsConfig struct {
	// ListenAddr empty disables the /metrics endpoint.
	ListenAddr string `yaml:"listen_addr"`
}

// Config holds all application configuration.
type Config struct {
	Telegram   TelegramConfig        `yaml:"telegram"`
	Database   DatabaseConfig        `yaml:"database"`
	Settings   SettingsConfig        `yaml:"settings"`
	Schedule   ScheduleConfig        `yaml:"schedule"`
	Medication MedicationConfig      `yaml:"medication"`
	Intake     policy.ScheduleConfig `yaml:"intake"`
	Timezone   string                `yaml:"timezone"`
	Logger     LoggerConfig          `yaml:"logger"`
	Metrics    MetricsConfig         `yaml:"metrics"`
	Proxy      string                `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies .env and environment variable overrides.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{Intake: policy.DefaultScheduleConfig()}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	overrides := []struct {
		key string
		dst *string
	}{
		{"TELEGRAM_BOT_TOKEN", &c.Telegram.BotToken},
		{"TELEGRAM_CHAT_ID", &c.Telegram.ChatID},
		{"HTTPS_PROXY", &c.Proxy},
		{"SQLITE_PATH", &c.Database.SQLitePath},
		{"SETTINGS_FILE", &c.Settings.StateFile},
		{"CRON_SWEEP", &c.Schedule.SweepCron},
		{"CRON_DAILY", &c.Schedule.DailyCron},
		{"MEDICATION_TYPE", &c.Medication.Type},
		{"GUANFANCY_TIMEZONE", &c.Timezone},
		{"LOG_LEVEL", &c.Logger.Level},
		{"LOG_FORMAT", &c.Logger.Format},
		{"METRICS_LISTEN_ADDR", &c.Metrics.ListenAddr},
	}
	for _, o := range overrides {
		if v := os.Getenv(o.key); v != "" {
			*o.dst = v
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Settings.StateFile == "" {
		c.Settings.StateFile = "data/settings.json"
	}
	if c.Schedule.SweepCron == "" {
		c.Schedule.SweepCron = "0 * * * * *"
	}
	if c.Schedule.DailyCron == "" {
		c.Schedule.DailyCron = "0 0 7 * * *"
	}
	if c.Medication.Type == "" {
		c.Medication.Type = string(model.DefaultMedicationType)
	}
	c.Medication.Type = strings.ToUpper(c.Medication.Type)
	if c.Timezone == "" {
		c.Timezone = "Local"
	}
	if c.Logger.Level == "" {
		c.Logger.Level = "info"
	}
	if c.Logger.Format == "" {
		c.Logger.Format = "console"
	}
}

// Validate checks required fields and domain constraints.
func (c *Config) Validate() error {
	sections := []struct {
		name  string
		value interface{}
	}{
		{"telegram", &c.Telegram},
		{"settings", &c.Settings},
		{"schedule", &c.Schedule},
		{"medication", &c.Medication},
		{"logger", &c.Logger},
	}
	for _, s := range sections {
		v := validate.Struct(s.value)
		if !v.Validate() {
			return fmt.Errorf("%s: %s", s.name, v.Errors.One())
		}
	}

	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(c.Schedule.SweepCron); err != nil {
		return fmt.Errorf("schedule.sweep_cron: %w", err)
	}
	if _, err := parser.Parse(c.Schedule.DailyCron); err != nil {
		return fmt.Errorf("schedule.daily_cron: %w", err)
	}
	if err := c.Intake.Validate(); err != nil {
		return fmt.Errorf("intake: %w", err)
	}
	if err := c.MedicationType().ZoneConfig().Validate(); err != nil {
		return fmt.Errorf("medication: %w", err)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// MedicationType returns the configured default medication.
func (c *Config) MedicationType() model.MedicationType {
	return model.ParseMedicationType(c.Medication.Type)
}

// Location resolves the configured IANA timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// LogLevel parses the logger level; Validate guarantees it is known.
func (c *Config) LogLevel() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.Logger.Level)
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}
