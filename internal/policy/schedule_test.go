package policy

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Guanfancy/internal/model"
)

func TestDelayHoursFor_AllCategories(t *testing.T) {
	cfg := DefaultScheduleConfig()
	expected := map[model.FeedbackType]int{
		model.FeedbackGood:     0,
		model.FeedbackDizzy:    12,
		model.FeedbackTooDizzy: 24,
	}
	require.Len(t, model.FeedbackTypes, int(model.NumFeedbackTypes))
	for _, f := range model.FeedbackTypes {
		want, ok := expected[f]
		require.True(t, ok, "no expectation for %s", f)
		assert.Equal(t, want, DelayHoursFor(f, cfg), f.String())
	}
}

func TestDelayHoursFor_CustomDelays(t *testing.T) {
	cfg := DefaultScheduleConfig().
		WithDelay(model.FeedbackGood, 1).
		WithDelay(model.FeedbackDizzy, 6).
		WithDelay(model.FeedbackTooDizzy, 48)

	assert.Equal(t, 1, DelayHoursFor(model.FeedbackGood, cfg))
	assert.Equal(t, 6, DelayHoursFor(model.FeedbackDizzy, cfg))
	assert.Equal(t, 48, DelayHoursFor(model.FeedbackTooDizzy, cfg))
}

func TestScheduleConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ScheduleConfig)
		ok     bool
	}{
		{"defaults", func(*ScheduleConfig) {}, true},
		{"midnight", func(c *ScheduleConfig) { c.DefaultHour, c.DefaultMinute = 0, 0 }, true},
		{"last minute", func(c *ScheduleConfig) { c.DefaultHour, c.DefaultMinute = 23, 59 }, true},
		{"hour 24", func(c *ScheduleConfig) { c.DefaultHour = 24 }, false},
		{"negative hour", func(c *ScheduleConfig) { c.DefaultHour = -1 }, false},
		{"minute 60", func(c *ScheduleConfig) { c.DefaultMinute = 60 }, false},
		{"negative delay", func(c *ScheduleConfig) { c.FeedbackDelays.Dizzy = -1 }, false},
		{"negative prompt", func(c *ScheduleConfig) { c.FeedbackPromptHours = -1 }, false},
		{"negative window", func(c *ScheduleConfig) { c.RescheduleWindowHours = -2 }, false},
	}
	for _, tt := range tests {
		cfg := DefaultScheduleConfig()
		tt.mutate(&cfg)
		err := cfg.Validate()
		if tt.ok {
			assert.NoError(t, err, tt.name)
		} else {
			assert.True(t, errors.Is(err, ErrInvalidSchedule), tt.name)
		}
	}
}

func intPtr(v int) *int { return &v }

func TestMigrate_V1FeedbackDelayHours(t *testing.T) {
	cfg, err := Migrate(LegacyScheduleConfig{
		FeedbackDelayHours:      intPtr(10),
		DefaultIntakeTimeHour:   intPtr(21),
		DefaultIntakeTimeMinute: intPtr(30),
	})
	require.NoError(t, err)

	assert.Equal(t, CurrentScheduleVersion, cfg.Version)
	assert.Equal(t, 10, cfg.FeedbackPromptHours)
	assert.Equal(t, 21, cfg.DefaultHour)
	assert.Equal(t, 30, cfg.DefaultMinute)
	assert.Equal(t, FeedbackDelays{Good: 0, Dizzy: 12, TooDizzy: 24}, cfg.FeedbackDelays)
	assert.Equal(t, DefaultRescheduleWindowHours, cfg.RescheduleWindowHours)
}

func TestMigrate_V2FlatDelays(t *testing.T) {
	legacy := LegacyScheduleConfig{
		GoodHours:     intPtr(2),
		DizzyHours:    intPtr(8),
		TooDizzyHours: intPtr(36),
	}
	assert.Equal(t, 2, legacy.DetectVersion())

	cfg, err := Migrate(legacy)
	require.NoError(t, err)
	assert.Equal(t, FeedbackDelays{Good: 2, Dizzy: 8, TooDizzy: 36}, cfg.FeedbackDelays)
	assert.Equal(t, DefaultFeedbackPromptHours, cfg.FeedbackPromptHours)
	assert.Equal(t, DefaultIntakeHour, cfg.DefaultHour)
}

func TestMigrate_CurrentPassesThrough(t *testing.T) {
	current := DefaultScheduleConfig()
	current.DefaultHour = 19
	cfg, err := Migrate(LegacyScheduleConfig{Version: CurrentScheduleVersion, Current: &current})
	require.NoError(t, err)
	assert.Equal(t, current, cfg)
}

func TestMigrate_EmptyDocumentYieldsDefaults(t *testing.T) {
	cfg, err := Migrate(LegacyScheduleConfig{})
	require.NoError(t, err)
	assert.Equal(t, DefaultScheduleConfig(), cfg)
}

func TestMigrate_RejectsInvalid(t *testing.T) {
	_, err := Migrate(LegacyScheduleConfig{DefaultIntakeTimeHour: intPtr(25)})
	assert.ErrorIs(t, err, ErrInvalidSchedule)

	_, err = Migrate(LegacyScheduleConfig{Version: 9})
	assert.ErrorIs(t, err, ErrInvalidSchedule)
}
