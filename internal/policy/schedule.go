package policy

import (
	"errors"
	"fmt"

	"Guanfancy/internal/model"
)

// CurrentScheduleVersion is the schema version written by this build.
const CurrentScheduleVersion = 3

// ErrInvalidSchedule is returned for out-of-range schedule settings.
var ErrInvalidSchedule = errors.New("invalid schedule config")

// FeedbackDelays holds the hours added to the next dose per feedback category.
type FeedbackDelays struct {
	Good     int `json:"good" yaml:"good"`
	Dizzy    int `json:"dizzy" yaml:"dizzy"`
	TooDizzy int `json:"too_dizzy" yaml:"too_dizzy"`
}

// ScheduleConfig is the user's dosing schedule.
type ScheduleConfig struct {
	Version               int            `json:"version" yaml:"-"`
	FeedbackDelays        FeedbackDelays `json:"feedback_delays" yaml:"feedback_delays"`
	FeedbackPromptHours   int            `json:"feedback_prompt_hours" yaml:"feedback_prompt_hours"`
	DefaultHour           int            `json:"default_hour" yaml:"default_hour"`
	DefaultMinute         int            `json:"default_minute" yaml:"default_minute"`
	RescheduleWindowHours int            `json:"reschedule_window_hours" yaml:"reschedule_window_hours"`
}

// Shipped defaults.
const (
	DefaultGoodDelayHours        = 0
	DefaultDizzyDelayHours       = 12
	DefaultTooDizzyDelayHours    = 24
	DefaultFeedbackPromptHours   = 12
	DefaultIntakeHour            = 8
	DefaultIntakeMinute          = 0
	DefaultRescheduleWindowHours = 2
)

// DefaultScheduleConfig returns the factory schedule.
func DefaultScheduleConfig() ScheduleConfig {
	return ScheduleConfig{
		Version: CurrentScheduleVersion,
		FeedbackDelays: FeedbackDelays{
			Good:     DefaultGoodDelayHours,
			Dizzy:    DefaultDizzyDelayHours,
			TooDizzy: DefaultTooDizzyDelayHours,
		},
		FeedbackPromptHours:   DefaultFeedbackPromptHours,
		DefaultHour:           DefaultIntakeHour,
		DefaultMinute:         DefaultIntakeMinute,
		RescheduleWindowHours: DefaultRescheduleWindowHours,
	}
}

// Validate checks hour/minute ranges and that no delay is negative.
func (c ScheduleConfig) Validate() error {
	if err := ValidateTimeOfDay(c.DefaultHour, c.DefaultMinute); err != nil {
		return err
	}
	for _, f := range model.FeedbackTypes {
		if h := DelayHoursFor(f, c); h < 0 {
			return fmt.Errorf("%w: negative delay %d for %s", ErrInvalidSchedule, h, f)
		}
	}
	if c.FeedbackPromptHours < 0 {
		return fmt.Errorf("%w: negative feedback_prompt_hours %d", ErrInvalidSchedule, c.FeedbackPromptHours)
	}
	if c.RescheduleWindowHours < 0 {
		return fmt.Errorf("%w: negative reschedule_window_hours %d", ErrInvalidSchedule, c.RescheduleWindowHours)
	}
	return nil
}

// ValidateTimeOfDay checks hour in [0,23] and minute in [0,59].
func ValidateTimeOfDay(hour, minute int) error {
	if hour < 0 || hour > 23 {
		return fmt.Errorf("%w: hour %d out of range", ErrInvalidSchedule, hour)
	}
	if minute < 0 || minute > 59 {
		return fmt.Errorf("%w: minute %d out of range", ErrInvalidSchedule, minute)
	}
	return nil
}

// Adding a feedback category breaks this line until DelayHoursFor and
// WithDelay are extended.
var _ = [1]struct{}{}[model.NumFeedbackTypes-3]

// DelayHoursFor maps a feedback category to its delay. Every category is explicit.
func DelayHoursFor(feedback model.FeedbackType, cfg ScheduleConfig) int {
	switch feedback {
	case model.FeedbackGood:
		return cfg.FeedbackDelays.Good
	case model.FeedbackDizzy:
		return cfg.FeedbackDelays.Dizzy
	case model.FeedbackTooDizzy:
		return cfg.FeedbackDelays.TooDizzy
	}
	panic(fmt.Sprintf("policy: unmapped feedback type %v", feedback))
}

// WithDelay returns a copy of cfg with the delay for feedback set to hours.
func (c ScheduleConfig) WithDelay(feedback model.FeedbackType, hours int) ScheduleConfig {
	switch feedback {
	case model.FeedbackGood:
		c.FeedbackDelays.Good = hours
	case model.FeedbackDizzy:
		c.FeedbackDelays.Dizzy = hours
	case model.FeedbackTooDizzy:
		c.FeedbackDelays.TooDizzy = hours
	}
	return c
}
