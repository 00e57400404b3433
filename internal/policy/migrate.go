package policy

import "fmt"

// LegacyScheduleConfig is the union of every schedule schema ever persisted.
//
// v1 stored one feedback_delay_hours value, used as the feedback prompt delay, and
// kept the per-feedback delays as constants. v2 stored flat good/dizzy/too_dizzy hours.
// v3 is ScheduleConfig itself.
type LegacyScheduleConfig struct {
	Version int `json:"version"`

	// v1
	FeedbackDelayHours *int `json:"feedback_delay_hours,omitempty"`

	// v2
	GoodHours     *int `json:"good_hours,omitempty"`
	DizzyHours    *int `json:"dizzy_hours,omitempty"`
	TooDizzyHours *int `json:"too_dizzy_hours,omitempty"`

	// v1 and v2 use the same time-of-day keys
	DefaultIntakeTimeHour   *int `json:"default_intake_time_hour,omitempty"`
	DefaultIntakeTimeMinute *int `json:"default_intake_time_minute,omitempty"`

	// v3
	Current *ScheduleConfig `json:"schedule,omitempty"`
}

// DetectVersion infers the schema version of a document that may predate versioning.
func (l LegacyScheduleConfig) DetectVersion() int {
	switch {
	case l.Version != 0:
		return l.Version
	case l.Current != nil:
		return CurrentScheduleVersion
	case l.GoodHours != nil || l.DizzyHours != nil || l.TooDizzyHours != nil:
		return 2
	default:
		return 1
	}
}

// Migrate normalises any persisted schedule into the current schema and validates it.
// Fields missing from older documents take the factory defaults.
func Migrate(l LegacyScheduleConfig) (ScheduleConfig, error) {
	cfg := DefaultScheduleConfig()

	switch v := l.DetectVersion(); v {
	case 1:
		setIfPresent(&cfg.FeedbackPromptHours, l.FeedbackDelayHours)
		setIfPresent(&cfg.DefaultHour, l.DefaultIntakeTimeHour)
		setIfPresent(&cfg.DefaultMinute, l.DefaultIntakeTimeMinute)
	case 2:
		setIfPresent(&cfg.FeedbackDelays.Good, l.GoodHours)
		setIfPresent(&cfg.FeedbackDelays.Dizzy, l.DizzyHours)
		setIfPresent(&cfg.FeedbackDelays.TooDizzy, l.TooDizzyHours)
		setIfPresent(&cfg.DefaultHour, l.DefaultIntakeTimeHour)
		setIfPresent(&cfg.DefaultMinute, l.DefaultIntakeTimeMinute)
	case CurrentScheduleVersion:
		if l.Current != nil {
			cfg = *l.Current
		}
	default:
		return ScheduleConfig{}, fmt.Errorf("%w: unsupported schema version %d", ErrInvalidSchedule, v)
	}

	cfg.Version = CurrentScheduleVersion
	if err := cfg.Validate(); err != nil {
		return ScheduleConfig{}, fmt.Errorf("migrate schedule: %w", err)
	}
	return cfg, nil
}

func setIfPresent(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}
