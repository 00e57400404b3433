package settings

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"Guanfancy/internal/model"
	"Guanfancy/internal/policy"
)

// Snapshot is a read-only copy of all user settings.
type Snapshot struct {
	WarningAccepted     bool
	OnboardingCompleted bool
	MedicationType      model.MedicationType
	Schedule            policy.ScheduleConfig
	CurrentIntakeTime   *time.Time
}

// Manager owns the user's settings with concurrency safety.
// An empty file path keeps settings in memory only.
type Manager struct {
	mu       sync.Mutex
	snap     Snapshot
	defaults Snapshot
	filePath string
}

// NewManager loads settings from disk, migrating older schedule schemas.
// defaults seed a fresh file and are restored by ClearAll.
func NewManager(filePath string, medication model.MedicationType, schedule policy.ScheduleConfig) (*Manager, error) {
	if err := schedule.Validate(); err != nil {
		return nil, fmt.Errorf("default schedule: %w", err)
	}
	defaults := Snapshot{MedicationType: medication, Schedule: schedule}
	m := &Manager{snap: defaults, defaults: defaults, filePath: filePath}
	if filePath == "" {
		return m, nil
	}

	st, found, err := loadState(filePath)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	if found {
		snap, err := fromFile(st, defaults)
		if err != nil {
			return nil, err
		}
		if v := st.DetectVersion(); v != policy.CurrentScheduleVersion {
			log.Info().Int("from", v).Int("to", policy.CurrentScheduleVersion).Msg("migrated schedule settings")
		}
		m.snap = snap
	}

	if err := m.save(m.snap); err != nil {
		return nil, err
	}
	return m, nil
}

func fromFile(st *fileState, defaults Snapshot) (Snapshot, error) {
	snap := Snapshot{
		WarningAccepted:     st.WarningAccepted,
		OnboardingCompleted: st.OnboardingCompleted,
		MedicationType:      defaults.MedicationType,
		Schedule:            defaults.Schedule,
	}
	if st.MedicationType != "" {
		snap.MedicationType = model.ParseMedicationType(string(st.MedicationType))
	}
	if st.CurrentIntakeTimeMs != nil {
		t := time.UnixMilli(*st.CurrentIntakeTimeMs)
		snap.CurrentIntakeTime = &t
	}

	legacy := st.LegacyScheduleConfig
	if legacy.DetectVersion() == 1 && legacy.FeedbackDelayHours == nil &&
		legacy.DefaultIntakeTimeHour == nil && legacy.DefaultIntakeTimeMinute == nil {
		// no schedule stored yet
		return snap, nil
	}
	sched, err := policy.Migrate(legacy)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load schedule: %w", err)
	}
	snap.Schedule = sched
	return snap, nil
}

// Snapshot returns a copy of the current settings.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.snap
	if s.CurrentIntakeTime != nil {
		t := *s.CurrentIntakeTime
		s.CurrentIntakeTime = &t
	}
	return s
}

func (m *Manager) MedicationType() model.MedicationType {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap.MedicationType
}

// ZoneConfig returns the preset for the selected medication.
func (m *Manager) ZoneConfig() model.ZoneConfig {
	return m.MedicationType().ZoneConfig()
}

func (m *Manager) ScheduleConfig() policy.ScheduleConfig {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap.Schedule
}

// UpdateScheduleConfig validates and stores a new schedule.
func (m *Manager) UpdateScheduleConfig(cfg policy.ScheduleConfig) error {
	cfg.Version = policy.CurrentScheduleVersion
	if err := cfg.Validate(); err != nil {
		return err
	}
	return m.mutate(func(s *Snapshot) { s.Schedule = cfg })
}

func (m *Manager) SetMedicationType(t model.MedicationType) error {
	return m.mutate(func(s *Snapshot) { s.MedicationType = t })
}

func (m *Manager) SetWarningAccepted(accepted bool) error {
	return m.mutate(func(s *Snapshot) { s.WarningAccepted = accepted })
}

func (m *Manager) SetOnboardingCompleted(completed bool) error {
	return m.mutate(func(s *Snapshot) { s.OnboardingCompleted = completed })
}

func (m *Manager) SetCurrentIntakeTime(t time.Time) error {
	return m.mutate(func(s *Snapshot) { s.CurrentIntakeTime = &t })
}

// ClearAll resets every setting to its defaults.
func (m *Manager) ClearAll() error {
	return m.mutate(func(s *Snapshot) { *s = m.defaults })
}

// mutate applies fn to a copy and keeps it only once it is on disk.
func (m *Manager) mutate(fn func(*Snapshot)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	next := m.snap
	fn(&next)
	if err := m.save(next); err != nil {
		return err
	}
	m.snap = next
	return nil
}

func (m *Manager) save(snap Snapshot) error {
	if m.filePath == "" {
		return nil
	}
	sched := snap.Schedule
	st := &fileState{
		WarningAccepted:     snap.WarningAccepted,
		OnboardingCompleted: snap.OnboardingCompleted,
		MedicationType:      snap.MedicationType,
		LegacyScheduleConfig: policy.LegacyScheduleConfig{
			Version: policy.CurrentScheduleVersion,
			Current: &sched,
		},
	}
	if snap.CurrentIntakeTime != nil {
		ms := snap.CurrentIntakeTime.UnixMilli()
		st.CurrentIntakeTimeMs = &ms
	}
	if err := saveState(m.filePath, st); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}
