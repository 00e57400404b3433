package settings

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	json "github.com/goccy/go-json"

	"Guanfancy/internal/model"
	"Guanfancy/internal/policy"
)

// fileState is the on-disk settings document. The embedded legacy schedule keeps
// older files readable; Save always writes the current schema.
type fileState struct {
	WarningAccepted     bool                 `json:"warning_accepted"`
	OnboardingCompleted bool                 `json:"onboarding_completed"`
	MedicationType      model.MedicationType `json:"medication_type,omitempty"`
	CurrentIntakeTimeMs *int64               `json:"current_intake_time,omitempty"`
	policy.LegacyScheduleConfig
	UpdatedAt time.Time `json:"updated_at"`
}

// loadState reads the settings file. Returns a zero state if the file doesn't exist.
func loadState(filePath string) (*fileState, bool, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return &fileState{}, false, nil
		}
		return nil, false, err
	}
	var st fileState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, false, fmt.Errorf("decode %s: %w", filePath, err)
	}
	return &st, true, nil
}

// saveState writes the settings file atomically.
func saveState(filePath string, st *fileState) error {
	st.UpdatedAt = time.Now()
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(filePath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, filePath)
}
