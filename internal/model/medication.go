package model

import "strings"

// MedicationType selects which zone preset applies.
type MedicationType string

const (
	MedicationIntuniv MedicationType = "INTUNIV"
	MedicationTenex   MedicationType = "TENEX"
)

// DefaultMedicationType is used when nothing has been chosen yet.
const DefaultMedicationType = MedicationIntuniv

// HalfLifeHours is the elimination half-life of guanfacine.
const HalfLifeHours = 17.0

// ParseMedicationType maps a stored or typed value to a medication type.
// Unknown values fall back to INTUNIV.
func ParseMedicationType(s string) MedicationType {
	if MedicationType(strings.ToUpper(strings.TrimSpace(s))) == MedicationTenex {
		return MedicationTenex
	}
	return MedicationIntuniv
}

// ZoneConfig returns the preset thresholds for the medication.
func (m MedicationType) ZoneConfig() ZoneConfig {
	switch m {
	case MedicationTenex:
		return TenexZoneConfig
	default:
		return IntunivZoneConfig
	}
}

func (m MedicationType) DisplayName() string {
	switch m {
	case MedicationTenex:
		return "Tenex"
	default:
		return "Intuniv"
	}
}

func (m MedicationType) Description() string {
	switch m {
	case MedicationTenex:
		return "Immediate release - max blood presence at ~3 hours"
	default:
		return "Extended release - max blood presence at ~6 hours"
	}
}
