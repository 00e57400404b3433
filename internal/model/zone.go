package model

import (
	"errors"
	"fmt"
)

// Zone classifies how safe it is to eat relative to a dose.
// Lower values are more restrictive.
type Zone int

const (
	ZoneRed Zone = iota
	ZoneYellow
	ZoneGreen
)

func (z Zone) String() string {
	switch z {
	case ZoneRed:
		return "RED"
	case ZoneYellow:
		return "YELLOW"
	case ZoneGreen:
		return "GREEN"
	}
	return fmt.Sprintf("Zone(%d)", int(z))
}

// MoreRestrictive reports whether z restricts eating more than other.
func (z Zone) MoreRestrictive(other Zone) bool {
	return z < other
}

// MostRestrictive returns the most restrictive of zones, GREEN when zones is empty.
func MostRestrictive(zones ...Zone) Zone {
	result := ZoneGreen
	for _, z := range zones {
		if z.MoreRestrictive(result) {
			result = z
		}
	}
	return result
}

// ErrInvalidZoneConfig is returned when zone thresholds are negative or out of order.
var ErrInvalidZoneConfig = errors.New("invalid zone config")

// ZoneConfig holds the hour thresholds around a dose.
type ZoneConfig struct {
	GreenHoursBefore  int `json:"green_hours_before" yaml:"green_hours_before"`
	YellowHoursBefore int `json:"yellow_hours_before" yaml:"yellow_hours_before"`
	RedHoursAfter     int `json:"red_hours_after" yaml:"red_hours_after"`
	YellowHoursAfter  int `json:"yellow_hours_after" yaml:"yellow_hours_after"`
}

var (
	// IntunivZoneConfig is the extended-release preset.
	IntunivZoneConfig = ZoneConfig{GreenHoursBefore: 5, YellowHoursBefore: 3, RedHoursAfter: 3, YellowHoursAfter: 5}
	// TenexZoneConfig is the immediate-release preset.
	TenexZoneConfig = ZoneConfig{GreenHoursBefore: 5, YellowHoursBefore: 3, RedHoursAfter: 1, YellowHoursAfter: 2}
)

// Validate rejects negative thresholds and non-monotonic zone ordering.
func (c ZoneConfig) Validate() error {
	if c.GreenHoursBefore < 0 || c.YellowHoursBefore < 0 || c.RedHoursAfter < 0 || c.YellowHoursAfter < 0 {
		return fmt.Errorf("%w: negative hours in %+v", ErrInvalidZoneConfig, c)
	}
	if c.YellowHoursBefore > c.GreenHoursBefore {
		return fmt.Errorf("%w: yellow_hours_before %d > green_hours_before %d",
			ErrInvalidZoneConfig, c.YellowHoursBefore, c.GreenHoursBefore)
	}
	if c.RedHoursAfter > c.YellowHoursAfter {
		return fmt.Errorf("%w: red_hours_after %d > yellow_hours_after %d",
			ErrInvalidZoneConfig, c.RedHoursAfter, c.YellowHoursAfter)
	}
	return nil
}
