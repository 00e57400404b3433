package calculator

import (
	"time"

	"Guanfancy/internal/model"
)

// CalculateZone classifies now against the last dose taken and the next dose due.
// Missing times contribute no restriction; with neither present the result is GREEN.
func CalculateZone(now time.Time, lastTaken, nextScheduled *time.Time, cfg model.ZoneConfig) model.Zone {
	var zones []model.Zone
	if z, ok := afterZone(now, lastTaken, cfg); ok {
		zones = append(zones, z)
	}
	if z, ok := beforeZone(now, nextScheduled, cfg); ok {
		zones = append(zones, z)
	}
	return model.MostRestrictive(zones...)
}

// afterZone applies the post-dose thresholds. A dose in the future has no after-zone.
func afterZone(now time.Time, lastTaken *time.Time, cfg model.ZoneConfig) (model.Zone, bool) {
	if lastTaken == nil {
		return model.ZoneGreen, false
	}
	since := now.Sub(*lastTaken)
	switch {
	case since < 0:
		return model.ZoneGreen, false
	case since < hours(cfg.RedHoursAfter):
		return model.ZoneRed, true
	case since < hours(cfg.YellowHoursAfter):
		return model.ZoneYellow, true
	default:
		return model.ZoneGreen, false
	}
}

// beforeZone applies the pre-dose thresholds. An overdue dose is RED.
func beforeZone(now time.Time, nextScheduled *time.Time, cfg model.ZoneConfig) (model.Zone, bool) {
	if nextScheduled == nil {
		return model.ZoneGreen, false
	}
	until := nextScheduled.Sub(now)
	switch {
	case until < hours(cfg.YellowHoursBefore):
		return model.ZoneRed, true
	case until < hours(cfg.GreenHoursBefore):
		return model.ZoneYellow, true
	default:
		return model.ZoneGreen, false
	}
}

func hours(n int) time.Duration {
	return time.Duration(n) * time.Hour
}
