package calculator

import (
	"time"

	"Guanfancy/internal/model"
)

// HourSlot is one row of the daily timeline.
type HourSlot struct {
	Hour          int
	Zone          model.Zone
	Intake        *model.Intake // intake displayed at this hour, if any
	IntakeMinute  int
	IsCurrentHour bool
}

// Timeline is the 24-hour zone projection for one local day.
type Timeline struct {
	Date  time.Time // local midnight
	Hours [24]HourSlot
}

// ProjectHourlyZones computes the most restrictive zone for every hour of date.
// Distances are whole hours; previousDayLast carries post-dose restriction over midnight.
func ProjectHourlyZones(date time.Time, intakes []model.Intake, now time.Time, previousDayLast *model.Intake, cfg model.ZoneConfig, loc *time.Location) *Timeline {
	if loc == nil {
		loc = time.Local
	}
	y, m, d := date.In(loc).Date()
	tl := &Timeline{Date: time.Date(y, m, d, 0, 0, 0, 0, loc)}

	intakeHours := make([]int, 0, len(intakes))
	for i := range intakes {
		intakeHours = append(intakeHours, intakes[i].DisplayTime().In(loc).Hour())
	}

	prevHour := -1
	if previousDayLast != nil {
		prevHour = previousDayLast.DisplayTime().In(loc).Hour()
	}

	localNow := now.In(loc)
	ny, nm, nd := localNow.Date()
	isToday := ny == y && nm == m && nd == d

	for h := 0; h < 24; h++ {
		slot := HourSlot{
			Hour:          h,
			Zone:          zoneForHour(h, intakeHours, prevHour, cfg),
			IsCurrentHour: isToday && localNow.Hour() == h,
		}
		for i, ih := range intakeHours {
			if ih == h {
				slot.Intake = &intakes[i]
				slot.IntakeMinute = intakes[i].DisplayTime().In(loc).Minute()
				break
			}
		}
		tl.Hours[h] = slot
	}
	return tl
}

// zoneForHour combines all single-intake classifications; prevHour < 0 means none.
func zoneForHour(hour int, intakeHours []int, prevHour int, cfg model.ZoneConfig) model.Zone {
	zones := make([]model.Zone, 0, len(intakeHours)+1)
	for _, ih := range intakeHours {
		zones = append(zones, zoneRelativeToIntake(hour, ih, cfg))
	}
	if prevHour >= 0 {
		zones = append(zones, zoneAfterHours((24-prevHour)+hour, cfg))
	}
	return model.MostRestrictive(zones...)
}

func zoneRelativeToIntake(hour, intakeHour int, cfg model.ZoneConfig) model.Zone {
	switch {
	case hour == intakeHour:
		return model.ZoneRed
	case hour < intakeHour:
		before := intakeHour - hour
		switch {
		case before <= cfg.YellowHoursBefore:
			return model.ZoneRed
		case before <= cfg.GreenHoursBefore:
			return model.ZoneYellow
		default:
			return model.ZoneGreen
		}
	default:
		return zoneAfterHours(hour-intakeHour, cfg)
	}
}

func zoneAfterHours(after int, cfg model.ZoneConfig) model.Zone {
	switch {
	case after <= cfg.RedHoursAfter:
		return model.ZoneRed
	case after <= cfg.YellowHoursAfter:
		return model.ZoneYellow
	default:
		return model.ZoneGreen
	}
}
