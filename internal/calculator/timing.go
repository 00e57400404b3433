package calculator

import (
	"time"

	"Guanfancy/internal/model"
)

// EvaluateDefaultTimeDrift decides whether a dose taken at now is close enough to
// today's default time to simply advance to the next default occurrence.
// The window [default-window, default+window] is inclusive at both ends.
func EvaluateDefaultTimeDrift(now time.Time, defaultHour, defaultMinute int, window time.Duration, loc *time.Location) model.TimingResult {
	today := todayAt(now, defaultHour, defaultMinute, loc)
	start := today.Add(-window)
	end := today.Add(window)

	if now.Before(start) || now.After(end) {
		return model.TimingResult{NeedsReschedulePrompt: true}
	}

	next := today
	if !now.Before(today) {
		next = tomorrowAt(today, defaultHour, defaultMinute, loc)
	}
	return model.TimingResult{NextIntakeTime: &next}
}

// NextDefaultOccurrence returns today's default time if it is still ahead of now,
// otherwise tomorrow's.
func NextDefaultOccurrence(now time.Time, defaultHour, defaultMinute int, loc *time.Location) time.Time {
	today := todayAt(now, defaultHour, defaultMinute, loc)
	if now.Before(today) {
		return today
	}
	return tomorrowAt(today, defaultHour, defaultMinute, loc)
}

// ApplyFeedbackDelay shifts base by a flat number of hours.
func ApplyFeedbackDelay(base time.Time, delayHours int) time.Time {
	return base.Add(hours(delayHours))
}

func todayAt(now time.Time, hour, minute int, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	y, m, d := now.In(loc).Date()
	return time.Date(y, m, d, hour, minute, 0, 0, loc)
}

// tomorrowAt keeps the wall-clock time on the next calendar day.
func tomorrowAt(today time.Time, hour, minute int, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	y, m, d := today.In(loc).Date()
	return time.Date(y, m, d+1, hour, minute, 0, 0, loc)
}
