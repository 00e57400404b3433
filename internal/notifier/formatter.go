package notifier

import (
	"fmt"
	"strings"
	"time"

	"Guanfancy/internal/calculator"
	"Guanfancy/internal/model"
	"Guanfancy/internal/policy"
)

const (
	timeLayout     = "15:04"
	dateTimeLayout = "Mon 02 Jan 15:04"
)

func zoneEmoji(z model.Zone) string {
	switch z {
	case model.ZoneRed:
		return "🔴"
	case model.ZoneYellow:
		return "🟡"
	default:
		return "🟢"
	}
}

func zoneAdvice(z model.Zone) string {
	switch z {
	case model.ZoneRed:
		return "Avoid eating"
	case model.ZoneYellow:
		return "Caution, avoid large meals"
	default:
		return "Eating is fine"
	}
}

// FormatZoneStatus formats the dashboard: current zone and the next dose.
func FormatZoneStatus(zone model.Zone, next *model.Intake, untilNext time.Duration, loc *time.Location) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s <b>%s zone</b>\n", zoneEmoji(zone), zone))
	b.WriteString(zoneAdvice(zone) + "\n\n")

	switch {
	case next == nil:
		b.WriteString("No intake scheduled. Send /take after your dose or /next to plan one.")
	case untilNext < 0:
		b.WriteString(fmt.Sprintf("💊 Intake overdue since %s (%s ago)",
			next.ScheduledTime.In(loc).Format(dateTimeLayout), formatDuration(-untilNext)))
	default:
		b.WriteString(fmt.Sprintf("💊 Next intake: %s (in %s)",
			next.ScheduledTime.In(loc).Format(dateTimeLayout), formatDuration(untilNext)))
	}
	return b.String()
}

// FormatZoneChange announces a transition between zones.
func FormatZoneChange(from, to model.Zone) string {
	return fmt.Sprintf("%s → %s <b>%s zone</b>\n%s", zoneEmoji(from), zoneEmoji(to), to, zoneAdvice(to))
}

// FormatTimeline renders one line per hour of the projection.
func FormatTimeline(tl *calculator.Timeline) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📅 <b>Food zones</b> | %s\n\n", tl.Date.Format("Mon 2006-01-02")))
	for _, slot := range tl.Hours {
		line := fmt.Sprintf("%s %02d:00", zoneEmoji(slot.Zone), slot.Hour)
		if slot.Intake != nil {
			marker := "scheduled"
			if slot.Intake.IsManual() {
				marker = "manual"
			} else if slot.Intake.IsCompleted {
				marker = "taken"
			}
			line += fmt.Sprintf("  💊 %02d:%02d %s", slot.Hour, slot.IntakeMinute, marker)
		}
		if slot.IsCurrentHour {
			line = "<b>" + line + "  ◀ now</b>"
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

// FormatHistory lists intakes as given, newest first.
func FormatHistory(intakes []model.Intake, loc *time.Location) string {
	if len(intakes) == 0 {
		return "No intakes recorded yet."
	}
	var b strings.Builder
	b.WriteString("🗂 <b>Intake history</b>\n\n")
	for _, in := range intakes {
		status := "scheduled"
		if in.IsManual() {
			status = "manual"
		} else if in.IsCompleted {
			status = "taken"
		}
		line := fmt.Sprintf("#%d %s %s", in.ID, in.DisplayTime().In(loc).Format(dateTimeLayout), status)
		if in.Feedback != nil {
			line += " | " + strings.ToLower(in.Feedback.String())
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

// FormatIntakeReminder is sent when the scheduled dose is due.
func FormatIntakeReminder(in *model.Intake, loc *time.Location) string {
	return fmt.Sprintf("⏰ <b>Time for your medication</b>\nScheduled for %s. Send /take once you have taken it.",
		in.ScheduledTime.In(loc).Format(timeLayout))
}

// FormatReschedulePrompt asks whether to move the default time to when the dose was taken.
func FormatReschedulePrompt(takenAt, next time.Time, loc *time.Location) string {
	return fmt.Sprintf("You took this dose at %s, away from your usual time.\n"+
		"Next intake stays at %s.\n\n"+
		"/yes to make %s your new daily time, /no to keep it.",
		takenAt.In(loc).Format(timeLayout), next.In(loc).Format(dateTimeLayout), takenAt.In(loc).Format(timeLayout))
}

// FormatFeedbackPrompt asks how the last dose felt, showing where each answer moves the next dose.
func FormatFeedbackPrompt(intakeID int64, previews map[model.FeedbackType]time.Time, loc *time.Location) string {
	var b strings.Builder
	b.WriteString("🩺 <b>How did you feel after your last medication intake?</b>\n\n")
	for _, fb := range model.FeedbackTypes {
		cmd := "/feedback " + strings.ToLower(fb.String())
		if at, ok := previews[fb]; ok {
			b.WriteString(fmt.Sprintf("%s → next dose %s\n", cmd, at.In(loc).Format(dateTimeLayout)))
		} else {
			b.WriteString(cmd + "\n")
		}
	}
	b.WriteString(fmt.Sprintf("\n(intake #%d)", intakeID))
	return b.String()
}

// FormatSettings lists the active medication and schedule.
func FormatSettings(med model.MedicationType, sched policy.ScheduleConfig, warningAccepted bool) string {
	var b strings.Builder
	b.WriteString("⚙️ <b>Settings</b>\n\n")
	b.WriteString(fmt.Sprintf("Medication: %s\n", med.DisplayName()))
	b.WriteString(fmt.Sprintf("Default time: %02d:%02d\n", sched.DefaultHour, sched.DefaultMinute))
	b.WriteString(fmt.Sprintf("Reschedule window: ±%dh\n", sched.RescheduleWindowHours))
	b.WriteString(fmt.Sprintf("Feedback prompt after: %dh\n", sched.FeedbackPromptHours))
	b.WriteString(fmt.Sprintf("Delays: good +%dh | dizzy +%dh | too dizzy +%dh\n",
		sched.FeedbackDelays.Good, sched.FeedbackDelays.Dizzy, sched.FeedbackDelays.TooDizzy))
	b.WriteString(fmt.Sprintf("Disclaimer accepted: %v\n", warningAccepted))
	return b.String()
}

// FormatZoneExplanation describes the zone thresholds of cfg.
func FormatZoneExplanation(med model.MedicationType, cfg model.ZoneConfig) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("<b>%s</b>\n%s\nHalf-life: ~%.0f hours\n\n", med.DisplayName(), med.Description(), model.HalfLifeHours))
	b.WriteString("Guanfacine interacts with food. Avoid eating close to intake time:\n")
	b.WriteString(fmt.Sprintf("🟢 More than %dh before or %dh+ after intake\n", cfg.GreenHoursBefore, cfg.YellowHoursAfter))
	b.WriteString(fmt.Sprintf("🟡 %d-%dh before or %d-%dh after intake\n",
		cfg.YellowHoursBefore, cfg.GreenHoursBefore, cfg.RedHoursAfter, cfg.YellowHoursAfter))
	b.WriteString(fmt.Sprintf("🔴 Less than %dh before or %dh after intake\n", cfg.YellowHoursBefore, cfg.RedHoursAfter))
	return b.String()
}

// FormatDisclaimer is shown until the user sends /accept.
func FormatDisclaimer() string {
	return "⚠️ <b>Disclaimer</b>\n" +
		"This bot is NOT a medical device and should NOT be used as a substitute " +
		"for professional medical advice, diagnosis, or treatment.\n" +
		"Always consult with your healthcare provider regarding your medication.\n\n" +
		"Send /accept to confirm you have read and understood this disclaimer."
}

// FormatHelp lists the supported commands.
func FormatHelp() string {
	return "📋 <b>Commands</b>\n\n" +
		"/zone - current food zone\n" +
		"/take - record the scheduled dose\n" +
		"/yes, /no - answer a reschedule question\n" +
		"/feedback good|dizzy|too_dizzy - rate the last dose\n" +
		"/today, /day YYYY-MM-DD - hourly zones\n" +
		"/manual HH:MM - record an extra dose today\n" +
		"/editmanual ID HH:MM, /delmanual ID - change a manual dose\n" +
		"/history - recent intakes\n" +
		"/next YYYY-MM-DD HH:MM - move the next dose\n" +
		"/medication intuniv|tenex - choose the medication\n" +
		"/default HH:MM - daily intake time\n" +
		"/delay good|dizzy|too_dizzy N - feedback delay in hours\n" +
		"/settings, /zones - show configuration\n" +
		"/reset - delete all data"
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Minute)
	h := int(d / time.Hour)
	m := int((d % time.Hour) / time.Minute)
	if h == 0 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%dh%02dm", h, m)
}
