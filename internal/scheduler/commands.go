package scheduler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"Guanfancy/internal/metrics"
	"Guanfancy/internal/model"
	"Guanfancy/internal/notifier"
	"Guanfancy/internal/policy"
	"Guanfancy/internal/service"
	"Guanfancy/internal/store"
)

const (
	dateLayout     = "2006-01-02"
	clockLayout    = "15:04"
	dateTimeLayout = "2006-01-02 15:04"
	replyLayout    = "Mon 02 Jan 15:04"

	historyLimit = 10
)

var knownCommands = map[string]bool{
	"/start": true, "/help": true, "/accept": true, "/zone": true, "/take": true,
	"/yes": true, "/no": true, "/feedback": true, "/today": true, "/day": true,
	"/manual": true, "/editmanual": true, "/delmanual": true, "/next": true,
	"/medication": true, "/default": true, "/delay": true, "/settings": true,
	"/zones": true, "/history": true, "/reset": true,
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return notifier.FormatHelp()
	}
	cmd := strings.ToLower(fields[0])
	if i := strings.IndexByte(cmd, '@'); i > 0 {
		cmd = cmd[:i] // /zone@SomeBot
	}
	args := fields[1:]

	label := cmd
	if !knownCommands[cmd] {
		label = "unknown"
	}
	s.Metrics.IncCommand(label)

	switch cmd {
	case "/start", "/help":
		if !s.accepted() {
			return notifier.FormatDisclaimer()
		}
		return notifier.FormatHelp()
	case "/accept":
		return s.cmdAccept()
	}

	if !s.accepted() {
		return notifier.FormatDisclaimer()
	}

	switch cmd {
	case "/zone":
		return s.cmdZone()
	case "/take":
		return s.cmdTake()
	case "/yes":
		return s.cmdConfirm()
	case "/no":
		return s.cmdDecline()
	case "/feedback":
		return s.cmdFeedback(args)
	case "/today":
		return s.cmdDay(s.Now())
	case "/day":
		if len(args) != 1 {
			return "Usage: /day YYYY-MM-DD"
		}
		date, err := time.ParseInLocation(dateLayout, args[0], s.Tracker.Location())
		if err != nil {
			return "Usage: /day YYYY-MM-DD"
		}
		return s.cmdDay(date)
	case "/manual":
		return s.cmdManual(args)
	case "/editmanual":
		return s.cmdEditManual(args)
	case "/delmanual":
		return s.cmdDeleteManual(args)
	case "/next":
		return s.cmdNext(args)
	case "/medication":
		return s.cmdMedication(args)
	case "/default":
		return s.cmdDefault(args)
	case "/delay":
		return s.cmdDelay(args)
	case "/settings":
		snap := s.Settings.Snapshot()
		return notifier.FormatSettings(snap.MedicationType, snap.Schedule, snap.WarningAccepted)
	case "/zones":
		med := s.Settings.MedicationType()
		return notifier.FormatZoneExplanation(med, med.ZoneConfig())
	case "/history":
		intakes, err := s.Tracker.History(s.Ctx, historyLimit)
		if err != nil {
			return s.errorReply(err)
		}
		return notifier.FormatHistory(intakes, s.Tracker.Location())
	case "/reset":
		return s.cmdReset()
	default:
		return notifier.FormatHelp()
	}
}

func (s *Scheduler) cmdAccept() string {
	if err := s.Settings.SetWarningAccepted(true); err != nil {
		return s.errorReply(err)
	}
	if err := s.Settings.SetOnboardingCompleted(true); err != nil {
		return s.errorReply(err)
	}
	next, _, err := s.Tracker.EnsureNextScheduled(s.Ctx, s.Now())
	if err != nil {
		return s.errorReply(err)
	}
	return fmt.Sprintf("✅ Disclaimer accepted.\nNext intake: %s\n\n%s", s.formatTime(next.ScheduledTime), notifier.FormatHelp())
}

func (s *Scheduler) cmdZone() string {
	st, err := s.Tracker.CurrentZone(s.Ctx, s.Now())
	if err != nil {
		return s.errorReply(err)
	}
	s.Metrics.SetZone(st.Zone)
	return notifier.FormatZoneStatus(st.Zone, st.Next, st.UntilNext, s.Tracker.Location())
}

func (s *Scheduler) cmdTake() string {
	now := s.Now()
	res, err := s.Tracker.TakeIntake(s.Ctx, now)
	if err != nil {
		return s.errorReply(err)
	}
	s.Metrics.IncIntakeEvent(metrics.EventTaken)
	if res.NeedsReschedulePrompt {
		return notifier.FormatReschedulePrompt(now, res.NextTime, s.Tracker.Location())
	}
	return fmt.Sprintf("✅ Intake recorded at %s.\nNext intake: %s",
		now.In(s.Tracker.Location()).Format(clockLayout), s.formatTime(res.NextTime))
}

func (s *Scheduler) cmdConfirm() string {
	next, err := s.Tracker.ConfirmReschedule(s.Ctx, s.Now())
	if err != nil {
		return s.errorReply(err)
	}
	s.Metrics.IncIntakeEvent(metrics.EventReschedule)
	cfg := s.Settings.ScheduleConfig()
	return fmt.Sprintf("🕗 Default time is now %02d:%02d.\nNext intake: %s", cfg.DefaultHour, cfg.DefaultMinute, s.formatTime(next))
}

func (s *Scheduler) cmdDecline() string {
	if err := s.Tracker.DeclineReschedule(); err != nil {
		return s.errorReply(err)
	}
	cfg := s.Settings.ScheduleConfig()
	return fmt.Sprintf("Keeping your default time %02d:%02d.", cfg.DefaultHour, cfg.DefaultMinute)
}

func (s *Scheduler) cmdFeedback(args []string) string {
	if len(args) != 1 {
		return "Usage: /feedback good|dizzy|too_dizzy"
	}
	fb, err := model.ParseFeedbackType(args[0])
	if err != nil {
		return "Usage: /feedback good|dizzy|too_dizzy"
	}
	now := s.Now()
	st, err := s.Tracker.CurrentZone(s.Ctx, now)
	if err != nil {
		return s.errorReply(err)
	}
	if st.LastTaken == nil {
		return "No dose to rate yet."
	}
	next, err := s.Tracker.SubmitFeedback(s.Ctx, st.LastTaken.ID, fb, now)
	if err != nil {
		return s.errorReply(err)
	}
	s.cancelPrompt(st.LastTaken.ID)
	s.Metrics.IncIntakeEvent(metrics.EventFeedback)
	return fmt.Sprintf("📝 Feedback saved.\nNext intake: %s", s.formatTime(next))
}

func (s *Scheduler) cmdDay(date time.Time) string {
	tl, err := s.Tracker.DayTimeline(s.Ctx, date, s.Now())
	if err != nil {
		return s.errorReply(err)
	}
	return notifier.FormatTimeline(tl)
}

func (s *Scheduler) cmdManual(args []string) string {
	if len(args) != 1 {
		return "Usage: /manual HH:MM"
	}
	at, err := s.onDay(s.Now(), args[0])
	if err != nil {
		return "Usage: /manual HH:MM"
	}
	id, err := s.Tracker.AddManualIntake(s.Ctx, at)
	if err != nil {
		return s.errorReply(err)
	}
	s.Metrics.IncIntakeEvent(metrics.EventManual)
	return fmt.Sprintf("💊 Manual intake #%d recorded at %s.", id, s.formatTime(at))
}

func (s *Scheduler) cmdEditManual(args []string) string {
	if len(args) != 2 {
		return "Usage: /editmanual ID HH:MM"
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return "Usage: /editmanual ID HH:MM"
	}
	in, err := s.Tracker.IntakeByID(s.Ctx, id)
	if err != nil {
		return s.errorReply(err)
	}
	at, err := s.onDay(in.DisplayTime(), args[1])
	if err != nil {
		return "Usage: /editmanual ID HH:MM"
	}
	if err := s.Tracker.EditManualIntake(s.Ctx, id, at); err != nil {
		return s.errorReply(err)
	}
	return fmt.Sprintf("✏️ Manual intake #%d moved to %s.", id, s.formatTime(at))
}

func (s *Scheduler) cmdDeleteManual(args []string) string {
	if len(args) != 1 {
		return "Usage: /delmanual ID"
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return "Usage: /delmanual ID"
	}
	if err := s.Tracker.DeleteManualIntake(s.Ctx, id); err != nil {
		return s.errorReply(err)
	}
	return fmt.Sprintf("🗑 Manual intake #%d deleted.", id)
}

func (s *Scheduler) cmdNext(args []string) string {
	if len(args) != 2 {
		return "Usage: /next YYYY-MM-DD HH:MM"
	}
	at, err := time.ParseInLocation(dateTimeLayout, args[0]+" "+args[1], s.Tracker.Location())
	if err != nil {
		return "Usage: /next YYYY-MM-DD HH:MM"
	}
	if err := s.Tracker.RescheduleNext(s.Ctx, at); err != nil {
		return s.errorReply(err)
	}
	s.Metrics.IncIntakeEvent(metrics.EventReschedule)
	return fmt.Sprintf("🗓 Next intake moved to %s.", s.formatTime(at))
}

func (s *Scheduler) cmdMedication(args []string) string {
	if len(args) != 1 {
		return "Usage: /medication intuniv|tenex"
	}
	med := model.MedicationType(strings.ToUpper(args[0]))
	if med != model.MedicationIntuniv && med != model.MedicationTenex {
		return "Usage: /medication intuniv|tenex"
	}
	if err := s.Settings.SetMedicationType(med); err != nil {
		return s.errorReply(err)
	}
	return notifier.FormatZoneExplanation(med, med.ZoneConfig())
}

func (s *Scheduler) cmdDefault(args []string) string {
	if len(args) != 1 {
		return "Usage: /default HH:MM"
	}
	h, m, err := parseClock(args[0])
	if err != nil {
		return "Usage: /default HH:MM"
	}
	cfg := s.Settings.ScheduleConfig()
	cfg.DefaultHour, cfg.DefaultMinute = h, m
	if err := s.Settings.UpdateScheduleConfig(cfg); err != nil {
		return s.errorReply(err)
	}
	return fmt.Sprintf("🕗 Default time is now %02d:%02d.", h, m)
}

func (s *Scheduler) cmdDelay(args []string) string {
	const usage = "Usage: /delay good|dizzy|too_dizzy HOURS"
	if len(args) != 2 {
		return usage
	}
	fb, err := model.ParseFeedbackType(args[0])
	if err != nil {
		return usage
	}
	hours, err := strconv.Atoi(args[1])
	if err != nil {
		return usage
	}
	if err := s.Settings.UpdateScheduleConfig(s.Settings.ScheduleConfig().WithDelay(fb, hours)); err != nil {
		return s.errorReply(err)
	}
	return fmt.Sprintf("⏱ %s feedback now delays the next dose by %dh.", strings.ToLower(fb.String()), hours)
}

func (s *Scheduler) cmdReset() string {
	if err := s.Tracker.Reset(s.Ctx); err != nil {
		return s.errorReply(err)
	}
	s.resetState()
	return "🗑 All data deleted.\n\n" + notifier.FormatDisclaimer()
}

// onDay returns the local date of day at clock HH:MM.
func (s *Scheduler) onDay(day time.Time, clock string) (time.Time, error) {
	h, m, err := parseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	loc := s.Tracker.Location()
	y, mo, d := day.In(loc).Date()
	return time.Date(y, mo, d, h, m, 0, 0, loc), nil
}

func parseClock(s string) (int, int, error) {
	t, err := time.Parse(clockLayout, s)
	if err != nil {
		return 0, 0, err
	}
	return t.Hour(), t.Minute(), nil
}

func (s *Scheduler) formatTime(t time.Time) string {
	return t.In(s.Tracker.Location()).Format(replyLayout)
}

func (s *Scheduler) errorReply(err error) string {
	switch {
	case errors.Is(err, service.ErrNoScheduledIntake):
		return "❌ No intake is scheduled."
	case errors.Is(err, service.ErrNoPendingReschedule):
		return "❌ There is no reschedule question to answer."
	case errors.Is(err, service.ErrNotManual):
		return "❌ Only manual intakes can be changed."
	case errors.Is(err, service.ErrFeedbackAlreadyGiven):
		return "❌ Feedback for this dose was already recorded."
	case errors.Is(err, store.ErrNotFound):
		return "❌ No intake with that id."
	case errors.Is(err, policy.ErrInvalidSchedule):
		return "❌ " + err.Error()
	}
	log.Error().Err(err).Msg("handle command")
	return fmt.Sprintf("❌ Something went wrong: %v", err)
}
