package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"Guanfancy/internal/metrics"
	"Guanfancy/internal/model"
	"Guanfancy/internal/notifier"
	"Guanfancy/internal/service"
	"Guanfancy/internal/settings"
)

// Sender delivers chat messages.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Scheduler manages cron tasks and chat commands.
type Scheduler struct {
	Cron     *cron.Cron
	Tracker  *service.Tracker
	Settings *settings.Manager
	Notifier Sender
	Metrics  metrics.Recorder
	Ctx      context.Context
	// Now is the clock; replaced in tests.
	Now func() time.Time

	mu       sync.Mutex
	prompts  map[int64]time.Time // intake id -> when to ask for feedback
	reminded int64               // last intake the due reminder was sent for
	lastZone *model.Zone
}

// NewScheduler creates a new Scheduler and registers itself as the tracker's reminder.
func NewScheduler(ctx context.Context, tr *service.Tracker, sm *settings.Manager, sender Sender, rec metrics.Recorder) *Scheduler {
	if rec == nil {
		rec = metrics.Noop{}
	}
	s := &Scheduler{
		Cron:     cron.New(cron.WithSeconds(), cron.WithLocation(tr.Location())),
		Tracker:  tr,
		Settings: sm,
		Notifier: sender,
		Metrics:  rec,
		Ctx:      ctx,
		Now:      time.Now,
		prompts:  make(map[int64]time.Time),
	}
	tr.SetReminder(s)
	return s
}

// RegisterAll registers the reminder sweep and the morning summary.
func (s *Scheduler) RegisterAll(sweepCron, dailyCron string) error {
	if _, err := s.Cron.AddFunc(sweepCron, s.sweep); err != nil {
		return fmt.Errorf("register reminder sweep: %w", err)
	}
	if _, err := s.Cron.AddFunc(dailyCron, s.dailySummary); err != nil {
		return fmt.Errorf("register daily summary: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Info().Msg("scheduler started")
}

// Stop stops the cron scheduler gracefully.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Info().Msg("scheduler stopped")
}

// ScheduleFeedbackPrompt arms a one-shot feedback question for intakeID.
func (s *Scheduler) ScheduleFeedbackPrompt(intakeID int64, after time.Duration) {
	due := s.Now().Add(after)
	s.mu.Lock()
	s.prompts[intakeID] = due
	s.mu.Unlock()
	log.Info().Int64("intake", intakeID).Time("due", due).Msg("feedback prompt scheduled")
}

func (s *Scheduler) cancelPrompt(intakeID int64) {
	s.mu.Lock()
	delete(s.prompts, intakeID)
	s.mu.Unlock()
}

// duePrompts removes and returns the prompts due at now, oldest intake first.
func (s *Scheduler) duePrompts(now time.Time) []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []int64
	for id, due := range s.prompts {
		if !now.Before(due) {
			ids = append(ids, id)
			delete(s.prompts, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (s *Scheduler) accepted() bool {
	return s.Settings.Snapshot().WarningAccepted
}

// Sweep runs one reminder pass immediately.
func (s *Scheduler) Sweep() {
	s.sweep()
}

func (s *Scheduler) sweep() {
	if !s.accepted() {
		return
	}
	now := s.Now()
	st, err := s.Tracker.CurrentZone(s.Ctx, now)
	if err != nil {
		log.Error().Err(err).Msg("sweep: current zone")
		return
	}
	s.Metrics.SetZone(st.Zone)

	s.mu.Lock()
	prev := s.lastZone
	zone := st.Zone
	s.lastZone = &zone
	dueIntake := st.Next != nil && !now.Before(st.Next.ScheduledTime) && s.reminded != st.Next.ID
	if dueIntake {
		s.reminded = st.Next.ID
	}
	s.mu.Unlock()

	if prev != nil && *prev != st.Zone {
		s.send(notifier.FormatZoneChange(*prev, st.Zone), metrics.ReminderZoneChange)
	}
	if dueIntake {
		s.send(notifier.FormatIntakeReminder(st.Next, s.Tracker.Location()), metrics.ReminderIntake)
	}
	for _, id := range s.duePrompts(now) {
		s.sendFeedbackPrompt(id)
	}
}

func (s *Scheduler) sendFeedbackPrompt(intakeID int64) {
	in, err := s.Tracker.IntakeByID(s.Ctx, intakeID)
	if err != nil {
		log.Warn().Err(err).Int64("intake", intakeID).Msg("drop feedback prompt")
		return
	}
	if in.Feedback != nil {
		return
	}
	previews := make(map[model.FeedbackType]time.Time, len(model.FeedbackTypes))
	for _, fb := range model.FeedbackTypes {
		at, err := s.Tracker.PreviewFeedback(s.Ctx, fb)
		if err != nil {
			break
		}
		previews[fb] = at
	}
	s.send(notifier.FormatFeedbackPrompt(intakeID, previews, s.Tracker.Location()), metrics.ReminderFeedback)
}

func (s *Scheduler) dailySummary() {
	if !s.accepted() {
		return
	}
	log.Info().Msg("running daily summary")
	now := s.Now()
	tl, err := s.Tracker.DayTimeline(s.Ctx, now, now)
	if err != nil {
		log.Error().Err(err).Msg("daily summary: timeline")
		return
	}
	s.send(notifier.FormatTimeline(tl), metrics.ReminderDaily)
}

func (s *Scheduler) send(text, kind string) {
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		log.Error().Err(err).Str("kind", kind).Msg("send notification")
		return
	}
	s.Metrics.IncReminder(kind)
}

// resetState forgets reminders after all data was wiped.
func (s *Scheduler) resetState() {
	s.mu.Lock()
	s.prompts = make(map[int64]time.Time)
	s.reminded = 0
	s.lastZone = nil
	s.mu.Unlock()
}
