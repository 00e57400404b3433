package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"Guanfancy/internal/calculator"
	"Guanfancy/internal/model"
	"Guanfancy/internal/policy"
)

var (
	ErrNoScheduledIntake    = errors.New("no scheduled intake")
	ErrNotManual            = errors.New("only manual intakes can be changed")
	ErrNoPendingReschedule  = errors.New("no reschedule awaiting confirmation")
	ErrFeedbackAlreadyGiven = errors.New("feedback already recorded for this intake")
)

// Reminder schedules follow-up prompts. Implemented by the scheduler.
type Reminder interface {
	ScheduleFeedbackPrompt(intakeID int64, after time.Duration)
}

// Settings is the subset of the settings manager the tracker depends on.
type Settings interface {
	ZoneConfig() model.ZoneConfig
	ScheduleConfig() policy.ScheduleConfig
	UpdateScheduleConfig(cfg policy.ScheduleConfig) error
	SetCurrentIntakeTime(t time.Time) error
	ClearAll() error
}

// Store is the subset of store.IntakeStore the tracker depends on.
type Store interface {
	All(ctx context.Context) ([]model.Intake, error)
	Between(ctx context.Context, start, end time.Time) ([]model.Intake, error)
	GetByID(ctx context.Context, id int64) (*model.Intake, error)
	NextScheduled(ctx context.Context) (*model.Intake, error)
	LastCompleted(ctx context.Context) (*model.Intake, error)
	Insert(ctx context.Context, intake *model.Intake) (int64, error)
	Update(ctx context.Context, intake *model.Intake) error
	MarkTaken(ctx context.Context, id int64, actual time.Time) error
	UpdateScheduledTime(ctx context.Context, id int64, scheduled time.Time) error
	SubmitFeedback(ctx context.Context, id int64, feedback model.FeedbackType, at time.Time, nextScheduled *time.Time) error
	Delete(ctx context.Context, id int64) error
	DeleteAll(ctx context.Context) error
}

// Status is what the dashboard shows.
type Status struct {
	Zone      model.Zone
	LastTaken *model.Intake
	Next      *model.Intake
	// UntilNext is negative when the next intake is overdue, zero without one.
	UntilNext time.Duration
}

// TakeResult describes the outcome of taking the scheduled dose.
type TakeResult struct {
	TakenID               int64
	NextID                int64
	NextTime              time.Time
	NeedsReschedulePrompt bool
}

type pendingReschedule struct {
	takenID int64
	takenAt time.Time
	nextID  int64
}

// Tracker orchestrates intakes, settings and reminders around the zone calculator.
// Every operation takes the current time from the caller.
type Tracker struct {
	store    Store
	settings Settings
	reminder Reminder
	loc      *time.Location

	mu      sync.Mutex
	pending *pendingReschedule
}

func NewTracker(store Store, settings Settings, reminder Reminder, loc *time.Location) *Tracker {
	if loc == nil {
		loc = time.Local
	}
	return &Tracker{store: store, settings: settings, reminder: reminder, loc: loc}
}

// SetReminder attaches the reminder after construction, since the scheduler
// itself depends on the tracker.
func (t *Tracker) SetReminder(r Reminder) {
	t.mu.Lock()
	t.reminder = r
	t.mu.Unlock()
}

func (t *Tracker) Location() *time.Location { return t.loc }

// CurrentZone classifies now against the last scheduled dose and the next one.
func (t *Tracker) CurrentZone(ctx context.Context, now time.Time) (Status, error) {
	last, err := t.store.LastCompleted(ctx)
	if err != nil {
		return Status{}, fmt.Errorf("load last intake: %w", err)
	}
	next, err := t.store.NextScheduled(ctx)
	if err != nil {
		return Status{}, fmt.Errorf("load next intake: %w", err)
	}

	var lastTaken, nextAt *time.Time
	if last != nil {
		lastTaken = last.ActualTime
	}
	st := Status{LastTaken: last, Next: next}
	if next != nil {
		nextAt = &next.ScheduledTime
		st.UntilNext = next.ScheduledTime.Sub(now)
	}
	st.Zone = calculator.CalculateZone(now, lastTaken, nextAt, t.settings.ZoneConfig())
	return st, nil
}

// TakeIntake marks the next scheduled intake as taken at now and schedules the following one.
// When now is outside the reschedule window the following intake keeps the current default
// time and the caller must ask whether to move the default to now.
func (t *Tracker) TakeIntake(ctx context.Context, now time.Time) (TakeResult, error) {
	next, err := t.store.NextScheduled(ctx)
	if err != nil {
		return TakeResult{}, fmt.Errorf("load next intake: %w", err)
	}
	if next == nil {
		return TakeResult{}, ErrNoScheduledIntake
	}
	if err := t.store.MarkTaken(ctx, next.ID, now); err != nil {
		return TakeResult{}, fmt.Errorf("mark intake %d taken: %w", next.ID, err)
	}
	if err := t.settings.SetCurrentIntakeTime(now); err != nil {
		log.Warn().Err(err).Msg("save current intake time")
	}

	cfg := t.settings.ScheduleConfig()
	window := time.Duration(cfg.RescheduleWindowHours) * time.Hour
	drift := calculator.EvaluateDefaultTimeDrift(now, cfg.DefaultHour, cfg.DefaultMinute, window, t.loc)

	res := TakeResult{TakenID: next.ID, NeedsReschedulePrompt: drift.NeedsReschedulePrompt}
	if drift.NeedsReschedulePrompt {
		res.NextTime = calculator.NextDefaultOccurrence(now, cfg.DefaultHour, cfg.DefaultMinute, t.loc)
	} else {
		res.NextTime = *drift.NextIntakeTime
	}
	// taken early: today's default slot is the one just consumed
	if !res.NextTime.After(next.ScheduledTime) {
		res.NextTime = calculator.NextDefaultOccurrence(next.ScheduledTime, cfg.DefaultHour, cfg.DefaultMinute, t.loc)
	}

	res.NextID, err = t.store.Insert(ctx, &model.Intake{ScheduledTime: res.NextTime, Source: model.SourceScheduled})
	if err != nil {
		return TakeResult{}, fmt.Errorf("schedule next intake: %w", err)
	}

	t.mu.Lock()
	if res.NeedsReschedulePrompt {
		t.pending = &pendingReschedule{takenID: next.ID, takenAt: now, nextID: res.NextID}
	} else {
		t.pending = nil
	}
	t.mu.Unlock()

	if !res.NeedsReschedulePrompt {
		t.scheduleFeedback(next.ID, cfg)
	}

	log.Info().
		Int64("taken", next.ID).
		Time("next", res.NextTime).
		Bool("prompt", res.NeedsReschedulePrompt).
		Msg("intake taken")
	return res, nil
}

// PendingReschedule reports whether a reschedule confirmation is outstanding.
func (t *Tracker) PendingReschedule() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pending != nil
}

// ConfirmReschedule moves the default time-of-day to when the pending dose was taken and
// reschedules the next intake to the new default. On failure the question stays open.
func (t *Tracker) ConfirmReschedule(ctx context.Context, now time.Time) (time.Time, error) {
	p := t.takePending()
	if p == nil {
		return time.Time{}, ErrNoPendingReschedule
	}

	local := p.takenAt.In(t.loc)
	cfg := t.settings.ScheduleConfig()
	cfg.DefaultHour, cfg.DefaultMinute = local.Hour(), local.Minute()
	if err := t.settings.UpdateScheduleConfig(cfg); err != nil {
		t.restorePending(p)
		return time.Time{}, fmt.Errorf("update default time: %w", err)
	}

	nextAt := calculator.NextDefaultOccurrence(now, cfg.DefaultHour, cfg.DefaultMinute, t.loc)
	if err := t.store.UpdateScheduledTime(ctx, p.nextID, nextAt); err != nil {
		t.restorePending(p)
		return time.Time{}, fmt.Errorf("reschedule intake %d: %w", p.nextID, err)
	}
	t.scheduleFeedback(p.takenID, cfg)

	log.Info().Int("hour", cfg.DefaultHour).Int("minute", cfg.DefaultMinute).Msg("default intake time changed")
	return nextAt, nil
}

// DeclineReschedule keeps the default time and only arms the feedback prompt.
func (t *Tracker) DeclineReschedule() error {
	p := t.takePending()
	if p == nil {
		return ErrNoPendingReschedule
	}
	t.scheduleFeedback(p.takenID, t.settings.ScheduleConfig())
	return nil
}

func (t *Tracker) takePending() *pendingReschedule {
	t.mu.Lock()
	defer t.mu.Unlock()
	p := t.pending
	t.pending = nil
	return p
}

// restorePending reopens p unless a newer dose already replaced it.
func (t *Tracker) restorePending(p *pendingReschedule) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pending == nil {
		t.pending = p
	}
}

func (t *Tracker) scheduleFeedback(intakeID int64, cfg policy.ScheduleConfig) {
	t.mu.Lock()
	r := t.reminder
	t.mu.Unlock()
	if r == nil {
		return
	}
	r.ScheduleFeedbackPrompt(intakeID, time.Duration(cfg.FeedbackPromptHours)*time.Hour)
}

// SubmitFeedback records how the dose felt and shifts the next intake by the matching delay.
// The feedback is stored first so a failed write never leaves the delay applied.
func (t *Tracker) SubmitFeedback(ctx context.Context, intakeID int64, feedback model.FeedbackType, now time.Time) (time.Time, error) {
	intake, err := t.store.GetByID(ctx, intakeID)
	if err != nil {
		return time.Time{}, err
	}
	if intake.Feedback != nil {
		return time.Time{}, ErrFeedbackAlreadyGiven
	}
	next, err := t.store.NextScheduled(ctx)
	if err != nil {
		return time.Time{}, fmt.Errorf("load next intake: %w", err)
	}
	if next == nil {
		return time.Time{}, ErrNoScheduledIntake
	}

	delay := policy.DelayHoursFor(feedback, t.settings.ScheduleConfig())
	newTime := calculator.ApplyFeedbackDelay(next.ScheduledTime, delay)
	if err := t.store.SubmitFeedback(ctx, intakeID, feedback, now, &newTime); err != nil {
		return time.Time{}, fmt.Errorf("record feedback: %w", err)
	}
	if err := t.store.UpdateScheduledTime(ctx, next.ID, newTime); err != nil {
		return time.Time{}, fmt.Errorf("reschedule intake %d: %w", next.ID, err)
	}

	log.Info().Int64("intake", intakeID).Str("feedback", feedback.String()).Int("delay_hours", delay).Msg("feedback recorded")
	return newTime, nil
}

// PreviewFeedback returns where the next intake would move for feedback, without writing.
func (t *Tracker) PreviewFeedback(ctx context.Context, feedback model.FeedbackType) (time.Time, error) {
	next, err := t.store.NextScheduled(ctx)
	if err != nil {
		return time.Time{}, fmt.Errorf("load next intake: %w", err)
	}
	if next == nil {
		return time.Time{}, ErrNoScheduledIntake
	}
	return calculator.ApplyFeedbackDelay(next.ScheduledTime, policy.DelayHoursFor(feedback, t.settings.ScheduleConfig())), nil
}

// RescheduleNext moves the next scheduled intake to newTime.
func (t *Tracker) RescheduleNext(ctx context.Context, newTime time.Time) error {
	next, err := t.store.NextScheduled(ctx)
	if err != nil {
		return fmt.Errorf("load next intake: %w", err)
	}
	if next == nil {
		return ErrNoScheduledIntake
	}
	return t.store.UpdateScheduledTime(ctx, next.ID, newTime)
}

// EnsureNextScheduled creates the first intake at the next default occurrence when none is pending.
func (t *Tracker) EnsureNextScheduled(ctx context.Context, now time.Time) (*model.Intake, bool, error) {
	next, err := t.store.NextScheduled(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("load next intake: %w", err)
	}
	if next != nil {
		return next, false, nil
	}

	cfg := t.settings.ScheduleConfig()
	in := &model.Intake{
		ScheduledTime: calculator.NextDefaultOccurrence(now, cfg.DefaultHour, cfg.DefaultMinute, t.loc),
		Source:        model.SourceScheduled,
	}
	in.ID, err = t.store.Insert(ctx, in)
	if err != nil {
		return nil, false, fmt.Errorf("schedule first intake: %w", err)
	}
	log.Info().Int64("intake", in.ID).Time("at", in.ScheduledTime).Msg("scheduled first intake")
	return in, true, nil
}

// AddManualIntake records a dose taken outside the schedule. It shows on the timeline
// but never drives the current zone.
func (t *Tracker) AddManualIntake(ctx context.Context, at time.Time) (int64, error) {
	return t.store.Insert(ctx, &model.Intake{
		ScheduledTime: at,
		ActualTime:    &at,
		IsCompleted:   true,
		Source:        model.SourceManual,
	})
}

func (t *Tracker) EditManualIntake(ctx context.Context, id int64, at time.Time) error {
	in, err := t.manual(ctx, id)
	if err != nil {
		return err
	}
	in.ScheduledTime = at
	in.ActualTime = &at
	return t.store.Update(ctx, in)
}

func (t *Tracker) DeleteManualIntake(ctx context.Context, id int64) error {
	if _, err := t.manual(ctx, id); err != nil {
		return err
	}
	return t.store.Delete(ctx, id)
}

func (t *Tracker) manual(ctx context.Context, id int64) (*model.Intake, error) {
	in, err := t.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !in.IsManual() {
		return nil, ErrNotManual
	}
	return in, nil
}

// DayTimeline projects hourly zones for the local day containing date.
func (t *Tracker) DayTimeline(ctx context.Context, date, now time.Time) (*calculator.Timeline, error) {
	y, m, d := date.In(t.loc).Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, t.loc)
	end := time.Date(y, m, d+1, 0, 0, 0, 0, t.loc)
	prevStart := time.Date(y, m, d-1, 0, 0, 0, 0, t.loc)

	// Intakes are stored by scheduled time but displayed at their actual time,
	// so load a day of slack on both sides.
	candidates, err := t.store.Between(ctx, prevStart.Add(-24*time.Hour), end.Add(24*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("load intakes: %w", err)
	}

	var day []model.Intake
	var prev *model.Intake
	for i := range candidates {
		at := candidates[i].DisplayTime()
		switch {
		case !at.Before(start) && at.Before(end):
			day = append(day, candidates[i])
		case !at.Before(prevStart) && at.Before(start):
			if prev == nil || at.After(prev.DisplayTime()) {
				prev = &candidates[i]
			}
		}
	}
	return calculator.ProjectHourlyZones(start, day, now, prev, t.settings.ZoneConfig(), t.loc), nil
}

// History returns up to limit intakes, newest scheduled time first.
func (t *Tracker) History(ctx context.Context, limit int) ([]model.Intake, error) {
	all, err := t.store.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("load intakes: %w", err)
	}
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// IntakeByID returns a stored intake.
func (t *Tracker) IntakeByID(ctx context.Context, id int64) (*model.Intake, error) {
	return t.store.GetByID(ctx, id)
}

// Reset wipes every intake and restores default settings.
func (t *Tracker) Reset(ctx context.Context) error {
	if err := t.store.DeleteAll(ctx); err != nil {
		return fmt.Errorf("delete intakes: %w", err)
	}
	if err := t.settings.ClearAll(); err != nil {
		return fmt.Errorf("clear settings: %w", err)
	}
	t.mu.Lock()
	t.pending = nil
	t.mu.Unlock()
	log.Info().Msg("reset all data")
	return nil
}
