package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"Guanfancy/internal/model"
)

// MemoryStore keeps intakes in process memory. Used when SQLite is not configured.
type MemoryStore struct {
	mu      sync.Mutex
	intakes map[int64]model.Intake
	nextID  int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{intakes: make(map[int64]model.Intake), nextID: 1}
}

func (m *MemoryStore) sorted(keep func(*model.Intake) bool, less func(a, b *model.Intake) bool) []model.Intake {
	out := make([]model.Intake, 0, len(m.intakes))
	for _, in := range m.intakes {
		if keep == nil || keep(&in) {
			out = append(out, in)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if less(&out[i], &out[j]) {
			return true
		}
		if less(&out[j], &out[i]) {
			return false
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func byScheduledAsc(a, b *model.Intake) bool  { return a.ScheduledTime.Before(b.ScheduledTime) }
func byScheduledDesc(a, b *model.Intake) bool { return a.ScheduledTime.After(b.ScheduledTime) }

func first(list []model.Intake) *model.Intake {
	if len(list) == 0 {
		return nil
	}
	in := list[0]
	return &in
}

func (m *MemoryStore) All(_ context.Context) ([]model.Intake, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sorted(nil, byScheduledDesc), nil
}

func (m *MemoryStore) Between(_ context.Context, start, end time.Time) ([]model.Intake, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sorted(func(in *model.Intake) bool {
		return !in.ScheduledTime.Before(start) && !in.ScheduledTime.After(end)
	}, byScheduledAsc), nil
}

func (m *MemoryStore) GetByID(_ context.Context, id int64) (*model.Intake, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	in, ok := m.intakes[id]
	if !ok {
		return nil, fmt.Errorf("get intake %d: %w", id, ErrNotFound)
	}
	return &in, nil
}

func (m *MemoryStore) NextScheduled(_ context.Context) (*model.Intake, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return first(m.sorted(func(in *model.Intake) bool { return !in.IsCompleted }, byScheduledAsc)), nil
}

func (m *MemoryStore) LastCompleted(_ context.Context) (*model.Intake, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return first(m.sorted(func(in *model.Intake) bool {
		return in.IsCompleted && in.ActualTime != nil && in.Source != model.SourceManual
	}, func(a, b *model.Intake) bool {
		return a.ActualTime.After(*b.ActualTime)
	})), nil
}

func (m *MemoryStore) Insert(_ context.Context, in *model.Intake) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	row := *in
	if row.Source == "" {
		row.Source = model.SourceScheduled
	}
	if row.ID == 0 {
		row.ID = m.nextID
	}
	if row.ID >= m.nextID {
		m.nextID = row.ID + 1
	}
	m.intakes[row.ID] = row
	return row.ID, nil
}

func (m *MemoryStore) modify(id int64, fn func(*model.Intake)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	in, ok := m.intakes[id]
	if !ok {
		return fmt.Errorf("intake %d: %w", id, ErrNotFound)
	}
	fn(&in)
	m.intakes[id] = in
	return nil
}

func (m *MemoryStore) Update(_ context.Context, in *model.Intake) error {
	return m.modify(in.ID, func(row *model.Intake) { *row = *in })
}

func (m *MemoryStore) MarkTaken(_ context.Context, id int64, actual time.Time) error {
	return m.modify(id, func(row *model.Intake) {
		row.ActualTime = &actual
		row.IsCompleted = true
	})
}

func (m *MemoryStore) UpdateScheduledTime(_ context.Context, id int64, scheduled time.Time) error {
	return m.modify(id, func(row *model.Intake) { row.ScheduledTime = scheduled })
}

func (m *MemoryStore) SubmitFeedback(_ context.Context, id int64, feedback model.FeedbackType, at time.Time, nextScheduled *time.Time) error {
	return m.modify(id, func(row *model.Intake) {
		row.Feedback = &feedback
		row.FeedbackTime = &at
		row.NextScheduledTime = nextScheduled
	})
}

func (m *MemoryStore) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.intakes[id]; !ok {
		return fmt.Errorf("intake %d: %w", id, ErrNotFound)
	}
	delete(m.intakes, id)
	return nil
}

func (m *MemoryStore) DeleteAll(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.intakes = make(map[int64]model.Intake)
	return nil
}

func (m *MemoryStore) Close() error { return nil }

var (
	_ IntakeStore = (*SQLiteStore)(nil)
	_ IntakeStore = (*MemoryStore)(nil)
)
