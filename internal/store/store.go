package store

import (
	"context"
	"errors"
	"time"

	"Guanfancy/internal/model"
)

// ErrNotFound is returned when no intake has the requested id.
var ErrNotFound = errors.New("intake not found")

// IntakeStore persists medication intakes.
type IntakeStore interface {
	// All returns every intake, newest scheduled time first.
	All(ctx context.Context) ([]model.Intake, error)
	// Between returns intakes scheduled in [start, end], oldest first.
	Between(ctx context.Context, start, end time.Time) ([]model.Intake, error)
	GetByID(ctx context.Context, id int64) (*model.Intake, error)
	// NextScheduled returns the earliest intake not yet completed, nil if none.
	NextScheduled(ctx context.Context) (*model.Intake, error)
	// LastCompleted returns the most recently taken scheduled dose, nil if none.
	// Manual intakes are excluded.
	LastCompleted(ctx context.Context) (*model.Intake, error)

	Insert(ctx context.Context, intake *model.Intake) (int64, error)
	Update(ctx context.Context, intake *model.Intake) error
	MarkTaken(ctx context.Context, id int64, actual time.Time) error
	UpdateScheduledTime(ctx context.Context, id int64, scheduled time.Time) error
	SubmitFeedback(ctx context.Context, id int64, feedback model.FeedbackType, at time.Time, nextScheduled *time.Time) error
	Delete(ctx context.Context, id int64) error
	DeleteAll(ctx context.Context) error

	Close() error
}
