package model

import (
	"fmt"
	"strings"
	"time"
)

// FeedbackType is what the user reports after a dose.
type FeedbackType int

const (
	FeedbackGood FeedbackType = iota
	FeedbackDizzy
	FeedbackTooDizzy

	// NumFeedbackTypes must stay last.
	NumFeedbackTypes
)

// FeedbackTypes lists every feedback category in declaration order.
var FeedbackTypes = []FeedbackType{FeedbackGood, FeedbackDizzy, FeedbackTooDizzy}

func (f FeedbackType) String() string {
	switch f {
	case FeedbackGood:
		return "GOOD"
	case FeedbackDizzy:
		return "DIZZY"
	case FeedbackTooDizzy:
		return "TOO_DIZZY"
	}
	return fmt.Sprintf("FeedbackType(%d)", int(f))
}

// ParseFeedbackType accepts the stored name in any case.
func ParseFeedbackType(s string) (FeedbackType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "GOOD":
		return FeedbackGood, nil
	case "DIZZY":
		return FeedbackDizzy, nil
	case "TOO_DIZZY", "TOODIZZY":
		return FeedbackTooDizzy, nil
	}
	return 0, fmt.Errorf("unknown feedback type %q", s)
}

// IntakeSource tells a scheduled dose from a manually logged one.
type IntakeSource string

const (
	SourceScheduled IntakeSource = "SCHEDULED"
	SourceManual    IntakeSource = "MANUAL"
)

// ParseIntakeSource treats anything but MANUAL as SCHEDULED.
func ParseIntakeSource(s string) IntakeSource {
	if IntakeSource(s) == SourceManual {
		return SourceManual
	}
	return SourceScheduled
}

// Intake is one medication intake, scheduled or manual.
type Intake struct {
	ID                int64
	ScheduledTime     time.Time
	ActualTime        *time.Time
	Feedback          *FeedbackType
	FeedbackTime      *time.Time
	NextScheduledTime *time.Time
	IsCompleted       bool
	Source            IntakeSource
}

// DisplayTime is the actual time for completed intakes, the scheduled time otherwise.
func (i *Intake) DisplayTime() time.Time {
	if i.IsCompleted && i.ActualTime != nil {
		return *i.ActualTime
	}
	return i.ScheduledTime
}

func (i *Intake) IsManual() bool {
	return i.Source == SourceManual
}

// TimingResult is the outcome of a default-time drift check.
type TimingResult struct {
	NeedsReschedulePrompt bool
	NextIntakeTime        *time.Time
}
