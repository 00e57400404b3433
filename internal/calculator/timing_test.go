package calculator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var plusThree = time.FixedZone("UTC+3", 3*60*60)

func local(day, hour, minute int) time.Time {
	return time.Date(2025, 6, day, hour, minute, 0, 0, plusThree)
}

func TestEvaluateDefaultTimeDrift_InsideWindowAfterDefault(t *testing.T) {
	res := EvaluateDefaultTimeDrift(local(10, 9, 30), 8, 0, 2*time.Hour, plusThree)
	assert.False(t, res.NeedsReschedulePrompt)
	require.NotNil(t, res.NextIntakeTime)
	assert.True(t, res.NextIntakeTime.Equal(local(11, 8, 0)), "got %v", res.NextIntakeTime)
}

func TestEvaluateDefaultTimeDrift_InsideWindowBeforeDefault(t *testing.T) {
	res := EvaluateDefaultTimeDrift(local(10, 7, 15), 8, 0, 2*time.Hour, plusThree)
	assert.False(t, res.NeedsReschedulePrompt)
	require.NotNil(t, res.NextIntakeTime)
	assert.True(t, res.NextIntakeTime.Equal(local(10, 8, 0)))
}

func TestEvaluateDefaultTimeDrift_OutsideWindow(t *testing.T) {
	res := EvaluateDefaultTimeDrift(local(10, 14, 0), 8, 0, 2*time.Hour, plusThree)
	assert.True(t, res.NeedsReschedulePrompt)
	assert.Nil(t, res.NextIntakeTime)

	res = EvaluateDefaultTimeDrift(local(10, 5, 59), 8, 0, 2*time.Hour, plusThree)
	assert.True(t, res.NeedsReschedulePrompt)
}

func TestEvaluateDefaultTimeDrift_WindowEdgesAreInclusive(t *testing.T) {
	tests := []struct {
		now    time.Time
		prompt bool
	}{
		{local(10, 6, 0), false},
		{local(10, 6, 0).Add(-time.Millisecond), true},
		{local(10, 8, 0), false},
		{local(10, 10, 0), false},
		{local(10, 10, 0).Add(time.Millisecond), true},
	}
	for _, tt := range tests {
		res := EvaluateDefaultTimeDrift(tt.now, 8, 0, 2*time.Hour, plusThree)
		assert.Equal(t, tt.prompt, res.NeedsReschedulePrompt, tt.now.String())
	}
}

func TestEvaluateDefaultTimeDrift_ExactlyAtDefaultAdvancesToTomorrow(t *testing.T) {
	res := EvaluateDefaultTimeDrift(local(10, 8, 0), 8, 0, 2*time.Hour, plusThree)
	require.NotNil(t, res.NextIntakeTime)
	assert.True(t, res.NextIntakeTime.Equal(local(11, 8, 0)))
}

func TestEvaluateDefaultTimeDrift_UsesCallerTimezone(t *testing.T) {
	// 06:30 UTC is 09:30 in UTC+3, inside the 08:00 window there.
	now := time.Date(2025, 6, 10, 6, 30, 0, 0, time.UTC)
	res := EvaluateDefaultTimeDrift(now, 8, 0, 2*time.Hour, plusThree)
	assert.False(t, res.NeedsReschedulePrompt)

	res = EvaluateDefaultTimeDrift(now, 8, 0, 2*time.Hour, time.UTC)
	assert.False(t, res.NeedsReschedulePrompt)
	require.NotNil(t, res.NextIntakeTime)
	assert.True(t, res.NextIntakeTime.Equal(time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC)))
}

func TestNextDefaultOccurrence(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{"morning before default", local(10, 6, 0), local(10, 8, 0)},
		{"one minute before", local(10, 7, 59), local(10, 8, 0)},
		{"exactly at default", local(10, 8, 0), local(11, 8, 0)},
		{"evening", local(10, 22, 0), local(11, 8, 0)},
		{"end of month", local(30, 23, 0), time.Date(2025, 7, 1, 8, 0, 0, 0, plusThree)},
	}
	for _, tt := range tests {
		got := NextDefaultOccurrence(tt.now, 8, 0, plusThree)
		assert.True(t, got.Equal(tt.want), "%s: got %v want %v", tt.name, got, tt.want)
	}
}

func TestNextDefaultOccurrence_NonZeroMinute(t *testing.T) {
	got := NextDefaultOccurrence(local(10, 21, 10), 21, 45, plusThree)
	assert.True(t, got.Equal(local(10, 21, 45)))
}

func TestApplyFeedbackDelay(t *testing.T) {
	base := local(10, 8, 0)
	assert.True(t, ApplyFeedbackDelay(base, 0).Equal(base))
	assert.Equal(t, 12*time.Hour, ApplyFeedbackDelay(base, 12).Sub(base))
	assert.Equal(t, 24*time.Hour, ApplyFeedbackDelay(base, 24).Sub(base))
}
