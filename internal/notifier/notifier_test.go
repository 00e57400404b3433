package notifier

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Guanfancy/internal/calculator"
	"Guanfancy/internal/model"
	"Guanfancy/internal/policy"
)

func newTestNotifier(url string) *TelegramNotifier {
	n := NewTelegramNotifier("TOKEN", "42", "")
	n.APIBase = url
	return n
}

func TestSend_PostsHTMLMessage(t *testing.T) {
	var got sendMessageRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	require.NoError(t, newTestNotifier(srv.URL).Send(context.Background(), "<b>hi</b>"))
	assert.Equal(t, sendMessageRequest{ChatID: "42", Text: "<b>hi</b>", ParseMode: "HTML"}, got)
}

func TestSendWithRetry_ReturnsLastError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	err := newTestNotifier(srv.URL).SendWithRetry(context.Background(), "x", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestSendWithRetry_StopsOnCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	err := newTestNotifier(srv.URL).SendWithRetry(ctx, "x", 5)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestStartPolling_HandlesOwnChatOnly(t *testing.T) {
	var (
		mu      sync.Mutex
		replies []string
		served  int32
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/getUpdates"):
			if atomic.AddInt32(&served, 1) == 1 {
				w.Write([]byte(`{"ok":true,"result":[
					{"update_id":1,"message":{"text":"/zone","chat":{"id":7}}},
					{"update_id":2,"message":{"text":" /zone ","chat":{"id":42}}}
				]}`))
				return
			}
			w.Write([]byte(`{"ok":true,"result":[]}`))
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			var req sendMessageRequest
			body, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(body, &req)
			mu.Lock()
			replies = append(replies, req.Text)
			mu.Unlock()
			w.Write([]byte(`{"ok":true}`))
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handled := make(chan string, 4)
	done := make(chan struct{})
	go func() {
		newTestNotifier(srv.URL).StartPolling(ctx, func(cmd string) string {
			handled <- cmd
			return "reply to " + cmd
		})
		close(done)
	}()

	select {
	case cmd := <-handled:
		assert.Equal(t, "/zone", cmd)
	case <-time.After(2 * time.Second):
		t.Fatal("command not handled")
	}
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(replies) == 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	<-done
	assert.Empty(t, handled)
	assert.Equal(t, []string{"reply to /zone"}, replies)
}

func TestFormatZoneStatus(t *testing.T) {
	next := &model.Intake{ScheduledTime: time.Date(2025, 5, 2, 8, 0, 0, 0, time.UTC)}

	msg := FormatZoneStatus(model.ZoneYellow, next, 90*time.Minute, time.UTC)
	assert.Contains(t, msg, "YELLOW zone")
	assert.Contains(t, msg, "Fri 02 May 08:00")
	assert.Contains(t, msg, "in 1h30m")

	msg = FormatZoneStatus(model.ZoneRed, next, -5*time.Minute, time.UTC)
	assert.Contains(t, msg, "overdue")
	assert.Contains(t, msg, "5m ago")

	msg = FormatZoneStatus(model.ZoneGreen, nil, 0, time.UTC)
	assert.Contains(t, msg, "No intake scheduled")
}

func TestFormatTimeline_MarksIntakesAndNow(t *testing.T) {
	taken := time.Date(2025, 5, 1, 8, 20, 0, 0, time.UTC)
	intakes := []model.Intake{{ScheduledTime: taken, ActualTime: &taken, IsCompleted: true}}
	tl := calculator.ProjectHourlyZones(taken, intakes, taken.Add(2*time.Hour), nil, model.IntunivZoneConfig, time.UTC)

	msg := FormatTimeline(tl)
	assert.Contains(t, msg, "Thu 2025-05-01")
	assert.Contains(t, msg, "🔴 08:00  💊 08:20 taken")
	assert.Contains(t, msg, "<b>🔴 10:00  ◀ now</b>")
	assert.Contains(t, msg, "🟢 23:00")
	assert.Equal(t, 26, strings.Count(msg, "\n"))
}

func TestFormatFeedbackPrompt_ListsEveryAnswer(t *testing.T) {
	base := time.Date(2025, 5, 2, 8, 0, 0, 0, time.UTC)
	msg := FormatFeedbackPrompt(3, map[model.FeedbackType]time.Time{
		model.FeedbackGood:     base,
		model.FeedbackDizzy:    base.Add(12 * time.Hour),
		model.FeedbackTooDizzy: base.Add(24 * time.Hour),
	}, time.UTC)

	assert.Contains(t, msg, "/feedback good → next dose Fri 02 May 08:00")
	assert.Contains(t, msg, "/feedback dizzy → next dose Fri 02 May 20:00")
	assert.Contains(t, msg, "/feedback too_dizzy → next dose Sat 03 May 08:00")
	assert.Contains(t, msg, "#3")
}

func TestFormatSettingsAndExplanation(t *testing.T) {
	msg := FormatSettings(model.MedicationTenex, policy.DefaultScheduleConfig(), true)
	assert.Contains(t, msg, "Medication: Tenex")
	assert.Contains(t, msg, "Default time: 08:00")
	assert.Contains(t, msg, "good +0h | dizzy +12h | too dizzy +24h")

	msg = FormatZoneExplanation(model.MedicationIntuniv, model.IntunivZoneConfig)
	assert.Contains(t, msg, "Half-life: ~17 hours")
	assert.Contains(t, msg, "🟢 More than 5h before or 5h+ after intake")
	assert.Contains(t, msg, "🟡 3-5h before or 3-5h after intake")
	assert.Contains(t, msg, "🔴 Less than 3h before or 3h after intake")
}

func TestFormatHistory(t *testing.T) {
	assert.Equal(t, "No intakes recorded yet.", FormatHistory(nil, time.UTC))

	taken := time.Date(2025, 5, 1, 8, 20, 0, 0, time.UTC)
	dizzy := model.FeedbackDizzy
	msg := FormatHistory([]model.Intake{
		{ID: 3, ScheduledTime: taken.Add(24 * time.Hour)},
		{ID: 2, ScheduledTime: taken.Add(14 * time.Hour), ActualTime: ptr(taken.Add(14 * time.Hour)), IsCompleted: true, Source: model.SourceManual},
		{ID: 1, ScheduledTime: taken, ActualTime: &taken, IsCompleted: true, Feedback: &dizzy},
	}, time.UTC)

	assert.Contains(t, msg, "#3 Fri 02 May 08:20 scheduled")
	assert.Contains(t, msg, "#2 Thu 01 May 22:20 manual")
	assert.Contains(t, msg, "#1 Thu 01 May 08:20 taken | dizzy")
}

func ptr(t time.Time) *time.Time { return &t }
