package audit

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogEventWritesToSink(t *testing.T) {
	sink := &MemorySink{}
	l := NewLogger(sink)

	r := httptest.NewRequest("POST", "/api/curriculum/chapters/2/unlock", nil)
	r.Header.Set("X-Forwarded-For", "203.0.113.7")
	r.Header.Set("User-Agent", "test-agent")

	l.LogEvent(r, EventChapterUnlockFailed, "p1", 2, "wrong password")
	l.LogEvent(r, EventChapterUnlock, "p1", 2, "")
	l.Wait()

	events := sink.Events()
	require.Len(t, events, 2)
	types := []string{events[0].EventType, events[1].EventType}
	assert.ElementsMatch(t, []string{EventChapterUnlockFailed, EventChapterUnlock}, types)
	for _, e := range events {
		assert.Equal(t, "p1", e.PlayerID)
		assert.Equal(t, 2, e.ChapterID)
		assert.Equal(t, "203.0.113.7", e.IP)
		assert.Equal(t, "test-agent", e.UserAgent)
		assert.False(t, e.CreatedAt.IsZero())
	}
}

type failingSink struct{}

func (failingSink) Write(ctx context.Context, e AuditEvent) error {
	return errors.New("disk full")
}

func TestLogEventSurvivesSinkFailure(t *testing.T) {
	l := NewLogger(failingSink{})
	l.LogEvent(httptest.NewRequest("POST", "/", nil), EventPlayerCreated, "p1", 0, "")
	l.Wait()
}

func TestLogSink(t *testing.T) {
	assert.NoError(t, LogSink{}.Write(context.Background(), AuditEvent{EventType: EventProgressReset}))
}
