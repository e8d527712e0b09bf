package crash

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/getsentry/sentry-go"
)

type captureTransport struct {
	mu     sync.Mutex
	events []*sentry.Event
}

func (t *captureTransport) Configure(sentry.ClientOptions) {}

func (t *captureTransport) SendEvent(e *sentry.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, e)
}

func (t *captureTransport) Flush(time.Duration) bool { return true }

func (t *captureTransport) FlushWithContext(context.Context) bool { return true }

func (t *captureTransport) Close() {}

func TestInitWithoutDSNIsDisabled(t *testing.T) {
	enabled, err := Init(Config{})
	if err != nil || enabled {
		t.Fatalf("Init() = %v, %v; want false, nil", enabled, err)
	}
}

func TestInitRejectsBadDSN(t *testing.T) {
	if _, err := Init(Config{DSN: "::not a dsn"}); err == nil {
		t.Fatalf("Init() error = nil for malformed dsn")
	}
}

// TestReportSendsTaggedEvent 测试 panic 上报带标签
func TestReportSendsTaggedEvent(t *testing.T) {
	transport := &captureTransport{}
	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn:       "https://public@example.com/1",
		Transport: transport,
	})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	hub := sentry.NewHub(client, sentry.NewScope())

	r := NewReporter(hub, map[string]string{"host": "terminal"})
	r.Report("tick failed")

	transport.mu.Lock()
	defer transport.mu.Unlock()
	if len(transport.events) != 1 {
		t.Fatalf("events = %d, want 1", len(transport.events))
	}
	ev := transport.events[0]
	if ev.Tags["host"] != "terminal" {
		t.Fatalf("tags = %v", ev.Tags)
	}
	if len(ev.Exception) == 0 || !strings.Contains(ev.Exception[0].Value, "tick failed") {
		t.Fatalf("exception = %+v", ev.Exception)
	}
}
