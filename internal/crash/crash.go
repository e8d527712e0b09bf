// Package crash reports simulation panics to Sentry.
package crash

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"
)

const defaultFlushTimeout = 5 * time.Second

type Config struct {
	DSN         string
	Environment string
	Release     string
}

// Init configures the global Sentry client. An empty DSN leaves reporting
// off and returns false.
func Init(cfg Config) (bool, error) {
	if cfg.DSN == "" {
		return false, nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.DSN,
		Environment: cfg.Environment,
		Release:     cfg.Release,
	})
	if err != nil {
		return false, fmt.Errorf("sentry init: %w", err)
	}
	slog.Info("Crash reporting enabled", "environment", cfg.Environment)
	return true, nil
}

// Reporter sends a recovered panic with fixed tags and waits for delivery.
type Reporter struct {
	hub          *sentry.Hub
	tags         map[string]string
	flushTimeout time.Duration
}

// NewReporter uses sentry.CurrentHub when hub is nil.
func NewReporter(hub *sentry.Hub, tags map[string]string) *Reporter {
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	return &Reporter{hub: hub, tags: tags, flushTimeout: defaultFlushTimeout}
}

// Report logs and uploads recovered. It does not re-panic; the caller does.
func (r *Reporter) Report(recovered any) {
	slog.Error("Frame panicked", "panic", recovered)

	hub := r.hub.Clone()
	hub.ConfigureScope(func(scope *sentry.Scope) {
		for k, v := range r.tags {
			scope.SetTag(k, v)
		}
	})
	hub.Recover(fmt.Errorf("%v", recovered))
	hub.Flush(r.flushTimeout)
}
