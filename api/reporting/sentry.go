package reporting

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"
)

// Init configures Sentry. With an empty DSN the SDK stays disabled and
// Capture becomes a no-op.
func Init(dsn, environment string) error {
	if dsn == "" {
		return nil
	}
	return sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: environment,
	})
}

// Capture reports err with tags. Used for bracket integrity failures that
// need an operator rather than a retry.
func Capture(ctx context.Context, err error, tags map[string]string) {
	if err == nil {
		return
	}
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	hub.WithScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		hub.CaptureException(err)
	})
}

func Flush() {
	sentry.Flush(2 * time.Second)
}
