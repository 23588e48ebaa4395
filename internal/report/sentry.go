package report

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
)

// SetupSentry initialises the global Sentry client. An empty dsn leaves the
// SDK in no-op mode, which is what local development and tests use.
func SetupSentry(dsn, env, version string, debug bool) error {
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      env,
		Release:          "floodnet@" + version,
		EnableTracing:    true,
		Debug:            debug,
		TracesSampleRate: 1.0,
	}); err != nil {
		return fmt.Errorf("sentry.Init: %w", err)
	}
	ConfigureScope(env, version)
	sentry.CaptureMessage("Floodnet started")
	return nil
}

func FlushSentry() {
	sentry.Flush(2 * time.Second)
}
