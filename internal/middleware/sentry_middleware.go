package middleware

import (
	"net/http"
	"time"

	sentryhttp "github.com/getsentry/sentry-go/http"
)

// SentryMiddleware recovers panics, reports them to Sentry and re-panics so
// net/http still logs them. Every request gets its own hub in its context.
func SentryMiddleware(next http.Handler, timeout time.Duration) http.Handler {
	sentryHandler := sentryhttp.New(sentryhttp.Options{
		Repanic:         true,
		WaitForDelivery: timeout > 0,
		Timeout:         timeout,
	})

	return sentryHandler.Handle(next)
}
