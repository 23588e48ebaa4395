package app

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"floodnet.oxfloodnet.org/internal/floodnet"
	"floodnet.oxfloodnet.org/internal/geo"
	"floodnet.oxfloodnet.org/internal/metrics"
	"floodnet.oxfloodnet.org/internal/middleware"
	"floodnet.oxfloodnet.org/internal/report"
	"github.com/getsentry/sentry-go"
)

type envelope map[string]any

func (app *Application) writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	js, err := json.Marshal(data)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}
	js = append(js, '\n')

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(js)
}

func (app *Application) errorResponse(w http.ResponseWriter, r *http.Request, status int, message string) {
	app.writeJSON(w, r, status, envelope{"error": message})
}

// serverErrorResponse logs and reports err, then answers 500 without
// leaking its details.
func (app *Application) serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	middleware.LoggerFromContext(r.Context(), app.Logger).Error("internal error", "error", err, "path", r.URL.Path)
	report.ReportErrorWithSentryOptions(err, report.SentryReportOptions{
		Level: sentry.LevelError,
		Hub:   sentry.GetHubFromContext(r.Context()),
	})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	_, _ = w.Write([]byte(`{"error":"the server encountered a problem and could not process your request"}` + "\n"))
}

func (app *Application) notFoundResponse(w http.ResponseWriter, r *http.Request) {
	app.errorResponse(w, r, http.StatusNotFound, "not found")
}

func (app *Application) methodNotAllowedResponse(w http.ResponseWriter, r *http.Request) {
	app.errorResponse(w, r, http.StatusMethodNotAllowed, "the "+r.Method+" method is not supported for this resource")
}

// coordinateErrorResponse answers a failed path parse. Malformed lat/lon
// pairs are client errors: they are counted but not reported to Sentry.
func (app *Application) coordinateErrorResponse(w http.ResponseWriter, r *http.Request, route string, err error) {
	var malformed *geo.MalformedLatLonError
	if errors.As(err, &malformed) {
		metrics.MalformedCoordinates.WithLabelValues(route).Inc()
		app.errorResponse(w, r, malformed.StatusCode, malformed.Message)
		return
	}
	app.serverErrorResponse(w, r, err)
}

// feedErrorResponse answers 503 while the feed backs off and 502 for any
// other upstream failure. The service has already reported the failure.
func (app *Application) feedErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, floodnet.ErrFeedBackoff) {
		if next, ok := app.FloodnetService.Backoff.NextRetryAt(app.Config.Feed.URL); ok {
			seconds := int(next.Sub(app.FloodnetService.Clock.Now()).Seconds()) + 1
			w.Header().Set("Retry-After", strconv.Itoa(max(seconds, 1)))
		}
		app.errorResponse(w, r, http.StatusServiceUnavailable, err.Error())
		return
	}
	app.errorResponse(w, r, http.StatusBadGateway, "failed to fetch sensor feed")
}
