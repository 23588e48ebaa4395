package floodnet

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"floodnet.oxfloodnet.org/internal/config"
	"floodnet.oxfloodnet.org/internal/geo"
	"github.com/jonboulle/clockwork"
)

var oxfordViewport = geo.BoundingBox{
	Centre: geo.Coordinate{Lat: 51.7760, Lon: -1.2636},
	SW:     geo.Coordinate{Lat: 51.7700, Lon: -1.2700},
	NE:     geo.Coordinate{Lat: 51.7800, Lon: -1.2600},
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newFeedServer serves body with status and counts the requests it receives.
func newFeedServer(t *testing.T, status int, body []byte) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

// newSlowFeedServer answers with body after delay unless the client goes
// away first.
func newSlowFeedServer(t *testing.T, delay time.Duration, body []byte) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		select {
		case <-r.Context().Done():
			return
		case <-time.After(delay):
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

// newTestService builds a service with viewport filtering switched on.
func newTestService(t *testing.T, feedURL string, clock clockwork.Clock) *FloodnetService {
	t.Helper()
	feed := config.NewConfig(4000, "testing").Feed
	feed.URL = feedURL
	feed.MaxRetries = 0
	feed.FilterToViewport = true
	return NewFloodnetService(feed, &http.Client{}, nil, discardLogger(), clock)
}
