package app

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"floodnet.oxfloodnet.org/internal/config"
)

const oxfordPath = "/51.7760,-1.2636/51.7700,-1.2700/51.7800,-1.2600"

// newTestApplication returns an application whose feed points at feedURL
// and the router serving it. Viewport filtering is switched on.
func newTestApplication(t *testing.T, feedURL string) (*Application, http.Handler) {
	t.Helper()

	cfg := config.NewConfig(4000, "testing")
	cfg.Feed.URL = feedURL
	cfg.Feed.MaxRetries = 0
	cfg.Feed.FilterToViewport = true

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	app := New(cfg, logger, &http.Client{}, "test-version")

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return app, app.Routes(ctx)
}

func newFeedServer(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func serve(t *testing.T, handler http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(method, target, nil))
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(dst); err != nil {
		t.Fatalf("failed to decode response %q: %v", rr.Body.String(), err)
	}
}
