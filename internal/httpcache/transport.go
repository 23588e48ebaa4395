package httpcache

import (
	"bufio"
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"time"

	"floodnet.oxfloodnet.org/internal/metrics"
)

// Transport is an http.RoundTripper that answers repeated GET requests from a
// Backend for TTL after a 200 response was first seen.
//
// Requests carrying "Cache-Control: no-cache" skip the lookup but still
// refresh the stored copy. Backend failures are logged and treated as misses.
type Transport struct {
	Next    http.RoundTripper
	Backend Backend
	TTL     time.Duration
	Logger  *slog.Logger
}

// NewTransport wraps next. A nil next uses http.DefaultTransport.
func NewTransport(next http.RoundTripper, backend Backend, ttl time.Duration, logger *slog.Logger) *Transport {
	if next == nil {
		next = http.DefaultTransport
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Transport{Next: next, Backend: backend, TTL: ttl, Logger: logger}
}

func cacheKey(req *http.Request) string {
	return req.Method + " " + req.URL.String()
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Method != http.MethodGet || t.TTL <= 0 || t.Backend == nil {
		return t.Next.RoundTrip(req)
	}

	key := cacheKey(req)
	ctx := req.Context()

	if req.Header.Get("Cache-Control") != "no-cache" {
		if resp, ok := t.lookup(req, key); ok {
			return resp, nil
		}
	}

	resp, err := t.Next.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return resp, nil
	}

	// DumpResponse replaces resp.Body with an in-memory copy.
	dump, err := httputil.DumpResponse(resp, true)
	if err != nil {
		metrics.HTTPCacheResults.WithLabelValues("error").Inc()
		t.Logger.Warn("failed to serialize response for cache", "url", req.URL.Redacted(), "error", err)
		return resp, nil
	}
	if err := t.Backend.Set(ctx, key, dump, t.TTL); err != nil {
		metrics.HTTPCacheResults.WithLabelValues("error").Inc()
		t.Logger.Warn("failed to store cached response", "url", req.URL.Redacted(), "error", err)
	} else {
		metrics.HTTPCacheResults.WithLabelValues("store").Inc()
	}
	resp.Header.Set("X-Cache", "MISS")
	return resp, nil
}

func (t *Transport) lookup(req *http.Request, key string) (*http.Response, bool) {
	b, ok, err := t.Backend.Get(req.Context(), key)
	if err != nil {
		metrics.HTTPCacheResults.WithLabelValues("error").Inc()
		t.Logger.Warn("cache lookup failed", "url", req.URL.Redacted(), "error", err)
		return nil, false
	}
	if !ok {
		metrics.HTTPCacheResults.WithLabelValues("miss").Inc()
		return nil, false
	}

	resp, err := http.ReadResponse(bufio.NewReader(bytes.NewReader(b)), req)
	if err != nil {
		metrics.HTTPCacheResults.WithLabelValues("error").Inc()
		t.Logger.Warn("discarding unreadable cached response", "url", req.URL.Redacted(), "error", err)
		return nil, false
	}
	metrics.HTTPCacheResults.WithLabelValues("hit").Inc()
	resp.Header.Set("X-Cache", "HIT")
	return resp, true
}
