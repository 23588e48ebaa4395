package middleware

import (
	"bytes"
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/expfmt"
)

// CachedPromHandler serves a Prometheus exposition that is gathered at most
// once per ttl, however often /metrics is scraped.
type CachedPromHandler struct {
	mu        sync.RWMutex
	cache     []byte
	updatedAt time.Time
	ttl       time.Duration
	h         http.Handler
}

// NewCachedPromHandler gathers once up front and then refreshes every ttl in
// the background until ctx is cancelled.
func NewCachedPromHandler(ctx context.Context, gatherer prometheus.Gatherer, ttl time.Duration) *CachedPromHandler {
	c := &CachedPromHandler{
		ttl: ttl,
		h:   promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}),
	}

	c.Refresh()
	go c.refreshLoop(ctx)
	return c
}

func (c *CachedPromHandler) refreshLoop(ctx context.Context) {
	ticker := time.NewTicker(c.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Refresh()
		}
	}
}

// Refresh gathers the metrics now and replaces the cached exposition. A
// failed gather keeps the previous one.
func (c *CachedPromHandler) Refresh() {
	req, err := http.NewRequest(http.MethodGet, "/metrics", nil)
	if err != nil {
		return
	}

	rec := &responseRecorder{status: http.StatusOK}
	c.h.ServeHTTP(rec, req)
	if rec.status != http.StatusOK {
		return
	}

	c.mu.Lock()
	c.cache = rec.buf.Bytes()
	c.updatedAt = time.Now()
	c.mu.Unlock()
}

// UpdatedAt returns when the cached exposition was last gathered.
func (c *CachedPromHandler) UpdatedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.updatedAt
}

// ServeHTTP serves the cached exposition in the text format, falling back to
// a live gather while the cache is still empty.
func (c *CachedPromHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c.mu.RLock()
	cache := c.cache
	c.mu.RUnlock()

	if len(cache) == 0 {
		c.h.ServeHTTP(w, r)
		return
	}
	w.Header().Set("Content-Type", string(expfmt.NewFormat(expfmt.TypeTextPlain)))
	_, _ = w.Write(cache)
}

// responseRecorder captures the promhttp output for caching.
type responseRecorder struct {
	buf    bytes.Buffer
	header http.Header
	status int
}

func (rr *responseRecorder) Header() http.Header {
	if rr.header == nil {
		rr.header = http.Header{}
	}
	return rr.header
}

func (rr *responseRecorder) Write(b []byte) (int, error) { return rr.buf.Write(b) }
func (rr *responseRecorder) WriteHeader(statusCode int)  { rr.status = statusCode }
