package httpcache

import (
	"context"
	"time"
)

// Backend stores serialized HTTP responses by key.
type Backend interface {
	// Get returns the stored value and whether it was found.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores value for ttl.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
