package config

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// retryBaseDelay is the pause before the first retry in DoWithBackoff; it
// doubles on each further attempt up to MAX_BACKOFF.
var retryBaseDelay = 250 * time.Millisecond

// DoWithBackoff sends req, retrying transport errors and 5xx responses with
// exponential backoff. maxRetries of 0 sends once; a negative value keeps
// retrying until ctx is done.
//
// The request must be replayable, which holds for the body-less GETs used
// against the sensor feed.
func DoWithBackoff(ctx context.Context, client *http.Client, req *http.Request, maxRetries int) (*http.Response, error) {
	req = req.WithContext(ctx)
	delay := retryBaseDelay

	var lastErr error
	for attempt := 0; maxRetries < 0 || attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("giving up after %d attempts: %w", attempt, ctx.Err())
			case <-time.After(delay):
			}
			delay = calculateNewBackoffDelay(delay)
		}

		resp, err := client.Do(req)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, fmt.Errorf("giving up after %d attempts: %w", attempt+1, ctxErr)
			}
			lastErr = err
			continue
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			resp.Body.Close()
			lastErr = fmt.Errorf("server returned status: %d", resp.StatusCode)
			continue
		}
		return resp, nil
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}
