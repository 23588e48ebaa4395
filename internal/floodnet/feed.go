package floodnet

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"floodnet.oxfloodnet.org/internal/config"
	"floodnet.oxfloodnet.org/internal/models"
)

const (
	riverLevelStream     = "R1_RIVR"
	floodThresholdStream = "R1_RIVR_threshold"
)

// fetchFeed downloads the latest rows of the sensor feed view.
func fetchFeed(ctx context.Context, client *http.Client, feedURL string, limit, maxRetries int) (*models.FeedResponse, error) {
	u, err := url.Parse(feedURL)
	if err != nil {
		return nil, fmt.Errorf("invalid feed url: %w", err)
	}
	q := u.Query()
	q.Set("descending", "true")
	q.Set("limit", strconv.Itoa(limit))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := config.DoWithBackoff(ctx, client, req, maxRetries)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch sensor feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sensor feed returned status: %d", resp.StatusCode)
	}

	var feed models.FeedResponse
	if err := json.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("failed to decode sensor feed: %w", err)
	}
	return &feed, nil
}

// parseResult maps one feed row into a heat-map reading.
//
// A row carries several datastreams; the river level and its flood threshold
// default to 0 and 1 when the sensor does not publish them. Only the first
// datapoint of each stream is used.
func parseResult(row models.FeedRow) (models.Reading, error) {
	data := map[string]float64{
		floodThresholdStream: 1,
		riverLevelStream:     0,
	}
	for _, stream := range row.Value.Datastreams {
		if len(stream.Datapoints) == 0 {
			continue
		}
		data[stream.ID] = float64(stream.Datapoints[0].Value)
	}

	threshold := data[floodThresholdStream]
	if threshold == 0 {
		return models.Reading{}, fmt.Errorf("sensor %q has a zero flood threshold", row.ID)
	}

	return models.Reading{
		Lat:   float64(row.Value.Location.Lat),
		Lon:   float64(row.Value.Location.Lon),
		Value: data[riverLevelStream] / threshold,
	}, nil
}
