package floodnet

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"floodnet.oxfloodnet.org/internal/models"
)

//go:embed testdata/example.json
var exampleFeed []byte

// loadTestFeed returns the bundled example feed served for ?test requests.
func loadTestFeed() (*models.FeedResponse, error) {
	var feed models.FeedResponse
	if err := json.Unmarshal(exampleFeed, &feed); err != nil {
		return nil, fmt.Errorf("failed to decode bundled test feed: %w", err)
	}
	return &feed, nil
}

// SampleReadings returns fixed readings around Oxford for front-end work
// that needs data without touching the feed.
func SampleReadings() []models.Reading {
	return []models.Reading{
		{Lat: 51.7761, Lon: -1.264, Value: 1.0},
		{Lat: 51.7763, Lon: -1.263, Value: 0.7},
		{Lat: 51.7765, Lon: -1.265, Value: 1.2},
	}
}
