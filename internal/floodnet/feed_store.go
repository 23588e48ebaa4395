package floodnet

import (
	"sync"
	"time"

	"floodnet.oxfloodnet.org/internal/models"
)

// FeedStore is a thread-safe record of the last successful feed fetch.
// It allows concurrent access using a sync.RWMutex.
type FeedStore struct {
	mu        sync.RWMutex
	readings  []models.Reading
	fetchedAt time.Time
}

// NewFeedStore returns an empty FeedStore.
func NewFeedStore() *FeedStore {
	return &FeedStore{}
}

// Set records the readings mapped from a fetch made at fetchedAt.
func (s *FeedStore) Set(readings []models.Reading, fetchedAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readings = readings
	s.fetchedAt = fetchedAt
}

// Get returns a copy of the last readings and when they were fetched.
// The bool is false if no fetch has succeeded yet.
func (s *FeedStore) Get() ([]models.Reading, time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.fetchedAt.IsZero() {
		return nil, time.Time{}, false
	}
	out := make([]models.Reading, len(s.readings))
	copy(out, s.readings)
	return out, s.fetchedAt, true
}
