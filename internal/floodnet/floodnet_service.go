package floodnet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"floodnet.oxfloodnet.org/internal/config"
	"floodnet.oxfloodnet.org/internal/geo"
	"floodnet.oxfloodnet.org/internal/metrics"
	"floodnet.oxfloodnet.org/internal/models"
	"floodnet.oxfloodnet.org/internal/report"
	"floodnet.oxfloodnet.org/internal/utils"
	"github.com/getsentry/sentry-go"
	"github.com/jonboulle/clockwork"
)

// ErrFeedBackoff is returned while the feed is backing off after a failure.
var ErrFeedBackoff = errors.New("sensor feed is temporarily unavailable")

// ReadingsOptions selects where readings come from and how they are shaped.
type ReadingsOptions struct {
	// UseTestData serves the bundled example feed instead of the live one.
	UseTestData bool
	// IncludeCells tags every reading with its heat-map cell id.
	IncludeCells bool
}

type FloodnetService struct {
	Client  *http.Client
	Backoff *config.BackoffStore
	Store   *FeedStore
	Logger  *slog.Logger
	Feed    config.FeedConfig
	Clock   clockwork.Clock
}

func NewFloodnetService(feed config.FeedConfig, client *http.Client, backoff *config.BackoffStore, logger *slog.Logger, clock clockwork.Clock) *FloodnetService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if backoff == nil {
		backoff = config.NewBackoffStore(clock)
	}
	return &FloodnetService{
		Client:  client,
		Backoff: backoff,
		Store:   NewFeedStore(),
		Logger:  logger,
		Feed:    feed,
		Clock:   clock,
	}
}

// FetchFeed downloads the live feed, honouring and updating the backoff
// state for the feed URL. Failures are reported to Sentry using the hub
// attached to ctx, if any.
func (fs *FloodnetService) FetchFeed(ctx context.Context) (*models.FeedResponse, error) {
	feedURL := fs.Feed.URL
	if fs.Backoff.InBackoff(feedURL) {
		return nil, ErrFeedBackoff
	}

	parent := ctx
	if fs.Feed.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, fs.Feed.Timeout)
		defer cancel()
	}

	feed, err := fetchFeed(ctx, fs.Client, feedURL, fs.Feed.Limit, fs.Feed.MaxRetries)
	if err != nil {
		// The caller went away; that says nothing about the upstream feed.
		if parent.Err() != nil {
			fs.Logger.Debug("sensor feed fetch abandoned by caller", "error", err, "feed_url", feedURL)
			return nil, err
		}
		fs.Backoff.UpdateBackoff(feedURL)
		metrics.FeedStatus.WithLabelValues(feedURL).Set(0)
		report.ReportErrorWithSentryOptions(err, report.SentryReportOptions{
			Tags:  utils.MakeMap("feed_url", feedURL),
			Level: sentry.LevelError,
			Hub:   sentry.GetHubFromContext(ctx),
		})
		next, _ := fs.Backoff.NextRetryAt(feedURL)
		fs.Logger.Error("failed to fetch sensor feed", "error", err, "feed_url", feedURL, "next_retry_at", next)
		return nil, err
	}

	fs.Backoff.ResetBackoff(feedURL)
	metrics.FeedStatus.WithLabelValues(feedURL).Set(1)
	return feed, nil
}

// Readings returns the heat-map readings for a viewport. When viewport
// filtering is enabled only readings inside the box's covering circle are
// returned.
func (fs *FloodnetService) Readings(ctx context.Context, box geo.BoundingBox, opts ReadingsOptions) ([]models.Reading, error) {
	var (
		feed *models.FeedResponse
		err  error
	)
	if opts.UseTestData {
		feed, err = loadTestFeed()
	} else {
		feed, err = fs.FetchFeed(ctx)
	}
	if err != nil {
		return nil, err
	}

	readings := fs.readingsFromFeed(feed)
	if !opts.UseTestData {
		fs.Store.Set(readings, fs.Clock.Now())
		metrics.FeedReadings.WithLabelValues(fs.Feed.URL).Set(float64(len(readings)))
	}

	out := make([]models.Reading, 0, len(readings))
	for _, r := range readings {
		if fs.Feed.FilterToViewport && !box.Covers(r.Lat, r.Lon) {
			continue
		}
		if opts.IncludeCells {
			r.Cell = geo.CellID(r.Lat, r.Lon)
		}
		out = append(out, r)
	}
	return out, nil
}

// CheckReadiness returns ErrFeedBackoff while the feed is backing off.
func (fs *FloodnetService) CheckReadiness() error {
	if !fs.Backoff.InBackoff(fs.Feed.URL) {
		return nil
	}
	next, _ := fs.Backoff.NextRetryAt(fs.Feed.URL)
	return fmt.Errorf("%w until %s", ErrFeedBackoff, next.Format(time.RFC3339))
}

// LastFetch reports when the live feed was last fetched successfully.
func (fs *FloodnetService) LastFetch() (time.Time, int, bool) {
	readings, at, ok := fs.Store.Get()
	return at, len(readings), ok
}

// readingsFromFeed maps feed rows to readings, skipping sensors without a
// usable location or calibration.
func (fs *FloodnetService) readingsFromFeed(feed *models.FeedResponse) []models.Reading {
	readings := make([]models.Reading, 0, len(feed.Rows))
	for _, row := range feed.Rows {
		reading, err := parseResult(row)
		if err != nil {
			fs.Logger.Warn("skipping sensor reading", "sensor", row.ID, "error", err)
			continue
		}
		if !geo.IsValidLatLon(reading.Lat, reading.Lon) {
			fs.Logger.Debug("skipping sensor without a valid location", "sensor", row.ID, "lat", reading.Lat, "lon", reading.Lon)
			continue
		}
		readings = append(readings, reading)
	}
	return readings
}
