package app

import (
	"net/http"
	"strings"
	"testing"

	"floodnet.oxfloodnet.org/internal/config"
	"floodnet.oxfloodnet.org/internal/geo"
	"floodnet.oxfloodnet.org/internal/metrics"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const liveFeed = `{"total_rows":1,"offset":0,"rows":[{"id":"osney","value":{"location":{"lat":"51.7761","lon":"-1.264"},
"datastreams":[{"id":"R1_RIVR","datapoints":[{"value":"0.9"}]},{"id":"R1_RIVR_threshold","datapoints":[{"value":"1.8"}]}]}}]}`

type dataBody struct {
	Request map[string][2]float64 `json:"request"`
	Radius  float64               `json:"radius"`
	Data    []struct {
		Lat   float64 `json:"lat"`
		Lon   float64 `json:"lon"`
		Value float64 `json:"value"`
		Cell  string  `json:"cell"`
	} `json:"data"`
}

func TestHealthcheckHandler(t *testing.T) {
	srv, _ := newFeedServer(t, http.StatusOK, liveFeed)
	app, handler := newTestApplication(t, srv.URL)

	rr := serve(t, handler, http.MethodGet, "/v1/healthcheck")
	if status := rr.Code; status != http.StatusOK {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusOK)
	}

	var resp HealthStatus
	decodeBody(t, rr, &resp)

	if resp.Status != "available" {
		t.Errorf("expected status 'available', got %q", resp.Status)
	}
	if resp.Environment != "testing" {
		t.Errorf("expected environment 'testing', got %q", resp.Environment)
	}
	if resp.Version != "test-version" {
		t.Errorf("expected version 'test-version', got %q", resp.Version)
	}
	if resp.FeedURL != srv.URL {
		t.Errorf("expected feed_url %q, got %q", srv.URL, resp.FeedURL)
	}
	if !resp.Ready {
		t.Errorf("expected ready true, got false")
	}
	if resp.LastFetch != nil {
		t.Errorf("expected no last fetch before the first /data call")
	}

	app.FloodnetService.Backoff.UpdateBackoff(srv.URL)
	rr = serve(t, handler, http.MethodGet, "/v1/healthcheck")
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 while backing off, got %d", rr.Code)
	}
	decodeBody(t, rr, &resp)
	if resp.Ready {
		t.Errorf("expected ready false while backing off")
	}
}

func TestDataHandlerWithTestData(t *testing.T) {
	_, handler := newTestApplication(t, "http://127.0.0.1:1/unused")

	rr := serve(t, handler, http.MethodGet, "/data"+oxfordPath+"?test=1")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.Equal(t, "public, max-age=60", rr.Header().Get("Cache-Control"))

	var body dataBody
	decodeBody(t, rr, &body)

	assert.Equal(t, [2]float64{51.7760, -1.2636}, body.Request["centre"])
	assert.Equal(t, [2]float64{51.7700, -1.2700}, body.Request["sw"])
	assert.Equal(t, [2]float64{51.7800, -1.2600}, body.Request["ne"])

	box, err := geo.ParseBoundingBox("51.7760,-1.2636", "51.7700,-1.2700", "51.7800,-1.2600")
	require.NoError(t, err)
	assert.InDelta(t, box.Radius(), body.Radius, 1e-9)

	require.Len(t, body.Data, 2)
	assert.Equal(t, 0.5, body.Data[0].Value)
	assert.Equal(t, 1.5, body.Data[1].Value)
	assert.Empty(t, body.Data[0].Cell)
}

func TestDataHandlerWithCells(t *testing.T) {
	_, handler := newTestApplication(t, "http://127.0.0.1:1/unused")

	rr := serve(t, handler, http.MethodGet, "/data"+oxfordPath+"?test=1&cells=true")
	require.Equal(t, http.StatusOK, rr.Code)

	var body dataBody
	decodeBody(t, rr, &body)
	require.NotEmpty(t, body.Data)
	for _, d := range body.Data {
		assert.Equal(t, geo.CellID(d.Lat, d.Lon), d.Cell)
	}
}

func TestDataHandlerWithLiveFeed(t *testing.T) {
	srv, hits := newFeedServer(t, http.StatusOK, liveFeed)
	app, handler := newTestApplication(t, srv.URL)

	rr := serve(t, handler, http.MethodGet, "/data"+oxfordPath)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, int32(1), hits.Load())

	var body dataBody
	decodeBody(t, rr, &body)
	require.Len(t, body.Data, 1)
	assert.Equal(t, 51.7761, body.Data[0].Lat)
	assert.Equal(t, -1.264, body.Data[0].Lon)
	assert.InDelta(t, 0.5, body.Data[0].Value, 1e-12)

	_, count, ok := app.FloodnetService.LastFetch()
	assert.True(t, ok)
	assert.Equal(t, 1, count)
}

func TestDataHandlerEmptyViewport(t *testing.T) {
	srv, _ := newFeedServer(t, http.StatusOK, liveFeed)
	_, handler := newTestApplication(t, srv.URL)

	rr := serve(t, handler, http.MethodGet, "/data/51.5074,-0.1278/51.50,-0.13/51.51,-0.12")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"data":[]`)
}

func TestDataHandlerUpstreamFailure(t *testing.T) {
	srv, hits := newFeedServer(t, http.StatusInternalServerError, "down")
	_, handler := newTestApplication(t, srv.URL)

	rr := serve(t, handler, http.MethodGet, "/data"+oxfordPath)
	assert.Equal(t, http.StatusBadGateway, rr.Code)
	assert.JSONEq(t, `{"error":"failed to fetch sensor feed"}`, rr.Body.String())

	rr = serve(t, handler, http.MethodGet, "/data"+oxfordPath)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))
	assert.Contains(t, rr.Body.String(), "temporarily unavailable")
	assert.Equal(t, int32(1), hits.Load(), "the backoff keeps the second request off the network")
}

func TestDataHandlerRetryAfterFollowsServiceClock(t *testing.T) {
	srv, hits := newFeedServer(t, http.StatusOK, liveFeed)
	app, handler := newTestApplication(t, srv.URL)

	clock := clockwork.NewFakeClock()
	app.FloodnetService.Clock = clock
	app.FloodnetService.Backoff = config.NewBackoffStore(clock)
	app.FloodnetService.Backoff.UpdateBackoff(srv.URL)

	rr := serve(t, handler, http.MethodGet, "/data"+oxfordPath)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Equal(t, "2", rr.Header().Get("Retry-After"), "a first failure waits between 1s and 1.5s")
	assert.Equal(t, int32(0), hits.Load())

	clock.Advance(config.MAX_BACKOFF)
	rr = serve(t, handler, http.MethodGet, "/data"+oxfordPath)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, rr.Header().Get("Retry-After"))
}

func TestMalformedCoordinates(t *testing.T) {
	_, handler := newTestApplication(t, "http://127.0.0.1:1/unused")

	tests := []struct {
		name    string
		target  string
		route   string
		message string
	}{
		{"data centre", "/data/oops/51.77,-1.27/51.78,-1.26", "data", `malformed lat/lon pair "oops": expected two comma-separated numbers`},
		{"data test mode", "/data/51.77,-1.26/51.77,x/51.78,-1.26?test=1", "data", `malformed lat/lon pair "51.77,x": longitude "x" is not a number`},
		{"bounding box", "/test/boundingbox/51.77,-1.26/51.77,-1.27/1,2,3", "test_boundingbox", `malformed lat/lon pair "1,2,3": expected two comma-separated numbers`},
		{"test data", "/test/data/51.75/51.77,-1.27/51.78,-1.26", "test_data", `malformed lat/lon pair "51.75": expected two comma-separated numbers`},
		{"distance", "/test/distance/a,b/51.75,-1.25", "test_distance", `malformed lat/lon pair "a,b": latitude "a" is not a number`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before, _ := metrics.GetMetricValue(metrics.MalformedCoordinates, map[string]string{"route": tt.route})

			rr := serve(t, handler, http.MethodGet, tt.target)
			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

			var body map[string]string
			decodeBody(t, rr, &body)
			assert.Equal(t, map[string]string{"error": tt.message}, body)

			after, err := metrics.GetMetricValue(metrics.MalformedCoordinates, map[string]string{"route": tt.route})
			require.NoError(t, err)
			assert.Equal(t, 1.0, after-before)
		})
	}
}

func TestBoundingBoxHandler(t *testing.T) {
	_, handler := newTestApplication(t, "http://127.0.0.1:1/unused")

	rr := serve(t, handler, http.MethodGet, "/test/boundingbox"+oxfordPath)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"request":{"centre":[51.776,-1.2636],"sw":[51.77,-1.27],"ne":[51.78,-1.26]}}`, rr.Body.String())
}

func TestTestDataHandler(t *testing.T) {
	_, handler := newTestApplication(t, "http://127.0.0.1:1/unused")

	rr := serve(t, handler, http.MethodGet, "/test/data"+oxfordPath)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{
		"request": {"centre":[51.776,-1.2636],"sw":[51.77,-1.27],"ne":[51.78,-1.26]},
		"data": [
			{"lat":51.7761,"lon":-1.264,"value":1},
			{"lat":51.7763,"lon":-1.263,"value":0.7},
			{"lat":51.7765,"lon":-1.265,"value":1.2}
		]
	}`, rr.Body.String())
}

func TestDistanceHandler(t *testing.T) {
	_, handler := newTestApplication(t, "http://127.0.0.1:1/unused")

	rr := serve(t, handler, http.MethodGet, "/test/distance/0,0/0,1")
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Request  map[string][2]float64 `json:"request"`
		Distance float64               `json:"distance"`
	}
	decodeBody(t, rr, &body)
	assert.Equal(t, [2]float64{0, 0}, body.Request["a"])
	assert.Equal(t, [2]float64{0, 1}, body.Request["b"])
	assert.InEpsilon(t, 111.2, body.Distance, 0.01)

	rr = serve(t, handler, http.MethodGet, "/test/distance/51.75,-1.25/51.75,-1.25")
	decodeBody(t, rr, &body)
	assert.Zero(t, body.Distance)
}

func TestIndexHandler(t *testing.T) {
	_, handler := newTestApplication(t, "http://127.0.0.1:1/unused")

	rr := serve(t, handler, http.MethodGet, "/")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/html; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Body.String(), "Oxford Flood Network")
	assert.Contains(t, rr.Body.String(), "floodnet test-version (testing)")
}

func TestRouterFallbacks(t *testing.T) {
	_, handler := newTestApplication(t, "http://127.0.0.1:1/unused")

	rr := serve(t, handler, http.MethodGet, "/nowhere")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.JSONEq(t, `{"error":"not found"}`, rr.Body.String())

	rr = serve(t, handler, http.MethodPost, "/data"+oxfordPath)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	assert.True(t, strings.Contains(rr.Body.String(), "POST"))
}

func TestMiddlewareChain(t *testing.T) {
	_, handler := newTestApplication(t, "http://127.0.0.1:1/unused")

	rr := serve(t, handler, http.MethodGet, "/test/distance/0,0/0,1")
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "no-store", rr.Header().Get("Cache-Control"))
}

func TestMetricsEndpoint(t *testing.T) {
	_, handler := newTestApplication(t, "http://127.0.0.1:1/unused")
	metrics.ViewportRadius.Observe(1)

	rr := serve(t, handler, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "floodnet_viewport_radius_km")
}
