package app

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"floodnet.oxfloodnet.org/internal/floodnet"
	"floodnet.oxfloodnet.org/internal/geo"
	"floodnet.oxfloodnet.org/internal/metrics"
	"floodnet.oxfloodnet.org/internal/middleware"
	"floodnet.oxfloodnet.org/internal/models"
	"floodnet.oxfloodnet.org/internal/utils"
	"github.com/julienschmidt/httprouter"
)

//go:embed templates/*.html
var templateFS embed.FS

var indexTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

// HealthStatus is the body of /v1/healthcheck.
//
// Ready is false while the sensor feed is backing off after a failed fetch;
// the handler then answers 503 so load balancers stop routing /data here.
type HealthStatus struct {
	Status        string     `json:"status"`
	Environment   string     `json:"environment"`
	Version       string     `json:"version"`
	FeedURL       string     `json:"feed_url"`
	Ready         bool       `json:"ready"`
	LastFetch     *time.Time `json:"last_fetch,omitempty"`
	LastFetchRows *int       `json:"last_fetch_readings,omitempty"`
}

// DataResponse is the body of /data.
type DataResponse struct {
	Request geo.BoundingBox  `json:"request"`
	Radius  float64          `json:"radius"`
	Data    []models.Reading `json:"data"`
}

func (app *Application) healthcheckHandler(w http.ResponseWriter, r *http.Request) {
	readinessErr := app.FloodnetService.CheckReadiness()

	status := HealthStatus{
		Status:      "available",
		Environment: app.Config.Env,
		Version:     app.Version,
		FeedURL:     app.Config.Feed.URL,
		Ready:       readinessErr == nil,
	}
	if at, count, ok := app.FloodnetService.LastFetch(); ok {
		status.LastFetch = &at
		status.LastFetchRows = &count
	}

	code := http.StatusOK
	if readinessErr != nil {
		code = http.StatusServiceUnavailable
	}
	app.writeJSON(w, r, code, status)
}

func (app *Application) indexHandler(w http.ResponseWriter, r *http.Request) {
	data := struct {
		Version string
		Env     string
	}{app.Version, app.Config.Env}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, data); err != nil {
		app.serverErrorResponse(w, r, fmt.Errorf("failed to render index: %w", err))
	}
}

// parseBoundingBoxParams reads the :centre/:sw/:ne path segments.
func parseBoundingBoxParams(r *http.Request) (geo.BoundingBox, error) {
	params := httprouter.ParamsFromContext(r.Context())
	return geo.ParseBoundingBox(params.ByName("centre"), params.ByName("sw"), params.ByName("ne"))
}

// dataHandler returns the heat-map readings for a viewport. ?test serves the
// bundled example feed; ?cells=true adds the heat-map cell id of every
// reading.
func (app *Application) dataHandler(w http.ResponseWriter, r *http.Request) {
	box, err := parseBoundingBoxParams(r)
	if err != nil {
		app.coordinateErrorResponse(w, r, "data", err)
		return
	}

	radius := box.Radius()
	metrics.ViewportRadius.Observe(radius)
	middleware.LoggerFromContext(r.Context(), app.Logger).Debug("viewport requested",
		"centre", box.Centre, "radius_km", utils.FormatKm(radius))

	query := r.URL.Query()
	includeCells, _ := strconv.ParseBool(query.Get("cells"))
	opts := floodnet.ReadingsOptions{
		UseTestData:  query.Get("test") != "",
		IncludeCells: includeCells,
	}

	readings, err := app.FloodnetService.Readings(r.Context(), box, opts)
	if err != nil {
		app.feedErrorResponse(w, r, err)
		return
	}

	if ttl := app.Config.Cache.TTL; ttl > 0 {
		w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", int(ttl.Seconds())))
	}
	app.writeJSON(w, r, http.StatusOK, DataResponse{Request: box, Radius: radius, Data: readings})
}

func (app *Application) boundingBoxHandler(w http.ResponseWriter, r *http.Request) {
	box, err := parseBoundingBoxParams(r)
	if err != nil {
		app.coordinateErrorResponse(w, r, "test_boundingbox", err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, envelope{"request": box})
}

func (app *Application) testDataHandler(w http.ResponseWriter, r *http.Request) {
	box, err := parseBoundingBoxParams(r)
	if err != nil {
		app.coordinateErrorResponse(w, r, "test_data", err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, envelope{"request": box, "data": floodnet.SampleReadings()})
}

func (app *Application) distanceHandler(w http.ResponseWriter, r *http.Request) {
	params := httprouter.ParamsFromContext(r.Context())
	points, err := geo.ParseNamed(map[string]string{
		"a": params.ByName("a"),
		"b": params.ByName("b"),
	})
	if err != nil {
		app.coordinateErrorResponse(w, r, "test_distance", err)
		return
	}

	app.writeJSON(w, r, http.StatusOK, envelope{
		"request":  points,
		"distance": geo.Distance(points["a"], points["b"]),
	})
}
