package app

import (
	"context"
	"net/http"
	"time"

	"floodnet.oxfloodnet.org/internal/middleware"
	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus"
)

// Routes registers every endpoint on an httprouter and wraps it with the
// middleware chain:
//
//	SecurityHeaders -> SentryMiddleware -> RequestLogger -> router
//
// ctx stops the background refresh of the cached /metrics exposition.
func (app *Application) Routes(ctx context.Context) http.Handler {
	router := httprouter.New()
	router.NotFound = http.HandlerFunc(app.notFoundResponse)
	router.MethodNotAllowed = http.HandlerFunc(app.methodNotAllowedResponse)

	router.HandlerFunc(http.MethodGet, "/", app.indexHandler)
	router.HandlerFunc(http.MethodGet, "/data/:centre/:sw/:ne", app.dataHandler)
	router.HandlerFunc(http.MethodGet, "/test/boundingbox/:centre/:sw/:ne", app.boundingBoxHandler)
	router.HandlerFunc(http.MethodGet, "/test/data/:centre/:sw/:ne", app.testDataHandler)
	router.HandlerFunc(http.MethodGet, "/test/distance/:a/:b", app.distanceHandler)
	router.HandlerFunc(http.MethodGet, "/v1/healthcheck", app.healthcheckHandler)
	router.Handler(http.MethodGet, "/metrics", middleware.NewCachedPromHandler(ctx, prometheus.DefaultGatherer, 10*time.Second))

	handler := middleware.RequestLogger(app.Logger)(router)
	handler = middleware.SentryMiddleware(handler, 2*time.Second)
	return middleware.SecurityHeaders(handler)
}
