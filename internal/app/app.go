package app

import (
	"log/slog"
	"net/http"

	"floodnet.oxfloodnet.org/internal/config"
	"floodnet.oxfloodnet.org/internal/floodnet"
)

// Application holds the configuration, the sensor feed service, the logger
// and the version, and serves every HTTP route.
type Application struct {
	Config          *config.Config
	FloodnetService *floodnet.FloodnetService
	Logger          *slog.Logger
	Version         string
}

// New creates and wires all dependencies for the Application. The client
// is used for every request to the sensor feed.
func New(cfg *config.Config, logger *slog.Logger, client *http.Client, version string) *Application {
	backoffStore := config.NewBackoffStore(nil)
	floodnetService := floodnet.NewFloodnetService(cfg.Feed, client, backoffStore, logger, nil)

	return &Application{
		Config:          cfg,
		FloodnetService: floodnetService,
		Logger:          logger,
		Version:         version,
	}
}
