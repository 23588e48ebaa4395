package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"floodnet.oxfloodnet.org/internal/app"
	"floodnet.oxfloodnet.org/internal/config"
	"floodnet.oxfloodnet.org/internal/httpcache"
	"floodnet.oxfloodnet.org/internal/report"
	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"
)

// Overridden at build time with -ldflags "-X main.version=...".
var version = "1.0.0"

func main() {
	_ = godotenv.Load(".env")

	var (
		port       = flag.Int("port", 4000, "API server port")
		env        = flag.String("env", "development", "Environment (development|staging|production|testing)")
		configFile = flag.String("config-file", "", "Path to a JSON, YAML or TOML configuration file")
	)
	flag.Parse()

	if err := config.ValidateConfigFlags(configFile); err != nil {
		fmt.Println("Error:", err)
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load(*configFile, flagOverrides(map[string]any{
		"port": *port,
		"env":  *env,
	}))
	if err != nil {
		fmt.Printf("Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(os.Stdout, cfg)

	if err := report.SetupSentry(cfg.Sentry.DSN, cfg.Env, version, cfg.Sentry.Debug); err != nil {
		logger.Error("failed to initialize sentry", "error", err)
	}
	defer report.FlushSentry()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend, closeBackend, err := newCacheBackend(ctx, cfg, logger)
	if err != nil {
		report.ReportError(err, sentry.LevelFatal)
		report.FlushSentry()
		logger.Error("failed to create response cache", "error", err)
		os.Exit(1)
	}
	defer closeBackend()

	client := app.NewPooledClient(cfg.Feed.Timeout, backend, cfg.Cache.TTL, logger)
	application := app.New(cfg, logger, client, version)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      application.Routes(ctx),
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: cfg.Feed.Timeout + 5*time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", srv.Addr, "env", cfg.Env, "feed_url", cfg.Feed.URL, "redis_cache", cfg.UsesRedisCache())
		serverErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			report.ReportError(err, sentry.LevelFatal)
			report.FlushSentry()
			logger.Error("server stopped", "error", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logger.Info("shutting down", "timeout", cfg.ShutdownTimeout)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}

// flagOverrides keeps only the flags that were set on the command line, so
// unset flags do not mask config file and environment values.
func flagOverrides(values map[string]any) map[string]any {
	overrides := make(map[string]any)
	flag.Visit(func(f *flag.Flag) {
		if v, ok := values[f.Name]; ok {
			overrides[f.Name] = v
		}
	})
	return overrides
}

// newLogger returns a text logger in development and a JSON logger
// everywhere else.
func newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.LogLevel)}
	if cfg.Env == "development" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts)).With("service", "floodnet", "version", version)
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// newCacheBackend picks Redis when an address is configured and the
// in-process LRU otherwise. The returned func releases the backend.
func newCacheBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger) (httpcache.Backend, func(), error) {
	if !cfg.UsesRedisCache() {
		logger.Debug("using in-memory response cache", "max_entries", cfg.Cache.MaxEntries, "ttl", cfg.Cache.TTL)
		return httpcache.NewMemoryBackend(cfg.Cache.MaxEntries, nil), func() {}, nil
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	backend, err := httpcache.NewRedisBackend(pingCtx, cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("using redis response cache", "addr", cfg.Cache.RedisAddr, "db", cfg.Cache.RedisDB)
	return backend, func() {
		if err := backend.Close(); err != nil {
			logger.Warn("failed to close redis client", "error", err)
		}
	}, nil
}
