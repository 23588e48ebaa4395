package config

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"floodnet.oxfloodnet.org/internal/report"
	"floodnet.oxfloodnet.org/internal/utils"
	"github.com/getsentry/sentry-go"
	"github.com/spf13/viper"
)

var supportedConfigTypes = []string{".json", ".yaml", ".yml", ".toml"}

// ValidateConfigFlags checks the optional --config-file flag and rejects
// stray positional arguments.
func ValidateConfigFlags(configFile *string) error {
	if len(flag.Args()) > 0 {
		return fmt.Errorf("unexpected arguments: %s", strings.Join(flag.Args(), " "))
	}
	if *configFile == "" {
		return nil
	}
	ext := strings.ToLower(filepath.Ext(*configFile))
	if !slices.Contains(supportedConfigTypes, ext) {
		return fmt.Errorf("unsupported config file type %q, expected one of %s", ext, strings.Join(supportedConfigTypes, ", "))
	}
	if _, err := os.Stat(*configFile); err != nil {
		return fmt.Errorf("config file %s: %w", *configFile, err)
	}
	return nil
}

// Load builds the Config from defaults, an optional config file, FLOODNET_*
// environment variables and finally the explicitly set command line flags,
// in increasing order of precedence.
//
// overrides is keyed by viper key, e.g. "port" or "feed.url".
func Load(configFile string, overrides map[string]any) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			err = fmt.Errorf("failed to read config file %s: %w", configFile, err)
			report.ReportErrorWithSentryOptions(err, report.SentryReportOptions{
				Tags:  utils.MakeMap("file_path", configFile),
				Level: sentry.LevelError,
			})
			return nil, err
		}
	}

	// FLOODNET_FEED_URL -> feed.url
	v.SetEnvPrefix("FLOODNET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("sentry.dsn", "FLOODNET_SENTRY_DSN", "SENTRY_DSN"); err != nil {
		return nil, fmt.Errorf("failed to bind sentry dsn: %w", err)
	}

	for key, value := range overrides {
		v.Set(key, value)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := NewConfig(4000, "development")

	v.SetDefault("port", d.Port)
	v.SetDefault("env", d.Env)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("shutdown_timeout", d.ShutdownTimeout)

	v.SetDefault("feed.url", d.Feed.URL)
	v.SetDefault("feed.limit", d.Feed.Limit)
	v.SetDefault("feed.timeout", d.Feed.Timeout)
	v.SetDefault("feed.max_retries", d.Feed.MaxRetries)
	v.SetDefault("feed.filter_to_viewport", d.Feed.FilterToViewport)

	v.SetDefault("cache.ttl", d.Cache.TTL)
	v.SetDefault("cache.max_entries", d.Cache.MaxEntries)
	v.SetDefault("cache.redis_addr", "")
	v.SetDefault("cache.redis_password", "")
	v.SetDefault("cache.redis_db", 0)

	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.debug", false)
}

// Validate checks that every setting is present and sane, reporting all
// problems at once.
func (cfg *Config) Validate() error {
	var errs []string

	if cfg.Port <= 0 || cfg.Port > 65535 {
		errs = append(errs, fmt.Sprintf("port must be 1-65535, got %d", cfg.Port))
	}
	if !slices.Contains([]string{"development", "staging", "production", "testing"}, cfg.Env) {
		errs = append(errs, fmt.Sprintf("env must be development, staging, production or testing, got %q", cfg.Env))
	}
	if !slices.Contains([]string{"debug", "info", "warn", "error"}, strings.ToLower(cfg.LogLevel)) {
		errs = append(errs, fmt.Sprintf("log_level must be debug, info, warn or error, got %q", cfg.LogLevel))
	}
	if cfg.ShutdownTimeout <= 0 {
		errs = append(errs, "shutdown_timeout must be positive")
	}
	if !strings.HasPrefix(cfg.Feed.URL, "http://") && !strings.HasPrefix(cfg.Feed.URL, "https://") {
		errs = append(errs, fmt.Sprintf("feed.url must be an http(s) URL, got %q", cfg.Feed.URL))
	}
	if cfg.Feed.Limit <= 0 {
		errs = append(errs, fmt.Sprintf("feed.limit must be positive, got %d", cfg.Feed.Limit))
	}
	if cfg.Feed.Timeout <= 0 {
		errs = append(errs, "feed.timeout must be positive")
	}
	if cfg.Cache.TTL < 0 {
		errs = append(errs, "cache.ttl must not be negative")
	}
	if cfg.Cache.MaxEntries <= 0 {
		errs = append(errs, fmt.Sprintf("cache.max_entries must be positive, got %d", cfg.Cache.MaxEntries))
	}
	if cfg.Cache.RedisDB < 0 {
		errs = append(errs, fmt.Sprintf("cache.redis_db must not be negative, got %d", cfg.Cache.RedisDB))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
