package config

import "time"

// Config holds all the configuration settings for our application.
type Config struct {
	Port            int           `mapstructure:"port"`
	Env             string        `mapstructure:"env"`
	LogLevel        string        `mapstructure:"log_level"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	Feed   FeedConfig   `mapstructure:"feed"`
	Cache  CacheConfig  `mapstructure:"cache"`
	Sentry SentryConfig `mapstructure:"sentry"`
}

// FeedConfig describes the upstream flood sensor feed.
type FeedConfig struct {
	URL     string        `mapstructure:"url"`
	Limit   int           `mapstructure:"limit"`
	Timeout time.Duration `mapstructure:"timeout"`
	// MaxRetries is the number of retries after a failed fetch. Negative
	// values retry until the request context ends.
	MaxRetries       int  `mapstructure:"max_retries"`
	FilterToViewport bool `mapstructure:"filter_to_viewport"`
}

// CacheConfig controls the HTTP response cache in front of the feed.
// An empty RedisAddr selects the in-process cache.
type CacheConfig struct {
	TTL           time.Duration `mapstructure:"ttl"`
	MaxEntries    int           `mapstructure:"max_entries"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
}

type SentryConfig struct {
	DSN   string `mapstructure:"dsn"`
	Debug bool   `mapstructure:"debug"`
}

const DefaultFeedURL = "https://benjaminbenben.cloudant.com/floodnet/_design/oxflood/_view/full"

// NewConfig creates a new Config with every default applied and the given
// port and environment.
func NewConfig(port int, env string) *Config {
	return &Config{
		Port:            port,
		Env:             env,
		LogLevel:        "info",
		ShutdownTimeout: 10 * time.Second,
		Feed: FeedConfig{
			URL:        DefaultFeedURL,
			Limit:      1,
			Timeout:    10 * time.Second,
			MaxRetries: 2,
		},
		Cache: CacheConfig{
			TTL:        time.Minute,
			MaxEntries: 256,
		},
	}
}

// UsesRedisCache reports whether responses are cached in Redis.
func (cfg *Config) UsesRedisCache() bool {
	return cfg.Cache.RedisAddr != ""
}
