package main

import (
	"fmt"
	"time"

	"github.com/jonasfroeller/tube-visibility-inspector/resolver"
	"github.com/jonasfroeller/tube-visibility-inspector/storage"
	"github.com/spf13/viper"
	"golang.org/x/exp/slog"
)

type Config struct {
	YoutubeAPIKey  string
	Port           int
	LogLevel       slog.Level
	Storage        storage.Config
	Engine         resolver.Config
	RequestTimeout time.Duration
	HTTPTimeout    time.Duration
}

// newViper reads configuration from the environment. Keys are the lower
// case form of the variable names, e.g. api_port for API_PORT.
func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("youtube_api_key", "")
	v.SetDefault("api_port", 8080)
	v.SetDefault("log_level", "info")
	v.SetDefault("cache_backend", "memory")
	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", "5432")
	v.SetDefault("postgres_user", "tvi")
	v.SetDefault("postgres_password", "tvi")
	v.SetDefault("postgres_db", "tvi")
	v.SetDefault("sqlite_path", "tvi-cache.db")
	v.SetDefault("redis_url", "redis://localhost:6379/0")
	v.SetDefault("memory_cache_size", 10000)
	v.SetDefault("cache_ttl", resolver.DefaultCacheTTL)
	v.SetDefault("classify_workers", resolver.DefaultWorkers)
	v.SetDefault("page_delay", resolver.DefaultPageDelay)
	v.SetDefault("probe_delay", resolver.DefaultProbeDelay)
	v.SetDefault("max_pages", resolver.DefaultMaxPages)
	v.SetDefault("max_token_refresh", resolver.DefaultMaxTokenRefresh)
	v.SetDefault("discovery_timeout", resolver.DefaultDiscoveryTimeout)
	v.SetDefault("request_timeout", 5*time.Minute)
	v.SetDefault("http_timeout", 20*time.Second)

	return v
}

func loadConfig(v *viper.Viper) (Config, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(v.GetString("log_level"))); err != nil {
		return Config{}, fmt.Errorf("%w: invalid LOG_LEVEL: %w", resolver.ErrConfig, err)
	}

	cfg := Config{
		YoutubeAPIKey: v.GetString("youtube_api_key"),
		Port:          v.GetInt("api_port"),
		LogLevel:      level,
		Storage: storage.Config{
			Backend: v.GetString("cache_backend"),
			Postgres: storage.PostgresInfo{
				Host:     v.GetString("postgres_host"),
				Port:     v.GetString("postgres_port"),
				User:     v.GetString("postgres_user"),
				Password: v.GetString("postgres_password"),
				Database: v.GetString("postgres_db"),
			},
			SQLitePath: v.GetString("sqlite_path"),
			RedisURL:   v.GetString("redis_url"),
			MemorySize: v.GetInt("memory_cache_size"),
			TTL:        v.GetDuration("cache_ttl"),
		},
		Engine: resolver.Config{
			Discovery: resolver.DiscoveryConfig{
				Pagination: resolver.PaginationConfig{
					MaxPages:        v.GetInt("max_pages"),
					PageDelay:       v.GetDuration("page_delay"),
					MaxTokenRefresh: v.GetInt("max_token_refresh"),
				},
				ProbeDelay: v.GetDuration("probe_delay"),
				Timeout:    v.GetDuration("discovery_timeout"),
			},
			Status: resolver.StatusConfig{
				TTL:     v.GetDuration("cache_ttl"),
				Workers: v.GetInt("classify_workers"),
			},
		},
		RequestTimeout: v.GetDuration("request_timeout"),
		HTTPTimeout:    v.GetDuration("http_timeout"),
	}

	if cfg.Port <= 0 || cfg.Port > 65535 {
		return Config{}, fmt.Errorf("%w: invalid API_PORT %d", resolver.ErrConfig, cfg.Port)
	}
	switch cfg.Storage.Backend {
	case "postgres", "sqlite", "redis", "memory":
	default:
		return Config{}, fmt.Errorf("%w: invalid CACHE_BACKEND %q", resolver.ErrConfig, cfg.Storage.Backend)
	}
	if cfg.Storage.TTL <= 0 {
		return Config{}, fmt.Errorf("%w: invalid CACHE_TTL %s", resolver.ErrConfig, cfg.Storage.TTL)
	}

	return cfg, nil
}
