package storage

import (
	"context"
	"fmt"
	"time"
)

// Store is a CacheRepository that holds resources.
type Store interface {
	CacheRepository
	Close() error
}

type Config struct {
	Backend    string // postgres, sqlite, redis or memory
	Postgres   PostgresInfo
	SQLitePath string
	RedisURL   string
	MemorySize int
	TTL        time.Duration
}

// Open connects the backend named in cfg.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Backend {
	case "postgres":
		return ConnectPostgres(cfg.Postgres)
	case "sqlite":
		return OpenSQLite(cfg.SQLitePath)
	case "redis":
		return ConnectRedis(ctx, cfg.RedisURL, cfg.TTL)
	case "memory", "":
		return NewMemory(cfg.MemorySize)
	}

	return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
}
