package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jonasfroeller/tube-visibility-inspector/model"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "tvi:video:"

// Redis keeps one JSON document per video. Keys expire after ttl so stale
// entries also disappear from the store itself.
type Redis struct {
	rdb *redis.Client
	ttl time.Duration
}

type redisEntry struct {
	Record   model.VideoRecord `json:"record"`
	CachedAt int64             `json:"cachedAt"`
}

func ConnectRedis(ctx context.Context, url string, ttl time.Duration) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return &Redis{}, fmt.Errorf("invalid redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return &Redis{}, fmt.Errorf("redis unreachable: %w", err)
	}

	return NewRedis(rdb, ttl), nil
}

func NewRedis(rdb *redis.Client, ttl time.Duration) *Redis {
	return &Redis{rdb: rdb, ttl: ttl}
}

func redisKey(id model.YoutubeVideoID) string {
	return redisKeyPrefix + string(id)
}

func (r *Redis) Get(ctx context.Context, ids []model.YoutubeVideoID, cutoff time.Time) (map[model.YoutubeVideoID]model.CacheEntry, error) {
	entries := make(map[model.YoutubeVideoID]model.CacheEntry, len(ids))
	if len(ids) == 0 {
		return entries, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = redisKey(id)
	}
	vals, err := r.rdb.MGet(ctx, keys...).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return map[model.YoutubeVideoID]model.CacheEntry{}, fmt.Errorf("redis: mget: %w", err)
	}

	for _, val := range vals {
		raw, ok := val.(string)
		if !ok {
			continue
		}
		var re redisEntry
		if err := json.Unmarshal([]byte(raw), &re); err != nil {
			continue
		}
		entry := model.CacheEntry{Record: re.Record, CachedAt: time.UnixMilli(re.CachedAt).UTC()}
		if !entry.Fresh(cutoff) {
			continue
		}
		entries[entry.Record.ID] = entry
	}

	return entries, nil
}

func (r *Redis) Upsert(ctx context.Context, entries []model.CacheEntry) error {
	entries = filterDefinitive(entries)
	if len(entries) == 0 {
		return nil
	}

	pipe := r.rdb.Pipeline()
	for _, e := range entries {
		data, err := json.Marshal(redisEntry{Record: e.Record, CachedAt: e.CachedAt.UnixMilli()})
		if err != nil {
			return fmt.Errorf("redis: marshal %s: %w", e.Record.ID, err)
		}
		pipe.Set(ctx, redisKey(e.Record.ID), data, r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: upsert: %w", err)
	}

	return nil
}

func (r *Redis) Close() error {
	return r.rdb.Close()
}
