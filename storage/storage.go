package storage

import (
	"context"
	"time"

	"github.com/jonasfroeller/tube-visibility-inspector/model"
)

// CacheRepository stores the last resolved state per video id.
type CacheRepository interface {
	// Get returns the entries for ids whose CachedAt lies strictly after cutoff.
	// Unknown and stale ids are absent from the result.
	Get(ctx context.Context, ids []model.YoutubeVideoID, cutoff time.Time) (map[model.YoutubeVideoID]model.CacheEntry, error)
	// Upsert writes entries keyed by id, replacing earlier versions.
	Upsert(ctx context.Context, entries []model.CacheEntry) error
}

// filterDefinitive drops entries a store must never persist.
func filterDefinitive(entries []model.CacheEntry) []model.CacheEntry {
	out := make([]model.CacheEntry, 0, len(entries))
	for _, e := range entries {
		if !e.Record.Status.Definitive() {
			continue
		}
		e.Record.FromCache = false
		out = append(out, e)
	}
	return out
}
