package storage

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/jonasfroeller/tube-visibility-inspector/model"
)

const defaultMemorySize = 10000

// Memory is a bounded in-process store. It is lost on restart and meant for
// single instance deployments and the CLI.
type Memory struct {
	entries *lru.Cache[model.YoutubeVideoID, model.CacheEntry]
}

func NewMemory(size int) (*Memory, error) {
	if size <= 0 {
		size = defaultMemorySize
	}
	entries, err := lru.New[model.YoutubeVideoID, model.CacheEntry](size)
	if err != nil {
		return &Memory{}, fmt.Errorf("failed to create memory cache: %w", err)
	}

	return &Memory{entries: entries}, nil
}

func (m *Memory) Get(_ context.Context, ids []model.YoutubeVideoID, cutoff time.Time) (map[model.YoutubeVideoID]model.CacheEntry, error) {
	entries := make(map[model.YoutubeVideoID]model.CacheEntry, len(ids))
	for _, id := range ids {
		entry, ok := m.entries.Get(id)
		if !ok {
			continue
		}
		if !entry.Fresh(cutoff) {
			m.entries.Remove(id)
			continue
		}
		entries[id] = entry
	}

	return entries, nil
}

func (m *Memory) Upsert(_ context.Context, entries []model.CacheEntry) error {
	for _, e := range filterDefinitive(entries) {
		m.entries.Add(e.Record.ID, e)
	}

	return nil
}

func (m *Memory) Close() error {
	m.entries.Purge()
	return nil
}
