package resolver

import (
	"context"
	"fmt"
	"time"

	"github.com/jonasfroeller/tube-visibility-inspector/fetcher"
	"github.com/jonasfroeller/tube-visibility-inspector/model"
	"github.com/jonasfroeller/tube-visibility-inspector/storage"
	"golang.org/x/exp/slog"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultCacheTTL = 24 * time.Hour
	DefaultWorkers  = 8
)

type StatusConfig struct {
	TTL     time.Duration
	Workers int
}

func (c StatusConfig) withDefaults() StatusConfig {
	if c.TTL <= 0 {
		c.TTL = DefaultCacheTTL
	}
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}

	return c
}

// StatusResolver turns video ids into records using the cache, the Data API
// and, for ids the API does not return, the watch page.
type StatusResolver struct {
	cache      storage.CacheRepository
	metadata   MetadataFetcher
	classifier Classifier
	cfg        StatusConfig
	observer   Observer
	logger     *slog.Logger
	now        func() time.Time
}

func NewStatusResolver(cache storage.CacheRepository, metadata MetadataFetcher, classifier Classifier, cfg StatusConfig, observer Observer, logger *slog.Logger) *StatusResolver {
	return &StatusResolver{
		cache:      cache,
		metadata:   metadata,
		classifier: classifier,
		cfg:        cfg.withDefaults(),
		observer:   observer,
		logger:     logger,
		now:        time.Now,
	}
}

// Resolve returns a record for every id it could resolve. A failed batch
// lookup aborts the whole call.
func (s *StatusResolver) Resolve(ctx context.Context, ids []model.YoutubeVideoID, hints map[model.YoutubeVideoID]model.ContentType, ignoreCache bool) (map[model.YoutubeVideoID]model.VideoRecord, error) {
	records := make(map[model.YoutubeVideoID]model.VideoRecord, len(ids))
	work := ids
	if !ignoreCache && s.cache != nil && len(ids) > 0 {
		cutoff := s.now().Add(-s.cfg.TTL)
		cached, err := s.cache.Get(ctx, ids, cutoff)
		if err != nil {
			s.logger.Warn("cache read failed, resolving everything", slog.String("err", err.Error()))
			cached = nil
		}
		work = make([]model.YoutubeVideoID, 0, len(ids))
		for _, id := range ids {
			entry, ok := cached[id]
			if !ok || !entry.Fresh(cutoff) {
				work = append(work, id)
				continue
			}
			rec := entry.Record
			rec.ID = id
			rec.FromCache = true
			records[id] = rec
		}
		s.observer.CacheLookup(len(records), len(work))
	}

	for start := 0; start < len(work); start += fetcher.MaxBatch {
		end := min(start+fetcher.MaxBatch, len(work))
		fresh, persist, err := s.resolveBatch(ctx, work[start:end], hints)
		if err != nil {
			return map[model.YoutubeVideoID]model.VideoRecord{}, err
		}
		for _, rec := range fresh {
			records[rec.ID] = rec
		}
		s.store(ctx, persist)
	}

	return records, nil
}

// resolveBatch returns every record of the batch and the subset that is safe
// to cache. Missing ids classified after ctx ended only carry the deleted
// fallback and are left out of the second list.
func (s *StatusResolver) resolveBatch(ctx context.Context, batch []model.YoutubeVideoID, hints map[model.YoutubeVideoID]model.ContentType) ([]model.VideoRecord, []model.VideoRecord, error) {
	mds, err := s.metadata.FetchMetadata(ctx, batch)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrBatchLookup, err)
	}

	records := make([]model.VideoRecord, 0, len(batch))
	missing := []model.YoutubeVideoID{}
	for _, id := range batch {
		md, ok := mds[id]
		if !ok {
			missing = append(missing, id)
			continue
		}
		records = append(records, s.fromMetadata(id, md, hints[id]))
	}
	s.observer.BatchLookup(len(batch), len(missing))

	persist := append([]model.VideoRecord{}, records...)
	classified := s.classifyMissing(ctx, missing, hints)
	if ctx.Err() == nil {
		persist = append(persist, classified...)
	} else if len(classified) > 0 {
		s.logger.Warn("classification interrupted, not caching missing videos", slog.Int("videos", len(classified)), slog.String("err", ctx.Err().Error()))
	}

	return append(records, classified...), persist, nil
}

func (s *StatusResolver) fromMetadata(id model.YoutubeVideoID, md fetcher.Metadata, hint model.ContentType) model.VideoRecord {
	rec := model.VideoRecord{
		ID:           id,
		Title:        md.Title,
		Status:       model.VideoStatus(md.PrivacyStatus),
		ThumbnailURL: md.Thumbnail,
		ContentType:  hint,
	}
	switch rec.Status {
	case model.StatusPublic, model.StatusUnlisted, model.StatusPrivate:
	default:
		s.logger.Warn("unexpected privacy status, treating as public", slog.String("id", string(id)), slog.String("privacyStatus", md.PrivacyStatus))
		rec.Status = model.StatusPublic
	}
	if md.PublishedAt != "" {
		if published, err := time.Parse(time.RFC3339, md.PublishedAt); err == nil {
			rec.PublishedAt = &published
		}
	}
	if seconds, err := model.ParseDuration(md.Duration); err == nil {
		rec.DurationSeconds = &seconds
		if rec.ContentType == "" {
			rec.ContentType = model.ClassifyDuration(seconds)
		}
	} else if md.Duration != "" {
		s.logger.Debug("unparsable duration", slog.String("id", string(id)), slog.String("duration", md.Duration))
	}
	if rec.ContentType == "" {
		rec.ContentType = model.ContentVideo
	}

	return rec
}

// classifyMissing fans out over the watch pages with at most Workers
// requests in flight.
func (s *StatusResolver) classifyMissing(ctx context.Context, missing []model.YoutubeVideoID, hints map[model.YoutubeVideoID]model.ContentType) []model.VideoRecord {
	if len(missing) == 0 {
		return nil
	}

	statuses := make([]model.VideoStatus, len(missing))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)
	for i, id := range missing {
		g.Go(func() error {
			statuses[i] = model.StatusDeleted
			if s.classifier != nil {
				statuses[i] = s.classifier.ClassifyMissingVideo(gctx, id)
			}
			return nil
		})
	}
	_ = g.Wait()

	records := make([]model.VideoRecord, len(missing))
	for i, id := range missing {
		status := statuses[i]
		if status != model.StatusPrivate {
			status = model.StatusDeleted
		}
		title := model.TitleNotFound
		if status == model.StatusPrivate {
			title = model.TitlePrivate
		}
		contentType := hints[id]
		if contentType == "" {
			contentType = model.ContentVideo
		}
		records[i] = model.VideoRecord{ID: id, Title: title, Status: status, ContentType: contentType}
		s.observer.MissingClassified(status)
	}

	return records
}

// store persists definitive records. Failures are reported, not returned.
func (s *StatusResolver) store(ctx context.Context, records []model.VideoRecord) {
	if s.cache == nil || len(records) == 0 {
		return
	}

	now := s.now()
	entries := make([]model.CacheEntry, 0, len(records))
	for _, rec := range records {
		if !rec.Status.Definitive() {
			continue
		}
		rec.FromCache = false
		entries = append(entries, model.CacheEntry{Record: rec, CachedAt: now})
	}
	if err := s.cache.Upsert(ctx, entries); err != nil {
		s.logger.Warn("cache write failed", slog.Int("records", len(entries)), slog.String("err", err.Error()))
		s.observer.CacheWriteFailed(err)
	}
}
