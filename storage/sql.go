package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jonasfroeller/tube-visibility-inspector/model"
)

// sqlChunk bounds the number of ids bound into one IN clause.
const sqlChunk = 500

type dialect struct {
	name           string
	migrationTable string
	placeholder    func(i int) string
}

// sqlCache implements CacheRepository on top of database/sql. Timestamps are
// stored as unix milliseconds so Postgres and SQLite share the queries.
type sqlCache struct {
	db *sql.DB
	d  dialect
}

func (c *sqlCache) Close() error {
	return c.db.Close()
}

func (c *sqlCache) Get(ctx context.Context, ids []model.YoutubeVideoID, cutoff time.Time) (map[model.YoutubeVideoID]model.CacheEntry, error) {
	entries := make(map[model.YoutubeVideoID]model.CacheEntry, len(ids))
	for start := 0; start < len(ids); start += sqlChunk {
		end := min(start+sqlChunk, len(ids))
		if err := c.getChunk(ctx, ids[start:end], cutoff, entries); err != nil {
			return map[model.YoutubeVideoID]model.CacheEntry{}, err
		}
	}

	return entries, nil
}

func (c *sqlCache) getChunk(ctx context.Context, ids []model.YoutubeVideoID, cutoff time.Time, entries map[model.YoutubeVideoID]model.CacheEntry) error {
	phs := make([]string, len(ids))
	args := make([]any, 0, len(ids)+1)
	for i, id := range ids {
		phs[i] = c.d.placeholder(i + 1)
		args = append(args, string(id))
	}
	args = append(args, cutoff.UnixMilli())

	query := fmt.Sprintf(`SELECT id, title, status, thumbnail_url, published_at, content_type, duration_seconds, cached_at
FROM video_cache
WHERE id IN (%s) AND cached_at > %s`, strings.Join(phs, ", "), c.d.placeholder(len(ids)+1))

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: query cache: %w", c.d.name, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id, title, status, thumb, contentType string
			published, duration                   sql.NullInt64
			cachedAt                              int64
		)
		if err := rows.Scan(&id, &title, &status, &thumb, &published, &contentType, &duration, &cachedAt); err != nil {
			return fmt.Errorf("%s: scan cache row: %w", c.d.name, err)
		}
		rec := model.VideoRecord{
			ID:           model.YoutubeVideoID(id),
			Title:        title,
			Status:       model.VideoStatus(status),
			ThumbnailURL: thumb,
			ContentType:  model.ContentType(contentType),
		}
		if published.Valid {
			t := time.UnixMilli(published.Int64).UTC()
			rec.PublishedAt = &t
		}
		if duration.Valid {
			d := int(duration.Int64)
			rec.DurationSeconds = &d
		}
		entries[rec.ID] = model.CacheEntry{
			Record:   rec,
			CachedAt: time.UnixMilli(cachedAt).UTC(),
		}
	}

	return rows.Err()
}

func (c *sqlCache) Upsert(ctx context.Context, entries []model.CacheEntry) error {
	entries = filterDefinitive(entries)
	if len(entries) == 0 {
		return nil
	}

	phs := make([]string, 8)
	for i := range phs {
		phs[i] = c.d.placeholder(i + 1)
	}
	query := fmt.Sprintf(`INSERT INTO video_cache
(id, title, status, thumbnail_url, published_at, content_type, duration_seconds, cached_at)
VALUES (%s)
ON CONFLICT (id) DO UPDATE SET
title = excluded.title,
status = excluded.status,
thumbnail_url = excluded.thumbnail_url,
published_at = excluded.published_at,
content_type = excluded.content_type,
duration_seconds = excluded.duration_seconds,
cached_at = excluded.cached_at`, strings.Join(phs, ", "))

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin upsert: %w", c.d.name, err)
	}
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("%s: prepare upsert: %w", c.d.name, err)
	}
	defer stmt.Close()

	for _, e := range entries {
		var published, duration sql.NullInt64
		if e.Record.PublishedAt != nil {
			published = sql.NullInt64{Int64: e.Record.PublishedAt.UnixMilli(), Valid: true}
		}
		if e.Record.DurationSeconds != nil {
			duration = sql.NullInt64{Int64: int64(*e.Record.DurationSeconds), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx,
			string(e.Record.ID),
			e.Record.Title,
			string(e.Record.Status),
			e.Record.ThumbnailURL,
			published,
			string(e.Record.ContentType),
			duration,
			e.CachedAt.UnixMilli(),
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("%s: upsert %s: %w", c.d.name, e.Record.ID, err)
		}
	}

	return tx.Commit()
}
