package storage

import (
	"database/sql"
	"fmt"
)

var pgMigration = []string{
	`CREATE TYPE video_status AS ENUM ('public', 'unlisted', 'private', 'deleted')`,
	`CREATE TABLE video_cache (
id VARCHAR(16) PRIMARY KEY,
title TEXT NOT NULL,
status video_status NOT NULL,
thumbnail_url TEXT NOT NULL DEFAULT '',
published_at BIGINT,
content_type VARCHAR(16) NOT NULL,
duration_seconds INTEGER,
cached_at BIGINT NOT NULL
)`,
	`CREATE INDEX video_cache_cached_at ON video_cache (cached_at)`,
}

var sqliteMigration = []string{
	`CREATE TABLE video_cache (
id TEXT PRIMARY KEY,
title TEXT NOT NULL,
status TEXT NOT NULL CHECK (status IN ('public', 'unlisted', 'private', 'deleted')),
thumbnail_url TEXT NOT NULL DEFAULT '',
published_at INTEGER,
content_type TEXT NOT NULL,
duration_seconds INTEGER,
cached_at INTEGER NOT NULL
)`,
	`CREATE INDEX video_cache_cached_at ON video_cache (cached_at)`,
}

func migrate(db *sql.DB, d dialect, wanted []string) error {
	if _, err := db.Exec(d.migrationTable); err != nil {
		return err
	}

	rows, err := db.Query(`SELECT query FROM migration ORDER BY id`)
	if err != nil {
		return err
	}

	existing := []string{}
	for rows.Next() {
		var query string
		if err := rows.Scan(&query); err != nil {
			rows.Close()
			return err
		}
		existing = append(existing, query)
	}
	rows.Close()

	missing, err := pendingMigrations(wanted, existing)
	if err != nil {
		return err
	}

	for _, query := range missing {
		if _, err := db.Exec(query); err != nil {
			return err
		}

		if _, err := db.Exec(`INSERT INTO migration (query) VALUES (`+d.placeholder(1)+`)`, query); err != nil {
			return err
		}
	}

	return nil
}

// pendingMigrations returns the tail of wanted that has not run yet. The
// applied list must be a prefix of wanted.
func pendingMigrations(wanted, applied []string) ([]string, error) {
	if len(applied) > len(wanted) {
		return nil, fmt.Errorf("database has %d migrations, this build knows %d", len(applied), len(wanted))
	}
	for i, query := range applied {
		if wanted[i] != query {
			return nil, fmt.Errorf("migration %d differs from the applied one: %q", i+1, wanted[i])
		}
	}

	return wanted[len(applied):], nil
}
