package storage

import (
	"database/sql"

	_ "modernc.org/sqlite"
)

var sqliteDialect = dialect{
	name: "sqlite",
	migrationTable: `CREATE TABLE IF NOT EXISTS migration
("id" INTEGER PRIMARY KEY AUTOINCREMENT, "query" TEXT)`,
	placeholder: func(int) string { return "?" },
}

type SQLite struct {
	sqlCache
}

// OpenSQLite opens (or creates) the database file at path. ":memory:" keeps
// everything in a single in-process connection.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return &SQLite{}, err
	}
	// sqlite allows a single writer
	db.SetMaxOpenConns(1)

	return NewSQLite(db)
}

func NewSQLite(db *sql.DB) (*SQLite, error) {
	s := &SQLite{sqlCache{db: db, d: sqliteDialect}}
	if err := migrate(db, sqliteDialect, sqliteMigration); err != nil {
		return &SQLite{}, err
	}

	return s, nil
}
