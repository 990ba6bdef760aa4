package storage

import (
	"database/sql"
	"fmt"
	"strconv"

	_ "github.com/lib/pq"
)

type PostgresInfo struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
}

var postgresDialect = dialect{
	name: "postgres",
	migrationTable: `CREATE TABLE IF NOT EXISTS migration
("id" SERIAL PRIMARY KEY, "query" TEXT)`,
	placeholder: func(i int) string { return "$" + strconv.Itoa(i) },
}

type Postgres struct {
	sqlCache
}

// ConnectPostgres opens a connection pool for info and runs the migrations.
func ConnectPostgres(info PostgresInfo) (*Postgres, error) {
	db, err := sql.Open("postgres", fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable", info.Host, info.Port, info.User, info.Password, info.Database))
	if err != nil {
		return &Postgres{}, err
	}
	if err := db.Ping(); err != nil {
		return &Postgres{}, err
	}

	return NewPostgres(db)
}

func NewPostgres(db *sql.DB) (*Postgres, error) {
	p := &Postgres{sqlCache{db: db, d: postgresDialect}}
	if err := migrate(db, postgresDialect, pgMigration); err != nil {
		return &Postgres{}, err
	}

	return p, nil
}
