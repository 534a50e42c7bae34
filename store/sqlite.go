package store

import (
	"context"
	"database/sql"
	"strings"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"

	// Import the SQLite driver.
	_ "modernc.org/sqlite"
)

type sqliteDialect struct{}

func (sqliteDialect) placeholder(int) string { return "?" }

func (sqliteDialect) schema() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS user_profiles (
			id   TEXT PRIMARY KEY,
			data TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS user_preferences (
			id   TEXT PRIMARY KEY,
			data TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS user_behaviors (
			id   TEXT PRIMARY KEY,
			data TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS user_vectors (
			id                TEXT PRIMARY KEY,
			profile_vector    TEXT,
			preference_vector TEXT
		)`,
	}
}

// Vectors are stored as JSON arrays.
func (sqliteDialect) vectorArg(v []float32) (any, error) {
	if len(v) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (sqliteDialect) vectorDest() (any, func() ([]float32, error)) {
	var raw sql.NullString
	return &raw, func() ([]float32, error) {
		if !raw.Valid || raw.String == "" {
			return nil, nil
		}
		var v []float32
		if err := json.Unmarshal([]byte(raw.String), &v); err != nil {
			return nil, err
		}
		return v, nil
	}
}

func openSQLite(ctx context.Context, dsn string) (Store, error) {
	if dsn == "" {
		return nil, errors.New("sqlite store requires a dsn")
	}
	// modernc.org/sqlite takes pragmas as _pragma= query parameters.
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	db, err := sql.Open("sqlite", dsn+sep+"_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, errors.Wrapf(err, "open sqlite %s", dsn)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "ping sqlite")
	}
	return &sqlStore{db: db, d: sqliteDialect{}}, nil
}
