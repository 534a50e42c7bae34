package store

import (
	"context"
	"database/sql"
	"strconv"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/pgvector/pgvector-go"
	"github.com/pkg/errors"
)

type postgresDialect struct{}

func (postgresDialect) placeholder(n int) string { return "$" + strconv.Itoa(n) }

func (postgresDialect) schema() []string {
	return []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE TABLE IF NOT EXISTS user_profiles (
			id   TEXT PRIMARY KEY,
			data JSONB NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS user_preferences (
			id   TEXT PRIMARY KEY,
			data JSONB NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS user_behaviors (
			id   TEXT PRIMARY KEY,
			data JSONB NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS user_vectors (
			id                TEXT PRIMARY KEY,
			profile_vector    vector,
			preference_vector vector
		)`,
	}
}

func (postgresDialect) vectorArg(v []float32) (any, error) {
	if len(v) == 0 {
		return nil, nil
	}
	return pgvector.NewVector(v), nil
}

func (postgresDialect) vectorDest() (any, func() ([]float32, error)) {
	var v *pgvector.Vector
	return &v, func() ([]float32, error) {
		if v == nil {
			return nil, nil
		}
		return v.Slice(), nil
	}
}

func openPostgres(ctx context.Context, dsn string) (Store, error) {
	if dsn == "" {
		return nil, errors.New("postgres store requires a dsn")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open postgres")
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "ping postgres")
	}
	return &sqlStore{db: db, d: postgresDialect{}}, nil
}
