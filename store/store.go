// Package store is the data access layer of the ranking engine. Every driver
// exposes the four user collections (profiles, refined preferences, vectors
// and behaviour logs) as one read-only match.Snapshot per request, and
// accepts writes from the seeder.
package store

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/Cici-YuMao/AIris/match"
)

// Collection names, used in error messages and metrics labels.
const (
	Profiles    = "profiles"
	Preferences = "preferences"
	Vectors     = "vectors"
	Behaviors   = "behaviors"
)

// Supported drivers.
const (
	DriverJSON     = "json"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config selects and addresses a driver. DSN is used by the SQL drivers, Dir
// by the JSON file driver.
type Config struct {
	Driver string `koanf:"driver" validate:"required,oneof=json postgres sqlite"`
	DSN    string `koanf:"dsn" validate:"required_unless=Driver json"`
	Dir    string `koanf:"dir" validate:"required_if=Driver json"`
	// AutoMigrate runs Migrate when the store is opened by the server.
	AutoMigrate bool `koanf:"auto_migrate"`
}

// Source loads the four collections as one consistent snapshot.
type Source interface {
	Load(ctx context.Context) (*match.Snapshot, error)
}

// ProfileFetcher reads single profiles without loading a whole snapshot.
// IDs without a profile are absent from the returned map.
type ProfileFetcher interface {
	ProfilesByID(ctx context.Context, ids []match.ID) (map[match.ID]*match.UserProfile, error)
}

// Writer upserts records by user ID.
type Writer interface {
	PutProfiles(ctx context.Context, profiles []match.UserProfile) error
	PutPreferences(ctx context.Context, prefs []match.UserPreference) error
	PutVectors(ctx context.Context, vectors []match.VectorRecord) error
	PutBehaviors(ctx context.Context, behaviors []match.BehaviorRecord) error
}

// Store is what every driver implements.
type Store interface {
	Source
	ProfileFetcher
	Writer
	// Migrate creates whatever schema or directory the driver needs.
	Migrate(ctx context.Context) error
	Close() error
}

// Open returns the driver named by cfg.Driver. SQL drivers are pinged before
// returning.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case DriverJSON:
		if cfg.Dir == "" {
			return nil, errors.New("json store requires a directory")
		}
		return NewJSONFiles(cfg.Dir), nil
	case DriverPostgres:
		return openPostgres(ctx, cfg.DSN)
	case DriverSQLite:
		return openSQLite(ctx, cfg.DSN)
	default:
		return nil, errors.Errorf("unknown store driver %q", cfg.Driver)
	}
}
