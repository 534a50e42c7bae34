package store

import (
	"context"
	"database/sql"
	"strings"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/Cici-YuMao/AIris/match"
)

// Table names shared by the SQL drivers.
const (
	profilesTable    = "user_profiles"
	preferencesTable = "user_preferences"
	vectorsTable     = "user_vectors"
	behaviorsTable   = "user_behaviors"
)

// dialect is the part of the SQL store that differs between databases.
type dialect interface {
	placeholder(n int) string
	schema() []string
	// vectorArg encodes a vector for a bind parameter. Empty vectors are
	// stored as NULL.
	vectorArg(v []float32) (any, error)
	// vectorDest returns a scan destination and a function that decodes it
	// after Scan.
	vectorDest() (any, func() ([]float32, error))
}

// sqlStore keeps profiles, preferences and behaviour logs as JSON documents
// in (id, data) tables and vectors in their own columns.
type sqlStore struct {
	db *sql.DB
	d  dialect
}

func (s *sqlStore) Migrate(ctx context.Context) error {
	for _, stmt := range s.d.schema() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrapf(err, "migrate: %s", firstLine(stmt))
		}
	}
	return nil
}

func (s *sqlStore) Close() error {
	return s.db.Close()
}

func (s *sqlStore) Load(ctx context.Context) (*match.Snapshot, error) {
	var (
		profiles  []match.UserProfile
		prefs     []match.UserPreference
		vectors   []match.VectorRecord
		behaviors []match.BehaviorRecord
	)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.eachDocument(ctx, profilesTable, Profiles, func(id match.ID, data []byte) error {
			var p match.UserProfile
			if err := json.Unmarshal(data, &p); err != nil {
				return err
			}
			p.ID = id
			profiles = append(profiles, p)
			return nil
		})
	})
	g.Go(func() error {
		return s.eachDocument(ctx, preferencesTable, Preferences, func(id match.ID, data []byte) error {
			p := match.UserPreference{ID: id}
			if err := json.Unmarshal(data, &p); err != nil {
				return err
			}
			p.ID = id
			prefs = append(prefs, p)
			return nil
		})
	})
	g.Go(func() (err error) {
		vectors, err = s.loadVectors(ctx)
		return err
	})
	g.Go(func() error {
		return s.eachDocument(ctx, behaviorsTable, Behaviors, func(id match.ID, data []byte) error {
			var b match.BehaviorRecord
			if err := json.Unmarshal(data, &b); err != nil {
				return err
			}
			b.ID = id
			behaviors = append(behaviors, b)
			return nil
		})
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return match.NewSnapshot(profiles, prefs, vectors, behaviors), nil
}

func (s *sqlStore) ProfilesByID(ctx context.Context, ids []match.ID) (map[match.ID]*match.UserProfile, error) {
	out := make(map[match.ID]*match.UserProfile, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = s.d.placeholder(i + 1)
		args[i] = string(id)
	}
	query := `SELECT id, data FROM ` + profilesTable + ` WHERE id IN (` + strings.Join(placeholders, ", ") + `)`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query profiles")
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		var data []byte
		if err := rows.Scan(&id, &data); err != nil {
			return nil, errors.Wrap(err, "scan profile")
		}
		p := &match.UserProfile{}
		if err := json.Unmarshal(data, p); err != nil {
			return nil, errors.Wrapf(err, "decode profile %s", id)
		}
		p.ID = match.ID(id)
		out[p.ID] = p
	}
	return out, errors.Wrap(rows.Err(), "iterate profiles")
}

func (s *sqlStore) PutProfiles(ctx context.Context, profiles []match.UserProfile) error {
	return s.putDocuments(ctx, profilesTable, Profiles, len(profiles), func(i int) (match.ID, any) {
		return profiles[i].ID, &profiles[i]
	})
}

func (s *sqlStore) PutPreferences(ctx context.Context, prefs []match.UserPreference) error {
	return s.putDocuments(ctx, preferencesTable, Preferences, len(prefs), func(i int) (match.ID, any) {
		return prefs[i].ID, &prefs[i]
	})
}

func (s *sqlStore) PutBehaviors(ctx context.Context, behaviors []match.BehaviorRecord) error {
	return s.putDocuments(ctx, behaviorsTable, Behaviors, len(behaviors), func(i int) (match.ID, any) {
		return behaviors[i].ID, &behaviors[i]
	})
}

func (s *sqlStore) PutVectors(ctx context.Context, vectors []match.VectorRecord) error {
	stmt := `INSERT INTO ` + vectorsTable + ` (id, profile_vector, preference_vector)
		VALUES (` + s.d.placeholder(1) + `, ` + s.d.placeholder(2) + `, ` + s.d.placeholder(3) + `)
		ON CONFLICT (id) DO UPDATE SET
			profile_vector = excluded.profile_vector,
			preference_vector = excluded.preference_vector`

	return s.inTx(ctx, Vectors, func(tx *sql.Tx) error {
		for _, v := range vectors {
			profile, err := s.d.vectorArg(v.ProfileVector)
			if err != nil {
				return err
			}
			pref, err := s.d.vectorArg(v.PreferenceVector)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, stmt, string(v.ID), profile, pref); err != nil {
				return errors.Wrapf(err, "upsert vector %s", v.ID)
			}
		}
		return nil
	})
}

func (s *sqlStore) loadVectors(ctx context.Context) ([]match.VectorRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, profile_vector, preference_vector FROM `+vectorsTable+` ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, "query vectors")
	}
	defer rows.Close()

	var out []match.VectorRecord
	for rows.Next() {
		var id string
		profileDest, profileVec := s.d.vectorDest()
		prefDest, prefVec := s.d.vectorDest()
		if err := rows.Scan(&id, profileDest, prefDest); err != nil {
			return nil, errors.Wrap(err, "scan vector")
		}
		rec := match.VectorRecord{ID: match.ID(id)}
		if rec.ProfileVector, err = profileVec(); err != nil {
			return nil, errors.Wrapf(err, "decode profile vector %s", id)
		}
		if rec.PreferenceVector, err = prefVec(); err != nil {
			return nil, errors.Wrapf(err, "decode preference vector %s", id)
		}
		out = append(out, rec)
	}
	return out, errors.Wrap(rows.Err(), "iterate vectors")
}

// eachDocument streams the (id, data) rows of table in ID order.
func (s *sqlStore) eachDocument(ctx context.Context, table, collection string, fn func(match.ID, []byte) error) error {
	rows, err := s.db.QueryContext(ctx, `SELECT id, data FROM `+table+` ORDER BY id`)
	if err != nil {
		return errors.Wrapf(err, "query %s", collection)
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		var data []byte
		if err := rows.Scan(&id, &data); err != nil {
			return errors.Wrapf(err, "scan %s", collection)
		}
		if err := fn(match.ID(id), data); err != nil {
			return errors.Wrapf(err, "decode %s %s", collection, id)
		}
	}
	return errors.Wrapf(rows.Err(), "iterate %s", collection)
}

func (s *sqlStore) putDocuments(ctx context.Context, table, collection string, n int, at func(int) (match.ID, any)) error {
	stmt := `INSERT INTO ` + table + ` (id, data)
		VALUES (` + s.d.placeholder(1) + `, ` + s.d.placeholder(2) + `)
		ON CONFLICT (id) DO UPDATE SET data = excluded.data`

	return s.inTx(ctx, collection, func(tx *sql.Tx) error {
		for i := 0; i < n; i++ {
			id, doc := at(i)
			data, err := json.Marshal(doc)
			if err != nil {
				return errors.Wrapf(err, "encode %s %s", collection, id)
			}
			if _, err := tx.ExecContext(ctx, stmt, string(id), string(data)); err != nil {
				return errors.Wrapf(err, "upsert %s %s", collection, id)
			}
		}
		return nil
	})
}

func (s *sqlStore) inTx(ctx context.Context, collection string, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrapf(err, "begin %s write", collection)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return errors.Wrapf(tx.Commit(), "commit %s write", collection)
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
