package store

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/Cici-YuMao/AIris/match"
)

// File names of the flat-file collections.
const (
	ProfilesFile    = "user_info_db.json"
	PreferencesFile = "user_pref_db.json"
	VectorsFile     = "user_vector_db.json"
	BehaviorsFile   = "user_behavior_db.json"
)

// JSONFiles keeps each collection as a JSON array in its own file under one
// directory. A missing or empty file is an empty collection. Writes replace
// the file atomically so concurrent readers see either the old or the new
// contents.
type JSONFiles struct {
	dir string
	mu  sync.RWMutex
}

func NewJSONFiles(dir string) *JSONFiles {
	return &JSONFiles{dir: dir}
}

// preferenceRecord is the on-disk shape of a refined preference.
type preferenceRecord struct {
	ID   match.ID              `json:"id"`
	Data *match.UserPreference `json:"data"`
}

func (s *JSONFiles) Load(ctx context.Context) (*match.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		profiles  []match.UserProfile
		prefs     []match.UserPreference
		vectors   []match.VectorRecord
		behaviors []match.BehaviorRecord
	)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		profiles, err = readCollection[match.UserProfile](ctx, s.path(ProfilesFile), Profiles)
		return err
	})
	g.Go(func() error {
		records, err := readCollection[preferenceRecord](ctx, s.path(PreferencesFile), Preferences)
		prefs = preferencesFromRecords(records)
		return err
	})
	g.Go(func() (err error) {
		vectors, err = readCollection[match.VectorRecord](ctx, s.path(VectorsFile), Vectors)
		return err
	})
	g.Go(func() (err error) {
		behaviors, err = readCollection[match.BehaviorRecord](ctx, s.path(BehaviorsFile), Behaviors)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return match.NewSnapshot(profiles, prefs, vectors, behaviors), nil
}

func (s *JSONFiles) ProfilesByID(ctx context.Context, ids []match.ID) (map[match.ID]*match.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	profiles, err := readCollection[match.UserProfile](ctx, s.path(ProfilesFile), Profiles)
	if err != nil {
		return nil, err
	}
	want := make(map[match.ID]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	out := make(map[match.ID]*match.UserProfile, len(ids))
	for i := range profiles {
		if _, ok := want[profiles[i].ID]; ok {
			out[profiles[i].ID] = &profiles[i]
		}
	}
	return out, nil
}

func (s *JSONFiles) PutProfiles(ctx context.Context, profiles []match.UserProfile) error {
	return putCollection(ctx, s, ProfilesFile, Profiles, profiles, func(p *match.UserProfile) match.ID { return p.ID })
}

func (s *JSONFiles) PutPreferences(ctx context.Context, prefs []match.UserPreference) error {
	records := make([]preferenceRecord, len(prefs))
	for i := range prefs {
		records[i] = preferenceRecord{ID: prefs[i].ID, Data: &prefs[i]}
	}
	return putCollection(ctx, s, PreferencesFile, Preferences, records, func(r *preferenceRecord) match.ID { return r.ID })
}

func (s *JSONFiles) PutVectors(ctx context.Context, vectors []match.VectorRecord) error {
	return putCollection(ctx, s, VectorsFile, Vectors, vectors, func(v *match.VectorRecord) match.ID { return v.ID })
}

func (s *JSONFiles) PutBehaviors(ctx context.Context, behaviors []match.BehaviorRecord) error {
	return putCollection(ctx, s, BehaviorsFile, Behaviors, behaviors, func(b *match.BehaviorRecord) match.ID { return b.ID })
}

func (s *JSONFiles) Migrate(context.Context) error {
	return errors.Wrap(os.MkdirAll(s.dir, 0o755), "create store directory")
}

func (s *JSONFiles) Close() error { return nil }

func (s *JSONFiles) path(name string) string {
	return filepath.Join(s.dir, name)
}

func preferencesFromRecords(records []preferenceRecord) []match.UserPreference {
	prefs := make([]match.UserPreference, 0, len(records))
	for _, r := range records {
		p := match.UserPreference{}
		if r.Data != nil {
			p = *r.Data
		}
		p.ID = r.ID
		prefs = append(prefs, p)
	}
	return prefs
}

func readCollection[T any](ctx context.Context, path, collection string) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", collection)
	}
	if len(data) == 0 {
		return nil, nil
	}
	var out []T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, errors.Wrapf(err, "decode %s", collection)
	}
	return out, nil
}

// putCollection merges incoming into the stored collection by ID, replacing
// records in place and appending new ones, then rewrites the file.
func putCollection[T any](ctx context.Context, s *JSONFiles, name, collection string, incoming []T, idOf func(*T) match.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.path(name)
	existing, err := readCollection[T](ctx, path, collection)
	if err != nil {
		return err
	}
	idx := make(map[match.ID]int, len(existing))
	for i := range existing {
		idx[idOf(&existing[i])] = i
	}
	for i := range incoming {
		id := idOf(&incoming[i])
		if at, ok := idx[id]; ok {
			existing[at] = incoming[i]
			continue
		}
		idx[id] = len(existing)
		existing = append(existing, incoming[i])
	}
	if existing == nil {
		existing = []T{}
	}

	data, err := json.MarshalIndent(existing, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "encode %s", collection)
	}
	return errors.Wrapf(writeFileAtomic(path, data), "write %s", collection)
}

func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
