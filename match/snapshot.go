package match

// Snapshot is a read-only, per-request view of the four collections joined by
// user ID. It is built once by the data access layer and never mutated, so a
// single snapshot may be shared by concurrent rankings.
type Snapshot struct {
	profiles    map[ID]*UserProfile
	preferences map[ID]*UserPreference
	vectors     []VectorRecord
	vectorIdx   map[ID]int
	behaviors   []BehaviorRecord
	population  int
}

// NewSnapshot indexes the collections. When an ID repeats within a collection
// the later record replaces the earlier one.
func NewSnapshot(profiles []UserProfile, prefs []UserPreference, vectors []VectorRecord, behaviors []BehaviorRecord) *Snapshot {
	s := &Snapshot{
		profiles:    make(map[ID]*UserProfile, len(profiles)),
		preferences: make(map[ID]*UserPreference, len(prefs)),
		vectors:     make([]VectorRecord, 0, len(vectors)),
		vectorIdx:   make(map[ID]int, len(vectors)),
		behaviors:   make([]BehaviorRecord, 0, len(behaviors)),
	}
	for i := range profiles {
		s.profiles[profiles[i].ID] = &profiles[i]
	}
	for i := range prefs {
		s.preferences[prefs[i].ID] = &prefs[i]
	}
	for _, v := range vectors {
		if idx, ok := s.vectorIdx[v.ID]; ok {
			s.vectors[idx] = v
			continue
		}
		s.vectorIdx[v.ID] = len(s.vectors)
		s.vectors = append(s.vectors, v)
	}
	seen := make(map[ID]int, len(behaviors))
	for _, b := range behaviors {
		if idx, ok := seen[b.ID]; ok {
			s.behaviors[idx] = b
			continue
		}
		seen[b.ID] = len(s.behaviors)
		s.behaviors = append(s.behaviors, b)
	}
	s.population = len(s.profiles)
	return s
}

func (s *Snapshot) Profile(id ID) (*UserProfile, bool) {
	p, ok := s.profiles[id]
	return p, ok
}

func (s *Snapshot) Preference(id ID) (*UserPreference, bool) {
	p, ok := s.preferences[id]
	return p, ok
}

func (s *Snapshot) Vector(id ID) (*VectorRecord, bool) {
	idx, ok := s.vectorIdx[id]
	if !ok {
		return nil, false
	}
	return &s.vectors[idx], true
}

// Vectors returns the vector records in collection order. The candidate pool
// of a ranking is exactly this collection.
func (s *Snapshot) Vectors() []VectorRecord { return s.vectors }

func (s *Snapshot) Behaviors() []BehaviorRecord { return s.behaviors }

// Population is the number of distinct users in the profile collection.
func (s *Snapshot) Population() int { return s.population }
