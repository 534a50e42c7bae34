package match

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Mode selects between the blended ranking and the preference-only ranking.
type Mode string

const (
	// ModeFused blends the preference score with collaborative behaviour
	// signals from the requester's taste neighbourhood.
	ModeFused Mode = "fused"
	// ModePreferenceOnly ranks by the preference score alone.
	ModePreferenceOnly Mode = "preference_only"
)

// ParseMode maps a configuration string onto a Mode. Empty means fused.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeFused:
		return ModeFused, nil
	case ModePreferenceOnly:
		return ModePreferenceOnly, nil
	default:
		return "", fmt.Errorf("unknown ranking mode %q", s)
	}
}

// Config holds the scoring constants of the engine.
type Config struct {
	Mode Mode

	// RequirePreference rejects requesters without a preference record
	// instead of ranking them on vectors alone.
	RequirePreference bool

	SimilarityScale float64
	PriorityBonus   float64
	MatchBonus      float64
	DislikePenalty  float64

	NeighborCount int
	LikeWeight    float64
	CommentWeight float64
	MessageWeight float64
	BehaviorScale float64

	AlphaFloor      float64
	PopulationScale float64

	DefaultCount int
}

// DefaultConfig returns the reference scoring constants.
func DefaultConfig() Config {
	return Config{
		Mode:              ModeFused,
		RequirePreference: true,
		SimilarityScale:   10,
		PriorityBonus:     5,
		MatchBonus:        2,
		DislikePenalty:    10,
		NeighborCount:     10,
		LikeWeight:        3,
		CommentWeight:     2,
		MessageWeight:     1,
		BehaviorScale:     10,
		AlphaFloor:        0.3,
		PopulationScale:   1000,
		DefaultCount:      10,
	}
}

func (c Config) validate() error {
	if _, err := ParseMode(string(c.Mode)); err != nil {
		return err
	}
	if c.NeighborCount < 0 {
		return fmt.Errorf("neighbor count must not be negative, got %d", c.NeighborCount)
	}
	if c.AlphaFloor < 0 || c.AlphaFloor > 1 {
		return fmt.Errorf("alpha floor must be within [0, 1], got %v", c.AlphaFloor)
	}
	if c.PopulationScale <= 0 {
		return fmt.Errorf("population scale must be positive, got %v", c.PopulationScale)
	}
	if c.BehaviorScale <= 0 {
		return fmt.Errorf("behavior scale must be positive, got %v", c.BehaviorScale)
	}
	if c.DefaultCount < 1 {
		return fmt.Errorf("default count must be positive, got %d", c.DefaultCount)
	}
	return nil
}

// Request is one ranking request.
type Request struct {
	UserID ID
	// Count is the maximum number of candidates returned; 0 uses the
	// configured default.
	Count int
	// Mode overrides the configured mode when set.
	Mode Mode
	// PreferenceVector replaces the requester's stored preference vector when
	// set, e.g. one computed on the fly by an embedding service.
	PreferenceVector []float32
}

// Scored is one ranked candidate with its score breakdown.
type Scored struct {
	ID         ID      `json:"userId"`
	Fused      float64 `json:"score"`
	Preference float64 `json:"preferenceScore"`
	Behavior   float64 `json:"behaviorScore"`
}

// Result is the outcome of a ranking, ordered by descending fused score.
type Result struct {
	Mode       Mode
	Alpha      float64
	Neighbors  []ID
	Candidates []Scored
}

// IDs returns the ranked candidate identifiers.
func (r *Result) IDs() []ID {
	ids := make([]ID, len(r.Candidates))
	for i, c := range r.Candidates {
		ids[i] = c.ID
	}
	return ids
}

// Engine ranks candidates for a requester over a Snapshot. It holds no
// per-request state and is safe for concurrent use.
type Engine struct {
	cfg    Config
	logger zerolog.Logger
}

// NewEngine validates cfg and returns an engine.
//
//nolint:gocritic // zerolog loggers are passed by value
func NewEngine(cfg Config, logger zerolog.Logger) (*Engine, error) {
	if cfg.Mode == "" {
		cfg.Mode = ModeFused
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid ranking config: %w", err)
	}
	return &Engine{
		cfg:    cfg,
		logger: logger.With().Str("component", "match").Logger(),
	}, nil
}

func (e *Engine) Config() Config { return e.cfg }

// Rank scores every admissible candidate in snap for req.UserID and returns
// the best req.Count of them.
func (e *Engine) Rank(ctx context.Context, snap *Snapshot, req Request) (*Result, error) {
	start := time.Now()

	uid := ID(strings.TrimSpace(string(req.UserID)))
	if uid == "" {
		return nil, ErrMissingUserID
	}
	count := req.Count
	if count <= 0 {
		count = e.cfg.DefaultCount
	}
	mode := req.Mode
	if mode == "" {
		mode = e.cfg.Mode
	}

	pref, hasPref := snap.Preference(uid)
	if !hasPref && e.cfg.RequirePreference {
		return nil, ErrNoPreference
	}
	// A supplied preference vector stands in for a missing vector record.
	var prefVec []float32
	if vec, ok := snap.Vector(uid); ok {
		prefVec = vec.PreferenceVector
	} else if len(req.PreferenceVector) == 0 {
		return nil, ErrVectorNotFound
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if len(req.PreferenceVector) > 0 {
		prefVec = req.PreferenceVector
	}
	usablePrefVec := !IsPlaceholder(prefVec)

	var gender string
	if me, ok := snap.Profile(uid); ok {
		gender = me.Gender
	}
	var orientation Orientation
	if hasPref {
		orientation = pref.Orientation
	}

	pool := e.admissible(snap, uid, gender, orientation)

	prefScores := make(map[ID]float64, len(pool))
	for _, c := range pool {
		var score float64
		if usablePrefVec {
			sim, _ := Cosine(prefVec, c.vector.ProfileVector)
			score = sim * e.cfg.SimilarityScale
		}
		if hasPref {
			score += e.heuristicScore(pref, c.profile)
			if mode == ModePreferenceOnly {
				score -= e.dislikePenalty(pref, c.profile)
			}
		}
		prefScores[c.id] = score
	}

	res := &Result{Mode: mode, Alpha: 1}
	behavior := map[ID]float64{}
	if mode == ModeFused {
		res.Neighbors = e.neighbors(prefVec, pool)
		behavior = e.behaviorScores(snap.Behaviors(), res.Neighbors)
		res.Alpha = Alpha(snap.Population(), e.cfg.AlphaFloor, e.cfg.PopulationScale)
	}

	scored := make([]Scored, 0, len(pool))
	for _, c := range pool {
		s := Scored{ID: c.id, Preference: prefScores[c.id]}
		if mode == ModeFused {
			s.Behavior = behavior[c.id]
			s.Fused = Fuse(res.Alpha, s.Preference, s.Behavior, e.cfg.BehaviorScale)
		} else {
			s.Fused = s.Preference
		}
		scored = append(scored, s)
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Fused != scored[j].Fused {
			return scored[i].Fused > scored[j].Fused
		}
		return scored[i].ID < scored[j].ID
	})
	if len(scored) > count {
		scored = scored[:count]
	}
	res.Candidates = scored

	e.logger.Debug().
		Str("user_id", string(uid)).
		Str("mode", string(mode)).
		Int("candidates", len(pool)).
		Int("neighbors", len(res.Neighbors)).
		Int("returned", len(scored)).
		Float64("alpha", res.Alpha).
		Dur("elapsed", time.Since(start)).
		Msg("ranking complete")

	return res, nil
}

// admissible returns every user in the vector collection, other than the
// requester, that passes the orientation filter.
func (e *Engine) admissible(snap *Snapshot, self ID, gender string, orientation Orientation) []candidate {
	vectors := snap.Vectors()
	pool := make([]candidate, 0, len(vectors))
	for i := range vectors {
		v := &vectors[i]
		if v.ID == self {
			continue
		}
		profile, _ := snap.Profile(v.ID)
		var theirGender string
		if profile != nil {
			theirGender = profile.Gender
		}
		if !MatchOrientation(gender, orientation, theirGender) {
			continue
		}
		pool = append(pool, candidate{id: v.ID, vector: v, profile: profile})
	}
	return pool
}
