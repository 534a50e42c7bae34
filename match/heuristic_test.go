package match

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T, mutate ...func(*Config)) *Engine {
	t.Helper()
	cfg := DefaultConfig()
	for _, m := range mutate {
		m(&cfg)
	}
	e, err := NewEngine(cfg, zerolog.Nop())
	require.NoError(t, err)
	return e
}

func TestMatches(t *testing.T) {
	tests := []struct {
		name    string
		pref    Value
		profile Value
		want    bool
	}{
		{"set intersects set", SetOf("music", "drama"), SetOf("drama", "hiking"), true},
		{"disjoint sets", SetOf("music"), SetOf("hiking"), false},
		{"set contains scalar", SetOf("Beijing", "Shanghai"), ScalarOf("Shanghai"), true},
		{"set lacks scalar", SetOf("Beijing"), ScalarOf("Tianjin"), false},
		{"scalar in profile set", ScalarOf("music"), SetOf("music", "chess"), true},
		{"equal scalars", ScalarOf("170"), ScalarOf("170"), true},
		{"scalars compared trimmed", ScalarOf(" Beijing "), ScalarOf("Beijing"), true},
		{"different scalars", ScalarOf("Beijing"), ScalarOf("beijing"), false},
		{"absent preference", Value{}, ScalarOf("x"), false},
		{"absent profile", SetOf("x"), Value{}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Matches(tc.pref, tc.profile))
		})
	}
}

func TestMatchesSetsCommute(t *testing.T) {
	sets := []Value{
		SetOf("a"), SetOf("a", "b"), SetOf("c"), SetOf("b", "c", "d"), SetOf("z"),
	}
	for _, x := range sets {
		for _, y := range sets {
			assert.Equal(t, Matches(x, y), Matches(y, x), "%v vs %v", x.Items(), y.Items())
		}
	}
}

func TestInRange(t *testing.T) {
	assert.True(t, InRange(ScalarOf("20-30"), ScalarOf("20")))
	assert.True(t, InRange(ScalarOf("20-30"), ScalarOf("30")))
	assert.True(t, InRange(ScalarOf("160 - 180"), ScalarOf("172.5")))
	assert.False(t, InRange(ScalarOf("20-30"), ScalarOf("31")))
	assert.False(t, InRange(ScalarOf("abc"), ScalarOf("25")))
	assert.False(t, InRange(ScalarOf("20-"), ScalarOf("25")))
	assert.False(t, InRange(ScalarOf("20-30"), ScalarOf("twenty")))
	assert.False(t, InRange(SetOf("20-30"), ScalarOf("25")))
	assert.False(t, InRange(Value{}, ScalarOf("25")))
}

func TestHeuristicScore(t *testing.T) {
	e := newTestEngine(t)

	t.Run("city priority bonus", func(t *testing.T) {
		pref := &UserPreference{City: SetOf("Beijing"), TopPriorities: []string{"city"}}
		cand := &UserProfile{City: ScalarOf("Beijing")}
		assert.Equal(t, 5.0, e.heuristicScore(pref, cand))
	})

	t.Run("city ordinary bonus", func(t *testing.T) {
		pref := &UserPreference{City: SetOf("Beijing"), TopPriorities: []string{"age"}}
		cand := &UserProfile{City: ScalarOf("Beijing")}
		assert.Equal(t, 2.0, e.heuristicScore(pref, cand))
	})

	t.Run("every field matches", func(t *testing.T) {
		pref := &UserPreference{
			City:          SetOf("Beijing"),
			Hobby:         SetOf("music"),
			Height:        ScalarOf("160-180"),
			Weight:        ScalarOf("50-70"),
			Age:           ScalarOf("20-30"),
			TopPriorities: []string{"hobby", "age"},
		}
		cand := &UserProfile{
			City:    ScalarOf("Beijing"),
			Hobbies: SetOf("music", "chess"),
			Height:  ScalarOf("170"),
			Weight:  ScalarOf("60"),
			Age:     ScalarOf("25"),
		}
		// hobby and age at 5, city height weight at 2
		assert.Equal(t, 16.0, e.heuristicScore(pref, cand))
	})

	t.Run("malformed range contributes nothing", func(t *testing.T) {
		pref := &UserPreference{Age: ScalarOf("twenty-thirty"), Height: ScalarOf("170")}
		cand := &UserProfile{Age: ScalarOf("25"), Height: ScalarOf("170")}
		assert.Zero(t, e.heuristicScore(pref, cand))
	})

	t.Run("dislike is not a bonus field", func(t *testing.T) {
		pref := &UserPreference{Hobby: SetOf("music"), Dislike: SetOf("smoking")}
		cand := &UserProfile{Hobbies: SetOf("music", "smoking")}
		assert.Equal(t, 2.0, e.heuristicScore(pref, cand))
	})

	t.Run("missing candidate profile", func(t *testing.T) {
		pref := &UserPreference{City: SetOf("Beijing")}
		assert.Zero(t, e.heuristicScore(pref, nil))
	})

	t.Run("custom bonuses", func(t *testing.T) {
		custom := newTestEngine(t, func(c *Config) {
			c.PriorityBonus = 7
			c.MatchBonus = 1
		})
		pref := &UserPreference{City: SetOf("Beijing"), Hobby: SetOf("go"), TopPriorities: []string{"city"}}
		cand := &UserProfile{City: ScalarOf("Beijing"), Hobbies: SetOf("go")}
		assert.Equal(t, 8.0, custom.heuristicScore(pref, cand))
	})
}

func TestDislikePenalty(t *testing.T) {
	e := newTestEngine(t)

	t.Run("applies once", func(t *testing.T) {
		pref := &UserPreference{Dislike: SetOf("smoking", "drinking", "gambling")}
		cand := &UserProfile{Hobbies: SetOf("smoking", "drinking", "gambling")}
		assert.Equal(t, 10.0, e.dislikePenalty(pref, cand))
	})

	t.Run("no overlap", func(t *testing.T) {
		pref := &UserPreference{Dislike: SetOf("smoking")}
		cand := &UserProfile{Hobbies: SetOf("music")}
		assert.Zero(t, e.dislikePenalty(pref, cand))
	})

	t.Run("missing candidate profile", func(t *testing.T) {
		assert.Zero(t, e.dislikePenalty(&UserPreference{Dislike: SetOf("smoking")}, nil))
	})
}
