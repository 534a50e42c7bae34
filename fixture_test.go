package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Cici-YuMao/AIris/match"
	"github.com/Cici-YuMao/AIris/store"
)

// seedFixture writes a small population into a JSON store under dir:
//
//	1  M, heterosexual, prefers Beijing (priority), preference vector [1 0]
//	2  F, Beijing, profile [1 0], preference [1 0], liked 5
//	3  F, profile [0.6 0.8], no preference vector
//	4  M, profile [1 0], never shown to 1
//	5  F, profile [0 1], no preference record
//	6  F, preference record but no vectors
func seedFixture(t *testing.T, dir string) *store.JSONFiles {
	t.Helper()
	ctx := context.Background()
	s := store.NewJSONFiles(dir)
	require.NoError(t, s.Migrate(ctx))

	require.NoError(t, s.PutProfiles(ctx, []match.UserProfile{
		{ID: "1", Gender: "M", City: match.ScalarOf("Beijing")},
		{ID: "2", Gender: "F", City: match.ScalarOf("Beijing"), Hobbies: match.SetOf("music")},
		{ID: "3", Gender: "F", City: match.ScalarOf("Tianjin")},
		{ID: "4", Gender: "M"},
		{ID: "5", Gender: "F"},
		{ID: "6", Gender: "F"},
	}))
	require.NoError(t, s.PutPreferences(ctx, []match.UserPreference{
		{ID: "1", City: match.SetOf("Beijing"), TopPriorities: []string{"city"}, Orientation: match.Heterosexual},
		{ID: "2", Orientation: match.Heterosexual},
		{ID: "6"},
	}))
	require.NoError(t, s.PutVectors(ctx, []match.VectorRecord{
		{ID: "1", ProfileVector: []float32{0, 1}, PreferenceVector: []float32{1, 0}},
		{ID: "2", ProfileVector: []float32{1, 0}, PreferenceVector: []float32{1, 0}},
		{ID: "3", ProfileVector: []float32{0.6, 0.8}},
		{ID: "4", ProfileVector: []float32{1, 0}, PreferenceVector: []float32{1, 0}},
		{ID: "5", ProfileVector: []float32{0, 1}},
	}))
	require.NoError(t, s.PutBehaviors(ctx, []match.BehaviorRecord{
		{ID: "2", Liked: map[match.ID]int{"5": 1}},
		{ID: "4", Liked: map[match.ID]int{"3": 50}},
	}))
	return s
}

func testConfig(dir string) *Config {
	cfg := defaultConfig()
	cfg.Store.Dir = dir
	cfg.Server.RateLimitRequests = 0
	cfg.Server.LoaderWait = 0
	return &cfg
}
