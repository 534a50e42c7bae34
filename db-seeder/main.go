package main

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/Cici-YuMao/AIris/logging"
	"github.com/Cici-YuMao/AIris/match"
	"github.com/Cici-YuMao/AIris/store"
)

type cfg struct {
	Store store.Config

	Count     int
	Seed      int64
	Dimension int

	NoPreferenceRate   float64 // users without a refined preference record
	PlaceholderRate    float64 // users whose preference vector is all zeros
	LikesPerUser       int
	CommentsPerUser    int
	MessageTargetsUser int
}

func main() {
	_ = godotenv.Load()
	if err := newCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newCmd() *cobra.Command {
	var c cfg
	cmd := &cobra.Command{
		Use:          "db-seeder",
		Short:        "Fill a store with deterministic synthetic users",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.validate(); err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
			defer cancel()
			return run(ctx, c)
		},
	}
	f := cmd.Flags()
	f.StringVar(&c.Store.Driver, "driver", store.DriverJSON, "store driver: json, postgres or sqlite")
	f.StringVar(&c.Store.DSN, "dsn", os.Getenv("DATABASE_URL"), "DSN for the SQL drivers [env: DATABASE_URL]")
	f.StringVar(&c.Store.Dir, "dir", "data", "directory for the json driver")
	f.IntVar(&c.Count, "count", 300, "Number of users to create")
	f.Int64Var(&c.Seed, "seed", 42, "RNG seed (deterministic)")
	f.IntVar(&c.Dimension, "dim", 32, "Embedding dimension")
	f.Float64Var(&c.NoPreferenceRate, "no-preference-rate", 0.05, "Proportion of users without a preference record (0..1)")
	f.Float64Var(&c.PlaceholderRate, "placeholder-rate", 0.10, "Proportion of users with an all-zero preference vector (0..1)")
	f.IntVar(&c.LikesPerUser, "likes", 8, "Maximum likes per user")
	f.IntVar(&c.CommentsPerUser, "comments", 4, "Maximum comment targets per user")
	f.IntVar(&c.MessageTargetsUser, "messages", 3, "Maximum message targets per user")
	return cmd
}

func (c cfg) validate() error {
	if c.Count < 2 {
		return errors.New("--count must be at least 2")
	}
	if c.Dimension < 1 {
		return errors.New("--dim must be at least 1")
	}
	if c.NoPreferenceRate < 0 || c.NoPreferenceRate > 1 || c.PlaceholderRate < 0 || c.PlaceholderRate > 1 {
		return errors.New("rate flags must be in range 0..1")
	}
	if c.LikesPerUser < 0 || c.CommentsPerUser < 0 || c.MessageTargetsUser < 0 {
		return errors.New("behaviour flags must not be negative")
	}
	return nil
}

func run(ctx context.Context, c cfg) error {
	s, err := store.Open(ctx, c.Store)
	if err != nil {
		return err
	}
	defer s.Close()
	if err := s.Migrate(ctx); err != nil {
		return err
	}

	ds := generate(rand.New(rand.NewSource(c.Seed)), c)

	if err := s.PutProfiles(ctx, ds.profiles); err != nil {
		return err
	}
	if err := s.PutPreferences(ctx, ds.prefs); err != nil {
		return err
	}
	if err := s.PutVectors(ctx, ds.vectors); err != nil {
		return err
	}
	if err := s.PutBehaviors(ctx, ds.behaviors); err != nil {
		return err
	}

	logging.Info().
		Str("driver", c.Store.Driver).
		Int("profiles", len(ds.profiles)).
		Int("preferences", len(ds.prefs)).
		Int("vectors", len(ds.vectors)).
		Int("behaviors", len(ds.behaviors)).
		Msg("seed complete")
	return nil
}

type dataset struct {
	profiles  []match.UserProfile
	prefs     []match.UserPreference
	vectors   []match.VectorRecord
	behaviors []match.BehaviorRecord
}

var (
	cities    = []string{"北京", "上海", "广州", "深圳", "杭州", "成都"}
	hobbies   = []string{"音乐", "戏剧", "徒步", "摄影", "烹饪", "阅读", "健身", "旅行", "游戏", "吸烟", "喝酒"}
	dislikes  = []string{"吸烟", "酗酒", "赌博", "熬夜", "游戏"}
	educate   = []string{"本科", "硕士", "博士", "大专"}
	jobs      = []string{"工程师", "设计师", "教师", "医生", "律师", "自由职业"}
	fields    = []string{"city", "hobby", "age", "height", "weight"}
	orientate = []match.Orientation{match.Heterosexual, match.Heterosexual, match.Heterosexual, match.Homosexual, match.Bisexual}
)

// generate builds count users. The first two are fixed test users who match
// each other on every field.
func generate(r *rand.Rand, c cfg) dataset {
	ds := dataset{}
	ids := make([]match.ID, c.Count)
	for i := range ids {
		ids[i] = match.ID(strconv.Itoa(i + 1))
	}

	for i, id := range ids {
		var p match.UserProfile
		switch i {
		case 0:
			p = match.UserProfile{ID: id, Gender: "M", Age: num(29), Height: num(178), Weight: num(70),
				City: match.ScalarOf("北京"), Education: "硕士", Occupation: "工程师", Hobbies: match.SetOf("音乐", "徒步")}
		case 1:
			p = match.UserProfile{ID: id, Gender: "F", Age: num(27), Height: num(165), Weight: num(52),
				City: match.ScalarOf("北京"), Education: "本科", Occupation: "设计师", Hobbies: match.SetOf("音乐", "摄影")}
		default:
			gender := "M"
			if r.Intn(2) == 0 {
				gender = "F"
			}
			p = match.UserProfile{
				ID:         id,
				Gender:     gender,
				Age:        num(20 + r.Intn(20)),
				Height:     num(150 + r.Intn(40)),
				Weight:     num(45 + r.Intn(40)),
				City:       match.ScalarOf(pick(r, cities)),
				Education:  pick(r, educate),
				Occupation: pick(r, jobs),
				Hobbies:    match.SetOf(sample(r, hobbies, 1+r.Intn(3))...),
			}
		}
		ds.profiles = append(ds.profiles, p)
	}

	for i, id := range ids {
		hasPref := i < 2 || r.Float64() >= c.NoPreferenceRate
		if hasPref {
			ds.prefs = append(ds.prefs, preferenceFor(r, i, id))
		}

		rec := match.VectorRecord{ID: id, ProfileVector: unitVector(r, c.Dimension)}
		switch {
		case i < 2:
			rec.PreferenceVector = unitVector(r, c.Dimension)
		case r.Float64() < c.PlaceholderRate:
			rec.PreferenceVector = make([]float32, c.Dimension)
		default:
			rec.PreferenceVector = unitVector(r, c.Dimension)
		}
		ds.vectors = append(ds.vectors, rec)

		ds.behaviors = append(ds.behaviors, match.BehaviorRecord{
			ID:        id,
			Liked:     interactions(r, ids, i, c.LikesPerUser, 1),
			Commented: interactions(r, ids, i, c.CommentsPerUser, 3),
			Messaged:  interactions(r, ids, i, c.MessageTargetsUser, 20),
		})
	}

	// The test users point their preference vectors at each other.
	ds.vectors[0].PreferenceVector = append([]float32(nil), ds.vectors[1].ProfileVector...)
	ds.vectors[1].PreferenceVector = append([]float32(nil), ds.vectors[0].ProfileVector...)
	return ds
}

func preferenceFor(r *rand.Rand, i int, id match.ID) match.UserPreference {
	switch i {
	case 0:
		return match.UserPreference{ID: id, Age: rng(22, 30), Height: rng(155, 172), Weight: rng(42, 60),
			City: match.SetOf("北京", "上海"), Hobby: match.SetOf("音乐"), Dislike: match.SetOf("吸烟"),
			TopPriorities: []string{"city", "hobby"}, Orientation: match.Heterosexual}
	case 1:
		return match.UserPreference{ID: id, Age: rng(26, 35), Height: rng(170, 190), Weight: rng(60, 85),
			City: match.SetOf("北京"), Hobby: match.SetOf("徒步", "音乐"), Dislike: match.SetOf("酗酒"),
			TopPriorities: []string{"age"}, Orientation: match.Heterosexual}
	}
	age := 20 + r.Intn(15)
	height := 150 + r.Intn(25)
	weight := 45 + r.Intn(25)
	return match.UserPreference{
		ID:            id,
		Age:           rng(age, age+5+r.Intn(10)),
		Height:        rng(height, height+10+r.Intn(15)),
		Weight:        rng(weight, weight+10+r.Intn(15)),
		City:          match.SetOf(sample(r, cities, 1+r.Intn(2))...),
		Hobby:         match.SetOf(sample(r, hobbies[:9], 1+r.Intn(2))...),
		Dislike:       match.SetOf(sample(r, dislikes, r.Intn(2))...),
		TopPriorities: sample(r, fields, 1+r.Intn(2)),
		Orientation:   pick(r, orientate),
	}
}

// interactions picks up to limit distinct targets other than ids[self], each
// with a count in [1, maxCount].
func interactions(r *rand.Rand, ids []match.ID, self, limit, maxCount int) map[match.ID]int {
	out := map[match.ID]int{}
	if limit == 0 {
		return out
	}
	n := r.Intn(limit + 1)
	for _, j := range r.Perm(len(ids)) {
		if len(out) == n {
			break
		}
		if j == self {
			continue
		}
		out[ids[j]] = 1 + r.Intn(maxCount)
	}
	return out
}

func unitVector(r *rand.Rand, dim int) []float32 {
	v := make([]float32, dim)
	var norm float64
	for norm == 0 {
		norm = 0
		for i := range v {
			x := r.NormFloat64()
			v[i] = float32(x)
			norm += x * x
		}
	}
	norm = math.Sqrt(norm)
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
	return v
}

func pick[T any](r *rand.Rand, opts []T) T {
	return opts[r.Intn(len(opts))]
}

func sample(r *rand.Rand, opts []string, n int) []string {
	n = min(n, len(opts))
	out := make([]string, 0, n)
	for _, i := range r.Perm(len(opts))[:n] {
		out = append(out, opts[i])
	}
	return out
}

func num(n int) match.Value { return match.ScalarOf(strconv.Itoa(n)) }

func rng(lo, hi int) match.Value { return match.ScalarOf(fmt.Sprintf("%d-%d", lo, hi)) }
