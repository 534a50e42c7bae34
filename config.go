package main

import (
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"

	"github.com/Cici-YuMao/AIris/embedding"
	"github.com/Cici-YuMao/AIris/logging"
	"github.com/Cici-YuMao/AIris/match"
	"github.com/Cici-YuMao/AIris/store"
)

// envPrefix marks environment variables that override configuration:
// AIRIS_RANKING_ALPHA_FLOOR sets ranking.alpha_floor.
const envPrefix = "AIRIS_"

// configPathEnv names a YAML file to load instead of ./config.yaml.
const configPathEnv = "CONFIG_PATH"

type Config struct {
	Server    ServerConfig     `koanf:"server"`
	Store     store.Config     `koanf:"store"`
	Ranking   RankingConfig    `koanf:"ranking"`
	Embedding embedding.Config `koanf:"embedding"`
	Logging   logging.Config   `koanf:"logging"`
}

type ServerConfig struct {
	Addr            string        `koanf:"addr" validate:"required"`
	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"gte=0"`
	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"gte=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gte=0"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	// RateLimitRequests per RateLimitWindow per client IP; 0 disables.
	RateLimitRequests int           `koanf:"rate_limit_requests" validate:"gte=0"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window" validate:"gte=0"`
	// LoaderWait is how long the profile dataloader collects keys.
	LoaderWait time.Duration `koanf:"loader_wait" validate:"gte=0"`
}

// RankingConfig mirrors match.Config.
type RankingConfig struct {
	// CollaborativeFiltering selects fused ranking; when false the preference
	// score alone orders candidates.
	CollaborativeFiltering bool `koanf:"collaborative_filtering"`
	RequirePreference      bool `koanf:"require_preference"`

	SimilarityScale float64 `koanf:"similarity_scale" validate:"gt=0"`
	PriorityBonus   float64 `koanf:"priority_bonus" validate:"gte=0"`
	MatchBonus      float64 `koanf:"match_bonus" validate:"gte=0"`
	DislikePenalty  float64 `koanf:"dislike_penalty" validate:"gte=0"`

	NeighborCount int     `koanf:"neighbor_count" validate:"gte=0"`
	LikeWeight    float64 `koanf:"like_weight" validate:"gte=0"`
	CommentWeight float64 `koanf:"comment_weight" validate:"gte=0"`
	MessageWeight float64 `koanf:"message_weight" validate:"gte=0"`
	BehaviorScale float64 `koanf:"behavior_scale" validate:"gt=0"`

	AlphaFloor      float64 `koanf:"alpha_floor" validate:"gte=0,lte=1"`
	PopulationScale float64 `koanf:"population_scale" validate:"gt=0"`

	DefaultCount int `koanf:"default_count" validate:"gte=1"`
}

func (r RankingConfig) engineConfig() match.Config {
	mode := match.ModeFused
	if !r.CollaborativeFiltering {
		mode = match.ModePreferenceOnly
	}
	return match.Config{
		Mode:              mode,
		RequirePreference: r.RequirePreference,
		SimilarityScale:   r.SimilarityScale,
		PriorityBonus:     r.PriorityBonus,
		MatchBonus:        r.MatchBonus,
		DislikePenalty:    r.DislikePenalty,
		NeighborCount:     r.NeighborCount,
		LikeWeight:        r.LikeWeight,
		CommentWeight:     r.CommentWeight,
		MessageWeight:     r.MessageWeight,
		BehaviorScale:     r.BehaviorScale,
		AlphaFloor:        r.AlphaFloor,
		PopulationScale:   r.PopulationScale,
		DefaultCount:      r.DefaultCount,
	}
}

func defaultConfig() Config {
	m := match.DefaultConfig()
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			// The frontend dev server and the Docker frontend.
			CORSOrigins: []string{
				"http://localhost:5173", "http://127.0.0.1:5173",
				"http://localhost:3001", "http://127.0.0.1:3001",
			},
			RateLimitRequests: 100,
			RateLimitWindow:   time.Minute,
			LoaderWait:        16 * time.Millisecond,
		},
		Store: store.Config{
			Driver:      store.DriverJSON,
			Dir:         "data",
			AutoMigrate: true,
		},
		Ranking: RankingConfig{
			CollaborativeFiltering: m.Mode == match.ModeFused,
			RequirePreference:      m.RequirePreference,
			SimilarityScale:        m.SimilarityScale,
			PriorityBonus:          m.PriorityBonus,
			MatchBonus:             m.MatchBonus,
			DislikePenalty:         m.DislikePenalty,
			NeighborCount:          m.NeighborCount,
			LikeWeight:             m.LikeWeight,
			CommentWeight:          m.CommentWeight,
			MessageWeight:          m.MessageWeight,
			BehaviorScale:          m.BehaviorScale,
			AlphaFloor:             m.AlphaFloor,
			PopulationScale:        m.PopulationScale,
			DefaultCount:           m.DefaultCount,
		},
		Embedding: embedding.DefaultConfig(),
		Logging:   logging.Config{Level: "info", Format: "json"},
	}
}

// loadConfig layers defaults, an optional YAML file and the environment, in
// that order of increasing precedence, then validates the result. An empty
// path falls back to $CONFIG_PATH and then ./config.yaml when it exists.
func loadConfig(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, errors.Wrap(err, "load defaults")
	}

	explicit := path != ""
	if path == "" {
		path = os.Getenv(configPathEnv)
		explicit = path != ""
	}
	if path == "" {
		path = "config.yaml"
	}
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, errors.Wrapf(err, "load config file %s", path)
		}
	} else if explicit {
		return nil, errors.Wrapf(err, "config file %s", path)
	}

	if err := k.Load(env.Provider("", ".", envKey), nil); err != nil {
		return nil, errors.Wrap(err, "load environment")
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	return cfg, nil
}

// envKey maps AIRIS_SECTION_SOME_KEY to section.some_key and the legacy
// DATABASE_URL to store.dsn. Everything else is ignored.
func envKey(key string) string {
	if key == "DATABASE_URL" {
		return "store.dsn"
	}
	if !strings.HasPrefix(key, envPrefix) {
		return ""
	}
	key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
	section, rest, ok := strings.Cut(key, "_")
	if !ok || rest == "" {
		return ""
	}
	return section + "." + rest
}
