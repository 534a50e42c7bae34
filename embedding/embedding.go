// Package embedding turns refined preferences into vectors through an
// OpenAI-compatible embeddings endpoint. Calls go through a circuit breaker
// so an unavailable provider fails fast instead of stalling ranking requests.
package embedding

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker/v2"

	"github.com/Cici-YuMao/AIris/match"
)

// Config configures the embeddings client.
type Config struct {
	Enabled    bool   `koanf:"enabled"`
	BaseURL    string `koanf:"base_url" validate:"omitempty,url"`
	APIKey     string `koanf:"api_key"`
	Model      string `koanf:"model" validate:"required_if=Enabled true"`
	Dimensions int    `koanf:"dimensions" validate:"gte=0"`

	Timeout time.Duration `koanf:"timeout" validate:"gte=0"`
	// BreakerFailures is the number of consecutive failures that opens the
	// breaker; BreakerCooldown is how long it stays open.
	BreakerFailures uint32        `koanf:"breaker_failures" validate:"gte=1"`
	BreakerCooldown time.Duration `koanf:"breaker_cooldown" validate:"gte=0"`
}

func DefaultConfig() Config {
	return Config{
		Model:           string(openai.SmallEmbedding3),
		Timeout:         5 * time.Second,
		BreakerFailures: 5,
		BreakerCooldown: 30 * time.Second,
	}
}

// Embedder produces a vector for a piece of text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// StateHook observes breaker transitions.
type StateHook func(name string, from, to gobreaker.State)

// Client is an Embedder backed by go-openai.
type Client struct {
	client     *openai.Client
	model      string
	dimensions int
	cb         *gobreaker.CircuitBreaker[[]float32]
	logger     zerolog.Logger
}

// New builds a client. hook may be nil.
//
//nolint:gocritic // zerolog loggers are passed by value
func New(cfg Config, logger zerolog.Logger, hook StateHook) (*Client, error) {
	if cfg.Model == "" {
		return nil, errors.New("embedding model is required")
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = DefaultConfig().BreakerFailures
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	if cfg.Timeout > 0 {
		clientConfig.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	c := &Client{
		client:     openai.NewClientWithConfig(clientConfig),
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		logger:     logger.With().Str("component", "embedding").Logger(),
	}
	c.cb = gobreaker.NewCircuitBreaker[[]float32](gobreaker.Settings{
		Name:        "embeddings",
		MaxRequests: 1,
		Timeout:     cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
			if hook != nil {
				hook(name, from, to)
			}
		},
	})
	return c, nil
}

// Embed returns the embedding of text. It fails without a network call when
// text is blank or the breaker is open.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("nothing to embed")
	}
	return c.cb.Execute(func() ([]float32, error) {
		resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input:      []string{text},
			Model:      openai.EmbeddingModel(c.model),
			Dimensions: c.dimensions,
		})
		if err != nil {
			return nil, errors.Wrap(err, "create embeddings")
		}
		if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
			return nil, errors.New("empty embedding response")
		}
		return resp.Data[0].Embedding, nil
	})
}

// State reports the breaker state.
func (c *Client) State() gobreaker.State {
	return c.cb.State()
}

// PreferenceText flattens a refined preference into the labelled sentence
// the stored preference vectors were computed from. Absent fields are left
// empty after their label.
func PreferenceText(p *match.UserPreference) string {
	if p == nil {
		return ""
	}
	join := func(v match.Value) string { return strings.Join(v.Items(), ",") }
	return "年龄" + join(p.Age) +
		" 身高" + join(p.Height) +
		" 体重" + join(p.Weight) +
		" 城市" + join(p.City) +
		" 爱好:" + join(p.Hobby) +
		" 雷点:" + join(p.Dislike)
}
