package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/Cici-YuMao/AIris/embedding"
	"github.com/Cici-YuMao/AIris/logging"
	"github.com/Cici-YuMao/AIris/match"
	"github.com/Cici-YuMao/AIris/store"
)

// ranker loads a fresh snapshot for every request and ranks over it.
type ranker struct {
	source store.Source
	engine *match.Engine
	// embedder backfills missing preference vectors; nil disables it.
	embedder embedding.Embedder
}

func (rk *ranker) rank(ctx context.Context, req match.Request) (*match.Result, error) {
	start := time.Now()
	mode := req.Mode
	if mode == "" {
		mode = rk.engine.Config().Mode
	}

	res, err := rk.rankSnapshot(ctx, req)
	rankDuration.WithLabelValues(string(mode)).Observe(time.Since(start).Seconds())
	rankOutcomes.WithLabelValues(string(mode), outcome(err)).Inc()
	if err != nil {
		return nil, err
	}
	rankCandidates.Observe(float64(len(res.Candidates)))
	return res, nil
}

func (rk *ranker) rankSnapshot(ctx context.Context, req match.Request) (*match.Result, error) {
	snap, err := rk.source.Load(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load snapshot")
	}
	if len(req.PreferenceVector) == 0 {
		req.PreferenceVector = rk.backfill(ctx, snap, req.UserID)
	}
	return rk.engine.Rank(ctx, snap, req)
}

// backfill embeds the requester's refined preference when there is no stored
// vector record or its preference vector is a placeholder. On failure a
// placeholder falls back to ranking without a similarity signal and a missing
// record stays "User vector not found".
func (rk *ranker) backfill(ctx context.Context, snap *match.Snapshot, uid match.ID) []float32 {
	if rk.embedder == nil {
		return nil
	}
	uid = match.ID(strings.TrimSpace(string(uid)))
	if vec, ok := snap.Vector(uid); ok && !match.IsPlaceholder(vec.PreferenceVector) {
		return nil
	}
	pref, ok := snap.Preference(uid)
	if !ok {
		return nil
	}
	v, err := rk.embedder.Embed(ctx, embedding.PreferenceText(pref))
	if err != nil {
		preferenceBackfills.WithLabelValues("error").Inc()
		logging.Ctx(ctx).Warn().Err(err).Str("user_id", string(uid)).Msg("preference embedding failed, ranking without similarity")
		return nil
	}
	preferenceBackfills.WithLabelValues("ok").Inc()
	return v
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, match.ErrMissingUserID), errors.Is(err, match.ErrNoPreference):
		return "bad_request"
	case errors.Is(err, match.ErrVectorNotFound):
		return "not_found"
	default:
		return "error"
	}
}

// rankRequest is the body shared by the ranking endpoints.
type rankRequest struct {
	UserID match.ID `json:"userId" validate:"required"`
	Count  *int     `json:"count" validate:"omitempty,gte=1"`
	Mode   string   `json:"mode" validate:"omitempty,oneof=fused preference_only"`
}

const maxBodyBytes = 1 << 20

var validate = validator.New()

// decodeRankRequest parses and validates the body. On failure it returns the
// client-facing message.
func decodeRankRequest(r *http.Request) (rankRequest, string, bool) {
	var req rankRequest
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return req, "Invalid request body", false
	}
	// An empty body is a request without a userId.
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			return req, "Invalid request body", false
		}
	}
	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			switch verrs[0].StructField() {
			case "Count":
				return req, "count must be a positive integer", false
			case "Mode":
				return req, "mode must be fused or preference_only", false
			}
		}
		return req, match.ErrMissingUserID.Error(), false
	}
	return req, "", true
}

func (req rankRequest) engineRequest() match.Request {
	out := match.Request{UserID: req.UserID, Mode: match.Mode(req.Mode)}
	if req.Count != nil {
		out.Count = *req.Count
	}
	return out
}

// writeRankError maps engine sentinels onto their HTTP status codes.
func writeRankError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, match.ErrMissingUserID), errors.Is(err, match.ErrNoPreference):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, match.ErrVectorNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		logging.Ctx(r.Context()).Error().Err(err).Msg("ranking failed")
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

type idsResponse struct {
	Status  string     `json:"status"`
	UserIDs []match.ID `json:"userIds"`
}

// POST /highly-matched - ranks with the configured mode.
func highlyMatchedHandler(rk *ranker) http.HandlerFunc {
	return idsHandler(rk, "")
}

// POST /recommend - ranks on the preference score alone.
func recommendHandler(rk *ranker) http.HandlerFunc {
	return idsHandler(rk, match.ModePreferenceOnly)
}

func idsHandler(rk *ranker, force match.Mode) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, msg, ok := decodeRankRequest(r)
		if !ok {
			writeError(w, http.StatusBadRequest, msg)
			return
		}
		req := body.engineRequest()
		if force != "" {
			req.Mode = force
		}
		res, err := rk.rank(r.Context(), req)
		if err != nil {
			writeRankError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, idsResponse{Status: statusSuccess, UserIDs: res.IDs()})
	}
}

type detailedResult struct {
	match.Scored
	Profile *match.UserProfile `json:"profile,omitempty"`
}

type detailedResponse struct {
	Status    string           `json:"status"`
	Mode      match.Mode       `json:"mode"`
	Alpha     float64          `json:"alpha"`
	Neighbors []match.ID       `json:"neighbors"`
	Results   []detailedResult `json:"results"`
}

// POST /highly-matched/detailed - ranked candidates with their score
// breakdown and profiles.
func highlyMatchedDetailedHandler(rk *ranker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, msg, ok := decodeRankRequest(r)
		if !ok {
			writeError(w, http.StatusBadRequest, msg)
			return
		}
		res, err := rk.rank(r.Context(), body.engineRequest())
		if err != nil {
			writeRankError(w, r, err)
			return
		}

		profiles := make([]*match.UserProfile, len(res.Candidates))
		if loaders := GetDataLoadersFromContext(r.Context()); loaders != nil && len(res.Candidates) > 0 {
			loaded, errs := loaders.ProfileLoader.LoadMany(r.Context(), res.IDs())()
			for _, lerr := range errs {
				if lerr != nil {
					writeRankError(w, r, errors.Wrap(lerr, "load profiles"))
					return
				}
			}
			profiles = loaded
		}

		writeJSON(w, http.StatusOK, buildDetailedResponse(res, profiles))
	}
}

func buildDetailedResponse(res *match.Result, profiles []*match.UserProfile) detailedResponse {
	out := detailedResponse{
		Status:    statusSuccess,
		Mode:      res.Mode,
		Alpha:     res.Alpha,
		Neighbors: res.Neighbors,
		Results:   make([]detailedResult, len(res.Candidates)),
	}
	if out.Neighbors == nil {
		out.Neighbors = []match.ID{}
	}
	for i, c := range res.Candidates {
		out.Results[i] = detailedResult{Scored: c}
		if i < len(profiles) {
			out.Results[i].Profile = profiles[i]
		}
	}
	return out
}

func newRanker(cfg *Config, source store.Source, logger zerolog.Logger) (*ranker, error) {
	engine, err := match.NewEngine(cfg.Ranking.engineConfig(), logger)
	if err != nil {
		return nil, err
	}
	rk := &ranker{source: source, engine: engine}
	if cfg.Embedding.Enabled {
		client, err := embedding.New(cfg.Embedding, logger, recordBreakerState)
		if err != nil {
			return nil, errors.Wrap(err, "embedding client")
		}
		rk.embedder = client
	}
	return rk, nil
}
