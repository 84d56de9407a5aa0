package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"mentiongraph/internal/logging"
	"mentiongraph/internal/metrics"
	"mentiongraph/internal/model"
	"mentiongraph/internal/socialnet"
	"mentiongraph/internal/store/sqlite"
)

// Store is the subset of the message store the API reads from.
type Store interface {
	AllMessages(ctx context.Context) ([]model.Message, error)
	LatestSnapshot(ctx context.Context) (sqlite.Snapshot, error)
}

type handler struct {
	store Store
}

// NewRouter exposes the follows graph and influence ranking of every stored message.
func NewRouter(store Store) chi.Router {
	h := &handler{store: store}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", metrics.Handler())
	r.Get("/graph", h.graph)
	r.Route("/influencers", func(r chi.Router) {
		r.Get("/", h.influencers)
		r.Get("/latest", h.latestSnapshot)
	})
	return r
}

func (h *handler) buildGraph(w http.ResponseWriter, r *http.Request) (socialnet.FollowsGraph, bool) {
	msgs, err := h.store.AllMessages(r.Context())
	if err != nil {
		logging.Error("api_load_messages", map[string]any{"error": err.Error(), "request_id": middleware.GetReqID(r.Context())})
		writeError(w, http.StatusInternalServerError, ErrCodeInternal, "failed to load messages")
		return nil, false
	}
	g, err := socialnet.GuessFollowsGraph(msgs)
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return nil, false
	}
	metrics.ObserveGraph(len(msgs), g.Edges())
	return g, true
}

func (h *handler) graph(w http.ResponseWriter, r *http.Request) {
	g, ok := h.buildGraph(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (h *handler) influencers(w http.ResponseWriter, r *http.Request) {
	top := 0
	if v := r.URL.Query().Get("top"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "top must be a non-negative integer")
			return
		}
		top = n
	}
	g, ok := h.buildGraph(w, r)
	if !ok {
		return
	}
	ranked, err := socialnet.RankInfluence(g)
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	metrics.Rankings.Inc()
	if top > 0 && len(ranked) > top {
		ranked = ranked[:top]
	}
	writeJSON(w, http.StatusOK, ranked)
}

type snapshotResponse struct {
	RunID   string             `json:"run_id"`
	TakenAt string             `json:"taken_at"`
	Entries []model.Influencer `json:"entries"`
}

func (h *handler) latestSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := h.store.LatestSnapshot(r.Context())
	if errors.Is(err, sqlite.ErrNoSnapshot) {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "no ranking snapshot yet")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternal, "failed to load snapshot")
		return
	}
	writeJSON(w, http.StatusOK, snapshotResponse{
		RunID:   snap.RunID.String(),
		TakenAt: snap.TakenAt.Format(time.RFC3339),
		Entries: snap.Entries,
	})
}
