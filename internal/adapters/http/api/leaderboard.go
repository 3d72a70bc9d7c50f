package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/okian/ladder/internal/domain/types"
)

const (
	defaultPageSize = 20
	defaultTopLimit = 10
)

// LeaderboardDependencies defines the interface for leaderboard operations.
type LeaderboardDependencies interface {
	Leaderboard(ctx context.Context, season string, page, pageSize int) (types.Page, error)
	TopN(ctx context.Context, season string, n int) ([]types.Entry, error)
	Seasons(ctx context.Context) ([]string, error)
}

// LeaderboardHandler handles leaderboard requests.
type LeaderboardHandler struct {
	deps LeaderboardDependencies
}

// NewLeaderboardHandler creates a new leaderboard handler.
func NewLeaderboardHandler(deps LeaderboardDependencies) *LeaderboardHandler {
	return &LeaderboardHandler{deps: deps}
}

// HandleGetLeaderboard handles GET /leaderboard?season=&page=&page_size=.
func (h *LeaderboardHandler) HandleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := intParam(q.Get("page"), 1)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	size, err := intParam(q.Get("page_size"), defaultPageSize)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out, err := h.deps.Leaderboard(r.Context(), q.Get("season"), page, size)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleGetTop handles GET /leaderboard/top?season=&limit=.
func (h *LeaderboardHandler) HandleGetTop(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	n, err := intParam(q.Get("limit"), defaultTopLimit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	entries, err := h.deps.TopN(r.Context(), q.Get("season"), n)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// HandleGetSeasons handles GET /seasons.
func (h *LeaderboardHandler) HandleGetSeasons(w http.ResponseWriter, r *http.Request) {
	seasons, err := h.deps.Seasons(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"seasons": seasons})
}

func intParam(raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not an integer", ErrBadRequest, raw)
	}
	return n, nil
}
