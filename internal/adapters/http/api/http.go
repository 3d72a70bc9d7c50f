// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/ladder/internal/adapters/mq/queue"
	"github.com/okian/ladder/internal/domain/leaderboard"
	"github.com/okian/ladder/internal/domain/matchresult"
	"github.com/okian/ladder/internal/domain/ranking"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	MatchDependencies
	LeaderboardDependencies
	RankDependencies
	AdminDependencies
}

// StatsFunc returns the JSON body of GET /stats.
type StatsFunc func(ctx context.Context) any

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	matchesHandler     *MatchesHandler
	leaderboardHandler *LeaderboardHandler
	rankHandler        *RankHandler
	adminHandler       *AdminHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, stats StatsFunc) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(stats),
		matchesHandler:     NewMatchesHandler(deps),
		leaderboardHandler: NewLeaderboardHandler(deps),
		rankHandler:        NewRankHandler(deps),
		adminHandler:       NewAdminHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("POST /matches", MetricsMiddleware(s.matchesHandler.HandlePostMatch, "matches"))
	mux.HandleFunc("POST /matches/sync", MetricsMiddleware(s.matchesHandler.HandlePostMatchSync, "matches_sync"))
	mux.HandleFunc("GET /leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
	mux.HandleFunc("GET /leaderboard/top", MetricsMiddleware(s.leaderboardHandler.HandleGetTop, "leaderboard_top"))
	mux.HandleFunc("GET /rank/{player_id}", MetricsMiddleware(s.rankHandler.HandleGetRank, "rank"))
	mux.HandleFunc("GET /seasons", MetricsMiddleware(s.leaderboardHandler.HandleGetSeasons, "seasons"))
	mux.HandleFunc("POST /bonus", MetricsMiddleware(s.adminHandler.HandlePostBonus, "bonus"))
	mux.HandleFunc("DELETE /seasons/{season}", MetricsMiddleware(s.adminHandler.HandleDeleteSeason, "season_reset"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeDomainError maps domain error kinds to HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, leaderboard.ErrNotFound), errors.Is(err, ranking.ErrPlayerNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, leaderboard.ErrInvalidPage),
		errors.Is(err, leaderboard.ErrInvalidLimit),
		errors.Is(err, ranking.ErrInvalidInput),
		errors.Is(err, ranking.ErrInvalidBonus),
		errors.Is(err, matchresult.ErrNotFinalized):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, matchresult.ErrAlreadyApplied):
		writeError(w, http.StatusConflict, "already_applied", err)
	case errors.Is(err, queue.ErrFull):
		writeError(w, http.StatusTooManyRequests, "backpressure", err)
	case errors.Is(err, queue.ErrClosed):
		writeError(w, http.StatusServiceUnavailable, "unavailable", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}
