package api

import (
	"context"
	"net/http"

	"github.com/okian/ladder/internal/domain/types"
)

// RankDependencies defines the interface for rank operations.
type RankDependencies interface {
	Card(ctx context.Context, playerID, season string) (types.Entry, error)
}

// RankHandler handles rank requests.
type RankHandler struct {
	deps RankDependencies
}

// NewRankHandler creates a new rank handler.
func NewRankHandler(deps RankDependencies) *RankHandler {
	return &RankHandler{deps: deps}
}

// HandleGetRank handles GET /rank/{player_id}?season= requests.
func (h *RankHandler) HandleGetRank(w http.ResponseWriter, r *http.Request) {
	playerID := r.PathValue("player_id")
	if playerID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	entry, err := h.deps.Card(r.Context(), playerID, r.URL.Query().Get("season"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}
