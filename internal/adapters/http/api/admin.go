package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/okian/ladder/internal/domain/types"
)

// AdminDependencies defines the administrative operations.
type AdminDependencies interface {
	AddBonus(ctx context.Context, playerID, season string, points int) (types.Entry, error)
	ResetSeason(ctx context.Context, season string) (int, error)
}

// AdminHandler handles bonus and season reset requests.
type AdminHandler struct {
	deps AdminDependencies
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(deps AdminDependencies) *AdminHandler {
	return &AdminHandler{deps: deps}
}

type bonusRequest struct {
	PlayerID string `json:"player_id"`
	Season   string `json:"season"`
	Points   *int   `json:"points"`
}

type resetResponse struct {
	Season  string `json:"season"`
	Removed int    `json:"removed"`
}

// HandlePostBonus handles POST /bonus requests.
func (h *AdminHandler) HandlePostBonus(w http.ResponseWriter, r *http.Request) {
	var req bonusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDomainError(w, fmt.Errorf("%w: %v", ErrBadRequest, err))
		return
	}
	if req.Points == nil {
		writeDomainError(w, fmt.Errorf("%w: missing points", ErrBadRequest))
		return
	}
	entry, err := h.deps.AddBonus(r.Context(), req.PlayerID, req.Season, *req.Points)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// HandleDeleteSeason handles DELETE /seasons/{season} requests.
func (h *AdminHandler) HandleDeleteSeason(w http.ResponseWriter, r *http.Request) {
	season := r.PathValue("season")
	n, err := h.deps.ResetSeason(r.Context(), season)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resetResponse{Season: season, Removed: n})
}
