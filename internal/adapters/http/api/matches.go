package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/okian/ladder/internal/domain/matchresult"
	"github.com/okian/ladder/internal/domain/model"
)

// MatchDependencies defines the match ingestion operations.
type MatchDependencies interface {
	// Submit enqueues a finalized match for async processing.
	Submit(ctx context.Context, m model.MatchResult) error
	// Process applies a finalized match before returning.
	Process(ctx context.Context, m model.MatchResult) (matchresult.Report, error)
}

// MatchesHandler handles match submissions.
type MatchesHandler struct {
	deps MatchDependencies
}

// NewMatchesHandler creates a new matches handler.
func NewMatchesHandler(deps MatchDependencies) *MatchesHandler {
	return &MatchesHandler{deps: deps}
}

// matchRequest mirrors the OpenAPI schema for POST /matches.
type matchRequest struct {
	MatchID          string   `json:"match_id"`
	Season           string   `json:"season"`
	WinnerPlayerIDs  []string `json:"winner_player_ids"`
	LoserPlayerIDs   []string `json:"loser_player_ids"`
	MVPPlayerID      string   `json:"mvp_player_id"`
	LoserMVPPlayerID string   `json:"loser_mvp_player_id"`
	FinalizedAt      string   `json:"finalized_at"`
}

func (r matchRequest) toModel() (model.MatchResult, error) {
	if strings.TrimSpace(r.MatchID) == "" {
		return model.MatchResult{}, fmt.Errorf("%w: missing match_id", ErrBadRequest)
	}
	m := model.MatchResult{
		MatchID:          strings.TrimSpace(r.MatchID),
		Season:           strings.TrimSpace(r.Season),
		WinnerPlayerIDs:  r.WinnerPlayerIDs,
		LoserPlayerIDs:   r.LoserPlayerIDs,
		MVPPlayerID:      strings.TrimSpace(r.MVPPlayerID),
		LoserMVPPlayerID: strings.TrimSpace(r.LoserMVPPlayerID),
	}
	if r.FinalizedAt != "" {
		ts, err := time.Parse(time.RFC3339, r.FinalizedAt)
		if err != nil {
			return model.MatchResult{}, fmt.Errorf("%w: invalid finalized_at; must be RFC3339", ErrBadRequest)
		}
		m.FinalizedAt = ts
	}
	return m, nil
}

type ackResponse struct {
	Status  string `json:"status"`
	MatchID string `json:"match_id"`
}

func decodeMatch(r *http.Request) (model.MatchResult, error) {
	var req matchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return model.MatchResult{}, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return req.toModel()
}

// HandlePostMatch handles POST /matches requests.
func (h *MatchesHandler) HandlePostMatch(w http.ResponseWriter, r *http.Request) {
	m, err := decodeMatch(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := h.deps.Submit(r.Context(), m); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", MatchID: m.MatchID})
}

// HandlePostMatchSync handles POST /matches/sync requests.
func (h *MatchesHandler) HandlePostMatchSync(w http.ResponseWriter, r *http.Request) {
	m, err := decodeMatch(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	report, err := h.deps.Process(r.Context(), m)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
