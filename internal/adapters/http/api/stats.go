package api

import (
	"net/http"
)

// StatsHandler handles stats requests.
type StatsHandler struct {
	stats StatsFunc
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(stats StatsFunc) *StatsHandler {
	return &StatsHandler{stats: stats}
}

// HandleStats handles GET /stats requests.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if h.stats == nil {
		writeJSON(w, http.StatusOK, map[string]any{})
		return
	}
	writeJSON(w, http.StatusOK, h.stats(r.Context()))
}
