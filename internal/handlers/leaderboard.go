package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"chess-coach/internal/progress"
)

type LeaderboardHandler struct {
	progress *progress.Service
}

func NewLeaderboardHandler(progressService *progress.Service) *LeaderboardHandler {
	return &LeaderboardHandler{progress: progressService}
}

// GetLeaderboard returns the top players by rating.
// GET /api/leaderboard?limit=N
func (h *LeaderboardHandler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			respondWithError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	standings, err := h.progress.Leaderboard(r.Context(), limit)
	if errors.Is(err, progress.ErrNoLeaderboard) {
		respondWithError(w, http.StatusNotImplemented, "Leaderboard not available")
		return
	}
	if err != nil {
		log.Printf("Failed to build leaderboard: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to load leaderboard")
		return
	}
	respondWithJSON(w, http.StatusOK, standings)
}
