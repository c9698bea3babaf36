package handlers

import (
	"log"
	"net/http"

	"chess-coach/internal/audit"
	"chess-coach/internal/progress"
)

type ProgressHandler struct {
	progress *progress.Service
	audit    *audit.Logger
}

func NewProgressHandler(progressService *progress.Service, auditLogger *audit.Logger) *ProgressHandler {
	return &ProgressHandler{progress: progressService, audit: auditLogger}
}

// GET /api/progress
func (h *ProgressHandler) GetProgress(w http.ResponseWriter, r *http.Request) {
	playerID, ok := requirePlayer(w, r)
	if !ok {
		return
	}
	p, err := h.progress.Get(r.Context(), playerID)
	if err != nil {
		log.Printf("Failed to load progress for %s: %v", playerID, err)
		respondWithError(w, http.StatusInternalServerError, "Failed to load progress")
		return
	}
	respondWithJSON(w, http.StatusOK, p)
}

// GET /api/progress/stats
func (h *ProgressHandler) GetStatistics(w http.ResponseWriter, r *http.Request) {
	playerID, ok := requirePlayer(w, r)
	if !ok {
		return
	}
	stats, err := h.progress.Statistics(r.Context(), playerID)
	if err != nil {
		log.Printf("Failed to load statistics for %s: %v", playerID, err)
		respondWithError(w, http.StatusInternalServerError, "Failed to load statistics")
		return
	}
	respondWithJSON(w, http.StatusOK, stats)
}

// ResetProgress clears curriculum progress; rating and game history stay.
// POST /api/progress/reset
func (h *ProgressHandler) ResetProgress(w http.ResponseWriter, r *http.Request) {
	playerID, ok := requirePlayer(w, r)
	if !ok {
		return
	}
	p, err := h.progress.Reset(r.Context(), playerID)
	if err != nil {
		log.Printf("Failed to reset progress for %s: %v", playerID, err)
		respondWithError(w, http.StatusInternalServerError, "Failed to reset progress")
		return
	}
	h.audit.LogEvent(r, audit.EventProgressReset, playerID, 0, "")
	respondWithJSON(w, http.StatusOK, p)
}
