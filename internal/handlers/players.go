package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"chess-coach/internal/audit"
	"chess-coach/internal/auth"
	"chess-coach/internal/progress"
)

type PlayerHandler struct {
	jwtService *auth.JWTService
	progress   *progress.Service
	audit      *audit.Logger
}

func NewPlayerHandler(jwtService *auth.JWTService, progressService *progress.Service, auditLogger *audit.Logger) *PlayerHandler {
	return &PlayerHandler{jwtService: jwtService, progress: progressService, audit: auditLogger}
}

type CreatePlayerResponse struct {
	PlayerID  string             `json:"playerId"`
	Token     string             `json:"token"`
	ExpiresAt time.Time          `json:"expiresAt"`
	Progress  *progress.Progress `json:"progress"`
}

// CreatePlayer issues a new anonymous player and its token.
// POST /api/players
func (h *PlayerHandler) CreatePlayer(w http.ResponseWriter, r *http.Request) {
	playerID := uuid.NewString()
	token, err := h.jwtService.GenerateToken(playerID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to issue token")
		return
	}
	p, err := h.progress.Get(r.Context(), playerID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load progress")
		return
	}

	h.audit.LogEvent(r, audit.EventPlayerCreated, playerID, 0, "")
	respondWithJSON(w, http.StatusCreated, CreatePlayerResponse{
		PlayerID:  playerID,
		Token:     token,
		ExpiresAt: time.Now().Add(h.jwtService.TTL()),
		Progress:  p,
	})
}

// DeletePlayer erases the caller's stored progress.
// DELETE /api/players/me
func (h *PlayerHandler) DeletePlayer(w http.ResponseWriter, r *http.Request) {
	playerID, ok := requirePlayer(w, r)
	if !ok {
		return
	}
	if err := h.progress.Delete(r.Context(), playerID); err != nil && !errors.Is(err, progress.ErrNotFound) {
		respondWithError(w, http.StatusInternalServerError, "Failed to delete player")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
