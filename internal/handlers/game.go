package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"chess-coach/internal/engine"
	"chess-coach/internal/models"
	"chess-coach/internal/session"
)

type GameHandler struct {
	sessions          *session.Service
	defaultDifficulty engine.Difficulty
}

func NewGameHandler(sessions *session.Service, defaultDifficulty engine.Difficulty) *GameHandler {
	return &GameHandler{sessions: sessions, defaultDifficulty: defaultDifficulty}
}

type CreateGameRequest struct {
	Color      string `json:"color" validate:"required,oneof=white black"`
	Difficulty string `json:"difficulty" validate:"omitempty,oneof=easy medium hard"`
}

type MakeMoveRequest struct {
	Move string `json:"move" validate:"required,min=2,max=10"`
}

type GameResponse struct {
	Game  *models.Game  `json:"game"`
	Moves []models.Move `json:"moves"`
}

func respondWithSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrNotFound):
		respondWithError(w, http.StatusNotFound, "Game not found")
	case errors.Is(err, session.ErrNotYourGame):
		respondWithError(w, http.StatusForbidden, "You are not a player in this game")
	case errors.Is(err, session.ErrNotYourTurn):
		respondWithError(w, http.StatusConflict, "Not your turn")
	case errors.Is(err, session.ErrGameOver):
		respondWithError(w, http.StatusConflict, "Game is not active")
	case errors.Is(err, session.ErrInvalidColor):
		respondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, engine.ErrIllegalMove):
		respondWithError(w, http.StatusBadRequest, "Illegal move")
	default:
		log.Printf("Game request failed: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// CreateGame starts a game against the engine.
// POST /api/games
func (h *GameHandler) CreateGame(w http.ResponseWriter, r *http.Request) {
	playerID, ok := requirePlayer(w, r)
	if !ok {
		return
	}
	var req CreateGameRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	d := h.defaultDifficulty
	if req.Difficulty != "" {
		d = engine.Difficulty(req.Difficulty)
	}

	up, err := h.sessions.Create(r.Context(), playerID, models.PlayerColor(req.Color), d)
	if err != nil {
		respondWithSessionError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, up)
}

// GetGame returns a game with its move records.
// GET /api/games/{sessionId}
func (h *GameHandler) GetGame(w http.ResponseWriter, r *http.Request) {
	playerID, ok := requirePlayer(w, r)
	if !ok {
		return
	}
	game, moves, err := h.sessions.Get(r.Context(), mux.Vars(r)["sessionId"])
	if err != nil {
		respondWithSessionError(w, err)
		return
	}
	if game.PlayerID != playerID {
		respondWithSessionError(w, session.ErrNotYourGame)
		return
	}
	respondWithJSON(w, http.StatusOK, GameResponse{Game: game, Moves: moves})
}

// MakeMove plays the player's move; the response carries the engine reply.
// POST /api/games/{sessionId}/move
func (h *GameHandler) MakeMove(w http.ResponseWriter, r *http.Request) {
	playerID, ok := requirePlayer(w, r)
	if !ok {
		return
	}
	var req MakeMoveRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	up, err := h.sessions.Move(r.Context(), mux.Vars(r)["sessionId"], playerID, req.Move)
	if err != nil {
		respondWithSessionError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, up)
}

// ResignGame ends the game as a loss for the player.
// POST /api/games/{sessionId}/resign
func (h *GameHandler) ResignGame(w http.ResponseWriter, r *http.Request) {
	playerID, ok := requirePlayer(w, r)
	if !ok {
		return
	}
	up, err := h.sessions.Resign(r.Context(), mux.Vars(r)["sessionId"], playerID)
	if err != nil {
		respondWithSessionError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, up)
}
