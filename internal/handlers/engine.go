package handlers

import (
	"errors"
	"net/http"

	"chess-coach/internal/agent"
	"chess-coach/internal/coach"
	"chess-coach/internal/engine"
	"chess-coach/internal/rules"
)

// EngineHandler serves stateless engine calls on a position given by FEN
// and/or a move list.
type EngineHandler struct {
	runner            *agent.Runner
	coach             *coach.Coach
	defaultDifficulty engine.Difficulty
}

func NewEngineHandler(runner *agent.Runner, c *coach.Coach, defaultDifficulty engine.Difficulty) *EngineHandler {
	if !defaultDifficulty.Valid() {
		defaultDifficulty = engine.Medium
	}
	return &EngineHandler{runner: runner, coach: c, defaultDifficulty: defaultDifficulty}
}

type EngineRequest struct {
	FEN        string   `json:"fen" validate:"omitempty,max=100"`
	Moves      []string `json:"moves" validate:"max=1000,dive,min=2,max=10"`
	Difficulty string   `json:"difficulty" validate:"omitempty,oneof=easy medium hard"`
	Move       string   `json:"move" validate:"omitempty,max=10"`
}

type EngineMoveResponse struct {
	Move       string            `json:"move"`
	Difficulty engine.Difficulty `json:"difficulty"`
	Fallback   bool              `json:"fallback"`
	ElapsedMs  int64             `json:"elapsedMs"`
	FEN        string            `json:"fen"` // position after the move
}

// position decodes the request and rebuilds its position. On failure it has
// already written the response.
func (h *EngineHandler) position(w http.ResponseWriter, r *http.Request) (*EngineRequest, *rules.Game, engine.Difficulty, bool) {
	var req EngineRequest
	if !decodeRequest(w, r, &req) {
		return nil, nil, "", false
	}
	g, err := rules.FromMoves(req.FEN, req.Moves)
	if err != nil {
		respondWithJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid position", Details: err.Error()})
		return nil, nil, "", false
	}
	d := h.defaultDifficulty
	if req.Difficulty != "" {
		d = engine.Difficulty(req.Difficulty)
	}
	return &req, g, d, true
}

func (h *EngineHandler) engineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrNoLegalMoves):
		respondWithError(w, http.StatusUnprocessableEntity, "No legal moves in this position")
	case errors.Is(err, engine.ErrIllegalMove):
		respondWithError(w, http.StatusBadRequest, "Illegal move")
	default:
		respondWithError(w, http.StatusServiceUnavailable, "Engine unavailable")
	}
}

// Move returns the engine's move.
// POST /api/engine/move
func (h *EngineHandler) Move(w http.ResponseWriter, r *http.Request) {
	_, g, d, ok := h.position(w, r)
	if !ok {
		return
	}
	res, err := h.runner.Move(r.Context(), g, d)
	if err != nil {
		h.engineError(w, err)
		return
	}
	if _, err := g.Apply(res.Move); err != nil {
		h.engineError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, EngineMoveResponse{
		Move:       g.LastMove(),
		Difficulty: res.Difficulty,
		Fallback:   res.Fallback,
		ElapsedMs:  res.Elapsed.Milliseconds(),
		FEN:        g.FEN(),
	})
}

// Analyze evaluates the position.
// POST /api/engine/analyze
func (h *EngineHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	_, g, d, ok := h.position(w, r)
	if !ok {
		return
	}
	a, err := h.coach.Analyze(r.Context(), g, d)
	if err != nil {
		h.engineError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, a)
}

// Hint suggests a move with its features.
// POST /api/engine/hint
func (h *EngineHandler) Hint(w http.ResponseWriter, r *http.Request) {
	_, g, d, ok := h.position(w, r)
	if !ok {
		return
	}
	hint, err := h.coach.Hint(r.Context(), g, d)
	if err != nil {
		h.engineError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, hint)
}

// Describe reports the features of the requested move.
// POST /api/engine/describe
func (h *EngineHandler) Describe(w http.ResponseWriter, r *http.Request) {
	req, g, _, ok := h.position(w, r)
	if !ok {
		return
	}
	if req.Move == "" {
		respondWithJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation failed", Details: "move is required"})
		return
	}
	f, err := coach.Describe(g, req.Move)
	if err != nil {
		h.engineError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, f)
}
