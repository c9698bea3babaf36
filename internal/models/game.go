package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"chess-coach/internal/engine"
	"chess-coach/internal/rules"
)

type PlayerColor string

const (
	White PlayerColor = "white"
	Black PlayerColor = "black"
)

// ParseColor accepts "white" and "black"; ok is false otherwise.
func ParseColor(s string) (PlayerColor, bool) {
	switch PlayerColor(s) {
	case White, Black:
		return PlayerColor(s), true
	}
	return "", false
}

func ColorOf(c engine.Color) PlayerColor {
	switch c {
	case engine.White:
		return White
	case engine.Black:
		return Black
	}
	return ""
}

func (c PlayerColor) Engine() engine.Color {
	switch c {
	case White:
		return engine.White
	case Black:
		return engine.Black
	}
	return engine.NoColor
}

func (c PlayerColor) Opposite() PlayerColor {
	if c == White {
		return Black
	}
	return White
}

type GameStatus string

const (
	GameStatusActive   GameStatus = "active"   // Game in progress
	GameStatusComplete GameStatus = "complete" // Game finished
)

// EnginePlayerID marks moves made by the engine.
const EnginePlayerID = "engine"

// Game is a game between a player and the engine. The position is stored as
// the starting FEN plus the SAN move list and rebuilt by replay.
type Game struct {
	ID          primitive.ObjectID `json:"-" bson:"_id,omitempty"`
	SessionID   string             `json:"sessionId" bson:"sessionId"`
	PlayerID    string             `json:"playerId" bson:"playerId"`
	HumanColor  PlayerColor        `json:"humanColor" bson:"humanColor"`
	Difficulty  engine.Difficulty  `json:"difficulty" bson:"difficulty"`
	StartFEN    string             `json:"startFen" bson:"startFen"`
	Moves       []string           `json:"moves" bson:"moves"`
	BoardState  string             `json:"boardState" bson:"boardState"` // FEN notation
	CurrentTurn PlayerColor        `json:"currentTurn" bson:"currentTurn"`
	Status      GameStatus         `json:"status" bson:"status"`
	Winner      PlayerColor        `json:"winner,omitempty" bson:"winner,omitempty"`
	WinReason   string             `json:"winReason,omitempty" bson:"winReason,omitempty"` // "checkmate", "resignation", draw reasons
	Result      string             `json:"result,omitempty" bson:"result,omitempty"`       // from the player's side
	Check       bool               `json:"check" bson:"check"`
	Recorded    bool               `json:"recorded" bson:"recorded"`
	RatingAfter int                `json:"ratingAfter,omitempty" bson:"ratingAfter,omitempty"`
	RatingDelta int                `json:"ratingChange,omitempty" bson:"ratingChange,omitempty"`
	MoveCount   int                `json:"moveCount" bson:"moveCount"`
	CompletedAt *time.Time         `json:"completedAt,omitempty" bson:"completedAt,omitempty"`
	CreatedAt   time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// EngineColor is the side the engine plays.
func (g *Game) EngineColor() PlayerColor {
	return g.HumanColor.Opposite()
}

// IsHumanTurn reports whether the player is to move in an active game.
func (g *Game) IsHumanTurn() bool {
	return g.Status == GameStatusActive && g.CurrentTurn == g.HumanColor
}

// Position replays the stored moves.
func (g *Game) Position() (*rules.Game, error) {
	return rules.FromMoves(g.StartFEN, g.Moves)
}

type Move struct {
	ID         primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	SessionID  string             `json:"sessionId" bson:"sessionId"`
	PlayerID   string             `json:"playerId" bson:"playerId"`
	MoveNumber int                `json:"moveNumber" bson:"moveNumber"`
	Color      PlayerColor        `json:"color" bson:"color"`
	From       string             `json:"from" bson:"from"`         // e.g., "e2"
	To         string             `json:"to" bson:"to"`             // e.g., "e4"
	Piece      string             `json:"piece" bson:"piece"`       // e.g., "pawn"
	Notation   string             `json:"notation" bson:"notation"` // Standard algebraic notation, e.g., "e4"
	Capture    bool               `json:"capture" bson:"capture"`
	Check      bool               `json:"check" bson:"check"`
	Checkmate  bool               `json:"checkmate" bson:"checkmate"`
	Promotion  string             `json:"promotion,omitempty" bson:"promotion,omitempty"`

	// Engine replies only.
	Difficulty engine.Difficulty `json:"difficulty,omitempty" bson:"difficulty,omitempty"`
	Fallback   bool              `json:"fallback,omitempty" bson:"fallback,omitempty"`
	ThinkMs    int64             `json:"thinkMs,omitempty" bson:"thinkMs,omitempty"`
	CreatedAt  time.Time         `json:"createdAt" bson:"createdAt"`
}

// NewMove builds the record of an applied move.
func NewMove(sessionID, playerID string, number int, info *engine.MoveInfo, at time.Time) *Move {
	m := &Move{
		SessionID:  sessionID,
		PlayerID:   playerID,
		MoveNumber: number,
		Color:      ColorOf(info.Color),
		From:       info.From.String(),
		To:         info.To.String(),
		Piece:      info.Piece.String(),
		Notation:   info.Notation,
		Capture:    info.IsCapture(),
		Check:      info.Check,
		Checkmate:  info.Checkmate,
		CreatedAt:  at,
	}
	if info.Promotion != engine.NoPieceType {
		m.Promotion = info.Promotion.String()
	}
	return m
}

// Starting position in FEN notation
const InitialBoardFEN = rules.StartFEN
