// Package coach turns engine output into position analysis and hints.
package coach

import (
	"context"
	"fmt"

	"chess-coach/internal/agent"
	"chess-coach/internal/engine"
	"chess-coach/internal/rules"
)

// Phase is the stage of the game judged by plies played.
type Phase string

const (
	PhaseOpening    Phase = "opening"
	PhaseMiddlegame Phase = "middlegame"
	PhaseEndgame    Phase = "endgame"
)

// TradeQuality compares the captured piece with the capturing one.
type TradeQuality string

const (
	TradeGood  TradeQuality = "good"
	TradeEqual TradeQuality = "equal"
	TradeRisky TradeQuality = "risky"
)

// Analysis summarises a position.
type Analysis struct {
	FEN            string       `json:"fen"`
	Evaluation     engine.Score `json:"evaluation"`
	WinningChances string       `json:"winningChances"`
	BestMove       string       `json:"bestMove,omitempty"`
	Phase          Phase        `json:"phase"`
	Turn           string       `json:"turn"`
	InCheck        bool         `json:"inCheck"`
	Checkmate      bool         `json:"checkmate"`
	Draw           bool         `json:"draw"`
	DrawReason     string       `json:"drawReason,omitempty"`
	LegalMoveCount int          `json:"legalMoveCount"`
	EngineFallback bool         `json:"engineFallback,omitempty"`
}

// Features are the notable properties of one move.
type Features struct {
	Move          string       `json:"move"`
	Checkmate     bool         `json:"checkmate"`
	Check         bool         `json:"check"`
	Capture       bool         `json:"capture"`
	Piece         string       `json:"piece"`
	Captured      string       `json:"captured,omitempty"`
	Trade         TradeQuality `json:"trade,omitempty"`
	Castling      string       `json:"castling,omitempty"`
	CenterSquare  bool         `json:"centerSquare"`
	Development   bool         `json:"development"`
	Promotion     string       `json:"promotion,omitempty"`
	DoubleAdvance bool         `json:"doubleAdvance"`
}

// Hint is a suggested move and why it stands out.
type Hint struct {
	Move     string   `json:"move"`
	Features Features `json:"features"`
}

// Coach analyses positions with a move runner.
type Coach struct {
	runner *agent.Runner
}

func New(runner *agent.Runner) *Coach {
	return &Coach{runner: runner}
}

// Analyze evaluates g and asks the engine for its move at difficulty d.
func (c *Coach) Analyze(ctx context.Context, g *rules.Game, d engine.Difficulty) (Analysis, error) {
	eval := c.runner.Engine().Evaluate(g)
	a := Analysis{
		FEN:            g.FEN(),
		Evaluation:     eval,
		WinningChances: WinningChances(eval),
		Phase:          PhaseOf(g.PliesPlayed()),
		Turn:           g.Turn().String(),
		InCheck:        g.IsCheck(),
		Checkmate:      g.IsCheckmate(),
		LegalMoveCount: len(g.LegalMoves()),
	}
	if reason, ok := g.DrawReason(); ok {
		a.Draw = true
		a.DrawReason = reason.DisplayText()
	}
	if a.LegalMoveCount == 0 || a.Draw {
		return a, nil
	}

	res, err := c.runner.Move(ctx, g, d)
	if err != nil {
		return a, fmt.Errorf("engine move: %w", err)
	}
	a.BestMove = res.Move
	a.EngineFallback = res.Fallback
	return a, nil
}

// Hint suggests the engine's move at difficulty d with its features.
func (c *Coach) Hint(ctx context.Context, g *rules.Game, d engine.Difficulty) (Hint, error) {
	res, err := c.runner.Move(ctx, g, d)
	if err != nil {
		return Hint{}, fmt.Errorf("engine move: %w", err)
	}
	f, err := Describe(g, res.Move)
	if err != nil {
		return Hint{}, err
	}
	return Hint{Move: res.Move, Features: f}, nil
}

// Describe reports the features of a legal move without changing g.
func Describe(g *rules.Game, move string) (f Features, err error) {
	info, err := g.Apply(move)
	if err != nil {
		return Features{}, err
	}
	defer func() {
		if uerr := g.Undo(); uerr != nil && err == nil {
			err = uerr
		}
	}()

	f = Features{
		Move:         info.Notation,
		Checkmate:    info.Checkmate,
		Check:        info.Check,
		Capture:      info.IsCapture(),
		Piece:        info.Piece.String(),
		CenterSquare: isCenter(info.To),
		Development:  info.Piece == engine.Knight || info.Piece == engine.Bishop,
	}
	if info.IsCapture() {
		f.Captured = info.Captured.String()
		f.Trade = tradeQuality(info.Captured, info.Piece)
	}
	switch {
	case info.KingSideCastle:
		f.Castling = "kingside"
	case info.QueenSideCastle:
		f.Castling = "queenside"
	}
	if info.Promotion != engine.NoPieceType {
		f.Promotion = info.Promotion.String()
	}
	if info.Piece == engine.Pawn {
		diff := info.To.Rank - info.From.Rank
		f.DoubleAdvance = diff == 2 || diff == -2
	}
	return f, nil
}

// WinningChances buckets a white-positive evaluation into a white-black split.
func WinningChances(eval engine.Score) string {
	abs := eval
	if abs < 0 {
		abs = -abs
	}
	white := eval > 0
	pick := func(w, b string) string {
		if white {
			return w
		}
		return b
	}
	switch {
	case abs < 50:
		return "50-50"
	case abs < 100:
		return pick("60-40", "40-60")
	case abs < 200:
		return pick("70-30", "30-70")
	case abs < 500:
		return pick("80-20", "20-80")
	default:
		return pick("90-10", "10-90")
	}
}

// PhaseOf classifies a game by plies played.
func PhaseOf(plies int) Phase {
	switch {
	case plies < 10:
		return PhaseOpening
	case plies < 30:
		return PhaseMiddlegame
	default:
		return PhaseEndgame
	}
}

// Points in pawns, used only to judge trades.
var points = map[engine.PieceType]int{
	engine.Pawn:   1,
	engine.Knight: 3,
	engine.Bishop: 3,
	engine.Rook:   5,
	engine.Queen:  9,
}

func tradeQuality(captured, moving engine.PieceType) TradeQuality {
	switch c, m := points[captured], points[moving]; {
	case c > m:
		return TradeGood
	case c < m:
		return TradeRisky
	}
	return TradeEqual
}

func isCenter(sq engine.Square) bool {
	return sq.File >= 3 && sq.File <= 4 && sq.Rank >= 3 && sq.Rank <= 4
}
