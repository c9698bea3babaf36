package engine

import (
	"strings"

	"github.com/pkg/errors"
)

// ScoredMove is a candidate with its score and how it was scored.
type ScoredMove struct {
	Move   string `json:"move"`
	Score  Score  `json:"score"`
	Method Method `json:"method"`
}

// Method records which scorer produced a ScoredMove.
type Method string

const (
	MethodHeuristic Method = "heuristic"
	MethodSearch    Method = "search"
	MethodOpening   Method = "opening"
)

// withMove applies notation, runs fn and undoes the move on every exit path,
// including a panic inside fn.
func withMove(pos Position, notation string, fn func(*MoveInfo) error) (err error) {
	info, err := pos.Apply(notation)
	if err != nil {
		return errors.Wrapf(err, "apply %s", notation)
	}
	if info == nil {
		info = &MoveInfo{Notation: notation}
	}
	defer func() {
		if uerr := pos.Undo(); uerr != nil && err == nil {
			err = errors.Wrapf(uerr, "undo %s", notation)
		}
	}()
	return fn(info)
}

// isSharp reports whether the notation marks a capture, check or mate.
func isSharp(notation string) bool {
	return strings.ContainsAny(notation, "x+#")
}

// ScoreMove trial-applies notation and returns the tactical bonuses, signed
// toward the mover, plus the evaluation of the resulting position.
func (e *Engine) ScoreMove(pos Position, notation string) (Score, error) {
	mover := pos.Turn()
	b := e.tables.Bonuses

	var score Score
	err := withMove(pos, notation, func(m *MoveInfo) error {
		bonus := 0
		if pos.IsCheckmate() {
			bonus += b.Checkmate
		}
		if pos.IsCheck() {
			bonus += b.Check
		}
		if m.IsCapture() {
			bonus += b.Capture
			captured := e.tables.Material[m.Captured]
			moving := e.tables.Material[m.Piece]
			if captured > moving && b.TradeDivisor > 0 {
				bonus += (captured - moving) / b.TradeDivisor
			}
		}
		if m.IsCastle() {
			bonus += b.Castling
		}
		if m.Promotion != NoPieceType {
			bonus += b.Promotion
		}
		if e.tables.isCenter(m.To) {
			bonus += b.Center
		}

		score = mover.Sign()*Score(bonus) + e.evaluator.Evaluate(pos)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return score, nil
}
