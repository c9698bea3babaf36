package rules

import (
	"strings"

	"chess-coach/internal/engine"
)

// DrawReason represents the reason for a draw
type DrawReason string

const (
	DrawByStalemate            DrawReason = "stalemate"
	DrawByThreefoldRepetition  DrawReason = "threefold_repetition"
	DrawByFiftyMoves           DrawReason = "fifty_moves"
	DrawByInsufficientMaterial DrawReason = "insufficient_material"
)

// DisplayText returns a human-readable description of the draw reason
func (r DrawReason) DisplayText() string {
	switch r {
	case DrawByStalemate:
		return "Draw by stalemate"
	case DrawByThreefoldRepetition:
		return "Draw by threefold repetition"
	case DrawByFiftyMoves:
		return "Draw by 50-move rule"
	case DrawByInsufficientMaterial:
		return "Draw by insufficient material"
	default:
		return "Draw"
	}
}

// IsInsufficientMaterial checks if neither player can checkmate (FIDE rules)
// Returns true for:
// - King vs King
// - King + Bishop vs King
// - King + Knight vs King
// - King + Bishop vs King + Bishop (same color squares)
func IsInsufficientMaterial(board *engine.Snapshot) bool {
	var white, black []engine.PieceType
	var whiteBishopLight, blackBishopLight []bool

	for r := 0; r < 8; r++ {
		for f := 0; f < 8; f++ {
			p := board[r][f]
			if p.Empty() || p.Type == engine.King {
				continue
			}
			light := (r+f)%2 == 1
			if p.Color == engine.White {
				white = append(white, p.Type)
				if p.Type == engine.Bishop {
					whiteBishopLight = append(whiteBishopLight, light)
				}
			} else {
				black = append(black, p.Type)
				if p.Type == engine.Bishop {
					blackBishopLight = append(blackBishopLight, light)
				}
			}
		}
	}

	switch {
	case len(white) == 0 && len(black) == 0:
		return true
	case len(white) == 0 && len(black) == 1:
		return isMinor(black[0])
	case len(black) == 0 && len(white) == 1:
		return isMinor(white[0])
	case len(white) == 1 && len(black) == 1:
		if white[0] == engine.Bishop && black[0] == engine.Bishop {
			return whiteBishopLight[0] == blackBishopLight[0]
		}
	}
	return false
}

func isMinor(pt engine.PieceType) bool {
	return pt == engine.Bishop || pt == engine.Knight
}

// PositionKey extracts the position-relevant parts of FEN for repetition
// detection: placement, active color, castling rights and en passant square.
func PositionKey(fen string) string {
	parts := strings.Fields(fen)
	if len(parts) < 4 {
		return fen
	}
	return strings.Join(parts[:4], " ")
}

// IsFiftyMoveRule checks if 50 moves have been made without pawn move or capture.
// The halfmove clock counts plies, so 100 = 50 full moves.
func IsFiftyMoveRule(halfMoveClock int) bool {
	return halfMoveClock >= 100
}
