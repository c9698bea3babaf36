package rules

import "chess-coach/internal/engine"

var (
	knightJumps = [][2]int{{1, 2}, {2, 1}, {2, -1}, {1, -2}, {-1, -2}, {-2, -1}, {-2, 1}, {-1, 2}}
	kingSteps   = [][2]int{{1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0}, {-1, -1}, {0, -1}, {1, -1}}
	rookRays    = [][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
	bishopRays  = [][2]int{{1, 1}, {1, -1}, {-1, 1}, {-1, -1}}
)

// InCheck returns true if the king of color c is attacked on board.
func InCheck(board *engine.Snapshot, c engine.Color) bool {
	king, found := findKing(board, c)
	if !found {
		return false
	}
	return IsAttacked(board, king, c.Other())
}

func findKing(board *engine.Snapshot, c engine.Color) (engine.Square, bool) {
	for r := 0; r < 8; r++ {
		for f := 0; f < 8; f++ {
			if p := board[r][f]; p.Type == engine.King && p.Color == c {
				return engine.Square{File: f, Rank: r}, true
			}
		}
	}
	return engine.Square{}, false
}

// IsAttacked reports whether any piece of color by attacks sq.
func IsAttacked(board *engine.Snapshot, sq engine.Square, by engine.Color) bool {
	at := func(df, dr int) engine.Piece {
		return board.At(engine.Square{File: sq.File + df, Rank: sq.Rank + dr})
	}

	// A white pawn attacks upward, so it sits one rank below its target.
	pawnRank := -1
	if by == engine.Black {
		pawnRank = 1
	}
	for _, df := range []int{-1, 1} {
		if p := at(df, pawnRank); p.Type == engine.Pawn && p.Color == by {
			return true
		}
	}

	for _, j := range knightJumps {
		if p := at(j[0], j[1]); p.Type == engine.Knight && p.Color == by {
			return true
		}
	}
	for _, s := range kingSteps {
		if p := at(s[0], s[1]); p.Type == engine.King && p.Color == by {
			return true
		}
	}

	return slides(board, sq, by, rookRays, engine.Rook) || slides(board, sq, by, bishopRays, engine.Bishop)
}

// slides walks each ray from sq and reports a hit by a slider of type pt or a queen.
func slides(board *engine.Snapshot, sq engine.Square, by engine.Color, rays [][2]int, pt engine.PieceType) bool {
	for _, ray := range rays {
		cur := sq
		for {
			cur = engine.Square{File: cur.File + ray[0], Rank: cur.Rank + ray[1]}
			if !cur.Valid() {
				break
			}
			p := board.At(cur)
			if p.Empty() {
				continue
			}
			if p.Color == by && (p.Type == pt || p.Type == engine.Queen) {
				return true
			}
			break
		}
	}
	return false
}
