package engine

// Score is a white-positive evaluation in centipawns.
type Score int

// Evaluator scores a position without mutating it.
type Evaluator interface {
	Evaluate(pos Position) Score
}

// EvaluatorFunc adapts a function to Evaluator.
type EvaluatorFunc func(pos Position) Score

func (f EvaluatorFunc) Evaluate(pos Position) Score { return f(pos) }

// TableEvaluator is the stock evaluator: material, piece-square tables, center
// occupancy and mobility.
type TableEvaluator struct {
	tables *Tables
}

// NewTableEvaluator returns an evaluator over t, or DefaultTables when t is nil.
func NewTableEvaluator(t *Tables) *TableEvaluator {
	if t == nil {
		t = DefaultTables()
	}
	return &TableEvaluator{tables: t}
}

// Evaluate returns the score of pos. Checkmate is signed against the side to
// move and any draw scores zero. Mobility counts only the side to move and is
// signed toward it. A term whose read of the position panics contributes
// zero.
func (ev *TableEvaluator) Evaluate(pos Position) Score {
	if pos.IsCheckmate() {
		return -pos.Turn().Sign() * MateScore
	}
	if pos.IsDraw() {
		return 0
	}

	score := guardTerm(func() Score {
		board := pos.Snapshot()
		total := ev.material(&board)
		for _, sq := range ev.tables.Center {
			if p := board.At(sq); !p.Empty() {
				total += p.Color.Sign() * Score(ev.tables.CenterBonus)
			}
		}
		return total
	})

	score += guardTerm(func() Score {
		return pos.Turn().Sign() * Score(len(pos.LegalMoves())*ev.tables.MobilityWeight)
	})

	return score
}

// guardTerm evaluates one term, degrading a panic to zero.
func guardTerm(term func() Score) (s Score) {
	defer func() {
		if recover() != nil {
			s = 0
		}
	}()
	return term()
}

// material sums piece values and placement bonuses over the board.
func (ev *TableEvaluator) material(board *Snapshot) Score {
	var score Score
	for rank := 0; rank < 8; rank++ {
		for file := 0; file < 8; file++ {
			p := board[rank][file]
			if p.Empty() {
				continue
			}
			value, ok := ev.tables.Material[p.Type]
			if !ok {
				continue
			}
			total := value + ev.tables.pieceSquare(p, rank, file)
			score += p.Color.Sign() * Score(total)
		}
	}
	return score
}
