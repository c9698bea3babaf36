package engine

// isTerminal reports whether the game is over in pos.
func isTerminal(pos Position) bool {
	return pos.IsCheckmate() || pos.IsDraw() || len(pos.LegalMoves()) == 0
}

// Search is minimax with alpha-beta pruning. The maximizing side is white.
// Mates are scored by distance from pos, so a mate found deeper in the tree
// scores below an immediate one. Every trial move is undone before Search
// returns, also on error.
func (e *Engine) Search(pos Position, depth int, alpha, beta Score, maximizing bool) (Score, error) {
	return e.search(pos, depth, 0, alpha, beta, maximizing)
}

func (e *Engine) search(pos Position, depth, ply int, alpha, beta Score, maximizing bool) (Score, error) {
	if depth <= 0 || isTerminal(pos) {
		return mateDistance(e.evaluator.Evaluate(pos), ply), nil
	}

	best := Infinity
	if maximizing {
		best = -Infinity
	}

	for _, move := range pos.LegalMoves() {
		var score Score
		err := withMove(pos, move, func(*MoveInfo) error {
			var err error
			score, err = e.search(pos, depth-1, ply+1, alpha, beta, !maximizing)
			return err
		})
		if err != nil {
			return 0, err
		}

		if maximizing {
			if score > best {
				best = score
			}
			if score > alpha {
				alpha = score
			}
		} else {
			if score < best {
				best = score
			}
			if score < beta {
				beta = score
			}
		}
		if beta <= alpha {
			break
		}
	}

	return best, nil
}

// mateDistance moves a mate score toward zero by the plies it took to reach.
func mateDistance(s Score, ply int) Score {
	switch {
	case s >= MateScore:
		return s - Score(ply)
	case s <= -MateScore:
		return s + Score(ply)
	}
	return s
}
