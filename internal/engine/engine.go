// Package engine picks a move for the computer side. Legality, move
// application and terminal detection are delegated to a Position.
package engine

import (
	"log"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// RandomSource supplies the random pick among the top-ranked moves.
type RandomSource interface {
	// Intn returns a value in [0, n).
	Intn(n int) int
}

type lockedSource struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func (s *lockedSource) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rnd.Intn(n)
}

// NewRandomSource returns a goroutine-safe source seeded with seed.
func NewRandomSource(seed int64) RandomSource {
	return &lockedSource{rnd: rand.New(rand.NewSource(seed))}
}

// Engine selects moves. It holds only immutable configuration, so one Engine
// may serve concurrent callers as long as each uses its own Position.
type Engine struct {
	tables    *Tables
	evaluator Evaluator
	random    RandomSource
}

// Option configures an Engine.
type Option func(*Engine)

// WithTables replaces the default tables. The evaluator is rebuilt over them
// unless WithEvaluator is also given.
func WithTables(t *Tables) Option {
	return func(e *Engine) { e.tables = t }
}

// WithEvaluator replaces the table evaluator.
func WithEvaluator(ev Evaluator) Option {
	return func(e *Engine) { e.evaluator = ev }
}

// WithRandom replaces the time-seeded random source.
func WithRandom(r RandomSource) Option {
	return func(e *Engine) { e.random = r }
}

// New builds an Engine with the default tables and evaluator.
func New(opts ...Option) *Engine {
	e := &Engine{}
	for _, opt := range opts {
		opt(e)
	}
	if e.tables == nil {
		e.tables = DefaultTables()
	}
	if e.evaluator == nil {
		e.evaluator = NewTableEvaluator(e.tables)
	}
	if e.random == nil {
		e.random = NewRandomSource(time.Now().UnixNano())
	}
	return e
}

// Tables returns the engine configuration. Callers must not modify it.
func (e *Engine) Tables() *Tables {
	return e.tables
}

// Evaluate scores pos with the engine's evaluator.
func (e *Engine) Evaluate(pos Position) Score {
	return e.evaluator.Evaluate(pos)
}

// SelectMove returns one legal move for the side to move, or "" when there is
// none. It never fails while legal moves exist: any fault while scoring falls
// back to the first legal move. pos is restored before SelectMove returns.
func (e *Engine) SelectMove(pos Position, d Difficulty) (move string) {
	legal := pos.LegalMoves()
	if len(legal) == 0 {
		return ""
	}

	defer func() {
		if r := recover(); r != nil {
			log.Printf("Engine: recovered from fault, playing %s: %v", legal[0], r)
			move = legal[0]
		}
	}()

	if m, ok := e.openingMove(pos, legal); ok {
		return m
	}

	scored, faults := e.scoreAll(pos, legal, d)
	if faults != nil {
		log.Printf("Engine: %v", faults)
	}
	if len(scored) == 0 {
		return legal[0]
	}

	window := d.Window()
	if window > len(scored) {
		window = len(scored)
	}
	if window <= 1 {
		return scored[0].Move
	}
	return scored[e.random.Intn(window)].Move
}

// ScoreMoves ranks every legal move best-first for the side to move. The
// returned error aggregates candidate faults; the ranking is still usable when
// it is non-nil. Opening bias is not applied.
func (e *Engine) ScoreMoves(pos Position, d Difficulty) (scored []ScoredMove, err error) {
	legal := pos.LegalMoves()
	if len(legal) == 0 {
		return nil, nil
	}
	defer func() {
		if r := recover(); r != nil {
			scored = nil
			err = errors.Errorf("scoring aborted: %v", r)
		}
	}()
	return e.scoreAll(pos, legal, d)
}

// openingMove picks uniformly among the strong openings that are legal while
// the game is young.
func (e *Engine) openingMove(pos Position, legal []string) (string, bool) {
	if pos.PliesPlayed() >= e.tables.OpeningPlies {
		return "", false
	}
	var candidates []string
	for _, m := range legal {
		if e.tables.isOpening(m) {
			candidates = append(candidates, m)
		}
	}
	if len(candidates) == 0 {
		return "", false
	}
	return candidates[e.random.Intn(len(candidates))], true
}

func (e *Engine) scoreAll(pos Position, legal []string, d Difficulty) ([]ScoredMove, error) {
	var faults *multierror.Error
	scored := make([]ScoredMove, 0, len(legal))

	for _, move := range legal {
		sm, err := e.scoreCandidate(pos, move, d.SearchDepth())
		if err != nil {
			faults = multierror.Append(faults, err)
		}
		if sm.Move != "" {
			scored = append(scored, sm)
		}
	}

	if pos.Turn() == Black {
		sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score < scored[j].Score })
	} else {
		sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	}

	return scored, faults.ErrorOrNil()
}

// scoreCandidate searches sharp moves and heuristically scores quiet ones. A
// sharp move whose search fails is scored heuristically instead; a move that
// cannot be scored at all is returned empty.
func (e *Engine) scoreCandidate(pos Position, move string, depth int) (ScoredMove, error) {
	if isSharp(move) {
		var score Score
		searchErr := withMove(pos, move, func(*MoveInfo) error {
			var err error
			score, err = e.Search(pos, depth, -Infinity, Infinity, pos.Turn() == White)
			return err
		})
		if searchErr == nil {
			return ScoredMove{Move: move, Score: score, Method: MethodSearch}, nil
		}

		score, err := e.ScoreMove(pos, move)
		if err != nil {
			return ScoredMove{}, multierror.Append(
				errors.Wrapf(searchErr, "search %s", move),
				errors.Wrapf(err, "score %s", move),
			)
		}
		return ScoredMove{Move: move, Score: score, Method: MethodHeuristic},
			errors.Wrapf(searchErr, "search %s degraded to heuristic", move)
	}

	score, err := e.ScoreMove(pos, move)
	if err != nil {
		return ScoredMove{}, errors.Wrapf(err, "score %s", move)
	}
	return ScoredMove{Move: move, Score: score, Method: MethodHeuristic}, nil
}
