// Package rating measures how the engine plays across game phases.
package rating

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"gonum.org/v1/gonum/stat"

	"chess-coach/internal/agent"
	"chess-coach/internal/engine"
	"chess-coach/internal/rules"
)

// Weights of each category in the overall score.
var Weights = map[string]float64{
	"opening":     0.15,
	"middlegame":  0.25,
	"endgame":     0.15,
	"tactical":    0.20,
	"positional":  0.15,
	"speed":       0.05,
	"consistency": 0.05,
}

// Tactical and positional points per kind of middlegame move.
const (
	pointsCheckmate   = 100
	pointsCheck       = 10
	pointsCapture     = 8
	pointsCastling    = 6
	pointsCenter      = 5
	pointsDevelopment = 4
	pointsOpening     = 10
	pointsPuzzle       = 15
	pointsEndgame     = 20
)

var italianSetup = []string{"e4", "e5", "Nf3", "Nc6", "Bc4", "Bc5", "O-O", "Nf6", "d3", "O-O"}

// puzzle is a position with a move the engine is expected to find.
type puzzle struct {
	name  string
	fen   string
	moves []string
	found func(move string) bool
}

var puzzles = []puzzle{
	{
		name:  "hanging knight",
		moves: []string{"e4", "e5", "Nf3", "Nc6", "Bc4", "Nf6", "Nc3", "d6", "d3", "Be7", "O-O", "O-O", "Ng5", "h6", "Nxf7"},
		found: func(m string) bool { return strings.Contains(m, "xf7") },
	},
	{
		name:  "mate in one",
		fen:   "6k1/5ppp/8/8/8/8/5PPP/R5K1 w - - 0 30",
		found: func(m string) bool { return strings.HasSuffix(m, "#") },
	},
}

// Report is the outcome of an assessment. Category scores are 0-100.
type Report struct {
	Difficulty  engine.Difficulty `json:"difficulty"`
	Overall     int               `json:"overall"`
	Opening     int               `json:"opening"`
	Middlegame  int               `json:"middlegame"`
	Endgame     int               `json:"endgame"`
	Tactical    int               `json:"tactical"`
	Positional  int               `json:"positional"`
	Speed       int               `json:"speed"`
	Consistency int               `json:"consistency"`
	Details     Details           `json:"details"`
}

// Details holds the raw counts behind a Report.
type Details struct {
	OpeningMoves     []string        `json:"openingMoves"`
	PuzzlesSolved     map[string]bool `json:"puzzlesSolved"`
	TacticalPoints   int             `json:"tacticalPoints"`
	PositionalPoints int             `json:"positionalPoints"`
	EndgamePoints    int             `json:"endgamePoints"`
	TotalMoves       int             `json:"totalMoves"`
	MeanMoveTime     time.Duration   `json:"meanMoveTime"`
	MoveTimeStdDev   time.Duration   `json:"moveTimeStdDev"`
	TotalTime        time.Duration   `json:"totalTime"`
}

type assessment struct {
	ctx    context.Context
	runner *agent.Runner
	d      engine.Difficulty
	times  []float64
	det    Details
}

// Assess plays the fixed test suite at difficulty d.
func Assess(ctx context.Context, runner *agent.Runner, d engine.Difficulty) (Report, error) {
	start := time.Now()
	a := &assessment{
		ctx:    ctx,
		runner: runner,
		d:      d,
		det:    Details{PuzzlesSolved: map[string]bool{}},
	}

	steps := []struct {
		name string
		run  func() error
	}{
		{"opening", a.opening},
		{"middlegame", a.middlegame},
		{"endgame", a.endgame},
		{"tactics", a.tactics},
	}
	for _, step := range steps {
		if err := step.run(); err != nil {
			return Report{}, fmt.Errorf("%s: %w", step.name, err)
		}
	}

	a.det.TotalTime = time.Since(start)
	return a.report(), nil
}

// move asks the runner for a move and plays it on g.
func (a *assessment) move(g *rules.Game) (string, *engine.MoveInfo, error) {
	t0 := time.Now()
	res, err := a.runner.Move(a.ctx, g, a.d)
	if err != nil {
		return "", nil, err
	}
	a.times = append(a.times, float64(time.Since(t0))/float64(time.Millisecond))
	a.det.TotalMoves++

	info, err := g.Apply(res.Move)
	if err != nil {
		return "", nil, err
	}
	return res.Move, info, nil
}

func (a *assessment) opening() error {
	g := rules.New()
	for i := 0; i < 6; i++ {
		m, _, err := a.move(g)
		if err != nil {
			return err
		}
		a.det.OpeningMoves = append(a.det.OpeningMoves, m)
		if isStrongOpening(m) {
			a.det.TacticalPoints += pointsOpening
		}
	}
	return nil
}

func (a *assessment) middlegame() error {
	g, err := rules.FromMoves("", italianSetup)
	if err != nil {
		return err
	}
	for i := 0; i < 10; i++ {
		if len(g.LegalMoves()) == 0 {
			break
		}
		_, info, err := a.move(g)
		if err != nil {
			return err
		}
		switch {
		case info.Checkmate:
			a.det.TacticalPoints += pointsCheckmate
		case info.Check:
			a.det.TacticalPoints += pointsCheck
		case info.IsCapture():
			a.det.TacticalPoints += pointsCapture
		case info.IsCastle():
			a.det.PositionalPoints += pointsCastling
		case info.Piece == engine.Pawn && (info.To.Rank == 3 || info.To.Rank == 4):
			a.det.PositionalPoints += pointsCenter
		case info.Piece == engine.Knight:
			a.det.PositionalPoints += pointsDevelopment
		}
	}
	return nil
}

func (a *assessment) endgame() error {
	g, err := rules.FromFEN("8/8/8/4k3/8/8/8/4K3 w - - 0 1")
	if err != nil {
		return err
	}
	for i := 0; i < 5; i++ {
		if _, _, err := a.move(g); err != nil {
			return err
		}
		a.det.EndgamePoints += pointsEndgame
	}
	return nil
}

func (a *assessment) tactics() error {
	for _, p := range puzzles {
		g, err := rules.FromMoves(p.fen, p.moves)
		if err != nil {
			return fmt.Errorf("puzzle %s: %w", p.name, err)
		}
		m, _, err := a.move(g)
		if err != nil {
			return fmt.Errorf("puzzle %s: %w", p.name, err)
		}
		solved := p.found(m)
		a.det.PuzzlesSolved[p.name] = solved
		if solved {
			a.det.TacticalPoints += pointsPuzzle
		}
	}
	return nil
}

func (a *assessment) report() Report {
	total := float64(a.det.TotalMoves)
	mean, sd := moveTimeStats(a.times)
	a.det.MeanMoveTime = time.Duration(mean * float64(time.Millisecond))
	a.det.MoveTimeStdDev = time.Duration(sd * float64(time.Millisecond))

	strong := 0
	for _, m := range a.det.OpeningMoves {
		if isStrongOpening(m) {
			strong++
		}
	}

	opening := 0.0
	if n := len(a.det.OpeningMoves); n > 0 {
		opening = 100 * float64(strong) / float64(n)
	}
	tactical, positional := 0.0, 0.0
	if total > 0 {
		tactical = math.Min(100, 100*float64(a.det.TacticalPoints)/(total*10))
		positional = math.Min(100, 100*float64(a.det.PositionalPoints)/(total*5))
	}
	middlegame := (tactical + positional) / 2
	endgame := math.Min(100, float64(a.det.EndgamePoints))
	speed := math.Max(0, 100-mean/100)
	consistency := 100.0
	if mean > 0 {
		consistency = math.Max(0, 100-100*sd/mean)
	}

	overall := opening*Weights["opening"] +
		middlegame*Weights["middlegame"] +
		endgame*Weights["endgame"] +
		tactical*Weights["tactical"] +
		positional*Weights["positional"] +
		speed*Weights["speed"] +
		consistency*Weights["consistency"]

	return Report{
		Difficulty:  a.d,
		Overall:     round(overall),
		Opening:     round(opening),
		Middlegame:  round(middlegame),
		Endgame:     round(endgame),
		Tactical:    round(tactical),
		Positional:  round(positional),
		Speed:       round(speed),
		Consistency: round(consistency),
		Details:     a.det,
	}
}

// moveTimeStats returns the mean and sample standard deviation in ms.
func moveTimeStats(times []float64) (mean, sd float64) {
	if len(times) == 0 {
		return 0, 0
	}
	mean = stat.Mean(times, nil)
	if len(times) > 1 {
		sd = stat.StdDev(times, nil)
	}
	return mean, sd
}

func isStrongOpening(m string) bool {
	for _, o := range engine.StrongOpenings {
		if o == m {
			return true
		}
	}
	return false
}

func round(v float64) int {
	return int(math.Round(v))
}
