package coach

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chess-coach/internal/agent"
	"chess-coach/internal/engine"
	"chess-coach/internal/rules"
)

func newCoach() *Coach {
	return New(agent.NewRunner(engine.New(), agent.Config{}))
}

func TestWinningChances(t *testing.T) {
	cases := map[engine.Score]string{
		0:     "50-50",
		-49:   "50-50",
		75:    "60-40",
		-75:   "40-60",
		150:   "70-30",
		-300:  "20-80",
		499:   "80-20",
		900:   "90-10",
		-9000: "10-90",
	}
	for eval, want := range cases {
		assert.Equal(t, want, WinningChances(eval), "eval %d", eval)
	}
}

func TestPhaseOf(t *testing.T) {
	assert.Equal(t, PhaseOpening, PhaseOf(0))
	assert.Equal(t, PhaseOpening, PhaseOf(9))
	assert.Equal(t, PhaseMiddlegame, PhaseOf(10))
	assert.Equal(t, PhaseMiddlegame, PhaseOf(29))
	assert.Equal(t, PhaseEndgame, PhaseOf(30))
}

func TestAnalyzeStartPosition(t *testing.T) {
	a, err := newCoach().Analyze(context.Background(), rules.New(), engine.Hard)
	require.NoError(t, err)

	assert.Equal(t, engine.Score(100), a.Evaluation)
	assert.Equal(t, "70-30", a.WinningChances)
	assert.Equal(t, PhaseOpening, a.Phase)
	assert.Equal(t, "white", a.Turn)
	assert.Equal(t, 20, a.LegalMoveCount)
	assert.Contains(t, engine.StrongOpenings, a.BestMove)
	assert.False(t, a.InCheck)
}

func TestAnalyzeCheckmate(t *testing.T) {
	g, err := rules.FromMoves("", []string{"f3", "e5", "g4", "Qh4#"})
	require.NoError(t, err)

	a, err := newCoach().Analyze(context.Background(), g, engine.Medium)
	require.NoError(t, err)
	assert.True(t, a.Checkmate)
	assert.True(t, a.InCheck)
	assert.Equal(t, -engine.MateScore, a.Evaluation)
	assert.Equal(t, "10-90", a.WinningChances)
	assert.Empty(t, a.BestMove)
}

func TestAnalyzeDraw(t *testing.T) {
	g, err := rules.FromFEN("8/8/8/4k3/8/8/8/4K3 w - - 0 1")
	require.NoError(t, err)

	a, err := newCoach().Analyze(context.Background(), g, engine.Medium)
	require.NoError(t, err)
	assert.True(t, a.Draw)
	assert.Equal(t, "Draw by insufficient material", a.DrawReason)
	assert.Empty(t, a.BestMove)
}

func TestHintPrefersMate(t *testing.T) {
	g, err := rules.FromFEN("6k1/5ppp/8/8/8/8/5PPP/R5K1 w - - 0 30")
	require.NoError(t, err)

	h, err := newCoach().Hint(context.Background(), g, engine.Hard)
	require.NoError(t, err)
	assert.Equal(t, "Ra8#", h.Move)
	assert.True(t, h.Features.Checkmate)
	assert.True(t, h.Features.Check)
	assert.Equal(t, "rook", h.Features.Piece)
}

func TestDescribe(t *testing.T) {
	g := rules.New()

	f, err := Describe(g, "e4")
	require.NoError(t, err)
	assert.True(t, f.CenterSquare)
	assert.True(t, f.DoubleAdvance)
	assert.False(t, f.Development)
	assert.Equal(t, rules.StartFEN, g.FEN())

	f, err = Describe(g, "Nf3")
	require.NoError(t, err)
	assert.True(t, f.Development)
	assert.False(t, f.CenterSquare)

	_, err = Describe(g, "Ke2")
	assert.ErrorIs(t, err, engine.ErrIllegalMove)
}

func TestDescribeCaptures(t *testing.T) {
	g, err := rules.FromFEN("4k3/8/8/3q4/4P3/8/8/4K3 w - - 0 30")
	require.NoError(t, err)
	f, err := Describe(g, "exd5")
	require.NoError(t, err)
	assert.True(t, f.Capture)
	assert.Equal(t, "queen", f.Captured)
	assert.Equal(t, TradeGood, f.Trade)

	g, err = rules.FromFEN("4k3/8/8/3p4/8/8/8/3QK3 w - - 0 30")
	require.NoError(t, err)
	f, err = Describe(g, "Qxd5")
	require.NoError(t, err)
	assert.Equal(t, TradeRisky, f.Trade)
}

func TestDescribeCastlingAndPromotion(t *testing.T) {
	g, err := rules.FromFEN("4k3/P7/8/8/8/8/8/4K2R w K - 0 1")
	require.NoError(t, err)

	f, err := Describe(g, "O-O")
	require.NoError(t, err)
	assert.Equal(t, "kingside", f.Castling)

	f, err = Describe(g, "a8=Q+")
	require.NoError(t, err)
	assert.Equal(t, "queen", f.Promotion)
	assert.True(t, f.Check)
}
