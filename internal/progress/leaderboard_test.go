package progress

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chess-coach/internal/elo"
	"chess-coach/internal/engine"
)

func TestDisplayName(t *testing.T) {
	name := DisplayName("3f1c0a52-9d7e-4b1a-8c55-0e2d9f6a7b10")
	assert.Regexp(t, `^[A-Z][a-z]+[A-Z][a-z]+\d{1,3}$`, name)
	assert.Equal(t, name, DisplayName("3f1c0a52-9d7e-4b1a-8c55-0e2d9f6a7b10"))
	assert.NotContains(t, name, "3f1c0a52")
}

func TestLeaderboard(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()

	_, _, err := s.RecordGame(ctx, "loser", GameSummary{Difficulty: engine.Hard, Result: elo.Loss})
	require.NoError(t, err)
	_, _, err = s.RecordGame(ctx, "winner", GameSummary{Difficulty: engine.Hard, Result: elo.Win})
	require.NoError(t, err)
	_, err = s.CompletePrinciple(ctx, "student", "pawn-structure")
	require.NoError(t, err)

	board, err := s.Leaderboard(ctx, 0)
	require.NoError(t, err)
	require.Len(t, board, 2, "players without games are not ranked")
	assert.Equal(t, 1, board[0].Rank)
	assert.Equal(t, DisplayName("winner"), board[0].DisplayName)
	assert.Equal(t, 1229, board[0].Rating)
	assert.Equal(t, 1, board[0].Wins)
	assert.Equal(t, 2, board[1].Rank)
	assert.Equal(t, 1, board[1].Losses)

	board, err = s.Leaderboard(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, board, 1)
}

type plainStore struct{ Store }

func TestLeaderboardUnsupported(t *testing.T) {
	s, store := newService(t)
	s.store = plainStore{store}
	_, err := s.Leaderboard(context.Background(), 10)
	assert.ErrorIs(t, err, ErrNoLeaderboard)
}
