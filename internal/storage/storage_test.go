package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chess-coach/internal/elo"
	"chess-coach/internal/engine"
	"chess-coach/internal/progress"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "progress.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndGet(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	_, err := s.Get(ctx, "local")
	assert.ErrorIs(t, err, progress.ErrNotFound)

	p := progress.New("local", time.Now())
	p.CompleteLesson("italian-game", time.Minute, 0, time.Now())
	require.NoError(t, s.Save(ctx, p))

	got, err := s.Get(ctx, "local")
	require.NoError(t, err)
	assert.Equal(t, []string{"italian-game"}, got.Curriculum.CompletedLessons)
	assert.Equal(t, 1, got.LessonAttempts["italian-game"].Attempts)

	got.Rating = 1300
	require.NoError(t, s.Save(ctx, got))
	again, err := s.Get(ctx, "local")
	require.NoError(t, err)
	assert.Equal(t, 1300, again.Rating)
}

func TestGamesArchive(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	calc := elo.NewCalculator()

	p := progress.New("local", time.Now())
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, r := range []elo.GameResult{elo.Win, elo.Loss, elo.Draw} {
		p.RecordGame(calc, progress.GameRecord{
			ID:         string(rune('a' + i)),
			Date:       base.Add(time.Duration(i) * time.Hour),
			Difficulty: engine.Hard,
			Moves:      []string{"e4", "e5"},
		}, r)
		require.NoError(t, s.Save(ctx, p), "saving twice must not duplicate games")
	}

	games, err := s.Games(ctx, "local", 0)
	require.NoError(t, err)
	require.Len(t, games, 3)
	assert.Equal(t, "c", games[0].ID)
	assert.Equal(t, "draw", games[0].Result)
	assert.Equal(t, engine.Hard, games[0].Difficulty)
	assert.Equal(t, []string{"e4", "e5"}, games[0].Moves)

	games, err = s.Games(ctx, "local", 2)
	require.NoError(t, err)
	assert.Len(t, games, 2)
}

func TestDelete(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	assert.ErrorIs(t, s.Delete(ctx, "local"), progress.ErrNotFound)

	p := progress.New("local", time.Now())
	p.RecordGame(elo.NewCalculator(), progress.GameRecord{ID: "g1", Date: time.Now(), Difficulty: engine.Easy}, elo.Win)
	require.NoError(t, s.Save(ctx, p))
	require.NoError(t, s.Delete(ctx, "local"))

	_, err := s.Get(ctx, "local")
	assert.ErrorIs(t, err, progress.ErrNotFound)
	games, err := s.Games(ctx, "local", 0)
	require.NoError(t, err)
	assert.Empty(t, games, "games cascade with the player")
}

func TestTop(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	for id, rating := range map[string]int{"a": 1250, "b": 1310, "c": 1190} {
		p := progress.New(id, time.Now())
		p.Rating = rating
		p.GamesPlayed = 1
		require.NoError(t, s.Save(ctx, p))
	}
	require.NoError(t, s.Save(ctx, progress.New("idle", time.Now())))

	top, err := s.Top(ctx, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "b", top[0].PlayerID)
	assert.Equal(t, "a", top[1].PlayerID)
	assert.Equal(t, progress.DisplayName("b"), top[0].DisplayName)
}
