package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chess-coach/internal/agent"
	"chess-coach/internal/elo"
	"chess-coach/internal/engine"
	"chess-coach/internal/models"
	"chess-coach/internal/progress"
	"chess-coach/internal/rules"
)

type fakeRecorder struct {
	mu    sync.Mutex
	calls []progress.GameSummary
}

func (f *fakeRecorder) RecordGame(ctx context.Context, playerID string, g progress.GameSummary) (*progress.Progress, progress.GameRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, g)
	return &progress.Progress{PlayerID: playerID, Rating: 1229}, progress.GameRecord{ID: g.ID, RatingChange: 29}, nil
}

type fakeNotifier struct {
	mu      sync.Mutex
	updates int
	moves   int
}

func (f *fakeNotifier) GameUpdated(game *models.Game, moves []models.Move) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates++
	f.moves += len(moves)
}

func newTestService(t *testing.T) (*Service, *MemoryRepository, *fakeRecorder) {
	t.Helper()
	repo := NewMemoryRepository()
	rec := &fakeRecorder{}
	e := engine.New(engine.WithRandom(engine.NewRandomSource(7)))
	runner := agent.NewRunner(e, agent.Config{})
	return NewService(repo, runner, rec), repo, rec
}

// seed stores an active game that has already reached moves.
func seed(t *testing.T, repo *MemoryRepository, human models.PlayerColor, moves []string) *models.Game {
	t.Helper()
	pos, err := rules.FromMoves("", moves)
	require.NoError(t, err)
	game := &models.Game{
		SessionID:   "g-" + string(human),
		PlayerID:    "p1",
		HumanColor:  human,
		Difficulty:  engine.Easy,
		StartFEN:    rules.StartFEN,
		Moves:       moves,
		BoardState:  pos.FEN(),
		CurrentTurn: models.ColorOf(pos.Turn()),
		Status:      models.GameStatusActive,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	require.NoError(t, repo.Create(context.Background(), game))
	return game
}

func TestCreateAsWhite(t *testing.T) {
	s, _, _ := newTestService(t)

	up, err := s.Create(context.Background(), "p1", models.White, engine.Medium)
	require.NoError(t, err)
	assert.Empty(t, up.Moves)
	assert.True(t, up.Game.IsHumanTurn())
	assert.Equal(t, rules.StartFEN, up.Game.BoardState)

	got, moves, err := s.Get(context.Background(), up.Game.SessionID)
	require.NoError(t, err)
	assert.Equal(t, up.Game.SessionID, got.SessionID)
	assert.Empty(t, moves)
}

func TestCreateAsBlackEngineOpens(t *testing.T) {
	s, _, _ := newTestService(t)

	up, err := s.Create(context.Background(), "p1", models.Black, engine.Hard)
	require.NoError(t, err)
	require.Len(t, up.Moves, 1)
	assert.Equal(t, models.EnginePlayerID, up.Moves[0].PlayerID)
	assert.Contains(t, engine.StrongOpenings, up.Moves[0].Notation)
	assert.Equal(t, engine.Hard, up.Moves[0].Difficulty)
	assert.Equal(t, models.Black, up.Game.CurrentTurn)
	assert.True(t, up.Game.IsHumanTurn())
}

func TestCreateRejectsColor(t *testing.T) {
	s, _, _ := newTestService(t)
	_, err := s.Create(context.Background(), "p1", "green", engine.Easy)
	assert.ErrorIs(t, err, ErrInvalidColor)

	up, err := s.Create(context.Background(), "p1", models.White, "impossible")
	require.NoError(t, err)
	assert.Equal(t, engine.Medium, up.Game.Difficulty)
}

func TestMoveAndReply(t *testing.T) {
	s, _, _ := newTestService(t)
	n := &fakeNotifier{}
	s.SetNotifier(n)
	ctx := context.Background()

	up, err := s.Create(ctx, "p1", models.White, engine.Easy)
	require.NoError(t, err)
	id := up.Game.SessionID

	up, err = s.Move(ctx, id, "p1", "e4")
	require.NoError(t, err)
	require.Len(t, up.Moves, 2)
	assert.Equal(t, "e4", up.Moves[0].Notation)
	assert.Equal(t, "pawn", up.Moves[0].Piece)
	assert.Equal(t, "e2", up.Moves[0].From)
	assert.Equal(t, models.EnginePlayerID, up.Moves[1].PlayerID)
	assert.Equal(t, 2, up.Game.MoveCount)
	assert.True(t, up.Game.IsHumanTurn())

	pos, err := up.Game.Position()
	require.NoError(t, err)
	assert.Equal(t, up.Game.BoardState, pos.FEN())

	_, moves, err := s.Get(ctx, id)
	require.NoError(t, err)
	require.Len(t, moves, 2)
	assert.Equal(t, 1, moves[0].MoveNumber)
	assert.Equal(t, 2, moves[1].MoveNumber)

	assert.Equal(t, 2, n.updates)
	assert.Equal(t, 2, n.moves)
}

func TestMoveRejections(t *testing.T) {
	s, repo, _ := newTestService(t)
	ctx := context.Background()

	up, err := s.Create(ctx, "p1", models.White, engine.Easy)
	require.NoError(t, err)
	id := up.Game.SessionID

	_, err = s.Move(ctx, id, "intruder", "e4")
	assert.ErrorIs(t, err, ErrNotYourGame)

	_, err = s.Move(ctx, id, "p1", "e5")
	assert.ErrorIs(t, err, engine.ErrIllegalMove)

	_, err = s.Move(ctx, "missing", "p1", "e4")
	assert.ErrorIs(t, err, ErrNotFound)

	waiting := seed(t, repo, models.Black, nil)
	_, err = s.Move(ctx, waiting.SessionID, "p1", "e5")
	assert.ErrorIs(t, err, ErrNotYourTurn)

	got, moves, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, got.Moves, "rejected moves leave no trace")
	assert.Empty(t, moves)
}

func TestCheckmateRecordsOnce(t *testing.T) {
	s, repo, rec := newTestService(t)
	ctx := context.Background()

	game := seed(t, repo, models.Black, []string{"f3", "e5", "g4"})

	up, err := s.Move(ctx, game.SessionID, "p1", "Qh4")
	require.NoError(t, err)
	require.Len(t, up.Moves, 1, "no engine reply after mate")
	assert.True(t, up.Moves[0].Checkmate)
	assert.Equal(t, "Qh4#", up.Moves[0].Notation)

	g := up.Game
	assert.Equal(t, models.GameStatusComplete, g.Status)
	assert.Equal(t, models.Black, g.Winner)
	assert.Equal(t, "checkmate", g.WinReason)
	assert.Equal(t, "win", g.Result)
	assert.True(t, g.Recorded)
	assert.Equal(t, 1229, g.RatingAfter)
	assert.Equal(t, 29, g.RatingDelta)
	require.NotNil(t, g.CompletedAt)

	require.Len(t, rec.calls, 1)
	assert.Equal(t, elo.Win, rec.calls[0].Result)
	assert.Equal(t, engine.Easy, rec.calls[0].Difficulty)
	assert.Equal(t, []string{"f3", "e5", "g4", "Qh4#"}, rec.calls[0].Moves)

	_, err = s.Move(ctx, game.SessionID, "p1", "Qxe1")
	assert.ErrorIs(t, err, ErrGameOver)
	_, err = s.Resign(ctx, game.SessionID, "p1")
	assert.ErrorIs(t, err, ErrGameOver)
	assert.Len(t, rec.calls, 1)
}

func TestEngineDeliversMate(t *testing.T) {
	s, repo, rec := newTestService(t)
	ctx := context.Background()

	// The player (white) walks into a delayed fool's mate; the engine must
	// find Qh4#.
	game := seed(t, repo, models.White, []string{"f3", "e6", "a3", "a6"})
	game.Difficulty = engine.Hard
	require.NoError(t, repo.Update(ctx, game))

	up, err := s.Move(ctx, game.SessionID, "p1", "g4")
	require.NoError(t, err)
	require.Len(t, up.Moves, 2)
	assert.Equal(t, "Qh4#", up.Moves[1].Notation)
	assert.Equal(t, models.Black, up.Game.Winner)
	assert.Equal(t, "loss", up.Game.Result)
	require.Len(t, rec.calls, 1)
	assert.Equal(t, elo.Loss, rec.calls[0].Result)
}

func TestResign(t *testing.T) {
	s, _, rec := newTestService(t)
	ctx := context.Background()

	up, err := s.Create(ctx, "p1", models.White, engine.Medium)
	require.NoError(t, err)

	_, err = s.Resign(ctx, up.Game.SessionID, "other")
	assert.ErrorIs(t, err, ErrNotYourGame)

	up, err = s.Resign(ctx, up.Game.SessionID, "p1")
	require.NoError(t, err)
	assert.Equal(t, models.GameStatusComplete, up.Game.Status)
	assert.Equal(t, models.Black, up.Game.Winner)
	assert.Equal(t, "resignation", up.Game.WinReason)
	assert.Equal(t, "loss", up.Game.Result)
	require.Len(t, rec.calls, 1)
	assert.Equal(t, elo.Loss, rec.calls[0].Result)
}

func TestResumeStalled(t *testing.T) {
	s, repo, _ := newTestService(t)
	ctx := context.Background()

	stalled := seed(t, repo, models.Black, nil)
	stalled.UpdatedAt = time.Now().Add(-time.Hour)
	require.NoError(t, repo.Update(ctx, stalled))

	// Engine to move, but only just.
	seed(t, repo, models.White, []string{"e4"})

	n, err := s.ResumeStalled(ctx, time.Now().Add(-time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, moves, err := s.Get(ctx, stalled.SessionID)
	require.NoError(t, err)
	assert.Len(t, got.Moves, 1)
	assert.Len(t, moves, 1)
	assert.True(t, got.IsHumanTurn())

	n, err = s.ResumeStalled(ctx, time.Now().Add(-time.Minute))
	require.NoError(t, err)
	assert.Zero(t, n)
}

type fakeLocker struct {
	free     bool
	attempts int
	unlocks  int
}

func (l *fakeLocker) TryLock(ctx context.Context, name string, ttl time.Duration) bool {
	l.attempts++
	return l.free
}

func (l *fakeLocker) Unlock(ctx context.Context, name string) {
	l.unlocks++
}

func TestSweeperHonorsLock(t *testing.T) {
	s, repo, _ := newTestService(t)
	ctx := context.Background()

	stalled := seed(t, repo, models.Black, nil)
	stalled.UpdatedAt = time.Now().Add(-time.Hour)
	require.NoError(t, repo.Update(ctx, stalled))

	sw := NewSweeper(s, time.Minute, time.Second)
	held := &fakeLocker{}
	sw.SetLocker(held)
	sw.pass()
	assert.Equal(t, 1, held.attempts)
	assert.Zero(t, held.unlocks)
	got, err := repo.Get(ctx, stalled.SessionID)
	require.NoError(t, err)
	assert.Empty(t, got.Moves, "another instance holds the sweep")

	free := &fakeLocker{free: true}
	sw.SetLocker(free)
	sw.pass()
	assert.Equal(t, 1, free.unlocks)
	got, err = repo.Get(ctx, stalled.SessionID)
	require.NoError(t, err)
	assert.Len(t, got.Moves, 1)
}

func TestSessionLocksAreReleased(t *testing.T) {
	s, repo, rec := newTestService(t)
	ctx := context.Background()

	lockCount := func() int {
		s.mu.Lock()
		defer s.mu.Unlock()
		return len(s.locks)
	}

	mated := seed(t, repo, models.Black, []string{"f3", "e5", "g4"})
	_, err := s.Move(ctx, mated.SessionID, "p1", "Qh4")
	require.NoError(t, err)
	assert.Zero(t, lockCount())

	up, err := s.Create(ctx, "p1", models.White, engine.Easy)
	require.NoError(t, err)
	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.Resign(ctx, up.Game.SessionID, "p1")
		}(i)
	}
	wg.Wait()

	resigned := 0
	for _, err := range errs {
		if err == nil {
			resigned++
		} else {
			assert.ErrorIs(t, err, ErrGameOver)
		}
	}
	assert.Equal(t, 1, resigned)
	assert.Len(t, rec.calls, 2)
	assert.Zero(t, lockCount())
}

func TestUnknownResultIsNotRecorded(t *testing.T) {
	s, repo, rec := newTestService(t)
	ctx := context.Background()

	game := seed(t, repo, models.White, nil)
	game.Status = models.GameStatusComplete
	game.Result = "abandoned"
	require.NoError(t, s.save(ctx, game, nil))

	assert.Empty(t, rec.calls)
	got, err := repo.Get(ctx, game.SessionID)
	require.NoError(t, err)
	assert.False(t, got.Recorded)
	assert.Equal(t, models.GameStatusComplete, got.Status)
}
