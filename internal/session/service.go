// Package session runs games between a player and the engine.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"chess-coach/internal/agent"
	"chess-coach/internal/elo"
	"chess-coach/internal/engine"
	"chess-coach/internal/models"
	"chess-coach/internal/progress"
	"chess-coach/internal/rules"
)

var (
	ErrNotYourGame  = errors.New("player not in game")
	ErrNotYourTurn  = errors.New("not your turn")
	ErrGameOver     = errors.New("game is not active")
	ErrInvalidColor = errors.New("color must be white or black")
)

// Recorder receives the result of every finished game. progress.Service
// implements it.
type Recorder interface {
	RecordGame(ctx context.Context, playerID string, g progress.GameSummary) (*progress.Progress, progress.GameRecord, error)
}

// Notifier is told about every change to a game.
type Notifier interface {
	GameUpdated(game *models.Game, moves []models.Move)
}

// Update is the state of a game after an operation plus the moves the
// operation made.
type Update struct {
	Game  *models.Game  `json:"game"`
	Moves []models.Move `json:"moves"`
}

type Service struct {
	repo     Repository
	runner   *agent.Runner
	recorder Recorder
	notifier Notifier
	now      func() time.Time

	mu    sync.Mutex
	locks map[string]*sessionLock
}

// sessionLock serializes operations on one game. refs counts holders and
// waiters; the entry leaves the map when it drops to zero.
type sessionLock struct {
	sync.Mutex
	refs int
}

func NewService(repo Repository, runner *agent.Runner, recorder Recorder) *Service {
	return &Service{
		repo:     repo,
		runner:   runner,
		recorder: recorder,
		now:      time.Now,
		locks:    make(map[string]*sessionLock),
	}
}

// SetNotifier installs n. The WebSocket handler is created after the
// service, so this is not a constructor argument.
func (s *Service) SetNotifier(n Notifier) {
	s.notifier = n
}

func (s *Service) lock(sessionID string) func() {
	s.mu.Lock()
	l, ok := s.locks[sessionID]
	if !ok {
		l = &sessionLock{}
		s.locks[sessionID] = l
	}
	l.refs++
	s.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		s.mu.Lock()
		if l.refs--; l.refs == 0 {
			delete(s.locks, sessionID)
		}
		s.mu.Unlock()
	}
}

// Create starts a game. When the player takes black the engine moves first.
func (s *Service) Create(ctx context.Context, playerID string, color models.PlayerColor, d engine.Difficulty) (*Update, error) {
	if _, ok := models.ParseColor(string(color)); !ok {
		return nil, ErrInvalidColor
	}
	if !d.Valid() {
		d = engine.Medium
	}

	now := s.now()
	game := &models.Game{
		SessionID:   uuid.NewString(),
		PlayerID:    playerID,
		HumanColor:  color,
		Difficulty:  d,
		StartFEN:    rules.StartFEN,
		Moves:       []string{},
		BoardState:  rules.StartFEN,
		CurrentTurn: models.White,
		Status:      models.GameStatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, game); err != nil {
		return nil, fmt.Errorf("failed to create game: %w", err)
	}

	unlock := s.lock(game.SessionID)
	defer unlock()

	update := &Update{Game: game, Moves: []models.Move{}}
	if color == models.Black {
		pos := rules.New()
		if err := s.reply(ctx, game, pos, update); err != nil {
			log.Printf("Agent: opening move for game %s failed: %v", game.SessionID, err)
		}
	}
	return update, s.save(ctx, game, update.Moves)
}

// Get returns a game and its move records.
func (s *Service) Get(ctx context.Context, sessionID string) (*models.Game, []models.Move, error) {
	game, err := s.repo.Get(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	moves, err := s.repo.Moves(ctx, sessionID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load moves: %w", err)
	}
	return game, moves, nil
}

// Move plays the player's move and then the engine's reply.
func (s *Service) Move(ctx context.Context, sessionID, playerID, move string) (*Update, error) {
	unlock := s.lock(sessionID)
	defer unlock()

	game, pos, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if game.PlayerID != playerID {
		return nil, ErrNotYourGame
	}
	if game.Status != models.GameStatusActive {
		return nil, ErrGameOver
	}
	if game.CurrentTurn != game.HumanColor {
		return nil, ErrNotYourTurn
	}

	update := &Update{Game: game, Moves: []models.Move{}}
	human, err := s.apply(game, pos, move, playerID)
	if err != nil {
		return nil, err
	}
	update.Moves = append(update.Moves, *human)

	if !s.finish(game, pos) {
		if err := s.reply(ctx, game, pos, update); err != nil {
			// The player's move stands; the sweeper retries the reply.
			log.Printf("Agent: reply for game %s failed: %v", sessionID, err)
		}
	}
	return update, s.save(ctx, game, update.Moves)
}

// Resign ends the game as a loss for the player.
func (s *Service) Resign(ctx context.Context, sessionID, playerID string) (*Update, error) {
	unlock := s.lock(sessionID)
	defer unlock()

	game, err := s.repo.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if game.PlayerID != playerID {
		return nil, ErrNotYourGame
	}
	if game.Status != models.GameStatusActive {
		return nil, ErrGameOver
	}

	s.complete(game, game.EngineColor().Engine(), "resignation")
	update := &Update{Game: game, Moves: []models.Move{}}
	return update, s.save(ctx, game, nil)
}

// ResumeStalled plays the pending engine reply in every active game that has
// waited on the engine since before cutoff. It returns how many games moved.
func (s *Service) ResumeStalled(ctx context.Context, cutoff time.Time) (int, error) {
	games, err := s.repo.Stalled(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to query stalled games: %w", err)
	}

	resumed := 0
	for i := range games {
		ok, err := s.resume(ctx, games[i].SessionID, cutoff)
		if err != nil {
			log.Printf("Agent: resuming game %s failed: %v", games[i].SessionID, err)
			continue
		}
		if ok {
			resumed++
		}
	}
	return resumed, nil
}

func (s *Service) resume(ctx context.Context, sessionID string, cutoff time.Time) (bool, error) {
	unlock := s.lock(sessionID)
	defer unlock()

	game, pos, err := s.load(ctx, sessionID)
	if err != nil {
		return false, err
	}
	// Re-check under the lock; a request may have moved it already.
	if game.Status != models.GameStatusActive || game.CurrentTurn == game.HumanColor || !game.UpdatedAt.Before(cutoff) {
		return false, nil
	}

	update := &Update{Game: game, Moves: []models.Move{}}
	if !s.finish(game, pos) {
		if err := s.reply(ctx, game, pos, update); err != nil {
			return false, err
		}
	}
	return true, s.save(ctx, game, update.Moves)
}

func (s *Service) load(ctx context.Context, sessionID string) (*models.Game, *rules.Game, error) {
	game, err := s.repo.Get(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	pos, err := game.Position()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to replay game %s: %w", sessionID, err)
	}
	return game, pos, nil
}

// apply plays move on pos and mirrors the result into game.
func (s *Service) apply(game *models.Game, pos *rules.Game, move, playerID string) (*models.Move, error) {
	info, err := pos.Apply(move)
	if err != nil {
		return nil, err
	}
	rec := models.NewMove(game.SessionID, playerID, len(game.Moves)+1, info, s.now())

	game.Moves = append(game.Moves, info.Notation)
	game.MoveCount = len(game.Moves)
	game.BoardState = pos.FEN()
	game.CurrentTurn = models.ColorOf(pos.Turn())
	game.Check = pos.IsCheck()
	return rec, nil
}

// reply asks the runner for the engine's move and applies it.
func (s *Service) reply(ctx context.Context, game *models.Game, pos *rules.Game, update *Update) error {
	res, err := s.runner.Move(ctx, pos, game.Difficulty)
	if err != nil {
		return err
	}
	rec, err := s.apply(game, pos, res.Move, models.EnginePlayerID)
	if err != nil {
		return err
	}
	rec.Difficulty = res.Difficulty
	rec.Fallback = res.Fallback
	rec.ThinkMs = res.Elapsed.Milliseconds()
	update.Moves = append(update.Moves, *rec)
	s.finish(game, pos)
	return nil
}

// finish completes game when pos is terminal and reports whether it did.
func (s *Service) finish(game *models.Game, pos *rules.Game) bool {
	if game.Status != models.GameStatusActive {
		return true
	}
	out := pos.Outcome()
	if !out.Over {
		return false
	}
	s.complete(game, out.Winner, out.Reason)
	return true
}

func (s *Service) complete(game *models.Game, winner engine.Color, reason string) {
	now := s.now()
	game.Status = models.GameStatusComplete
	game.Winner = models.ColorOf(winner)
	game.WinReason = reason
	game.Result = elo.ResultFor(game.HumanColor.Engine(), winner).String()
	game.CompletedAt = &now
}

// save persists the move records and the game, records a finished game into
// progress once, and notifies listeners. Persistence outlives a cancelled
// request.
func (s *Service) save(ctx context.Context, game *models.Game, moves []models.Move) error {
	ctx = context.WithoutCancel(ctx)

	for i := range moves {
		if err := s.repo.AddMove(ctx, &moves[i]); err != nil {
			return fmt.Errorf("failed to record move: %w", err)
		}
	}

	if game.Status == models.GameStatusComplete && !game.Recorded && s.recorder != nil {
		s.record(ctx, game)
	}

	game.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, game); err != nil {
		return fmt.Errorf("failed to update game: %w", err)
	}

	if s.notifier != nil {
		s.notifier.GameUpdated(game, moves)
	}
	return nil
}

// record feeds a finished game into progress. A game whose result does not
// parse is left unrecorded.
func (s *Service) record(ctx context.Context, game *models.Game) {
	result, ok := elo.ParseResult(game.Result)
	if !ok {
		log.Printf("Game %s finished with unknown result %q; not recording", game.SessionID, game.Result)
		return
	}
	p, rec, err := s.recorder.RecordGame(ctx, game.PlayerID, progress.GameSummary{
		ID:         game.SessionID,
		Mode:       "ai",
		Difficulty: game.Difficulty,
		Result:     result,
		Moves:      game.Moves,
	})
	if err != nil {
		log.Printf("Failed to record result of game %s: %v", game.SessionID, err)
		return
	}
	game.Recorded = true
	game.RatingAfter = p.Rating
	game.RatingDelta = rec.RatingChange
}
