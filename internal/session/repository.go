package session

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"chess-coach/internal/models"
)

var ErrNotFound = errors.New("game not found")

// Repository persists games and their move records.
type Repository interface {
	Create(ctx context.Context, g *models.Game) error
	Get(ctx context.Context, sessionID string) (*models.Game, error)
	Update(ctx context.Context, g *models.Game) error
	AddMove(ctx context.Context, m *models.Move) error
	Moves(ctx context.Context, sessionID string) ([]models.Move, error)
	// Stalled lists active games waiting on the engine since before cutoff.
	Stalled(ctx context.Context, cutoff time.Time) ([]models.Game, error)
}

// MemoryRepository keeps games in process memory.
type MemoryRepository struct {
	mu    sync.RWMutex
	games map[string][]byte
	moves map[string][]models.Move
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		games: make(map[string][]byte),
		moves: make(map[string][]models.Move),
	}
}

func (r *MemoryRepository) Create(ctx context.Context, g *models.Game) error {
	return r.Update(ctx, g)
}

func (r *MemoryRepository) Get(ctx context.Context, sessionID string) (*models.Game, error) {
	r.mu.RLock()
	data, ok := r.games[sessionID]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	var g models.Game
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *MemoryRepository) Update(ctx context.Context, g *models.Game) error {
	data, err := json.Marshal(g)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.games[g.SessionID] = data
	r.mu.Unlock()
	return nil
}

func (r *MemoryRepository) AddMove(ctx context.Context, m *models.Move) error {
	r.mu.Lock()
	r.moves[m.SessionID] = append(r.moves[m.SessionID], *m)
	r.mu.Unlock()
	return nil
}

func (r *MemoryRepository) Moves(ctx context.Context, sessionID string) ([]models.Move, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	moves := append([]models.Move(nil), r.moves[sessionID]...)
	sort.SliceStable(moves, func(i, j int) bool { return moves[i].MoveNumber < moves[j].MoveNumber })
	return moves, nil
}

func (r *MemoryRepository) Stalled(ctx context.Context, cutoff time.Time) ([]models.Game, error) {
	r.mu.RLock()
	ids := make([]string, 0, len(r.games))
	for id := range r.games {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	var out []models.Game
	for _, id := range ids {
		g, err := r.Get(ctx, id)
		if err != nil {
			continue
		}
		if g.Status == models.GameStatusActive && g.CurrentTurn != g.HumanColor && g.UpdatedAt.Before(cutoff) {
			out = append(out, *g)
		}
	}
	return out, nil
}
