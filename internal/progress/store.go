package progress

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
)

var ErrNotFound = errors.New("progress not found")

// Store persists one Progress document per player.
type Store interface {
	Get(ctx context.Context, playerID string) (*Progress, error)
	Save(ctx context.Context, p *Progress) error
	Delete(ctx context.Context, playerID string) error
}

var _ Ranker = (*MemoryStore)(nil)

// MemoryStore keeps progress in process memory. Documents are deep-copied on
// the way in and out.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string][]byte)}
}

func (s *MemoryStore) Get(ctx context.Context, playerID string) (*Progress, error) {
	s.mu.RLock()
	data, ok := s.docs[playerID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	var p Progress
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *MemoryStore) Save(ctx context.Context, p *Progress) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.docs[p.PlayerID] = data
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Top(ctx context.Context, limit int) ([]Progress, error) {
	s.mu.RLock()
	players := make([]Progress, 0, len(s.docs))
	for _, data := range s.docs {
		var p Progress
		if err := json.Unmarshal(data, &p); err != nil {
			s.mu.RUnlock()
			return nil, err
		}
		players = append(players, p)
	}
	s.mu.RUnlock()
	return rank(players, limit), nil
}

func (s *MemoryStore) Delete(ctx context.Context, playerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[playerID]; !ok {
		return ErrNotFound
	}
	delete(s.docs, playerID)
	return nil
}
