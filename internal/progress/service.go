package progress

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"chess-coach/internal/curriculum"
	"chess-coach/internal/elo"
	"chess-coach/internal/engine"
)

var ErrChapterLocked = errors.New("chapter cannot be unlocked")

// Service applies curriculum and game events to stored progress. Updates to
// one player are serialized.
type Service struct {
	store   Store
	catalog *curriculum.Catalog
	elo     *elo.Calculator
	now     func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewService(store Store, catalog *curriculum.Catalog) *Service {
	return &Service{
		store:   store,
		catalog: catalog,
		elo:     elo.NewCalculator(),
		now:     time.Now,
		locks:   make(map[string]*sync.Mutex),
	}
}

func (s *Service) lock(playerID string) func() {
	s.mu.Lock()
	l, ok := s.locks[playerID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[playerID] = l
	}
	s.mu.Unlock()
	l.Lock()
	return l.Unlock
}

// Get returns the player's progress, or fresh progress for an unknown player.
func (s *Service) Get(ctx context.Context, playerID string) (*Progress, error) {
	p, err := s.store.Get(ctx, playerID)
	if errors.Is(err, ErrNotFound) {
		p = New(playerID, s.now())
		p.Recompute(s.catalog.Chapters())
		return p, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load progress: %w", err)
	}
	return p, nil
}

// update loads, mutates and saves progress under the player's lock.
func (s *Service) update(ctx context.Context, playerID string, fn func(p *Progress) error) (*Progress, error) {
	unlock := s.lock(playerID)
	defer unlock()

	p, err := s.Get(ctx, playerID)
	if err != nil {
		return nil, err
	}
	if err := fn(p); err != nil {
		return nil, err
	}
	p.Recompute(s.catalog.Chapters())
	p.UpdatedAt = s.now()
	if err := s.store.Save(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to save progress: %w", err)
	}
	return p, nil
}

func (s *Service) CompleteLesson(ctx context.Context, playerID, lessonID string, timeTaken time.Duration, hints int) (*Progress, LessonAttempt, error) {
	if _, err := s.catalog.Lesson(lessonID); err != nil {
		return nil, LessonAttempt{}, err
	}
	var attempt LessonAttempt
	p, err := s.update(ctx, playerID, func(p *Progress) error {
		attempt = p.CompleteLesson(lessonID, timeTaken, hints, s.now())
		return nil
	})
	return p, attempt, err
}

func (s *Service) CompleteScenario(ctx context.Context, playerID, scenarioID string, accuracy int, timeTaken time.Duration, hints int) (*Progress, error) {
	if _, err := s.catalog.Scenario(scenarioID); err != nil {
		return nil, err
	}
	return s.update(ctx, playerID, func(p *Progress) error {
		p.CompleteScenario(scenarioID, accuracy, timeTaken, hints, s.now())
		return nil
	})
}

func (s *Service) CompletePrinciple(ctx context.Context, playerID, principleID string) (*Progress, error) {
	if _, err := s.catalog.Principle(principleID); err != nil {
		return nil, err
	}
	return s.update(ctx, playerID, func(p *Progress) error {
		p.CompletePrinciple(principleID, s.now())
		return nil
	})
}

// UnlockChapter opens chapterID. With a password it must be that chapter's
// password; without one the chapter must be at most one past the current
// chapter. ErrChapterLocked is returned when neither holds.
func (s *Service) UnlockChapter(ctx context.Context, playerID string, chapterID int, password string) (*Progress, error) {
	if _, err := s.catalog.Chapter(chapterID); err != nil {
		return nil, err
	}
	return s.update(ctx, playerID, func(p *Progress) error {
		if password != "" {
			if !s.catalog.CheckPassword(chapterID, password) {
				return ErrChapterLocked
			}
			p.Unlock(chapterID, true)
			return nil
		}
		if !p.CanAdvanceTo(chapterID) {
			return ErrChapterLocked
		}
		p.Unlock(chapterID, false)
		return nil
	})
}

// GameSummary describes a finished game against the engine.
type GameSummary struct {
	ID         string
	Mode       string
	Difficulty engine.Difficulty
	Result     elo.GameResult
	Moves      []string
}

// RecordGame adds a finished game to the history and updates the rating.
func (s *Service) RecordGame(ctx context.Context, playerID string, g GameSummary) (*Progress, GameRecord, error) {
	rec := GameRecord{
		ID:         g.ID,
		Date:       s.now(),
		Mode:       g.Mode,
		Difficulty: g.Difficulty,
		Moves:      append([]string{}, g.Moves...),
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Mode == "" {
		rec.Mode = "ai"
	}

	p, err := s.update(ctx, playerID, func(p *Progress) error {
		rec = p.RecordGame(s.elo, rec, g.Result)
		return nil
	})
	return p, rec, err
}

func (s *Service) Statistics(ctx context.Context, playerID string) (Statistics, error) {
	p, err := s.Get(ctx, playerID)
	if err != nil {
		return Statistics{}, err
	}
	return p.Stats(), nil
}

// Reset clears curriculum progress and keeps rating and history.
func (s *Service) Reset(ctx context.Context, playerID string) (*Progress, error) {
	return s.update(ctx, playerID, func(p *Progress) error {
		p.ResetCurriculum(s.now())
		return nil
	})
}

// Delete removes everything stored for the player.
func (s *Service) Delete(ctx context.Context, playerID string) error {
	return s.store.Delete(ctx, playerID)
}
