// Package agent runs engine move selection off the caller's goroutine with a
// deadline and fallbacks.
package agent

import (
	"context"
	"fmt"
	"log"
	"time"

	"chess-coach/internal/engine"
	"chess-coach/internal/rules"
)

const (
	DefaultTimeout         = 5 * time.Second
	DefaultFallbackTimeout = 1 * time.Second
)

// Config tunes a Runner. Zero values take the defaults.
type Config struct {
	Timeout         time.Duration
	FallbackTimeout time.Duration
	Fallback        engine.Difficulty
}

// Result describes a chosen move.
type Result struct {
	Move       string            `json:"move"`
	Difficulty engine.Difficulty `json:"difficulty"`
	Elapsed    time.Duration     `json:"elapsed"`
	// Fallback is set when the move did not come from the requested difficulty.
	Fallback bool `json:"fallback"`
}

// Runner wraps an Engine for callers that must not block indefinitely.
type Runner struct {
	engine          *engine.Engine
	timeout         time.Duration
	fallbackTimeout time.Duration
	fallback        engine.Difficulty
}

// NewRunner creates a runner over e.
func NewRunner(e *engine.Engine, cfg Config) *Runner {
	r := &Runner{
		engine:          e,
		timeout:         cfg.Timeout,
		fallbackTimeout: cfg.FallbackTimeout,
		fallback:        cfg.Fallback,
	}
	if r.timeout <= 0 {
		r.timeout = DefaultTimeout
	}
	if r.fallbackTimeout <= 0 {
		r.fallbackTimeout = DefaultFallbackTimeout
	}
	if !r.fallback.Valid() {
		r.fallback = engine.Easy
	}
	return r
}

// Engine returns the wrapped engine.
func (r *Runner) Engine() *engine.Engine {
	return r.engine
}

// Move selects a move for the side to move in g. g itself is never touched by
// the search; each attempt works on a clone. When the requested difficulty
// does not answer within the timeout, the fallback difficulty gets one try,
// and after that the first legal move is played.
func (r *Runner) Move(ctx context.Context, g *rules.Game, d engine.Difficulty) (Result, error) {
	start := time.Now()
	legal := g.LegalMoves()
	if len(legal) == 0 {
		return Result{}, engine.ErrNoLegalMoves
	}

	move, err := r.attempt(ctx, g, d, r.timeout)
	if err == nil {
		return Result{Move: move, Difficulty: d, Elapsed: time.Since(start)}, nil
	}
	if ctx.Err() != nil {
		return Result{}, ctx.Err()
	}
	log.Printf("Agent: %s search gave no move (%v), retrying at %s", d, err, r.fallback)

	if d != r.fallback {
		move, err = r.attempt(ctx, g, r.fallback, r.fallbackTimeout)
		if err == nil {
			return Result{Move: move, Difficulty: r.fallback, Elapsed: time.Since(start), Fallback: true}, nil
		}
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		log.Printf("Agent: %s search gave no move (%v), playing first legal move", r.fallback, err)
	}

	return Result{Move: legal[0], Difficulty: r.fallback, Elapsed: time.Since(start), Fallback: true}, nil
}

type outcome struct {
	move string
	err  error
}

// attempt runs SelectMove on a clone of g. An attempt that outlives its
// budget is abandoned; it finishes on its own clone and its result is dropped.
func (r *Runner) attempt(ctx context.Context, g *rules.Game, d engine.Difficulty, budget time.Duration) (string, error) {
	clone, err := g.Clone()
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- outcome{err: fmt.Errorf("engine panic: %v", rec)}
			}
		}()
		move := r.engine.SelectMove(clone, d)
		if move == "" {
			done <- outcome{err: engine.ErrNoLegalMoves}
			return
		}
		done <- outcome{move: move}
	}()

	select {
	case out := <-done:
		return out.move, out.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
