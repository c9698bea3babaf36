package elo

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"chess-coach/internal/engine"
)

func TestCalculateNewRating(t *testing.T) {
	c := NewCalculator()

	// Equal ratings: half of K either way.
	assert.Equal(t, 1216, c.CalculateNewRating(1200, 1200, Win, 0))
	assert.Equal(t, 1184, c.CalculateNewRating(1200, 1200, Loss, 0))
	assert.Equal(t, 1200, c.CalculateNewRating(1200, 1200, Draw, 0))

	// K-factor drops with experience.
	assert.Equal(t, 1212, c.CalculateNewRating(1200, 1200, Win, 50))
	assert.Equal(t, 1208, c.CalculateNewRating(1200, 1200, Win, 150))
}

func TestRatingBounds(t *testing.T) {
	c := NewCalculator()
	assert.Equal(t, MinRating, c.CalculateNewRating(MinRating, 2000, Loss, 0))
	assert.Equal(t, MaxRating, c.CalculateNewRating(MaxRating, 1000, Win, 0))
}

func TestAgainstEngine(t *testing.T) {
	c := NewCalculator()
	beatHard := c.AgainstEngine(1200, engine.Hard, Win, 0)
	beatEasy := c.AgainstEngine(1200, engine.Easy, Win, 0)
	assert.Greater(t, beatHard, beatEasy)
	assert.Equal(t, EngineRating(engine.Medium), EngineRating("unknown"))
}

func TestResultFor(t *testing.T) {
	assert.Equal(t, Win, ResultFor(engine.White, engine.White))
	assert.Equal(t, Loss, ResultFor(engine.Black, engine.White))
	assert.Equal(t, Draw, ResultFor(engine.Black, engine.NoColor))
}

func TestParseResult(t *testing.T) {
	for _, r := range []GameResult{Win, Loss, Draw} {
		got, ok := ParseResult(r.String())
		assert.True(t, ok)
		assert.Equal(t, r, got)
	}
	_, ok := ParseResult("abandoned")
	assert.False(t, ok)
}
