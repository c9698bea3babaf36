// Package elo rates players by their results against the engine.
package elo

import (
	"math"

	"chess-coach/internal/engine"
)

type GameResult int

const (
	Loss GameResult = 0
	Draw GameResult = 1
	Win  GameResult = 2
)

// ParseResult maps "win", "loss" and "draw"; ok is false for anything else.
func ParseResult(s string) (GameResult, bool) {
	switch s {
	case "win":
		return Win, true
	case "loss":
		return Loss, true
	case "draw":
		return Draw, true
	}
	return Draw, false
}

func (r GameResult) String() string {
	switch r {
	case Win:
		return "win"
	case Loss:
		return "loss"
	}
	return "draw"
}

const (
	// K-factors based on number of games played
	KFactorNewbie = 32 // < 30 games
	KFactorActive = 24 // 30-100 games
	KFactorExpert = 16 // > 100 games

	// Rating bounds
	MinRating = 100
	MaxRating = 3000

	DefaultRating = 1200
)

// EngineRatings are the nominal strengths the engine is scored as.
var EngineRatings = map[engine.Difficulty]int{
	engine.Easy:   800,
	engine.Medium: 1200,
	engine.Hard:   1600,
}

// EngineRating returns the nominal rating for d, medium for unknown levels.
func EngineRating(d engine.Difficulty) int {
	if r, ok := EngineRatings[d]; ok {
		return r
	}
	return EngineRatings[engine.Medium]
}

type Calculator struct{}

func NewCalculator() *Calculator {
	return &Calculator{}
}

// CalculateNewRating calculates the new Elo rating for a player
// playerRating: current rating of the player
// opponentRating: rating of the opponent
// result: GameResult from the player's side
// gamesPlayed: games the player has finished before this one (used for K-factor)
func (c *Calculator) CalculateNewRating(playerRating, opponentRating int, result GameResult, gamesPlayed int) int {
	kFactor := c.getKFactor(gamesPlayed)
	expectedScore := c.calculateExpectedScore(playerRating, opponentRating)

	// ΔR = K × (S - E)
	ratingChange := float64(kFactor) * (actualScore(result) - expectedScore)
	newRating := playerRating + int(math.Round(ratingChange))

	if newRating < MinRating {
		newRating = MinRating
	}
	if newRating > MaxRating {
		newRating = MaxRating
	}
	return newRating
}

// AgainstEngine rates a game played against the engine at difficulty d.
func (c *Calculator) AgainstEngine(playerRating int, d engine.Difficulty, result GameResult, gamesPlayed int) int {
	return c.CalculateNewRating(playerRating, EngineRating(d), result, gamesPlayed)
}

func actualScore(result GameResult) float64 {
	switch result {
	case Win:
		return 1.0
	case Draw:
		return 0.5
	}
	return 0.0
}

// calculateExpectedScore calculates the expected score using the Elo formula
// E = 1 / (1 + 10^((OpponentRating - PlayerRating) / 400))
func (c *Calculator) calculateExpectedScore(playerRating, opponentRating int) float64 {
	exponent := float64(opponentRating-playerRating) / 400.0
	return 1.0 / (1.0 + math.Pow(10, exponent))
}

// getKFactor returns the appropriate K-factor based on games played
func (c *Calculator) getKFactor(gamesPlayed int) int {
	switch {
	case gamesPlayed < 30:
		return KFactorNewbie
	case gamesPlayed < 100:
		return KFactorActive
	default:
		return KFactorExpert
	}
}

// ResultFor converts the winner of a finished game into the result for the
// player who had color. NoColor is a draw.
func ResultFor(color, winner engine.Color) GameResult {
	switch winner {
	case engine.NoColor:
		return Draw
	case color:
		return Win
	}
	return Loss
}
