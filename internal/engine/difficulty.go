package engine

import (
	"fmt"
	"strings"
)

// Difficulty selects search depth and how wide the random pick among the best
// moves is.
type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

// Difficulties lists every level from weakest to strongest.
var Difficulties = []Difficulty{Easy, Medium, Hard}

// ParseDifficulty accepts the level names case-insensitively.
func ParseDifficulty(s string) (Difficulty, error) {
	d := Difficulty(strings.ToLower(strings.TrimSpace(s)))
	if !d.Valid() {
		return "", fmt.Errorf("unknown difficulty %q", s)
	}
	return d, nil
}

// Valid reports whether d is one of the three levels.
func (d Difficulty) Valid() bool {
	return d == Easy || d == Medium || d == Hard
}

// Easier returns the next weaker level, or d itself at easy.
func (d Difficulty) Easier() Difficulty {
	switch d {
	case Hard:
		return Medium
	case Medium:
		return Easy
	}
	return Easy
}

// policy holds the per-level knobs. Depth is in plies after the candidate move.
type policy struct {
	depth  int
	window int
}

var policies = map[Difficulty]policy{
	Easy:   {depth: 1, window: 3},
	Medium: {depth: 1, window: 2},
	Hard:   {depth: 2, window: 1},
}

// policyFor falls back to medium for values outside the enumeration.
func policyFor(d Difficulty) policy {
	if p, ok := policies[d]; ok {
		return p
	}
	return policies[Medium]
}

// SearchDepth is the depth used for tactically sharp candidates at level d.
func (d Difficulty) SearchDepth() int {
	return policyFor(d).depth
}

// Window is the number of top-ranked moves the pick is drawn from.
func (d Difficulty) Window() int {
	return policyFor(d).window
}
