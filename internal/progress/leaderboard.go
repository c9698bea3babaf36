package progress

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sort"
)

var ErrNoLeaderboard = errors.New("leaderboard not supported by store")

const (
	DefaultLeaderboardSize = 50
	MaxLeaderboardSize     = 100
)

// Ranker is implemented by stores that can list players by rating.
type Ranker interface {
	// Top returns up to limit players who have finished a game, highest
	// rating first.
	Top(ctx context.Context, limit int) ([]Progress, error)
}

type Standing struct {
	Rank        int    `json:"rank"`
	DisplayName string `json:"displayName"`
	Rating      int    `json:"rating"`
	BestRating  int    `json:"bestRating"`
	Wins        int    `json:"wins"`
	Losses      int    `json:"losses"`
	Draws       int    `json:"draws"`
	GamesPlayed int    `json:"gamesPlayed"`
}

var adjectives = []string{
	"Swift", "Brave", "Clever", "Noble", "Mighty", "Silent", "Golden", "Silver",
	"Crystal", "Shadow", "Crimson", "Azure", "Cosmic", "Ancient", "Mystic", "Royal",
	"Fierce", "Gentle", "Wild", "Calm", "Bold", "Wise", "Quick", "Keen",
	"Storm", "Frost", "Iron", "Steel", "Stone", "Lunar", "Solar", "Stellar",
}

var nouns = []string{
	"Knight", "Bishop", "Rook", "Queen", "King", "Pawn", "Dragon", "Phoenix",
	"Wolf", "Bear", "Eagle", "Hawk", "Lion", "Tiger", "Falcon", "Serpent",
	"Wizard", "Sage", "Oracle", "Scholar", "Hunter", "Champion", "Castle", "Tower",
	"Guardian", "Sentinel", "Keeper", "Seeker", "Rider", "Marshal", "Captain", "Comet",
}

// DisplayName derives a public name like "SwiftKnight123" from a player ID.
// The leaderboard shows these instead of player IDs.
func DisplayName(playerID string) string {
	h := fnv.New64a()
	h.Write([]byte(playerID))
	sum := h.Sum64()
	adjective := adjectives[sum%uint64(len(adjectives))]
	sum /= uint64(len(adjectives))
	noun := nouns[sum%uint64(len(nouns))]
	sum /= uint64(len(nouns))
	return fmt.Sprintf("%s%s%d", adjective, noun, sum%1000)
}

// Leaderboard ranks players by rating. limit is clamped to
// [1, MaxLeaderboardSize] with DefaultLeaderboardSize for zero.
func (s *Service) Leaderboard(ctx context.Context, limit int) ([]Standing, error) {
	ranker, ok := s.store.(Ranker)
	if !ok {
		return nil, ErrNoLeaderboard
	}
	switch {
	case limit <= 0:
		limit = DefaultLeaderboardSize
	case limit > MaxLeaderboardSize:
		limit = MaxLeaderboardSize
	}

	players, err := ranker.Top(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to rank players: %w", err)
	}
	standings := make([]Standing, len(players))
	for i, p := range players {
		name := p.DisplayName
		if name == "" {
			name = DisplayName(p.PlayerID)
		}
		standings[i] = Standing{
			Rank:        i + 1,
			DisplayName: name,
			Rating:      p.Rating,
			BestRating:  p.BestRating,
			Wins:        p.Wins,
			Losses:      p.Losses,
			Draws:       p.Draws,
			GamesPlayed: p.GamesPlayed,
		}
	}
	return standings, nil
}

// rank orders players for a leaderboard and keeps the first limit.
func rank(players []Progress, limit int) []Progress {
	out := players[:0]
	for _, p := range players {
		if p.GamesPlayed > 0 {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Rating != out[j].Rating {
			return out[i].Rating > out[j].Rating
		}
		return out[i].PlayerID < out[j].PlayerID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
