package db

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"chess-coach/internal/progress"
)

// ProgressStore keeps one progress document per player, keyed by player ID.
type ProgressStore struct {
	coll *mongo.Collection
}

var (
	_ progress.Store  = (*ProgressStore)(nil)
	_ progress.Ranker = (*ProgressStore)(nil)
)

func NewProgressStore(m *MongoDB) *ProgressStore {
	return &ProgressStore{coll: m.Progress()}
}

func (s *ProgressStore) Get(ctx context.Context, playerID string) (*progress.Progress, error) {
	var p progress.Progress
	err := s.coll.FindOne(ctx, bson.M{"_id": playerID}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, progress.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load progress: %w", err)
	}
	return &p, nil
}

func (s *ProgressStore) Save(ctx context.Context, p *progress.Progress) error {
	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": p.PlayerID}, p, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to save progress: %w", err)
	}
	return nil
}

func (s *ProgressStore) Delete(ctx context.Context, playerID string) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": playerID})
	if err != nil {
		return fmt.Errorf("failed to delete progress: %w", err)
	}
	if res.DeletedCount == 0 {
		return progress.ErrNotFound
	}
	return nil
}

// Top uses the rating index. History is left out of the projection.
func (s *ProgressStore) Top(ctx context.Context, limit int) ([]progress.Progress, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "rating", Value: -1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(limit)).
		SetProjection(bson.M{"history": 0, "lessonAttempts": 0})

	cursor, err := s.coll.Find(ctx, bson.M{"gamesPlayed": bson.M{"$gt": 0}}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}
	defer cursor.Close(ctx)

	var players []progress.Progress
	if err := cursor.All(ctx, &players); err != nil {
		return nil, fmt.Errorf("failed to decode leaderboard: %w", err)
	}
	return players, nil
}
