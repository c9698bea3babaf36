package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"chess-coach/internal/models"
	"chess-coach/internal/session"
)

// GameRepository stores games in the games collection and their move records
// in moves.
type GameRepository struct {
	games *mongo.Collection
	moves *mongo.Collection
}

var _ session.Repository = (*GameRepository)(nil)

func NewGameRepository(m *MongoDB) *GameRepository {
	return &GameRepository{games: m.Games(), moves: m.Moves()}
}

func (r *GameRepository) Create(ctx context.Context, g *models.Game) error {
	res, err := r.games.InsertOne(ctx, g)
	if err != nil {
		return fmt.Errorf("failed to insert game: %w", err)
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		g.ID = id
	}
	return nil
}

func (r *GameRepository) Get(ctx context.Context, sessionID string) (*models.Game, error) {
	var g models.Game
	err := r.games.FindOne(ctx, bson.M{"sessionId": sessionID}).Decode(&g)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load game: %w", err)
	}
	return &g, nil
}

func (r *GameRepository) Update(ctx context.Context, g *models.Game) error {
	// _id is immutable; match and replace by session ID.
	doc := *g
	doc.ID = primitive.NilObjectID
	res, err := r.games.ReplaceOne(ctx, bson.M{"sessionId": g.SessionID}, doc)
	if err != nil {
		return fmt.Errorf("failed to update game: %w", err)
	}
	if res.MatchedCount == 0 {
		return session.ErrNotFound
	}
	return nil
}

func (r *GameRepository) AddMove(ctx context.Context, m *models.Move) error {
	if _, err := r.moves.InsertOne(ctx, m); err != nil {
		return fmt.Errorf("failed to insert move: %w", err)
	}
	return nil
}

func (r *GameRepository) Moves(ctx context.Context, sessionID string) ([]models.Move, error) {
	opts := options.Find().SetSort(bson.D{{Key: "moveNumber", Value: 1}})
	cursor, err := r.moves.Find(ctx, bson.M{"sessionId": sessionID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query moves: %w", err)
	}
	defer cursor.Close(ctx)

	moves := []models.Move{}
	if err := cursor.All(ctx, &moves); err != nil {
		return nil, fmt.Errorf("failed to decode moves: %w", err)
	}
	return moves, nil
}

func (r *GameRepository) Stalled(ctx context.Context, cutoff time.Time) ([]models.Game, error) {
	filter := bson.M{
		"status":    models.GameStatusActive,
		"updatedAt": bson.M{"$lt": cutoff},
		"$expr":     bson.M{"$ne": bson.A{"$currentTurn", "$humanColor"}},
	}
	cursor, err := r.games.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query stalled games: %w", err)
	}
	defer cursor.Close(ctx)

	var games []models.Game
	if err := cursor.All(ctx, &games); err != nil {
		return nil, fmt.Errorf("failed to decode games: %w", err)
	}
	return games, nil
}
