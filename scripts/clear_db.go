package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"chess-coach/internal/config"
	"chess-coach/internal/db"
)

func main() {
	withProgress := flag.Bool("progress", false, "also delete player progress and the audit log")
	flag.Parse()

	// Load config
	cfg, err := config.Load(config.GetEnv())
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.MongoDB.URI == "" {
		log.Fatalf("No MongoDB configured for %s", cfg.Environment)
	}

	// Connect to MongoDB
	mongodb, err := db.NewMongoDB(cfg.MongoDB.URI, cfg.MongoDB.Database)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		mongodb.Close(ctx)
	}()

	ctx := context.Background()

	type target struct {
		name string
		coll *mongo.Collection
	}
	collections := []target{
		{"games", mongodb.Games()},
		{"moves", mongodb.Moves()},
		{"cleanup locks", mongodb.CleanupLocks()},
	}
	if *withProgress {
		collections = append(collections,
			target{"progress documents", mongodb.Progress()},
			target{"audit events", mongodb.AuditLog()},
		)
	}

	for _, c := range collections {
		result, err := c.coll.DeleteMany(ctx, bson.M{})
		if err != nil {
			log.Fatalf("Failed to delete %s: %v", c.name, err)
		}
		fmt.Printf("Deleted %d %s\n", result.DeletedCount, c.name)
	}

	fmt.Println("Database cleared successfully")
}
