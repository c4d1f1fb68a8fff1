package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"game-night/internal/config"
	"game-night/internal/db"
)

// Dev-only reset: wipes recorded play data so a local database can be
// reseeded. Leaves users and the game library alone.
func main() {
	cfg, err := config.Load("dev")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

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

	sessionsResult, err := mongodb.Sessions().DeleteMany(ctx, map[string]interface{}{})
	if err != nil {
		log.Fatalf("Failed to delete sessions: %v", err)
	}
	fmt.Printf("Deleted %d sessions\n", sessionsResult.DeletedCount)

	statsResult, err := mongodb.PlayerStats().DeleteMany(ctx, map[string]interface{}{})
	if err != nil {
		log.Fatalf("Failed to delete player stats: %v", err)
	}
	fmt.Printf("Deleted %d player stats documents\n", statsResult.DeletedCount)

	playersResult, err := mongodb.Players().DeleteMany(ctx, map[string]interface{}{})
	if err != nil {
		log.Fatalf("Failed to delete players: %v", err)
	}
	fmt.Printf("Deleted %d players\n", playersResult.DeletedCount)

	eventsResult, err := mongodb.Events().DeleteMany(ctx, map[string]interface{}{})
	if err != nil {
		log.Fatalf("Failed to delete events: %v", err)
	}
	fmt.Printf("Deleted %d events\n", eventsResult.DeletedCount)

	fmt.Println("Database cleared successfully")
}
