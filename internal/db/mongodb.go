package db

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoDB struct {
	Client   *mongo.Client
	Database *mongo.Database
}

func NewMongoDB(uri, database string) (*MongoDB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(200).
		SetMinPoolSize(5).
		SetMaxConnIdleTime(5 * time.Minute)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	// Ping the database to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	db := &MongoDB{
		Client:   client,
		Database: client.Database(database),
	}

	// Create indexes in the background (non-blocking)
	go db.ensureIndexes()

	return db, nil
}

// ensureIndexes creates all required indexes. Called once on startup.
func (m *MongoDB) ensureIndexes() {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	indexes := []struct {
		collection string
		models     []mongo.IndexModel
	}{
		{
			"players",
			[]mongo.IndexModel{
				{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)},
				{Keys: bson.D{{Key: "isActive", Value: 1}}},
			},
		},
		{
			"games",
			[]mongo.IndexModel{
				{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)},
				{Keys: bson.D{{Key: "isActive", Value: 1}, {Key: "name", Value: 1}}},
			},
		},
		{
			"sessions",
			[]mongo.IndexModel{
				{Keys: bson.D{{Key: "playedAt", Value: -1}}},
				{Keys: bson.D{{Key: "gameId", Value: 1}, {Key: "playedAt", Value: -1}}},
				{Keys: bson.D{{Key: "gameId", Value: 1}, {Key: "playerCount", Value: 1}}},
				{Keys: bson.D{{Key: "results.playerId", Value: 1}, {Key: "playedAt", Value: -1}}},
			},
		},
		{
			"player_stats",
			[]mongo.IndexModel{
				{Keys: bson.D{{Key: "overall.totalPoints", Value: -1}}},
			},
		},
		{
			"events",
			[]mongo.IndexModel{
				{Keys: bson.D{{Key: "startsAt", Value: 1}}},
				{Keys: bson.D{{Key: "uid", Value: 1}}, Options: options.Index().SetUnique(true)},
			},
		},
		{
			"users",
			[]mongo.IndexModel{
				{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetSparse(true)},
				{Keys: bson.D{{Key: "displayName", Value: 1}}, Options: options.Index().SetUnique(true)},
				{Keys: bson.D{{Key: "googleId", Value: 1}}, Options: options.Index().SetSparse(true)},
			},
		},
		{
			"refresh_tokens",
			[]mongo.IndexModel{
				{Keys: bson.D{{Key: "userId", Value: 1}}},
				{Keys: bson.D{{Key: "expiresAt", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0)},
			},
		},
		{
			"revoked_tokens",
			[]mongo.IndexModel{
				{Keys: bson.D{{Key: "expiresAt", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0)},
				{Keys: bson.D{{Key: "tokenHash", Value: 1}}, Options: options.Index().SetUnique(true)},
			},
		},
		{
			"oauth_states",
			[]mongo.IndexModel{
				{Keys: bson.D{{Key: "expiresAt", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0)},
			},
		},
		{
			"ws_events",
			[]mongo.IndexModel{
				{Keys: bson.D{{Key: "createdAt", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(60)},
			},
		},
		{
			"audit_log",
			[]mongo.IndexModel{
				{Keys: bson.D{{Key: "createdAt", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(90 * 24 * 3600)}, // 90-day retention
				{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
			},
		},
	}

	for _, idx := range indexes {
		coll := m.Database.Collection(idx.collection)
		_, err := coll.Indexes().CreateMany(ctx, idx.models)
		if err != nil {
			log.Printf("Warning: failed to create indexes on %s: %v", idx.collection, err)
		}
	}

	log.Println("Database indexes ensured")
}

func (m *MongoDB) Close(ctx context.Context) error {
	return m.Client.Disconnect(ctx)
}

func (m *MongoDB) Players() *mongo.Collection {
	return m.Database.Collection("players")
}

func (m *MongoDB) Games() *mongo.Collection {
	return m.Database.Collection("games")
}

func (m *MongoDB) Sessions() *mongo.Collection {
	return m.Database.Collection("sessions")
}

func (m *MongoDB) PlayerStats() *mongo.Collection {
	return m.Database.Collection("player_stats")
}

func (m *MongoDB) Events() *mongo.Collection {
	return m.Database.Collection("events")
}

func (m *MongoDB) Users() *mongo.Collection {
	return m.Database.Collection("users")
}

func (m *MongoDB) RefreshTokens() *mongo.Collection {
	return m.Database.Collection("refresh_tokens")
}

func (m *MongoDB) RevokedTokens() *mongo.Collection {
	return m.Database.Collection("revoked_tokens")
}

func (m *MongoDB) OAuthStates() *mongo.Collection {
	return m.Database.Collection("oauth_states")
}

func (m *MongoDB) WSEvents() *mongo.Collection {
	return m.Database.Collection("ws_events")
}

func (m *MongoDB) CleanupLocks() *mongo.Collection {
	return m.Database.Collection("cleanup_locks")
}

func (m *MongoDB) AuditLog() *mongo.Collection {
	return m.Database.Collection("audit_log")
}
