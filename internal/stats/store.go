package stats

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"game-night/internal/models"
)

// Store is the persistence boundary for stat aggregation and leaderboards.
// The aggregation code never talks to MongoDB directly; everything it reads
// or writes goes through this interface, which also makes the fold logic
// testable against an in-memory implementation.
type Store interface {
	// FindSessionsReferencingPlayer returns every session in which the
	// player appears in results.
	FindSessionsReferencingPlayer(ctx context.Context, playerID primitive.ObjectID) ([]models.GameSession, error)

	// FindSessionsInRange returns sessions with playedAt in [start, end],
	// inclusive, ordered by playedAt ascending.
	FindSessionsInRange(ctx context.Context, start, end time.Time) ([]models.GameSession, error)

	// FindSessionsByGame returns the sessions of one game. A playerCount of
	// 0 means any table size.
	FindSessionsByGame(ctx context.Context, gameID primitive.ObjectID, playerCount int) ([]models.GameSession, error)

	FindAllActiveGames(ctx context.Context) ([]models.GameDefinition, error)
	FindAllPlayerStats(ctx context.Context) ([]models.PlayerStats, error)
	UpsertPlayerStats(ctx context.Context, stats *models.PlayerStats) error
	DeletePlayerStats(ctx context.Context, playerID primitive.ObjectID) error

	// ListPlayerIDs returns the ids of every roster player, active or not.
	ListPlayerIDs(ctx context.Context) ([]primitive.ObjectID, error)

	// FindPlayerPhoto returns the player's photo URL, or "" when the player
	// has none (or no longer exists). Decoration only.
	FindPlayerPhoto(ctx context.Context, playerID primitive.ObjectID) (string, error)
}
