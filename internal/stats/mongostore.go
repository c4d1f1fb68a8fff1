package stats

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"game-night/internal/db"
	"game-night/internal/models"
)

// MongoStore is the production Store, backed by the server's MongoDB
// collections.
type MongoStore struct {
	db *db.MongoDB
}

func NewMongoStore(database *db.MongoDB) *MongoStore {
	return &MongoStore{db: database}
}

func (s *MongoStore) FindSessionsReferencingPlayer(ctx context.Context, playerID primitive.ObjectID) ([]models.GameSession, error) {
	return s.findSessions(ctx, bson.M{"results.playerId": playerID})
}

func (s *MongoStore) FindSessionsInRange(ctx context.Context, start, end time.Time) ([]models.GameSession, error) {
	return s.findSessions(ctx, bson.M{
		"playedAt": bson.M{"$gte": start, "$lte": end},
	})
}

func (s *MongoStore) FindSessionsByGame(ctx context.Context, gameID primitive.ObjectID, playerCount int) ([]models.GameSession, error) {
	filter := bson.M{"gameId": gameID}
	if playerCount > 0 {
		filter["playerCount"] = playerCount
	}
	return s.findSessions(ctx, filter)
}

func (s *MongoStore) findSessions(ctx context.Context, filter bson.M) ([]models.GameSession, error) {
	opts := options.Find().SetSort(bson.M{"playedAt": 1})
	cursor, err := s.db.Sessions().Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var sessions []models.GameSession
	if err := cursor.All(ctx, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (s *MongoStore) FindAllActiveGames(ctx context.Context) ([]models.GameDefinition, error) {
	cursor, err := s.db.Games().Find(ctx, bson.M{"isActive": true}, options.Find().SetSort(bson.M{"name": 1}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var games []models.GameDefinition
	if err := cursor.All(ctx, &games); err != nil {
		return nil, err
	}
	return games, nil
}

func (s *MongoStore) FindAllPlayerStats(ctx context.Context) ([]models.PlayerStats, error) {
	cursor, err := s.db.PlayerStats().Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var allStats []models.PlayerStats
	if err := cursor.All(ctx, &allStats); err != nil {
		return nil, err
	}
	return allStats, nil
}

func (s *MongoStore) UpsertPlayerStats(ctx context.Context, stats *models.PlayerStats) error {
	opts := options.Replace().SetUpsert(true)
	_, err := s.db.PlayerStats().ReplaceOne(ctx, bson.M{"_id": stats.PlayerID}, stats, opts)
	return err
}

func (s *MongoStore) DeletePlayerStats(ctx context.Context, playerID primitive.ObjectID) error {
	_, err := s.db.PlayerStats().DeleteOne(ctx, bson.M{"_id": playerID})
	return err
}

func (s *MongoStore) ListPlayerIDs(ctx context.Context) ([]primitive.ObjectID, error) {
	opts := options.Find().SetProjection(bson.M{"_id": 1})
	cursor, err := s.db.Players().Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	ids := make([]primitive.ObjectID, len(docs))
	for i, doc := range docs {
		ids[i] = doc.ID
	}
	return ids, nil
}

func (s *MongoStore) FindPlayerPhoto(ctx context.Context, playerID primitive.ObjectID) (string, error) {
	var player models.Player
	opts := options.FindOne().SetProjection(bson.M{"photoUrl": 1})
	err := s.db.Players().FindOne(ctx, bson.M{"_id": playerID}, opts).Decode(&player)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return player.PhotoURL, nil
}
