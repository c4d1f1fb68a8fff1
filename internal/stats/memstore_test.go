package stats

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"game-night/internal/models"
)

// memStore is an in-memory Store for tests.
type memStore struct {
	sessions  []models.GameSession
	games     []models.GameDefinition
	stats     map[primitive.ObjectID]models.PlayerStats
	playerIDs []primitive.ObjectID
	photos    map[primitive.ObjectID]string

	// sessionErrFor makes FindSessionsReferencingPlayer fail for one player.
	sessionErrFor map[primitive.ObjectID]error

	upserts int
}

func newMemStore() *memStore {
	return &memStore{
		stats:         make(map[primitive.ObjectID]models.PlayerStats),
		photos:        make(map[primitive.ObjectID]string),
		sessionErrFor: make(map[primitive.ObjectID]error),
	}
}

func (m *memStore) FindSessionsReferencingPlayer(_ context.Context, playerID primitive.ObjectID) ([]models.GameSession, error) {
	if err := m.sessionErrFor[playerID]; err != nil {
		return nil, err
	}
	var out []models.GameSession
	for _, s := range m.sessions {
		if s.ResultFor(playerID) != nil {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memStore) FindSessionsInRange(_ context.Context, start, end time.Time) ([]models.GameSession, error) {
	var out []models.GameSession
	for _, s := range m.sessions {
		if !s.PlayedAt.Before(start) && !s.PlayedAt.After(end) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memStore) FindSessionsByGame(_ context.Context, gameID primitive.ObjectID, playerCount int) ([]models.GameSession, error) {
	var out []models.GameSession
	for _, s := range m.sessions {
		if s.GameID != gameID {
			continue
		}
		if playerCount > 0 && s.PlayerCount != playerCount {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (m *memStore) FindAllActiveGames(_ context.Context) ([]models.GameDefinition, error) {
	var out []models.GameDefinition
	for _, g := range m.games {
		if g.IsActive {
			out = append(out, g)
		}
	}
	return out, nil
}

func (m *memStore) FindAllPlayerStats(_ context.Context) ([]models.PlayerStats, error) {
	out := make([]models.PlayerStats, 0, len(m.stats))
	for _, ps := range m.stats {
		out = append(out, ps)
	}
	return out, nil
}

func (m *memStore) UpsertPlayerStats(_ context.Context, stats *models.PlayerStats) error {
	m.stats[stats.PlayerID] = *stats
	m.upserts++
	return nil
}

func (m *memStore) DeletePlayerStats(_ context.Context, playerID primitive.ObjectID) error {
	delete(m.stats, playerID)
	return nil
}

func (m *memStore) ListPlayerIDs(_ context.Context) ([]primitive.ObjectID, error) {
	return m.playerIDs, nil
}

func (m *memStore) FindPlayerPhoto(_ context.Context, playerID primitive.ObjectID) (string, error) {
	return m.photos[playerID], nil
}

// oid builds a deterministic ObjectID for tests.
func oid(b byte) primitive.ObjectID {
	var id primitive.ObjectID
	id[11] = b
	return id
}

func oidPtr(b byte) *primitive.ObjectID {
	id := oid(b)
	return &id
}
