package stats

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"game-night/internal/models"
)

var (
	catanID   = oid(0xA1)
	azulID    = oid(0xA2)
	aliceID   = oid(1)
	bobID     = oid(2)
	carolID   = oid(3)
	testEpoch = time.Date(2026, time.March, 1, 19, 0, 0, 0, time.UTC)
)

func newSession(game string, playedAt time.Time, results ...models.ScoredResult) models.GameSession {
	gameID, gameName := catanID, "Catan"
	if game == "azul" {
		gameID, gameName = azulID, "Azul"
	}
	return models.GameSession{
		GameID:          gameID,
		GameName:        gameName,
		ScoringMode:     models.ScoringModePointing,
		PointsPerPlayer: 5,
		PlayerCount:     len(results),
		PlayedAt:        playedAt,
		Results:         results,
		TotalPointsPool: len(results) * 5,
		CreatedAt:       playedAt,
	}
}

func result(playerID byte, name string, rank int, points float64) models.ScoredResult {
	return models.ScoredResult{PlayerID: oidPtr(playerID), PlayerName: name, Rank: rank, PointsEarned: points}
}

func TestRecalculatePlayerStatsFoldsHistory(t *testing.T) {
	store := newMemStore()
	store.sessions = []models.GameSession{
		newSession("catan", testEpoch,
			result(1, "Alice", 1, 8),
			result(2, "Bob", 2, 6),
		),
		newSession("catan", testEpoch.AddDate(0, 0, 7),
			result(2, "Bob", 1, 8),
			result(1, "Alice", 2, 6),
		),
		newSession("azul", testEpoch.AddDate(0, 0, 14),
			result(1, "Alice", 1, 10),
			result(3, "Carol", 2, 5),
		),
	}

	agg := NewAggregator(store)
	playerStats, err := agg.RecalculatePlayerStats(context.Background(), aliceID)
	require.NoError(t, err)
	require.NotNil(t, playerStats)

	assert.Equal(t, aliceID, playerStats.PlayerID)
	assert.Equal(t, "Alice", playerStats.PlayerName)
	assert.Equal(t, 3, playerStats.Overall.TotalGames)
	assert.Equal(t, 2, playerStats.Overall.Wins)
	assert.InDelta(t, 24, playerStats.Overall.TotalPoints, 1e-9)
	assert.InDelta(t, 2.0/3.0, playerStats.Overall.WinRate, 1e-9)
	assert.InDelta(t, 8, playerStats.Overall.AveragePoints, 1e-9)

	require.Len(t, playerStats.GameStats, 2)
	byName := map[string]models.GameStats{}
	for _, bucket := range playerStats.GameStats {
		byName[bucket.GameName] = bucket
	}
	assert.Equal(t, 2, byName["Catan"].TotalGames)
	assert.Equal(t, 1, byName["Catan"].Wins)
	assert.InDelta(t, 14, byName["Catan"].TotalPoints, 1e-9)
	assert.Equal(t, 1, byName["Azul"].TotalGames)
	assert.InDelta(t, 10, byName["Azul"].TotalPoints, 1e-9)

	// Overall total equals the sum across buckets.
	sum := 0
	for _, bucket := range playerStats.GameStats {
		sum += bucket.TotalGames
	}
	assert.Equal(t, playerStats.Overall.TotalGames, sum)

	// The stats document was persisted.
	assert.Equal(t, 1, store.upserts)
	stored := store.stats[aliceID]
	assert.Equal(t, playerStats.Overall, stored.Overall)
}

func TestRecalculatePlayerStatsNoHistory(t *testing.T) {
	store := newMemStore()
	agg := NewAggregator(store)

	playerStats, err := agg.RecalculatePlayerStats(context.Background(), aliceID)
	require.NoError(t, err)
	assert.Nil(t, playerStats)
	assert.Zero(t, store.upserts)
}

func TestRecalculatePlayerStatsIdempotent(t *testing.T) {
	store := newMemStore()
	store.sessions = []models.GameSession{
		newSession("catan", testEpoch,
			result(1, "Alice", 1, 8),
			result(2, "Bob", 2, 6),
		),
		newSession("azul", testEpoch.AddDate(0, 0, 1),
			result(1, "Alice", 2, 4),
			result(2, "Bob", 1, 8),
		),
	}

	agg := NewAggregator(store)
	first, err := agg.RecalculatePlayerStats(context.Background(), aliceID)
	require.NoError(t, err)
	second, err := agg.RecalculatePlayerStats(context.Background(), aliceID)
	require.NoError(t, err)

	// Bit-identical modulo the recompute timestamp.
	first.UpdatedAt = time.Time{}
	second.UpdatedAt = time.Time{}
	assert.Equal(t, first, second)
}

func TestRecalculatePlayerStatsUsesLatestName(t *testing.T) {
	store := newMemStore()
	store.sessions = []models.GameSession{
		newSession("catan", testEpoch.AddDate(0, 0, 30),
			result(1, "Alice W.", 1, 8),
			result(2, "Bob", 2, 6),
		),
		newSession("catan", testEpoch,
			result(1, "Alice", 1, 8),
			result(2, "Bob", 2, 6),
		),
	}

	agg := NewAggregator(store)
	playerStats, err := agg.RecalculatePlayerStats(context.Background(), aliceID)
	require.NoError(t, err)
	assert.Equal(t, "Alice W.", playerStats.PlayerName)
}

func TestRecalculatePlayerStatsSkipsAnonymizedResults(t *testing.T) {
	store := newMemStore()
	anonymized := newSession("catan", testEpoch,
		models.ScoredResult{PlayerID: nil, PlayerName: "Deleted player", Rank: 1, PointsEarned: 8},
		result(1, "Alice", 2, 6),
	)
	store.sessions = []models.GameSession{anonymized}

	agg := NewAggregator(store)
	playerStats, err := agg.RecalculatePlayerStats(context.Background(), aliceID)
	require.NoError(t, err)
	require.NotNil(t, playerStats)
	assert.Equal(t, 1, playerStats.Overall.TotalGames)
	assert.Equal(t, 0, playerStats.Overall.Wins)
}

func TestRecalculateAllIsolatesFailures(t *testing.T) {
	store := newMemStore()
	store.playerIDs = []primitive.ObjectID{aliceID, bobID, carolID}
	store.sessions = []models.GameSession{
		newSession("catan", testEpoch,
			result(1, "Alice", 1, 8),
			result(3, "Carol", 2, 6),
		),
	}
	store.sessionErrFor[bobID] = errors.New("boom")

	agg := NewAggregator(store)
	processed, errs := agg.RecalculateAll(context.Background())

	// Bob's failure is collected, Alice and Carol still processed.
	assert.Equal(t, 2, processed)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), bobID.Hex())
}
