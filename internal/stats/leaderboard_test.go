package stats

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"game-night/internal/models"
)

func storedStats(playerID byte, name string, totalPoints float64, totalGames, wins int, gameStats ...models.GameStats) models.PlayerStats {
	ps := models.PlayerStats{
		PlayerID:   oid(playerID),
		PlayerName: name,
		Overall: models.OverallStats{
			TotalGames:  totalGames,
			Wins:        wins,
			TotalPoints: totalPoints,
		},
		GameStats: gameStats,
	}
	if totalGames > 0 {
		ps.Overall.WinRate = float64(wins) / float64(totalGames)
		ps.Overall.AveragePoints = totalPoints / float64(totalGames)
	}
	return ps
}

func TestOverallLeaderboard(t *testing.T) {
	store := newMemStore()
	store.stats[oid(1)] = storedStats(1, "Alice", 120, 10, 4)
	store.stats[oid(2)] = storedStats(2, "Bob", 80, 12, 2)
	store.stats[oid(3)] = storedStats(3, "Carol", 150, 9, 6)

	lb := NewLeaderboard(store)
	entries, err := lb.Overall(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, "Carol", entries[0].PlayerName)
	assert.Equal(t, 1, entries[0].Rank)
	assert.Equal(t, "Alice", entries[1].PlayerName)
	assert.Equal(t, "Bob", entries[2].PlayerName)
	assert.Equal(t, 3, entries[2].Rank)
}

func TestOverallLeaderboardTieBreak(t *testing.T) {
	store := newMemStore()
	// Same points; Bob has the better win rate.
	store.stats[oid(1)] = storedStats(1, "Alice", 100, 10, 2)
	store.stats[oid(2)] = storedStats(2, "Bob", 100, 10, 5)
	// Same points and win rate as Alice; lower id wins the last tie-break.
	store.stats[oid(3)] = storedStats(3, "Carol", 100, 10, 2)

	lb := NewLeaderboard(store)
	entries, err := lb.Overall(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, "Bob", entries[0].PlayerName)
	assert.Equal(t, "Alice", entries[1].PlayerName)
	assert.Equal(t, "Carol", entries[2].PlayerName)
}

func TestOverallLeaderboardLimit(t *testing.T) {
	store := newMemStore()
	store.stats[oid(1)] = storedStats(1, "Alice", 120, 10, 4)
	store.stats[oid(2)] = storedStats(2, "Bob", 80, 12, 2)
	store.stats[oid(3)] = storedStats(3, "Carol", 150, 9, 6)

	lb := NewLeaderboard(store)
	entries, err := lb.Overall(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "Carol", entries[0].PlayerName)
	assert.Equal(t, "Alice", entries[1].PlayerName)
}

func TestGameLeaderboardFromBuckets(t *testing.T) {
	store := newMemStore()
	store.stats[oid(1)] = storedStats(1, "Alice", 120, 10, 4,
		models.GameStats{GameID: catanID, GameName: "Catan", TotalGames: 4, Wins: 2, TotalPoints: 40},
	)
	store.stats[oid(2)] = storedStats(2, "Bob", 80, 12, 2,
		models.GameStats{GameID: catanID, GameName: "Catan", TotalGames: 6, Wins: 1, TotalPoints: 55},
		models.GameStats{GameID: azulID, GameName: "Azul", TotalGames: 2, Wins: 1, TotalPoints: 12},
	)
	store.stats[oid(3)] = storedStats(3, "Carol", 30, 3, 1,
		models.GameStats{GameID: azulID, GameName: "Azul", TotalGames: 3, Wins: 1, TotalPoints: 30},
	)

	lb := NewLeaderboard(store)
	entries, err := lb.ForGame(context.Background(), catanID, 0, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// Ranked by that game's points, not overall points.
	assert.Equal(t, "Bob", entries[0].PlayerName)
	assert.InDelta(t, 55, entries[0].TotalPoints, 1e-9)
	assert.Equal(t, "Alice", entries[1].PlayerName)
}

func TestGameLeaderboardWithPlayerCountFilter(t *testing.T) {
	store := newMemStore()
	fourSeat := newSession("catan", testEpoch,
		result(1, "Alice", 1, 8),
		result(2, "Bob", 2, 6),
		result(3, "Carol", 3, 4),
		models.ScoredResult{PlayerID: oidPtr(4), PlayerName: "Dave", Rank: 4, PointsEarned: 2},
	)
	threeSeat := newSession("catan", testEpoch.AddDate(0, 0, 1),
		result(2, "Bob", 1, 6),
		result(3, "Carol", 2, 4.5),
		result(1, "Alice", 3, 2.5),
	)
	store.sessions = []models.GameSession{fourSeat, threeSeat}

	lb := NewLeaderboard(store)

	// Only the 4-player table counts.
	entries, err := lb.ForGame(context.Background(), catanID, 4, 10)
	require.NoError(t, err)
	require.Len(t, entries, 4)
	assert.Equal(t, "Alice", entries[0].PlayerName)
	assert.InDelta(t, 8, entries[0].TotalPoints, 1e-9)

	// Only the 3-player table counts.
	entries, err = lb.ForGame(context.Background(), catanID, 3, 10)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "Bob", entries[0].PlayerName)
}

func TestMonthlyLeaderboardWindow(t *testing.T) {
	store := newMemStore()
	inMonth := newSession("catan", time.Date(2026, time.March, 15, 20, 0, 0, 0, time.UTC),
		result(1, "Alice", 1, 8),
		result(2, "Bob", 2, 6),
	)
	lastInstant := newSession("catan", time.Date(2026, time.March, 31, 23, 59, 59, int(999*time.Millisecond), time.UTC),
		result(2, "Bob", 1, 8),
		result(1, "Alice", 2, 6),
	)
	nextMonth := newSession("catan", time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC),
		result(2, "Bob", 1, 8),
		result(1, "Alice", 2, 6),
	)
	store.sessions = []models.GameSession{inMonth, lastInstant, nextMonth}

	lb := NewLeaderboard(store)
	entries, err := lb.Monthly(context.Background(), time.March, 2026, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// Only the two March sessions fold in: Alice 14, Bob 14, Bob has more
	// March wins... both have one win, so the lower id breaks the tie.
	assert.InDelta(t, 14, entries[0].TotalPoints, 1e-9)
	assert.InDelta(t, 14, entries[1].TotalPoints, 1e-9)
	assert.Equal(t, 2, entries[0].TotalGames)
	assert.Equal(t, "Alice", entries[0].PlayerName)
}

func TestAwardsPickDeterministicWinner(t *testing.T) {
	store := newMemStore()
	now := time.Date(2026, time.March, 20, 12, 0, 0, 0, time.UTC)

	// Alice reaches 10 points on day -2, Bob reaches 10 points on day -1.
	// Same points, so whoever got there first takes the award.
	store.sessions = []models.GameSession{
		newSession("catan", now.AddDate(0, 0, -3),
			result(1, "Alice", 1, 6),
			result(2, "Bob", 2, 0),
		),
		newSession("catan", now.AddDate(0, 0, -2),
			result(1, "Alice", 2, 4),
			result(3, "Carol", 1, 8),
		),
		newSession("azul", now.AddDate(0, 0, -1),
			result(2, "Bob", 1, 10),
		),
	}
	store.photos[aliceID] = "https://club.example/alice.jpg"

	lb := NewLeaderboard(store)
	awards, err := lb.awardsAt(context.Background(), now)
	require.NoError(t, err)
	require.NotNil(t, awards.PlayerOfWeek)

	assert.Equal(t, "Alice", awards.PlayerOfWeek.PlayerName)
	assert.InDelta(t, 10, awards.PlayerOfWeek.TotalPoints, 1e-9)
	assert.Equal(t, "https://club.example/alice.jpg", awards.PlayerOfWeek.PhotoURL)

	// Month window sees the same sessions here.
	require.NotNil(t, awards.PlayerOfMonth)
	assert.Equal(t, "Alice", awards.PlayerOfMonth.PlayerName)
}

func TestAwardsEmptyWindow(t *testing.T) {
	store := newMemStore()
	lb := NewLeaderboard(store)

	awards, err := lb.GetAwards(context.Background())
	require.NoError(t, err)
	assert.Nil(t, awards.PlayerOfWeek)
	assert.Nil(t, awards.PlayerOfMonth)
}

func TestBestPlayerPerGame(t *testing.T) {
	store := newMemStore()
	pandemicID := oid(0xA3)
	store.games = []models.GameDefinition{
		{ID: catanID, Name: "Catan", IsActive: true},
		{ID: azulID, Name: "Azul", IsActive: true},
		{ID: pandemicID, Name: "Pandemic", IsActive: true},
	}
	store.stats[oid(1)] = storedStats(1, "Alice", 120, 10, 4,
		models.GameStats{GameID: catanID, GameName: "Catan", TotalGames: 4, Wins: 2, TotalPoints: 40},
		// One play only: below the champion threshold.
		models.GameStats{GameID: azulID, GameName: "Azul", TotalGames: 1, Wins: 1, TotalPoints: 10},
	)
	store.stats[oid(2)] = storedStats(2, "Bob", 80, 12, 2,
		models.GameStats{GameID: catanID, GameName: "Catan", TotalGames: 6, Wins: 1, TotalPoints: 55},
	)

	lb := NewLeaderboard(store)
	champions, err := lb.BestPlayerPerGame(context.Background())
	require.NoError(t, err)

	// Azul has no player with 2+ plays and Pandemic was never played, so
	// only Catan returns a champion.
	require.Len(t, champions, 1)
	assert.Equal(t, "Catan", champions[0].GameName)
	assert.Equal(t, "Bob", champions[0].PlayerName)
	assert.InDelta(t, 55, champions[0].TotalPoints, 1e-9)
}
