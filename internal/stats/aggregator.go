package stats

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"game-night/internal/models"
)

// Aggregator rebuilds PlayerStats documents from raw session history.
//
// Every recompute is a full fold over the player's sessions followed by a
// full overwrite of the stored document. Nothing is updated incrementally;
// that trades a little recomputation cost for immunity to drift and to
// out-of-order or retroactively edited history.
type Aggregator struct {
	store Store
}

func NewAggregator(store Store) *Aggregator {
	return &Aggregator{store: store}
}

// RecalculatePlayerStats folds the player's entire session history into a
// fresh PlayerStats document and upserts it. Returns (nil, nil) when the
// player has no recorded sessions — that is not an error, and any stale
// stats row for the player is the caller's to clean up.
func (a *Aggregator) RecalculatePlayerStats(ctx context.Context, playerID primitive.ObjectID) (*models.PlayerStats, error) {
	sessions, err := a.store.FindSessionsReferencingPlayer(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load sessions for player %s: %w", playerID.Hex(), err)
	}
	if len(sessions) == 0 {
		return nil, nil
	}

	playerStats := foldPlayerSessions(playerID, sessions)

	if err := a.store.UpsertPlayerStats(ctx, playerStats); err != nil {
		return nil, fmt.Errorf("failed to upsert stats for player %s: %w", playerID.Hex(), err)
	}
	return playerStats, nil
}

// RecalculateAll rebuilds stats for every roster player. Per-player failures
// are collected, not fatal: one bad record must not abort the batch. Used
// for full repair after incidents and by the periodic repair job.
func (a *Aggregator) RecalculateAll(ctx context.Context) (int, []error) {
	playerIDs, err := a.store.ListPlayerIDs(ctx)
	if err != nil {
		return 0, []error{fmt.Errorf("failed to list players: %w", err)}
	}

	processed := 0
	var errs []error
	for _, id := range playerIDs {
		if _, err := a.RecalculatePlayerStats(ctx, id); err != nil {
			errs = append(errs, fmt.Errorf("player %s: %w", id.Hex(), err))
			continue
		}
		processed++
	}
	return processed, errs
}

// foldPlayerSessions is the pure fold: sessions in, stats out. Win means
// rank 1, in either scoring mode. Derived ratios are computed once at the
// end, never accumulated, so a zero-game bucket can never divide by zero.
func foldPlayerSessions(playerID primitive.ObjectID, sessions []models.GameSession) *models.PlayerStats {
	playerStats := &models.PlayerStats{
		PlayerID:  playerID,
		UpdatedAt: time.Now(),
	}

	buckets := make(map[primitive.ObjectID]*models.GameStats)
	var nameObservedAt time.Time

	for i := range sessions {
		session := &sessions[i]
		result := session.ResultFor(playerID)
		if result == nil {
			continue
		}

		// Result names are snapshots; keep the most recently played one.
		if playerStats.PlayerName == "" || session.PlayedAt.After(nameObservedAt) {
			playerStats.PlayerName = result.PlayerName
			nameObservedAt = session.PlayedAt
		}

		playerStats.Overall.TotalGames++
		playerStats.Overall.TotalPoints += result.PointsEarned
		if result.Rank == 1 {
			playerStats.Overall.Wins++
		}

		bucket, ok := buckets[session.GameID]
		if !ok {
			bucket = &models.GameStats{GameID: session.GameID, GameName: session.GameName}
			buckets[session.GameID] = bucket
		}
		bucket.TotalGames++
		bucket.TotalPoints += result.PointsEarned
		if result.Rank == 1 {
			bucket.Wins++
		}
	}

	if playerStats.Overall.TotalGames > 0 {
		playerStats.Overall.WinRate = float64(playerStats.Overall.Wins) / float64(playerStats.Overall.TotalGames)
		playerStats.Overall.AveragePoints = playerStats.Overall.TotalPoints / float64(playerStats.Overall.TotalGames)
	}

	playerStats.GameStats = make([]models.GameStats, 0, len(buckets))
	for _, bucket := range buckets {
		if bucket.TotalGames > 0 {
			bucket.WinRate = float64(bucket.Wins) / float64(bucket.TotalGames)
		}
		playerStats.GameStats = append(playerStats.GameStats, *bucket)
	}
	// Stable bucket order keeps back-to-back recomputes byte-identical.
	sort.Slice(playerStats.GameStats, func(i, j int) bool {
		return playerStats.GameStats[i].GameID.Hex() < playerStats.GameStats[j].GameID.Hex()
	})

	return playerStats
}
