package stats

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"game-night/internal/models"
)

const (
	// DefaultLeaderboardLimit caps leaderboard responses when the caller
	// does not ask for a specific size.
	DefaultLeaderboardLimit = 50

	// MinPlaysForChampion is how many recorded plays of a game a player
	// needs before they can be that game's champion.
	MinPlaysForChampion = 2

	playerOfWeekWindow  = 7 * 24 * time.Hour
	playerOfMonthWindow = 30 * 24 * time.Hour
)

// RankedPlayer is one row of a leaderboard.
type RankedPlayer struct {
	Rank        int                `json:"rank"`
	PlayerID    primitive.ObjectID `json:"playerId"`
	PlayerName  string             `json:"playerName"`
	PhotoURL    string             `json:"photoUrl,omitempty"`
	TotalPoints float64            `json:"totalPoints"`
	TotalGames  int                `json:"totalGames"`
	Wins        int                `json:"wins"`
	WinRate     float64            `json:"winRate"`
}

// GameChampion is the best player of one game.
type GameChampion struct {
	GameID      primitive.ObjectID `json:"gameId"`
	GameName    string             `json:"gameName"`
	PlayerID    primitive.ObjectID `json:"playerId"`
	PlayerName  string             `json:"playerName"`
	TotalPoints float64            `json:"totalPoints"`
	TotalGames  int                `json:"totalGames"`
}

// Awards holds the rolling-window honors.
type Awards struct {
	PlayerOfWeek  *RankedPlayer `json:"playerOfWeek"`
	PlayerOfMonth *RankedPlayer `json:"playerOfMonth"`
}

// Leaderboard builds ranked views over the PlayerStats collection and, for
// time-windowed queries, directly over raw session history. PlayerStats is
// all-time only, so monthly standings and awards always fold the window
// from scratch.
type Leaderboard struct {
	store Store
}

func NewLeaderboard(store Store) *Leaderboard {
	return &Leaderboard{store: store}
}

// Overall returns the all-time leaderboard: totalPoints descending, ties
// broken by winRate descending then player id ascending.
func (l *Leaderboard) Overall(ctx context.Context, limit int) ([]RankedPlayer, error) {
	allStats, err := l.store.FindAllPlayerStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load player stats: %w", err)
	}

	entries := make([]RankedPlayer, 0, len(allStats))
	for _, ps := range allStats {
		entries = append(entries, RankedPlayer{
			PlayerID:    ps.PlayerID,
			PlayerName:  ps.PlayerName,
			TotalPoints: ps.Overall.TotalPoints,
			TotalGames:  ps.Overall.TotalGames,
			Wins:        ps.Overall.Wins,
			WinRate:     ps.Overall.WinRate,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].TotalPoints != entries[j].TotalPoints {
			return entries[i].TotalPoints > entries[j].TotalPoints
		}
		if entries[i].WinRate != entries[j].WinRate {
			return entries[i].WinRate > entries[j].WinRate
		}
		return entries[i].PlayerID.Hex() < entries[j].PlayerID.Hex()
	})

	return rankAndTruncate(entries, limit), nil
}

// ForGame returns the leaderboard of a single game. Without a table-size
// filter it reads the per-game buckets off PlayerStats; with one it folds
// that game's raw sessions of the requested size, since stats are not
// bucketed per table size.
func (l *Leaderboard) ForGame(ctx context.Context, gameID primitive.ObjectID, playerCountFilter, limit int) ([]RankedPlayer, error) {
	if playerCountFilter > 0 {
		sessions, err := l.store.FindSessionsByGame(ctx, gameID, playerCountFilter)
		if err != nil {
			return nil, fmt.Errorf("failed to load sessions for game %s: %w", gameID.Hex(), err)
		}
		entries := foldWindow(sessions)
		sortByPointsWinsID(entries)
		return rankAndTruncate(entries, limit), nil
	}

	allStats, err := l.store.FindAllPlayerStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load player stats: %w", err)
	}

	entries := make([]RankedPlayer, 0, len(allStats))
	for _, ps := range allStats {
		for _, bucket := range ps.GameStats {
			if bucket.GameID != gameID {
				continue
			}
			entries = append(entries, RankedPlayer{
				PlayerID:    ps.PlayerID,
				PlayerName:  ps.PlayerName,
				TotalPoints: bucket.TotalPoints,
				TotalGames:  bucket.TotalGames,
				Wins:        bucket.Wins,
				WinRate:     bucket.WinRate,
			})
			break
		}
	}

	sortByPointsWinsID(entries)
	return rankAndTruncate(entries, limit), nil
}

// Monthly folds the calendar month's sessions from scratch. The window is
// [first of month 00:00:00, last of month 23:59:59.999] in UTC.
func (l *Leaderboard) Monthly(ctx context.Context, month time.Month, year, limit int) ([]RankedPlayer, error) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0).Add(-time.Millisecond)

	sessions, err := l.store.FindSessionsInRange(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to load sessions for %04d-%02d: %w", year, month, err)
	}

	entries := foldWindow(sessions)
	sortByPointsWinsID(entries)
	return rankAndTruncate(entries, limit), nil
}

// GetAwards computes player of the week and player of the month over rolling
// 7-day and 30-day windows ending now.
func (l *Leaderboard) GetAwards(ctx context.Context) (*Awards, error) {
	return l.awardsAt(ctx, time.Now())
}

func (l *Leaderboard) awardsAt(ctx context.Context, now time.Time) (*Awards, error) {
	week, err := l.windowWinner(ctx, now.Add(-playerOfWeekWindow), now)
	if err != nil {
		return nil, err
	}
	month, err := l.windowWinner(ctx, now.Add(-playerOfMonthWindow), now)
	if err != nil {
		return nil, err
	}
	return &Awards{PlayerOfWeek: week, PlayerOfMonth: month}, nil
}

// windowWinner picks the single maximum-points player of the window.
// Ties go to whoever reached their total first (earlier last session), then
// to the lower player id, so the award never depends on iteration order.
func (l *Leaderboard) windowWinner(ctx context.Context, start, end time.Time) (*RankedPlayer, error) {
	sessions, err := l.store.FindSessionsInRange(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to load sessions in window: %w", err)
	}

	entries := foldWindowDetailed(sessions)
	if len(entries) == 0 {
		return nil, nil
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].player.TotalPoints != entries[j].player.TotalPoints {
			return entries[i].player.TotalPoints > entries[j].player.TotalPoints
		}
		if !entries[i].lastEarnedAt.Equal(entries[j].lastEarnedAt) {
			return entries[i].lastEarnedAt.Before(entries[j].lastEarnedAt)
		}
		return entries[i].player.PlayerID.Hex() < entries[j].player.PlayerID.Hex()
	})

	winner := entries[0].player
	winner.Rank = 1
	if photo, err := l.store.FindPlayerPhoto(ctx, winner.PlayerID); err == nil {
		winner.PhotoURL = photo
	}
	return &winner, nil
}

// BestPlayerPerGame returns, for each active game, the top player among
// those with at least MinPlaysForChampion recorded plays of it. Games where
// nobody qualifies are omitted.
func (l *Leaderboard) BestPlayerPerGame(ctx context.Context) ([]GameChampion, error) {
	games, err := l.store.FindAllActiveGames(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load active games: %w", err)
	}
	allStats, err := l.store.FindAllPlayerStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load player stats: %w", err)
	}

	champions := make([]GameChampion, 0, len(games))
	for _, game := range games {
		var best *GameChampion
		for _, ps := range allStats {
			for _, bucket := range ps.GameStats {
				if bucket.GameID != game.ID || bucket.TotalGames < MinPlaysForChampion {
					continue
				}
				candidate := GameChampion{
					GameID:      game.ID,
					GameName:    game.Name,
					PlayerID:    ps.PlayerID,
					PlayerName:  ps.PlayerName,
					TotalPoints: bucket.TotalPoints,
					TotalGames:  bucket.TotalGames,
				}
				if best == nil || championBeats(&candidate, best) {
					c := candidate
					best = &c
				}
			}
		}
		if best != nil {
			champions = append(champions, *best)
		}
	}
	return champions, nil
}

func championBeats(a, b *GameChampion) bool {
	if a.TotalPoints != b.TotalPoints {
		return a.TotalPoints > b.TotalPoints
	}
	if a.TotalGames != b.TotalGames {
		return a.TotalGames > b.TotalGames
	}
	return a.PlayerID.Hex() < b.PlayerID.Hex()
}

type windowEntry struct {
	player       RankedPlayer
	lastEarnedAt time.Time
}

// foldWindow aggregates points, games and wins per player over a slice of
// sessions. Anonymized results (nil playerId) no longer belong to anyone
// and are skipped.
func foldWindow(sessions []models.GameSession) []RankedPlayer {
	detailed := foldWindowDetailed(sessions)
	entries := make([]RankedPlayer, len(detailed))
	for i, e := range detailed {
		entries[i] = e.player
	}
	return entries
}

func foldWindowDetailed(sessions []models.GameSession) []windowEntry {
	byPlayer := make(map[primitive.ObjectID]*windowEntry)
	for i := range sessions {
		session := &sessions[i]
		for j := range session.Results {
			result := &session.Results[j]
			if result.PlayerID == nil {
				continue
			}
			entry, ok := byPlayer[*result.PlayerID]
			if !ok {
				entry = &windowEntry{player: RankedPlayer{PlayerID: *result.PlayerID}}
				byPlayer[*result.PlayerID] = entry
			}
			entry.player.PlayerName = result.PlayerName
			entry.player.TotalPoints += result.PointsEarned
			entry.player.TotalGames++
			if result.Rank == 1 {
				entry.player.Wins++
			}
			if session.PlayedAt.After(entry.lastEarnedAt) {
				entry.lastEarnedAt = session.PlayedAt
			}
		}
	}

	entries := make([]windowEntry, 0, len(byPlayer))
	for _, entry := range byPlayer {
		if entry.player.TotalGames > 0 {
			entry.player.WinRate = float64(entry.player.Wins) / float64(entry.player.TotalGames)
		}
		entries = append(entries, *entry)
	}
	return entries
}

func sortByPointsWinsID(entries []RankedPlayer) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].TotalPoints != entries[j].TotalPoints {
			return entries[i].TotalPoints > entries[j].TotalPoints
		}
		if entries[i].Wins != entries[j].Wins {
			return entries[i].Wins > entries[j].Wins
		}
		return entries[i].PlayerID.Hex() < entries[j].PlayerID.Hex()
	})
}

func rankAndTruncate(entries []RankedPlayer, limit int) []RankedPlayer {
	if limit <= 0 {
		limit = DefaultLeaderboardLimit
	}
	if len(entries) > limit {
		entries = entries[:limit]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}
