package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Player is a member of the club roster. Players are referenced from session
// results; deleting a player anonymizes those references instead of removing
// the sessions.
type Player struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name      string             `json:"name" bson:"name"`
	Email     string             `json:"email,omitempty" bson:"email,omitempty"`
	PhotoURL  string             `json:"photoUrl,omitempty" bson:"photoUrl,omitempty"`
	IsActive  bool               `json:"isActive" bson:"isActive"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// OverallStats is a player's all-time aggregate across every game.
type OverallStats struct {
	TotalGames    int     `json:"totalGames" bson:"totalGames"`
	Wins          int     `json:"wins" bson:"wins"`
	WinRate       float64 `json:"winRate" bson:"winRate"`
	TotalPoints   float64 `json:"totalPoints" bson:"totalPoints"`
	AveragePoints float64 `json:"averagePoints" bson:"averagePoints"`
}

// GameStats is the per-game bucket inside PlayerStats.
type GameStats struct {
	GameID      primitive.ObjectID `json:"gameId" bson:"gameId"`
	GameName    string             `json:"gameName" bson:"gameName"`
	TotalGames  int                `json:"totalGames" bson:"totalGames"`
	Wins        int                `json:"wins" bson:"wins"`
	WinRate     float64            `json:"winRate" bson:"winRate"`
	TotalPoints float64            `json:"totalPoints" bson:"totalPoints"`
}

// PlayerStats is the derived aggregate of one player's full session history.
// It is a materialized view, never a source of truth: every recompute fully
// overwrites the stored document, and it can be rebuilt at any time from the
// sessions that reference the player.
type PlayerStats struct {
	PlayerID   primitive.ObjectID `json:"playerId" bson:"_id"`
	PlayerName string             `json:"playerName" bson:"playerName"`
	Overall    OverallStats       `json:"overall" bson:"overall"`
	GameStats  []GameStats        `json:"gameStats" bson:"gameStats"`
	UpdatedAt  time.Time          `json:"updatedAt" bson:"updatedAt"`
}
