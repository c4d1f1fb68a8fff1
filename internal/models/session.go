package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PlayerResult is a single player's placement as submitted by the caller,
// before any points are assigned. Rank 1 is best; multiple players may share
// a rank (competition ranking, so two players tied at 2nd push the next
// player to rank 4).
type PlayerResult struct {
	PlayerID *primitive.ObjectID `json:"playerId" bson:"playerId"`
	Rank     int                 `json:"rank" bson:"rank"`
}

// ScoredResult is a PlayerResult after scoring, as persisted on the session.
// PlayerID becomes nil when the player is later deleted (anonymization); the
// name and points stay so historic sessions remain intact.
type ScoredResult struct {
	PlayerID     *primitive.ObjectID `json:"playerId" bson:"playerId"`
	PlayerName   string              `json:"playerName" bson:"playerName"`
	Rank         int                 `json:"rank" bson:"rank"`
	PointsEarned float64             `json:"pointsEarned" bson:"pointsEarned"`
}

// GameSession is the immutable record of one play. The scoring mode and
// points rate are snapshots of the game definition at recording time.
// Sessions are never mutated after insert, except setting a deleted
// player's playerId to null.
type GameSession struct {
	ID              primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	GameID          primitive.ObjectID  `json:"gameId" bson:"gameId"`
	GameName        string              `json:"gameName" bson:"gameName"`
	ScoringMode     ScoringMode         `json:"scoringMode" bson:"scoringMode"`
	PointsPerPlayer int                 `json:"pointsPerPlayer" bson:"pointsPerPlayer"`
	PlayerCount     int                 `json:"playerCount" bson:"playerCount"` // seated players; may exceed len(Results) for winner-takes-all
	PlayedAt        time.Time           `json:"playedAt" bson:"playedAt"`
	Results         []ScoredResult      `json:"results" bson:"results"`
	TotalPointsPool int                 `json:"totalPointsPool" bson:"totalPointsPool"`
	RecordedBy      *primitive.ObjectID `json:"recordedBy,omitempty" bson:"recordedBy,omitempty"`
	CreatedAt       time.Time           `json:"createdAt" bson:"createdAt"`
}

// ResultFor returns the scored result for the given player, or nil if the
// player did not take part in the session.
func (s *GameSession) ResultFor(playerID primitive.ObjectID) *ScoredResult {
	for i := range s.Results {
		if s.Results[i].PlayerID != nil && *s.Results[i].PlayerID == playerID {
			return &s.Results[i]
		}
	}
	return nil
}
