package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ScoringMode is the point-allocation policy for a game.
type ScoringMode string

const (
	// ScoringModePointing distributes a shared pool across every finishing
	// position, best rank earning the largest share.
	ScoringModePointing ScoringMode = "pointing"
	// ScoringModeWinnerTakesAll awards the entire pool to first place.
	ScoringModeWinnerTakesAll ScoringMode = "winner-takes-all"
)

// IsValid reports whether the mode is one of the known scoring modes.
func (m ScoringMode) IsValid() bool {
	return m == ScoringModePointing || m == ScoringModeWinnerTakesAll
}

// GameDefinition describes a game the club plays. Sessions snapshot the
// scoring mode and points rate at creation time, so editing a definition
// never rewrites history.
type GameDefinition struct {
	ID              primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name            string             `json:"name" bson:"name"`
	BGGID           int                `json:"bggId,omitempty" bson:"bggId,omitempty"` // BoardGameGeek catalog id
	ScoringMode     ScoringMode        `json:"scoringMode" bson:"scoringMode"`
	PointsPerPlayer int                `json:"pointsPerPlayer" bson:"pointsPerPlayer"`
	MinPlayers      int                `json:"minPlayers" bson:"minPlayers"`
	MaxPlayers      int                `json:"maxPlayers" bson:"maxPlayers"`
	ThumbnailURL    string             `json:"thumbnailUrl,omitempty" bson:"thumbnailUrl,omitempty"`
	IsActive        bool               `json:"isActive" bson:"isActive"`
	CreatedAt       time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt       time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// Default values
const (
	DefaultPointsPerPlayer = 5
	DefaultMinPlayers      = 2
	DefaultMaxPlayers      = 8
)
