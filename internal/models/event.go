package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ScheduledEvent is an upcoming game night. Events are planning data only;
// they never affect scoring or stats. They feed the club's iCalendar export.
type ScheduledEvent struct {
	ID          primitive.ObjectID   `json:"id" bson:"_id,omitempty"`
	UID         string               `json:"uid" bson:"uid"` // stable iCalendar UID
	Title       string               `json:"title" bson:"title"`
	Location    string               `json:"location,omitempty" bson:"location,omitempty"`
	Description string               `json:"description,omitempty" bson:"description,omitempty"`
	StartsAt    time.Time            `json:"startsAt" bson:"startsAt"`
	EndsAt      time.Time            `json:"endsAt" bson:"endsAt"`
	GameIDs     []primitive.ObjectID `json:"gameIds,omitempty" bson:"gameIds,omitempty"`
	CreatedBy   *primitive.ObjectID  `json:"createdBy,omitempty" bson:"createdBy,omitempty"`
	CreatedAt   time.Time            `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time            `json:"updatedAt" bson:"updatedAt"`
}
