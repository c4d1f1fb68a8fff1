package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"game-night/internal/calendar"
	"game-night/internal/db"
	"game-night/internal/middleware"
	"game-night/internal/models"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type EventHandler struct {
	db       *db.MongoDB
	clubName string
}

func NewEventHandler(database *db.MongoDB, clubName string) *EventHandler {
	if clubName == "" {
		clubName = "Game Night"
	}
	return &EventHandler{db: database, clubName: clubName}
}

type CreateEventRequest struct {
	Title       string     `json:"title"`
	Location    string     `json:"location,omitempty"`
	Description string     `json:"description,omitempty"`
	StartsAt    time.Time  `json:"startsAt"`
	EndsAt      *time.Time `json:"endsAt,omitempty"` // defaults to startsAt + 3h
	GameIDs     []string   `json:"gameIds,omitempty"`
}

// CreateEvent schedules an upcoming game night.
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var req CreateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Title == "" {
		respondWithError(w, http.StatusBadRequest, "Event title is required")
		return
	}
	if req.StartsAt.IsZero() {
		respondWithError(w, http.StatusBadRequest, "Event start time is required")
		return
	}

	endsAt := req.StartsAt.Add(3 * time.Hour)
	if req.EndsAt != nil {
		endsAt = *req.EndsAt
	}
	if !endsAt.After(req.StartsAt) {
		respondWithError(w, http.StatusBadRequest, "Event must end after it starts")
		return
	}

	gameIDs := make([]primitive.ObjectID, 0, len(req.GameIDs))
	for _, hex := range req.GameIDs {
		gameID, err := primitive.ObjectIDFromHex(hex)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid game ID in gameIds")
			return
		}
		gameIDs = append(gameIDs, gameID)
	}

	now := time.Now()
	event := models.ScheduledEvent{
		ID:          primitive.NewObjectID(),
		UID:         calendar.NewEventUID(),
		Title:       req.Title,
		Location:    req.Location,
		Description: req.Description,
		StartsAt:    req.StartsAt,
		EndsAt:      endsAt,
		GameIDs:     gameIDs,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if user, ok := middleware.GetUserFromContext(r.Context()); ok {
		event.CreatedBy = &user.ID
	}

	if _, err := h.db.Events().InsertOne(ctx, event); err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to create event")
		return
	}

	respondWithJSON(w, http.StatusCreated, event)
}

// ListEvents returns upcoming events by default; ?past=true includes
// everything.
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	filter := bson.M{"endsAt": bson.M{"$gte": time.Now()}}
	if r.URL.Query().Get("past") == "true" {
		filter = bson.M{}
	}

	opts := options.Find().SetSort(bson.D{{Key: "startsAt", Value: 1}})
	cursor, err := h.db.Events().Find(ctx, filter, opts)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load events")
		return
	}
	defer cursor.Close(ctx)

	events := []models.ScheduledEvent{}
	if err := cursor.All(ctx, &events); err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to decode events")
		return
	}

	respondWithJSON(w, http.StatusOK, events)
}

// DeleteEvent cancels a scheduled event.
func (h *EventHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	eventID, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid event ID")
		return
	}

	result, err := h.db.Events().DeleteOne(ctx, bson.M{"_id": eventID})
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to delete event")
		return
	}
	if result.DeletedCount == 0 {
		respondWithError(w, http.StatusNotFound, "Event not found")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Event deleted"})
}

// GetCalendar serves the club schedule as an iCalendar feed that members
// can subscribe to from their calendar app.
func (h *EventHandler) GetCalendar(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	// Include recent past events so calendars keep a bit of history
	since := time.Now().AddDate(0, -3, 0)
	opts := options.Find().SetSort(bson.D{{Key: "startsAt", Value: 1}})
	cursor, err := h.db.Events().Find(ctx, bson.M{"endsAt": bson.M{"$gte": since}}, opts)
	if err != nil {
		http.Error(w, "Failed to load events", http.StatusInternalServerError)
		return
	}
	defer cursor.Close(ctx)

	var events []models.ScheduledEvent
	if err := cursor.All(ctx, &events); err != nil {
		http.Error(w, "Failed to decode events", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename=\"game-night.ics\"")
	w.Write(calendar.BuildCalendar(h.clubName, events))
}
