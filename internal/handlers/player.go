package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"game-night/internal/audit"
	"game-night/internal/db"
	"game-night/internal/middleware"
	"game-night/internal/models"
	"game-night/internal/stats"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type PlayerHandler struct {
	db    *db.MongoDB
	store stats.Store
}

func NewPlayerHandler(database *db.MongoDB, store stats.Store) *PlayerHandler {
	return &PlayerHandler{db: database, store: store}
}

type CreatePlayerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email,omitempty"`
	PhotoURL string `json:"photoUrl,omitempty"`
}

type UpdatePlayerRequest struct {
	Name     *string `json:"name,omitempty"`
	Email    *string `json:"email,omitempty"`
	PhotoURL *string `json:"photoUrl,omitempty"`
	IsActive *bool   `json:"isActive,omitempty"`
}

// CreatePlayer adds a member to the club roster.
func (h *PlayerHandler) CreatePlayer(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var req CreatePlayerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Name == "" {
		respondWithError(w, http.StatusBadRequest, "Player name is required")
		return
	}

	var existing models.Player
	if err := h.db.Players().FindOne(ctx, bson.M{"name": req.Name}).Decode(&existing); err == nil {
		respondWithError(w, http.StatusConflict, "A player with this name already exists")
		return
	}

	now := time.Now()
	player := models.Player{
		ID:        primitive.NewObjectID(),
		Name:      req.Name,
		Email:     req.Email,
		PhotoURL:  req.PhotoURL,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := h.db.Players().InsertOne(ctx, player); err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to create player")
		return
	}

	respondWithJSON(w, http.StatusCreated, player)
}

// ListPlayers returns the roster, active members only unless ?all=true.
func (h *PlayerHandler) ListPlayers(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	filter := bson.M{"isActive": true}
	if r.URL.Query().Get("all") == "true" {
		filter = bson.M{}
	}

	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	cursor, err := h.db.Players().Find(ctx, filter, opts)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load players")
		return
	}
	defer cursor.Close(ctx)

	players := []models.Player{}
	if err := cursor.All(ctx, &players); err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to decode players")
		return
	}

	respondWithJSON(w, http.StatusOK, players)
}

// GetPlayer returns one roster entry.
func (h *PlayerHandler) GetPlayer(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	playerID, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid player ID")
		return
	}

	var player models.Player
	if err := h.db.Players().FindOne(ctx, bson.M{"_id": playerID}).Decode(&player); err != nil {
		respondWithError(w, http.StatusNotFound, "Player not found")
		return
	}

	respondWithJSON(w, http.StatusOK, player)
}

// GetPlayerStats returns the materialized stats document for a player.
// A player with no recorded sessions gets an empty aggregate, not a 404.
func (h *PlayerHandler) GetPlayerStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	playerID, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid player ID")
		return
	}

	var player models.Player
	if err := h.db.Players().FindOne(ctx, bson.M{"_id": playerID}).Decode(&player); err != nil {
		respondWithError(w, http.StatusNotFound, "Player not found")
		return
	}

	var playerStats models.PlayerStats
	err = h.db.PlayerStats().FindOne(ctx, bson.M{"_id": playerID}).Decode(&playerStats)
	if err == mongo.ErrNoDocuments {
		playerStats = models.PlayerStats{
			PlayerID:   playerID,
			PlayerName: player.Name,
			GameStats:  []models.GameStats{},
		}
	} else if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load stats")
		return
	}

	respondWithJSON(w, http.StatusOK, playerStats)
}

// UpdatePlayer edits a roster entry.
func (h *PlayerHandler) UpdatePlayer(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	playerID, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid player ID")
		return
	}

	var req UpdatePlayerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	set := bson.M{"updatedAt": time.Now()}
	if req.Name != nil {
		if *req.Name == "" {
			respondWithError(w, http.StatusBadRequest, "Player name cannot be empty")
			return
		}
		set["name"] = *req.Name
	}
	if req.Email != nil {
		set["email"] = *req.Email
	}
	if req.PhotoURL != nil {
		set["photoUrl"] = *req.PhotoURL
	}
	if req.IsActive != nil {
		set["isActive"] = *req.IsActive
	}

	result, err := h.db.Players().UpdateOne(ctx, bson.M{"_id": playerID}, bson.M{"$set": set})
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to update player")
		return
	}
	if result.MatchedCount == 0 {
		respondWithError(w, http.StatusNotFound, "Player not found")
		return
	}

	var player models.Player
	if err := h.db.Players().FindOne(ctx, bson.M{"_id": playerID}).Decode(&player); err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load updated player")
		return
	}

	respondWithJSON(w, http.StatusOK, player)
}

// DeletePlayer removes a member from the roster. Their session history is
// kept but anonymized: every result referencing them has its playerId set
// to null, names and points staying intact so past sessions still add up.
// The stats document is deleted outright since a departed player should
// not appear on leaderboards.
func (h *PlayerHandler) DeletePlayer(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	playerID, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid player ID")
		return
	}

	var player models.Player
	if err := h.db.Players().FindOne(ctx, bson.M{"_id": playerID}).Decode(&player); err != nil {
		respondWithError(w, http.StatusNotFound, "Player not found")
		return
	}

	// Null out every result slot referencing this player across all sessions
	_, err = h.db.Sessions().UpdateMany(ctx,
		bson.M{"results.playerId": playerID},
		bson.M{"$set": bson.M{"results.$[slot].playerId": nil}},
		options.Update().SetArrayFilters(options.ArrayFilters{
			Filters: []interface{}{bson.M{"slot.playerId": playerID}},
		}),
	)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to anonymize sessions")
		return
	}

	if err := h.store.DeletePlayerStats(ctx, playerID); err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to delete player stats")
		return
	}

	if _, err := h.db.Players().DeleteOne(ctx, bson.M{"_id": playerID}); err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to delete player")
		return
	}

	if user, ok := middleware.GetUserFromContext(r.Context()); ok {
		audit.LogEvent(h.db, audit.EventPlayerDeleted, &user.ID, user.Email, r,
			fmt.Sprintf("player %s (%s)", playerID.Hex(), player.Name))
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Player deleted, session history anonymized"})
}
