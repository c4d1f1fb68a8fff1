package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"game-night/internal/catalog"
	"game-night/internal/db"
	"game-night/internal/models"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type GameHandler struct {
	db      *db.MongoDB
	catalog *catalog.Client
}

func NewGameHandler(database *db.MongoDB, catalogClient *catalog.Client) *GameHandler {
	return &GameHandler{db: database, catalog: catalogClient}
}

type CreateGameRequest struct {
	Name            string             `json:"name"`
	BGGID           int                `json:"bggId,omitempty"`
	ScoringMode     models.ScoringMode `json:"scoringMode"`
	PointsPerPlayer int                `json:"pointsPerPlayer,omitempty"`
	MinPlayers      int                `json:"minPlayers,omitempty"`
	MaxPlayers      int                `json:"maxPlayers,omitempty"`
	ThumbnailURL    string             `json:"thumbnailUrl,omitempty"`
}

type UpdateGameRequest struct {
	Name            *string             `json:"name,omitempty"`
	ScoringMode     *models.ScoringMode `json:"scoringMode,omitempty"`
	PointsPerPlayer *int                `json:"pointsPerPlayer,omitempty"`
	MinPlayers      *int                `json:"minPlayers,omitempty"`
	MaxPlayers      *int                `json:"maxPlayers,omitempty"`
	ThumbnailURL    *string             `json:"thumbnailUrl,omitempty"`
	IsActive        *bool               `json:"isActive,omitempty"`
}

// CreateGame adds a game definition to the club library. If a BGG ID is
// given and the catalog is reachable, missing fields are pre-filled from it.
func (h *GameHandler) CreateGame(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var req CreateGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if !req.ScoringMode.IsValid() {
		respondWithError(w, http.StatusBadRequest, "scoringMode must be \"pointing\" or \"winner-takes-all\"")
		return
	}

	// Pre-fill from the catalog when a BGG ID is supplied
	if req.BGGID > 0 && h.catalog != nil {
		if details, err := h.catalog.Lookup(ctx, req.BGGID); err == nil {
			if req.Name == "" {
				req.Name = details.Name
			}
			if req.ThumbnailURL == "" {
				req.ThumbnailURL = details.ThumbnailURL
			}
			if req.MinPlayers == 0 {
				req.MinPlayers = details.MinPlayers
			}
			if req.MaxPlayers == 0 {
				req.MaxPlayers = details.MaxPlayers
			}
		}
	}

	if req.Name == "" {
		respondWithError(w, http.StatusBadRequest, "Game name is required")
		return
	}
	if req.PointsPerPlayer == 0 {
		req.PointsPerPlayer = models.DefaultPointsPerPlayer
	}
	if req.PointsPerPlayer < 1 {
		respondWithError(w, http.StatusBadRequest, "pointsPerPlayer must be positive")
		return
	}
	if req.MinPlayers == 0 {
		req.MinPlayers = models.DefaultMinPlayers
	}
	if req.MaxPlayers == 0 {
		req.MaxPlayers = models.DefaultMaxPlayers
	}
	if req.MinPlayers < 1 || req.MaxPlayers < req.MinPlayers {
		respondWithError(w, http.StatusBadRequest, "Invalid player count range")
		return
	}

	// Keep names unique in the library
	var existing models.GameDefinition
	if err := h.db.Games().FindOne(ctx, bson.M{"name": req.Name}).Decode(&existing); err == nil {
		respondWithError(w, http.StatusConflict, "A game with this name already exists")
		return
	}

	now := time.Now()
	game := models.GameDefinition{
		ID:              primitive.NewObjectID(),
		Name:            req.Name,
		BGGID:           req.BGGID,
		ScoringMode:     req.ScoringMode,
		PointsPerPlayer: req.PointsPerPlayer,
		MinPlayers:      req.MinPlayers,
		MaxPlayers:      req.MaxPlayers,
		ThumbnailURL:    req.ThumbnailURL,
		IsActive:        true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if _, err := h.db.Games().InsertOne(ctx, game); err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to create game")
		return
	}

	respondWithJSON(w, http.StatusCreated, game)
}

// ListGames returns the library, active games only unless ?all=true.
func (h *GameHandler) ListGames(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	filter := bson.M{"isActive": true}
	if r.URL.Query().Get("all") == "true" {
		filter = bson.M{}
	}

	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	cursor, err := h.db.Games().Find(ctx, filter, opts)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load games")
		return
	}
	defer cursor.Close(ctx)

	games := []models.GameDefinition{}
	if err := cursor.All(ctx, &games); err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to decode games")
		return
	}

	respondWithJSON(w, http.StatusOK, games)
}

// GetGame returns one game definition.
func (h *GameHandler) GetGame(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	gameID, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid game ID")
		return
	}

	var game models.GameDefinition
	if err := h.db.Games().FindOne(ctx, bson.M{"_id": gameID}).Decode(&game); err != nil {
		respondWithError(w, http.StatusNotFound, "Game not found")
		return
	}

	respondWithJSON(w, http.StatusOK, game)
}

// UpdateGame edits a game definition. Existing sessions carry their own
// snapshot of the scoring mode and rate, so history is unaffected.
func (h *GameHandler) UpdateGame(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	gameID, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid game ID")
		return
	}

	var req UpdateGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	set := bson.M{"updatedAt": time.Now()}
	if req.Name != nil {
		if *req.Name == "" {
			respondWithError(w, http.StatusBadRequest, "Game name cannot be empty")
			return
		}
		set["name"] = *req.Name
	}
	if req.ScoringMode != nil {
		if !req.ScoringMode.IsValid() {
			respondWithError(w, http.StatusBadRequest, "Unrecognized scoring mode")
			return
		}
		set["scoringMode"] = *req.ScoringMode
	}
	if req.PointsPerPlayer != nil {
		if *req.PointsPerPlayer < 1 {
			respondWithError(w, http.StatusBadRequest, "pointsPerPlayer must be positive")
			return
		}
		set["pointsPerPlayer"] = *req.PointsPerPlayer
	}
	if req.MinPlayers != nil {
		set["minPlayers"] = *req.MinPlayers
	}
	if req.MaxPlayers != nil {
		set["maxPlayers"] = *req.MaxPlayers
	}
	if req.ThumbnailURL != nil {
		set["thumbnailUrl"] = *req.ThumbnailURL
	}
	if req.IsActive != nil {
		set["isActive"] = *req.IsActive
	}

	result, err := h.db.Games().UpdateOne(ctx, bson.M{"_id": gameID}, bson.M{"$set": set})
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to update game")
		return
	}
	if result.MatchedCount == 0 {
		respondWithError(w, http.StatusNotFound, "Game not found")
		return
	}

	var game models.GameDefinition
	if err := h.db.Games().FindOne(ctx, bson.M{"_id": gameID}).Decode(&game); err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load updated game")
		return
	}

	respondWithJSON(w, http.StatusOK, game)
}

// RetireGame marks a game inactive. Sessions already recorded against it
// stay in history; new ones are rejected.
func (h *GameHandler) RetireGame(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	gameID, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid game ID")
		return
	}

	result, err := h.db.Games().UpdateOne(ctx, bson.M{"_id": gameID}, bson.M{
		"$set": bson.M{"isActive": false, "updatedAt": time.Now()},
	})
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to retire game")
		return
	}
	if result.MatchedCount == 0 {
		respondWithError(w, http.StatusNotFound, "Game not found")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Game retired"})
}

// SearchCatalog proxies a BoardGameGeek search so the frontend never
// talks to BGG directly.
func (h *GameHandler) SearchCatalog(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	query := r.URL.Query().Get("q")
	if query == "" {
		respondWithError(w, http.StatusBadRequest, "Query parameter q is required")
		return
	}
	if h.catalog == nil {
		respondWithError(w, http.StatusServiceUnavailable, "Catalog is not configured")
		return
	}

	results, err := h.catalog.Search(ctx, query)
	if err != nil {
		respondWithError(w, http.StatusBadGateway, "Catalog search failed")
		return
	}

	respondWithJSON(w, http.StatusOK, results)
}

// LookupCatalog returns details for one catalog entry.
func (h *GameHandler) LookupCatalog(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	bggID, err := strconv.Atoi(mux.Vars(r)["bggId"])
	if err != nil || bggID < 1 {
		respondWithError(w, http.StatusBadRequest, "Invalid catalog ID")
		return
	}
	if h.catalog == nil {
		respondWithError(w, http.StatusServiceUnavailable, "Catalog is not configured")
		return
	}

	details, err := h.catalog.Lookup(ctx, bggID)
	if err != nil {
		respondWithError(w, http.StatusBadGateway, "Catalog lookup failed")
		return
	}

	respondWithJSON(w, http.StatusOK, details)
}
