package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"game-night/internal/audit"
	"game-night/internal/db"
	"game-night/internal/eventbus"
	"game-night/internal/middleware"
	"game-night/internal/models"
	"game-night/internal/scoring"
	"game-night/internal/stats"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const defaultSessionListLimit = 50

// Notifier abstracts the optional session-summary email service so the
// handler works when email is not configured.
type Notifier interface {
	SendSessionSummary(to, displayName string, session *models.GameSession) error
}

type SessionHandler struct {
	db         *db.MongoDB
	recomputer *stats.Recomputer
	bus        *eventbus.EventBus
	notifier   Notifier // nil when email is disabled
}

func NewSessionHandler(database *db.MongoDB, recomputer *stats.Recomputer, bus *eventbus.EventBus, notifier Notifier) *SessionHandler {
	return &SessionHandler{
		db:         database,
		recomputer: recomputer,
		bus:        bus,
		notifier:   notifier,
	}
}

type RecordSessionRequest struct {
	GameID      string                `json:"gameId"`
	PlayedAt    *time.Time            `json:"playedAt,omitempty"`    // defaults to now
	PlayerCount *int                  `json:"playerCount,omitempty"` // defaults to len(results)
	Results     []models.PlayerResult `json:"results"`
	NotifyEmail string                `json:"notifyEmail,omitempty"` // optional summary recipient
}

// RecordSession scores and persists one play. The game's scoring mode and
// points rate are snapshotted onto the session, so later edits to the game
// definition never change what was recorded here.
func (h *SessionHandler) RecordSession(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var req RecordSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	gameID, err := primitive.ObjectIDFromHex(req.GameID)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid game ID")
		return
	}

	var game models.GameDefinition
	if err := h.db.Games().FindOne(ctx, bson.M{"_id": gameID}).Decode(&game); err != nil {
		respondWithError(w, http.StatusNotFound, "Game not found")
		return
	}
	if !game.IsActive {
		respondWithError(w, http.StatusBadRequest, "Game is retired")
		return
	}

	playerCount := len(req.Results)
	if req.PlayerCount != nil {
		playerCount = *req.PlayerCount
	}
	if playerCount < len(req.Results) {
		respondWithError(w, http.StatusBadRequest, "playerCount cannot be less than the number of results")
		return
	}
	if playerCount < game.MinPlayers || playerCount > game.MaxPlayers {
		respondWithError(w, http.StatusBadRequest,
			fmt.Sprintf("%s seats %d-%d players", game.Name, game.MinPlayers, game.MaxPlayers))
		return
	}

	// Validate the ranking shape for the game's scoring mode
	switch game.ScoringMode {
	case models.ScoringModePointing:
		// Pointing sessions rank everyone at the table
		if playerCount != len(req.Results) {
			respondWithError(w, http.StatusBadRequest, "Pointing sessions need a result for every seated player")
			return
		}
		if err := scoring.ValidateRankings(req.Results); err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
	case models.ScoringModeWinnerTakesAll:
		if err := scoring.ValidateWinnerResults(req.Results); err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
	default:
		respondWithError(w, http.StatusInternalServerError, "Game has an unrecognized scoring mode")
		return
	}

	// Resolve each referenced player against the roster, rejecting
	// duplicates and unknown IDs, and snapshot their names
	seen := make(map[primitive.ObjectID]bool, len(req.Results))
	unscored := make([]models.ScoredResult, 0, len(req.Results))
	for _, res := range req.Results {
		if res.PlayerID == nil {
			respondWithError(w, http.StatusBadRequest, "Every result needs a playerId")
			return
		}
		if seen[*res.PlayerID] {
			respondWithError(w, http.StatusBadRequest, "A player appears in the results twice")
			return
		}
		seen[*res.PlayerID] = true

		var player models.Player
		if err := h.db.Players().FindOne(ctx, bson.M{"_id": *res.PlayerID}).Decode(&player); err != nil {
			respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Player %s is not on the roster", res.PlayerID.Hex()))
			return
		}
		unscored = append(unscored, models.ScoredResult{
			PlayerID:   res.PlayerID,
			PlayerName: player.Name,
			Rank:       res.Rank,
		})
	}

	scored, err := scoring.CalculateScores(game.ScoringMode, playerCount, game.PointsPerPlayer, unscored)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	playedAt := time.Now().UTC()
	if req.PlayedAt != nil {
		playedAt = req.PlayedAt.UTC()
	}

	session := models.GameSession{
		ID:              primitive.NewObjectID(),
		GameID:          game.ID,
		GameName:        game.Name,
		ScoringMode:     game.ScoringMode,
		PointsPerPlayer: game.PointsPerPlayer,
		PlayerCount:     playerCount,
		PlayedAt:        playedAt,
		Results:         scored,
		TotalPointsPool: scoring.GetTotalPointsPool(playerCount, game.PointsPerPlayer),
		CreatedAt:       time.Now().UTC(),
	}
	if user, ok := middleware.GetUserFromContext(r.Context()); ok {
		session.RecordedBy = &user.ID
	}

	if _, err := h.db.Sessions().InsertOne(ctx, session); err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to record session")
		return
	}

	// Stats catch up asynchronously; the session itself is already durable
	h.recomputer.EnqueueSession(&session)

	if payload := MarshalSessionRecorded(&session); payload != nil {
		h.bus.Publish(eventbus.EventSessionRecorded, payload)
	}

	if user, ok := middleware.GetUserFromContext(r.Context()); ok {
		audit.LogEvent(h.db, audit.EventSessionRecorded, &user.ID, user.Email, r,
			fmt.Sprintf("session %s (%s)", session.ID.Hex(), session.GameName))
	}

	if h.notifier != nil && req.NotifyEmail != "" {
		go func(to string, s models.GameSession) {
			if err := h.notifier.SendSessionSummary(to, to, &s); err != nil {
				log.Printf("Failed to send session summary to %s: %v", to, err)
			}
		}(req.NotifyEmail, session)
	}

	respondWithJSON(w, http.StatusCreated, session)
}

// ListSessions returns recent sessions, newest first. Supports optional
// gameId and playerId filters.
func (h *SessionHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	filter := bson.M{}
	if gameIDHex := r.URL.Query().Get("gameId"); gameIDHex != "" {
		gameID, err := primitive.ObjectIDFromHex(gameIDHex)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid game ID")
			return
		}
		filter["gameId"] = gameID
	}
	if playerIDHex := r.URL.Query().Get("playerId"); playerIDHex != "" {
		playerID, err := primitive.ObjectIDFromHex(playerIDHex)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid player ID")
			return
		}
		filter["results.playerId"] = playerID
	}

	limit := defaultSessionListLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if n, err := strconv.Atoi(limitStr); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "playedAt", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := h.db.Sessions().Find(ctx, filter, opts)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load sessions")
		return
	}
	defer cursor.Close(ctx)

	sessions := []models.GameSession{}
	if err := cursor.All(ctx, &sessions); err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to decode sessions")
		return
	}

	respondWithJSON(w, http.StatusOK, sessions)
}

// GetSession returns one session by ID.
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	sessionID, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid session ID")
		return
	}

	var session models.GameSession
	if err := h.db.Sessions().FindOne(ctx, bson.M{"_id": sessionID}).Decode(&session); err != nil {
		respondWithError(w, http.StatusNotFound, "Session not found")
		return
	}

	respondWithJSON(w, http.StatusOK, session)
}

// DeleteSession removes a mis-recorded session and queues stat rebuilds
// for everyone who appeared in it. Admin only.
func (h *SessionHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	sessionID, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid session ID")
		return
	}

	var session models.GameSession
	if err := h.db.Sessions().FindOne(ctx, bson.M{"_id": sessionID}).Decode(&session); err != nil {
		respondWithError(w, http.StatusNotFound, "Session not found")
		return
	}

	if _, err := h.db.Sessions().DeleteOne(ctx, bson.M{"_id": sessionID}); err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to delete session")
		return
	}

	h.recomputer.EnqueueSession(&session)

	if user, ok := middleware.GetUserFromContext(r.Context()); ok {
		audit.LogEvent(h.db, audit.EventSessionDeleted, &user.ID, user.Email, r,
			fmt.Sprintf("session %s (%s)", session.ID.Hex(), session.GameName))
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Session deleted"})
}
