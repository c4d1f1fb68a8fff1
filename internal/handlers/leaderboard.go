package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"game-night/internal/cache"
	"game-night/internal/stats"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type LeaderboardHandler struct {
	leaderboard *stats.Leaderboard
	cache       *cache.LeaderboardCache
}

func NewLeaderboardHandler(leaderboard *stats.Leaderboard, lbCache *cache.LeaderboardCache) *LeaderboardHandler {
	return &LeaderboardHandler{leaderboard: leaderboard, cache: lbCache}
}

func parseLimit(r *http.Request) int {
	limit := stats.DefaultLeaderboardLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if n, err := strconv.Atoi(limitStr); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	return limit
}

// GetOverall returns the all-time standings. This is the club's front
// page, so results are served from Redis when possible.
func (h *LeaderboardHandler) GetOverall(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	limit := parseLimit(r)

	if entries := h.cache.GetOverall(ctx, limit); entries != nil {
		respondWithJSON(w, http.StatusOK, entries)
		return
	}

	entries, err := h.leaderboard.Overall(ctx, limit)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to build leaderboard")
		return
	}

	h.cache.SetOverall(ctx, limit, entries)
	respondWithJSON(w, http.StatusOK, entries)
}

// GetForGame returns the standings for one game, optionally restricted
// to sessions with a given seat count (?playerCount=4).
func (h *LeaderboardHandler) GetForGame(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	gameID, err := primitive.ObjectIDFromHex(mux.Vars(r)["gameId"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid game ID")
		return
	}

	playerCount := 0
	if pcStr := r.URL.Query().Get("playerCount"); pcStr != "" {
		playerCount, err = strconv.Atoi(pcStr)
		if err != nil || playerCount < 1 {
			respondWithError(w, http.StatusBadRequest, "Invalid playerCount")
			return
		}
	}

	entries, err := h.leaderboard.ForGame(ctx, gameID, playerCount, parseLimit(r))
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to build leaderboard")
		return
	}

	respondWithJSON(w, http.StatusOK, entries)
}

// GetMonthly returns the standings for a calendar month, defaulting to
// the current one.
func (h *LeaderboardHandler) GetMonthly(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	now := time.Now().UTC()
	year := now.Year()
	month := now.Month()

	if yearStr := r.URL.Query().Get("year"); yearStr != "" {
		y, err := strconv.Atoi(yearStr)
		if err != nil || y < 2000 || y > 2200 {
			respondWithError(w, http.StatusBadRequest, "Invalid year")
			return
		}
		year = y
	}
	if monthStr := r.URL.Query().Get("month"); monthStr != "" {
		m, err := strconv.Atoi(monthStr)
		if err != nil || m < 1 || m > 12 {
			respondWithError(w, http.StatusBadRequest, "Invalid month")
			return
		}
		month = time.Month(m)
	}

	entries, err := h.leaderboard.Monthly(ctx, month, year, parseLimit(r))
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to build leaderboard")
		return
	}

	respondWithJSON(w, http.StatusOK, entries)
}

// GetAwards returns the rolling 7-day and 30-day top scorers.
func (h *LeaderboardHandler) GetAwards(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	awards, err := h.leaderboard.GetAwards(ctx)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to compute awards")
		return
	}

	respondWithJSON(w, http.StatusOK, awards)
}

// GetChampions returns the best player of each active game.
func (h *LeaderboardHandler) GetChampions(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	champions, err := h.leaderboard.BestPlayerPerGame(ctx)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to compute champions")
		return
	}

	respondWithJSON(w, http.StatusOK, champions)
}
