package handlers

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"game-night/internal/audit"
	"game-night/internal/cache"
	"game-night/internal/db"
	"game-night/internal/middleware"
	"game-night/internal/stats"
)

type AdminHandler struct {
	db         *db.MongoDB
	aggregator *stats.Aggregator
	cache      *cache.LeaderboardCache
}

func NewAdminHandler(database *db.MongoDB, aggregator *stats.Aggregator, lbCache *cache.LeaderboardCache) *AdminHandler {
	return &AdminHandler{db: database, aggregator: aggregator, cache: lbCache}
}

type RecalculateResponse struct {
	PlayersProcessed int      `json:"playersProcessed"`
	Errors           []string `json:"errors,omitempty"`
}

// RecalculateStats rebuilds every player's stats document from the full
// session history. Safe to run any time: recomputes are idempotent.
func (h *AdminHandler) RecalculateStats(w http.ResponseWriter, r *http.Request) {
	// Full rebuilds walk every session; give them room
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	started := time.Now()
	processed, errs := h.aggregator.RecalculateAll(ctx)
	log.Printf("[Admin] Stats rebuild: %d players in %s (%d errors)", processed, time.Since(started).Round(time.Millisecond), len(errs))

	h.cache.Invalidate(ctx)

	if user, ok := middleware.GetUserFromContext(r.Context()); ok {
		audit.LogEvent(h.db, audit.EventStatsRebuild, &user.ID, user.Email, r,
			fmt.Sprintf("%d players, %d errors", processed, len(errs)))
	}

	resp := RecalculateResponse{PlayersProcessed: processed}
	for _, err := range errs {
		resp.Errors = append(resp.Errors, err.Error())
	}

	status := http.StatusOK
	if len(errs) > 0 {
		status = http.StatusMultiStatus
	}
	respondWithJSON(w, status, resp)
}
