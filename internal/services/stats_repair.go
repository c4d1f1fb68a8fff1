package services

import (
	"context"
	"log"
	"os"
	"time"

	"game-night/internal/db"
	"game-night/internal/stats"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// StatsRepairService periodically rebuilds every player's stats document
// from session history. The recompute queue handles the common path; this
// job catches drift from dropped queue entries, crashed workers, or
// manual database edits. Stats are a materialized view, so a full rebuild
// is always safe.
type StatsRepairService struct {
	db          *db.MongoDB
	aggregator  *stats.Aggregator
	onRepaired  func()
	stopCh      chan struct{}
	interval    time.Duration
	passTimeout time.Duration
}

// NewStatsRepairService creates the repair job. onRepaired runs after each
// successful pass (used to drop cached leaderboards); it may be nil.
func NewStatsRepairService(database *db.MongoDB, aggregator *stats.Aggregator, onRepaired func()) *StatsRepairService {
	return &StatsRepairService{
		db:          database,
		aggregator:  aggregator,
		onRepaired:  onRepaired,
		stopCh:      make(chan struct{}),
		interval:    6 * time.Hour,
		passTimeout: 10 * time.Minute,
	}
}

// Start begins the periodic repair loop in a background goroutine.
func (s *StatsRepairService) Start() {
	go s.runRepairLoop()
	log.Println("Stats repair service started (interval: 6h)")
}

// Stop signals the repair loop to exit.
func (s *StatsRepairService) Stop() {
	close(s.stopCh)
	log.Println("Stats repair service stopped")
}

func (s *StatsRepairService) runRepairLoop() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.runRepairPass()
		}
	}
}

// RunImmediateRepair runs a one-shot rebuild pass. Call on startup so a
// restart after a crash never leaves stats stale until the next tick.
func (s *StatsRepairService) RunImmediateRepair() {
	s.runRepairPass()
}

func (s *StatsRepairService) runRepairPass() {
	ctx, cancel := context.WithTimeout(context.Background(), s.passTimeout)
	defer cancel()

	// Try to acquire distributed lock
	if !s.tryAcquireLock(ctx) {
		return // Another server is handling the rebuild
	}
	defer s.releaseLock(ctx)

	started := time.Now()
	processed, errs := s.aggregator.RecalculateAll(ctx)
	for _, err := range errs {
		log.Printf("Stats repair: %v", err)
	}
	log.Printf("Stats repair: rebuilt %d player(s) in %s (%d errors)",
		processed, time.Since(started).Round(time.Millisecond), len(errs))

	if s.onRepaired != nil && len(errs) == 0 {
		s.onRepaired()
	}
}

func (s *StatsRepairService) tryAcquireLock(ctx context.Context) bool {
	hostname, err := os.Hostname()
	if err != nil {
		log.Printf("Failed to get hostname: %v", err)
		hostname = "unknown"
	}

	now := time.Now()
	lockExpiry := now.Add(15 * time.Minute)

	filter := bson.M{
		"_id": "stats_repair",
		"$or": []bson.M{
			{"lockedUntil": bson.M{"$exists": false}},
			{"lockedUntil": bson.M{"$lt": now}},
		},
	}

	update := bson.M{
		"$set": bson.M{
			"lockedUntil": lockExpiry,
			"lockedBy":    hostname,
			"lockedAt":    now,
		},
	}

	opts := options.FindOneAndUpdate().SetUpsert(true)
	err = s.db.CleanupLocks().FindOneAndUpdate(ctx, filter, update, opts).Err()
	if err != nil {
		// If err is not nil, another server already holds the lock (duplicate key or no match)
		return false
	}

	return true
}

func (s *StatsRepairService) releaseLock(ctx context.Context) {
	_, err := s.db.CleanupLocks().UpdateOne(ctx,
		bson.M{"_id": "stats_repair"},
		bson.M{"$set": bson.M{"lockedUntil": time.Now()}},
	)
	if err != nil {
		log.Printf("Stats repair: failed to release lock: %v", err)
	}
}
