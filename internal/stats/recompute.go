package stats

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"game-night/internal/models"
)

const (
	recomputeQueueSize = 256
	recomputeTimeout   = 15 * time.Second
)

// Recomputer runs stat recomputes off the request path. Recording a session
// enqueues one task per affected player and returns immediately: the session
// write is the durability boundary, stats are an eventually-consistent view.
// Task failures are reported on an error channel and logged; they never
// propagate back to the request that created the session, and the periodic
// repair job picks up anything that slipped through.
type Recomputer struct {
	aggregator *Aggregator
	queue      chan primitive.ObjectID
	errs       chan error

	// OnRecompute, if set, is called after each successful recompute with
	// the fresh stats (cache invalidation, feed notifications). It runs on
	// the worker goroutine and should not block.
	OnRecompute func(*models.PlayerStats)

	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	running    bool
	mu         sync.Mutex
}

func NewRecomputer(aggregator *Aggregator) *Recomputer {
	return &Recomputer{
		aggregator: aggregator,
		queue:      make(chan primitive.ObjectID, recomputeQueueSize),
		errs:       make(chan error, recomputeQueueSize),
	}
}

// Start launches the worker and its error drain.
func (r *Recomputer) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.cancelFunc = cancel
	r.running = true
	r.wg.Add(2)

	go r.workLoop(ctx)
	go r.errorLoop(ctx)
	log.Println("[StatsRecompute] Started")
}

// Stop cancels the worker and waits for it to exit. Queued tasks that were
// not processed are dropped; the repair job will recompute them.
func (r *Recomputer) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return
	}
	r.running = false
	r.cancelFunc()
	r.wg.Wait()
	log.Println("[StatsRecompute] Stopped")
}

// Enqueue schedules a recompute for one player. Never blocks: if the queue
// is full the task is dropped with a warning, which is safe because
// recomputes are full folds and the repair job self-heals.
func (r *Recomputer) Enqueue(playerID primitive.ObjectID) {
	select {
	case r.queue <- playerID:
	default:
		log.Printf("[StatsRecompute] Queue full, dropping recompute for player %s", playerID.Hex())
	}
}

// EnqueueSession schedules a recompute for every distinct player referenced
// by the session's results.
func (r *Recomputer) EnqueueSession(session *models.GameSession) {
	seen := make(map[primitive.ObjectID]bool, len(session.Results))
	for _, result := range session.Results {
		if result.PlayerID == nil || seen[*result.PlayerID] {
			continue
		}
		seen[*result.PlayerID] = true
		r.Enqueue(*result.PlayerID)
	}
}

func (r *Recomputer) workLoop(ctx context.Context) {
	defer r.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case playerID := <-r.queue:
			r.process(playerID)
		}
	}
}

func (r *Recomputer) process(playerID primitive.ObjectID) {
	ctx, cancel := context.WithTimeout(context.Background(), recomputeTimeout)
	defer cancel()

	playerStats, err := r.aggregator.RecalculatePlayerStats(ctx, playerID)
	if err != nil {
		select {
		case r.errs <- fmt.Errorf("player %s: %w", playerID.Hex(), err):
		default:
			log.Printf("[StatsRecompute] Error channel full: player %s: %v", playerID.Hex(), err)
		}
		return
	}
	if playerStats != nil && r.OnRecompute != nil {
		r.OnRecompute(playerStats)
	}
}

func (r *Recomputer) errorLoop(ctx context.Context) {
	defer r.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-r.errs:
			log.Printf("[StatsRecompute] Recompute failed: %v", err)
		}
	}
}
