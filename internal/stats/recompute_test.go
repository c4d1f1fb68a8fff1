package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"game-night/internal/models"
)

func TestRecomputerProcessesEnqueuedPlayers(t *testing.T) {
	store := newMemStore()
	sess := newSession("catan", testEpoch,
		result(1, "Alice", 1, 8),
		result(2, "Bob", 2, 6),
	)
	store.sessions = []models.GameSession{sess}

	recomputer := NewRecomputer(NewAggregator(store))
	done := make(chan *models.PlayerStats, 4)
	recomputer.OnRecompute = func(ps *models.PlayerStats) { done <- ps }

	recomputer.Start()
	defer recomputer.Stop()

	recomputer.EnqueueSession(&sess)

	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case ps := <-done:
			seen[ps.PlayerName] = true
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for recomputes")
		}
	}
	assert.True(t, seen["Alice"])
	assert.True(t, seen["Bob"])

	// Both stats documents were upserted by the worker.
	require.Len(t, store.stats, 2)
	assert.Equal(t, 1, store.stats[aliceID].Overall.Wins)
	assert.Equal(t, 0, store.stats[bobID].Overall.Wins)
}

func TestRecomputerStartStopIdempotent(t *testing.T) {
	recomputer := NewRecomputer(NewAggregator(newMemStore()))
	recomputer.Start()
	recomputer.Start()
	recomputer.Stop()
	recomputer.Stop()
}
