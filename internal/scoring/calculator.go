package scoring

import (
	"fmt"
	"sort"

	"game-night/internal/models"
)

// allocateFunc distributes the session's point pool across scored results.
// Implementations must return one output entry per input entry and must
// conserve the pool: the awards sum to GetTotalPointsPool for well-formed
// input.
type allocateFunc func(playerCount, pointsPerPlayer int, results []models.ScoredResult) []models.ScoredResult

// allocators dispatches on the scoring mode. ScoringMode is a closed set, so
// an unknown mode is a caller error, not a missing table entry.
var allocators = map[models.ScoringMode]allocateFunc{
	models.ScoringModePointing:       allocatePointing,
	models.ScoringModeWinnerTakesAll: allocateWinnerTakesAll,
}

// GetTotalPointsPool returns the total points distributed for one session.
// Both modes size the pool to the table: every seated player contributes
// pointsPerPlayer to it. For winner-takes-all the pool is the fixed prize
// for first place.
func GetTotalPointsPool(playerCount, pointsPerPlayer int) int {
	return playerCount * pointsPerPlayer
}

// CalculateScores converts validated rankings into per-player point awards.
// Pure function of its inputs: callers pass results with PlayerID,
// PlayerName and Rank set, and get back the same set with PointsEarned
// filled in. Output is ordered by rank ascending.
func CalculateScores(mode models.ScoringMode, playerCount, pointsPerPlayer int, results []models.ScoredResult) ([]models.ScoredResult, error) {
	allocate, ok := allocators[mode]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}

	scored := make([]models.ScoredResult, len(results))
	copy(scored, results)
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Rank < scored[j].Rank })

	return allocate(playerCount, pointsPerPlayer, scored), nil
}

// positionValue is what the single player finishing in position p (1-based)
// would earn in a pointing game. Positions are weighted linearly, first
// place heaviest, scaled so the weights over a full table 1..N sum to the
// pool N*pointsPerPlayer:
//
//	value(p) = 2 * pointsPerPlayer * (N - p + 1) / (N + 1)
func positionValue(playerCount, pointsPerPlayer, position int) float64 {
	return 2 * float64(pointsPerPlayer) * float64(playerCount-position+1) / float64(playerCount+1)
}

// allocatePointing awards each rank group the mean of the position values
// the group occupies. A group of k players tied at rank r covers positions
// r..r+k-1 (competition ranking), so averaging inside the group keeps the
// group's combined award equal to what the k positions would earn
// individually — the pool is conserved under any tie pattern.
func allocatePointing(playerCount, pointsPerPlayer int, results []models.ScoredResult) []models.ScoredResult {
	// results are sorted by rank; walk them group by group
	for i := 0; i < len(results); {
		j := i
		for j < len(results) && results[j].Rank == results[i].Rank {
			j++
		}

		groupSize := j - i
		sum := 0.0
		for p := results[i].Rank; p < results[i].Rank+groupSize; p++ {
			sum += positionValue(playerCount, pointsPerPlayer, p)
		}
		award := sum / float64(groupSize)

		for k := i; k < j; k++ {
			results[k].PointsEarned = award
		}
		i = j
	}
	return results
}

// allocateWinnerTakesAll gives the entire pool to the rank-1 finisher(s),
// split evenly if several are recorded, and zero to everyone else.
func allocateWinnerTakesAll(playerCount, pointsPerPlayer int, results []models.ScoredResult) []models.ScoredResult {
	pool := float64(GetTotalPointsPool(playerCount, pointsPerPlayer))

	winners := 0
	for _, r := range results {
		if r.Rank == 1 {
			winners++
		}
	}

	for i := range results {
		if results[i].Rank == 1 {
			results[i].PointsEarned = pool / float64(winners)
		} else {
			results[i].PointsEarned = 0
		}
	}
	return results
}
