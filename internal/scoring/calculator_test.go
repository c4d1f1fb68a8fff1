package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"game-night/internal/models"
)

func scoredWithRanks(ranks ...int) []models.ScoredResult {
	results := make([]models.ScoredResult, len(ranks))
	for i, r := range ranks {
		results[i] = models.ScoredResult{Rank: r}
	}
	return results
}

func sumPoints(results []models.ScoredResult) float64 {
	total := 0.0
	for _, r := range results {
		total += r.PointsEarned
	}
	return total
}

func TestGetTotalPointsPool(t *testing.T) {
	assert.Equal(t, 20, GetTotalPointsPool(4, 5))
	assert.Equal(t, 18, GetTotalPointsPool(6, 3))
	assert.Equal(t, 0, GetTotalPointsPool(0, 5))
}

func TestCalculateScoresPointingNoTies(t *testing.T) {
	scored, err := CalculateScores(models.ScoringModePointing, 4, 5, scoredWithRanks(1, 2, 3, 4))
	require.NoError(t, err)
	require.Len(t, scored, 4)

	// Linear weights over 4 seats, scaled to a pool of 20: 8, 6, 4, 2.
	assert.InDelta(t, 8, scored[0].PointsEarned, 1e-9)
	assert.InDelta(t, 6, scored[1].PointsEarned, 1e-9)
	assert.InDelta(t, 4, scored[2].PointsEarned, 1e-9)
	assert.InDelta(t, 2, scored[3].PointsEarned, 1e-9)
	assert.InDelta(t, 20, sumPoints(scored), 1e-9)
}

func TestCalculateScoresPointingTieSplitsPositions(t *testing.T) {
	scored, err := CalculateScores(models.ScoringModePointing, 4, 5, scoredWithRanks(1, 2, 2, 4))
	require.NoError(t, err)

	// Tied pair at rank 2 covers positions 2 and 3, so each earns (6+4)/2.
	assert.InDelta(t, 8, scored[0].PointsEarned, 1e-9)
	assert.InDelta(t, 5, scored[1].PointsEarned, 1e-9)
	assert.InDelta(t, 5, scored[2].PointsEarned, 1e-9)
	assert.InDelta(t, 2, scored[3].PointsEarned, 1e-9)
	assert.InDelta(t, 20, sumPoints(scored), 1e-9)
}

func TestCalculateScoresPointingAllTied(t *testing.T) {
	scored, err := CalculateScores(models.ScoringModePointing, 3, 4, scoredWithRanks(1, 1, 1))
	require.NoError(t, err)

	// Everyone shares first: each player gets an equal cut of the pool.
	for _, r := range scored {
		assert.InDelta(t, 4, r.PointsEarned, 1e-9)
	}
	assert.InDelta(t, 12, sumPoints(scored), 1e-9)
}

func TestCalculateScoresPoolConservation(t *testing.T) {
	cases := []struct {
		playerCount     int
		pointsPerPlayer int
		ranks           []int
	}{
		{2, 1, []int{1, 2}},
		{3, 7, []int{1, 2, 3}},
		{4, 4, []int{1, 1, 3, 4}},
		{5, 5, []int{1, 2, 2, 2, 5}},
		{6, 3, []int{1, 1, 3, 3, 5, 6}},
		{7, 10, []int{1, 2, 3, 4, 5, 6, 7}},
	}

	for _, tc := range cases {
		scored, err := CalculateScores(models.ScoringModePointing, tc.playerCount, tc.pointsPerPlayer, scoredWithRanks(tc.ranks...))
		require.NoError(t, err)
		pool := float64(GetTotalPointsPool(tc.playerCount, tc.pointsPerPlayer))
		assert.InDelta(t, pool, sumPoints(scored), 1e-9, "ranks %v", tc.ranks)
	}
}

func TestCalculateScoresTieSymmetry(t *testing.T) {
	scored, err := CalculateScores(models.ScoringModePointing, 5, 5, scoredWithRanks(1, 2, 2, 2, 5))
	require.NoError(t, err)

	tied := make([]float64, 0, 3)
	for _, r := range scored {
		if r.Rank == 2 {
			tied = append(tied, r.PointsEarned)
		}
	}
	require.Len(t, tied, 3)
	assert.Equal(t, tied[0], tied[1])
	assert.Equal(t, tied[1], tied[2])
}

func TestCalculateScoresWinnerTakesAll(t *testing.T) {
	scored, err := CalculateScores(models.ScoringModeWinnerTakesAll, 6, 3, scoredWithRanks(1, 2, 3, 4, 5, 6))
	require.NoError(t, err)

	assert.InDelta(t, 18, scored[0].PointsEarned, 1e-9)
	for _, r := range scored[1:] {
		assert.Zero(t, r.PointsEarned)
	}
}

func TestCalculateScoresWinnerTakesAllWinnerOnly(t *testing.T) {
	// Only the winner is recorded; the table still sizes the pool.
	scored, err := CalculateScores(models.ScoringModeWinnerTakesAll, 6, 3, scoredWithRanks(1))
	require.NoError(t, err)
	require.Len(t, scored, 1)
	assert.InDelta(t, 18, scored[0].PointsEarned, 1e-9)
}

func TestCalculateScoresWinnerTakesAllSplitsTiedWinners(t *testing.T) {
	scored, err := CalculateScores(models.ScoringModeWinnerTakesAll, 4, 5, scoredWithRanks(1, 1, 3, 4))
	require.NoError(t, err)

	assert.InDelta(t, 10, scored[0].PointsEarned, 1e-9)
	assert.InDelta(t, 10, scored[1].PointsEarned, 1e-9)
	assert.Zero(t, scored[2].PointsEarned)
	assert.Zero(t, scored[3].PointsEarned)
}

func TestCalculateScoresUnknownMode(t *testing.T) {
	_, err := CalculateScores(models.ScoringMode("bidding"), 4, 5, scoredWithRanks(1, 2, 3, 4))
	assert.ErrorIs(t, err, ErrInvalidMode)
}

func TestCalculateScoresPreservesPlayers(t *testing.T) {
	in := []models.ScoredResult{
		{PlayerName: "dana", Rank: 3},
		{PlayerName: "alex", Rank: 1},
		{PlayerName: "casey", Rank: 2},
	}

	scored, err := CalculateScores(models.ScoringModePointing, 3, 5, in)
	require.NoError(t, err)
	require.Len(t, scored, 3)

	// Output is rank-ordered and covers exactly the submitted players.
	assert.Equal(t, "alex", scored[0].PlayerName)
	assert.Equal(t, "casey", scored[1].PlayerName)
	assert.Equal(t, "dana", scored[2].PlayerName)

	// Input slice is untouched.
	assert.Zero(t, in[0].PointsEarned)
	assert.Equal(t, "dana", in[0].PlayerName)
}
