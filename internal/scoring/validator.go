package scoring

import (
	"errors"
	"fmt"
	"sort"

	"game-night/internal/models"
)

var (
	ErrInvalidRanking = errors.New("invalid ranking")
	ErrInvalidMode    = errors.New("unrecognized scoring mode")
)

// ValidateRankings checks that a pointing-mode submission forms a valid
// competition ranking ("1224"): ranks start at 1 and each distinct rank
// equals one plus the number of players ranked ahead of it. So [1,1,3] is
// valid (two tied for first, next distinct rank is 3) while [1,2,2,3] is
// not (after two tied at 2nd the next rank must be 4).
//
// Winner-takes-all sessions do not go through this check; they use
// ValidateWinnerResults instead.
func ValidateRankings(results []models.PlayerResult) error {
	if len(results) == 0 {
		return fmt.Errorf("%w: at least one result is required", ErrInvalidRanking)
	}

	counts := make(map[int]int, len(results))
	for _, r := range results {
		if r.Rank < 1 {
			return fmt.Errorf("%w: rank %d is not a positive integer", ErrInvalidRanking, r.Rank)
		}
		counts[r.Rank]++
	}

	ranks := make([]int, 0, len(counts))
	for rank := range counts {
		ranks = append(ranks, rank)
	}
	sort.Ints(ranks)

	// Each distinct rank must equal the number of players placed before it,
	// plus one. Ties at a rank consume the following positions.
	placed := 0
	for _, rank := range ranks {
		if rank != placed+1 {
			return fmt.Errorf("%w: rank %d should be %d (%d player(s) are ranked ahead of it)",
				ErrInvalidRanking, rank, placed+1, placed)
		}
		placed += counts[rank]
	}

	return nil
}

// ValidateWinnerResults enforces the winner-takes-all submission rule:
// exactly one result carries rank 1. Further results are optional (a caller
// may record the losers for participation tracking) but must rank below 1.
func ValidateWinnerResults(results []models.PlayerResult) error {
	if len(results) == 0 {
		return fmt.Errorf("%w: at least one result is required", ErrInvalidRanking)
	}

	winners := 0
	for _, r := range results {
		if r.Rank < 1 {
			return fmt.Errorf("%w: rank %d is not a positive integer", ErrInvalidRanking, r.Rank)
		}
		if r.Rank == 1 {
			winners++
		}
	}
	if winners != 1 {
		return fmt.Errorf("%w: winner-takes-all requires exactly one rank-1 result, got %d", ErrInvalidRanking, winners)
	}

	return nil
}
