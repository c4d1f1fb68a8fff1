package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"game-night/internal/models"
)

func resultsWithRanks(ranks ...int) []models.PlayerResult {
	results := make([]models.PlayerResult, len(ranks))
	for i, r := range ranks {
		results[i] = models.PlayerResult{Rank: r}
	}
	return results
}

func TestValidateRankings(t *testing.T) {
	tests := []struct {
		name    string
		ranks   []int
		wantErr bool
	}{
		{"single player", []int{1}, false},
		{"straight ranking", []int{1, 2, 3, 4}, false},
		{"tie for first", []int{1, 1, 3}, false},
		{"tie for second", []int{1, 2, 2, 4}, false},
		{"all tied", []int{1, 1, 1}, false},
		{"unordered input", []int{3, 1, 2}, false},
		{"empty", nil, true},
		{"zero rank", []int{0, 1}, true},
		{"negative rank", []int{-1, 1}, true},
		{"does not start at 1", []int{2, 3}, true},
		{"gap after tie not respected", []int{1, 2, 2, 3}, true},
		{"skipped rank", []int{1, 3}, true},
		{"rank past end of table", []int{1, 2, 5}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRankings(resultsWithRanks(tt.ranks...))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidRanking)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateWinnerResults(t *testing.T) {
	tests := []struct {
		name    string
		ranks   []int
		wantErr bool
	}{
		{"winner only", []int{1}, false},
		{"winner plus recorded losers", []int{1, 2, 2, 4}, false},
		{"empty", nil, true},
		{"no winner", []int{2, 3}, true},
		{"two winners", []int{1, 1}, true},
		{"non-positive rank", []int{1, 0}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateWinnerResults(resultsWithRanks(tt.ranks...))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidRanking)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
