package settlement

import (
	"fmt"
	"math"
	"sort"
)

// ParticipantResult is the ranked performance record the tournament layer
// submits at close. Not persisted; consumed only by the allocator.
type ParticipantResult struct {
	ParticipantID string `json:"participant_id"`
	Rank          int    `json:"rank"` // 1-based, unique per tournament
	MatchesPlayed int    `json:"matches_played"`
	MatchesWon    int    `json:"matches_won"`
}

// Allocation is one participant's normalized slice of the prize pool.
type Allocation struct {
	ParticipantID string  `json:"participant_id"`
	Percent       float64 `json:"percent"` // normalized; all Percents sum to 100
	Amount        int64   `json:"amount"`  // floor(pool * Percent / 100)
}

// Distribution is the allocator's output: the share list consumed by
// DeclareWinners plus the floor-rounding remainder, reported explicitly
// because its destination is an open product decision.
type Distribution struct {
	Allocations []Allocation `json:"allocations"`
	Total       int64        `json:"total"`     // sum of floored amounts
	Remainder   int64        `json:"remainder"` // pool - Total
}

// basePercent is the rank-tier base percentage of the pool.
func basePercent(rank int) float64 {
	switch {
	case rank == 1:
		return 30
	case rank == 2:
		return 20
	case rank == 3:
		return 15
	case rank <= 5:
		return 7
	case rank <= 10:
		return 2
	default:
		return 0.5
	}
}

// bonusFactor rewards participation volume and win rate independently.
// Bounded to [1.0, 1.3].
func bonusFactor(played, won int) float64 {
	factor := 1.0
	factor += math.Min(1, float64(played)/10) * 0.1
	if played > 0 {
		factor += float64(won) / float64(played) * 0.2
	}
	return factor
}

// ComputeDistribution converts ranked results into a prize distribution whose
// unrounded percentages sum to exactly 100 and whose floored amounts never
// exceed the pool. Pure function; the caller feeds the output to
// DeclareWinners.
func ComputeDistribution(results []ParticipantResult, prizePool int64) (Distribution, error) {
	if len(results) == 0 {
		return Distribution{}, ErrNoParticipants
	}
	if prizePool <= 0 {
		return Distribution{}, fmt.Errorf("%w: prize pool is %d", ErrInvalidAmount, prizePool)
	}

	ranked := make([]ParticipantResult, len(results))
	copy(ranked, results)
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].Rank < ranked[j].Rank })

	seen := make(map[int]bool, len(ranked))
	for _, r := range ranked {
		if r.Rank < 1 {
			return Distribution{}, fmt.Errorf("%w: rank %d for %s", ErrInvalidResults, r.Rank, r.ParticipantID)
		}
		if seen[r.Rank] {
			return Distribution{}, fmt.Errorf("%w: duplicate rank %d", ErrInvalidResults, r.Rank)
		}
		seen[r.Rank] = true
		if r.MatchesPlayed < 0 || r.MatchesWon < 0 || r.MatchesWon > r.MatchesPlayed {
			return Distribution{}, fmt.Errorf("%w: %s played %d, won %d", ErrInvalidResults, r.ParticipantID, r.MatchesPlayed, r.MatchesWon)
		}
	}

	adjusted := make([]float64, len(ranked))
	var totalAdjusted float64
	for i, r := range ranked {
		adjusted[i] = basePercent(r.Rank) * bonusFactor(r.MatchesPlayed, r.MatchesWon)
		totalAdjusted += adjusted[i]
	}

	// Renormalize so the percentages sum to exactly 100 regardless of
	// participant count or bonus skew.
	norm := 100 / totalAdjusted

	dist := Distribution{Allocations: make([]Allocation, len(ranked))}
	for i, r := range ranked {
		percent := adjusted[i] * norm
		amount := int64(math.Floor(float64(prizePool) * percent / 100))
		dist.Allocations[i] = Allocation{
			ParticipantID: r.ParticipantID,
			Percent:       percent,
			Amount:        amount,
		}
		dist.Total += amount
	}
	dist.Remainder = prizePool - dist.Total
	return dist, nil
}
