package settlement

import (
	"errors"
	"math"
	"testing"
)

func TestBasePercent(t *testing.T) {
	cases := []struct {
		rank int
		want float64
	}{
		{1, 30},
		{2, 20},
		{3, 15},
		{4, 7},
		{5, 7},
		{6, 2},
		{10, 2},
		{11, 0.5},
		{100, 0.5},
	}
	for _, c := range cases {
		if got := basePercent(c.rank); got != c.want {
			t.Errorf("basePercent(%d) = %v, want %v", c.rank, got, c.want)
		}
	}
}

func TestBonusFactor(t *testing.T) {
	cases := []struct {
		name   string
		played int
		won    int
		want   float64
	}{
		{"no matches", 0, 0, 1.0},
		{"full volume and win rate", 10, 10, 1.3},
		{"half volume, no wins", 5, 0, 1.05},
		{"volume capped at ten matches", 40, 0, 1.1},
		{"half win rate", 10, 5, 1.2},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := bonusFactor(c.played, c.won)
			if math.Abs(got-c.want) > 1e-9 {
				t.Errorf("bonusFactor(%d, %d) = %v, want %v", c.played, c.won, got, c.want)
			}
			if got < 1.0 || got > 1.3 {
				t.Errorf("bonusFactor(%d, %d) = %v out of [1.0, 1.3]", c.played, c.won, got)
			}
		})
	}
}

func TestComputeDistributionValidation(t *testing.T) {
	valid := []ParticipantResult{
		{ParticipantID: "p1", Rank: 1, MatchesPlayed: 5, MatchesWon: 3},
		{ParticipantID: "p2", Rank: 2, MatchesPlayed: 5, MatchesWon: 2},
	}

	t.Run("no participants", func(t *testing.T) {
		if _, err := ComputeDistribution(nil, 1000); !errors.Is(err, ErrNoParticipants) {
			t.Fatalf("expected ErrNoParticipants, got %v", err)
		}
	})

	t.Run("empty pool", func(t *testing.T) {
		if _, err := ComputeDistribution(valid, 0); !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("expected ErrInvalidAmount, got %v", err)
		}
	})

	t.Run("duplicate rank", func(t *testing.T) {
		results := []ParticipantResult{
			{ParticipantID: "p1", Rank: 1},
			{ParticipantID: "p2", Rank: 1},
		}
		if _, err := ComputeDistribution(results, 1000); !errors.Is(err, ErrInvalidResults) {
			t.Fatalf("expected ErrInvalidResults, got %v", err)
		}
	})

	t.Run("rank below one", func(t *testing.T) {
		results := []ParticipantResult{{ParticipantID: "p1", Rank: 0}}
		if _, err := ComputeDistribution(results, 1000); !errors.Is(err, ErrInvalidResults) {
			t.Fatalf("expected ErrInvalidResults, got %v", err)
		}
	})

	t.Run("wins exceed matches", func(t *testing.T) {
		results := []ParticipantResult{{ParticipantID: "p1", Rank: 1, MatchesPlayed: 2, MatchesWon: 3}}
		if _, err := ComputeDistribution(results, 1000); !errors.Is(err, ErrInvalidResults) {
			t.Fatalf("expected ErrInvalidResults, got %v", err)
		}
	})
}

func TestComputeDistributionNormalization(t *testing.T) {
	results := []ParticipantResult{
		{ParticipantID: "p3", Rank: 3, MatchesPlayed: 8, MatchesWon: 4},
		{ParticipantID: "p1", Rank: 1, MatchesPlayed: 10, MatchesWon: 9},
		{ParticipantID: "p2", Rank: 2, MatchesPlayed: 10, MatchesWon: 6},
		{ParticipantID: "p7", Rank: 7, MatchesPlayed: 3, MatchesWon: 1},
		{ParticipantID: "p12", Rank: 12, MatchesPlayed: 1, MatchesWon: 0},
	}
	const pool = int64(1_000_000)

	dist, err := ComputeDistribution(results, pool)
	if err != nil {
		t.Fatalf("ComputeDistribution failed: %v", err)
	}

	var percentSum float64
	var amountSum int64
	for _, alloc := range dist.Allocations {
		percentSum += alloc.Percent
		amountSum += alloc.Amount
		want := int64(math.Floor(float64(pool) * alloc.Percent / 100))
		if alloc.Amount != want {
			t.Errorf("%s amount = %d, want floored %d", alloc.ParticipantID, alloc.Amount, want)
		}
	}
	if math.Abs(percentSum-100) > 1e-9 {
		t.Errorf("percent sum = %v, want 100", percentSum)
	}
	if amountSum != dist.Total {
		t.Errorf("amount sum %d does not match Total %d", amountSum, dist.Total)
	}
	if dist.Total+dist.Remainder != pool {
		t.Errorf("Total %d + Remainder %d != pool %d", dist.Total, dist.Remainder, pool)
	}
	if dist.Total > pool {
		t.Errorf("Total %d exceeds pool %d", dist.Total, pool)
	}

	// Output is ordered by rank regardless of input order.
	order := []string{"p1", "p2", "p3", "p7", "p12"}
	for i, want := range order {
		if dist.Allocations[i].ParticipantID != want {
			t.Errorf("allocation %d = %s, want %s", i, dist.Allocations[i].ParticipantID, want)
		}
	}

	// Rank 1 with the strongest record takes the largest slice.
	if dist.Allocations[0].Amount <= dist.Allocations[1].Amount {
		t.Errorf("rank 1 amount %d not above rank 2 amount %d", dist.Allocations[0].Amount, dist.Allocations[1].Amount)
	}
}

func TestComputeDistributionSingleParticipant(t *testing.T) {
	dist, err := ComputeDistribution([]ParticipantResult{
		{ParticipantID: "solo", Rank: 1, MatchesPlayed: 4, MatchesWon: 4},
	}, 999)
	if err != nil {
		t.Fatalf("ComputeDistribution failed: %v", err)
	}
	if len(dist.Allocations) != 1 {
		t.Fatalf("expected one allocation, got %d", len(dist.Allocations))
	}
	// A single participant normalizes to the whole pool; flooring may leave at
	// most one unit behind.
	if math.Abs(dist.Allocations[0].Percent-100) > 1e-9 {
		t.Errorf("solo percent = %v, want 100", dist.Allocations[0].Percent)
	}
	if dist.Allocations[0].Amount+dist.Remainder != 999 {
		t.Errorf("amount %d + remainder %d != 999", dist.Allocations[0].Amount, dist.Remainder)
	}
	if dist.Remainder < 0 || dist.Remainder > 1 {
		t.Errorf("remainder = %d, want 0 or 1", dist.Remainder)
	}
}
