package settlement

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestFundPrizePool(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects non-positive amount", func(t *testing.T) {
		engine, _ := newTestEngine(t)
		if _, err := engine.FundPrizePool(ctx, "backer", "t1", 0); !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("expected ErrInvalidAmount, got %v", err)
		}
	})

	t.Run("rejects unfunded caller", func(t *testing.T) {
		engine, _ := newTestEngine(t)
		if _, err := engine.FundPrizePool(ctx, "backer", "t1", 100); !errors.Is(err, ErrInsufficientBalance) {
			t.Fatalf("expected ErrInsufficientBalance, got %v", err)
		}
	})

	t.Run("moves funds into escrow and grows the pool", func(t *testing.T) {
		engine, store := newTestEngine(t)
		if err := store.Credit(ctx, "backer", testAsset, 500); err != nil {
			t.Fatal(err)
		}
		pool, err := engine.FundPrizePool(ctx, "backer", "t1", 300)
		if err != nil {
			t.Fatalf("FundPrizePool failed: %v", err)
		}
		if pool.Total != 300 {
			t.Errorf("pool total = %d, want 300", pool.Total)
		}
		escrow, _ := store.Balance(ctx, testPoolAcct, testAsset)
		if escrow != 300 {
			t.Errorf("escrow balance = %d, want 300", escrow)
		}
		backer, _ := store.Balance(ctx, "backer", testAsset)
		if backer != 200 {
			t.Errorf("backer balance = %d, want 200", backer)
		}
	})

	t.Run("funding stays open while paused", func(t *testing.T) {
		engine, store := newTestEngine(t)
		if err := store.Credit(ctx, "backer", testAsset, 100); err != nil {
			t.Fatal(err)
		}
		if err := engine.Pause(ctx, testAdmin); err != nil {
			t.Fatal(err)
		}
		if _, err := engine.FundPrizePool(ctx, "backer", "t1", 100); err != nil {
			t.Fatalf("funding while paused failed: %v", err)
		}
	})
}

func TestDeclareWinners(t *testing.T) {
	ctx := context.Background()

	fund := func(t *testing.T, engine *Engine, store *MemoryStore, amount int64) {
		t.Helper()
		if err := store.Credit(ctx, "backer", testAsset, amount); err != nil {
			t.Fatal(err)
		}
		if _, err := engine.FundPrizePool(ctx, "backer", "t1", amount); err != nil {
			t.Fatal(err)
		}
	}

	t.Run("non-submitter rejected", func(t *testing.T) {
		engine, store := newTestEngine(t)
		fund(t, engine, store, 500)
		err := engine.DeclareWinners(ctx, "rando", "t1", []string{"a"}, []int64{100})
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("length mismatch rejected", func(t *testing.T) {
		engine, store := newTestEngine(t)
		fund(t, engine, store, 500)
		err := engine.DeclareWinners(ctx, testAdmin, "t1", []string{"a", "b"}, []int64{100})
		if !errors.Is(err, ErrLengthMismatch) {
			t.Fatalf("expected ErrLengthMismatch, got %v", err)
		}
	})

	t.Run("negative share rejected", func(t *testing.T) {
		engine, store := newTestEngine(t)
		fund(t, engine, store, 500)
		err := engine.DeclareWinners(ctx, testAdmin, "t1", []string{"a"}, []int64{-5})
		if !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("expected ErrInvalidAmount, got %v", err)
		}
	})

	t.Run("over-allocation rejected without side effects", func(t *testing.T) {
		engine, store := newTestEngine(t)
		fund(t, engine, store, 500)
		err := engine.DeclareWinners(ctx, testAdmin, "t1", []string{"a", "b"}, []int64{400, 101})
		if !errors.Is(err, ErrExceedsPool) {
			t.Fatalf("expected ErrExceedsPool, got %v", err)
		}
		shares, _ := engine.Shares(ctx, "t1")
		if len(shares) != 0 {
			t.Errorf("failed declaration left %d shares behind", len(shares))
		}
		pool, _ := engine.PoolStatus(ctx, "t1")
		if pool.Declared {
			t.Error("failed declaration flipped Declared")
		}
	})

	t.Run("declaration is one-time", func(t *testing.T) {
		engine, store := newTestEngine(t)
		fund(t, engine, store, 500)
		if err := engine.DeclareWinners(ctx, testAdmin, "t1", []string{"a", "b"}, []int64{300, 200}); err != nil {
			t.Fatalf("DeclareWinners failed: %v", err)
		}
		err := engine.DeclareWinners(ctx, testAdmin, "t1", []string{"c"}, []int64{1})
		if !errors.Is(err, ErrAlreadyDeclared) {
			t.Fatalf("expected ErrAlreadyDeclared, got %v", err)
		}

		pool, _ := engine.PoolStatus(ctx, "t1")
		if !pool.Declared || pool.DeclaredTotal != 500 {
			t.Errorf("pool = %+v, want declared with total 500", pool)
		}
		if pool.Remainder() != 0 {
			t.Errorf("remainder = %d, want 0", pool.Remainder())
		}
	})

	t.Run("paused blocks declaration", func(t *testing.T) {
		engine, store := newTestEngine(t)
		fund(t, engine, store, 500)
		if err := engine.Pause(ctx, testAdmin); err != nil {
			t.Fatal(err)
		}
		err := engine.DeclareWinners(ctx, testAdmin, "t1", []string{"a"}, []int64{100})
		if !errors.Is(err, ErrPaused) {
			t.Fatalf("expected ErrPaused, got %v", err)
		}
	})

	t.Run("delegated submitter can declare", func(t *testing.T) {
		engine, store := newTestEngine(t)
		fund(t, engine, store, 500)
		if err := engine.AddSubmitter(ctx, testAdmin, "referee"); err != nil {
			t.Fatal(err)
		}
		if err := engine.DeclareWinners(ctx, "referee", "t1", []string{"a"}, []int64{500}); err != nil {
			t.Fatalf("DeclareWinners as delegated submitter failed: %v", err)
		}
	})
}

func TestClaimReward(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*Engine, *MemoryStore) {
		t.Helper()
		engine, store := newTestEngine(t)
		if err := store.Credit(ctx, "backer", testAsset, 500); err != nil {
			t.Fatal(err)
		}
		if _, err := engine.FundPrizePool(ctx, "backer", "t1", 500); err != nil {
			t.Fatal(err)
		}
		if err := engine.DeclareWinners(ctx, testAdmin, "t1", []string{"a", "b"}, []int64{300, 200}); err != nil {
			t.Fatal(err)
		}
		return engine, store
	}

	t.Run("before declaration", func(t *testing.T) {
		engine, _ := newTestEngine(t)
		if _, err := engine.ClaimReward(ctx, "a", "t1"); !errors.Is(err, ErrNotDeclared) {
			t.Fatalf("expected ErrNotDeclared, got %v", err)
		}
	})

	t.Run("no allocation", func(t *testing.T) {
		engine, _ := setup(t)
		if _, err := engine.ClaimReward(ctx, "stranger", "t1"); !errors.Is(err, ErrNoAllocation) {
			t.Fatalf("expected ErrNoAllocation, got %v", err)
		}
	})

	t.Run("pays exactly once", func(t *testing.T) {
		engine, store := setup(t)

		share, err := engine.ClaimReward(ctx, "a", "t1")
		if err != nil {
			t.Fatalf("ClaimReward failed: %v", err)
		}
		if share.Amount != 300 || !share.Claimed || share.ClaimedAt.IsZero() {
			t.Errorf("claimed share = %+v", share)
		}
		balance, _ := store.Balance(ctx, "a", testAsset)
		if balance != 300 {
			t.Errorf("winner balance = %d, want 300", balance)
		}

		if _, err := engine.ClaimReward(ctx, "a", "t1"); !errors.Is(err, ErrAlreadyClaimed) {
			t.Fatalf("expected ErrAlreadyClaimed, got %v", err)
		}
		balance, _ = store.Balance(ctx, "a", testAsset)
		if balance != 300 {
			t.Errorf("double claim changed balance to %d", balance)
		}

		// Pool accounting shrinks with the claim.
		pool, _ := engine.PoolStatus(ctx, "t1")
		if pool.Total != 200 || pool.DeclaredTotal != 200 {
			t.Errorf("pool after claim = %+v, want total 200, declared 200", pool)
		}
		escrow, _ := store.Balance(ctx, testPoolAcct, testAsset)
		if escrow != pool.Total {
			t.Errorf("escrow %d out of sync with pool total %d", escrow, pool.Total)
		}
	})

	t.Run("paused blocks claims without side effects", func(t *testing.T) {
		engine, store := setup(t)
		if err := engine.Pause(ctx, testAdmin); err != nil {
			t.Fatal(err)
		}
		if _, err := engine.ClaimReward(ctx, "a", "t1"); !errors.Is(err, ErrPaused) {
			t.Fatalf("expected ErrPaused, got %v", err)
		}
		balance, _ := store.Balance(ctx, "a", testAsset)
		if balance != 0 {
			t.Errorf("blocked claim moved funds: balance = %d", balance)
		}

		// Unpause restores the claim path.
		if err := engine.Unpause(ctx, testAdmin); err != nil {
			t.Fatal(err)
		}
		if _, err := engine.ClaimReward(ctx, "a", "t1"); err != nil {
			t.Fatalf("claim after unpause failed: %v", err)
		}
	})

	t.Run("concurrent claims pay exactly once", func(t *testing.T) {
		engine, store := setup(t)

		const attempts = 16
		var wg sync.WaitGroup
		errs := make([]error, attempts)
		for i := 0; i < attempts; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = engine.ClaimReward(ctx, "b", "t1")
			}(i)
		}
		wg.Wait()

		var succeeded int
		for _, err := range errs {
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, ErrAlreadyClaimed):
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}
		if succeeded != 1 {
			t.Errorf("claims succeeded %d times, want 1", succeeded)
		}
		balance, _ := store.Balance(ctx, "b", testAsset)
		if balance != 200 {
			t.Errorf("winner balance = %d, want 200", balance)
		}
	})
}

func TestPauseUnpause(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t)

	if err := engine.Pause(ctx, "player"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := engine.Unpause(ctx, testAdmin); !errors.Is(err, ErrNotPaused) {
		t.Fatalf("expected ErrNotPaused, got %v", err)
	}
	if err := engine.Pause(ctx, testAdmin); err != nil {
		t.Fatalf("Pause failed: %v", err)
	}
	if err := engine.Pause(ctx, testAdmin); !errors.Is(err, ErrPaused) {
		t.Fatalf("expected ErrPaused on double pause, got %v", err)
	}
	if err := engine.Unpause(ctx, testAdmin); err != nil {
		t.Fatalf("Unpause failed: %v", err)
	}
}

func TestSettleTournament(t *testing.T) {
	ctx := context.Background()
	engine, store := newTestEngine(t)

	if err := store.Credit(ctx, "backer", testAsset, 1_000_000); err != nil {
		t.Fatal(err)
	}
	if _, err := engine.FundPrizePool(ctx, "backer", "t1", 1_000_000); err != nil {
		t.Fatal(err)
	}

	results := []ParticipantResult{
		{ParticipantID: "p1", Rank: 1, MatchesPlayed: 10, MatchesWon: 8},
		{ParticipantID: "p2", Rank: 2, MatchesPlayed: 10, MatchesWon: 6},
		{ParticipantID: "p3", Rank: 3, MatchesPlayed: 9, MatchesWon: 4},
		{ParticipantID: "p4", Rank: 4, MatchesPlayed: 7, MatchesWon: 2},
	}

	dist, err := engine.SettleTournament(ctx, testAdmin, "t1", results)
	if err != nil {
		t.Fatalf("SettleTournament failed: %v", err)
	}
	if dist.Total+dist.Remainder != 1_000_000 {
		t.Errorf("Total %d + Remainder %d != pool", dist.Total, dist.Remainder)
	}

	pool, _ := engine.PoolStatus(ctx, "t1")
	if !pool.Declared || pool.DeclaredTotal != dist.Total {
		t.Errorf("pool = %+v, want declared with total %d", pool, dist.Total)
	}
	if pool.Remainder() != dist.Remainder {
		t.Errorf("pool remainder %d != distribution remainder %d", pool.Remainder(), dist.Remainder)
	}

	// Every allocation is claimable for its floored amount.
	for _, alloc := range dist.Allocations {
		share, err := engine.ClaimReward(ctx, alloc.ParticipantID, "t1")
		if err != nil {
			t.Fatalf("claim for %s failed: %v", alloc.ParticipantID, err)
		}
		if share.Amount != alloc.Amount {
			t.Errorf("%s claimed %d, allocated %d", alloc.ParticipantID, share.Amount, alloc.Amount)
		}
	}

	// Only the rounding remainder stays behind.
	pool, _ = engine.PoolStatus(ctx, "t1")
	if pool.Total != dist.Remainder || pool.DeclaredTotal != 0 {
		t.Errorf("drained pool = %+v, want total %d, declared 0", pool, dist.Remainder)
	}

	// A second settlement is rejected like any re-declaration.
	if _, err := engine.SettleTournament(ctx, testAdmin, "t1", results); !errors.Is(err, ErrAlreadyDeclared) {
		t.Fatalf("expected ErrAlreadyDeclared, got %v", err)
	}
}

// TestFullSettlementLifecycle walks one tournament end to end: fee setup,
// entry payments, sponsor funding, declaration, and claims.
func TestFullSettlementLifecycle(t *testing.T) {
	ctx := context.Background()
	engine, store := newTestEngine(t)

	if _, err := engine.SetEntryFee(ctx, testAdmin, "t1", "Spring Cup", 100); err != nil {
		t.Fatal(err)
	}

	// One paid entry at 5% platform fee: 5 to treasury, 95 to the pool.
	fundPlayer(t, engine, store, "a", 100)
	receipt, err := engine.PayEntryFee(ctx, "a", "t1")
	if err != nil {
		t.Fatalf("PayEntryFee failed: %v", err)
	}
	if receipt.PoolShare != 95 {
		t.Fatalf("pool share = %d, want 95", receipt.PoolShare)
	}

	// A sponsor tops the pool up to 500.
	if err := store.Credit(ctx, "sponsor", testAsset, 405); err != nil {
		t.Fatal(err)
	}
	if _, err := engine.FundPrizePool(ctx, "sponsor", "t1", 405); err != nil {
		t.Fatal(err)
	}
	pool, _ := engine.PoolStatus(ctx, "t1")
	if pool.Total != 500 {
		t.Fatalf("pool total = %d, want 500", pool.Total)
	}

	if err := engine.DeclareWinners(ctx, testAdmin, "t1", []string{"a", "b"}, []int64{300, 200}); err != nil {
		t.Fatal(err)
	}

	if _, err := engine.ClaimReward(ctx, "a", "t1"); err != nil {
		t.Fatal(err)
	}
	if _, err := engine.ClaimReward(ctx, "b", "t1"); err != nil {
		t.Fatal(err)
	}

	// The pool is fully drained; escrow and treasury reconcile.
	pool, _ = engine.PoolStatus(ctx, "t1")
	if pool.Total != 0 {
		t.Errorf("pool total = %d, want 0", pool.Total)
	}
	finalBalances := map[string]int64{
		"a":           300, // paid 100 in, claimed 300
		"b":           200,
		"sponsor":     0,
		testTreasury:  5,
		testPoolAcct:  0,
		LedgerAccount: 0,
	}
	for holder, want := range finalBalances {
		got, _ := store.Balance(ctx, holder, testAsset)
		if got != want {
			t.Errorf("balance[%s] = %d, want %d", holder, got, want)
		}
	}
}
