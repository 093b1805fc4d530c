package settlement

import (
	"context"
	"fmt"
	"time"
)

// FundPrizePool moves funds from the caller into the prize-pool escrow and
// grows the tournament's pool total. Open to anyone, at any stage; funding is
// deliberately not blocked while paused (pause freezes outflows and
// declarations only).
func (e *Engine) FundPrizePool(ctx context.Context, caller, tournamentID string, amount int64) (Pool, error) {
	if amount <= 0 {
		return Pool{}, ErrInvalidAmount
	}
	l := e.tournamentLock(tournamentID)
	l.Lock()
	defer l.Unlock()

	var funded Pool
	err := e.store.Atomic(ctx, func(tx Tx) error {
		cfg, err := tx.Config(ctx)
		if err != nil {
			return err
		}
		if err := tx.Move(ctx, cfg.RewardAsset, caller, cfg.PoolID, amount); err != nil {
			return err
		}
		pool, _, err := tx.Pool(ctx, tournamentID)
		if err != nil {
			return err
		}
		pool.TournamentID = tournamentID
		pool.Total += amount
		if err := tx.SavePool(ctx, pool); err != nil {
			return err
		}
		funded = pool
		return tx.AppendEvent(ctx, newEvent(EventPoolFunded, tournamentID, caller, cfg.RewardAsset, amount, nil))
	})
	if err != nil {
		return Pool{}, err
	}
	return funded, nil
}

// DeclareWinners allocates claim rights against a tournament's pool. One-time
// per tournament, submitter-gated, and bounded by the funded total. Moves no
// funds.
func (e *Engine) DeclareWinners(ctx context.Context, caller, tournamentID string, winners []string, shares []int64) error {
	l := e.tournamentLock(tournamentID)
	l.Lock()
	defer l.Unlock()

	return e.store.Atomic(ctx, func(tx Tx) error {
		return e.declare(ctx, tx, caller, tournamentID, winners, shares)
	})
}

func (e *Engine) declare(ctx context.Context, tx Tx, caller, tournamentID string, winners []string, shares []int64) error {
	cfg, err := tx.Config(ctx)
	if err != nil {
		return err
	}
	if cfg.Paused {
		return ErrPaused
	}
	ok, err := tx.IsSubmitter(ctx, caller)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUnauthorized
	}
	pool, _, err := tx.Pool(ctx, tournamentID)
	if err != nil {
		return err
	}
	if pool.Declared {
		return ErrAlreadyDeclared
	}
	if len(winners) != len(shares) {
		return ErrLengthMismatch
	}

	var total int64
	for _, share := range shares {
		if share < 0 {
			return ErrInvalidAmount
		}
		total += share
	}
	if total > pool.Total {
		return fmt.Errorf("%w: declared %d, pool holds %d", ErrExceedsPool, total, pool.Total)
	}

	for i, winner := range winners {
		if err := tx.SaveShare(ctx, Share{
			TournamentID: tournamentID,
			WinnerID:     winner,
			Amount:       shares[i],
		}); err != nil {
			return err
		}
	}

	pool.TournamentID = tournamentID
	pool.Declared = true
	pool.DeclaredTotal = total
	if err := tx.SavePool(ctx, pool); err != nil {
		return err
	}
	return tx.AppendEvent(ctx, newEvent(EventWinnersDeclared, tournamentID, caller, cfg.RewardAsset, total, map[string]any{
		"winner_count": len(winners),
		"remainder":    pool.Total - total,
	}))
}

// SettleTournament runs the reward allocator over the tournament's current
// pool total and declares the result. Submitter-gated like DeclareWinners.
func (e *Engine) SettleTournament(ctx context.Context, caller, tournamentID string, results []ParticipantResult) (Distribution, error) {
	l := e.tournamentLock(tournamentID)
	l.Lock()
	defer l.Unlock()

	var dist Distribution
	err := e.store.Atomic(ctx, func(tx Tx) error {
		pool, _, err := tx.Pool(ctx, tournamentID)
		if err != nil {
			return err
		}
		dist, err = ComputeDistribution(results, pool.Total)
		if err != nil {
			return err
		}
		winners := make([]string, len(dist.Allocations))
		shares := make([]int64, len(dist.Allocations))
		for i, alloc := range dist.Allocations {
			winners[i] = alloc.ParticipantID
			shares[i] = alloc.Amount
		}
		return e.declare(ctx, tx, caller, tournamentID, winners, shares)
	})
	if err != nil {
		return Distribution{}, err
	}
	return dist, nil
}

// ClaimReward pays out the caller's declared share exactly once. The share is
// marked claimed before the funds move; even if the payout step could re-enter
// the engine, a second claim would already see Claimed == true.
func (e *Engine) ClaimReward(ctx context.Context, caller, tournamentID string) (Share, error) {
	l := e.tournamentLock(tournamentID)
	l.Lock()
	defer l.Unlock()

	var claimed Share
	err := e.store.Atomic(ctx, func(tx Tx) error {
		cfg, err := tx.Config(ctx)
		if err != nil {
			return err
		}
		if cfg.Paused {
			return ErrPaused
		}
		pool, _, err := tx.Pool(ctx, tournamentID)
		if err != nil {
			return err
		}
		if !pool.Declared {
			return ErrNotDeclared
		}
		share, ok, err := tx.Share(ctx, tournamentID, caller)
		if err != nil {
			return err
		}
		if ok && share.Claimed {
			return ErrAlreadyClaimed
		}
		if !ok || share.Amount == 0 {
			return ErrNoAllocation
		}

		// Record claimed, then pay.
		share.Claimed = true
		share.ClaimedAt = time.Now().UTC()
		if err := tx.SaveShare(ctx, share); err != nil {
			return err
		}
		if err := tx.Move(ctx, cfg.RewardAsset, cfg.PoolID, caller, share.Amount); err != nil {
			return err
		}

		pool.Total -= share.Amount
		pool.DeclaredTotal -= share.Amount
		if err := tx.SavePool(ctx, pool); err != nil {
			return err
		}

		claimed = share
		return tx.AppendEvent(ctx, newEvent(EventRewardClaimed, tournamentID, caller, cfg.RewardAsset, share.Amount, nil))
	})
	if err != nil {
		return Share{}, err
	}
	return claimed, nil
}

// Pause freezes declarations and claims. Admin only; fails if already paused.
func (e *Engine) Pause(ctx context.Context, caller string) error {
	return e.setPaused(ctx, caller, true)
}

// Unpause lifts the freeze. Admin only; fails if not paused.
func (e *Engine) Unpause(ctx context.Context, caller string) error {
	return e.setPaused(ctx, caller, false)
}

func (e *Engine) setPaused(ctx context.Context, caller string, paused bool) error {
	return e.store.Atomic(ctx, func(tx Tx) error {
		cfg, err := tx.Config(ctx)
		if err != nil {
			return err
		}
		if err := requireAdmin(cfg, caller); err != nil {
			return err
		}
		if paused && cfg.Paused {
			return ErrPaused
		}
		if !paused && !cfg.Paused {
			return ErrNotPaused
		}
		cfg.Paused = paused
		if err := tx.SaveConfig(ctx, cfg); err != nil {
			return err
		}
		evType := EventPaused
		if !paused {
			evType = EventUnpaused
		}
		return tx.AppendEvent(ctx, newEvent(evType, "", caller, "", 0, nil))
	})
}

// PoolStatus returns the prize-pool record for a tournament. A tournament
// with no funding yet reports a zero pool.
func (e *Engine) PoolStatus(ctx context.Context, tournamentID string) (Pool, error) {
	pool, _, err := e.store.Pool(ctx, tournamentID)
	if err != nil {
		return Pool{}, err
	}
	pool.TournamentID = tournamentID
	return pool, nil
}

// Shares lists the declared winner shares for a tournament.
func (e *Engine) Shares(ctx context.Context, tournamentID string) ([]Share, error) {
	return e.store.Shares(ctx, tournamentID)
}
