package settlement

import "context"

// Tx is the persistence surface the engine mutates. Implementations must make
// every Atomic invocation all-or-nothing: either all writes performed inside
// the callback become visible together, or none do.
type Tx interface {
	// Ledger configuration (singleton).
	Config(ctx context.Context) (Config, error)
	SaveConfig(ctx context.Context, cfg Config) error

	// Entry-fee schedule.
	EntryFee(ctx context.Context, tournamentID string) (Fee, bool, error)
	SaveEntryFee(ctx context.Context, fee Fee) error

	// Prize pools and winner shares.
	Pool(ctx context.Context, tournamentID string) (Pool, bool, error)
	SavePool(ctx context.Context, pool Pool) error
	ListPools(ctx context.Context) ([]Pool, error)
	Share(ctx context.Context, tournamentID, winnerID string) (Share, bool, error)
	SaveShare(ctx context.Context, share Share) error
	Shares(ctx context.Context, tournamentID string) ([]Share, error)

	// Result submitter set.
	IsSubmitter(ctx context.Context, id string) (bool, error)
	AddSubmitter(ctx context.Context, id string) error
	RemoveSubmitter(ctx context.Context, id string) error
	Submitters(ctx context.Context) ([]string, error)

	// Asset ledger: balances, allowances, and transfers. Move fails with
	// ErrInsufficientBalance and leaves both accounts untouched.
	Balance(ctx context.Context, holder, asset string) (int64, error)
	Allowance(ctx context.Context, owner, spender, asset string) (int64, error)
	SetAllowance(ctx context.Context, owner, spender, asset string, amount int64) error
	Credit(ctx context.Context, holder, asset string, amount int64) error
	Move(ctx context.Context, asset, from, to string, amount int64) error

	// Append-only settlement log.
	AppendEvent(ctx context.Context, ev Event) error
	Events(ctx context.Context, tournamentID string, limit int) ([]Event, error)
}

// Store is a Tx whose individual calls are each atomic on their own, plus an
// Atomic scope grouping several calls into one unit.
type Store interface {
	Tx
	Atomic(ctx context.Context, fn func(tx Tx) error) error
}
