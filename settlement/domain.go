// Package settlement implements the tournament prize-settlement engine:
// entry-fee collection and splitting, prize-pool escrow with one-time winner
// declaration and one-time claims, and the rank-weighted reward allocator.
// The package is transport-free; persistence goes through the Store interface.
package settlement

import "time"

// LedgerAccount is the internal pass-through account entry fees move across.
// Payers grant their transfer allowance to this identity.
const LedgerAccount = "entry-fee-ledger"

// MaxBasisPoints is 100.00% expressed in basis points.
const MaxBasisPoints = 10000

// Config is the process-wide ledger configuration. It is created once at
// bootstrap and mutated only by the admin identity it names.
type Config struct {
	AdminID         string `json:"admin_id"`
	AcceptedAsset   string `json:"accepted_asset"`    // asset entry fees are paid in
	RewardAsset     string `json:"reward_asset"`      // asset prizes are paid out in
	TreasuryID      string `json:"treasury_id"`       // platform-share destination
	PoolID          string `json:"pool_id"`           // prize-pool escrow account
	FeeBasisPoints  int64  `json:"fee_basis_points"`  // 0..10000
	Paused          bool   `json:"paused"`
}

// Fee is the per-tournament entry fee schedule entry.
type Fee struct {
	TournamentID string `json:"tournament_id"`
	Name         string `json:"name"` // display name, also used for archive keys
	Amount       int64  `json:"amount"`
}

// Pool is the per-tournament prize-pool record. Total only grows through
// funding (and entry-fee pool shares) and shrinks through claims.
type Pool struct {
	TournamentID  string `json:"tournament_id"`
	Total         int64  `json:"total"`
	Declared      bool   `json:"declared"` // one-way false -> true
	DeclaredTotal int64  `json:"declared_total"`
	Archived      bool   `json:"archived"`
}

// Remainder is the portion of the pool left unallocated after declaration,
// typically floor-rounding dust from the allocator. Its destination is an
// open product question; it stays in the pool and is reported as-is.
func (p Pool) Remainder() int64 {
	if !p.Declared {
		return 0
	}
	return p.Total - p.DeclaredTotal
}

// Share is one winner's declared allocation and claim state.
type Share struct {
	TournamentID string    `json:"tournament_id"`
	WinnerID     string    `json:"winner_id"`
	Amount       int64     `json:"amount"`
	Claimed      bool      `json:"claimed"`
	ClaimedAt    time.Time `json:"claimed_at,omitempty"`
}

// PaymentReceipt describes a completed entry-fee payment and its split.
type PaymentReceipt struct {
	TournamentID  string `json:"tournament_id"`
	Payer         string `json:"payer"`
	Asset         string `json:"asset"`
	Amount        int64  `json:"amount"`
	PlatformShare int64  `json:"platform_share"`
	PoolShare     int64  `json:"pool_share"`
}

// Account is a holder's view of one asset: balance plus the allowance
// currently granted to the entry-fee ledger.
type Account struct {
	Holder          string `json:"holder"`
	Asset           string `json:"asset"`
	Balance         int64  `json:"balance"`
	LedgerAllowance int64  `json:"ledger_allowance"`
}

// Event is one entry of the append-only settlement log. The log alone is
// sufficient to replay ledger state.
type Event struct {
	ID           string         `json:"id"`
	Type         string         `json:"type"`
	TournamentID string         `json:"tournament_id,omitempty"`
	Actor        string         `json:"actor,omitempty"`
	Asset        string         `json:"asset,omitempty"`
	Amount       int64          `json:"amount,omitempty"`
	Payload      map[string]any `json:"payload,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// Event types.
const (
	EventFeeSet                 = "fee.set"
	EventPaymentReceived        = "payment.received"
	EventPoolFunded             = "pool.funded"
	EventWinnersDeclared        = "winners.declared"
	EventRewardClaimed          = "reward.claimed"
	EventPaused                 = "ledger.paused"
	EventUnpaused               = "ledger.unpaused"
	EventRescueWithdrawn        = "rescue.withdrawn"
	EventSubmitterAdded         = "submitter.added"
	EventSubmitterRemoved       = "submitter.removed"
	EventAdminTransferred       = "admin.transferred"
	EventAllowanceApproved      = "allowance.approved"
	EventDepositCredited        = "deposit.credited"
	EventAcceptedAssetChanged   = "config.accepted_asset_changed"
	EventRewardAssetChanged     = "config.reward_asset_changed"
	EventTreasuryChanged        = "config.treasury_changed"
	EventPoolDestinationChanged = "config.pool_destination_changed"
	EventFeeBasisPointsChanged  = "config.fee_basis_points_changed"
)
