package settlement

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Engine exposes the three settlement components over a Store. All mutating
// operations run inside Store.Atomic under a per-tournament lock, so a fund
// and a declaration for the same tournament can never validate against stale
// state even when the store itself is only call-atomic.
type Engine struct {
	store Store

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewEngine constructs an engine over the given store.
func NewEngine(store Store) *Engine {
	return &Engine{
		store: store,
		locks: make(map[string]*sync.Mutex),
	}
}

// Init creates the ledger configuration on first boot and seeds the admin
// into the result-submitter set. An existing configuration is left untouched.
func (e *Engine) Init(ctx context.Context, cfg Config) error {
	if cfg.AdminID == "" {
		return fmt.Errorf("%w: admin identity is required", ErrUnauthorized)
	}
	if cfg.FeeBasisPoints < 0 || cfg.FeeBasisPoints > MaxBasisPoints {
		return ErrInvalidBasisPoints
	}
	return e.store.Atomic(ctx, func(tx Tx) error {
		if _, err := tx.Config(ctx); err == nil {
			return nil // already initialized
		}
		if err := tx.SaveConfig(ctx, cfg); err != nil {
			return err
		}
		// The admin is a valid result submitter from creation.
		return tx.AddSubmitter(ctx, cfg.AdminID)
	})
}

// Config returns the current ledger configuration.
func (e *Engine) Config(ctx context.Context) (Config, error) {
	return e.store.Config(ctx)
}

func (e *Engine) tournamentLock(tournamentID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.locks[tournamentID]
	if !ok {
		l = &sync.Mutex{}
		e.locks[tournamentID] = l
	}
	return l
}

func requireAdmin(cfg Config, caller string) error {
	if caller == "" || caller != cfg.AdminID {
		return ErrUnauthorized
	}
	return nil
}

func newEvent(evType, tournamentID, actor, asset string, amount int64, payload map[string]any) Event {
	return Event{
		ID:           uuid.NewString(),
		Type:         evType,
		TournamentID: tournamentID,
		Actor:        actor,
		Asset:        asset,
		Amount:       amount,
		Payload:      payload,
		CreatedAt:    time.Now().UTC(),
	}
}

// SetEntryFee sets (or overwrites) the entry fee for a tournament. Admin only.
func (e *Engine) SetEntryFee(ctx context.Context, caller, tournamentID, name string, amount int64) (Fee, error) {
	if amount < 0 {
		return Fee{}, ErrInvalidAmount
	}
	fee := Fee{TournamentID: tournamentID, Name: name, Amount: amount}
	err := e.store.Atomic(ctx, func(tx Tx) error {
		cfg, err := tx.Config(ctx)
		if err != nil {
			return err
		}
		if err := requireAdmin(cfg, caller); err != nil {
			return err
		}
		if err := tx.SaveEntryFee(ctx, fee); err != nil {
			return err
		}
		return tx.AppendEvent(ctx, newEvent(EventFeeSet, tournamentID, caller, cfg.AcceptedAsset, amount, map[string]any{
			"name": name,
		}))
	})
	if err != nil {
		return Fee{}, err
	}
	return fee, nil
}

// EntryFee returns the fee schedule entry for a tournament, if set.
func (e *Engine) EntryFee(ctx context.Context, tournamentID string) (Fee, bool, error) {
	return e.store.EntryFee(ctx, tournamentID)
}

// PayEntryFee collects the tournament's entry fee from the caller, splits it
// between treasury and prize pool using floor basis-point math, and credits
// the pool share to the tournament's prize-pool record. The ledger account is
// a pure pass-through: its balance is identical before and after the call.
func (e *Engine) PayEntryFee(ctx context.Context, caller, tournamentID string) (PaymentReceipt, error) {
	l := e.tournamentLock(tournamentID)
	l.Lock()
	defer l.Unlock()

	var receipt PaymentReceipt
	err := e.store.Atomic(ctx, func(tx Tx) error {
		cfg, err := tx.Config(ctx)
		if err != nil {
			return err
		}
		fee, ok, err := tx.EntryFee(ctx, tournamentID)
		if err != nil {
			return err
		}
		if !ok || fee.Amount <= 0 {
			return ErrFeeNotSet
		}

		allowance, err := tx.Allowance(ctx, caller, LedgerAccount, cfg.AcceptedAsset)
		if err != nil {
			return err
		}
		if allowance < fee.Amount {
			return fmt.Errorf("%w: approved %d, fee is %d", ErrInsufficientAllowance, allowance, fee.Amount)
		}
		balance, err := tx.Balance(ctx, caller, cfg.AcceptedAsset)
		if err != nil {
			return err
		}
		if balance < fee.Amount {
			return fmt.Errorf("%w: balance %d, fee is %d", ErrInsufficientBalance, balance, fee.Amount)
		}

		platformShare := fee.Amount * cfg.FeeBasisPoints / MaxBasisPoints
		poolShare := fee.Amount - platformShare

		if err := tx.SetAllowance(ctx, caller, LedgerAccount, cfg.AcceptedAsset, allowance-fee.Amount); err != nil {
			return err
		}
		if err := tx.Move(ctx, cfg.AcceptedAsset, caller, LedgerAccount, fee.Amount); err != nil {
			return err
		}
		if err := tx.Move(ctx, cfg.AcceptedAsset, LedgerAccount, cfg.TreasuryID, platformShare); err != nil {
			return err
		}
		if err := tx.Move(ctx, cfg.AcceptedAsset, LedgerAccount, cfg.PoolID, poolShare); err != nil {
			return err
		}

		pool, _, err := tx.Pool(ctx, tournamentID)
		if err != nil {
			return err
		}
		pool.TournamentID = tournamentID
		pool.Total += poolShare
		if err := tx.SavePool(ctx, pool); err != nil {
			return err
		}

		receipt = PaymentReceipt{
			TournamentID:  tournamentID,
			Payer:         caller,
			Asset:         cfg.AcceptedAsset,
			Amount:        fee.Amount,
			PlatformShare: platformShare,
			PoolShare:     poolShare,
		}
		return tx.AppendEvent(ctx, newEvent(EventPaymentReceived, tournamentID, caller, cfg.AcceptedAsset, fee.Amount, map[string]any{
			"platform_share": platformShare,
			"pool_share":     poolShare,
		}))
	})
	if err != nil {
		return PaymentReceipt{}, err
	}
	return receipt, nil
}

// ConfigUpdate carries optional admin configuration changes; nil fields are
// left untouched. Each applied field emits its own changed-event.
type ConfigUpdate struct {
	AcceptedAsset  *string
	RewardAsset    *string
	TreasuryID     *string
	PoolID         *string
	FeeBasisPoints *int64
}

// UpdateConfig applies admin configuration changes. Admin only.
func (e *Engine) UpdateConfig(ctx context.Context, caller string, update ConfigUpdate) (Config, error) {
	if update.FeeBasisPoints != nil && (*update.FeeBasisPoints < 0 || *update.FeeBasisPoints > MaxBasisPoints) {
		return Config{}, ErrInvalidBasisPoints
	}
	var updated Config
	err := e.store.Atomic(ctx, func(tx Tx) error {
		cfg, err := tx.Config(ctx)
		if err != nil {
			return err
		}
		if err := requireAdmin(cfg, caller); err != nil {
			return err
		}

		type change struct {
			evType string
			from   any
			to     any
		}
		var changes []change
		if update.AcceptedAsset != nil && *update.AcceptedAsset != cfg.AcceptedAsset {
			changes = append(changes, change{EventAcceptedAssetChanged, cfg.AcceptedAsset, *update.AcceptedAsset})
			cfg.AcceptedAsset = *update.AcceptedAsset
		}
		if update.RewardAsset != nil && *update.RewardAsset != cfg.RewardAsset {
			changes = append(changes, change{EventRewardAssetChanged, cfg.RewardAsset, *update.RewardAsset})
			cfg.RewardAsset = *update.RewardAsset
		}
		if update.TreasuryID != nil && *update.TreasuryID != cfg.TreasuryID {
			changes = append(changes, change{EventTreasuryChanged, cfg.TreasuryID, *update.TreasuryID})
			cfg.TreasuryID = *update.TreasuryID
		}
		if update.PoolID != nil && *update.PoolID != cfg.PoolID {
			changes = append(changes, change{EventPoolDestinationChanged, cfg.PoolID, *update.PoolID})
			cfg.PoolID = *update.PoolID
		}
		if update.FeeBasisPoints != nil && *update.FeeBasisPoints != cfg.FeeBasisPoints {
			changes = append(changes, change{EventFeeBasisPointsChanged, cfg.FeeBasisPoints, *update.FeeBasisPoints})
			cfg.FeeBasisPoints = *update.FeeBasisPoints
		}

		if len(changes) == 0 {
			updated = cfg
			return nil
		}
		if err := tx.SaveConfig(ctx, cfg); err != nil {
			return err
		}
		for _, ch := range changes {
			ev := newEvent(ch.evType, "", caller, "", 0, map[string]any{"from": ch.from, "to": ch.to})
			if err := tx.AppendEvent(ctx, ev); err != nil {
				return err
			}
		}
		updated = cfg
		return nil
	})
	if err != nil {
		return Config{}, err
	}
	return updated, nil
}

// TransferAdmin hands the admin identity to a new owner and seeds the new
// admin into the submitter set, matching the bootstrap behavior.
func (e *Engine) TransferAdmin(ctx context.Context, caller, newAdmin string) error {
	if newAdmin == "" {
		return fmt.Errorf("%w: new admin identity is required", ErrUnauthorized)
	}
	return e.store.Atomic(ctx, func(tx Tx) error {
		cfg, err := tx.Config(ctx)
		if err != nil {
			return err
		}
		if err := requireAdmin(cfg, caller); err != nil {
			return err
		}
		cfg.AdminID = newAdmin
		if err := tx.SaveConfig(ctx, cfg); err != nil {
			return err
		}
		if err := tx.AddSubmitter(ctx, newAdmin); err != nil {
			return err
		}
		return tx.AppendEvent(ctx, newEvent(EventAdminTransferred, "", caller, "", 0, map[string]any{
			"new_admin": newAdmin,
		}))
	})
}

// AddSubmitter authorizes an identity to declare tournament winners. Admin only.
func (e *Engine) AddSubmitter(ctx context.Context, caller, id string) error {
	return e.store.Atomic(ctx, func(tx Tx) error {
		cfg, err := tx.Config(ctx)
		if err != nil {
			return err
		}
		if err := requireAdmin(cfg, caller); err != nil {
			return err
		}
		if err := tx.AddSubmitter(ctx, id); err != nil {
			return err
		}
		return tx.AppendEvent(ctx, newEvent(EventSubmitterAdded, "", caller, "", 0, map[string]any{"submitter": id}))
	})
}

// RemoveSubmitter revokes a result submitter. Admin only.
func (e *Engine) RemoveSubmitter(ctx context.Context, caller, id string) error {
	return e.store.Atomic(ctx, func(tx Tx) error {
		cfg, err := tx.Config(ctx)
		if err != nil {
			return err
		}
		if err := requireAdmin(cfg, caller); err != nil {
			return err
		}
		if err := tx.RemoveSubmitter(ctx, id); err != nil {
			return err
		}
		return tx.AppendEvent(ctx, newEvent(EventSubmitterRemoved, "", caller, "", 0, map[string]any{"submitter": id}))
	})
}

// Submitters lists the authorized result submitters.
func (e *Engine) Submitters(ctx context.Context) ([]string, error) {
	return e.store.Submitters(ctx)
}

// RescueLedgerAsset moves an asset accidentally sent to the ledger account to
// a destination. The accepted asset is rejected so the fee-split accounting
// cannot be bypassed. Admin only.
func (e *Engine) RescueLedgerAsset(ctx context.Context, caller, asset, destination string, amount int64) error {
	return e.rescue(ctx, caller, asset, destination, amount, true)
}

// RescuePoolAsset is the prize-pool counterpart; it rejects the reward asset.
func (e *Engine) RescuePoolAsset(ctx context.Context, caller, asset, destination string, amount int64) error {
	return e.rescue(ctx, caller, asset, destination, amount, false)
}

func (e *Engine) rescue(ctx context.Context, caller, asset, destination string, amount int64, ledgerSide bool) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	return e.store.Atomic(ctx, func(tx Tx) error {
		cfg, err := tx.Config(ctx)
		if err != nil {
			return err
		}
		if err := requireAdmin(cfg, caller); err != nil {
			return err
		}
		source := LedgerAccount
		tracked := cfg.AcceptedAsset
		if !ledgerSide {
			source = cfg.PoolID
			tracked = cfg.RewardAsset
		}
		if asset == tracked {
			return fmt.Errorf("%w: %s", ErrInvalidAssetForRescue, asset)
		}
		if err := tx.Move(ctx, asset, source, destination, amount); err != nil {
			return err
		}
		return tx.AppendEvent(ctx, newEvent(EventRescueWithdrawn, "", caller, asset, amount, map[string]any{
			"source":      source,
			"destination": destination,
		}))
	})
}

// Approve grants the entry-fee ledger a transfer allowance on the caller's
// balance of the given asset. Overwrites any prior allowance.
func (e *Engine) Approve(ctx context.Context, caller, asset string, amount int64) error {
	if amount < 0 {
		return ErrInvalidAmount
	}
	return e.store.Atomic(ctx, func(tx Tx) error {
		if err := tx.SetAllowance(ctx, caller, LedgerAccount, asset, amount); err != nil {
			return err
		}
		return tx.AppendEvent(ctx, newEvent(EventAllowanceApproved, "", caller, asset, amount, nil))
	})
}

// CreditAccount credits a holder's balance. Admin only; the deposit worker
// uses the same store primitive directly with its own dedup bookkeeping.
func (e *Engine) CreditAccount(ctx context.Context, caller, holder, asset string, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	return e.store.Atomic(ctx, func(tx Tx) error {
		cfg, err := tx.Config(ctx)
		if err != nil {
			return err
		}
		if err := requireAdmin(cfg, caller); err != nil {
			return err
		}
		if err := tx.Credit(ctx, holder, asset, amount); err != nil {
			return err
		}
		return tx.AppendEvent(ctx, newEvent(EventDepositCredited, "", caller, asset, amount, map[string]any{
			"holder": holder,
		}))
	})
}

// AccountOf reports a holder's balance of an asset and the allowance
// currently granted to the ledger.
func (e *Engine) AccountOf(ctx context.Context, holder, asset string) (Account, error) {
	balance, err := e.store.Balance(ctx, holder, asset)
	if err != nil {
		return Account{}, err
	}
	allowance, err := e.store.Allowance(ctx, holder, LedgerAccount, asset)
	if err != nil {
		return Account{}, err
	}
	return Account{Holder: holder, Asset: asset, Balance: balance, LedgerAllowance: allowance}, nil
}

// Events returns the settlement log, optionally filtered by tournament.
func (e *Engine) Events(ctx context.Context, tournamentID string, limit int) ([]Event, error) {
	return e.store.Events(ctx, tournamentID, limit)
}
