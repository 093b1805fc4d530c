// Package storepg implements settlement.Store on Postgres via GORM. Atomic
// maps to a database transaction; reads that precede writes take FOR UPDATE
// row locks so concurrent settlements cannot validate against stale state.
package storepg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"prize-settlement-service/models"
	"prize-settlement-service/settlement"
)

const configRowID = 1

// Store adapts a *gorm.DB to settlement.Store.
type Store struct {
	tx
}

// New wraps the given database handle.
func New(db *gorm.DB) *Store {
	return &Store{tx: tx{db: db}}
}

// Atomic runs fn inside a single database transaction.
func (s *Store) Atomic(ctx context.Context, fn func(tx settlement.Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(txdb *gorm.DB) error {
		return fn(&tx{db: txdb, locking: true})
	})
}

type tx struct {
	db      *gorm.DB
	locking bool
}

func (t *tx) q(ctx context.Context) *gorm.DB {
	db := t.db.WithContext(ctx)
	if t.locking {
		db = db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return db
}

// upsert inserts value or, on conflict with the key columns, updates only the
// listed columns. Audit columns like created_at and archived_at survive.
func upsert(db *gorm.DB, keyCols, updateCols []string, value any) error {
	columns := make([]clause.Column, len(keyCols))
	for i, c := range keyCols {
		columns[i] = clause.Column{Name: c}
	}
	return db.Clauses(clause.OnConflict{
		Columns:   columns,
		DoUpdates: clause.AssignmentColumns(updateCols),
	}).Create(value).Error
}

func (t *tx) Config(ctx context.Context) (settlement.Config, error) {
	var row models.LedgerConfig
	if err := t.q(ctx).First(&row, "id = ?", configRowID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return settlement.Config{}, settlement.ErrNotInitialized
		}
		return settlement.Config{}, fmt.Errorf("load ledger config: %w", err)
	}
	return settlement.Config{
		AdminID:        row.AdminID,
		AcceptedAsset:  row.AcceptedAsset,
		RewardAsset:    row.RewardAsset,
		TreasuryID:     row.TreasuryID,
		PoolID:         row.PoolID,
		FeeBasisPoints: row.FeeBasisPoints,
		Paused:         row.Paused,
	}, nil
}

func (t *tx) SaveConfig(ctx context.Context, cfg settlement.Config) error {
	row := models.LedgerConfig{
		ID:             configRowID,
		AdminID:        cfg.AdminID,
		AcceptedAsset:  cfg.AcceptedAsset,
		RewardAsset:    cfg.RewardAsset,
		TreasuryID:     cfg.TreasuryID,
		PoolID:         cfg.PoolID,
		FeeBasisPoints: cfg.FeeBasisPoints,
		Paused:         cfg.Paused,
	}
	return upsert(t.db.WithContext(ctx), []string{"id"},
		[]string{"admin_id", "accepted_asset", "reward_asset", "treasury_id", "pool_id", "fee_basis_points", "paused", "updated_at"}, &row)
}

func (t *tx) EntryFee(ctx context.Context, tournamentID string) (settlement.Fee, bool, error) {
	var row models.EntryFee
	if err := t.q(ctx).First(&row, "tournament_id = ?", tournamentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return settlement.Fee{}, false, nil
		}
		return settlement.Fee{}, false, fmt.Errorf("load entry fee: %w", err)
	}
	return settlement.Fee{TournamentID: row.TournamentID, Name: row.Name, Amount: row.Amount}, true, nil
}

func (t *tx) SaveEntryFee(ctx context.Context, fee settlement.Fee) error {
	row := models.EntryFee{TournamentID: fee.TournamentID, Name: fee.Name, Amount: fee.Amount}
	return upsert(t.db.WithContext(ctx), []string{"tournament_id"},
		[]string{"name", "amount", "updated_at"}, &row)
}

func poolFromRow(row models.PrizePool) settlement.Pool {
	return settlement.Pool{
		TournamentID:  row.TournamentID,
		Total:         row.Total,
		Declared:      row.Declared,
		DeclaredTotal: row.DeclaredTotal,
		Archived:      row.Archived,
	}
}

func (t *tx) Pool(ctx context.Context, tournamentID string) (settlement.Pool, bool, error) {
	var row models.PrizePool
	if err := t.q(ctx).First(&row, "tournament_id = ?", tournamentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return settlement.Pool{}, false, nil
		}
		return settlement.Pool{}, false, fmt.Errorf("load prize pool: %w", err)
	}
	return poolFromRow(row), true, nil
}

func (t *tx) SavePool(ctx context.Context, pool settlement.Pool) error {
	row := models.PrizePool{
		TournamentID:  pool.TournamentID,
		Total:         pool.Total,
		Declared:      pool.Declared,
		DeclaredTotal: pool.DeclaredTotal,
		Archived:      pool.Archived,
	}
	return upsert(t.db.WithContext(ctx), []string{"tournament_id"},
		[]string{"total", "declared", "declared_total", "archived", "updated_at"}, &row)
}

func (t *tx) ListPools(ctx context.Context) ([]settlement.Pool, error) {
	var rows []models.PrizePool
	if err := t.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list prize pools: %w", err)
	}
	pools := make([]settlement.Pool, len(rows))
	for i, row := range rows {
		pools[i] = poolFromRow(row)
	}
	return pools, nil
}

func shareFromRow(row models.WinnerShare) settlement.Share {
	share := settlement.Share{
		TournamentID: row.TournamentID,
		WinnerID:     row.WinnerID,
		Amount:       row.Amount,
		Claimed:      row.Claimed,
	}
	if row.ClaimedAt != nil {
		share.ClaimedAt = *row.ClaimedAt
	}
	return share
}

func (t *tx) Share(ctx context.Context, tournamentID, winnerID string) (settlement.Share, bool, error) {
	var row models.WinnerShare
	err := t.q(ctx).First(&row, "tournament_id = ? AND winner_id = ?", tournamentID, winnerID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return settlement.Share{}, false, nil
		}
		return settlement.Share{}, false, fmt.Errorf("load winner share: %w", err)
	}
	return shareFromRow(row), true, nil
}

func (t *tx) SaveShare(ctx context.Context, share settlement.Share) error {
	row := models.WinnerShare{
		TournamentID: share.TournamentID,
		WinnerID:     share.WinnerID,
		Amount:       share.Amount,
		Claimed:      share.Claimed,
	}
	if share.Claimed && !share.ClaimedAt.IsZero() {
		claimedAt := share.ClaimedAt
		row.ClaimedAt = &claimedAt
	}
	return upsert(t.db.WithContext(ctx), []string{"tournament_id", "winner_id"},
		[]string{"amount", "claimed", "claimed_at", "updated_at"}, &row)
}

func (t *tx) Shares(ctx context.Context, tournamentID string) ([]settlement.Share, error) {
	var rows []models.WinnerShare
	if err := t.db.WithContext(ctx).Where("tournament_id = ?", tournamentID).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list winner shares: %w", err)
	}
	shares := make([]settlement.Share, len(rows))
	for i, row := range rows {
		shares[i] = shareFromRow(row)
	}
	return shares, nil
}

func (t *tx) IsSubmitter(ctx context.Context, id string) (bool, error) {
	var count int64
	err := t.db.WithContext(ctx).Model(&models.ResultSubmitter{}).
		Where("identity = ?", id).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check submitter: %w", err)
	}
	return count > 0, nil
}

func (t *tx) AddSubmitter(ctx context.Context, id string) error {
	row := models.ResultSubmitter{Identity: id}
	return t.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error
}

func (t *tx) RemoveSubmitter(ctx context.Context, id string) error {
	return t.db.WithContext(ctx).Delete(&models.ResultSubmitter{}, "identity = ?", id).Error
}

func (t *tx) Submitters(ctx context.Context) ([]string, error) {
	var rows []models.ResultSubmitter
	if err := t.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list submitters: %w", err)
	}
	ids := make([]string, len(rows))
	for i, row := range rows {
		ids[i] = row.Identity
	}
	return ids, nil
}

func (t *tx) Balance(ctx context.Context, holder, asset string) (int64, error) {
	var row models.AssetAccount
	err := t.q(ctx).First(&row, "holder = ? AND asset = ?", holder, asset).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("load balance: %w", err)
	}
	return row.Balance, nil
}

func (t *tx) Allowance(ctx context.Context, owner, spender, asset string) (int64, error) {
	var row models.AssetAllowance
	err := t.q(ctx).First(&row, "owner = ? AND spender = ? AND asset = ?", owner, spender, asset).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("load allowance: %w", err)
	}
	return row.Amount, nil
}

func (t *tx) SetAllowance(ctx context.Context, owner, spender, asset string, amount int64) error {
	if amount < 0 {
		return settlement.ErrInvalidAmount
	}
	row := models.AssetAllowance{Owner: owner, Spender: spender, Asset: asset, Amount: amount}
	return upsert(t.db.WithContext(ctx), []string{"owner", "spender", "asset"},
		[]string{"amount", "updated_at"}, &row)
}

func (t *tx) Credit(ctx context.Context, holder, asset string, amount int64) error {
	if amount <= 0 {
		return settlement.ErrInvalidAmount
	}
	row := models.AssetAccount{Holder: holder, Asset: asset, Balance: amount}
	return t.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "holder"}, {Name: "asset"}},
		DoUpdates: clause.Assignments(map[string]any{
			"balance": gorm.Expr("asset_accounts.balance + ?", amount),
		}),
	}).Create(&row).Error
}

func (t *tx) Move(ctx context.Context, asset, from, to string, amount int64) error {
	if amount < 0 {
		return settlement.ErrInvalidAmount
	}
	if amount == 0 {
		return nil
	}
	// Conditional debit: the balance guard in the WHERE clause makes the
	// debit atomic without a prior read.
	res := t.db.WithContext(ctx).Model(&models.AssetAccount{}).
		Where("holder = ? AND asset = ? AND balance >= ?", from, asset, amount).
		Update("balance", gorm.Expr("balance - ?", amount))
	if res.Error != nil {
		return fmt.Errorf("debit %s: %w", from, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s has less than %d of %s", settlement.ErrInsufficientBalance, from, amount, asset)
	}
	return t.Credit(ctx, to, asset, amount)
}

func (t *tx) AppendEvent(ctx context.Context, ev settlement.Event) error {
	row := models.SettlementEvent{
		ID:           ev.ID,
		Type:         ev.Type,
		TournamentID: ev.TournamentID,
		Actor:        ev.Actor,
		Asset:        ev.Asset,
		Amount:       ev.Amount,
		CreatedAt:    ev.CreatedAt,
	}
	if len(ev.Payload) > 0 {
		payload, err := json.Marshal(ev.Payload)
		if err != nil {
			return fmt.Errorf("marshal event payload: %w", err)
		}
		row.Payload = string(payload)
	}
	return t.db.WithContext(ctx).Create(&row).Error
}

func (t *tx) Events(ctx context.Context, tournamentID string, limit int) ([]settlement.Event, error) {
	query := t.db.WithContext(ctx).Model(&models.SettlementEvent{}).Order("seq ASC")
	if tournamentID != "" {
		query = query.Where("tournament_id = ?", tournamentID)
	}
	var rows []models.SettlementEvent
	if limit > 0 {
		// Most recent N, returned oldest-first.
		sub := t.db.WithContext(ctx).Model(&models.SettlementEvent{}).Order("seq DESC").Limit(limit)
		if tournamentID != "" {
			sub = sub.Where("tournament_id = ?", tournamentID)
		}
		if err := sub.Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("list events: %w", err)
		}
		for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
			rows[i], rows[j] = rows[j], rows[i]
		}
	} else if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}

	events := make([]settlement.Event, len(rows))
	for i, row := range rows {
		ev := settlement.Event{
			ID:           row.ID,
			Type:         row.Type,
			TournamentID: row.TournamentID,
			Actor:        row.Actor,
			Asset:        row.Asset,
			Amount:       row.Amount,
			CreatedAt:    row.CreatedAt,
		}
		if row.Payload != "" {
			if err := json.Unmarshal([]byte(row.Payload), &ev.Payload); err != nil {
				return nil, fmt.Errorf("unmarshal event payload: %w", err)
			}
		}
		events[i] = ev
	}
	return events, nil
}
