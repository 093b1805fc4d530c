package settlement

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore is an in-memory Store used by the test suite and for local
// development without Postgres. Atomic works on a deep clone of the state and
// swaps it in only when the callback succeeds, so a failing operation leaves
// no partial writes behind.
type MemoryStore struct {
	mu    sync.Mutex
	state *memState
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: newMemState()}
}

func (s *MemoryStore) Atomic(ctx context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state.clone()
	if err := fn(&memTx{st: next}); err != nil {
		return err
	}
	s.state = next
	return nil
}

type memState struct {
	config     *Config
	fees       map[string]Fee
	pools      map[string]Pool
	shares     map[string]map[string]Share // tournamentID -> winnerID
	submitters map[string]bool
	balances   map[string]int64 // holder + "/" + asset
	allowances map[string]int64 // owner + "/" + spender + "/" + asset
	events     []Event
}

func newMemState() *memState {
	return &memState{
		fees:       make(map[string]Fee),
		pools:      make(map[string]Pool),
		shares:     make(map[string]map[string]Share),
		submitters: make(map[string]bool),
		balances:   make(map[string]int64),
		allowances: make(map[string]int64),
	}
}

func (st *memState) clone() *memState {
	next := newMemState()
	if st.config != nil {
		cfg := *st.config
		next.config = &cfg
	}
	for k, v := range st.fees {
		next.fees[k] = v
	}
	for k, v := range st.pools {
		next.pools[k] = v
	}
	for tid, byWinner := range st.shares {
		m := make(map[string]Share, len(byWinner))
		for w, sh := range byWinner {
			m[w] = sh
		}
		next.shares[tid] = m
	}
	for k, v := range st.submitters {
		next.submitters[k] = v
	}
	for k, v := range st.balances {
		next.balances[k] = v
	}
	for k, v := range st.allowances {
		next.allowances[k] = v
	}
	next.events = append(next.events, st.events...)
	return next
}

// memTx operates on a memState without locking; callers hold the store lock.
type memTx struct {
	st *memState
}

func (t *memTx) Config(ctx context.Context) (Config, error) {
	if t.st.config == nil {
		return Config{}, ErrNotInitialized
	}
	return *t.st.config, nil
}

func (t *memTx) SaveConfig(ctx context.Context, cfg Config) error {
	t.st.config = &cfg
	return nil
}

func (t *memTx) EntryFee(ctx context.Context, tournamentID string) (Fee, bool, error) {
	fee, ok := t.st.fees[tournamentID]
	return fee, ok, nil
}

func (t *memTx) SaveEntryFee(ctx context.Context, fee Fee) error {
	t.st.fees[fee.TournamentID] = fee
	return nil
}

func (t *memTx) Pool(ctx context.Context, tournamentID string) (Pool, bool, error) {
	pool, ok := t.st.pools[tournamentID]
	return pool, ok, nil
}

func (t *memTx) SavePool(ctx context.Context, pool Pool) error {
	t.st.pools[pool.TournamentID] = pool
	return nil
}

func (t *memTx) ListPools(ctx context.Context) ([]Pool, error) {
	pools := make([]Pool, 0, len(t.st.pools))
	for _, p := range t.st.pools {
		pools = append(pools, p)
	}
	return pools, nil
}

func (t *memTx) Share(ctx context.Context, tournamentID, winnerID string) (Share, bool, error) {
	byWinner, ok := t.st.shares[tournamentID]
	if !ok {
		return Share{}, false, nil
	}
	share, ok := byWinner[winnerID]
	return share, ok, nil
}

func (t *memTx) SaveShare(ctx context.Context, share Share) error {
	byWinner, ok := t.st.shares[share.TournamentID]
	if !ok {
		byWinner = make(map[string]Share)
		t.st.shares[share.TournamentID] = byWinner
	}
	byWinner[share.WinnerID] = share
	return nil
}

func (t *memTx) Shares(ctx context.Context, tournamentID string) ([]Share, error) {
	byWinner := t.st.shares[tournamentID]
	shares := make([]Share, 0, len(byWinner))
	for _, sh := range byWinner {
		shares = append(shares, sh)
	}
	return shares, nil
}

func (t *memTx) IsSubmitter(ctx context.Context, id string) (bool, error) {
	return t.st.submitters[id], nil
}

func (t *memTx) AddSubmitter(ctx context.Context, id string) error {
	t.st.submitters[id] = true
	return nil
}

func (t *memTx) RemoveSubmitter(ctx context.Context, id string) error {
	delete(t.st.submitters, id)
	return nil
}

func (t *memTx) Submitters(ctx context.Context) ([]string, error) {
	ids := make([]string, 0, len(t.st.submitters))
	for id := range t.st.submitters {
		ids = append(ids, id)
	}
	return ids, nil
}

func balanceKey(holder, asset string) string {
	return holder + "/" + asset
}

func allowanceKey(owner, spender, asset string) string {
	return owner + "/" + spender + "/" + asset
}

func (t *memTx) Balance(ctx context.Context, holder, asset string) (int64, error) {
	return t.st.balances[balanceKey(holder, asset)], nil
}

func (t *memTx) Allowance(ctx context.Context, owner, spender, asset string) (int64, error) {
	return t.st.allowances[allowanceKey(owner, spender, asset)], nil
}

func (t *memTx) SetAllowance(ctx context.Context, owner, spender, asset string, amount int64) error {
	if amount < 0 {
		return ErrInvalidAmount
	}
	t.st.allowances[allowanceKey(owner, spender, asset)] = amount
	return nil
}

func (t *memTx) Credit(ctx context.Context, holder, asset string, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	t.st.balances[balanceKey(holder, asset)] += amount
	return nil
}

func (t *memTx) Move(ctx context.Context, asset, from, to string, amount int64) error {
	if amount < 0 {
		return ErrInvalidAmount
	}
	fromKey := balanceKey(from, asset)
	if t.st.balances[fromKey] < amount {
		return fmt.Errorf("%w: %s holds %d of %s, need %d", ErrInsufficientBalance, from, t.st.balances[fromKey], asset, amount)
	}
	t.st.balances[fromKey] -= amount
	t.st.balances[balanceKey(to, asset)] += amount
	return nil
}

func (t *memTx) AppendEvent(ctx context.Context, ev Event) error {
	t.st.events = append(t.st.events, ev)
	return nil
}

func (t *memTx) Events(ctx context.Context, tournamentID string, limit int) ([]Event, error) {
	var events []Event
	for _, ev := range t.st.events {
		if tournamentID == "" || ev.TournamentID == tournamentID {
			events = append(events, ev)
		}
	}
	if limit > 0 && len(events) > limit {
		events = events[len(events)-limit:]
	}
	return events, nil
}

// Direct (single-call) Store methods; each takes the store lock on its own.

func (s *MemoryStore) direct() (*memTx, func()) {
	s.mu.Lock()
	return &memTx{st: s.state}, s.mu.Unlock
}

func (s *MemoryStore) Config(ctx context.Context) (Config, error) {
	tx, done := s.direct()
	defer done()
	return tx.Config(ctx)
}

func (s *MemoryStore) SaveConfig(ctx context.Context, cfg Config) error {
	tx, done := s.direct()
	defer done()
	return tx.SaveConfig(ctx, cfg)
}

func (s *MemoryStore) EntryFee(ctx context.Context, tournamentID string) (Fee, bool, error) {
	tx, done := s.direct()
	defer done()
	return tx.EntryFee(ctx, tournamentID)
}

func (s *MemoryStore) SaveEntryFee(ctx context.Context, fee Fee) error {
	tx, done := s.direct()
	defer done()
	return tx.SaveEntryFee(ctx, fee)
}

func (s *MemoryStore) Pool(ctx context.Context, tournamentID string) (Pool, bool, error) {
	tx, done := s.direct()
	defer done()
	return tx.Pool(ctx, tournamentID)
}

func (s *MemoryStore) SavePool(ctx context.Context, pool Pool) error {
	tx, done := s.direct()
	defer done()
	return tx.SavePool(ctx, pool)
}

func (s *MemoryStore) ListPools(ctx context.Context) ([]Pool, error) {
	tx, done := s.direct()
	defer done()
	return tx.ListPools(ctx)
}

func (s *MemoryStore) Share(ctx context.Context, tournamentID, winnerID string) (Share, bool, error) {
	tx, done := s.direct()
	defer done()
	return tx.Share(ctx, tournamentID, winnerID)
}

func (s *MemoryStore) SaveShare(ctx context.Context, share Share) error {
	tx, done := s.direct()
	defer done()
	return tx.SaveShare(ctx, share)
}

func (s *MemoryStore) Shares(ctx context.Context, tournamentID string) ([]Share, error) {
	tx, done := s.direct()
	defer done()
	return tx.Shares(ctx, tournamentID)
}

func (s *MemoryStore) IsSubmitter(ctx context.Context, id string) (bool, error) {
	tx, done := s.direct()
	defer done()
	return tx.IsSubmitter(ctx, id)
}

func (s *MemoryStore) AddSubmitter(ctx context.Context, id string) error {
	tx, done := s.direct()
	defer done()
	return tx.AddSubmitter(ctx, id)
}

func (s *MemoryStore) RemoveSubmitter(ctx context.Context, id string) error {
	tx, done := s.direct()
	defer done()
	return tx.RemoveSubmitter(ctx, id)
}

func (s *MemoryStore) Submitters(ctx context.Context) ([]string, error) {
	tx, done := s.direct()
	defer done()
	return tx.Submitters(ctx)
}

func (s *MemoryStore) Balance(ctx context.Context, holder, asset string) (int64, error) {
	tx, done := s.direct()
	defer done()
	return tx.Balance(ctx, holder, asset)
}

func (s *MemoryStore) Allowance(ctx context.Context, owner, spender, asset string) (int64, error) {
	tx, done := s.direct()
	defer done()
	return tx.Allowance(ctx, owner, spender, asset)
}

func (s *MemoryStore) SetAllowance(ctx context.Context, owner, spender, asset string, amount int64) error {
	tx, done := s.direct()
	defer done()
	return tx.SetAllowance(ctx, owner, spender, asset, amount)
}

func (s *MemoryStore) Credit(ctx context.Context, holder, asset string, amount int64) error {
	tx, done := s.direct()
	defer done()
	return tx.Credit(ctx, holder, asset, amount)
}

func (s *MemoryStore) Move(ctx context.Context, asset, from, to string, amount int64) error {
	tx, done := s.direct()
	defer done()
	return tx.Move(ctx, asset, from, to, amount)
}

func (s *MemoryStore) AppendEvent(ctx context.Context, ev Event) error {
	tx, done := s.direct()
	defer done()
	return tx.AppendEvent(ctx, ev)
}

func (s *MemoryStore) Events(ctx context.Context, tournamentID string, limit int) ([]Event, error) {
	tx, done := s.direct()
	defer done()
	return tx.Events(ctx, tournamentID, limit)
}
