package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"auction-house/internal/auctionerrors"
	model "auction-house/internal/models"

	"github.com/shopspring/decimal"
)

// DefaultLockWait bounds how long a unit of work blocks on a row lock
// before failing with a retryable error.
const DefaultLockWait = 3 * time.Second

// MemStore is a concurrency-safe in-memory implementation of AuctionLedger.
// Row-level exclusivity comes from a keyed mutex per auction/balance row;
// the struct-level mutex only guards the maps themselves.
type MemStore struct {
	mu       sync.RWMutex
	auctions map[string]model.Auction   // key: auctionID
	bids     map[string][]model.Bid     // key: auctionID -> bids in placement order
	balances map[string]model.Balance   // key: userID
	rowLocks *keyedMutex
	lockWait time.Duration
}

// NewMemStore creates a new in-memory store instance
func NewMemStore() *MemStore {
	return &MemStore{
		auctions: make(map[string]model.Auction),
		bids:     make(map[string][]model.Bid),
		balances: make(map[string]model.Balance),
		rowLocks: newKeyedMutex(),
		lockWait: DefaultLockWait,
	}
}

// SetLockWait overrides the bounded lock wait. Intended for tests that
// exercise lock-timeout behavior without multi-second sleeps.
func (s *MemStore) SetLockWait(d time.Duration) {
	s.lockWait = d
}

// Begin opens a new unit of work against the store.
func (s *MemStore) Begin(ctx context.Context) (Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	return &memTx{
		store:    s,
		ctx:      ctx,
		auctions: make(map[string]model.Auction),
		balances: make(map[string]model.Balance),
	}, nil
}

// CreateAuction inserts a new auction row.
func (s *MemStore) CreateAuction(a model.Auction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.auctions[a.AuctionID]; ok {
		return fmt.Errorf("create auction %s: duplicate id", a.AuctionID)
	}
	s.auctions[a.AuctionID] = a
	return nil
}

// GetAuction returns a snapshot of an auction row.
func (s *MemStore) GetAuction(auctionID string) (model.Auction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.auctions[auctionID]
	if !ok {
		return model.Auction{}, fmt.Errorf("get auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
	}
	return a, nil
}

// ListAuctions returns auctions filtered by status; an empty status
// returns every auction.
func (s *MemStore) ListAuctions(status model.AuctionStatus) []model.Auction {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Auction, 0, len(s.auctions))
	for _, a := range s.auctions {
		if status == "" || a.Status == status {
			out = append(out, a)
		}
	}
	return out
}

// GetBidsByAuction returns a copy of all committed bids for an auction in
// placement order.
func (s *MemStore) GetBidsByAuction(auctionID string) ([]model.Bid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.auctions[auctionID]; !ok {
		return nil, fmt.Errorf("get bids for auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
	}
	return append([]model.Bid(nil), s.bids[auctionID]...), nil
}

// HighestBid returns the committed leading bid for an auction, if any.
func (s *MemStore) HighestBid(auctionID string) (model.Bid, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return highestOf(s.bids[auctionID])
}

// CreateAccount creates a ledger balance row for a user.
func (s *MemStore) CreateAccount(userID string, available decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.balances[userID]; ok {
		return fmt.Errorf("create account %s: %w", userID, auctionerrors.ErrAccountExists)
	}
	s.balances[userID] = model.Balance{UserID: userID, Available: available}
	return nil
}

// GetBalance returns a snapshot of a user's balance row.
func (s *MemStore) GetBalance(userID string) (model.Balance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.balances[userID]
	if !ok {
		return model.Balance{}, fmt.Errorf("get balance %s: %w", userID, auctionerrors.ErrUserNotFound)
	}
	return b, nil
}

func highestOf(bids []model.Bid) (model.Bid, bool) {
	if len(bids) == 0 {
		return model.Bid{}, false
	}
	leader := bids[0]
	for _, b := range bids[1:] {
		if b.Outranks(leader) {
			leader = b
		}
	}
	return leader, true
}

// memTx stages writes against locked rows and applies them on Commit.
type memTx struct {
	store *MemStore
	ctx   context.Context

	held     []string // lock keys in acquisition order
	auctions map[string]model.Auction
	balances map[string]model.Balance
	inserted []model.Bid
	done     bool
}

func (t *memTx) acquire(key string) error {
	for _, h := range t.held {
		if h == key {
			return nil // row already locked by this unit of work
		}
	}
	if err := t.store.rowLocks.acquire(t.ctx, key, t.store.lockWait); err != nil {
		return err
	}
	t.held = append(t.held, key)
	return nil
}

// AuctionForUpdate locks an auction row and returns its current value.
func (t *memTx) AuctionForUpdate(ctx context.Context, auctionID string) (model.Auction, error) {
	if err := t.acquire("auction/" + auctionID); err != nil {
		return model.Auction{}, err
	}
	if a, ok := t.auctions[auctionID]; ok {
		return a, nil
	}
	return t.store.GetAuction(auctionID)
}

// BalanceForUpdate locks a balance row and returns its current value.
func (t *memTx) BalanceForUpdate(ctx context.Context, userID string) (model.Balance, error) {
	if err := t.acquire("balance/" + userID); err != nil {
		return model.Balance{}, err
	}
	if b, ok := t.balances[userID]; ok {
		return b, nil
	}
	b, err := t.store.GetBalance(userID)
	if err != nil {
		return model.Balance{}, fmt.Errorf("balance for update %s: %w", userID, auctionerrors.ErrBidderNotFound)
	}
	return b, nil
}

func (t *memTx) HighestBid(auctionID string) (model.Bid, bool) {
	return t.store.HighestBid(auctionID)
}

func (t *memTx) SetAuction(a model.Auction) {
	a.Version++
	t.auctions[a.AuctionID] = a
}

func (t *memTx) SetBalance(b model.Balance) {
	t.balances[b.UserID] = b
}

func (t *memTx) InsertBid(b model.Bid) {
	t.inserted = append(t.inserted, b)
}

// Commit applies every staged write under the store mutex, so concurrent
// readers observe all of the unit of work or none of it.
func (t *memTx) Commit() error {
	if t.done {
		return fmt.Errorf("commit: transaction already finished")
	}

	t.store.mu.Lock()
	for id, a := range t.auctions {
		t.store.auctions[id] = a
	}
	for id, b := range t.balances {
		t.store.balances[id] = b
	}
	for _, b := range t.inserted {
		t.store.bids[b.AuctionID] = append(t.store.bids[b.AuctionID], b)
	}
	t.store.mu.Unlock()

	t.finish()
	return nil
}

// Rollback discards staged writes. Safe to call after Commit; the second
// finish is a no-op, which keeps `defer tx.Rollback()` usable.
func (t *memTx) Rollback() {
	if t.done {
		return
	}
	t.finish()
}

func (t *memTx) finish() {
	t.done = true
	for i := len(t.held) - 1; i >= 0; i-- {
		t.store.rowLocks.release(t.held[i])
	}
	t.held = nil
}
