package store

import (
	"context"

	model "auction-house/internal/models"

	"github.com/shopspring/decimal"
)

// AuctionLedger is durable storage for auctions, bids and user balances.
// Rows are only ever mutated through a Tx so that a bid or a settlement is
// visible atomically or not at all.
type AuctionLedger interface {
	// Begin opens a unit of work. Every returned Tx must be finished with
	// exactly one Commit or Rollback.
	Begin(ctx context.Context) (Tx, error)

	CreateAuction(a model.Auction) error
	GetAuction(auctionID string) (model.Auction, error)
	ListAuctions(status model.AuctionStatus) []model.Auction
	GetBidsByAuction(auctionID string) ([]model.Bid, error)
	HighestBid(auctionID string) (model.Bid, bool)

	CreateAccount(userID string, available decimal.Decimal) error
	GetBalance(userID string) (model.Balance, error)
}

// Tx is a pessimistically locked unit of work. ForUpdate calls take an
// exclusive row lock held until Commit or Rollback; writes are staged and
// applied atomically on Commit. Locks must be taken in a fixed order
// (auction row, then bidder row, then previous-leader row) to keep
// lock-ordering deadlocks out of the common path.
type Tx interface {
	AuctionForUpdate(ctx context.Context, auctionID string) (model.Auction, error)
	BalanceForUpdate(ctx context.Context, userID string) (model.Balance, error)

	// HighestBid returns the committed leading bid for the auction, ranked
	// by amount descending then earliest placement.
	HighestBid(auctionID string) (model.Bid, bool)

	SetAuction(a model.Auction)
	SetBalance(b model.Balance)
	InsertBid(b model.Bid)

	Commit() error
	Rollback()
}
