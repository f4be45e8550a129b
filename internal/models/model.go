package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AuctionStatus is the lifecycle state of an auction. Transitions are
// one-directional: ACTIVE -> ENDED or ACTIVE -> SETTLED, never back.
type AuctionStatus string

const (
	StatusActive  AuctionStatus = "ACTIVE"
	StatusEnded   AuctionStatus = "ENDED"
	StatusSettled AuctionStatus = "SETTLED"
)

// User represents a participant in the auction
type User struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

// Auction represents a single ascending-price auction with a fixed deadline.
// CurrentPrice never decreases while the auction is ACTIVE; WinnerID is set
// only at settlement, and only when at least one bid exists.
type Auction struct {
	AuctionID     string          `json:"auction_id"`
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	StartingPrice decimal.Decimal `json:"starting_price"`
	CurrentPrice  decimal.Decimal `json:"current_price"`
	EndsAt        time.Time       `json:"ends_at"`
	Status        AuctionStatus   `json:"status"`
	CreatorID     string          `json:"creator_id"`
	WinnerID      string          `json:"winner_id,omitempty"`
	Version       uint64          `json:"version"`
}

// Bid represents a user's bid on an auction. Bids are immutable once placed.
type Bid struct {
	BidID     string          `json:"bid_id"`
	AuctionID string          `json:"auction_id"`
	BidderID  string          `json:"bidder_id"`
	Amount    decimal.Decimal `json:"amount"`
	PlacedAt  time.Time       `json:"placed_at"`
}

// Outranks reports whether b beats other under the winner ordering:
// higher amount first, ties broken by earliest placement.
func (b Bid) Outranks(other Bid) bool {
	if !b.Amount.Equal(other.Amount) {
		return b.Amount.GreaterThan(other.Amount)
	}
	return b.PlacedAt.Before(other.PlacedAt)
}

// Balance is a user's spendable ledger balance. The amount of the user's
// outstanding leading bid, if any, is already subtracted from Available and
// is credited back the moment they are outbid.
type Balance struct {
	UserID    string          `json:"user_id"`
	Available decimal.Decimal `json:"available"`
}
