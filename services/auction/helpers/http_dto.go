package helpers

import (
	"time"

	model "auction-house/internal/models"

	"github.com/shopspring/decimal"
)

// Request/Response DTOs
type PlaceBidRequest struct {
	AuctionID string          `json:"auction_id" binding:"required"`
	BidderID  string          `json:"bidder_id" binding:"required"`
	Amount    decimal.Decimal `json:"amount" binding:"required"`
}

type CreateAuctionRequest struct {
	Title         string          `json:"title" binding:"required"`
	Description   string          `json:"description"`
	StartingPrice decimal.Decimal `json:"starting_price" binding:"required"`
	EndsAt        time.Time       `json:"ends_at" binding:"required"`
	CreatorID     string          `json:"creator_id" binding:"required"`
}

type CreateAccountRequest struct {
	UserID    string          `json:"user_id" binding:"required"`
	Available decimal.Decimal `json:"available"`
}

type BidResponse struct {
	BidID     string          `json:"bid_id"`
	AuctionID string          `json:"auction_id"`
	BidderID  string          `json:"bidder_id"`
	Amount    decimal.Decimal `json:"amount"`
	PlacedAt  string          `json:"placed_at"`
}

type BidHistoryResponse struct {
	Bids  []BidResponse `json:"bids"`
	Total int           `json:"total"`
}

// NewBidResponse converts a domain bid to its wire shape.
func NewBidResponse(b model.Bid) BidResponse {
	return BidResponse{
		BidID:     b.BidID,
		AuctionID: b.AuctionID,
		BidderID:  b.BidderID,
		Amount:    b.Amount,
		PlacedAt:  b.PlacedAt.UTC().Format(time.RFC3339),
	}
}
