package models

import "github.com/shopspring/decimal"

// Event kinds delivered to auction rooms.
const (
	EventBidAccepted  = "BID_ACCEPTED"
	EventBidRejected  = "BID_REJECTED"
	EventAuctionEnded = "AUCTION_ENDED"
	EventViewerJoined = "VIEWER_JOINED"
	EventViewerLeft   = "VIEWER_LEFT"
)

// BidAcceptedEvent is broadcast to an auction room after a bid commits.
type BidAcceptedEvent struct {
	AuctionID    string          `json:"auction_id"`
	Bid          Bid             `json:"bid"`
	CurrentPrice decimal.Decimal `json:"current_price"`
	ViewerCount  int             `json:"viewer_count"`
}

// BidRejectedEvent is delivered only to the rejected bidder's sessions.
type BidRejectedEvent struct {
	AuctionID string `json:"auction_id"`
	Reason    string `json:"reason"`
}

// AuctionEndedEvent is broadcast when settlement finalizes an auction.
// WinnerID is nil when the auction ended without bids.
type AuctionEndedEvent struct {
	AuctionID  string          `json:"auction_id"`
	WinnerID   *string         `json:"winner_id"`
	FinalPrice decimal.Decimal `json:"final_price"`
}

// ViewerEvent is broadcast whenever a session joins or leaves a room.
type ViewerEvent struct {
	AuctionID   string `json:"auction_id"`
	ViewerCount int    `json:"viewer_count"`
}
