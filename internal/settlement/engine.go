package settlement

import (
	"context"
	"errors"
	"fmt"

	"auction-house/internal/auctionerrors"
	"auction-house/internal/fanout"
	model "auction-house/internal/models"
	"auction-house/internal/store"
	"auction-house/utils"

	"github.com/shopspring/decimal"
)

// Engine finalizes auctions exactly once. No funds move at settlement: the
// winner's hold was taken at bid time and every loser's hold was released
// the moment they were outbid.
type Engine struct {
	store  store.AuctionLedger
	events fanout.Publisher
}

// NewEngine creates a settlement engine over the given store and event sink.
func NewEngine(st store.AuctionLedger, events fanout.Publisher) *Engine {
	return &Engine{store: st, events: events}
}

// Settle finalizes one auction under its exclusive row lock. An auction
// that is no longer ACTIVE is a no-op success, which is what makes
// duplicate task delivery harmless and the AUCTION_ENDED event at most
// once. A storage fault aborts the unit of work and is returned to the
// scheduler for retry.
func (e *Engine) Settle(ctx context.Context, auctionID string) error {
	tx, err := e.store.Begin(ctx)
	if err != nil {
		return fmt.Errorf("settlement: begin for auction %s: %w", auctionID, err)
	}
	defer tx.Rollback()

	auction, err := tx.AuctionForUpdate(ctx, auctionID)
	if err != nil {
		if errors.Is(err, auctionerrors.ErrAuctionNotFound) {
			utils.Warn("settlement: auction not found, dropping task", map[string]any{"auction_id": auctionID})
			return nil
		}
		return fmt.Errorf("settlement: lock auction %s: %w", auctionID, err)
	}

	if auction.Status != model.StatusActive {
		utils.Info("settlement: auction already finalized, skipping", map[string]any{
			"auction_id": auctionID,
			"status":     string(auction.Status),
		})
		return nil
	}

	winner, hasBids := tx.HighestBid(auctionID)
	if hasBids {
		auction.Status = model.StatusSettled
		auction.WinnerID = winner.BidderID
		auction.CurrentPrice = winner.Amount
	} else {
		auction.Status = model.StatusEnded
	}
	tx.SetAuction(auction)

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("settlement: commit auction %s: %w", auctionID, err)
	}

	if hasBids {
		winnerID := winner.BidderID
		e.events.PublishAuctionEnded(auctionID, &winnerID, winner.Amount)
		utils.Info("auction settled", map[string]any{
			"auction_id":  auctionID,
			"winner_id":   winnerID,
			"final_price": winner.Amount.String(),
		})
	} else {
		e.events.PublishAuctionEnded(auctionID, nil, decimal.Zero)
		utils.Info("auction ended with no bids", map[string]any{"auction_id": auctionID})
	}
	return nil
}
