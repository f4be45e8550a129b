package bidding

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"auction-house/internal/auctionerrors"
	"auction-house/internal/fanout"
	model "auction-house/internal/models"
	"auction-house/internal/store"
	"auction-house/utils"

	"github.com/shopspring/decimal"
)

// BiddingService is the bid transaction coordinator: it admits a bid only
// if it is valid and atomically moves the money between the bidder's and
// the previous leader's balances.
type BiddingService struct {
	store  store.AuctionLedger
	events fanout.Publisher
	now    func() time.Time
}

// NewBiddingService creates a new BiddingService instance
func NewBiddingService(st store.AuctionLedger, events fanout.Publisher) *BiddingService {
	return &BiddingService{
		store:  st,
		events: events,
		now:    time.Now,
	}
}

// PlaceBid validates and commits a single bid as one unit of work,
// serialized per auction by the exclusive auction row lock taken before any
// other read. On commit the bidder's balance carries a hold for the full
// amount, the previous leader's hold is released, and the auction's current
// price equals the bid. Events are published only after the commit result
// is known and never influence it.
func (s *BiddingService) PlaceBid(ctx context.Context, auctionID, bidderID string, amount decimal.Decimal) (model.Bid, error) {
	if auctionID == "" || bidderID == "" {
		return model.Bid{}, fmt.Errorf("service: %w - missing auctionID or bidderID", auctionerrors.ErrInvalidBid)
	}
	if amount.Sign() <= 0 {
		return model.Bid{}, fmt.Errorf("service: %w - non-positive bid amount", auctionerrors.ErrInvalidBid)
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return model.Bid{}, fmt.Errorf("service: begin bid for auction %s: %w", auctionID, err)
	}

	bid, err := s.placeBidTx(ctx, tx, auctionID, bidderID, amount)
	if err != nil {
		tx.Rollback()
		s.events.PublishBidRejected(auctionID, bidderID, rejectionReason(err))
		return model.Bid{}, err
	}

	if err := tx.Commit(); err != nil {
		s.events.PublishBidRejected(auctionID, bidderID, rejectionReason(err))
		return model.Bid{}, fmt.Errorf("service: commit bid for auction %s by user %s: %w", auctionID, bidderID, err)
	}

	s.events.PublishBidAccepted(auctionID, bid, bid.Amount)
	utils.Info("bid accepted", map[string]any{
		"auction_id": auctionID,
		"bid_id":     bid.BidID,
		"bidder_id":  bidderID,
		"amount":     bid.Amount.String(),
	})
	return bid, nil
}

// placeBidTx runs steps 1-7 of the bid transaction. Lock order is fixed:
// auction row, then bidder row, then previous-leader row.
func (s *BiddingService) placeBidTx(ctx context.Context, tx store.Tx, auctionID, bidderID string, amount decimal.Decimal) (model.Bid, error) {
	auction, err := tx.AuctionForUpdate(ctx, auctionID)
	if err != nil {
		return model.Bid{}, fmt.Errorf("service: %w", err)
	}

	// Status and deadline are re-checked inside the lock: both may have
	// changed since any earlier read, e.g. by a concurrent settlement.
	if auction.Status != model.StatusActive || !auction.EndsAt.After(s.now()) {
		return model.Bid{}, fmt.Errorf("service: auction %s: %w", auctionID, auctionerrors.ErrAuctionNotActive)
	}

	if amount.LessThanOrEqual(auction.CurrentPrice) {
		return model.Bid{}, fmt.Errorf("service: %w - current price is %s", auctionerrors.ErrBidTooLow, auction.CurrentPrice)
	}

	balance, err := tx.BalanceForUpdate(ctx, bidderID)
	if err != nil {
		return model.Bid{}, fmt.Errorf("service: %w", err)
	}

	if bidderID == auction.CreatorID {
		return model.Bid{}, fmt.Errorf("service: user %s: %w", bidderID, auctionerrors.ErrSelfBid)
	}
	if balance.Available.LessThan(amount) {
		return model.Bid{}, fmt.Errorf("service: %w - available %s, bid %s", auctionerrors.ErrInsufficientBalance, balance.Available, amount)
	}

	// The full amount becomes the bidder's outstanding hold for this auction.
	balance.Available = balance.Available.Sub(amount)

	if prev, ok := tx.HighestBid(auctionID); ok {
		if prev.BidderID == bidderID {
			// Raising one's own leading bid releases the prior hold in the
			// same unit of work, so the net debit is only the delta.
			balance.Available = balance.Available.Add(prev.Amount)
		} else {
			prevBalance, err := tx.BalanceForUpdate(ctx, prev.BidderID)
			if err != nil {
				return model.Bid{}, fmt.Errorf("service: release hold for outbid user %s: %w", prev.BidderID, err)
			}
			prevBalance.Available = prevBalance.Available.Add(prev.Amount)
			tx.SetBalance(prevBalance)
		}
	}
	tx.SetBalance(balance)

	auction.CurrentPrice = amount
	tx.SetAuction(auction)

	bid := model.Bid{
		BidID:     utils.GenerateID(),
		AuctionID: auctionID,
		BidderID:  bidderID,
		Amount:    amount,
		PlacedAt:  s.now().UTC(),
	}
	tx.InsertBid(bid)
	return bid, nil
}

// GetBidHistory returns all bids for an auction, newest first.
func (s *BiddingService) GetBidHistory(auctionID string) ([]model.Bid, error) {
	if auctionID == "" {
		return nil, fmt.Errorf("service: %w - empty auction ID", auctionerrors.ErrInvalidBid)
	}

	bids, err := s.store.GetBidsByAuction(auctionID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to get bids for auction %s: %w", auctionID, err)
	}

	sort.SliceStable(bids, func(i, j int) bool {
		return bids[i].PlacedAt.After(bids[j].PlacedAt)
	})
	return bids, nil
}

// GetWinningBid returns the current leading bid for an auction.
func (s *BiddingService) GetWinningBid(auctionID string) (model.Bid, error) {
	if auctionID == "" {
		return model.Bid{}, fmt.Errorf("service: %w - empty auction ID", auctionerrors.ErrInvalidBid)
	}

	if _, err := s.store.GetAuction(auctionID); err != nil {
		return model.Bid{}, fmt.Errorf("service: %w", err)
	}
	bid, ok := s.store.HighestBid(auctionID)
	if !ok {
		return model.Bid{}, fmt.Errorf("service: auction %s: %w", auctionID, auctionerrors.ErrNoBids)
	}
	return bid, nil
}

// rejectionReason maps a placement error to the reason string carried by
// the BID_REJECTED event.
func rejectionReason(err error) string {
	for _, sentinel := range []error{
		auctionerrors.ErrAuctionNotFound,
		auctionerrors.ErrAuctionNotActive,
		auctionerrors.ErrBidTooLow,
		auctionerrors.ErrSelfBid,
		auctionerrors.ErrInsufficientBalance,
		auctionerrors.ErrBidderNotFound,
		auctionerrors.ErrInvalidBid,
		auctionerrors.ErrLockTimeout,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return "bid rejected"
}
