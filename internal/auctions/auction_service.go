package auctions

import (
	"context"
	"fmt"
	"sort"
	"time"

	"auction-house/internal/auctionerrors"
	model "auction-house/internal/models"
	"auction-house/internal/store"
	"auction-house/utils"

	"github.com/shopspring/decimal"
)

// SettlementScheduler registers the one settlement task an auction gets at
// creation time.
type SettlementScheduler interface {
	ScheduleSettlement(ctx context.Context, auctionID string, deadline time.Time) error
}

// CreateParams carries the caller-supplied fields of a new auction.
type CreateParams struct {
	Title         string
	Description   string
	StartingPrice decimal.Decimal
	EndsAt        time.Time
	CreatorID     string
}

// AuctionService creates and reads auctions. Creation is the only write:
// price and status mutations belong to the bid coordinator and the
// settlement engine.
type AuctionService struct {
	store     store.AuctionLedger
	scheduler SettlementScheduler
	now       func() time.Time
}

// NewAuctionService creates a new AuctionService instance
func NewAuctionService(st store.AuctionLedger, scheduler SettlementScheduler) *AuctionService {
	return &AuctionService{
		store:     st,
		scheduler: scheduler,
		now:       time.Now,
	}
}

// CreateAuction persists a new ACTIVE auction with current price equal to
// the starting price and schedules its settlement at the deadline.
func (s *AuctionService) CreateAuction(ctx context.Context, p CreateParams) (model.Auction, error) {
	if p.Title == "" || p.CreatorID == "" {
		return model.Auction{}, fmt.Errorf("service: %w - missing title or creatorID", auctionerrors.ErrInvalidAuction)
	}
	if p.StartingPrice.Sign() <= 0 {
		return model.Auction{}, fmt.Errorf("service: %w - non-positive starting price", auctionerrors.ErrInvalidAuction)
	}
	if !p.EndsAt.After(s.now()) {
		return model.Auction{}, fmt.Errorf("service: %w - deadline not in the future", auctionerrors.ErrInvalidAuction)
	}

	auction := model.Auction{
		AuctionID:     utils.GenerateID(),
		Title:         p.Title,
		Description:   p.Description,
		StartingPrice: p.StartingPrice,
		CurrentPrice:  p.StartingPrice,
		EndsAt:        p.EndsAt.UTC(),
		Status:        model.StatusActive,
		CreatorID:     p.CreatorID,
	}

	if err := s.store.CreateAuction(auction); err != nil {
		return model.Auction{}, fmt.Errorf("service: failed to create auction: %w", err)
	}

	if err := s.scheduler.ScheduleSettlement(ctx, auction.AuctionID, auction.EndsAt); err != nil {
		return model.Auction{}, fmt.Errorf("service: failed to schedule settlement for auction %s: %w", auction.AuctionID, err)
	}

	utils.Info("auction created", map[string]any{
		"auction_id":     auction.AuctionID,
		"creator_id":     auction.CreatorID,
		"starting_price": auction.StartingPrice.String(),
		"ends_at":        auction.EndsAt.Format(time.RFC3339),
	})
	return auction, nil
}

// GetAuction returns a single auction by id.
func (s *AuctionService) GetAuction(auctionID string) (model.Auction, error) {
	if auctionID == "" {
		return model.Auction{}, fmt.Errorf("service: %w - empty auction ID", auctionerrors.ErrInvalidAuction)
	}
	a, err := s.store.GetAuction(auctionID)
	if err != nil {
		return model.Auction{}, fmt.Errorf("service: %w", err)
	}
	return a, nil
}

// ListAuctions returns auctions, optionally filtered by status, newest
// deadline first.
func (s *AuctionService) ListAuctions(status string) ([]model.Auction, error) {
	var filter model.AuctionStatus
	switch model.AuctionStatus(status) {
	case "", model.StatusActive, model.StatusEnded, model.StatusSettled:
		filter = model.AuctionStatus(status)
	default:
		return nil, fmt.Errorf("service: %w - unknown status %q", auctionerrors.ErrInvalidAuction, status)
	}

	auctions := s.store.ListAuctions(filter)
	sort.Slice(auctions, func(i, j int) bool {
		return auctions[i].EndsAt.After(auctions[j].EndsAt)
	})
	return auctions, nil
}
