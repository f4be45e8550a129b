package auctions

import (
	"context"
	"errors"
	"testing"
	"time"

	"auction-house/internal/auctionerrors"
	model "auction-house/internal/models"
	"auction-house/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// recordingScheduler captures ScheduleSettlement calls.
type recordingScheduler struct {
	auctionIDs []string
	deadlines  []time.Time
	err        error
}

func (r *recordingScheduler) ScheduleSettlement(ctx context.Context, auctionID string, deadline time.Time) error {
	if r.err != nil {
		return r.err
	}
	r.auctionIDs = append(r.auctionIDs, auctionID)
	r.deadlines = append(r.deadlines, deadline)
	return nil
}

func TestAuctionService_CreateAuction(t *testing.T) {
	t.Parallel()

	st := store.NewMemStore()
	sched := &recordingScheduler{}
	service := NewAuctionService(st, sched)

	endsAt := time.Now().Add(2 * time.Hour)
	auction, err := service.CreateAuction(context.Background(), CreateParams{
		Title:         "vintage clock",
		Description:   "ticks loudly",
		StartingPrice: decimal.NewFromInt(50),
		EndsAt:        endsAt,
		CreatorID:     "seller",
	})
	require.NoError(t, err)
	require.NotEmpty(t, auction.AuctionID)
	require.Equal(t, model.StatusActive, auction.Status)
	require.True(t, auction.CurrentPrice.Equal(auction.StartingPrice))
	require.Empty(t, auction.WinnerID)

	// Exactly one settlement task, due at the deadline.
	require.Equal(t, []string{auction.AuctionID}, sched.auctionIDs)
	require.True(t, sched.deadlines[0].Equal(endsAt))

	stored, err := st.GetAuction(auction.AuctionID)
	require.NoError(t, err)
	require.Equal(t, auction, stored)
}

func TestAuctionService_CreateAuction_Validation(t *testing.T) {
	t.Parallel()

	valid := CreateParams{
		Title:         "clock",
		StartingPrice: decimal.NewFromInt(50),
		EndsAt:        time.Now().Add(time.Hour),
		CreatorID:     "seller",
	}

	tests := []struct {
		name   string
		mutate func(p *CreateParams)
	}{
		{name: "missing_title", mutate: func(p *CreateParams) { p.Title = "" }},
		{name: "missing_creator", mutate: func(p *CreateParams) { p.CreatorID = "" }},
		{name: "zero_starting_price", mutate: func(p *CreateParams) { p.StartingPrice = decimal.Zero }},
		{name: "negative_starting_price", mutate: func(p *CreateParams) { p.StartingPrice = decimal.NewFromInt(-10) }},
		{name: "deadline_in_past", mutate: func(p *CreateParams) { p.EndsAt = time.Now().Add(-time.Minute) }},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			sched := &recordingScheduler{}
			service := NewAuctionService(store.NewMemStore(), sched)

			p := valid
			tc.mutate(&p)
			_, err := service.CreateAuction(context.Background(), p)
			require.ErrorIs(t, err, auctionerrors.ErrInvalidAuction)
			require.Empty(t, sched.auctionIDs, "no settlement scheduled for a rejected auction")
		})
	}
}

func TestAuctionService_CreateAuction_SchedulerFailureSurfaces(t *testing.T) {
	t.Parallel()

	sched := &recordingScheduler{err: errors.New("queue unavailable")}
	service := NewAuctionService(store.NewMemStore(), sched)

	_, err := service.CreateAuction(context.Background(), CreateParams{
		Title:         "clock",
		StartingPrice: decimal.NewFromInt(50),
		EndsAt:        time.Now().Add(time.Hour),
		CreatorID:     "seller",
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "queue unavailable")
}

func TestAuctionService_ListAuctions(t *testing.T) {
	t.Parallel()

	st := store.NewMemStore()
	service := NewAuctionService(st, &recordingScheduler{})

	now := time.Now()
	for _, a := range []model.Auction{
		{AuctionID: "a1", Status: model.StatusActive, EndsAt: now.Add(time.Hour)},
		{AuctionID: "a2", Status: model.StatusEnded, EndsAt: now.Add(2 * time.Hour)},
		{AuctionID: "a3", Status: model.StatusActive, EndsAt: now.Add(3 * time.Hour)},
	} {
		require.NoError(t, st.CreateAuction(a))
	}

	all, err := service.ListAuctions("")
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, "a3", all[0].AuctionID, "latest deadline first")

	active, err := service.ListAuctions("ACTIVE")
	require.NoError(t, err)
	require.Len(t, active, 2)

	_, err = service.ListAuctions("BOGUS")
	require.ErrorIs(t, err, auctionerrors.ErrInvalidAuction)
}

func TestAuctionService_GetAuction(t *testing.T) {
	t.Parallel()

	st := store.NewMemStore()
	service := NewAuctionService(st, &recordingScheduler{})

	_, err := service.GetAuction("missing")
	require.ErrorIs(t, err, auctionerrors.ErrAuctionNotFound)

	_, err = service.GetAuction("")
	require.ErrorIs(t, err, auctionerrors.ErrInvalidAuction)
}
