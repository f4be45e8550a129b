package bidding

import (
	"context"
	"sync"
	"testing"
	"time"

	"auction-house/internal/auctionerrors"
	"auction-house/internal/fanout"
	model "auction-house/internal/models"
	"auction-house/internal/store"

	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

type fixture struct {
	store   *store.MemStore
	service *BiddingService
}

// newFixture seeds an ACTIVE auction by "seller" starting at 50 and
// accounts for the given users with an opening balance of 1000.
func newFixture(t *testing.T, events fanout.Publisher, users ...string) fixture {
	t.Helper()

	st := store.NewMemStore()
	require.NoError(t, st.CreateAuction(model.Auction{
		AuctionID:     "a1",
		Title:         "vintage clock",
		StartingPrice: dec(50),
		CurrentPrice:  dec(50),
		EndsAt:        time.Now().Add(time.Hour),
		Status:        model.StatusActive,
		CreatorID:     "seller",
	}))
	require.NoError(t, st.CreateAccount("seller", dec(1000)))
	for _, u := range users {
		require.NoError(t, st.CreateAccount(u, dec(1000)))
	}
	return fixture{store: st, service: NewBiddingService(st, events)}
}

func requireBalance(t *testing.T, st *store.MemStore, userID string, want int64) {
	t.Helper()
	b, err := st.GetBalance(userID)
	require.NoError(t, err)
	require.Truef(t, b.Available.Equal(dec(want)), "balance of %s: want %d, got %s", userID, want, b.Available)
}

// Scenario: X bids 75, Y outbids with 100 (X refunded), X's 90 is too low.
func TestBiddingService_PlaceBid_OutbidRefundsPreviousLeader(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	events := fanout.NewMockPublisher(ctrl)
	f := newFixture(t, events, "x", "y")
	ctx := context.Background()

	events.EXPECT().PublishBidAccepted("a1", gomock.Any(), dec(75))
	bidX, err := f.service.PlaceBid(ctx, "a1", "x", dec(75))
	require.NoError(t, err)
	require.True(t, bidX.Amount.Equal(dec(75)))
	requireBalance(t, f.store, "x", 925)

	events.EXPECT().PublishBidAccepted("a1", gomock.Any(), dec(100))
	_, err = f.service.PlaceBid(ctx, "a1", "y", dec(100))
	require.NoError(t, err)
	requireBalance(t, f.store, "y", 900)
	requireBalance(t, f.store, "x", 1000) // hold released on outbid

	events.EXPECT().PublishBidRejected("a1", "x", gomock.Any())
	_, err = f.service.PlaceBid(ctx, "a1", "x", dec(90))
	require.ErrorIs(t, err, auctionerrors.ErrBidTooLow)
	requireBalance(t, f.store, "x", 1000)

	auction, err := f.store.GetAuction("a1")
	require.NoError(t, err)
	require.True(t, auction.CurrentPrice.Equal(dec(100)))
}

// Raising one's own leading bid must only withdraw the delta.
func TestBiddingService_PlaceBid_SelfRaiseChargesDelta(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	events := fanout.NewMockPublisher(ctrl)
	events.EXPECT().PublishBidAccepted("a1", gomock.Any(), gomock.Any()).Times(2)

	f := newFixture(t, events, "x")
	ctx := context.Background()

	_, err := f.service.PlaceBid(ctx, "a1", "x", dec(75))
	require.NoError(t, err)
	requireBalance(t, f.store, "x", 925)

	_, err = f.service.PlaceBid(ctx, "a1", "x", dec(100))
	require.NoError(t, err)
	requireBalance(t, f.store, "x", 900) // net change is 25, not 100
}

func TestBiddingService_PlaceBid_Rejections(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	tests := []struct {
		name      string
		auctionID string
		bidderID  string
		amount    decimal.Decimal
		setup     func(t *testing.T, f fixture)
		wantErr   error
		rejection bool // expects a BID_REJECTED event
	}{
		{
			name:      "creator_bids_on_own_auction",
			auctionID: "a1",
			bidderID:  "seller",
			amount:    dec(75),
			wantErr:   auctionerrors.ErrSelfBid,
			rejection: true,
		},
		{
			name:      "insufficient_balance",
			auctionID: "a1",
			bidderID:  "poor",
			amount:    dec(60),
			setup: func(t *testing.T, f fixture) {
				require.NoError(t, f.store.CreateAccount("poor", dec(40)))
			},
			wantErr:   auctionerrors.ErrInsufficientBalance,
			rejection: true,
		},
		{
			name:      "auction_not_found",
			auctionID: "ghost",
			bidderID:  "x",
			amount:    dec(75),
			wantErr:   auctionerrors.ErrAuctionNotFound,
			rejection: true,
		},
		{
			name:      "bidder_not_found",
			auctionID: "a1",
			bidderID:  "ghost",
			amount:    dec(75),
			wantErr:   auctionerrors.ErrBidderNotFound,
			rejection: true,
		},
		{
			name:      "bid_equal_to_current_price",
			auctionID: "a1",
			bidderID:  "x",
			amount:    dec(50),
			wantErr:   auctionerrors.ErrBidTooLow,
			rejection: true,
		},
		{
			name:      "empty_bidder",
			auctionID: "a1",
			bidderID:  "",
			amount:    dec(75),
			wantErr:   auctionerrors.ErrInvalidBid,
		},
		{
			name:      "non_positive_amount",
			auctionID: "a1",
			bidderID:  "x",
			amount:    dec(0),
			wantErr:   auctionerrors.ErrInvalidBid,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			events := fanout.NewMockPublisher(ctrl)
			f := newFixture(t, events, "x")
			if tc.setup != nil {
				tc.setup(t, f)
			}
			if tc.rejection {
				events.EXPECT().PublishBidRejected(tc.auctionID, tc.bidderID, gomock.Any())
			}

			_, err := f.service.PlaceBid(context.Background(), tc.auctionID, tc.bidderID, tc.amount)
			require.ErrorIs(t, err, tc.wantErr)

			// No partial debits survive a rejection.
			if tc.bidderID == "x" {
				requireBalance(t, f.store, "x", 1000)
			}
			auction, aerr := f.store.GetAuction("a1")
			require.NoError(t, aerr)
			require.True(t, auction.CurrentPrice.Equal(dec(50)))
		})
	}
}

func TestBiddingService_PlaceBid_SellerBalanceUntouchedOnSelfBid(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	events := fanout.NewMockPublisher(ctrl)
	events.EXPECT().PublishBidRejected("a1", "seller", gomock.Any())

	f := newFixture(t, events)
	_, err := f.service.PlaceBid(context.Background(), "a1", "seller", dec(75))
	require.ErrorIs(t, err, auctionerrors.ErrSelfBid)
	requireBalance(t, f.store, "seller", 1000)
}

func TestBiddingService_PlaceBid_InactiveAuction(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	tests := []struct {
		name   string
		mutate func(a *model.Auction)
	}{
		{name: "status_ended", mutate: func(a *model.Auction) { a.Status = model.StatusEnded }},
		{name: "status_settled", mutate: func(a *model.Auction) { a.Status = model.StatusSettled }},
		{name: "deadline_passed", mutate: func(a *model.Auction) { a.EndsAt = time.Now().Add(-time.Minute) }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			events := fanout.NewMockPublisher(ctrl)
			events.EXPECT().PublishBidRejected(gomock.Any(), "x", gomock.Any())

			st := store.NewMemStore()
			a := model.Auction{
				AuctionID:     "a1",
				StartingPrice: dec(50),
				CurrentPrice:  dec(50),
				EndsAt:        time.Now().Add(time.Hour),
				Status:        model.StatusActive,
				CreatorID:     "seller",
			}
			tc.mutate(&a)
			require.NoError(t, st.CreateAuction(a))
			require.NoError(t, st.CreateAccount("x", dec(1000)))

			service := NewBiddingService(st, events)
			_, err := service.PlaceBid(context.Background(), "a1", "x", dec(75))
			require.ErrorIs(t, err, auctionerrors.ErrAuctionNotActive)
		})
	}
}

// Concurrent bids on one auction are linearized by the auction row lock:
// the final price is the maximum accepted amount and every balance adds up.
func TestBiddingService_PlaceBid_ConcurrentBidsLinearize(t *testing.T) {
	st := store.NewMemStore()
	require.NoError(t, st.CreateAuction(model.Auction{
		AuctionID:     "a1",
		StartingPrice: dec(50),
		CurrentPrice:  dec(50),
		EndsAt:        time.Now().Add(time.Hour),
		Status:        model.StatusActive,
		CreatorID:     "seller",
	}))

	const bidders = 16
	users := make([]string, 0, bidders)
	for i := 0; i < bidders; i++ {
		u := "user" + string(rune('a'+i))
		users = append(users, u)
		require.NoError(t, st.CreateAccount(u, dec(10_000)))
	}

	// A hub with no sessions is a no-op publisher.
	service := NewBiddingService(st, fanout.NewHub())

	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted := make(map[string]decimal.Decimal) // bidder -> highest accepted amount

	for i, u := range users {
		for _, amount := range []int64{60 + int64(i), 100 + int64(i)*7, 300 + int64(i)*11} {
			wg.Add(1)
			go func(u string, amount int64) {
				defer wg.Done()
				bid, err := service.PlaceBid(context.Background(), "a1", u, dec(amount))
				if err != nil {
					return
				}
				mu.Lock()
				if prev, ok := accepted[u]; !ok || bid.Amount.GreaterThan(prev) {
					accepted[u] = bid.Amount
				}
				mu.Unlock()
			}(u, amount)
		}
	}
	wg.Wait()

	auction, err := st.GetAuction("a1")
	require.NoError(t, err)

	leader, ok := st.HighestBid("a1")
	require.True(t, ok)
	require.True(t, auction.CurrentPrice.Equal(leader.Amount), "final price equals maximum accepted bid")

	// Accepted bids strictly increase: every committed bid beat the price
	// before it, so amounts in placement order are strictly ascending.
	bids, err := st.GetBidsByAuction("a1")
	require.NoError(t, err)
	for i := 1; i < len(bids); i++ {
		require.True(t, bids[i].Amount.GreaterThan(bids[i-1].Amount),
			"bid %d (%s) must exceed bid %d (%s)", i, bids[i].Amount, i-1, bids[i-1].Amount)
	}

	// Exactly one outstanding hold: the leader's. Everyone else is whole.
	for _, u := range users {
		b, err := st.GetBalance(u)
		require.NoError(t, err)
		want := dec(10_000)
		if u == leader.BidderID {
			want = want.Sub(leader.Amount)
		}
		require.Truef(t, b.Available.Equal(want), "balance of %s: want %s, got %s", u, want, b.Available)
		require.False(t, b.Available.IsNegative(), "no balance may go negative")
	}
}

func TestBiddingService_GetBidHistory(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	events := fanout.NewMockPublisher(ctrl)
	events.EXPECT().PublishBidAccepted("a1", gomock.Any(), gomock.Any()).Times(3)

	f := newFixture(t, events, "x", "y")
	ctx := context.Background()

	for i, bid := range []struct {
		user   string
		amount int64
	}{{"x", 75}, {"y", 100}, {"x", 150}} {
		_, err := f.service.PlaceBid(ctx, "a1", bid.user, dec(bid.amount))
		require.NoError(t, err, "bid %d", i)
	}

	bids, err := f.service.GetBidHistory("a1")
	require.NoError(t, err)
	require.Len(t, bids, 3)
	// Newest first.
	require.True(t, bids[0].Amount.Equal(dec(150)))
	require.True(t, bids[2].Amount.Equal(dec(75)))

	_, err = f.service.GetBidHistory("")
	require.ErrorIs(t, err, auctionerrors.ErrInvalidBid)
}

func TestBiddingService_GetWinningBid(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	events := fanout.NewMockPublisher(ctrl)
	f := newFixture(t, events, "x")

	_, err := f.service.GetWinningBid("a1")
	require.ErrorIs(t, err, auctionerrors.ErrNoBids)

	events.EXPECT().PublishBidAccepted("a1", gomock.Any(), gomock.Any())
	placed, err := f.service.PlaceBid(context.Background(), "a1", "x", dec(75))
	require.NoError(t, err)

	winning, err := f.service.GetWinningBid("a1")
	require.NoError(t, err)
	require.Equal(t, placed.BidID, winning.BidID)

	_, err = f.service.GetWinningBid("ghost")
	require.ErrorIs(t, err, auctionerrors.ErrAuctionNotFound)
}
