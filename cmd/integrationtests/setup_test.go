package integrationtests

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"auction-house/internal/auctions"
	"auction-house/internal/bidding"
	"auction-house/internal/fanout"
	"auction-house/internal/server"
	"auction-house/internal/settlement"
	"auction-house/internal/store"
	handler "auction-house/services/auction/handler"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// testApp bundles the wired application for integration tests.
type testApp struct {
	router    *gin.Engine
	store     *store.MemStore
	engine    *settlement.Engine
	scheduler *settlement.Scheduler
	queue     *settlement.MemoryQueue
}

// SetupTestApp wires the full service against the in-memory store and
// queue. The scheduler's polling loop is left stopped; tests drive
// settlement by hand through the engine for determinism.
func SetupTestApp() *testApp {
	gin.SetMode(gin.TestMode)

	st := store.NewMemStore()
	hub := fanout.NewHub()
	queue := settlement.NewMemoryQueue()
	engine := settlement.NewEngine(st, hub)
	scheduler := settlement.NewScheduler(queue, engine)

	biddingSvc := bidding.NewBiddingService(st, hub)
	auctionSvc := auctions.NewAuctionService(st, scheduler)

	h := handler.NewAuctionHandler(biddingSvc, auctionSvc, st)
	return &testApp{
		router:    server.SetupRouter(h, hub, nil),
		store:     st,
		engine:    engine,
		scheduler: scheduler,
		queue:     queue,
	}
}

// ExecuteRequestAndParse executes an HTTP request on the router and parses
// the enveloped JSON response, unwrapping "data" for created resources.
func ExecuteRequestAndParse(t *testing.T, router *gin.Engine, method, url string, body any) (map[string]any, *httptest.ResponseRecorder) {
	t.Helper()

	var reqBody []byte
	var err error

	switch v := body.(type) {
	case nil:
	case []byte:
		reqBody = v
	default:
		reqBody, err = json.Marshal(v)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, url, bytes.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	var resp map[string]any
	if len(w.Body.Bytes()) > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to unmarshal response: %v", err)
		}
		if data, ok := resp["data"].(map[string]any); ok && w.Code < 300 {
			resp = data
		}
	}

	return resp, w
}

// seedAccount creates a ledger account through the API.
func (a *testApp) seedAccount(t *testing.T, userID string, available int64) {
	t.Helper()
	_, w := ExecuteRequestAndParse(t, a.router, "POST", "/users", map[string]any{
		"user_id":   userID,
		"available": decimal.NewFromInt(available),
	})
	require.Equal(t, 201, w.Code)
}

// createAuction creates an ACTIVE auction through the API and returns its id.
func (a *testApp) createAuction(t *testing.T, creatorID string, startingPrice int64, endsAt time.Time) string {
	t.Helper()
	resp, w := ExecuteRequestAndParse(t, a.router, "POST", "/auctions", map[string]any{
		"title":          "integration auction",
		"description":    "wired end to end",
		"starting_price": decimal.NewFromInt(startingPrice),
		// RFC3339Nano keeps sub-second deadlines intact on the wire.
		"ends_at": endsAt.Format(time.RFC3339Nano),
		"creator_id":     creatorID,
	})
	require.Equal(t, 201, w.Code)
	auctionID, _ := resp["auction_id"].(string)
	require.NotEmpty(t, auctionID)
	return auctionID
}
