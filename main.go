package main

import (
	"fmt"
	"os"

	"auction-house/internal/auctions"
	"auction-house/internal/bidding"
	"auction-house/internal/config"
	"auction-house/internal/fanout"
	"auction-house/internal/server"
	"auction-house/internal/settlement"
	"auction-house/internal/store"
	handler "auction-house/services/auction/handler"
	"auction-house/utils"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	st := store.NewMemStore()
	st.SetLockWait(cfg.LockWait)
	prepopulateAccounts(st)

	hub := fanout.NewHub()

	engine := settlement.NewEngine(st, hub)
	scheduler := settlement.NewScheduler(newQueue(cfg), engine)
	scheduler.SetRetryPolicy(cfg.SettlementMaxAttempts, cfg.SettlementBaseBackoff, cfg.SettlementPollInterval)
	scheduler.Start()
	defer scheduler.Stop()

	biddingSvc := bidding.NewBiddingService(st, hub)
	auctionSvc := auctions.NewAuctionService(st, scheduler)

	h := handler.NewAuctionHandler(biddingSvc, auctionSvc, st)
	router := server.SetupRouter(h, hub, []byte(cfg.JWTSecret))

	addr := fmt.Sprintf(":%d", cfg.Port)
	fmt.Printf("Starting auction server on %s...\n", addr)
	if err := router.Run(addr); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start server: %v\n", err)
		os.Exit(1)
	}
}

// newQueue picks the durable Redis settlement queue when configured,
// otherwise the in-process queue for local runs.
func newQueue(cfg config.Config) settlement.Queue {
	if cfg.RedisURL == "" {
		utils.Warn("settlement queue is in-memory; scheduled settlements will not survive a restart", nil)
		return settlement.NewMemoryQueue()
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		utils.Fatal("invalid redis url", map[string]any{"error": err.Error()})
	}
	return settlement.NewRedisQueue(redis.NewClient(opts), "settlement")
}

// prepopulateAccounts seeds demo ledger accounts for local runs
func prepopulateAccounts(st *store.MemStore) {
	opening := decimal.NewFromInt(1000)
	for _, userID := range []string{"user1", "user2", "user3"} {
		if err := st.CreateAccount(userID, opening); err != nil {
			utils.Warn("seeding account failed", map[string]any{"user_id": userID, "error": err.Error()})
		}
	}
}
