package server

import (
	"auction-house/internal/fanout"
	handler "auction-house/services/auction/handler"

	"github.com/gin-gonic/gin"
)

// SetupRouter configures all Gin routes for the application
func SetupRouter(h *handler.AuctionHandler, hub *fanout.Hub, jwtSecret []byte) *gin.Engine {
	router := gin.New() // New router without default middleware for full control over middleware and logging

	router.Use(gin.Recovery())          // recover from panics
	router.Use(RequestLoggerMiddleware) // custom request logging

	auctions := router.Group("/auctions")
	{
		auctions.POST("", h.CreateAuctionHandler)
		auctions.GET("", h.ListAuctionsHandler)
		auctions.GET("/:auction_id", h.GetAuctionHandler)
		auctions.GET("/:auction_id/bids", h.GetBidHistoryHandler)
		auctions.GET("/:auction_id/winning", h.GetWinningBidHandler)
	}

	bids := router.Group("/bids")
	{
		bids.POST("", h.PlaceBidHandler)
	}

	users := router.Group("/users")
	{
		users.POST("", h.CreateAccountHandler)
		users.GET("/:user_id/balance", h.GetBalanceHandler)
	}

	router.GET("/ws", fanout.ServeWS(hub, jwtSecret))

	return router
}
