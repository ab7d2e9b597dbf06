// Package http wires the gin router: middleware chain, route table and
// handler construction.
package http

import (
	"game-economy-service/internal/adapter/http/handler"
	"game-economy-service/internal/adapter/http/middleware"
	"game-economy-service/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// maxBodyBytes bounds request bodies; the largest legitimate body here is a
// mutation request with metadata.
const maxBodyBytes = 64 << 10

// RouterDeps carries everything the router needs.
type RouterDeps struct {
	Ledger    ports.LedgerService
	Purchases ports.PurchaseService
	Analytics ports.AnalyticsService
	Checkers  []ports.HealthChecker
	Log       zerolog.Logger
	Mode      string
}

// NewRouter builds the gin engine with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(ginMode(deps.Mode))

	router := gin.New()
	router.Use(
		middleware.RequestID(),
		middleware.Recovery(deps.Log),
		middleware.RequestLogger(deps.Log),
		middleware.MaxBodySize(maxBodyBytes),
	)

	healthHandler := handler.NewHealthHandler(deps.Checkers...)
	router.GET("/health/live", healthHandler.Live)
	router.GET("/health/ready", healthHandler.Ready)

	currencyHandler := handler.NewCurrencyHandler(deps.Ledger)
	purchaseHandler := handler.NewPurchaseHandler(deps.Purchases)
	analyticsHandler := handler.NewAnalyticsHandler(deps.Analytics)

	v1 := router.Group("/api/v1")
	{
		currency := v1.Group("/currency")
		{
			currency.POST("/earn", currencyHandler.Earn)
			currency.POST("/spend", currencyHandler.Spend)
			currency.GET("/balance/:user_id", currencyHandler.GetBalance)
			currency.GET("/transactions/:user_id", currencyHandler.GetHistory)
		}

		v1.GET("/packages", purchaseHandler.ListPackages)
		purchases := v1.Group("/purchases")
		{
			purchases.POST("", purchaseHandler.Initiate)
			purchases.POST("/:id/complete", purchaseHandler.Complete)
			purchases.POST("/:id/fail", purchaseHandler.Fail)
			purchases.POST("/:id/refund", purchaseHandler.Refund)
		}

		analytics := v1.Group("/analytics")
		{
			analytics.GET("/daily", analyticsHandler.Daily)
			analytics.GET("/economy", analyticsHandler.EconomyHealth)
			analytics.GET("/revenue", analyticsHandler.Revenue)
			analytics.GET("/flow", analyticsHandler.Flow)
		}
	}

	return router
}

func ginMode(mode string) string {
	switch mode {
	case gin.ReleaseMode, gin.TestMode:
		return mode
	default:
		return gin.DebugMode
	}
}
