package routes

import (
	"context"
	"net/http"

	"github.com/ArowuTest/loyalty-ledger/internal/config"
	"github.com/ArowuTest/loyalty-ledger/internal/handlers"
	"github.com/ArowuTest/loyalty-ledger/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dependencies carries everything the router serves
type Dependencies struct {
	LedgerHandler *handlers.LedgerHandler
	RewardHandler *handlers.RewardHandler
	EventHandler  *handlers.EventHandler
	AdminHandler  *handlers.AdminHandler
	// Gatherer backs /metrics. Nil serves the default registry.
	Gatherer prometheus.Gatherer
	// Ping reports storage health. Nil means always healthy.
	Ping func(ctx context.Context) error
}

// SetupRouter sets up the router
func SetupRouter(cfg *config.Config, deps Dependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware(cfg))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggerMiddleware())

	metricsHandler := promhttp.Handler()
	if deps.Gatherer != nil {
		metricsHandler = promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})
	}
	router.GET("/metrics", gin.WrapH(metricsHandler))

	// Public routes
	public := router.Group("/api/v1")
	{
		public.GET("/health", func(c *gin.Context) {
			if deps.Ping != nil {
				if err := deps.Ping(c.Request.Context()); err != nil {
					c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
					return
				}
			}
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})
	}

	// Protected routes
	protected := router.Group("/api/v1")
	protected.Use(middleware.JWTAuthMiddleware(cfg))
	{
		protected.GET("/rewards", deps.RewardHandler.GetCatalog)
		protected.GET("/points/preview", deps.LedgerHandler.PreviewPoints)

		protected.POST("/events/order-completed",
			middleware.RequireRole(middleware.RoleService, middleware.RoleAdmin), deps.EventHandler.OrderCompleted)

		members := protected.Group("/members/:userId")
		{
			self := middleware.RequireSelfOrRole("userId", middleware.RoleService, middleware.RoleAdmin)
			integration := middleware.RequireRole(middleware.RoleService, middleware.RoleAdmin)

			members.GET("", self, deps.EventHandler.GetMember)
			members.PUT("", integration, deps.EventHandler.SyncMember)
			members.GET("/balance", self, deps.LedgerHandler.GetBalance)
			members.GET("/transactions", self, deps.LedgerHandler.GetTransactions)
			members.GET("/commissions", self, deps.LedgerHandler.GetCommissions)
			members.GET("/referral-summary", self, deps.LedgerHandler.GetReferralSummary)
			// Only the member spends their own points.
			members.POST("/redemptions", middleware.RequireSelfOrRole("userId", middleware.RoleAdmin), deps.RewardHandler.Redeem)
			members.POST("/bonuses", integration, deps.EventHandler.AwardBonus)
		}

		admin := protected.Group("/admin")
		admin.Use(middleware.RequireRole(middleware.RoleAdmin))
		{
			admin.GET("/loyalty-rules", deps.AdminHandler.GetRules)
			admin.PATCH("/loyalty-rules", deps.AdminHandler.UpdateRules)
			admin.POST("/rewards", deps.RewardHandler.CreateReward)
			admin.PATCH("/rewards/:id/active", deps.RewardHandler.SetRewardActive)
			admin.POST("/expiry-check", deps.AdminHandler.RunExpiryCheck)
			admin.POST("/commissions/:id/paid", deps.AdminHandler.MarkCommissionPaid)
			admin.POST("/members/:userId/adjustments", deps.AdminHandler.AdjustPoints)
		}
	}

	return router
}
