// internal/app/router.go
package app

import (
	"context"
	"time"

	"wellnest-service/internal/config"
	bookingHandler "wellnest-service/internal/handlers/booking"
	recipeHandler "wellnest-service/internal/handlers/recipe"
	wsHandler "wellnest-service/internal/handlers/websocket"
	"wellnest-service/internal/middleware"
	"wellnest-service/internal/pkg/ratelimit"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type Handlers struct {
	BookingHandler *bookingHandler.BookingHandler
	RecipeHandler  *recipeHandler.RecipeHandler
	WSHandler      *wsHandler.WebSocketHandler
	AuthMiddleware *middleware.AuthMiddleware
	RateLimiter    *ratelimit.Limiter
}

func SetupRouter(r *gin.Engine, cfg config.AppConfig, logger *zap.Logger, pool *pgxpool.Pool, h *Handlers) {
	api := r.Group("/api/v1")

	// ==================== Health Check ====================
	api.GET("/healthz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := pool.Ping(ctx); err != nil {
			c.JSON(503, gin.H{"status": "degraded", "error": err.Error()})
			return
		}
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ==================== WebSocket ====================
	r.GET("/ws", h.WSHandler.HandleConnection)

	// ==================== Bookings ====================
	bookings := api.Group("/bookings")
	bookings.Use(h.AuthMiddleware.Auth())
	{
		bookings.GET("/quote", h.BookingHandler.Quote)
		bookings.POST("",
			middleware.RateLimit(h.RateLimiter, logger, "booking_create", cfg.BookingRateLimit, cfg.RateLimitWindow),
			h.BookingHandler.Create,
		)
		bookings.GET("", h.BookingHandler.List)
		bookings.GET("/:id", h.BookingHandler.Get)

		// Lifecycle transitions
		bookings.PUT("/:id/confirm", h.BookingHandler.Confirm)
		bookings.PUT("/:id/cancel", h.BookingHandler.Cancel)
		bookings.PUT("/:id/complete", h.BookingHandler.Complete)
	}

	// ==================== Recipe free views ====================
	recipes := api.Group("/recipes")
	recipes.Use(h.AuthMiddleware.Auth())
	{
		recipes.POST("/:id/view",
			middleware.RateLimit(h.RateLimiter, logger, "recipe_view", cfg.BookingRateLimit, cfg.RateLimitWindow),
			h.RecipeHandler.RegisterView,
		)
		recipes.GET("/views/remaining", h.RecipeHandler.RemainingViews)
	}
}
