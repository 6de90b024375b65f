// internal/app/server.go
package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"wellnest-service/internal/config"
	"wellnest-service/internal/db"
	bookingHandler "wellnest-service/internal/handlers/booking"
	recipeHandler "wellnest-service/internal/handlers/recipe"
	wsHandler "wellnest-service/internal/handlers/websocket"
	"wellnest-service/internal/middleware"
	"wellnest-service/internal/pkg/jwt"
	"wellnest-service/internal/pkg/ratelimit"
	"wellnest-service/internal/repository/postgres"
	bookingService "wellnest-service/internal/service/booking"
	"wellnest-service/internal/service/pricing"
	recipeService "wellnest-service/internal/service/recipe"
	"wellnest-service/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type Server struct {
	cfg    config.AppConfig
	engine *gin.Engine
	logger *zap.Logger

	httpServer *http.Server
	pool       *pgxpool.Pool
	background context.CancelFunc
}

func NewServer() *Server {
	cfg := config.Load()
	engine := gin.New()
	return &Server{cfg: cfg, engine: engine}
}

func (s *Server) Start() error {
	ctx := context.Background()

	// ----- Logger -----
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	s.logger = logger

	// ----- PostgreSQL -----
	pool, err := db.ConnectDB(ctx, s.cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	s.pool = pool

	// ----- Redis -----
	redisClient, err := db.NewRedisClient(db.RedisConfig{
		Addr:     s.cfg.RedisAddr,
		Password: s.cfg.RedisPass,
		PoolSize: 10,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	log.Println("[REDIS] connected")

	// ----- JWT Verifier -----
	verifier, err := jwt.LoadVerifier(s.cfg.JWT)
	if err != nil {
		return fmt.Errorf("failed to load JWT verifier: %w", err)
	}

	// ----- Repositories -----
	bookingRepo := postgres.NewBookingRepository(pool)
	entitlementRepo := postgres.NewEntitlementRepository(pool)
	cycleRepo := postgres.NewSubscriptionCycleRepository(pool)
	expertRepo := postgres.NewExpertRepository(pool)

	// ----- Background context (hub + sweeper) -----
	bgCtx, bgCancel := context.WithCancel(context.Background())
	s.background = bgCancel

	// ----- WebSocket Hub -----
	hub := ws.NewHub(logger)
	go hub.Run(bgCtx)

	// ----- Services -----
	pricingSvc := pricing.NewPricingService(cycleRepo, expertRepo, entitlementRepo, logger)
	bookingSvc := bookingService.NewBookingService(
		bookingRepo,
		entitlementRepo,
		pricingSvc,
		hub,
		s.cfg.MeetingLinkBase,
		logger,
	)
	recipeSvc := recipeService.NewRecipeService(entitlementRepo, s.cfg.RecipeDailyFreeViews, logger)

	// ----- Expiry Sweeper -----
	sweeper := bookingService.NewSweeper(
		bookingRepo,
		bookingSvc,
		s.cfg.SweepInterval,
		s.cfg.GraceWindow,
		logger,
	)
	go sweeper.Run(bgCtx)

	// ----- Handlers -----
	bookingHandlerInst := bookingHandler.NewBookingHandler(bookingSvc, pricingSvc, logger)
	recipeHandlerInst := recipeHandler.NewRecipeHandler(recipeSvc)
	wsHandlerInst := wsHandler.NewWebSocketHandler(hub, verifier, logger)

	// ----- Middlewares -----
	authMiddleware := middleware.NewAuthMiddleware(verifier)
	limiter := ratelimit.NewLimiter(redisClient)

	s.engine.Use(
		middleware.RecoveryMiddleware(logger),
		middleware.LoggingMiddleware(logger),
		middleware.CORSMiddleware(),
	)

	// ----- Router -----
	handlers := &Handlers{
		BookingHandler: bookingHandlerInst,
		RecipeHandler:  recipeHandlerInst,
		WSHandler:      wsHandlerInst,
		AuthMiddleware: authMiddleware,
		RateLimiter:    limiter,
	}
	SetupRouter(s.engine, s.cfg, logger, pool, handlers)

	// ----- Start HTTP -----
	s.httpServer = &http.Server{
		Addr:    s.cfg.HTTPAddr,
		Handler: s.engine,
	}

	logger.Info("server running", zap.String("addr", s.cfg.HTTPAddr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the HTTP listener, the sweeper, and the hub, then closes
// storage connections.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.background != nil {
		s.background()
	}

	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}
	if s.pool != nil {
		s.pool.Close()
	}
	if s.logger != nil {
		s.logger.Sync()
	}

	// Give in-flight sweep/hub work a moment to settle.
	select {
	case <-ctx.Done():
	case <-time.After(100 * time.Millisecond):
	}

	return err
}
