package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"

	httpAdapter "github.com/dexhq/support-chat-backend/internal/adapters/primary/http"
	mw "github.com/dexhq/support-chat-backend/internal/adapters/primary/http/middleware"
	"github.com/dexhq/support-chat-backend/internal/adapters/primary/websocket"
	"github.com/dexhq/support-chat-backend/internal/adapters/secondary/identity"
	"github.com/dexhq/support-chat-backend/internal/adapters/secondary/postgres"
	redisAdapter "github.com/dexhq/support-chat-backend/internal/adapters/secondary/redis"
	"github.com/dexhq/support-chat-backend/internal/adapters/secondary/storage"
	"github.com/dexhq/support-chat-backend/internal/config"
	"github.com/dexhq/support-chat-backend/internal/core/ports"
	"github.com/dexhq/support-chat-backend/internal/core/services"
	"github.com/dexhq/support-chat-backend/internal/infrastructure/logging"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// 2. Initialize Structured Logger
	logger := logging.NewLogger(logging.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Output:      os.Stdout,
		ServiceName: cfg.App.Name,
		Environment: cfg.App.Environment,
	})

	logger.Info("starting service",
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
	)

	// 3. Initialize Database Pool
	ctx := context.Background()
	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		logger.Error("failed to parse database URL", "error", err)
		os.Exit(1)
	}

	poolConfig.MaxConns = int32(cfg.Database.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.Database.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.Database.ConnMaxLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Error("database ping failed", "error", err)
		os.Exit(1)
	}
	logger.Info("database connection established")

	// 4. Repositories (Secondary Adapters)
	ticketRepo := postgres.NewTicketRepository(pool)
	convRepo := postgres.NewConversationRepository(pool)
	msgRepo := postgres.NewMessageRepository(pool)

	// Seed the ticket sequence counter before serving traffic.
	if err := ticketRepo.EnsureSequence(ctx); err != nil {
		logger.Error("failed to initialize ticket sequence", "error", err)
		os.Exit(1)
	}

	// 5. External Collaborators (Secondary Adapters)
	var verificationCache ports.VerificationCache
	if cfg.Redis.Addr != "" {
		tokenCache, err := redisAdapter.NewTokenCache(ctx, cfg.Redis)
		if err != nil {
			logger.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer tokenCache.Close()
		verificationCache = tokenCache
		logger.Info("redis verification cache enabled", "addr", cfg.Redis.Addr)
	} else {
		verificationCache = identity.NewMemoryCache()
		logger.Info("using in-process verification cache")
	}

	identityClient := identity.NewClient(cfg.Identity, verificationCache, logger)
	uploader := storage.NewUploader(cfg.Storage, logger)

	// 6. Real-time Hub and Core Services
	// The hub is built first; the services broadcast through it, and its
	// client handlers call back into the services once attached.
	hub := websocket.NewHub(logger)

	ticketService := services.NewTicketService(ticketRepo, hub, cfg.Ticket.NumberPrefix, logger)
	chatService := services.NewChatService(convRepo, msgRepo, ticketRepo, uploader, hub, logger)
	queryService := services.NewConversationQueryService(convRepo, msgRepo, ticketRepo, identityClient, logger)

	hub.AttachServices(chatService, ticketService)
	go hub.Run()

	// 7. Handlers (Primary Adapters)
	errorHandler := httpAdapter.NewErrorHandler(logger)
	ticketHandler := httpAdapter.NewTicketHandler(ticketService, errorHandler, logger)
	conversationHandler := httpAdapter.NewConversationHandler(queryService, errorHandler, logger)
	wsHandler := httpAdapter.NewWebSocketHandler(hub, identityClient, cfg, logger)
	healthHandler := httpAdapter.NewHealthHandler(pool, cfg.App.Version)

	// 8. Rate Limiter
	var rateLimiter *mw.RateLimiter
	if cfg.RateLimit.Enabled {
		rateLimiter = mw.NewRateLimiter(mw.RateLimiterConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			BurstSize:         cfg.RateLimit.BurstSize,
			CleanupInterval:   time.Minute,
			TTL:               3 * time.Minute,
		})
	}

	// 9. Setup Router
	r := chi.NewRouter()

	r.Use(mw.RequestID)
	r.Use(mw.RequestLogger(logger))
	r.Use(mw.RecoveryLogger(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", mw.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if rateLimiter != nil {
		r.Use(rateLimiter.Middleware)
	}

	// Health check endpoints (outside /api/v1 for standard probe paths)
	healthHandler.RegisterRoutes(r)

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// WebSocket route (authentication is handled inside the handler)
		r.Get("/ws", wsHandler.ServeHTTP)

		r.Route("/conversations", conversationHandler.RegisterRoutes)

		// Ticket creation sits behind the identity service check.
		r.Group(func(r chi.Router) {
			r.Use(mw.VerifyToken(identityClient, identity.RoleUser))
			r.Route("/tickets", ticketHandler.RegisterRoutes)
		})
	})

	// 10. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("shutdown signal received", "signal", sig.String())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
		os.Exit(1)
	}

	// Let detached conversation bookkeeping finish before exiting.
	chatService.Shutdown()

	logger.Info("server shutdown complete")
}
