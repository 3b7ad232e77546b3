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

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/hammerfall-games/hammerfall/internal/api"
	"github.com/hammerfall-games/hammerfall/internal/auction"
	"github.com/hammerfall-games/hammerfall/internal/commands"
	"github.com/hammerfall-games/hammerfall/internal/economy"
	"github.com/hammerfall-games/hammerfall/internal/infra/cache"
	"github.com/hammerfall-games/hammerfall/internal/infra/database"
	"github.com/hammerfall-games/hammerfall/internal/inventory"
	"github.com/hammerfall-games/hammerfall/internal/items"
	"github.com/hammerfall-games/hammerfall/internal/marketplace"
	"github.com/hammerfall-games/hammerfall/internal/users"
	"github.com/hammerfall-games/hammerfall/pkg/auth"
	pkgdb "github.com/hammerfall-games/hammerfall/pkg/database"
	pkgevents "github.com/hammerfall-games/hammerfall/pkg/events"
)

const tokenTTL = 24 * time.Hour

func main() {
	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load environment variables (local overrides .env)
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Initialize Postgres Connection Pool
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		logger.Error("DATABASE_URL is not set")
		os.Exit(1)
	}

	dbConfig, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		logger.Error("Unable to parse database config", "error", err)
		os.Exit(1)
	}

	pool, err := pgxpool.NewWithConfig(ctx, dbConfig)
	if err != nil {
		logger.Error("Unable to create connection pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if pingErr := pool.Ping(ctx); pingErr != nil {
		logger.Error("Unable to ping database", "error", pingErr)
		os.Exit(1)
	}
	logger.Info("Postgres Connected")

	// 2. Initialize Redis (bid cache)
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		logger.Error("REDIS_URL is not set")
		os.Exit(1)
	}

	rdb := redis.NewClient(&redis.Options{Addr: redisURL})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Error("Unable to ping Redis", "error", err)
		os.Exit(1)
	}
	logger.Info("Redis Connected")

	// 3. Initialize RabbitMQ (event publishing)
	rabbitURL := os.Getenv("RABBITMQ_URL")
	if rabbitURL == "" {
		logger.Error("RABBITMQ_URL is not set")
		os.Exit(1)
	}

	amqpConn, err := amqp091.Dial(rabbitURL)
	if err != nil {
		logger.Error("Failed to connect to RabbitMQ", "error", err)
		os.Exit(1)
	}
	defer amqpConn.Close()

	publisher, err := pkgevents.NewRabbitMQPublisher(amqpConn)
	if err != nil {
		logger.Error("Failed to create RabbitMQ publisher", "error", err)
		os.Exit(1)
	}
	defer publisher.Close()
	logger.Info("RabbitMQ Connected")

	// 4. Initialize Repositories (Infrastructure Layer)
	txManager := pkgdb.NewPostgresTransactionManager(pool, 3*time.Second)
	auctionRepo := database.NewPostgresAuctionRepository(pool)
	ledgerRepo := database.NewPostgresLedgerRepository(pool)
	userRepo := database.NewPostgresUserRepository(pool)
	itemRepo := database.NewPostgresItemRepository(pool)
	inventoryRepo := database.NewPostgresInventoryRepository(pool)
	marketplaceRepo := database.NewPostgresMarketplaceRepository(pool)
	bidCache := cache.NewRedisBidCache(rdb)

	// 5. Initialize Services (Domain Layer)
	economyService := economy.NewService(txManager, ledgerRepo)
	auctionService := auction.NewService(txManager, auctionRepo, bidCache, economyService, publisher, logger)
	userService := users.NewService(userRepo)
	itemService := items.NewService(itemRepo)
	inventoryService := inventory.NewService(inventoryRepo)
	marketplaceService := marketplace.NewService(txManager, marketplaceRepo, economyService)

	processor := commands.NewProcessor(userService, auctionService, economyService, marketplaceService, logger)

	// 6. Initialize HTTP API
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		logger.Error("JWT_SECRET is not set")
		os.Exit(1)
	}
	signer, err := auth.NewSigner([]byte(jwtSecret), "hammerfall", tokenTTL)
	if err != nil {
		logger.Error("Failed to create token signer", "error", err)
		os.Exit(1)
	}

	adminSecret := os.Getenv("ADMIN_SECRET")
	if adminSecret == "" {
		logger.Error("ADMIN_SECRET is not set")
		os.Exit(1)
	}

	router := api.NewRouter(api.Handlers{
		Webhook:   api.NewWebhookHandler(processor, logger),
		Admin:     api.NewAdminHandler(auctionService, itemService, adminSecret, logger),
		Auth:      api.NewAuthHandler(userService, signer, logger),
		Inventory: api.NewInventoryHandler(inventoryService, logger),
	}, signer, logger)

	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// 7. Run server and expiry sweeper until shutdown
	scheduler := auction.NewScheduler(auctionService, auctionRepo, auction.DefaultSweepInterval, logger)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting API server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return scheduler.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("Shutdown complete")
}
