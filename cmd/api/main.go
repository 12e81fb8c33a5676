package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/flicky/storefront/internal/config"
	"github.com/flicky/storefront/internal/format"
	"github.com/flicky/storefront/internal/handler"
	"github.com/flicky/storefront/internal/logger"
	"github.com/flicky/storefront/internal/middleware"
	"github.com/flicky/storefront/internal/repository"
	"github.com/flicky/storefront/internal/service"
	"github.com/flicky/storefront/internal/store"
	"github.com/flicky/storefront/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	log := logger.New(logger.Options{
		Service: cfg.App.Name,
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
	})

	if err := run(cfg, log); err != nil {
		log.Error("storefront exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// PostgreSQL
	poolCfg, err := pgxpool.ParseConfig(cfg.DB.DSN())
	if err != nil {
		return fmt.Errorf("parse db config: %w", err)
	}
	poolCfg.MaxConns = cfg.DB.MaxConns

	dbPool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer dbPool.Close()

	if err := dbPool.Ping(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	if err := repository.Migrate(ctx, dbPool); err != nil {
		return err
	}
	log.Info("connected to PostgreSQL")

	// Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("connect to Redis: %w", err)
	}
	log.Info("connected to Redis")

	// RabbitMQ
	amqpConn, err := amqp.Dial(cfg.RabbitMQ.URL)
	if err != nil {
		return fmt.Errorf("connect to RabbitMQ: %w", err)
	}
	defer amqpConn.Close()

	consumeCh, err := amqpConn.Channel()
	if err != nil {
		return fmt.Errorf("open RabbitMQ channel: %w", err)
	}
	defer consumeCh.Close()

	publishCh, err := amqpConn.Channel()
	if err != nil {
		return fmt.Errorf("open RabbitMQ channel: %w", err)
	}
	defer publishCh.Close()

	if err := worker.SetupRabbitMQ(consumeCh); err != nil {
		return fmt.Errorf("setup RabbitMQ: %w", err)
	}
	log.Info("connected to RabbitMQ")

	// Repositories
	kv := store.NewRedis(redisClient)
	userRepo := repository.NewUserRepository(dbPool)
	profileRepo := repository.NewProfileRepository(dbPool)
	productRepo := repository.NewProductRepository(dbPool)
	orderRepo := repository.NewOrderRepository(dbPool)
	cartRepo := repository.NewCartRepository(kv)
	sessionRepo := repository.NewSessionRepository(kv)

	// Services
	events := worker.NewPublisher(publishCh)
	cache := service.NewProductCache(redisClient, cfg.Catalog.CacheTTL)
	sessionSvc := service.NewSessionService(sessionRepo, cfg.JWT.Expiration)
	authSvc := service.NewAuthService(userRepo, profileRepo, sessionSvc, cfg.JWT.Secret, cfg.JWT.Expiration)
	catalogSvc := service.NewCatalogService(productRepo, cache)
	cartSvc := service.NewCartService(cartRepo, productRepo)
	orderSvc := service.NewOrderService(orderRepo, cartRepo, cache, events, log)
	adminSvc := service.NewAdminService(productRepo, orderRepo, cache, events, log)

	// Handlers
	money := format.NewMoney(cfg.Display.Locale, cfg.Display.CurrencySymbol)
	handlers := handler.Handlers{
		Health:  handler.NewHealthHandler(dbPool, redisClient, amqpConn),
		Auth:    handler.NewAuthHandler(authSvc),
		Product: handler.NewProductHandler(catalogSvc, money),
		Cart:    handler.NewCartHandler(cartSvc, sessionSvc, money, log),
		Order:   handler.NewOrderHandler(orderSvc, money),
		Admin:   handler.NewAdminHandler(adminSvc, money),
	}

	if cfg.App.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	handler.Register(router, handlers, middleware.Authenticate(authSvc))

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	statusWorker := worker.NewStatusWorker(consumeCh, orderRepo, cache, redisClient, log)

	g, gctx := errgroup.WithContext(ctx)
	// Open event streams end when the process starts shutting down.
	srv.BaseContext = func(net.Listener) context.Context { return gctx }

	g.Go(func() error {
		return statusWorker.Run(gctx)
	})
	g.Go(func() error {
		log.Info("starting HTTP server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})

	err = g.Wait()
	log.Info("server stopped")
	return err
}
