package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront/internal/cache"
	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/events"
	"storefront/internal/handlers"
	"storefront/internal/logger"
	"storefront/internal/middleware"
	"storefront/internal/repositories"
	"storefront/internal/server"
	"storefront/internal/services"

	"github.com/gorilla/sessions"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// productStore is what both the catalog service and the cart engine need
// from product storage
type productStore interface {
	services.ProductRepository
	services.ProductCatalog
}

type stores struct {
	carts      services.CartStore
	products   productStore
	categories services.CategoryRepository
	addresses  services.AddressRepository
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	zlog, err := logger.New(cfg.Log.Level, cfg.Server.Env)
	if err != nil {
		log.Fatal("Failed to build logger:", err)
	}
	defer zlog.Sync()

	if err := run(cfg, zlog); err != nil {
		zlog.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, zlog *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	checks := map[string]handlers.HealthChecker{}

	st, db, err := openStores(ctx, cfg, zlog)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
		checks["database"] = db.PingContext
	}

	cartCache := cache.CartCache(cache.NoopCache{})
	if cfg.Redis.URL != "" {
		client, err := cache.NewRedisClient(ctx, cfg.Redis.URL)
		if err != nil {
			zlog.Warn("redis unavailable, cart cache disabled", zap.Error(err))
		} else {
			defer client.Close()
			cartCache = cache.NewRedisCache(client, cfg.Redis.CartTTL)
			checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
			zlog.Info("cart cache enabled", zap.Duration("ttl", cfg.Redis.CartTTL))
		}
	}

	carts := services.NewCartService(st.carts, st.products, cartCache, zlog)

	g, gctx := errgroup.WithContext(ctx)

	var publisher events.Publisher
	if len(cfg.Kafka.Brokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.Kafka.PriceTopic, cfg.Kafka.Brokers...)
		consumer := events.NewPriceChangeConsumer(carts, zlog, cfg.Kafka.PriceTopic, cfg.Kafka.GroupID, cfg.Kafka.Brokers...)
		defer consumer.Close()
		g.Go(func() error {
			consumer.Run(gctx)
			return nil
		})
		zlog.Info("price changes propagate through kafka",
			zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.String("topic", cfg.Kafka.PriceTopic),
		)
	} else {
		publisher = events.NewInlinePublisher(carts)
	}
	defer publisher.Close()

	products := services.NewProductService(st.products, st.categories, publisher, zlog)
	categories := services.NewCategoryService(st.categories)
	addresses := services.NewAddressService(st.addresses)

	sessionStore := sessions.NewCookieStore([]byte(cfg.Session.Secret))
	sessionStore.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 30, // 30 days
		HttpOnly: true,
		Secure:   cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window)
	defer limiter.Stop()

	router := server.NewRouter(server.Options{
		Logger:      zlog,
		Identity:    middleware.NewIdentityMiddleware(sessionStore, cfg.Session.Name, zlog),
		RateLimiter: limiter,
		CORS:        middleware.DefaultCORSConfig(),
	}, server.Handlers{
		Cart:     handlers.NewCartHandler(carts, zlog),
		Product:  handlers.NewProductHandler(products, zlog),
		Category: handlers.NewCategoryHandler(categories, zlog),
		Address:  handlers.NewAddressHandler(addresses, zlog),
		Health:   handlers.NewHealthHandler(checks, zlog),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g.Go(func() error {
		zlog.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Server.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		zlog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// openStores connects to Postgres and applies migrations. Outside
// production an unreachable database falls back to the in-memory store.
func openStores(ctx context.Context, cfg *config.Config, zlog *zap.Logger) (stores, *database.DB, error) {
	db, err := database.NewConnection(ctx, database.Config{
		URL:      cfg.Database.URL,
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		if cfg.IsProduction() {
			return stores{}, nil, err
		}
		zlog.Warn("database unavailable, using in-memory store", zap.Error(err))
		mem := repositories.NewMemoryStore()
		return stores{
			carts:      mem.Carts,
			products:   mem.Products,
			categories: mem.Categories,
			addresses:  mem.Addresses,
		}, nil, nil
	}

	if err := db.RunMigrations(); err != nil {
		db.Close()
		return stores{}, nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	zlog.Info("database connection established")

	return stores{
		carts:      repositories.NewCartRepository(db.DB),
		products:   repositories.NewProductRepository(db.DB),
		categories: repositories.NewCategoryRepository(db.DB),
		addresses:  repositories.NewAddressRepository(db.DB),
	}, db, nil
}
