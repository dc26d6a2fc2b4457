package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/liabooks/cartsync/internal/auth"
	"github.com/liabooks/cartsync/internal/cart"
	"github.com/liabooks/cartsync/internal/cartapi"
	"github.com/liabooks/cartsync/internal/stock"
	"github.com/liabooks/cartsync/pkg/config"
	"github.com/liabooks/cartsync/pkg/logger"
	"github.com/liabooks/cartsync/pkg/metrics"
	"github.com/liabooks/cartsync/pkg/redis"
	"github.com/liabooks/cartsync/pkg/storage"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cartsync"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "cartsync",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx := context.Background()

	store, err := storage.New(ctx, cfg.Storage, logg)
	if err != nil {
		logg.Error(ctx, "failed to open local storage", err)
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logg.Error(ctx, "error closing local storage", err)
		}
	}()

	cartStore, err := cart.NewStore(ctx, store, cfg.Storage, logg)
	if err != nil {
		logg.Error(ctx, "failed to hydrate cart", err)
		os.Exit(1)
	}

	engineMetrics := metrics.NewEngineMetrics(prometheus.DefaultRegisterer)

	session := auth.NewSession(auth.StaticToken(cfg.Auth.Token))
	apiClient := cartapi.NewClient(session,
		cartapi.WithBaseURL(cfg.API.BaseURL),
		cartapi.WithHTTPClient(&http.Client{Timeout: cfg.API.Timeout}),
	)

	var stockCache stock.Cache
	if cfg.Redis.Enabled() {
		redisClient, err := redis.New(ctx, cfg.Redis)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(ctx, "error closing redis", err)
			}
		}()
		stockCache = stock.NewRedisCache(redisClient, cfg.Stock.CacheTTL, logg)
	} else {
		stockCache = stock.NewMemoryCache(cfg.Stock.CacheTTL)
	}

	checker := stock.NewChecker(apiClient, stockCache, logg, engineMetrics)
	service := cart.NewService(cartStore, apiClient, checker, session, logg, engineMetrics)

	ctx = logg.WithFields(ctx, map[string]any{
		"env":     cfg.App.Env,
		"cart_id": cartStore.CartID(),
	})
	logg.Info(ctx, "cart engine ready")

	snapshot, err := service.Refresh(ctx)
	if err != nil {
		logg.Error(ctx, "initial cart refresh failed", err)
		os.Exit(1)
	}

	ctx = logg.WithFields(ctx, map[string]any{
		"lines":          len(snapshot.Lines),
		"total_quantity": snapshot.TotalQuantity(),
		"total_value":    snapshot.TotalValue().StringFixed(2),
	})
	logg.Info(ctx, "cart synchronized")
}
