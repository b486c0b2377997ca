// Command autopricer derives buy/sell prices for tradable items from
// community listings and serves the resulting pricelist over HTTP and
// websocket.
//
// Usage:
//
//	autopricer --config config.yaml
//	autopricer --init   (interactive setup wizard)
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/scrapyard/autopricer/config"
	"github.com/scrapyard/autopricer/internal/app"
	"github.com/scrapyard/autopricer/internal/server"
	"github.com/scrapyard/autopricer/internal/services/baseline"
	"github.com/scrapyard/autopricer/internal/services/catalog"
	"github.com/scrapyard/autopricer/internal/services/listings"
	"github.com/scrapyard/autopricer/internal/services/pricelist"
	"github.com/scrapyard/autopricer/internal/services/pricing"
	"github.com/scrapyard/autopricer/internal/setup"
)

func main() {
	cfg, runInit, err := config.Get()
	if err != nil {
		log.Fatal(err)
	}
	if runInit {
		if err := setup.RunTUI(); err != nil {
			log.Fatal(err)
		}
		return
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil && !isShutdown(err) {
		logger.Fatal("autopricer stopped", zap.Error(err))
	}
	logger.Info("autopricer stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	db, err := sqlx.Connect("postgres", cfg.PostgresDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()

	store := listings.NewStore(db)
	if err := store.EnsureSchema(ctx); err != nil {
		return err
	}

	cat, err := catalog.Load(cfg.ItemListPath)
	if err != nil {
		return err
	}

	// Snapshots stay usable across two missed refreshes before going dark.
	baselineClient := baseline.NewClient(cfg.BaselineURL, rdb, 3*cfg.BaselineRefreshInterval, logger)

	prices, err := pricelist.New(cfg.WalDir, cfg.PricelistPath, logger)
	if err != nil {
		return err
	}
	defer prices.Close()

	hub := server.NewHub(logger)
	go hub.Run(ctx)

	srv := server.NewServer(cfg.ListenAddr, prices, hub, logger)
	go func() {
		var err error
		if len(cfg.TLSDomains) > 0 {
			err = srv.StartWithAutoTLS(ctx, cfg.TLSDomains, cfg.CertCacheDir)
		} else {
			err = srv.Start(ctx)
		}
		if err != nil {
			logger.Error("api server failed", zap.Error(err))
		}
	}()

	if cfg.ListingFeedURL != "" {
		feed := listings.NewFeed(cfg.ListingFeedURL, cat, store, logger)
		go func() {
			if err := feed.Run(ctx); err != nil && !isShutdown(err) {
				logger.Error("listing feed failed", zap.Error(err))
			}
		}()
	}

	engine := pricing.NewEngine(pricing.Options{
		Filter: pricing.FilterRules{
			ExcludedSteamIDs:     toSet(cfg.ExcludedSteamIDs),
			ExcludedDescriptions: cfg.ExcludedDescriptions,
			BlockedAttributes:    cfg.BlockedAttributes,
		},
		TrustedSteamIDs: toSet(cfg.TrustedSteamIDs),
		Tolerance: pricing.Tolerance{
			MaxBuyPremium:   cfg.MaxBuyPremium,
			MinSellDiscount: cfg.MinSellDiscount,
		},
	})

	pricer := app.NewPricer(cat, store, baselineClient, engine, prices, hub,
		cfg.PriceInterval, cfg.BaselineRefreshInterval, cfg.EmitDelay, logger)
	return pricer.Run(ctx)
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func isShutdown(err error) bool {
	return err == nil || errors.Is(err, context.Canceled)
}
