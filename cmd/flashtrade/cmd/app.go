package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"flashtrade-sim/internal/config"
	"flashtrade-sim/internal/learning"
	"flashtrade-sim/internal/logger"
	"flashtrade-sim/internal/market"
	"flashtrade-sim/internal/persistence"
	"flashtrade-sim/internal/storage"
	"flashtrade-sim/internal/trader"
	"flashtrade-sim/internal/trading"
)

// app is the wiring shared by every command: config, logger, storage and a
// store holding the restored ledger.
type app struct {
	cfg      config.Config
	log      *zap.Logger
	kv       storage.KV
	store    *trading.Store
	mirror   *persistence.Mirror
	provider market.Provider
	walk     *market.RandomWalk
}

func bootstrap(ctx context.Context) (*app, error) {
	cfg, err := config.LoadConfig(configDir)
	if err != nil {
		// We can't use the logger here because it's not initialized yet.
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return nil, err
	}

	log, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	log.Info("Configuration loaded", zap.String("storage", cfg.Storage.Driver), zap.String("price_source", cfg.Trading.PriceSource))

	kv, err := storage.Open(cfg.Storage)
	if err != nil {
		log.Error("Failed to open storage", zap.Error(err))
		return nil, err
	}

	modules, err := learning.LoadFile(cfg.Learning.ModulesFile)
	if err != nil {
		kv.Close()
		return nil, err
	}

	store := trading.NewStore(trading.NewState(trading.Options{
		UserID:         cfg.Trading.UserID,
		InitialBalance: decimal.NewFromFloat(cfg.Trading.InitialBalance),
		Assets:         market.DefaultAssets(),
		Modules:        modules,
	}), log)

	mirror := persistence.NewMirror(kv, log)
	if _, err := mirror.Restore(ctx, store); err != nil {
		kv.Close()
		return nil, err
	}

	var provider market.Provider
	if cfg.Trading.PriceSource == config.PriceSourceProvider {
		provider = market.NewRestProvider(&cfg.Market, log)
	} else {
		provider = market.NewMockProvider(cfg.Market.Seed)
	}

	return &app{
		cfg:      cfg,
		log:      log,
		kv:       kv,
		store:    store,
		mirror:   mirror,
		provider: provider,
		walk:     market.NewRandomWalk(cfg.Market.Seed),
	}, nil
}

func (a *app) engine() *trader.Engine {
	return trader.NewEngine(a.log, &a.cfg, a.store, a.provider, a.walk)
}

func (a *app) Close() {
	if err := a.kv.Close(); err != nil {
		a.log.Warn("Failed to close storage", zap.Error(err))
	}
	_ = a.log.Sync()
}
