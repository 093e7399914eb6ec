package trader

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"flashtrade-sim/internal/market"
	"flashtrade-sim/internal/trading"
)

// ProviderFeed copies quotes from a market-data provider. When the provider
// fails it falls back to the random walk so the market keeps moving.
type ProviderFeed struct {
	provider market.Provider
	fallback *RandomWalkFeed
	logger   *zap.Logger
}

func NewProviderFeed(provider market.Provider, fallback *RandomWalkFeed, logger *zap.Logger) *ProviderFeed {
	return &ProviderFeed{provider: provider, fallback: fallback, logger: logger}
}

func (f *ProviderFeed) Name() string {
	return "Provider"
}

func (f *ProviderFeed) Next(ctx context.Context, state *trading.State) (trading.Action, error) {
	quotes, err := f.provider.Quotes(ctx, state.AssetOrder)
	if err == nil && len(quotes) > 0 {
		return trading.ApplyQuotes{Quotes: quotes}, nil
	}
	if err == nil {
		err = fmt.Errorf("provider returned no quotes")
	}
	if f.fallback == nil {
		return nil, err
	}
	f.logger.Warn("Provider unavailable, falling back to random walk", zap.Error(err))
	return f.fallback.Next(ctx, state)
}
