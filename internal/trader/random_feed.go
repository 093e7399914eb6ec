package trader

import (
	"context"

	"flashtrade-sim/internal/market"
	"flashtrade-sim/internal/trading"
)

// RandomWalkFeed moves every asset by a bounded random step.
type RandomWalkFeed struct {
	walk *market.RandomWalk
}

func NewRandomWalkFeed(walk *market.RandomWalk) *RandomWalkFeed {
	return &RandomWalkFeed{walk: walk}
}

func (f *RandomWalkFeed) Name() string {
	return "RandomWalk"
}

func (f *RandomWalkFeed) Next(ctx context.Context, state *trading.State) (trading.Action, error) {
	return trading.UpdateAssetPrices{Shocks: f.walk.Shocks(state.AssetOrder)}, nil
}
