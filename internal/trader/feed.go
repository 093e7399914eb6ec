package trader

import (
	"context"

	"flashtrade-sim/internal/trading"
)

// PriceFeed produces the action that moves the market on each tick.
type PriceFeed interface {
	// Name returns the unique name of the feed.
	Name() string

	// Next returns the action to dispatch for the current state.
	Next(ctx context.Context, state *trading.State) (trading.Action, error)
}
