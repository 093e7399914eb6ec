package market

import (
	"context"

	"flashtrade-sim/internal/models"
)

// Provider is the network boundary for market data. The trading core only
// depends on the shape of what it returns.
type Provider interface {
	// Quotes returns the latest quote for each requested symbol it knows.
	Quotes(ctx context.Context, symbols []string) (map[string]models.Quote, error)
	// History returns up to points hourly samples, oldest first.
	History(ctx context.Context, symbol string, points int) ([]models.PricePoint, error)
}
