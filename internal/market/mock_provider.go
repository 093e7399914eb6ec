package market

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"flashtrade-sim/internal/models"
)

// MockProvider generates plausible quotes around fixed base prices.
type MockProvider struct {
	mu    sync.Mutex
	rng   *rand.Rand
	base  map[string]decimal.Decimal
	clock func() time.Time
}

var _ Provider = (*MockProvider)(nil)

// NewMockProvider seeds base prices from DefaultAssets. Unknown symbols are priced around 100.
func NewMockProvider(seed int64) *MockProvider {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	base := make(map[string]decimal.Decimal)
	for _, a := range DefaultAssets() {
		base[a.Symbol] = a.Price
	}
	return &MockProvider{
		rng:   rand.New(rand.NewSource(seed)),
		base:  base,
		clock: time.Now,
	}
}

func (p *MockProvider) basePrice(symbol string) decimal.Decimal {
	if b, ok := p.base[symbol]; ok {
		return b
	}
	return decimal.NewFromInt(100)
}

// jitter returns base scaled by a uniform factor in [1-spread, 1+spread).
func (p *MockProvider) jitter(base decimal.Decimal, spread float64) decimal.Decimal {
	factor := 1 - spread + p.rng.Float64()*2*spread
	return base.Mul(decimal.NewFromFloat(factor)).Round(pricePlaces)
}

// Quotes returns prices within ±5% of the base and a change within ±5%.
func (p *MockProvider) Quotes(ctx context.Context, symbols []string) (map[string]models.Quote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.clock()
	quotes := make(map[string]models.Quote, len(symbols))
	for _, s := range symbols {
		quotes[s] = models.Quote{
			Symbol:        s,
			Price:         p.jitter(p.basePrice(s), 0.05),
			PercentChange: decimal.NewFromFloat((p.rng.Float64() - 0.5) * 10).Round(4),
			Volume24h:     decimal.NewFromFloat(p.rng.Float64() * 10_000_000).Round(2),
			UpdatedAt:     now,
		}
	}
	return quotes, nil
}

// History returns points hourly samples ending now.
func (p *MockProvider) History(ctx context.Context, symbol string, points int) ([]models.PricePoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.clock()
	base := p.basePrice(symbol)
	series := make([]models.PricePoint, 0, points)
	for i := 0; i < points; i++ {
		series = append(series, models.PricePoint{
			Timestamp: now.Add(-time.Duration(points-i) * time.Hour),
			Price:     p.jitter(base, 0.05),
			Volume:    decimal.NewFromFloat(p.rng.Float64() * 1_000_000).Round(2),
		})
	}
	return series, nil
}
