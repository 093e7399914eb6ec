package market

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"flashtrade-sim/internal/models"
)

var (
	// MinPrice is the floor of the random walk.
	MinPrice = decimal.RequireFromString("0.01")
	// MaxStep is the largest relative move of a single tick.
	MaxStep = decimal.RequireFromString("0.02")

	hundred = decimal.NewFromInt(100)
)

const pricePlaces = 8

// Perturb applies one random-walk step to asset. shock is clamped to [-1, 1]
// and scales a move of at most MaxStep of the current price; NaN counts as 0.
// The percent change is the move relative to the price before the step.
func Perturb(asset models.Asset, shock float64) models.Asset {
	if math.IsNaN(shock) {
		shock = 0
	} else if shock > 1 {
		shock = 1
	} else if shock < -1 {
		shock = -1
	}

	prev := asset.Price
	delta := prev.Mul(decimal.NewFromFloat(shock)).Mul(MaxStep)
	next := decimal.Max(MinPrice, prev.Add(delta)).Round(pricePlaces)

	asset.Price = next
	if prev.IsPositive() {
		asset.PercentChange = next.Sub(prev).Div(prev).Mul(hundred).Round(4)
	} else {
		asset.PercentChange = decimal.Zero
	}
	return asset
}

// RandomWalk draws the shocks fed to Perturb. It is safe for concurrent use.
type RandomWalk struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomWalk returns a walk seeded with seed, or from the clock when seed is 0.
func NewRandomWalk(seed int64) *RandomWalk {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &RandomWalk{rng: rand.New(rand.NewSource(seed))}
}

// Shocks returns one uniform value in [-1, 1) per symbol.
func (w *RandomWalk) Shocks(symbols []string) map[string]float64 {
	w.mu.Lock()
	defer w.mu.Unlock()

	shocks := make(map[string]float64, len(symbols))
	for _, s := range symbols {
		shocks[s] = w.rng.Float64()*2 - 1
	}
	return shocks
}
