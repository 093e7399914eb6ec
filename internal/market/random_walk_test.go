package market

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"flashtrade-sim/internal/models"
)

func TestPerturb(t *testing.T) {
	asset := models.Asset{Symbol: "ETH", Price: decimal.NewFromInt(2300)}

	testCases := []struct {
		name          string
		shock         float64
		expectedPrice string
		expectedPct   string
	}{
		{"Max up", 1, "2346", "2"},
		{"Max down", -1, "2254", "-2"},
		{"Flat", 0, "2300", "0"},
		{"Half up", 0.5, "2323", "1"},
		{"Clamped", 7, "2346", "2"},
		{"NaN is flat", math.NaN(), "2300", "0"},
		{"Positive infinity", math.Inf(1), "2346", "2"},
		{"Negative infinity", math.Inf(-1), "2254", "-2"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := Perturb(asset, tc.shock)
			assert.True(t, decimal.RequireFromString(tc.expectedPrice).Equal(got.Price), "price %s", got.Price)
			assert.True(t, decimal.RequireFromString(tc.expectedPct).Equal(got.PercentChange), "change %s", got.PercentChange)
			assert.Equal(t, "ETH", got.Symbol)
		})
	}
}

func TestPerturb_NeverBelowFloor(t *testing.T) {
	asset := models.Asset{Symbol: "DUST", Price: decimal.RequireFromString("0.01")}
	walk := NewRandomWalk(42)
	for i := 0; i < 500; i++ {
		asset = Perturb(asset, walk.Shocks([]string{"DUST"})["DUST"])
		assert.False(t, asset.Price.LessThan(MinPrice), "price fell to %s", asset.Price)
	}

	asset = Perturb(models.Asset{Price: decimal.RequireFromString("0.01")}, -1)
	assert.True(t, MinPrice.Equal(asset.Price))
}

func TestRandomWalk_Shocks(t *testing.T) {
	walk := NewRandomWalk(7)
	symbols := []string{"ETH", "BTC", "UNI"}
	for i := 0; i < 100; i++ {
		shocks := walk.Shocks(symbols)
		assert.Len(t, shocks, len(symbols))
		for _, s := range shocks {
			assert.GreaterOrEqual(t, s, -1.0)
			assert.Less(t, s, 1.0)
		}
	}

	// same seed, same sequence
	a := NewRandomWalk(99).Shocks(symbols)
	b := NewRandomWalk(99).Shocks(symbols)
	assert.Equal(t, a, b)
}

func TestDefaultAssets(t *testing.T) {
	assets := DefaultAssets()
	assert.Len(t, assets, 5)
	assert.Equal(t, "ETH", assets[0].Symbol)
	assert.True(t, decimal.NewFromInt(2300).Equal(assets[0].Price))
	assert.Equal(t, "Chainlink", AssetName("LINK"))
	assert.Equal(t, "DOGE", AssetName("DOGE"))
}
