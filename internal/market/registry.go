package market

import (
	"github.com/shopspring/decimal"

	"flashtrade-sim/internal/models"
)

// DefaultAssets returns the seed list the registry starts from, in display order.
func DefaultAssets() []models.Asset {
	return []models.Asset{
		newAsset("ETH", "Ethereum", "2300", "2.5"),
		newAsset("BTC", "Bitcoin", "45000", "-1.2"),
		newAsset("USDC", "USD Coin", "1.00", "0.1"),
		newAsset("LINK", "Chainlink", "15.50", "3.8"),
		newAsset("UNI", "Uniswap", "8.75", "-0.5"),
	}
}

// AssetName maps a known symbol to its display name, falling back to the symbol.
func AssetName(symbol string) string {
	for _, a := range DefaultAssets() {
		if a.Symbol == symbol {
			return a.Name
		}
	}
	return symbol
}

func newAsset(symbol, name, price, change string) models.Asset {
	return models.Asset{
		Symbol:        symbol,
		Name:          name,
		Price:         decimal.RequireFromString(price),
		PercentChange: decimal.RequireFromString(change),
	}
}
