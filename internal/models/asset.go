package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Asset is a tradable symbol in the registry.
type Asset struct {
	Symbol        string          `json:"symbol"`
	Name          string          `json:"name"`
	Price         decimal.Decimal `json:"price"`
	PercentChange decimal.Decimal `json:"percentChange"`
}

// Quote is a price snapshot returned by a market-data provider.
type Quote struct {
	Symbol        string          `json:"symbol"`
	Price         decimal.Decimal `json:"price"`
	PercentChange decimal.Decimal `json:"percentChange"`
	Volume24h     decimal.Decimal `json:"volume24h"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// PricePoint is one sample of a historical price series.
type PricePoint struct {
	Timestamp time.Time       `json:"timestamp"`
	Price     decimal.Decimal `json:"price"`
	Volume    decimal.Decimal `json:"volume"`
}
