package models

import "github.com/shopspring/decimal"

// User is the simulated account. Everything except ID is derived from the ledger.
type User struct {
	ID             string          `json:"userId"`
	VirtualBalance decimal.Decimal `json:"virtualBalance"`
	TotalPnL       decimal.Decimal `json:"totalPnL"`
	WinRate        float64         `json:"winRate"`
	TotalTrades    int             `json:"totalTrades"`
}
