package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side is the direction of a trade.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Valid reports whether s is one of the known sides.
func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

// Trade is one entry of the ledger. A trade is a position: it opens at
// EntryPrice and is closed once ExitPrice is set.
type Trade struct {
	ID            string              `json:"id"`
	UserID        string              `json:"userId"`
	Symbol        string              `json:"symbol"`
	Side          Side                `json:"side"`
	Quantity      decimal.Decimal     `json:"quantity"`
	EntryPrice    decimal.Decimal     `json:"entryPrice"`
	ExitPrice     decimal.NullDecimal `json:"exitPrice"`
	Timestamp     time.Time           `json:"timestamp"`
	ClosedAt      *time.Time          `json:"closedAt,omitempty"`
	ProfitAndLoss decimal.Decimal     `json:"profitAndLoss"`
	Strategy      string              `json:"strategy"`
}

// IsClosed reports whether the trade has an exit price.
func (t Trade) IsClosed() bool {
	return t.ExitPrice.Valid
}

// Notional is quantity times entry price.
func (t Trade) Notional() decimal.Decimal {
	return t.Quantity.Mul(t.EntryPrice)
}

// EntryCashFlow is the change to the balance when the trade is opened:
// a buy pays the notional, a sell receives it.
func (t Trade) EntryCashFlow() decimal.Decimal {
	if t.Side == SideBuy {
		return t.Notional().Neg()
	}
	return t.Notional()
}

// ExitCashFlow is the change to the balance when the trade is closed at exit.
func (t Trade) ExitCashFlow(exit decimal.Decimal) decimal.Decimal {
	value := t.Quantity.Mul(exit)
	if t.Side == SideBuy {
		return value
	}
	return value.Neg()
}

// RealizedPnL is the profit of closing the trade at exit.
func (t Trade) RealizedPnL(exit decimal.Decimal) decimal.Decimal {
	return t.EntryCashFlow().Add(t.ExitCashFlow(exit))
}
