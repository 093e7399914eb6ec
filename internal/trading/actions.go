package trading

import (
	"time"

	"github.com/shopspring/decimal"

	"flashtrade-sim/internal/models"
)

// Action is a state transition request. Kinds Reduce does not know are ignored.
type Action interface {
	Kind() string
}

// Tab selects the visible section of the display.
type Tab string

const (
	TabTrading   Tab = "trading"
	TabAnalytics Tab = "analytics"
	TabLearning  Tab = "learning"
)

type SetActiveTab struct {
	Tab Tab
}

type SetSelectedAsset struct {
	Symbol string
}

// ExecuteTrade appends Trade to the ledger. Restored marks a trade replayed
// from a snapshot; only restored trades may arrive closed, and they skip the
// balance check.
type ExecuteTrade struct {
	Trade    models.Trade
	Restored bool
}

// CloseTrade sets the exit price of an open trade and realizes its P&L.
type CloseTrade struct {
	TradeID   string
	ExitPrice decimal.Decimal
	ClosedAt  time.Time
}

// UpdateAssetPrices moves every asset one random-walk step. Shocks holds a
// value in [-1, 1] per symbol; symbols without a shock are left alone.
type UpdateAssetPrices struct {
	Shocks map[string]float64
}

// ApplyQuotes overwrites registry prices with provider quotes for known symbols.
type ApplyQuotes struct {
	Quotes map[string]models.Quote
}

type CompleteModule struct {
	ID int
}

func (SetActiveTab) Kind() string      { return "SET_ACTIVE_TAB" }
func (SetSelectedAsset) Kind() string  { return "SET_SELECTED_ASSET" }
func (ExecuteTrade) Kind() string      { return "EXECUTE_TRADE" }
func (CloseTrade) Kind() string        { return "CLOSE_TRADE" }
func (UpdateAssetPrices) Kind() string { return "UPDATE_ASSET_PRICES" }
func (ApplyQuotes) Kind() string       { return "APPLY_QUOTES" }
func (CompleteModule) Kind() string    { return "COMPLETE_MODULE" }
