package trading

import (
	"maps"

	"github.com/shopspring/decimal"

	"flashtrade-sim/internal/models"
)

// Stats are the performance figures derived from the ledger.
type Stats struct {
	TotalPnL      decimal.Decimal `json:"totalPnL"`
	WinRate       float64         `json:"winRate"`
	TotalTrades   int             `json:"totalTrades"`
	ClosedTrades  int             `json:"closedTrades"`
	WinningTrades int             `json:"winningTrades"`
	LosingTrades  int             `json:"losingTrades"`
	AverageWin    decimal.Decimal `json:"averageWin"`
	AverageLoss   decimal.Decimal `json:"averageLoss"`

	// RiskReward is |AverageWin / AverageLoss|, null while there are no losses.
	RiskReward       decimal.NullDecimal `json:"riskReward"`
	// MostTradedSymbol has the most ledger entries; ties go to the symbol
	// that reached the count first.
	MostTradedSymbol string              `json:"mostTradedSymbol"`
}

// Equal compares stats by value; decimals with different exponents compare equal.
func (s Stats) Equal(o Stats) bool {
	return s.TotalPnL.Equal(o.TotalPnL) &&
		s.WinRate == o.WinRate &&
		s.TotalTrades == o.TotalTrades &&
		s.ClosedTrades == o.ClosedTrades &&
		s.WinningTrades == o.WinningTrades &&
		s.LosingTrades == o.LosingTrades &&
		s.AverageWin.Equal(o.AverageWin) &&
		s.AverageLoss.Equal(o.AverageLoss) &&
		s.RiskReward.Valid == o.RiskReward.Valid &&
		(!s.RiskReward.Valid || s.RiskReward.Decimal.Equal(o.RiskReward.Decimal)) &&
		s.MostTradedSymbol == o.MostTradedSymbol
}

// ComputeStats rescans the whole ledger. Only closed trades count towards
// P&L and win rate; TotalTrades counts everything.
func ComputeStats(trades []models.Trade) Stats {
	agg := newAggregates()
	for _, t := range trades {
		agg.add(t)
	}
	return agg.stats()
}

// ComputeBalance replays the cash flows of trades against initial.
func ComputeBalance(initial decimal.Decimal, trades []models.Trade) decimal.Decimal {
	balance := initial
	for _, t := range trades {
		balance = balance.Add(t.EntryCashFlow())
		if t.IsClosed() {
			balance = balance.Add(t.ExitCashFlow(t.ExitPrice.Decimal))
		}
	}
	return balance
}

// aggregates are running sums kept alongside the ledger so that statistics
// never rescan it. Closing is O(1); an append also copies the per-symbol
// counts, which are bounded by the asset registry.
type aggregates struct {
	total   int
	closed  int
	wins    int
	losses  int
	pnl     decimal.Decimal
	winSum  decimal.Decimal
	lossSum decimal.Decimal

	// counts is shared between states; add replaces it instead of writing to it.
	counts      map[string]int
	leader      string
	leaderCount int
}

func newAggregates() aggregates {
	return aggregates{pnl: decimal.Zero, winSum: decimal.Zero, lossSum: decimal.Zero}
}

// add accounts for a newly appended trade, open or closed.
func (a *aggregates) add(t models.Trade) {
	a.total++

	a.counts = maps.Clone(a.counts)
	if a.counts == nil {
		a.counts = make(map[string]int)
	}
	a.counts[t.Symbol]++
	if n := a.counts[t.Symbol]; n > a.leaderCount {
		a.leader, a.leaderCount = t.Symbol, n
	}

	if t.IsClosed() {
		a.close(t)
	}
}

// close accounts for a trade that just became closed.
func (a *aggregates) close(t models.Trade) {
	a.closed++
	a.pnl = a.pnl.Add(t.ProfitAndLoss)
	switch {
	case t.ProfitAndLoss.IsPositive():
		a.wins++
		a.winSum = a.winSum.Add(t.ProfitAndLoss)
	case t.ProfitAndLoss.IsNegative():
		a.losses++
		a.lossSum = a.lossSum.Add(t.ProfitAndLoss)
	}
}

func (a aggregates) stats() Stats {
	st := Stats{
		TotalPnL:      a.pnl,
		TotalTrades:   a.total,
		ClosedTrades:  a.closed,
		WinningTrades: a.wins,
		LosingTrades:  a.losses,
		AverageWin:    decimal.Zero,
		AverageLoss:   decimal.Zero,

		MostTradedSymbol: a.leader,
	}
	if a.closed > 0 {
		st.WinRate = float64(a.wins) / float64(a.closed) * 100
	}
	if a.wins > 0 {
		st.AverageWin = a.winSum.Div(decimal.NewFromInt(int64(a.wins)))
	}
	if a.losses > 0 {
		st.AverageLoss = a.lossSum.Div(decimal.NewFromInt(int64(a.losses)))
		st.RiskReward = decimal.NewNullDecimal(st.AverageWin.Div(st.AverageLoss).Abs().Round(4))
	}
	return st
}
