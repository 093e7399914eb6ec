package trading

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flashtrade-sim/internal/market"
	"flashtrade-sim/internal/models"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestState() *State {
	return NewState(Options{
		UserID:         "demo-user",
		InitialBalance: decimal.NewFromInt(10000),
		Assets:         market.DefaultAssets(),
		Modules: []models.LearningModule{
			{ID: 1, Title: "Technical Analysis Basics", Kind: models.ModuleText},
			{ID: 2, Title: "Risk Management", Kind: models.ModuleVideo},
		},
	})
}

func newTrade(id string, side models.Side, symbol, qty, price string) models.Trade {
	return models.Trade{
		ID:         id,
		UserID:     "demo-user",
		Symbol:     symbol,
		Side:       side,
		Quantity:   d(qty),
		EntryPrice: d(price),
		Timestamp:  time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
		Strategy:   "Manual",
	}
}

func mustReduce(t *testing.T, s *State, a Action) *State {
	t.Helper()
	next, err := Reduce(s, a)
	require.NoError(t, err)
	return next
}

func TestReduce_BuyScenario(t *testing.T) {
	s := newTestState()
	next := mustReduce(t, s, ExecuteTrade{Trade: newTrade("t1", models.SideBuy, "ETH", "2", "2300")})

	assert.Equal(t, "5400.00", next.User.VirtualBalance.StringFixed(2))
	assert.Equal(t, 1, next.User.TotalTrades)
	assert.True(t, next.User.TotalPnL.IsZero())
	assert.Equal(t, 0.0, next.User.WinRate)

	// the input state is untouched
	assert.Equal(t, "10000.00", s.User.VirtualBalance.StringFixed(2))
	assert.Empty(t, s.Trades)
}

func TestReduce_SellAddsProceeds(t *testing.T) {
	s := newTestState()
	next := mustReduce(t, s, ExecuteTrade{Trade: newTrade("t1", models.SideSell, "LINK", "10", "15.50")})
	assert.True(t, d("10155").Equal(next.User.VirtualBalance), next.User.VirtualBalance.String())
}

func TestReduce_BalanceInvariant(t *testing.T) {
	testCases := []struct {
		side     models.Side
		qty      string
		price    string
		expected string
	}{
		{models.SideBuy, "1", "45000", ""}, // rejected
		{models.SideBuy, "0.5", "8.75", "9995.625"},
		{models.SideSell, "3", "2300", "16900"},
		{models.SideBuy, "10000", "1.00", "0"},
	}

	for i, tc := range testCases {
		t.Run(fmt.Sprintf("%s %s@%s", tc.side, tc.qty, tc.price), func(t *testing.T) {
			s := newTestState()
			next, err := Reduce(s, ExecuteTrade{Trade: newTrade(fmt.Sprint(i), tc.side, "ETH", tc.qty, tc.price)})
			if tc.expected == "" {
				assert.ErrorIs(t, err, ErrInsufficientBalance)
				assert.Same(t, s, next)
				return
			}
			require.NoError(t, err)
			assert.True(t, d(tc.expected).Equal(next.User.VirtualBalance), next.User.VirtualBalance.String())
		})
	}
}

func TestReduce_TotalTradesMatchesActions(t *testing.T) {
	s := newTestState()
	for i := 0; i < 25; i++ {
		side := models.SideBuy
		if i%3 == 0 {
			side = models.SideSell
		}
		s = mustReduce(t, s, ExecuteTrade{Trade: newTrade(fmt.Sprintf("t%d", i), side, "UNI", "1", "8.75")})
		assert.Equal(t, i+1, s.User.TotalTrades)
		assert.Len(t, s.Trades, i+1)
	}
	assert.True(t, ComputeBalance(s.InitialBalance, s.Trades).Equal(s.User.VirtualBalance))
}

func TestReduce_TradeValidation(t *testing.T) {
	s := mustReduce(t, newTestState(), ExecuteTrade{Trade: newTrade("dup", models.SideBuy, "ETH", "1", "2300")})

	closed := newTrade("closed", models.SideBuy, "ETH", "1", "2300")
	closed.ExitPrice = decimal.NewNullDecimal(d("2400"))

	testCases := []struct {
		name   string
		trade  models.Trade
		reason error
		code   string
	}{
		{"unknown symbol", newTrade("a", models.SideBuy, "DOGE", "1", "1"), ErrUnknownAsset, "UnknownAsset"},
		{"zero quantity", newTrade("b", models.SideBuy, "ETH", "0", "2300"), ErrInvalidQuantity, "InvalidQuantity"},
		{"negative quantity", newTrade("c", models.SideSell, "ETH", "-1", "2300"), ErrInvalidQuantity, "InvalidQuantity"},
		{"zero price", newTrade("d", models.SideBuy, "ETH", "1", "0"), ErrInvalidPrice, "InvalidPrice"},
		{"bad side", newTrade("e", models.Side("hold"), "ETH", "1", "2300"), ErrInvalidSide, "InvalidSide"},
		{"duplicate id", newTrade("dup", models.SideBuy, "ETH", "1", "2300"), ErrDuplicateTrade, "DuplicateTrade"},
		{"too expensive", newTrade("f", models.SideBuy, "BTC", "1", "45000"), ErrInsufficientBalance, "InsufficientBalance"},
		{"already closed", closed, ErrTradeClosed, "TradeClosed"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			next, err := Reduce(s, ExecuteTrade{Trade: tc.trade})
			assert.ErrorIs(t, err, tc.reason)
			assert.Equal(t, tc.code, ReasonCode(err))
			assert.True(t, IsRejection(err))
			assert.Same(t, s, next)
		})
	}
}

func TestReduce_RestoredTradeSkipsBalanceCheck(t *testing.T) {
	s := newTestState()
	next, err := Reduce(s, ExecuteTrade{Trade: newTrade("big", models.SideBuy, "BTC", "1", "45000"), Restored: true})
	require.NoError(t, err)
	assert.True(t, d("-35000").Equal(next.User.VirtualBalance))

	// other validation still applies
	_, err = Reduce(s, ExecuteTrade{Trade: newTrade("x", models.SideBuy, "DOGE", "1", "1"), Restored: true})
	assert.ErrorIs(t, err, ErrUnknownAsset)
}

func TestReduce_CloseTrade(t *testing.T) {
	closedAt := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	t.Run("LongWin", func(t *testing.T) {
		s := mustReduce(t, newTestState(), ExecuteTrade{Trade: newTrade("t1", models.SideBuy, "ETH", "2", "2300")})
		s = mustReduce(t, s, CloseTrade{TradeID: "t1", ExitPrice: d("2400"), ClosedAt: closedAt})

		tr, ok := s.Trade("t1")
		require.True(t, ok)
		assert.True(t, tr.IsClosed())
		assert.True(t, d("200").Equal(tr.ProfitAndLoss))
		require.NotNil(t, tr.ClosedAt)
		assert.Equal(t, closedAt, *tr.ClosedAt)

		assert.True(t, d("10200").Equal(s.User.VirtualBalance), s.User.VirtualBalance.String())
		assert.True(t, d("200").Equal(s.User.TotalPnL))
		assert.Equal(t, 100.0, s.User.WinRate)
		assert.Equal(t, 1, s.User.TotalTrades)
	})

	t.Run("ShortLoss", func(t *testing.T) {
		s := mustReduce(t, newTestState(), ExecuteTrade{Trade: newTrade("s1", models.SideSell, "UNI", "100", "8.75")})
		s = mustReduce(t, s, CloseTrade{TradeID: "s1", ExitPrice: d("9.25")})

		tr, _ := s.Trade("s1")
		assert.True(t, d("-50").Equal(tr.ProfitAndLoss), tr.ProfitAndLoss.String())
		assert.Nil(t, tr.ClosedAt)
		assert.True(t, d("9950").Equal(s.User.VirtualBalance), s.User.VirtualBalance.String())
		assert.Equal(t, 0.0, s.User.WinRate)
	})

	t.Run("Rejections", func(t *testing.T) {
		s := mustReduce(t, newTestState(), ExecuteTrade{Trade: newTrade("t1", models.SideBuy, "ETH", "1", "2300")})
		s = mustReduce(t, s, CloseTrade{TradeID: "t1", ExitPrice: d("2300")})

		_, err := Reduce(s, CloseTrade{TradeID: "nope", ExitPrice: d("1")})
		assert.ErrorIs(t, err, ErrUnknownTrade)

		_, err = Reduce(s, CloseTrade{TradeID: "t1", ExitPrice: d("2500")})
		assert.ErrorIs(t, err, ErrTradeClosed)

		s = mustReduce(t, s, ExecuteTrade{Trade: newTrade("t2", models.SideBuy, "UNI", "1", "8.75")})
		_, err = Reduce(s, CloseTrade{TradeID: "t2", ExitPrice: decimal.Zero})
		assert.ErrorIs(t, err, ErrInvalidPrice)
	})

	t.Run("CannotCoverShortWithoutFunds", func(t *testing.T) {
		s := mustReduce(t, newTestState(), ExecuteTrade{Trade: newTrade("s1", models.SideSell, "ETH", "1", "2300")})
		next, err := Reduce(s, CloseTrade{TradeID: "s1", ExitPrice: d("20000")})
		assert.ErrorIs(t, err, ErrInsufficientBalance)
		assert.Same(t, s, next)
	})
}

func TestReduce_WinRateBounds(t *testing.T) {
	s := newTestState()
	exits := []string{"9", "8", "10", "8.75", "7", "12"}
	for i, exit := range exits {
		id := fmt.Sprintf("t%d", i)
		s = mustReduce(t, s, ExecuteTrade{Trade: newTrade(id, models.SideBuy, "UNI", "10", "8.75")})
		assert.GreaterOrEqual(t, s.User.WinRate, 0.0)
		assert.LessOrEqual(t, s.User.WinRate, 100.0)
		s = mustReduce(t, s, CloseTrade{TradeID: id, ExitPrice: d(exit)})
		assert.GreaterOrEqual(t, s.User.WinRate, 0.0)
		assert.LessOrEqual(t, s.User.WinRate, 100.0)
	}
	// wins: 9, 10, 12 of 6 closed
	assert.Equal(t, 50.0, s.User.WinRate)
	assert.True(t, ComputeStats(s.Trades).Equal(s.Stats()))
}

func TestReduce_SetSelectedAsset(t *testing.T) {
	s := newTestState()
	assert.Equal(t, "ETH", s.SelectedAsset)

	next := mustReduce(t, s, SetSelectedAsset{Symbol: "BTC"})
	assert.Equal(t, "BTC", next.SelectedAsset)

	same, err := Reduce(next, SetSelectedAsset{Symbol: "DOGE"})
	assert.ErrorIs(t, err, ErrUnknownAsset)
	assert.Same(t, next, same)
}

func TestReduce_SetActiveTab(t *testing.T) {
	s := newTestState()
	next := mustReduce(t, s, SetActiveTab{Tab: TabAnalytics})
	assert.Equal(t, TabAnalytics, next.ActiveTab)
	assert.Equal(t, TabTrading, s.ActiveTab)
	assert.Equal(t, s.User, next.User)
	assert.Equal(t, s.Trades, next.Trades)
}

func TestReduce_UpdateAssetPrices(t *testing.T) {
	s := newTestState()
	walk := market.NewRandomWalk(3)
	for i := 0; i < 200; i++ {
		s = mustReduce(t, s, UpdateAssetPrices{Shocks: walk.Shocks(s.AssetOrder)})
		for _, a := range s.Assets {
			assert.True(t, a.Price.GreaterThanOrEqual(market.MinPrice), "%s fell to %s", a.Symbol, a.Price)
		}
	}

	initial := newTestState()
	next := mustReduce(t, initial, UpdateAssetPrices{Shocks: map[string]float64{"ETH": 1, "DOGE": 1}})
	assert.True(t, d("2346").Equal(next.Assets["ETH"].Price))
	assert.True(t, d("2300").Equal(initial.Assets["ETH"].Price), "input registry was mutated")
	assert.True(t, initial.Assets["BTC"].Price.Equal(next.Assets["BTC"].Price))

	unchanged := mustReduce(t, initial, UpdateAssetPrices{Shocks: map[string]float64{"DOGE": 1}})
	assert.Same(t, initial, unchanged)
}

func TestReduce_ApplyQuotes(t *testing.T) {
	s := newTestState()
	next := mustReduce(t, s, ApplyQuotes{Quotes: map[string]models.Quote{
		"BTC":  {Symbol: "BTC", Price: d("46000"), PercentChange: d("2.2")},
		"LINK": {Symbol: "LINK", Price: decimal.Zero},
		"DOGE": {Symbol: "DOGE", Price: d("0.1")},
	}})
	assert.True(t, d("46000").Equal(next.Assets["BTC"].Price))
	assert.True(t, d("2.2").Equal(next.Assets["BTC"].PercentChange))
	assert.True(t, d("15.50").Equal(next.Assets["LINK"].Price))
	assert.NotContains(t, next.Assets, "DOGE")
}

func TestReduce_CompleteModuleIdempotent(t *testing.T) {
	s := newTestState()
	once := mustReduce(t, s, CompleteModule{ID: 2})
	twice := mustReduce(t, once, CompleteModule{ID: 2})

	assert.True(t, once.LearningModules[1].Completed)
	assert.False(t, s.LearningModules[1].Completed)
	assert.Same(t, once, twice)
	assert.Equal(t, once.LearningModules, twice.LearningModules)

	unknown := mustReduce(t, s, CompleteModule{ID: 42})
	assert.Same(t, s, unknown)
}

type resetBalance struct{}

func (resetBalance) Kind() string { return "RESET_BALANCE" }

func TestReduce_UnknownActionIsIgnored(t *testing.T) {
	s := newTestState()
	next, err := Reduce(s, resetBalance{})
	assert.NoError(t, err)
	assert.Same(t, s, next)

	next, err = Reduce(s, nil)
	assert.NoError(t, err)
	assert.Same(t, s, next)
}

func TestReduce_BranchesDoNotShareLedger(t *testing.T) {
	base := mustReduce(t, newTestState(), ExecuteTrade{Trade: newTrade("t0", models.SideBuy, "UNI", "1", "8.75")})
	a := mustReduce(t, base, ExecuteTrade{Trade: newTrade("a", models.SideBuy, "UNI", "1", "8.75")})
	b := mustReduce(t, base, ExecuteTrade{Trade: newTrade("b", models.SideBuy, "UNI", "1", "8.75")})

	assert.Equal(t, "a", a.Trades[1].ID)
	assert.Equal(t, "b", b.Trades[1].ID)
	assert.Len(t, base.Trades, 1)
}

func TestReduce_UpdateAssetPricesIgnoresNaNShock(t *testing.T) {
	s := newTestState()
	next := mustReduce(t, s, UpdateAssetPrices{Shocks: map[string]float64{"ETH": math.NaN()}})

	eth, _ := next.Asset("ETH")
	assert.True(t, d("2300").Equal(eth.Price))
	assert.True(t, eth.PercentChange.IsZero())
}
