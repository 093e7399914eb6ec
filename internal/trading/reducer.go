package trading

import (
	"fmt"
	"maps"
	"slices"

	"github.com/shopspring/decimal"

	"flashtrade-sim/internal/market"
	"flashtrade-sim/internal/models"
)

// Reduce applies action to s and returns the next state. It never mutates s.
// A rejected action returns s itself together with the reason; an action that
// changes nothing, including one of an unknown kind, returns s and nil.
func Reduce(s *State, action Action) (*State, error) {
	switch a := action.(type) {
	case SetActiveTab:
		if a.Tab == s.ActiveTab {
			return s, nil
		}
		next := s.clone()
		next.ActiveTab = a.Tab
		return next, nil

	case SetSelectedAsset:
		if _, ok := s.Assets[a.Symbol]; !ok {
			return s, fmt.Errorf("%w: %q", ErrUnknownAsset, a.Symbol)
		}
		if a.Symbol == s.SelectedAsset {
			return s, nil
		}
		next := s.clone()
		next.SelectedAsset = a.Symbol
		return next, nil

	case ExecuteTrade:
		return executeTrade(s, a)

	case CloseTrade:
		return closeTrade(s, a)

	case UpdateAssetPrices:
		return updateAssetPrices(s, a), nil

	case ApplyQuotes:
		return applyQuotes(s, a), nil

	case CompleteModule:
		return completeModule(s, a), nil

	default:
		return s, nil
	}
}

func validateTrade(s *State, t models.Trade) error {
	if !t.Side.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidSide, t.Side)
	}
	if _, ok := s.Assets[t.Symbol]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownAsset, t.Symbol)
	}
	if !t.Quantity.IsPositive() {
		return fmt.Errorf("%w: %s", ErrInvalidQuantity, t.Quantity)
	}
	if !t.EntryPrice.IsPositive() {
		return fmt.Errorf("%w: entry %s", ErrInvalidPrice, t.EntryPrice)
	}
	if s.tradeIndex(t.ID) >= 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateTrade, t.ID)
	}
	return nil
}

func executeTrade(s *State, a ExecuteTrade) (*State, error) {
	t := a.Trade
	if err := validateTrade(s, t); err != nil {
		return s, err
	}

	if t.IsClosed() {
		// only snapshots carry closed trades
		if !a.Restored {
			return s, fmt.Errorf("%w: %s", ErrTradeClosed, t.ID)
		}
		if !t.ExitPrice.Decimal.IsPositive() {
			return s, fmt.Errorf("%w: exit %s", ErrInvalidPrice, t.ExitPrice.Decimal)
		}
		t.ProfitAndLoss = t.RealizedPnL(t.ExitPrice.Decimal)
	} else {
		t.ProfitAndLoss = decimal.Zero
	}

	balance := s.User.VirtualBalance.Add(t.EntryCashFlow())
	if t.Side == models.SideBuy && !a.Restored && balance.IsNegative() {
		return s, fmt.Errorf("%w: cost %s exceeds balance %s",
			ErrInsufficientBalance, t.Notional().StringFixed(2), s.User.VirtualBalance.StringFixed(2))
	}
	if t.IsClosed() {
		balance = balance.Add(t.ExitCashFlow(t.ExitPrice.Decimal))
	}

	next := s.clone()
	next.Trades = append(slices.Clip(s.Trades), t)
	next.User.VirtualBalance = balance
	next.agg.add(t)
	next.syncUser()
	return next, nil
}

func closeTrade(s *State, a CloseTrade) (*State, error) {
	i := s.tradeIndex(a.TradeID)
	if i < 0 {
		return s, fmt.Errorf("%w: %q", ErrUnknownTrade, a.TradeID)
	}
	t := s.Trades[i]
	if t.IsClosed() {
		return s, fmt.Errorf("%w: %s", ErrTradeClosed, t.ID)
	}
	if !a.ExitPrice.IsPositive() {
		return s, fmt.Errorf("%w: exit %s", ErrInvalidPrice, a.ExitPrice)
	}

	balance := s.User.VirtualBalance.Add(t.ExitCashFlow(a.ExitPrice))
	if balance.IsNegative() {
		return s, fmt.Errorf("%w: covering %s needs %s, balance is %s", ErrInsufficientBalance,
			t.ID, t.Quantity.Mul(a.ExitPrice).StringFixed(2), s.User.VirtualBalance.StringFixed(2))
	}

	t.ExitPrice.Decimal = a.ExitPrice
	t.ExitPrice.Valid = true
	t.ProfitAndLoss = t.RealizedPnL(a.ExitPrice)
	if !a.ClosedAt.IsZero() {
		closedAt := a.ClosedAt
		t.ClosedAt = &closedAt
	}

	next := s.clone()
	next.Trades = slices.Clone(s.Trades)
	next.Trades[i] = t
	next.User.VirtualBalance = balance
	next.agg.close(t)
	next.syncUser()
	return next, nil
}

func updateAssetPrices(s *State, a UpdateAssetPrices) *State {
	assets := maps.Clone(s.Assets)
	changed := false
	for symbol, shock := range a.Shocks {
		asset, ok := assets[symbol]
		if !ok {
			continue
		}
		assets[symbol] = market.Perturb(asset, shock)
		changed = true
	}
	if !changed {
		return s
	}
	next := s.clone()
	next.Assets = assets
	return next
}

func applyQuotes(s *State, a ApplyQuotes) *State {
	assets := maps.Clone(s.Assets)
	changed := false
	for symbol, q := range a.Quotes {
		asset, ok := assets[symbol]
		if !ok || !q.Price.IsPositive() {
			continue
		}
		asset.Price = q.Price
		asset.PercentChange = q.PercentChange
		assets[symbol] = asset
		changed = true
	}
	if !changed {
		return s
	}
	next := s.clone()
	next.Assets = assets
	return next
}

func completeModule(s *State, a CompleteModule) *State {
	i := slices.IndexFunc(s.LearningModules, func(m models.LearningModule) bool {
		return m.ID == a.ID
	})
	if i < 0 || s.LearningModules[i].Completed {
		return s
	}
	next := s.clone()
	next.LearningModules = slices.Clone(s.LearningModules)
	next.LearningModules[i].Completed = true
	return next
}
