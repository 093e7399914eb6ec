package trading

import (
	"github.com/shopspring/decimal"

	"flashtrade-sim/internal/models"
)

// State is an immutable snapshot of the simulator. Reduce never modifies a
// State in place; maps and slices are replaced when they change.
type State struct {
	User            models.User             `json:"user"`
	Trades          []models.Trade          `json:"trades"`
	Assets          map[string]models.Asset `json:"assets"`
	AssetOrder      []string                `json:"-"`
	SelectedAsset   string                  `json:"selectedAsset"`
	ActiveTab       Tab                     `json:"activeTab"`
	LearningModules []models.LearningModule `json:"learningModules"`
	InitialBalance  decimal.Decimal         `json:"initialBalance"`

	agg aggregates
}

// Options configures the initial State.
type Options struct {
	UserID         string
	InitialBalance decimal.Decimal
	Assets         []models.Asset
	Modules        []models.LearningModule
}

// NewState builds the starting state: empty ledger, full balance, first asset selected.
func NewState(opts Options) *State {
	assets := make(map[string]models.Asset, len(opts.Assets))
	order := make([]string, 0, len(opts.Assets))
	for _, a := range opts.Assets {
		if _, dup := assets[a.Symbol]; !dup {
			order = append(order, a.Symbol)
		}
		assets[a.Symbol] = a
	}

	modules := make([]models.LearningModule, len(opts.Modules))
	copy(modules, opts.Modules)

	s := &State{
		User: models.User{
			ID:             opts.UserID,
			VirtualBalance: opts.InitialBalance,
			TotalPnL:       decimal.Zero,
		},
		Trades:          []models.Trade{},
		Assets:          assets,
		AssetOrder:      order,
		ActiveTab:       TabTrading,
		LearningModules: modules,
		InitialBalance:  opts.InitialBalance,
		agg:             newAggregates(),
	}
	if len(order) > 0 {
		s.SelectedAsset = order[0]
	}
	return s
}

func (s *State) clone() *State {
	next := *s
	return &next
}

// Asset looks up a symbol in the registry.
func (s *State) Asset(symbol string) (models.Asset, bool) {
	a, ok := s.Assets[symbol]
	return a, ok
}

// AssetList returns the registry in seed order.
func (s *State) AssetList() []models.Asset {
	list := make([]models.Asset, 0, len(s.AssetOrder))
	for _, sym := range s.AssetOrder {
		list = append(list, s.Assets[sym])
	}
	return list
}

// Trade finds a ledger entry by id.
func (s *State) Trade(id string) (models.Trade, bool) {
	if i := s.tradeIndex(id); i >= 0 {
		return s.Trades[i], true
	}
	return models.Trade{}, false
}

func (s *State) tradeIndex(id string) int {
	if id == "" {
		return -1
	}
	for i := range s.Trades {
		if s.Trades[i].ID == id {
			return i
		}
	}
	return -1
}

// OpenTrades returns the trades that have no exit price yet.
func (s *State) OpenTrades() []models.Trade {
	var open []models.Trade
	for _, t := range s.Trades {
		if !t.IsClosed() {
			open = append(open, t)
		}
	}
	return open
}

// MaxQuantity is the largest whole quantity of symbol the balance can buy at
// the registry price. It is zero for unknown symbols or a non-positive balance.
func (s *State) MaxQuantity(symbol string) decimal.Decimal {
	asset, ok := s.Assets[symbol]
	if !ok || !asset.Price.IsPositive() || !s.User.VirtualBalance.IsPositive() {
		return decimal.Zero
	}
	q, _ := s.User.VirtualBalance.QuoRem(asset.Price, 0)
	return q
}

// Stats returns the running aggregates without rescanning the ledger.
func (s *State) Stats() Stats {
	return s.agg.stats()
}

// syncUser copies the aggregates into the derived user fields.
func (s *State) syncUser() {
	st := s.agg.stats()
	s.User.TotalPnL = st.TotalPnL
	s.User.WinRate = st.WinRate
	s.User.TotalTrades = st.TotalTrades
}
