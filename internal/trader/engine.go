package trader

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"flashtrade-sim/internal/config"
	"flashtrade-sim/internal/market"
	"flashtrade-sim/internal/models"
	"flashtrade-sim/internal/trading"
)

// OrderType selects how the entry price of an order is chosen.
type OrderType string

const (
	OrderTypeMarket OrderType = "market"
	OrderTypeLimit  OrderType = "limit"
)

// OrderRequest is what a user submits to open a position.
type OrderRequest struct {
	Symbol     string          `json:"symbol"`
	Side       models.Side     `json:"side"`
	Quantity   decimal.Decimal `json:"quantity"`
	OrderType  OrderType       `json:"orderType"`
	LimitPrice decimal.Decimal `json:"limitPrice"`
	Strategy   string          `json:"strategy"`
}

// Engine drives the simulated market and turns user requests into actions.
type Engine struct {
	logger   *zap.Logger
	cfg      *config.Config
	store    *trading.Store
	feed     PriceFeed
	provider market.Provider
	clock    func() time.Time
	newID    func() string
}

// NewEngine creates a new engine. provider serves price history and, with
// price_source "provider", the ticker quotes.
func NewEngine(logger *zap.Logger, cfg *config.Config, store *trading.Store, provider market.Provider, walk *market.RandomWalk) *Engine {
	logger = logger.Named("engine")

	randomFeed := NewRandomWalkFeed(walk)
	var feed PriceFeed = randomFeed
	if cfg.Trading.PriceSource == config.PriceSourceProvider {
		feed = NewProviderFeed(provider, randomFeed, logger)
	}

	return &Engine{
		logger:   logger,
		cfg:      cfg,
		store:    store,
		feed:     feed,
		provider: provider,
		clock:    time.Now,
		newID:    NewTradeID,
	}
}

// Run starts the market ticker and blocks until ctx is done.
func (e *Engine) Run(ctx context.Context) {
	interval := e.cfg.TickDuration()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	e.logger.Info("Starting market ticker", zap.Duration("interval", interval), zap.String("feed", e.feed.Name()))

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("Stopping market ticker...")
			return
		case <-ticker.C:
			if err := e.Tick(ctx); err != nil {
				e.logger.Error("Tick failed", zap.Error(err))
			}
		}
	}
}

// Tick performs a single market update.
func (e *Engine) Tick(ctx context.Context) error {
	action, err := e.feed.Next(ctx, e.store.State())
	if err != nil {
		return fmt.Errorf("%s feed: %w", e.feed.Name(), err)
	}
	return e.store.Dispatch(action)
}

// PlaceOrder builds a trade from req at the market or limit price and
// dispatches it. Validation is left to the reducer.
func (e *Engine) PlaceOrder(req OrderRequest) (models.Trade, error) {
	state := e.store.State()
	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	if symbol == "" {
		symbol = state.SelectedAsset
	}

	var price decimal.Decimal
	switch req.OrderType {
	case OrderTypeMarket, "":
		asset, ok := state.Asset(symbol)
		if !ok {
			return models.Trade{}, fmt.Errorf("%w: %q", trading.ErrUnknownAsset, symbol)
		}
		price = asset.Price
	case OrderTypeLimit:
		price = req.LimitPrice
	default:
		return models.Trade{}, fmt.Errorf("unknown order type %q", req.OrderType)
	}

	strategy := req.Strategy
	if strategy == "" {
		strategy = e.cfg.Trading.Strategy
	}

	trade := models.Trade{
		ID:            e.newID(),
		UserID:        state.User.ID,
		Symbol:        symbol,
		Side:          req.Side,
		Quantity:      req.Quantity,
		EntryPrice:    price,
		Timestamp:     e.clock().UTC(),
		ProfitAndLoss: decimal.Zero,
		Strategy:      strategy,
	}

	l := e.logger.With(
		zap.String("trade_id", trade.ID),
		zap.String("symbol", symbol),
		zap.String("side", string(req.Side)),
		zap.String("quantity", req.Quantity.String()),
		zap.String("price", price.String()),
	)

	if err := e.store.Dispatch(trading.ExecuteTrade{Trade: trade}); err != nil {
		return models.Trade{}, err
	}
	l.Info("Order filled")
	return trade, nil
}

// ClosePosition closes an open trade at the current registry price.
func (e *Engine) ClosePosition(id string) (models.Trade, error) {
	state := e.store.State()
	t, ok := state.Trade(id)
	if !ok {
		return models.Trade{}, fmt.Errorf("%w: %q", trading.ErrUnknownTrade, id)
	}
	asset, ok := state.Asset(t.Symbol)
	if !ok {
		return models.Trade{}, fmt.Errorf("%w: %q", trading.ErrUnknownAsset, t.Symbol)
	}

	err := e.store.Dispatch(trading.CloseTrade{TradeID: id, ExitPrice: asset.Price, ClosedAt: e.clock().UTC()})
	if err != nil {
		return models.Trade{}, err
	}

	closed, _ := e.store.State().Trade(id)
	e.logger.Info("Position closed",
		zap.String("trade_id", id),
		zap.String("exit_price", asset.Price.String()),
		zap.String("pnl", closed.ProfitAndLoss.String()))
	return closed, nil
}

// History returns the recent price series of symbol from the provider.
func (e *Engine) History(ctx context.Context, symbol string, points int) ([]models.PricePoint, error) {
	if _, ok := e.store.State().Asset(symbol); !ok {
		return nil, fmt.Errorf("%w: %q", trading.ErrUnknownAsset, symbol)
	}
	if points <= 0 {
		points = 24
	}
	return e.provider.History(ctx, symbol, points)
}
