package market

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"flashtrade-sim/internal/config"
	"flashtrade-sim/internal/models"
)

const maxRetries = 3

// RestProvider reads public ticker data from a Binance-compatible REST API.
type RestProvider struct {
	client     *resty.Client
	quoteAsset string
	logger     *zap.Logger
	limiter    *rate.Limiter
	backoff    time.Duration
}

// ensure RestProvider implements the interface
var _ Provider = (*RestProvider)(nil)

// NewRestProvider creates a provider for the configured market endpoint.
func NewRestProvider(cfg *config.Market, logger *zap.Logger) *RestProvider {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(10 * time.Second)

	// rate.Limit is requests per second.
	limiter := rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst)

	return &RestProvider{
		client:     client,
		quoteAsset: cfg.QuoteAsset,
		logger:     logger.Named("market-rest"),
		limiter:    limiter,
		backoff:    time.Second,
	}
}

// ticker24h is the subset of the /ticker/24hr response we use.
type ticker24h struct {
	Symbol             string `json:"symbol"`
	LastPrice          string `json:"lastPrice"`
	PriceChangePercent string `json:"priceChangePercent"`
	Volume             string `json:"volume"`
	CloseTime          int64  `json:"closeTime"`
}

func (c *RestProvider) pair(symbol string) string {
	return symbol + c.quoteAsset
}

// doRequest handles the actual request execution with rate limiting and retry logic.
func (c *RestProvider) doRequest(ctx context.Context, method, url string, req *resty.Request) (*resty.Response, error) {
	var resp *resty.Response
	var err error

	for i := 0; i < maxRetries; i++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait failed: %w", err)
		}

		c.logger.Debug("Executing request", zap.String("method", method), zap.String("url", c.client.BaseURL+url))
		resp, err = req.SetContext(ctx).Execute(method, url)

		if err == nil && !resp.IsError() {
			return resp, nil
		}

		shouldRetry := false
		var retryAfter time.Duration

		if resp != nil && err == nil {
			statusCode := resp.StatusCode()
			if statusCode == http.StatusTooManyRequests || statusCode == 418 {
				shouldRetry = true
				if seconds, convErr := strconv.Atoi(resp.Header().Get("Retry-After")); convErr == nil {
					retryAfter = time.Duration(seconds) * time.Second
				}
			} else if statusCode >= 500 {
				shouldRetry = true
			}
			if !shouldRetry {
				return nil, fmt.Errorf("request failed with status %s: %s", resp.Status(), resp.String())
			}
			err = fmt.Errorf("status %s", resp.Status())
		} else {
			// network or client-side error
			shouldRetry = true
		}

		if retryAfter == 0 {
			retryAfter = time.Duration(math.Pow(2, float64(i))) * c.backoff
		}

		c.logger.Warn("Request failed, retrying...",
			zap.Int("attempt", i+1),
			zap.Duration("retry_after", retryAfter),
			zap.Error(err),
		)

		select {
		case <-time.After(retryAfter):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", maxRetries, err)
}

// Quotes fetches 24h tickers for symbols in one request. The quote asset
// itself is always priced at 1.
func (c *RestProvider) Quotes(ctx context.Context, symbols []string) (map[string]models.Quote, error) {
	quotes := make(map[string]models.Quote, len(symbols))
	bySymbol := make(map[string]string, len(symbols))
	var pairs []string
	for _, s := range symbols {
		if s == c.quoteAsset {
			quotes[s] = models.Quote{Symbol: s, Price: decimal.NewFromInt(1), UpdatedAt: time.Now()}
			continue
		}
		p := c.pair(s)
		bySymbol[p] = s
		pairs = append(pairs, p)
	}
	if len(pairs) == 0 {
		return quotes, nil
	}

	encoded, err := json.Marshal(pairs)
	if err != nil {
		return nil, err
	}

	var tickers []ticker24h
	req := c.client.R().
		SetQueryParam("symbols", string(encoded)).
		SetResult(&tickers)

	if _, err := c.doRequest(ctx, http.MethodGet, "/ticker/24hr", req); err != nil {
		return nil, fmt.Errorf("failed to get tickers: %w", err)
	}

	for _, t := range tickers {
		symbol, ok := bySymbol[t.Symbol]
		if !ok {
			continue
		}
		price, err := decimal.NewFromString(t.LastPrice)
		if err != nil {
			c.logger.Warn("Skipping ticker with bad price", zap.String("symbol", t.Symbol), zap.String("price", t.LastPrice))
			continue
		}
		change, _ := decimal.NewFromString(t.PriceChangePercent)
		volume, _ := decimal.NewFromString(t.Volume)
		quotes[symbol] = models.Quote{
			Symbol:        symbol,
			Price:         price,
			PercentChange: change,
			Volume24h:     volume,
			UpdatedAt:     time.UnixMilli(t.CloseTime),
		}
	}
	return quotes, nil
}

// History fetches hourly klines and keeps the open time, close price and volume.
func (c *RestProvider) History(ctx context.Context, symbol string, points int) ([]models.PricePoint, error) {
	if strings.TrimSpace(symbol) == "" {
		return nil, fmt.Errorf("empty symbol")
	}

	var klines [][]interface{}
	req := c.client.R().
		SetQueryParams(map[string]string{
			"symbol":   c.pair(symbol),
			"interval": "1h",
			"limit":    strconv.Itoa(points),
		}).
		SetResult(&klines)

	if _, err := c.doRequest(ctx, http.MethodGet, "/klines", req); err != nil {
		return nil, fmt.Errorf("failed to get klines for %s: %w", symbol, err)
	}

	series := make([]models.PricePoint, 0, len(klines))
	for _, k := range klines {
		if len(k) < 6 {
			continue
		}
		openTime, ok := k[0].(float64)
		if !ok {
			continue
		}
		closeStr, _ := k[4].(string)
		volumeStr, _ := k[5].(string)
		price, err := decimal.NewFromString(closeStr)
		if err != nil {
			continue
		}
		volume, _ := decimal.NewFromString(volumeStr)
		series = append(series, models.PricePoint{
			Timestamp: time.UnixMilli(int64(openTime)),
			Price:     price,
			Volume:    volume,
		})
	}
	return series, nil
}
