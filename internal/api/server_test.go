package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"flashtrade-sim/internal/config"
	"flashtrade-sim/internal/learning"
	"flashtrade-sim/internal/market"
	"flashtrade-sim/internal/models"
	"flashtrade-sim/internal/session"
	"flashtrade-sim/internal/storage"
	"flashtrade-sim/internal/trader"
	"flashtrade-sim/internal/trading"
)

type testEnv struct {
	server   *Server
	store    *trading.Store
	sessions *session.Manager
	hub      *Hub
}

func setupTestServer(t *testing.T) *testEnv {
	t.Helper()

	cfg := &config.Config{Trading: config.Trading{
		UserID:         "demo-user",
		InitialBalance: 10000,
		TickInterval:   1,
		PriceSource:    config.PriceSourceRandom,
		Strategy:       "Manual",
	}}
	modules, err := learning.Load()
	require.NoError(t, err)

	store := trading.NewStore(trading.NewState(trading.Options{
		UserID:         cfg.Trading.UserID,
		InitialBalance: decimal.NewFromInt(10000),
		Assets:         market.DefaultAssets(),
		Modules:        modules,
	}), zap.NewNop())
	engine := trader.NewEngine(zap.NewNop(), cfg, store, market.NewMockProvider(1), market.NewRandomWalk(1))
	sessions := session.NewManager(storage.NewMemoryStore(), session.DemoProfiles{}, session.Config{
		MaxAge:         24 * time.Hour,
		InitialBalance: decimal.NewFromInt(10000),
	}, zap.NewNop())
	hub := NewHub(zap.NewNop())

	return &testEnv{
		server:   NewServer(0, store, engine, sessions, hub, zap.NewNop()),
		store:    store,
		sessions: sessions,
		hub:      hub,
	}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	env := setupTestServer(t)
	rec := env.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestPlaceOrderAndStats(t *testing.T) {
	env := setupTestServer(t)

	rec := env.do(t, http.MethodPost, "/api/trades", `{"symbol":"ETH","side":"buy","quantity":"2"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	trade := decode[models.Trade](t, rec)
	assert.Equal(t, "ETH", trade.Symbol)
	assert.True(t, decimal.NewFromInt(2300).Equal(trade.EntryPrice))
	assert.False(t, trade.IsClosed())

	rec = env.do(t, http.MethodGet, "/api/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[StatsResponse](t, rec)
	assert.Equal(t, 1, stats.TotalTrades)
	assert.Equal(t, 1, stats.OpenPositions)
	assert.True(t, decimal.NewFromInt(5400).Equal(stats.VirtualBalance))
	assert.Equal(t, "ETH", stats.MostTradedSymbol)
	assert.False(t, stats.RiskReward.Valid)
	require.Contains(t, stats.MaxQuantity, "ETH")
	assert.True(t, decimal.NewFromInt(2).Equal(stats.MaxQuantity["ETH"]))
	assert.True(t, stats.MaxQuantity["BTC"].IsZero())

	rec = env.do(t, http.MethodPost, "/api/trades/"+trade.ID+"/close", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	closed := decode[models.Trade](t, rec)
	assert.True(t, closed.IsClosed())

	rec = env.do(t, http.MethodGet, "/api/trades?status=open", "")
	assert.Empty(t, decode[[]models.Trade](t, rec))
	rec = env.do(t, http.MethodGet, "/api/trades?status=closed", "")
	assert.Len(t, decode[[]models.Trade](t, rec), 1)
}

func TestPlaceOrderRejections(t *testing.T) {
	testCases := []struct {
		name   string
		body   string
		status int
		reason string
	}{
		{name: "InsufficientBalance", body: `{"symbol":"BTC","side":"buy","quantity":"1"}`, status: http.StatusUnprocessableEntity, reason: "InsufficientBalance"},
		{name: "UnknownAsset", body: `{"symbol":"DOGE","side":"buy","quantity":"1"}`, status: http.StatusUnprocessableEntity, reason: "UnknownAsset"},
		{name: "InvalidQuantity", body: `{"symbol":"ETH","side":"buy","quantity":"-1"}`, status: http.StatusUnprocessableEntity, reason: "InvalidQuantity"},
		{name: "InvalidSide", body: `{"symbol":"ETH","side":"hold","quantity":"1"}`, status: http.StatusUnprocessableEntity, reason: "InvalidSide"},
		{name: "MalformedBody", body: `{"symbol":`, status: http.StatusBadRequest, reason: "BadRequest"},
		{name: "UnknownField", body: `{"ticker":"ETH"}`, status: http.StatusBadRequest, reason: "BadRequest"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			env := setupTestServer(t)
			rec := env.do(t, http.MethodPost, "/api/trades", tc.body)
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.reason, decode[errorResponse](t, rec).Error)
			assert.Equal(t, 0, env.store.State().User.TotalTrades)
		})
	}
}

func TestCloseUnknownTrade(t *testing.T) {
	env := setupTestServer(t)
	rec := env.do(t, http.MethodPost, "/api/trades/nope/close", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "UnknownTrade", decode[errorResponse](t, rec).Error)
}

func TestTabAndSelectedAsset(t *testing.T) {
	env := setupTestServer(t)

	assert.Equal(t, http.StatusNoContent, env.do(t, http.MethodPut, "/api/tab", `{"tab":"analytics"}`).Code)
	assert.Equal(t, trading.TabAnalytics, env.store.State().ActiveTab)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPut, "/api/tab", `{"tab":"settings"}`).Code)

	assert.Equal(t, http.StatusNoContent, env.do(t, http.MethodPut, "/api/selected-asset", `{"symbol":"link"}`).Code)
	assert.Equal(t, "LINK", env.store.State().SelectedAsset)

	rec := env.do(t, http.MethodPut, "/api/selected-asset", `{"symbol":"DOGE"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "LINK", env.store.State().SelectedAsset)
}

func TestModules(t *testing.T) {
	env := setupTestServer(t)

	rec := env.do(t, http.MethodGet, "/api/modules", "")
	modules := decode[[]models.LearningModule](t, rec)
	require.NotEmpty(t, modules)
	assert.False(t, modules[0].Completed)

	rec = env.do(t, http.MethodPost, "/api/modules/1/complete", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[models.LearningModule](t, rec).Completed)

	// completing twice is harmless
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/modules/1/complete", "").Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodPost, "/api/modules/99/complete", "").Code)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPost, "/api/modules/abc/complete", "").Code)
}

func TestAssetsAndHistory(t *testing.T) {
	env := setupTestServer(t)

	rec := env.do(t, http.MethodGet, "/api/assets", "")
	assets := decode[[]models.Asset](t, rec)
	require.Len(t, assets, 5)
	assert.Equal(t, "ETH", assets[0].Symbol)

	rec = env.do(t, http.MethodGet, "/api/history/btc?points=12", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.PricePoint](t, rec), 12)

	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/api/history/BTC?points=0", "").Code)
	assert.Equal(t, http.StatusUnprocessableEntity, env.do(t, http.MethodGet, "/api/history/DOGE", "").Code)
}

func TestSessionLifecycle(t *testing.T) {
	env := setupTestServer(t)

	rec := env.do(t, http.MethodGet, "/api/session", "")
	assert.False(t, decode[session.Snapshot](t, rec).Authenticated)

	rec = env.do(t, http.MethodPost, "/api/session", `{"fid":"4242","signature":"sig"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	snap := decode[session.Snapshot](t, rec)
	assert.True(t, snap.Authenticated)
	require.NotNil(t, snap.User)
	assert.Equal(t, "user4242", snap.User.Username)

	rec = env.do(t, http.MethodPost, "/api/session", `{"fid":"","signature":""}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	assert.Equal(t, http.StatusNoContent, env.do(t, http.MethodDelete, "/api/session", "").Code)
	_, ok := env.sessions.Current()
	assert.False(t, ok)
}

func TestStateEndpoint(t *testing.T) {
	env := setupTestServer(t)
	rec := env.do(t, http.MethodGet, "/api/state", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	for _, key := range []string{"user", "trades", "assets", "selectedAsset", "activeTab", "learningModules"} {
		assert.Contains(t, body, key)
	}
}

func TestWebsocketPushesStateChanges(t *testing.T) {
	env := setupTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go env.hub.Run(ctx)
	detach := env.hub.Watch(env.store, env.sessions)
	defer detach()

	srv := httptest.NewServer(env.server.Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var first Event
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, "state", first.Type)

	require.NoError(t, env.store.Dispatch(trading.SetActiveTab{Tab: trading.TabLearning}))

	var pushed struct {
		Type    string `json:"type"`
		Payload struct {
			ActiveTab string `json:"activeTab"`
		} `json:"payload"`
	}
	require.NoError(t, conn.ReadJSON(&pushed))
	assert.Equal(t, "state", pushed.Type)
	assert.Equal(t, "learning", pushed.Payload.ActiveTab)
}
