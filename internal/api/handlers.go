package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"flashtrade-sim/internal/models"
	"flashtrade-sim/internal/session"
	"flashtrade-sim/internal/trader"
	"flashtrade-sim/internal/trading"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// StatsResponse is the body of GET /api/stats.
type StatsResponse struct {
	trading.Stats
	VirtualBalance decimal.Decimal `json:"virtualBalance"`
	InitialBalance decimal.Decimal `json:"initialBalance"`
	OpenPositions  int             `json:"openPositions"`
	// MaxQuantity is the largest whole buy per symbol at the current balance.
	MaxQuantity map[string]decimal.Decimal `json:"maxQuantity"`
}

type tabRequest struct {
	Tab trading.Tab `json:"tab"`
}

type selectAssetRequest struct {
	Symbol string `json:"symbol"`
}

type loginRequest struct {
	FID       string `json:"fid"`
	Signature string `json:"signature"`
	Demo      bool   `json:"demo"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to write response", zap.Error(err))
	}
}

// writeError maps rejections to 422 and everything else to 500.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case trading.IsRejection(err):
		s.writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: trading.ReasonCode(err), Message: err.Error()})
	case errors.Is(err, session.ErrVerificationFailed):
		s.writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "VerificationFailed", Message: err.Error()})
	default:
		s.logger.Error("Request failed", zap.Error(err))
		s.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Internal", Message: err.Error()})
	}
}

func (s *Server) badRequest(w http.ResponseWriter, msg string) {
	s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "BadRequest", Message: msg})
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	s.hub.ServeWS(w, r, s.store.State())
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.store.State())
}

func (s *Server) handleAssets(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.store.State().AssetList())
}

// handleTrades returns the ledger, most recent first. ?status=open|closed filters it.
func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	state := s.store.State()
	status := r.URL.Query().Get("status")

	trades := make([]models.Trade, 0, len(state.Trades))
	for i := len(state.Trades) - 1; i >= 0; i-- {
		t := state.Trades[i]
		switch {
		case status == "open" && t.IsClosed():
			continue
		case status == "closed" && !t.IsClosed():
			continue
		}
		trades = append(trades, t)
	}
	s.writeJSON(w, http.StatusOK, trades)
}

func (s *Server) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req trader.OrderRequest
	if err := decodeBody(r, &req); err != nil {
		s.badRequest(w, "invalid order: "+err.Error())
		return
	}
	trade, err := s.engine.PlaceOrder(req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, trade)
}

func (s *Server) handleClosePosition(w http.ResponseWriter, r *http.Request) {
	trade, err := s.engine.ClosePosition(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, trade)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	state := s.store.State()
	maxQty := make(map[string]decimal.Decimal, len(state.AssetOrder))
	for _, sym := range state.AssetOrder {
		maxQty[sym] = state.MaxQuantity(sym)
	}
	s.writeJSON(w, http.StatusOK, StatsResponse{
		Stats:          state.Stats(),
		VirtualBalance: state.User.VirtualBalance,
		InitialBalance: state.InitialBalance,
		OpenPositions:  len(state.OpenTrades()),
		MaxQuantity:    maxQty,
	})
}

func (s *Server) handleModules(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.store.State().LearningModules)
}

func (s *Server) handleCompleteModule(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		s.badRequest(w, "module id must be an integer")
		return
	}
	if err := s.store.Dispatch(trading.CompleteModule{ID: id}); err != nil {
		s.writeError(w, err)
		return
	}
	for _, m := range s.store.State().LearningModules {
		if m.ID == id {
			s.writeJSON(w, http.StatusOK, m)
			return
		}
	}
	s.writeJSON(w, http.StatusNotFound, errorResponse{Error: "UnknownModule", Message: "no module " + strconv.Itoa(id)})
}

func (s *Server) handleSetTab(w http.ResponseWriter, r *http.Request) {
	var req tabRequest
	if err := decodeBody(r, &req); err != nil {
		s.badRequest(w, err.Error())
		return
	}
	switch req.Tab {
	case trading.TabTrading, trading.TabAnalytics, trading.TabLearning:
	default:
		s.badRequest(w, "unknown tab "+strconv.Quote(string(req.Tab)))
		return
	}
	if err := s.store.Dispatch(trading.SetActiveTab{Tab: req.Tab}); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSelectAsset(w http.ResponseWriter, r *http.Request) {
	var req selectAssetRequest
	if err := decodeBody(r, &req); err != nil {
		s.badRequest(w, err.Error())
		return
	}
	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	if err := s.store.Dispatch(trading.SetSelectedAsset{Symbol: symbol}); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	points := 24
	if p := r.URL.Query().Get("points"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil || n <= 0 || n > 1000 {
			s.badRequest(w, "points must be between 1 and 1000")
			return
		}
		points = n
	}
	symbol := strings.ToUpper(r.PathValue("symbol"))
	series, err := s.engine.History(r.Context(), symbol, points)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, series)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	u, ok := s.sessions.Current()
	if !ok {
		s.writeJSON(w, http.StatusOK, session.Snapshot{})
		return
	}
	s.writeJSON(w, http.StatusOK, session.Snapshot{User: &u, Authenticated: true})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		s.badRequest(w, err.Error())
		return
	}

	var (
		u   *session.User
		err error
	)
	if req.Demo {
		u, err = s.sessions.AuthenticateDemo(r.Context(), req.FID)
	} else {
		u, err = s.sessions.Authenticate(r.Context(), req.FID, req.Signature)
	}
	if err != nil {
		s.writeError(w, err)
		return
	}

	// seed the new session with the current account figures
	s.sessions.UpdateStats(r.Context(), s.store.State().User)
	if cur, ok := s.sessions.Current(); ok {
		u = &cur
	}
	s.writeJSON(w, http.StatusOK, session.Snapshot{User: u, Authenticated: true})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Logout(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
