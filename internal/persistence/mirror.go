package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"flashtrade-sim/internal/models"
	"flashtrade-sim/internal/storage"
	"flashtrade-sim/internal/trading"
)

// LedgerKey is the storage slot holding the serialized trade ledger.
const LedgerKey = "flashtrade-trades"

const saveTimeout = 5 * time.Second

// Mirror snapshots the ledger to a KV slot and restores it on startup.
type Mirror struct {
	kv     storage.KV
	logger *zap.Logger
}

func NewMirror(kv storage.KV, logger *zap.Logger) *Mirror {
	return &Mirror{kv: kv, logger: logger.Named("mirror")}
}

// Encode serializes a ledger in the snapshot format.
func Encode(trades []models.Trade) (string, error) {
	if trades == nil {
		trades = []models.Trade{}
	}
	data, err := json.Marshal(trades)
	if err != nil {
		return "", fmt.Errorf("encode ledger: %w", err)
	}
	return string(data), nil
}

// Decode parses a snapshot.
func Decode(data string) ([]models.Trade, error) {
	var trades []models.Trade
	if err := json.Unmarshal([]byte(data), &trades); err != nil {
		return nil, fmt.Errorf("decode ledger: %w", err)
	}
	return trades, nil
}

// Load reads the stored ledger. Missing or corrupt data yields an empty
// ledger; only storage failures are returned as errors.
func (m *Mirror) Load(ctx context.Context) ([]models.Trade, error) {
	data, err := m.kv.Get(ctx, LedgerKey)
	if errors.Is(err, storage.ErrNotFound) {
		m.logger.Info("No stored ledger, starting empty")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}

	trades, err := Decode(data)
	if err != nil {
		m.logger.Warn("Stored ledger is corrupt, starting empty", zap.Error(err))
		return nil, nil
	}
	return trades, nil
}

// Restore replays the stored ledger into store as restored ExecuteTrade
// actions and returns how many were applied. Entries the reducer rejects
// are skipped.
func (m *Mirror) Restore(ctx context.Context, store *trading.Store) (int, error) {
	trades, err := m.Load(ctx)
	if err != nil {
		return 0, err
	}

	applied := 0
	for _, t := range trades {
		if err := store.Dispatch(trading.ExecuteTrade{Trade: t, Restored: true}); err != nil {
			m.logger.Warn("Skipping stored trade",
				zap.String("trade_id", t.ID),
				zap.String("symbol", t.Symbol),
				zap.Error(err))
			continue
		}
		applied++
	}
	m.logger.Info("Ledger restored", zap.Int("applied", applied), zap.Int("stored", len(trades)))
	return applied, nil
}

// Save overwrites the stored ledger.
func (m *Mirror) Save(ctx context.Context, trades []models.Trade) error {
	data, err := Encode(trades)
	if err != nil {
		return err
	}
	if err := m.kv.Put(ctx, LedgerKey, data); err != nil {
		return fmt.Errorf("write ledger: %w", err)
	}
	return nil
}

// Attach saves the ledger after every state change that touched it. The
// returned function detaches the mirror.
func (m *Mirror) Attach(store *trading.Store) (detach func()) {
	return store.Subscribe(func(prev, next *trading.State) {
		if ledgerUnchanged(prev, next) {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		defer cancel()
		if err := m.Save(ctx, next.Trades); err != nil {
			m.logger.Error("Failed to save ledger", zap.Error(err))
		}
	})
}

// ledgerUnchanged relies on the reducer replacing the trade slice whenever
// the ledger changes.
func ledgerUnchanged(prev, next *trading.State) bool {
	if len(prev.Trades) != len(next.Trades) {
		return false
	}
	if len(next.Trades) == 0 {
		return true
	}
	return &prev.Trades[0] == &next.Trades[0]
}
