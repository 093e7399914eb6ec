package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"flashtrade-sim/internal/models"
	"flashtrade-sim/internal/storage"
)

// Storage slots of the session marker and the session user.
const (
	AuthKey = "flashtrade-auth"
	UserKey = "flashtrade-user"
)

var (
	ErrVerificationFailed = errors.New("invalid signature or fid")
	ErrNotAuthenticated   = errors.New("not authenticated")
)

// User is the signed-in identity plus the last trading figures pushed to it.
type User struct {
	SessionID string `json:"sessionId"`
	Profile
	AuthenticatedAt time.Time       `json:"authenticatedAt"`
	LastUpdated     *time.Time      `json:"lastUpdated,omitempty"`
	VirtualBalance  decimal.Decimal `json:"virtualBalance"`
	TotalPnL        decimal.Decimal `json:"totalPnL"`
	WinRate         float64         `json:"winRate"`
	TotalTrades     int             `json:"totalTrades"`
}

type authMarker struct {
	IsAuthenticated bool  `json:"isAuthenticated"`
	Timestamp       int64 `json:"timestamp"` // unix millis
}

// Snapshot is what listeners receive on every session change.
type Snapshot struct {
	User          *User `json:"user"`
	Authenticated bool  `json:"isAuthenticated"`
}

type Listener func(Snapshot)

// Config tunes a Manager.
type Config struct {
	MaxAge         time.Duration
	InitialBalance decimal.Decimal
}

// Manager is the local session stub. It is constructed explicitly and passed
// to whatever needs it.
type Manager struct {
	kv       storage.KV
	profiles ProfileProvider
	cfg      Config
	logger   *zap.Logger
	clock    func() time.Time

	mu   sync.RWMutex
	user *User

	listenerMu sync.Mutex
	listeners  map[int]Listener
	order      []int
	nextID     int
}

func NewManager(kv storage.KV, profiles ProfileProvider, cfg Config, logger *zap.Logger) *Manager {
	return &Manager{
		kv:        kv,
		profiles:  profiles,
		cfg:       cfg,
		logger:    logger.Named("session"),
		clock:     time.Now,
		listeners: make(map[int]Listener),
	}
}

// Authenticate verifies fid (the stub never checks signatures) and starts a session.
func (m *Manager) Authenticate(ctx context.Context, fid, signature string) (*User, error) {
	ok, err := m.profiles.Verify(ctx, fid, signature)
	if err != nil {
		return nil, fmt.Errorf("verify %s: %w", fid, err)
	}
	if !ok {
		return nil, ErrVerificationFailed
	}
	profile, err := m.profiles.Profile(ctx, fid)
	if err != nil {
		return nil, fmt.Errorf("profile %s: %w", fid, err)
	}
	return m.start(ctx, profile)
}

// AuthenticateDemo starts a session for a fixed demo identity.
func (m *Manager) AuthenticateDemo(ctx context.Context, userID string) (*User, error) {
	if userID == "" {
		userID = "demo-user"
	}
	return m.start(ctx, Profile{
		FID:            userID,
		Username:       "demo_trader",
		DisplayName:    "Demo Trader",
		PfpURL:         "https://via.placeholder.com/150/667eea/ffffff?text=DT",
		FollowerCount:  150,
		FollowingCount: 75,
	})
}

func (m *Manager) start(ctx context.Context, profile Profile) (*User, error) {
	u := &User{
		SessionID:       uuid.NewString(),
		Profile:         profile,
		AuthenticatedAt: m.clock().UTC(),
		VirtualBalance:  m.cfg.InitialBalance,
		TotalPnL:        decimal.Zero,
	}

	m.mu.Lock()
	m.user = u
	m.mu.Unlock()

	if err := m.save(ctx); err != nil {
		m.logger.Error("Failed to save session", zap.Error(err))
	}
	m.logger.Info("Session started", zap.String("fid", profile.FID), zap.String("session_id", u.SessionID))
	m.notify()

	copied := *u
	return &copied, nil
}

// UpdateStats copies the derived account figures into the session user.
// It reports false when nobody is signed in.
func (m *Manager) UpdateStats(ctx context.Context, stats models.User) bool {
	m.mu.Lock()
	if m.user == nil {
		m.mu.Unlock()
		return false
	}
	now := m.clock().UTC()
	updated := *m.user
	updated.VirtualBalance = stats.VirtualBalance
	updated.TotalPnL = stats.TotalPnL
	updated.WinRate = stats.WinRate
	updated.TotalTrades = stats.TotalTrades
	updated.LastUpdated = &now
	m.user = &updated
	m.mu.Unlock()

	if err := m.save(ctx); err != nil {
		m.logger.Error("Failed to save session", zap.Error(err))
	}
	m.notify()
	return true
}

// Logout ends the session and clears both storage slots.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	m.user = nil
	m.mu.Unlock()

	err := errors.Join(m.kv.Delete(ctx, AuthKey), m.kv.Delete(ctx, UserKey))
	m.notify()
	return err
}

// Restore brings back a stored session younger than MaxAge. Expired or
// unreadable sessions are cleared; a missing one is left alone.
func (m *Manager) Restore(ctx context.Context) (bool, error) {
	authData, err := m.kv.Get(ctx, AuthKey)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read session: %w", err)
	}
	userData, err := m.kv.Get(ctx, UserKey)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read session user: %w", err)
	}

	var marker authMarker
	var user User
	if err := json.Unmarshal([]byte(authData), &marker); err != nil {
		m.logger.Warn("Stored session is corrupt, clearing it", zap.Error(err))
		return false, m.Logout(ctx)
	}
	if err := json.Unmarshal([]byte(userData), &user); err != nil {
		m.logger.Warn("Stored session user is corrupt, clearing it", zap.Error(err))
		return false, m.Logout(ctx)
	}

	age := m.clock().Sub(time.UnixMilli(marker.Timestamp))
	if !marker.IsAuthenticated || age >= m.cfg.MaxAge {
		m.logger.Info("Stored session expired", zap.Duration("age", age))
		return false, m.Logout(ctx)
	}

	m.mu.Lock()
	m.user = &user
	m.mu.Unlock()
	m.notify()
	return true, nil
}

// Current returns a copy of the signed-in user.
func (m *Manager) Current() (User, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.user == nil {
		return User{}, false
	}
	return *m.user, true
}

// Subscribe registers l for session changes and returns a function removing it.
// Listeners are notified in subscription order.
func (m *Manager) Subscribe(l Listener) (unsubscribe func()) {
	m.listenerMu.Lock()
	defer m.listenerMu.Unlock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = l
	m.order = append(m.order, id)

	var once sync.Once
	return func() {
		once.Do(func() {
			m.listenerMu.Lock()
			defer m.listenerMu.Unlock()
			delete(m.listeners, id)
			m.order = slices.DeleteFunc(m.order, func(v int) bool { return v == id })
		})
	}
}

func (m *Manager) snapshot() Snapshot {
	u, ok := m.Current()
	if !ok {
		return Snapshot{}
	}
	return Snapshot{User: &u, Authenticated: true}
}

func (m *Manager) notify() {
	snap := m.snapshot()
	m.listenerMu.Lock()
	ls := make([]Listener, 0, len(m.order))
	for _, id := range m.order {
		ls = append(ls, m.listeners[id])
	}
	m.listenerMu.Unlock()

	for _, l := range ls {
		l(snap)
	}
}

func (m *Manager) save(ctx context.Context) error {
	u, ok := m.Current()
	if !ok {
		return ErrNotAuthenticated
	}
	marker, err := json.Marshal(authMarker{IsAuthenticated: true, Timestamp: m.clock().UnixMilli()})
	if err != nil {
		return err
	}
	user, err := json.Marshal(u)
	if err != nil {
		return err
	}
	if err := m.kv.Put(ctx, AuthKey, string(marker)); err != nil {
		return err
	}
	return m.kv.Put(ctx, UserKey, string(user))
}
