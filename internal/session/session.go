// Package session gives every cashier an explicit context object
// owning their cart, instead of hidden process globals. Sessions share
// one stock ledger and remote store handle but nothing else.
package session

import (
	"context"
	"sync"
	"time"

	"pos-service/internal/cache"
	"pos-service/internal/cart"
	"pos-service/internal/ledger"
	"pos-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Session is one cashier's working state. The mutex serializes the
// cashier's own requests; cross-session safety comes from the stock
// ledger's CAS, never from here.
type Session struct {
	ID string

	mu         sync.Mutex
	cart       *cart.Cart
	lastActive time.Time
}

// WithCart runs fn with exclusive access to the session's cart and
// stamps the session as active.
func (s *Session) WithCart(fn func(c *cart.Cart) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActive = time.Now()
	return fn(s.cart)
}

// Manager creates and tracks sessions and sweeps abandoned ones so
// their reservations do not hold stock hostage forever.
type Manager struct {
	stock       *ledger.StockLedger
	sales       *ledger.SaleLedger
	cache       *cache.SnapshotCache
	idleTimeout time.Duration
	logger      *zap.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewManager(stock *ledger.StockLedger, sales *ledger.SaleLedger, snap *cache.SnapshotCache, idleTimeout time.Duration) *Manager {
	return &Manager{
		stock:       stock,
		sales:       sales,
		cache:       snap,
		idleTimeout: idleTimeout,
		logger:      util.GetLogger(),
		sessions:    map[string]*Session{},
	}
}

// Create opens a new session with an empty cart.
func (m *Manager) Create() *Session {
	s := &Session{
		ID:         uuid.New().String(),
		cart:       cart.New(m.stock, m.sales, m.cache),
		lastActive: time.Now(),
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	m.logger.Info("Session opened", zap.String("session_id", s.ID))
	return s
}

// Get looks up a session by id.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Close resets the session's cart, releasing reserved stock, and
// removes the session.
func (m *Manager) Close(ctx context.Context, id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return nil
	}
	return s.WithCart(func(c *cart.Cart) error {
		return c.Reset(ctx)
	})
}

// Sweep resets and evicts sessions idle past the deadline.
func (m *Manager) Sweep(ctx context.Context) {
	cutoff := time.Now().Add(-m.idleTimeout)

	m.mu.Lock()
	var expired []*Session
	for id, s := range m.sessions {
		s.mu.Lock()
		idle := s.lastActive.Before(cutoff)
		s.mu.Unlock()
		if idle {
			expired = append(expired, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range expired {
		m.logger.Info("Sweeping idle session", zap.String("session_id", s.ID))
		if err := s.WithCart(func(c *cart.Cart) error { return c.Reset(ctx) }); err != nil {
			m.logger.Warn("Idle session reset incomplete",
				zap.String("session_id", s.ID),
				zap.Error(err))
		}
	}
}

// StartSweeper runs Sweep on a timer until ctx is cancelled.
func (m *Manager) StartSweeper(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep(ctx)
		}
	}
}
