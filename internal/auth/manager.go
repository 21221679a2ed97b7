package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"paperTrader/internal/ports"
)

const defaultSessionTTL = 12 * time.Hour

// Session is a bearer credential issued to a signed-in wallet.
type Session struct {
	Token         string    `json:"token"`
	WalletAddress string    `json:"walletAddress"`
	ExpiresAt     time.Time `json:"expiresAt"`
}

// Manager issues and validates opaque bearer tokens for wallet-based
// sign-in. Tokens are random UUIDs held in memory; this is deliberately not
// an authentication design, just enough to gate the dashboard API.
type Manager struct {
	ttl    time.Duration
	logger ports.Logger
	now    func() time.Time

	mu       sync.RWMutex
	sessions map[string]Session // keyed by token
}

// Config holds configuration for the session manager.
type Config struct {
	SessionTTL time.Duration
	Logger     ports.Logger
	Now        func() time.Time // injectable for tests
}

// NewManager creates a session manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for session manager")
	}
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	now := cfg.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Manager{
		ttl:      ttl,
		logger:   cfg.Logger,
		now:      now,
		sessions: make(map[string]Session),
	}, nil
}

// Login issues a fresh bearer token for the given wallet address.
func (m *Manager) Login(ctx context.Context, walletAddress string) (Session, error) {
	if walletAddress == "" {
		return Session{}, fmt.Errorf("%w: wallet address must not be empty", ports.ErrUnauthorized)
	}

	session := Session{
		Token:         uuid.NewString(),
		WalletAddress: walletAddress,
		ExpiresAt:     m.now().Add(m.ttl),
	}

	m.mu.Lock()
	m.sessions[session.Token] = session
	m.mu.Unlock()

	m.logger.Info(ctx, "Session issued", map[string]interface{}{
		"wallet":    walletAddress,
		"expiresAt": session.ExpiresAt,
	})
	return session, nil
}

// Validate reports whether the token belongs to a live session.
func (m *Manager) Validate(token string) bool {
	if token == "" {
		return false
	}
	m.mu.RLock()
	session, ok := m.sessions[token]
	m.mu.RUnlock()
	return ok && m.now().Before(session.ExpiresAt)
}

// Revoke forgets the session for the given token. Revoking an unknown token
// is a no-op.
func (m *Manager) Revoke(ctx context.Context, token string) {
	m.mu.Lock()
	_, ok := m.sessions[token]
	delete(m.sessions, token)
	m.mu.Unlock()
	if ok {
		m.logger.Info(ctx, "Session revoked")
	}
}

// Sweep removes expired sessions and returns how many were dropped.
// Call it periodically; sessions are also rejected lazily by Validate.
func (m *Manager) Sweep() int {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for token, session := range m.sessions {
		if !now.Before(session.ExpiresAt) {
			delete(m.sessions, token)
			removed++
		}
	}
	return removed
}
