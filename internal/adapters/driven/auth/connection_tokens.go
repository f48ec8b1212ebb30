// Package auth resolves access tokens for broker-held OAuth connections.
package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/permsync/internal/adapters/driven/oauth"
	"github.com/custodia-labs/permsync/internal/core/domain"
	"github.com/custodia-labs/permsync/internal/core/ports/driven"
)

// Ensure ConnectionTokenProvider implements the ConnectionManager interface.
var _ driven.ConnectionManager = (*ConnectionTokenProvider)(nil)

// defaultRefreshBuffer is how long before expiry a cached token is dropped.
const defaultRefreshBuffer = 5 * time.Minute

// fallbackTTL caches tokens whose expiry the broker did not report.
const fallbackTTL = time.Hour

// ConnectionBroker is the subset of the broker client the provider needs.
type ConnectionBroker interface {
	GetConnection(ctx context.Context, provider domain.ProviderType, connectionID string) (*oauth.Connection, error)
	DeleteConnection(ctx context.Context, provider domain.ProviderType, connectionID string) error
}

type tokenKey struct {
	provider     domain.ProviderType
	connectionID string
}

type cachedToken struct {
	token  string
	expiry time.Time
}

// ConnectionTokenProvider caches broker access tokens per connection.
type ConnectionTokenProvider struct {
	broker ConnectionBroker

	mu            sync.RWMutex
	cache         map[tokenKey]cachedToken
	refreshBuffer time.Duration
	now           func() time.Time
}

// NewConnectionTokenProvider creates a token provider backed by broker.
func NewConnectionTokenProvider(broker ConnectionBroker) *ConnectionTokenProvider {
	return &ConnectionTokenProvider{
		broker:        broker,
		cache:         make(map[tokenKey]cachedToken),
		refreshBuffer: defaultRefreshBuffer,
		now:           time.Now,
	}
}

// AccessToken returns a valid access token for the connection.
func (p *ConnectionTokenProvider) AccessToken(ctx context.Context, provider domain.ProviderType, connectionID string) (string, error) {
	key := tokenKey{provider: provider, connectionID: connectionID}

	// Fast path: check cache with read lock
	p.mu.RLock()
	if token, ok := p.lookup(key); ok {
		p.mu.RUnlock()
		return token, nil
	}
	p.mu.RUnlock()

	p.mu.Lock()
	defer p.mu.Unlock()

	// Double-check after acquiring write lock
	if token, ok := p.lookup(key); ok {
		return token, nil
	}

	conn, err := p.broker.GetConnection(ctx, provider, connectionID)
	if err != nil {
		return "", fmt.Errorf("get connection %s: %w", connectionID, err)
	}

	expiry := p.now().Add(fallbackTTL)
	if !conn.ExpiresAt.IsZero() {
		expiry = conn.ExpiresAt.Add(-p.refreshBuffer)
	}
	p.cache[key] = cachedToken{token: conn.AccessToken, expiry: expiry}

	return conn.AccessToken, nil
}

// DeleteConnection drops the cached token and deletes the connection at
// the broker.
func (p *ConnectionTokenProvider) DeleteConnection(ctx context.Context, provider domain.ProviderType, connectionID string) error {
	p.Invalidate(provider, connectionID)
	if err := p.broker.DeleteConnection(ctx, provider, connectionID); err != nil {
		return fmt.Errorf("delete connection %s: %w", connectionID, err)
	}
	return nil
}

// Invalidate drops the cached token of a connection.
func (p *ConnectionTokenProvider) Invalidate(provider domain.ProviderType, connectionID string) {
	p.mu.Lock()
	delete(p.cache, tokenKey{provider: provider, connectionID: connectionID})
	p.mu.Unlock()
}

// lookup must be called with the lock held.
func (p *ConnectionTokenProvider) lookup(key tokenKey) (string, bool) {
	cached, ok := p.cache[key]
	if !ok || cached.token == "" || !p.now().Before(cached.expiry) {
		return "", false
	}
	return cached.token, true
}
