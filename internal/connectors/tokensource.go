package connectors

import (
	"context"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/custodia-labs/permsync/internal/core/domain"
	"github.com/custodia-labs/permsync/internal/core/ports/driven"
)

// TokenSourceAdapter adapts a ConnectionManager to oauth2.TokenSource for a
// single broker connection.
type TokenSourceAdapter struct {
	ctx          context.Context
	manager      driven.ConnectionManager
	provider     domain.ProviderType
	connectionID string
}

// NewTokenSource creates an oauth2.TokenSource for a connection.
// Tokens are cached by the manager, so the source is not wrapped in
// oauth2.ReuseTokenSource.
func NewTokenSource(ctx context.Context, manager driven.ConnectionManager, provider domain.ProviderType, connectionID string) oauth2.TokenSource {
	return &TokenSourceAdapter{
		ctx:          ctx,
		manager:      manager,
		provider:     provider,
		connectionID: connectionID,
	}
}

// Token implements oauth2.TokenSource.
func (t *TokenSourceAdapter) Token() (*oauth2.Token, error) {
	accessToken, err := t.manager.AccessToken(t.ctx, t.provider, t.connectionID)
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}, nil
}

// NewHTTPClient returns an HTTP client that authenticates every request as
// the connection. base supplies the transport and timeout; nil uses
// http.DefaultClient.
func NewHTTPClient(ctx context.Context, base *http.Client, manager driven.ConnectionManager, provider domain.ProviderType, connectionID string) *http.Client {
	if base != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, base)
	}
	client := oauth2.NewClient(ctx, NewTokenSource(ctx, manager, provider, connectionID))
	if base != nil {
		client.Timeout = base.Timeout
	}
	return client
}
