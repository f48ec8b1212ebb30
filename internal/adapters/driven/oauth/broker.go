// Package oauth talks to the connection broker that owns provider OAuth
// grants. Connectors only ever hold a connection id; the broker exchanges
// it for a live access token.
package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/custodia-labs/permsync/internal/core/domain"
	"github.com/custodia-labs/permsync/internal/logger"
)

// maxErrorBody bounds how much of an error response is kept.
const maxErrorBody = 512

// BrokerConfig configures the broker client.
type BrokerConfig struct {
	BaseURL   string
	SecretKey string

	// ProviderConfigKeys maps a provider to its integration key at the broker.
	ProviderConfigKeys map[domain.ProviderType]string

	// Timeout bounds each request. Defaults to 30 seconds.
	Timeout time.Duration
}

// Connection holds the live credentials of a broker connection.
type Connection struct {
	ConnectionID string
	AccessToken  string

	// ExpiresAt is zero when the broker did not report an expiry.
	ExpiresAt time.Time
}

// BrokerClient is an HTTP client for the connection broker.
type BrokerClient struct {
	baseURL    string
	secretKey  string
	configKeys map[domain.ProviderType]string
	httpClient *http.Client
}

// NewBrokerClient creates a broker client.
func NewBrokerClient(cfg BrokerConfig) *BrokerClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &BrokerClient{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		secretKey:  cfg.SecretKey,
		configKeys: cfg.ProviderConfigKeys,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type connectionResponse struct {
	ConnectionID string `json:"connection_id"`
	Credentials  struct {
		AccessToken string    `json:"access_token"`
		ExpiresAt   time.Time `json:"expires_at"`
	} `json:"credentials"`
}

// GetConnection fetches the current credentials of a connection.
func (c *BrokerClient) GetConnection(ctx context.Context, provider domain.ProviderType, connectionID string) (*Connection, error) {
	resp, err := c.do(ctx, http.MethodGet, provider, connectionID)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, responseError(resp)
	}

	var body connectionResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode connection response: %w", err)
	}
	if body.Credentials.AccessToken == "" {
		return nil, fmt.Errorf("connection %s has no access token", connectionID)
	}

	return &Connection{
		ConnectionID: connectionID,
		AccessToken:  body.Credentials.AccessToken,
		ExpiresAt:    body.Credentials.ExpiresAt,
	}, nil
}

// DeleteConnection deletes a connection. A connection the broker no longer
// knows is treated as deleted.
func (c *BrokerClient) DeleteConnection(ctx context.Context, provider domain.ProviderType, connectionID string) error {
	resp, err := c.do(ctx, http.MethodDelete, provider, connectionID)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		logger.Debug("broker: connection %s already deleted", connectionID)
		return nil
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	default:
		return responseError(resp)
	}
}

func (c *BrokerClient) do(ctx context.Context, method string, provider domain.ProviderType, connectionID string) (*http.Response, error) {
	configKey, ok := c.configKeys[provider]
	if !ok || configKey == "" {
		return nil, fmt.Errorf("%w: no broker config key for %q", domain.ErrUnsupportedType, provider)
	}

	endpoint := fmt.Sprintf("%s/connection/%s?%s", c.baseURL, url.PathEscape(connectionID),
		url.Values{"provider_config_key": {configKey}}.Encode())
	req, err := http.NewRequestWithContext(ctx, method, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("broker request: %w", err)
	}
	return resp, nil
}

func responseError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &domain.HTTPError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
}
