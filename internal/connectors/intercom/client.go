package intercom

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/permsync/internal/connectors"
	"github.com/custodia-labs/permsync/internal/core/domain"
	"github.com/custodia-labs/permsync/internal/core/ports/driven"
	"github.com/custodia-labs/permsync/internal/logger"
	"github.com/custodia-labs/permsync/internal/metrics"
)

const (
	// DefaultBaseURL is the Intercom API endpoint for US-hosted workspaces.
	DefaultBaseURL = "https://api.intercom.io"

	// DefaultAPIVersion is sent in the Intercom-Version header.
	DefaultAPIVersion = "2.10"

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// collectionsPageSize is the largest page Intercom serves.
	collectionsPageSize = 150

	maxErrorBody = 1024
)

// Config configures the Intercom client.
type Config struct {
	BaseURL    string
	APIVersion string
	Timeout    time.Duration
}

// Client is a thin Intercom REST client authenticated per connection.
type Client struct {
	baseURL     string
	apiVersion  string
	tokens      driven.ConnectionManager
	httpClient  *http.Client
	rateLimiter *RateLimiter
}

// NewClient creates an Intercom client.
func NewClient(cfg Config, tokens driven.ConnectionManager) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultAPIVersion
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Client{
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		apiVersion:  cfg.APIVersion,
		tokens:      tokens,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		rateLimiter: NewRateLimiter(),
	}
}

// FlexID decodes Intercom identifiers, which the API returns as strings in
// some payloads and as numbers in others.
type FlexID string

func (i *FlexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*i = ""
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*i = FlexID(s)
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("intercom id: %w", err)
		}
		*i = FlexID(n.String())
		return nil
	}
}

// Me is the response of GET /me.
type Me struct {
	App struct {
		IDCode string `json:"id_code"`
		Name   string `json:"name"`
	} `json:"app"`
}

type HelpCenter struct {
	ID          FlexID `json:"id"`
	DisplayName string `json:"display_name"`
	Identifier  string `json:"identifier"`
	URL         string `json:"url"`
}

type Collection struct {
	ID           FlexID `json:"id"`
	Name         string `json:"name"`
	URL          string `json:"url"`
	ParentID     FlexID `json:"parent_id"`
	HelpCenterID FlexID `json:"help_center_id"`
}

type Article struct {
	ID         FlexID `json:"id"`
	Title      string `json:"title"`
	URL        string `json:"url"`
	ParentID   FlexID `json:"parent_id"`
	ParentType string `json:"parent_type"`
	State      string `json:"state"`
}

type Team struct {
	ID   FlexID `json:"id"`
	Name string `json:"name"`
}

type pages struct {
	Page       int `json:"page"`
	TotalPages int `json:"total_pages"`
}

// GetMe returns the admin and workspace behind a connection.
func (c *Client) GetMe(ctx context.Context, connectionID string) (*Me, error) {
	var out Me
	if err := c.get(ctx, connectionID, "get_me", "/me", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetHelpCenter fetches one help center.
func (c *Client) GetHelpCenter(ctx context.Context, connectionID, helpCenterID string) (*HelpCenter, error) {
	var out HelpCenter
	if err := c.get(ctx, connectionID, "get_help_center", "/help_center/help_centers/"+url.PathEscape(helpCenterID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListHelpCenters lists the help centers of the workspace.
func (c *Client) ListHelpCenters(ctx context.Context, connectionID string) ([]HelpCenter, error) {
	var out struct {
		Data []HelpCenter `json:"data"`
	}
	if err := c.get(ctx, connectionID, "list_help_centers", "/help_center/help_centers", nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// GetCollection fetches one collection.
func (c *Client) GetCollection(ctx context.Context, connectionID, collectionID string) (*Collection, error) {
	var out Collection
	if err := c.get(ctx, connectionID, "get_collection", "/help_center/collections/"+url.PathEscape(collectionID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListCollections lists every collection of every help center.
func (c *Client) ListCollections(ctx context.Context, connectionID string) ([]Collection, error) {
	var all []Collection
	for page := 1; ; page++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		var out struct {
			Data  []Collection `json:"data"`
			Pages pages        `json:"pages"`
		}
		query := url.Values{
			"page":     {strconv.Itoa(page)},
			"per_page": {strconv.Itoa(collectionsPageSize)},
		}
		if err := c.get(ctx, connectionID, "list_collections", "/help_center/collections", query, &out); err != nil {
			return nil, err
		}
		all = append(all, out.Data...)

		if out.Pages.TotalPages <= page {
			return all, nil
		}
	}
}

// GetArticle fetches one article.
func (c *Client) GetArticle(ctx context.Context, connectionID, articleID string) (*Article, error) {
	var out Article
	if err := c.get(ctx, connectionID, "get_article", "/articles/"+url.PathEscape(articleID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetTeam fetches one team.
func (c *Client) GetTeam(ctx context.Context, connectionID, teamID string) (*Team, error) {
	var out Team
	if err := c.get(ctx, connectionID, "get_team", "/teams/"+url.PathEscape(teamID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListTeams lists the teams of the workspace.
func (c *Client) ListTeams(ctx context.Context, connectionID string) ([]Team, error) {
	var out struct {
		Teams []Team `json:"teams"`
	}
	if err := c.get(ctx, connectionID, "list_teams", "/teams", nil, &out); err != nil {
		return nil, err
	}
	return out.Teams, nil
}

func (c *Client) get(ctx context.Context, connectionID, operation, path string, query url.Values, out any) (err error) {
	defer func() {
		metrics.RemoteRequestsTotal.WithLabelValues(string(domain.ProviderIntercom), operation, metrics.Outcome(err)).Inc()
	}()

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Intercom-Version", c.apiVersion)

	logger.Debug("intercom: GET %s", path)
	httpClient := connectors.NewHTTPClient(ctx, c.httpClient, c.tokens, domain.ProviderIntercom, connectionID)
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("intercom %s: %w", operation, err)
	}
	defer resp.Body.Close()

	c.rateLimiter.UpdateFromResponse(resp)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &domain.HTTPError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	return nil
}
