package drive

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"google.golang.org/api/drive/v3"

	"github.com/custodia-labs/permsync/internal/core/domain"
	"github.com/custodia-labs/permsync/internal/core/ports/driven"
)

// Ensure WebhookRegistrar implements the WebhookRegistrar interface.
var _ driven.WebhookRegistrar = (*WebhookRegistrar)(nil)

// WebhookConfig holds the public endpoint Drive pushes changes to.
type WebhookConfig struct {
	PublicURL string
	Secret    string
}

// WebhookRegistrar watches the change feed of a connection.
type WebhookRegistrar struct {
	provider *Provider
	config   WebhookConfig
	now      func() time.Time
	newID    func() string
}

// NewWebhookRegistrar creates a registrar that uses provider's Drive services.
func NewWebhookRegistrar(provider *Provider, config WebhookConfig) *WebhookRegistrar {
	return &WebhookRegistrar{
		provider: provider,
		config:   config,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// WebhookURL returns the endpoint Drive notifies for a connector.
func (r *WebhookRegistrar) WebhookURL(connectorID int64) string {
	return fmt.Sprintf("%s/webhooks/%s/google_drive/%d", r.config.PublicURL, r.config.Secret, connectorID)
}

// RegisterWebhook opens a change channel expiring after domain.DriveWebhookTTL.
func (r *WebhookRegistrar) RegisterWebhook(ctx context.Context, connector *domain.Connector) (*domain.Webhook, error) {
	if r.config.PublicURL == "" || r.config.Secret == "" {
		return nil, domain.ErrWebhookNotConfigured
	}

	svc, err := r.provider.service(ctx, connector.ConnectionID)
	if err != nil {
		return nil, err
	}

	var start *drive.StartPageToken
	err = r.provider.call(ctx, "get_start_page_token", func() (err error) {
		start, err = svc.Changes.GetStartPageToken().SupportsAllDrives(true).Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, err
	}

	channel := &drive.Channel{
		Id:         r.newID(),
		Type:       "web_hook",
		Address:    r.WebhookURL(connector.ID),
		Expiration: r.now().Add(domain.DriveWebhookTTL).UnixMilli(),
	}

	var registered *drive.Channel
	err = r.provider.call(ctx, "watch_changes", func() (err error) {
		registered, err = svc.Changes.Watch(start.StartPageToken, channel).
			SupportsAllDrives(true).
			IncludeItemsFromAllDrives(true).
			Context(ctx).
			Do()
		return err
	})
	if err != nil {
		return nil, err
	}

	expiration := channel.Expiration
	if registered.Expiration != 0 {
		expiration = registered.Expiration
	}
	return &domain.Webhook{
		ID:             channel.Id,
		ConnectorID:    connector.ID,
		ExpirationTsMs: expiration,
		URL:            channel.Address,
	}, nil
}
