package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/permsync/internal/core/domain"
	"github.com/custodia-labs/permsync/internal/core/ports/driven"
	"github.com/custodia-labs/permsync/internal/logger"
)

// WebhookService registers and renews provider push-notification channels.
type WebhookService struct {
	connectors driven.ConnectorStore
	webhooks   driven.WebhookStore
	registrar  driven.WebhookRegistrar
	window     time.Duration
	now        func() time.Time
}

// NewWebhookService creates a webhook service.
func NewWebhookService(connectors driven.ConnectorStore, webhooks driven.WebhookStore, registrar driven.WebhookRegistrar) *WebhookService {
	return &WebhookService{
		connectors: connectors,
		webhooks:   webhooks,
		registrar:  registrar,
		window:     domain.WebhookRenewalWindow,
		now:        time.Now,
	}
}

// Register registers a new channel for the connector and stores it.
func (s *WebhookService) Register(ctx context.Context, connector *domain.Connector) (*domain.Webhook, error) {
	webhook, err := s.registrar.RegisterWebhook(ctx, connector)
	if err != nil {
		return nil, fmt.Errorf("register webhook for connector %d: %w", connector.ID, err)
	}
	webhook.ConnectorID = connector.ID
	if err := s.webhooks.SaveWebhook(ctx, webhook); err != nil {
		return nil, fmt.Errorf("save webhook for connector %d: %w", connector.ID, err)
	}
	logger.Debug("connector %d: webhook %s registered until %s", connector.ID, webhook.ID, webhook.ExpiresAt().UTC())
	return webhook, nil
}

// RenewExpiring re-registers the webhook of every Drive connector that has
// none or whose channel expires within the renewal window. It returns how
// many webhooks were registered.
func (s *WebhookService) RenewExpiring(ctx context.Context) (int, error) {
	connectors, err := s.connectors.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list connectors: %w", err)
	}

	renewed := 0
	var errs []error
	now := s.now()
	for i := range connectors {
		connector := &connectors[i]
		if connector.Provider != domain.ProviderGoogleDrive {
			continue
		}
		webhook, err := s.webhooks.GetWebhook(ctx, connector.ID)
		if err != nil {
			errs = append(errs, fmt.Errorf("get webhook for connector %d: %w", connector.ID, err))
			continue
		}
		if webhook != nil && !webhook.ExpiresWithin(now, s.window) {
			continue
		}
		if _, err := s.Register(ctx, connector); err != nil {
			errs = append(errs, err)
			continue
		}
		renewed++
	}
	return renewed, errors.Join(errs...)
}
