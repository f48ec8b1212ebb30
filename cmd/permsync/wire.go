package main

import (
	"context"
	"fmt"

	"github.com/custodia-labs/permsync/internal/adapters/driven/auth"
	memorycache "github.com/custodia-labs/permsync/internal/adapters/driven/cache/memory"
	rediscache "github.com/custodia-labs/permsync/internal/adapters/driven/cache/redis"
	"github.com/custodia-labs/permsync/internal/adapters/driven/oauth"
	"github.com/custodia-labs/permsync/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/permsync/internal/adapters/driven/storage/postgres"
	"github.com/custodia-labs/permsync/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/permsync/internal/adapters/driven/workflow/kafka"
	"github.com/custodia-labs/permsync/internal/connectors/google/drive"
	"github.com/custodia-labs/permsync/internal/connectors/intercom"
	"github.com/custodia-labs/permsync/internal/core/domain"
	"github.com/custodia-labs/permsync/internal/core/ports/driven"
	"github.com/custodia-labs/permsync/internal/core/services"
	"github.com/custodia-labs/permsync/internal/logger"
)

// app holds the wired services and the resources to release on exit.
type app struct {
	Permissions *services.PermissionService
	Connectors  *services.ConnectorService
	Scheduler   *services.Scheduler

	closers []func() error
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logger.Warn("shutdown: %v", err)
		}
	}
}

type stores struct {
	connectors driven.ConnectorStore
	objects    driven.ObjectStore
	webhooks   driven.WebhookStore
	scheduler  driven.SchedulerStore
}

func wire(ctx context.Context, settings *domain.AppSettings) (*app, error) {
	a := &app{}

	st, err := openStores(ctx, a, settings.Store)
	if err != nil {
		a.Close()
		return nil, err
	}

	cache, sweeper, err := openCache(ctx, a, settings.Cache)
	if err != nil {
		a.Close()
		return nil, err
	}

	workflow := kafka.NewClient(kafka.Config{
		Brokers: settings.Workflow.Brokers,
		Topic:   settings.Workflow.Topic,
	})
	a.closers = append(a.closers, workflow.Close)

	broker := oauth.NewBrokerClient(oauth.BrokerConfig{
		BaseURL:            settings.Broker.URL,
		SecretKey:          settings.Broker.SecretKey,
		ProviderConfigKeys: settings.Broker.ProviderConfigKeys,
	})
	tokens := auth.NewConnectionTokenProvider(broker)

	intercomProvider := intercom.NewProvider(intercom.NewClient(intercom.Config{
		BaseURL:    settings.Intercom.BaseURL,
		APIVersion: settings.Intercom.APIVersion,
	}, tokens))
	driveProvider := drive.NewProvider(tokens)
	registrar := drive.NewWebhookRegistrar(driveProvider, drive.WebhookConfig{
		PublicURL: settings.Webhooks.PublicURL,
		Secret:    settings.Webhooks.Secret,
	})

	providers := services.NewProviderRegistry(intercomProvider, driveProvider)
	resolver := services.NewHierarchyResolver(st.objects, cache)
	trigger := services.NewSyncTrigger(workflow)
	webhooks := services.NewWebhookService(st.connectors, st.webhooks, registrar)

	a.Permissions = services.NewPermissionService(st.connectors, st.objects, providers, resolver, trigger)
	a.Connectors = services.NewConnectorService(st.connectors, st.objects, providers, tokens, trigger, webhooks)
	a.Scheduler = services.NewScheduler(settings.Scheduler, st.scheduler, webhooks, sweeper)
	a.closers = append(a.closers, a.Scheduler.Stop)

	logger.Debug("wired store=%s cache=%s topic=%s", settings.Store.Backend, settings.Cache.Backend, settings.Workflow.Topic)
	return a, nil
}

func openStores(ctx context.Context, a *app, cfg domain.StoreSettings) (*stores, error) {
	switch cfg.Backend {
	case domain.StoreBackendSQLite:
		s, err := sqlite.NewStore(cfg.DataDir)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		a.closers = append(a.closers, s.Close)
		return &stores{
			connectors: s.ConnectorStore(),
			objects:    s.ObjectStore(),
			webhooks:   s.WebhookStore(),
			scheduler:  s.SchedulerStore(),
		}, nil

	case domain.StoreBackendPostgres:
		s, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		a.closers = append(a.closers, s.Close)
		// Scheduled task state is per process.
		return &stores{
			connectors: s.ConnectorStore(),
			objects:    s.ObjectStore(),
			webhooks:   s.WebhookStore(),
			scheduler:  memory.NewSchedulerStore(),
		}, nil

	case domain.StoreBackendMemory:
		s := memory.NewStore()
		return &stores{
			connectors: s.ConnectorStore(),
			objects:    s.ObjectStore(),
			webhooks:   s.WebhookStore(),
			scheduler:  memory.NewSchedulerStore(),
		}, nil

	default:
		return nil, fmt.Errorf("%w: store backend %q", domain.ErrUnsupportedType, cfg.Backend)
	}
}

func openCache(ctx context.Context, a *app, cfg domain.CacheSettings) (driven.AncestorCache, services.CacheSweeper, error) {
	switch cfg.Backend {
	case domain.CacheBackendMemory:
		c := memorycache.New()
		return c, c, nil

	case domain.CacheBackendRedis:
		c, rdb, err := rediscache.New(ctx, rediscache.Config{
			Addr:      cfg.RedisAddr,
			Password:  cfg.RedisPassword,
			DB:        cfg.RedisDB,
			KeyPrefix: cfg.KeyPrefix,
		})
		if err != nil {
			return nil, nil, err
		}
		a.closers = append(a.closers, rdb.Close)
		// Redis expires entries itself.
		return c, nil, nil

	default:
		return nil, nil, fmt.Errorf("%w: cache backend %q", domain.ErrUnsupportedType, cfg.Backend)
	}
}
