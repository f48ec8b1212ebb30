package services

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/permsync/internal/core/domain"
	"github.com/custodia-labs/permsync/internal/core/ports/driven"
	"github.com/custodia-labs/permsync/internal/core/ports/driving"
)

var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	KeyStoreBackend        = "store.backend"
	KeyStoreDataDir        = "store.data_dir"
	KeyStorePostgresDSN    = "store.postgres_dsn"
	KeyCacheBackend        = "cache.backend"
	KeyCacheRedisAddr      = "cache.redis_addr"
	KeyCacheRedisPassword  = "cache.redis_password"
	KeyCacheRedisDB        = "cache.redis_db"
	KeyCacheKeyPrefix      = "cache.key_prefix"
	KeyWorkflowBrokers     = "workflow.brokers"
	KeyWorkflowTopic       = "workflow.topic"
	KeyBrokerURL           = "broker.url"
	KeyBrokerSecretKey     = "broker.secret_key"
	KeyBrokerIntercomKey   = "broker.intercom_config_key"
	KeyBrokerDriveKey      = "broker.google_drive_config_key"
	KeyWebhooksPublicURL   = "webhooks.public_url"
	KeyWebhooksSecret      = "webhooks.secret"
	KeyServerAddr          = "server.addr"
	KeyIntercomBaseURL     = "intercom.base_url"
	KeyIntercomAPIVersion  = "intercom.api_version"
	KeySchedulerEnabled    = "scheduler.enabled"
	KeySchedulerRenewalMin = "scheduler.webhook_renewal_minutes"
	KeyVerbose             = "verbose"
)

// EnvPrefix prefixes environment variables overriding config keys.
// "store.backend" is overridden by PERMSYNC_STORE_BACKEND.
const EnvPrefix = "PERMSYNC_"

// SettingsService resolves settings from the config file, with environment
// variables taking precedence.
type SettingsService struct {
	configStore driven.ConfigStore
	lookupEnv   func(string) (string, bool)
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		lookupEnv:   os.LookupEnv,
	}
}

// EnvName returns the environment variable overriding key.
func EnvName(key string) string {
	return EnvPrefix + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// Get returns the resolved settings.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Store: domain.StoreSettings{
			Backend:     domain.StoreBackend(s.getString(KeyStoreBackend, string(defaults.Store.Backend))),
			DataDir:     s.getString(KeyStoreDataDir, defaults.Store.DataDir),
			PostgresDSN: s.getString(KeyStorePostgresDSN, ""),
		},
		Cache: domain.CacheSettings{
			Backend:       domain.CacheBackend(s.getString(KeyCacheBackend, string(defaults.Cache.Backend))),
			RedisAddr:     s.getString(KeyCacheRedisAddr, ""),
			RedisPassword: s.getString(KeyCacheRedisPassword, ""),
			RedisDB:       s.getInt(KeyCacheRedisDB, 0),
			KeyPrefix:     s.getString(KeyCacheKeyPrefix, defaults.Cache.KeyPrefix),
		},
		Workflow: domain.WorkflowSettings{
			Brokers: s.getStringSlice(KeyWorkflowBrokers, defaults.Workflow.Brokers),
			Topic:   s.getString(KeyWorkflowTopic, defaults.Workflow.Topic),
		},
		Broker: domain.BrokerSettings{
			URL:       s.getString(KeyBrokerURL, ""),
			SecretKey: s.getString(KeyBrokerSecretKey, ""),
			ProviderConfigKeys: map[domain.ProviderType]string{
				domain.ProviderIntercom: s.getString(KeyBrokerIntercomKey,
					defaults.Broker.ProviderConfigKeys[domain.ProviderIntercom]),
				domain.ProviderGoogleDrive: s.getString(KeyBrokerDriveKey,
					defaults.Broker.ProviderConfigKeys[domain.ProviderGoogleDrive]),
			},
		},
		Webhooks: domain.WebhookSettings{
			PublicURL: strings.TrimSuffix(s.getString(KeyWebhooksPublicURL, ""), "/"),
			Secret:    s.getString(KeyWebhooksSecret, ""),
		},
		Server: domain.ServerSettings{
			Addr: s.getString(KeyServerAddr, defaults.Server.Addr),
		},
		Intercom: domain.IntercomSettings{
			BaseURL:    s.getString(KeyIntercomBaseURL, defaults.Intercom.BaseURL),
			APIVersion: s.getString(KeyIntercomAPIVersion, defaults.Intercom.APIVersion),
		},
		Scheduler: defaults.Scheduler,
		Verbose:   s.getBool(KeyVerbose, false),
	}

	settings.Scheduler.Enabled = s.getBool(KeySchedulerEnabled, defaults.Scheduler.Enabled)
	if minutes := s.getInt(KeySchedulerRenewalMin, 0); minutes > 0 {
		cfg := settings.Scheduler.TaskConfigs[domain.TaskIDWebhookRenewal]
		cfg.Interval = time.Duration(minutes) * time.Minute
		settings.Scheduler.TaskConfigs[domain.TaskIDWebhookRenewal] = cfg
	}

	return settings, nil
}

// Set persists one configuration key.
func (s *SettingsService) Set(key string, value any) error {
	if err := s.configStore.Set(key, value); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// Validate checks the resolved settings.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	var errs []error
	if !settings.Store.Backend.IsValid() {
		errs = append(errs, fmt.Errorf("%w: unknown store backend %q", domain.ErrInvalidInput, settings.Store.Backend))
	}
	if settings.Store.Backend == domain.StoreBackendPostgres && settings.Store.PostgresDSN == "" {
		errs = append(errs, fmt.Errorf("%w: %s is required for the postgres backend", domain.ErrInvalidInput, KeyStorePostgresDSN))
	}
	if !settings.Cache.Backend.IsValid() {
		errs = append(errs, fmt.Errorf("%w: unknown cache backend %q", domain.ErrInvalidInput, settings.Cache.Backend))
	}
	if settings.Cache.Backend == domain.CacheBackendRedis && settings.Cache.RedisAddr == "" {
		errs = append(errs, fmt.Errorf("%w: %s is required for the redis cache", domain.ErrInvalidInput, KeyCacheRedisAddr))
	}
	if len(settings.Workflow.Brokers) == 0 || settings.Workflow.Topic == "" {
		errs = append(errs, fmt.Errorf("%w: workflow brokers and topic are required", domain.ErrInvalidInput))
	}
	return errors.Join(errs...)
}

func (s *SettingsService) env(key string) (string, bool) {
	if s.lookupEnv == nil {
		return "", false
	}
	v, ok := s.lookupEnv(EnvName(key))
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func (s *SettingsService) getString(key, def string) string {
	if v, ok := s.env(key); ok {
		return v
	}
	if v := s.configStore.GetString(key); v != "" {
		return v
	}
	return def
}

func (s *SettingsService) getInt(key string, def int) int {
	if v, ok := s.env(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	if _, ok := s.configStore.Get(key); ok {
		return s.configStore.GetInt(key)
	}
	return def
}

func (s *SettingsService) getBool(key string, def bool) bool {
	if v, ok := s.env(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	if _, ok := s.configStore.Get(key); ok {
		return s.configStore.GetBool(key)
	}
	return def
}

func (s *SettingsService) getStringSlice(key string, def []string) []string {
	if v, ok := s.env(key); ok {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				result = append(result, p)
			}
		}
		return result
	}
	if v := s.configStore.GetStringSlice(key); len(v) > 0 {
		return v
	}
	return def
}
