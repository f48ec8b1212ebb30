package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/permsync/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/permsync/internal/core/domain"
)

func newSettings(values map[string]any, env map[string]string) *SettingsService {
	s := NewSettingsService(memory.NewConfigStore(values))
	s.lookupEnv = func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
	return s
}

func TestEnvName(t *testing.T) {
	assert.Equal(t, "PERMSYNC_STORE_BACKEND", EnvName(KeyStoreBackend))
	assert.Equal(t, "PERMSYNC_BROKER_SECRET_KEY", EnvName(KeyBrokerSecretKey))
}

func TestSettingsService_Defaults(t *testing.T) {
	settings, err := newSettings(nil, nil).Get()
	require.NoError(t, err)

	assert.Equal(t, domain.StoreBackendSQLite, settings.Store.Backend)
	assert.Equal(t, domain.CacheBackendMemory, settings.Cache.Backend)
	assert.Equal(t, []string{"localhost:9092"}, settings.Workflow.Brokers)
	assert.Equal(t, "connector-sync", settings.Workflow.Topic)
	assert.Equal(t, "intercom", settings.Broker.ProviderConfigKeys[domain.ProviderIntercom])
	assert.Equal(t, "google-drive", settings.Broker.ProviderConfigKeys[domain.ProviderGoogleDrive])
	assert.Equal(t, ":8080", settings.Server.Addr)
	assert.Equal(t, "2.10", settings.Intercom.APIVersion)
	assert.False(t, settings.Verbose)
}

func TestSettingsService_ConfigAndEnvPrecedence(t *testing.T) {
	s := newSettings(map[string]any{
		KeyStoreBackend:      "postgres",
		KeyStorePostgresDSN:  "postgres://file",
		KeyWorkflowBrokers:   []any{"k1:9092", "k2:9092"},
		KeyCacheRedisDB:      int64(2),
		KeyWebhooksPublicURL: "https://hooks.example.com/",
		KeyVerbose:           true,
	}, map[string]string{
		"PERMSYNC_STORE_POSTGRES_DSN":                "postgres://env",
		"PERMSYNC_WORKFLOW_TOPIC":                    "sync-signals",
		"PERMSYNC_SCHEDULER_WEBHOOK_RENEWAL_MINUTES": "15",
		"PERMSYNC_VERBOSE":                           "",
	})

	settings, err := s.Get()
	require.NoError(t, err)
	assert.Equal(t, domain.StoreBackendPostgres, settings.Store.Backend)
	assert.Equal(t, "postgres://env", settings.Store.PostgresDSN)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, settings.Workflow.Brokers)
	assert.Equal(t, "sync-signals", settings.Workflow.Topic)
	assert.Equal(t, 2, settings.Cache.RedisDB)
	assert.Equal(t, "https://hooks.example.com", settings.Webhooks.PublicURL)
	assert.True(t, settings.Verbose)
	assert.Equal(t, 15*time.Minute, settings.Scheduler.GetTaskConfig(domain.TaskIDWebhookRenewal).Interval)
}

func TestSettingsService_EnvBrokerList(t *testing.T) {
	settings, err := newSettings(nil, map[string]string{
		"PERMSYNC_WORKFLOW_BROKERS": "a:9092, b:9092,,",
	}).Get()
	require.NoError(t, err)
	assert.Equal(t, []string{"a:9092", "b:9092"}, settings.Workflow.Brokers)
}

func TestSettingsService_Validate(t *testing.T) {
	require.NoError(t, newSettings(nil, nil).Validate())

	err := newSettings(map[string]any{
		KeyStoreBackend: "postgres",
		KeyCacheBackend: "redis",
	}, nil).Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Contains(t, err.Error(), KeyStorePostgresDSN)
	assert.Contains(t, err.Error(), KeyCacheRedisAddr)

	err = newSettings(map[string]any{KeyStoreBackend: "mysql"}, nil).Validate()
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSettingsService_Set(t *testing.T) {
	s := newSettings(nil, nil)
	require.NoError(t, s.Set(KeyServerAddr, ":9090"))

	settings, err := s.Get()
	require.NoError(t, err)
	assert.Equal(t, ":9090", settings.Server.Addr)
}
