package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStoreBackend(t *testing.T) {
	tests := []struct {
		backend StoreBackend
		valid   bool
		desc    string
	}{
		{StoreBackendSQLite, true, "SQLite (embedded file)"},
		{StoreBackendPostgres, true, "PostgreSQL"},
		{StoreBackendMemory, true, "In-memory (non persistent)"},
		{StoreBackend("mysql"), false, "Unknown"},
		{StoreBackend(""), false, "Unknown"},
	}
	for _, tt := range tests {
		t.Run(string(tt.backend), func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.backend.IsValid())
			assert.Equal(t, tt.desc, tt.backend.Description())
		})
	}
}

func TestCacheBackend(t *testing.T) {
	assert.True(t, CacheBackendMemory.IsValid())
	assert.True(t, CacheBackendRedis.IsValid())
	assert.False(t, CacheBackend("memcached").IsValid())
	assert.Equal(t, "Redis (shared)", CacheBackendRedis.Description())
	assert.Equal(t, "Unknown", CacheBackend("memcached").Description())
}

func TestDefaultAppSettings(t *testing.T) {
	s := DefaultAppSettings()

	assert.Equal(t, StoreBackendSQLite, s.Store.Backend)
	assert.Equal(t, CacheBackendMemory, s.Cache.Backend)
	assert.Equal(t, "permsync", s.Cache.KeyPrefix)
	assert.Equal(t, []string{"localhost:9092"}, s.Workflow.Brokers)
	assert.Equal(t, "connector-sync", s.Workflow.Topic)
	assert.Equal(t, "intercom", s.Broker.ProviderConfigKeys[ProviderIntercom])
	assert.Equal(t, "google-drive", s.Broker.ProviderConfigKeys[ProviderGoogleDrive])
	assert.Equal(t, ":8080", s.Server.Addr)
	assert.Equal(t, "https://api.intercom.io", s.Intercom.BaseURL)
	assert.True(t, s.Scheduler.Enabled)
	assert.False(t, s.Verbose)
}

func TestDefaultAppSettings_Independent(t *testing.T) {
	a := DefaultAppSettings()
	b := DefaultAppSettings()

	a.Broker.ProviderConfigKeys[ProviderIntercom] = "changed"
	a.Scheduler.TaskConfigs[TaskIDWebhookRenewal] = TaskConfig{}

	assert.Equal(t, "intercom", b.Broker.ProviderConfigKeys[ProviderIntercom])
	assert.True(t, b.Scheduler.TaskConfigs[TaskIDWebhookRenewal].Enabled)
}
