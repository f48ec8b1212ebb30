package cli

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/permsync/internal/core/domain"
)

func TestParseConfigValue(t *testing.T) {
	tests := []struct {
		in   string
		want any
	}{
		{"true", true},
		{"false", false},
		{"3", 3},
		{"1", 1},
		{"postgres", "postgres"},
		{"k1:9092, k2:9092", []string{"k1:9092", "k2:9092"}},
		{"k1:9092", "k1:9092"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseConfigValue(tt.in))
		})
	}
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "****", maskSecret("short"))
	assert.Equal(t, "sk-a...wxyz", maskSecret("sk-abcdefghijklmnopqrstuvwxyz"))
	assert.Equal(t, "(not set)", maskOrNotSet(""))
}

func TestConfigShow(t *testing.T) {
	settings := domain.DefaultAppSettings()
	settings.Broker.URL = "https://broker.acme.io"
	settings.Broker.SecretKey = "super-secret-broker-key"
	useServices(t, Services{Settings: &mockSettings{settings: settings}})

	out, err := execute(t, "config", "show")

	require.NoError(t, err)
	assert.Contains(t, out, "Backend: SQLite (embedded file)")
	assert.Contains(t, out, "Topic: connector-sync")
	assert.Contains(t, out, "URL: https://broker.acme.io")
	assert.NotContains(t, out, "super-secret-broker-key")
	assert.Contains(t, out, "Configuration is valid.")
}

func TestConfigShow_ValidationWarning(t *testing.T) {
	useServices(t, Services{Settings: &mockSettings{
		settings:    domain.DefaultAppSettings(),
		validateErr: errors.New("unknown store backend"),
	}})

	out, err := execute(t, "config")

	require.NoError(t, err)
	assert.Contains(t, out, "Warning: unknown store backend")
}

func TestConfigSet(t *testing.T) {
	settings := &mockSettings{}
	useServices(t, Services{Settings: settings})

	out, err := execute(t, "config", "set", "cache.redis_db", "2")

	require.NoError(t, err)
	assert.Contains(t, out, "Set cache.redis_db")
	assert.Equal(t, 2, settings.set["cache.redis_db"])
}

func TestConfig_NoService(t *testing.T) {
	useServices(t, Services{})

	_, err := execute(t, "config", "show")

	assert.ErrorContains(t, err, "settings service not configured")
}
