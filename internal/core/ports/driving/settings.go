package driving

import "github.com/custodia-labs/permsync/internal/core/domain"

// SettingsService resolves application settings from the config file and
// environment.
type SettingsService interface {
	// Get returns the resolved settings.
	Get() (*domain.AppSettings, error)

	// Set persists one configuration key.
	Set(key string, value any) error

	// Validate checks the resolved settings.
	Validate() error
}
