package services

import (
	"fmt"

	"github.com/custodia-labs/permsync/internal/core/domain"
	"github.com/custodia-labs/permsync/internal/core/ports/driven"
)

// ProviderRegistry maps provider types to their remote clients.
type ProviderRegistry struct {
	providers map[domain.ProviderType]driven.RemoteProvider
}

// NewProviderRegistry registers the given providers. Nil entries are ignored.
func NewProviderRegistry(providers ...driven.RemoteProvider) *ProviderRegistry {
	r := &ProviderRegistry{providers: make(map[domain.ProviderType]driven.RemoteProvider)}
	for _, p := range providers {
		if p != nil {
			r.providers[p.Provider()] = p
		}
	}
	return r
}

// Get returns the client of a provider.
func (r *ProviderRegistry) Get(provider domain.ProviderType) (driven.RemoteProvider, error) {
	p, ok := r.providers[provider]
	if !ok {
		return nil, fmt.Errorf("%w: provider %q", domain.ErrUnsupportedType, provider)
	}
	return p, nil
}
