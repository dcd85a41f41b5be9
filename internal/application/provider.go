package application

import (
	"context"
	"time"
)

// ProviderEvent is the provider-neutral view of a remote calendar event.
type ProviderEvent struct {
	ExternalID string
	Title      string
	Location   string
	Start      time.Time
	End        time.Time
	Updated    time.Time
}

// CalendarProvider abstracts an external calendar backend. Credential is
// the unsealed secret material stored with the integration; each adapter
// knows how to build a client from it.
type CalendarProvider interface {
	FetchEvents(ctx context.Context, credential []byte, from, to time.Time) ([]ProviderEvent, error)
	CreateEvent(ctx context.Context, credential []byte, event ProviderEvent) (string, error)
	UpdateEvent(ctx context.Context, credential []byte, externalID string, event ProviderEvent) error
	DeleteEvent(ctx context.Context, credential []byte, externalID string) error
}

// ProviderRegistry resolves calendar providers by name. Unknown providers
// fail sync with a recorded error instead of a panic.
type ProviderRegistry struct {
	providers map[string]CalendarProvider
}

// NewProviderRegistry creates an empty registry.
func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{providers: make(map[string]CalendarProvider)}
}

// Register adds a provider under the given name, replacing any previous
// registration.
func (r *ProviderRegistry) Register(name string, provider CalendarProvider) {
	if r == nil || name == "" || provider == nil {
		return
	}
	r.providers[name] = provider
}

// Lookup resolves a provider by name.
func (r *ProviderRegistry) Lookup(name string) (CalendarProvider, bool) {
	if r == nil {
		return nil, false
	}
	provider, ok := r.providers[name]
	return provider, ok
}

// Names returns the registered provider names.
func (r *ProviderRegistry) Names() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	return sortedUnique(names)
}
