package ai

import (
	"strings"
	"sync"

	"manbo/internal/adapters/config"
	"manbo/pkg/errors"
	"manbo/pkg/logger"
)

// Registry stores all available chat clients by provider name.
type Registry struct {
	clients         map[string]ChatClient
	defaultProvider string
	mu              sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		clients: make(map[string]ChatClient),
	}
}

// Register adds a client to the registry.
func (r *Registry) Register(client ChatClient) error {
	if client == nil {
		return errors.New("client is nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	name := client.Name()
	if _, exists := r.clients[name]; exists {
		return errors.Wrapf(errors.ErrAlreadyExists, "provider %s already registered", name)
	}

	r.clients[name] = client
	if r.defaultProvider == "" {
		r.defaultProvider = name
	}
	return nil
}

// SetDefault marks a registered provider as the default.
func (r *Registry) SetDefault(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.clients[name]; !ok {
		return errors.Wrapf(errors.ErrNotFound, "provider %s not registered", name)
	}
	r.defaultProvider = name
	return nil
}

// Get returns the client for the named provider, or the default when name is
// empty.
func (r *Registry) Get(name string) (ChatClient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if name == "" {
		name = r.defaultProvider
	}

	client, ok := r.clients[strings.ToLower(name)]
	if !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "provider %s not found", name)
	}

	return client, nil
}

// List returns the names of all registered providers.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.clients))
	for name := range r.clients {
		names = append(names, name)
	}
	return names
}

// BuildRegistry initializes a Registry with all providers enabled by
// configuration. At least one API key must be present.
func BuildRegistry(cfg config.AIConfig) (*Registry, error) {
	registry := NewRegistry()

	if cfg.OpenAIKey != "" {
		client := NewOpenAIClient(cfg.OpenAIKey, cfg.OpenAIModel, cfg.RequestTimeout, cfg.ReqPerMinute)
		if err := registry.Register(client); err != nil {
			return nil, err
		}
	}

	if cfg.DeepSeekKey != "" {
		client := NewDeepSeekClient(cfg.DeepSeekKey, cfg.DeepSeekModel, cfg.RequestTimeout, cfg.ReqPerMinute)
		if err := registry.Register(client); err != nil {
			return nil, err
		}
	}

	if cfg.GeminiKey != "" {
		client, err := NewGeminiClient(cfg.GeminiKey, cfg.GeminiModel, cfg.RequestTimeout, cfg.ReqPerMinute)
		if err != nil {
			return nil, err
		}
		if err := registry.Register(client); err != nil {
			return nil, err
		}
	}

	if len(registry.List()) == 0 {
		return nil, errors.Wrap(errors.ErrUnavailable, "no AI provider configured")
	}

	if err := registry.SetDefault(strings.ToLower(cfg.DefaultProvider)); err != nil {
		// Configured default has no key, fall back to whichever provider
		// registered first.
		registry.mu.RLock()
		fallback := registry.defaultProvider
		registry.mu.RUnlock()
		logger.Get().Warnf("default AI provider %s has no API key, falling back to %s",
			cfg.DefaultProvider, fallback)
	}

	return registry, nil
}
