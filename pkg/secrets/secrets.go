// Package secrets defines the backends the collector can pull its settings
// and plugin definitions from, and the provider factory that builds them
// from the "secrets_backend" config section.
package secrets

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/ajitpratap0/oddcollector/pkg/errors"
	"github.com/ajitpratap0/oddcollector/pkg/plugin"
)

// ProviderKey selects the provider inside the secrets_backend section.
const ProviderKey = "provider"

// Backend supplies collector settings and plugin definitions from an
// external store. A missing entry is not an error: it yields an empty result.
type Backend interface {
	GetCollectorSettings(ctx context.Context) (map[string]interface{}, error)
	GetPlugins(ctx context.Context) ([]plugin.Raw, error)
}

// Constructor builds a backend from the secrets_backend keys other than
// "provider".
type Constructor func(ctx context.Context, kwargs map[string]interface{}, logger *zap.Logger) (Backend, error)

var (
	providersMu sync.RWMutex
	providers   = make(map[string]Constructor)
)

// Register makes a provider available by name. It panics when the name is
// taken; providers register from init().
func Register(name string, ctor Constructor) {
	providersMu.Lock()
	defer providersMu.Unlock()

	if _, exists := providers[name]; exists {
		panic(fmt.Sprintf("secrets provider %s already registered", name))
	}
	providers[name] = ctor
}

// Providers lists the registered provider names, sorted.
func Providers() []string {
	providersMu.RLock()
	defer providersMu.RUnlock()

	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New instantiates the provider named by settings["provider"].
func New(ctx context.Context, settings map[string]interface{}, logger *zap.Logger) (Backend, error) {
	name, _ := settings[ProviderKey].(string)
	if name == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "secrets_backend.provider is required")
	}

	providersMu.RLock()
	ctor, exists := providers[name]
	providersMu.RUnlock()
	if !exists {
		return nil, errors.Newf(errors.ErrorTypeConfig, "unknown secrets provider %q", name).
			WithDetail("available", Providers())
	}

	kwargs := make(map[string]interface{}, len(settings))
	for k, v := range settings {
		if k != ProviderKey {
			kwargs[k] = v
		}
	}

	backend, err := ctor(ctx, kwargs, logger)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, fmt.Sprintf("failed to create secrets provider %s", name))
	}
	return backend, nil
}

// StringArg reads an optional string keyword argument.
func StringArg(kwargs map[string]interface{}, key, def string) string {
	if v, ok := kwargs[key]; ok && v != nil {
		return fmt.Sprint(v)
	}
	return def
}
