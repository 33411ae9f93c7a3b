package adapter

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/ajitpratap0/oddcollector/pkg/errors"
	"github.com/ajitpratap0/oddcollector/pkg/logger"
	"github.com/ajitpratap0/oddcollector/pkg/plugin"
)

// DefaultNamespace is where the bundled adapters register.
const DefaultNamespace = "adapters"

// Constructor builds an adapter from its plugin.
type Constructor func(p plugin.Plugin, logger *zap.Logger) (Adapter, error)

// Registry maps namespace and plugin type to an adapter constructor.
// Namespaces let separate adapter collections reuse type names.
type Registry struct {
	namespaces map[string]map[string]Constructor
	mu         sync.RWMutex
}

var defaultRegistry = NewRegistry()

// NewRegistry creates an empty adapter registry.
func NewRegistry() *Registry {
	return &Registry{namespaces: make(map[string]map[string]Constructor)}
}

// Default returns the registry adapters register into from init().
func Default() *Registry {
	return defaultRegistry
}

// Register records ctor for typ in the default registry and namespace. It
// panics on a duplicate, as registration happens in init().
func Register(typ string, ctor Constructor) {
	if err := defaultRegistry.Register(DefaultNamespace, typ, ctor); err != nil {
		panic(err)
	}
}

// Register records ctor for typ in namespace.
func (r *Registry) Register(namespace, typ string, ctor Constructor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ns, ok := r.namespaces[namespace]
	if !ok {
		ns = make(map[string]Constructor)
		r.namespaces[namespace] = ns
	}
	if _, exists := ns[typ]; exists {
		return errors.Newf(errors.ErrorTypeConfig, "adapter %s/%s already registered", namespace, typ)
	}
	ns[typ] = ctor
	return nil
}

// Lookup returns the constructor of typ in namespace.
func (r *Registry) Lookup(namespace, typ string) (Constructor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ns, ok := r.namespaces[namespace]
	if !ok {
		return nil, errors.Newf(errors.ErrorTypeNotFound, "adapter namespace %s not found", namespace)
	}
	ctor, ok := ns[typ]
	if !ok {
		return nil, errors.Newf(errors.ErrorTypeNotFound, "adapter %s not found in %s", typ, namespace)
	}
	return ctor, nil
}

// Types lists the adapter types of namespace, sorted.
func (r *Registry) Types(namespace string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.namespaces[namespace]))
	for typ := range r.namespaces[namespace] {
		types = append(types, typ)
	}
	sort.Strings(types)
	return types
}

// LoadAdapters builds the adapters of plugins from the default registry.
func LoadAdapters(rootPackage string, plugins []plugin.Plugin, l *zap.Logger) ([]Adapter, error) {
	return defaultRegistry.Load(rootPackage, plugins, l)
}

// Load builds one adapter per plugin, in order, from the constructors
// registered under rootPackage (DefaultNamespace when empty). A plugin whose
// type has no constructor fails the whole load.
func (r *Registry) Load(rootPackage string, plugins []plugin.Plugin, l *zap.Logger) ([]Adapter, error) {
	if rootPackage == "" {
		rootPackage = DefaultNamespace
	}
	l = logger.Component(l, "adapter_loader")

	resolved := make(map[string]Constructor)
	adapters := make([]Adapter, 0, len(plugins))
	for _, p := range plugins {
		ctor, ok := resolved[p.GetType()]
		if !ok {
			var err error
			if ctor, err = r.Lookup(rootPackage, p.GetType()); err != nil {
				return nil, errors.Wrap(err, errors.ErrorTypeConfig, fmt.Sprintf("cannot load adapter for plugin %s", p.GetName()))
			}
			resolved[p.GetType()] = ctor
		}

		a, err := ctor(p, l.With(zap.String("adapter", p.GetName())))
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, fmt.Sprintf("failed to create %s adapter %s", p.GetType(), p.GetName()))
		}
		if a.Plugin() == nil {
			setter, ok := a.(PluginSetter)
			if !ok {
				return nil, errors.Newf(errors.ErrorTypeConfig, "%s adapter %s does not expose its plugin", p.GetType(), p.GetName())
			}
			setter.SetPlugin(p)
		}
		adapters = append(adapters, a)
	}

	l.Info("adapters loaded", zap.Int("count", len(adapters)), zap.String("namespace", rootPackage))
	return adapters, nil
}
