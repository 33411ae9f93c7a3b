package plugin

import (
	"fmt"
	"sort"
	"sync"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/multierr"

	"github.com/ajitpratap0/oddcollector/pkg/errors"
)

// Factory returns a new zero value of a concrete plugin, ready to decode into.
type Factory func() Plugin

// Registry maps a plugin type to its schema factory.
type Registry struct {
	factories map[string]Factory
	mu        sync.RWMutex
}

var defaultRegistry = NewRegistry()

// NewRegistry creates an empty plugin registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Default returns the process registry adapters register into from init().
func Default() *Registry {
	return defaultRegistry
}

// Register records the schema of a plugin type.
func (r *Registry) Register(typ string, factory Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[typ]; exists {
		return errors.Newf(errors.ErrorTypeConfig, "plugin type %s already registered", typ)
	}
	r.factories[typ] = factory
	return nil
}

// MustRegister is Register that panics on a duplicate type.
func (r *Registry) MustRegister(typ string, factory Factory) {
	if err := r.Register(typ, factory); err != nil {
		panic(err)
	}
}

// Types lists registered plugin types, sorted.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.factories))
	for typ := range r.factories {
		types = append(types, typ)
	}
	sort.Strings(types)
	return types
}

// Decode validates one raw plugin definition against the schema registered
// for its "type" and returns the typed plugin.
func (r *Registry) Decode(raw map[string]interface{}) (Plugin, error) {
	typ, _ := raw["type"].(string)
	if typ == "" {
		return nil, errors.New(errors.ErrorTypeValidation, fmt.Sprintf("plugin %v has no type", raw["name"]))
	}

	r.mu.RLock()
	factory, exists := r.factories[typ]
	r.mu.RUnlock()
	if !exists {
		return nil, errors.Newf(errors.ErrorTypeConfig, "unknown plugin type %q", typ).
			WithDetail("name", raw["name"])
	}

	p := factory()
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           p,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, "failed to build plugin decoder")
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeValidation, fmt.Sprintf("invalid %s plugin %v", typ, raw["name"]))
	}

	if v, ok := p.(Validator); ok {
		if err := v.Validate(); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeValidation, fmt.Sprintf("invalid %s plugin %s", typ, p.GetName()))
		}
	}
	return p, nil
}

// DecodeAll decodes every raw plugin, aggregating all failures, and rejects
// duplicate names.
func (r *Registry) DecodeAll(raws []map[string]interface{}) ([]Plugin, error) {
	plugins := make([]Plugin, 0, len(raws))
	seen := make(map[string]struct{}, len(raws))

	var errs error
	for _, raw := range raws {
		p, err := r.Decode(raw)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		if _, dup := seen[p.GetName()]; dup {
			errs = multierr.Append(errs, errors.Newf(errors.ErrorTypeConflict, "duplicate plugin name %q", p.GetName()))
			continue
		}
		seen[p.GetName()] = struct{}{}
		plugins = append(plugins, p)
	}
	if errs != nil {
		return nil, errs
	}
	return plugins, nil
}
