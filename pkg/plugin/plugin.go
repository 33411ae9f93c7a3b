// Package plugin defines the typed, named configuration records that describe
// one adapter instance, and the registry that maps a plugin type to its
// schema.
package plugin

import (
	"github.com/ajitpratap0/oddcollector/pkg/errors"
)

// Plugin is a decoded plugin configuration. Concrete plugins embed Base
// (with `mapstructure:",squash"`) and add their type-specific fields.
type Plugin interface {
	GetType() string
	GetName() string
	GetDescription() string
	GetNamespace() string
}

// Validator is implemented by plugins that check their own fields after
// decoding.
type Validator interface {
	Validate() error
}

// Base carries the fields every plugin has. Keys no concrete plugin field
// claims are kept in Extra.
type Base struct {
	Type        string                 `mapstructure:"type" json:"type"`
	Name        string                 `mapstructure:"name" json:"name"`
	Description string                 `mapstructure:"description" json:"description,omitempty"`
	Namespace   string                 `mapstructure:"namespace" json:"namespace,omitempty"`
	Extra       map[string]interface{} `mapstructure:",remain" json:"-"`
}

func (b Base) GetType() string        { return b.Type }
func (b Base) GetName() string        { return b.Name }
func (b Base) GetDescription() string { return b.Description }
func (b Base) GetNamespace() string   { return b.Namespace }

// Validate checks the common fields.
func (b Base) Validate() error {
	if b.Type == "" {
		return errors.New(errors.ErrorTypeValidation, "plugin type is required")
	}
	if b.Name == "" {
		return errors.Newf(errors.ErrorTypeValidation, "plugin of type %s has no name", b.Type)
	}
	return nil
}

// Generic is a plugin with no type-specific schema; everything beyond the
// common fields lands in Extra.
type Generic struct {
	Base `mapstructure:",squash"`
}
