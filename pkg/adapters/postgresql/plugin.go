package postgresql

import (
	"go.uber.org/multierr"

	"github.com/ajitpratap0/oddcollector/pkg/errors"
	"github.com/ajitpratap0/oddcollector/pkg/filter"
	"github.com/ajitpratap0/oddcollector/pkg/plugin"
)

// Type is the plugin and adapter type name.
const Type = "postgresql"

// DefaultPort is used when the plugin sets none.
const DefaultPort = 5432

// Plugin configures one PostgreSQL database.
type Plugin struct {
	plugin.Base `mapstructure:",squash"`

	Host          string         `mapstructure:"host"`
	Port          int            `mapstructure:"port"`
	Database      string         `mapstructure:"database"`
	User          string         `mapstructure:"user"`
	Password      string         `mapstructure:"password"`
	SSLMode       string         `mapstructure:"ssl_mode"`
	SchemasFilter *filter.Filter `mapstructure:"schemas_filter"`
}

// Validate implements plugin.Validator.
func (p *Plugin) Validate() error {
	errs := p.Base.Validate()
	if p.Host == "" {
		errs = multierr.Append(errs, errors.Newf(errors.ErrorTypeValidation, "%s: host is required", p.Name))
	}
	if p.Database == "" {
		errs = multierr.Append(errs, errors.Newf(errors.ErrorTypeValidation, "%s: database is required", p.Name))
	}
	if p.Port < 0 {
		errs = multierr.Append(errs, errors.Newf(errors.ErrorTypeValidation, "%s: invalid port %d", p.Name, p.Port))
	}
	if p.SchemasFilter != nil {
		if err := p.SchemasFilter.Validate(); err != nil {
			errs = multierr.Append(errs, errors.Wrap(err, errors.ErrorTypeValidation, p.Name+": schemas_filter"))
		}
	}
	return errs
}

func (p *Plugin) port() int {
	if p.Port == 0 {
		return DefaultPort
	}
	return p.Port
}
