package mysql

import (
	"go.uber.org/multierr"

	"github.com/ajitpratap0/oddcollector/pkg/errors"
	"github.com/ajitpratap0/oddcollector/pkg/filter"
	"github.com/ajitpratap0/oddcollector/pkg/plugin"
)

// Type is the plugin and adapter type name.
const Type = "mysql"

// DefaultPort is used when the plugin sets none.
const DefaultPort = 3306

// Plugin configures one MySQL database.
type Plugin struct {
	plugin.Base `mapstructure:",squash"`

	Host         string         `mapstructure:"host"`
	Port         int            `mapstructure:"port"`
	Database     string         `mapstructure:"database"`
	User         string         `mapstructure:"user"`
	Password     string         `mapstructure:"password"`
	SSLDisabled  bool           `mapstructure:"ssl_disabled"`
	TablesFilter *filter.Filter `mapstructure:"tables_filter"`
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
	if p.TablesFilter != nil {
		if err := p.TablesFilter.Validate(); err != nil {
			errs = multierr.Append(errs, errors.Wrap(err, errors.ErrorTypeValidation, p.Name+": tables_filter"))
		}
	}
	return errs
}
