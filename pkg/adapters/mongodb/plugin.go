package mongodb

import (
	"fmt"
	"net/url"

	"go.uber.org/multierr"

	"github.com/ajitpratap0/oddcollector/pkg/errors"
	"github.com/ajitpratap0/oddcollector/pkg/filter"
	"github.com/ajitpratap0/oddcollector/pkg/plugin"
)

// Type is the plugin and adapter type name.
const Type = "mongodb"

// Plugin configures one MongoDB database.
type Plugin struct {
	plugin.Base `mapstructure:",squash"`

	// Protocol is "mongodb" (default) or "mongodb+srv"
	Protocol          string         `mapstructure:"protocol"`
	Host              string         `mapstructure:"host"`
	Port              int            `mapstructure:"port"`
	Database          string         `mapstructure:"database"`
	User              string         `mapstructure:"user"`
	Password          string         `mapstructure:"password"`
	CollectionsFilter *filter.Filter `mapstructure:"collections_filter"`
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
	switch p.Protocol {
	case "", "mongodb", "mongodb+srv":
	default:
		errs = multierr.Append(errs, errors.Newf(errors.ErrorTypeValidation, "%s: unsupported protocol %q", p.Name, p.Protocol))
	}
	if p.CollectionsFilter != nil {
		if err := p.CollectionsFilter.Validate(); err != nil {
			errs = multierr.Append(errs, errors.Wrap(err, errors.ErrorTypeValidation, p.Name+": collections_filter"))
		}
	}
	return errs
}

// URI is the connection string of p.
func (p *Plugin) URI() string {
	u := url.URL{Scheme: "mongodb", Host: p.Host, Path: "/" + p.Database}
	if p.Protocol != "" {
		u.Scheme = p.Protocol
	}
	if p.Port != 0 && u.Scheme == "mongodb" {
		u.Host = fmt.Sprintf("%s:%d", p.Host, p.Port)
	}
	if p.User != "" {
		u.User = url.UserPassword(p.User, p.Password)
	}
	return u.String()
}
