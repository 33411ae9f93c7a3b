package kafka

import (
	"go.uber.org/multierr"

	"github.com/ajitpratap0/oddcollector/pkg/errors"
	"github.com/ajitpratap0/oddcollector/pkg/filter"
	"github.com/ajitpratap0/oddcollector/pkg/plugin"
)

// Type is the plugin and adapter type name.
const Type = "kafka"

// Security protocols.
const (
	ProtocolPlaintext     = "PLAINTEXT"
	ProtocolSSL           = "SSL"
	ProtocolSASLPlaintext = "SASL_PLAINTEXT"
	ProtocolSASLSSL       = "SASL_SSL"
)

// Plugin configures one Kafka cluster.
type Plugin struct {
	plugin.Base `mapstructure:",squash"`

	Host                  string         `mapstructure:"host"`
	Brokers               []string       `mapstructure:"brokers"`
	ClientID              string         `mapstructure:"client_id"`
	SecurityProtocol      string         `mapstructure:"security_protocol"`
	SASLUsername          string         `mapstructure:"sasl_username"`
	SASLPassword          string         `mapstructure:"sasl_password"`
	TLSInsecureSkipVerify bool           `mapstructure:"tls_insecure_skip_verify"`
	IncludeInternal       bool           `mapstructure:"include_internal"`
	TopicsFilter          *filter.Filter `mapstructure:"topics_filter"`
}

// Validate implements plugin.Validator.
func (p *Plugin) Validate() error {
	errs := p.Base.Validate()
	if len(p.Brokers) == 0 {
		errs = multierr.Append(errs, errors.Newf(errors.ErrorTypeValidation, "%s: at least one broker is required", p.Name))
	}
	switch p.SecurityProtocol {
	case "", ProtocolPlaintext, ProtocolSSL:
	case ProtocolSASLPlaintext, ProtocolSASLSSL:
		if p.SASLUsername == "" {
			errs = multierr.Append(errs, errors.Newf(errors.ErrorTypeValidation, "%s: sasl_username is required for %s", p.Name, p.SecurityProtocol))
		}
	default:
		errs = multierr.Append(errs, errors.Newf(errors.ErrorTypeValidation, "%s: unsupported security protocol %q", p.Name, p.SecurityProtocol))
	}
	if p.TopicsFilter != nil {
		if err := p.TopicsFilter.Validate(); err != nil {
			errs = multierr.Append(errs, errors.Wrap(err, errors.ErrorTypeValidation, p.Name+": topics_filter"))
		}
	}
	return errs
}

// host names the cluster in oddrns: Host when set, else the first broker.
func (p *Plugin) host() string {
	if p.Host != "" {
		return p.Host
	}
	if len(p.Brokers) > 0 {
		return p.Brokers[0]
	}
	return ""
}
