package s3

import (
	"strings"

	"go.uber.org/multierr"

	"github.com/ajitpratap0/oddcollector/pkg/errors"
	"github.com/ajitpratap0/oddcollector/pkg/filter"
	"github.com/ajitpratap0/oddcollector/pkg/plugin"
)

// Type is the plugin and adapter type name.
const Type = "s3"

// DatasetConfig points at the objects to collect.
type DatasetConfig struct {
	Bucket string `mapstructure:"bucket"`
	Prefix string `mapstructure:"prefix"`
}

// Plugin configures one bucket.
type Plugin struct {
	plugin.Base `mapstructure:",squash"`

	AWSRegion          string         `mapstructure:"aws_region"`
	AWSAccessKeyID     string         `mapstructure:"aws_access_key_id"`
	AWSSecretAccessKey string         `mapstructure:"aws_secret_access_key"`
	AWSSessionToken    string         `mapstructure:"aws_session_token"`
	EndpointURL        string         `mapstructure:"endpoint_url"`
	DatasetConfig      DatasetConfig  `mapstructure:"dataset_config"`
	FilenameFilter     *filter.Filter `mapstructure:"filename_filter"`
}

// Validate implements plugin.Validator.
func (p *Plugin) Validate() error {
	errs := p.Base.Validate()
	if p.DatasetConfig.Bucket == "" {
		errs = multierr.Append(errs, errors.Newf(errors.ErrorTypeValidation, "%s: dataset_config.bucket is required", p.Name))
	}
	if strings.Contains(p.DatasetConfig.Bucket, "/") {
		errs = multierr.Append(errs, errors.Newf(errors.ErrorTypeValidation, "%s: bucket %q must not contain a path, use prefix", p.Name, p.DatasetConfig.Bucket))
	}
	if (p.AWSAccessKeyID == "") != (p.AWSSecretAccessKey == "") {
		errs = multierr.Append(errs, errors.Newf(errors.ErrorTypeValidation, "%s: aws_access_key_id and aws_secret_access_key go together", p.Name))
	}
	if p.FilenameFilter != nil {
		if err := p.FilenameFilter.Validate(); err != nil {
			errs = multierr.Append(errs, errors.Wrap(err, errors.ErrorTypeValidation, p.Name+": filename_filter"))
		}
	}
	return errs
}
