package config

import (
	"time"

	"go.uber.org/multierr"

	"github.com/ajitpratap0/oddcollector/pkg/errors"
	"github.com/ajitpratap0/oddcollector/pkg/plugin"
)

// Setting keys of the collector configuration file.
const (
	KeyPlatformHostURL          = "platform_host_url"
	KeyToken                    = "token"
	KeyChunkSize                = "chunk_size"
	KeyDefaultPullingInterval   = "default_pulling_interval"
	KeyMisfireGraceTime         = "misfire_grace_time"
	KeyMaxInstances             = "max_instances"
	KeyConnectionTimeoutSeconds = "connection_timeout_seconds"
	KeyVerifySSL                = "verify_ssl"

	KeyPlugins        = "plugins"
	KeySecretsBackend = "secrets_backend"
)

// Defaults applied to settings absent from both the file and the secrets
// backend.
const (
	DefaultChunkSize                = 250
	DefaultMaxInstances             = 1
	DefaultConnectionTimeoutSeconds = 300
	DefaultVerifySSL                = true
)

// settingKeys lists every collector setting, in documentation order.
var settingKeys = []string{
	KeyPlatformHostURL,
	KeyToken,
	KeyChunkSize,
	KeyDefaultPullingInterval,
	KeyMisfireGraceTime,
	KeyMaxInstances,
	KeyConnectionTimeoutSeconds,
	KeyVerifySSL,
}

// CollectorConfig is the validated collector configuration. It is built once
// by Loader.Load and read-only afterwards.
type CollectorConfig struct {
	// PlatformHostURL is the base URL of the catalog platform
	PlatformHostURL string `mapstructure:"platform_host_url" json:"platform_host_url"`
	// Token is sent as a bearer token with every platform call
	Token string `mapstructure:"token" json:"-"`
	// ChunkSize bounds the number of entities per ingestion request
	ChunkSize int `mapstructure:"chunk_size" json:"chunk_size"`
	// DefaultPullingInterval is the polling period in minutes; nil means run once
	DefaultPullingInterval *int `mapstructure:"default_pulling_interval" json:"default_pulling_interval,omitempty"`
	// MisfireGraceTime is how late, in seconds, a scheduled run may still start
	MisfireGraceTime *int `mapstructure:"misfire_grace_time" json:"misfire_grace_time,omitempty"`
	// MaxInstances bounds overlapping runs of the same adapter
	MaxInstances int `mapstructure:"max_instances" json:"max_instances"`
	// ConnectionTimeoutSeconds is the total timeout of one platform call
	ConnectionTimeoutSeconds int `mapstructure:"connection_timeout_seconds" json:"connection_timeout_seconds"`
	// VerifySSL disables certificate verification when false
	VerifySSL bool `mapstructure:"verify_ssl" json:"verify_ssl"`

	Plugins []plugin.Plugin `mapstructure:"-" json:"-"`
}

// Validate checks the decoded settings, reporting every problem at once.
func (c *CollectorConfig) Validate() error {
	var errs error
	if c.PlatformHostURL == "" {
		errs = multierr.Append(errs, errors.New(errors.ErrorTypeValidation, "platform_host_url is required"))
	}
	if c.Token == "" {
		errs = multierr.Append(errs, errors.New(errors.ErrorTypeValidation, "token is required"))
	}
	if c.ChunkSize <= 0 {
		errs = multierr.Append(errs, errors.Newf(errors.ErrorTypeValidation, "chunk_size must be positive, got %d", c.ChunkSize))
	}
	if c.MaxInstances < 1 {
		errs = multierr.Append(errs, errors.Newf(errors.ErrorTypeValidation, "max_instances must be at least 1, got %d", c.MaxInstances))
	}
	if c.ConnectionTimeoutSeconds <= 0 {
		errs = multierr.Append(errs, errors.Newf(errors.ErrorTypeValidation, "connection_timeout_seconds must be positive, got %d", c.ConnectionTimeoutSeconds))
	}
	if c.DefaultPullingInterval != nil && *c.DefaultPullingInterval < 0 {
		errs = multierr.Append(errs, errors.Newf(errors.ErrorTypeValidation, "default_pulling_interval must not be negative, got %d", *c.DefaultPullingInterval))
	}
	if c.MisfireGraceTime != nil && *c.MisfireGraceTime < 1 {
		errs = multierr.Append(errs, errors.Newf(errors.ErrorTypeValidation, "misfire_grace_time must be at least 1 second, got %d", *c.MisfireGraceTime))
	}
	return errs
}

// Polling reports whether a pulling interval is configured. An interval of
// 0 means run once, like an absent one.
func (c *CollectorConfig) Polling() bool {
	return c.DefaultPullingInterval != nil && *c.DefaultPullingInterval > 0
}

// PollingInterval is the schedule period, zero in run-once mode.
func (c *CollectorConfig) PollingInterval() time.Duration {
	if !c.Polling() {
		return 0
	}
	return time.Duration(*c.DefaultPullingInterval) * time.Minute
}

// MisfireGrace is misfire_grace_time, defaulting to the whole interval.
func (c *CollectorConfig) MisfireGrace() time.Duration {
	if c.MisfireGraceTime != nil {
		return time.Duration(*c.MisfireGraceTime) * time.Second
	}
	return c.PollingInterval()
}

// ConnectionTimeout is connection_timeout_seconds as a duration.
func (c *CollectorConfig) ConnectionTimeout() time.Duration {
	return time.Duration(c.ConnectionTimeoutSeconds) * time.Second
}
