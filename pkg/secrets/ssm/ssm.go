// Package ssm implements the AWS Systems Manager Parameter Store secrets
// backend. Collector settings live in one parameter and every plugin in its
// own parameter under a common prefix, all stored as YAML.
package ssm

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/ec2/imds"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/ajitpratap0/oddcollector/pkg/errors"
	"github.com/ajitpratap0/oddcollector/pkg/logger"
	"github.com/ajitpratap0/oddcollector/pkg/plugin"
	"github.com/ajitpratap0/oddcollector/pkg/secrets"
)

// Provider is the name the backend registers under.
const Provider = "AWSSystemsManagerParameterStore"

const (
	defaultConfigPrefix    = "/odd/collector_config"
	defaultSettingsSection = "/collector_settings"
	defaultPluginsSection  = "/plugins"

	imdsTimeout = 2 * time.Second
)

func init() {
	secrets.Register(Provider, func(ctx context.Context, kwargs map[string]interface{}, l *zap.Logger) (secrets.Backend, error) {
		return New(ctx, ConfigFromArgs(kwargs), l)
	})
}

// API is the subset of the SSM client the backend calls.
type API interface {
	GetParameter(ctx context.Context, params *awsssm.GetParameterInput, optFns ...func(*awsssm.Options)) (*awsssm.GetParameterOutput, error)
	GetParametersByPath(ctx context.Context, params *awsssm.GetParametersByPathInput, optFns ...func(*awsssm.Options)) (*awsssm.GetParametersByPathOutput, error)
}

// RegionAPI is the instance metadata call used as the last region source.
type RegionAPI interface {
	GetRegion(ctx context.Context, params *imds.GetRegionInput, optFns ...func(*imds.Options)) (*imds.GetRegionOutput, error)
}

// Config holds the backend keyword arguments.
type Config struct {
	RegionName            string
	CollectorID           string
	ConfigPrefix          string
	SettingsSectionPrefix string
	PluginsSectionPrefix  string
}

// ConfigFromArgs reads the secrets_backend keyword arguments.
func ConfigFromArgs(kwargs map[string]interface{}) Config {
	return Config{
		RegionName:            secrets.StringArg(kwargs, "region_name", ""),
		CollectorID:           secrets.StringArg(kwargs, "collector_id", ""),
		ConfigPrefix:          secrets.StringArg(kwargs, "config_prefix", defaultConfigPrefix),
		SettingsSectionPrefix: secrets.StringArg(kwargs, "collector_settings_section_prefix", defaultSettingsSection),
		PluginsSectionPrefix:  secrets.StringArg(kwargs, "plugins_section_prefix", defaultPluginsSection),
	}
}

// Option customises a Backend.
type Option func(*options)

type options struct {
	client    API
	regionAPI RegionAPI
	lookupEnv func(string) (string, bool)
}

// WithClient injects the SSM client; the region chain is skipped.
func WithClient(c API) Option {
	return func(o *options) { o.client = c }
}

// WithRegionAPI replaces the instance metadata client.
func WithRegionAPI(r RegionAPI) Option {
	return func(o *options) { o.regionAPI = r }
}

// WithLookupEnv replaces os.LookupEnv for the AWS_REGION step.
func WithLookupEnv(fn func(string) (string, bool)) Option {
	return func(o *options) { o.lookupEnv = fn }
}

// Backend reads collector settings and plugins from Parameter Store.
type Backend struct {
	client       API
	region       string
	settingsPath string
	pluginsPath  string
	logger       *zap.Logger
}

// New builds the backend, resolving the region and the SSM client unless a
// client is injected.
func New(ctx context.Context, cfg Config, l *zap.Logger, opts ...Option) (*Backend, error) {
	o := options{lookupEnv: os.LookupEnv}
	for _, opt := range opts {
		opt(&o)
	}

	b := &Backend{
		client:       o.client,
		settingsPath: cfg.SettingsPath(),
		pluginsPath:  cfg.PluginsPath(),
		logger:       logger.Component(l, "secrets.ssm"),
	}

	if b.client == nil {
		if o.regionAPI == nil {
			o.regionAPI = imds.New(imds.Options{})
		}
		region, err := ResolveRegion(ctx, cfg.RegionName, o.lookupEnv, o.regionAPI, b.logger)
		if err != nil {
			return nil, err
		}
		b.region = region

		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to load AWS config")
		}
		b.client = awsssm.NewFromConfig(awsCfg)
	}

	b.logger.Info("parameter store backend ready",
		zap.String("region", b.region),
		zap.String("settings_path", b.settingsPath),
		zap.String("plugins_path", b.pluginsPath))
	return b, nil
}

// ResolveRegion walks the region chain: AWS_REGION, then the configured
// region_name, then the EC2 instance metadata service. A failing step is
// logged and the next one is tried.
func ResolveRegion(ctx context.Context, configured string, lookupEnv func(string) (string, bool), regionAPI RegionAPI, l *zap.Logger) (string, error) {
	l = logger.OrNop(l)

	if region, ok := lookupEnv("AWS_REGION"); ok && region != "" {
		l.Debug("region taken from AWS_REGION", zap.String("region", region))
		return region, nil
	}
	l.Debug("AWS_REGION is not set")

	if configured != "" {
		l.Debug("region taken from region_name", zap.String("region", configured))
		return configured, nil
	}
	l.Debug("region_name is not configured")

	if regionAPI != nil {
		ctx, cancel := context.WithTimeout(ctx, imdsTimeout)
		defer cancel()

		out, err := regionAPI.GetRegion(ctx, &imds.GetRegionInput{})
		if err == nil && out.Region != "" {
			l.Debug("region taken from instance metadata", zap.String("region", out.Region))
			return out.Region, nil
		}
		l.Warn("could not get region from instance metadata", zap.Error(err))
	}

	return "", errors.New(errors.ErrorTypeConfig,
		"could not resolve AWS region: set AWS_REGION, secrets_backend.region_name or run on EC2")
}

// EnsureLeadingSlash normalises one parameter path segment.
func EnsureLeadingSlash(segment string) string {
	if strings.HasPrefix(segment, "/") {
		return segment
	}
	return "/" + segment
}

// BasePath is config_prefix joined with the optional collector id.
func (c Config) BasePath() string {
	prefix := c.ConfigPrefix
	if prefix == "" {
		prefix = defaultConfigPrefix
	}
	base := EnsureLeadingSlash(prefix)
	if c.CollectorID != "" {
		base += EnsureLeadingSlash(c.CollectorID)
	}
	return base
}

// SettingsPath is the name of the collector settings parameter.
func (c Config) SettingsPath() string {
	section := c.SettingsSectionPrefix
	if section == "" {
		section = defaultSettingsSection
	}
	return c.BasePath() + EnsureLeadingSlash(section)
}

// PluginsPath is the prefix plugin parameters live under.
func (c Config) PluginsPath() string {
	section := c.PluginsSectionPrefix
	if section == "" {
		section = defaultPluginsSection
	}
	return c.BasePath() + EnsureLeadingSlash(section)
}

// GetCollectorSettings fetches and decodes the settings parameter. A missing
// parameter yields empty settings.
func (b *Backend) GetCollectorSettings(ctx context.Context) (map[string]interface{}, error) {
	out, err := b.client.GetParameter(ctx, &awsssm.GetParameterInput{
		Name:           aws.String(b.settingsPath),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		if isNotFound(err) {
			b.logger.Info("collector settings parameter not found", zap.String("path", b.settingsPath))
			return map[string]interface{}{}, nil
		}
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to get collector settings from parameter store")
	}
	if out.Parameter == nil {
		return map[string]interface{}{}, nil
	}

	settings, err := decode(aws.ToString(out.Parameter.Value))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid collector settings parameter "+b.settingsPath)
	}
	return settings, nil
}

// GetPlugins fetches every parameter under the plugins prefix, each one a
// YAML plugin definition.
func (b *Backend) GetPlugins(ctx context.Context) ([]plugin.Raw, error) {
	plugins := []plugin.Raw{}

	paginator := awsssm.NewGetParametersByPathPaginator(b.client, &awsssm.GetParametersByPathInput{
		Path:           aws.String(b.pluginsPath),
		Recursive:      aws.Bool(true),
		WithDecryption: aws.Bool(true),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			if isNotFound(err) {
				b.logger.Info("plugins path not found", zap.String("path", b.pluginsPath))
				return []plugin.Raw{}, nil
			}
			return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to get plugins from parameter store")
		}
		for _, p := range page.Parameters {
			raw, err := decode(aws.ToString(p.Value))
			if err != nil {
				return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid plugin parameter "+aws.ToString(p.Name))
			}
			plugins = append(plugins, raw)
		}
	}

	b.logger.Debug("plugins fetched", zap.Int("count", len(plugins)))
	return plugins, nil
}

func decode(value string) (map[string]interface{}, error) {
	out := map[string]interface{}{}
	if err := yaml.Unmarshal([]byte(value), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func isNotFound(err error) bool {
	var nf *types.ParameterNotFound
	return errors.As(err, &nf)
}
