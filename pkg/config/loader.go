package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ajitpratap0/oddcollector/pkg/config/envyaml"
	"github.com/ajitpratap0/oddcollector/pkg/errors"
	"github.com/ajitpratap0/oddcollector/pkg/logger"
	"github.com/ajitpratap0/oddcollector/pkg/plugin"
	"github.com/ajitpratap0/oddcollector/pkg/secrets"
)

// PathEnv names the environment variable holding the config path.
const PathEnv = "CONFIG_PATH"

// DefaultFile is the config path used when neither a path nor CONFIG_PATH
// is given.
const DefaultFile = "collector_config.yaml"

// DefaultPath resolves the config path from CONFIG_PATH.
func DefaultPath() string {
	if p := os.Getenv(PathEnv); p != "" {
		return p
	}
	return DefaultFile
}

// Loader turns the collector YAML file, and optionally a secrets backend,
// into a CollectorConfig.
type Loader struct {
	plugins *plugin.Registry
	logger  *zap.Logger
}

// NewLoader creates a loader validating plugins against registry. A nil
// registry means plugin.Default().
func NewLoader(registry *plugin.Registry, l *zap.Logger) *Loader {
	if registry == nil {
		registry = plugin.Default()
	}
	return &Loader{plugins: registry, logger: logger.Component(l, "config")}
}

// Load reads the config at path (DefaultPath() when empty). Every failure is
// returned as a *errors.LoadConfigError.
func (l *Loader) Load(ctx context.Context, path string) (*CollectorConfig, error) {
	if path == "" {
		path = DefaultPath()
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	l.logger.Debug("config path", zap.String("path", path))
	l.logger.Info("start reading config")

	cfg, err := l.build(ctx, path)
	if err != nil {
		return nil, errors.NewLoadConfigError(err)
	}

	l.logger.Info("config loaded",
		zap.Int("plugins", len(cfg.Plugins)),
		zap.Bool("polling", cfg.Polling()))
	return cfg, nil
}

func (l *Loader) build(ctx context.Context, path string) (*CollectorConfig, error) {
	f, err := os.Open(path) //nolint:gosec // G304: path is the operator's config file
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to open config file")
	}
	defer f.Close()

	l.logger.Debug("parsing config")
	doc, err := envyaml.Parse(f)
	if err != nil {
		return nil, err
	}

	settings, rawPlugins, backendSettings, err := split(doc)
	if err != nil {
		return nil, err
	}

	if backendSettings != nil {
		backend, err := secrets.New(ctx, backendSettings, l.logger)
		if err != nil {
			return nil, err
		}

		secretSettings, err := backend.GetCollectorSettings(ctx)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to get collector settings from secrets backend")
		}
		secretPlugins, err := backend.GetPlugins(ctx)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to get plugins from secrets backend")
		}

		l.logger.Debug("merging secrets backend config",
			zap.Int("secret_settings", len(secretSettings)),
			zap.Int("secret_plugins", len(secretPlugins)),
			zap.Int("local_plugins", len(rawPlugins)))
		settings = MergeSettings(secretSettings, settings)
		rawPlugins = MergePlugins(secretPlugins, rawPlugins)
	}

	plugins, err := l.plugins.DecodeAll(rawPlugins)
	if err != nil {
		return nil, err
	}

	cfg, err := DecodeSettings(settings)
	if err != nil {
		return nil, err
	}
	cfg.Plugins = plugins
	return cfg, nil
}

// split separates the plugins list and the secrets_backend section from the
// remaining keys, which are the local collector settings.
func split(doc map[string]interface{}) (settings map[string]interface{}, plugins []plugin.Raw, backend map[string]interface{}, err error) {
	settings = make(map[string]interface{}, len(doc))
	for k, v := range doc {
		settings[k] = v
	}

	plugins, err = plugin.RawList(settings[KeyPlugins])
	if err != nil {
		return nil, nil, nil, err
	}
	delete(settings, KeyPlugins)

	if raw, ok := settings[KeySecretsBackend]; ok {
		delete(settings, KeySecretsBackend)
		if raw != nil {
			m, ok := raw.(map[string]interface{})
			if !ok {
				return nil, nil, nil, errors.Newf(errors.ErrorTypeValidation, "secrets_backend must be a mapping, got %T", raw)
			}
			backend = m
		}
	}
	return settings, plugins, backend, nil
}

// DecodeSettings applies defaults, fills settings missing from the map from
// upper-cased environment variables (TOKEN, PLATFORM_HOST_URL, ...) and
// decodes the result with weak typing, so "250" is accepted for an int.
func DecodeSettings(settings map[string]interface{}) (*CollectorConfig, error) {
	v := viper.New()
	v.SetDefault(KeyChunkSize, DefaultChunkSize)
	v.SetDefault(KeyMaxInstances, DefaultMaxInstances)
	v.SetDefault(KeyConnectionTimeoutSeconds, DefaultConnectionTimeoutSeconds)
	v.SetDefault(KeyVerifySSL, DefaultVerifySSL)

	if err := v.MergeConfigMap(settings); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to merge collector settings")
	}
	for _, key := range settingKeys {
		if !v.InConfig(key) {
			if err := v.BindEnv(key, strings.ToUpper(key)); err != nil {
				return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to bind "+key)
			}
		}
	}

	cfg := &CollectorConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeValidation, "invalid collector settings")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
