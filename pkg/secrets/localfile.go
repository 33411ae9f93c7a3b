package secrets

import (
	"context"
	"os"

	"go.uber.org/zap"

	"github.com/ajitpratap0/oddcollector/pkg/config/envyaml"
	"github.com/ajitpratap0/oddcollector/pkg/errors"
	"github.com/ajitpratap0/oddcollector/pkg/logger"
	"github.com/ajitpratap0/oddcollector/pkg/plugin"
)

// LocalFileProvider is the provider name of the local file backend.
const LocalFileProvider = "LocalFile"

func init() {
	Register(LocalFileProvider, func(_ context.Context, kwargs map[string]interface{}, l *zap.Logger) (Backend, error) {
		return NewLocalFile(StringArg(kwargs, "collector_config_path", "collector_config.yaml"), l), nil
	})
}

// LocalFile reads settings and plugins from a second YAML file, parsed with
// the same environment interpolation as the main config.
type LocalFile struct {
	path   string
	logger *zap.Logger
}

// NewLocalFile creates a local file backend.
func NewLocalFile(path string, l *zap.Logger) *LocalFile {
	return &LocalFile{path: path, logger: logger.Component(l, "secrets.local_file")}
}

func (b *LocalFile) read() (map[string]interface{}, error) {
	b.logger.Debug("reading secrets file", zap.String("path", b.path))

	f, err := os.Open(b.path) //nolint:gosec // G304: path comes from the operator's config
	if err != nil {
		if os.IsNotExist(err) {
			b.logger.Info("secrets file not found", zap.String("path", b.path))
			return map[string]interface{}{}, nil
		}
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to open secrets file")
	}
	defer f.Close()

	return envyaml.Parse(f)
}

// GetCollectorSettings returns every key of the file except "plugins".
func (b *LocalFile) GetCollectorSettings(_ context.Context) (map[string]interface{}, error) {
	conf, err := b.read()
	if err != nil {
		return nil, err
	}
	delete(conf, "plugins")
	return conf, nil
}

// GetPlugins returns the file's "plugins" list.
func (b *LocalFile) GetPlugins(_ context.Context) ([]plugin.Raw, error) {
	conf, err := b.read()
	if err != nil {
		return nil, err
	}
	return plugin.RawList(conf["plugins"])
}
