// Package kafka collects the topics of a Kafka cluster.
package kafka

import (
	"context"
	"iter"

	"go.uber.org/zap"

	"github.com/ajitpratap0/oddcollector/pkg/adapter"
	"github.com/ajitpratap0/oddcollector/pkg/errors"
	"github.com/ajitpratap0/oddcollector/pkg/logger"
	"github.com/ajitpratap0/oddcollector/pkg/models"
	"github.com/ajitpratap0/oddcollector/pkg/oddrn"
	"github.com/ajitpratap0/oddcollector/pkg/plugin"
)

// Adapter is a SyncAdapter yielding every allowed topic in one list.
type Adapter struct {
	adapter.Base
	config *Plugin
	open   Opener
	mapper Mapper
	logger *zap.Logger
}

// New is the adapter constructor registered for Type.
func New(p plugin.Plugin, l *zap.Logger) (adapter.Adapter, error) {
	cfg, ok := p.(*Plugin)
	if !ok {
		return nil, errors.Newf(errors.ErrorTypeConfig, "kafka adapter got %T plugin", p)
	}
	return NewWithOpener(cfg, Open, l), nil
}

// NewWithOpener builds an adapter reading through open.
func NewWithOpener(cfg *Plugin, open Opener, l *zap.Logger) *Adapter {
	return &Adapter{
		Base:   adapter.NewBase(cfg),
		config: cfg,
		open:   open,
		mapper: Mapper{Generator: oddrn.New(Type, cfg.host())},
		logger: logger.OrNop(l),
	}
}

func (a *Adapter) GetDataSourceOddrn() string {
	return a.mapper.ClusterOddrn()
}

func (a *Adapter) GetDataEntityList(context.Context) iter.Seq2[*models.DataEntityList, error] {
	return func(yield func(*models.DataEntityList, error) bool) {
		admin, err := a.open(a.config)
		if err != nil {
			yield(nil, err)
			return
		}
		defer func() {
			if err := admin.Close(); err != nil {
				a.logger.Warn("closing cluster admin", zap.Error(err))
			}
		}()

		topics, err := admin.ListTopics()
		if err != nil {
			yield(nil, errors.Wrap(err, errors.ErrorTypeData, "failed to list topics"))
			return
		}

		items := make([]models.DataEntity, 0, len(topics))
		for _, name := range SortedTopics(topics) {
			if IsInternal(name) && !a.config.IncludeInternal {
				continue
			}
			if !a.config.TopicsFilter.IsAllowed(name) {
				continue
			}
			items = append(items, a.mapper.Topic(name, topics[name]))
		}

		a.logger.Debug("topics collected", zap.Int("topics", len(items)), zap.Int("listed", len(topics)))
		yield(&models.DataEntityList{DataSourceOddrn: a.GetDataSourceOddrn(), Items: items}, nil)
	}
}
