// Package mongodb collects the collections of a MongoDB database. Field
// lists are inferred from one sample document per collection.
package mongodb

import (
	"context"

	"go.uber.org/zap"

	"github.com/ajitpratap0/oddcollector/pkg/adapter"
	"github.com/ajitpratap0/oddcollector/pkg/errors"
	"github.com/ajitpratap0/oddcollector/pkg/logger"
	"github.com/ajitpratap0/oddcollector/pkg/models"
	"github.com/ajitpratap0/oddcollector/pkg/oddrn"
	"github.com/ajitpratap0/oddcollector/pkg/plugin"
)

// Adapter is an AsyncAdapter resolving to a single list.
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
		return nil, errors.Newf(errors.ErrorTypeConfig, "mongodb adapter got %T plugin", p)
	}
	return NewWithOpener(cfg, Open, l), nil
}

// NewWithOpener builds an adapter reading through open.
func NewWithOpener(cfg *Plugin, open Opener, l *zap.Logger) *Adapter {
	return &Adapter{
		Base:   adapter.NewBase(cfg),
		config: cfg,
		open:   open,
		mapper: Mapper{Generator: oddrn.New(Type, cfg.Host), Database: cfg.Database},
		logger: logger.OrNop(l),
	}
}

func (a *Adapter) GetDataSourceOddrn() string {
	return a.mapper.DatabaseOddrn()
}

func (a *Adapter) GetDataEntityList(ctx context.Context) *adapter.Future[[]*models.DataEntityList] {
	return adapter.Go(ctx, a.collect)
}

func (a *Adapter) collect(ctx context.Context) ([]*models.DataEntityList, error) {
	src, err := a.open(ctx, a.config)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := src.Close(context.WithoutCancel(ctx)); err != nil {
			a.logger.Warn("closing connection", zap.Error(err))
		}
	}()

	collections, err := src.Collections(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]models.DataEntity, 0, len(collections)+1)
	for _, c := range collections {
		if !a.config.CollectionsFilter.IsAllowed(c.Name) {
			continue
		}
		items = append(items, a.mapper.Collection(c))
	}
	items = append(items, a.mapper.DatabaseEntity(items))

	a.logger.Debug("database collected", zap.Int("collections", len(items)-1))
	return []*models.DataEntityList{{DataSourceOddrn: a.GetDataSourceOddrn(), Items: items}}, nil
}
