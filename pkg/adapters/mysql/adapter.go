// Package mysql collects the tables and views of a MySQL database.
package mysql

import (
	"context"
	"iter"

	"go.uber.org/zap"

	"github.com/ajitpratap0/oddcollector/pkg/adapter"
	"github.com/ajitpratap0/oddcollector/pkg/adapters/sqlmeta"
	"github.com/ajitpratap0/oddcollector/pkg/errors"
	"github.com/ajitpratap0/oddcollector/pkg/logger"
	"github.com/ajitpratap0/oddcollector/pkg/models"
	"github.com/ajitpratap0/oddcollector/pkg/oddrn"
	"github.com/ajitpratap0/oddcollector/pkg/plugin"
)

// Types maps MySQL column types to catalog field types.
var Types = sqlmeta.TypeMap{
	"tinyint":    models.FieldTypeInteger,
	"smallint":   models.FieldTypeInteger,
	"mediumint":  models.FieldTypeInteger,
	"int":        models.FieldTypeInteger,
	"integer":    models.FieldTypeInteger,
	"bigint":     models.FieldTypeInteger,
	"float":      models.FieldTypeNumber,
	"double":     models.FieldTypeNumber,
	"decimal":    models.FieldTypeNumber,
	"bit":        models.FieldTypeBoolean,
	"bool":       models.FieldTypeBoolean,
	"boolean":    models.FieldTypeBoolean,
	"char":       models.FieldTypeChar,
	"varchar":    models.FieldTypeString,
	"tinytext":   models.FieldTypeString,
	"text":       models.FieldTypeString,
	"mediumtext": models.FieldTypeString,
	"longtext":   models.FieldTypeString,
	"enum":       models.FieldTypeString,
	"set":        models.FieldTypeList,
	"binary":     models.FieldTypeBinary,
	"varbinary":  models.FieldTypeBinary,
	"blob":       models.FieldTypeBinary,
	"longblob":   models.FieldTypeBinary,
	"date":       models.FieldTypeDateTime,
	"datetime":   models.FieldTypeDateTime,
	"timestamp":  models.FieldTypeDateTime,
	"year":       models.FieldTypeInteger,
	"time":       models.FieldTypeTime,
	"json":       models.FieldTypeMap,
}

// Adapter is a SyncAdapter yielding every table, then the database.
type Adapter struct {
	adapter.Base
	config *Plugin
	open   Opener
	mapper sqlmeta.Mapper
	logger *zap.Logger
}

// New is the adapter constructor registered for Type.
func New(p plugin.Plugin, l *zap.Logger) (adapter.Adapter, error) {
	cfg, ok := p.(*Plugin)
	if !ok {
		return nil, errors.Newf(errors.ErrorTypeConfig, "mysql adapter got %T plugin", p)
	}
	return NewWithOpener(cfg, Open, l), nil
}

// NewWithOpener builds an adapter reading through open.
func NewWithOpener(cfg *Plugin, open Opener, l *zap.Logger) *Adapter {
	return &Adapter{
		Base:   adapter.NewBase(cfg),
		config: cfg,
		open:   open,
		mapper: sqlmeta.Mapper{
			Source:    Type,
			Generator: oddrn.New(Type, cfg.Host),
			Database:  cfg.Database,
			Types:     Types,
		},
		logger: logger.OrNop(l),
	}
}

func (a *Adapter) GetDataSourceOddrn() string {
	return a.mapper.DatabaseOddrn()
}

func (a *Adapter) GetDataEntityList(ctx context.Context) iter.Seq2[*models.DataEntityList, error] {
	return func(yield func(*models.DataEntityList, error) bool) {
		repo, err := a.open(ctx, a.config)
		if err != nil {
			yield(nil, err)
			return
		}
		defer func() {
			if err := repo.Close(); err != nil {
				a.logger.Warn("closing connection", zap.Error(err))
			}
		}()

		tables, err := repo.Tables(ctx)
		if err != nil {
			yield(nil, err)
			return
		}

		items := make([]models.DataEntity, 0, len(tables)+1)
		for _, t := range tables {
			if !a.config.TablesFilter.IsAllowed(t.Name) {
				continue
			}
			items = append(items, a.mapper.Table(t))
		}
		items = append(items, a.mapper.DatabaseEntity(items))

		a.logger.Debug("database collected", zap.Int("tables", len(items)-1))
		yield(&models.DataEntityList{DataSourceOddrn: a.GetDataSourceOddrn(), Items: items}, nil)
	}
}
