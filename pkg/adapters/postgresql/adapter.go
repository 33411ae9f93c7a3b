// Package postgresql collects tables and views of a PostgreSQL database,
// one schema at a time.
package postgresql

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

// Types maps PostgreSQL data types to catalog field types.
var Types = sqlmeta.TypeMap{
	"smallint":                    models.FieldTypeInteger,
	"integer":                     models.FieldTypeInteger,
	"bigint":                      models.FieldTypeInteger,
	"serial":                      models.FieldTypeInteger,
	"bigserial":                   models.FieldTypeInteger,
	"real":                        models.FieldTypeNumber,
	"double precision":            models.FieldTypeNumber,
	"numeric":                     models.FieldTypeNumber,
	"decimal":                     models.FieldTypeNumber,
	"money":                       models.FieldTypeNumber,
	"boolean":                     models.FieldTypeBoolean,
	"character":                   models.FieldTypeChar,
	"char":                        models.FieldTypeChar,
	"character varying":           models.FieldTypeString,
	"varchar":                     models.FieldTypeString,
	"text":                        models.FieldTypeString,
	"uuid":                        models.FieldTypeString,
	"bytea":                       models.FieldTypeBinary,
	"date":                        models.FieldTypeDateTime,
	"timestamp":                   models.FieldTypeDateTime,
	"timestamp with time zone":    models.FieldTypeDateTime,
	"timestamp without time zone": models.FieldTypeDateTime,
	"time":                        models.FieldTypeTime,
	"time with time zone":         models.FieldTypeTime,
	"time without time zone":      models.FieldTypeTime,
	"json":                        models.FieldTypeMap,
	"jsonb":                       models.FieldTypeMap,
	"array":                       models.FieldTypeList,
	"user-defined":                models.FieldTypeStruct,
}

// Adapter is a SyncAdapter yielding one list per schema, then the database.
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
		return nil, errors.Newf(errors.ErrorTypeConfig, "postgresql adapter got %T plugin", p)
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
			if err := repo.Close(context.WithoutCancel(ctx)); err != nil {
				a.logger.Warn("closing connection", zap.Error(err))
			}
		}()

		names, err := repo.Schemas(ctx)
		if err != nil {
			yield(nil, err)
			return
		}

		schemas := VisibleSchemas(names, a.config.SchemasFilter)
		schemaEntities := make([]models.DataEntity, 0, len(schemas))
		for _, schema := range schemas {
			tables, err := repo.Tables(ctx, schema)
			if err != nil {
				yield(nil, errors.Wrap(err, errors.ErrorTypeData, "schema "+schema))
				return
			}

			items := make([]models.DataEntity, 0, len(tables)+1)
			for _, t := range tables {
				items = append(items, a.mapper.Table(t))
			}
			schemaEntity := a.mapper.Schema(schema, items)
			schemaEntities = append(schemaEntities, schemaEntity)
			items = append(items, schemaEntity)

			a.logger.Debug("schema collected", zap.String("schema", schema), zap.Int("tables", len(tables)))
			if !yield(&models.DataEntityList{DataSourceOddrn: a.GetDataSourceOddrn(), Items: items}, nil) {
				return
			}
		}

		yield(&models.DataEntityList{
			DataSourceOddrn: a.GetDataSourceOddrn(),
			Items:           []models.DataEntity{a.mapper.DatabaseEntity(schemaEntities)},
		}, nil)
	}
}
