// Package s3 collects the objects under a bucket prefix as file entities.
package s3

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
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
		return nil, errors.Newf(errors.ErrorTypeConfig, "s3 adapter got %T plugin", p)
	}
	return NewWithOpener(cfg, Open, l), nil
}

// NewWithOpener builds an adapter listing through open.
func NewWithOpener(cfg *Plugin, open Opener, l *zap.Logger) *Adapter {
	return &Adapter{
		Base:   adapter.NewBase(cfg),
		config: cfg,
		open:   open,
		mapper: Mapper{Generator: oddrn.NewCloud(Type, "cloud", "aws"), Bucket: cfg.DatasetConfig.Bucket},
		logger: logger.OrNop(l),
	}
}

func (a *Adapter) GetDataSourceOddrn() string {
	return a.mapper.BucketOddrn()
}

func (a *Adapter) GetDataEntityList(ctx context.Context) *adapter.Future[[]*models.DataEntityList] {
	return adapter.Go(ctx, a.collect)
}

func (a *Adapter) collect(ctx context.Context) ([]*models.DataEntityList, error) {
	client, err := a.open(ctx, a.config)
	if err != nil {
		return nil, err
	}

	input := &awss3.ListObjectsV2Input{Bucket: aws.String(a.config.DatasetConfig.Bucket)}
	if a.config.DatasetConfig.Prefix != "" {
		input.Prefix = aws.String(a.config.DatasetConfig.Prefix)
	}

	var files []models.DataEntity
	pages := 0
	paginator := awss3.NewListObjectsV2Paginator(client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to list objects of "+a.config.DatasetConfig.Bucket)
		}
		pages++
		for _, obj := range page.Contents {
			name := Filename(aws.ToString(obj.Key))
			if name == "" || !a.config.FilenameFilter.IsAllowed(name) {
				continue
			}
			files = append(files, a.mapper.Object(obj))
		}
	}

	a.logger.Debug("bucket collected",
		zap.String("bucket", a.config.DatasetConfig.Bucket),
		zap.Int("pages", pages),
		zap.Int("files", len(files)))

	items := append(files, a.mapper.BucketEntity(files))
	return []*models.DataEntityList{{DataSourceOddrn: a.GetDataSourceOddrn(), Items: items}}, nil
}
