package api

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ajitpratap0/oddcollector/pkg/errors"
	"github.com/ajitpratap0/oddcollector/pkg/logger"
	"github.com/ajitpratap0/oddcollector/pkg/models"
	"github.com/ajitpratap0/oddcollector/pkg/observability"
)

// Platform endpoints, relative to platform_host_url.
const (
	DataSourcesPath = "/ingestion/datasources"
	EntitiesPath    = "/ingestion/entities"
)

// PlatformAPI registers data sources and ingests data entities.
type PlatformAPI struct {
	client *HTTPClient
	host   string
	token  string
	logger *zap.Logger
	tracer trace.Tracer
}

// NewPlatformAPI creates the platform API for host, authenticating with token.
func NewPlatformAPI(client *HTTPClient, host, token string, l *zap.Logger) *PlatformAPI {
	return &PlatformAPI{
		client: client,
		host:   strings.TrimRight(host, "/"),
		token:  token,
		logger: logger.Component(l, "platform_api"),
		tracer: observability.Tracer(),
	}
}

func (a *PlatformAPI) headers() map[string]string {
	return map[string]string{
		"Authorization": "Bearer " + a.token,
		"Content-Type":  "application/json",
	}
}

// RegisterDataSources submits all data sources in one request. Any failure
// is a *errors.RegisterDataSourceError carrying the list.
func (a *PlatformAPI) RegisterDataSources(ctx context.Context, list *models.DataSourceList) error {
	ctx, span := a.tracer.Start(ctx, "platform.register_data_sources",
		trace.WithAttributes(attribute.Int("data_sources", len(list.Items))))
	defer span.End()

	resp, err := a.client.PostJSON(ctx, a.host+DataSourcesPath, list, a.headers())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		return errors.NewRegisterDataSourceError(nil, err, list)
	}
	if !resp.OK() {
		span.SetStatus(codes.Error, resp.Status)
		return errors.NewRegisterDataSourceError(toErrorResponse(resp), nil, list)
	}

	a.logger.Info("data sources registered", zap.Int("count", len(list.Items)))
	return nil
}

// IngestData submits one batch of data entities. Any failure is a
// *errors.IngestionDataError carrying the batch.
func (a *PlatformAPI) IngestData(ctx context.Context, list *models.DataEntityList) error {
	ctx, span := a.tracer.Start(ctx, "platform.ingest_data",
		trace.WithAttributes(
			attribute.String("data_source_oddrn", list.DataSourceOddrn),
			attribute.Int("items", list.Len())))
	defer span.End()

	start := time.Now()
	resp, err := a.client.PostJSON(ctx, a.host+EntitiesPath, list, a.headers())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		return errors.NewIngestionDataError(nil, err, list)
	}
	if !resp.OK() {
		span.SetStatus(codes.Error, resp.Status)
		return errors.NewIngestionDataError(toErrorResponse(resp), nil, list)
	}

	a.logger.Debug("data ingested",
		zap.String("data_source_oddrn", list.DataSourceOddrn),
		zap.Int("items", list.Len()),
		zap.String("latency", fmt.Sprintf("%.3fs", time.Since(start).Seconds())))
	return nil
}

func toErrorResponse(resp *Response) *errors.Response {
	return &errors.Response{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       string(resp.Body),
	}
}
