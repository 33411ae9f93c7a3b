// Package job turns one adapter run into ingestion requests.
//
// A job is created per run and discarded afterwards. SyncJob sends batches
// one after the other in the order the adapter produced them; AsyncJob
// awaits the adapter once and sends all batches concurrently. Either way a
// failure is logged and recorded on the job, never returned to the caller,
// so one adapter cannot take down its siblings.
package job

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ajitpratap0/oddcollector/pkg/adapter"
	"github.com/ajitpratap0/oddcollector/pkg/errors"
	"github.com/ajitpratap0/oddcollector/pkg/logger"
	"github.com/ajitpratap0/oddcollector/pkg/models"
	"github.com/ajitpratap0/oddcollector/pkg/observability"
)

// Ingester sends one batch of entities to the platform.
type Ingester interface {
	IngestData(ctx context.Context, list *models.DataEntityList) error
}

// State is the lifecycle position of a job.
type State int32

const (
	StateCreated State = iota
	StateRunning
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Job is one run of one adapter.
type Job interface {
	// Start runs the job to completion. Failures are logged and kept in Err.
	Start(ctx context.Context)
	State() State
	Err() error
	Adapter() adapter.Adapter
}

// Option customises a job.
type Option func(*base)

// WithLogger sets the job logger.
func WithLogger(l *zap.Logger) Option {
	return func(b *base) { b.logger = logger.Component(l, "job") }
}

// WithMetrics sets the metrics the job records into.
func WithMetrics(m *observability.Metrics) Option {
	return func(b *base) { b.metrics = m }
}

// WithTracer sets the tracer of the job span.
func WithTracer(t trace.Tracer) Option {
	return func(b *base) { b.tracer = t }
}

var runCounter atomic.Uint64

type base struct {
	api       Ingester
	adapter   adapter.Adapter
	chunkSize int
	logger    *zap.Logger
	metrics   *observability.Metrics
	tracer    trace.Tracer

	state atomic.Int32
	mu    sync.Mutex
	err   error
}

func (b *base) init(api Ingester, a adapter.Adapter, chunkSize int, opts []Option) {
	b.api = api
	b.adapter = a
	b.chunkSize = chunkSize
	b.logger = logger.Component(nil, "job")
	b.tracer = observability.Tracer()
	for _, opt := range opts {
		opt(b)
	}
}

func (b *base) State() State             { return State(b.state.Load()) }
func (b *base) Adapter() adapter.Adapter { return b.adapter }

func (b *base) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}

func (b *base) name() string {
	return adapter.Name(b.adapter)
}

// execute wraps fn in the logged, timed and traced scope every run shares.
// Errors and panics from fn end the job as failed and stop there.
func (b *base) execute(ctx context.Context, kind string, fn func(ctx context.Context, l *zap.Logger) error) {
	name := b.name()
	ctx = logger.WithAdapter(ctx, name)
	ctx = logger.WithJobID(ctx, fmt.Sprintf("%s-%d", name, runCounter.Add(1)))
	l := logger.WithContext(ctx, b.logger)

	ctx, span := b.tracer.Start(ctx, "job.start", trace.WithAttributes(
		attribute.String("adapter.name", name),
		attribute.String("adapter.data_source_oddrn", b.adapter.GetDataSourceOddrn()),
		attribute.String("job.kind", kind),
		attribute.Int("job.chunk_size", b.chunkSize),
	))
	defer span.End()

	b.state.Store(int32(StateRunning))
	b.metrics.JobStarted(name)
	start := time.Now()
	l.Info("collecting metadata started")

	err := b.safely(ctx, l, fn)
	elapsed := time.Since(start)

	if err != nil {
		b.mu.Lock()
		b.err = err
		b.mu.Unlock()
		b.state.Store(int32(StateFailed))
		b.metrics.JobFinished(name, observability.StatusFailure, elapsed)

		span.RecordError(err)
		span.SetStatus(codes.Error, "job failed")
		l.Error("collecting metadata failed", zap.Error(err), zap.Duration("elapsed", elapsed))
		l.Debug("failure detail", detailFields(err)...)
		return
	}

	b.state.Store(int32(StateSucceeded))
	b.metrics.JobFinished(name, observability.StatusSuccess, elapsed)
	span.SetStatus(codes.Ok, "")
	l.Info("metadata collected", zap.Duration("elapsed", elapsed))
}

func (b *base) safely(ctx context.Context, l *zap.Logger, fn func(ctx context.Context, l *zap.Logger) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Newf(errors.ErrorTypeInternal, "adapter panicked: %v", r).
				WithDetail("stack", string(debug.Stack()))
		}
	}()
	return fn(ctx, l)
}

func (b *base) send(ctx context.Context, batch *models.DataEntityList) error {
	err := b.api.IngestData(ctx, batch)
	status := observability.StatusSuccess
	if err != nil {
		status = observability.StatusFailure
	}
	b.metrics.BatchIngested(b.name(), status, batch.Len())
	return err
}

func detailFields(err error) []zap.Field {
	fields := []zap.Field{zap.String("error_detail", fmt.Sprintf("%+v", err))}

	var typed *errors.Error
	if errors.As(err, &typed) {
		fields = append(fields, zap.Object("error_info", typed))
	}
	var ingestion *errors.IngestionDataError
	if errors.As(err, &ingestion) && ingestion.DataEntities != nil {
		fields = append(fields,
			zap.String("data_source_oddrn", ingestion.DataEntities.DataSourceOddrn),
			zap.Int("items", ingestion.DataEntities.Len()))
	}
	var mapping *errors.MappingDataError
	if errors.As(err, &mapping) {
		fields = append(fields, zap.String("entity", mapping.Entity))
	}
	return fields
}
