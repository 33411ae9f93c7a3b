// Package collector ties the runtime together: it loads the adapters of a
// configuration, registers their data sources with the platform and then
// runs one ingestion job per adapter, either once or on a schedule.
//
// # Lifecycle
//
//	c, err := collector.New(cfg, collector.WithLogger(log))
//	if err != nil {
//	    return err
//	}
//	return c.Run(ctx)
//
// Run blocks until every job finished (run-once mode) or until a shutdown
// signal arrives (polling mode). A failed registration, a panic or an
// interrupt all end in the same shutdown: outstanding work is cancelled, the
// scheduler is stopped and running jobs are awaited.
package collector

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ajitpratap0/oddcollector/pkg/adapter"
	"github.com/ajitpratap0/oddcollector/pkg/api"
	"github.com/ajitpratap0/oddcollector/pkg/config"
	"github.com/ajitpratap0/oddcollector/pkg/errors"
	"github.com/ajitpratap0/oddcollector/pkg/job"
	"github.com/ajitpratap0/oddcollector/pkg/logger"
	"github.com/ajitpratap0/oddcollector/pkg/models"
	"github.com/ajitpratap0/oddcollector/pkg/observability"
	"github.com/ajitpratap0/oddcollector/pkg/scheduler"
)

// UserAgent is sent with every platform request.
const UserAgent = "odd-collector"

// ShutdownSignals end a running collector.
var ShutdownSignals = []os.Signal{syscall.SIGHUP, syscall.SIGTERM, syscall.SIGINT}

type options struct {
	logger    *zap.Logger
	clock     clock.Clock
	metrics   *observability.Metrics
	tracer    trace.Tracer
	registry  *adapter.Registry
	namespace string
	client    *api.HTTPClient
	signals   []os.Signal
}

// Option customises a Collector.
type Option func(*options)

// WithLogger sets the logger handed to every component.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithClock sets the scheduler time source.
func WithClock(c clock.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithRegisterer records collector metrics in reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.metrics = observability.NewMetrics(reg) }
}

// WithMetrics records collector metrics in m.
func WithMetrics(m *observability.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithTracer sets the tracer jobs open their spans with.
func WithTracer(t trace.Tracer) Option {
	return func(o *options) { o.tracer = t }
}

// WithAdapterRegistry loads adapters from r under namespace instead of the
// default registry.
func WithAdapterRegistry(r *adapter.Registry, namespace string) Option {
	return func(o *options) {
		o.registry = r
		o.namespace = namespace
	}
}

// WithHTTPClient replaces the platform HTTP client.
func WithHTTPClient(c *api.HTTPClient) Option {
	return func(o *options) { o.client = c }
}

// WithSignals replaces ShutdownSignals. No signal is handled when called
// without arguments.
func WithSignals(sig ...os.Signal) Option {
	return func(o *options) { o.signals = sig }
}

// Collector owns the adapters of one configuration.
type Collector struct {
	cfg      *config.CollectorConfig
	logger   *zap.Logger
	adapters []adapter.Adapter
	client   *api.HTTPClient
	platform *api.PlatformAPI
	sched    *scheduler.Scheduler
	jobOpts  []job.Option
	signals  []os.Signal
}

// New loads the adapters of cfg and prepares the platform client.
func New(cfg *config.CollectorConfig, opts ...Option) (*Collector, error) {
	if cfg == nil {
		return nil, errors.New(errors.ErrorTypeConfig, "collector config is required")
	}

	o := &options{
		clock:     clock.New(),
		registry:  adapter.Default(),
		namespace: adapter.DefaultNamespace,
		signals:   ShutdownSignals,
	}
	for _, opt := range opts {
		opt(o)
	}
	l := logger.Component(o.logger, "collector")

	adapters, err := o.registry.Load(o.namespace, cfg.Plugins, o.logger)
	if err != nil {
		return nil, err
	}

	client := o.client
	if client == nil {
		client = api.NewHTTPClient(&api.HTTPConfig{
			Timeout:            cfg.ConnectionTimeout(),
			InsecureSkipVerify: !cfg.VerifySSL,
			DisableKeepAlives:  true,
			UserAgent:          UserAgent,
		}, o.logger, o.metrics)
	}

	jobOpts := []job.Option{job.WithLogger(o.logger), job.WithMetrics(o.metrics)}
	if o.tracer != nil {
		jobOpts = append(jobOpts, job.WithTracer(o.tracer))
	}

	return &Collector{
		cfg:      cfg,
		logger:   l,
		adapters: adapters,
		client:   client,
		platform: api.NewPlatformAPI(client, cfg.PlatformHostURL, cfg.Token, o.logger),
		sched: scheduler.New(
			scheduler.WithClock(o.clock),
			scheduler.WithLogger(o.logger),
			scheduler.WithMetrics(o.metrics),
		),
		jobOpts: jobOpts,
		signals: o.signals,
	}, nil
}

// Adapters returns the loaded adapters in plugin order.
func (c *Collector) Adapters() []adapter.Adapter {
	return c.adapters
}

// DataSources describes every adapter as a data source.
func (c *Collector) DataSources() *models.DataSourceList {
	list := &models.DataSourceList{Items: make([]models.DataSource, 0, len(c.adapters))}
	for _, a := range c.adapters {
		ds := models.DataSource{Oddrn: a.GetDataSourceOddrn()}
		if p := a.Plugin(); p != nil {
			ds.Name = p.GetName()
			ds.Description = p.GetDescription()
		}
		list.Items = append(list.Items, ds)
	}
	return list
}

// RegisterDataSources announces every adapter to the platform in one call.
func (c *Collector) RegisterDataSources(ctx context.Context) error {
	list := c.DataSources()
	c.logger.Info("registering data sources", zap.Int("count", len(list.Items)))
	return c.platform.RegisterDataSources(ctx, list)
}

func (c *Collector) newJob(a adapter.Adapter) (job.Job, error) {
	return job.CreateJob(c.platform, a, c.cfg.ChunkSize, c.jobOpts...)
}

// OneTimeRun runs every job once, concurrently, and waits for all of them.
// Job failures are logged by the jobs and do not fail the run.
func (c *Collector) OneTimeRun(ctx context.Context) error {
	jobs := make([]job.Job, 0, len(c.adapters))
	for _, a := range c.adapters {
		j, err := c.newJob(a)
		if err != nil {
			return err
		}
		jobs = append(jobs, j)
	}

	var wg sync.WaitGroup
	for _, j := range jobs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			j.Start(ctx)
		}()
	}
	wg.Wait()

	failed := 0
	for _, j := range jobs {
		if j.State() == job.StateFailed {
			failed++
		}
	}
	c.logger.Info("one time run finished", zap.Int("jobs", len(jobs)), zap.Int("failed", failed))
	return nil
}

// StartPolling schedules one entry per adapter, keyed by plugin name, and
// returns. Each run creates a fresh job.
func (c *Collector) StartPolling(ctx context.Context) error {
	interval := c.cfg.PollingInterval()
	for _, a := range c.adapters {
		if _, err := c.newJob(a); err != nil {
			return err
		}
		err := c.sched.Add(scheduler.Entry{
			Name:         adapter.Name(a),
			Interval:     interval,
			MisfireGrace: c.cfg.MisfireGrace(),
			MaxInstances: c.cfg.MaxInstances,
			Run:          c.runner(a),
		})
		if err != nil {
			return err
		}
	}

	c.logger.Info("polling started",
		zap.Duration("interval", interval),
		zap.Duration("misfire_grace", c.cfg.MisfireGrace()),
		zap.Int("max_instances", c.cfg.MaxInstances))
	return c.sched.Start(ctx)
}

func (c *Collector) runner(a adapter.Adapter) func(ctx context.Context) {
	return func(ctx context.Context) {
		j, err := c.newJob(a)
		if err != nil {
			c.logger.Error("cannot create job", zap.String("adapter", adapter.Name(a)), zap.Error(err))
			return
		}
		j.Start(ctx)
	}
}

// Run registers the data sources and runs the jobs until done or
// interrupted. It returns the error that ended the collector, nil on a
// signal or a completed one-time run.
func (c *Collector) Run(ctx context.Context) (err error) {
	if len(c.signals) > 0 {
		var stop context.CancelFunc
		ctx, stop = signal.NotifyContext(ctx, c.signals...)
		defer stop()
	}
	ctx, cancel := context.WithCancel(ctx)

	defer func() {
		if r := recover(); r != nil {
			err = errors.Newf(errors.ErrorTypeInternal, "collector panicked: %v", r)
		}
		if err != nil {
			c.logger.Error("collector failed, shutting down", zap.Error(err))
			var payload errors.PayloadError
			if errors.As(err, &payload) && payload.Request() != "" {
				c.logger.Debug("rejected request", zap.String("request", payload.Request()))
			}
		}
		cancel()
		c.shutdown()
		c.logger.Info("Shutdown complete")
	}()

	if err := c.RegisterDataSources(ctx); err != nil {
		return err
	}

	if !c.cfg.Polling() {
		return c.OneTimeRun(ctx)
	}
	if err := c.StartPolling(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	c.logger.Info("shutdown requested", zap.String("cause", fmt.Sprint(context.Cause(ctx))))
	return nil
}

func (c *Collector) shutdown() {
	c.sched.Stop()
	if err := c.client.Close(); err != nil {
		c.logger.Warn("closing platform client", zap.Error(err))
	}
}
