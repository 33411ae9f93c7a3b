package job

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ajitpratap0/oddcollector/pkg/adapter"
)

// AsyncJob drives an AsyncAdapter: the result is awaited once and every
// batch is sent concurrently. Batches have no relative order.
type AsyncJob struct {
	base
	adapter adapter.AsyncAdapter
}

// NewAsyncJob creates a job for an asynchronous adapter.
func NewAsyncJob(api Ingester, a adapter.AsyncAdapter, chunkSize int, opts ...Option) *AsyncJob {
	j := &AsyncJob{adapter: a}
	j.init(api, a, chunkSize, opts)
	return j
}

// Start runs the job.
func (j *AsyncJob) Start(ctx context.Context) {
	j.execute(ctx, "async", func(ctx context.Context, l *zap.Logger) error {
		lists, err := j.adapter.GetDataEntityList(ctx).Await(ctx)
		if err != nil {
			return err
		}
		batches, err := Batches(adapter.Lists(lists...), j.adapter.GetDataSourceOddrn(), j.chunkSize, l)
		if err != nil {
			return err
		}

		// Siblings keep running when one batch fails; the first error wins.
		var g errgroup.Group
		for _, batch := range batches {
			g.Go(func() error {
				return j.send(ctx, batch)
			})
		}
		return g.Wait()
	})
}
