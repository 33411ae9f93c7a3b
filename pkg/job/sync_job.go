package job

import (
	"context"

	"go.uber.org/zap"

	"github.com/ajitpratap0/oddcollector/pkg/adapter"
)

// SyncJob drives a SyncAdapter: batches are sent sequentially, in the order
// the adapter yields them.
type SyncJob struct {
	base
	adapter adapter.SyncAdapter
}

// NewSyncJob creates a job for a blocking adapter.
func NewSyncJob(api Ingester, a adapter.SyncAdapter, chunkSize int, opts ...Option) *SyncJob {
	j := &SyncJob{adapter: a}
	j.init(api, a, chunkSize, opts)
	return j
}

// Start runs the job.
func (j *SyncJob) Start(ctx context.Context) {
	j.execute(ctx, "sync", func(ctx context.Context, l *zap.Logger) error {
		lists := j.adapter.GetDataEntityList(ctx)
		for batch, err := range Split(lists, j.adapter.GetDataSourceOddrn(), j.chunkSize, l) {
			if err != nil {
				return err
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := j.send(ctx, batch); err != nil {
				return err
			}
		}
		return nil
	})
}
