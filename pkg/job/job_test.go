package job

import (
	"context"
	"fmt"
	"iter"
	"sort"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ajitpratap0/oddcollector/pkg/adapter"
	"github.com/ajitpratap0/oddcollector/pkg/errors"
	"github.com/ajitpratap0/oddcollector/pkg/models"
	"github.com/ajitpratap0/oddcollector/pkg/observability"
	"github.com/ajitpratap0/oddcollector/pkg/plugin"
)

type recordingIngester struct {
	mu      sync.Mutex
	batches []*models.DataEntityList
	failOn  int // 1-based call number to fail, 0 never
	calls   int
}

func (r *recordingIngester) IngestData(_ context.Context, list *models.DataEntityList) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.failOn == r.calls {
		return errors.NewIngestionDataError(&errors.Response{StatusCode: 500, Status: "500 Internal Server Error"}, nil, list)
	}
	r.batches = append(r.batches, list)
	return nil
}

func (r *recordingIngester) sizes() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]int, 0, len(r.batches))
	for _, b := range r.batches {
		out = append(out, b.Len())
	}
	return out
}

func entities(prefix string, n int) []models.DataEntity {
	out := make([]models.DataEntity, n)
	for i := range out {
		out[i] = models.DataEntity{Oddrn: fmt.Sprintf("//%s/%d", prefix, i), Name: fmt.Sprintf("%s_%d", prefix, i)}
	}
	return out
}

type syncAdapter struct {
	adapter.Base
	seq iter.Seq2[*models.DataEntityList, error]
}

func newSync(name string, seq iter.Seq2[*models.DataEntityList, error]) *syncAdapter {
	return &syncAdapter{
		Base: adapter.NewBase(&plugin.Generic{Base: plugin.Base{Type: "stub", Name: name}}),
		seq:  seq,
	}
}

func (a *syncAdapter) GetDataSourceOddrn() string { return "//sync/" + adapter.Name(a) }

func (a *syncAdapter) GetDataEntityList(context.Context) iter.Seq2[*models.DataEntityList, error] {
	return a.seq
}

type asyncAdapter struct {
	adapter.Base
	lists []*models.DataEntityList
	err   error
}

func newAsync(name string, lists ...*models.DataEntityList) *asyncAdapter {
	return &asyncAdapter{
		Base:  adapter.NewBase(&plugin.Generic{Base: plugin.Base{Type: "stub", Name: name}}),
		lists: lists,
	}
}

func (a *asyncAdapter) GetDataSourceOddrn() string { return "//async/" + adapter.Name(a) }

func (a *asyncAdapter) GetDataEntityList(ctx context.Context) *adapter.Future[[]*models.DataEntityList] {
	return adapter.Go(ctx, func(context.Context) ([]*models.DataEntityList, error) {
		return a.lists, a.err
	})
}

type streamAdapter struct {
	adapter.Base
}

func (a *streamAdapter) GetDataSourceOddrn() string { return "//stream" }

func (a *streamAdapter) GetDataEntityList(context.Context) <-chan *models.DataEntityList {
	ch := make(chan *models.DataEntityList)
	close(ch)
	return ch
}

func TestSplit(t *testing.T) {
	for _, tc := range []struct{ n, c int }{{0, 2}, {1, 2}, {3, 2}, {5, 2}, {10, 3}, {250, 250}, {251, 250}, {7, 1}} {
		t.Run(fmt.Sprintf("n=%d,c=%d", tc.n, tc.c), func(t *testing.T) {
			items := entities("t", tc.n)
			batches, err := Batches(adapter.One(&models.DataEntityList{DataSourceOddrn: "//orig", Items: items}), "//ds", tc.c, zaptest.NewLogger(t))
			require.NoError(t, err)

			assert.Len(t, batches, (tc.n+tc.c-1)/tc.c)
			var joined []models.DataEntity
			for _, b := range batches {
				assert.LessOrEqual(t, b.Len(), tc.c)
				assert.Equal(t, "//ds", b.DataSourceOddrn)
				joined = append(joined, b.Items...)
			}
			if tc.n == 0 {
				assert.Empty(t, joined)
				return
			}
			assert.Equal(t, items, joined)
		})
	}
}

func TestSplitSequence(t *testing.T) {
	seq := adapter.Lists(
		&models.DataEntityList{Items: entities("a", 3)},
		nil,
		&models.DataEntityList{Items: entities("b", 2)},
	)
	batches, err := Batches(seq, "//ds", 2, nil)
	require.NoError(t, err)

	sizes := make([]int, 0, len(batches))
	for _, b := range batches {
		sizes = append(sizes, b.Len())
	}
	assert.Equal(t, []int{2, 1, 2}, sizes)
}

func TestSplitBatchesDoNotAlias(t *testing.T) {
	batches, err := Batches(adapter.One(&models.DataEntityList{Items: entities("a", 4)}), "//ds", 2, nil)
	require.NoError(t, err)

	first := batches[0]
	first.Items = append(first.Items, models.DataEntity{Name: "extra"})
	assert.Equal(t, "a_2", batches[1].Items[0].Name)
}

func TestCreateJob(t *testing.T) {
	api := &recordingIngester{}

	j, err := CreateJob(api, newSync("s", adapter.One(nil)), 2)
	require.NoError(t, err)
	assert.IsType(t, &SyncJob{}, j)

	j, err = CreateJob(api, newAsync("a"), 2)
	require.NoError(t, err)
	assert.IsType(t, &AsyncJob{}, j)

	j, err = CreateJob(api, adapter.Async(newSync("wrapped", adapter.One(nil))), 2)
	require.NoError(t, err)
	assert.IsType(t, &AsyncJob{}, j)

	_, err = CreateJob(api, &streamAdapter{}, 2)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeCapability))

	_, err = CreateJob(api, newSync("s", adapter.One(nil)), 0)
	assert.Error(t, err)
}

func TestSyncJobOrder(t *testing.T) {
	api := &recordingIngester{}
	items := entities("a", 3)
	j := NewSyncJob(api, newSync("A", adapter.One(&models.DataEntityList{Items: items})), 2, WithLogger(zaptest.NewLogger(t)))

	assert.Equal(t, StateCreated, j.State())
	j.Start(context.Background())

	assert.Equal(t, StateSucceeded, j.State())
	assert.NoError(t, j.Err())
	assert.Equal(t, []int{2, 1}, api.sizes())

	var joined []models.DataEntity
	for _, b := range api.batches {
		assert.Equal(t, "//sync/A", b.DataSourceOddrn)
		joined = append(joined, b.Items...)
	}
	assert.Equal(t, items, joined)
}

func TestAsyncJobUnion(t *testing.T) {
	api := &recordingIngester{}
	items := entities("b", 5)
	j := NewAsyncJob(api, newAsync("B", &models.DataEntityList{Items: items}), 2, WithLogger(zaptest.NewLogger(t)))

	j.Start(context.Background())
	require.Equal(t, StateSucceeded, j.State())

	sizes := api.sizes()
	sort.Ints(sizes)
	assert.Equal(t, []int{1, 2, 2}, sizes)

	var got []string
	for _, b := range api.batches {
		for _, e := range b.Items {
			got = append(got, e.Name)
		}
	}
	var want []string
	for _, e := range items {
		want = append(want, e.Name)
	}
	assert.ElementsMatch(t, want, got)
}

func TestJobFailuresAreContained(t *testing.T) {
	tests := []struct {
		name  string
		job   func(api *recordingIngester) Job
		check func(t *testing.T, err error)
	}{
		{
			name: "adapter error",
			job: func(api *recordingIngester) Job {
				return NewSyncJob(api, newSync("A", adapter.Fail(errors.NewMappingDataError("orders", fmt.Errorf("bad type")))), 2)
			},
			check: func(t *testing.T, err error) {
				var mde *errors.MappingDataError
				assert.True(t, errors.As(err, &mde))
			},
		},
		{
			name: "adapter panic",
			job: func(api *recordingIngester) Job {
				seq := func(yield func(*models.DataEntityList, error) bool) { panic("boom") }
				return NewSyncJob(api, newSync("A", seq), 2)
			},
			check: func(t *testing.T, err error) {
				assert.Contains(t, err.Error(), "adapter panicked: boom")
			},
		},
		{
			name: "ingestion failure stops sync job",
			job: func(api *recordingIngester) Job {
				api.failOn = 1
				return NewSyncJob(api, newSync("A", adapter.One(&models.DataEntityList{Items: entities("a", 5)})), 2)
			},
			check: func(t *testing.T, err error) {
				var ide *errors.IngestionDataError
				assert.True(t, errors.As(err, &ide))
			},
		},
		{
			name: "async fetch error",
			job: func(api *recordingIngester) Job {
				a := newAsync("B")
				a.err = fmt.Errorf("connection refused")
				return NewAsyncJob(api, a, 2)
			},
			check: func(t *testing.T, err error) {
				assert.EqualError(t, err, "connection refused")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &recordingIngester{}
			j := tt.job(api)

			assert.NotPanics(t, func() { j.Start(context.Background()) })
			assert.Equal(t, StateFailed, j.State())
			require.Error(t, j.Err())
			tt.check(t, j.Err())
			assert.Empty(t, api.batches)
		})
	}
}

func TestAsyncJobSiblingsContinue(t *testing.T) {
	api := &recordingIngester{failOn: 1}
	j := NewAsyncJob(api, newAsync("B", &models.DataEntityList{Items: entities("b", 6)}), 2)

	j.Start(context.Background())

	assert.Equal(t, StateFailed, j.State())
	assert.Len(t, api.batches, 2)
}

func TestJobLogsAndMetrics(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)

	j := NewSyncJob(&recordingIngester{}, newSync("A", adapter.One(&models.DataEntityList{Items: entities("a", 3)})), 2,
		WithLogger(zap.New(core)), WithMetrics(metrics))
	j.Start(context.Background())

	assert.Equal(t, 1, logs.FilterMessage("collecting metadata started").Len())
	done := logs.FilterMessage("metadata collected").All()
	require.Len(t, done, 1)
	assert.Equal(t, "A", done[0].ContextMap()["adapter"])
	assert.Equal(t, 2, logs.FilterMessage("yield batch").Len())

	n, err := testutil.GatherAndCount(reg, "odd_collector_job_runs_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
