package adapter

import (
	"context"

	"github.com/ajitpratap0/oddcollector/pkg/models"
)

type asyncAdapter struct {
	SyncAdapter
}

// Async runs a blocking adapter on its own goroutine and collects everything
// it yields into a Future, so it can be driven like an AsyncAdapter.
func Async(a SyncAdapter) AsyncAdapter {
	return asyncAdapter{SyncAdapter: a}
}

func (a asyncAdapter) GetDataEntityList(ctx context.Context) *Future[[]*models.DataEntityList] {
	return Go(ctx, func(ctx context.Context) ([]*models.DataEntityList, error) {
		var lists []*models.DataEntityList
		for list, err := range a.SyncAdapter.GetDataEntityList(ctx) {
			if err != nil {
				return nil, err
			}
			lists = append(lists, list)
		}
		return lists, nil
	})
}

// Unwrap returns the blocking adapter.
func (a asyncAdapter) Unwrap() SyncAdapter {
	return a.SyncAdapter
}
