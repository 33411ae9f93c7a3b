// Package adapter defines the contract between the collector and the
// adapters that extract metadata from one data source each.
//
// An adapter fetches in one of three shapes, told apart by the return type
// of GetDataEntityList:
//
//	SyncAdapter    iter.Seq2[*models.DataEntityList, error]   blocking, lazy
//	AsyncAdapter   *Future[[]*models.DataEntityList]          awaited once
//	StreamAdapter  <-chan *models.DataEntityList              not supported
//
// A blocking adapter can be turned into an asynchronous one with Async.
package adapter

import (
	"context"
	"iter"

	"github.com/ajitpratap0/oddcollector/pkg/models"
	"github.com/ajitpratap0/oddcollector/pkg/plugin"
)

// Adapter is the part every adapter shape shares.
type Adapter interface {
	// GetDataSourceOddrn identifies the data source the adapter reads.
	GetDataSourceOddrn() string
	// Plugin returns the configuration the adapter was built from.
	Plugin() plugin.Plugin
}

// SyncAdapter fetches on the caller's goroutine. The sequence may yield one
// list or many, lazily.
type SyncAdapter interface {
	Adapter
	GetDataEntityList(ctx context.Context) iter.Seq2[*models.DataEntityList, error]
}

// AsyncAdapter fetches in the background; the result is awaited once.
type AsyncAdapter interface {
	Adapter
	GetDataEntityList(ctx context.Context) *Future[[]*models.DataEntityList]
}

// StreamAdapter produces lists incrementally. Jobs cannot be built for it.
type StreamAdapter interface {
	Adapter
	GetDataEntityList(ctx context.Context) <-chan *models.DataEntityList
}

// PluginSetter lets the loader attach the owning plugin to an adapter whose
// constructor did not.
type PluginSetter interface {
	SetPlugin(p plugin.Plugin)
}

// Base is embedded by adapters to carry their plugin.
type Base struct {
	plugin plugin.Plugin
}

// NewBase returns a Base owning p.
func NewBase(p plugin.Plugin) Base {
	return Base{plugin: p}
}

func (b *Base) Plugin() plugin.Plugin     { return b.plugin }
func (b *Base) SetPlugin(p plugin.Plugin) { b.plugin = p }

// Name is the owning plugin's name, or "" when there is none.
func Name(a Adapter) string {
	if p := a.Plugin(); p != nil {
		return p.GetName()
	}
	return ""
}

// One is the sequence of a single list.
func One(list *models.DataEntityList) iter.Seq2[*models.DataEntityList, error] {
	return func(yield func(*models.DataEntityList, error) bool) {
		yield(list, nil)
	}
}

// Lists is the sequence of the given lists, in order.
func Lists(lists ...*models.DataEntityList) iter.Seq2[*models.DataEntityList, error] {
	return func(yield func(*models.DataEntityList, error) bool) {
		for _, l := range lists {
			if !yield(l, nil) {
				return
			}
		}
	}
}

// Fail is a sequence that only reports err.
func Fail(err error) iter.Seq2[*models.DataEntityList, error] {
	return func(yield func(*models.DataEntityList, error) bool) {
		yield(nil, err)
	}
}
