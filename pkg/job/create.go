package job

import (
	"github.com/ajitpratap0/oddcollector/pkg/adapter"
	"github.com/ajitpratap0/oddcollector/pkg/errors"
)

// CreateJob picks the job kind from the adapter's fetch shape. Streaming
// adapters are not supported.
func CreateJob(api Ingester, a adapter.Adapter, chunkSize int, opts ...Option) (Job, error) {
	if chunkSize <= 0 {
		return nil, errors.Newf(errors.ErrorTypeValidation, "chunk size must be positive, got %d", chunkSize)
	}

	switch typed := a.(type) {
	case adapter.AsyncAdapter:
		return NewAsyncJob(api, typed, chunkSize, opts...), nil
	case adapter.SyncAdapter:
		return NewSyncJob(api, typed, chunkSize, opts...), nil
	case adapter.StreamAdapter:
		return nil, errors.Newf(errors.ErrorTypeCapability, "adapter %s streams its result, which is not supported", adapter.Name(a))
	default:
		return nil, errors.Newf(errors.ErrorTypeCapability, "adapter %s (%T) has no supported GetDataEntityList method", adapter.Name(a), a)
	}
}
