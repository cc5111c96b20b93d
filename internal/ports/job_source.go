package ports

import (
	"context"

	"arbiter/internal/domain/execution"
)

// JobSource hands out submission jobs pulled from the external queue.
//
// NextJob blocks until a job is available, the context ends, or the source
// is exhausted (io.EOF). Callers must hold a free concurrency slot before
// calling NextJob so that a dequeued job is never dropped for lack of
// capacity.
type JobSource interface {
	NextJob(ctx context.Context) (execution.Job, error)
	Close() error
}
