package ports

import (
	"context"

	"arbiter/internal/domain/execution"
)

// ResultSink delivers signed verdicts to the external scoring service.
type ResultSink interface {
	PublishResult(ctx context.Context, result execution.SignedResult) error
	Close() error
}
