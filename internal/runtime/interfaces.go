package runtime

import (
	"context"

	"arbiter/internal/domain/execution"
)

// PreparedProgram is a compiled or otherwise ready-to-run submission.
type PreparedProgram interface {
	Run(ctx context.Context, stdin string) (*execution.Outcome, error)
	Close() error
}

// Engine executes submissions by delegating to language-specific modules.
type Engine interface {
	Prepare(ctx context.Context, job execution.Job) (PreparedProgram, *execution.Outcome, error)
	Shutdown(ctx context.Context) error
	Close() error
}

// Module provides sandbox support for a single language.
type Module interface {
	Language() execution.Language
	Prepare(ctx context.Context, job execution.Job) (PreparedProgram, *execution.Outcome, error)
	Close() error
}
