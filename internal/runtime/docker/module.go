package docker

import (
	"context"
	"fmt"

	"arbiter/internal/domain/execution"
	runtimex "arbiter/internal/runtime"
)

type languageStrategy interface {
	Prepare(ctx context.Context, lang *languageRuntime, job execution.Job) (runtimex.PreparedProgram, *execution.Outcome, error)
	Close() error
}

type module struct {
	runtime  *languageRuntime
	strategy languageStrategy
}

func newModule(lang execution.Language, cfg LanguageConfig, engine *containerEngine) (runtimex.Module, error) {
	runtime, err := newLanguageRuntime(lang, cfg, engine)
	if err != nil {
		return nil, err
	}

	strategy, err := strategyForLanguage(lang)
	if err != nil {
		return nil, err
	}

	return &module{
		runtime:  runtime,
		strategy: strategy,
	}, nil
}

func (m *module) Language() execution.Language {
	return m.runtime.language
}

func (m *module) Prepare(ctx context.Context, job execution.Job) (runtimex.PreparedProgram, *execution.Outcome, error) {
	if job.Language != m.runtime.language {
		return nil, nil, fmt.Errorf("docker runtime: job language %q does not match module %q", job.Language, m.runtime.language)
	}

	if err := m.runtime.ensureImages(ctx); err != nil {
		return nil, nil, err
	}

	return m.strategy.Prepare(ctx, m.runtime, job)
}

func (m *module) Close() error {
	return m.strategy.Close()
}
