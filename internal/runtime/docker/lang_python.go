package docker

import (
	"context"

	"arbiter/internal/domain/execution"
	runtimex "arbiter/internal/runtime"
)

type pythonStrategy struct{}

func (p *pythonStrategy) Prepare(ctx context.Context, lang *languageRuntime, job execution.Job) (runtimex.PreparedProgram, *execution.Outcome, error) {
	return &pythonPreparedProgram{
		runtime: lang,
		job:     job,
	}, nil, nil
}

func (p *pythonStrategy) Close() error {
	return nil
}

type pythonPreparedProgram struct {
	runtime *languageRuntime
	job     execution.Job
}

func (p *pythonPreparedProgram) Run(ctx context.Context, stdin string) (*execution.Outcome, error) {
	engine := p.runtime.engine
	return engine.runProgram(ctx, containerSpec{
		image:       p.runtime.config.RunImage,
		workdir:     p.runtime.config.Workdir,
		cmd:         []string{"python", pythonSourceFilename},
		limits:      engine.effectiveLimits(p.job.Limits),
		attachStdin: true,
	}, []fileSpec{
		{
			Name: pythonSourceFilename,
			Mode: 0o644,
			Data: []byte(p.job.Source),
		},
	}, stdin)
}

func (p *pythonPreparedProgram) Close() error {
	return nil
}
