package docker

import (
	"context"

	"arbiter/internal/domain/execution"
	runtimex "arbiter/internal/runtime"
)

// compiledStrategy covers every language with a compile-then-run shape: the
// compile phase runs in a writable container, the produced artifact is
// extracted and re-injected into a locked-down run container.
type compiledStrategy struct {
	compile      compileSpec
	runCmd       []string
	artifactMode int64
}

func (s *compiledStrategy) Prepare(ctx context.Context, lang *languageRuntime, job execution.Job) (runtimex.PreparedProgram, *execution.Outcome, error) {
	artifact, compileOutcome, err := lang.engine.compileArtifact(ctx, lang, job, s.compile)
	if err != nil {
		return nil, nil, err
	}
	if compileOutcome != nil {
		return nil, compileOutcome, nil
	}

	return &compiledPreparedProgram{
		runtime:  lang,
		strategy: s,
		artifact: artifact,
		limits:   lang.engine.effectiveLimits(job.Limits),
	}, nil, nil
}

func (s *compiledStrategy) Close() error {
	return nil
}

type compiledPreparedProgram struct {
	runtime  *languageRuntime
	strategy *compiledStrategy
	artifact []byte
	limits   execution.RunLimits
}

func (p *compiledPreparedProgram) Run(ctx context.Context, stdin string) (*execution.Outcome, error) {
	return p.runtime.engine.runProgram(ctx, containerSpec{
		image:       p.runtime.config.RunImage,
		workdir:     p.runtime.config.Workdir,
		cmd:         p.strategy.runCmd,
		limits:      p.limits,
		attachStdin: true,
	}, []fileSpec{
		{
			Name: p.strategy.compile.artifactFilename,
			Mode: p.strategy.artifactMode,
			Data: p.artifact,
		},
	}, stdin)
}

func (p *compiledPreparedProgram) Close() error {
	return nil
}
