package docker

import (
	"context"
	"path"

	"arbiter/internal/domain/execution"
)

// compileSpec describes one language's compile phase.
type compileSpec struct {
	sourceFilename   string
	buildCmd         []string
	artifactFilename string
}

// compileArtifact runs the compile phase in a writable container and, on
// success, extracts the produced artifact. A failed compile (nonzero exit,
// timeout, or OOM) comes back as an Outcome with CompileFailed set; the
// caller never sees a half-built artifact.
//
// The compile container keeps the full confinement of a run container except
// the read-only rootfs: compilers must write build products. Its limits come
// from engine configuration, not from the job: a tight run-time limit must
// not starve the compiler.
func (c *containerEngine) compileArtifact(ctx context.Context, runtime *languageRuntime, job execution.Job, spec compileSpec) ([]byte, *execution.Outcome, error) {
	memory := c.compileMemory
	if lim := c.effectiveLimits(job.Limits); lim.MemoryLimitBytes > memory {
		memory = lim.MemoryLimitBytes
	}

	outcome, artifact, err := c.run(ctx, containerSpec{
		image:   runtime.config.Image,
		workdir: runtime.config.Workdir,
		cmd:     spec.buildCmd,
		limits: execution.RunLimits{
			TimeLimit:        c.compileTimeout,
			MemoryLimitBytes: memory,
			PidsLimit:        c.defaultLimits.PidsLimit,
		},
		attachStdin:    false,
		writableRootfs: true,
	}, []fileSpec{
		{
			Name: spec.sourceFilename,
			Mode: 0o644,
			Data: []byte(job.Source),
		},
	}, "", path.Join(runtime.config.Workdir, spec.artifactFilename))
	if err != nil {
		return nil, nil, err
	}

	if outcome.TimedOut || outcome.OOMKilled || outcome.ExitCode != 0 {
		outcome.CompileFailed = true
		return nil, outcome, nil
	}

	return artifact, nil, nil
}
