package docker

import (
	"context"
	"errors"
	"fmt"

	"github.com/docker/docker/client"
	"go.uber.org/zap"

	"arbiter/internal/domain/execution"
	runtimex "arbiter/internal/runtime"
)

// Engine implements runtime.Engine backed by Docker containers.
type Engine struct {
	registry *runtimex.Registry
	env      *containerEngine
	client   dockerClient
}

// New constructs an Engine using the supplied configuration. The Docker
// connection honors DOCKER_HOST and friends via the SDK's FromEnv.
func New(cfg Config, log *zap.Logger) (*Engine, error) {
	if len(cfg.Languages) == 0 {
		return nil, fmt.Errorf("docker runtime: at least one language must be configured")
	}

	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("docker runtime: create client: %w", err)
	}

	engine, err := newEngineWithClient(cli, cfg, log)
	if err != nil {
		_ = cli.Close()
		return nil, err
	}

	return engine, nil
}

func newEngineWithClient(cli dockerClient, cfg Config, log *zap.Logger) (*Engine, error) {
	cfg.applyDefaults()
	env := newContainerEngine(cli, cfg, log)

	modules := make([]runtimex.Module, 0, len(cfg.Languages))
	for lang, langCfg := range cfg.Languages {
		module, err := newModule(lang, langCfg, env)
		if err != nil {
			return nil, err
		}
		modules = append(modules, module)
	}

	registry, err := runtimex.NewRegistry(modules...)
	if err != nil {
		return nil, err
	}

	return &Engine{
		registry: registry,
		env:      env,
		client:   cli,
	}, nil
}

// Languages lists the languages this engine can execute.
func (e *Engine) Languages() []execution.Language {
	return e.registry.Languages()
}

// Prepare delegates to the module registered for the job's language.
func (e *Engine) Prepare(ctx context.Context, job execution.Job) (runtimex.PreparedProgram, *execution.Outcome, error) {
	return e.registry.Prepare(ctx, job)
}

// Shutdown force-removes every container still tracked as active. Idempotent.
func (e *Engine) Shutdown(ctx context.Context) error {
	return e.env.removeAll(ctx)
}

// ActiveSandboxes reports how many containers the engine currently tracks.
func (e *Engine) ActiveSandboxes() int {
	return e.env.activeCount()
}

// Close releases module resources and the Docker client.
func (e *Engine) Close() error {
	var errs []error
	if err := e.registry.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := e.client.Close(); err != nil {
		errs = append(errs, fmt.Errorf("docker client: %w", err))
	}
	return errors.Join(errs...)
}
