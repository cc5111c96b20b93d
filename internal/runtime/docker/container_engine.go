package docker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	typesimage "github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"go.uber.org/zap"

	"arbiter/internal/domain/execution"
)

// sandboxEnv pins locale, timezone, and runtime entropy so two runs of
// identical input produce identical output.
var sandboxEnv = []string{
	"LANG=C.UTF-8",
	"LC_ALL=C.UTF-8",
	"TZ=UTC",
	"HOME=/tmp",
	"PYTHONHASHSEED=0",
	"SOURCE_DATE_EPOCH=0",
}

// sandboxUser matches the unprivileged uid baked into the language images.
const sandboxUser = "1000:1000"

type containerEngine struct {
	cli            dockerClient
	log            *zap.Logger
	defaultLimits  execution.RunLimits
	grace          time.Duration
	outputLimit    int64
	compileTimeout time.Duration
	compileMemory  int64
	networkEnabled bool

	// active tracks every container this engine has created and not yet
	// removed. Shutdown force-removes stragglers; the set must be empty
	// after every completed job.
	mu     sync.Mutex
	active map[string]struct{}
}

func newContainerEngine(cli dockerClient, cfg Config, log *zap.Logger) *containerEngine {
	return &containerEngine{
		cli:            cli,
		log:            log,
		defaultLimits:  normalizeLimits(cfg.DefaultLimits),
		grace:          cfg.GracePeriod,
		outputLimit:    cfg.OutputLimitBytes,
		compileTimeout: cfg.CompileTimeout,
		compileMemory:  cfg.CompileMemoryBytes,
		networkEnabled: cfg.NetworkEnabled,
	}
}

func (c *containerEngine) pullImage(ctx context.Context, ref string) error {
	reader, err := c.cli.ImagePull(ctx, ref, typesimage.PullOptions{})
	if err != nil {
		return fmt.Errorf("pull image %s: %w", ref, err)
	}
	defer reader.Close()
	if _, err := io.Copy(io.Discard, reader); err != nil {
		return fmt.Errorf("consume pull output for %s: %w", ref, err)
	}
	return nil
}

// containerSpec collects the per-container knobs that differ between the
// compile and run phases.
type containerSpec struct {
	image          string
	workdir        string
	cmd            []string
	limits         execution.RunLimits
	attachStdin    bool
	writableRootfs bool
}

func (c *containerEngine) createContainer(ctx context.Context, spec containerSpec) (string, func(), error) {
	hostConfig := &container.HostConfig{
		Resources: container.Resources{
			NanoCPUs: 1_000_000_000,
		},
		CapDrop:     []string{"ALL"},
		SecurityOpt: []string{"no-new-privileges"},
	}
	if spec.limits.MemoryLimitBytes > 0 {
		hostConfig.Resources.Memory = spec.limits.MemoryLimitBytes
		hostConfig.Resources.MemorySwap = spec.limits.MemoryLimitBytes
	}
	if spec.limits.PidsLimit > 0 {
		pids := spec.limits.PidsLimit
		hostConfig.Resources.PidsLimit = &pids
	}
	if !c.networkEnabled {
		hostConfig.NetworkMode = "none"
	}
	containerConfig := &container.Config{
		Image:           spec.image,
		Cmd:             spec.cmd,
		Env:             sandboxEnv,
		User:            sandboxUser,
		AttachStdout:    true,
		AttachStderr:    true,
		AttachStdin:     spec.attachStdin,
		OpenStdin:       spec.attachStdin,
		StdinOnce:       spec.attachStdin,
		WorkingDir:      spec.workdir,
		NetworkDisabled: !c.networkEnabled,
	}
	if !spec.writableRootfs {
		hostConfig.ReadonlyRootfs = true
		hostConfig.Tmpfs = map[string]string{"/tmp": defaultScratchSize}
		// The daemon refuses CopyToContainer into a read-only rootfs unless
		// the destination is a volume, so the workdir mounts as an anonymous
		// writable volume to keep source and artifact injection working.
		containerConfig.Volumes = map[string]struct{}{spec.workdir: {}}
	}

	resp, err := c.cli.ContainerCreate(
		ctx,
		containerConfig,
		hostConfig,
		nil,
		nil,
		"",
	)
	if err != nil {
		return "", nil, fmt.Errorf("create container: %w", err)
	}

	c.track(resp.ID)
	cleanup := func() {
		removeCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := c.cli.ContainerRemove(removeCtx, resp.ID, container.RemoveOptions{Force: true}); err != nil && !client.IsErrNotFound(err) {
			c.log.Warn("remove container", zap.String("container_id", resp.ID), zap.Error(err))
		}
		c.untrack(resp.ID)
	}

	return resp.ID, cleanup, nil
}

func (c *containerEngine) track(id string) {
	c.mu.Lock()
	if c.active == nil {
		c.active = make(map[string]struct{})
	}
	c.active[id] = struct{}{}
	c.mu.Unlock()
}

func (c *containerEngine) untrack(id string) {
	c.mu.Lock()
	delete(c.active, id)
	c.mu.Unlock()
}

func (c *containerEngine) activeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.active)
}

// removeAll force-removes every tracked container. Called on shutdown so no
// sandbox survives the worker process.
func (c *containerEngine) removeAll(ctx context.Context) error {
	c.mu.Lock()
	ids := make([]string, 0, len(c.active))
	for id := range c.active {
		ids = append(ids, id)
	}
	c.mu.Unlock()

	var errs []error
	for _, id := range ids {
		if err := c.cli.ContainerRemove(ctx, id, container.RemoveOptions{Force: true}); err != nil && !client.IsErrNotFound(err) {
			errs = append(errs, fmt.Errorf("remove %s: %w", id, err))
			continue
		}
		c.untrack(id)
	}
	return errors.Join(errs...)
}

// runProgram executes one command inside a fresh hardened container and
// collects its outcome. Removal of the container is guaranteed on every
// return path.
func (c *containerEngine) runProgram(
	ctx context.Context,
	spec containerSpec,
	files []fileSpec,
	stdin string,
) (*execution.Outcome, error) {
	outcome, _, err := c.run(ctx, spec, files, stdin, "")
	return outcome, err
}

// run is runProgram plus optional artifact extraction: when extractPath is
// set and the program exits zero, the file at that path is copied out before
// the container is removed. The compile phase uses this to carry binaries
// into the run container.
func (c *containerEngine) run(
	ctx context.Context,
	spec containerSpec,
	files []fileSpec,
	stdin string,
	extractPath string,
) (*execution.Outcome, []byte, error) {
	containerID, cleanup, err := c.createContainer(ctx, spec)
	if err != nil {
		return nil, nil, err
	}
	defer cleanup()

	if err := c.copyFiles(ctx, containerID, spec.workdir, files); err != nil {
		return nil, nil, fmt.Errorf("copy files: %w", err)
	}

	var attach types.HijackedResponse
	if spec.attachStdin {
		attach, err = c.cli.ContainerAttach(ctx, containerID, container.AttachOptions{
			Stream: true,
			Stdin:  true,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("attach container: %w", err)
		}
		defer attach.Close()
	}

	start := time.Now()
	if err := c.cli.ContainerStart(ctx, containerID, container.StartOptions{}); err != nil {
		return nil, nil, fmt.Errorf("start container: %w", err)
	}

	capture, err := c.captureStreams(ctx, containerID)
	if err != nil {
		return nil, nil, fmt.Errorf("capture streams: %w", err)
	}
	defer capture.stop()

	sampler := c.startMemorySampler(containerID)
	defer sampler.stop()

	if spec.attachStdin && attach.Conn != nil {
		if _, err := io.Copy(attach.Conn, strings.NewReader(stdin)); err != nil {
			return nil, nil, fmt.Errorf("write stdin: %w", err)
		}
		if closer, ok := attach.Conn.(interface{ CloseWrite() error }); ok {
			_ = closer.CloseWrite()
		}
	}

	waitCtx := ctx
	var cancel context.CancelFunc
	if spec.limits.TimeLimit > 0 {
		waitCtx, cancel = context.WithTimeout(ctx, spec.limits.TimeLimit)
	}
	status, err := c.waitForExit(waitCtx, containerID)
	if cancel != nil {
		cancel()
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && spec.limits.TimeLimit > 0 && ctx.Err() == nil {
			outcome, handleErr := c.handleDeadline(containerID, start, capture, sampler)
			return outcome, nil, handleErr
		}
		return nil, nil, err
	}

	sampler.stop()
	capture.stop()

	inspectCtx := ctx
	if inspectCtx.Err() != nil {
		inspectCtx = context.Background()
	}
	inspect, err := c.cli.ContainerInspect(inspectCtx, containerID)
	if err != nil {
		return nil, nil, fmt.Errorf("inspect container: %w", err)
	}

	outcome := &execution.Outcome{
		ExitCode:        status.StatusCode,
		Duration:        time.Since(start),
		PeakMemoryBytes: sampler.peak(),
	}
	capture.fill(outcome)

	if inspect.State != nil && inspect.State.OOMKilled {
		outcome.OOMKilled = true
	}

	var artifact []byte
	if extractPath != "" && outcome.ExitCode == 0 && !outcome.OOMKilled {
		artifact, err = c.copyFileFromContainer(ctx, containerID, extractPath)
		if err != nil {
			return nil, nil, fmt.Errorf("extract artifact: %w", err)
		}
	}

	return outcome, artifact, nil
}

// handleDeadline kills a container that breached its time limit. The grace
// period bounds the entire kill-and-collect path; if the runtime itself
// hangs, cleanup's force-remove is the final backstop.
func (c *containerEngine) handleDeadline(containerID string, start time.Time, capture *streamCapture, sampler *memorySampler) (*execution.Outcome, error) {
	graceCtx, cancel := context.WithTimeout(context.Background(), c.grace)
	defer cancel()

	if err := c.cli.ContainerRemove(graceCtx, containerID, container.RemoveOptions{Force: true}); err != nil && !client.IsErrNotFound(err) {
		c.log.Warn("force remove after deadline", zap.String("container_id", containerID), zap.Error(err))
	}

	sampler.stop()
	capture.stop()

	outcome := &execution.Outcome{
		ExitCode:        -1,
		Duration:        time.Since(start),
		PeakMemoryBytes: sampler.peak(),
		TimedOut:        true,
	}
	capture.fill(outcome)
	return outcome, nil
}

func (c *containerEngine) waitForExit(ctx context.Context, containerID string) (*container.WaitResponse, error) {
	statusCh, errCh := c.cli.ContainerWait(ctx, containerID, container.WaitConditionNotRunning)
	select {
	case status := <-statusCh:
		if status.Error != nil {
			return nil, fmt.Errorf("container error: %s", status.Error.Message)
		}
		return &status, nil
	case err := <-errCh:
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("wait for container: %w", err)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
