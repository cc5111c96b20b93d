package docker

import (
	"context"
	"sync"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/pkg/stdcopy"

	"arbiter/internal/domain/execution"
)

// boundedBuffer accumulates stream bytes up to a fixed ceiling and discards
// the rest. It never returns a write error so the demultiplexer keeps
// draining the stream; adversarial output costs bandwidth, not memory.
type boundedBuffer struct {
	mu        sync.Mutex
	limit     int64
	data      []byte
	truncated bool
}

func newBoundedBuffer(limit int64) *boundedBuffer {
	return &boundedBuffer{limit: limit}
}

func (b *boundedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	remaining := b.limit - int64(len(b.data))
	if remaining <= 0 {
		b.truncated = b.truncated || len(p) > 0
		return len(p), nil
	}
	if int64(len(p)) > remaining {
		b.data = append(b.data, p[:remaining]...)
		b.truncated = true
		return len(p), nil
	}
	b.data = append(b.data, p...)
	return len(p), nil
}

func (b *boundedBuffer) contents() (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.data), b.truncated
}

// streamCapture demultiplexes a container's stdout/stderr into bounded
// buffers from a dedicated reader goroutine, truncating inline.
type streamCapture struct {
	stdout *boundedBuffer
	stderr *boundedBuffer
	logs   interface{ Close() error }
	done   chan struct{}
	once   sync.Once
}

func (c *containerEngine) captureStreams(ctx context.Context, containerID string) (*streamCapture, error) {
	logs, err := c.cli.ContainerLogs(ctx, containerID, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Follow:     true,
	})
	if err != nil {
		return nil, err
	}

	capture := &streamCapture{
		stdout: newBoundedBuffer(c.outputLimit),
		stderr: newBoundedBuffer(c.outputLimit),
		logs:   logs,
		done:   make(chan struct{}),
	}

	go func() {
		defer close(capture.done)
		_, _ = stdcopy.StdCopy(capture.stdout, capture.stderr, logs)
	}()

	return capture, nil
}

// stop terminates the reader goroutine and waits for it. Safe to call more
// than once.
func (s *streamCapture) stop() {
	s.once.Do(func() {
		_ = s.logs.Close()
	})
	<-s.done
}

// fill copies the captured streams into the outcome. Call after stop.
func (s *streamCapture) fill(outcome *execution.Outcome) {
	outcome.Stdout, outcome.StdoutTruncated = s.stdout.contents()
	outcome.Stderr, outcome.StderrTruncated = s.stderr.contents()
}
