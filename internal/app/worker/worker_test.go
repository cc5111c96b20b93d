package worker

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"arbiter/internal/domain/execution"
	"arbiter/internal/ports"
)

type queuedJob struct {
	job execution.Job
	err error
}

type stubJobSource struct {
	mu   sync.Mutex
	jobs []queuedJob
}

func (s *stubJobSource) NextJob(ctx context.Context) (execution.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.jobs) == 0 {
		return execution.Job{}, io.EOF
	}
	next := s.jobs[0]
	s.jobs = s.jobs[1:]
	return next.job, next.err
}

func (s *stubJobSource) Close() error { return nil }

type stubResultSink struct {
	mu        sync.Mutex
	published []execution.SignedResult
	failures  int
}

func (s *stubResultSink) PublishResult(ctx context.Context, result execution.SignedResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failures > 0 {
		s.failures--
		return errors.New("broker unavailable")
	}
	s.published = append(s.published, result)
	return nil
}

func (s *stubResultSink) Close() error { return nil }

func (s *stubResultSink) results() []execution.SignedResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]execution.SignedResult{}, s.published...)
}

type stubRegistry struct {
	mu          sync.Mutex
	registered  []ports.WorkerRegistration
	heartbeats  []ports.WorkerHeartbeat
	registerErr error
}

func (r *stubRegistry) Register(ctx context.Context, reg ports.WorkerRegistration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.registerErr != nil {
		err := r.registerErr
		r.registerErr = nil
		return err
	}
	r.registered = append(r.registered, reg)
	return nil
}

func (r *stubRegistry) Heartbeat(ctx context.Context, hb ports.WorkerHeartbeat) error {
	r.mu.Lock()
	r.heartbeats = append(r.heartbeats, hb)
	r.mu.Unlock()
	return nil
}

func (r *stubRegistry) registrations() []ports.WorkerRegistration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ports.WorkerRegistration{}, r.registered...)
}

func pythonJob(id string) execution.Job {
	return execution.Job{
		SubmissionID: id,
		Language:     execution.LanguagePython,
		Source:       "print('hi')",
	}
}

func newTestWorker(source ports.JobSource, sink ports.ResultSink, registry ports.RegistryClient, engine *stubEngine, cfg Config) *Worker {
	signer := &stubSigner{}
	coordinator := NewCoordinator(engine, signer, zap.NewNop())
	languages := []execution.Language{execution.LanguagePython}
	return New(cfg, coordinator, engine, source, sink, registry, signer, languages, zap.NewNop())
}

func TestWorkerProcessesJobsUntilSourceExhausted(t *testing.T) {
	t.Parallel()

	source := &stubJobSource{jobs: []queuedJob{
		{job: pythonJob("sub-1")},
		{job: pythonJob("sub-2")},
		{job: pythonJob("sub-3")},
	}}
	sink := &stubResultSink{}
	registry := &stubRegistry{}
	engine := &stubEngine{program: &stubProgram{outcomes: []execution.Outcome{{Stdout: "hi"}}}}

	w := newTestWorker(source, sink, registry, engine, Config{MaxParallel: 2})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := w.Run(ctx); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	regs := registry.registrations()
	if len(regs) != 1 {
		t.Fatalf("expected one registration, got %d", len(regs))
	}
	if regs[0].WorkerID != "worker-test" || regs[0].MaxConcurrency != 2 {
		t.Fatalf("unexpected registration: %+v", regs[0])
	}
	if len(regs[0].Languages) != 1 || regs[0].Languages[0] != execution.LanguagePython {
		t.Fatalf("unexpected advertised languages: %v", regs[0].Languages)
	}

	results := sink.results()
	if len(results) != 3 {
		t.Fatalf("expected 3 published results, got %d", len(results))
	}
	for _, signed := range results {
		if signed.Signature == "" {
			t.Fatalf("published result is unsigned")
		}
	}

	if engine.shutdownCount() == 0 {
		t.Fatalf("expected sandbox shutdown during drain")
	}
}

func TestWorkerRetriesRegistration(t *testing.T) {
	t.Parallel()

	source := &stubJobSource{}
	sink := &stubResultSink{}
	registry := &stubRegistry{registerErr: errors.New("registry warming up")}
	engine := &stubEngine{program: &stubProgram{}}

	w := newTestWorker(source, sink, registry, engine, Config{})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := w.Run(ctx); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if len(registry.registrations()) != 1 {
		t.Fatalf("expected registration to succeed after retry")
	}
}

func TestWorkerRetriesPublish(t *testing.T) {
	t.Parallel()

	source := &stubJobSource{jobs: []queuedJob{{job: pythonJob("sub-retry")}}}
	sink := &stubResultSink{failures: 2}
	registry := &stubRegistry{}
	engine := &stubEngine{program: &stubProgram{outcomes: []execution.Outcome{{Stdout: "hi"}}}}

	w := newTestWorker(source, sink, registry, engine, Config{})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := w.Run(ctx); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	results := sink.results()
	if len(results) != 1 {
		t.Fatalf("expected result delivered after retries, got %d", len(results))
	}
	if results[0].Result.SubmissionID != "sub-retry" {
		t.Fatalf("unexpected submission id %q", results[0].Result.SubmissionID)
	}
}

func TestWorkerToleratesTransientSourceErrors(t *testing.T) {
	t.Parallel()

	source := &stubJobSource{jobs: []queuedJob{
		{err: errors.New("rebalance in progress")},
		{job: pythonJob("sub-after-error")},
	}}
	sink := &stubResultSink{}
	registry := &stubRegistry{}
	engine := &stubEngine{program: &stubProgram{outcomes: []execution.Outcome{{Stdout: "hi"}}}}

	w := newTestWorker(source, sink, registry, engine, Config{})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := w.Run(ctx); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	results := sink.results()
	if len(results) != 1 {
		t.Fatalf("expected the job after the transient error to be judged, got %d results", len(results))
	}
}

func TestWorkerStopsOnContextCancel(t *testing.T) {
	t.Parallel()

	blockingSource := &blockingJobSource{started: make(chan struct{})}
	sink := &stubResultSink{}
	registry := &stubRegistry{}
	engine := &stubEngine{program: &stubProgram{}}

	w := newTestWorker(blockingSource, sink, registry, engine, Config{DrainTimeout: time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	<-blockingSource.started
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatalf("worker did not stop after cancellation")
	}

	if engine.shutdownCount() == 0 {
		t.Fatalf("expected sandbox shutdown on cancellation")
	}
}

type blockingJobSource struct {
	once    sync.Once
	started chan struct{}
}

func (s *blockingJobSource) NextJob(ctx context.Context) (execution.Job, error) {
	s.once.Do(func() { close(s.started) })
	<-ctx.Done()
	return execution.Job{}, ctx.Err()
}

func (s *blockingJobSource) Close() error { return nil }
