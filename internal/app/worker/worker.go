package worker

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"arbiter/internal/domain/execution"
	"arbiter/internal/ports"
	runtimex "arbiter/internal/runtime"
)

const (
	defaultHeartbeatInterval = 15 * time.Second
	defaultDrainTimeout      = 30 * time.Second

	heartbeatTimeout    = 5 * time.Second
	publishTimeout      = 10 * time.Second
	publishMaxRetries   = 4
	shutdownKillTimeout = 10 * time.Second
)

// Config tunes the worker lifecycle.
type Config struct {
	MaxParallel       int
	HeartbeatInterval time.Duration
	DrainTimeout      time.Duration
}

func (c *Config) applyDefaults() {
	if c.MaxParallel <= 0 {
		c.MaxParallel = 1
	}
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = defaultHeartbeatInterval
	}
	if c.DrainTimeout <= 0 {
		c.DrainTimeout = defaultDrainTimeout
	}
}

// Worker owns the process lifecycle: registration, heartbeats, the poll
// loop, and graceful drain. Jobs run concurrently up to MaxParallel; the
// capacity slot is taken before a job is pulled so a dequeued job is never
// dropped.
type Worker struct {
	cfg         Config
	coordinator *Coordinator
	sandbox     runtimex.Engine
	source      ports.JobSource
	sink        ports.ResultSink
	registry    ports.RegistryClient
	signer      ports.ResultSigner
	languages   []execution.Language
	log         *zap.Logger

	activeJobs atomic.Int64
}

func New(
	cfg Config,
	coordinator *Coordinator,
	sandbox runtimex.Engine,
	source ports.JobSource,
	sink ports.ResultSink,
	registry ports.RegistryClient,
	signer ports.ResultSigner,
	languages []execution.Language,
	log *zap.Logger,
) *Worker {
	cfg.applyDefaults()
	return &Worker{
		cfg:         cfg,
		coordinator: coordinator,
		sandbox:     sandbox,
		source:      source,
		sink:        sink,
		registry:    registry,
		signer:      signer,
		languages:   languages,
		log:         log,
	}
}

// Run registers the worker and processes jobs until ctx is cancelled, then
// drains: no new jobs, in-flight jobs get DrainTimeout to finish, and any
// sandbox still alive afterwards is force-removed. Returns once drain
// completes; a hung cleanup cannot block exit past the kill timeout.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.register(ctx); err != nil {
		return err
	}

	hbCtx, stopHeartbeats := context.WithCancel(context.Background())
	defer stopHeartbeats()

	var heartbeats sync.WaitGroup
	heartbeats.Add(1)
	go func() {
		defer heartbeats.Done()
		w.heartbeatLoop(hbCtx)
	}()

	// Jobs run on their own context: a shutdown request stops intake but
	// must not instantly kill in-flight runs. Drain bounds how long they
	// may continue.
	jobCtx, cancelJobs := context.WithCancel(context.Background())
	defer cancelJobs()

	sem := make(chan struct{}, w.cfg.MaxParallel)
	var inflight sync.WaitGroup
	pollDelay := backoff.NewExponentialBackOff()
	pollDelay.MaxElapsedTime = 0

poll:
	for {
		select {
		case <-ctx.Done():
			break poll
		case sem <- struct{}{}:
		}

		job, err := w.source.NextJob(ctx)
		if err != nil {
			<-sem
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.EOF) {
				break poll
			}

			delay := pollDelay.NextBackOff()
			w.log.Warn("job source unavailable", zap.Error(err), zap.Duration("retry_in", delay))
			select {
			case <-ctx.Done():
				break poll
			case <-time.After(delay):
			}
			continue
		}
		pollDelay.Reset()

		inflight.Add(1)
		w.activeJobs.Add(1)
		go func(job execution.Job) {
			defer inflight.Done()
			defer w.activeJobs.Add(-1)
			defer func() { <-sem }()
			w.handle(jobCtx, job)
		}(job)
	}

	w.drain(&inflight, cancelJobs)
	stopHeartbeats()
	heartbeats.Wait()
	return nil
}

func (w *Worker) handle(ctx context.Context, job execution.Job) {
	w.log.Info("judging submission",
		zap.String("submission_id", job.SubmissionID),
		zap.String("language", string(job.Language)))

	signed, err := w.coordinator.Run(ctx, job)
	if err != nil {
		w.log.Error("judge submission", zap.String("submission_id", job.SubmissionID), zap.Error(err))
		return
	}

	w.log.Info("verdict",
		zap.String("submission_id", job.SubmissionID),
		zap.String("verdict", string(signed.Result.Verdict)),
		zap.Int("score", signed.Result.Score),
		zap.Int64("time_ms", signed.Result.TimeMillis))

	// Publishing uses its own context: a shutdown must not discard a verdict
	// that was already computed.
	publish := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), publishMaxRetries)
	err = backoff.Retry(func() error {
		pubCtx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		return w.sink.PublishResult(pubCtx, signed)
	}, publish)
	if err != nil {
		// The queue's at-least-once redelivery recovers lost results.
		w.log.Error("result lost after publish retries",
			zap.String("submission_id", job.SubmissionID),
			zap.Error(err))
	}
}

func (w *Worker) register(ctx context.Context) error {
	reg := ports.WorkerRegistration{
		WorkerID:       w.signer.WorkerID(),
		PublicKey:      w.signer.PublicKey(),
		Languages:      w.languages,
		MaxConcurrency: w.cfg.MaxParallel,
	}

	retry := backoff.WithContext(backoff.NewExponentialBackOff(), ctx)
	err := backoff.Retry(func() error {
		regCtx, cancel := context.WithTimeout(ctx, heartbeatTimeout)
		defer cancel()
		if err := w.registry.Register(regCtx, reg); err != nil {
			w.log.Warn("registration attempt failed", zap.Error(err))
			return err
		}
		return nil
	}, retry)
	if err != nil {
		return err
	}

	w.log.Info("worker registered",
		zap.String("worker_id", reg.WorkerID),
		zap.Int("max_concurrency", reg.MaxConcurrency))
	return nil
}

func (w *Worker) heartbeatLoop(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		hb := ports.WorkerHeartbeat{
			WorkerID:   w.signer.WorkerID(),
			Timestamp:  time.Now().UTC(),
			Status:     "healthy",
			ActiveJobs: int(w.activeJobs.Load()),
		}

		hbCtx, cancel := context.WithTimeout(context.Background(), heartbeatTimeout)
		err := w.registry.Heartbeat(hbCtx, hb)
		cancel()
		if err != nil {
			// Never fatal: evicting stale workers is the registry's job.
			w.log.Warn("heartbeat failed", zap.Error(err))
		}
	}
}

func (w *Worker) drain(inflight *sync.WaitGroup, cancelJobs context.CancelFunc) {
	done := make(chan struct{})
	go func() {
		inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(w.cfg.DrainTimeout):
		w.log.Warn("drain timeout, force-removing active sandboxes",
			zap.Int64("active_jobs", w.activeJobs.Load()))
	}
	cancelJobs()

	killCtx, cancel := context.WithTimeout(context.Background(), shutdownKillTimeout)
	defer cancel()
	if err := w.sandbox.Shutdown(killCtx); err != nil {
		w.log.Error("shutdown sandboxes", zap.Error(err))
	}
}
