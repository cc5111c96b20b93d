package worker

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"arbiter/internal/domain/execution"
	"arbiter/internal/ports"
	runtimex "arbiter/internal/runtime"
)

// Coordinator drives a single job end to end: sandbox execution,
// classification, and signing. Every result leaving Run is signed, including
// SYSTEM_ERROR; cleanup of the sandbox is the engine's guarantee on every
// path.
type Coordinator struct {
	sandbox runtimex.Engine
	signer  ports.ResultSigner
	log     *zap.Logger
}

func NewCoordinator(sandbox runtimex.Engine, signer ports.ResultSigner, log *zap.Logger) *Coordinator {
	return &Coordinator{
		sandbox: sandbox,
		signer:  signer,
		log:     log,
	}
}

// Run judges one job and returns its signed result. The only error is a
// signing failure, in which case no result may be reported at all.
func (c *Coordinator) Run(ctx context.Context, job execution.Job) (execution.SignedResult, error) {
	result := c.judge(ctx, job)

	signed, err := c.signer.Attest(result)
	if err != nil {
		return execution.SignedResult{}, fmt.Errorf("sign result for %s: %w", job.SubmissionID, err)
	}
	return signed, nil
}

func (c *Coordinator) judge(ctx context.Context, job execution.Job) execution.Result {
	if !execution.Known(job.Language) {
		return c.systemError(job, fmt.Sprintf("unsupported language %q", job.Language))
	}

	prepared, compileOutcome, err := c.sandbox.Prepare(ctx, job)
	if err != nil {
		c.log.Error("prepare sandbox",
			zap.String("submission_id", job.SubmissionID),
			zap.Error(err))
		return c.systemError(job, err.Error())
	}
	if prepared != nil {
		defer prepared.Close()
	}

	if compileOutcome != nil {
		return compileErrorResult(job, compileOutcome)
	}
	if prepared == nil {
		return c.systemError(job, "sandbox returned neither program nor compile outcome")
	}

	if len(job.Tests) == 0 {
		return c.judgeSingle(ctx, job, prepared)
	}
	return c.judgeSuite(ctx, job, prepared)
}

func (c *Coordinator) judgeSingle(ctx context.Context, job execution.Job, prepared runtimex.PreparedProgram) execution.Result {
	outcome, err := prepared.Run(ctx, "")
	if err != nil {
		c.log.Error("run sandbox",
			zap.String("submission_id", job.SubmissionID),
			zap.Error(err))
		return c.systemError(job, err.Error())
	}

	verdict := classifyRun(outcome, job.Limits, job.Language, "", false)
	result := execution.Result{
		SubmissionID: job.SubmissionID,
		Verdict:      verdict,
		TimeMillis:   outcome.Duration.Milliseconds(),
		MemoryBytes:  outcome.PeakMemoryBytes,
		Stdout:       outcome.Stdout,
		Stderr:       outcome.Stderr,
	}
	if verdict == execution.VerdictAccepted {
		result.Score = 100
	}
	return result
}

func (c *Coordinator) judgeSuite(ctx context.Context, job execution.Job, prepared runtimex.PreparedProgram) execution.Result {
	result := execution.Result{
		SubmissionID: job.SubmissionID,
		Verdict:      execution.VerdictAccepted,
		TestsTotal:   len(job.Tests),
	}

	for _, test := range job.Tests {
		outcome, err := prepared.Run(ctx, test.Input)
		if err != nil {
			c.log.Error("run test case",
				zap.String("submission_id", job.SubmissionID),
				zap.Int("test", test.Number),
				zap.Error(err))
			return c.systemError(job, err.Error())
		}

		verdict := classifyRun(outcome, job.Limits, job.Language, test.ExpectedOutput, true)
		result.Tests = append(result.Tests, execution.TestVerdict{
			Number:      test.Number,
			Verdict:     verdict,
			TimeMillis:  outcome.Duration.Milliseconds(),
			MemoryBytes: outcome.PeakMemoryBytes,
		})

		if outcome.Duration.Milliseconds() > result.TimeMillis {
			result.TimeMillis = outcome.Duration.Milliseconds()
		}
		if outcome.PeakMemoryBytes > result.MemoryBytes {
			result.MemoryBytes = outcome.PeakMemoryBytes
		}
		result.Stdout = outcome.Stdout
		result.Stderr = outcome.Stderr

		if verdict != execution.VerdictAccepted {
			// First failure decides the verdict; remaining tests are not run.
			result.Verdict = execution.Worse(result.Verdict, verdict)
			break
		}
		result.TestsPassed++
	}

	result.Score = 100 * result.TestsPassed / result.TestsTotal
	return result
}

func compileErrorResult(job execution.Job, outcome *execution.Outcome) execution.Result {
	return execution.Result{
		SubmissionID: job.SubmissionID,
		Verdict:      execution.VerdictCompilationError,
		TimeMillis:   outcome.Duration.Milliseconds(),
		MemoryBytes:  outcome.PeakMemoryBytes,
		Stdout:       outcome.Stdout,
		Stderr:       outcome.Stderr,
		TestsTotal:   len(job.Tests),
	}
}

// systemError builds the SYSTEM_ERROR result for infrastructure faults. The
// diagnostic lands in Error for operators; the scoring UI decides what end
// users see.
func (c *Coordinator) systemError(job execution.Job, message string) execution.Result {
	return execution.Result{
		SubmissionID: job.SubmissionID,
		Verdict:      execution.VerdictSystemError,
		TestsTotal:   len(job.Tests),
		Error:        message,
	}
}
