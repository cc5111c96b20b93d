package execution

import "time"

// Outcome is the raw, unclassified result of one program run inside the
// sandbox. The coordinator turns Outcomes into a Verdict; the sandbox driver
// never judges.
type Outcome struct {
	// Stdout and Stderr are captured with inline truncation; they never
	// exceed the driver's configured byte ceiling.
	Stdout string
	Stderr string
	// StdoutTruncated/StderrTruncated report whether the byte ceiling was hit.
	StdoutTruncated bool
	StderrTruncated bool

	ExitCode        int64
	Duration        time.Duration
	PeakMemoryBytes int64

	// TimedOut is set when the run was forcibly terminated at a deadline.
	TimedOut bool
	// OOMKilled is set when the kernel killed the program for breaching the
	// memory ceiling.
	OOMKilled bool
	// CompileFailed marks an outcome produced by the compile phase rather
	// than the run phase. It is the driver's phase signal: compiled-language
	// compile errors are detected here, not by scanning stderr.
	CompileFailed bool
}
