package execution

// TestVerdict captures the classified outcome of a single test case.
type TestVerdict struct {
	Number  int
	Verdict Verdict
	// TimeMillis and MemoryBytes are the measured cost of this test run.
	TimeMillis  int64
	MemoryBytes int64
}

// Result is the classified outcome of judging one submission. Created once
// per job, immutable after creation, signed before transmission.
type Result struct {
	SubmissionID string
	Verdict      Verdict
	// Score is 100 * passed / total, or 100 for an accepted job without
	// test cases.
	Score int
	// TimeMillis is the worst-case wall clock across test runs.
	TimeMillis int64
	// MemoryBytes is the peak memory observed across test runs.
	MemoryBytes int64
	TestsPassed int
	TestsTotal  int
	// Stdout and Stderr carry the (already truncated) streams of the last
	// executed run, for diagnostics on the consumer side.
	Stdout string
	Stderr string
	// Error holds the internal diagnostic message for SYSTEM_ERROR results.
	// The consumer decides what, if anything, reaches end users.
	Error string

	Tests []TestVerdict
}

// SignedResult is a Result attested by the worker that produced it. The
// signature covers the canonical serialization of the Result (see
// internal/identity); a result whose signature does not verify against the
// worker's registered public key must be treated as untrusted downstream.
type SignedResult struct {
	Result    Result
	WorkerID  string
	Signature string
}
