package execution

import "time"

// RunLimits describes the resource boundaries enforced on a single execution.
//
// A zero field falls back to the worker's configured default.
type RunLimits struct {
	// TimeLimit caps how long the submitted program may run. Zero means
	// use the default limit; there is no unlimited mode for untrusted code.
	TimeLimit time.Duration
	// MemoryLimitBytes caps the container memory usage in bytes.
	MemoryLimitBytes int64
	// PidsLimit caps the number of processes/threads inside the sandbox.
	PidsLimit int64
}
