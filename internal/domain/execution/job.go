package execution

// TestCase describes a single stdin/stdout expectation pair for a submission.
type TestCase struct {
	Number         int
	Input          string
	ExpectedOutput string
}

// Job is one unit of judging work pulled from the queue.
//
// A Job is immutable once dispatched; the coordinator owns it transiently
// for the duration of one execution.
type Job struct {
	SubmissionID string
	ProblemID    string
	Language     Language
	Source       string
	Limits       RunLimits
	Tests        []TestCase
}
