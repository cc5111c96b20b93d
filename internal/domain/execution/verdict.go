package execution

// Verdict is the closed-set classification of a submission's outcome.
type Verdict string

const (
	VerdictAccepted            Verdict = "ACCEPTED"
	VerdictWrongAnswer         Verdict = "WRONG_ANSWER"
	VerdictTimeLimitExceeded   Verdict = "TIME_LIMIT_EXCEEDED"
	VerdictMemoryLimitExceeded Verdict = "MEMORY_LIMIT_EXCEEDED"
	VerdictRuntimeError        Verdict = "RUNTIME_ERROR"
	VerdictCompilationError    Verdict = "COMPILATION_ERROR"
	VerdictSystemError         Verdict = "SYSTEM_ERROR"
)

// verdictRank orders verdicts from best to worst; when multiple test cases
// fail differently the worst verdict wins.
var verdictRank = map[Verdict]int{
	VerdictAccepted:            0,
	VerdictWrongAnswer:         1,
	VerdictTimeLimitExceeded:   2,
	VerdictMemoryLimitExceeded: 3,
	VerdictRuntimeError:        4,
	VerdictCompilationError:    5,
	VerdictSystemError:         6,
}

// Worse returns the more severe of the two verdicts.
func Worse(a, b Verdict) Verdict {
	if verdictRank[b] > verdictRank[a] {
		return b
	}
	return a
}
