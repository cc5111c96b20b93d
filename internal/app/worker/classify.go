package worker

import (
	"strings"

	"arbiter/internal/domain/execution"
)

// classifyRun turns one raw run outcome into a verdict, in strict priority
// order: time limit, memory limit, crash, wrong answer. expected is compared
// only when hasExpected is set (jobs without test cases accept any output).
func classifyRun(outcome *execution.Outcome, limits execution.RunLimits, lang execution.Language, expected string, hasExpected bool) execution.Verdict {
	if outcome.TimedOut || (limits.TimeLimit > 0 && outcome.Duration > limits.TimeLimit) {
		return execution.VerdictTimeLimitExceeded
	}
	if outcome.OOMKilled || (limits.MemoryLimitBytes > 0 && outcome.PeakMemoryBytes > limits.MemoryLimitBytes) {
		return execution.VerdictMemoryLimitExceeded
	}
	if outcome.ExitCode != 0 {
		if classifyStderr(lang, outcome.Stderr) {
			return execution.VerdictCompilationError
		}
		return execution.VerdictRuntimeError
	}
	if hasExpected && normalizeOutput(outcome.Stdout) != normalizeOutput(expected) {
		return execution.VerdictWrongAnswer
	}
	return execution.VerdictAccepted
}

// classifyStderr is the per-language heuristic for interpreted languages,
// where there is no separate compile phase and a syntax error surfaces as a
// nonzero exit at run time. Compiled languages never reach this: their
// compile errors are detected by the driver's phase signal. The heuristic is
// deliberately confined to this one function so it can be replaced with
// per-language exit-code conventions without touching the coordinator.
func classifyStderr(lang execution.Language, stderr string) bool {
	switch lang {
	case execution.LanguagePython:
		return strings.Contains(stderr, "SyntaxError") ||
			strings.Contains(stderr, "IndentationError") ||
			strings.Contains(stderr, "TabError")
	default:
		return false
	}
}

// normalizeOutput strips trailing whitespace per line and trailing blank
// lines before comparison, so answers do not fail on formatting that judges
// conventionally ignore.
func normalizeOutput(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t\r")
	}
	out := strings.Join(lines, "\n")
	return strings.TrimRight(out, "\n")
}
