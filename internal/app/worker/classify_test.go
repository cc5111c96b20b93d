package worker

import (
	"testing"
	"time"

	"arbiter/internal/domain/execution"
)

func TestClassifyRunPriorityOrder(t *testing.T) {
	t.Parallel()

	limits := execution.RunLimits{
		TimeLimit:        time.Second,
		MemoryLimitBytes: 1024,
	}

	cases := []struct {
		name        string
		outcome     execution.Outcome
		lang        execution.Language
		expected    string
		hasExpected bool
		want        execution.Verdict
	}{
		{
			name:    "timeout wins over oom",
			outcome: execution.Outcome{TimedOut: true, OOMKilled: true, ExitCode: -1},
			lang:    execution.LanguagePython,
			want:    execution.VerdictTimeLimitExceeded,
		},
		{
			name:    "measured duration breach",
			outcome: execution.Outcome{Duration: 2 * time.Second},
			lang:    execution.LanguagePython,
			want:    execution.VerdictTimeLimitExceeded,
		},
		{
			name:    "oom wins over crash",
			outcome: execution.Outcome{OOMKilled: true, ExitCode: 137},
			lang:    execution.LanguagePython,
			want:    execution.VerdictMemoryLimitExceeded,
		},
		{
			name:    "measured memory breach",
			outcome: execution.Outcome{PeakMemoryBytes: 2048},
			lang:    execution.LanguagePython,
			want:    execution.VerdictMemoryLimitExceeded,
		},
		{
			name:    "python syntax error",
			outcome: execution.Outcome{ExitCode: 1, Stderr: "  File \"main.py\", line 1\nSyntaxError: invalid syntax"},
			lang:    execution.LanguagePython,
			want:    execution.VerdictCompilationError,
		},
		{
			name:    "python runtime crash",
			outcome: execution.Outcome{ExitCode: 1, Stderr: "ZeroDivisionError: division by zero"},
			lang:    execution.LanguagePython,
			want:    execution.VerdictRuntimeError,
		},
		{
			name:    "compiled crash never maps to compile error",
			outcome: execution.Outcome{ExitCode: 2, Stderr: "SyntaxError lookalike"},
			lang:    execution.LanguageGo,
			want:    execution.VerdictRuntimeError,
		},
		{
			name:        "wrong answer",
			outcome:     execution.Outcome{Stdout: "41\n"},
			lang:        execution.LanguagePython,
			expected:    "42\n",
			hasExpected: true,
			want:        execution.VerdictWrongAnswer,
		},
		{
			name:        "accepted ignores trailing whitespace",
			outcome:     execution.Outcome{Stdout: "42 \n\n"},
			lang:        execution.LanguagePython,
			expected:    "42",
			hasExpected: true,
			want:        execution.VerdictAccepted,
		},
		{
			name:    "accepted without expectation",
			outcome: execution.Outcome{Stdout: "anything"},
			lang:    execution.LanguagePython,
			want:    execution.VerdictAccepted,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := classifyRun(&tc.outcome, limits, tc.lang, tc.expected, tc.hasExpected)
			if got != tc.want {
				t.Fatalf("classifyRun = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestNormalizeOutput(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"a\nb\n":        "a\nb",
		"a \t\nb\r\n\n": "a\nb",
		"":              "",
		"\n\n":          "",
		"a\n\nb":        "a\n\nb",
	}

	for input, want := range cases {
		if got := normalizeOutput(input); got != want {
			t.Fatalf("normalizeOutput(%q) = %q, want %q", input, got, want)
		}
	}
}
