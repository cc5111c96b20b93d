package kafka

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"arbiter/internal/domain/execution"
)

const (
	messageTypeJob  = "job"
	messageTypeDone = "done"

	// maxSourceBytes bounds submitted source size; anything larger is
	// rejected before it reaches a sandbox.
	maxSourceBytes = 256 * 1024
)

type jobEnvelope struct {
	Type          string             `json:"type,omitempty"`
	SubmissionID  string             `json:"submission_id"`
	ProblemID     string             `json:"problem_id,omitempty"`
	Language      string             `json:"language"`
	Source        string             `json:"source"`
	TimeLimitMs   int64              `json:"time_limit_ms,omitempty"`
	MemoryLimitMB int64              `json:"memory_limit_mb,omitempty"`
	Tests         []testCaseEnvelope `json:"tests,omitempty"`
}

type testCaseEnvelope struct {
	Number         int    `json:"number"`
	Input          string `json:"input"`
	ExpectedOutput string `json:"expected_output"`
}

type signedResultEnvelope struct {
	SubmissionID string                `json:"submission_id"`
	Verdict      execution.Verdict     `json:"verdict"`
	Score        int                   `json:"score"`
	TimeMs       int64                 `json:"time_ms"`
	MemoryBytes  int64                 `json:"memory_bytes"`
	TestsPassed  int                   `json:"tests_passed"`
	TestsTotal   int                   `json:"tests_total"`
	Stdout       string                `json:"stdout,omitempty"`
	Stderr       string                `json:"stderr,omitempty"`
	Error        string                `json:"error,omitempty"`
	Tests        []testVerdictEnvelope `json:"tests,omitempty"`
	WorkerID     string                `json:"worker_id"`
	Signature    string                `json:"signature"`
	Timestamp    time.Time             `json:"timestamp"`
}

type testVerdictEnvelope struct {
	Number      int               `json:"number"`
	Verdict     execution.Verdict `json:"verdict"`
	TimeMs      int64             `json:"time_ms"`
	MemoryBytes int64             `json:"memory_bytes"`
}

func decodeJobMessage(msg kafkago.Message) (execution.Job, error) {
	var envelope jobEnvelope
	if err := json.Unmarshal(msg.Value, &envelope); err != nil {
		return execution.Job{}, fmt.Errorf("decode message: %w", err)
	}

	msgType := envelope.Type
	if msgType == "" {
		msgType = messageTypeJob
	}

	switch msgType {
	case messageTypeJob:
		return envelope.toJob(msg)
	case messageTypeDone:
		return execution.Job{}, io.EOF
	default:
		return execution.Job{}, fmt.Errorf("unknown message type %q", msgType)
	}
}

func (e jobEnvelope) toJob(msg kafkago.Message) (execution.Job, error) {
	submissionID := e.SubmissionID
	if submissionID == "" {
		submissionID = string(msg.Key)
	}
	if submissionID == "" {
		return execution.Job{}, fmt.Errorf("job message missing submission id")
	}

	job := execution.Job{
		SubmissionID: submissionID,
		ProblemID:    e.ProblemID,
		Source:       e.Source,
		Limits:       e.toLimits(),
		Tests:        e.toTests(),
	}

	lang, err := execution.ParseLanguage(e.Language)
	if err != nil {
		// An unrecognized language still flows through as a job carrying the
		// raw value: the submission gets a signed SYSTEM_ERROR verdict
		// instead of the message stalling the poll loop as a source failure.
		job.Language = execution.Language(e.Language)
		return job, nil
	}
	job.Language = lang

	if e.Source == "" {
		return execution.Job{}, fmt.Errorf("job message missing source")
	}
	if len(e.Source) > maxSourceBytes {
		return execution.Job{}, fmt.Errorf("job source exceeds %d bytes", maxSourceBytes)
	}
	return job, nil
}

func (e jobEnvelope) toLimits() execution.RunLimits {
	var limits execution.RunLimits
	if e.TimeLimitMs > 0 {
		limits.TimeLimit = time.Duration(e.TimeLimitMs) * time.Millisecond
	}
	if e.MemoryLimitMB > 0 {
		limits.MemoryLimitBytes = e.MemoryLimitMB * 1024 * 1024
	}
	return limits
}

func (e jobEnvelope) toTests() []execution.TestCase {
	if len(e.Tests) == 0 {
		return nil
	}

	tests := make([]execution.TestCase, len(e.Tests))
	for idx, test := range e.Tests {
		number := test.Number
		if number <= 0 {
			number = idx + 1
		}
		tests[idx] = execution.TestCase{
			Number:         number,
			Input:          test.Input,
			ExpectedOutput: test.ExpectedOutput,
		}
	}
	return tests
}

func encodeSignedResult(signed execution.SignedResult) ([]byte, error) {
	result := signed.Result

	envelope := signedResultEnvelope{
		SubmissionID: result.SubmissionID,
		Verdict:      result.Verdict,
		Score:        result.Score,
		TimeMs:       result.TimeMillis,
		MemoryBytes:  result.MemoryBytes,
		TestsPassed:  result.TestsPassed,
		TestsTotal:   result.TestsTotal,
		Stdout:       result.Stdout,
		Stderr:       result.Stderr,
		Error:        result.Error,
		WorkerID:     signed.WorkerID,
		Signature:    signed.Signature,
		Timestamp:    time.Now().UTC(),
	}
	for _, test := range result.Tests {
		envelope.Tests = append(envelope.Tests, testVerdictEnvelope{
			Number:      test.Number,
			Verdict:     test.Verdict,
			TimeMs:      test.TimeMillis,
			MemoryBytes: test.MemoryBytes,
		})
	}

	payload, err := json.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("marshal signed result: %w", err)
	}
	return payload, nil
}
