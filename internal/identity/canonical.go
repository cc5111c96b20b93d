package identity

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"arbiter/internal/domain/execution"
)

// canonicalResult is the signed payload. Field order is fixed by struct
// declaration, numbers are integers, strings are UTF-8, and encoding/json
// emits no insignificant whitespace; the verifier re-marshals the same
// struct and must obtain byte-identical output. Changing this type changes
// the wire contract with the scoring service.
type canonicalResult struct {
	WorkerID     string                `json:"worker_id"`
	SubmissionID string                `json:"submission_id"`
	Verdict      execution.Verdict     `json:"verdict"`
	Score        int                   `json:"score"`
	TimeMillis   int64                 `json:"time_ms"`
	MemoryBytes  int64                 `json:"memory_bytes"`
	TestsPassed  int                   `json:"tests_passed"`
	TestsTotal   int                   `json:"tests_total"`
	Stdout       string                `json:"stdout"`
	Stderr       string                `json:"stderr"`
	Error        string                `json:"error"`
	Tests        []canonicalTestResult `json:"tests"`
}

type canonicalTestResult struct {
	Number      int               `json:"number"`
	Verdict     execution.Verdict `json:"verdict"`
	TimeMillis  int64             `json:"time_ms"`
	MemoryBytes int64             `json:"memory_bytes"`
}

// CanonicalPayload returns the exact byte sequence the worker signs for a
// result, binding it to workerID so a signature cannot be replayed under
// another worker's registration.
func CanonicalPayload(workerID string, result execution.Result) ([]byte, error) {
	payload := canonicalResult{
		WorkerID:     workerID,
		SubmissionID: result.SubmissionID,
		Verdict:      result.Verdict,
		Score:        result.Score,
		TimeMillis:   result.TimeMillis,
		MemoryBytes:  result.MemoryBytes,
		TestsPassed:  result.TestsPassed,
		TestsTotal:   result.TestsTotal,
		Stdout:       result.Stdout,
		Stderr:       result.Stderr,
		Error:        result.Error,
		Tests:        make([]canonicalTestResult, 0, len(result.Tests)),
	}
	for _, test := range result.Tests {
		payload.Tests = append(payload.Tests, canonicalTestResult{
			Number:      test.Number,
			Verdict:     test.Verdict,
			TimeMillis:  test.TimeMillis,
			MemoryBytes: test.MemoryBytes,
		})
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode canonical payload: %w", err)
	}
	return encoded, nil
}

// Attest signs the result's canonical payload with the worker's private key.
func (id *Identity) Attest(result execution.Result) (execution.SignedResult, error) {
	payload, err := CanonicalPayload(id.workerID, result)
	if err != nil {
		return execution.SignedResult{}, err
	}

	return execution.SignedResult{
		Result:    result,
		WorkerID:  id.workerID,
		Signature: base64.StdEncoding.EncodeToString(id.sign(payload)),
	}, nil
}

// VerifySignedResult checks a signed result against the worker's registered
// public key, reconstructing the canonical payload the way the scoring
// service does.
func VerifySignedResult(publicKeyB64 string, signed execution.SignedResult) error {
	payload, err := CanonicalPayload(signed.WorkerID, signed.Result)
	if err != nil {
		return err
	}
	signature, err := base64.StdEncoding.DecodeString(signed.Signature)
	if err != nil {
		return fmt.Errorf("decode signature: %w", err)
	}
	return Verify(publicKeyB64, payload, signature)
}
