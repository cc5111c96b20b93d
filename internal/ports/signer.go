package ports

import "arbiter/internal/domain/execution"

// ResultSigner attests results with the worker's identity. The verification
// half runs in the scoring service; signer and verifier must reconstruct the
// exact same canonical byte sequence or every signature mismatches.
type ResultSigner interface {
	WorkerID() string
	PublicKey() string
	Attest(result execution.Result) (execution.SignedResult, error)
}
