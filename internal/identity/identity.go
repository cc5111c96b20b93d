// Package identity owns the worker's signing keypair and the canonical
// encoding of attested results.
package identity

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const (
	privateKeyFile = "worker_key.pem"
	publicKeyFile  = "worker_key.pub.pem"
	workerIDFile   = "worker_id"

	privatePEMType = "PRIVATE KEY"
	publicPEMType  = "PUBLIC KEY"
)

// Identity is a worker's stable identifier plus its ed25519 keypair. The
// private key never leaves the process; the public half is shared with the
// registry at startup. Keys are never rotated mid-process.
type Identity struct {
	workerID string
	private  ed25519.PrivateKey
	public   ed25519.PublicKey
}

// LoadOrGenerate loads the keypair from dir, generating and persisting a
// fresh one when none exists. workerID overrides the persisted identifier;
// when empty, the stored one is reused or a new UUID is minted and saved.
func LoadOrGenerate(dir, workerID string) (*Identity, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create key directory: %w", err)
	}

	private, err := loadPrivateKey(filepath.Join(dir, privateKeyFile))
	if os.IsNotExist(err) {
		private, err = generateKeypair(dir)
	}
	if err != nil {
		return nil, err
	}

	public, ok := private.Public().(ed25519.PublicKey)
	if !ok {
		return nil, fmt.Errorf("private key is not ed25519")
	}

	id := &Identity{
		private: private,
		public:  public,
	}

	// Prove possession before advertising the key: a worker must never
	// register a public key it cannot sign for.
	probe := []byte("arbiter-key-probe")
	if !ed25519.Verify(public, probe, ed25519.Sign(private, probe)) {
		return nil, fmt.Errorf("keypair self-check failed")
	}

	id.workerID, err = resolveWorkerID(dir, workerID)
	if err != nil {
		return nil, err
	}

	return id, nil
}

// WorkerID returns the stable worker identifier.
func (id *Identity) WorkerID() string {
	return id.workerID
}

// PublicKey returns the raw ed25519 public key, base64-encoded, as
// registered with the registry.
func (id *Identity) PublicKey() string {
	return base64.StdEncoding.EncodeToString(id.public)
}

func (id *Identity) sign(payload []byte) []byte {
	return ed25519.Sign(id.private, payload)
}

// Verify checks a signature against a base64 raw ed25519 public key. It is
// the exact counterpart of the worker's signing; the scoring service runs
// the same check.
func Verify(publicKeyB64 string, payload, signature []byte) error {
	raw, err := base64.StdEncoding.DecodeString(publicKeyB64)
	if err != nil {
		return fmt.Errorf("decode public key: %w", err)
	}
	if len(raw) != ed25519.PublicKeySize {
		return fmt.Errorf("public key has %d bytes, want %d", len(raw), ed25519.PublicKeySize)
	}
	if !ed25519.Verify(ed25519.PublicKey(raw), payload, signature) {
		return fmt.Errorf("signature does not verify")
	}
	return nil
}

func generateKeypair(dir string) (ed25519.PrivateKey, error) {
	_, private, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate keypair: %w", err)
	}

	privDER, err := x509.MarshalPKCS8PrivateKey(private)
	if err != nil {
		return nil, fmt.Errorf("marshal private key: %w", err)
	}
	pubDER, err := x509.MarshalPKIXPublicKey(private.Public())
	if err != nil {
		return nil, fmt.Errorf("marshal public key: %w", err)
	}

	privPEM := pem.EncodeToMemory(&pem.Block{Type: privatePEMType, Bytes: privDER})
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: publicPEMType, Bytes: pubDER})

	if err := os.WriteFile(filepath.Join(dir, privateKeyFile), privPEM, 0o600); err != nil {
		return nil, fmt.Errorf("persist private key: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, publicKeyFile), pubPEM, 0o644); err != nil {
		return nil, fmt.Errorf("persist public key: %w", err)
	}

	return private, nil
}

func loadPrivateKey(path string) (ed25519.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	block, rest := pem.Decode(data)
	if block == nil || block.Type != privatePEMType {
		return nil, fmt.Errorf("%s: no %s block found", path, privatePEMType)
	}
	if len(bytes.TrimSpace(rest)) > 0 {
		return nil, fmt.Errorf("%s: trailing data after PEM block", path)
	}

	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%s: parse private key: %w", path, err)
	}

	private, ok := key.(ed25519.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%s: key is %T, want ed25519", path, key)
	}
	return private, nil
}

func resolveWorkerID(dir, override string) (string, error) {
	if override != "" {
		return override, nil
	}

	path := filepath.Join(dir, workerIDFile)
	data, err := os.ReadFile(path)
	if err == nil {
		if id := strings.TrimSpace(string(data)); id != "" {
			return id, nil
		}
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("read worker id: %w", err)
	}

	id := uuid.NewString()
	if err := os.WriteFile(path, []byte(id+"\n"), 0o644); err != nil {
		return "", fmt.Errorf("persist worker id: %w", err)
	}
	return id, nil
}
