package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"arbiter/internal/domain/execution"
	"arbiter/internal/ports"
)

const defaultTimeout = 10 * time.Second

var _ ports.RegistryClient = (*Client)(nil)

// Client talks to the worker registry over HTTP. The registry tracks which
// workers exist, which languages they run, and their public keys for verdict
// verification.
type Client struct {
	baseURL string
	http    *http.Client
}

type registrationPayload struct {
	WorkerID       string               `json:"worker_id"`
	PublicKey      string               `json:"public_key"`
	Languages      []execution.Language `json:"languages"`
	MaxConcurrency int                  `json:"max_concurrency"`
}

type heartbeatPayload struct {
	WorkerID   string    `json:"worker_id"`
	Timestamp  time.Time `json:"timestamp"`
	Status     string    `json:"status"`
	ActiveJobs int       `json:"active_jobs"`
}

// NewClient builds a registry client for the given base URL, e.g.
// "http://registry:8080".
func NewClient(baseURL string) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("registry base URL must be provided")
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}, nil
}

// Register announces the worker to the registry.
func (c *Client) Register(ctx context.Context, reg ports.WorkerRegistration) error {
	payload := registrationPayload{
		WorkerID:       reg.WorkerID,
		PublicKey:      reg.PublicKey,
		Languages:      reg.Languages,
		MaxConcurrency: reg.MaxConcurrency,
	}
	return c.post(ctx, "/api/workers/register", payload)
}

// Heartbeat reports worker liveness and current load.
func (c *Client) Heartbeat(ctx context.Context, hb ports.WorkerHeartbeat) error {
	payload := heartbeatPayload{
		WorkerID:   hb.WorkerID,
		Timestamp:  hb.Timestamp,
		Status:     hb.Status,
		ActiveJobs: hb.ActiveJobs,
	}
	return c.post(ctx, "/api/workers/heartbeat", payload)
}

func (c *Client) post(ctx context.Context, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("registry returned %d for %s: %s", resp.StatusCode, path, strings.TrimSpace(string(detail)))
	}
	return nil
}
