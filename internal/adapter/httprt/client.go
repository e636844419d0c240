// Package httprt implements the provider.Runtime contract against a remote
// session API over HTTP. The remote service owns the sessions; this adapter
// only translates lifecycle calls into REST requests.
package httprt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/relayops/relay/internal/domain/agent"
	"github.com/relayops/relay/internal/port/provider"
	"github.com/relayops/relay/internal/resilience"
)

// Options configure the HTTP runtime client.
type Options struct {
	Name    string // registry name
	BaseURL string // e.g. https://provider.example.com
	Token   string // bearer token, optional
	Timeout time.Duration
}

// Client talks to a remote session API.
type Client struct {
	name       string
	baseURL    string
	token      string
	httpClient *http.Client
	breaker    *resilience.Breaker
}

// New creates an HTTP runtime client. Outgoing requests carry OpenTelemetry
// trace propagation.
func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return &Client{
		name:    opts.Name,
		baseURL: opts.BaseURL,
		token:   opts.Token,
		httpClient: &http.Client{
			Timeout:   opts.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// SetBreaker attaches a circuit breaker to all outgoing HTTP calls.
func (c *Client) SetBreaker(b *resilience.Breaker) {
	c.breaker = b
}

// Name implements provider.Runtime.
func (c *Client) Name() string { return c.name }

type sessionPayload struct {
	Name         string            `json:"name"`
	Model        string            `json:"model,omitempty"`
	SystemPrompt string            `json:"system_prompt,omitempty"`
	WorkDir      string            `json:"work_dir,omitempty"`
	Tools        []string          `json:"tools,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

type sessionResponse struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	Model     string    `json:"model,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type execResponse struct {
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
	ExitCode   int    `json:"exit_code"`
	DurationMS int64  `json:"duration_ms"`
}

// Spawn creates a remote session.
func (c *Client) Spawn(ctx context.Context, req *agent.SpawnRequest) (*agent.Instance, error) {
	body, err := json.Marshal(sessionPayload{
		Name:         req.Name,
		Model:        req.Model,
		SystemPrompt: req.SystemPrompt,
		WorkDir:      req.WorkDir,
		Tools:        req.Tools,
	})
	if err != nil {
		return nil, fmt.Errorf("%s spawn: marshal: %w", c.name, err)
	}

	data, err := c.doRequest(ctx, http.MethodPost, "/v1/sessions", body)
	if err != nil {
		return nil, fmt.Errorf("%s spawn: %w: %v", c.name, provider.ErrSpawnFailed, err)
	}

	var sr sessionResponse
	if err := json.Unmarshal(data, &sr); err != nil {
		return nil, fmt.Errorf("%s spawn: unmarshal: %w", c.name, err)
	}

	created := sr.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	return &agent.Instance{
		ID:         sr.ID,
		Name:       req.Name,
		Status:     mapStatus(sr.Status),
		Runtime:    c.name,
		Provider:   c.name,
		Model:      sr.Model,
		CreatedAt:  created,
		LastActive: time.Now(),
	}, nil
}

// Exec runs one command on a remote session.
func (c *Client) Exec(ctx context.Context, agentID, command string) (*agent.ExecResult, error) {
	body, err := json.Marshal(map[string]string{"command": command})
	if err != nil {
		return nil, fmt.Errorf("%s exec: marshal: %w", c.name, err)
	}

	data, err := c.doRequest(ctx, http.MethodPost, "/v1/sessions/"+agentID+"/exec", body)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%s exec %s: %w", c.name, agentID, provider.ErrAgentNotFound)
		}
		return nil, fmt.Errorf("%s exec %s: %w: %v", c.name, agentID, provider.ErrExecutionFailed, err)
	}

	var er execResponse
	if err := json.Unmarshal(data, &er); err != nil {
		return nil, fmt.Errorf("%s exec: unmarshal: %w", c.name, err)
	}
	return &agent.ExecResult{
		Stdout:   er.Stdout,
		Stderr:   er.Stderr,
		ExitCode: er.ExitCode,
		Duration: time.Duration(er.DurationMS) * time.Millisecond,
	}, nil
}

// Status reports the remote session's lifecycle status.
func (c *Client) Status(ctx context.Context, agentID string) (agent.Status, error) {
	data, err := c.doRequest(ctx, http.MethodGet, "/v1/sessions/"+agentID, nil)
	if err != nil {
		if isNotFound(err) {
			return "", fmt.Errorf("%s status %s: %w", c.name, agentID, provider.ErrAgentNotFound)
		}
		return "", fmt.Errorf("%s status %s: %w", c.name, agentID, err)
	}

	var sr sessionResponse
	if err := json.Unmarshal(data, &sr); err != nil {
		return "", fmt.Errorf("%s status: unmarshal: %w", c.name, err)
	}
	return mapStatus(sr.Status), nil
}

// Kill terminates the remote session. A 404 means the session is already
// gone and is treated as success.
func (c *Client) Kill(ctx context.Context, agentID string) error {
	if _, err := c.doRequest(ctx, http.MethodDelete, "/v1/sessions/"+agentID, nil); err != nil {
		if isNotFound(err) {
			return nil
		}
		return fmt.Errorf("%s kill %s: %w", c.name, agentID, err)
	}
	return nil
}

// apiError carries the remote status code so callers can classify.
type apiError struct {
	status int
	body   string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("session API error %d: %s", e.status, e.body)
}

func isNotFound(err error) bool {
	var ae *apiError
	return errors.As(err, &ae) && ae.status == http.StatusNotFound
}

func mapStatus(s string) agent.Status {
	switch s {
	case "pending", "starting":
		return agent.StatusPending
	case "stopped", "terminated":
		return agent.StatusStopped
	case "error", "failed":
		return agent.StatusError
	default:
		return agent.StatusRunning
	}
}

func (c *Client) doRequest(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var result []byte
	call := func() error {
		var bodyReader io.Reader
		if body != nil {
			bodyReader = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}

		req.Header.Set("Content-Type", "application/json")
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("http request: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}

		if resp.StatusCode >= 400 {
			return &apiError{status: resp.StatusCode, body: string(data)}
		}

		result = data
		return nil
	}

	if c.breaker != nil {
		if err := c.breaker.Execute(call); err != nil {
			return nil, err
		}
		return result, nil
	}

	if err := call(); err != nil {
		return nil, err
	}
	return result, nil
}
