// Package mcprt implements the provider.Runtime contract against an MCP
// server. Each spawn opens a fresh client connection and performs the
// initialize handshake; exec calls a configured tool with the command text.
package mcprt

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	mcpclient "github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	mcpprotocol "github.com/mark3labs/mcp-go/mcp"

	"github.com/relayops/relay/internal/domain/agent"
	"github.com/relayops/relay/internal/port/provider"
)

// Transport selects how the client reaches the MCP server.
type Transport string

const (
	TransportStdio          Transport = "stdio"
	TransportSSE            Transport = "sse"
	TransportStreamableHTTP Transport = "streamable-http"
)

// Options configure the MCP runtime.
type Options struct {
	Name      string // registry name
	Transport Transport
	Command   string // stdio: executable to launch
	Args      []string
	Env       map[string]string
	URL       string            // sse / streamable-http endpoint
	Headers   map[string]string // extra HTTP headers
	ExecTool  string            // tool invoked by Exec, default "exec"
}

type mcpSession struct {
	client mcpclient.MCPClient
	inst   *agent.Instance
}

// Runtime hosts sessions backed by one MCP server definition.
type Runtime struct {
	opts Options
	log  *slog.Logger

	mu       sync.Mutex
	sessions map[string]*mcpSession
}

// New creates an MCP runtime.
func New(opts Options, log *slog.Logger) *Runtime {
	if opts.ExecTool == "" {
		opts.ExecTool = "exec"
	}
	if log == nil {
		log = slog.Default()
	}
	return &Runtime{opts: opts, log: log, sessions: make(map[string]*mcpSession)}
}

// Name implements provider.Runtime.
func (r *Runtime) Name() string { return r.opts.Name }

// Spawn opens a client connection and performs the initialize handshake.
func (r *Runtime) Spawn(ctx context.Context, req *agent.SpawnRequest) (*agent.Instance, error) {
	client, err := r.createClient()
	if err != nil {
		return nil, fmt.Errorf("%s spawn: %w: %v", r.opts.Name, provider.ErrSpawnFailed, err)
	}

	initReq := mcpprotocol.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcpprotocol.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcpprotocol.Implementation{
		Name:    "relay",
		Version: "1.0.0",
	}
	initResult, err := client.Initialize(ctx, initReq)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%s spawn: %w: initialize: %v", r.opts.Name, provider.ErrSpawnFailed, err)
	}

	id := uuid.NewString()
	now := time.Now()
	inst := &agent.Instance{
		ID:         id,
		Name:       req.Name,
		Status:     agent.StatusRunning,
		Runtime:    r.opts.Name,
		Provider:   r.opts.Name,
		Model:      req.Model,
		CreatedAt:  now,
		LastActive: now,
		Metadata: map[string]string{
			"server_name":    initResult.ServerInfo.Name,
			"server_version": initResult.ServerInfo.Version,
		},
	}

	r.mu.Lock()
	r.sessions[id] = &mcpSession{client: client, inst: inst}
	r.mu.Unlock()

	r.log.Debug("mcp session opened",
		"agent_id", id,
		"server", initResult.ServerInfo.Name)
	return inst.Clone(), nil
}

// Exec calls the configured exec tool with the command text. A tool-level
// error result maps to ErrExecutionFailed with the tool's message.
func (r *Runtime) Exec(ctx context.Context, agentID, command string) (*agent.ExecResult, error) {
	r.mu.Lock()
	sess, ok := r.sessions[agentID]
	r.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%s exec %s: %w", r.opts.Name, agentID, provider.ErrAgentNotFound)
	}

	callReq := mcpprotocol.CallToolRequest{}
	callReq.Params.Name = r.opts.ExecTool
	callReq.Params.Arguments = map[string]any{"command": command}

	start := time.Now()
	result, err := sess.client.CallTool(ctx, callReq)
	dur := time.Since(start)
	if err != nil {
		return nil, fmt.Errorf("%s exec %s: %w: %v", r.opts.Name, agentID, provider.ErrExecutionFailed, err)
	}

	text := joinTextContent(result.Content)
	if result.IsError {
		return nil, fmt.Errorf("%s exec %s: %w: %s", r.opts.Name, agentID, provider.ErrExecutionFailed, text)
	}

	r.mu.Lock()
	sess.inst.LastActive = time.Now()
	r.mu.Unlock()

	return &agent.ExecResult{
		Stdout:   text,
		ExitCode: 0,
		Duration: dur,
	}, nil
}

// Status reports running for any open session.
func (r *Runtime) Status(_ context.Context, agentID string) (agent.Status, error) {
	r.mu.Lock()
	sess, ok := r.sessions[agentID]
	r.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("%s status %s: %w", r.opts.Name, agentID, provider.ErrAgentNotFound)
	}
	return sess.inst.Status, nil
}

// Kill closes the client connection. Killing an unknown id is a no-op
// success.
func (r *Runtime) Kill(_ context.Context, agentID string) error {
	r.mu.Lock()
	sess, ok := r.sessions[agentID]
	delete(r.sessions, agentID)
	r.mu.Unlock()
	if !ok {
		return nil
	}
	if err := sess.client.Close(); err != nil {
		return fmt.Errorf("%s kill %s: %w", r.opts.Name, agentID, err)
	}
	return nil
}

// createClient builds an mcp-go client for the configured transport.
func (r *Runtime) createClient() (mcpclient.MCPClient, error) {
	switch r.opts.Transport {
	case TransportStdio:
		return mcpclient.NewStdioMCPClient(r.opts.Command, envMapToSlice(r.opts.Env), r.opts.Args...)

	case TransportSSE:
		var opts []transport.ClientOption
		if len(r.opts.Headers) > 0 {
			opts = append(opts, transport.WithHeaders(r.opts.Headers))
		}
		return mcpclient.NewSSEMCPClient(r.opts.URL, opts...)

	case TransportStreamableHTTP:
		var opts []transport.StreamableHTTPCOption
		if len(r.opts.Headers) > 0 {
			opts = append(opts, transport.WithHTTPHeaders(r.opts.Headers))
		}
		return mcpclient.NewStreamableHttpClient(r.opts.URL, opts...)

	default:
		return nil, fmt.Errorf("unsupported transport: %s", r.opts.Transport)
	}
}

// joinTextContent concatenates the text blocks of a tool result.
func joinTextContent(content []mcpprotocol.Content) string {
	var parts []string
	for _, c := range content {
		if tc, ok := c.(mcpprotocol.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// envMapToSlice converts a map to the KEY=VALUE slice format expected by exec.Cmd.
func envMapToSlice(env map[string]string) []string {
	if len(env) == 0 {
		return nil
	}
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	return out
}
