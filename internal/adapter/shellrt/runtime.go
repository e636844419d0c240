// Package shellrt implements the provider.Runtime contract with local shell
// sessions. Each session is a working directory plus environment; commands
// run one at a time under /bin/sh. Useful for development and as the
// zero-dependency fallback provider.
package shellrt

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/relayops/relay/internal/domain/agent"
	"github.com/relayops/relay/internal/port/provider"
)

// Options configure the shell runtime.
type Options struct {
	Name    string            // registry name, default "shell"
	WorkDir string            // base directory for sessions, default os.TempDir()
	Env     map[string]string // extra environment for every session
}

type shellSession struct {
	inst    *agent.Instance
	workDir string
	env     []string
}

// Runtime hosts local shell sessions.
type Runtime struct {
	name    string
	workDir string
	env     []string
	log     *slog.Logger

	mu       sync.Mutex
	sessions map[string]*shellSession
}

// New creates a shell runtime.
func New(opts Options, log *slog.Logger) *Runtime {
	if opts.Name == "" {
		opts.Name = "shell"
	}
	if opts.WorkDir == "" {
		opts.WorkDir = os.TempDir()
	}
	if log == nil {
		log = slog.Default()
	}
	env := os.Environ()
	for k, v := range opts.Env {
		env = append(env, k+"="+v)
	}
	return &Runtime{
		name:     opts.Name,
		workDir:  opts.WorkDir,
		env:      env,
		log:      log,
		sessions: make(map[string]*shellSession),
	}
}

// Name implements provider.Runtime.
func (r *Runtime) Name() string { return r.name }

// Spawn creates a session directory and registers the session.
func (r *Runtime) Spawn(ctx context.Context, req *agent.SpawnRequest) (*agent.Instance, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("shell spawn: %w", err)
	}

	dir := req.WorkDir
	if dir == "" {
		var err error
		dir, err = os.MkdirTemp(r.workDir, "relay-shell-")
		if err != nil {
			return nil, fmt.Errorf("shell spawn: %w: %v", provider.ErrSpawnFailed, err)
		}
	}

	id := uuid.NewString()
	now := time.Now()
	inst := &agent.Instance{
		ID:         id,
		Name:       req.Name,
		Status:     agent.StatusRunning,
		Runtime:    r.name,
		Provider:   r.name,
		Model:      req.Model,
		CreatedAt:  now,
		LastActive: now,
		Metadata:   map[string]string{"work_dir": dir},
	}

	r.mu.Lock()
	r.sessions[id] = &shellSession{inst: inst, workDir: dir, env: r.env}
	r.mu.Unlock()

	r.log.Debug("shell session created", "agent_id", id, "work_dir", dir)
	return inst.Clone(), nil
}

// Exec runs command under /bin/sh in the session's working directory.
// A non-zero exit is a successful execution with a non-zero ExitCode; only
// transport and deadline problems are errors.
func (r *Runtime) Exec(ctx context.Context, agentID, command string) (*agent.ExecResult, error) {
	r.mu.Lock()
	sess, ok := r.sessions[agentID]
	r.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("shell exec %s: %w", agentID, provider.ErrAgentNotFound)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", command) //nolint:gosec // G204: running caller commands is the contract
	cmd.Dir = sess.workDir
	cmd.Env = sess.env
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	dur := time.Since(start)

	if ctx.Err() != nil {
		return nil, fmt.Errorf("shell exec %s: %w", agentID, ctx.Err())
	}

	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			return nil, fmt.Errorf("shell exec %s: %w: %v", agentID, provider.ErrExecutionFailed, err)
		}
	}

	r.mu.Lock()
	sess.inst.LastActive = time.Now()
	r.mu.Unlock()

	return &agent.ExecResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: exitCode,
		Duration: dur,
	}, nil
}

// Status reports running for any live session.
func (r *Runtime) Status(_ context.Context, agentID string) (agent.Status, error) {
	r.mu.Lock()
	sess, ok := r.sessions[agentID]
	r.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("shell status %s: %w", agentID, provider.ErrAgentNotFound)
	}
	return sess.inst.Status, nil
}

// Kill removes the session. Killing an unknown id is a no-op success.
func (r *Runtime) Kill(_ context.Context, agentID string) error {
	r.mu.Lock()
	delete(r.sessions, agentID)
	r.mu.Unlock()
	return nil
}
