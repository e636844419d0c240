// Package natsrt implements the provider.Runtime contract over a message
// queue: lifecycle calls become request-reply exchanges with a remote worker
// listening on the sessions.{provider}.* subjects.
package natsrt

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/relayops/relay/internal/domain/agent"
	"github.com/relayops/relay/internal/port/messagequeue"
	"github.com/relayops/relay/internal/port/provider"
)

// Runtime dispatches session lifecycle operations to a queue worker.
type Runtime struct {
	name  string
	queue messagequeue.Queue
	log   *slog.Logger
}

// New creates a queue-backed runtime for the worker serving name.
func New(name string, queue messagequeue.Queue, log *slog.Logger) *Runtime {
	if log == nil {
		log = slog.Default()
	}
	return &Runtime{name: name, queue: queue, log: log}
}

// Name implements provider.Runtime.
func (r *Runtime) Name() string { return r.name }

// Spawn asks the worker to create a session.
func (r *Runtime) Spawn(ctx context.Context, req *agent.SpawnRequest) (*agent.Instance, error) {
	var reply messagequeue.SpawnReply
	err := r.roundTrip(ctx, messagequeue.SubjectSessionSpawn, messagequeue.SpawnPayload{
		Name:         req.Name,
		Model:        req.Model,
		Tools:        req.Tools,
		SystemPrompt: req.SystemPrompt,
		WorkDir:      req.WorkDir,
	}, &reply)
	if err != nil {
		return nil, fmt.Errorf("%s spawn: %w: %v", r.name, provider.ErrSpawnFailed, err)
	}
	if reply.Error != "" {
		return nil, fmt.Errorf("%s spawn: %w: %s", r.name, provider.ErrSpawnFailed, reply.Error)
	}

	now := time.Now()
	return &agent.Instance{
		ID:         reply.SessionID,
		Name:       req.Name,
		Status:     mapStatus(reply.Status),
		Runtime:    r.name,
		Provider:   r.name,
		Model:      reply.Model,
		CreatedAt:  now,
		LastActive: now,
	}, nil
}

// Exec runs one command on the worker's session.
func (r *Runtime) Exec(ctx context.Context, agentID, command string) (*agent.ExecResult, error) {
	var reply messagequeue.ExecReply
	err := r.roundTrip(ctx, messagequeue.SubjectSessionExec, messagequeue.ExecPayload{
		SessionID: agentID,
		Command:   command,
	}, &reply)
	if err != nil {
		return nil, fmt.Errorf("%s exec %s: %w: %v", r.name, agentID, provider.ErrExecutionFailed, err)
	}
	if reply.NotFound {
		return nil, fmt.Errorf("%s exec %s: %w", r.name, agentID, provider.ErrAgentNotFound)
	}
	if reply.Error != "" {
		return nil, fmt.Errorf("%s exec %s: %w: %s", r.name, agentID, provider.ErrExecutionFailed, reply.Error)
	}

	res := &agent.ExecResult{
		Stdout:   reply.Stdout,
		Stderr:   reply.Stderr,
		ExitCode: reply.ExitCode,
		Duration: time.Duration(reply.DurationMS) * time.Millisecond,
	}
	if reply.TokensUsed > 0 {
		res.Metadata = map[string]string{"tokens_used": fmt.Sprintf("%d", reply.TokensUsed)}
	}
	return res, nil
}

// Status asks the worker for the session's lifecycle status.
func (r *Runtime) Status(ctx context.Context, agentID string) (agent.Status, error) {
	var reply messagequeue.StatusReply
	err := r.roundTrip(ctx, messagequeue.SubjectSessionStatus, messagequeue.StatusPayload{
		SessionID: agentID,
	}, &reply)
	if err != nil {
		return "", fmt.Errorf("%s status %s: %w", r.name, agentID, err)
	}
	if reply.NotFound {
		return "", fmt.Errorf("%s status %s: %w", r.name, agentID, provider.ErrAgentNotFound)
	}
	if reply.Error != "" {
		return "", fmt.Errorf("%s status %s: %s", r.name, agentID, reply.Error)
	}
	return mapStatus(reply.Status), nil
}

// Kill asks the worker to terminate the session. An unknown session is a
// no-op success.
func (r *Runtime) Kill(ctx context.Context, agentID string) error {
	var reply messagequeue.KillReply
	err := r.roundTrip(ctx, messagequeue.SubjectSessionKill, messagequeue.KillPayload{
		SessionID: agentID,
	}, &reply)
	if err != nil {
		return fmt.Errorf("%s kill %s: %w", r.name, agentID, err)
	}
	if reply.Error != "" {
		return fmt.Errorf("%s kill %s: %s", r.name, agentID, reply.Error)
	}
	return nil
}

// roundTrip marshals payload, performs one request on the provider-scoped
// subject, and unmarshals the reply into out.
func (r *Runtime) roundTrip(ctx context.Context, subjectFmt string, payload, out any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	subject := fmt.Sprintf(subjectFmt, r.name)
	reply, err := r.queue.Request(ctx, subject, data)
	if err != nil {
		return fmt.Errorf("request %s: %w", subject, err)
	}

	if err := json.Unmarshal(reply, out); err != nil {
		return fmt.Errorf("unmarshal reply from %s: %w", subject, err)
	}
	return nil
}

func mapStatus(s string) agent.Status {
	switch s {
	case "pending", "starting":
		return agent.StatusPending
	case "stopped":
		return agent.StatusStopped
	case "error":
		return agent.StatusError
	default:
		return agent.StatusRunning
	}
}
