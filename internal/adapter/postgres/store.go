package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/relayops/relay/internal/domain/agent"
	"github.com/relayops/relay/internal/domain/routing"
)

// Store implements auditstore.Store using PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// SaveInstance records a spawned instance and the request that produced it.
// Re-saving the same id updates the row.
func (s *Store) SaveInstance(ctx context.Context, inst *agent.Instance, requestID string) error {
	metadata, err := json.Marshal(orEmptyMap(inst.Metadata))
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO agent_instances (id, request_id, name, status, runtime, provider, model, metadata, created_at, last_active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (id) DO UPDATE
		 SET status = EXCLUDED.status, provider = EXCLUDED.provider, runtime = EXCLUDED.runtime,
		     metadata = EXCLUDED.metadata, last_active = EXCLUDED.last_active, updated_at = now()`,
		inst.ID, requestID, inst.Name, string(inst.Status), inst.Runtime, inst.Provider,
		inst.Model, metadata, inst.CreatedAt, inst.LastActive)
	if err != nil {
		return fmt.Errorf("save instance %s: %w", inst.ID, err)
	}
	return nil
}

// UpdateInstanceStatus records a lifecycle transition. Updating an unrecorded
// instance is a no-op, not an error: auditing may have been enabled after the
// instance was spawned.
func (s *Store) UpdateInstanceStatus(ctx context.Context, id string, status agent.Status) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE agent_instances SET status = $2, updated_at = now() WHERE id = $1`,
		id, string(status))
	if err != nil {
		return fmt.Errorf("update instance %s status: %w", id, err)
	}
	return nil
}

// SaveDecision records one routing decision keyed by request id.
func (s *Store) SaveDecision(ctx context.Context, d *routing.Decision) error {
	payload, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshal decision: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO routing_decisions (request_id, provider, strategy, decision, decided_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (request_id) DO UPDATE
		 SET provider = EXCLUDED.provider, strategy = EXCLUDED.strategy,
		     decision = EXCLUDED.decision, decided_at = EXCLUDED.decided_at`,
		d.RequestID, d.Provider, string(d.Strategy), payload, d.DecidedAt)
	if err != nil {
		return fmt.Errorf("save decision %s: %w", d.RequestID, err)
	}
	return nil
}

// GetDecision returns the decision recorded for requestID, or nil if none.
func (s *Store) GetDecision(ctx context.Context, requestID string) (*routing.Decision, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx,
		`SELECT decision FROM routing_decisions WHERE request_id = $1`, requestID).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get decision %s: %w", requestID, err)
	}

	var d routing.Decision
	if err := json.Unmarshal(payload, &d); err != nil {
		return nil, fmt.Errorf("unmarshal decision %s: %w", requestID, err)
	}
	return &d, nil
}

// orEmptyMap ensures JSON serialization produces {} instead of null.
func orEmptyMap(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
