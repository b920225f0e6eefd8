package registry

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// PostgresDurableStore is the authoritative document store for agent
// registrations, partitioned by agent_id (its primary key). Grounded on
// original_source's agent-registry/storage/cosmos_store.py shape (one
// document per agent_id) adapted to the relational schema in
// pkg/database/migrations, following the plain-pgx style of
// pkg/database/client.go rather than an ORM.
type PostgresDurableStore struct {
	db *sql.DB
}

// NewPostgresDurableStore wraps an open *sql.DB (see pkg/database.Client.DB).
func NewPostgresDurableStore(db *sql.DB) *PostgresDurableStore {
	return &PostgresDurableStore{db: db}
}

func (s *PostgresDurableStore) Put(ctx context.Context, reg Registration) error {
	metadata, err := json.Marshal(reg.Metadata)
	if err != nil {
		return fmt.Errorf("registry: marshal metadata for %s: %w", reg.AgentID, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO agents (
			agent_id, agent_name, agent_type, version, capabilities,
			endpoint_http, endpoint_health, endpoint_metrics, endpoint_a2a,
			status, tags, metadata, registered_at, last_heartbeat
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		ON CONFLICT (agent_id) DO UPDATE SET
			agent_name = EXCLUDED.agent_name,
			agent_type = EXCLUDED.agent_type,
			version = EXCLUDED.version,
			capabilities = EXCLUDED.capabilities,
			endpoint_http = EXCLUDED.endpoint_http,
			endpoint_health = EXCLUDED.endpoint_health,
			endpoint_metrics = EXCLUDED.endpoint_metrics,
			endpoint_a2a = EXCLUDED.endpoint_a2a,
			status = EXCLUDED.status,
			tags = EXCLUDED.tags,
			metadata = EXCLUDED.metadata,
			last_heartbeat = EXCLUDED.last_heartbeat
	`,
		reg.AgentID, reg.AgentName, string(reg.AgentType), reg.Version, pq.Array(reg.Capabilities),
		reg.Endpoints.HTTP, reg.Endpoints.Health, reg.Endpoints.Metrics, reg.Endpoints.A2A,
		string(reg.Status), pq.Array(reg.Tags), metadata, reg.RegisteredAt, reg.LastHeartbeat,
	)
	if err != nil {
		return fmt.Errorf("registry: durable put %s: %w", reg.AgentID, err)
	}
	return nil
}

func (s *PostgresDurableStore) Get(ctx context.Context, agentID string) (Registration, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT agent_id, agent_name, agent_type, version, capabilities,
		       endpoint_http, endpoint_health, endpoint_metrics, endpoint_a2a,
		       status, tags, metadata, registered_at, last_heartbeat
		FROM agents WHERE agent_id = $1
	`, agentID)
	reg, err := scanRegistration(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return Registration{}, ErrNotFound
	}
	if err != nil {
		return Registration{}, fmt.Errorf("registry: durable get %s: %w", agentID, err)
	}
	return reg, nil
}

func (s *PostgresDurableStore) Delete(ctx context.Context, agentID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM agents WHERE agent_id = $1`, agentID)
	if err != nil {
		return fmt.Errorf("registry: durable delete %s: %w", agentID, err)
	}
	return nil
}

func (s *PostgresDurableStore) List(ctx context.Context) ([]Registration, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT agent_id, agent_name, agent_type, version, capabilities,
		       endpoint_http, endpoint_health, endpoint_metrics, endpoint_a2a,
		       status, tags, metadata, registered_at, last_heartbeat
		FROM agents
	`)
	if err != nil {
		return nil, fmt.Errorf("registry: durable list: %w", err)
	}
	defer rows.Close()

	var out []Registration
	for rows.Next() {
		reg, err := scanRegistration(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("registry: durable list scan: %w", err)
		}
		out = append(out, reg)
	}
	return out, rows.Err()
}

func (s *PostgresDurableStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func scanRegistration(scan func(dest ...any) error) (Registration, error) {
	var reg Registration
	var agentType, status string
	var metadata []byte
	err := scan(
		&reg.AgentID, &reg.AgentName, &agentType, &reg.Version, pq.Array(&reg.Capabilities),
		&reg.Endpoints.HTTP, &reg.Endpoints.Health, &reg.Endpoints.Metrics, &reg.Endpoints.A2A,
		&status, pq.Array(&reg.Tags), &metadata, &reg.RegisteredAt, &reg.LastHeartbeat,
	)
	if err != nil {
		return Registration{}, err
	}
	reg.AgentType = AgentType(agentType)
	reg.Status = Status(status)
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &reg.Metadata); err != nil {
			return Registration{}, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}
	return reg, nil
}
