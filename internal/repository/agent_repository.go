package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/mnjoroge/rentdash/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrAgentNotFound is returned when an agent id resolves to no row.
var ErrAgentNotFound = errors.New("agent not found")

type agentRepository struct {
	pool *pgxpool.Pool
}

// NewAgentRepository wires a repository backed by pgxpool.
func NewAgentRepository(pool *pgxpool.Pool) AgentRepository {
	return &agentRepository{pool: pool}
}

func (r *agentRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.AgentIdentity, error) {
	if r.pool == nil {
		return domain.AgentIdentity{}, fmt.Errorf("agent repository not initialized")
	}

	var agent domain.AgentIdentity
	err := r.pool.QueryRow(
		ctx,
		`SELECT id, name, phone FROM agents WHERE id = $1`,
		id,
	).Scan(&agent.ID, &agent.Name, &agent.Phone)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.AgentIdentity{}, ErrAgentNotFound
		}
		return domain.AgentIdentity{}, fmt.Errorf("failed to get agent: %w", err)
	}

	return agent, nil
}

func (r *agentRepository) FindByNameExcluding(ctx context.Context, name string, excludeID uuid.UUID) (domain.AgentIdentity, bool, error) {
	if r.pool == nil {
		return domain.AgentIdentity{}, false, fmt.Errorf("agent repository not initialized")
	}

	var agent domain.AgentIdentity
	err := r.pool.QueryRow(
		ctx,
		`SELECT id, name, phone
		 FROM agents
		 WHERE lower(name) = lower($1) AND id <> $2
		 LIMIT 1`,
		name,
		excludeID,
	).Scan(&agent.ID, &agent.Name, &agent.Phone)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.AgentIdentity{}, false, nil
		}
		return domain.AgentIdentity{}, false, fmt.Errorf("failed to look up agent by name: %w", err)
	}

	return agent, true, nil
}

func (r *agentRepository) FindByPhoneExcluding(ctx context.Context, phone string, excludeID uuid.UUID) (domain.AgentIdentity, bool, error) {
	if r.pool == nil {
		return domain.AgentIdentity{}, false, fmt.Errorf("agent repository not initialized")
	}

	var agent domain.AgentIdentity
	err := r.pool.QueryRow(
		ctx,
		`SELECT id, name, phone
		 FROM agents
		 WHERE phone = $1 AND id <> $2
		 LIMIT 1`,
		phone,
		excludeID,
	).Scan(&agent.ID, &agent.Name, &agent.Phone)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.AgentIdentity{}, false, nil
		}
		return domain.AgentIdentity{}, false, fmt.Errorf("failed to look up agent by phone: %w", err)
	}

	return agent, true, nil
}

func (r *agentRepository) UpdateIdentity(ctx context.Context, id uuid.UUID, name, phone string) error {
	if r.pool == nil {
		return fmt.Errorf("agent repository not initialized")
	}

	tag, err := r.pool.Exec(
		ctx,
		`UPDATE agents SET name = $2, phone = $3 WHERE id = $1`,
		id,
		name,
		phone,
	)
	if err != nil {
		return fmt.Errorf("failed to update agent identity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAgentNotFound
	}

	return nil
}

func (r *agentRepository) List(ctx context.Context) ([]domain.AgentIdentity, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("agent repository not initialized")
	}

	rows, err := r.pool.Query(ctx, `SELECT id, name, phone FROM agents ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list agents: %w", err)
	}
	defer rows.Close()

	agents := []domain.AgentIdentity{}
	for rows.Next() {
		var agent domain.AgentIdentity
		if scanErr := rows.Scan(&agent.ID, &agent.Name, &agent.Phone); scanErr != nil {
			return nil, fmt.Errorf("failed to scan agent: %w", scanErr)
		}
		agents = append(agents, agent)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("failed to iterate agents: %w", rowsErr)
	}

	return agents, nil
}
