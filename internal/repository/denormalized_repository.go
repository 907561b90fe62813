package repository

import (
	"context"
	"fmt"

	"github.com/mnjoroge/rentdash/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

// snapshotRepository serves any table that carries an agent_name/agent_phone
// snapshot pair. The table name is fixed at construction, never caller input.
type snapshotRepository struct {
	pool  *pgxpool.Pool
	table string
}

// NewTenantRepository wires the tenants collection.
func NewTenantRepository(pool *pgxpool.Pool) DenormalizedRepository {
	return &snapshotRepository{pool: pool, table: "tenants"}
}

// NewEarningsRepository wires the agent_earnings collection.
func NewEarningsRepository(pool *pgxpool.Pool) DenormalizedRepository {
	return &snapshotRepository{pool: pool, table: "agent_earnings"}
}

// NewActivityLogRepository wires the agent_activity_log collection.
func NewActivityLogRepository(pool *pgxpool.Pool) DenormalizedRepository {
	return &snapshotRepository{pool: pool, table: "agent_activity_log"}
}

func (r *snapshotRepository) Collection() string {
	return r.table
}

func (r *snapshotRepository) UpdateByAgentPhone(ctx context.Context, fromPhone, toName, toPhone string) (int64, error) {
	if r.pool == nil {
		return 0, fmt.Errorf("%s repository not initialized", r.table)
	}

	tag, err := r.pool.Exec(
		ctx,
		fmt.Sprintf(`UPDATE %s SET agent_name = $2, agent_phone = $3 WHERE agent_phone = $1`, r.table),
		fromPhone,
		toName,
		toPhone,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to update %s by agent phone: %w", r.table, err)
	}

	return tag.RowsAffected(), nil
}

func (r *snapshotRepository) DistinctIdentities(ctx context.Context) ([]domain.IdentityRef, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("%s repository not initialized", r.table)
	}

	rows, err := r.pool.Query(
		ctx,
		fmt.Sprintf(`SELECT DISTINCT agent_name, agent_phone FROM %s ORDER BY agent_phone`, r.table),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list distinct identities in %s: %w", r.table, err)
	}
	defer rows.Close()

	refs := []domain.IdentityRef{}
	for rows.Next() {
		var ref domain.IdentityRef
		if scanErr := rows.Scan(&ref.Name, &ref.Phone); scanErr != nil {
			return nil, fmt.Errorf("failed to scan identity from %s: %w", r.table, scanErr)
		}
		refs = append(refs, ref)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("failed to iterate identities in %s: %w", r.table, rowsErr)
	}

	return refs, nil
}
