package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/mnjoroge/rentdash/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type historyRepository struct {
	pool *pgxpool.Pool
}

// NewHistoryRepository wires a repository backed by pgxpool.
func NewHistoryRepository(pool *pgxpool.Pool) HistoryRepository {
	return &historyRepository{pool: pool}
}

const historyColumns = `id, edit_batch_id, agent_id, old_name, old_phone, new_name, new_phone, edited_by, edited_at, undone_at`

func (r *historyRepository) Record(ctx context.Context, rec domain.HistoryRecord) error {
	if r.pool == nil {
		return fmt.Errorf("history repository not initialized")
	}

	_, err := r.pool.Exec(
		ctx,
		`INSERT INTO agent_edit_history
		   (id, edit_batch_id, agent_id, old_name, old_phone, new_name, new_phone, edited_by, edited_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rec.ID,
		rec.BatchID,
		rec.AgentID,
		rec.OldName,
		rec.OldPhone,
		rec.NewName,
		rec.NewPhone,
		rec.EditedBy,
		rec.EditedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record edit history: %w", err)
	}

	return nil
}

func (r *historyRepository) ListActive(ctx context.Context, cutoff time.Time) ([]domain.HistoryRecord, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("history repository not initialized")
	}

	rows, err := r.pool.Query(
		ctx,
		`SELECT `+historyColumns+`
		 FROM agent_edit_history
		 WHERE undone_at IS NULL AND edited_at >= $1
		 ORDER BY edited_at DESC`,
		cutoff,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list active history: %w", err)
	}
	defer rows.Close()

	return scanHistoryRows(rows)
}

func (r *historyRepository) ListByBatch(ctx context.Context, batchID uuid.UUID) ([]domain.HistoryRecord, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("history repository not initialized")
	}

	rows, err := r.pool.Query(
		ctx,
		`SELECT `+historyColumns+`
		 FROM agent_edit_history
		 WHERE edit_batch_id = $1
		 ORDER BY edited_at`,
		batchID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list batch history: %w", err)
	}
	defer rows.Close()

	return scanHistoryRows(rows)
}

func (r *historyRepository) ActiveTouchingPhoneAfter(ctx context.Context, phone string, after time.Time, excludeBatch uuid.UUID) ([]domain.HistoryRecord, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("history repository not initialized")
	}

	rows, err := r.pool.Query(
		ctx,
		`SELECT `+historyColumns+`
		 FROM agent_edit_history
		 WHERE undone_at IS NULL
		   AND edit_batch_id <> $3
		   AND edited_at > $2
		   AND (old_phone = $1 OR new_phone = $1)
		 ORDER BY edited_at DESC`,
		phone,
		after,
		excludeBatch,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to look up history touching phone: %w", err)
	}
	defer rows.Close()

	return scanHistoryRows(rows)
}

func (r *historyRepository) MarkUndone(ctx context.Context, batchID uuid.UUID, when time.Time) (int64, error) {
	if r.pool == nil {
		return 0, fmt.Errorf("history repository not initialized")
	}

	tag, err := r.pool.Exec(
		ctx,
		`UPDATE agent_edit_history
		 SET undone_at = $2
		 WHERE edit_batch_id = $1 AND undone_at IS NULL`,
		batchID,
		when,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to mark batch undone: %w", err)
	}

	return tag.RowsAffected(), nil
}

func (r *historyRepository) ListAll(ctx context.Context) ([]domain.HistoryRecord, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("history repository not initialized")
	}

	rows, err := r.pool.Query(
		ctx,
		`SELECT `+historyColumns+`
		 FROM agent_edit_history
		 ORDER BY edited_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list edit history: %w", err)
	}
	defer rows.Close()

	return scanHistoryRows(rows)
}

func scanHistoryRows(rows pgx.Rows) ([]domain.HistoryRecord, error) {
	records := []domain.HistoryRecord{}
	for rows.Next() {
		var (
			rec      domain.HistoryRecord
			editedAt pgtype.Timestamptz
			undoneAt pgtype.Timestamptz
		)
		if scanErr := rows.Scan(
			&rec.ID,
			&rec.BatchID,
			&rec.AgentID,
			&rec.OldName,
			&rec.OldPhone,
			&rec.NewName,
			&rec.NewPhone,
			&rec.EditedBy,
			&editedAt,
			&undoneAt,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan history record: %w", scanErr)
		}

		if editedAt.Valid {
			rec.EditedAt = editedAt.Time
		}
		if undoneAt.Valid {
			when := undoneAt.Time
			rec.UndoneAt = &when
		}

		records = append(records, rec)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("failed to iterate history records: %w", rowsErr)
	}

	return records, nil
}
