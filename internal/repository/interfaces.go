package repository

import (
	"context"
	"time"

	"github.com/mnjoroge/rentdash/internal/domain"

	"github.com/google/uuid"
)

// AgentRepository defines the interface for agent profile operations
type AgentRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (domain.AgentIdentity, error)
	// FindByNameExcluding returns the agent whose name matches case-insensitively,
	// skipping excludeID. The second return is false when no such agent exists.
	FindByNameExcluding(ctx context.Context, name string, excludeID uuid.UUID) (domain.AgentIdentity, bool, error)
	// FindByPhoneExcluding is the literal-phone counterpart of FindByNameExcluding.
	FindByPhoneExcluding(ctx context.Context, phone string, excludeID uuid.UUID) (domain.AgentIdentity, bool, error)
	UpdateIdentity(ctx context.Context, id uuid.UUID, name, phone string) error
	List(ctx context.Context) ([]domain.AgentIdentity, error)
}

// DenormalizedRepository is implemented by every collection that carries a
// snapshot agent_name/agent_phone pair (tenants, earnings, activity log).
// The propagator and the reconciliation scanner only ever see this interface.
type DenormalizedRepository interface {
	// Collection names the underlying table, for logs and error messages.
	Collection() string
	// UpdateByAgentPhone rewrites the snapshot pair on every record whose
	// agent_phone equals fromPhone. Touching zero rows is not an error;
	// reverts rely on that to stay idempotent.
	UpdateByAgentPhone(ctx context.Context, fromPhone, toName, toPhone string) (int64, error)
	// DistinctIdentities returns every distinct snapshot pair present in the
	// collection.
	DistinctIdentities(ctx context.Context) ([]domain.IdentityRef, error)
}

// HistoryRepository defines the interface for the append-only agent_edit_history log
type HistoryRepository interface {
	// Record inserts one history row with undone_at unset. Called before any
	// denormalized write for the same edit.
	Record(ctx context.Context, rec domain.HistoryRecord) error
	// ListActive returns records with undone_at unset and edited_at at or
	// after cutoff, newest first.
	ListActive(ctx context.Context, cutoff time.Time) ([]domain.HistoryRecord, error)
	ListByBatch(ctx context.Context, batchID uuid.UUID) ([]domain.HistoryRecord, error)
	// ActiveTouchingPhoneAfter returns active records from other batches that
	// were edited after the given instant and whose old or new phone equals
	// phone. Used to detect a newer rename stacked on the same phone.
	ActiveTouchingPhoneAfter(ctx context.Context, phone string, after time.Time, excludeBatch uuid.UUID) ([]domain.HistoryRecord, error)
	// MarkUndone stamps undone_at on every record in the batch in a single
	// statement and reports how many rows it touched. This is the only
	// mutation a history row ever receives after insert.
	MarkUndone(ctx context.Context, batchID uuid.UUID, when time.Time) (int64, error)
	ListAll(ctx context.Context) ([]domain.HistoryRecord, error)
}
