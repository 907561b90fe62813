package domain

import (
	"time"

	"github.com/google/uuid"
)

// HistoryRecord is the persisted audit entry for one edited agent in one
// batch. Records are written before any denormalized copy is touched and are
// immutable afterwards, with one exception: UndoneAt is set exactly once when
// the batch is reverted.
type HistoryRecord struct {
	ID       uuid.UUID
	BatchID  uuid.UUID
	AgentID  uuid.UUID
	OldName  string
	OldPhone string
	NewName  string
	NewPhone string
	EditedBy string
	EditedAt time.Time
	UndoneAt *time.Time
}

// Undone reports whether the record has reached its terminal state.
func (r HistoryRecord) Undone() bool {
	return r.UndoneAt != nil
}

// ExpiresAt returns the instant after which the record's batch can no longer
// be undone.
func (r HistoryRecord) ExpiresAt(window time.Duration) time.Time {
	return r.EditedAt.Add(window)
}
