package agentedit

import (
	"context"
	"fmt"
	"time"

	"github.com/mnjoroge/rentdash/internal/logger"
	"github.com/mnjoroge/rentdash/internal/repository"

	"github.com/google/uuid"
)

// DefaultUndoWindow is how long a batch stays reversible after submission.
const DefaultUndoWindow = 24 * time.Hour

// UndoEngine drives the reversal of a batch. Per batch the lifecycle is
// Active -> Undone (explicit, terminal) or Active -> Expired (derived at read
// time once the window elapses; nothing is written). The window bound is
// exclusive: a batch is undoable while now < editedAt + window and rejected
// at exactly editedAt + window.
type UndoEngine struct {
	history    repository.HistoryRepository
	propagator *Propagator
	window     time.Duration
	log        logger.Logger
	now        func() time.Time
}

// NewUndoEngine creates an UndoEngine with the given reversal window.
func NewUndoEngine(history repository.HistoryRepository, propagator *Propagator, window time.Duration, log logger.Logger) *UndoEngine {
	if window <= 0 {
		window = DefaultUndoWindow
	}
	return &UndoEngine{
		history:    history,
		propagator: propagator,
		window:     window,
		log:        log,
		now:        time.Now,
	}
}

// Window returns the configured reversal window.
func (u *UndoEngine) Window() time.Duration {
	return u.window
}

// Undo reverts every record in the batch and then marks the whole batch
// undone in one statement. If any revert fails the batch is left Active so
// the operation can be retried; individual reverts are idempotent, so records
// already put back during the failed attempt are safe to revert again.
// Returns the number of records reverted.
func (u *UndoEngine) Undo(ctx context.Context, batchID uuid.UUID) (int, error) {
	records, err := u.history.ListByBatch(ctx, batchID)
	if err != nil {
		return 0, fmt.Errorf("failed to load batch %s: %w", batchID, err)
	}
	if len(records) == 0 {
		return 0, ErrBatchNotFound
	}

	now := u.now()
	for _, rec := range records {
		if rec.Undone() {
			return 0, ErrBatchAlreadyUndone
		}
		if !now.Before(rec.ExpiresAt(u.window)) {
			return 0, fmt.Errorf("%w: batch submitted at %s", ErrBatchExpired, rec.EditedAt.Format(time.RFC3339))
		}
	}

	// Copies are matched by phone value, so a newer rename on the same phone
	// would make this batch's reverts land on records the newer batch owns.
	for _, rec := range records {
		newer, lookupErr := u.history.ActiveTouchingPhoneAfter(ctx, rec.NewPhone, rec.EditedAt, batchID)
		if lookupErr != nil {
			return 0, fmt.Errorf("failed to check phone %s for newer edits: %w", rec.NewPhone, lookupErr)
		}
		if len(newer) > 0 {
			return 0, fmt.Errorf("%w: phone %s was edited again at %s",
				ErrBatchSuperseded, rec.NewPhone, newer[0].EditedAt.Format(time.RFC3339))
		}
	}

	reverted := 0
	for _, rec := range records {
		if revertErr := u.propagator.Revert(ctx, rec); revertErr != nil {
			u.log.Error("undo aborted mid-batch",
				"batch_id", batchID,
				"reverted", reverted,
				"total", len(records),
				"error", revertErr,
			)
			return reverted, fmt.Errorf("undo failed after reverting %d of %d records, batch remains undoable: %w",
				reverted, len(records), revertErr)
		}
		reverted++
	}

	if _, markErr := u.history.MarkUndone(ctx, batchID, now.UTC()); markErr != nil {
		// Every copy is back at its old value; only the terminal marker is
		// missing, so a retried undo will no-op through the reverts and try
		// the marker again.
		return reverted, fmt.Errorf("reverted batch %s but failed to mark it undone: %w", batchID, markErr)
	}

	u.log.Info("batch undone", "batch_id", batchID, "records", reverted)
	return reverted, nil
}

// HoursRemaining reports the whole hours left before expiry, rounded up,
// never negative. Display arithmetic only; Undo does its own boundary check.
func HoursRemaining(editedAt, now time.Time, window time.Duration) int {
	remaining := editedAt.Add(window).Sub(now)
	if remaining <= 0 {
		return 0
	}
	hours := int(remaining / time.Hour)
	if remaining%time.Hour != 0 {
		hours++
	}
	return hours
}
