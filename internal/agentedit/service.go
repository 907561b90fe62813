package agentedit

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mnjoroge/rentdash/internal/domain"
	"github.com/mnjoroge/rentdash/internal/logger"
	"github.com/mnjoroge/rentdash/internal/metrics"
	"github.com/mnjoroge/rentdash/internal/repository"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

// Service is the entry point the transport layer talks to. It chains the
// validator, the conflict checker, the propagator and the undo engine, and
// shapes their output into API views.
type Service struct {
	validator  *Validator
	conflicts  *ConflictChecker
	propagator *Propagator
	undoEngine *UndoEngine
	history    repository.HistoryRepository
	metrics    *metrics.Metrics
	log        logger.Logger
	now        func() time.Time
}

// NewService wires the full edit pipeline.
func NewService(
	validator *Validator,
	conflicts *ConflictChecker,
	propagator *Propagator,
	undoEngine *UndoEngine,
	history repository.HistoryRepository,
	m *metrics.Metrics,
	log logger.Logger,
) *Service {
	return &Service{
		validator:  validator,
		conflicts:  conflicts,
		propagator: propagator,
		undoEngine: undoEngine,
		history:    history,
		metrics:    m,
		log:        log,
		now:        time.Now,
	}
}

// AgentError is the API shape of a per-agent rejection.
type AgentError struct {
	AgentID   uuid.UUID `json:"agentId"`
	AgentName string    `json:"agentName"`
	Reasons   []string  `json:"reasons"`
}

// SubmitResult reports the outcome of a batch submission. When Errors is
// non-empty nothing was written and the other fields are zero.
type SubmitResult struct {
	BatchID      uuid.UUID    `json:"batchId"`
	AppliedCount int          `json:"appliedCount"`
	Errors       []AgentError `json:"errors,omitempty"`
}

// RecordView is the API shape of one history record.
type RecordView struct {
	RecordID uuid.UUID  `json:"recordId"`
	BatchID  uuid.UUID  `json:"batchId"`
	AgentID  uuid.UUID  `json:"agentId"`
	OldName  string     `json:"oldName"`
	OldPhone string     `json:"oldPhone"`
	NewName  string     `json:"newName"`
	NewPhone string     `json:"newPhone"`
	EditedBy string     `json:"editedBy"`
	EditedAt time.Time  `json:"editedAt"`
	UndoneAt *time.Time `json:"undoneAt,omitempty"`
}

// BatchView is one undoable batch with its derived display fields.
type BatchView struct {
	BatchID        uuid.UUID    `json:"batchId"`
	EditedBy       string       `json:"editedBy"`
	EditedAt       time.Time    `json:"editedAt"`
	AgentCount     int          `json:"agentCount"`
	Expired        bool         `json:"expired"`
	HoursRemaining int          `json:"hoursRemaining"`
	Records        []RecordView `json:"records"`
}

// UndoResult reports a completed undo.
type UndoResult struct {
	BatchID       uuid.UUID `json:"batchId"`
	RevertedCount int       `json:"revertedCount"`
}

// SubmitBatch validates the proposed edits and, if the whole batch is clean,
// applies them one at a time under a fresh batch id. Any validation or
// conflict error rejects the entire batch before a single write. A mid-batch
// propagation failure is returned as an error; the edits applied up to that
// point stay applied and their history rows make them discoverable.
func (s *Service) SubmitBatch(ctx context.Context, edits []domain.ProposedEdit, editedBy string) (SubmitResult, error) {
	editedBy = strings.TrimSpace(editedBy)
	if editedBy == "" {
		return SubmitResult{}, fmt.Errorf("editedBy is required")
	}

	edits = FilterNoOps(edits)
	if len(edits) == 0 {
		return SubmitResult{}, nil
	}

	if verrs := s.validator.Validate(edits); len(verrs) > 0 {
		s.metrics.BatchesRejected.WithLabelValues("validation").Inc()
		return SubmitResult{Errors: toAgentErrors(verrs)}, nil
	}

	if cerrs := s.conflicts.Check(ctx, edits); len(cerrs) > 0 {
		s.metrics.BatchesRejected.WithLabelValues("conflict").Inc()
		return SubmitResult{Errors: toAgentErrors(cerrs)}, nil
	}

	batchID := uuid.New()
	applied := 0
	for _, edit := range edits {
		timer := prometheus.NewTimer(s.metrics.PropagationDuration)
		_, err := s.propagator.Apply(ctx, batchID, edit, editedBy)
		timer.ObserveDuration()
		if err != nil {
			s.metrics.PropagationFailures.Inc()
			s.log.Error("batch submission failed mid-propagation",
				"batch_id", batchID,
				"applied", applied,
				"total", len(edits),
				"error", err,
			)
			return SubmitResult{BatchID: batchID, AppliedCount: applied},
				fmt.Errorf("batch %s failed after applying %d of %d edits: %w", batchID, applied, len(edits), err)
		}
		applied++
		s.metrics.EditsApplied.Inc()
	}

	s.metrics.BatchesSubmitted.Inc()
	s.log.Info("edit batch applied", "batch_id", batchID, "edits", applied, "edited_by", editedBy)
	return SubmitResult{BatchID: batchID, AppliedCount: applied}, nil
}

// ListUndoableBatches returns the active batches inside the window, newest
// first, annotated with the derived expiry fields.
func (s *Service) ListUndoableBatches(ctx context.Context, windowHours int) ([]BatchView, error) {
	window := s.undoEngine.Window()
	if windowHours > 0 {
		window = time.Duration(windowHours) * time.Hour
	}

	now := s.now()
	records, err := s.history.ListActive(ctx, now.Add(-window))
	if err != nil {
		return nil, fmt.Errorf("failed to list undoable batches: %w", err)
	}

	return groupIntoBatches(records, now, window), nil
}

// UndoBatch reverts a batch through the undo engine.
func (s *Service) UndoBatch(ctx context.Context, batchID uuid.UUID) (UndoResult, error) {
	reverted, err := s.undoEngine.Undo(ctx, batchID)
	if err != nil {
		s.metrics.UndoRejected.WithLabelValues(undoRejectionReason(err)).Inc()
		return UndoResult{}, err
	}

	s.metrics.BatchesUndone.Inc()
	s.metrics.EditsReverted.Add(float64(reverted))
	return UndoResult{BatchID: batchID, RevertedCount: reverted}, nil
}

// ExportAllHistory returns every history record ever written, for audit and
// reporting. Shaping the export file is the caller's concern.
func (s *Service) ExportAllHistory(ctx context.Context) ([]RecordView, error) {
	records, err := s.history.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to export history: %w", err)
	}

	views := make([]RecordView, len(records))
	for i, rec := range records {
		views[i] = toRecordView(rec)
	}
	return views, nil
}

func undoRejectionReason(err error) string {
	switch {
	case errors.Is(err, ErrBatchNotFound):
		return "not_found"
	case errors.Is(err, ErrBatchAlreadyUndone):
		return "already_undone"
	case errors.Is(err, ErrBatchExpired):
		return "expired"
	case errors.Is(err, ErrBatchSuperseded):
		return "superseded"
	default:
		return "failure"
	}
}

func toAgentErrors(errs []domain.ValidationError) []AgentError {
	out := make([]AgentError, len(errs))
	for i, e := range errs {
		out[i] = AgentError{AgentID: e.AgentID, AgentName: e.AgentName, Reasons: e.Reasons}
	}
	return out
}

func toRecordView(rec domain.HistoryRecord) RecordView {
	return RecordView{
		RecordID: rec.ID,
		BatchID:  rec.BatchID,
		AgentID:  rec.AgentID,
		OldName:  rec.OldName,
		OldPhone: rec.OldPhone,
		NewName:  rec.NewName,
		NewPhone: rec.NewPhone,
		EditedBy: rec.EditedBy,
		EditedAt: rec.EditedAt,
		UndoneAt: rec.UndoneAt,
	}
}

// groupIntoBatches folds history records into per-batch views. A batch's
// display timestamp is its earliest record, so the derived expiry is never
// more generous than the strictest record in the batch.
func groupIntoBatches(records []domain.HistoryRecord, now time.Time, window time.Duration) []BatchView {
	index := map[uuid.UUID]int{}
	batches := []BatchView{}

	for _, rec := range records {
		i, seen := index[rec.BatchID]
		if !seen {
			i = len(batches)
			index[rec.BatchID] = i
			batches = append(batches, BatchView{
				BatchID:  rec.BatchID,
				EditedBy: rec.EditedBy,
				EditedAt: rec.EditedAt,
			})
		}
		if rec.EditedAt.Before(batches[i].EditedAt) {
			batches[i].EditedAt = rec.EditedAt
		}
		batches[i].Records = append(batches[i].Records, toRecordView(rec))
	}

	for i := range batches {
		batches[i].AgentCount = len(batches[i].Records)
		batches[i].HoursRemaining = HoursRemaining(batches[i].EditedAt, now, window)
		batches[i].Expired = batches[i].HoursRemaining == 0
	}

	sort.SliceStable(batches, func(a, b int) bool {
		return batches[a].EditedAt.After(batches[b].EditedAt)
	})

	return batches
}
