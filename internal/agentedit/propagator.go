package agentedit

import (
	"context"
	"fmt"
	"time"

	"github.com/mnjoroge/rentdash/internal/domain"
	"github.com/mnjoroge/rentdash/internal/logger"
	"github.com/mnjoroge/rentdash/internal/repository"

	"github.com/google/uuid"
)

// Propagator pushes one identity change through the agent profile and every
// collection holding a denormalized copy. There is no cross-collection
// transaction; the guarantees here are ordering guarantees. The history row
// is always written first, so a crash mid-propagation leaves a discoverable
// record of the intent rather than a silent inconsistency.
type Propagator struct {
	agents  repository.AgentRepository
	history repository.HistoryRepository
	derived []repository.DenormalizedRepository
	log     logger.Logger
	now     func() time.Time
}

// NewPropagator wires a propagator over the agent store, the history log and
// the denormalized collections, updated in the order given.
func NewPropagator(
	agents repository.AgentRepository,
	history repository.HistoryRepository,
	derived []repository.DenormalizedRepository,
	log logger.Logger,
) *Propagator {
	return &Propagator{
		agents:  agents,
		history: history,
		derived: derived,
		log:     log,
		now:     time.Now,
	}
}

// Apply runs the forward direction for one edit: history row, then the agent
// profile, then each denormalized collection keyed by the edit's original
// phone. On failure the already-completed steps stay in place and the
// remaining steps are skipped; a blind retry could double-apply a step that
// had already succeeded, so recovery is left to the reconciliation pass.
func (p *Propagator) Apply(ctx context.Context, batchID uuid.UUID, edit domain.ProposedEdit, editedBy string) (domain.HistoryRecord, error) {
	rec := domain.HistoryRecord{
		ID:       uuid.New(),
		BatchID:  batchID,
		AgentID:  edit.AgentID,
		OldName:  edit.OriginalName,
		OldPhone: edit.OriginalPhone,
		NewName:  edit.NewName,
		NewPhone: edit.NewPhone,
		EditedBy: editedBy,
		EditedAt: p.now().UTC(),
	}

	if err := p.history.Record(ctx, rec); err != nil {
		return rec, fmt.Errorf("failed to record history for agent %s: %w", edit.AgentID, err)
	}

	if err := p.agents.UpdateIdentity(ctx, edit.AgentID, edit.NewName, edit.NewPhone); err != nil {
		return rec, fmt.Errorf("failed to update agent %s: %w", edit.AgentID, err)
	}

	for _, collection := range p.derived {
		touched, err := collection.UpdateByAgentPhone(ctx, edit.OriginalPhone, edit.NewName, edit.NewPhone)
		if err != nil {
			return rec, fmt.Errorf("failed to propagate edit for agent %s into %s: %w",
				edit.AgentID, collection.Collection(), err)
		}
		p.log.Debug("propagated identity change",
			"agent_id", edit.AgentID,
			"collection", collection.Collection(),
			"rows", touched,
		)
	}

	return rec, nil
}

// Revert runs the reverse direction for one history record. The denormalized
// copies carry no agent id, so they are matched by the phone value they hold
// now, the record's new phone. Reverting is idempotent: a copy already back
// at the old value simply matches zero rows, which lets a failed undo be
// retried from the top.
func (p *Propagator) Revert(ctx context.Context, rec domain.HistoryRecord) error {
	if err := p.agents.UpdateIdentity(ctx, rec.AgentID, rec.OldName, rec.OldPhone); err != nil {
		return fmt.Errorf("failed to restore agent %s: %w", rec.AgentID, err)
	}

	for _, collection := range p.derived {
		touched, err := collection.UpdateByAgentPhone(ctx, rec.NewPhone, rec.OldName, rec.OldPhone)
		if err != nil {
			return fmt.Errorf("failed to revert edit for agent %s in %s: %w",
				rec.AgentID, collection.Collection(), err)
		}
		p.log.Debug("reverted identity change",
			"agent_id", rec.AgentID,
			"collection", collection.Collection(),
			"rows", touched,
		)
	}

	return nil
}
