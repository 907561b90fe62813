package agentedit

import (
	"errors"

	"github.com/mnjoroge/rentdash/internal/domain"

	"github.com/google/uuid"
)

// Business-rule rejections surfaced by the undo path. These are expected
// outcomes, not faults; callers map them to distinct responses.
var (
	// ErrBatchNotFound means no history rows exist for the batch id.
	ErrBatchNotFound = errors.New("edit batch not found")
	// ErrBatchAlreadyUndone means the batch reached its terminal state earlier.
	ErrBatchAlreadyUndone = errors.New("edit batch already undone")
	// ErrBatchExpired means the undo window has elapsed. Not retryable.
	ErrBatchExpired = errors.New("edit batch is outside the undo window")
	// ErrBatchSuperseded means a newer active batch touches one of this
	// batch's phone numbers, so reverting by phone value would hit records
	// the newer batch owns.
	ErrBatchSuperseded = errors.New("edit batch superseded by a newer edit on the same phone")
)

// errorCollector merges rejection reasons per agent, preserving the order in
// which agents first failed and deduplicating repeated reasons.
type errorCollector struct {
	order   []uuid.UUID
	names   map[uuid.UUID]string
	reasons map[uuid.UUID][]string
}

func newErrorCollector() *errorCollector {
	return &errorCollector{
		names:   map[uuid.UUID]string{},
		reasons: map[uuid.UUID][]string{},
	}
}

func (c *errorCollector) add(agentID uuid.UUID, agentName, reason string) {
	if _, seen := c.reasons[agentID]; !seen {
		c.order = append(c.order, agentID)
		c.names[agentID] = agentName
	}
	for _, existing := range c.reasons[agentID] {
		if existing == reason {
			return
		}
	}
	c.reasons[agentID] = append(c.reasons[agentID], reason)
}

func (c *errorCollector) list() []domain.ValidationError {
	if len(c.order) == 0 {
		return nil
	}
	errs := make([]domain.ValidationError, 0, len(c.order))
	for _, id := range c.order {
		errs = append(errs, domain.ValidationError{
			AgentID:   id,
			AgentName: c.names[id],
			Reasons:   c.reasons[id],
		})
	}
	return errs
}
