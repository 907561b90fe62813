package agentedit

import (
	"context"
	"fmt"
	"strings"

	"github.com/mnjoroge/rentdash/internal/domain"
	"github.com/mnjoroge/rentdash/internal/logger"
	"github.com/mnjoroge/rentdash/internal/repository"

	"github.com/google/uuid"
)

// ConflictChecker detects collisions between a batch's new identities and
// agents persisted outside the batch. The check reflects the store at call
// time only; two concurrent batches racing on the same phone remain possible
// and are accepted for this low-frequency, human-driven flow.
type ConflictChecker struct {
	agents repository.AgentRepository
	log    logger.Logger
}

// NewConflictChecker creates a ConflictChecker over the agent store.
func NewConflictChecker(agents repository.AgentRepository, log logger.Logger) *ConflictChecker {
	return &ConflictChecker{agents: agents, log: log}
}

// Check looks up every changed name and phone against other persisted agents.
// A lookup that fails twice becomes a blocking "could not verify" reason; the
// checker never lets a failed query pass as clean.
func (c *ConflictChecker) Check(ctx context.Context, edits []domain.ProposedEdit) []domain.ValidationError {
	collector := newErrorCollector()

	for _, edit := range edits {
		if !strings.EqualFold(edit.NewName, edit.OriginalName) {
			other, found, err := c.findByName(ctx, edit.NewName, edit.AgentID)
			switch {
			case err != nil:
				c.log.Warn("name availability lookup failed", "agent_id", edit.AgentID, "error", err)
				collector.add(edit.AgentID, edit.OriginalName,
					fmt.Sprintf("could not verify that name %q is available, please retry", edit.NewName))
			case found:
				collector.add(edit.AgentID, edit.OriginalName,
					fmt.Sprintf("name %q already belongs to agent %s", edit.NewName, other.Name))
			}
		}

		if edit.NewPhone != edit.OriginalPhone {
			other, found, err := c.findByPhone(ctx, edit.NewPhone, edit.AgentID)
			switch {
			case err != nil:
				c.log.Warn("phone availability lookup failed", "agent_id", edit.AgentID, "error", err)
				collector.add(edit.AgentID, edit.OriginalName,
					fmt.Sprintf("could not verify that phone %q is available, please retry", edit.NewPhone))
			case found:
				collector.add(edit.AgentID, edit.OriginalName,
					fmt.Sprintf("phone %q already belongs to agent %s", edit.NewPhone, other.Name))
			}
		}
	}

	return collector.list()
}

// findByName retries a failed lookup once before giving up.
func (c *ConflictChecker) findByName(ctx context.Context, name string, exclude uuid.UUID) (domain.AgentIdentity, bool, error) {
	agent, found, err := c.agents.FindByNameExcluding(ctx, name, exclude)
	if err == nil {
		return agent, found, nil
	}
	return c.agents.FindByNameExcluding(ctx, name, exclude)
}

// findByPhone retries a failed lookup once before giving up.
func (c *ConflictChecker) findByPhone(ctx context.Context, phone string, exclude uuid.UUID) (domain.AgentIdentity, bool, error) {
	agent, found, err := c.agents.FindByPhoneExcluding(ctx, phone, exclude)
	if err == nil {
		return agent, found, nil
	}
	return c.agents.FindByPhoneExcluding(ctx, phone, exclude)
}
