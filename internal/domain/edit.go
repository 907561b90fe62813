package domain

import "github.com/google/uuid"

// ProposedEdit is one requested identity change, held in memory until the
// batch it belongs to is submitted.
type ProposedEdit struct {
	AgentID       uuid.UUID
	OriginalName  string
	OriginalPhone string
	NewName       string
	NewPhone      string
}

// IsNoOp reports whether the edit leaves both identity attributes unchanged.
// No-op edits are dropped before validation and never reach persistence.
func (e ProposedEdit) IsNoOp() bool {
	return e.NewName == e.OriginalName && e.NewPhone == e.OriginalPhone
}

// EditBatch is the operator-facing unit of atomicity: every edit submitted
// together shares one fresh batch identifier.
type EditBatch struct {
	BatchID uuid.UUID
	Edits   []ProposedEdit
}

// ValidationError aggregates every rejection reason for a single agent in a
// prospective batch. It is never persisted.
type ValidationError struct {
	AgentID   uuid.UUID
	AgentName string
	Reasons   []string
}
