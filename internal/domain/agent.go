package domain

import "github.com/google/uuid"

// AgentIdentity is the canonical (name, phone) pair for a collection agent.
// ID is immutable; name and phone are the mutable attributes that get copied
// into tenant, earning and activity-log records.
type AgentIdentity struct {
	ID    uuid.UUID
	Name  string
	Phone string
}

// IdentityRef is a denormalized (name, phone) snapshot carried by a record
// that is not the agent profile itself.
type IdentityRef struct {
	Name  string
	Phone string
}
