package agentedit

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/mnjoroge/rentdash/internal/domain"
	"github.com/mnjoroge/rentdash/internal/repository"

	"github.com/google/uuid"
)

type stubAgentRepo struct {
	agents map[uuid.UUID]domain.AgentIdentity

	nameLookups  int
	phoneLookups int
	updateCalls  int

	// failLookups makes the next N name/phone lookups fail with lookupErr.
	failLookups int
	lookupErr   error

	updateErr error
}

func newStubAgentRepo(agents ...domain.AgentIdentity) *stubAgentRepo {
	repo := &stubAgentRepo{agents: map[uuid.UUID]domain.AgentIdentity{}}
	for _, agent := range agents {
		repo.agents[agent.ID] = agent
	}
	return repo
}

func (r *stubAgentRepo) GetByID(_ context.Context, id uuid.UUID) (domain.AgentIdentity, error) {
	agent, ok := r.agents[id]
	if !ok {
		return domain.AgentIdentity{}, repository.ErrAgentNotFound
	}
	return agent, nil
}

func (r *stubAgentRepo) FindByNameExcluding(_ context.Context, name string, excludeID uuid.UUID) (domain.AgentIdentity, bool, error) {
	r.nameLookups++
	if r.failLookups > 0 {
		r.failLookups--
		return domain.AgentIdentity{}, false, r.lookupErr
	}
	for _, agent := range r.agents {
		if agent.ID != excludeID && strings.EqualFold(agent.Name, name) {
			return agent, true, nil
		}
	}
	return domain.AgentIdentity{}, false, nil
}

func (r *stubAgentRepo) FindByPhoneExcluding(_ context.Context, phone string, excludeID uuid.UUID) (domain.AgentIdentity, bool, error) {
	r.phoneLookups++
	if r.failLookups > 0 {
		r.failLookups--
		return domain.AgentIdentity{}, false, r.lookupErr
	}
	for _, agent := range r.agents {
		if agent.ID != excludeID && agent.Phone == phone {
			return agent, true, nil
		}
	}
	return domain.AgentIdentity{}, false, nil
}

func (r *stubAgentRepo) UpdateIdentity(_ context.Context, id uuid.UUID, name, phone string) error {
	r.updateCalls++
	if r.updateErr != nil {
		return r.updateErr
	}
	agent, ok := r.agents[id]
	if !ok {
		return repository.ErrAgentNotFound
	}
	agent.Name = name
	agent.Phone = phone
	r.agents[id] = agent
	return nil
}

func (r *stubAgentRepo) List(_ context.Context) ([]domain.AgentIdentity, error) {
	agents := make([]domain.AgentIdentity, 0, len(r.agents))
	for _, agent := range r.agents {
		agents = append(agents, agent)
	}
	sort.Slice(agents, func(a, b int) bool { return agents[a].Name < agents[b].Name })
	return agents, nil
}

// stubDenormRepo holds one snapshot pair per row.
type stubDenormRepo struct {
	name string
	rows []domain.IdentityRef

	updateCalls int
	// failOnCall makes the Nth (1-based) UpdateByAgentPhone call fail once.
	failOnCall int
	failErr    error
}

func newStubDenormRepo(name string, rows ...domain.IdentityRef) *stubDenormRepo {
	return &stubDenormRepo{name: name, rows: rows}
}

func (r *stubDenormRepo) Collection() string { return r.name }

func (r *stubDenormRepo) UpdateByAgentPhone(_ context.Context, fromPhone, toName, toPhone string) (int64, error) {
	r.updateCalls++
	if r.failOnCall == r.updateCalls {
		return 0, r.failErr
	}
	var touched int64
	for i := range r.rows {
		if r.rows[i].Phone == fromPhone {
			r.rows[i].Name = toName
			r.rows[i].Phone = toPhone
			touched++
		}
	}
	return touched, nil
}

func (r *stubDenormRepo) DistinctIdentities(_ context.Context) ([]domain.IdentityRef, error) {
	seen := map[domain.IdentityRef]bool{}
	refs := []domain.IdentityRef{}
	for _, row := range r.rows {
		if !seen[row] {
			seen[row] = true
			refs = append(refs, row)
		}
	}
	return refs, nil
}

type stubHistoryRepo struct {
	records []domain.HistoryRecord

	recordErr error
	markErr   error
	markCalls int
}

func (r *stubHistoryRepo) Record(_ context.Context, rec domain.HistoryRecord) error {
	if r.recordErr != nil {
		return r.recordErr
	}
	r.records = append(r.records, rec)
	return nil
}

func (r *stubHistoryRepo) ListActive(_ context.Context, cutoff time.Time) ([]domain.HistoryRecord, error) {
	active := []domain.HistoryRecord{}
	for _, rec := range r.records {
		if rec.UndoneAt == nil && !rec.EditedAt.Before(cutoff) {
			active = append(active, rec)
		}
	}
	sort.Slice(active, func(a, b int) bool { return active[a].EditedAt.After(active[b].EditedAt) })
	return active, nil
}

func (r *stubHistoryRepo) ListByBatch(_ context.Context, batchID uuid.UUID) ([]domain.HistoryRecord, error) {
	records := []domain.HistoryRecord{}
	for _, rec := range r.records {
		if rec.BatchID == batchID {
			records = append(records, rec)
		}
	}
	sort.Slice(records, func(a, b int) bool { return records[a].EditedAt.Before(records[b].EditedAt) })
	return records, nil
}

func (r *stubHistoryRepo) ActiveTouchingPhoneAfter(_ context.Context, phone string, after time.Time, excludeBatch uuid.UUID) ([]domain.HistoryRecord, error) {
	matches := []domain.HistoryRecord{}
	for _, rec := range r.records {
		if rec.UndoneAt != nil || rec.BatchID == excludeBatch || !rec.EditedAt.After(after) {
			continue
		}
		if rec.OldPhone == phone || rec.NewPhone == phone {
			matches = append(matches, rec)
		}
	}
	return matches, nil
}

func (r *stubHistoryRepo) MarkUndone(_ context.Context, batchID uuid.UUID, when time.Time) (int64, error) {
	r.markCalls++
	if r.markErr != nil {
		return 0, r.markErr
	}
	var touched int64
	for i := range r.records {
		if r.records[i].BatchID == batchID && r.records[i].UndoneAt == nil {
			stamp := when
			r.records[i].UndoneAt = &stamp
			touched++
		}
	}
	return touched, nil
}

func (r *stubHistoryRepo) ListAll(_ context.Context) ([]domain.HistoryRecord, error) {
	all := make([]domain.HistoryRecord, len(r.records))
	copy(all, r.records)
	sort.Slice(all, func(a, b int) bool { return all[a].EditedAt.After(all[b].EditedAt) })
	return all, nil
}
