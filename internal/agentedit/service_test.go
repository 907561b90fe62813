package agentedit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mnjoroge/rentdash/internal/domain"
	"github.com/mnjoroge/rentdash/internal/logger"
	"github.com/mnjoroge/rentdash/internal/metrics"
	"github.com/mnjoroge/rentdash/internal/repository"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

type serviceFixture struct {
	service  *Service
	agents   *stubAgentRepo
	tenants  *stubDenormRepo
	earnings *stubDenormRepo
	activity *stubDenormRepo
	history  *stubHistoryRepo
}

func newServiceFixture(t *testing.T, agents ...domain.AgentIdentity) *serviceFixture {
	t.Helper()

	f := &serviceFixture{
		agents:   newStubAgentRepo(agents...),
		tenants:  newStubDenormRepo("tenants"),
		earnings: newStubDenormRepo("agent_earnings"),
		activity: newStubDenormRepo("agent_activity_log"),
		history:  &stubHistoryRepo{},
	}

	log := logger.NewNop()
	derived := []repository.DenormalizedRepository{f.tenants, f.earnings, f.activity}
	propagator := NewPropagator(f.agents, f.history, derived, log)
	undoEngine := NewUndoEngine(f.history, propagator, DefaultUndoWindow, log)
	f.service = NewService(
		NewValidator(),
		NewConflictChecker(f.agents, log),
		propagator,
		undoEngine,
		f.history,
		metrics.New(prometheus.NewRegistry()),
		log,
	)
	return f
}

func (f *serviceFixture) seedCopies(name, phone string) {
	f.tenants.rows = append(f.tenants.rows, domain.IdentityRef{Name: name, Phone: phone})
	f.earnings.rows = append(f.earnings.rows, domain.IdentityRef{Name: name, Phone: phone})
	f.activity.rows = append(f.activity.rows, domain.IdentityRef{Name: name, Phone: phone})
}

func TestSubmitBatchAppliesCleanEdits(t *testing.T) {
	agent := domain.AgentIdentity{ID: uuid.New(), Name: "JOHN", Phone: "0700"}
	f := newServiceFixture(t, agent)
	f.seedCopies("JOHN", "0700")

	result, err := f.service.SubmitBatch(context.Background(), []domain.ProposedEdit{{
		AgentID:       agent.ID,
		OriginalName:  "JOHN",
		OriginalPhone: "0700",
		NewName:       "JOHNNY",
		NewPhone:      "0700",
	}}, "admin@rentdash")
	if err != nil {
		t.Fatalf("submit returned error: %v", err)
	}

	if result.AppliedCount != 1 {
		t.Fatalf("expected 1 applied edit, got %d", result.AppliedCount)
	}
	if result.BatchID == uuid.Nil {
		t.Fatalf("expected a fresh batch id")
	}
	if got := f.agents.agents[agent.ID]; got.Name != "JOHNNY" || got.Phone != "0700" {
		t.Fatalf("agent not updated: %+v", got)
	}
	if f.tenants.rows[0].Name != "JOHNNY" || f.tenants.rows[0].Phone != "0700" {
		t.Fatalf("tenant copy not updated: %+v", f.tenants.rows[0])
	}
	if len(f.history.records) != 1 || f.history.records[0].EditedBy != "admin@rentdash" {
		t.Fatalf("unexpected history: %+v", f.history.records)
	}
}

func TestSubmitBatchExcludesNoOps(t *testing.T) {
	agent := domain.AgentIdentity{ID: uuid.New(), Name: "JOHN", Phone: "0700"}
	f := newServiceFixture(t, agent)

	result, err := f.service.SubmitBatch(context.Background(), []domain.ProposedEdit{{
		AgentID:       agent.ID,
		OriginalName:  "JOHN",
		OriginalPhone: "0700",
		NewName:       "JOHN",
		NewPhone:      "0700",
	}}, "admin@rentdash")
	if err != nil {
		t.Fatalf("submit returned error: %v", err)
	}

	if result.AppliedCount != 0 {
		t.Fatalf("expected no applied edits, got %d", result.AppliedCount)
	}
	if len(f.history.records) != 0 {
		t.Fatalf("no-op edits must produce no history, got %d records", len(f.history.records))
	}
}

func TestSubmitBatchValidationRejectsWithoutWrites(t *testing.T) {
	agent := domain.AgentIdentity{ID: uuid.New(), Name: "JOHN", Phone: "0700"}
	f := newServiceFixture(t, agent)

	result, err := f.service.SubmitBatch(context.Background(), []domain.ProposedEdit{{
		AgentID:       agent.ID,
		OriginalName:  "JOHN",
		OriginalPhone: "0700",
		NewName:       "",
		NewPhone:      "0700",
	}}, "admin@rentdash")
	if err != nil {
		t.Fatalf("submit returned error: %v", err)
	}

	if len(result.Errors) != 1 {
		t.Fatalf("expected validation errors, got %+v", result)
	}
	if len(f.history.records) != 0 || f.agents.updateCalls != 0 || f.tenants.updateCalls != 0 {
		t.Fatalf("rejected batch must not write anywhere")
	}
}

func TestSubmitBatchConflictBlocksWholeBatch(t *testing.T) {
	agentA := domain.AgentIdentity{ID: uuid.New(), Name: "JOHN", Phone: "0700"}
	agentB := domain.AgentIdentity{ID: uuid.New(), Name: "GRACE", Phone: "0733"}
	outsider := domain.AgentIdentity{ID: uuid.New(), Name: "PETER", Phone: "0755"}
	f := newServiceFixture(t, agentA, agentB, outsider)

	result, err := f.service.SubmitBatch(context.Background(), []domain.ProposedEdit{
		{
			AgentID:       agentA.ID,
			OriginalName:  "JOHN",
			OriginalPhone: "0700",
			NewName:       "JOHN",
			NewPhone:      "0755", // collides with outsider
		},
		{
			AgentID:       agentB.ID,
			OriginalName:  "GRACE",
			OriginalPhone: "0733",
			NewName:       "GRACIE", // clean edit
			NewPhone:      "0733",
		},
	}, "admin@rentdash")
	if err != nil {
		t.Fatalf("submit returned error: %v", err)
	}

	if len(result.Errors) != 1 || result.Errors[0].AgentID != agentA.ID {
		t.Fatalf("expected a conflict error for agent A, got %+v", result.Errors)
	}
	// The clean edit must not sneak through.
	if got := f.agents.agents[agentB.ID]; got.Name != "GRACE" {
		t.Fatalf("clean edit applied despite batch rejection: %+v", got)
	}
	if len(f.history.records) != 0 {
		t.Fatalf("rejected batch must not write history")
	}
}

func TestSubmitBatchRequiresEditedBy(t *testing.T) {
	f := newServiceFixture(t)

	if _, err := f.service.SubmitBatch(context.Background(), nil, "   "); err == nil {
		t.Fatalf("expected error for missing editedBy")
	}
}

func TestSubmitBatchPartialFailureKeepsHistory(t *testing.T) {
	agent := domain.AgentIdentity{ID: uuid.New(), Name: "JOHN", Phone: "0700"}
	f := newServiceFixture(t, agent)
	f.earnings.failOnCall = 1
	f.earnings.failErr = errors.New("earnings unavailable")

	result, err := f.service.SubmitBatch(context.Background(), []domain.ProposedEdit{{
		AgentID:       agent.ID,
		OriginalName:  "JOHN",
		OriginalPhone: "0700",
		NewName:       "JOHNNY",
		NewPhone:      "0700",
	}}, "admin@rentdash")
	if err == nil {
		t.Fatalf("expected batch-level failure")
	}

	if result.AppliedCount != 0 {
		t.Fatalf("failed edit must not count as applied, got %d", result.AppliedCount)
	}
	// The history row written before propagation makes the inconsistency
	// discoverable.
	if len(f.history.records) != 1 {
		t.Fatalf("expected history record for the failed edit, got %d", len(f.history.records))
	}
}

func TestSubmitThenUndoRoundTrip(t *testing.T) {
	agent := domain.AgentIdentity{ID: uuid.New(), Name: "JOHN", Phone: "0700"}
	f := newServiceFixture(t, agent)
	f.seedCopies("JOHN", "0700")

	result, err := f.service.SubmitBatch(context.Background(), []domain.ProposedEdit{{
		AgentID:       agent.ID,
		OriginalName:  "JOHN",
		OriginalPhone: "0700",
		NewName:       "JOHNNY",
		NewPhone:      "0711",
	}}, "admin@rentdash")
	if err != nil {
		t.Fatalf("submit returned error: %v", err)
	}

	undo, err := f.service.UndoBatch(context.Background(), result.BatchID)
	if err != nil {
		t.Fatalf("undo returned error: %v", err)
	}
	if undo.RevertedCount != 1 {
		t.Fatalf("expected 1 reverted record, got %d", undo.RevertedCount)
	}

	if got := f.agents.agents[agent.ID]; got.Name != "JOHN" || got.Phone != "0700" {
		t.Fatalf("agent not back at pre-edit identity: %+v", got)
	}
	if f.tenants.rows[0].Name != "JOHN" || f.tenants.rows[0].Phone != "0700" {
		t.Fatalf("tenant copy not back at pre-edit identity: %+v", f.tenants.rows[0])
	}
	if f.earnings.rows[0].Phone != "0700" || f.activity.rows[0].Phone != "0700" {
		t.Fatalf("denormalized copies not back at pre-edit identity")
	}

	batches, err := f.service.ListUndoableBatches(context.Background(), 0)
	if err != nil {
		t.Fatalf("list returned error: %v", err)
	}
	for _, batch := range batches {
		if batch.BatchID == result.BatchID {
			t.Fatalf("undone batch still listed as undoable")
		}
	}
}

func TestListUndoableBatchesGroupsAndAnnotates(t *testing.T) {
	f := newServiceFixture(t)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	f.service.now = func() time.Time { return now }

	older := uuid.New()
	newer := uuid.New()
	f.history.records = []domain.HistoryRecord{
		{ID: uuid.New(), BatchID: older, AgentID: uuid.New(), OldName: "JOHN", OldPhone: "0700",
			NewName: "JOHNNY", NewPhone: "0711", EditedBy: "admin@rentdash", EditedAt: now.Add(-20 * time.Hour)},
		{ID: uuid.New(), BatchID: older, AgentID: uuid.New(), OldName: "GRACE", OldPhone: "0733",
			NewName: "GRACIE", NewPhone: "0744", EditedBy: "admin@rentdash", EditedAt: now.Add(-20*time.Hour + time.Second)},
		{ID: uuid.New(), BatchID: newer, AgentID: uuid.New(), OldName: "PETER", OldPhone: "0755",
			NewName: "PETE", NewPhone: "0766", EditedBy: "clerk@rentdash", EditedAt: now.Add(-30 * time.Minute)},
	}

	batches, err := f.service.ListUndoableBatches(context.Background(), 0)
	if err != nil {
		t.Fatalf("list returned error: %v", err)
	}

	if len(batches) != 2 {
		t.Fatalf("expected 2 batches, got %d", len(batches))
	}
	if batches[0].BatchID != newer || batches[1].BatchID != older {
		t.Fatalf("expected newest batch first")
	}
	if batches[0].AgentCount != 1 || batches[1].AgentCount != 2 {
		t.Fatalf("wrong agent counts: %d, %d", batches[0].AgentCount, batches[1].AgentCount)
	}
	if batches[0].HoursRemaining != 24 {
		t.Fatalf("expected 24 hours remaining for a 30-minute-old batch, got %d", batches[0].HoursRemaining)
	}
	if batches[1].HoursRemaining != 4 {
		t.Fatalf("expected 4 hours remaining for a 20-hour-old batch, got %d", batches[1].HoursRemaining)
	}
	if batches[0].Expired || batches[1].Expired {
		t.Fatalf("in-window batches must not be flagged expired")
	}
}

func TestExportAllHistoryIncludesUndoneRecords(t *testing.T) {
	f := newServiceFixture(t)
	stamp := time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC)
	f.history.records = []domain.HistoryRecord{
		{ID: uuid.New(), BatchID: uuid.New(), AgentID: uuid.New(), OldName: "JOHN", OldPhone: "0700",
			NewName: "JOHNNY", NewPhone: "0711", EditedBy: "admin@rentdash", EditedAt: stamp, UndoneAt: &stamp},
		{ID: uuid.New(), BatchID: uuid.New(), AgentID: uuid.New(), OldName: "GRACE", OldPhone: "0733",
			NewName: "GRACIE", NewPhone: "0744", EditedBy: "admin@rentdash", EditedAt: stamp.Add(time.Hour)},
	}

	records, err := f.service.ExportAllHistory(context.Background())
	if err != nil {
		t.Fatalf("export returned error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected the full unfiltered dump, got %d records", len(records))
	}
	if records[1].UndoneAt == nil {
		t.Fatalf("expected the undone record to keep its marker")
	}
}
