package reconcile

import (
	"context"
	"fmt"

	"github.com/mnjoroge/rentdash/internal/domain"
	"github.com/mnjoroge/rentdash/internal/logger"
	"github.com/mnjoroge/rentdash/internal/metrics"
	"github.com/mnjoroge/rentdash/internal/repository"
)

// Finding is one denormalized identity pair that contradicts the live agent
// set. Orphan: the phone matches no live agent. Name drift: the phone matches
// but the name does not.
type Finding struct {
	Collection string `json:"collection"`
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	LiveName   string `json:"liveName,omitempty"`
}

// Report is the outcome of one consistency scan.
type Report struct {
	Orphans   []Finding `json:"orphans"`
	NameDrift []Finding `json:"nameDrift"`
}

// Clean reports whether the scan found nothing to flag.
func (r Report) Clean() bool {
	return len(r.Orphans) == 0 && len(r.NameDrift) == 0
}

// Scanner detects partially-applied edits after the fact. Propagation writes
// its history row before touching any copy, so an edit that died partway
// leaves copies whose phone matches no live agent, or whose name contradicts
// the live agent holding that phone. The scanner only reports; repairing a
// half-applied edit is a human decision.
type Scanner struct {
	agents  repository.AgentRepository
	derived []repository.DenormalizedRepository
	metrics *metrics.Metrics
	log     logger.Logger
}

// NewScanner wires a scanner over the agent store and the denormalized
// collections.
func NewScanner(
	agents repository.AgentRepository,
	derived []repository.DenormalizedRepository,
	m *metrics.Metrics,
	log logger.Logger,
) *Scanner {
	return &Scanner{agents: agents, derived: derived, metrics: m, log: log}
}

// Scan walks every distinct denormalized identity pair and classifies it
// against the live agent set.
func (s *Scanner) Scan(ctx context.Context) (Report, error) {
	agents, err := s.agents.List(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("failed to list agents for reconciliation: %w", err)
	}

	byPhone := map[string]domain.AgentIdentity{}
	for _, agent := range agents {
		byPhone[agent.Phone] = agent
	}

	report := Report{Orphans: []Finding{}, NameDrift: []Finding{}}
	for _, collection := range s.derived {
		refs, err := collection.DistinctIdentities(ctx)
		if err != nil {
			return Report{}, fmt.Errorf("failed to scan %s: %w", collection.Collection(), err)
		}

		for _, ref := range refs {
			live, ok := byPhone[ref.Phone]
			if !ok {
				report.Orphans = append(report.Orphans, Finding{
					Collection: collection.Collection(),
					Name:       ref.Name,
					Phone:      ref.Phone,
				})
				continue
			}
			if live.Name != ref.Name {
				report.NameDrift = append(report.NameDrift, Finding{
					Collection: collection.Collection(),
					Name:       ref.Name,
					Phone:      ref.Phone,
					LiveName:   live.Name,
				})
			}
		}
	}

	s.metrics.ReconcileOrphans.Set(float64(len(report.Orphans)))
	s.metrics.ReconcileNameDrift.Set(float64(len(report.NameDrift)))

	for _, finding := range report.Orphans {
		s.log.Warn("orphaned agent identity copy",
			"collection", finding.Collection,
			"name", finding.Name,
			"phone", finding.Phone,
		)
	}
	for _, finding := range report.NameDrift {
		s.log.Warn("agent identity copy contradicts live agent",
			"collection", finding.Collection,
			"name", finding.Name,
			"phone", finding.Phone,
			"live_name", finding.LiveName,
		)
	}

	if report.Clean() {
		s.log.Info("reconciliation scan clean")
	}

	return report, nil
}
