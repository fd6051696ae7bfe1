package enrich

import (
	"testing"

	"triagekit/internal/domain"
)

func TestBuildReasoningPrimaryReason(t *testing.T) {
	e := New(nil, seeded(1))

	assigned := domain.Incident{ID: "ESC-2025-000900", AssignedTo: "Exchange Online"}
	e.buildReasoning(&assigned)
	if got := assigned.RoutingReasoning.PrimaryReason; got != "Routed to Exchange Online" {
		t.Errorf("primaryReason = %q", got)
	}

	unassigned := domain.Incident{ID: "ESC-2025-000901"}
	e.buildReasoning(&unassigned)
	if got := unassigned.RoutingReasoning.PrimaryReason; got != patternReason {
		t.Errorf("primaryReason = %q", got)
	}

	preset := domain.Incident{
		ID:               "ESC-2025-000902",
		AssignedTo:       "Teams",
		RoutingReasoning: &domain.RoutingReasoning{PrimaryReason: "Monitor: TeamsHealthCheck"},
	}
	e.buildReasoning(&preset)
	if got := preset.RoutingReasoning.PrimaryReason; got != "Monitor: TeamsHealthCheck" {
		t.Errorf("primaryReason = %q", got)
	}
	if got := preset.RoutingReasoning.Factors; len(got) != 2 || got[0] != "Monitor: TeamsHealthCheck" || got[1] != "Team: Teams" {
		t.Errorf("factors = %v", got)
	}
}
