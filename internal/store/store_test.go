package store

import (
	"context"
	"errors"
	"math"
	"testing"

	"triagekit/internal/domain"
)

func newTestStore(t *testing.T) Store {
	t.Helper()
	workspace := t.TempDir()
	conn, err := Open(Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return Store{DB: conn}
}

func confPtr(v float64) *float64 { return &v }

func sampleIncidents() []domain.Incident {
	return []domain.Incident{
		{
			ID:          "ESC-2025-000001",
			Title:       "Exchange outage",
			Description: "mail flow stopped",
			Status:      "critical",
			Priority:    "P0",
			Category:    "Data & Storage",
			AssignedTo:  "Exchange Online",
			RoutingReasoning: &domain.RoutingReasoning{
				PrimaryReason: "Monitor: MailFlow",
				Confidence:    confPtr(0.9),
				Method:        "heuristic_fallback",
			},
			Context:   &domain.IncidentContext{SLAStatus: "At risk"},
			CreatedAt: "2025-05-30T08:00:00Z",
		},
		{
			ID:          "ESC-2025-000002",
			Title:       "Teams degraded",
			Description: "chat delivery slow",
			Status:      "high",
			Priority:    "P1",
			Category:    "Collaboration",
			AssignedTo:  "Teams",
			RoutingReasoning: &domain.RoutingReasoning{
				Confidence: confPtr(0.7),
				Method:     "default",
			},
			Context:   &domain.IncidentContext{SLAStatus: "On track"},
			CreatedAt: "2025-05-30T09:00:00Z",
		},
	}
}

func seedRun(t *testing.T, s Store) Run {
	t.Helper()
	run := NewRun("export.csv", domain.Summary{Enriched: 2, Rejected: 1})
	if err := s.SaveRun(context.Background(), run, sampleIncidents()); err != nil {
		t.Fatalf("save run: %v", err)
	}
	return run
}

func TestSaveAndGet(t *testing.T) {
	s := newTestStore(t)
	seedRun(t, s)

	inc, err := s.Get(context.Background(), "ESC-2025-000001")
	if err != nil {
		t.Fatal(err)
	}
	if inc.Title != "Exchange outage" || inc.AssignedTo != "Exchange Online" {
		t.Fatalf("got %+v", inc)
	}
	if inc.RoutingReasoning == nil || *inc.RoutingReasoning.Confidence != 0.9 {
		t.Fatalf("reasoning not round-tripped: %+v", inc.RoutingReasoning)
	}

	if _, err := s.Get(context.Background(), "ESC-2025-999999"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestSaveRunUpserts(t *testing.T) {
	s := newTestStore(t)
	seedRun(t, s)

	update := sampleIncidents()
	update[0].Status = "high"
	run2 := NewRun("export.csv", domain.Summary{Enriched: 2})
	if err := s.SaveRun(context.Background(), run2, update); err != nil {
		t.Fatal(err)
	}

	inc, err := s.Get(context.Background(), "ESC-2025-000001")
	if err != nil {
		t.Fatal(err)
	}
	if inc.Status != "high" {
		t.Fatalf("status = %q, upsert did not replace", inc.Status)
	}

	all, err := s.List(context.Background(), Filters{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("got %d incidents after re-run", len(all))
	}

	runs, err := s.ListRuns(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs", len(runs))
	}
}

func TestListFilters(t *testing.T) {
	s := newTestStore(t)
	seedRun(t, s)
	ctx := context.Background()

	got, err := s.List(ctx, Filters{Status: "critical"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != "ESC-2025-000001" {
		t.Fatalf("status filter: %+v", got)
	}

	got, err = s.List(ctx, Filters{Priority: "P1", Category: "Collaboration"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != "ESC-2025-000002" {
		t.Fatalf("combined filter: %+v", got)
	}

	got, err = s.List(ctx, Filters{Search: "MAIL FLOW"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != "ESC-2025-000001" {
		t.Fatalf("search filter: %+v", got)
	}

	got, err = s.List(ctx, Filters{Team: "Nobody"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty result, got %+v", got)
	}
}

func TestListOrder(t *testing.T) {
	s := newTestStore(t)
	seedRun(t, s)
	got, err := s.List(context.Background(), Filters{})
	if err != nil {
		t.Fatal(err)
	}
	// Newest first.
	if got[0].ID != "ESC-2025-000002" {
		t.Fatalf("order: %+v", got)
	}
}

func TestStats(t *testing.T) {
	s := newTestStore(t)
	seedRun(t, s)

	stats, err := s.Stats(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.Total != 2 {
		t.Fatalf("total = %d", stats.Total)
	}
	if stats.ByStatus["critical"] != 1 || stats.ByStatus["high"] != 1 {
		t.Fatalf("byStatus = %+v", stats.ByStatus)
	}
	if stats.ByTeam["Exchange Online"] != 1 || stats.ByTeam["Teams"] != 1 {
		t.Fatalf("byTeam = %+v", stats.ByTeam)
	}
	if math.Abs(stats.AvgConfidence-0.8) > 1e-9 {
		t.Fatalf("avgConfidence = %v", stats.AvgConfidence)
	}
	if stats.AtRisk != 1 {
		t.Fatalf("atRisk = %d", stats.AtRisk)
	}
}
