package enrich

import (
	"strings"
	"testing"

	"triagekit/internal/domain"
)

func TestBackfillNeedsSomeText(t *testing.T) {
	inc := domain.Incident{ID: "ESC-2025-000900"}
	if backfill(&inc) {
		t.Fatal("expected failure with no text sources")
	}

	inc = domain.Incident{
		ID:      "ESC-2025-000901",
		Context: &domain.IncidentContext{Resource: "db-01"},
	}
	if !backfill(&inc) {
		t.Fatal("expected success from resource fact")
	}
	if inc.Description != "Resource: db-01" {
		t.Fatalf("description = %q", inc.Description)
	}
	// No primary reason: title stays empty rather than synthesized.
	if inc.Title != "" {
		t.Fatalf("title = %q", inc.Title)
	}
}

func TestCleanTags(t *testing.T) {
	oversized := strings.Repeat("x", 100)
	in := []string{"a", "b", "a", oversized, "c", "d", "e", "f", "g", "h", "i", "j", "k"}
	got := cleanTags(in)
	if len(got) != 10 {
		t.Fatalf("len = %d: %v", len(got), got)
	}
	if got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("order not preserved: %v", got)
	}
	for _, tag := range got {
		if tag == oversized {
			t.Fatal("oversized tag kept")
		}
	}
}

func TestCleanTagsBoundary(t *testing.T) {
	almost := strings.Repeat("y", 99)
	got := cleanTags([]string{almost})
	if len(got) != 1 {
		t.Fatalf("99-char tag dropped: %v", got)
	}
}
