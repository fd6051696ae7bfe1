package classifier

import "testing"

func TestTop(t *testing.T) {
	dist := []LabelProb{
		{"a", 0.2},
		{"b", 0.5},
		{"c", 0.3},
	}
	top, ok := Top(dist)
	if !ok || top.Label != "b" {
		t.Fatalf("got %+v ok=%v", top, ok)
	}
	if _, ok := Top(nil); ok {
		t.Fatal("empty distribution should not have a top")
	}
}

func TestTopTieKeepsVocabularyOrder(t *testing.T) {
	dist := []LabelProb{
		{"a", 0.4},
		{"b", 0.4},
		{"c", 0.2},
	}
	top, _ := Top(dist)
	if top.Label != "a" {
		t.Fatalf("got %q", top.Label)
	}
}

func TestAlternatives(t *testing.T) {
	dist := []LabelProb{
		{"a", 0.1},
		{"b", 0.6},
		{"c", 0.3},
	}
	alts := Alternatives(dist)
	if len(alts) != 2 {
		t.Fatalf("got %+v", alts)
	}
	if alts[0].Label != "c" || alts[1].Label != "a" {
		t.Fatalf("not sorted descending: %+v", alts)
	}
	if Alternatives(nil) != nil {
		t.Fatal("expected nil for empty distribution")
	}
}

func TestAlternativesEqualProbsKeepOrder(t *testing.T) {
	dist := []LabelProb{
		{"a", 0.5},
		{"b", 0.25},
		{"c", 0.25},
	}
	alts := Alternatives(dist)
	if alts[0].Label != "b" || alts[1].Label != "c" {
		t.Fatalf("got %+v", alts)
	}
}
