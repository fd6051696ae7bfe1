package classifier

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

const sampleArtifact = `{
	"labels": ["Exchange Online", "Teams"],
	"bias": [0.0, 0.0],
	"weights": {
		"mailbox": [2.0, -1.0],
		"chat": [-1.0, 2.0]
	}
}`

func TestParseLinear(t *testing.T) {
	m, err := ParseLinear([]byte(sampleArtifact))
	if err != nil {
		t.Fatal(err)
	}
	labels := m.Labels()
	if len(labels) != 2 || labels[0] != "Exchange Online" {
		t.Fatalf("labels = %v", labels)
	}
}

func TestParseLinearValidation(t *testing.T) {
	cases := []struct {
		name string
		data string
	}{
		{"not json", `{{`},
		{"no labels", `{"labels": [], "bias": [], "weights": {}}`},
		{"bias mismatch", `{"labels": ["a", "b"], "bias": [0.1], "weights": {}}`},
		{"weight mismatch", `{"labels": ["a", "b"], "bias": [0, 0], "weights": {"tok": [1.0]}}`},
	}
	for _, tc := range cases {
		if _, err := ParseLinear([]byte(tc.data)); err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}
}

func TestLoadLinear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	if err := os.WriteFile(path, []byte(sampleArtifact), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadLinear(path); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadLinear(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestPredictProba(t *testing.T) {
	m, err := ParseLinear([]byte(sampleArtifact))
	if err != nil {
		t.Fatal(err)
	}

	dist, err := m.PredictProba("Mailbox access broken")
	if err != nil {
		t.Fatal(err)
	}
	if len(dist) != 2 {
		t.Fatalf("dist = %+v", dist)
	}
	var sum float64
	for _, lp := range dist {
		sum += lp.Prob
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Fatalf("probabilities sum to %v", sum)
	}
	if dist[0].Prob <= dist[1].Prob {
		t.Fatalf("mailbox text should favor the first label: %+v", dist)
	}

	// Unknown tokens only: bias-driven uniform distribution.
	dist, err = m.PredictProba("zzz qqq")
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(dist[0].Prob-0.5) > 1e-9 {
		t.Fatalf("expected uniform distribution, got %+v", dist)
	}
}

func TestTokenize(t *testing.T) {
	got := tokenize("OWA slow, sign-in failing (503)")
	want := []string{"owa", "slow", "sign", "in", "failing", "503"}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v want %v", got, want)
		}
	}
}
