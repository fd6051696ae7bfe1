package classifier

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"
	"unicode"
)

// LinearModel is a bag-of-words linear classifier loaded from a JSON
// artifact exported by the training pipeline. Scores are per-label token
// weight sums plus a bias, squashed through softmax.
type LinearModel struct {
	labels  []string
	bias    []float64
	weights map[string][]float64
}

type linearArtifact struct {
	Labels  []string             `json:"labels"`
	Bias    []float64            `json:"bias"`
	Weights map[string][]float64 `json:"weights"`
}

// LoadLinear reads and validates a model artifact from disk.
func LoadLinear(path string) (*LinearModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model artifact: %w", err)
	}
	return ParseLinear(data)
}

// ParseLinear builds a LinearModel from raw artifact bytes.
func ParseLinear(data []byte) (*LinearModel, error) {
	var art linearArtifact
	if err := json.Unmarshal(data, &art); err != nil {
		return nil, fmt.Errorf("invalid model artifact: %w", err)
	}
	if len(art.Labels) == 0 {
		return nil, fmt.Errorf("model artifact has no labels")
	}
	if len(art.Bias) != len(art.Labels) {
		return nil, fmt.Errorf("model artifact bias length %d does not match %d labels", len(art.Bias), len(art.Labels))
	}
	for tok, w := range art.Weights {
		if len(w) != len(art.Labels) {
			return nil, fmt.Errorf("model artifact token %q has %d weights, want %d", tok, len(w), len(art.Labels))
		}
	}
	return &LinearModel{labels: art.Labels, bias: art.Bias, weights: art.Weights}, nil
}

// Labels returns the ordered label vocabulary.
func (m *LinearModel) Labels() []string { return m.labels }

// PredictProba scores the text against every label and returns the softmax
// distribution in vocabulary order.
func (m *LinearModel) PredictProba(text string) ([]LabelProb, error) {
	scores := make([]float64, len(m.labels))
	copy(scores, m.bias)
	for _, tok := range tokenize(text) {
		w, ok := m.weights[tok]
		if !ok {
			continue
		}
		for i := range scores {
			scores[i] += w[i]
		}
	}
	probs := softmax(scores)
	dist := make([]LabelProb, len(m.labels))
	for i, label := range m.labels {
		dist[i] = LabelProb{Label: label, Prob: probs[i]}
	}
	return dist, nil
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func softmax(scores []float64) []float64 {
	max := scores[0]
	for _, s := range scores[1:] {
		if s > max {
			max = s
		}
	}
	var sum float64
	out := make([]float64, len(scores))
	for i, s := range scores {
		out[i] = math.Exp(s - max)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
