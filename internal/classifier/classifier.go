package classifier

import "sort"

// LabelProb pairs a label with its probability.
type LabelProb struct {
	Label string
	Prob  float64
}

// Classifier produces a label probability distribution for free text.
// Implementations are read-only after construction and safe for reuse
// across records. A nil Classifier means "no model available" and callers
// degrade to their heuristic paths.
type Classifier interface {
	// PredictProba returns one entry per label in the model's fixed
	// vocabulary order, probabilities summing to 1.
	PredictProba(text string) ([]LabelProb, error)
	// Labels returns the model's ordered label vocabulary.
	Labels() []string
}

// Top returns the highest-probability entry. Ties keep the earlier label,
// preserving the vocabulary order as the tie-break.
func Top(dist []LabelProb) (LabelProb, bool) {
	if len(dist) == 0 {
		return LabelProb{}, false
	}
	best := dist[0]
	for _, lp := range dist[1:] {
		if lp.Prob > best.Prob {
			best = lp
		}
	}
	return best, true
}

// Alternatives returns every entry except the top one, ordered by
// probability descending. Equal probabilities keep vocabulary order.
func Alternatives(dist []LabelProb) []LabelProb {
	top, ok := Top(dist)
	if !ok {
		return nil
	}
	alts := make([]LabelProb, 0, len(dist)-1)
	skipped := false
	for _, lp := range dist {
		if !skipped && lp.Label == top.Label {
			skipped = true
			continue
		}
		alts = append(alts, lp)
	}
	sort.SliceStable(alts, func(i, j int) bool { return alts[i].Prob > alts[j].Prob })
	return alts
}
