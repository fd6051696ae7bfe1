package enrich

import (
	"log/slog"
	"math"
	"math/rand"
	"strings"

	"triagekit/internal/classifier"
	"triagekit/internal/domain"
)

const defaultConfidence = 0.70

// heuristicConfidence is the point-accumulation fallback score: a base of
// 0.70 plus fixed increments for data completeness and bounded jitter,
// clamped to 0.99.
func heuristicConfidence(inc domain.Incident, rng *rand.Rand) float64 {
	score := defaultConfidence
	if inc.AssignedTo != "" {
		score += 0.10
	}
	if len(inc.AffectedServices) > 0 {
		score += 0.05
	}
	if len(inc.Tags) > 0 {
		score += 0.05
	}
	if inc.RoutingReasoning != nil && len(inc.RoutingReasoning.Factors) > 0 {
		score += 0.05
	}
	score += rng.Float64()*0.15 - 0.05
	return round2(math.Min(0.99, score))
}

// fillConfidence sets routing confidence exactly once. Model mode wins when
// a classifier is loaded and the record has text; any model failure falls
// back to the heuristic for this record only.
func (e *Enricher) fillConfidence(inc *domain.Incident) {
	r := inc.Reasoning()
	if r.Confidence != nil {
		return
	}
	text := combinedText(inc.Title, inc.Description)
	if e.Classifier != nil && strings.TrimSpace(text) != "" {
		dist, err := e.Classifier.PredictProba(text)
		if err == nil {
			if top, ok := classifier.Top(dist); ok {
				conf := round2(top.Prob)
				r.Confidence = &conf
				return
			}
		} else {
			slog.Warn("classifier scoring failed, using heuristic confidence", "incident", inc.ID, "error", err)
		}
	}
	conf := heuristicConfidence(*inc, e.Rand)
	r.Confidence = &conf
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
