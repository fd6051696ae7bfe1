package predict

import (
	"log/slog"
	"math"
	"strings"

	"triagekit/internal/classifier"
	"triagekit/internal/domain"
	"triagekit/internal/enrich"
)

const (
	heuristicConfidence = 0.85
	defaultConfidence   = 0.75
)

// Service answers single-incident routing queries: model first, keyword
// table next, fixed default last. It is the synchronous façade the HTTP API
// and the CLI share.
type Service struct {
	Classifier  classifier.Classifier
	DefaultTeam string
}

func New(cls classifier.Classifier) *Service {
	return &Service{Classifier: cls, DefaultTeam: enrich.DefaultTeam}
}

// Predict routes the given text. Workload and monitor are optional signals
// appended to the model feature text; workload alone can short-circuit the
// keyword fallback. Alternatives carry the next-best labels when a model
// distribution is available, in descending probability.
func (s *Service) Predict(text, workload, monitor string) domain.Prediction {
	if s.Classifier != nil && strings.TrimSpace(text) != "" {
		feature := text
		if workload != "" {
			feature += " " + workload
		}
		if monitor != "" {
			feature += " " + monitor
		}
		dist, err := s.Classifier.PredictProba(feature)
		if err == nil {
			if top, ok := classifier.Top(dist); ok {
				return domain.Prediction{
					Team:         top.Label,
					Confidence:   round2(top.Prob),
					Method:       enrich.MethodModel,
					Alternatives: alternatives(dist),
				}
			}
		} else {
			slog.Warn("model prediction failed, using keyword routing", "error", err)
		}
	}
	return s.heuristic(text, workload)
}

func (s *Service) heuristic(text, workload string) domain.Prediction {
	wl := strings.ToLower(workload)
	switch {
	case strings.Contains(wl, "exchange"):
		return heuristicPrediction(enrich.DefaultTeam)
	case strings.Contains(wl, "teams"):
		return heuristicPrediction("Teams")
	}
	if team, ok := enrich.MatchTeam(strings.ToLower(text)); ok {
		return heuristicPrediction(team)
	}
	return domain.Prediction{
		Team:         s.DefaultTeam,
		Confidence:   defaultConfidence,
		Method:       enrich.MethodDefault,
		Alternatives: []domain.Alternative{},
	}
}

func heuristicPrediction(team string) domain.Prediction {
	return domain.Prediction{
		Team:         team,
		Confidence:   heuristicConfidence,
		Method:       enrich.MethodHeuristic,
		Alternatives: []domain.Alternative{},
	}
}

func alternatives(dist []classifier.LabelProb) []domain.Alternative {
	alts := classifier.Alternatives(dist)
	out := make([]domain.Alternative, 0, len(alts))
	for _, lp := range alts {
		out = append(out, domain.Alternative{Team: lp.Label, Probability: round2(lp.Prob)})
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
