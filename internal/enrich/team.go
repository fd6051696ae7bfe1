package enrich

import (
	"log/slog"
	"strings"

	"triagekit/internal/classifier"
	"triagekit/internal/domain"
)

// MatchTeam runs the keyword routing table over lowercased text.
func MatchTeam(text string) (string, bool) {
	return MatchFirst(text, teamRules)
}

// assignTeam decides the owning team. First applicable outcome wins:
// already assigned, model prediction, keyword fallback, fixed default.
func (e *Enricher) assignTeam(inc *domain.Incident) {
	if inc.AssignedTo != "" && !strings.EqualFold(inc.AssignedTo, UnassignedSentinel) {
		return
	}

	text := combinedText(inc.Title, inc.Description)
	if e.Classifier != nil && strings.TrimSpace(text) != "" {
		dist, err := e.Classifier.PredictProba(text)
		if err == nil {
			if top, ok := classifier.Top(dist); ok {
				inc.AssignedTo = top.Label
				r := inc.Reasoning()
				if r.Confidence == nil {
					conf := round2(top.Prob)
					r.Confidence = &conf
				}
				r.Method = MethodModel
				return
			}
		} else {
			slog.Warn("classifier prediction failed, using keyword routing", "incident", inc.ID, "error", err)
		}
	}

	scan := text
	if inc.RoutingReasoning != nil && inc.RoutingReasoning.PrimaryReason != "" {
		scan += " " + strings.ToLower(inc.RoutingReasoning.PrimaryReason)
	}
	// Confidence is left for the estimator here: its heuristic formula
	// already starts from the 0.70 default and rewards the assignment.
	if team, ok := MatchFirst(scan, teamRules); ok {
		inc.AssignedTo = team
		inc.Reasoning().Method = MethodHeuristic
		return
	}

	inc.AssignedTo = e.DefaultTeam
	inc.Reasoning().Method = MethodDefault
}
