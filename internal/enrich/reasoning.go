package enrich

import (
	"strings"

	"triagekit/internal/domain"
)

const patternReason = "Pattern-based routing"

// buildReasoning fills the explanatory bundle around the team assignment.
// Every piece is fill-if-absent; pre-set reasons, factors, and actions pass
// through untouched.
func (e *Enricher) buildReasoning(inc *domain.Incident) {
	r := inc.Reasoning()

	// The incoming primary reason, when present, is the originating monitor
	// name. Capture it before the field is rebuilt.
	monitor := strings.TrimPrefix(r.PrimaryReason, "Monitor: ")
	workload := ""
	if len(inc.AffectedServices) > 0 {
		workload = inc.AffectedServices[0]
	}

	if r.PrimaryReason == "" {
		if inc.AssignedTo != "" {
			r.PrimaryReason = "Routed to " + inc.AssignedTo
		} else {
			r.PrimaryReason = patternReason
		}
	}

	if len(r.Factors) == 0 {
		var factors []string
		if monitor != "" {
			factors = append(factors, "Monitor: "+monitor)
		}
		if workload != "" {
			factors = append(factors, "Workload: "+workload)
		}
		if inc.AssignedTo != "" {
			factors = append(factors, "Team: "+inc.AssignedTo)
		}
		r.Factors = capList(factors, 5)
	}

	if len(r.SuggestedActions) == 0 {
		var actions []string
		if inc.Status == "critical" || inc.Status == "high" {
			actions = append(actions, escalationActions...)
		}
		actions = append(actions, categoryActions[inc.Category]...)
		if inc.Context != nil && inc.Context.AdditionalInfo != "" {
			actions = append(actions, troubleshootingAction)
		}
		r.SuggestedActions = capList(actions, 4)
	}
}
