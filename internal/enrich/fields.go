package enrich

import (
	"strings"

	"triagekit/internal/domain"
)

// InferCategory resolves the category for an incident in four strict stages:
// affected services against the category table, combined text against the
// same table, the fallback table, then the default.
func InferCategory(inc domain.Incident) string {
	for _, service := range inc.AffectedServices {
		if label, ok := MatchFirst(strings.ToLower(service), categoryRules); ok {
			return label
		}
	}
	text := combinedText(inc.Title, inc.Description)
	if label, ok := MatchFirst(text, categoryRules); ok {
		return label
	}
	if label, ok := MatchFirst(text, categoryFallbackRules); ok {
		return label
	}
	return DefaultCategory
}

// InferSubcategory looks up the category-scoped vocabulary.
func InferSubcategory(category string, inc domain.Incident) string {
	rules, ok := subcategoryRules[category]
	if !ok {
		return DefaultSubcategory
	}
	text := combinedText(inc.Title, inc.Description)
	if label, ok := MatchFirst(text, rules); ok {
		return label
	}
	return DefaultSubcategory
}

// InferPriority scans the combined text against the priority table, P0
// keywords before P1 and so on. With no match, a stated business impact
// bumps the default from P2 to P1.
func InferPriority(inc domain.Incident) string {
	text := combinedText(inc.Title, inc.Description)
	if label, ok := MatchFirst(text, priorityRules); ok {
		return label
	}
	if inc.Context != nil && inc.Context.BusinessImpact != "" {
		return "P1"
	}
	return "P2"
}

// InferStatus scans the status table; with no text match the status derives
// from the given priority. Pass an empty priority to compute it fresh.
func InferStatus(inc domain.Incident, priority string) string {
	text := combinedText(inc.Title, inc.Description)
	if label, ok := MatchFirst(text, statusRules); ok {
		return label
	}
	if priority == "" {
		priority = InferPriority(inc)
	}
	if status, ok := statusByPriority[priority]; ok {
		return status
	}
	return "medium"
}
