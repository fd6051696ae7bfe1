package enrich

import "strings"

// Rule binds a label to its ordered trigger substrings. Slices of rules are
// decision tables: declaration order is the tie-break when several labels
// could match.
type Rule struct {
	Label    string
	Triggers []string
}

// MatchFirst returns the first rule label with a trigger appearing anywhere
// in text. Matching is substring, not word-boundary: "aad" matches inside
// unrelated tokens too. Callers pass lowercased text; triggers are declared
// lowercase.
func MatchFirst(text string, rules []Rule) (string, bool) {
	for _, r := range rules {
		for _, trigger := range r.Triggers {
			if strings.Contains(text, trigger) {
				return r.Label, true
			}
		}
	}
	return "", false
}

// combinedText is the lowercased title+description blob every keyword table
// scans against.
func combinedText(title, description string) string {
	return strings.ToLower(title + " " + description)
}

func capList(items []string, max int) []string {
	if len(items) > max {
		return items[:max]
	}
	return items
}
