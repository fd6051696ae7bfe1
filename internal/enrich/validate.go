package enrich

import (
	"strings"

	"triagekit/internal/domain"
)

// acceptable decides whether an incoming record is worth enriching: it needs
// an identifier and more than two populated fields (an id plus a bare
// context is effectively empty). A routing reasoning that names its
// originating monitor counts as completable regardless: the backfill can
// synthesize title and description from the primary reason alone.
func acceptable(inc domain.Incident) bool {
	if inc.ID == "" {
		return false
	}
	if inc.RoutingReasoning != nil && inc.RoutingReasoning.PrimaryReason != "" {
		return true
	}
	return inc.FieldCount() > 2
}

// backfill synthesizes title and description for records that arrive with
// neither. It reports whether the record ends up minimally complete: a
// non-empty title, description, or routing primary reason. Records that
// fail are rejected, never emitted with empty fields.
func backfill(inc *domain.Incident) bool {
	primaryReason := ""
	if inc.RoutingReasoning != nil {
		primaryReason = inc.RoutingReasoning.PrimaryReason
	}

	if inc.Title == "" && primaryReason != "" {
		inc.Title = "Incident " + inc.ID
	}

	if inc.Description == "" {
		var facts []string
		if primaryReason != "" {
			facts = append(facts, "Monitor: "+strings.TrimPrefix(primaryReason, "Monitor: "))
		}
		if inc.Context != nil && inc.Context.Resource != "" {
			facts = append(facts, "Resource: "+inc.Context.Resource)
		}
		if len(facts) > 0 {
			inc.Description = strings.Join(facts, " | ")
		}
	}

	return inc.Title != "" || inc.Description != "" || primaryReason != ""
}

// cleanTags drops oversized tags and caps the set, preserving input order.
func cleanTags(tags []string) []string {
	if len(tags) == 0 {
		return tags
	}
	kept := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		if len(tag) >= 100 {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		kept = append(kept, tag)
		if len(kept) == 10 {
			break
		}
	}
	return kept
}
