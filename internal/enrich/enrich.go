package enrich

import (
	"log/slog"
	"math/rand"
	"time"

	"triagekit/internal/classifier"
	"triagekit/internal/domain"
)

// Enricher transitions raw incidents to fully-populated ones. It only fills
// absence: a field that arrives with a value keeps it. The classifier is
// optional; nil degrades every decision to its heuristic path. Rand is the
// sole entropy source, injected so tests can fix the seed.
type Enricher struct {
	Classifier  classifier.Classifier
	DefaultTeam string
	Customer    string
	Rand        *rand.Rand
}

// New creates an Enricher with the standard defaults. A nil rng gets a
// time-seeded source.
func New(cls classifier.Classifier, rng *rand.Rand) *Enricher {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Enricher{
		Classifier:  cls,
		DefaultTeam: DefaultTeam,
		Customer:    DefaultCustomer,
		Rand:        rng,
	}
}

// Enrich fills every missing classification field on a single incident.
// The input is not mutated. ok reports whether the record was accepted;
// rejected records produce no partial output.
func (e *Enricher) Enrich(in domain.Incident) (domain.Incident, bool) {
	if !acceptable(in) {
		return domain.Incident{}, false
	}

	inc := clone(in)
	if !backfill(&inc) {
		return domain.Incident{}, false
	}

	if inc.Priority == "" {
		inc.Priority = InferPriority(inc)
	}
	if inc.Status == "" {
		inc.Status = InferStatus(inc, inc.Priority)
	}
	if inc.Category == "" {
		inc.Category = InferCategory(inc)
	}
	if inc.Subcategory == "" {
		inc.Subcategory = InferSubcategory(inc.Category, inc)
	}

	e.assignTeam(&inc)
	e.buildReasoning(&inc)
	e.fillConfidence(&inc)
	e.enrichContext(&inc)

	if inc.Customer == "" {
		inc.Customer = e.Customer
	}
	inc.Tags = cleanTags(inc.Tags)

	return inc, true
}

// EnrichBatch processes records one at a time in input order. Rejected
// records are dropped and counted; accepted ones keep their relative order.
func (e *Enricher) EnrichBatch(incidents []domain.Incident) ([]domain.Incident, domain.Summary) {
	summary := domain.Summary{
		Statuses:   map[string]int{},
		Priorities: map[string]int{},
		Categories: map[string]int{},
	}
	out := make([]domain.Incident, 0, len(incidents))
	for _, in := range incidents {
		enriched, ok := e.Enrich(in)
		if !ok {
			if in.ID == "" {
				slog.Warn("skipping incident without id")
			} else {
				slog.Debug("rejected incomplete incident", "incident", in.ID)
			}
			summary.Rejected++
			continue
		}
		out = append(out, enriched)
		summary.Enriched++
		summary.Statuses[enriched.Status]++
		summary.Priorities[enriched.Priority]++
		summary.Categories[enriched.Category]++
	}
	return out, summary
}

// clone deep-copies the mutable parts so enrichment never aliases caller
// state.
func clone(in domain.Incident) domain.Incident {
	out := in
	out.AffectedServices = append([]string(nil), in.AffectedServices...)
	out.Tags = append([]string(nil), in.Tags...)
	out.Timeline = append([]domain.TimelineEntry(nil), in.Timeline...)
	if in.RoutingReasoning != nil {
		r := *in.RoutingReasoning
		r.Factors = append([]string(nil), in.RoutingReasoning.Factors...)
		r.SuggestedActions = append([]string(nil), in.RoutingReasoning.SuggestedActions...)
		if in.RoutingReasoning.Confidence != nil {
			c := *in.RoutingReasoning.Confidence
			r.Confidence = &c
		}
		out.RoutingReasoning = &r
	}
	if in.Context != nil {
		c := *in.Context
		c.TroubleshootingLinks = append([]string(nil), in.Context.TroubleshootingLinks...)
		if in.Context.PreviousEscalations != nil {
			n := *in.Context.PreviousEscalations
			c.PreviousEscalations = &n
		}
		out.Context = &c
	}
	return out
}
