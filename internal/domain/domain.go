package domain

// Incident is the unit of work: a partially-populated record produced from
// tabular source data, enriched exactly once by the engine.
type Incident struct {
	ID               string            `json:"id"`
	Title            string            `json:"title,omitempty"`
	Description      string            `json:"description,omitempty"`
	Status           string            `json:"status,omitempty" enum:"critical,high,medium,low"`
	Priority         string            `json:"priority,omitempty" enum:"P0,P1,P2,P3,P4"`
	Category         string            `json:"category,omitempty"`
	Subcategory      string            `json:"subcategory,omitempty"`
	AssignedTo       string            `json:"assignedTo,omitempty"`
	Customer         string            `json:"customer,omitempty"`
	AffectedServices []string          `json:"affectedServices,omitempty"`
	Tags             []string          `json:"tags,omitempty"`
	RoutingReasoning *RoutingReasoning `json:"routingReasoning,omitempty"`
	Context          *IncidentContext  `json:"context,omitempty"`
	Timeline         []TimelineEntry   `json:"timeline,omitempty"`
	CreatedAt        string            `json:"createdAt,omitempty" format:"date-time"`
	UpdatedAt        string            `json:"updatedAt,omitempty" format:"date-time"`
}

// RoutingReasoning explains a team assignment. Confidence is a pointer so
// "absent" and 0 stay distinguishable; it is set once and never recomputed.
type RoutingReasoning struct {
	PrimaryReason    string   `json:"primaryReason,omitempty"`
	Confidence       *float64 `json:"confidence,omitempty"`
	Factors          []string `json:"factors,omitempty"`
	SuggestedActions []string `json:"suggestedActions,omitempty"`
	Method           string   `json:"method,omitempty" enum:"ml_model,heuristic_fallback,default"`
}

// IncidentContext carries situational metadata. Unknown fields pass through
// untouched; the enricher only fills the ones that are absent.
type IncidentContext struct {
	ImpactLevel             string   `json:"impactLevel,omitempty"`
	CustomerTier            string   `json:"customerTier,omitempty"`
	SLAStatus               string   `json:"slaStatus,omitempty" enum:"On track,At risk"`
	TimeToSLA               string   `json:"timeToSLA,omitempty"`
	PreviousEscalations     *int     `json:"previousEscalations,omitempty"`
	EstimatedResolutionTime string   `json:"estimatedResolutionTime,omitempty"`
	BusinessImpact          string   `json:"businessImpact,omitempty"`
	Resource                string   `json:"resource,omitempty"`
	Forest                  string   `json:"forest,omitempty"`
	AdditionalInfo          string   `json:"additionalInfo,omitempty"`
	TroubleshootingLinks    []string `json:"troubleshootingLinks,omitempty"`
}

type TimelineEntry struct {
	Timestamp string `json:"timestamp" format:"date-time"`
	Event     string `json:"event"`
	User      string `json:"user,omitempty"`
}

// Prediction is the prediction-service answer for a single query.
type Prediction struct {
	Team         string        `json:"team"`
	Confidence   float64       `json:"confidence"`
	Method       string        `json:"method" enum:"ml_model,heuristic_fallback,default"`
	Alternatives []Alternative `json:"alternatives"`
}

// Alternative is a next-best team with its model probability.
type Alternative struct {
	Team        string  `json:"team"`
	Probability float64 `json:"probability"`
}

// Summary accumulates batch counters during enrichment.
type Summary struct {
	Enriched   int            `json:"enriched"`
	Rejected   int            `json:"rejected"`
	Statuses   map[string]int `json:"statuses"`
	Priorities map[string]int `json:"priorities"`
	Categories map[string]int `json:"categories"`
}

// Stats aggregates the stored incident corpus for reporting.
type Stats struct {
	Total         int            `json:"total"`
	ByStatus      map[string]int `json:"byStatus"`
	ByPriority    map[string]int `json:"byPriority"`
	ByCategory    map[string]int `json:"byCategory"`
	ByTeam        map[string]int `json:"byTeam"`
	AvgConfidence float64        `json:"avgConfidence"`
	AtRisk        int            `json:"atRisk"`
}

// FieldCount reports how many top-level fields carry a value. The validator
// treats a record with two or fewer as effectively empty (id + bare context).
func (i Incident) FieldCount() int {
	n := 0
	for _, set := range []bool{
		i.ID != "",
		i.Title != "",
		i.Description != "",
		i.Status != "",
		i.Priority != "",
		i.Category != "",
		i.Subcategory != "",
		i.AssignedTo != "",
		i.Customer != "",
		len(i.AffectedServices) > 0,
		len(i.Tags) > 0,
		i.RoutingReasoning != nil,
		i.Context != nil,
		len(i.Timeline) > 0,
		i.CreatedAt != "",
		i.UpdatedAt != "",
	} {
		if set {
			n++
		}
	}
	return n
}

// Reasoning returns the routing reasoning, allocating it on first use.
func (i *Incident) Reasoning() *RoutingReasoning {
	if i.RoutingReasoning == nil {
		i.RoutingReasoning = &RoutingReasoning{}
	}
	return i.RoutingReasoning
}

// Ctx returns the context record, allocating it on first use.
func (i *Incident) Ctx() *IncidentContext {
	if i.Context == nil {
		i.Context = &IncidentContext{}
	}
	return i.Context
}
