package enrich

import (
	"math/rand"

	"triagekit/internal/domain"
)

// enrichContext fills situational metadata where absent. The random picks
// are bookkeeping filler, not routing decisions; they draw from the
// enricher's injected source so tests can pin the seed.
func (e *Enricher) enrichContext(inc *domain.Incident) {
	c := inc.Ctx()

	if c.ImpactLevel == "" {
		if level, ok := impactByStatus[inc.Status]; ok {
			c.ImpactLevel = level
		} else {
			c.ImpactLevel = "Medium"
		}
	}

	if c.CustomerTier == "" {
		c.CustomerTier = choice(e.Rand, customerTiers)
	}

	if c.SLAStatus == "" {
		if inc.Status == "critical" || inc.Status == "high" {
			c.SLAStatus = choice(e.Rand, slaStatusWeighted)
		} else {
			c.SLAStatus = slaOnTrack
		}
	}

	if c.TimeToSLA == "" {
		if c.SLAStatus == slaAtRisk {
			c.TimeToSLA = choice(e.Rand, atRiskSLAWindows)
		} else {
			c.TimeToSLA = choice(e.Rand, onTrackSLAWindows)
		}
	}

	if c.PreviousEscalations == nil {
		n := e.Rand.Intn(6)
		c.PreviousEscalations = &n
	}

	if c.EstimatedResolutionTime == "" {
		durations, ok := resolutionByStatus[inc.Status]
		if !ok {
			durations = resolutionDefault
		}
		c.EstimatedResolutionTime = choice(e.Rand, durations)
	}
}

func choice(rng *rand.Rand, items []string) string {
	return items[rng.Intn(len(items))]
}
