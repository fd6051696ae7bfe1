package convert

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"time"

	"triagekit/internal/domain"
)

// Converter maps rows of the cleaned incident export to raw Incident
// records. No defaults are invented here: a field without source data stays
// absent for the enrichment engine to fill.
type Converter struct {
	Now func() time.Time
}

func New() Converter {
	return Converter{Now: time.Now}
}

func (c Converter) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// ReadFile converts a CSV file into raw incidents. Rows without an incident
// identifier are skipped with a warning.
func (c Converter) ReadFile(path string) ([]domain.Incident, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	return c.Read(f)
}

// Read converts CSV rows from r. The first row is the header.
func (c Converter) Read(r io.Reader) ([]domain.Incident, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}

	var incidents []domain.Incident
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			slog.Warn("skipping unparseable csv row", "line", line, "error", err)
			continue
		}
		row := func(col string) string {
			i, ok := index[col]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}
		inc, ok := c.convertRow(row)
		if !ok {
			slog.Warn("skipping csv row without incident id", "line", line)
			continue
		}
		incidents = append(incidents, inc)
	}
	return incidents, nil
}

func (c Converter) convertRow(row func(string) string) (domain.Incident, bool) {
	rawID := row("Incident_ID")
	if rawID == "" {
		return domain.Incident{}, false
	}

	inc := domain.Incident{
		ID:          c.formatID(rawID),
		Title:       row("Title"),
		Status:      row("Current_State"),
		Customer:    row("Account"),
		Description: firstNonEmpty(row("Problem"), row("Message")),
	}

	createdAt := parseTimestamp(row("Report_Time"))
	inc.CreatedAt = createdAt
	inc.UpdatedAt = createdAt

	team := firstNonEmpty(row("TeamName"), row("Icm_OwningTeamId"))
	inc.AssignedTo = team

	workload := row("WorkloadName")
	if workload != "" {
		inc.AffectedServices = []string{workload}
	}

	monitor := row("Monitor_DisplayName")
	troubleshooting := row("Troubleshooting_Text")
	urls := parseURLs(troubleshooting)

	reasoning := domain.RoutingReasoning{PrimaryReason: monitor}
	if monitor != "" {
		reasoning.Factors = append(reasoning.Factors, "Monitor: "+monitor)
	}
	if workload != "" {
		reasoning.Factors = append(reasoning.Factors, "Workload: "+workload)
	}
	if team != "" {
		reasoning.Factors = append(reasoning.Factors, "Team: "+team)
	}
	for i, url := range urls {
		if i == 4 {
			break
		}
		reasoning.SuggestedActions = append(reasoning.SuggestedActions, "Review: "+url)
	}
	if reasoning.PrimaryReason != "" || len(reasoning.Factors) > 0 || len(reasoning.SuggestedActions) > 0 {
		inc.RoutingReasoning = &reasoning
	}

	forest := row("Forest")
	ctx := domain.IncidentContext{
		BusinessImpact:       firstNonEmpty(row("Problem"), row("Message")),
		Resource:             row("Resource"),
		AdditionalInfo:       row("Additional_Info"),
		TroubleshootingLinks: urls,
	}
	if forest != "" {
		ctx.ImpactLevel = "Forest: " + forest
		ctx.Forest = forest
	}
	if ctx.BusinessImpact != "" || ctx.Resource != "" || ctx.AdditionalInfo != "" || ctx.Forest != "" || len(ctx.TroubleshootingLinks) > 0 {
		inc.Context = &ctx
	}

	if createdAt != "" {
		inc.Timeline = []domain.TimelineEntry{{
			Timestamp: createdAt,
			Event:     "Incident created",
			User:      "System",
		}}
	}

	inc.Tags = deriveTags(monitor, workload, row("Resource_Type"), forest, row("Current_State"), firstNonEmpty(row("Message"), row("Title")))

	return inc, true
}

// formatID renders the source identifier as ESC-YYYY-XXXXXX.
func (c Converter) formatID(raw string) string {
	id := raw
	if len(id) > 6 {
		id = id[len(id)-6:]
	} else {
		id = strings.Repeat("0", 6-len(id)) + id
	}
	return fmt.Sprintf("ESC-%d-%s", c.now().Year(), id)
}

var timestampFormats = []string{
	"2006-01-02 15:04:05Z",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
}

// parseTimestamp normalizes known source formats to RFC3339 UTC; unknown
// formats yield an empty string rather than a guess.
func parseTimestamp(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	for _, layout := range timestampFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().Format("2006-01-02T15:04:05Z")
		}
	}
	return ""
}

var urlPattern = regexp.MustCompile(`https?://[^\s|]+`)

// parseURLs extracts URLs, deduplicated in first-occurrence order.
func parseURLs(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	var urls []string
	seen := map[string]struct{}{}
	for _, url := range urlPattern.FindAllString(text, -1) {
		if _, dup := seen[url]; dup {
			continue
		}
		seen[url] = struct{}{}
		urls = append(urls, url)
	}
	return urls
}

func deriveTags(monitor, workload, resourceType, forest, state, message string) []string {
	var tags []string
	add := func(tag string) {
		for _, t := range tags {
			if t == tag {
				return
			}
		}
		tags = append(tags, tag)
	}

	monitorLower := strings.ToLower(monitor)
	if strings.Contains(monitorLower, "s360") {
		add("s360")
	}
	if strings.Contains(monitorLower, "mrs") {
		add("migration")
	}
	if strings.Contains(monitorLower, "llmapi") {
		add("llm-api")
	}
	if strings.Contains(monitorLower, "sydney") {
		add("sydney")
	}

	if workload != "" {
		add(strings.ToLower(workload))
	}
	if resourceType != "" && !strings.EqualFold(resourceType, "hybrid") {
		add(strings.ToLower(resourceType))
	}
	if forest != "" && len(forest) < 20 {
		add("forest-" + strings.ToLower(forest))
	}

	stateLower := strings.ToLower(state)
	if strings.Contains(stateLower, "unhealthy") {
		add("unhealthy")
	}
	if strings.Contains(stateLower, "violated") {
		add("violated")
	}

	messageLower := strings.ToLower(message)
	if strings.Contains(messageLower, "authentication") || strings.Contains(messageLower, "auth") {
		add("authentication")
	}
	if strings.Contains(messageLower, "search") || strings.Contains(messageLower, "find") {
		add("search")
	}
	if strings.Contains(messageLower, "teams") {
		add("teams")
	}
	if strings.Contains(messageLower, "owa") || strings.Contains(messageLower, "outlook") {
		add("outlook")
	}

	return tags
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
