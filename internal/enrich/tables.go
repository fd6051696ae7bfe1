package enrich

// Decision tables. Order is part of the contract: earlier entries win.

const (
	MethodModel     = "ml_model"
	MethodHeuristic = "heuristic_fallback"
	MethodDefault   = "default"

	DefaultTeam        = "ECCLSPassiveMonitorTraining"
	UnassignedSentinel = "unassigned"
	DefaultCustomer    = "Internal Services"
	DefaultCategory    = "Infrastructure"
	DefaultSubcategory = "General"

	slaOnTrack = "On track"
	slaAtRisk  = "At risk"
)

// categoryRules maps service/product keywords to categories. Scanned against
// each affected service first, then the combined title+description.
var categoryRules = []Rule{
	{"Data & Storage", []string{"exchange"}},
	{"Collaboration", []string{"teams", "outlook"}},
	{"Infrastructure", []string{"azure"}},
	{"Data & Storage", []string{"sql", "cosmos"}},
	{"Identity & Access", []string{"aad", "authentication"}},
	{"Networking", []string{"network"}},
	{"Containers", []string{"container", "kubernetes"}},
	{"Infrastructure", []string{"vm", "compute"}},
}

// categoryFallbackRules is the smaller second-chance table tried when no
// service keyword hits.
var categoryFallbackRules = []Rule{
	{"Identity & Access", []string{"auth", "login", "token"}},
	{"Data & Storage", []string{"database", "sql", "storage"}},
	{"Networking", []string{"network", "connectivity"}},
	{"Infrastructure", []string{"vm", "compute", "cpu"}},
}

// subcategoryRules holds a category-scoped vocabulary. Categories without an
// entry fall back to the default subcategory.
var subcategoryRules = map[string][]Rule{
	"Infrastructure": {
		{"Compute", []string{"vm", "cpu", "compute", "host", "hypervisor"}},
		{"Storage", []string{"disk", "storage", "volume"}},
		{"Networking", []string{"network", "connectivity", "dns"}},
	},
	"Identity & Access": {
		{"Authentication", []string{"auth", "login", "signin", "token"}},
		{"Authorization", []string{"permission", "access", "role", "policy"}},
		{"Policies", []string{"policy", "conditional", "compliance"}},
	},
	"Data & Storage": {
		{"SQL Database", []string{"sql", "database", "dtu", "query"}},
		{"Cosmos DB", []string{"cosmos", "nosql", "partition"}},
		{"Blob Storage", []string{"blob", "storage", "file"}},
	},
	"Collaboration": {
		{"Email", []string{"email", "mail", "exchange", "outlook"}},
		{"Messaging", []string{"teams", "chat", "message"}},
		{"Calendar", []string{"calendar", "meeting", "appointment"}},
	},
}

var priorityRules = []Rule{
	{"P0", []string{"critical", "outage", "down", "failure", "severe", "emergency"}},
	{"P1", []string{"high", "urgent", "spike", "degraded", "impacted", "violation"}},
	{"P2", []string{"medium", "warning", "elevated", "approaching", "near"}},
	{"P3", []string{"low", "info", "notice", "advisory"}},
}

var statusRules = []Rule{
	{"critical", []string{"critical", "outage", "down", "failure", "severe"}},
	{"high", []string{"high", "urgent", "spike", "degraded", "violation"}},
	{"medium", []string{"medium", "warning", "elevated", "approaching"}},
	{"low", []string{"low", "info", "notice"}},
}

var statusByPriority = map[string]string{
	"P0": "critical",
	"P1": "high",
	"P2": "medium",
	"P3": "low",
	"P4": "low",
}

var impactByStatus = map[string]string{
	"critical": "Critical",
	"high":     "High",
	"medium":   "Medium",
	"low":      "Low",
}

// teamRules routes by keyword when no model is available. Scanned against
// the combined text plus the routing primary reason.
var teamRules = []Rule{
	{"ECCLSPassiveMonitorTraining", []string{"s360", "sla", "monitor", "training"}},
	{"SignalsOnboarding07", []string{"llmapi", "api", "http", "spike"}},
	{"Exchange Online", []string{"exchange", "mailbox", "email", "owa"}},
	{"Teams", []string{"teams", "chat", "meeting", "collaboration"}},
	{"Identity Services", []string{"auth", "login", "token", "aad", "identity"}},
	{"Infrastructure", []string{"vm", "compute", "cpu", "infrastructure", "host"}},
	{"Database Engineering", []string{"sql", "database", "cosmos", "query", "dtu"}},
}

// categoryActions are appended to suggested actions after any escalation
// steps, two per category.
var categoryActions = map[string][]string{
	"Infrastructure":    {"Review resource utilization", "Check for recent deployments"},
	"Identity & Access": {"Verify authentication logs", "Check conditional access policies"},
	"Data & Storage":    {"Review query performance", "Check database metrics"},
}

var escalationActions = []string{
	"Escalate to on-call engineer immediately",
	"Check related incidents for patterns",
}

const troubleshootingAction = "Review troubleshooting documentation"

var customerTiers = []string{"Enterprise", "Premium", "Standard", "Startup"}

// slaStatusWeighted is sampled for critical/high incidents: at-risk twice as
// likely as on-track.
var slaStatusWeighted = []string{slaAtRisk, slaAtRisk, slaOnTrack}

var (
	atRiskSLAWindows  = []string{"1h", "2h", "3h", "4h", "5h"}
	onTrackSLAWindows = []string{"8h", "12h", "16h", "24h", "48h"}
)

var resolutionByStatus = map[string][]string{
	"critical": {"2h", "4h", "6h"},
	"high":     {"4h", "6h", "8h"},
}

var resolutionDefault = []string{"8h", "12h", "24h"}
