package delegation

import "execteam/internal/agentregistry"

// Lexicon is a role's finite keyword/phrase set used to score how well an
// inbound message matches that role's domain (spec.md §4.3).
type Lexicon struct {
	Role    agentregistry.Role
	Phrases []string
	// BaseWeight is applied per matched phrase. DomainConfidence is a flat
	// boost applied once whenever at least one phrase matches, modeling
	// spec.md §4.3's "(matched keyword count x base weight) + (domain
	// confidence boost)".
	BaseWeight       float64
	DomainConfidence float64
}

// DefaultLexicons returns the built-in per-role keyword lexicons. New roles
// require adding a tag here plus a strategy, never an open inheritance
// hierarchy (spec.md §9).
func DefaultLexicons() []Lexicon {
	return []Lexicon{
		{
			Role: agentregistry.RoleCTO, BaseWeight: 1, DomainConfidence: 0.15,
			Phrases: []string{
				"api", "latency", "deploy", "deployment", "bug", "architecture",
				"infrastructure", "server", "database", "outage", "scaling",
				"pipeline", "staging", "production", "kubernetes", "microservice",
				"technical", "engineering", "code", "release",
			},
		},
		{
			Role: agentregistry.RoleCFO, BaseWeight: 1, DomainConfidence: 0.15,
			Phrases: []string{
				"budget", "revenue", "margin", "forecast", "cash", "burn",
				"runway", "expense", "invoice", "accounting", "finance",
				"financial", "profit", "loss", "cost", "spend", "valuation",
			},
		},
		{
			Role: agentregistry.RoleCMO, BaseWeight: 1, DomainConfidence: 0.15,
			Phrases: []string{
				"marketing", "campaign", "brand", "audience", "advertising",
				"social media", "content", "seo", "engagement", "conversion",
				"launch", "press", "pr", "positioning",
			},
		},
		{
			Role: agentregistry.RoleCOO, BaseWeight: 1, DomainConfidence: 0.15,
			Phrases: []string{
				"operations", "process", "logistics", "supply chain", "hiring",
				"onboarding", "workflow", "checklist", "vendor", "facilities",
				"compliance", "efficiency", "headcount",
			},
		},
		{
			Role: agentregistry.RoleSales, BaseWeight: 1, DomainConfidence: 0.15,
			Phrases: []string{
				"sales", "deal", "pipeline", "quota", "lead", "prospect",
				"contract", "pricing", "discount", "renewal", "upsell", "crm",
				"close", "churn",
			},
		},
		{
			Role: agentregistry.RoleCustomerService, BaseWeight: 1, DomainConfidence: 0.15,
			Phrases: []string{
				"support", "ticket", "complaint", "refund", "customer",
				"issue", "feedback", "satisfaction", "escalation", "help",
			},
		},
	}
}
