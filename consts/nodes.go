package consts

// Analyst domains. These double as the keys accepted by
// PipelineConfig.Analysts and the stage names logged by the orchestrator.
const (
	MarketAnalyst       = "market"
	FundamentalsAnalyst = "fundamentals"
	NewsAnalyst         = "news"
	SentimentAnalyst    = "sentiment"
)

// Debate roles.
const (
	BullResearcher  = "bull"
	BearResearcher  = "bear"
	ResearchManager = "research_manager"

	Trader = "trader"

	AggressiveDebater   = "aggressive"
	NeutralDebater      = "neutral"
	ConservativeDebater = "conservative"
	RiskManager         = "risk_manager"
)

// AllAnalysts lists every supported analyst domain in pipeline order.
var AllAnalysts = []string{MarketAnalyst, FundamentalsAnalyst, NewsAnalyst, SentimentAnalyst}

// RiskRoles lists the risk-debate round-robin order.
var RiskRoles = []string{AggressiveDebater, ConservativeDebater, NeutralDebater}
