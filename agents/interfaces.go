package agents

import "sentinel/services"

// Service interfaces the analysts depend on. Aliased so agent code and tests
// reference one package.
type (
	LLMService          = services.LLMService
	BrokerageService    = services.BrokerageService
	NewsService         = services.NewsService
	FundamentalsService = services.FundamentalsService
)
