package services

import (
	"context"

	"sentinel/models"
)

// LLMService is the single entry point into the model backend. Both the
// OpenAI and Bedrock backends satisfy it; the research desk does not care
// which one is wired in. Agents parse the returned text themselves so that
// an unparseable response can still be surfaced as reasoning.
type LLMService interface {
	// Complete sends one system/user prompt pair and returns the raw
	// response text.
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// BrokerageService defines the interface for account, market data, and order
// operations against the brokerage
type BrokerageService interface {
	// GetPortfolioState assembles the ground-truth account snapshot used for
	// every sizing and validation decision.
	GetPortfolioState(ctx context.Context) (*models.PortfolioState, error)

	// Market data operations
	GetQuote(ctx context.Context, ticker string) (*models.Quote, error)
	GetLatestTrade(ctx context.Context, ticker string) (*models.Quote, error)
	GetDailyBars(ctx context.Context, ticker string, days int) ([]models.Bar, error)

	// SubmitOrder places the order and returns the broker's order ID.
	SubmitOrder(ctx context.Context, order *models.Order) (string, error)
}

// NewsService defines the interface for news data operations
type NewsService interface {
	GetNews(ctx context.Context, query string, limit int) ([]models.NewsArticle, error)
	GetHeadlines(ctx context.Context, query string, limit int) ([]models.NewsArticle, error)
}

// FundamentalsService defines the interface for fundamental data and universe
// screening operations
type FundamentalsService interface {
	GetFundamentals(ctx context.Context, ticker string) (*models.Fundamentals, error)
	Screen(ctx context.Context, criteria models.ScreenerCriteria) ([]models.ScreenerCandidate, error)
}

// Compile-time interface verification
var _ LLMService = (*BedrockService)(nil)
var _ LLMService = (*OpenAIService)(nil)
var _ BrokerageService = (*AlpacaService)(nil)
var _ NewsService = (*NewsAPIService)(nil)
var _ FundamentalsService = (*FMPService)(nil)
