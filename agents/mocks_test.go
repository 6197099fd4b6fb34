package agents

import (
	"context"

	"sentinel/models"
)

type mockLLMService struct {
	response string
	err      error
	calls    int
}

func (m *mockLLMService) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	m.calls++
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

type mockFundamentalsService struct {
	fundamentals *models.Fundamentals
	err          error
	calls        int
}

func (m *mockFundamentalsService) GetFundamentals(ctx context.Context, ticker string) (*models.Fundamentals, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.fundamentals, nil
}

func (m *mockFundamentalsService) Screen(ctx context.Context, criteria models.ScreenerCriteria) ([]models.ScreenerCandidate, error) {
	return nil, m.err
}

type mockNewsService struct {
	articles []models.NewsArticle
	err      error
	calls    int
}

func (m *mockNewsService) GetNews(ctx context.Context, query string, limit int) ([]models.NewsArticle, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.articles, nil
}

func (m *mockNewsService) GetHeadlines(ctx context.Context, query string, limit int) ([]models.NewsArticle, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.articles, nil
}

type mockBrokerageService struct {
	bars  []models.Bar
	quote *models.Quote
	err   error
}

func (m *mockBrokerageService) GetPortfolioState(ctx context.Context) (*models.PortfolioState, error) {
	return nil, m.err
}

func (m *mockBrokerageService) GetQuote(ctx context.Context, ticker string) (*models.Quote, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.quote, nil
}

func (m *mockBrokerageService) GetLatestTrade(ctx context.Context, ticker string) (*models.Quote, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.quote, nil
}

func (m *mockBrokerageService) GetDailyBars(ctx context.Context, ticker string, days int) ([]models.Bar, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.bars, nil
}

func (m *mockBrokerageService) SubmitOrder(ctx context.Context, order *models.Order) (string, error) {
	return "", m.err
}

type mockQuoteProvider struct {
	quote *models.Quote
	err   error
}

func (m *mockQuoteProvider) GetLatestTrade(ctx context.Context, ticker string) (*models.Quote, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.quote, nil
}

// stubAgent is a canned analyst for desk tests.
type stubAgent struct {
	agentType AgentType
	analysis  *Analysis
	err       error
	available bool
}

func (s *stubAgent) Analyze(ctx context.Context, ticker string) (*Analysis, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.analysis, nil
}

func (s *stubAgent) Name() string {
	return string(s.agentType) + " stub"
}

func (s *stubAgent) Type() AgentType {
	return s.agentType
}

func (s *stubAgent) IsAvailable(ctx context.Context) bool {
	return s.available
}

func (s *stubAgent) GetMetadata() AgentMetadata {
	return AgentMetadata{Description: "stub", Version: "0.0.0"}
}
