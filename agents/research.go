package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

const researchSystemPrompt = `You are an equity research analyst specializing in fundamental analysis.
Your job is to analyze company fundamentals and judge whether the stock is an attractive swing trade entry.

You will be given fundamental data for a stock including:
- P/E and P/B ratios, EPS, market cap
- 52-week high/low
- Beta (volatility measure)
- Dividend yield
- Sector and industry

Based on this data, provide your analysis in the following JSON format:
{
  "score": <number from -100 to 100, negative=bearish, positive=bullish>,
  "confidence": <number from 0 to 100>,
  "reasoning": "<brief explanation of your analysis>",
  "key_factors": ["<factor1>", "<factor2>", "<factor3>"]
}

Be objective and data-driven in your analysis.`

// ResearchAnalystResponse is the expected structured response from the LLM.
type ResearchAnalystResponse struct {
	Score      float64  `json:"score"`
	Confidence float64  `json:"confidence"`
	Reasoning  string   `json:"reasoning"`
	KeyFactors []string `json:"key_factors"`
}

// ResearchAnalyst scores company fundamentals.
type ResearchAnalyst struct {
	llm          LLMService
	fundamentals FundamentalsService
	healthCache  *HealthCache
}

// NewResearchAnalyst creates a new ResearchAnalyst.
func NewResearchAnalyst(llm LLMService, fundamentals FundamentalsService) *ResearchAnalyst {
	return NewResearchAnalystWithCacheTTL(llm, fundamentals, DefaultHealthCacheTTL)
}

// NewResearchAnalystWithCacheTTL creates a ResearchAnalyst with a custom
// health cache TTL.
func NewResearchAnalystWithCacheTTL(llm LLMService, fundamentals FundamentalsService, cacheTTL time.Duration) *ResearchAnalyst {
	return &ResearchAnalyst{
		llm:          llm,
		fundamentals: fundamentals,
		healthCache:  NewHealthCache(cacheTTL),
	}
}

// Analyze performs fundamental analysis on a ticker.
func (a *ResearchAnalyst) Analyze(ctx context.Context, ticker string) (*Analysis, error) {
	f, err := a.fundamentals.GetFundamentals(ctx, ticker)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch fundamentals: %w", err)
	}

	userPrompt := fmt.Sprintf(`Analyze the following fundamental data for %s (%s):

Sector: %s
Industry: %s
Market Cap: %s
P/E Ratio: %.2f
P/B Ratio: %.2f
EPS: %s
52-Week High: %s
52-Week Low: %s
Beta: %.2f
Dividend Yield: %.2f%%

Provide your analysis.`,
		ticker,
		f.CompanyName,
		f.Sector,
		f.Industry,
		f.MarketCap.String(),
		f.PERatio,
		f.PBRatio,
		f.EPS.String(),
		f.Week52High.String(),
		f.Week52Low.String(),
		f.Beta,
		f.DividendYield*100,
	)

	response, err := a.llm.Complete(ctx, researchSystemPrompt, userPrompt)
	if err != nil {
		return nil, fmt.Errorf("failed to invoke llm: %w", err)
	}

	var result ResearchAnalystResponse
	if err := json.Unmarshal([]byte(response), &result); err != nil {
		// Unparseable output still carries signal; keep it at reduced confidence.
		return &Analysis{
			Ticker:     ticker,
			AgentType:  AgentTypeResearch,
			Score:      0,
			Confidence: 50,
			Reasoning:  response,
			Data: map[string]interface{}{
				"raw_response": response,
				"sector":       f.Sector,
			},
			Timestamp: time.Now(),
		}, nil
	}

	return &Analysis{
		Ticker:     ticker,
		AgentType:  AgentTypeResearch,
		Score:      NormalizeScore(result.Score),
		Confidence: NormalizeConfidence(result.Confidence),
		Reasoning:  result.Reasoning,
		Data: map[string]interface{}{
			"key_factors": result.KeyFactors,
			"sector":      f.Sector,
			"pe_ratio":    f.PERatio,
			"pb_ratio":    f.PBRatio,
		},
		Timestamp: time.Now(),
	}, nil
}

// Name returns the agent name.
func (a *ResearchAnalyst) Name() string {
	return "Research Analyst"
}

// Type returns the agent type.
func (a *ResearchAnalyst) Type() AgentType {
	return AgentTypeResearch
}

// IsAvailable checks whether the fundamentals provider is reachable.
// Results are cached to keep frequent availability checks off the API.
func (a *ResearchAnalyst) IsAvailable(ctx context.Context) bool {
	if available, valid := a.healthCache.Get(); valid {
		return available
	}

	_, err := a.fundamentals.GetFundamentals(ctx, "AAPL")
	available := err == nil
	a.healthCache.Set(available)
	return available
}

// InvalidateHealthCache clears the health cache, forcing the next check to
// make a live call.
func (a *ResearchAnalyst) InvalidateHealthCache() {
	a.healthCache.Invalidate()
}

// GetMetadata returns information about this agent's capabilities.
func (a *ResearchAnalyst) GetMetadata() AgentMetadata {
	return AgentMetadata{
		Description:      "Scores company fundamentals for swing trade attractiveness",
		Version:          "1.0.0",
		RequiredServices: []string{"llm", "fmp"},
	}
}
