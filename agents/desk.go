package agents

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"sentinel/config"
	"sentinel/models"
	"sentinel/observability"

	"github.com/shopspring/decimal"
)

// expectedAgentCount is the full analyst roster: research, news, technical.
const expectedAgentCount = 3

// defaultStopLossPct places the stop this far below entry when the technical
// analyst did not supply a volatility-based suggestion.
const defaultStopLossPct = 0.05

// QuoteProvider supplies the entry price for a freshly scored candidate.
type QuoteProvider interface {
	GetLatestTrade(ctx context.Context, ticker string) (*models.Quote, error)
}

// MissingAgentInfo records why an analyst did not contribute to a score.
type MissingAgentInfo struct {
	AgentType AgentType `json:"agent_type"`
	Reason    string    `json:"reason"`
}

// ResearchDesk runs the analyst roster against a ticker and merges their
// component scores into a single conviction-scored candidate. Missing
// analysts reduce confidence and are reported in the reasoning, never
// silently defaulted.
type ResearchDesk struct {
	agents []Agent
	cfg    *config.Config
	quotes QuoteProvider
	policy ActionPolicy
}

// NewResearchDesk creates a desk with the policy named in configuration.
func NewResearchDesk(cfg *config.Config, quotes QuoteProvider) *ResearchDesk {
	return &ResearchDesk{
		agents: make([]Agent, 0),
		cfg:    cfg,
		quotes: quotes,
		policy: PolicyFromConfig(cfg),
	}
}

// RegisterAgent adds an analyst to the roster.
func (d *ResearchDesk) RegisterAgent(agent Agent) {
	d.agents = append(d.agents, agent)
}

// GetAgents returns the registered analysts.
func (d *ResearchDesk) GetAgents() []Agent {
	return d.agents
}

// Policy returns the active action policy.
func (d *ResearchDesk) Policy() ActionPolicy {
	return d.policy
}

// SetPolicy replaces the active action policy.
func (d *ResearchDesk) SetPolicy(policy ActionPolicy) {
	d.policy = policy
}

// agentResult holds the outcome of one analyst's attempt.
type agentResult struct {
	agent    Agent
	analysis *Analysis
	err      error
}

// Score runs all available analysts in parallel and merges their results.
// A ticker the policy declines to act on returns (nil, nil): skipping is an
// outcome, not a failure.
func (d *ResearchDesk) Score(ctx context.Context, ticker string) (*models.Candidate, error) {
	metrics := observability.GetMetrics()
	log := observability.ForTicker(ticker)

	var unavailable []MissingAgentInfo
	available := make([]Agent, 0, len(d.agents))
	for _, agent := range d.agents {
		if agent.IsAvailable(ctx) {
			available = append(available, agent)
		} else {
			unavailable = append(unavailable, MissingAgentInfo{
				AgentType: agent.Type(),
				Reason:    fmt.Sprintf("%s unavailable: dependencies not healthy (%v)", agent.Name(), agent.GetMetadata().RequiredServices),
			})
			observability.Warn("agent unavailable, skipping",
				"agent", agent.Name(),
				"required_services", agent.GetMetadata().RequiredServices)
		}
	}

	if len(available) == 0 {
		metrics.RecordCandidateError("no_agents_available")
		return nil, fmt.Errorf("no agents available to score %s", ticker)
	}

	var wg sync.WaitGroup
	results := make([]agentResult, len(available))

	for i, agent := range available {
		wg.Add(1)
		go func(idx int, ag Agent) {
			defer wg.Done()

			agentCtx, cancel := context.WithTimeout(ctx, time.Duration(d.cfg.Agent.TimeoutSeconds)*time.Second)
			defer cancel()

			timer := metrics.NewTimer()
			analysis, err := ag.Analyze(agentCtx, ticker)
			timer.ObserveAgent(string(ag.Type()))

			results[idx] = agentResult{agent: ag, analysis: analysis, err: err}

			if err != nil {
				metrics.RecordAgentError(string(ag.Type()), categorizeError(err))
			}
		}(i, agent)
	}

	wg.Wait()

	var analyses []*Analysis
	var failed []MissingAgentInfo
	for _, result := range results {
		if result.analysis != nil {
			analyses = append(analyses, result.analysis)
		} else if result.err != nil {
			failed = append(failed, MissingAgentInfo{
				AgentType: result.agent.Type(),
				Reason:    fmt.Sprintf("%s failed: %v", result.agent.Name(), result.err),
			})
			log.Warn("agent analysis failed",
				"agent", result.agent.Name(),
				"error", result.err)
		}
	}

	if len(analyses) == 0 {
		metrics.RecordCandidateError("all_agents_failed")
		return nil, fmt.Errorf("all agents failed to score %s", ticker)
	}

	missing := append(unavailable, failed...)
	return d.synthesize(ctx, ticker, analyses, missing)
}

// synthesize merges analyst results into a candidate, or nil when the policy
// declines to act.
func (d *ResearchDesk) synthesize(ctx context.Context, ticker string, analyses []*Analysis, missing []MissingAgentInfo) (*models.Candidate, error) {
	metrics := observability.GetMetrics()

	weights := map[AgentType]float64{
		AgentTypeResearch:  d.cfg.Agent.WeightResearch,
		AgentTypeNews:      d.cfg.Agent.WeightNews,
		AgentTypeTechnical: d.cfg.Agent.WeightTechnical,
	}

	var researchScore, sentimentScore, technicalScore float64
	var weightedScore, totalWeight float64
	var reasonings []string
	var sector string
	var technicalData map[string]interface{}

	for _, analysis := range analyses {
		weight := weights[analysis.AgentType]
		weightedScore += analysis.Score * weight * (analysis.Confidence / 100)
		totalWeight += weight * (analysis.Confidence / 100)

		switch analysis.AgentType {
		case AgentTypeResearch:
			researchScore = analysis.Score
			if s, ok := analysis.Data["sector"].(string); ok {
				sector = s
			}
		case AgentTypeNews:
			sentimentScore = analysis.Score
		case AgentTypeTechnical:
			technicalScore = analysis.Score
			technicalData = analysis.Data
		}

		reasonings = append(reasonings, fmt.Sprintf("[%s] %s", analysis.AgentType, analysis.Reasoning))
	}

	var finalScore float64
	if totalWeight > 0 {
		finalScore = weightedScore / totalWeight
	}

	avgConfidence := 0.0
	for _, analysis := range analyses {
		avgConfidence += analysis.Confidence
	}
	avgConfidence /= float64(len(analyses))

	// Each missing analyst costs 15% confidence, up to 45%.
	if len(missing) > 0 {
		penalty := float64(len(missing)) * 15.0
		if penalty > 45.0 {
			penalty = 45.0
		}
		avgConfidence = avgConfidence * (1 - penalty/100)
	}
	avgConfidence = NormalizeConfidence(avgConfidence)

	action, act := d.policy.Decide(finalScore, avgConfidence)
	if !act {
		observability.Debug("policy declined to act",
			"ticker", ticker,
			"policy", d.policy.Name(),
			"score", finalScore,
			"confidence", avgConfidence)
		return nil, nil
	}

	conviction := math.Abs(finalScore)
	if conviction > ConvictionScale {
		conviction = ConvictionScale
	}

	candidate := models.NewCandidate(ticker, action, conviction, ConvictionScale)
	candidate.ResearchScore = researchScore
	candidate.SentimentScore = sentimentScore
	candidate.TechnicalScore = technicalScore
	candidate.Confidence = avgConfidence
	candidate.Sector = sector
	candidate.Reasoning = buildReasoning(len(analyses), missing, researchScore, sentimentScore, technicalScore, finalScore, reasonings)

	if err := d.priceCandidate(ctx, candidate, technicalData); err != nil {
		metrics.RecordCandidateError("pricing_failed")
		return nil, err
	}

	if err := candidate.Validate(); err != nil {
		metrics.RecordCandidateError("invalid_candidate")
		return nil, fmt.Errorf("desk produced invalid candidate: %w", err)
	}

	metrics.RecordCandidate(string(action), conviction, avgConfidence)
	return candidate, nil
}

// priceCandidate fills entry, stop loss, and target. Entry comes from the
// latest trade, falling back to the technical analyst's last close. The stop
// prefers the analyst's volatility-based suggestion over a fixed percentage.
func (d *ResearchDesk) priceCandidate(ctx context.Context, candidate *models.Candidate, technicalData map[string]interface{}) error {
	entry := decimal.Zero

	if d.quotes != nil {
		if quote, err := d.quotes.GetLatestTrade(ctx, candidate.Ticker); err == nil {
			entry = quote.Price()
		} else {
			observability.Warn("failed to fetch latest trade for candidate pricing",
				"ticker", candidate.Ticker,
				"error", err)
		}
	}

	if entry.IsZero() {
		if lastClose, ok := technicalData["last_close"].(float64); ok && lastClose > 0 {
			entry = decimal.NewFromFloat(lastClose)
		}
	}

	if entry.IsZero() {
		if candidate.Action == models.CandidateActionBuy {
			return fmt.Errorf("no usable entry price for %s", candidate.Ticker)
		}
		return nil
	}

	candidate.EntryPrice = entry

	stop := decimal.Zero
	if suggested, ok := technicalData["suggested_stop"].(float64); ok && suggested > 0 {
		s := decimal.NewFromFloat(suggested)
		if s.LessThan(entry) {
			stop = s
		}
	}
	if stop.IsZero() {
		stop = entry.Mul(decimal.NewFromFloat(1 - defaultStopLossPct))
	}
	candidate.StopLossPrice = stop

	// 2:1 reward-to-risk target above entry.
	risk := entry.Sub(stop)
	candidate.TargetPrice = entry.Add(risk.Mul(decimal.NewFromInt(2)))

	return nil
}

// buildReasoning assembles the human-readable audit trail for a candidate.
func buildReasoning(contributed int, missing []MissingAgentInfo, research, sentiment, technical, final float64, reasonings []string) string {
	var sb strings.Builder

	if len(missing) > 0 {
		var missingTypes []string
		for _, m := range missing {
			missingTypes = append(missingTypes, string(m.AgentType))
		}
		sb.WriteString(fmt.Sprintf("Based on analysis from %d of %d agents (%s unavailable). ",
			contributed, expectedAgentCount, strings.Join(missingTypes, ", ")))
	} else {
		sb.WriteString(fmt.Sprintf("Based on analysis from %d agents. ", contributed))
	}

	sb.WriteString(fmt.Sprintf("Scores - Research: %.0f, Sentiment: %.0f, Technical: %.0f. Overall score: %.1f. ",
		research, sentiment, technical, final))

	if len(missing) > 0 {
		sb.WriteString("Note: Confidence reduced due to incomplete data. ")
	}

	for _, r := range reasonings {
		sb.WriteString(r)
		sb.WriteString(" ")
	}

	return strings.TrimSpace(sb.String())
}

// categorizeError buckets an agent failure for metrics labeling.
func categorizeError(err error) string {
	if err == nil {
		return "none"
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "context deadline"):
		return "timeout"
	case strings.Contains(msg, "circuit breaker"):
		return "circuit_breaker"
	case strings.Contains(msg, "rate limit"), strings.Contains(msg, "too many requests"):
		return "rate_limit"
	case strings.Contains(msg, "connection"), strings.Contains(msg, "network"):
		return "network"
	default:
		return "other"
	}
}
