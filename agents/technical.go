package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"sentinel/models"
)

const technicalSystemPrompt = `You are a financial analyst specializing in technical analysis.
Your job is to analyze price action and technical indicators to predict short-term price movements.

You will be given technical indicators including:
- RSI (Relative Strength Index): <30 oversold, >70 overbought
- MACD (Moving Average Convergence Divergence) and Signal line
- SMA (Simple Moving Averages): 20-day and 50-day
- ATR (Average True Range) as a volatility measure
- Recent price action

Based on these indicators, provide your analysis in the following JSON format:
{
  "score": <number from -100 to 100, negative=bearish, positive=bullish>,
  "confidence": <number from 0 to 100>,
  "reasoning": "<brief explanation of your technical analysis>",
  "signals": ["<signal1>", "<signal2>", "<signal3>"]
}

Consider:
- RSI divergences and overbought/oversold conditions
- MACD crossovers and histogram trends
- Price relative to moving averages (support/resistance)
- Overall trend direction

Be objective and focus on actionable technical signals.`

// minBarsForAnalysis is the minimum history needed for the 50-day SMA.
const minBarsForAnalysis = 50

// stopLossATRMultiple places the suggested stop this many ATRs below the
// last close.
const stopLossATRMultiple = 2.0

// TechnicalAnalystResponse is the expected structured response from the LLM.
type TechnicalAnalystResponse struct {
	Score      float64  `json:"score"`
	Confidence float64  `json:"confidence"`
	Reasoning  string   `json:"reasoning"`
	Signals    []string `json:"signals"`
}

// TechnicalAnalyst scores price action and derives a volatility-based stop
// loss suggestion for the desk.
type TechnicalAnalyst struct {
	llm          LLMService
	brokerage    BrokerageService
	lookbackDays int
	healthCache  *HealthCache
}

// NewTechnicalAnalyst creates a new TechnicalAnalyst.
func NewTechnicalAnalyst(llm LLMService, brokerage BrokerageService, lookbackDays int) *TechnicalAnalyst {
	return NewTechnicalAnalystWithCacheTTL(llm, brokerage, lookbackDays, DefaultHealthCacheTTL)
}

// NewTechnicalAnalystWithCacheTTL creates a TechnicalAnalyst with a custom
// health cache TTL.
func NewTechnicalAnalystWithCacheTTL(llm LLMService, brokerage BrokerageService, lookbackDays int, cacheTTL time.Duration) *TechnicalAnalyst {
	return &TechnicalAnalyst{
		llm:          llm,
		brokerage:    brokerage,
		lookbackDays: lookbackDays,
		healthCache:  NewHealthCache(cacheTTL),
	}
}

// Analyze performs technical analysis on a ticker.
func (a *TechnicalAnalyst) Analyze(ctx context.Context, ticker string) (*Analysis, error) {
	bars, err := a.brokerage.GetDailyBars(ctx, ticker, a.lookbackDays)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch price data: %w", err)
	}

	if len(bars) < minBarsForAnalysis {
		return &Analysis{
			Ticker:     ticker,
			AgentType:  AgentTypeTechnical,
			Score:      0,
			Confidence: 20,
			Reasoning:  "Insufficient price history for technical analysis",
			Data:       map[string]interface{}{"bars_count": len(bars)},
			Timestamp:  time.Now(),
		}, nil
	}

	closes := make([]float64, len(bars))
	for i, bar := range bars {
		closes[i] = bar.Close.InexactFloat64()
	}

	indicators := calculateIndicators(closes)
	atr := calculateATR(bars, 14)
	lastClose := closes[len(closes)-1]

	suggestedStop := lastClose - stopLossATRMultiple*atr
	if suggestedStop < 0 {
		suggestedStop = 0
	}
	volatility := 0.0
	if lastClose > 0 {
		volatility = atr / lastClose
	}

	userPrompt := fmt.Sprintf(`Analyze the following technical indicators for %s:

Current Price: $%.2f
Period High: $%.2f
Period Low: $%.2f

RSI (14-period): %.2f
MACD: %.4f
MACD Signal: %.4f
MACD Histogram: %.4f

SMA 20: $%.2f
SMA 50: $%.2f
ATR (14-period): $%.2f

Price vs SMA20: %.2f%%
Price vs SMA50: %.2f%%

Provide your technical analysis.`,
		ticker,
		lastClose,
		indicators["high"].(float64),
		indicators["low"].(float64),
		indicators["rsi"].(float64),
		indicators["macd"].(float64),
		indicators["macd_signal"].(float64),
		indicators["macd_histogram"].(float64),
		indicators["sma20"].(float64),
		indicators["sma50"].(float64),
		atr,
		(lastClose/indicators["sma20"].(float64)-1)*100,
		(lastClose/indicators["sma50"].(float64)-1)*100,
	)

	response, err := a.llm.Complete(ctx, technicalSystemPrompt, userPrompt)
	if err != nil {
		return nil, fmt.Errorf("failed to invoke llm: %w", err)
	}

	var result TechnicalAnalystResponse
	if err := json.Unmarshal([]byte(response), &result); err != nil {
		return &Analysis{
			Ticker:     ticker,
			AgentType:  AgentTypeTechnical,
			Score:      0,
			Confidence: 50,
			Reasoning:  response,
			Data: map[string]interface{}{
				"raw_response":   response,
				"indicators":     indicators,
				"last_close":     lastClose,
				"suggested_stop": suggestedStop,
				"volatility":     volatility,
			},
			Timestamp: time.Now(),
		}, nil
	}

	return &Analysis{
		Ticker:     ticker,
		AgentType:  AgentTypeTechnical,
		Score:      NormalizeScore(result.Score),
		Confidence: NormalizeConfidence(result.Confidence),
		Reasoning:  result.Reasoning,
		Data: map[string]interface{}{
			"signals":        result.Signals,
			"indicators":     indicators,
			"last_close":     lastClose,
			"suggested_stop": suggestedStop,
			"volatility":     volatility,
		},
		Timestamp: time.Now(),
	}, nil
}

// calculateIndicators computes RSI, SMAs, MACD, and period high/low from
// close prices.
func calculateIndicators(prices []float64) map[string]interface{} {
	result := make(map[string]interface{})

	result["rsi"] = calculateRSI(prices, 14)
	result["sma20"] = calculateSMA(prices, 20)
	result["sma50"] = calculateSMA(prices, 50)

	ema12 := calculateEMA(prices, 12)
	ema26 := calculateEMA(prices, 26)

	macdLine := make([]float64, len(prices))
	for i := range prices {
		macdLine[i] = ema12[i] - ema26[i]
	}
	signalLine := calculateEMA(macdLine, 9)

	if len(macdLine) > 0 && len(signalLine) > 0 {
		macd := macdLine[len(macdLine)-1]
		signal := signalLine[len(signalLine)-1]
		result["macd"] = macd
		result["macd_signal"] = signal
		result["macd_histogram"] = macd - signal
	} else {
		result["macd"] = 0.0
		result["macd_signal"] = 0.0
		result["macd_histogram"] = 0.0
	}

	high, low := prices[0], prices[0]
	for _, p := range prices {
		if p > high {
			high = p
		}
		if p < low {
			low = p
		}
	}
	result["high"] = high
	result["low"] = low

	return result
}

// calculateRSI computes the Relative Strength Index over the trailing period.
func calculateRSI(prices []float64, period int) float64 {
	if len(prices) < period+1 {
		return 50.0 // neutral
	}

	var gains, losses float64
	for i := 1; i <= period; i++ {
		change := prices[len(prices)-i] - prices[len(prices)-i-1]
		if change > 0 {
			gains += change
		} else {
			losses -= change
		}
	}

	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)

	if avgLoss == 0 {
		return 100.0
	}

	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}

// calculateSMA computes a Simple Moving Average over the trailing period.
func calculateSMA(prices []float64, period int) float64 {
	if len(prices) < period {
		return 0
	}
	sum := 0.0
	for i := len(prices) - period; i < len(prices); i++ {
		sum += prices[i]
	}
	return sum / float64(period)
}

// calculateEMA computes an Exponential Moving Average series.
func calculateEMA(prices []float64, period int) []float64 {
	if len(prices) < period {
		return prices
	}

	ema := make([]float64, len(prices))
	multiplier := 2.0 / float64(period+1)

	sum := 0.0
	for i := 0; i < period; i++ {
		sum += prices[i]
		ema[i] = prices[i] // placeholder until the seed SMA is available
	}
	ema[period-1] = sum / float64(period)

	for i := period; i < len(prices); i++ {
		ema[i] = (prices[i]-ema[i-1])*multiplier + ema[i-1]
	}

	return ema
}

// calculateATR computes the Average True Range over the trailing period.
func calculateATR(bars []models.Bar, period int) float64 {
	if len(bars) < period+1 {
		return 0
	}

	sum := 0.0
	for i := len(bars) - period; i < len(bars); i++ {
		high := bars[i].High.InexactFloat64()
		low := bars[i].Low.InexactFloat64()
		prevClose := bars[i-1].Close.InexactFloat64()

		tr := high - low
		if v := math.Abs(high - prevClose); v > tr {
			tr = v
		}
		if v := math.Abs(prevClose - low); v > tr {
			tr = v
		}
		sum += tr
	}
	return sum / float64(period)
}

// Name returns the agent name.
func (a *TechnicalAnalyst) Name() string {
	return "Technical Analyst"
}

// Type returns the agent type.
func (a *TechnicalAnalyst) Type() AgentType {
	return AgentTypeTechnical
}

// IsAvailable checks whether market data is reachable.
// Results are cached to keep frequent availability checks off the API.
func (a *TechnicalAnalyst) IsAvailable(ctx context.Context) bool {
	if available, valid := a.healthCache.Get(); valid {
		return available
	}

	_, err := a.brokerage.GetDailyBars(ctx, "AAPL", 5)
	available := err == nil
	a.healthCache.Set(available)
	return available
}

// InvalidateHealthCache clears the health cache, forcing the next check to
// make a live call.
func (a *TechnicalAnalyst) InvalidateHealthCache() {
	a.healthCache.Invalidate()
}

// GetMetadata returns information about this agent's capabilities.
func (a *TechnicalAnalyst) GetMetadata() AgentMetadata {
	return AgentMetadata{
		Description:      "Scores price action and derives volatility-based stop suggestions",
		Version:          "1.0.0",
		RequiredServices: []string{"llm", "alpaca"},
	}
}
