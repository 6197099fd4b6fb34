package agents

import (
	"context"
	"time"
)

// ConvictionScale is the scale every desk-level conviction score is produced
// on. Candidates always carry it explicitly as ScaleMax so downstream sizing
// never has to assume it.
const ConvictionScale = 100.0

// AgentType identifies an analyst.
type AgentType string

const (
	AgentTypeResearch  AgentType = "research"
	AgentTypeNews      AgentType = "news"
	AgentTypeTechnical AgentType = "technical"
)

// Analysis is the result of a single agent's analysis of a ticker.
// Score is directional on [-100, 100]: negative bearish, positive bullish.
type Analysis struct {
	Ticker     string                 `json:"ticker"`
	AgentType  AgentType              `json:"agent_type"`
	Score      float64                `json:"score"`
	Confidence float64                `json:"confidence"`
	Reasoning  string                 `json:"reasoning"`
	Data       map[string]interface{} `json:"data,omitempty"`
	Timestamp  time.Time              `json:"timestamp"`
}

// AgentMetadata describes an agent's capabilities and dependencies.
type AgentMetadata struct {
	Description      string   `json:"description"`
	Version          string   `json:"version"`
	RequiredServices []string `json:"required_services"`
}

// Agent is an analyst that scores a ticker along one dimension.
type Agent interface {
	// Analyze scores the ticker. Degraded-but-usable data returns a low
	// confidence analysis rather than an error.
	Analyze(ctx context.Context, ticker string) (*Analysis, error)

	// Name returns a human-readable agent name.
	Name() string

	// Type returns the agent type.
	Type() AgentType

	// IsAvailable reports whether the agent's dependencies are healthy.
	IsAvailable(ctx context.Context) bool

	// GetMetadata returns information about this agent's capabilities.
	GetMetadata() AgentMetadata
}

// NormalizeScore clamps a score to [-100, 100].
func NormalizeScore(score float64) float64 {
	if score > 100 {
		return 100
	}
	if score < -100 {
		return -100
	}
	return score
}

// NormalizeConfidence clamps a confidence value to [0, 100].
func NormalizeConfidence(confidence float64) float64 {
	if confidence > 100 {
		return 100
	}
	if confidence < 0 {
		return 0
	}
	return confidence
}
