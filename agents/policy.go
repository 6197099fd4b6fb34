package agents

import (
	"sentinel/config"
	"sentinel/models"
)

// ActionPolicy turns a blended desk score and confidence into a trade
// decision. The second return value is false when the desk should skip the
// ticker entirely.
type ActionPolicy interface {
	Decide(score, confidence float64) (models.CandidateAction, bool)
	Name() string
}

// DefaultPolicy acts on the standard +/-25 thresholds.
type DefaultPolicy struct {
	BuyThreshold  float64
	SellThreshold float64
}

func NewDefaultPolicy() *DefaultPolicy {
	return &DefaultPolicy{
		BuyThreshold:  25,
		SellThreshold: -25,
	}
}

func (p *DefaultPolicy) Decide(score, confidence float64) (models.CandidateAction, bool) {
	if score > p.BuyThreshold {
		return models.CandidateActionBuy, true
	}
	if score < p.SellThreshold {
		return models.CandidateActionSell, true
	}
	return "", false
}

func (p *DefaultPolicy) Name() string {
	return "default"
}

// ConservativePolicy demands stronger signals and a confidence floor.
type ConservativePolicy struct {
	BuyThreshold  float64
	SellThreshold float64
	MinConfidence float64
}

func NewConservativePolicy() *ConservativePolicy {
	return &ConservativePolicy{
		BuyThreshold:  35,
		SellThreshold: -35,
		MinConfidence: 60,
	}
}

func (p *ConservativePolicy) Decide(score, confidence float64) (models.CandidateAction, bool) {
	if confidence < p.MinConfidence {
		return "", false
	}
	if score > p.BuyThreshold {
		return models.CandidateActionBuy, true
	}
	if score < p.SellThreshold {
		return models.CandidateActionSell, true
	}
	return "", false
}

func (p *ConservativePolicy) Name() string {
	return "conservative"
}

// AggressivePolicy trades on weaker signals.
type AggressivePolicy struct {
	BuyThreshold  float64
	SellThreshold float64
}

func NewAggressivePolicy() *AggressivePolicy {
	return &AggressivePolicy{
		BuyThreshold:  15,
		SellThreshold: -15,
	}
}

func (p *AggressivePolicy) Decide(score, confidence float64) (models.CandidateAction, bool) {
	if score > p.BuyThreshold {
		return models.CandidateActionBuy, true
	}
	if score < p.SellThreshold {
		return models.CandidateActionSell, true
	}
	return "", false
}

func (p *AggressivePolicy) Name() string {
	return "aggressive"
}

// CustomPolicy carries fully configurable thresholds.
type CustomPolicy struct {
	BuyThreshold  float64
	SellThreshold float64
	MinConfidence float64
}

func NewCustomPolicy(buyThreshold, sellThreshold, minConfidence float64) *CustomPolicy {
	return &CustomPolicy{
		BuyThreshold:  buyThreshold,
		SellThreshold: sellThreshold,
		MinConfidence: minConfidence,
	}
}

func (p *CustomPolicy) Decide(score, confidence float64) (models.CandidateAction, bool) {
	if p.MinConfidence > 0 && confidence < p.MinConfidence {
		return "", false
	}
	if score > p.BuyThreshold {
		return models.CandidateActionBuy, true
	}
	if score < p.SellThreshold {
		return models.CandidateActionSell, true
	}
	return "", false
}

func (p *CustomPolicy) Name() string {
	return "custom"
}

// PolicyFromConfig builds the policy named by AGENT_POLICY. Unknown names
// fall back to the default policy.
func PolicyFromConfig(cfg *config.Config) ActionPolicy {
	switch cfg.Agent.Policy {
	case "conservative":
		return NewConservativePolicy()
	case "aggressive":
		return NewAggressivePolicy()
	case "custom":
		return NewCustomPolicy(
			cfg.Agent.BuyThreshold,
			cfg.Agent.SellThreshold,
			cfg.Agent.MinConfidence,
		)
	default:
		return NewDefaultPolicy()
	}
}
