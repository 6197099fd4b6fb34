package agents

import (
	"testing"

	"sentinel/config"
	"sentinel/models"
)

func TestDefaultPolicy(t *testing.T) {
	policy := NewDefaultPolicy()

	tests := []struct {
		name       string
		score      float64
		confidence float64
		wantAction models.CandidateAction
		wantAct    bool
	}{
		{"strong buy signal", 75, 80, models.CandidateActionBuy, true},
		{"borderline buy", 25.1, 80, models.CandidateActionBuy, true},
		{"neutral at threshold", 25, 80, "", false},
		{"neutral zero", 0, 80, "", false},
		{"neutral at sell threshold", -25, 80, "", false},
		{"borderline sell", -25.1, 80, models.CandidateActionSell, true},
		{"strong sell signal", -75, 80, models.CandidateActionSell, true},
		{"low confidence still acts", 50, 5, models.CandidateActionBuy, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			action, act := policy.Decide(tt.score, tt.confidence)
			if act != tt.wantAct {
				t.Fatalf("Decide(%v, %v) act = %v, want %v", tt.score, tt.confidence, act, tt.wantAct)
			}
			if act && action != tt.wantAction {
				t.Errorf("Decide(%v, %v) = %v, want %v", tt.score, tt.confidence, action, tt.wantAction)
			}
		})
	}
}

func TestConservativePolicy(t *testing.T) {
	policy := NewConservativePolicy()

	tests := []struct {
		name       string
		score      float64
		confidence float64
		wantAction models.CandidateAction
		wantAct    bool
	}{
		{"strong signal, high confidence", 50, 80, models.CandidateActionBuy, true},
		{"strong signal, low confidence skipped", 50, 40, "", false},
		{"moderate signal below raised threshold", 30, 80, "", false},
		{"strong sell, high confidence", -50, 80, models.CandidateActionSell, true},
		{"strong sell, low confidence skipped", -50, 59, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			action, act := policy.Decide(tt.score, tt.confidence)
			if act != tt.wantAct {
				t.Fatalf("Decide(%v, %v) act = %v, want %v", tt.score, tt.confidence, act, tt.wantAct)
			}
			if act && action != tt.wantAction {
				t.Errorf("Decide(%v, %v) = %v, want %v", tt.score, tt.confidence, action, tt.wantAction)
			}
		})
	}
}

func TestAggressivePolicy(t *testing.T) {
	policy := NewAggressivePolicy()

	if action, act := policy.Decide(16, 10); !act || action != models.CandidateActionBuy {
		t.Errorf("Decide(16, 10) = %v, %v, want buy", action, act)
	}
	if action, act := policy.Decide(-16, 10); !act || action != models.CandidateActionSell {
		t.Errorf("Decide(-16, 10) = %v, %v, want sell", action, act)
	}
	if _, act := policy.Decide(10, 90); act {
		t.Error("Decide(10, 90) should skip")
	}
}

func TestCustomPolicy(t *testing.T) {
	policy := NewCustomPolicy(40, -40, 70)

	if _, act := policy.Decide(50, 60); act {
		t.Error("should skip below min confidence")
	}
	if action, act := policy.Decide(50, 80); !act || action != models.CandidateActionBuy {
		t.Errorf("Decide(50, 80) = %v, %v, want buy", action, act)
	}
	if _, act := policy.Decide(35, 80); act {
		t.Error("should skip below custom buy threshold")
	}

	// MinConfidence of zero disables the confidence gate.
	open := NewCustomPolicy(40, -40, 0)
	if _, act := open.Decide(50, 1); !act {
		t.Error("zero min confidence should not gate decisions")
	}
}

func TestPolicyFromConfig(t *testing.T) {
	tests := []struct {
		policy string
		want   string
	}{
		{"default", "default"},
		{"conservative", "conservative"},
		{"aggressive", "aggressive"},
		{"custom", "custom"},
		{"unknown", "default"},
		{"", "default"},
	}

	for _, tt := range tests {
		t.Run(tt.policy, func(t *testing.T) {
			cfg := config.NewTestConfig()
			cfg.Agent.Policy = tt.policy

			got := PolicyFromConfig(cfg)
			if got.Name() != tt.want {
				t.Errorf("PolicyFromConfig(%q).Name() = %q, want %q", tt.policy, got.Name(), tt.want)
			}
		})
	}
}

func TestPolicyFromConfig_CustomThresholds(t *testing.T) {
	cfg := config.NewTestConfig()
	cfg.Agent.Policy = "custom"
	cfg.Agent.BuyThreshold = 10
	cfg.Agent.SellThreshold = -10
	cfg.Agent.MinConfidence = 50

	policy := PolicyFromConfig(cfg)
	custom, ok := policy.(*CustomPolicy)
	if !ok {
		t.Fatalf("expected *CustomPolicy, got %T", policy)
	}
	if custom.BuyThreshold != 10 || custom.SellThreshold != -10 || custom.MinConfidence != 50 {
		t.Errorf("custom thresholds not carried from config: %+v", custom)
	}
}
