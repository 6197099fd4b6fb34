package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	Database DatabaseConfig

	// LLM provider configurations
	OpenAI  OpenAIConfig
	Bedrock BedrockConfig

	// External service configurations
	Alpaca  AlpacaConfig
	NewsAPI NewsAPIConfig
	FMP     FMPConfig

	// Agent configuration
	Agent AgentConfig

	// Allocation configuration
	Allocation AllocationConfig

	// Rebalance configuration
	Rebalance RebalanceConfig

	// Constraint configuration
	Constraint ConstraintConfig

	// Screener configuration
	Screener ScreenerConfig

	// HTTP configuration
	HTTP HTTPConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL string
}

// OpenAIConfig holds OpenAI API configuration
type OpenAIConfig struct {
	APIKey    string
	Model     string
	MaxTokens int
}

// BedrockConfig holds AWS Bedrock configuration
type BedrockConfig struct {
	Region    string
	ModelID   string
	MaxTokens int
}

// AlpacaConfig holds Alpaca API configuration
type AlpacaConfig struct {
	APIKey    string
	APISecret string
	BaseURL   string
}

// NewsAPIConfig holds NewsAPI configuration
type NewsAPIConfig struct {
	APIKey string
}

// FMPConfig holds Financial Modeling Prep API configuration
type FMPConfig struct {
	APIKey string
}

// AgentConfig holds research desk configuration
type AgentConfig struct {
	TimeoutSeconds        int
	ConcurrencyLimit      int
	TechnicalLookbackDays int
	WeightResearch        float64
	WeightNews            float64
	WeightTechnical       float64
	Policy                string  // default, conservative, aggressive, or custom
	BuyThreshold          float64 // for custom policy
	SellThreshold         float64 // for custom policy
	MinConfidence         float64 // for custom/conservative policy
	HealthCacheTTLSeconds int     // TTL for health check caching (default: 30)
}

// AllocationConfig holds capital allocation configuration
type AllocationConfig struct {
	MaxSinglePositionPct  float64
	MaxSectorPct          float64
	MaxTotalDeploymentPct float64
	MinPositionValue      float64
	ConvictionExponent    float64
}

// RebalanceConfig holds rebalancer configuration
type RebalanceConfig struct {
	Threshold float64
}

// ConstraintConfig holds order validation configuration
type ConstraintConfig struct {
	MaxSinglePositionPct float64
	MaxSectorPct         float64
	MinPositionValue     float64
	RestrictedTickers    []string
	CooldownSeconds      int

	CheckPositionSize bool
	CheckSectorCap    bool
	CheckMinPosition  bool
	CheckRestricted   bool
	CheckDuplicates   bool
}

// ScreenerConfig holds value screener configuration
type ScreenerConfig struct {
	MarketCapMin       int64   // Minimum market cap filter (default: 1B)
	PERatioMax         float64 // Maximum P/E ratio filter (default: 15)
	PBRatioMax         float64 // Maximum P/B ratio filter (default: 1.5)
	PreFilterLimit     int     // Number of candidates to pre-filter (default: 15)
	TopPicksCount      int     // Number of top picks to return (default: 3)
	AnalysisTimeoutSec int     // Timeout for full analysis in seconds (default: 120)
	MaxConcurrent      int     // Max concurrent analyses (default: 5)
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	Port               int
	CORSAllowedOrigins string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		OpenAI: OpenAIConfig{
			APIKey:    os.Getenv("OPENAI_API_KEY"),
			Model:     getEnvString("OPENAI_MODEL", "gpt-4o"),
			MaxTokens: getEnvInt("OPENAI_MAX_TOKENS", 4096),
		},
		Bedrock: BedrockConfig{
			Region:    getEnvString("BEDROCK_REGION", "us-east-1"),
			ModelID:   os.Getenv("BEDROCK_MODEL_ID"),
			MaxTokens: getEnvInt("BEDROCK_MAX_TOKENS", 4096),
		},
		Alpaca: AlpacaConfig{
			APIKey:    os.Getenv("ALPACA_API_KEY"),
			APISecret: os.Getenv("ALPACA_API_SECRET"),
			BaseURL:   getEnvString("ALPACA_BASE_URL", "https://paper-api.alpaca.markets"),
		},
		NewsAPI: NewsAPIConfig{
			APIKey: os.Getenv("NEWS_API_KEY"),
		},
		FMP: FMPConfig{
			APIKey: os.Getenv("FMP_API_KEY"),
		},
		Agent: AgentConfig{
			TimeoutSeconds:        getEnvInt("AGENT_TIMEOUT_SECONDS", 30),
			ConcurrencyLimit:      getEnvInt("ANALYSIS_CONCURRENCY_LIMIT", 3),
			TechnicalLookbackDays: getEnvInt("TECHNICAL_ANALYSIS_LOOKBACK_DAYS", 100),
			WeightResearch:        getEnvFloat("AGENT_WEIGHT_RESEARCH", 0.4),
			WeightNews:            getEnvFloat("AGENT_WEIGHT_NEWS", 0.3),
			WeightTechnical:       getEnvFloat("AGENT_WEIGHT_TECHNICAL", 0.3),
			Policy:                getEnvString("AGENT_POLICY", "default"),
			BuyThreshold:          getEnvFloatUnbounded("AGENT_BUY_THRESHOLD", 25),
			SellThreshold:         getEnvFloatUnbounded("AGENT_SELL_THRESHOLD", -25),
			MinConfidence:         getEnvFloatUnbounded("AGENT_MIN_CONFIDENCE", 0),
			HealthCacheTTLSeconds: getEnvInt("AGENT_HEALTH_CACHE_TTL_SECONDS", 30),
		},
		Allocation: AllocationConfig{
			MaxSinglePositionPct:  getEnvFloatRange("ALLOCATION_MAX_POSITION_PCT", 0.20, 0.01, 1.0),
			MaxSectorPct:          getEnvFloatRange("ALLOCATION_MAX_SECTOR_PCT", 0.30, 0.01, 1.0),
			MaxTotalDeploymentPct: getEnvFloatRange("ALLOCATION_MAX_DEPLOYMENT_PCT", 0.90, 0.01, 1.0),
			MinPositionValue:      getEnvFloatUnbounded("ALLOCATION_MIN_POSITION_VALUE", 500),
			ConvictionExponent:    getEnvFloatRange("ALLOCATION_CONVICTION_EXPONENT", 2.0, 0.5, 5.0),
		},
		Rebalance: RebalanceConfig{
			Threshold: getEnvFloatRange("REBALANCE_THRESHOLD", 0.05, 0.0, 0.99),
		},
		Constraint: ConstraintConfig{
			MaxSinglePositionPct: getEnvFloatRange("CONSTRAINT_MAX_POSITION_PCT", 0.20, 0.01, 1.0),
			MaxSectorPct:         getEnvFloatRange("CONSTRAINT_MAX_SECTOR_PCT", 0.30, 0.01, 1.0),
			MinPositionValue:     getEnvFloatUnbounded("CONSTRAINT_MIN_POSITION_VALUE", 500),
			RestrictedTickers:    getEnvList("CONSTRAINT_RESTRICTED_TICKERS"),
			CooldownSeconds:      getEnvInt("CONSTRAINT_COOLDOWN_SECONDS", 300),
			CheckPositionSize:    getEnvBool("CONSTRAINT_CHECK_POSITION_SIZE", true),
			CheckSectorCap:       getEnvBool("CONSTRAINT_CHECK_SECTOR_CAP", true),
			CheckMinPosition:     getEnvBool("CONSTRAINT_CHECK_MIN_POSITION", true),
			CheckRestricted:      getEnvBool("CONSTRAINT_CHECK_RESTRICTED", true),
			CheckDuplicates:      getEnvBool("CONSTRAINT_CHECK_DUPLICATES", true),
		},
		Screener: ScreenerConfig{
			MarketCapMin:       int64(getEnvInt("SCREENER_MARKET_CAP_MIN", 1_000_000_000)),
			PERatioMax:         getEnvFloatUnbounded("SCREENER_PE_RATIO_MAX", 15.0),
			PBRatioMax:         getEnvFloatUnbounded("SCREENER_PB_RATIO_MAX", 1.5),
			PreFilterLimit:     getEnvInt("SCREENER_PREFILTER_LIMIT", 15),
			TopPicksCount:      getEnvInt("SCREENER_TOP_PICKS_COUNT", 3),
			AnalysisTimeoutSec: getEnvInt("SCREENER_ANALYSIS_TIMEOUT_SEC", 120),
			MaxConcurrent:      getEnvInt("SCREENER_MAX_CONCURRENT", 5),
		},
		HTTP: HTTPConfig{
			Port:               getEnvInt("HTTP_PORT", 8080),
			CORSAllowedOrigins: getEnvString("CORS_ALLOWED_ORIGINS", "*"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	weightSum := c.Agent.WeightResearch + c.Agent.WeightNews + c.Agent.WeightTechnical
	if weightSum < 0.99 || weightSum > 1.01 {
		return fmt.Errorf("agent weights must sum to 1.0, got %.2f (research=%.2f, news=%.2f, technical=%.2f)",
			weightSum, c.Agent.WeightResearch, c.Agent.WeightNews, c.Agent.WeightTechnical)
	}

	if c.Agent.WeightResearch < 0 || c.Agent.WeightResearch > 1 {
		return fmt.Errorf("AGENT_WEIGHT_RESEARCH must be between 0 and 1, got %.2f", c.Agent.WeightResearch)
	}
	if c.Agent.WeightNews < 0 || c.Agent.WeightNews > 1 {
		return fmt.Errorf("AGENT_WEIGHT_NEWS must be between 0 and 1, got %.2f", c.Agent.WeightNews)
	}
	if c.Agent.WeightTechnical < 0 || c.Agent.WeightTechnical > 1 {
		return fmt.Errorf("AGENT_WEIGHT_TECHNICAL must be between 0 and 1, got %.2f", c.Agent.WeightTechnical)
	}

	if c.Agent.TimeoutSeconds <= 0 {
		return fmt.Errorf("AGENT_TIMEOUT_SECONDS must be positive, got %d", c.Agent.TimeoutSeconds)
	}
	if c.Agent.ConcurrencyLimit <= 0 {
		return fmt.Errorf("ANALYSIS_CONCURRENCY_LIMIT must be positive, got %d", c.Agent.ConcurrencyLimit)
	}
	if c.Agent.TechnicalLookbackDays <= 0 {
		return fmt.Errorf("TECHNICAL_ANALYSIS_LOOKBACK_DAYS must be positive, got %d", c.Agent.TechnicalLookbackDays)
	}

	if c.Allocation.MinPositionValue < 0 {
		return fmt.Errorf("ALLOCATION_MIN_POSITION_VALUE must not be negative, got %.2f", c.Allocation.MinPositionValue)
	}
	if c.Constraint.MinPositionValue < 0 {
		return fmt.Errorf("CONSTRAINT_MIN_POSITION_VALUE must not be negative, got %.2f", c.Constraint.MinPositionValue)
	}
	if c.Constraint.CooldownSeconds < 0 {
		return fmt.Errorf("CONSTRAINT_COOLDOWN_SECONDS must not be negative, got %d", c.Constraint.CooldownSeconds)
	}

	return nil
}

// HasDatabase returns true if database configuration is available
func (c *Config) HasDatabase() bool {
	return c.Database.URL != ""
}

// HasOpenAI returns true if OpenAI configuration is available
func (c *Config) HasOpenAI() bool {
	return c.OpenAI.APIKey != ""
}

// HasBedrock returns true if Bedrock configuration is available
func (c *Config) HasBedrock() bool {
	return c.Bedrock.ModelID != ""
}

// HasAlpaca returns true if Alpaca configuration is available
func (c *Config) HasAlpaca() bool {
	return c.Alpaca.APIKey != "" && c.Alpaca.APISecret != ""
}

// HasNewsAPI returns true if NewsAPI configuration is available
func (c *Config) HasNewsAPI() bool {
	return c.NewsAPI.APIKey != ""
}

// HasFMP returns true if Financial Modeling Prep configuration is available
func (c *Config) HasFMP() bool {
	return c.FMP.APIKey != ""
}

func getEnvString(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil && parsed >= 0 && parsed <= 1 {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloatRange(key string, defaultValue, minVal, maxVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil && parsed >= minVal && parsed <= maxVal {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloatUnbounded(key string, defaultValue float64) float64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvList(key string) []string {
	val := os.Getenv(key)
	if val == "" {
		return nil
	}
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// NewTestConfig creates a Config with default values for testing
func NewTestConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			URL: "",
		},
		OpenAI: OpenAIConfig{
			APIKey:    "",
			Model:     "gpt-4o",
			MaxTokens: 4096,
		},
		Bedrock: BedrockConfig{
			Region:    "us-east-1",
			ModelID:   "",
			MaxTokens: 4096,
		},
		Alpaca: AlpacaConfig{
			APIKey:    "",
			APISecret: "",
			BaseURL:   "https://paper-api.alpaca.markets",
		},
		NewsAPI: NewsAPIConfig{
			APIKey: "",
		},
		FMP: FMPConfig{
			APIKey: "",
		},
		Agent: AgentConfig{
			TimeoutSeconds:        30,
			ConcurrencyLimit:      3,
			TechnicalLookbackDays: 100,
			WeightResearch:        0.4,
			WeightNews:            0.3,
			WeightTechnical:       0.3,
			Policy:                "default",
			BuyThreshold:          25,
			SellThreshold:         -25,
			MinConfidence:         0,
			HealthCacheTTLSeconds: 30,
		},
		Allocation: AllocationConfig{
			MaxSinglePositionPct:  0.20,
			MaxSectorPct:          0.30,
			MaxTotalDeploymentPct: 0.90,
			MinPositionValue:      500,
			ConvictionExponent:    2.0,
		},
		Rebalance: RebalanceConfig{
			Threshold: 0.05,
		},
		Constraint: ConstraintConfig{
			MaxSinglePositionPct: 0.20,
			MaxSectorPct:         0.30,
			MinPositionValue:     500,
			CooldownSeconds:      300,
			CheckPositionSize:    true,
			CheckSectorCap:       true,
			CheckMinPosition:     true,
			CheckRestricted:      true,
			CheckDuplicates:      true,
		},
		Screener: ScreenerConfig{
			MarketCapMin:       1_000_000_000,
			PERatioMax:         15.0,
			PBRatioMax:         1.5,
			PreFilterLimit:     15,
			TopPicksCount:      3,
			AnalysisTimeoutSec: 120,
			MaxConcurrent:      5,
		},
		HTTP: HTTPConfig{
			Port:               8080,
			CORSAllowedOrigins: "*",
		},
	}
}
