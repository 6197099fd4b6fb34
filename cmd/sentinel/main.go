package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sentinel/agents"
	"sentinel/config"
	"sentinel/internal/api"
	"sentinel/internal/app"
	"sentinel/observability"
	"sentinel/repository"
	"sentinel/screener"
	"sentinel/services"

	"github.com/joho/godotenv"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	observability.InitLogger(os.Getenv("ENV") == "production")
	observability.InitMetrics()

	cfg, err := config.Load()
	if err != nil {
		observability.Fatal("invalid configuration", "error", err)
	}

	ctx := context.Background()

	// Every external dependency is optional. A missing credential disables
	// the feature it backs; the server still starts and reports the gap.
	var repo app.RepositoryInterface
	if cfg.HasDatabase() {
		r, err := repository.NewRepository(ctx, cfg.Database.URL)
		if err != nil {
			observability.Fatal("failed to connect to database", "error", err)
		}
		repo = r
		observability.Info("audit database connected")
	} else {
		observability.Warn("DATABASE_URL not set, running without audit persistence")
	}

	llm := buildLLM(ctx, cfg)

	var alpaca *services.AlpacaService
	if cfg.HasAlpaca() {
		alpaca = services.NewAlpacaService(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.BaseURL)
		observability.Info("alpaca brokerage configured", "base_url", cfg.Alpaca.BaseURL)
	} else {
		observability.Warn("alpaca credentials not set, trading cycles disabled")
	}

	var fmp *services.FMPService
	if cfg.HasFMP() {
		fmp = services.NewFMPService(cfg.FMP.APIKey)
	} else {
		observability.Warn("FMP_API_KEY not set, screener and research agent disabled")
	}

	var news *services.NewsAPIService
	if cfg.HasNewsAPI() {
		news = services.NewNewsAPIService(cfg.NewsAPI.APIKey)
	} else {
		observability.Warn("NEWS_API_KEY not set, news agent disabled")
	}

	desk := buildDesk(cfg, llm, alpaca, fmp, news)

	var scr app.Screener
	if fmp != nil {
		scr = screener.NewUniverseScreener(fmp, &cfg.Screener)
	}

	var brokerage services.BrokerageService
	if alpaca != nil {
		brokerage = alpaca
	}

	var sectors app.SectorSource
	if fmp != nil {
		sectors = fmp
	}

	application, err := app.New(cfg, repo, desk, scr, brokerage, sectors)
	if err != nil {
		observability.Fatal("failed to assemble application", "error", err)
	}

	handler := api.NewHandler(application, cfg)
	router := api.NewRouter(handler, cfg)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // cycle runs can be slow
	}

	go func() {
		observability.Info("starting sentinel", "port", cfg.HTTP.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			observability.Fatal("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	observability.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		observability.Error("server forced to shutdown", "error", err)
	}

	application.Shutdown(shutdownCtx)
	observability.Info("sentinel stopped")
}

// buildLLM picks the configured LLM backend, preferring Bedrock when both
// are present.
func buildLLM(ctx context.Context, cfg *config.Config) services.LLMService {
	if cfg.HasBedrock() {
		llm, err := services.NewBedrockService(ctx, cfg.Bedrock.Region, cfg.Bedrock.ModelID, cfg.Bedrock.MaxTokens)
		if err != nil {
			observability.Fatal("failed to initialize bedrock", "error", err)
		}
		observability.Info("using bedrock LLM", "model", cfg.Bedrock.ModelID)
		return llm
	}
	if cfg.HasOpenAI() {
		llm, err := services.NewOpenAIService(cfg)
		if err != nil {
			observability.Fatal("failed to initialize openai", "error", err)
		}
		observability.Info("using openai LLM", "model", cfg.OpenAI.Model)
		return llm
	}
	observability.Warn("no LLM configured, research desk disabled")
	return nil
}

// buildDesk assembles the research desk with whichever agents have their
// backing services available.
func buildDesk(cfg *config.Config, llm services.LLMService, alpaca *services.AlpacaService, fmp *services.FMPService, news *services.NewsAPIService) app.Desk {
	if llm == nil {
		return nil
	}

	var quotes agents.QuoteProvider
	if alpaca != nil {
		quotes = alpaca
	}
	desk := agents.NewResearchDesk(cfg, quotes)

	ttl := time.Duration(cfg.Agent.HealthCacheTTLSeconds) * time.Second
	registered := 0

	if fmp != nil {
		desk.RegisterAgent(agents.NewResearchAnalystWithCacheTTL(llm, fmp, ttl))
		registered++
	}
	if news != nil {
		desk.RegisterAgent(agents.NewNewsAnalystWithCacheTTL(llm, news, ttl))
		registered++
	}
	if alpaca != nil {
		desk.RegisterAgent(agents.NewTechnicalAnalystWithCacheTTL(llm, alpaca, cfg.Agent.TechnicalLookbackDays, ttl))
		registered++
	}

	if registered == 0 {
		observability.Warn("no agents could be registered, research desk disabled")
		return nil
	}

	observability.Info("research desk assembled", "agents", registered)
	return desk
}
