package services

import (
	"context"
	"fmt"
	"strings"

	appconfig "sentinel/config"
	"sentinel/observability"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// openaiClient defines the interface for OpenAI API calls (for testing)
type openaiClient interface {
	CreateChatCompletion(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error)
}

// openaiClientWrapper wraps the openai.Client to implement our interface
type openaiClientWrapper struct {
	client openai.Client
}

func (w *openaiClientWrapper) CreateChatCompletion(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error) {
	return w.client.Chat.Completions.New(ctx, params)
}

// OpenAIService backs LLMService with the OpenAI chat completions API.
type OpenAIService struct {
	client    openaiClient
	model     string
	maxTokens int
}

// NewOpenAIService creates a new OpenAIService instance
func NewOpenAIService(cfg *appconfig.Config) (*OpenAIService, error) {
	if cfg.OpenAI.APIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}

	client := openai.NewClient(option.WithAPIKey(cfg.OpenAI.APIKey))

	return &OpenAIService{
		client:    &openaiClientWrapper{client: client},
		model:     cfg.OpenAI.Model,
		maxTokens: cfg.OpenAI.MaxTokens,
	}, nil
}

// newOpenAIServiceWithClient creates an OpenAIService with a custom client (for testing)
func newOpenAIServiceWithClient(client openaiClient, model string, maxTokens int) *OpenAIService {
	return &OpenAIService{
		client:    client,
		model:     model,
		maxTokens: maxTokens,
	}
}

// Complete sends a system/user prompt pair and returns the response text.
func (s *OpenAIService) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	metrics := observability.GetMetrics()
	metrics.RecordExternalAPIRequest(BreakerOpenAI, "complete")
	timer := metrics.NewTimer()

	result, err := WithCircuitBreaker(ctx, BreakerOpenAI, func() (string, error) {
		completion, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionNewParams{
			Model:     shared.ChatModel(s.model),
			MaxTokens: openai.Int(int64(s.maxTokens)),
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.SystemMessage(systemPrompt),
				openai.UserMessage(userPrompt),
			},
		})
		if err != nil {
			return "", fmt.Errorf("failed to invoke OpenAI: %w", err)
		}
		if len(completion.Choices) == 0 {
			return "", fmt.Errorf("empty response from OpenAI")
		}
		return completion.Choices[0].Message.Content, nil
	})

	timer.ObserveExternalAPI(BreakerOpenAI, "complete")
	if err != nil {
		metrics.RecordExternalAPIError(BreakerOpenAI, "complete", categorizeAPIError(err))
	}
	return result, err
}

// apiErrorCategories maps metric labels to the error substrings that
// indicate them. Matching on message text is crude, but the upstream SDKs do
// not expose stable error types for all of these.
var apiErrorCategories = []struct {
	label    string
	keywords []string
}{
	{"timeout", []string{"timeout", "deadline"}},
	{"rate_limit", []string{"rate limit", "429"}},
	{"auth_error", []string{"unauthorized", "401"}},
	{"connection_error", []string{"connection", "network"}},
}

// categorizeAPIError categorizes an error for metrics purposes
func categorizeAPIError(err error) string {
	if err == nil {
		return "none"
	}
	msg := err.Error()
	for _, cat := range apiErrorCategories {
		for _, kw := range cat.keywords {
			if strings.Contains(msg, kw) {
				return cat.label
			}
		}
	}
	return "unknown"
}
