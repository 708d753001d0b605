package llm

import (
	"context"
	"net/http"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"lawmcp/internal/config"
	"lawmcp/internal/model"
)

const (
	DefaultGroqBaseURL = "https://api.groq.com/openai/v1"
	DefaultGroqModel   = "llama3-70b-8192"
	DefaultOpenAIModel = "gpt-4o-mini"
)

// ChatGenerator calls an OpenAI-compatible chat completions endpoint.
// Groq is served through the same client with its own base URL.
type ChatGenerator struct {
	provider string
	llm      llms.Model
}

// NewChatGenerator builds a generator for provider ("groq" or "openai").
// httpClient may be nil.
func NewChatGenerator(provider, apiKey, modelName, baseURL string, httpClient *http.Client) (*ChatGenerator, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, &model.ProviderError{
			Code:    model.CodeLLMAuth,
			Message: "no API key for " + provider,
			Cause:   model.ErrNoAPIKey,
		}
	}

	modelName = strings.TrimSpace(modelName)
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if provider == config.ProviderGroq {
		if modelName == "" {
			modelName = DefaultGroqModel
		}
		if baseURL == "" {
			baseURL = DefaultGroqBaseURL
		}
	} else if modelName == "" {
		modelName = DefaultOpenAIModel
	}

	opts := []openai.Option{
		openai.WithToken(apiKey),
		openai.WithModel(modelName),
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	if httpClient != nil {
		opts = append(opts, openai.WithHTTPClient(httpClient))
	}

	client, err := openai.New(opts...)
	if err != nil {
		return nil, &model.ProviderError{Code: model.CodeLLMFailed, Message: "init " + provider + " client", Cause: err}
	}
	return &ChatGenerator{provider: provider, llm: client}, nil
}

func (g *ChatGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	text, err := llms.GenerateFromSinglePrompt(ctx, g.llm, prompt)
	if err != nil {
		return "", &model.ProviderError{
			Code:      model.CodeLLMFailed,
			Message:   g.provider + " completion failed",
			Retryable: true,
			Cause:     err,
		}
	}
	return text, nil
}
