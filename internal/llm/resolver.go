// Package llm turns prompts into caller-visible text. A Resolver is chosen
// once at startup: a real provider when credentials are present, otherwise
// a mock that echoes the prompt. Either way a call always yields text.
package llm

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"lawmcp/internal/config"
	"lawmcp/internal/model"
)

const mockPrefix = "[Mock response] Prompt:\n\n"

// Completion is the outcome of resolving one prompt.
type Completion struct {
	Prompt string
	Text   string
	Err    error
	// Mock is set when no real model produced Text.
	Mock bool
}

// String flattens the completion into the text returned to callers. A
// failed call keeps the prompt visible so the caller can see what was
// attempted.
func (c Completion) String() string {
	if c.Err != nil {
		return fmt.Sprintf("[LLM error] %v\n\nPrompt:\n%s", c.Err, c.Prompt)
	}
	return c.Text
}

// Degraded reports whether the caller received anything other than a real
// model answer.
func (c Completion) Degraded() bool {
	return c.Err != nil || c.Mock
}

type Resolver interface {
	// Name identifies the strategy, e.g. "groq" or "mock".
	Name() string
	Resolve(ctx context.Context, prompt string) Completion
}

// Mock echoes the prompt. It is used when no provider is configured.
type Mock struct{}

func (Mock) Name() string { return config.ProviderMock }

func (Mock) Resolve(_ context.Context, prompt string) Completion {
	return Completion{Prompt: prompt, Text: mockPrefix + prompt, Mock: true}
}

// ProviderResolver forwards prompts to a Generator and captures any
// failure, including panics inside the client library, in the Completion.
type ProviderResolver struct {
	name string
	gen  model.Generator
}

func NewProviderResolver(name string, gen model.Generator) *ProviderResolver {
	return &ProviderResolver{name: name, gen: gen}
}

func (r *ProviderResolver) Name() string { return r.name }

func (r *ProviderResolver) Resolve(ctx context.Context, prompt string) (out Completion) {
	out.Prompt = prompt
	defer func() {
		if rec := recover(); rec != nil {
			out.Text = ""
			out.Err = &model.ProviderError{
				Code:    model.CodeLLMFailed,
				Message: fmt.Sprintf("%s client panicked: %v", r.name, rec),
			}
		}
	}()
	text, err := r.gen.Generate(ctx, prompt)
	if err != nil {
		out.Err = err
		return out
	}
	out.Text = text
	return out
}

// New selects the resolver for cfg. Missing credentials or a client that
// fails to initialise degrade to Mock with a warning; only an unknown
// provider name is an error.
func New(ctx context.Context, cfg config.LLMConfig, logger *zap.Logger) (Resolver, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))

	var (
		gen model.Generator
		err error
	)
	switch provider {
	case config.ProviderMock:
		logger.Info("llm resolver selected", zap.String("resolver", config.ProviderMock))
		return Mock{}, nil
	case config.ProviderGroq, config.ProviderOpenAI:
		gen, err = NewChatGenerator(provider, cfg.APIKey, cfg.Model, cfg.BaseURL, nil)
	case config.ProviderGemini:
		gen, err = NewGeminiGenerator(ctx, cfg.APIKey, cfg.Model, cfg.BaseURL, nil)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
	if err != nil {
		logger.Warn("llm provider unavailable; serving mock responses",
			zap.String("provider", provider),
			zap.String("api_key_env", config.APIKeyEnvVar(provider)),
			zap.Error(err),
		)
		return Mock{}, nil
	}

	logger.Info("llm resolver selected", zap.String("resolver", provider))
	return NewProviderResolver(provider, gen), nil
}
