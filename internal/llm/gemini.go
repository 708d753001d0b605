package llm

import (
	"context"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"lawmcp/internal/model"
)

const DefaultGeminiModel = "gemini-2.0-flash"

type GeminiGenerator struct {
	client *genai.Client
	model  string
}

func NewGeminiGenerator(ctx context.Context, apiKey, modelName, baseURL string, httpClient *http.Client) (*GeminiGenerator, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, &model.ProviderError{
			Code:    model.CodeLLMAuth,
			Message: "no API key for gemini",
			Cause:   model.ErrNoAPIKey,
		}
	}
	if strings.TrimSpace(modelName) == "" {
		modelName = DefaultGeminiModel
	}

	cc := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	}
	if baseURL = strings.TrimSpace(baseURL); baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, &model.ProviderError{Code: model.CodeLLMFailed, Message: "init gemini client", Cause: err}
	}
	return &GeminiGenerator{client: client, model: modelName}, nil
}

func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", &model.ProviderError{
			Code:      model.CodeLLMFailed,
			Message:   "gemini completion failed",
			Retryable: true,
			Cause:     err,
		}
	}
	return resp.Text(), nil
}
