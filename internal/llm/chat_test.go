package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"lawmcp/internal/model"
)

type chatTestRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func chatCompletionBody(content string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1,
		"model":   DefaultGroqModel,
		"choices": []map[string]any{
			{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": content},
				"finish_reason": "stop",
			},
		},
		"usage": map[string]any{"prompt_tokens": 3, "completion_tokens": 4, "total_tokens": 7},
	}
}

func TestChatGenerator_SendsPromptAndReturnsContent(t *testing.T) {
	var got chatTestRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "Bearer gsk-test" {
			t.Errorf("unexpected authorization header: %q", auth)
		}
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(chatCompletionBody("Cite Section 6(1) of the RTI Act, 2005."))
	}))
	defer server.Close()

	gen, err := NewChatGenerator("groq", "gsk-test", "", server.URL, server.Client())
	if err != nil {
		t.Fatalf("NewChatGenerator: %v", err)
	}
	text, err := gen.Generate(context.Background(), "FACTS: want copy of file X")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if text != "Cite Section 6(1) of the RTI Act, 2005." {
		t.Fatalf("text=%q", text)
	}
	if got.Model != DefaultGroqModel {
		t.Fatalf("model=%q want=%q", got.Model, DefaultGroqModel)
	}
	if len(got.Messages) == 0 || got.Messages[len(got.Messages)-1].Content != "FACTS: want copy of file X" {
		t.Fatalf("prompt not forwarded: %+v", got.Messages)
	}
}

func TestChatGenerator_ServerErrorIsProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid api key","type":"invalid_request_error"}}`))
	}))
	defer server.Close()

	gen, err := NewChatGenerator("openai", "sk-bad", "gpt-test", server.URL, server.Client())
	if err != nil {
		t.Fatalf("NewChatGenerator: %v", err)
	}
	_, err = gen.Generate(context.Background(), "p")
	var pe *model.ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
	if pe.Code != model.CodeLLMFailed {
		t.Fatalf("code=%q want=%q", pe.Code, model.CodeLLMFailed)
	}
}

func TestChatGenerator_ResolverEndToEnd(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"upstream exploded"}}`))
	}))
	defer server.Close()

	gen, err := NewChatGenerator("groq", "gsk-test", "", server.URL, server.Client())
	if err != nil {
		t.Fatalf("NewChatGenerator: %v", err)
	}
	c := NewProviderResolver("groq", gen).Resolve(context.Background(), "FACTS: abc")
	text := c.String()
	if !strings.HasPrefix(text, "[LLM error] ") || !strings.HasSuffix(text, "\n\nPrompt:\nFACTS: abc") {
		t.Fatalf("unexpected flattened error: %q", text)
	}
}

func TestNewChatGenerator_RequiresKey(t *testing.T) {
	_, err := NewChatGenerator("groq", "", "", "", nil)
	if !errors.Is(err, model.ErrNoAPIKey) {
		t.Fatalf("expected ErrNoAPIKey, got %v", err)
	}
	_, err = NewGeminiGenerator(context.Background(), " ", "", "", nil)
	if !errors.Is(err, model.ErrNoAPIKey) {
		t.Fatalf("expected ErrNoAPIKey, got %v", err)
	}
}

func TestChatGenerator_EmptyReplyPassesThrough(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(chatCompletionBody(""))
	}))
	defer server.Close()

	gen, err := NewChatGenerator("groq", "gsk-test", "", server.URL, server.Client())
	if err != nil {
		t.Fatalf("NewChatGenerator: %v", err)
	}
	c := NewProviderResolver("groq", gen).Resolve(context.Background(), "FACTS: abc")
	if c.Err != nil || c.String() != "" {
		t.Fatalf("empty reply should be returned as-is, got text=%q err=%v", c.String(), c.Err)
	}
}
