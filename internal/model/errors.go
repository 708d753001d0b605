package model

import "errors"

var (
	// ErrSearchUnavailable marks a search backend that was not enabled at startup.
	ErrSearchUnavailable = errors.New("search unavailable")
	// ErrNoAPIKey is returned when a real provider is requested without credentials.
	ErrNoAPIKey = errors.New("missing API key")
)

// Provider error codes.
const (
	CodeLLMAuth         = "LLM_AUTH"
	CodeLLMFailed       = "LLM_FAILED"
	CodeSearchFailed    = "SEARCH_FAILED"
	CodeSearchRateLimit = "SEARCH_RATE_LIMIT"
)

type ProviderError struct {
	Code       string
	Message    string
	Retryable  bool
	StatusCode int
	Cause      error
}

func (e *ProviderError) Error() string {
	if e == nil {
		return ""
	}
	if e.Cause != nil {
		return e.Code + ": " + e.Message + ": " + e.Cause.Error()
	}
	return e.Code + ": " + e.Message
}

func (e *ProviderError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}
