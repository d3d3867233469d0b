package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

// sharedHTTPClient is used by all providers. Per-call deadlines come from the
// caller's context; this is only a backstop.
var sharedHTTPClient = &http.Client{
	Timeout: 5 * time.Minute,
}

// defaultMaxTokens is the fallback when Request.MaxTokens is not set.
const defaultMaxTokens = 2048

// DefaultModel is used when no model is configured.
const DefaultModel = "openai:gpt-4o"

// ErrMissingAPIKey is returned by NewProvider when no credential is supplied.
var ErrMissingAPIKey = errors.New("API key not configured")

// Request holds the parameters for an LLM completion call.
type Request struct {
	SystemPrompt string
	UserPrompt   string
	Temperature  float64
	MaxTokens    int
	// JSONMode asks the backend to constrain output to a JSON object when it
	// supports doing so.
	JSONMode bool
	// Model overrides the provider's configured model when non-empty.
	Model string
}

// Response holds the result of an LLM completion call.
type Response struct {
	Content string
	Model   string // actual model used, echoed back for meta
}

// Provider is the interface for LLM completion backends.
type Provider interface {
	Complete(ctx context.Context, req *Request) (*Response, error)
}

// StatusError is a non-2xx reply from a provider's HTTP API.
type StatusError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: HTTP %d: %s", e.Provider, e.StatusCode, e.Message)
}

// NewProvider parses a "provider:model" string and returns the appropriate
// Provider using apiKey as its credential.
// Example: "openai:gpt-4o" or "anthropic:claude-sonnet-4-6".
func NewProvider(providerModel, apiKey string) (Provider, error) {
	name, model, err := SplitModel(providerModel)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("%s: %w", name, ErrMissingAPIKey)
	}
	switch name {
	case "openai":
		return newOpenAIProvider(model, apiKey), nil
	case "anthropic":
		return &anthropicProvider{model: model, apiKey: apiKey}, nil
	default:
		return nil, fmt.Errorf("unknown provider %q: supported providers are openai, anthropic", name)
	}
}

// SplitModel splits "provider:model" into its parts.
func SplitModel(providerModel string) (provider, model string, err error) {
	provider, model, ok := strings.Cut(providerModel, ":")
	if !ok || provider == "" || model == "" {
		return "", "", fmt.Errorf("invalid model format %q: expected provider:model (e.g. %s)", providerModel, DefaultModel)
	}
	return provider, model, nil
}

// IsTransient reports whether err is worth one retry: a network failure, a
// timed-out attempt, rate limiting, or a server-side error.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return retryableStatus(statusErr.StatusCode)
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return retryableStatus(apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == 0 || retryableStatus(reqErr.HTTPStatusCode)
	}
	return false
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

// truncate limits a string to maxLen runes, appending "..." if truncated.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
