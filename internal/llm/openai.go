package llm

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

// openaiBaseURL is a var to allow test overrides via httptest.
var openaiBaseURL = "https://api.openai.com/v1"

// OpenAIBaseURL returns the current OpenAI API base URL.
// Exposed for use by integration tests via httptest servers.
func OpenAIBaseURL() string { return openaiBaseURL }

// SetOpenAIBaseURL overrides the OpenAI API base URL used by providers
// created afterwards. Intended for use in tests only.
func SetOpenAIBaseURL(u string) { openaiBaseURL = u }

type openaiProvider struct {
	client *openai.Client
	model  string
}

func newOpenAIProvider(model, apiKey string) *openaiProvider {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = openaiBaseURL
	cfg.HTTPClient = sharedHTTPClient
	return &openaiProvider{client: openai.NewClientWithConfig(cfg), model: model}
}

func (p *openaiProvider) Complete(ctx context.Context, req *Request) (*Response, error) {
	model := p.model
	if req.Model != "" {
		model = req.Model
	}

	// Only include system message when non-empty to avoid unnecessary token usage.
	var messages []openai.ChatCompletionMessage
	if req.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.SystemPrompt})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.UserPrompt})

	body := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: float32(req.Temperature),
	}
	if req.MaxTokens > 0 {
		body.MaxCompletionTokens = req.MaxTokens
	}
	if req.JSONMode {
		body.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := p.client.CreateChatCompletion(ctx, body)
	if err != nil {
		return nil, fmt.Errorf("openai: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai: empty choices in response")
	}

	return &Response{
		Content: resp.Choices[0].Message.Content,
		Model:   fmt.Sprintf("openai:%s", resp.Model),
	}, nil
}
