package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// anthropicAPIURL is a var so tests can point it at an httptest server.
var anthropicAPIURL = "https://api.anthropic.com/v1/messages"

// AnthropicAPIURL returns the Messages API endpoint in use.
func AnthropicAPIURL() string { return anthropicAPIURL }

// SetAnthropicAPIURL overrides the Messages API endpoint. Tests only.
func SetAnthropicAPIURL(u string) { anthropicAPIURL = u }

const (
	anthropicVersion = "2023-06-01"
	// jsonPrefill opens the assistant turn when JSON output is requested, so
	// the model can only continue an object.
	jsonPrefill = "{"
	// maxReplyBytes caps how much of a reply body is read.
	maxReplyBytes = 10 << 20
)

// ErrTruncated is returned when the service stopped at the token limit
// before finishing a JSON object.
var ErrTruncated = errors.New("reply cut off at max_tokens")

type anthropicProvider struct {
	model  string
	apiKey string
}

type messagesRequest struct {
	Model       string          `json:"model"`
	MaxTokens   int             `json:"max_tokens"`
	System      string          `json:"system,omitempty"`
	Messages    []messageInTurn `json:"messages"`
	Temperature *float64        `json:"temperature,omitempty"`
}

type messageInTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesReply struct {
	Model      string `json:"model"`
	StopReason string `json:"stop_reason"`
	Content    []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// text concatenates the reply's text blocks.
func (r *messagesReply) text() string {
	var sb strings.Builder
	for _, block := range r.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String()
}

// Complete sends req to the Messages API. The API has no JSON mode, so when
// req.JSONMode is set the assistant turn is prefilled with "{" and the
// brace is restored on the returned text.
func (p *anthropicProvider) Complete(ctx context.Context, req *Request) (*Response, error) {
	reply, err := p.send(ctx, p.messagesRequest(req))
	if err != nil {
		return nil, err
	}

	content := reply.text()
	if req.JSONMode {
		if reply.StopReason == "max_tokens" {
			return nil, fmt.Errorf("anthropic: %w", ErrTruncated)
		}
		content = jsonPrefill + content
	}
	if strings.TrimSpace(content) == "" || content == jsonPrefill {
		return nil, fmt.Errorf("anthropic: reply has no text (%d content blocks)", len(reply.Content))
	}
	return &Response{Content: content, Model: "anthropic:" + reply.Model}, nil
}

func (p *anthropicProvider) messagesRequest(req *Request) messagesRequest {
	body := messagesRequest{
		Model:     p.model,
		MaxTokens: req.MaxTokens,
		System:    req.SystemPrompt,
		Messages:  []messageInTurn{{Role: "user", Content: req.UserPrompt}},
	}
	if req.Model != "" {
		body.Model = req.Model
	}
	if body.MaxTokens <= 0 {
		body.MaxTokens = defaultMaxTokens
	}
	if req.JSONMode {
		body.Messages = append(body.Messages, messageInTurn{Role: "assistant", Content: jsonPrefill})
	}
	if req.Temperature != 0 {
		t := req.Temperature
		body.Temperature = &t
	}
	return body
}

// send posts body and decodes the reply. Non-200 replies become *StatusError
// so IsTransient can judge them.
func (p *anthropicProvider) send(ctx context.Context, body messagesRequest) (*messagesReply, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("anthropic: encoding request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, anthropicAPIURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("anthropic: building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", p.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	resp, err := sharedHTTPClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("anthropic: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))
	if err != nil {
		return nil, fmt.Errorf("anthropic: reading reply: %w", err)
	}

	var reply messagesReply
	decodeErr := json.Unmarshal(raw, &reply)
	if resp.StatusCode != http.StatusOK {
		msg := truncate(string(raw), 200)
		if decodeErr == nil && reply.Error != nil {
			msg = reply.Error.Type + ": " + reply.Error.Message
		}
		return nil, &StatusError{Provider: "anthropic", StatusCode: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("anthropic: decoding reply %q: %w", truncate(string(raw), 200), decodeErr)
	}
	return &reply, nil
}
