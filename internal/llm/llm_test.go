package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestBuildUserPrompt_ContainsIncident(t *testing.T) {
	prompt := BuildUserPrompt("Teller skimmed cash from the vault")

	if !strings.Contains(prompt, "<incident>\nTeller skimmed cash from the vault\n</incident>") {
		t.Errorf("prompt missing wrapped incident text: %q", prompt)
	}
}

func TestBuildUserPrompt_ListsEveryCoreField(t *testing.T) {
	prompt := BuildUserPrompt("x")
	for _, key := range []string{
		"basel_ii_category", "severity_score", "root_cause", "control_recommendations",
		"inherent_risk", "residual_risk", "likelihood", "impact_type",
	} {
		if !strings.Contains(prompt, key) {
			t.Errorf("prompt missing key %s", key)
		}
	}
	if strings.Contains(prompt, "framework_tags") {
		t.Error("prompt must not ask the model for framework tags")
	}
}

func TestBuildUserPrompt_RequiresFlatRecommendationList(t *testing.T) {
	prompt := BuildUserPrompt("x")
	if !strings.Contains(prompt, "DO NOT number them") {
		t.Errorf("prompt should forbid numbered recommendations: %q", prompt)
	}
}

func TestBuildSystemPrompt_ForbidsFences(t *testing.T) {
	if !strings.Contains(BuildSystemPrompt(), "no markdown fences") {
		t.Error("system prompt should forbid markdown fences")
	}
}

func TestNewProvider_UnknownPrefix(t *testing.T) {
	_, err := NewProvider("gemini:gemini-pro", "key")
	if err == nil {
		t.Error("expected error for unknown provider prefix, got nil")
	}
}

func TestNewProvider_InvalidFormat(t *testing.T) {
	_, err := NewProvider("nocoIon", "key")
	if err == nil {
		t.Error("expected error for missing colon separator, got nil")
	}
}

func TestNewProvider_NoKey(t *testing.T) {
	for _, model := range []string{"openai:gpt-4o", "anthropic:claude-sonnet-4-6"} {
		_, err := NewProvider(model, "  ")
		if !errors.Is(err, ErrMissingAPIKey) {
			t.Errorf("%s: expected ErrMissingAPIKey, got %v", model, err)
		}
	}
}

func TestNewProvider_WithKey(t *testing.T) {
	for _, model := range []string{"openai:gpt-4o", "anthropic:claude-sonnet-4-6"} {
		p, err := NewProvider(model, "sk-test-key-for-construction-only")
		if err != nil {
			t.Fatalf("NewProvider(%s): %v", model, err)
		}
		if p == nil {
			t.Errorf("%s: expected non-nil provider", model)
		}
	}
}

func TestOpenAI_CompleteSendsJSONMode(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer sk-test" {
			t.Errorf("Authorization = %q", auth)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("request body is not JSON: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"chatcmpl-1","object":"chat.completion","model":"gpt-4o-2024-08-06","choices":[{"index":0,"message":{"role":"assistant","content":"{\"ok\":true}"},"finish_reason":"stop"}]}`)) //nolint:errcheck
	}))
	defer srv.Close()
	original := OpenAIBaseURL()
	SetOpenAIBaseURL(srv.URL)
	defer SetOpenAIBaseURL(original)

	p, err := NewProvider("openai:gpt-4o", "sk-test")
	if err != nil {
		t.Fatal(err)
	}
	resp, err := p.Complete(context.Background(), &Request{SystemPrompt: "sys", UserPrompt: "user", JSONMode: true})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Content != `{"ok":true}` {
		t.Errorf("Content = %q", resp.Content)
	}
	if resp.Model != "openai:gpt-4o-2024-08-06" {
		t.Errorf("Model = %q", resp.Model)
	}
	format, _ := got["response_format"].(map[string]any)
	if format["type"] != "json_object" {
		t.Errorf("response_format = %v, want json_object", got["response_format"])
	}
	if msgs, _ := got["messages"].([]any); len(msgs) != 2 {
		t.Errorf("expected system + user messages, got %v", got["messages"])
	}
}

func TestOpenAI_ServerErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"error":{"message":"overloaded","type":"server_error"}}`)) //nolint:errcheck
	}))
	defer srv.Close()
	original := OpenAIBaseURL()
	SetOpenAIBaseURL(srv.URL)
	defer SetOpenAIBaseURL(original)

	p, _ := NewProvider("openai:gpt-4o", "sk-test")
	_, err := p.Complete(context.Background(), &Request{UserPrompt: "x"})
	if err == nil {
		t.Fatal("expected error for HTTP 503")
	}
	if !IsTransient(err) {
		t.Errorf("HTTP 503 should be transient: %v", err)
	}
}

func TestAnthropic_Complete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "sk-ant-test" {
			t.Errorf("x-api-key = %q", r.Header.Get("x-api-key"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"msg_1","model":"claude-sonnet-4-6","content":[{"type":"text","text":"{\"a\":1}"}]}`)) //nolint:errcheck
	}))
	defer srv.Close()
	original := AnthropicAPIURL()
	SetAnthropicAPIURL(srv.URL)
	defer SetAnthropicAPIURL(original)

	p, _ := NewProvider("anthropic:claude-sonnet-4-6", "sk-ant-test")
	resp, err := p.Complete(context.Background(), &Request{UserPrompt: "x"})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Content != `{"a":1}` {
		t.Errorf("Content = %q", resp.Content)
	}
}

func TestAnthropic_JSONModePrefillsBrace(t *testing.T) {
	var got messagesRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("anthropic-version") != anthropicVersion {
			t.Errorf("anthropic-version = %q", r.Header.Get("anthropic-version"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("request body is not JSON: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"model":"claude-sonnet-4-6","stop_reason":"end_turn","content":[{"type":"text","text":"\"severity_score\": 3}"}]}`)) //nolint:errcheck
	}))
	defer srv.Close()
	original := AnthropicAPIURL()
	SetAnthropicAPIURL(srv.URL)
	defer SetAnthropicAPIURL(original)

	p, _ := NewProvider("anthropic:claude-sonnet-4-6", "sk-ant-test")
	resp, err := p.Complete(context.Background(), &Request{SystemPrompt: "sys", UserPrompt: "incident", JSONMode: true})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Content != `{"severity_score": 3}` {
		t.Errorf("Content = %q, want the prefilled brace restored", resp.Content)
	}
	if resp.Model != "anthropic:claude-sonnet-4-6" {
		t.Errorf("Model = %q", resp.Model)
	}
	if len(got.Messages) != 2 {
		t.Fatalf("expected user + assistant prefill, got %+v", got.Messages)
	}
	if last := got.Messages[1]; last.Role != "assistant" || last.Content != "{" {
		t.Errorf("prefill message = %+v", last)
	}
	if got.System != "sys" || got.MaxTokens != defaultMaxTokens {
		t.Errorf("system/max_tokens = %q/%d", got.System, got.MaxTokens)
	}
}

func TestAnthropic_WithoutJSONModeSendsUserTurnOnly(t *testing.T) {
	var got messagesRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)                                                        //nolint:errcheck
		w.Write([]byte(`{"model":"claude-sonnet-4-6","content":[{"type":"text","text":"plain"}]}`)) //nolint:errcheck
	}))
	defer srv.Close()
	original := AnthropicAPIURL()
	SetAnthropicAPIURL(srv.URL)
	defer SetAnthropicAPIURL(original)

	p, _ := NewProvider("anthropic:claude-sonnet-4-6", "sk-ant-test")
	resp, err := p.Complete(context.Background(), &Request{UserPrompt: "x", MaxTokens: 512})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Content != "plain" || len(got.Messages) != 1 || got.MaxTokens != 512 {
		t.Errorf("content %q, messages %+v, max_tokens %d", resp.Content, got.Messages, got.MaxTokens)
	}
}

func TestAnthropic_JSONModeTruncatedReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"model":"claude-sonnet-4-6","stop_reason":"max_tokens","content":[{"type":"text","text":"\"basel_ii_category\": \"Ext"}]}`)) //nolint:errcheck
	}))
	defer srv.Close()
	original := AnthropicAPIURL()
	SetAnthropicAPIURL(srv.URL)
	defer SetAnthropicAPIURL(original)

	p, _ := NewProvider("anthropic:claude-sonnet-4-6", "sk-ant-test")
	_, err := p.Complete(context.Background(), &Request{UserPrompt: "x", JSONMode: true})
	if !errors.Is(err, ErrTruncated) {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
	if IsTransient(err) {
		t.Error("a truncated reply must not be retried")
	}
}

func TestAnthropic_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`)) //nolint:errcheck
	}))
	defer srv.Close()
	original := AnthropicAPIURL()
	SetAnthropicAPIURL(srv.URL)
	defer SetAnthropicAPIURL(original)

	p, _ := NewProvider("anthropic:claude-sonnet-4-6", "bad")
	_, err := p.Complete(context.Background(), &Request{UserPrompt: "x"})
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StatusError, got %T: %v", err, err)
	}
	if se.StatusCode != http.StatusUnauthorized {
		t.Errorf("StatusCode = %d", se.StatusCode)
	}
	if IsTransient(err) {
		t.Error("HTTP 401 must not be transient")
	}
}

func TestIsTransient(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{context.DeadlineExceeded, true},
		{&StatusError{StatusCode: 429}, true},
		{&StatusError{StatusCode: 502}, true},
		{&StatusError{StatusCode: 400}, false},
		{errors.New("bad request"), false},
	}
	for _, c := range cases {
		if got := IsTransient(c.err); got != c.want {
			t.Errorf("IsTransient(%v) = %v, want %v", c.err, got, c.want)
		}
	}
}

func TestSplitModel(t *testing.T) {
	p, m, err := SplitModel("anthropic:claude-sonnet-4-6")
	if err != nil || p != "anthropic" || m != "claude-sonnet-4-6" {
		t.Errorf("SplitModel = %q, %q, %v", p, m, err)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("hello", 10); got != "hello" {
		t.Errorf("truncate short string: got %q", got)
	}
	if got := truncate("hello world", 5); got != "hello..." {
		t.Errorf("truncate long string: got %q", got)
	}
	// Multi-byte: é is 2 bytes but 1 rune; truncating at 3 runes should not cut mid-codepoint.
	if got := truncate("héllo", 3); got != "hél..." {
		t.Errorf("truncate multibyte: got %q, want %q", got, "hél...")
	}
}
