package classify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dshills/riskloggr/internal/framework"
	"github.com/dshills/riskloggr/internal/llm"
	"github.com/dshills/riskloggr/internal/redact"
	"github.com/dshills/riskloggr/internal/schema"
	"github.com/dshills/riskloggr/internal/schema/validate"
)

const (
	defaultTimeout      = 60 * time.Second
	defaultRetryBackoff = 2 * time.Second
	defaultTemperature  = 0.2
)

// Config controls how the Classifier talks to the text-generation service.
type Config struct {
	// Model is the "provider:model" string the Provider was built from. It
	// is only reported in logs.
	Model string
	// APIKey is the service credential. Classify refuses to run without it.
	APIKey      string
	Temperature float64
	MaxTokens   int
	// Timeout bounds each service attempt.
	Timeout time.Duration
	// RetryBackoff is the wait before the single retry of a transient failure.
	RetryBackoff time.Duration
}

// DefaultConfig returns a Config with the standard model, timeout and
// backoff. The credential is left empty.
func DefaultConfig() Config {
	return Config{
		Model:        llm.DefaultModel,
		Temperature:  defaultTemperature,
		Timeout:      defaultTimeout,
		RetryBackoff: defaultRetryBackoff,
	}
}

// Classifier turns free-text incident descriptions into Classifications.
type Classifier struct {
	cfg      Config
	provider llm.Provider
	router   *framework.Router
	logger   *slog.Logger
}

// New returns a Classifier. provider may be nil when no credential is
// configured; Classify then fails with ErrConfiguration. A nil router means
// the default COSO, ISO 31000, SOX and GDPR router, and a nil logger means
// slog.Default().
func New(cfg Config, provider llm.Provider, router *framework.Router, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	if router == nil {
		router = framework.DefaultRouter(logger)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.RetryBackoff < 0 {
		cfg.RetryBackoff = 0
	}
	return &Classifier{cfg: cfg, provider: provider, router: router, logger: logger}
}

// Classify sends incident to the service, validates the reply and attaches
// framework tags. On any failure it returns a nil Classification and a
// *ClassificationError; nothing partial is ever returned.
func (c *Classifier) Classify(ctx context.Context, incident string) (*schema.Classification, error) {
	result, err := c.classify(ctx, incident)
	if err != nil {
		c.logger.Error("classification produced no result", "model", c.cfg.Model, "error", err)
		return nil, err
	}
	return result, nil
}

func (c *Classifier) classify(ctx context.Context, incident string) (*schema.Classification, error) {
	if strings.TrimSpace(c.cfg.APIKey) == "" || c.provider == nil {
		return nil, fail(ErrConfiguration, llm.ErrMissingAPIKey)
	}
	if strings.TrimSpace(incident) == "" {
		return nil, fail(ErrValidation, errors.New("incident description is empty"))
	}

	promptText, counts := redact.Apply(incident)
	if n := counts.Total(); n > 0 {
		c.logger.Debug("redacted incident text before sending", "replacements", n)
	}

	req := &llm.Request{
		SystemPrompt: llm.BuildSystemPrompt(),
		UserPrompt:   llm.BuildUserPrompt(promptText),
		Temperature:  c.cfg.Temperature,
		MaxTokens:    c.cfg.MaxTokens,
		JSONMode:     true,
	}

	resp, err := c.complete(ctx, req)
	if err != nil {
		return nil, fail(ErrService, err)
	}

	result, err := validate.Parse(resp.Content)
	if err != nil {
		if errors.Is(err, validate.ErrValidation) {
			return nil, fail(ErrValidation, err)
		}
		return nil, fail(ErrMalformedResponse, err)
	}

	result.IncidentDescription = incident
	result.FrameworkTags = append(result.FrameworkTags, c.router.Route(result).Rendered()...)

	c.logger.Info("incident classified",
		"model", resp.Model,
		"category", result.BaselCategory,
		"severity", result.SeverityScore,
		"frameworks", len(result.FrameworkTags),
	)
	return result, nil
}

// complete calls the provider, retrying once after RetryBackoff when the
// first attempt fails transiently and the caller's context is still live.
func (c *Classifier) complete(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	resp, err := c.attempt(ctx, req)
	if err == nil {
		return resp, nil
	}
	if !llm.IsTransient(err) || ctx.Err() != nil {
		return nil, err
	}

	c.logger.Warn("classification attempt failed, retrying",
		"error", err,
		"backoff", c.cfg.RetryBackoff,
	)
	timer := time.NewTimer(c.cfg.RetryBackoff)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting to retry: %w", ctx.Err())
	case <-timer.C:
	}

	resp, err = c.attempt(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("retry failed: %w", err)
	}
	return resp, nil
}

func (c *Classifier) attempt(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()
	return c.provider.Complete(ctx, req)
}
