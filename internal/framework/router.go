package framework

import (
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/riskloggr/internal/schema"
)

// Mapping holds one framework's tags for a classification.
type Mapping struct {
	Framework string
	Tags      []string
	Err       error // set when the matcher failed; Tags is then empty
}

// Result is the Router's output, one Mapping per matcher in router order.
type Result []Mapping

// Rendered returns the "Framework: tag, tag" strings for every framework
// that produced at least one tag, in router order.
func (r Result) Rendered() []string {
	out := make([]string, 0, len(r))
	for _, m := range r {
		if len(m.Tags) == 0 {
			continue
		}
		out = append(out, Render(m.Framework, m.Tags))
	}
	return out
}

// Router fans a classification out to every matcher and collects the results.
type Router struct {
	matchers []Matcher
	logger   *slog.Logger
}

// NewRouter returns a Router over matchers, reported in the given order.
func NewRouter(logger *slog.Logger, matchers ...Matcher) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{matchers: matchers, logger: logger}
}

// DefaultRouter returns a Router over COSO, ISO 31000, SOX and GDPR.
func DefaultRouter(logger *slog.Logger) *Router {
	return NewRouter(logger, COSO(), ISO31000(), SOX(), GDPR())
}

// Route runs every matcher against c concurrently. A matcher that errors or
// panics contributes no tags; the others are unaffected.
func (r *Router) Route(c *schema.Classification) Result {
	result := make(Result, len(r.matchers))
	var g errgroup.Group
	for i, m := range r.matchers {
		g.Go(func() error {
			tags, err := safeMatch(m, c)
			result[i] = Mapping{Framework: m.Name(), Tags: tags, Err: err}
			if err != nil {
				result[i].Tags = []string{}
				r.logger.Warn("framework matcher failed", "framework", m.Name(), "error", err)
			}
			return nil
		})
	}
	_ = g.Wait() // goroutines never return errors
	return result
}

func safeMatch(m Matcher, c *schema.Classification) (tags []string, err error) {
	defer func() {
		if p := recover(); p != nil {
			tags, err = nil, fmt.Errorf("matcher %s panicked: %v", m.Name(), p)
		}
	}()
	return m.Match(c)
}
