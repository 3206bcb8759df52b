// Package narrative turns structured results into human-readable text. An
// external generator is tried once; any failure falls back to deterministic
// local text so callers always receive something to show.
package narrative

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/market-advisor/internal/resilience"
	"github.com/sells-group/market-advisor/pkg/anthropic"
)

// Source tags where a Result's text came from.
type Source string

const (
	SourceGenerated Source = "generated"
	SourceFallback  Source = "fallback"
)

// Fallback reasons that are not failure classes of an outbound call.
const (
	ReasonMissingCredential = "missing_credential"
	ReasonEmptyResponse     = "empty_response"
)

var (
	// ErrNoCredential means the generator has no API key configured.
	ErrNoCredential = eris.New("narrative: no credential configured")
	// ErrEmptyResponse means the generator answered with no usable text.
	ErrEmptyResponse = eris.New("narrative: empty response")
)

// Prompt is one generation request.
type Prompt struct {
	System string
	// CacheSystem marks System as a prompt-cache prefix. Set it for fixed
	// instructions that repeat across calls.
	CacheSystem bool
	User        string
	MaxTokens   int64
	Temperature float64
	// Purpose labels the call in cost logs.
	Purpose string
}

// systemCacheTTL is how long cached instructions stay warm.
const systemCacheTTL = "5m"

// Generator produces text for a prompt or fails.
type Generator interface {
	Generate(ctx context.Context, p Prompt) (string, error)
}

// Result is either generated text or fallback text with the reason the
// generator was not used.
type Result struct {
	Text   string
	Source Source
	Reason string
}

// Fallback reports whether the text was assembled locally.
func (r Result) Fallback() bool {
	return r.Source == SourceFallback
}

// Warning is the non-fatal notice attached to responses built from fallback
// text. It is empty for generated text.
func (r Result) Warning() string {
	if !r.Fallback() {
		return ""
	}
	return fmt.Sprintf("Narrative service unavailable (%s); returned locally generated text.", r.Reason)
}

// Run asks gen for text once. A nil generator, an error, or a blank answer
// all yield fallback(). Run never fails.
func Run(ctx context.Context, gen Generator, p Prompt, fallback func() string) Result {
	if gen == nil {
		return fallbackResult(p, ReasonMissingCredential, nil, fallback)
	}
	text, err := gen.Generate(ctx, p)
	if err == nil && text == "" {
		err = ErrEmptyResponse
	}
	if err != nil {
		return fallbackResult(p, reasonFor(err), err, fallback)
	}
	return Result{Text: text, Source: SourceGenerated}
}

func fallbackResult(p Prompt, reason string, err error, fallback func() string) Result {
	fields := []zap.Field{zap.String("purpose", p.Purpose), zap.String("reason", reason)}
	if err != nil {
		fields = append(fields, zap.Bool("transient", resilience.IsTransient(err)), zap.Error(err))
	}
	zap.L().Warn("narrative: using fallback text", fields...)
	return Result{Text: fallback(), Source: SourceFallback, Reason: reason}
}

func reasonFor(err error) string {
	switch {
	case errors.Is(err, ErrNoCredential):
		return ReasonMissingCredential
	case errors.Is(err, ErrEmptyResponse):
		return ReasonEmptyResponse
	}
	class := resilience.Classify(err)
	if code := resilience.StatusCode(err); class == resilience.ClassStatus && code != 0 {
		return fmt.Sprintf("%s %d", class, code)
	}
	return string(class)
}

// AnthropicGenerator generates text with the Messages API.
type AnthropicGenerator struct {
	client  anthropic.Client
	model   string
	timeout time.Duration
}

// NewAnthropicGenerator returns a Generator bound to model. Each call is
// bounded by timeout when it is positive.
func NewAnthropicGenerator(client anthropic.Client, model string, timeout time.Duration) *AnthropicGenerator {
	return &AnthropicGenerator{client: client, model: model, timeout: timeout}
}

// Generate implements Generator.
func (g *AnthropicGenerator) Generate(ctx context.Context, p Prompt) (string, error) {
	if g.client == nil {
		return "", ErrNoCredential
	}
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	temp := p.Temperature
	req := anthropic.MessageRequest{
		Model:       g.model,
		MaxTokens:   p.MaxTokens,
		Messages:    []anthropic.Message{{Role: "user", Content: p.User}},
		Temperature: &temp,
	}
	if p.System != "" {
		block := anthropic.SystemBlock{Text: p.System}
		if p.CacheSystem {
			block.CacheControl = &anthropic.CacheControl{TTL: systemCacheTTL}
		}
		req.System = []anthropic.SystemBlock{block}
	}

	resp, err := g.client.CreateMessage(ctx, req)
	if err != nil {
		return "", eris.Wrap(err, "narrative: generate")
	}
	resp.Usage.LogCost(g.model, p.Purpose)

	text := resp.Text()
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
