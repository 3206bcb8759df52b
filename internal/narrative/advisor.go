package narrative

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/samber/lo"
)

const (
	advisorMaxTokens   = 400
	advisorTemperature = 0.2
	defaultQuestion    = "What should our next strategic move be?"
	noContext          = "key assumptions are not yet documented."
)

const advisorInstructions = "You are a senior management consultant. Answer every question in exactly three " +
	"clear bullet points using a professional and factual tone. Highlight assumptions " +
	"only when material to the recommendation."

// Advisor answers free-form consulting questions.
type Advisor struct {
	gen Generator
}

// NewAdvisor returns an Advisor. A nil gen always answers with the local
// three-bullet fallback.
func NewAdvisor(gen Generator) *Advisor {
	return &Advisor{gen: gen}
}

// Answer responds to question using the supplied context details.
func (a *Advisor) Answer(ctx context.Context, question string, details map[string]any) Result {
	q := strings.TrimSpace(question)
	if q == "" {
		q = defaultQuestion
	}
	p := Prompt{
		System:      advisorInstructions,
		CacheSystem: true,
		User:        fmt.Sprintf("Question: %s\nContext: %s", q, FormatContext(details)),
		MaxTokens:   advisorMaxTokens,
		Temperature: advisorTemperature,
		Purpose:     "advisor",
	}
	return Run(ctx, a.gen, p, func() string {
		return advisorFallback(question, details)
	})
}

func advisorFallback(question string, details map[string]any) string {
	q := strings.TrimSpace(question)
	if q == "" {
		q = "the strategic question"
	}
	bullets := []string{
		fmt.Sprintf("Clarify the intent behind “%s”, align on time horizon, and define measurable success metrics before debating options.", q),
		fmt.Sprintf("Review available evidence (%s) to size the opportunity, test sensitivities, and surface the 2–3 critical assumptions that could change the answer.", FormatContext(details)),
		"Translate the findings into a sequenced action plan covering deeper analysis, stakeholder alignment, and next executive touchpoints over the next 2–4 weeks.",
	}
	return strings.Join(lo.Map(bullets, func(b string, _ int) string { return "• " + b }), "\n")
}

// FormatContext flattens a context map into "Label: detail" fragments joined
// by "; ", keys in sorted order.
func FormatContext(details map[string]any) string {
	if len(details) == 0 {
		return noContext
	}
	keys := lo.Keys(details)
	sort.Strings(keys)

	fragments := make([]string, 0, len(keys))
	for _, k := range keys {
		fragments = append(fragments, contextLabel(k)+": "+contextDetail(details[k]))
	}
	return strings.Join(fragments, "; ")
}

// contextLabel turns "market_size" into "Market size".
func contextLabel(key string) string {
	s := strings.ToLower(strings.TrimSpace(strings.ReplaceAll(key, "_", " ")))
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

func contextDetail(v any) string {
	switch t := v.(type) {
	case nil:
		return "None"
	case map[string]any:
		keys := lo.Keys(t)
		sort.Strings(keys)
		return strings.Join(lo.Map(keys, func(k string, _ int) string {
			return k + ": " + contextDetail(t[k])
		}), ", ")
	case []any:
		return strings.Join(lo.Map(t, func(item any, _ int) string { return contextDetail(item) }), ", ")
	case []string:
		return strings.Join(t, ", ")
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}
