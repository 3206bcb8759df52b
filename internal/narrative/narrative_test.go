package narrative

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/market-advisor/internal/market"
	"github.com/sells-group/market-advisor/internal/resilience"
	"github.com/sells-group/market-advisor/internal/weights"
	"github.com/sells-group/market-advisor/pkg/anthropic"
)

type mockGenerator struct {
	mock.Mock
}

func (m *mockGenerator) Generate(ctx context.Context, p Prompt) (string, error) {
	args := m.Called(ctx, p)
	return args.String(0), args.Error(1)
}

type mockClient struct {
	mock.Mock
}

func (m *mockClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anthropic.MessageResponse), args.Error(1)
}

func TestRun(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		err        error
		wantSource Source
		wantReason string
		wantText   string
	}{
		{"generated", "Kenya leads.", nil, SourceGenerated, "", "Kenya leads."},
		{"empty", "", nil, SourceFallback, ReasonEmptyResponse, "local"},
		{"no credential", "", ErrNoCredential, SourceFallback, ReasonMissingCredential, "local"},
		{"timeout", "", eris.Wrap(context.DeadlineExceeded, "narrative: generate"), SourceFallback, "timeout", "local"},
		{"status", "", resilience.NewStatusError(errors.New("overloaded"), 529), SourceFallback, "upstream_status 529", "local"},
		{"other", "", errors.New("malformed payload"), SourceFallback, "error", "local"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := new(mockGenerator)
			gen.On("Generate", mock.Anything, mock.Anything).Return(tt.text, tt.err)

			res := Run(context.Background(), gen, Prompt{Purpose: "test"}, func() string { return "local" })
			assert.Equal(t, tt.wantSource, res.Source)
			assert.Equal(t, tt.wantReason, res.Reason)
			assert.Equal(t, tt.wantText, res.Text)
			if tt.wantSource == SourceFallback {
				assert.True(t, res.Fallback())
				assert.Contains(t, res.Warning(), tt.wantReason)
			} else {
				assert.Empty(t, res.Warning())
			}
			gen.AssertNumberOfCalls(t, "Generate", 1)
		})
	}
}

func TestRun_NilGenerator(t *testing.T) {
	res := Run(context.Background(), nil, Prompt{}, func() string { return "local" })
	assert.Equal(t, Result{Text: "local", Source: SourceFallback, Reason: ReasonMissingCredential}, res)
	assert.Equal(t, "Narrative service unavailable (missing_credential); returned locally generated text.", res.Warning())
}

func TestAnthropicGenerator(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		client := new(mockClient)
		client.On("CreateMessage", mock.MatchedBy(func(ctx context.Context) bool {
			_, ok := ctx.Deadline()
			return ok
		}), mock.MatchedBy(func(req anthropic.MessageRequest) bool {
			return req.Model == "claude-haiku-4-5-20251001" &&
				req.MaxTokens == 150 &&
				req.Temperature != nil && *req.Temperature == 0.3 &&
				len(req.System) == 1 && req.System[0].Text == "sys" && req.System[0].CacheControl == nil &&
				len(req.Messages) == 1 && req.Messages[0].Content == "user"
		})).Return(&anthropic.MessageResponse{
			Content: []anthropic.ContentBlock{{Type: "text", Text: " Germany leads. "}},
		}, nil)

		gen := NewAnthropicGenerator(client, "claude-haiku-4-5-20251001", time.Second)
		text, err := gen.Generate(context.Background(), Prompt{System: "sys", User: "user", MaxTokens: 150, Temperature: 0.3})
		require.NoError(t, err)
		assert.Equal(t, "Germany leads.", text)
		client.AssertExpectations(t)
	})

	t.Run("cached instructions", func(t *testing.T) {
		client := new(mockClient)
		client.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
			return len(req.System) == 1 && req.System[0].Text == marketInstructions &&
				req.System[0].CacheControl != nil && req.System[0].CacheControl.TTL == "5m"
		})).Return(&anthropic.MessageResponse{
			Content: []anthropic.ContentBlock{{Type: "text", Text: "Alpha leads."}},
			Usage:   anthropic.TokenUsage{InputTokens: 40, OutputTokens: 12, CacheReadInputTokens: 90},
		}, nil)

		gen := NewAnthropicGenerator(client, "claude-haiku-4-5-20251001", time.Second)
		text, err := gen.Generate(context.Background(), Prompt{
			System: marketInstructions, CacheSystem: true, User: "Top markets: Alpha.", Purpose: "market_summary",
		})
		require.NoError(t, err)
		assert.Equal(t, "Alpha leads.", text)
		client.AssertExpectations(t)
	})

	t.Run("explainer marks instructions for caching", func(t *testing.T) {
		client := new(mockClient)
		client.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
			return len(req.System) == 1 && req.System[0].Text == marketInstructions &&
				req.System[0].CacheControl != nil &&
				!strings.Contains(req.Messages[0].Content, marketInstructions)
		})).Return(&anthropic.MessageResponse{
			Content: []anthropic.ContentBlock{{Type: "text", Text: "Alpha leads."}},
		}, nil)

		gen := NewAnthropicGenerator(client, "claude-haiku-4-5-20251001", time.Second)
		res := NewExplainer(testRules(t), gen).Explain(context.Background(), testMarketInput())
		assert.Equal(t, SourceGenerated, res.Source)
		client.AssertExpectations(t)
	})

	t.Run("no system block", func(t *testing.T) {
		client := new(mockClient)
		client.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
			return len(req.System) == 0
		})).Return(&anthropic.MessageResponse{Content: []anthropic.ContentBlock{{Type: "text", Text: "ok"}}}, nil)

		text, err := NewAnthropicGenerator(client, "m", 0).Generate(context.Background(), Prompt{User: "u"})
		require.NoError(t, err)
		assert.Equal(t, "ok", text)
	})

	t.Run("error", func(t *testing.T) {
		client := new(mockClient)
		client.On("CreateMessage", mock.Anything, mock.Anything).
			Return(nil, resilience.NewStatusError(errors.New("unauthorized"), 401))

		_, err := NewAnthropicGenerator(client, "m", time.Second).Generate(context.Background(), Prompt{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "narrative: generate")
		assert.Equal(t, 401, resilience.StatusCode(err))
	})

	t.Run("empty", func(t *testing.T) {
		client := new(mockClient)
		client.On("CreateMessage", mock.Anything, mock.Anything).Return(&anthropic.MessageResponse{}, nil)

		_, err := NewAnthropicGenerator(client, "m", time.Second).Generate(context.Background(), Prompt{})
		assert.ErrorIs(t, err, ErrEmptyResponse)
	})

	t.Run("no client", func(t *testing.T) {
		_, err := NewAnthropicGenerator(nil, "m", time.Second).Generate(context.Background(), Prompt{})
		assert.ErrorIs(t, err, ErrNoCredential)
	})
}

func testRules(t *testing.T) *weights.Table {
	t.Helper()
	rules, err := weights.Default()
	require.NoError(t, err)
	return rules
}

func testMarketInput() MarketInput {
	return MarketInput{
		Profile: weights.Profile{
			Industry:      "Technology",
			BusinessModel: "SaaS",
			PresenceMode:  "Online",
			RiskProfile:   "Medium",
			CustomerType:  "B2C",
			Capital:       1500000,
		},
		Weights: weights.Vector{
			"GDP_Growth":             0.149,
			"Inflation":              0.062,
			"Internet_Penetration":   0.341,
			"Population_Millions":    0.169,
			"purchasing_power_index": 0.143,
			"corruption_index":       0.058,
			"cost_index":             0.078,
		},
		Leaders: []string{"Alpha", "Bravo"},
		Breakdown: []market.CountryBreakdown{
			{Country: "Alpha", Score: 0.7317, Metrics: map[string]market.MetricDetail{
				"GDP_Growth":           {Raw: 6.5, Contribution: 0.149},
				"Inflation":            {Raw: 2.04, Contribution: 0.062},
				"Internet_Penetration": {Raw: 92, Contribution: 0.341},
				"Population_Millions":  {Raw: 52.4, Contribution: 0.0068},
			}},
			{Country: "Bravo", Score: 0.5293, Metrics: map[string]market.MetricDetail{
				"GDP_Growth":       {Raw: 3, Contribution: 0.01},
				"corruption_index": {Raw: 30, Contribution: 0.05},
				"cost_index":       {Raw: 40.26, Contribution: 0.07},
			}},
		},
	}
}

const wantRecommendation = "For a B2C profile, Alpha stands out thanks to high digital reach, high growth."

func TestExplainer_Fallback(t *testing.T) {
	res := NewExplainer(testRules(t), nil).Explain(context.Background(), testMarketInput())

	assert.Equal(t, SourceFallback, res.Source)
	assert.Equal(t, "We ranked Alpha, Bravo by blending GDP growth, digital adoption, market scale, "+
		"consumer purchasing power, price stability, governance risk, and operating cost. "+
		"Lower corruption and cost indices improve scores, while lower inflation rewards stability.\n"+
		"Key highlights:\n"+
		"• Alpha – digital reach: 92% online; growth: 6.5% growth; price stability: 2.0% inflation\n"+
		"• Bravo – operating cost: index 40.3; governance risk: score 30; growth: 3.0% growth\n"+
		"Recommendation: "+wantRecommendation, res.Text)
}

func TestExplainer_Generated(t *testing.T) {
	gen := new(mockGenerator)
	gen.On("Generate", mock.Anything, mock.MatchedBy(func(p Prompt) bool {
		return p.MaxTokens == 150 && p.Temperature == 0.3 && p.Purpose == "market_summary"
	})).Return("Alpha leads on digital reach.", nil).Once()

	res := NewExplainer(testRules(t), gen).Explain(context.Background(), testMarketInput())
	assert.Equal(t, SourceGenerated, res.Source)
	assert.Equal(t, "Alpha leads on digital reach.\nRecommendation: "+wantRecommendation, res.Text)

	p := gen.Calls[0].Arguments.Get(1).(Prompt)
	assert.Equal(t, marketInstructions, p.System)
	assert.True(t, p.CacheSystem)
	assert.NotContains(t, p.User, "explainable AI assistant")
	assert.True(t, strings.HasPrefix(p.User, "Top markets: Alpha, Bravo."), p.User)
	assert.Contains(t, p.User, "Top markets: Alpha, Bravo.")
	assert.Contains(t, p.User, "Emphasis mix: digital reach (~34%), market scale (~17%), growth (~15%), consumer spending power (~14%), operating cost (~8%)")
	assert.Contains(t, p.User, "Industry: Technology, Business model: SaaS, Presence: Online, Customer type: B2C, Risk appetite: Medium, Capital: 1500000")
	assert.Contains(t, p.User, "Recommendation: "+wantRecommendation)
	gen.AssertExpectations(t)
}

func TestExplainer_GeneratedKeepsRecommendation(t *testing.T) {
	gen := new(mockGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).Return("Summary. "+wantRecommendation, nil)

	res := NewExplainer(testRules(t), gen).Explain(context.Background(), testMarketInput())
	assert.Equal(t, "Summary. "+wantRecommendation, res.Text)
}

func TestExplainer_NoLeaders(t *testing.T) {
	res := NewExplainer(testRules(t), nil).Explain(context.Background(), MarketInput{})
	assert.Equal(t, "We ranked the highlighted countries by blending GDP growth, digital adoption, market scale, "+
		"consumer purchasing power, price stability, governance risk, and operating cost. "+
		"Lower corruption and cost indices improve scores, while lower inflation rewards stability.", res.Text)
}

func TestExplainer_RecommendationQualifiers(t *testing.T) {
	in := testMarketInput()
	in.Profile.CustomerType = ""
	in.Breakdown = in.Breakdown[1:]

	res := NewExplainer(testRules(t), nil).Explain(context.Background(), in)
	assert.Contains(t, res.Text, "Recommendation: For a your profile, Bravo stands out thanks to low operating cost, low governance risk.")
}

func TestAdvisor_Fallback(t *testing.T) {
	res := NewAdvisor(nil).Answer(context.Background(), " Should we enter Kenya? ", map[string]any{
		"market_size": 12.5,
		"budget":      "2M",
	})
	assert.Equal(t, SourceFallback, res.Source)
	assert.Equal(t,
		"• Clarify the intent behind “Should we enter Kenya?”, align on time horizon, and define measurable success metrics before debating options.\n"+
			"• Review available evidence (Budget: 2M; Market size: 12.5) to size the opportunity, test sensitivities, and surface the 2–3 critical assumptions that could change the answer.\n"+
			"• Translate the findings into a sequenced action plan covering deeper analysis, stakeholder alignment, and next executive touchpoints over the next 2–4 weeks.",
		res.Text)
}

func TestAdvisor_Generated(t *testing.T) {
	gen := new(mockGenerator)
	gen.On("Generate", mock.Anything, mock.MatchedBy(func(p Prompt) bool {
		return p.System == advisorInstructions && p.CacheSystem &&
			p.User == "Question: Which region first?\nContext: key assumptions are not yet documented." &&
			p.Purpose == "advisor"
	})).Return("• A\n• B\n• C", nil)

	res := NewAdvisor(gen).Answer(context.Background(), "Which region first?", nil)
	assert.Equal(t, Result{Text: "• A\n• B\n• C", Source: SourceGenerated}, res)
	gen.AssertExpectations(t)
}

func TestFormatContext(t *testing.T) {
	tests := []struct {
		name string
		in   map[string]any
		want string
	}{
		{"empty", nil, "key assumptions are not yet documented."},
		{"scalar", map[string]any{"growth_rate": 0.05}, "Growth rate: 0.05"},
		{"large number", map[string]any{"revenue": 1500000.0}, "Revenue: 1500000"},
		{"list", map[string]any{"regions": []any{"Asia", "Europe"}}, "Regions: Asia, Europe"},
		{"nested", map[string]any{"TEAM": map[string]any{"size": 12.0, "lead": "Ana"}}, "Team: lead: Ana, size: 12"},
		{"null", map[string]any{"notes": nil}, "Notes: None"},
		{"sorted", map[string]any{"b": "2", "a": "1"}, "A: 1; B: 2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatContext(tt.in))
		})
	}
}
