package market

import (
	"encoding/json"
	"io"
	"strconv"
	"strings"

	"github.com/sells-group/market-advisor/internal/apperr"
	"github.com/sells-group/market-advisor/internal/weights"
)

// Payload defaults.
const (
	DefaultTargetMarket = "Mass Market"
	DefaultCustomerType = "B2C"
)

var requiredFields = []string{"industry", "business_model", "presence_mode", "risk_profile", "customer_type"}

// Request is a parsed market-entry request.
type Request struct {
	Profile weights.Profile `json:"profile"`
	Regions []string        `json:"regions"`
}

// DecodeRequest reads a JSON payload. A body that is not a JSON object is
// treated as empty, so the caller sees the missing-fields error.
func DecodeRequest(r io.Reader) (Request, error) {
	var payload map[string]any
	if err := json.NewDecoder(r).Decode(&payload); err != nil {
		payload = nil
	}
	return ParseRequest(payload)
}

// ParseRequest validates a decoded payload and applies defaults. Every
// missing required field is named in the error.
func ParseRequest(payload map[string]any) (Request, error) {
	var missing []string
	for _, field := range requiredFields {
		if !truthy(payload[field]) {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return Request{}, apperr.Validationf("Missing required fields: %s", strings.Join(missing, ", "))
	}

	for _, field := range append([]string{"target_market"}, requiredFields...) {
		if v, ok := payload[field]; ok && v != nil {
			if _, isString := v.(string); !isString {
				return Request{}, apperr.Validationf("Field '%s' must be a string.", field)
			}
		}
	}

	str := func(field, def string) string {
		if s, _ := payload[field].(string); s != "" {
			return s
		}
		return def
	}

	return Request{
		Profile: weights.Profile{
			Industry:      str("industry", ""),
			BusinessModel: str("business_model", ""),
			PresenceMode:  str("presence_mode", ""),
			TargetMarket:  str("target_market", DefaultTargetMarket),
			RiskProfile:   str("risk_profile", ""),
			CustomerType:  str("customer_type", DefaultCustomerType),
			Capital:       parseCapital(payload["capital"]),
		},
		Regions: parseRegions(payload["regions"]),
	}, nil
}

func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case string:
		return x != ""
	case bool:
		return x
	case float64:
		return x != 0
	case []any:
		return len(x) > 0
	case map[string]any:
		return len(x) > 0
	}
	return true
}

// parseCapital accepts a number or a numeric string. Anything else is 0.
func parseCapital(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(x), ",", "")
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	return 0
}

// parseRegions accepts a list of strings or a comma-separated string.
func parseRegions(v any) []string {
	var out []string
	switch x := v.(type) {
	case []any:
		for _, item := range x {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
	case string:
		for _, s := range strings.Split(x, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}
