// Package weights maps a business profile to the indicator weight vector used
// by the market scoring engine.
package weights

import (
	_ "embed"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/market-advisor/internal/stats"
)

//go:embed rules.yaml
var defaultRules []byte

// Profile is the questionnaire answer set a weight vector is derived from.
type Profile struct {
	Industry      string  `json:"industry"`
	BusinessModel string  `json:"business_model"`
	PresenceMode  string  `json:"presence_mode"`
	TargetMarket  string  `json:"target_market"`
	RiskProfile   string  `json:"risk_profile"`
	CustomerType  string  `json:"customer_type"`
	Capital       float64 `json:"capital"`
}

// Field returns the trimmed categorical answer for a dimension name.
func (p Profile) Field(name string) string {
	var v string
	switch name {
	case "industry":
		v = p.Industry
	case "business_model":
		v = p.BusinessModel
	case "presence_mode":
		v = p.PresenceMode
	case "target_market":
		v = p.TargetMarket
	case "risk_profile":
		v = p.RiskProfile
	case "customer_type":
		v = p.CustomerType
	}
	return strings.TrimSpace(v)
}

// Indicator describes one scoring indicator.
type Indicator struct {
	Key         string  `yaml:"key"`
	Base        float64 `yaml:"base"`
	Format      string  `yaml:"format"`
	Label       string  `yaml:"label"`
	Negative    bool    `yaml:"negative"`
	Description string  `yaml:"description"`
}

// FormatRaw renders a raw indicator value with its unit.
func (i Indicator) FormatRaw(v float64) string {
	if i.Format == "" {
		return fmt.Sprintf("%.2f", v)
	}
	return fmt.Sprintf(i.Format, v)
}

// Rule applies Deltas when the profile answer is one of Match.
type Rule struct {
	Match  []string           `yaml:"match"`
	Deltas map[string]float64 `yaml:"deltas"`
}

// Bracket applies Deltas when capital falls in its range. Min is inclusive,
// Over and Under are exclusive bounds.
type Bracket struct {
	Name   string             `yaml:"name"`
	Min    *float64           `yaml:"min"`
	Over   *float64           `yaml:"over"`
	Under  *float64           `yaml:"under"`
	Deltas map[string]float64 `yaml:"deltas"`
}

func (b Bracket) contains(v float64) bool {
	if b.Min != nil && v < *b.Min {
		return false
	}
	if b.Over != nil && v <= *b.Over {
		return false
	}
	if b.Under != nil && v >= *b.Under {
		return false
	}
	return true
}

// Dimension is one profile axis. Categorical dimensions carry Rules, the
// capital dimension carries Brackets. The first matching entry applies.
type Dimension struct {
	Field    string    `yaml:"field"`
	Rules    []Rule    `yaml:"rules"`
	Brackets []Bracket `yaml:"brackets"`
}

// Table is the immutable rule set loaded once at startup.
type Table struct {
	Indicators []Indicator `yaml:"indicators"`
	Dimensions []Dimension `yaml:"dimensions"`

	byKey map[string]int
}

// Default parses the embedded rule table.
func Default() (*Table, error) {
	return parse(defaultRules)
}

// Load reads a rule table from path, or the embedded table when path is empty.
func Load(path string) (*Table, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "weights: read rules %s", path)
	}
	return parse(data)
}

func parse(data []byte) (*Table, error) {
	var wrapper struct {
		Weights Table `yaml:"weights"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "weights: parse rules")
	}
	t := &wrapper.Weights
	if err := t.validate(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Table) validate() error {
	if len(t.Indicators) == 0 {
		return eris.New("weights: no indicators defined")
	}
	t.byKey = make(map[string]int, len(t.Indicators))
	total := 0.0
	for i, ind := range t.Indicators {
		if ind.Key == "" {
			return eris.Errorf("weights: indicator %d has no key", i)
		}
		if _, dup := t.byKey[ind.Key]; dup {
			return eris.Errorf("weights: duplicate indicator %s", ind.Key)
		}
		if ind.Base < 0 {
			return eris.Errorf("weights: negative base weight for %s", ind.Key)
		}
		t.byKey[ind.Key] = i
		total += ind.Base
	}
	if math.Abs(total-1) > 1e-6 {
		return eris.Errorf("weights: base weights sum to %.4f, want 1", total)
	}

	check := func(field string, deltas map[string]float64) error {
		for key := range deltas {
			if _, ok := t.byKey[key]; !ok {
				return eris.Errorf("weights: %s rule references unknown indicator %s", field, key)
			}
		}
		return nil
	}
	for _, d := range t.Dimensions {
		if d.Field != "capital" && !knownField(d.Field) {
			return eris.Errorf("weights: unknown profile field %s", d.Field)
		}
		for _, r := range d.Rules {
			if err := check(d.Field, r.Deltas); err != nil {
				return err
			}
		}
		for _, b := range d.Brackets {
			if err := check(d.Field, b.Deltas); err != nil {
				return err
			}
		}
	}
	return nil
}

func knownField(field string) bool {
	switch field {
	case "industry", "business_model", "presence_mode", "target_market", "risk_profile", "customer_type":
		return true
	}
	return false
}

// Keys returns the indicator keys in table order.
func (t *Table) Keys() []string {
	keys := make([]string, len(t.Indicators))
	for i, ind := range t.Indicators {
		keys[i] = ind.Key
	}
	return keys
}

// Indicator looks up an indicator by key.
func (t *Table) Indicator(key string) (Indicator, bool) {
	i, ok := t.byKey[key]
	if !ok {
		return Indicator{Key: key, Label: strings.ReplaceAll(key, "_", " ")}, false
	}
	return t.Indicators[i], true
}

// Base returns the unadjusted base vector.
func (t *Table) Base() Vector {
	v := make(Vector, len(t.Indicators))
	for _, ind := range t.Indicators {
		v[ind.Key] = ind.Base
	}
	return v
}

// For computes the weight vector for a profile: base weights plus every
// matching dimension's deltas, floored at 0, then normalized and rounded to
// 3 decimals. A zero total falls back to the base vector.
func (t *Table) For(p Profile) Vector {
	w := t.Base()
	for _, d := range t.Dimensions {
		t.apply(w, d.deltasFor(p))
	}

	total := 0.0
	for _, ind := range t.Indicators {
		w[ind.Key] = math.Max(0, w[ind.Key])
		total += w[ind.Key]
	}
	if total == 0 {
		return t.Base()
	}
	for _, ind := range t.Indicators {
		w[ind.Key] = stats.Round(w[ind.Key]/total, 3)
	}
	return w
}

// apply adds deltas in indicator order so float accumulation is stable.
func (t *Table) apply(w Vector, deltas map[string]float64) {
	for _, ind := range t.Indicators {
		if d, ok := deltas[ind.Key]; ok {
			w[ind.Key] += d
		}
	}
}

func (d Dimension) deltasFor(p Profile) map[string]float64 {
	if d.Field == "capital" {
		capital := p.Capital
		if math.IsNaN(capital) || math.IsInf(capital, 0) {
			capital = 0
		}
		for _, b := range d.Brackets {
			if b.contains(capital) {
				return b.Deltas
			}
		}
		return nil
	}
	answer := p.Field(d.Field)
	if answer == "" {
		return nil
	}
	for _, r := range d.Rules {
		for _, m := range r.Match {
			if m == answer {
				return r.Deltas
			}
		}
	}
	return nil
}

// Vector maps indicator key to weight.
type Vector map[string]float64

// Sum totals the weights.
func (v Vector) Sum() float64 {
	total := 0.0
	for _, w := range v {
		total += w
	}
	return total
}
