// Package market loads the country indicator dataset and ranks countries
// against a business profile.
package market

import (
	"errors"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/market-advisor/internal/apperr"
	"github.com/sells-group/market-advisor/internal/table"
)

// EnvDataCSV overrides the configured dataset location when it names an
// existing file.
const EnvDataCSV = "MARKET_DATA_CSV"

const (
	columnCountry  = "Country"
	columnISO3     = "ISO3"
	columnRegion   = "Region"
	columnInternet = "Internet_Penetration"
)

// coreIndicators must be present as columns. Every other scoring indicator
// is supplemental and skipped when its column is absent.
var coreIndicators = []string{"GDP_Growth", "Inflation", "Internet_Penetration", "Population_Millions"}

// supplementSuffixes are the source labels appended by the dataset build.
var supplementSuffixes = []string{"_cost_of_living", "_corruption"}

// Country is one cleaned dataset row.
type Country struct {
	Name   string
	ISO3   string
	Region string
	Values map[string]float64
}

// Dataset is the cleaned country table. Indicators lists the scoring
// indicators that have a column, in rule-table order.
type Dataset struct {
	Indicators []string
	Countries  []Country
}

// ResolvePath returns the MARKET_DATA_CSV override when it exists, else the
// configured path.
func ResolvePath(configured string) string {
	if override := strings.TrimSpace(os.Getenv(EnvDataCSV)); override != "" {
		if strings.HasPrefix(override, "~/") {
			if home, err := os.UserHomeDir(); err == nil {
				override = filepath.Join(home, override[2:])
			}
		}
		if _, err := os.Stat(override); err == nil {
			return override
		}
	}
	return configured
}

// LoadDataset reads and cleans the dataset at path. keys are the scoring
// indicators in rule-table order. Rows missing any available indicator, or
// with non-positive internet penetration, are dropped.
func LoadDataset(path string, keys []string) (*Dataset, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, apperr.NotFound("Market dataset not found. Run `advisor-api dataset build` first.")
	}
	if err != nil {
		return nil, eris.Wrapf(err, "market: open dataset %s", path)
	}
	defer f.Close() //nolint:errcheck

	t, err := table.ReadCSV(f, table.CSVOptions{})
	if err != nil {
		return nil, eris.Wrap(err, "market: parse dataset")
	}
	return buildDataset(t, keys)
}

func buildDataset(t *table.Table, keys []string) (*Dataset, error) {
	var missing []string
	for _, col := range append([]string{columnCountry, columnRegion}, coreIndicators...) {
		if !t.Has(col) {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, apperr.Validationf("Dataset missing required columns: %s", strings.Join(missing, ", "))
	}

	ds := &Dataset{}
	columns := make(map[string]string, len(keys))
	for _, key := range keys {
		if col := indicatorColumn(t, key); col != "" {
			columns[key] = col
			ds.Indicators = append(ds.Indicators, key)
		}
	}

	dropped := 0
rows:
	for r := 0; r < t.Len(); r++ {
		c := Country{
			Name:   t.Cell(r, columnCountry),
			ISO3:   t.Cell(r, columnISO3),
			Region: t.Cell(r, columnRegion),
			Values: make(map[string]float64, len(ds.Indicators)),
		}
		for _, key := range ds.Indicators {
			v := parseIndicator(t.Cell(r, columns[key]))
			if math.IsNaN(v) {
				dropped++
				continue rows
			}
			c.Values[key] = v
		}
		if v := parseIndicator(t.Cell(r, columnInternet)); math.IsNaN(v) || v <= 0 {
			dropped++
			continue
		}
		ds.Countries = append(ds.Countries, c)
	}

	zap.L().Debug("market dataset loaded",
		zap.Int("rows", len(ds.Countries)),
		zap.Int("dropped", dropped),
		zap.Strings("indicators", ds.Indicators),
	)
	if len(ds.Countries) == 0 {
		return nil, apperr.ErrNoUsableRows
	}
	return ds, nil
}

// indicatorColumn finds the column for key, accepting the suffixed names the
// dataset build produces for supplemental sources.
func indicatorColumn(t *table.Table, key string) string {
	if t.Has(key) {
		return key
	}
	for _, suffix := range supplementSuffixes {
		if t.Has(key + suffix) {
			return key + suffix
		}
	}
	return ""
}

func parseIndicator(raw string) float64 {
	if raw == "" {
		return math.NaN()
	}
	if v, err := strconv.ParseFloat(raw, 64); err == nil && !math.IsInf(v, 0) {
		return v
	}
	return table.ParseNumber(raw)
}

// FilterRegions keeps countries whose region matches one of regions, ignoring
// case and surrounding whitespace. An empty list keeps every country.
func FilterRegions(ds *Dataset, regions []string) (*Dataset, error) {
	wanted := make(map[string]struct{}, len(regions))
	for _, r := range regions {
		if r = strings.ToLower(strings.TrimSpace(r)); r != "" {
			wanted[r] = struct{}{}
		}
	}
	if len(wanted) == 0 {
		return ds, nil
	}

	out := &Dataset{Indicators: ds.Indicators}
	for _, c := range ds.Countries {
		if _, ok := wanted[strings.ToLower(strings.TrimSpace(c.Region))]; ok {
			out.Countries = append(out.Countries, c)
		}
	}
	if len(out.Countries) == 0 {
		return nil, apperr.ErrNoRegionalMatch
	}
	return out, nil
}
