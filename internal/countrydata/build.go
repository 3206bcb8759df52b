package countrydata

import (
	"encoding/csv"
	"errors"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/sells-group/market-advisor/internal/stats"
	"github.com/sells-group/market-advisor/internal/table"
)

const (
	baseCountryColumn       = "Country"
	supplementCountryColumn = "country"
	regionColumn            = "Region"
	populationColumn        = "Population"
	populationMillions      = "Population_Millions"
)

// ImputeColumns are filled by regional median, then global median.
var ImputeColumns = []string{
	"annual_income_corruption",
	"corruption_index_corruption",
	"cost_index_cost_of_living",
	"monthly_income_cost_of_living",
	"purchasing_power_index_cost_of_living",
}

// Supplement is a per-country source joined onto the base table. Its columns
// are suffixed with "_" + Label.
type Supplement struct {
	Label string
	Table *table.Table
}

// Merge left-joins every supplement onto base by CountryKey, derives
// Population_Millions when absent, and imputes ImputeColumns.
func Merge(base *table.Table, supplements []Supplement) (*table.Table, error) {
	if !base.Has(baseCountryColumn) {
		return nil, eris.Errorf("countrydata: base table has no %s column", baseCountryColumn)
	}

	columns := append([]string(nil), base.Columns...)
	rows := make([][]string, base.Len())
	keys := make([]string, base.Len())
	for i := range rows {
		rows[i] = append([]string(nil), base.Rows[i]...)
		keys[i] = CountryKey(base.Cell(i, baseCountryColumn))
	}

	for _, sup := range supplements {
		if !sup.Table.Has(supplementCountryColumn) {
			return nil, eris.Errorf("countrydata: supplement %s has no %s column", sup.Label, supplementCountryColumn)
		}
		extra := lo.Filter(sup.Table.Columns, func(c string, _ int) bool {
			return c != supplementCountryColumn
		})

		index := make(map[string]int, sup.Table.Len())
		duplicates := 0
		for r := 0; r < sup.Table.Len(); r++ {
			key := CountryKey(sup.Table.Cell(r, supplementCountryColumn))
			if key == "" {
				continue
			}
			if _, seen := index[key]; seen {
				duplicates++
				continue
			}
			index[key] = r
		}

		matched := 0
		for i := range rows {
			r, ok := index[keys[i]]
			if ok {
				matched++
			}
			for _, c := range extra {
				v := ""
				if ok {
					v = sup.Table.Cell(r, c)
				}
				rows[i] = append(rows[i], v)
			}
		}
		for _, c := range extra {
			columns = append(columns, c+"_"+sup.Label)
		}

		zap.L().Info("countrydata: merged supplement",
			zap.String("label", sup.Label),
			zap.Int("matched", matched),
			zap.Int("unmatched", len(rows)-matched),
			zap.Int("duplicates", duplicates),
		)
	}

	merged := table.New(columns, rows)
	merged = derivePopulationMillions(merged)
	imputeMedians(merged, ImputeColumns)
	return merged, nil
}

func derivePopulationMillions(t *table.Table) *table.Table {
	if t.Has(populationMillions) || !t.Has(populationColumn) {
		return t
	}
	columns := append(append([]string(nil), t.Columns...), populationMillions)
	rows := make([][]string, t.Len())
	for i := range rows {
		v := ""
		if pop := parseCell(t.Cell(i, populationColumn)); !math.IsNaN(pop) {
			v = formatFloat(pop / 1e6)
		}
		rows[i] = append(append([]string(nil), t.Rows[i]...), v)
	}
	return table.New(columns, rows)
}

// imputeMedians fills blank or unparsable cells of each present column with
// the median of its region, falling back to the median of the whole column.
func imputeMedians(t *table.Table, columns []string) {
	for _, col := range columns {
		if !t.Has(col) {
			continue
		}
		idx := lo.IndexOf(t.Columns, col)

		values := make([]float64, t.Len())
		byRegion := map[string][]float64{}
		var missing []int
		for i := range values {
			values[i] = parseCell(t.Rows[i][idx])
			if math.IsNaN(values[i]) {
				missing = append(missing, i)
				continue
			}
			region := t.Cell(i, regionColumn)
			byRegion[region] = append(byRegion[region], values[i])
		}
		if len(missing) == 0 {
			continue
		}

		// The global fallback is taken after regional filling.
		var rest []int
		for _, i := range missing {
			if regional, ok := byRegion[t.Cell(i, regionColumn)]; ok {
				values[i] = stats.Median(regional)
				continue
			}
			rest = append(rest, i)
		}
		global := stats.Median(values)
		for _, i := range rest {
			values[i] = global
		}

		filled := 0
		for _, i := range missing {
			if math.IsNaN(values[i]) {
				continue
			}
			t.Rows[i][idx] = formatFloat(values[i])
			filled++
		}
		zap.L().Debug("countrydata: imputed column", zap.String("column", col), zap.Int("filled", filled))
	}
}

func parseCell(raw string) float64 {
	if raw == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsInf(v, 0) {
		return math.NaN()
	}
	return v
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// WriteCSV writes t with its header.
func WriteCSV(w io.Writer, t *table.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return eris.Wrap(err, "countrydata: write header")
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return eris.Wrap(err, "countrydata: write rows")
	}
	return nil
}

// SourceFile names a supplemental CSV on disk.
type SourceFile struct {
	Label   string
	Path    string
	Charset string
}

// BuildOptions configures Build.
type BuildOptions struct {
	BasePath    string
	Supplements []SourceFile
	OutPath     string
}

// DefaultSupplements are the sources the merged dataset is normally built from.
func DefaultSupplements(dir string) []SourceFile {
	return []SourceFile{
		{Label: "corruption", Path: filepath.Join(dir, "corruption.csv")},
		{Label: "cost_of_living", Path: filepath.Join(dir, "cost_of_living.csv")},
	}
}

// Build reads the base and supplemental CSVs, merges them, and writes the
// result to OutPath. Missing supplemental files are skipped.
func Build(opts BuildOptions) (*table.Table, error) {
	base, err := readFile(opts.BasePath, "")
	if err != nil {
		return nil, err
	}

	var sups []Supplement
	for _, src := range opts.Supplements {
		t, err := readFile(src.Path, src.Charset)
		if errors.Is(err, fs.ErrNotExist) {
			zap.L().Warn("countrydata: supplement not found, skipping",
				zap.String("label", src.Label), zap.String("path", src.Path))
			continue
		}
		if err != nil {
			return nil, err
		}
		sups = append(sups, Supplement{Label: src.Label, Table: t})
	}

	merged, err := Merge(base, sups)
	if err != nil {
		return nil, err
	}

	if err := saveCSV(opts.OutPath, merged); err != nil {
		return nil, err
	}
	zap.L().Info("countrydata: saved merged dataset",
		zap.String("path", opts.OutPath), zap.Int("rows", merged.Len()))
	return merged, nil
}

// saveCSV writes t next to path and renames it into place once the file is
// fully written and closed, so a failed build leaves the old dataset intact.
func saveCSV(path string, t *table.Table) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return eris.Wrapf(err, "countrydata: create %s", path)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if err := WriteCSV(tmp, t); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrapf(err, "countrydata: close %s", path)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return eris.Wrapf(err, "countrydata: replace %s", path)
	}
	return nil
}

func readFile(path, charset string) (*table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "countrydata: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	t, err := table.ReadCSV(f, table.CSVOptions{Charset: charset})
	if err != nil {
		return nil, eris.Wrapf(err, "countrydata: parse %s", path)
	}
	return t, nil
}
