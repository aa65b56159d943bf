package source

import (
	"fmt"
	"path/filepath"
	"sort"
)

type aggregate int

const (
	aggSum aggregate = iota
	aggMean
)

type monthlySpec struct {
	name      string
	keyColumn string
	// onlyMonthColumns restricts value columns to headers that look like
	// periods; otherwise every non-key column is a period.
	onlyMonthColumns bool
	skipColumns      []string
	agg              aggregate
}

type annualValue struct {
	Key
	Value float64
}

type accumulator struct {
	sum   float64
	count int
}

// loadMonthly collapses a wide parish-by-month table into annual values.
// Blank and unparsable cells are skipped. Two rows naming the same canonical
// parish are rejected with ErrDuplicateKey.
func loadMonthly(cfg Config, path string, spec monthlySpec) ([]annualValue, error) {
	records, err := readCSV(path)
	if err != nil {
		return nil, err
	}

	header := records[0]
	cols := columnIndex(header)
	keyCol, ok := cols[spec.keyColumn]
	if !ok {
		return nil, fmt.Errorf("%w: %q in %s", ErrMissingColumn, spec.keyColumn, filepath.Base(path))
	}

	skip := map[int]bool{keyCol: true}
	for _, name := range spec.skipColumns {
		if c, ok := cols[name]; ok {
			skip[c] = true
		}
	}

	valueCols := make([]int, 0, len(header))
	colYears := make(map[int]int, len(header))
	for i, h := range header {
		if skip[i] {
			continue
		}
		if spec.onlyMonthColumns && !monthColumn.MatchString(h) {
			continue
		}
		year, err := YearFromPeriodLabel(h)
		if err != nil {
			return nil, fmt.Errorf("bad period column in %s: %w", filepath.Base(path), err)
		}
		valueCols = append(valueCols, i)
		colYears[i] = year
	}
	if len(valueCols) == 0 {
		return nil, fmt.Errorf("no monthly columns found in %s; expected headers like 'Jan-15' or '2015-01'", filepath.Base(path))
	}

	acc := make(map[Key]*accumulator)
	firstLine := make(map[string]int)
	skipped := 0
	for i, row := range records[1:] {
		parish := cfg.parish(cell(row, keyCol))
		if parish == "" {
			continue
		}
		line := i + 2
		if prev, ok := firstLine[parish]; ok {
			return nil, fmt.Errorf("%w in %s: %s on lines %d and %d of %s",
				ErrDuplicateKey, spec.name, parish, prev, line, filepath.Base(path))
		}
		firstLine[parish] = line
		for _, c := range valueCols {
			raw := cell(row, c)
			if raw == "" {
				continue
			}
			v, ok := parseNumber(raw)
			if !ok {
				skipped++
				continue
			}
			k := Key{Parish: parish, Year: colYears[c]}
			a := acc[k]
			if a == nil {
				a = &accumulator{}
				acc[k] = a
			}
			a.sum += v
			a.count++
		}
	}

	out := make([]annualValue, 0, len(acc))
	for k, a := range acc {
		v := a.sum
		if spec.agg == aggMean {
			v = a.sum / float64(a.count)
		}
		out = append(out, annualValue{Key: k, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key.Less(out[j].Key) })

	cfg.logger().Debug("loaded monthly file", "source", spec.name, "path", path,
		"period_columns", len(valueCols), "annual_values", len(out), "skipped_cells", skipped)

	return out, nil
}

// LoadCrime reads the monthly crime table and sums each parish's counts per year.
func LoadCrime(cfg Config) ([]CrimeTotal, error) {
	vals, err := loadMonthly(cfg, cfg.path(cfg.CrimeFile), monthlySpec{
		name:      NameCrime,
		keyColumn: "Parish",
		agg:       aggSum,
	})
	if err != nil {
		return nil, err
	}

	out := make([]CrimeTotal, len(vals))
	for i, v := range vals {
		out[i] = CrimeTotal{Parish: v.Parish, Year: v.Year, Total: v.Value}
	}
	return out, nil
}

// LoadHomeValues reads the monthly home value table and averages each
// parish's values per year.
func LoadHomeValues(cfg Config) ([]HomeValue, error) {
	vals, err := loadMonthly(cfg, cfg.path(cfg.HomeValuesFile), monthlySpec{
		name:             NameHome,
		keyColumn:        "RegionName",
		onlyMonthColumns: true,
		skipColumns:      []string{"SizeRank"},
		agg:              aggMean,
	})
	if err != nil {
		return nil, err
	}

	out := make([]HomeValue, len(vals))
	for i, v := range vals {
		out[i] = HomeValue{Parish: v.Parish, Year: v.Year, Average: v.Value}
	}
	return out, nil
}
