package source

import (
	"fmt"
	"path/filepath"
	"sort"
)

// FRED MORTGAGE30US export columns.
const (
	mortgageDateColumn = "observation_date"
	mortgageRateColumn = "MORTGAGE30US"
)

// LoadMortgageRates reads the weekly 30-year mortgage rate series and
// averages it per calendar year.
func LoadMortgageRates(cfg Config) ([]MortgageRate, error) {
	path := cfg.path(cfg.MortgageFile)
	rows, err := readSheet(path)
	if err != nil {
		return nil, err
	}

	cols := columnIndex(rows[0])
	dateCol, okDate := cols[mortgageDateColumn]
	rateCol, okRate := cols[mortgageRateColumn]
	if !okDate || !okRate {
		return nil, fmt.Errorf("%w: %q and %q in %s", ErrMissingColumn,
			mortgageDateColumn, mortgageRateColumn, filepath.Base(path))
	}

	acc := make(map[int]*accumulator)
	skipped := 0
	for _, row := range rows[1:] {
		rawDate := cell(row, dateCol)
		if rawDate == "" {
			continue
		}
		date, err := parseObservationDate(rawDate)
		if err != nil {
			return nil, fmt.Errorf("bad %s in %s: %w", mortgageDateColumn, filepath.Base(path), err)
		}

		rate, ok := parseNumber(cell(row, rateCol))
		if !ok {
			skipped++
			continue
		}

		a := acc[date.Year()]
		if a == nil {
			a = &accumulator{}
			acc[date.Year()] = a
		}
		a.sum += rate
		a.count++
	}

	out := make([]MortgageRate, 0, len(acc))
	for year, a := range acc {
		out = append(out, MortgageRate{Year: year, Average: a.sum / float64(a.count)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year < out[j].Year })

	cfg.logger().Debug("loaded mortgage rates", "source", NameMortgage, "path", path,
		"years", len(out), "skipped_rows", skipped)

	return out, nil
}
