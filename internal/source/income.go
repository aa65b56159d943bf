package source

import (
	"fmt"
	"path/filepath"
)

// ACS table S1903 columns.
const (
	incomeNameColumn  = "NAME"
	incomeValueColumn = "S1903_C02_001E"
)

// LoadIncome reads one ACS S1903 export per year from the income directory.
// The label row that follows the header in ACS downloads, and any row whose
// estimate is suppressed, is dropped.
func LoadIncome(cfg Config) ([]Income, error) {
	dir := cfg.path(cfg.IncomeDir)
	years, paths, err := yearFiles(dir, ".csv")
	if err != nil {
		return nil, err
	}

	log := cfg.logger().With("source", NameIncome)

	var out []Income
	for i, path := range paths {
		records, err := readCSV(path)
		if err != nil {
			return nil, err
		}

		cols := columnIndex(records[0])
		nameCol, ok := cols[incomeNameColumn]
		if !ok {
			return nil, fmt.Errorf("%w: %q in %s", ErrMissingColumn, incomeNameColumn, filepath.Base(path))
		}
		valueCol, ok := cols[incomeValueColumn]
		if !ok {
			return nil, fmt.Errorf("%w: %q in %s", ErrMissingColumn, incomeValueColumn, filepath.Base(path))
		}

		dropped := 0
		for _, row := range records[1:] {
			parish := cfg.parish(cell(row, nameCol))
			value, ok := parseNumber(cell(row, valueCol))
			if parish == "" || !ok {
				dropped++
				continue
			}
			out = append(out, Income{Parish: parish, Year: years[i], MedianIncome: value})
		}

		log.Debug("loaded income file", "year", years[i], "path", path, "dropped", dropped)
	}

	return out, nil
}
