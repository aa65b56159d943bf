package panel

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
)

// Columns is the exported CSV header.
var Columns = []string{
	"parish",
	"year",
	"income",
	"crime_total",
	"school_score",
	"school_grade",
	"home_value",
	"mortgage_rate",
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// WriteCSV writes the panel rows in their stored order.
func (p *Panel) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for _, r := range p.Rows {
		rec := []string{
			r.Parish,
			strconv.Itoa(r.Year),
			formatFloat(r.Income),
			formatFloat(r.CrimeTotal),
			formatFloat(r.SchoolScore),
			r.SchoolGrade,
			formatFloat(r.HomeValue),
			formatFloat(r.MortgageRate),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Export writes the panel to dir/<prefix>_<start>_<end>.csv and returns the
// path. The file is written to a temporary name and renamed into place.
func (p *Panel) Export(dir, prefix string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	path := filepath.Join(dir, p.FileName(prefix))
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if err := p.WriteCSV(tmp); err != nil {
		_ = tmp.Close()
		cleanup()
		return "", fmt.Errorf("failed to write panel: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return "", fmt.Errorf("failed to sync panel: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", fmt.Errorf("failed to close panel: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		cleanup()
		return "", fmt.Errorf("failed to set panel permissions: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return "", fmt.Errorf("failed to move panel into place: %w", err)
	}
	return path, nil
}

// ReadCSV loads a panel previously written by Export. The window is taken
// from the smallest and largest year present.
func ReadCSV(path string) (*Panel, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open panel %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	return readCSV(f, path)
}

func readCSV(r io.Reader, name string) (*Panel, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse panel %s: %w", name, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", ErrEmptyPanel, name)
	}

	cols := make(map[string]int, len(records[0]))
	for i, h := range records[0] {
		cols[h] = i
	}
	for _, c := range Columns {
		if _, ok := cols[c]; !ok {
			return nil, fmt.Errorf("panel %s is missing column %q", name, c)
		}
	}

	p := &Panel{Start: math.MaxInt, End: math.MinInt}
	for n, rec := range records[1:] {
		line := n + 2
		num := func(col string) (float64, error) {
			v, err := strconv.ParseFloat(rec[cols[col]], 64)
			if err != nil {
				return 0, fmt.Errorf("%w: %s line %d: %s: %v", ErrInvalidRow, name, line, col, err)
			}
			return v, nil
		}

		year, err := strconv.Atoi(rec[cols["year"]])
		if err != nil {
			return nil, fmt.Errorf("%w: %s line %d: year: %v", ErrInvalidRow, name, line, err)
		}
		row := Row{Parish: rec[cols["parish"]], Year: year, SchoolGrade: rec[cols["school_grade"]]}
		for _, f := range []struct {
			col string
			dst *float64
		}{
			{"income", &row.Income},
			{"crime_total", &row.CrimeTotal},
			{"school_score", &row.SchoolScore},
			{"home_value", &row.HomeValue},
			{"mortgage_rate", &row.MortgageRate},
		} {
			if *f.dst, err = num(f.col); err != nil {
				return nil, err
			}
		}

		p.Rows = append(p.Rows, row)
		p.Start = min(p.Start, year)
		p.End = max(p.End, year)
	}

	if len(p.Rows) == 0 {
		return nil, fmt.Errorf("%w: %s has a header but no rows", ErrEmptyPanel, name)
	}
	sort.Slice(p.Rows, func(i, j int) bool { return p.Rows[i].Key().Less(p.Rows[j].Key()) })

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}
