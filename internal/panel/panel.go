// Package panel aligns the raw indicator sources on a shared year window and
// merges them into one row per (parish, year).
//
// A Panel is an ordinary value: Build returns it, the trainers take it as an
// argument, and Export/ReadCSV move it through a flat file. Nothing here is
// cached between calls; every Build rereads the sources.
package panel

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/leapstack-labs/parishpanel/internal/source"
)

// DefaultWindow is the number of consecutive years kept in the panel.
const DefaultWindow = 5

// DefaultFilePrefix names the exported panel file.
const DefaultFilePrefix = "five_year_panel"

var (
	// ErrNoCommonYears is returned when the sources share no year.
	ErrNoCommonYears = errors.New("sources share no common year")

	// ErrNoContiguousWindow is returned when the common years contain no run
	// of the requested length.
	ErrNoContiguousWindow = errors.New("no contiguous year window")

	// ErrEmptyPanel is returned when no parish is present in every source
	// for the chosen window.
	ErrEmptyPanel = errors.New("panel has no rows")

	// ErrInvalidRow is returned by Validate.
	ErrInvalidRow = errors.New("invalid panel row")
)

// Row is one merged (parish, year) observation.
type Row struct {
	Parish       string
	Year         int
	Income       float64
	CrimeTotal   float64
	SchoolScore  float64
	SchoolGrade  string
	HomeValue    float64
	MortgageRate float64
}

// Key returns the row's join key.
func (r Row) Key() source.Key { return source.Key{Parish: r.Parish, Year: r.Year} }

// Panel is the merged, window-restricted dataset.
type Panel struct {
	Rows []Row

	// Start and End bound the window, inclusive.
	Start int
	End   int

	// CommonYears is the full intersection the window was chosen from. It is
	// empty for panels read back from a file.
	CommonYears []int

	// HomeValues is the unrestricted annual home value history. Trainers use
	// it for targets beyond the window. Nil for panels read from a file.
	HomeValues []source.HomeValue
}

// Years returns the panel's years in ascending order.
func (p *Panel) Years() []int {
	years := make([]int, 0, p.End-p.Start+1)
	for y := p.Start; y <= p.End; y++ {
		years = append(years, y)
	}
	return years
}

// Parishes returns the distinct parishes in the panel, sorted.
func (p *Panel) Parishes() []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range p.Rows {
		if !seen[r.Parish] {
			seen[r.Parish] = true
			out = append(out, r.Parish)
		}
	}
	sort.Strings(out)
	return out
}

// RowsFor returns the rows of one parish in year order.
func (p *Panel) RowsFor(parish string) []Row {
	var out []Row
	for _, r := range p.Rows {
		if r.Parish == parish {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out
}

// FileName is the export file name for the panel's window.
func (p *Panel) FileName(prefix string) string {
	if prefix == "" {
		prefix = DefaultFilePrefix
	}
	return fmt.Sprintf("%s_%d_%d.csv", prefix, p.Start, p.End)
}

// Validate checks the panel invariants: rows sorted by (parish, year) with no
// duplicates, every value present and finite, and every year inside the window.
func (p *Panel) Validate() error {
	if len(p.Rows) == 0 {
		return ErrEmptyPanel
	}
	for i, r := range p.Rows {
		if err := r.validate(); err != nil {
			return fmt.Errorf("%w: row %d (%s %d): %v", ErrInvalidRow, i, r.Parish, r.Year, err)
		}
		if r.Year < p.Start || r.Year > p.End {
			return fmt.Errorf("%w: row %d (%s %d): year outside window %d-%d",
				ErrInvalidRow, i, r.Parish, r.Year, p.Start, p.End)
		}
		if i > 0 && !p.Rows[i-1].Key().Less(r.Key()) {
			return fmt.Errorf("%w: row %d (%s %d): rows not strictly ordered by parish and year",
				ErrInvalidRow, i, r.Parish, r.Year)
		}
	}
	return nil
}

func (r Row) validate() error {
	if r.Parish == "" {
		return errors.New("empty parish")
	}
	switch r.SchoolGrade {
	case "A", "B", "C", "D", "F":
	default:
		return fmt.Errorf("school_grade %q is not a letter grade", r.SchoolGrade)
	}
	for name, v := range map[string]float64{
		"income":        r.Income,
		"crime_total":   r.CrimeTotal,
		"school_score":  r.SchoolScore,
		"home_value":    r.HomeValue,
		"mortgage_rate": r.MortgageRate,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%s is not finite", name)
		}
	}
	return nil
}
