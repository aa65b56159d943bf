// Package dataset turns a panel into model inputs: forward home value targets,
// a tabular design matrix for the tree regressor, and fixed-length per-parish
// sequences for the recurrent model.
package dataset

import (
	"errors"
	"fmt"

	"github.com/leapstack-labs/parishpanel/internal/panel"
	"github.com/leapstack-labs/parishpanel/internal/source"
	"gonum.org/v1/gonum/mat"
)

// ErrNoSamples is returned when no row has a target at the requested horizon.
var ErrNoSamples = errors.New("no usable samples")

// Targets looks up annual home values by parish and year.
type Targets struct {
	values map[source.Key]float64
	last   int
}

// NewTargets indexes the panel's full home value history when it has one,
// otherwise the home values of its rows.
func NewTargets(p *panel.Panel) *Targets {
	if len(p.HomeValues) > 0 {
		return HistoryTargets(p.HomeValues)
	}
	t := &Targets{values: make(map[source.Key]float64, len(p.Rows))}
	for _, r := range p.Rows {
		t.values[r.Key()] = r.HomeValue
		t.last = max(t.last, r.Year)
	}
	return t
}

// HistoryTargets indexes a home value history loaded from the raw source,
// for panels read back from a file.
func HistoryTargets(history []source.HomeValue) *Targets {
	t := &Targets{values: make(map[source.Key]float64, len(history))}
	for _, h := range history {
		t.values[h.Key()] = h.Average
		t.last = max(t.last, h.Year)
	}
	return t
}

// Lookup returns the home value of parish in year.
func (t *Targets) Lookup(parish string, year int) (float64, bool) {
	v, ok := t.values[source.Key{Parish: parish, Year: year}]
	return v, ok
}

// Ahead returns the home value horizon years after year.
func (t *Targets) Ahead(parish string, year, horizon int) (float64, bool) {
	return t.Lookup(parish, year+horizon)
}

// LastYear is the latest year with a known home value.
func (t *Targets) LastYear() int { return t.last }

// GradeOrdinal maps a letter grade to A=4 through F=0.
func GradeOrdinal(letter string) float64 {
	switch letter {
	case "A":
		return 4
	case "B":
		return 3
	case "C":
		return 2
	case "D":
		return 1
	default:
		return 0
	}
}

// Numeric features of a panel row, shared by both designs.
var rowFeatures = []string{
	"income",
	"crime_total",
	"school_score",
	"school_grade",
	"home_value",
	"mortgage_rate",
}

func rowValues(r panel.Row) []float64 {
	return []float64{
		r.Income,
		r.CrimeTotal,
		r.SchoolScore,
		GradeOrdinal(r.SchoolGrade),
		r.HomeValue,
		r.MortgageRate,
	}
}

func noSamples(p *panel.Panel, t *Targets, horizon int) error {
	return fmt.Errorf("%w: no panel year in %d-%d has a home value %d years later (history ends %d)",
		ErrNoSamples, p.Start, p.End, horizon, t.LastYear())
}

// Tabular is the regressor's design matrix.
type Tabular struct {
	X        *mat.Dense
	Y        []float64
	Features []string
	Keys     []source.Key
}

// TabularOptions configures BuildTabular.
type TabularOptions struct {
	Horizon      int
	EncodeParish bool
}

// BuildTabular makes one sample per panel row that has a target Horizon
// years later. Features are the year, the row's indicators and, with
// EncodeParish, one indicator column per parish.
func BuildTabular(p *panel.Panel, t *Targets, opts TabularOptions) (*Tabular, error) {
	if opts.Horizon <= 0 {
		return nil, fmt.Errorf("horizon must be positive, got %d", opts.Horizon)
	}

	features := append([]string{"year"}, rowFeatures...)
	var parishes []string
	parishCol := map[string]int{}
	if opts.EncodeParish {
		parishes = p.Parishes()
		for i, name := range parishes {
			parishCol[name] = len(features) + i
		}
		for _, name := range parishes {
			features = append(features, "parish="+name)
		}
	}

	var data []float64
	var y []float64
	var keys []source.Key
	for _, r := range p.Rows {
		target, ok := t.Ahead(r.Parish, r.Year, opts.Horizon)
		if !ok {
			continue
		}
		row := make([]float64, len(features))
		row[0] = float64(r.Year)
		copy(row[1:], rowValues(r))
		if opts.EncodeParish {
			row[parishCol[r.Parish]] = 1
		}
		data = append(data, row...)
		y = append(y, target)
		keys = append(keys, r.Key())
	}
	if len(y) == 0 {
		return nil, noSamples(p, t, opts.Horizon)
	}

	return &Tabular{
		X:        mat.NewDense(len(y), len(features), data),
		Y:        y,
		Features: features,
		Keys:     keys,
	}, nil
}

// Rows returns the design rows for the given sample indices.
func (d *Tabular) Rows(idx []int) (*mat.Dense, []float64) {
	_, c := d.X.Dims()
	x := mat.NewDense(len(idx), c, nil)
	y := make([]float64, len(idx))
	for i, j := range idx {
		x.SetRow(i, d.X.RawRowView(j))
		y[i] = d.Y[j]
	}
	return x, y
}

// Sequences holds fixed-length per-parish windows. X is indexed
// [sample][step][feature].
type Sequences struct {
	X        [][][]float64
	Y        []float64
	Features []string

	// Keys identify each sample by parish and the window's last year.
	Keys []source.Key
}

// SequenceOptions configures BuildSequences.
type SequenceOptions struct {
	Window  int
	Horizon int
}

// BuildSequences takes every run of Window consecutive years of each parish
// whose last year has a target Horizon years later.
func BuildSequences(p *panel.Panel, t *Targets, opts SequenceOptions) (*Sequences, error) {
	if opts.Window <= 0 {
		return nil, fmt.Errorf("sequence window must be positive, got %d", opts.Window)
	}
	if opts.Horizon <= 0 {
		return nil, fmt.Errorf("horizon must be positive, got %d", opts.Horizon)
	}

	seqs := &Sequences{Features: append([]string(nil), rowFeatures...)}
	for _, parish := range p.Parishes() {
		rows := p.RowsFor(parish)
		for end := opts.Window - 1; end < len(rows); end++ {
			start := end - opts.Window + 1
			if rows[end].Year-rows[start].Year != opts.Window-1 {
				continue
			}
			target, ok := t.Ahead(parish, rows[end].Year, opts.Horizon)
			if !ok {
				continue
			}
			steps := make([][]float64, 0, opts.Window)
			for _, r := range rows[start : end+1] {
				steps = append(steps, rowValues(r))
			}
			seqs.X = append(seqs.X, steps)
			seqs.Y = append(seqs.Y, target)
			seqs.Keys = append(seqs.Keys, rows[end].Key())
		}
	}

	if len(seqs.Y) == 0 {
		if opts.Window > p.End-p.Start+1 {
			return nil, fmt.Errorf("%w: window of %d years exceeds the %d-%d panel", ErrNoSamples, opts.Window, p.Start, p.End)
		}
		return nil, noSamples(p, t, opts.Horizon)
	}
	return seqs, nil
}

// Subset returns the samples at idx.
func (s *Sequences) Subset(idx []int) ([][][]float64, []float64) {
	x := make([][][]float64, len(idx))
	y := make([]float64, len(idx))
	for i, j := range idx {
		x[i] = s.X[j]
		y[i] = s.Y[j]
	}
	return x, y
}
