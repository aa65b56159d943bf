package panel

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/leapstack-labs/parishpanel/internal/source"
)

// Options controls window selection.
type Options struct {
	// Window is the number of consecutive years to keep. Zero means DefaultWindow.
	Window int

	// Logger is optional; nil discards.
	Logger *slog.Logger
}

func (o Options) window() int {
	if o.Window <= 0 {
		return DefaultWindow
	}
	return o.Window
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return o.Logger
}

// Inputs holds the cleaned observations of every source.
type Inputs struct {
	Income   []source.Income
	School   []source.SchoolRating
	Crime    []source.CrimeTotal
	Home     []source.HomeValue
	Mortgage []source.MortgageRate
}

// Load reads all five sources. The first failing source aborts the load.
func Load(ctx context.Context, cfg source.Config) (*Inputs, error) {
	in := &Inputs{}
	steps := []struct {
		name string
		load func() error
	}{
		{source.NameIncome, func() (err error) { in.Income, err = source.LoadIncome(cfg); return }},
		{source.NameSchool, func() (err error) { in.School, err = source.LoadSchoolRatings(cfg); return }},
		{source.NameCrime, func() (err error) { in.Crime, err = source.LoadCrime(cfg); return }},
		{source.NameHome, func() (err error) { in.Home, err = source.LoadHomeValues(cfg); return }},
		{source.NameMortgage, func() (err error) { in.Mortgage, err = source.LoadMortgageRates(cfg); return }},
	}

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := step.load(); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", step.name, err)
		}
	}
	return in, nil
}

// Build loads every source and assembles the panel.
func Build(ctx context.Context, cfg source.Config, opts Options) (*Panel, error) {
	if cfg.Logger == nil {
		cfg.Logger = opts.Logger
	}
	in, err := Load(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return Assemble(in, opts)
}

// Assemble aligns the inputs on the most recent common window and inner-joins
// them: parish sources on (parish, year), mortgage rates on year. Parish-years
// missing from any source are dropped and logged.
func Assemble(in *Inputs, opts Options) (*Panel, error) {
	log := opts.logger()

	yearSets := map[string][]int{
		source.NameIncome:   Years(in.Income, func(o source.Income) int { return o.Year }),
		source.NameSchool:   Years(in.School, func(o source.SchoolRating) int { return o.Year }),
		source.NameCrime:    Years(in.Crime, func(o source.CrimeTotal) int { return o.Year }),
		source.NameHome:     Years(in.Home, func(o source.HomeValue) int { return o.Year }),
		source.NameMortgage: Years(in.Mortgage, func(o source.MortgageRate) int { return o.Year }),
	}
	for name, years := range yearSets {
		if len(years) == 0 {
			return nil, fmt.Errorf("%w: %s has no observations", source.ErrMissingSource, name)
		}
	}

	common, err := CommonYears(
		yearSets[source.NameIncome],
		yearSets[source.NameSchool],
		yearSets[source.NameCrime],
		yearSets[source.NameHome],
		yearSets[source.NameMortgage],
	)
	if err != nil {
		return nil, err
	}

	start, end, err := ChooseWindow(common, opts.window())
	if err != nil {
		return nil, err
	}
	log.Info("aligned sources", "common_years", common, "window_start", start, "window_end", end)

	income, err := source.Index(source.NameIncome, in.Income)
	if err != nil {
		return nil, err
	}
	school, err := source.Index(source.NameSchool, in.School)
	if err != nil {
		return nil, err
	}
	crime, err := source.Index(source.NameCrime, in.Crime)
	if err != nil {
		return nil, err
	}
	home, err := source.Index(source.NameHome, in.Home)
	if err != nil {
		return nil, err
	}
	rates := make(map[int]float64, len(in.Mortgage))
	for _, m := range in.Mortgage {
		if _, dup := rates[m.Year]; dup {
			return nil, fmt.Errorf("%w in %s: %d", source.ErrDuplicateKey, source.NameMortgage, m.Year)
		}
		rates[m.Year] = m.Average
	}

	// Every parish-year any parish source reports inside the window.
	candidates := make(map[source.Key]bool)
	for k := range income {
		candidates[k] = true
	}
	for k := range school {
		candidates[k] = true
	}
	for k := range crime {
		candidates[k] = true
	}
	for k := range home {
		candidates[k] = true
	}

	keys := make([]source.Key, 0, len(candidates))
	for k := range candidates {
		if k.Year >= start && k.Year <= end {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })

	rows := make([]Row, 0, len(keys))
	dropped := 0
	for _, k := range keys {
		inc, okIncome := income[k]
		sch, okSchool := school[k]
		cr, okCrime := crime[k]
		hv, okHome := home[k]
		rate, okRate := rates[k.Year]
		if !okIncome || !okSchool || !okCrime || !okHome || !okRate {
			dropped++
			log.Debug("dropped incomplete parish-year", "parish", k.Parish, "year", k.Year,
				"missing", missingSources(okIncome, okSchool, okCrime, okHome, okRate))
			continue
		}
		rows = append(rows, Row{
			Parish:       k.Parish,
			Year:         k.Year,
			Income:       inc.MedianIncome,
			CrimeTotal:   cr.Total,
			SchoolScore:  sch.DPSScore,
			SchoolGrade:  sch.DPSLetter,
			HomeValue:    hv.Average,
			MortgageRate: rate,
		})
	}

	history := make([]source.HomeValue, len(in.Home))
	copy(history, in.Home)
	sort.Slice(history, func(i, j int) bool { return history[i].Key().Less(history[j].Key()) })

	p := &Panel{
		Rows:        rows,
		Start:       start,
		End:         end,
		CommonYears: common,
		HomeValues:  history,
	}
	if err := p.Validate(); err != nil {
		if len(rows) == 0 {
			return nil, fmt.Errorf("%w for %d-%d: no parish is present in every source", ErrEmptyPanel, start, end)
		}
		return nil, err
	}

	log.Info("built panel", "rows", len(rows), "parishes", len(p.Parishes()), "dropped", dropped)
	return p, nil
}

func missingSources(income, school, crime, home, rate bool) []string {
	var out []string
	for _, s := range []struct {
		name string
		ok   bool
	}{
		{source.NameIncome, income},
		{source.NameSchool, school},
		{source.NameCrime, crime},
		{source.NameHome, home},
		{source.NameMortgage, rate},
	} {
		if !s.ok {
			out = append(out, s.name)
		}
	}
	return out
}
