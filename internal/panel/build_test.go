package panel

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/parishpanel/internal/source"
	"github.com/leapstack-labs/parishpanel/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixtureSources(t *testing.T) source.Config {
	t.Helper()
	cfg := source.DefaultConfig(testutil.WriteDataDir(t))
	cfg.Aliases = testutil.FixtureAliases
	return cfg
}

func buildFixture(t *testing.T) *Panel {
	t.Helper()
	p, err := Build(context.Background(), fixtureSources(t), Options{Logger: testutil.NewTestLogger(t)})
	require.NoError(t, err)
	return p
}

func TestBuild_Window(t *testing.T) {
	p := buildFixture(t)

	assert.Equal(t, []int{2015, 2016, 2017, 2018, 2019, 2021, 2022, 2023}, p.CommonYears)
	assert.Equal(t, 2015, p.Start)
	assert.Equal(t, 2019, p.End)
	assert.Equal(t, []int{2015, 2016, 2017, 2018, 2019}, p.Years())
	assert.Len(t, p.Rows, 5*len(testutil.FixtureParishes))
}

func TestBuild_ExcludesPartialParish(t *testing.T) {
	p := buildFixture(t)

	want := make([]string, 0, len(testutil.FixtureParishes))
	for _, fp := range testutil.FixtureParishes {
		want = append(want, fp.Canonical)
	}
	assert.Equal(t, want, p.Parishes())
	assert.NotContains(t, p.Parishes(), testutil.PartialParish)
}

func TestBuild_OrleansScenario(t *testing.T) {
	p := buildFixture(t)
	orleans := testutil.FixtureParishes[2]

	rows := p.RowsFor("Orleans Parish")
	require.Len(t, rows, 5)

	for i, r := range rows {
		year := 2015 + i
		assert.Equal(t, year, r.Year)
		assert.Equal(t, float64(50000+1000*i), r.Income)
		assert.Equal(t, testutil.ExpectedCrimeTotal(orleans, year), r.CrimeTotal)
		assert.Equal(t, testutil.ExpectedSchoolScore(orleans, year), r.SchoolScore)
		assert.Equal(t, testutil.ExpectedSchoolLetter(orleans, year), r.SchoolGrade)
		assert.InDelta(t, testutil.ExpectedHomeValue(orleans, year), r.HomeValue, 1e-6)
		assert.InDelta(t, testutil.ExpectedMortgageRate(year), r.MortgageRate, 1e-9)
	}
}

func TestBuild_EveryRowInEverySource(t *testing.T) {
	cfg := fixtureSources(t)
	in, err := Load(context.Background(), cfg)
	require.NoError(t, err)

	p, err := Assemble(in, Options{})
	require.NoError(t, err)

	income, err := source.Index(source.NameIncome, in.Income)
	require.NoError(t, err)
	school, err := source.Index(source.NameSchool, in.School)
	require.NoError(t, err)
	crime, err := source.Index(source.NameCrime, in.Crime)
	require.NoError(t, err)
	home, err := source.Index(source.NameHome, in.Home)
	require.NoError(t, err)
	rateYears := Years(in.Mortgage, func(m source.MortgageRate) int { return m.Year })

	for _, r := range p.Rows {
		k := r.Key()
		assert.Contains(t, income, k)
		assert.Contains(t, school, k)
		assert.Contains(t, crime, k)
		assert.Contains(t, home, k)
		assert.Contains(t, rateYears, r.Year)
	}
	require.NoError(t, p.Validate())
}

func TestBuild_KeepsFullHomeValueHistory(t *testing.T) {
	p := buildFixture(t)

	years := Years(p.HomeValues, func(h source.HomeValue) int { return h.Year })
	assert.Equal(t, testutil.HomeYears, years)
}

func TestBuild_Deterministic(t *testing.T) {
	cfg := fixtureSources(t)
	out := t.TempDir()

	var files [][]byte
	for i := 0; i < 2; i++ {
		p, err := Build(context.Background(), cfg, Options{})
		require.NoError(t, err)

		path, err := p.Export(out, "")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(out, "five_year_panel_2015_2019.csv"), path)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		files = append(files, data)
	}
	assert.True(t, bytes.Equal(files[0], files[1]), "exports differ between runs")
}

func TestBuild_MissingSource(t *testing.T) {
	cfg := fixtureSources(t)
	require.NoError(t, os.Remove(filepath.Join(cfg.DataDir, source.DefaultCrimeFile)))

	_, err := Build(context.Background(), cfg, Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, source.ErrMissingSource))
	assert.Contains(t, err.Error(), "failed to load crime")
}

func TestBuild_NoContiguousWindow(t *testing.T) {
	_, err := Build(context.Background(), fixtureSources(t), Options{Window: 6})
	assert.ErrorIs(t, err, ErrNoContiguousWindow)
}

func TestBuild_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Build(ctx, fixtureSources(t), Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAssemble_NoCommonYears(t *testing.T) {
	in := orleansInputs()
	in.Mortgage = []source.MortgageRate{{Year: 1999, Average: 7}}

	_, err := Assemble(in, Options{})
	assert.ErrorIs(t, err, ErrNoCommonYears)
}

func TestAssemble_EmptySource(t *testing.T) {
	in := orleansInputs()
	in.Crime = nil

	_, err := Assemble(in, Options{})
	assert.ErrorIs(t, err, source.ErrMissingSource)
}

func TestAssemble_Orleans(t *testing.T) {
	p, err := Assemble(orleansInputs(), Options{})
	require.NoError(t, err)

	require.Len(t, p.Rows, 5)
	for i, r := range p.Rows {
		assert.Equal(t, Row{
			Parish:       "Orleans Parish",
			Year:         2015 + i,
			Income:       float64(50000 + 1000*i),
			CrimeTotal:   float64(100 + i),
			SchoolScore:  80,
			SchoolGrade:  "B",
			HomeValue:    float64(200000 + 5000*i),
			MortgageRate: 4,
		}, r)
	}
}

func TestAssemble_DuplicateKey(t *testing.T) {
	in := orleansInputs()
	in.Income = append(in.Income, in.Income[0])

	_, err := Assemble(in, Options{})
	assert.ErrorIs(t, err, source.ErrDuplicateKey)
}

// orleansInputs has one parish with full coverage for 2015-2019.
func orleansInputs() *Inputs {
	in := &Inputs{}
	for i, year := range []int{2015, 2016, 2017, 2018, 2019} {
		in.Income = append(in.Income, source.Income{Parish: "Orleans Parish", Year: year, MedianIncome: float64(50000 + 1000*i)})
		in.School = append(in.School, source.SchoolRating{Parish: "Orleans Parish", Year: year, DPSScore: 80, DPSLetter: "B"})
		in.Crime = append(in.Crime, source.CrimeTotal{Parish: "Orleans Parish", Year: year, Total: float64(100 + i)})
		in.Home = append(in.Home, source.HomeValue{Parish: "Orleans Parish", Year: year, Average: float64(200000 + 5000*i)})
		in.Mortgage = append(in.Mortgage, source.MortgageRate{Year: year, Average: 4})
	}
	return in
}
