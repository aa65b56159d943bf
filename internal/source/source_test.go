package source

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/parishpanel/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixtureConfig(t *testing.T) Config {
	t.Helper()
	cfg := DefaultConfig(testutil.WriteDataDir(t))
	cfg.Aliases = testutil.FixtureAliases
	cfg.Logger = testutil.NewTestLogger(t)
	return cfg
}

func years[T any](obs []T, year func(T) int) []int {
	seen := map[int]bool{}
	var out []int
	for _, o := range obs {
		if y := year(o); !seen[y] {
			seen[y] = true
			out = append(out, y)
		}
	}
	return out
}

func TestLoadIncome(t *testing.T) {
	cfg := fixtureConfig(t)

	got, err := LoadIncome(cfg)
	require.NoError(t, err)

	// three full parishes plus the partial one, label rows dropped
	assert.Len(t, got, len(testutil.IncomeYears)*(len(testutil.FixtureParishes)+1))
	assert.ElementsMatch(t, testutil.IncomeYears, years(got, func(i Income) int { return i.Year }))

	idx, err := Index(NameIncome, got)
	require.NoError(t, err)

	orleans := testutil.FixtureParishes[2]
	for year, want := range map[int]float64{2015: 50000, 2016: 51000, 2017: 52000, 2018: 53000, 2019: 54000} {
		rec, ok := idx[Key{"Orleans Parish", year}]
		require.True(t, ok, "missing Orleans %d", year)
		assert.Equal(t, want, rec.MedianIncome)
		assert.Equal(t, testutil.ExpectedIncome(orleans, year), rec.MedianIncome)
	}

	cameron, ok := idx[Key{testutil.PartialParish, 2015}]
	require.True(t, ok)
	assert.Equal(t, 61250.0, cameron.MedianIncome)
}

func TestLoadSchoolRatings(t *testing.T) {
	cfg := fixtureConfig(t)

	got, err := LoadSchoolRatings(cfg)
	require.NoError(t, err)

	assert.ElementsMatch(t, testutil.SchoolYears, years(got, func(s SchoolRating) int { return s.Year }))
	assert.NotContains(t, years(got, func(s SchoolRating) int { return s.Year }), 2020)

	idx, err := Index(NameSchool, got)
	require.NoError(t, err)

	for _, p := range testutil.FixtureParishes {
		for _, year := range []int{2015, 2016, 2019} {
			rec, ok := idx[Key{p.Canonical, year}]
			require.True(t, ok, "missing %s %d", p.Canonical, year)
			assert.Equal(t, testutil.ExpectedSchoolScore(p, year), rec.DPSScore)
			assert.Equal(t, testutil.ExpectedSchoolLetter(p, year), rec.DPSLetter, "%s %d", p.Canonical, year)
		}
	}
}

func TestLoadSchoolRatings_WithoutAliasDropsDeSoto(t *testing.T) {
	cfg := fixtureConfig(t)
	cfg.Aliases = nil

	got, err := LoadSchoolRatings(cfg)
	require.NoError(t, err)

	for _, rec := range got {
		assert.NotEqual(t, "De Soto Parish", rec.Parish)
	}
}

func TestLoadCrime(t *testing.T) {
	cfg := fixtureConfig(t)

	got, err := LoadCrime(cfg)
	require.NoError(t, err)
	assert.Len(t, got, len(testutil.CrimeYears)*len(testutil.FixtureParishes))

	idx, err := Index(NameCrime, got)
	require.NoError(t, err)
	for _, p := range testutil.FixtureParishes {
		rec, ok := idx[Key{p.Canonical, 2017}]
		require.True(t, ok, "missing %s", p.Canonical)
		assert.Equal(t, testutil.ExpectedCrimeTotal(p, 2017), rec.Total)
	}
}

func TestLoadHomeValues(t *testing.T) {
	cfg := fixtureConfig(t)

	got, err := LoadHomeValues(cfg)
	require.NoError(t, err)
	assert.ElementsMatch(t, testutil.HomeYears, years(got, func(h HomeValue) int { return h.Year }))

	idx, err := Index(NameHome, got)
	require.NoError(t, err)
	for _, p := range testutil.FixtureParishes {
		for _, year := range []int{2010, 2018, 2025} {
			rec, ok := idx[Key{p.Canonical, year}]
			require.True(t, ok)
			assert.InDelta(t, testutil.ExpectedHomeValue(p, year), rec.Average, 1e-6)
		}
	}
}

func TestLoadMortgageRates(t *testing.T) {
	cfg := fixtureConfig(t)

	got, err := LoadMortgageRates(cfg)
	require.NoError(t, err)
	require.Len(t, got, len(testutil.MortgageYears))

	for i, rec := range got {
		assert.Equal(t, testutil.MortgageYears[i], rec.Year)
		assert.InDelta(t, testutil.ExpectedMortgageRate(rec.Year), rec.Average, 1e-9)
	}
}

func TestLoaders_MissingSource(t *testing.T) {
	tests := []struct {
		name   string
		remove string
		load   func(Config) error
	}{
		{
			name:   "income directory",
			remove: DefaultIncomeDir,
			load:   func(c Config) error { _, err := LoadIncome(c); return err },
		},
		{
			name:   "school directory",
			remove: DefaultSchoolDir,
			load:   func(c Config) error { _, err := LoadSchoolRatings(c); return err },
		},
		{
			name:   "crime file",
			remove: DefaultCrimeFile,
			load:   func(c Config) error { _, err := LoadCrime(c); return err },
		},
		{
			name:   "home values file",
			remove: DefaultHomeValuesFile,
			load:   func(c Config) error { _, err := LoadHomeValues(c); return err },
		},
		{
			name:   "mortgage workbook",
			remove: DefaultMortgageFile,
			load:   func(c Config) error { _, err := LoadMortgageRates(c); return err },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := fixtureConfig(t)
			require.NoError(t, os.RemoveAll(filepath.Join(cfg.DataDir, tt.remove)))

			err := tt.load(cfg)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMissingSource), "got %v", err)
		})
	}
}

func TestLoadIncome_EmptyDirectory(t *testing.T) {
	cfg := fixtureConfig(t)
	dir := filepath.Join(cfg.DataDir, DefaultIncomeDir)
	require.NoError(t, os.RemoveAll(dir))
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.csv"), []byte("a,b\n"), 0o644))

	_, err := LoadIncome(cfg)
	assert.ErrorIs(t, err, ErrMissingSource)
}

func TestLoadIncome_MissingColumn(t *testing.T) {
	cfg := fixtureConfig(t)
	path := filepath.Join(cfg.DataDir, DefaultIncomeDir, "2015.csv")
	require.NoError(t, os.WriteFile(path, []byte("GEO_ID,NAME\nx,Orleans Parish, Louisiana\n"), 0o644))

	_, err := LoadIncome(cfg)
	assert.ErrorIs(t, err, ErrMissingColumn)
}

func TestLoadCrime_BadPeriodHeader(t *testing.T) {
	cfg := fixtureConfig(t)
	path := filepath.Join(cfg.DataDir, DefaultCrimeFile)
	require.NoError(t, os.WriteFile(path, []byte("Parish,Total\nORLEANS,12\n"), 0o644))

	_, err := LoadCrime(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot parse year")
}

func TestIndex_Duplicate(t *testing.T) {
	obs := []Income{
		{Parish: "Orleans Parish", Year: 2015, MedianIncome: 1},
		{Parish: "Orleans Parish", Year: 2015, MedianIncome: 2},
	}

	_, err := Index(NameIncome, obs)
	assert.ErrorIs(t, err, ErrDuplicateKey)
}

func TestLoadMonthly_DuplicateParish(t *testing.T) {
	tests := []struct {
		name string
		file string
		body string
		load func(Config) error
	}{
		{
			name: "crime",
			file: DefaultCrimeFile,
			body: "Parish,Jan-15,Feb-15\nDE SOTO,1,2\nORLEANS,3,4\nDe Soto Parish,5,6\n",
			load: func(cfg Config) error { _, err := LoadCrime(cfg); return err },
		},
		{
			name: "home values",
			file: DefaultHomeValuesFile,
			body: "RegionName,SizeRank,2015-01-31,2015-02-28\nDe Soto Parish,1,100,110\nDE SOTO,2,120,130\n",
			load: func(cfg Config) error { _, err := LoadHomeValues(cfg); return err },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := fixtureConfig(t)
			require.NoError(t, os.WriteFile(filepath.Join(cfg.DataDir, tt.file), []byte(tt.body), 0o644))

			err := tt.load(cfg)
			require.ErrorIs(t, err, ErrDuplicateKey)
			assert.Contains(t, err.Error(), "De Soto Parish")
		})
	}
}
