package testutil

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
)

// FixtureParish describes one parish in the generated raw data, with the
// spelling each source uses for it.
type FixtureParish struct {
	Canonical  string
	IncomeName string
	SchoolName string
	CrimeName  string
	HomeName   string
	Index      int
}

// FixtureParishes are present in every source.
var FixtureParishes = []FixtureParish{
	{Canonical: "Caddo Parish", IncomeName: "Caddo Parish, Louisiana", SchoolName: "Caddo Parish", CrimeName: "CADDO", HomeName: "Caddo Parish", Index: 0},
	{Canonical: "De Soto Parish", IncomeName: "De Soto Parish, Louisiana", SchoolName: "DeSoto", CrimeName: "DE SOTO", HomeName: "De Soto Parish", Index: 1},
	{Canonical: "Orleans Parish", IncomeName: "Orleans Parish, Louisiana", SchoolName: "Orleans Parish", CrimeName: "ORLEANS", HomeName: "Orleans Parish", Index: 2},
}

// PartialParish only appears in the income and home value sources and must
// never reach the panel.
const PartialParish = "Cameron Parish"

// FixtureAliases reconciles the school source's "DeSoto" spelling.
var FixtureAliases = map[string]string{"DeSoto": "De Soto"}

// Year coverage per source. School grades were not published for 2020, so
// the shared years are 2015-2019 and 2021-2023.
var (
	IncomeYears   = yearRange(2014, 2023)
	SchoolYears   = append(yearRange(2014, 2019), yearRange(2021, 2023)...)
	CrimeYears    = yearRange(2015, 2023)
	HomeYears     = yearRange(2010, 2025)
	MortgageYears = yearRange(2010, 2025)
)

// ExpectedIncome is the generated median income; Orleans earns 50000 in 2015
// rising by 1000 a year.
func ExpectedIncome(p FixtureParish, year int) float64 {
	return float64(40000+5000*p.Index) + float64(1000*(year-2015))
}

// ExpectedSchoolScore is the generated district performance score.
func ExpectedSchoolScore(p FixtureParish, year int) float64 {
	return float64(70+8*p.Index) + float64(year-2015)
}

// ExpectedSchoolLetter is the published letter grade. Workbooks before 2016
// carry no letter column, so those grades are derived from the score.
func ExpectedSchoolLetter(p FixtureParish, year int) string {
	if year < 2016 {
		return scoreLetter(ExpectedSchoolScore(p, year))
	}
	return []string{"C", "B", "A"}[p.Index]
}

func scoreLetter(score float64) string {
	switch {
	case score >= 90:
		return "A"
	case score >= 75:
		return "B"
	case score >= 60:
		return "C"
	case score >= 50:
		return "D"
	default:
		return "F"
	}
}

// ExpectedCrimeTotal is the sum of twelve monthly counts.
func ExpectedCrimeTotal(p FixtureParish, year int) float64 {
	return 12 * crimeMonthly(p, year)
}

func crimeMonthly(p FixtureParish, year int) float64 {
	return float64(10*(p.Index+1) + (year - 2015))
}

// ExpectedHomeValue is the mean of twelve monthly values.
func ExpectedHomeValue(p FixtureParish, year int) float64 {
	return homeBase(p, year) + 6.5
}

func homeBase(p FixtureParish, year int) float64 {
	return float64(150000+10000*p.Index) + float64(2000*(year-2010))
}

// ExpectedMortgageRate is the mean of twelve monthly rates.
func ExpectedMortgageRate(year int) float64 {
	return mortgageBase(year) + 0.065
}

func mortgageBase(year int) float64 {
	return 3.5 + 0.1*float64(year-2010)
}

var monthAbbr = []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// WriteDataDir writes a complete raw data directory using the default file
// layout and returns its path.
func WriteDataDir(t testing.TB) string {
	t.Helper()
	dir := t.TempDir()

	writeIncome(t, filepath.Join(dir, "Median Household Income"))
	writeSchool(t, filepath.Join(dir, "School Data Year"))
	writeCrime(t, filepath.Join(dir, "Crime Data Month Year.csv"))
	writeHomeValues(t, filepath.Join(dir, "Home Values Month Year.csv"))
	writeMortgage(t, filepath.Join(dir, "Home Mortgage Rates.xlsx"))

	return dir
}

func writeIncome(t testing.TB, dir string) {
	t.Helper()
	mkdir(t, dir)
	for _, year := range IncomeYears {
		rows := [][]string{
			{"GEO_ID", "NAME", "S1903_C01_001E", "S1903_C02_001E"},
			{"Geography", "Geographic Area Name", "Estimate!!Number!!HOUSEHOLD INCOME BY RACE", "Estimate!!Median income (dollars)"},
		}
		for _, p := range FixtureParishes {
			rows = append(rows, []string{
				fmt.Sprintf("0500000US22%03d", p.Index),
				p.IncomeName,
				"1000",
				fmt.Sprintf("%.0f", ExpectedIncome(p, year)),
			})
		}
		rows = append(rows, []string{"0500000US22023", PartialParish + ", Louisiana", "500", "61,250"})
		writeCSV(t, filepath.Join(dir, fmt.Sprintf("%d.csv", year)), rows)
	}
}

func writeSchool(t testing.TB, dir string) {
	t.Helper()
	mkdir(t, dir)
	for _, year := range SchoolYears {
		header := []any{"School System", "DPS"}
		if year < 2018 {
			header[0] = "District"
		}
		if year >= 2016 {
			header = append(header, fmt.Sprintf("%d District Letter Grade", year))
		}

		rows := [][]any{header}
		for _, p := range FixtureParishes {
			row := []any{p.SchoolName, ExpectedSchoolScore(p, year)}
			if year >= 2016 {
				row = append(row, ExpectedSchoolLetter(p, year))
			}
			rows = append(rows, row)
		}
		rows = append(rows, []any{"Louisiana Statewide", "NR"})
		writeXLSX(t, filepath.Join(dir, fmt.Sprintf("%d.xlsx", year)), rows)
	}
}

func writeCrime(t testing.TB, path string) {
	t.Helper()
	header := []string{"Parish"}
	for _, year := range CrimeYears {
		for _, m := range monthAbbr {
			header = append(header, fmt.Sprintf("%s-%02d", m, year%100))
		}
	}

	rows := [][]string{header}
	for _, p := range FixtureParishes {
		row := []string{p.CrimeName}
		for _, year := range CrimeYears {
			for range monthAbbr {
				row = append(row, fmt.Sprintf("%.0f", crimeMonthly(p, year)))
			}
		}
		rows = append(rows, row)
	}
	writeCSV(t, path, rows)
}

func writeHomeValues(t testing.TB, path string) {
	t.Helper()
	header := []string{"RegionID", "SizeRank", "RegionName", "StateName"}
	for _, year := range HomeYears {
		for m := 1; m <= 12; m++ {
			last := time.Date(year, time.Month(m)+1, 0, 0, 0, 0, 0, time.UTC)
			header = append(header, last.Format("2006-01-02"))
		}
	}

	rows := [][]string{header}
	parishes := append([]FixtureParish{}, FixtureParishes...)
	parishes = append(parishes, FixtureParish{HomeName: PartialParish, Index: 9})
	for i, p := range parishes {
		row := []string{fmt.Sprintf("%d", 3000+i), fmt.Sprintf("%d", i), p.HomeName, "LA"}
		for _, year := range HomeYears {
			for m := 1; m <= 12; m++ {
				row = append(row, fmt.Sprintf("%.1f", homeBase(p, year)+float64(m)))
			}
		}
		rows = append(rows, row)
	}
	writeCSV(t, path, rows)
}

func writeMortgage(t testing.TB, path string) {
	t.Helper()
	rows := [][]any{{"observation_date", "MORTGAGE30US"}}
	for _, year := range MortgageYears {
		for m := 1; m <= 12; m++ {
			rows = append(rows, []any{
				time.Date(year, time.Month(m), 1, 0, 0, 0, 0, time.UTC),
				mortgageBase(year) + 0.01*float64(m),
			})
		}
	}
	writeXLSX(t, path, rows)
}

func writeCSV(t testing.TB, path string, rows [][]string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create %s: %v", path, err)
	}
	defer func() { _ = f.Close() }()

	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

func writeXLSX(t testing.TB, path string, rows [][]any) {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	const sheet = "Sheet1"
	for r, row := range rows {
		for c, v := range row {
			name, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				t.Fatalf("bad cell coordinates: %v", err)
			}
			if err := f.SetCellValue(sheet, name, v); err != nil {
				t.Fatalf("failed to set %s: %v", name, err)
			}
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("failed to save %s: %v", path, err)
	}
}

func mkdir(t testing.TB, dir string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("failed to create directory %s: %v", dir, err)
	}
}

func yearRange(from, to int) []int {
	out := make([]int, 0, to-from+1)
	for y := from; y <= to; y++ {
		out = append(out, y)
	}
	return out
}
