// Package source reads the raw indicator files that feed the parish panel.
//
// Every reader returns annual observations keyed by a canonical parish name
// (see CanonicalParish) so that the panel package can join them without any
// further key reconciliation. Readers never guess: a missing file, a missing
// column or an unparsable period label is returned as an error.
package source

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Default file locations relative to the data directory.
const (
	DefaultIncomeDir      = "Median Household Income"
	DefaultSchoolDir      = "School Data Year"
	DefaultCrimeFile      = "Crime Data Month Year.csv"
	DefaultHomeValuesFile = "Home Values Month Year.csv"
	DefaultMortgageFile   = "Home Mortgage Rates.xlsx"
)

// Source names used in logs and errors.
const (
	NameIncome   = "income"
	NameSchool   = "school"
	NameCrime    = "crime"
	NameHome     = "home_values"
	NameMortgage = "mortgage_rates"
)

var (
	// ErrMissingSource is returned when a source file or directory does not exist.
	ErrMissingSource = errors.New("source not found")

	// ErrMissingColumn is returned when a required column is absent from a source.
	ErrMissingColumn = errors.New("required column missing")

	// ErrDuplicateKey is returned when a source has two observations for the same key.
	ErrDuplicateKey = errors.New("duplicate observation")
)

// Config locates the raw files. File and directory names are resolved
// against DataDir unless they are absolute.
type Config struct {
	DataDir        string
	IncomeDir      string
	SchoolDir      string
	CrimeFile      string
	HomeValuesFile string
	MortgageFile   string

	// Aliases maps a canonical parish name to the name it should be reported as.
	Aliases map[string]string

	// Logger is optional; nil discards.
	Logger *slog.Logger
}

// DefaultConfig returns a Config using the standard file layout under dataDir.
func DefaultConfig(dataDir string) Config {
	return Config{
		DataDir:        dataDir,
		IncomeDir:      DefaultIncomeDir,
		SchoolDir:      DefaultSchoolDir,
		CrimeFile:      DefaultCrimeFile,
		HomeValuesFile: DefaultHomeValuesFile,
		MortgageFile:   DefaultMortgageFile,
	}
}

func (c Config) path(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.DataDir, name)
}

func (c Config) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.Logger
}

func (c Config) parish(name string) string {
	return CanonicalParishWithAliases(name, c.Aliases)
}

// Income is the median household income of a parish for one year.
type Income struct {
	Parish       string
	Year         int
	MedianIncome float64
}

// SchoolRating is the district performance score of a parish school system.
type SchoolRating struct {
	Parish    string
	Year      int
	DPSScore  float64
	DPSLetter string
}

// CrimeTotal is the sum of monthly crime counts for a parish and year.
type CrimeTotal struct {
	Parish string
	Year   int
	Total  float64
}

// HomeValue is the mean of monthly home values for a parish and year.
type HomeValue struct {
	Parish  string
	Year    int
	Average float64
}

// MortgageRate is the national mean 30-year mortgage rate for a year.
type MortgageRate struct {
	Year    int
	Average float64
}

// Key identifies a parish-year observation.
type Key struct {
	Parish string
	Year   int
}

// Less orders keys by parish, then year.
func (k Key) Less(o Key) bool {
	if k.Parish != o.Parish {
		return k.Parish < o.Parish
	}
	return k.Year < o.Year
}

// Keyed is implemented by every parish-level observation.
type Keyed interface {
	Key() Key
}

// Key returns the observation key.
func (i Income) Key() Key { return Key{i.Parish, i.Year} }

// Key returns the observation key.
func (s SchoolRating) Key() Key { return Key{s.Parish, s.Year} }

// Key returns the observation key.
func (c CrimeTotal) Key() Key { return Key{c.Parish, c.Year} }

// Key returns the observation key.
func (h HomeValue) Key() Key { return Key{h.Parish, h.Year} }

// Index builds a key lookup and rejects duplicate keys.
func Index[T Keyed](name string, obs []T) (map[Key]T, error) {
	idx := make(map[Key]T, len(obs))
	for _, o := range obs {
		k := o.Key()
		if _, ok := idx[k]; ok {
			return nil, fmt.Errorf("%w in %s: %s %d", ErrDuplicateKey, name, k.Parish, k.Year)
		}
		idx[k] = o
	}
	return idx, nil
}

// yearFiles lists <year>.<ext> files in dir sorted by year.
func yearFiles(dir, ext string) ([]int, []string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("%w: directory %s", ErrMissingSource, dir)
		}
		return nil, nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	type yf struct {
		year int
		path string
	}
	var found []yf
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ext) {
			continue
		}
		stem := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		year, err := strconv.Atoi(stem)
		if err != nil {
			continue
		}
		found = append(found, yf{year, filepath.Join(dir, entry.Name())})
	}

	if len(found) == 0 {
		return nil, nil, fmt.Errorf("%w: no <year>%s files in %s", ErrMissingSource, ext, dir)
	}

	sort.Slice(found, func(i, j int) bool { return found[i].year < found[j].year })

	years := make([]int, len(found))
	paths := make([]string, len(found))
	for i, f := range found {
		years[i] = f.year
		paths[i] = f.path
	}
	return years, paths, nil
}

// columnIndex maps trimmed header names to their position.
func columnIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if _, ok := idx[h]; !ok {
			idx[h] = i
		}
	}
	return idx
}

// parseNumber parses a numeric cell, tolerating thousands separators and
// the "+"/"$"/"%" decorations used in published tables.
func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.NewReplacer(",", "", "$", "", "%", "").Replace(s)
	s = strings.TrimSuffix(s, "+")
	if s == "" || s == "-" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
