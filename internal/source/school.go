package source

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// schoolLocationColumns lists the district column names used across years:
// "District" until 2017, "School System" variants afterwards.
var schoolLocationColumns = []string{"District", "School System", "School System Name", "System Name"}

const schoolScoreColumn = "DPS"

// LoadSchoolRatings reads one district performance workbook per year from the
// school directory. Letter grades come from the "<year> ... Letter Grade"
// column when present and are otherwise derived from the score.
func LoadSchoolRatings(cfg Config) ([]SchoolRating, error) {
	dir := cfg.path(cfg.SchoolDir)
	years, paths, err := yearFiles(dir, ".xlsx")
	if err != nil {
		return nil, err
	}

	log := cfg.logger().With("source", NameSchool)

	var out []SchoolRating
	for i, path := range paths {
		year := years[i]
		rows, err := readSheet(path)
		if err != nil {
			return nil, err
		}

		header := rows[0]
		cols := columnIndex(header)

		locCol := -1
		for _, name := range schoolLocationColumns {
			if c, ok := cols[name]; ok {
				locCol = c
				break
			}
		}
		if locCol < 0 {
			return nil, fmt.Errorf("%w: one of %v in %s", ErrMissingColumn, schoolLocationColumns, filepath.Base(path))
		}

		scoreCol, ok := cols[schoolScoreColumn]
		if !ok {
			return nil, fmt.Errorf("%w: %q in %s", ErrMissingColumn, schoolScoreColumn, filepath.Base(path))
		}

		letterCol := letterGradeColumn(header, year)

		dropped, imputed := 0, 0
		for _, row := range rows[1:] {
			parish := cfg.parish(cell(row, locCol))
			score, ok := parseNumber(cell(row, scoreCol))
			if parish == "" || !ok {
				dropped++
				continue
			}

			letter := normalizeLetter(cell(row, letterCol))
			if letter == "" {
				letter = LetterForScore(score)
				imputed++
			}

			out = append(out, SchoolRating{Parish: parish, Year: year, DPSScore: score, DPSLetter: letter})
		}

		log.Debug("loaded school file", "year", year, "path", path,
			"letter_column", letterCol >= 0, "dropped", dropped, "imputed_letters", imputed)
	}

	return out, nil
}

// letterGradeColumn finds the first header naming both the year and a letter
// grade, e.g. "2016 Letter Grade" or "2019 District Letter Grade". Returns -1
// when the workbook has none.
func letterGradeColumn(header []string, year int) int {
	y := strconv.Itoa(year)
	for i, h := range header {
		if strings.Contains(h, y) && strings.Contains(h, "Letter Grade") {
			return i
		}
	}
	return -1
}

func normalizeLetter(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	switch s[0] {
	case 'A', 'B', 'C', 'D', 'F':
		return s[:1]
	}
	return ""
}

// LetterForScore maps a district performance score to a letter grade on the
// 150-point scale.
func LetterForScore(score float64) string {
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
