package source

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

var (
	digitChunks = regexp.MustCompile(`\d+`)

	// monthColumn matches monthly headers such as "Jan-15", "2015-01" or "2015-01-31".
	monthColumn = regexp.MustCompile(`.*-\d{2,4}$`)
)

// YearFromPeriodLabel extracts the calendar year from a period header such as
// "Jan-15", "2015-01", "201506" or "2015-01-31". A digit run of four or more
// characters yields its first four digits; otherwise a trailing two-digit run
// is read as 20xx.
func YearFromPeriodLabel(label string) (int, error) {
	token := strings.TrimSpace(label)
	if token == "" {
		return 0, fmt.Errorf("empty period label")
	}

	chunks := digitChunks.FindAllString(token, -1)
	for _, chunk := range chunks {
		if len(chunk) >= 4 {
			year, err := strconv.Atoi(chunk[:4])
			if err != nil {
				return 0, fmt.Errorf("cannot parse year from label %q: %w", label, err)
			}
			return year, nil
		}
	}

	if len(chunks) > 0 {
		if suffix := chunks[len(chunks)-1]; len(suffix) == 2 {
			n, _ := strconv.Atoi(suffix)
			return 2000 + n, nil
		}
	}

	return 0, fmt.Errorf("cannot parse year from label %q", label)
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"1/2/2006",
	"01/02/2006",
	"1/2/06",
	"01-02-06",
	"Jan 2, 2006",
}

// parseObservationDate reads a spreadsheet date cell. Raw cells hold Excel
// serial numbers; formatted cells hold one of dateLayouts.
func parseObservationDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		return excelize.ExcelDateToTime(serial, false)
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse date %q", s)
}
