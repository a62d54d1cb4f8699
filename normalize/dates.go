// Package normalize turns the free text found on listing pages into the
// structured fields of models.Event. Nothing in here performs I/O.
package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DateRange is a parsed listing date. To is nil for single-day events and
// must then be read as equal to From.
type DateRange struct {
	From time.Time
	To   *time.Time
}

// End returns the effective last day of the range.
func (r DateRange) End() time.Time {
	if r.To == nil {
		return r.From
	}
	return *r.To
}

var spanishMonths = []string{"ene", "feb", "mar", "abr", "may", "jun", "jul", "ago", "sep", "oct", "nov", "dic"}

var dateRangeRegex = regexp.MustCompile(`(?i)(\d{1,2})\s+([a-zñ]+)\s+(\d{4})(?:\s*>\s*(\d{1,2})\s+([a-zñ]+)\s+(\d{4}))?`)

// ParseDateRange extracts "5 mar 2025" or "5 mar 2025 > 10 mar 2025" from
// text. The boolean is false when no well-formed date is present.
func ParseDateRange(text string) (*DateRange, bool) {
	m := dateRangeRegex.FindStringSubmatch(text)
	if m == nil {
		return nil, false
	}

	from, ok := buildDate(m[1], m[2], m[3])
	if !ok {
		return nil, false
	}

	r := &DateRange{From: from}
	if m[4] != "" {
		to, ok := buildDate(m[4], m[5], m[6])
		if !ok {
			return nil, false
		}
		r.To = &to
	}
	return r, true
}

// MonthIndex returns the 1-based month for a Spanish month name, matched on
// its first three letters.
func MonthIndex(name string) (time.Month, bool) {
	runes := []rune(strings.ToLower(strings.TrimSpace(name)))
	if len(runes) < 3 {
		return 0, false
	}
	prefix := string(runes[:3])
	for i, m := range spanishMonths {
		if m == prefix {
			return time.Month(i + 1), true
		}
	}
	return 0, false
}

// MonthLabel is the title-cased short name the calendar widget shows.
func MonthLabel(m time.Month) string {
	short := spanishMonths[m-1]
	return strings.ToUpper(short[:1]) + short[1:]
}

func buildDate(dayText, monthText, yearText string) (time.Time, bool) {
	day, err := strconv.Atoi(dayText)
	if err != nil {
		return time.Time{}, false
	}
	year, err := strconv.Atoi(yearText)
	if err != nil {
		return time.Time{}, false
	}
	month, ok := MonthIndex(monthText)
	if !ok {
		return time.Time{}, false
	}
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	// 31 feb and friends roll over in time.Date
	if t.Day() != day || t.Month() != month {
		return time.Time{}, false
	}
	return t, true
}
