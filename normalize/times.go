package normalize

import (
	"regexp"
	"strings"
	"time"
)

var timeRangeRegex = regexp.MustCompile(`(\d{1,2}:\d{2})\s*-\s*(\d{1,2}:\d{2})`)

// ParseTimeRange pulls "HH:MM - HH:MM" out of a schedule line. Both results
// are nil when the pattern is missing.
func ParseTimeRange(text string) (start, end *string) {
	m := timeRangeRegex.FindStringSubmatch(text)
	if m == nil {
		return nil, nil
	}
	s, e := m[1], m[2]
	return &s, &e
}

// ISODate reads the machine-readable start date attribute of a detail page
// ("2025-03-05" or an RFC 3339 timestamp). Only the date part is used.
func ISODate(text string) (time.Time, bool) {
	text = strings.TrimSpace(text)
	if len(text) < len("2006-01-02") {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", text[:10])
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
