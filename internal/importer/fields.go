package importer

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// resolveField returns the first non-empty cell among the candidate column
// labels, canonical snake_case label first. First match wins.
func resolveField(cells map[string]string, labels ...string) string {
	for _, label := range labels {
		if value := strings.TrimSpace(cells[label]); value != "" {
			return value
		}
	}
	return ""
}

var (
	isoDateRe   = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	dmyDateRe   = regexp.MustCompile(`^\d{2}/\d{2}/\d{4}$`)
	slashDateRe = regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{4}$`)
)

// excelEpochOffset is the day count between the Excel 1900 date system epoch
// and the Unix epoch: serial 25569 is 1970-01-01.
const excelEpochOffset = 25569

var genericDateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006/01/02",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
}

// ParseDate infers a calendar date from a raw cell value:
//
//   - YYYY-MM-DD passes through
//   - DD/MM/YYYY is day-first
//   - M/D/YYYY with the first component above 12 is day-first, otherwise
//     month-first
//   - a bare number is an Excel serial day count
//   - anything else gets a generic parse attempt
//
// nil means the value is not a date; required-field validation decides
// whether that fails the row.
func ParseDate(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}

	if isoDateRe.MatchString(value) {
		if parsed, err := time.Parse("2006-01-02", value); err == nil {
			return &parsed
		}
		return nil
	}

	if dmyDateRe.MatchString(value) {
		parts := strings.Split(value, "/")
		return makeDate(atoi(parts[2]), atoi(parts[1]), atoi(parts[0]))
	}

	if slashDateRe.MatchString(value) {
		parts := strings.Split(value, "/")
		first, second, year := atoi(parts[0]), atoi(parts[1]), atoi(parts[2])
		if first > 12 {
			return makeDate(year, second, first)
		}
		return makeDate(year, first, second)
	}

	if serial, err := strconv.ParseFloat(value, 64); err == nil {
		seconds := int64((serial - excelEpochOffset) * 86400)
		parsed := time.Unix(seconds, 0).UTC().Truncate(24 * time.Hour)
		return &parsed
	}

	for _, layout := range genericDateLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			day := time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, time.UTC)
			return &day
		}
	}
	return nil
}

// makeDate rejects impossible combinations such as 31/02 instead of letting
// time.Date roll them over into the next month.
func makeDate(year, month, day int) *time.Time {
	parsed := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if parsed.Year() != year || parsed.Month() != time.Month(month) || parsed.Day() != day {
		return nil
	}
	return &parsed
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
