package extraction

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// datePattern couples a regex with the interpretation of its capture groups.
// Patterns are tried in order, most specific first, so a full ISO date is
// never shadowed by a looser form matching inside it.
type datePattern struct {
	re         *regexp.Regexp
	confidence float32
	build      func(m []string, now time.Time) (time.Time, bool)
}

var datePatterns = []datePattern{
	{
		re:         regexp.MustCompile(`\b(\d{4})-(\d{1,2})-(\d{1,2})\b`),
		confidence: 0.95,
		build: func(m []string, _ time.Time) (time.Time, bool) {
			return calendarDate(atoi(m[1]), atoi(m[2]), atoi(m[3]))
		},
	},
	{
		re:         regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4})\b`),
		confidence: 0.9,
		build: func(m []string, _ time.Time) (time.Time, bool) {
			return calendarDate(atoi(m[3]), atoi(m[1]), atoi(m[2]))
		},
	},
	{
		re:         regexp.MustCompile(`\b(\d{1,2})-(\d{1,2})-(\d{4})\b`),
		confidence: 0.85,
		build: func(m []string, _ time.Time) (time.Time, bool) {
			return calendarDate(atoi(m[3]), atoi(m[1]), atoi(m[2]))
		},
	},
	{
		re:         regexp.MustCompile(`\b(\d{1,2})\.(\d{1,2})\.(\d{4})\b`),
		confidence: 0.85,
		build: func(m []string, _ time.Time) (time.Time, bool) {
			return calendarDate(atoi(m[3]), atoi(m[1]), atoi(m[2]))
		},
	},
	{
		re:         regexp.MustCompile(`(?i)\b(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?\s+(\d{1,2})(?:st|nd|rd|th)?,?\s+(\d{4})\b`),
		confidence: 0.85,
		build: func(m []string, _ time.Time) (time.Time, bool) {
			return calendarDate(atoi(m[3]), monthIndex(m[1]), atoi(m[2]))
		},
	},
	{
		re:         regexp.MustCompile(`(?i)\b(\d{1,2})(?:st|nd|rd|th)?\s+(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?,?\s+(\d{4})\b`),
		confidence: 0.8,
		build: func(m []string, _ time.Time) (time.Time, bool) {
			return calendarDate(atoi(m[3]), monthIndex(m[2]), atoi(m[1]))
		},
	},
	{
		// two-digit years read as 20xx
		re:         regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{2})\b`),
		confidence: 0.6,
		build: func(m []string, _ time.Time) (time.Time, bool) {
			return calendarDate(2000+atoi(m[3]), atoi(m[1]), atoi(m[2]))
		},
	},
	{
		// yearless shorthand assumes the current year
		re:         regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})\b`),
		confidence: 0.4,
		build: func(m []string, now time.Time) (time.Time, bool) {
			return calendarDate(now.Year(), atoi(m[1]), atoi(m[2]))
		},
	},
}

var monthPrefixes = map[string]int{
	"jan": 1, "feb": 2, "mar": 3, "apr": 4, "may": 5, "jun": 6,
	"jul": 7, "aug": 8, "sep": 9, "oct": 10, "nov": 11, "dec": 12,
}

func monthIndex(name string) int {
	return monthPrefixes[strings.ToLower(name)]
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// calendarDate validates the components against the real calendar.
// time.Date normalizes overflow (month 13 becomes January), so the result
// is compared back; invalid dates are rejected, never clamped.
func calendarDate(year, month, day int) (time.Time, bool) {
	if year < 1 || month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

// DateExtractor finds the transaction date in receipt text.
type DateExtractor struct {
	// Now supplies the clock for yearless dates.
	Now func() time.Time
}

func NewDateExtractor() *DateExtractor {
	return &DateExtractor{Now: time.Now}
}

// Extract tries each pattern in specificity order and returns the first
// calendar-valid match, or nil with zero confidence.
func (e *DateExtractor) Extract(text string) (*time.Time, float32) {
	normalized := Normalize(text)
	now := time.Now()
	if e.Now != nil {
		now = e.Now()
	}

	for _, p := range datePatterns {
		for _, m := range p.re.FindAllStringSubmatch(normalized, -1) {
			if t, ok := p.build(m, now); ok {
				return &t, p.confidence
			}
		}
	}
	return nil, 0
}
