package normalizers

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

var (
	reAM        = regexp.MustCompile(`A[.\s]*M\.?`)
	rePM        = regexp.MustCompile(`P[.\s]*M\.?`)
	reStraySeps = regexp.MustCompile(`[;,]`)

	reWeekday     = regexp.MustCompile(`(?i)^(mon|tue|wed|thu|fri|sat|sun)[a-z]*\.?\s+`)
	reDottedDate  = regexp.MustCompile(`\b(\d{1,4})\.(\d{1,2})\.(\d{1,4})\b`)
	reLeadingTime = regexp.MustCompile(`^(\d{1,2}:\d{2}(?::\d{2})?(?:\s*[AP]M)?)\s+(.+)$`)
)

// timestampLayouts are tried against a reshaped timestamp once the flexible parser gives up.
// Month-first dates come before day-first ones.
var timestampLayouts = func() []string {
	dates := []string{
		"2006-1-2", "2006/1/2", "1/2/2006", "2/1/2006",
		"January 2 2006", "Jan 2 2006", "2 January 2006", "2 Jan 2006",
	}
	clocks := []string{"15:04:05", "15:04", "3:04:05 PM", "3:04 PM"}

	layouts := make([]string, 0, len(dates)*(len(clocks)+1))
	for _, d := range dates {
		for _, c := range clocks {
			layouts = append(layouts, d+" "+c)
		}
		layouts = append(layouts, d)
	}
	return layouts
}()

// CleanTimestamp rewrites a free-text timestamp into a shape a flexible parser accepts:
// "A.M."/"A M" spellings become "AM" (likewise PM), commas and semicolons become spaces and
// whitespace is collapsed.
func CleanTimestamp(s string) string {
	s = reAM.ReplaceAllString(s, "AM")
	s = rePM.ReplaceAllString(s, "PM")
	s = reStraySeps.ReplaceAllString(s, " ")
	return CollapseWhitespace(s)
}

// reshapeTimestamp puts a cleaned timestamp into date-then-time order: a leading weekday is
// dropped, dotted dates use slashes and a leading clock moves behind the date.
func reshapeTimestamp(s string) string {
	s = reWeekday.ReplaceAllString(s, "")
	s = reDottedDate.ReplaceAllString(s, "$1/$2/$3")
	if m := reLeadingTime.FindStringSubmatch(s); m != nil {
		s = m[2] + " " + m[1]
	}
	return strings.TrimSpace(s)
}

// NormalizeTimestamp parses a free-text timestamp. Blank and placeholder input yields nil
// without error; anything else the parser rejects is an error.
// Day and month swap when the first number cannot be a month.
// Timestamps without a zone are read as UTC.
func NormalizeTimestamp(s string) (*time.Time, error) {
	cleaned := CleanTimestamp(s)
	if IsNullish(cleaned) {
		return nil, nil
	}

	t, err := dateparse.ParseIn(cleaned, time.UTC, dateparse.RetryAmbiguousDateWithSwap(true))
	if err == nil {
		return &t, nil
	}

	reshaped := reshapeTimestamp(cleaned)
	for _, layout := range timestampLayouts {
		if t, lerr := time.ParseInLocation(layout, reshaped, time.UTC); lerr == nil {
			return &t, nil
		}
	}
	if reshaped != cleaned {
		if t, rerr := dateparse.ParseIn(reshaped, time.UTC, dateparse.RetryAmbiguousDateWithSwap(true)); rerr == nil {
			return &t, nil
		}
	}

	return nil, fmt.Errorf("unable to parse timestamp %q: %w", s, err)
}

// CalendarDate returns the date portion of a timestamp, or "" when it is absent
func CalendarDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}
