// dynamic.go expands and reverse-matches date-templated identifiers.
//
// A template declares a Polymarket slug pattern with {year}, {month}
// (lowercase full month name), {day} placeholders and a Kalshi ticker
// pattern with {yy}, {MON} (3-letter uppercase), {dd}. Either side can be
// generated from a date or matched back to one. A daily Polymarket pattern
// that captures no year resolves against a caller-supplied default year.
package mapping

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Frequency controls how a template's dates are enumerated and which date
// parts its patterns are expected to carry.
type Frequency string

const (
	FreqDaily     Frequency = "daily"
	FreqMonthly   Frequency = "monthly"
	FreqQuarterly Frequency = "quarterly"
	FreqYearly    Frequency = "yearly"
)

var monthNames = []string{
	"january", "february", "march", "april", "may", "june",
	"july", "august", "september", "october", "november", "december",
}

var monthAbbrevs = []string{
	"JAN", "FEB", "MAR", "APR", "MAY", "JUN",
	"JUL", "AUG", "SEP", "OCT", "NOV", "DEC",
}

var placeholderRe = regexp.MustCompile(`\{(year|month|day|yy|MON|dd)\}`)

// DynamicTemplate is a compiled date template. Construct with
// NewDynamicTemplate so both patterns are validated up front.
type DynamicTemplate struct {
	Name         string
	Category     string
	Frequency    Frequency
	PolyPattern  string
	KalshiSeries string
	KalshiTicker string

	polyRe     *regexp.Regexp
	polyGroups []string
	kalshiRe   *regexp.Regexp
	kalshiGrps []string
}

// NewDynamicTemplate compiles the reverse-match regexps for both venues.
func NewDynamicTemplate(name, category string, freq Frequency, polyPattern, kalshiSeries, kalshiPattern string) (DynamicTemplate, error) {
	switch freq {
	case FreqDaily, FreqMonthly, FreqQuarterly, FreqYearly:
	default:
		return DynamicTemplate{}, fmt.Errorf("unknown frequency %q", freq)
	}

	polyRe, polyGroups, err := compilePattern(polyPattern)
	if err != nil {
		return DynamicTemplate{}, fmt.Errorf("polymarket pattern: %w", err)
	}
	kalshiRe, kalshiGroups, err := compilePattern(kalshiPattern)
	if err != nil {
		return DynamicTemplate{}, fmt.Errorf("kalshi pattern: %w", err)
	}

	return DynamicTemplate{
		Name:         name,
		Category:     category,
		Frequency:    freq,
		PolyPattern:  polyPattern,
		KalshiSeries: kalshiSeries,
		KalshiTicker: kalshiPattern,
		polyRe:       polyRe,
		polyGroups:   polyGroups,
		kalshiRe:     kalshiRe,
		kalshiGrps:   kalshiGroups,
	}, nil
}

// compilePattern escapes the pattern's literal runs and substitutes a
// capture group per placeholder, returning the anchored regexp and the
// placeholder names in capture order.
func compilePattern(pattern string) (*regexp.Regexp, []string, error) {
	var sb strings.Builder
	var groups []string
	sb.WriteString("^")

	last := 0
	for _, loc := range placeholderRe.FindAllStringSubmatchIndex(pattern, -1) {
		sb.WriteString(regexp.QuoteMeta(pattern[last:loc[0]]))
		name := pattern[loc[2]:loc[3]]
		groups = append(groups, name)
		switch name {
		case "year":
			sb.WriteString(`(\d{4})`)
		case "month":
			sb.WriteString(`([a-z]+)`)
		case "day":
			sb.WriteString(`(\d{1,2})`)
		case "yy":
			sb.WriteString(`(\d{2})`)
		case "MON":
			sb.WriteString(`([A-Z]{3})`)
		case "dd":
			sb.WriteString(`(\d{2})`)
		}
		last = loc[1]
	}
	sb.WriteString(regexp.QuoteMeta(pattern[last:]))
	sb.WriteString("$")

	re, err := regexp.Compile(sb.String())
	if err != nil {
		return nil, nil, err
	}
	return re, groups, nil
}

// PolySlug generates the Polymarket slug for a date.
func (t DynamicTemplate) PolySlug(d time.Time) string {
	return placeholderRe.ReplaceAllStringFunc(t.PolyPattern, func(ph string) string {
		switch ph {
		case "{year}":
			return strconv.Itoa(d.Year())
		case "{month}":
			return monthNames[d.Month()-1]
		case "{day}":
			return strconv.Itoa(d.Day())
		}
		return ph
	})
}

// TickerForDate generates the Kalshi ticker for a date.
func (t DynamicTemplate) TickerForDate(d time.Time) string {
	return placeholderRe.ReplaceAllStringFunc(t.KalshiTicker, func(ph string) string {
		switch ph {
		case "{yy}":
			return fmt.Sprintf("%02d", d.Year()%100)
		case "{MON}":
			return monthAbbrevs[d.Month()-1]
		case "{dd}":
			return fmt.Sprintf("%02d", d.Day())
		}
		return ph
	})
}

// MatchPolySlug reverse-matches a Polymarket slug against the template.
// defaultYear fills in the year when the pattern captures only month/day;
// callers decide whether that is the current year or something smarter.
func (t DynamicTemplate) MatchPolySlug(slug string, defaultYear int) (time.Time, bool) {
	m := t.polyRe.FindStringSubmatch(strings.ToLower(slug))
	if m == nil {
		return time.Time{}, false
	}
	return t.resolveDate(t.polyGroups, m[1:], defaultYear)
}

// MatchTicker reverse-matches a Kalshi ticker against the template.
func (t DynamicTemplate) MatchTicker(ticker string) (time.Time, bool) {
	m := t.kalshiRe.FindStringSubmatch(strings.ToUpper(ticker))
	if m == nil {
		return time.Time{}, false
	}
	return t.resolveDate(t.kalshiGrps, m[1:], 0)
}

// resolveDate assembles a date from captured parts. Missing parts default
// to the template's natural granularity: day 1, month January.
func (t DynamicTemplate) resolveDate(groups, captures []string, defaultYear int) (time.Time, bool) {
	year := defaultYear
	month := time.January
	day := 1

	for i, name := range groups {
		val := captures[i]
		switch name {
		case "year":
			y, _ := strconv.Atoi(val)
			year = y
		case "yy":
			y, _ := strconv.Atoi(val)
			year = 2000 + y
		case "month":
			m, ok := monthByName(val)
			if !ok {
				return time.Time{}, false
			}
			month = m
		case "MON":
			m, ok := monthByAbbrev(val)
			if !ok {
				return time.Time{}, false
			}
			month = m
		case "day", "dd":
			d, _ := strconv.Atoi(val)
			if d < 1 || d > 31 {
				return time.Time{}, false
			}
			day = d
		}
	}

	if year == 0 {
		return time.Time{}, false
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC), true
}

func monthByName(name string) (time.Month, bool) {
	for i, n := range monthNames {
		if n == name {
			return time.Month(i + 1), true
		}
	}
	return 0, false
}

func monthByAbbrev(abbrev string) (time.Month, bool) {
	for i, a := range monthAbbrevs {
		if a == abbrev {
			return time.Month(i + 1), true
		}
	}
	return 0, false
}

// Dates enumerates the template's dates covering [now, now + days), deduped
// at the template's granularity: every day for daily templates, the first
// of each touched month/quarter/year otherwise.
func (t DynamicTemplate) Dates(now time.Time, days int) []time.Time {
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	var out []time.Time
	seen := make(map[string]bool)

	for i := 0; i < days; i++ {
		d := start.AddDate(0, 0, i)
		var anchor time.Time
		switch t.Frequency {
		case FreqDaily:
			anchor = d
		case FreqMonthly:
			anchor = time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
		case FreqQuarterly:
			q := (int(d.Month()) - 1) / 3
			anchor = time.Date(d.Year(), time.Month(q*3+1), 1, 0, 0, 0, 0, time.UTC)
		case FreqYearly:
			anchor = time.Date(d.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
		}
		key := anchor.Format("2006-01-02")
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, anchor)
	}
	return out
}
