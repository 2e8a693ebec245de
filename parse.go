package cotacao

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// RateBounds is the plausibility band a candidate rate must fall inside
// before it is believed. The observed page mixes the conversion result with
// unrelated numbers (dates, amounts, footer figures), so anything outside
// the band is treated as noise.
type RateBounds struct {
	Min float64
	Max float64
}

func (b RateBounds) contains(v float64) bool {
	return v >= b.Min && v <= b.Max
}

// DefaultRateBounds is deliberately wide; callers tighten it per pair when
// the expected magnitude is known.
var DefaultRateBounds = RateBounds{Min: 0.01, Max: 1000}

// ParserConfig carries the tunables of the text parser.
type ParserConfig struct {
	Bounds        RateBounds
	PairBounds    map[CurrencyPair]RateBounds
	DateTolerance time.Duration // how far a parsed quote date may drift from the requested one
}

func DefaultParserConfig() ParserConfig {
	return ParserConfig{
		Bounds:        DefaultRateBounds,
		DateTolerance: 7 * 24 * time.Hour,
	}
}

// BoundsForPair returns the per-pair band when one is configured, otherwise
// the global band.
func (c ParserConfig) BoundsForPair(pair CurrencyPair) RateBounds {
	if b, ok := c.PairBounds[pair]; ok {
		return b
	}
	if c.Bounds == (RateBounds{}) {
		return DefaultRateBounds
	}
	return c.Bounds
}

// ratePatterns are tried in order, most site-specific first. Each must have
// exactly one capture group holding the locale-formatted number.
var ratePatterns = []*regexp.Regexp{
	// The BCB result line: "Resultado da conversão: 5,123".
	regexp.MustCompile(`Resultado da conversão:?\s*([\d.,]+)`),
	// The unit-rate line: "1 Dólar dos EUA (USD) = 5,1234 Real (BRL)".
	regexp.MustCompile(`1\s+[^=\n]*=\s*([\d.,]+)`),
	// Any locale decimal, as a last resort.
	regexp.MustCompile(`(\d+[.,]\d+)`),
}

// NormalizeDecimal converts a pt-BR or en-US formatted number to a float:
// when both '.' and ',' are present the '.' is a group separator; when only
// ',' is present it is the decimal mark; otherwise the text parses as-is.
func NormalizeDecimal(s string) (float64, error) {
	s = strings.TrimSpace(s)
	switch {
	case strings.Contains(s, ".") && strings.Contains(s, ","):
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	case strings.Contains(s, ","):
		s = strings.ReplaceAll(s, ",", ".")
	}
	return strconv.ParseFloat(s, 64)
}

// ParseRate extracts a conversion rate from unstructured page text. It
// applies the ordered patterns, normalizes every match and accepts the
// first value inside bounds; earlier patterns win outright. It never
// fails: 0 means "not found" and the caller must treat it as such.
func ParseRate(text string, bounds RateBounds) float64 {
	for _, pattern := range ratePatterns {
		for _, match := range pattern.FindAllStringSubmatch(text, -1) {
			v, err := NormalizeDecimal(match[1])
			if err != nil {
				continue
			}
			if bounds.contains(v) {
				return v
			}
		}
	}
	return 0
}

var datePatterns = []struct {
	re     *regexp.Regexp
	layout string
}{
	// The BCB caption: "Data cotação utilizada: 10/05/2024".
	{regexp.MustCompile(`Data cotação utilizada:?\s*(\d{2}/\d{2}/\d{4})`), "02/01/2006"},
	{regexp.MustCompile(`(\d{2}/\d{2}/\d{4})`), "02/01/2006"},
	{regexp.MustCompile(`(\d{4}-\d{2}-\d{2})`), "2006-01-02"},
	{regexp.MustCompile(`(\d{2}-\d{2}-\d{4})`), "02-01-2006"},
}

// ParseQuoteDate extracts the effective quote date from page text. A
// candidate is only believed when it lies within tolerance of the requested
// date; pages are full of unrelated dates (news, footers). When nothing
// qualifies the requested date itself is returned, meaning "could not
// confirm the quote date, assume it matches".
func ParseQuoteDate(text string, requested time.Time, tolerance time.Duration) time.Time {
	requested = DateOnly(requested)
	for _, pattern := range datePatterns {
		for _, match := range pattern.re.FindAllStringSubmatch(text, -1) {
			d, err := time.Parse(pattern.layout, match[1])
			if err != nil {
				continue
			}
			if withinTolerance(d, requested, tolerance) {
				return d
			}
		}
	}
	return requested
}

func withinTolerance(d, requested time.Time, tolerance time.Duration) bool {
	diff := d.Sub(requested)
	if diff < 0 {
		diff = -diff
	}
	return diff <= tolerance
}

// DateOnly truncates a time to its calendar date in UTC.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// PageText flattens an HTML fragment to its rendered text so the pattern
// rules see what a user would. Invalid HTML degrades to the raw input.
func PageText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html
	}
	return doc.Text()
}
