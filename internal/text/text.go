// Package text reduces free-form event titles and market questions to a
// comparable form: normalization, tokenization with synonym folding,
// n-grams, and the similarity measures the fuzzy matcher scores with.
package text

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "at": true, "be": true,
	"by": true, "for": true, "from": true, "in": true, "is": true, "it": true,
	"of": true, "on": true, "or": true, "that": true, "the": true, "this": true,
	"to": true, "was": true, "will": true, "with": true, "what": true,
	"when": true, "which": true, "who": true, "how": true, "do": true,
	"does": true, "did": true, "than": true, "then": true, "there": true,
}

// synonyms folds domain vocabulary that the two venues spell differently.
// Both directions map to a single canonical token.
var synonyms = map[string]string{
	"cpi":       "inflation",
	"fed":       "federal",
	"fomc":      "federal",
	"reserve":   "federal",
	"btc":       "bitcoin",
	"eth":       "ethereum",
	"president": "presidential",
	"gdp":       "gdp",
	"jobs":      "payrolls",
	"nfp":       "payrolls",
}

var (
	nonAlnumRe   = regexp.MustCompile(`[^a-z0-9 ]+`)
	whitespaceRe = regexp.MustCompile(`\s+`)
	yearRe       = regexp.MustCompile(`\b(\d{4})\b`)
)

// Normalize lowercases, strips diacritics and non-alphanumerics, and
// collapses whitespace.
func Normalize(s string) string {
	s = strings.ToLower(s)
	s = stripDiacritics(s)
	s = nonAlnumRe.ReplaceAllString(s, " ")
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// stripDiacritics folds accented latin letters to their base letter.
// A lookup table covers the characters that actually appear in market
// titles; anything else non-ASCII is dropped by Normalize's regexp.
func stripDiacritics(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r < unicode.MaxASCII:
			b.WriteRune(r)
		default:
			if base, ok := diacriticFold[r]; ok {
				b.WriteRune(base)
			}
		}
	}
	return b.String()
}

var diacriticFold = map[rune]rune{
	'á': 'a', 'à': 'a', 'â': 'a', 'ä': 'a', 'ã': 'a', 'å': 'a',
	'é': 'e', 'è': 'e', 'ê': 'e', 'ë': 'e',
	'í': 'i', 'ì': 'i', 'î': 'i', 'ï': 'i',
	'ó': 'o', 'ò': 'o', 'ô': 'o', 'ö': 'o', 'õ': 'o',
	'ú': 'u', 'ù': 'u', 'û': 'u', 'ü': 'u',
	'ñ': 'n', 'ç': 'c',
}

// Tokenize normalizes, splits on whitespace, drops stopwords, and applies
// the synonym map.
func Tokenize(s string) []string {
	norm := Normalize(s)
	if norm == "" {
		return nil
	}
	fields := strings.Fields(norm)
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if stopwords[f] {
			continue
		}
		if canonical, ok := synonyms[f]; ok {
			f = canonical
		}
		tokens = append(tokens, f)
	}
	return tokens
}

// SignificantTokens returns tokens of length ≥ 4 excluding stopwords.
func SignificantTokens(s string) []string {
	var out []string
	for _, t := range Tokenize(s) {
		if len(t) >= 4 {
			out = append(out, t)
		}
	}
	return out
}

// NGrams returns all contiguous n-grams of tokens joined by a single space.
func NGrams(tokens []string, n int) []string {
	if n <= 0 || len(tokens) < n {
		return nil
	}
	out := make([]string, 0, len(tokens)-n+1)
	for i := 0; i+n <= len(tokens); i++ {
		out = append(out, strings.Join(tokens[i:i+n], " "))
	}
	return out
}

// LevenshteinSimilarity returns 1 − editDistance/max(|a|, |b|) counted in
// runes, or 0 when both strings are empty.
func LevenshteinSimilarity(a, b string) float64 {
	if a == "" && b == "" {
		return 0
	}
	maxLen := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > maxLen {
		maxLen = n
	}
	return 1 - float64(levenshtein(a, b))/float64(maxLen)
}

// levenshtein computes edit distance with a rolling single-row table.
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

// JaccardSimilarity returns |A∩B| / |A∪B| over two token sets,
// or 0 when the union is empty.
func JaccardSimilarity(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	setA := make(map[string]bool, len(a))
	for _, t := range a {
		setA[t] = true
	}
	setB := make(map[string]bool, len(b))
	for _, t := range b {
		setB[t] = true
	}

	intersection := 0
	for t := range setA {
		if setB[t] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// ExtractYears returns all 4-digit substrings in [1900, 2100], in order of
// appearance.
func ExtractYears(s string) []int {
	var years []int
	for _, m := range yearRe.FindAllString(s, -1) {
		y, err := strconv.Atoi(m)
		if err != nil {
			continue
		}
		if y >= 1900 && y <= 2100 {
			years = append(years, y)
		}
	}
	return years
}
