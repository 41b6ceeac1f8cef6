// Package blocking reduces the fuzzy matcher's pairwise comparisons by
// pre-grouping events on shared shallow keys. Two events are only compared
// when they share at least one blocking key, which cuts the candidate space
// from |A|·|B| to a small fraction.
package blocking

import (
	"fmt"
	"sort"

	"arbscan/internal/text"
)

// Event is the minimal event view the index needs: identifiers, title,
// category, and the questions of its markets.
type Event struct {
	ID        string
	Title     string
	Category  string
	Questions []string
}

// CandidatePair is one blocked comparison candidate: a Polymarket event and
// a Kalshi event sharing at least one key.
type CandidatePair struct {
	PolyID   string
	KalshiID string
}

// Stats reports how much the index reduced the comparison space.
type Stats struct {
	TotalPotential int     // |A| · |B|
	Actual         int     // blocked candidate count
	ReductionPct   float64 // 100 · (1 − Actual/TotalPotential)
}

const (
	maxMarketsPerEvent = 5 // only the first 5 market questions contribute keys
	maxTokensPerMarket = 3 // top significant tokens taken per question
)

// Keys generates the blocking key set for one event:
//
//	year:YYYY  — each 4-digit year in the title
//	cat:<c>    — the event category
//	tok:<w>    — each significant title token, plus the top-3 significant
//	             tokens of the first 5 market questions
//	2g:<b>     — each bigram of the title tokens
//	first:<w>  — the first significant title word
func Keys(ev Event) []string {
	seen := make(map[string]bool)
	var keys []string
	add := func(k string) {
		if k == "" || seen[k] {
			return
		}
		seen[k] = true
		keys = append(keys, k)
	}

	for _, y := range text.ExtractYears(ev.Title) {
		add(fmt.Sprintf("year:%d", y))
	}

	if ev.Category != "" {
		add("cat:" + text.Normalize(ev.Category))
	}

	sig := text.SignificantTokens(ev.Title)
	for _, tok := range sig {
		add("tok:" + tok)
	}
	if len(sig) > 0 {
		add("first:" + sig[0])
	}

	for _, bg := range text.NGrams(text.Tokenize(ev.Title), 2) {
		add("2g:" + bg)
	}

	questions := ev.Questions
	if len(questions) > maxMarketsPerEvent {
		questions = questions[:maxMarketsPerEvent]
	}
	for _, q := range questions {
		qTokens := text.SignificantTokens(q)
		if len(qTokens) > maxTokensPerMarket {
			qTokens = qTokens[:maxTokensPerMarket]
		}
		for _, tok := range qTokens {
			add("tok:" + tok)
		}
	}

	return keys
}

// Index maps blocking keys to the event IDs carrying them, per venue.
type Index struct {
	polyByKey   map[string][]string
	kalshiByKey map[string][]string
	polyCount   int
	kalshiCount int
}

// Build indexes both venues' events. Rebuilt per scan.
func Build(polyEvents, kalshiEvents []Event) *Index {
	idx := &Index{
		polyByKey:   make(map[string][]string),
		kalshiByKey: make(map[string][]string),
		polyCount:   len(polyEvents),
		kalshiCount: len(kalshiEvents),
	}
	for _, ev := range polyEvents {
		for _, k := range Keys(ev) {
			idx.polyByKey[k] = append(idx.polyByKey[k], ev.ID)
		}
	}
	for _, ev := range kalshiEvents {
		for _, k := range Keys(ev) {
			idx.kalshiByKey[k] = append(idx.kalshiByKey[k], ev.ID)
		}
	}
	return idx
}

// Candidates returns the deduplicated union of polyByKey[k] × kalshiByKey[k]
// over all shared keys, in a stable order.
func (idx *Index) Candidates() []CandidatePair {
	seen := make(map[CandidatePair]bool)
	var out []CandidatePair
	for key, polyIDs := range idx.polyByKey {
		kalshiIDs, ok := idx.kalshiByKey[key]
		if !ok {
			continue
		}
		for _, p := range polyIDs {
			for _, k := range kalshiIDs {
				pair := CandidatePair{PolyID: p, KalshiID: k}
				if seen[pair] {
					continue
				}
				seen[pair] = true
				out = append(out, pair)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PolyID != out[j].PolyID {
			return out[i].PolyID < out[j].PolyID
		}
		return out[i].KalshiID < out[j].KalshiID
	})
	return out
}

// Stats computes the reduction achieved over brute-force comparison.
func (idx *Index) Stats(candidates int) Stats {
	total := idx.polyCount * idx.kalshiCount
	s := Stats{TotalPotential: total, Actual: candidates}
	if total > 0 {
		s.ReductionPct = 100 * (1 - float64(candidates)/float64(total))
	}
	return s
}
