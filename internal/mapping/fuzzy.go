// fuzzy.go matches uncatalogued events across venues by scoring blocked
// candidate pairs:
//
//	score = 0.4·titleSimilarity + 0.4·tokenOverlap + 0.2·dateProximity
//
// where dateProximity = max(0, 1 − |Δdays|/30) over each event's earliest
// market end-date. Pairs scoring ≥ 0.85 are confirmed, [0.5, 0.85)
// uncertain, everything else discarded. Confirmed pairs and rejections are
// persisted so later scans skip them.
package mapping

import (
	"log/slog"
	"math"
	"time"

	"arbscan/internal/blocking"
	"arbscan/internal/store"
	"arbscan/internal/text"
	"arbscan/pkg/types"
)

const (
	confirmThreshold   = 0.85
	uncertainThreshold = 0.5
	dateWindowDays     = 30
)

// Classification buckets a candidate by composite score.
type Classification string

const (
	ClassConfirmed Classification = "confirmed"
	ClassUncertain Classification = "uncertain"
	ClassRejected  Classification = "rejected"
)

// FuzzyEvent is the event view the fuzzy matcher scores: identifiers,
// title, category, market questions, and the earliest market end-date
// (zero when unknown).
type FuzzyEvent struct {
	ID          string
	Identifier  string // slug or ticker
	Title       string
	Category    string
	Questions   []string
	EarliestEnd time.Time
}

// Candidate is one scored cross-venue pairing with its signal breakdown.
type Candidate struct {
	Poly       FuzzyEvent
	Kalshi     FuzzyEvent
	Score      float64
	TitleScore float64
	TokenScore float64
	DateScore  float64
	Class      Classification
}

// FuzzyMatcher scores blocked candidates and remembers decisions across
// scans through the match cache.
type FuzzyMatcher struct {
	cache  *store.MatchCache
	logger *slog.Logger
}

// NewFuzzyMatcher wires a matcher over the persistent decision cache.
// cache may be nil (decisions are then not remembered).
func NewFuzzyMatcher(cache *store.MatchCache, logger *slog.Logger) *FuzzyMatcher {
	return &FuzzyMatcher{
		cache:  cache,
		logger: logger.With("component", "fuzzy-matcher"),
	}
}

// ScoreEvents computes the composite score and its subscores for one pair.
func ScoreEvents(a, b FuzzyEvent) (composite, title, tokens, date float64) {
	title = text.LevenshteinSimilarity(text.Normalize(a.Title), text.Normalize(b.Title))
	tokens = text.JaccardSimilarity(
		text.SignificantTokens(a.Title),
		text.SignificantTokens(b.Title),
	)
	date = dateProximity(a.EarliestEnd, b.EarliestEnd)
	composite = 0.4*title + 0.4*tokens + 0.2*date
	return composite, title, tokens, date
}

func dateProximity(a, b time.Time) float64 {
	if a.IsZero() || b.IsZero() {
		return 0
	}
	deltaDays := math.Abs(a.Sub(b).Hours()) / 24
	return math.Max(0, 1-deltaDays/dateWindowDays)
}

// Classify buckets a composite score.
func Classify(score float64) Classification {
	switch {
	case score >= confirmThreshold:
		return ClassConfirmed
	case score >= uncertainThreshold:
		return ClassUncertain
	default:
		return ClassRejected
	}
}

// Match blocks both event sets, scores every candidate not already decided
// in the cache, persists new confirmations and rejections, and returns
// confirmed and uncertain candidates plus the blocking statistics.
func (m *FuzzyMatcher) Match(polyEvents, kalshiEvents []FuzzyEvent) ([]Candidate, blocking.Stats) {
	polyByID := make(map[string]FuzzyEvent, len(polyEvents))
	blockPoly := make([]blocking.Event, 0, len(polyEvents))
	for _, ev := range polyEvents {
		polyByID[ev.ID] = ev
		blockPoly = append(blockPoly, blocking.Event{
			ID: ev.ID, Title: ev.Title, Category: ev.Category, Questions: ev.Questions,
		})
	}
	kalshiByID := make(map[string]FuzzyEvent, len(kalshiEvents))
	blockKalshi := make([]blocking.Event, 0, len(kalshiEvents))
	for _, ev := range kalshiEvents {
		kalshiByID[ev.ID] = ev
		blockKalshi = append(blockKalshi, blocking.Event{
			ID: ev.ID, Title: ev.Title, Category: ev.Category, Questions: ev.Questions,
		})
	}

	idx := blocking.Build(blockPoly, blockKalshi)
	candidates := idx.Candidates()
	stats := idx.Stats(len(candidates))

	var out []Candidate
	for _, c := range candidates {
		poly := polyByID[c.PolyID]
		kalshi := kalshiByID[c.KalshiID]
		key := store.Key(poly.ID, kalshi.ID)

		if m.cache != nil {
			if m.cache.Rejected(key) {
				continue
			}
			if cached, ok := m.cache.Confirmed(key); ok {
				out = append(out, Candidate{
					Poly: poly, Kalshi: kalshi,
					Score: cached.Score, Class: ClassConfirmed,
				})
				continue
			}
		}

		score, title, tokens, date := ScoreEvents(poly, kalshi)
		class := Classify(score)
		if class == ClassRejected {
			if m.cache != nil {
				if err := m.cache.Reject(key); err != nil {
					m.logger.Warn("persist rejection failed", "key", key, "error", err)
				}
			}
			continue
		}

		if class == ClassConfirmed && m.cache != nil {
			err := m.cache.Confirm(key, store.ConfirmedMatch{
				PolySlug:     poly.Identifier,
				KalshiTicker: kalshi.Identifier,
				Name:         poly.Title,
				Category:     poly.Category,
				Score:        score,
				ConfirmedAt:  time.Now(),
			})
			if err != nil {
				m.logger.Warn("persist confirmation failed", "key", key, "error", err)
			}
		}

		out = append(out, Candidate{
			Poly: poly, Kalshi: kalshi,
			Score: score, TitleScore: title, TokenScore: tokens, DateScore: date,
			Class: class,
		})
	}

	m.logger.Info("fuzzy match complete",
		"candidates", stats.Actual,
		"potential", stats.TotalPotential,
		"reduction_pct", stats.ReductionPct,
		"matched", len(out),
	)
	return out, stats
}

// Pair converts a confirmed candidate to a MatchedPair.
func (c Candidate) Pair() types.MatchedPair {
	return types.MatchedPair{
		Name:           c.Poly.Title,
		Category:       c.Poly.Category,
		PolymarketSlug: c.Poly.Identifier,
		KalshiTicker:   c.Kalshi.Identifier,
		MatchType:      types.MatchFuzzy,
	}
}

// CachedPairs converts persisted confirmations into matched pairs so a
// scan can include them without re-fetching both event lists.
func (m *FuzzyMatcher) CachedPairs() []types.MatchedPair {
	if m.cache == nil {
		return nil
	}
	confirmed := m.cache.AllConfirmed()
	out := make([]types.MatchedPair, 0, len(confirmed))
	for _, c := range confirmed {
		out = append(out, types.MatchedPair{
			Name:           c.Name,
			Category:       c.Category,
			PolymarketSlug: c.PolySlug,
			KalshiTicker:   c.KalshiTicker,
			MatchType:      types.MatchFuzzy,
		})
	}
	return out
}
