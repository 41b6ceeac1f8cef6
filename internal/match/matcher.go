// Package match pairs individual binary markets across venues within an
// already-matched event. Category-specific heuristics apply in order: NBA
// single games use moneyline detection and ticker suffixes, team sports use
// canonical team identity, and everything else falls back to question-token
// overlap.
package match

import (
	"log/slog"
	"math"
	"strings"
	"time"
	"unicode"

	"arbscan/internal/mapping"
	"arbscan/internal/text"
	"arbscan/pkg/types"
)

// genericOverlapMin is the Jaccard threshold for pairing by question overlap.
const genericOverlapMin = 0.5

// moneylineStoplist excludes props, spreads, totals, and period markets from
// moneyline detection. Entries are matched as whole lowercase tokens, never
// substrings: "under" must not reject the Thunder. Entries carrying
// punctuation ("o/u", "3-pointer") match as substrings since tokenization
// would split them.
var moneylineStoplist = []string{
	"spread", "o/u", "over", "under", "total", "points", "rebounds",
	"assists", "steals", "blocks", "three", "3-pointer", "quarter", "half",
	"1st", "2nd", "3rd", "4th", "first", "second", "1h", "2h", "moneyline",
}

// Matcher aligns markets inside one event pair.
type Matcher struct {
	teams  *mapping.Teams
	logger *slog.Logger
}

func NewMatcher(teams *mapping.Teams, logger *slog.Logger) *Matcher {
	return &Matcher{
		teams:  teams,
		logger: logger.With("component", "market-matcher"),
	}
}

// MatchMarkets pairs the event's Polymarket markets against its Kalshi
// markets. Game pairs use moneyline synthesis; otherwise a league detected
// from the event name selects team matching, and generic token overlap
// covers the rest.
func (m *Matcher) MatchMarkets(pair types.MatchedPair, poly, kalshi []types.MarketRef) []types.MarketPair {
	if len(poly) == 0 || len(kalshi) == 0 {
		return nil
	}

	if pair.MatchType == types.MatchGame {
		return m.matchGame(pair, poly, kalshi)
	}
	if league, ok := m.detectLeague(pair.Name + " " + pair.Category); ok {
		return m.matchTeams(pair, league, poly, kalshi)
	}
	return m.matchGeneric(pair, poly, kalshi)
}

// detectLeague looks for a known league name in the event text.
func (m *Matcher) detectLeague(s string) (string, bool) {
	norm := " " + text.Normalize(s) + " "
	for _, league := range m.teams.Leagues() {
		if strings.Contains(norm, " "+league+" ") {
			return league, true
		}
	}
	return "", false
}

// isMoneyline reports whether a question is the plain which-team-wins market.
func isMoneyline(question string) bool {
	lower := strings.ToLower(question)
	if !strings.Contains(lower, "vs.") {
		return false
	}
	tokens := questionTokens(lower)
	for _, stop := range moneylineStoplist {
		if strings.ContainsAny(stop, "/-") {
			if strings.Contains(lower, stop) {
				return false
			}
			continue
		}
		if tokens[stop] {
			return false
		}
	}
	return true
}

// questionTokens splits a lowercased question on non-alphanumerics.
func questionTokens(lower string) map[string]bool {
	fields := strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	set := make(map[string]bool, len(fields))
	for _, f := range fields {
		set[f] = true
	}
	return set
}

// matchGame pairs the Polymarket moneyline against Kalshi's per-team
// markets. The moneyline's first-mentioned team carries the YES price and
// token index 0; the other team is the complement. Kalshi tickers end in
// -<AWAY> or -<HOME>.
func (m *Matcher) matchGame(pair types.MatchedPair, poly, kalshi []types.MarketRef) []types.MarketPair {
	game, ok := mapping.ParseGameTicker(pair.KalshiTicker)
	if !ok {
		return m.matchGeneric(pair, poly, kalshi)
	}

	var moneyline *types.MarketRef
	for i := range poly {
		if isMoneyline(poly[i].Question) {
			moneyline = &poly[i]
			m.logger.Debug("moneyline accepted", "question", poly[i].Question)
			break
		}
	}
	if moneyline == nil {
		return nil
	}

	awayName, okA := m.teams.CanonicalFromCode(game.Away)
	homeName, okH := m.teams.CanonicalFromCode(game.Home)
	if !okA || !okH {
		return nil
	}
	awayFirst := mentionsFirst(moneyline.Question, awayName, homeName)

	var out []types.MarketPair
	for _, km := range kalshi {
		var teamIsFirst bool
		switch {
		case strings.HasSuffix(km.Ticker, "-"+game.Away):
			teamIsFirst = awayFirst
		case strings.HasSuffix(km.Ticker, "-"+game.Home):
			teamIsFirst = !awayFirst
		default:
			continue
		}

		mp := types.MarketPair{
			Pair:           pair,
			PolyQuestion:   moneyline.Question,
			KalshiQuestion: km.Question,
			KalshiTicker:   km.Ticker,
			KalshiYes:      km.YesPrice,
			KalshiNo:       km.NoPrice,
			Confidence:     1.0,
			EndDate:        earliestEnd(moneyline.EndDate, km.EndDate),
		}
		if teamIsFirst {
			mp.PolyYes = moneyline.YesPrice
			mp.PolyNo = moneyline.NoPrice
			mp.PolyYesTokenID = moneyline.YesTokenID
			mp.PolyNoTokenID = moneyline.NoTokenID
		} else {
			mp.PolyYes = moneyline.NoPrice
			mp.PolyNo = moneyline.YesPrice
			mp.PolyYesTokenID = moneyline.NoTokenID
			mp.PolyNoTokenID = moneyline.YesTokenID
		}
		mp.Spread = math.Abs(mp.PolyYes - mp.KalshiYes)
		out = append(out, mp)
	}
	return out
}

// mentionsFirst reports whether a appears before b in the question. When
// only one team is found, that team counts as first.
func mentionsFirst(question, a, b string) bool {
	norm := text.Normalize(question)
	ia := strings.Index(norm, text.Normalize(a))
	ib := strings.Index(norm, text.Normalize(b))
	if ia < 0 {
		return false
	}
	if ib < 0 {
		return true
	}
	return ia < ib
}

// matchTeams pairs markets that reference the same canonical team.
func (m *Matcher) matchTeams(pair types.MatchedPair, league string, poly, kalshi []types.MarketRef) []types.MarketPair {
	used := make(map[int]bool)
	var out []types.MarketPair
	for _, pm := range poly {
		for j, km := range kalshi {
			if used[j] {
				continue
			}
			if !m.teams.IsSameTeam(pm.Question, km.Question, league) {
				continue
			}
			used[j] = true
			out = append(out, buildPair(pair, pm, km, 0.9))
			break
		}
	}
	return out
}

// matchGeneric pairs markets whose normalized questions overlap enough.
func (m *Matcher) matchGeneric(pair types.MatchedPair, poly, kalshi []types.MarketRef) []types.MarketPair {
	used := make(map[int]bool)
	var out []types.MarketPair
	for _, pm := range poly {
		pmTokens := text.SignificantTokens(pm.Question)
		if len(pmTokens) == 0 {
			continue
		}
		bestIdx := -1
		bestScore := 0.0
		for j, km := range kalshi {
			if used[j] {
				continue
			}
			score := text.JaccardSimilarity(pmTokens, text.SignificantTokens(km.Question))
			if score > bestScore {
				bestScore = score
				bestIdx = j
			}
		}
		if bestIdx < 0 || bestScore < genericOverlapMin {
			continue
		}
		used[bestIdx] = true
		out = append(out, buildPair(pair, pm, kalshi[bestIdx], bestScore))
	}
	return out
}

func buildPair(pair types.MatchedPair, pm, km types.MarketRef, confidence float64) types.MarketPair {
	return types.MarketPair{
		Pair:           pair,
		PolyQuestion:   pm.Question,
		PolyYes:        pm.YesPrice,
		PolyNo:         pm.NoPrice,
		PolyYesTokenID: pm.YesTokenID,
		PolyNoTokenID:  pm.NoTokenID,
		KalshiQuestion: km.Question,
		KalshiTicker:   km.Ticker,
		KalshiYes:      km.YesPrice,
		KalshiNo:       km.NoPrice,
		Confidence:     confidence,
		Spread:         math.Abs(pm.YesPrice - km.YesPrice),
		EndDate:        earliestEnd(pm.EndDate, km.EndDate),
	}
}

// earliestEnd picks the earlier of two end times, ignoring zero values.
func earliestEnd(a, b time.Time) time.Time {
	switch {
	case a.IsZero():
		return b
	case b.IsZero():
		return a
	case b.Before(a):
		return b
	default:
		return a
	}
}
