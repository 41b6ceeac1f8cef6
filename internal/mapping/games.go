// games.go synthesizes NBA game identifiers between venues. Polymarket
// names a game "nba-{away}-{home}-YYYY-MM-DD"; Kalshi names the same game
// "KXNBAGAME-YYMONDDAWAYHOME". Either form can be generated from the other
// once the 3-letter team codes resolve against teams.json.
package mapping

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

const nbaSeriesTicker = "KXNBAGAME"

var (
	gameSlugRe   = regexp.MustCompile(`^nba-([a-z]{2,3})-([a-z]{2,3})-(\d{4})-(\d{2})-(\d{2})$`)
	gameTickerRe = regexp.MustCompile(`^KXNBAGAME-(\d{2})([A-Z]{3})(\d{2})([A-Z]{3})([A-Z]{3})$`)
)

// Game is a parsed NBA matchup. Away and Home are uppercase 3-letter codes.
type Game struct {
	Away string
	Home string
	Date time.Time
}

// ParseGameSlug parses a Polymarket NBA slug like "nba-phx-mia-2026-01-13".
func ParseGameSlug(slug string) (Game, bool) {
	m := gameSlugRe.FindStringSubmatch(strings.ToLower(slug))
	if m == nil {
		return Game{}, false
	}
	date, err := time.Parse("2006-01-02", fmt.Sprintf("%s-%s-%s", m[3], m[4], m[5]))
	if err != nil {
		return Game{}, false
	}
	return Game{
		Away: strings.ToUpper(m[1]),
		Home: strings.ToUpper(m[2]),
		Date: date,
	}, true
}

// ParseGameTicker parses a Kalshi NBA ticker like "KXNBAGAME-26JAN13PHXMIA".
func ParseGameTicker(ticker string) (Game, bool) {
	m := gameTickerRe.FindStringSubmatch(strings.ToUpper(ticker))
	if m == nil {
		return Game{}, false
	}
	month, ok := monthByAbbrev(m[2])
	if !ok {
		return Game{}, false
	}
	date, err := time.Parse("2006-01-02",
		fmt.Sprintf("20%s-%02d-%s", m[1], int(month), m[3]))
	if err != nil {
		return Game{}, false
	}
	return Game{Away: m[4], Home: m[5], Date: date}, true
}

// Slug generates the Polymarket slug for the game.
func (g Game) Slug() string {
	return fmt.Sprintf("nba-%s-%s-%s",
		strings.ToLower(g.Away), strings.ToLower(g.Home), g.Date.Format("2006-01-02"))
}

// Ticker generates the Kalshi ticker for the game.
func (g Game) Ticker() string {
	return fmt.Sprintf("%s-%02d%s%02d%s%s",
		nbaSeriesTicker,
		g.Date.Year()%100,
		monthAbbrevs[g.Date.Month()-1],
		g.Date.Day(),
		g.Away, g.Home)
}

// Name renders a display name using canonical team names; unknown codes
// make the game unusable and the caller should skip it.
func (g Game) Name(teams *Teams) (string, bool) {
	away, okA := teams.CanonicalFromCode(g.Away)
	home, okH := teams.CanonicalFromCode(g.Home)
	if !okA || !okH {
		return "", false
	}
	return fmt.Sprintf("%s @ %s", away, home), true
}
