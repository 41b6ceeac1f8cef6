// resolver.go chains the three mapping sources into a single lookup and
// enumerates the candidate pairs a scan tick should fetch.
package mapping

import (
	"fmt"
	"log/slog"
	"time"

	"arbscan/pkg/types"
)

// Resolver answers "what is this identifier's counterpart on the other
// venue" by trying static catalog, dynamic templates, then game synthesis.
type Resolver struct {
	catalog *Catalog
	teams   *Teams
	logger  *slog.Logger

	// now is injectable so tests control the dynamic matcher's default
	// year instead of depending on the wall clock.
	now func() time.Time
}

// NewResolver wires a resolver over the loaded config holders.
func NewResolver(catalog *Catalog, teams *Teams, logger *slog.Logger) *Resolver {
	return &Resolver{
		catalog: catalog,
		teams:   teams,
		logger:  logger.With("component", "resolver"),
		now:     time.Now,
	}
}

// SetClock overrides the resolver's clock (tests only).
func (r *Resolver) SetClock(now func() time.Time) { r.now = now }

// FindMatch resolves an identifier from one venue to a MatchedPair, or nil
// when no mapping source covers it. The venue tells the resolver whether
// the identifier is a Polymarket slug or a Kalshi ticker.
func (r *Resolver) FindMatch(identifier string, venue types.Venue) *types.MatchedPair {
	if p := r.matchStatic(identifier, venue); p != nil {
		return p
	}
	if p := r.matchDynamic(identifier, venue); p != nil {
		return p
	}
	return r.matchGame(identifier, venue)
}

func (r *Resolver) matchStatic(identifier string, venue types.Venue) *types.MatchedPair {
	var m StaticMapping
	var ok bool
	if venue == types.VenuePolymarket {
		m, ok = r.catalog.StaticBySlug(identifier)
	} else {
		m, ok = r.catalog.StaticByTicker(identifier)
	}
	if !ok {
		return nil
	}
	pair := staticPair(m)
	return &pair
}

func staticPair(m StaticMapping) types.MatchedPair {
	return types.MatchedPair{
		Name:           m.Name,
		Category:       m.Category,
		PolymarketSlug: m.Polymarket,
		KalshiTicker:   m.Kalshi,
		KalshiSeries:   m.KalshiSeries,
		MatchType:      types.MatchStatic,
	}
}

func (r *Resolver) matchDynamic(identifier string, venue types.Venue) *types.MatchedPair {
	defaultYear := r.now().Year()
	for _, tpl := range r.catalog.Templates() {
		var date time.Time
		var ok bool
		if venue == types.VenuePolymarket {
			date, ok = tpl.MatchPolySlug(identifier, defaultYear)
		} else {
			date, ok = tpl.MatchTicker(identifier)
		}
		if !ok {
			continue
		}
		pair := dynamicPair(tpl, date)
		return &pair
	}
	return nil
}

func dynamicPair(tpl DynamicTemplate, date time.Time) types.MatchedPair {
	return types.MatchedPair{
		Name:           fmt.Sprintf("%s (%s)", tpl.Name, date.Format("2006-01-02")),
		Category:       tpl.Category,
		PolymarketSlug: tpl.PolySlug(date),
		KalshiTicker:   tpl.TickerForDate(date),
		KalshiSeries:   tpl.KalshiSeries,
		Date:           date,
		MatchType:      types.MatchDynamic,
	}
}

func (r *Resolver) matchGame(identifier string, venue types.Venue) *types.MatchedPair {
	var game Game
	var ok bool
	if venue == types.VenuePolymarket {
		game, ok = ParseGameSlug(identifier)
	} else {
		game, ok = ParseGameTicker(identifier)
	}
	if !ok {
		return nil
	}
	return r.gamePair(game)
}

// gamePair builds a MatchedPair from a parsed game; unknown team codes
// skip the game.
func (r *Resolver) gamePair(game Game) *types.MatchedPair {
	name, ok := game.Name(r.teams)
	if !ok {
		r.logger.Debug("skipping game with unknown team code",
			"away", game.Away, "home", game.Home)
		return nil
	}
	return &types.MatchedPair{
		Name:           name,
		Category:       "nba",
		PolymarketSlug: game.Slug(),
		KalshiTicker:   game.Ticker(),
		KalshiSeries:   nbaSeriesTicker,
		Date:           game.Date,
		MatchType:      types.MatchGame,
	}
}

// StaticPairs returns every catalog entry as a MatchedPair.
func (r *Resolver) StaticPairs() []types.MatchedPair {
	static := r.catalog.Static()
	out := make([]types.MatchedPair, 0, len(static))
	for _, m := range static {
		out = append(out, staticPair(m))
	}
	return out
}

// DynamicPairs expands every template over the next `days` days starting
// at now, one pair per template date.
func (r *Resolver) DynamicPairs(now time.Time, days int) []types.MatchedPair {
	var out []types.MatchedPair
	for _, tpl := range r.catalog.Templates() {
		for _, date := range tpl.Dates(now, days) {
			out = append(out, dynamicPair(tpl, date))
		}
	}
	return out
}

// GamePairs converts Polymarket NBA game slugs into matched pairs,
// skipping slugs that don't parse or reference unknown teams.
func (r *Resolver) GamePairs(slugs []string) []types.MatchedPair {
	var out []types.MatchedPair
	for _, slug := range slugs {
		game, ok := ParseGameSlug(slug)
		if !ok {
			continue
		}
		if p := r.gamePair(game); p != nil {
			out = append(out, *p)
		}
	}
	return out
}

// GamePairsFromTickers is the Kalshi-side counterpart of GamePairs: it
// synthesizes pairs from open game event tickers.
func (r *Resolver) GamePairsFromTickers(tickers []string) []types.MatchedPair {
	var out []types.MatchedPair
	for _, ticker := range tickers {
		game, ok := ParseGameTicker(ticker)
		if !ok {
			continue
		}
		if p := r.gamePair(game); p != nil {
			out = append(out, *p)
		}
	}
	return out
}

// GameSeries returns the Kalshi series ticker that carries single games.
func GameSeries() string { return nbaSeriesTicker }
