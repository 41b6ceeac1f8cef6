// teams.go loads teams.json and answers team-identity questions for the
// market matcher: canonical names per league with their aliases, plus the
// 3-letter NBA codes used in game slugs and tickers.
package mapping

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"arbscan/internal/text"
)

// Teams is a process-scoped holder for team name data. Loaded once at
// startup and refreshed via Reload; tests construct one with NewTeams.
type Teams struct {
	mu       sync.RWMutex
	path     string
	leagues  map[string]map[string][]string // league → canonical → aliases
	nbaCodes map[string]string              // 3-letter code → canonical
}

// NewTeams builds a holder from in-memory data (used by tests).
func NewTeams(leagues map[string]map[string][]string, nbaCodes map[string]string) *Teams {
	normalized := make(map[string]string, len(nbaCodes))
	for code, name := range nbaCodes {
		normalized[strings.ToUpper(code)] = name
	}
	return &Teams{leagues: leagues, nbaCodes: normalized}
}

// LoadTeams reads teams.json. The file maps league names to
// {canonical: [aliases]} objects, with a special top-level "nba_codes"
// entry mapping 3-letter codes to canonical names.
func LoadTeams(path string) (*Teams, error) {
	t := &Teams{path: path}
	if err := t.Reload(); err != nil {
		return nil, err
	}
	return t, nil
}

// Reload re-reads the file the holder was loaded from.
func (t *Teams) Reload() error {
	data, err := os.ReadFile(t.path)
	if err != nil {
		return fmt.Errorf("read teams file: %w", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse teams file: %w", err)
	}

	leagues := make(map[string]map[string][]string)
	nbaCodes := make(map[string]string)
	for key, msg := range raw {
		if key == "nba_codes" {
			var codes map[string]string
			if err := json.Unmarshal(msg, &codes); err != nil {
				return fmt.Errorf("parse nba_codes: %w", err)
			}
			for code, name := range codes {
				nbaCodes[strings.ToUpper(code)] = name
			}
			continue
		}
		var league map[string][]string
		if err := json.Unmarshal(msg, &league); err != nil {
			return fmt.Errorf("parse league %q: %w", key, err)
		}
		leagues[strings.ToLower(key)] = league
	}

	t.mu.Lock()
	t.leagues = leagues
	t.nbaCodes = nbaCodes
	t.mu.Unlock()
	return nil
}

// CanonicalFromCode resolves an NBA 3-letter code to its canonical name.
func (t *Teams) CanonicalFromCode(code string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	name, ok := t.nbaCodes[strings.ToUpper(code)]
	return name, ok
}

// Leagues returns the known league names.
func (t *Teams) Leagues() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, 0, len(t.leagues))
	for l := range t.leagues {
		out = append(out, l)
	}
	return out
}

// CanonicalTeam scans free text for a team of the given league, matching
// against the canonical name and all aliases. Longer names are preferred so
// "Los Angeles Lakers" wins over a bare "Lakers" alias of another entry.
func (t *Teams) CanonicalTeam(s, league string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	teams, ok := t.leagues[strings.ToLower(league)]
	if !ok {
		return "", false
	}

	norm := " " + text.Normalize(s) + " "
	best := ""
	bestLen := 0
	for canonical, aliases := range teams {
		names := append([]string{canonical}, aliases...)
		for _, name := range names {
			probe := " " + text.Normalize(name) + " "
			if strings.Contains(norm, probe) && len(probe) > bestLen {
				best = canonical
				bestLen = len(probe)
			}
		}
	}
	if best == "" {
		return "", false
	}
	return best, true
}

// IsSameTeam reports whether two market questions reference the same team
// of the given league.
func (t *Teams) IsSameTeam(questionA, questionB, league string) bool {
	a, okA := t.CanonicalTeam(questionA, league)
	b, okB := t.CanonicalTeam(questionB, league)
	return okA && okB && a == b
}
