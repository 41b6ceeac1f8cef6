package mapping

import (
	"testing"
	"time"
)

func TestParseGameSlug(t *testing.T) {
	t.Parallel()
	game, ok := ParseGameSlug("nba-phx-mia-2026-01-13")
	if !ok {
		t.Fatal("ParseGameSlug failed")
	}
	if game.Away != "PHX" || game.Home != "MIA" {
		t.Errorf("teams = %s/%s, want PHX/MIA", game.Away, game.Home)
	}
	want := time.Date(2026, time.January, 13, 0, 0, 0, 0, time.UTC)
	if !game.Date.Equal(want) {
		t.Errorf("date = %v, want %v", game.Date, want)
	}

	if ticker := game.Ticker(); ticker != "KXNBAGAME-26JAN13PHXMIA" {
		t.Errorf("Ticker = %q, want KXNBAGAME-26JAN13PHXMIA", ticker)
	}
}

func TestParseGameTicker(t *testing.T) {
	t.Parallel()
	game, ok := ParseGameTicker("KXNBAGAME-26JAN13PHXMIA")
	if !ok {
		t.Fatal("ParseGameTicker failed")
	}
	if game.Away != "PHX" || game.Home != "MIA" {
		t.Errorf("teams = %s/%s, want PHX/MIA", game.Away, game.Home)
	}
	if slug := game.Slug(); slug != "nba-phx-mia-2026-01-13" {
		t.Errorf("Slug = %q, want nba-phx-mia-2026-01-13", slug)
	}
}

func TestParseGameSlugRejects(t *testing.T) {
	t.Parallel()
	for _, slug := range []string{
		"nfl-phx-mia-2026-01-13",
		"nba-phx-mia-2026-1-13",
		"nba-phx-2026-01-13",
		"nba-phx-mia-2026-13-45",
	} {
		if _, ok := ParseGameSlug(slug); ok {
			t.Errorf("ParseGameSlug(%q) succeeded, want failure", slug)
		}
	}
}

func TestGameName(t *testing.T) {
	t.Parallel()
	teams := NewTeams(nil, map[string]string{"PHX": "Phoenix Suns", "MIA": "Miami Heat"})

	game := Game{Away: "PHX", Home: "MIA"}
	name, ok := game.Name(teams)
	if !ok || name != "Phoenix Suns @ Miami Heat" {
		t.Errorf("Name = %q ok=%v", name, ok)
	}

	unknown := Game{Away: "ZZZ", Home: "MIA"}
	if _, ok := unknown.Name(teams); ok {
		t.Error("Name should fail for unknown code")
	}
}
