// Package mapping resolves market pairs across the two venues. Three
// sources collaborate, tried in priority order:
//
//  1. Static catalog — exact slug/ticker lookups from market-mappings.json.
//  2. Dynamic templates — date patterns expanded forward and matched in
//     reverse (dynamic.go).
//  3. Sports-game synthesis — NBA slug ↔ ticker generation (games.go).
//
// Events no mapping covers fall through to the fuzzy matcher (fuzzy.go).
package mapping

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
)

// StaticMapping is one hand-curated pair from the catalog file.
type StaticMapping struct {
	Name         string `json:"name"`
	Category     string `json:"category"`
	Polymarket   string `json:"polymarket"`   // event slug
	Kalshi       string `json:"kalshi"`       // event ticker
	KalshiSeries string `json:"kalshiSeries"` // series ticker, optional
}

// dynamicJSON is the on-disk shape of a dynamic template entry.
type dynamicJSON struct {
	Name       string `json:"name"`
	Category   string `json:"category"`
	Frequency  string `json:"frequency"`
	Polymarket struct {
		Pattern string `json:"pattern"`
		Example string `json:"example"`
	} `json:"polymarket"`
	Kalshi struct {
		Series  string `json:"series"`
		Pattern string `json:"pattern"`
		Example string `json:"example"`
	} `json:"kalshi"`
}

type mappingsFile struct {
	Static  []StaticMapping `json:"static"`
	Dynamic []dynamicJSON   `json:"dynamic"`
}

// Catalog is a process-scoped holder for market-mappings.json. Slug lookups
// are case-folded to lowercase, ticker lookups to uppercase.
type Catalog struct {
	mu        sync.RWMutex
	path      string
	static    []StaticMapping
	bySlug    map[string]StaticMapping
	byTicker  map[string]StaticMapping
	templates []DynamicTemplate
}

// NewCatalog builds a holder from in-memory data (used by tests).
func NewCatalog(static []StaticMapping, templates []DynamicTemplate) *Catalog {
	c := &Catalog{}
	c.install(static, templates)
	return c
}

// LoadCatalog reads market-mappings.json and validates every dynamic
// template by compiling its patterns.
func LoadCatalog(path string) (*Catalog, error) {
	c := &Catalog{path: path}
	if err := c.Reload(); err != nil {
		return nil, err
	}
	return c, nil
}

// Reload re-reads the file the holder was loaded from.
func (c *Catalog) Reload() error {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return fmt.Errorf("read mappings file: %w", err)
	}

	var file mappingsFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse mappings file: %w", err)
	}

	templates := make([]DynamicTemplate, 0, len(file.Dynamic))
	for _, d := range file.Dynamic {
		tpl, err := NewDynamicTemplate(d.Name, d.Category, Frequency(d.Frequency),
			d.Polymarket.Pattern, d.Kalshi.Series, d.Kalshi.Pattern)
		if err != nil {
			return fmt.Errorf("template %q: %w", d.Name, err)
		}
		templates = append(templates, tpl)
	}

	c.install(file.Static, templates)
	return nil
}

func (c *Catalog) install(static []StaticMapping, templates []DynamicTemplate) {
	bySlug := make(map[string]StaticMapping, len(static))
	byTicker := make(map[string]StaticMapping, len(static))
	for _, m := range static {
		bySlug[strings.ToLower(m.Polymarket)] = m
		byTicker[strings.ToUpper(m.Kalshi)] = m
	}

	c.mu.Lock()
	c.static = static
	c.bySlug = bySlug
	c.byTicker = byTicker
	c.templates = templates
	c.mu.Unlock()
}

// StaticBySlug looks up a static mapping by Polymarket slug.
func (c *Catalog) StaticBySlug(slug string) (StaticMapping, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.bySlug[strings.ToLower(slug)]
	return m, ok
}

// StaticByTicker looks up a static mapping by Kalshi event ticker.
func (c *Catalog) StaticByTicker(ticker string) (StaticMapping, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.byTicker[strings.ToUpper(ticker)]
	return m, ok
}

// Static returns all static mappings.
func (c *Catalog) Static() []StaticMapping {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]StaticMapping, len(c.static))
	copy(out, c.static)
	return out
}

// Templates returns all dynamic templates.
func (c *Catalog) Templates() []DynamicTemplate {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]DynamicTemplate, len(c.templates))
	copy(out, c.templates)
	return out
}
