// Package catalog is the read-only (market, ticker) -> {name, active}
// lookup used to validate watchlist additions and resolve symbol search
// (spec.md §2 item 2, §6 "GET /v1/symbols/search"). Loading the seed
// data is an external collaborator's job (spec.md §1); this package
// only defines the in-memory lookup contract and a YAML-backed loader
// for tests and local runs.
package catalog

import (
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/kisuya/reasoncard/internal/domain"
)

// Entry is one catalog row.
type Entry struct {
	Market domain.Market `yaml:"market"`
	Ticker string        `yaml:"ticker"`
	Name   string        `yaml:"name"`
	Active bool          `yaml:"active"`
}

type key struct {
	market domain.Market
	ticker string
}

// Catalog is immutable after Load; reads never block.
type Catalog struct {
	mu      sync.RWMutex
	entries map[key]Entry
	version string
}

func New(version string, entries []Entry) *Catalog {
	m := make(map[key]Entry, len(entries))
	for _, e := range entries {
		m[key{e.Market, strings.ToUpper(e.Ticker)}] = e
	}
	return &Catalog{entries: m, version: version}
}

// LoadYAML reads a seed file shaped as `{version: string, entries: [...]}`.
func LoadYAML(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc struct {
		Version string  `yaml:"version"`
		Entries []Entry `yaml:"entries"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return New(doc.Version, doc.Entries), nil
}

// Version is the catalog_version returned alongside search results
// (spec.md §6).
func (c *Catalog) Version() string { return c.version }

// Lookup resolves (market, ticker); ok is false for unknown symbols. An
// inactive symbol is returned with ok true and Active false, so callers
// validating a watchlist add check ok && Active.
func (c *Catalog) Lookup(market domain.Market, ticker string) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key{market, strings.ToUpper(ticker)}]
	return e, ok
}

// Search implements the prefix/substring lookup behind
// GET /v1/symbols/search?q&market (spec.md §6, q length in [2,20]).
func (c *Catalog) Search(q string, market domain.Market) []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	q = strings.ToUpper(strings.TrimSpace(q))
	var out []Entry
	for _, e := range c.entries {
		if market != "" && e.Market != market {
			continue
		}
		if strings.Contains(e.Ticker, q) || strings.Contains(strings.ToUpper(e.Name), q) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		pi, pj := strings.HasPrefix(out[i].Ticker, q), strings.HasPrefix(out[j].Ticker, q)
		if pi != pj {
			return pi
		}
		return out[i].Ticker < out[j].Ticker
	})
	return out
}
