package geo

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// base32Alphabet is the geohash character set. Appending one character to a
// prefix narrows the cell to roughly 1/32 of its area.
const base32Alphabet = "0123456789bcdefghjkmnpqrstuvwxyz"

// fallbackPrefix covers central Seoul and is used for cities missing from
// the table, so an unknown city still yields a non-empty search.
const fallbackPrefix = "wydm"

// defaultCityPrefixes maps lowercase city names to their base geohash
// prefixes. The search endpoint caps results per cell, so dense metros get
// several prefixes and every prefix is additionally suffix-expanded.
var defaultCityPrefixes = map[string][]string{
	"seoul":   {"wydm", "wydq"},
	"busan":   {"wy7b"},
	"incheon": {"wydj"},
	"daegu":   {"wy7e"},
	"daejeon": {"wy6r"},
	"gwangju": {"wy1z"},
	"ulsan":   {"wy7x"},
	"suwon":   {"wydh"},
}

// Index resolves city names to search cells.
type Index struct {
	prefixes map[string][]string
}

// DefaultIndex returns an Index backed by the built-in city table.
func DefaultIndex() *Index {
	return &Index{prefixes: defaultCityPrefixes}
}

type cityFile struct {
	Cities map[string][]string `yaml:"cities"`
}

// LoadIndex reads a YAML city table and merges it over the built-in
// defaults, so operators can extend coverage without a rebuild.
//
//	cities:
//	  seoul: [wydm, wydq]
//	  jeju:  [wvdp]
func LoadIndex(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("geo: read city table: %w", err)
	}

	var f cityFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("geo: parse city table: %w", err)
	}

	merged := make(map[string][]string, len(defaultCityPrefixes)+len(f.Cities))
	for city, p := range defaultCityPrefixes {
		merged[city] = p
	}
	for city, p := range f.Cities {
		if len(p) > 0 {
			merged[strings.ToLower(city)] = p
		}
	}
	return &Index{prefixes: merged}, nil
}

// Prefixes returns the base geohash prefixes for a city. Unknown cities
// fall back to a single default prefix.
func (ix *Index) Prefixes(city string) []string {
	if p, ok := ix.prefixes[strings.ToLower(strings.TrimSpace(city))]; ok && len(p) > 0 {
		return p
	}
	return []string{fallbackPrefix}
}

// Cells expands each base prefix by the empty suffix plus every geohash
// base-32 character, yielding the concrete search cells for a city. Cells
// may overlap geographically; discovery deduplicates downstream.
func (ix *Index) Cells(city string) []string {
	prefixes := ix.Prefixes(city)
	cells := make([]string, 0, len(prefixes)*(len(base32Alphabet)+1))
	for _, prefix := range prefixes {
		cells = append(cells, prefix)
		for _, c := range base32Alphabet {
			cells = append(cells, prefix+string(c))
		}
	}
	return cells
}
