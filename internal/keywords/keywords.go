// Package keywords holds the table of filter keywords known per entity type.
// The filter parser itself is entity agnostic; the table is consulted by
// callers that offer or validate keywords, e.g. sort columns.
package keywords

import (
	_ "embed"
	"fmt"
	"io"
	"os"
	"slices"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultTable []byte

// Keyword describes one filter keyword of an entity type.
type Keyword struct {
	Name        string `yaml:"name" json:"name"`
	DisplayName string `yaml:"display" json:"display_name"`
	Sortable    bool   `yaml:"sortable,omitempty" json:"sortable"`
}

type table struct {
	Entities map[string][]Keyword `yaml:"entities"`
}

// Registry maps entity types to their keywords. It is read-only after
// loading and safe for concurrent use.
type Registry struct {
	entities map[string][]Keyword
}

// Default returns the registry built into the binary.
func Default() *Registry {
	r, err := Parse(defaultTable)
	if err != nil {
		panic(fmt.Sprintf("keywords: embedded table: %v", err))
	}
	return r
}

// Parse reads a YAML keyword table.
func Parse(data []byte) (*Registry, error) {
	var t table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse keyword table: %w", err)
	}
	for entity, kws := range t.Entities {
		seen := make(map[string]bool, len(kws))
		for i, kw := range kws {
			if kw.Name == "" {
				return nil, fmt.Errorf("entity %q: keyword %d has no name", entity, i)
			}
			if seen[kw.Name] {
				return nil, fmt.Errorf("entity %q: duplicate keyword %q", entity, kw.Name)
			}
			seen[kw.Name] = true
		}
	}
	if t.Entities == nil {
		t.Entities = map[string][]Keyword{}
	}
	return &Registry{entities: t.Entities}, nil
}

// Load reads a YAML keyword table from r.
func Load(r io.Reader) (*Registry, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read keyword table: %w", err)
	}
	return Parse(data)
}

// LoadFile reads a YAML keyword table from path.
func LoadFile(path string) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}

// EntityTypes returns the known entity types, sorted.
func (r *Registry) EntityTypes() []string {
	types := make([]string, 0, len(r.entities))
	for t := range r.entities {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Lookup returns the keywords of entity in table order.
func (r *Registry) Lookup(entity string) ([]Keyword, bool) {
	kws, ok := r.entities[entity]
	return slices.Clone(kws), ok
}

// Has reports whether entity is a known entity type.
func (r *Registry) Has(entity string) bool {
	_, ok := r.entities[entity]
	return ok
}

// IsSortable reports whether keyword may be used to sort entity lists.
func (r *Registry) IsSortable(entity, keyword string) bool {
	for _, kw := range r.entities[entity] {
		if kw.Name == keyword {
			return kw.Sortable
		}
	}
	return false
}
