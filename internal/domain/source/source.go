// Package source holds the immutable per-source retrieval configuration.
package source

import (
	"sort"

	"github.com/kailas-cloud/retrievex/internal/domain/search/filter"
)

// Endpoint is one resolved backend source.
type Endpoint struct {
	Name string
	URL  string
}

// Config holds optional per-source overrides. Zero value means "use the
// call-wide defaults for everything".
type Config struct {
	maxDocuments  *int
	minConfidence *float64
	filters       filter.Expression
}

// NewConfig creates a per-source config. Nil pointers fall back to the
// set-wide defaults at lookup time.
func NewConfig(maxDocuments *int, minConfidence *float64, filters filter.Expression) Config {
	return Config{maxDocuments: maxDocuments, minConfidence: minConfidence, filters: filters}
}

// Set is a source-name-keyed configuration set with call-wide defaults.
// Built once at aggregator construction and read-only afterwards, so it may
// be shared freely across concurrent dispatch tasks.
type Set struct {
	configs              map[string]Config
	defaultMaxDocuments  int
	defaultMinConfidence float64
}

// NewSet copies configs into an immutable set.
func NewSet(configs map[string]Config, defaultMaxDocuments int, defaultMinConfidence float64) Set {
	copied := make(map[string]Config, len(configs))
	for name, c := range configs {
		copied[name] = c
	}
	return Set{
		configs:              copied,
		defaultMaxDocuments:  defaultMaxDocuments,
		defaultMinConfidence: defaultMinConfidence,
	}
}

// MaxDocuments returns the effective document cap for a source.
func (s Set) MaxDocuments(name string) int {
	if c, ok := s.configs[name]; ok && c.maxDocuments != nil {
		return *c.maxDocuments
	}
	return s.defaultMaxDocuments
}

// MinConfidence returns the effective confidence threshold for a source.
func (s Set) MinConfidence(name string) float64 {
	if c, ok := s.configs[name]; ok && c.minConfidence != nil {
		return *c.minConfidence
	}
	return s.defaultMinConfidence
}

// Filters returns the structured filter for a source, empty if none is set.
// Filters travel on the outgoing request; predicate evaluation is the
// backend's job.
func (s Set) Filters(name string) filter.Expression {
	return s.configs[name].filters
}

// Names returns the configured source names in sorted order.
func (s Set) Names() []string {
	names := make([]string, 0, len(s.configs))
	for name := range s.configs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Selector chooses which sources to query: every registered source, or an
// explicit list of names.
type Selector struct {
	all   bool
	names []string
}

// All selects every source registered for the application.
func All() Selector { return Selector{all: true} }

// Names selects an explicit list of sources. Unknown names fail resolution.
func Names(names ...string) Selector {
	return Selector{names: append([]string(nil), names...)}
}

// IsAll reports whether the selector targets every registered source.
func (s Selector) IsAll() bool { return s.all || len(s.names) == 0 }

// List returns the explicitly selected names.
func (s Selector) List() []string { return s.names }
