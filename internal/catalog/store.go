package catalog

import (
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Entity is one anonymized subject with its ground-truth metrics. Immutable
// once loaded.
type Entity struct {
	ID      string             `yaml:"id" json:"id"`
	Name    string             `yaml:"name" json:"name"`
	Aliases []string           `yaml:"aliases,omitempty" json:"aliases,omitempty"`
	Metrics map[string]float64 `yaml:"metrics" json:"metrics"`
}

// Mentions returns every surface form that counts as a mention of the
// entity: its display name plus declared aliases.
func (e Entity) Mentions() []string {
	out := make([]string, 0, len(e.Aliases)+1)
	out = append(out, e.Name)
	out = append(out, e.Aliases...)
	return out
}

// Store is the read-only ground-truth store: canonical numeric facts keyed
// by (entity, metric), plus the metric surface forms the scorer matches in
// free text.
type Store struct {
	Entities      []Entity            `yaml:"entities"`
	MetricAliases map[string][]string `yaml:"metric_aliases,omitempty"`
}

// LoadStore reads and validates a ground-truth file.
func LoadStore(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, configErrorf("read ground truth: %v", err)
	}

	var s Store
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, configErrorf("parse ground truth %s: %v", path, err)
	}

	if len(s.Entities) == 0 {
		return nil, configErrorf("ground truth %s declares no entities", path)
	}
	seen := make(map[string]bool)
	for _, e := range s.Entities {
		if e.ID == "" {
			return nil, configErrorf("ground truth entity with empty id")
		}
		if seen[e.ID] {
			return nil, configErrorf("duplicate ground truth entity %q", e.ID)
		}
		seen[e.ID] = true
		if e.Name == "" {
			return nil, configErrorf("entity %q has no display name", e.ID)
		}
		if len(e.Metrics) == 0 {
			return nil, configErrorf("entity %q has no metrics", e.ID)
		}
	}
	for metric, aliases := range s.MetricAliases {
		for _, a := range aliases {
			if strings.TrimSpace(a) == "" {
				return nil, configErrorf("metric %q has an empty alias", metric)
			}
		}
	}

	return &s, nil
}

// Entity returns the entity with the given ID.
func (s *Store) Entity(id string) (Entity, bool) {
	for _, e := range s.Entities {
		if e.ID == id {
			return e, true
		}
	}
	return Entity{}, false
}

// Lookup returns the ground-truth value for (subject, metric). The second
// return is false when no matching entry exists (a validation gap, not an
// error).
func (s *Store) Lookup(subject, metric string) (float64, bool) {
	e, ok := s.Entity(subject)
	if !ok {
		return 0, false
	}
	v, ok := e.Metrics[metric]
	return v, ok
}

// MetricNames returns every canonical metric name in the store, sorted.
func (s *Store) MetricNames() []string {
	set := make(map[string]bool)
	for _, e := range s.Entities {
		for m := range e.Metrics {
			set[m] = true
		}
	}
	out := make([]string, 0, len(set))
	for m := range set {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// MetricSurfaceForms maps every lowercase surface form (canonical names and
// declared aliases) to its canonical metric name. Longer forms should be
// matched first by callers; the returned forms slice is sorted longest-first
// for that purpose.
func (s *Store) MetricSurfaceForms() (forms []string, canonical map[string]string) {
	canonical = make(map[string]string)
	for _, m := range s.MetricNames() {
		canonical[strings.ToLower(m)] = m
	}
	for m, aliases := range s.MetricAliases {
		for _, a := range aliases {
			canonical[strings.ToLower(a)] = m
		}
	}
	forms = make([]string, 0, len(canonical))
	for f := range canonical {
		forms = append(forms, f)
	}
	sort.Slice(forms, func(i, j int) bool {
		if len(forms[i]) != len(forms[j]) {
			return len(forms[i]) > len(forms[j])
		}
		return forms[i] < forms[j]
	})
	return forms, canonical
}
