package model

import (
	"sort"
	"strings"
)

// SchemaVersion is stamped on every persisted record so later stages can
// reject files written by an incompatible build.
const SchemaVersion = 1

// ConditionVector maps a bias-dimension ID to the level applied in one
// prompt instance.
type ConditionVector map[string]string

// Key returns a canonical string form (dimensions sorted by ID), usable as a
// grouping key.
func (cv ConditionVector) Key() string {
	dims := make([]string, 0, len(cv))
	for d := range cv {
		dims = append(dims, d)
	}
	sort.Strings(dims)

	parts := make([]string, 0, len(dims))
	for _, d := range dims {
		parts = append(parts, d+"="+cv[d])
	}
	return strings.Join(parts, ",")
}

// Clone returns an independent copy.
func (cv ConditionVector) Clone() ConditionVector {
	out := make(ConditionVector, len(cv))
	for d, l := range cv {
		out[d] = l
	}
	return out
}

// With returns a copy with one dimension set to a different level.
func (cv ConditionVector) With(dim, level string) ConditionVector {
	out := cv.Clone()
	out[dim] = level
	return out
}

// PromptInstance is one fully rendered prompt plus the condition vector it
// was rendered under. Immutable after creation.
type PromptInstance struct {
	ID             string            `json:"id"`
	Schema         int               `json:"schema_version"`
	Topic          string            `json:"topic"` // entity ID the prompt concerns
	Conditions     ConditionVector   `json:"conditions"`
	Hypotheses     map[string]string `json:"hypotheses,omitempty"` // dimension ID -> hypothesis label
	Prompt         string            `json:"prompt"`
	Notes          string            `json:"notes,omitempty"`
	CatalogVersion string            `json:"catalog_version"`
}

// LogicalKey implements store.Record.
func (p PromptInstance) LogicalKey() string { return p.ID }

// SchemaVersion implements store.Record.
func (p PromptInstance) SchemaVersion() int { return p.Schema }
