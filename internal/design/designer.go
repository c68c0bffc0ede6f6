// Package design expands a bias-dimension catalog and a set of topic
// entities into the full factorial set of prompt instances.
//
// Rendering is deterministic: dimensions are iterated in lexicographic ID
// order, levels in declared order, topics in declared order. The composed
// prompt is
//
//	preamble \n\n fragment(dim_1) fragment(dim_2) ... \n\n question
//
// with "{entity}" in fragments and question replaced by the topic entity's
// display name. Identical catalog version + ground truth yield byte-identical
// prompts.
package design

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ppiankov/biaslens/internal/catalog"
	"github.com/ppiankov/biaslens/internal/model"
)

const minPromptLen = 20

// Designer produces prompt instances. Pure: no network or disk access.
type Designer struct {
	cat   *catalog.Catalog
	store *catalog.Store
}

// New creates a designer over a validated catalog and ground-truth store.
func New(cat *catalog.Catalog, store *catalog.Store) *Designer {
	return &Designer{cat: cat, store: store}
}

// Instances returns the complete, deduplicated instance set: one instance
// per (topic, valid level combination).
func (d *Designer) Instances() ([]model.PromptInstance, error) {
	dims := make([]catalog.Dimension, len(d.cat.Dimensions))
	copy(dims, d.cat.Dimensions)
	sort.Slice(dims, func(i, j int) bool { return dims[i].ID < dims[j].ID })

	for _, dim := range dims {
		if len(dim.Levels) < 2 {
			return nil, &catalog.ConfigurationError{
				Msg: fmt.Sprintf("dimension %q has fewer than two levels", dim.ID),
			}
		}
	}

	var out []model.PromptInstance
	for _, entity := range d.store.Entities {
		combos := enumerate(dims)
		for _, combo := range combos {
			if d.cat.Excluded(combo) {
				continue
			}
			inst, err := d.render(entity, dims, combo)
			if err != nil {
				return nil, err
			}
			out = append(out, inst)
		}
	}
	return out, nil
}

// enumerate walks the cartesian product of level IDs in deterministic order:
// an odometer over sorted dimensions, rightmost dimension fastest.
func enumerate(dims []catalog.Dimension) []map[string]string {
	total := 1
	for _, d := range dims {
		total *= len(d.Levels)
	}

	combos := make([]map[string]string, 0, total)
	idx := make([]int, len(dims))
	for {
		combo := make(map[string]string, len(dims))
		for i, d := range dims {
			combo[d.ID] = d.Levels[idx[i]].ID
		}
		combos = append(combos, combo)

		// Advance odometer.
		pos := len(dims) - 1
		for pos >= 0 {
			idx[pos]++
			if idx[pos] < len(dims[pos].Levels) {
				break
			}
			idx[pos] = 0
			pos--
		}
		if pos < 0 {
			return combos
		}
	}
}

func (d *Designer) render(entity catalog.Entity, dims []catalog.Dimension, combo map[string]string) (model.PromptInstance, error) {
	var b strings.Builder
	if strings.TrimSpace(d.cat.Preamble) != "" {
		b.WriteString(strings.TrimSpace(d.cat.Preamble))
		b.WriteString("\n\n")
	}

	hypotheses := make(map[string]string, len(dims))
	var notes []string
	for i, dim := range dims {
		level, _ := dim.Level(combo[dim.ID])
		fragment := strings.TrimSpace(expand(level.Fragment, entity.Name))
		if i > 0 {
			b.WriteString(" ")
		}
		b.WriteString(fragment)
		if dim.Hypothesis != "" {
			hypotheses[dim.ID] = dim.Hypothesis
		}
		if level.Notes != "" {
			notes = append(notes, level.Notes)
		}
	}

	b.WriteString("\n\n")
	b.WriteString(strings.TrimSpace(expand(d.cat.Question, entity.Name)))

	prompt := b.String()
	if len(strings.TrimSpace(prompt)) < minPromptLen {
		return model.PromptInstance{}, &catalog.ConfigurationError{
			Msg: fmt.Sprintf("degenerate prompt for topic %q, conditions %v", entity.ID, combo),
		}
	}

	return model.PromptInstance{
		ID:             instanceID(entity.ID, dims, combo),
		Schema:         model.SchemaVersion,
		Topic:          entity.ID,
		Conditions:     model.ConditionVector(combo),
		Hypotheses:     hypotheses,
		Prompt:         prompt,
		Notes:          strings.Join(notes, "; "),
		CatalogVersion: d.cat.Version,
	}, nil
}

func expand(template, entityName string) string {
	return strings.ReplaceAll(template, "{entity}", entityName)
}

// instanceID builds the deterministic logical key for a (topic, conditions)
// pair. The factorial product guarantees uniqueness within a run.
func instanceID(topic string, dims []catalog.Dimension, combo map[string]string) string {
	parts := make([]string, 0, len(dims)+1)
	parts = append(parts, topic)
	for _, d := range dims {
		parts = append(parts, d.ID+"="+combo[d.ID])
	}
	return strings.Join(parts, "__")
}
