package catalog

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Level is one discrete value of a bias dimension. The fragment is the text
// injected into the prompt when this level is active; "{entity}" expands to
// the topic entity's display name.
type Level struct {
	ID       string `yaml:"id"`
	Fragment string `yaml:"fragment"`
	Notes    string `yaml:"notes,omitempty"`
}

// Dimension is one controllable wording axis with its ordered levels.
type Dimension struct {
	ID         string  `yaml:"id"`
	Hypothesis string  `yaml:"hypothesis,omitempty"`
	Levels     []Level `yaml:"levels"`
}

// Level returns the level with the given ID, if declared.
func (d Dimension) Level(id string) (Level, bool) {
	for _, l := range d.Levels {
		if l.ID == id {
			return l, true
		}
	}
	return Level{}, false
}

// Exclusion declares a combination of dimension levels that must not be
// rendered. A combination is excluded when every listed assignment matches.
type Exclusion struct {
	When map[string]string `yaml:"when"`
}

// Catalog is the declarative bias-dimension input, loaded once per run and
// read-only afterwards.
type Catalog struct {
	Version    string      `yaml:"version"`
	Preamble   string      `yaml:"preamble"`
	Question   string      `yaml:"question"`
	Dimensions []Dimension `yaml:"dimensions"`
	Exclusions []Exclusion `yaml:"exclusions,omitempty"`
}

// Dimension returns the dimension with the given ID, if declared.
func (c *Catalog) Dimension(id string) (Dimension, bool) {
	for _, d := range c.Dimensions {
		if d.ID == id {
			return d, true
		}
	}
	return Dimension{}, false
}

// LoadCatalog reads and validates a catalog file.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, configErrorf("read catalog: %v", err)
	}

	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, configErrorf("parse catalog %s: %v", path, err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return &c, nil
}

// Validate checks the catalog invariants. It returns a ConfigurationError on
// the first violation found.
func (c *Catalog) Validate() error {
	if c.Version == "" {
		return configErrorf("catalog version is required (renderings are keyed by it)")
	}
	if len(c.Dimensions) == 0 {
		return configErrorf("catalog declares no dimensions")
	}
	if strings.TrimSpace(c.Question) == "" {
		return configErrorf("catalog question is empty")
	}

	seenDims := make(map[string]bool)
	for _, d := range c.Dimensions {
		if d.ID == "" {
			return configErrorf("dimension with empty id")
		}
		if seenDims[d.ID] {
			return configErrorf("duplicate dimension %q", d.ID)
		}
		seenDims[d.ID] = true

		if len(d.Levels) < 2 {
			return configErrorf("dimension %q has %d level(s), need at least 2 to contrast", d.ID, len(d.Levels))
		}
		seenLevels := make(map[string]bool)
		for _, l := range d.Levels {
			if l.ID == "" {
				return configErrorf("dimension %q has a level with empty id", d.ID)
			}
			if seenLevels[l.ID] {
				return configErrorf("dimension %q declares level %q twice", d.ID, l.ID)
			}
			seenLevels[l.ID] = true
			if strings.TrimSpace(l.Fragment) == "" {
				return configErrorf("dimension %q level %q has an empty fragment", d.ID, l.ID)
			}
		}
	}

	for i, ex := range c.Exclusions {
		if len(ex.When) == 0 {
			return configErrorf("exclusion %d is empty", i)
		}
		for dim, level := range ex.When {
			d, ok := c.Dimension(dim)
			if !ok {
				return configErrorf("exclusion %d references unknown dimension %q", i, dim)
			}
			if _, ok := d.Level(level); !ok {
				return configErrorf("exclusion %d references unknown level %q of dimension %q", i, level, dim)
			}
		}
	}

	return nil
}

// Excluded reports whether a full condition assignment matches any declared
// exclusion rule.
func (c *Catalog) Excluded(conditions map[string]string) bool {
	for _, ex := range c.Exclusions {
		matched := true
		for dim, level := range ex.When {
			if conditions[dim] != level {
				matched = false
				break
			}
		}
		if matched {
			return true
		}
	}
	return false
}
