package catalog

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

const validCatalog = `
version: "test-v1"
preamble: "You are given season statistics for a team and its players."
question: "Briefly describe {entity}'s performance."
dimensions:
  - id: framing
    hypothesis: "framing shifts tone"
    levels:
      - id: positive
        fragment: "{entity} is developing as the primary option."
      - id: negative
        fragment: "{entity} has had issues with shot selection."
exclusions:
  - when:
      framing: negative
`

func TestLoadCatalog_Valid(t *testing.T) {
	path := writeFile(t, "catalog.yaml", validCatalog)

	cat, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	if cat.Version != "test-v1" {
		t.Errorf("version = %q, want test-v1", cat.Version)
	}
	if len(cat.Dimensions) != 1 {
		t.Fatalf("expected 1 dimension, got %d", len(cat.Dimensions))
	}
	if got := len(cat.Dimensions[0].Levels); got != 2 {
		t.Errorf("expected 2 levels, got %d", got)
	}
}

func TestLoadCatalog_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name: "single level",
			content: `
version: v1
question: "q about {entity}"
dimensions:
  - id: framing
    levels:
      - id: only
        fragment: "{entity} text"
`,
		},
		{
			name: "missing version",
			content: `
question: "q about {entity}"
dimensions:
  - id: framing
    levels:
      - id: a
        fragment: "x"
      - id: b
        fragment: "y"
`,
		},
		{
			name: "empty fragment",
			content: `
version: v1
question: "q"
dimensions:
  - id: framing
    levels:
      - id: a
        fragment: "x"
      - id: b
        fragment: "   "
`,
		},
		{
			name: "duplicate level",
			content: `
version: v1
question: "q"
dimensions:
  - id: framing
    levels:
      - id: a
        fragment: "x"
      - id: a
        fragment: "y"
`,
		},
		{
			name: "exclusion references unknown dimension",
			content: `
version: v1
question: "q"
dimensions:
  - id: framing
    levels:
      - id: a
        fragment: "x"
      - id: b
        fragment: "y"
exclusions:
  - when:
      priming: none
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "catalog.yaml", tt.content)
			_, err := LoadCatalog(path)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !IsConfigurationError(err) {
				t.Errorf("expected ConfigurationError, got %T: %v", err, err)
			}
		})
	}
}

func TestCatalog_Excluded(t *testing.T) {
	path := writeFile(t, "catalog.yaml", validCatalog)
	cat, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}

	if !cat.Excluded(map[string]string{"framing": "negative"}) {
		t.Error("expected framing=negative to be excluded")
	}
	if cat.Excluded(map[string]string{"framing": "positive"}) {
		t.Error("framing=positive should not be excluded")
	}
}

const validStore = `
entities:
  - id: player_a
    name: "Player A"
    aliases: ["the primary scorer"]
    metrics:
      score: 42
      fg_pct: 0.41
metric_aliases:
  fg_pct: ["field-goal percentage", "fg%"]
`

func TestLoadStore_Valid(t *testing.T) {
	path := writeFile(t, "truth.yaml", validStore)

	s, err := LoadStore(path)
	if err != nil {
		t.Fatalf("LoadStore: %v", err)
	}

	v, ok := s.Lookup("player_a", "score")
	if !ok || v != 42 {
		t.Errorf("Lookup(player_a, score) = %v, %v; want 42, true", v, ok)
	}
	if _, ok := s.Lookup("player_a", "rpg"); ok {
		t.Error("expected missing metric to report not found")
	}
	if _, ok := s.Lookup("player_z", "score"); ok {
		t.Error("expected missing entity to report not found")
	}
}

func TestStore_MetricSurfaceForms(t *testing.T) {
	path := writeFile(t, "truth.yaml", validStore)
	s, err := LoadStore(path)
	if err != nil {
		t.Fatalf("LoadStore: %v", err)
	}

	forms, canonical := s.MetricSurfaceForms()
	if canonical["field-goal percentage"] != "fg_pct" {
		t.Errorf("alias mapping = %q, want fg_pct", canonical["field-goal percentage"])
	}
	if canonical["score"] != "score" {
		t.Errorf("canonical mapping = %q, want score", canonical["score"])
	}
	// Longest-first so multi-word aliases win over short ones.
	if forms[0] != "field-goal percentage" {
		t.Errorf("first form = %q, want longest", forms[0])
	}
}

func TestLoadStore_Invalid(t *testing.T) {
	path := writeFile(t, "truth.yaml", "entities: []\n")
	_, err := LoadStore(path)
	if err == nil {
		t.Fatal("expected error for empty store")
	}
	if !IsConfigurationError(err) {
		t.Errorf("expected ConfigurationError, got %T", err)
	}
}
