package design

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ppiankov/biaslens/internal/catalog"
)

func testCatalog() *catalog.Catalog {
	return &catalog.Catalog{
		Version:  "v1",
		Preamble: "You are given season statistics. Answer briefly using only the statistics.",
		Question: "Briefly describe {entity}'s performance.",
		Dimensions: []catalog.Dimension{
			{
				ID:         "framing",
				Hypothesis: "framing shifts tone",
				Levels: []catalog.Level{
					{ID: "positive", Fragment: "{entity} is developing as the primary option."},
					{ID: "negative", Fragment: "{entity} has had issues with shot selection."},
					{ID: "neutral", Fragment: "Consider {entity}'s minutes and scoring."},
				},
			},
			{
				ID: "priming",
				Levels: []catalog.Level{
					{ID: "none", Fragment: "Use all available statistics."},
					{ID: "cause_a", Fragment: "The main issue was turnovers."},
				},
			},
		},
	}
}

func testStore() *catalog.Store {
	return &catalog.Store{
		Entities: []catalog.Entity{
			{ID: "player_a", Name: "Player A", Metrics: map[string]float64{"score": 42}},
			{ID: "player_b", Name: "Player B", Metrics: map[string]float64{"rpg": 7.5}},
		},
	}
}

func TestDesigner_FactorialCount(t *testing.T) {
	instances, err := New(testCatalog(), testStore()).Instances()
	if err != nil {
		t.Fatalf("Instances: %v", err)
	}

	// 3 framing levels x 2 priming levels x 2 topics.
	if len(instances) != 12 {
		t.Fatalf("expected 12 instances, got %d", len(instances))
	}

	seen := make(map[string]bool)
	for _, inst := range instances {
		if seen[inst.ID] {
			t.Errorf("duplicate instance id %q", inst.ID)
		}
		seen[inst.ID] = true

		if len(inst.Conditions) != 2 {
			t.Errorf("instance %s has %d conditions, want 2", inst.ID, len(inst.Conditions))
		}
		if inst.CatalogVersion != "v1" {
			t.Errorf("instance %s catalog version = %q", inst.ID, inst.CatalogVersion)
		}
	}
}

func TestDesigner_Exclusions(t *testing.T) {
	cat := testCatalog()
	cat.Exclusions = []catalog.Exclusion{
		{When: map[string]string{"framing": "negative", "priming": "none"}},
	}

	instances, err := New(cat, testStore()).Instances()
	if err != nil {
		t.Fatalf("Instances: %v", err)
	}

	// One combination excluded per topic.
	if len(instances) != 10 {
		t.Fatalf("expected 10 instances, got %d", len(instances))
	}
	for _, inst := range instances {
		if inst.Conditions["framing"] == "negative" && inst.Conditions["priming"] == "none" {
			t.Errorf("excluded combination rendered: %s", inst.ID)
		}
	}
}

func TestDesigner_Deterministic(t *testing.T) {
	first, err := New(testCatalog(), testStore()).Instances()
	if err != nil {
		t.Fatalf("Instances: %v", err)
	}
	second, err := New(testCatalog(), testStore()).Instances()
	if err != nil {
		t.Fatalf("Instances: %v", err)
	}

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("re-run differs (-first +second):\n%s", diff)
	}
}

func TestDesigner_PromptComposition(t *testing.T) {
	instances, err := New(testCatalog(), testStore()).Instances()
	if err != nil {
		t.Fatalf("Instances: %v", err)
	}

	var inst string
	for _, i := range instances {
		if i.ID == "player_a__framing=positive__priming=none" {
			inst = i.Prompt
		}
	}
	if inst == "" {
		t.Fatal("expected instance player_a__framing=positive__priming=none")
	}

	for _, want := range []string{
		"You are given season statistics.",
		"Player A is developing as the primary option.",
		"Use all available statistics.",
		"Briefly describe Player A's performance.",
	} {
		if !strings.Contains(inst, want) {
			t.Errorf("prompt missing %q:\n%s", want, inst)
		}
	}
	if strings.Contains(inst, "{entity}") {
		t.Errorf("unexpanded placeholder in prompt:\n%s", inst)
	}

	// Fragments compose in sorted dimension order: framing before priming.
	if strings.Index(inst, "developing") > strings.Index(inst, "available statistics") {
		t.Errorf("fragments out of order:\n%s", inst)
	}
}

func TestDesigner_SingleLevelDimension(t *testing.T) {
	cat := testCatalog()
	cat.Dimensions[1].Levels = cat.Dimensions[1].Levels[:1]

	_, err := New(cat, testStore()).Instances()
	if err == nil {
		t.Fatal("expected error for single-level dimension")
	}
	if !catalog.IsConfigurationError(err) {
		t.Errorf("expected ConfigurationError, got %T: %v", err, err)
	}
}
