package analyze

import (
	"math"
	"testing"

	"github.com/ppiankov/biaslens/internal/catalog"
	"github.com/ppiankov/biaslens/internal/model"
)

func testCatalog() *catalog.Catalog {
	return &catalog.Catalog{
		Version:  "v1",
		Question: "q",
		Dimensions: []catalog.Dimension{
			{
				ID:         "framing",
				Hypothesis: "framing shifts tone",
				Levels: []catalog.Level{
					{ID: "positive", Fragment: "p"},
					{ID: "negative", Fragment: "n"},
				},
			},
			{
				ID: "priming",
				Levels: []catalog.Level{
					{ID: "none", Fragment: "x"},
					{ID: "cause_a", Fragment: "y"},
				},
			},
		},
	}
}

func signal(topic string, conds model.ConditionVector, tone float64, focus map[string]float64) model.SignalVector {
	if focus == nil {
		focus = map[string]float64{}
	}
	return model.SignalVector{
		Schema:     model.SchemaVersion,
		InstanceID: topic + "__" + conds.Key(),
		Topic:      topic,
		Conditions: conds,
		Tone:       tone,
		Focus:      focus,
	}
}

func defaultCfg() model.AnalysisConfig {
	return model.AnalysisConfig{MinSamples: 2, Materiality: 0.15}
}

func TestAnalyzer_Symmetry(t *testing.T) {
	a := New(defaultCfg(), testCatalog())

	signals := []model.SignalVector{
		signal("player_a", model.ConditionVector{"framing": "positive", "priming": "none"}, 0.6, nil),
		signal("player_a", model.ConditionVector{"framing": "positive", "priming": "none"}, 0.4, nil),
		signal("player_a", model.ConditionVector{"framing": "negative", "priming": "none"}, -0.5, nil),
		signal("player_a", model.ConditionVector{"framing": "negative", "priming": "none"}, -0.3, nil),
	}

	groups := make(map[string][]model.SignalVector)
	conds := make(map[string]model.ConditionVector)
	for _, sv := range signals {
		key := sv.Conditions.Key()
		groups[key] = append(groups[key], sv)
		conds[key] = sv.Conditions
	}

	tone := func(sv model.SignalVector) float64 { return sv.Tone }
	forward := a.contrastSignal(groups, conds, "framing", "positive", "negative", tone)
	backward := a.contrastSignal(groups, conds, "framing", "negative", "positive", tone)

	if math.Abs(forward.delta+backward.delta) > 1e-9 {
		t.Errorf("effect(X->Y) = %v, effect(Y->X) = %v; want negations", forward.delta, backward.delta)
	}
	if forward.delta >= 0 {
		t.Errorf("positive->negative tone delta = %v, want negative", forward.delta)
	}
}

func TestAnalyzer_ControlledContrast(t *testing.T) {
	a := New(defaultCfg(), testCatalog())

	// Tone shifts with framing only when priming=none; with priming=cause_a
	// there is no partner group, so those samples must not contribute.
	signals := []model.SignalVector{
		signal("player_a", model.ConditionVector{"framing": "positive", "priming": "none"}, 0.5, nil),
		signal("player_a", model.ConditionVector{"framing": "negative", "priming": "none"}, -0.5, nil),
		signal("player_a", model.ConditionVector{"framing": "positive", "priming": "cause_a"}, 0.9, nil),
	}

	groups := make(map[string][]model.SignalVector)
	conds := make(map[string]model.ConditionVector)
	for _, sv := range signals {
		key := sv.Conditions.Key()
		groups[key] = append(groups[key], sv)
		conds[key] = sv.Conditions
	}

	tone := func(sv model.SignalVector) float64 { return sv.Tone }
	c := a.contrastSignal(groups, conds, "framing", "positive", "negative", tone)

	if c.pairs != 1 {
		t.Fatalf("matched pairs = %d, want 1 (unmatched group must be dropped)", c.pairs)
	}
	if math.Abs(c.delta-(-1.0)) > 1e-9 {
		t.Errorf("delta = %v, want -1 (0.9 sample confounds if included)", c.delta)
	}
}

func TestAnalyzer_MaterialityThreshold(t *testing.T) {
	cfg := defaultCfg()
	cfg.Materiality = 0.5
	a := New(cfg, testCatalog())

	signals := []model.SignalVector{
		signal("player_a", model.ConditionVector{"framing": "positive", "priming": "none"}, 0.1, nil),
		signal("player_a", model.ConditionVector{"framing": "negative", "priming": "none"}, -0.1, nil),
	}

	// |delta| = 0.2 < 0.5: nothing material.
	if findings := a.Analyze(signals); len(findings) != 0 {
		t.Errorf("expected no findings below materiality, got %+v", findings)
	}

	cfg.Materiality = 0.15
	a = New(cfg, testCatalog())
	findings := a.Analyze(signals)
	if len(findings) != 1 {
		t.Fatalf("expected 1 tone finding, got %d", len(findings))
	}
	f := findings[0]
	if f.Signal != model.SignalTone || f.Entity != "player_a" || f.Dimension != "framing" {
		t.Errorf("unexpected finding: %+v", f)
	}
	if f.Hypothesis != "framing shifts tone" {
		t.Errorf("hypothesis = %q", f.Hypothesis)
	}
}

func TestAnalyzer_LowConfidenceSmallGroups(t *testing.T) {
	a := New(defaultCfg(), testCatalog())

	signals := []model.SignalVector{
		signal("player_a", model.ConditionVector{"framing": "positive", "priming": "none"}, 0.5, nil),
		signal("player_a", model.ConditionVector{"framing": "negative", "priming": "none"}, -0.5, nil),
	}

	findings := a.Analyze(signals)
	if len(findings) != 1 {
		t.Fatalf("expected 1 finding, got %d", len(findings))
	}
	if findings[0].Confidence != model.ConfidenceLow {
		t.Errorf("confidence = %s, want low (groups of 1 < min samples 2)", findings[0].Confidence)
	}
}

func TestAnalyzer_FocusFindings(t *testing.T) {
	a := New(defaultCfg(), testCatalog())

	signals := []model.SignalVector{
		signal("player_a", model.ConditionVector{"framing": "positive", "priming": "none"}, 0,
			map[string]float64{"player_a": 1.0, "player_b": 0.0}),
		signal("player_a", model.ConditionVector{"framing": "negative", "priming": "none"}, 0,
			map[string]float64{"player_a": 0.4, "player_b": 0.6}),
	}

	findings := a.Analyze(signals)

	var focusEntities []string
	for _, f := range findings {
		if f.Signal == model.SignalFocus {
			focusEntities = append(focusEntities, f.Entity)
		}
	}
	if len(focusEntities) != 2 {
		t.Fatalf("expected focus findings for both entities, got %v", focusEntities)
	}
}
