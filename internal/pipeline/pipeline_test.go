package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ppiankov/biaslens/internal/llm"
	"github.com/ppiankov/biaslens/internal/model"
	"github.com/ppiankov/biaslens/internal/store"
)

const e2eCatalog = `
version: e2e-v1
preamble: "You are given season statistics for a basketball team."
question: "Briefly describe {entity}'s performance this season."
dimensions:
  - id: framing
    hypothesis: "framing shifts tone"
    levels:
      - id: positive
        fragment: "{entity} is developing well as the primary scoring option."
      - id: negative
        fragment: "{entity} has struggled with shot selection this season."
`

const e2eGroundTruth = `
entities:
  - id: player_a
    name: "Player A"
    metrics:
      score: 42
`

func newTestPipeline(t *testing.T) *Pipeline {
	t.Helper()
	dir := t.TempDir()

	catalogPath := filepath.Join(dir, "catalog.yaml")
	truthPath := filepath.Join(dir, "truth.yaml")
	if err := os.WriteFile(catalogPath, []byte(e2eCatalog), 0644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	if err := os.WriteFile(truthPath, []byte(e2eGroundTruth), 0644); err != nil {
		t.Fatalf("write ground truth: %v", err)
	}

	cfg := model.DefaultConfig()
	cfg.Output.Dir = filepath.Join(dir, "out")
	cfg.Cache.Enabled = false
	cfg.Concurrency.Workers = 2

	p, err := New(cfg, catalogPath, truthPath, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	p.SetProvider(llm.NewScriptedFromMap(map[string]string{
		"player_a__framing=positive": "Player A is an efficient and reliable scorer. Their score: 42.",
		"player_a__framing=negative": "Player A is inefficient and struggling. Their score: 30.",
	}))
	return p
}

func TestPipeline_EndToEnd(t *testing.T) {
	p := newTestPipeline(t)
	ctx := context.Background()

	n, err := p.Design()
	if err != nil {
		t.Fatalf("Design: %v", err)
	}
	if n != 2 {
		t.Fatalf("designed %d instances, want 2", n)
	}

	summary, err := p.Run(ctx, false)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Captured != 2 || summary.Failed != 0 {
		t.Fatalf("run summary = %+v, want 2 captured", summary)
	}

	scored, err := p.Score(ctx)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if scored != 2 {
		t.Fatalf("scored %d responses, want 2", scored)
	}

	findings, err := p.Analyze()
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if findings == 0 {
		t.Fatal("expected at least one finding (tone flips with framing)")
	}

	loaded, err := store.ReadAll[model.Finding](p.path(FindingsFile))
	if err != nil {
		t.Fatalf("read findings: %v", err)
	}
	var tone *model.Finding
	for i := range loaded {
		if loaded[i].Signal == model.SignalTone && loaded[i].Entity == "player_a" {
			tone = &loaded[i]
		}
	}
	if tone == nil {
		t.Fatal("expected a tone finding for player_a")
	}
	if tone.Dimension != "framing" || tone.Magnitude >= 0 {
		t.Errorf("tone finding = %+v, want negative shift on framing", tone)
	}

	rates, err := p.Validate()
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}

	verdicts, err := store.ReadAll[model.ValidationVerdict](p.path(VerdictsFile))
	if err != nil {
		t.Fatalf("read verdicts: %v", err)
	}
	if len(verdicts) != 2 {
		t.Fatalf("got %d verdicts, want 2", len(verdicts))
	}
	byVerdict := map[model.Verdict]int{}
	for _, v := range verdicts {
		byVerdict[v.Verdict]++
	}
	if byVerdict[model.VerdictConsistent] != 1 || byVerdict[model.VerdictInconsistent] != 1 {
		t.Errorf("verdicts = %v, want one consistent and one inconsistent", byVerdict)
	}

	neg := rates["framing=negative"]
	if neg.Inconsistency != 1 {
		t.Errorf("framing=negative inconsistency = %v, want 1 (claimed 30, truth 42)", neg.Inconsistency)
	}
	if pos := rates["framing=positive"]; pos.Inconsistency != 0 {
		t.Errorf("framing=positive inconsistency = %v, want 0", pos.Inconsistency)
	}
}

func TestPipeline_RerunIsIdempotent(t *testing.T) {
	p := newTestPipeline(t)
	ctx := context.Background()

	if err := p.RunAll(ctx, true); err != nil {
		t.Fatalf("RunAll: %v", err)
	}

	// Second pass: every instance is already captured, nothing re-executes
	// and the response file gains no duplicates.
	summary, err := p.Run(ctx, true)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if summary.Skipped != 2 || summary.Captured != 0 {
		t.Errorf("second run summary = %+v, want 2 skipped", summary)
	}

	recs, err := store.ReadAll[model.ResponseRecord](p.path(ResponsesFile))
	if err != nil {
		t.Fatalf("read responses: %v", err)
	}
	if len(recs) != 2 {
		t.Errorf("responses file holds %d records after re-run, want 2", len(recs))
	}
}

func TestPipeline_PartialFailureStaysAnalyzable(t *testing.T) {
	p := newTestPipeline(t)
	ctx := context.Background()

	// Only one of the two instances has a scripted response; the other
	// fails permanently and must not block downstream stages.
	p.SetProvider(llm.NewScriptedFromMap(map[string]string{
		"player_a__framing=positive": "Player A is an efficient and reliable scorer. Their score: 42.",
	}))

	if _, err := p.Design(); err != nil {
		t.Fatalf("Design: %v", err)
	}
	summary, err := p.Run(ctx, false)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Captured != 1 || summary.Failed != 1 {
		t.Fatalf("summary = %+v, want 1 captured and 1 failed", summary)
	}

	scored, err := p.Score(ctx)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if scored != 1 {
		t.Errorf("scored %d responses, want 1 (failed record excluded)", scored)
	}
}

func TestPipeline_BadCatalogRejected(t *testing.T) {
	dir := t.TempDir()
	catalogPath := filepath.Join(dir, "catalog.yaml")
	truthPath := filepath.Join(dir, "truth.yaml")
	if err := os.WriteFile(catalogPath, []byte("version: v1\nquestion: q\n"), 0644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	if err := os.WriteFile(truthPath, []byte(e2eGroundTruth), 0644); err != nil {
		t.Fatalf("write ground truth: %v", err)
	}

	if _, err := New(model.DefaultConfig(), catalogPath, truthPath, nil); err == nil {
		t.Fatal("expected error for catalog without dimensions")
	}
}
