package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ppiankov/biaslens/internal/model"
)

func rec(id, topic string) model.ResponseRecord {
	return model.ResponseRecord{
		Schema:     model.SchemaVersion,
		InstanceID: id,
		Topic:      topic,
		Conditions: model.ConditionVector{"framing": "positive"},
		Provider:   "scripted",
		Model:      "scripted",
		Response:   "ok",
		Attempts:   1,
	}
}

func TestAppendReadAll_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "responses.jsonl")

	first := rec("a__framing=positive", "a")
	second := rec("b__framing=positive", "b")

	if err := Append(path, first); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := Append(path, second); err != nil {
		t.Fatalf("Append: %v", err)
	}

	got, err := ReadAll[model.ResponseRecord](path)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if diff := cmp.Diff([]model.ResponseRecord{first, second}, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestReadAll_SchemaMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "responses.jsonl")

	bad := rec("a__framing=positive", "a")
	bad.Schema = model.SchemaVersion + 1
	if err := Append(path, bad); err != nil {
		t.Fatalf("Append: %v", err)
	}

	_, err := ReadAll[model.ResponseRecord](path)
	if err == nil {
		t.Fatal("expected schema version error, got nil")
	}
	if !strings.Contains(err.Error(), "schema version") {
		t.Errorf("error = %v, want schema version mention", err)
	}
}

func TestLatest_LastWins(t *testing.T) {
	older := rec("a__framing=positive", "a")
	older.Error = "timeout"
	older.Response = ""
	newer := rec("a__framing=positive", "a")

	latest := Latest([]model.ResponseRecord{older, newer})
	if len(latest) != 1 {
		t.Fatalf("expected 1 logical key, got %d", len(latest))
	}
	if !latest["a__framing=positive"].Succeeded() {
		t.Error("later record should supersede the failed one")
	}
}

func TestWriteAll_Replaces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "signals.jsonl")

	if err := WriteAll(path, []model.ResponseRecord{rec("a__framing=positive", "a")}); err != nil {
		t.Fatalf("WriteAll: %v", err)
	}
	if err := WriteAll(path, []model.ResponseRecord{rec("b__framing=positive", "b")}); err != nil {
		t.Fatalf("WriteAll: %v", err)
	}

	got, err := ReadAll[model.ResponseRecord](path)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(got) != 1 || got[0].InstanceID != "b__framing=positive" {
		t.Errorf("WriteAll did not replace contents: %+v", got)
	}

	// No temp files left behind.
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only the stage file, found %d entries", len(entries))
	}
}

func TestReadAllIfExists_Missing(t *testing.T) {
	got, err := ReadAllIfExists[model.ResponseRecord](filepath.Join(t.TempDir(), "nope.jsonl"))
	if err != nil {
		t.Fatalf("ReadAllIfExists: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for missing file, got %+v", got)
	}
}
