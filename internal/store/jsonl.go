// Package store persists stage records as line-delimited JSON, one object
// per line. Every record carries its logical key and a schema version;
// loaders reject files written by an incompatible build, and re-processing
// is idempotent keyed by the logical key.
package store

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ppiankov/biaslens/internal/model"
)

// Record is the contract every persisted type satisfies.
type Record interface {
	LogicalKey() string
	SchemaVersion() int
}

const maxLineBytes = 4 << 20

// Append appends records to a JSONL file, creating it if needed. Used for
// incremental runner output: already-written records are never rewritten.
func Append[T Record](path string, recs ...T) error {
	if len(recs) == 0 {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	w := bufio.NewWriter(f)
	for _, rec := range recs {
		line, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal record %s: %w", rec.LogicalKey(), err)
		}
		if _, err := w.Write(line); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		if err := w.WriteByte('\n'); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	return w.Flush()
}

// WriteAll replaces a stage file wholesale via a temp file and rename, so a
// crashed run never leaves a half-written file behind.
func WriteAll[T Record](path string, recs []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	w := bufio.NewWriter(tmp)
	for _, rec := range recs {
		line, err := json.Marshal(rec)
		if err != nil {
			_ = tmp.Close()
			return fmt.Errorf("marshal record %s: %w", rec.LogicalKey(), err)
		}
		if _, err := w.Write(append(line, '\n')); err != nil {
			_ = tmp.Close()
			return fmt.Errorf("write temp file: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("flush temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	return os.Rename(tmpName, path)
}

// ReadAll loads every record from a JSONL file, in file order, validating
// the schema version of each line.
func ReadAll[T Record](path string) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	var out []T
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec T
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("%s:%d: parse record: %w", path, lineNo, err)
		}
		if rec.SchemaVersion() != model.SchemaVersion {
			return nil, fmt.Errorf("%s:%d: schema version %d, want %d", path, lineNo, rec.SchemaVersion(), model.SchemaVersion)
		}
		out = append(out, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", path, err)
	}
	return out, nil
}

// ReadAllIfExists is ReadAll, except a missing file yields an empty slice.
func ReadAllIfExists[T Record](path string) ([]T, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}
	return ReadAll[T](path)
}

// Latest collapses records to the newest one per logical key (file order:
// later lines supersede earlier ones, originals stay on disk for audit).
func Latest[T Record](recs []T) map[string]T {
	out := make(map[string]T, len(recs))
	for _, rec := range recs {
		out[rec.LogicalKey()] = rec
	}
	return out
}
