package model

import "fmt"

// SignalKind names which signal a finding is about.
type SignalKind string

const (
	SignalTone  SignalKind = "tone"
	SignalFocus SignalKind = "focus"
)

// Confidence grades how much within-group variance and sample counts
// support a finding.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Finding is one material shift on one bias dimension, for one entity,
// between two levels. Magnitude is signed: LevelFrom -> LevelTo.
type Finding struct {
	Schema     int        `json:"schema_version"`
	Dimension  string     `json:"dimension"`
	Hypothesis string     `json:"hypothesis,omitempty"`
	LevelFrom  string     `json:"level_from"`
	LevelTo    string     `json:"level_to"`
	Entity     string     `json:"entity"`
	Signal     SignalKind `json:"signal"`
	Magnitude  float64    `json:"magnitude"`
	StdError   float64    `json:"std_error"`
	Confidence Confidence `json:"confidence"`
	SamplesA   int        `json:"samples_from"`
	SamplesB   int        `json:"samples_to"`
	Contrasts  int        `json:"contrasts"` // matched condition pairs behind the estimate
}

// LogicalKey implements store.Record.
func (f Finding) LogicalKey() string {
	return fmt.Sprintf("%s:%s>%s:%s:%s", f.Dimension, f.LevelFrom, f.LevelTo, f.Entity, f.Signal)
}

// SchemaVersion implements store.Record.
func (f Finding) SchemaVersion() int { return f.Schema }
