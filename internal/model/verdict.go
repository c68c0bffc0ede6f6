package model

import "fmt"

// Verdict classifies one claim against ground truth.
type Verdict string

const (
	VerdictConsistent   Verdict = "consistent"
	VerdictInconsistent Verdict = "inconsistent"
	VerdictUnverifiable Verdict = "unverifiable"
)

// ValidationVerdict records the check of one extracted claim against the
// ground-truth store.
type ValidationVerdict struct {
	Schema     int             `json:"schema_version"`
	InstanceID string          `json:"instance_id"`
	Conditions ConditionVector `json:"conditions"`
	Subject    string          `json:"subject"`
	Metric     string          `json:"metric"`
	Claimed    float64         `json:"claimed"`
	Truth      *float64        `json:"truth,omitempty"` // nil when unverifiable
	Verdict    Verdict         `json:"verdict"`
	Deviation  float64         `json:"deviation,omitempty"`     // |claimed - truth|
	RelDev     float64         `json:"rel_deviation,omitempty"` // deviation / |truth|, 0 when truth ~ 0
	Span       string          `json:"span,omitempty"`
}

// LogicalKey implements store.Record.
func (v ValidationVerdict) LogicalKey() string {
	return fmt.Sprintf("%s:%s:%s", v.InstanceID, v.Subject, v.Metric)
}

// SchemaVersion implements store.Record.
func (v ValidationVerdict) SchemaVersion() int { return v.Schema }
