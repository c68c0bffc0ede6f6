package model

// Claim is one numeric assertion extracted from a response, bound to a
// subject entity and a known metric.
type Claim struct {
	Subject  string  `json:"subject"` // entity ID
	Metric   string  `json:"metric"`
	Value    float64 `json:"value"`
	Span     string  `json:"span"`     // source sentence
	Sentence int     `json:"sentence"` // sentence index in response (0-based)
}

// SignalVector is the numeric summary of one response. Derived and
// recomputable from the raw record; never hand-edited.
type SignalVector struct {
	Schema     int                `json:"schema_version"`
	InstanceID string             `json:"instance_id"`
	Topic      string             `json:"topic"`
	Conditions ConditionVector    `json:"conditions"`
	Tone       float64            `json:"tone"`  // [-1, 1], 0 for neutral text
	Focus      map[string]float64 `json:"focus"` // entity ID -> attention weight
	Claims     []Claim            `json:"claims,omitempty"`
}

// LogicalKey implements store.Record.
func (s SignalVector) LogicalKey() string { return s.InstanceID }

// SchemaVersion implements store.Record.
func (s SignalVector) SchemaVersion() int { return s.Schema }
