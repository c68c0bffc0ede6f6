package model

import "time"

// ResponseRecord captures one model call for one prompt instance.
// Records are append-only: a retry writes a new record with the same
// instance ID, the original stays for audit.
type ResponseRecord struct {
	Schema     int             `json:"schema_version"`
	InstanceID string          `json:"instance_id"`
	RunID      string          `json:"run_id"`
	Topic      string          `json:"topic"`
	Conditions ConditionVector `json:"conditions"`
	Provider   string          `json:"provider"`
	Model      string          `json:"model"`
	Response   string          `json:"response,omitempty"`
	Attempts   int             `json:"attempts"`
	LatencyMS  int64           `json:"latency_ms"`
	CapturedAt time.Time       `json:"captured_at"`
	FromCache  bool            `json:"from_cache,omitempty"`
	Error      string          `json:"error,omitempty"`
	Transient  bool            `json:"transient,omitempty"` // error was transient and retries ran out
}

// Succeeded reports whether the record holds a usable response.
func (r ResponseRecord) Succeeded() bool {
	return r.Error == "" && r.Response != ""
}

// LogicalKey implements store.Record.
func (r ResponseRecord) LogicalKey() string { return r.InstanceID }

// SchemaVersion implements store.Record.
func (r ResponseRecord) SchemaVersion() int { return r.Schema }
