package engine

import (
	"encoding/json"
	"fmt"
)

// TelemetryPayload is the decoded body of a sensors-topic message: a flat
// map of quantity name to numeric value plus an optional actuator-state
// block. Non-numeric entries are not readings and are dropped during
// decoding; the actuator block is carried separately and never extracted as
// a reading.
type TelemetryPayload struct {
	Readings       map[string]float64
	ActuatorStates map[string]bool
}

func (p *TelemetryPayload) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("telemetry payload is not a JSON object: %w", err)
	}

	p.Readings = make(map[string]float64)
	for key, value := range raw {
		if key == "actuatorStates" {
			// Best-effort: a malformed actuator block does not invalidate
			// the readings in the same message.
			_ = json.Unmarshal(value, &p.ActuatorStates)
			continue
		}
		var f float64
		if err := json.Unmarshal(value, &f); err == nil {
			p.Readings[key] = f
		}
	}
	return nil
}

// Notification severity levels, numerically ordered.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

var severityRank = map[string]int{
	SeverityInfo:     1,
	SeverityWarning:  2,
	SeverityCritical: 3,
}

// SeverityRank returns the numeric rank of a severity label; unknown labels
// rank as info.
func SeverityRank(severity string) int {
	if r, ok := severityRank[severity]; ok {
		return r
	}
	return severityRank[SeverityInfo]
}

// Notification is the JSON body published on the per-zone notifications
// topic. The completion variant carries IsCompletionSignal and
// CompletedCommand and is never emailed.
type Notification struct {
	Type               string `json:"type"`
	Message            string `json:"message"`
	Suggestion         string `json:"suggestion,omitempty"`
	SuggestionText     string `json:"suggestion_text,omitempty"`
	Severity           string `json:"severity,omitempty"`
	IsCompletionSignal bool   `json:"is_completion_signal,omitempty"`
	CompletedCommand   string `json:"completed_command,omitempty"`
}
