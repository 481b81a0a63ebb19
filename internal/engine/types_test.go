package engine

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTelemetryPayloadDecode(t *testing.T) {
	body := []byte(`{"temperature": 22.5, "soilMoisture": 61, "actuatorStates": {"fan": true, "pump": false}}`)

	var p TelemetryPayload
	require.NoError(t, json.Unmarshal(body, &p))

	assert.Equal(t, map[string]float64{"temperature": 22.5, "soilMoisture": 61}, p.Readings)
	assert.Equal(t, map[string]bool{"fan": true, "pump": false}, p.ActuatorStates)
}

func TestTelemetryPayloadSkipsNonNumeric(t *testing.T) {
	body := []byte(`{"temperature": 22.5, "firmware": "v1.2", "online": true}`)

	var p TelemetryPayload
	require.NoError(t, json.Unmarshal(body, &p))

	assert.Equal(t, map[string]float64{"temperature": 22.5}, p.Readings)
	assert.Nil(t, p.ActuatorStates)
}

func TestTelemetryPayloadActuatorBlockNotAReading(t *testing.T) {
	body := []byte(`{"actuatorStates": {"fan": true}}`)

	var p TelemetryPayload
	require.NoError(t, json.Unmarshal(body, &p))

	assert.Empty(t, p.Readings)
	assert.Equal(t, map[string]bool{"fan": true}, p.ActuatorStates)
}

func TestTelemetryPayloadRejectsNonObject(t *testing.T) {
	var p TelemetryPayload
	assert.Error(t, json.Unmarshal([]byte(`[1,2,3]`), &p))
}

func TestSeverityRank(t *testing.T) {
	assert.Greater(t, SeverityRank(SeverityCritical), SeverityRank(SeverityWarning))
	assert.Greater(t, SeverityRank(SeverityWarning), SeverityRank(SeverityInfo))
	assert.Equal(t, SeverityRank(SeverityInfo), SeverityRank("bogus"))
}
