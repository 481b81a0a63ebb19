package engine

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"ecohub-core/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeReadingWriter struct {
	batches [][]store.Reading
	err     error
}

func (f *fakeReadingWriter) InsertReadings(_ context.Context, readings []store.Reading) error {
	if f.err != nil {
		return f.err
	}
	f.batches = append(f.batches, readings)
	return nil
}

type fakeZoneReader struct {
	zone    *store.Zone
	sensors []store.Sensor
}

func (f *fakeZoneReader) GetZone(_ context.Context, _ string) (*store.Zone, error) {
	if f.zone == nil {
		return nil, store.ErrNotFound
	}
	return f.zone, nil
}

func (f *fakeZoneReader) ListSensorsByZone(_ context.Context, _ string) ([]store.Sensor, error) {
	return f.sensors, nil
}

type fakeProjector struct {
	patches []store.StatusPatch
}

func (f *fakeProjector) Update(_ context.Context, _ string, patch store.StatusPatch) (*store.ZoneStatus, error) {
	f.patches = append(f.patches, patch)
	return &store.ZoneStatus{}, nil
}

type fakePublisher struct {
	mu       sync.Mutex
	messages map[string][][]byte
}

func (f *fakePublisher) Publish(_ context.Context, topic string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.messages == nil {
		f.messages = make(map[string][][]byte)
	}
	f.messages[topic] = append(f.messages[topic], payload)
	return nil
}

func (f *fakePublisher) on(topic string) [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.messages[topic]
}

func testSensors() []store.Sensor {
	return []store.Sensor{
		{ID: "sensor-1", ZoneID: "zone-1", Measures: []string{"temperature", "humidity"}},
		{ID: "sensor-2", ZoneID: "zone-1", Measures: []string{"soilMoisture"}},
	}
}

func TestHistoryWriterMapsReadingsToSensors(t *testing.T) {
	writer := &fakeReadingWriter{}
	h := NewHistoryWriter(writer, nil, zap.NewNop())

	readAt := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	err := h.Write(context.Background(), "zone-1", testSensors(),
		map[string]float64{"temperature": 22, "soilMoisture": 55}, readAt)
	require.NoError(t, err)

	require.Len(t, writer.batches, 1)
	bySensor := make(map[string]store.Reading)
	for _, r := range writer.batches[0] {
		bySensor[r.Quantity] = r
	}
	assert.Equal(t, "sensor-1", bySensor["temperature"].SensorID)
	assert.Equal(t, "sensor-2", bySensor["soilMoisture"].SensorID)
	assert.Equal(t, readAt, bySensor["temperature"].ReadAt)
}

func TestHistoryWriterLastRegisteredWins(t *testing.T) {
	// Sensors arrive ordered oldest first; a newer registration for the same
	// quantity shadows the older one.
	sensors := append(testSensors(), store.Sensor{
		ID: "sensor-3", ZoneID: "zone-1", Measures: []string{"temperature"},
	})

	writer := &fakeReadingWriter{}
	h := NewHistoryWriter(writer, nil, zap.NewNop())

	err := h.Write(context.Background(), "zone-1", sensors,
		map[string]float64{"temperature": 22}, time.Now())
	require.NoError(t, err)

	require.Len(t, writer.batches, 1)
	assert.Equal(t, "sensor-3", writer.batches[0][0].SensorID)
}

func TestHistoryWriterSkipsUnmappedQuantities(t *testing.T) {
	writer := &fakeReadingWriter{}
	h := NewHistoryWriter(writer, nil, zap.NewNop())

	err := h.Write(context.Background(), "zone-1", testSensors(),
		map[string]float64{"co2": 410}, time.Now())
	require.NoError(t, err)
	assert.Empty(t, writer.batches)
}

func TestHistoryWriterNoSensors(t *testing.T) {
	writer := &fakeReadingWriter{}
	h := NewHistoryWriter(writer, nil, zap.NewNop())

	err := h.Write(context.Background(), "zone-1", nil,
		map[string]float64{"temperature": 22}, time.Now())
	require.NoError(t, err)
	assert.Empty(t, writer.batches)
}

func newPipelineFixture(zone *store.Zone, sensors []store.Sensor) (*TelemetryPipeline, *fakeProjector, *fakeReadingWriter, *fakePublisher) {
	zones := &fakeZoneReader{zone: zone, sensors: sensors}
	projector := &fakeProjector{}
	writer := &fakeReadingWriter{}
	pub := &fakePublisher{}
	history := NewHistoryWriter(writer, nil, zap.NewNop())
	p := NewTelemetryPipeline(zones, projector, history, pub, "ecohub", zap.NewNop())
	return p, projector, writer, pub
}

func healthyZone() *store.Zone {
	return &store.Zone{
		ID:   "zone-1",
		Name: "Herb Garden",
		Thresholds: map[string]store.Threshold{
			"temperature":  {Enabled: true, Min: 18, Max: 30},
			"soilMoisture": {Enabled: true, Min: 40, Max: 80},
		},
	}
}

func TestProcessSensorDataHealthy(t *testing.T) {
	p, projector, writer, pub := newPipelineFixture(healthyZone(), testSensors())

	payload := []byte(`{"temperature": 22, "soilMoisture": 55}`)
	require.NoError(t, p.ProcessSensorData(context.Background(), "zone-1", payload))

	require.Len(t, projector.patches, 1)
	assert.Equal(t, StatusGood, *projector.patches[0].Status)
	assert.Len(t, writer.batches, 1)
	assert.Empty(t, pub.on(notificationTopic("ecohub", "zone-1")))
}

func TestProcessSensorDataBreachPublishesAlert(t *testing.T) {
	p, projector, _, pub := newPipelineFixture(healthyZone(), testSensors())

	payload := []byte(`{"temperature": 22, "soilMoisture": 20}`)
	require.NoError(t, p.ProcessSensorData(context.Background(), "zone-1", payload))

	require.Len(t, projector.patches, 1)
	assert.Equal(t, StatusNeedWater, *projector.patches[0].Status)
	assert.Equal(t, CmdPumpOn, *projector.patches[0].Suggestion)

	published := pub.on(notificationTopic("ecohub", "zone-1"))
	require.Len(t, published, 1)

	var n Notification
	require.NoError(t, json.Unmarshal(published[0], &n))
	assert.Equal(t, "threshold_alert", n.Type)
	assert.Equal(t, CmdPumpOn, n.Suggestion)
	assert.Equal(t, "Turn on the water pump", n.SuggestionText)
	assert.Equal(t, SeverityWarning, n.Severity)
	assert.False(t, n.IsCompletionSignal)
}

func TestProcessSensorDataUnknownZone(t *testing.T) {
	p, projector, writer, pub := newPipelineFixture(nil, nil)

	payload := []byte(`{"temperature": 22}`)
	require.NoError(t, p.ProcessSensorData(context.Background(), "zone-x", payload))

	// Status is still projected; no thresholds means no alert and no
	// mapped sensors means no history rows.
	require.Len(t, projector.patches, 1)
	assert.Equal(t, StatusGood, *projector.patches[0].Status)
	assert.Empty(t, writer.batches)
	assert.Empty(t, pub.on(notificationTopic("ecohub", "zone-x")))
}

func TestProcessSensorDataCarriesActuatorStates(t *testing.T) {
	p, projector, _, _ := newPipelineFixture(healthyZone(), testSensors())

	payload := []byte(`{"temperature": 22, "actuatorStates": {"fan": true}}`)
	require.NoError(t, p.ProcessSensorData(context.Background(), "zone-1", payload))

	require.Len(t, projector.patches, 1)
	assert.Equal(t, map[string]bool{"fan": true}, projector.patches[0].ActuatorStates)
}

func TestProcessSensorDataRejectsMalformedPayload(t *testing.T) {
	p, projector, _, _ := newPipelineFixture(healthyZone(), testSensors())

	assert.Error(t, p.ProcessSensorData(context.Background(), "zone-1", []byte(`not json`)))
	assert.Empty(t, projector.patches)
}
