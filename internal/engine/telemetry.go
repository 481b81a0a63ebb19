package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ecohub-core/internal/store"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"go.uber.org/zap"
)

// Publisher sends one message to the broker.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

type readingWriter interface {
	InsertReadings(ctx context.Context, readings []store.Reading) error
}

// PointWriter mirrors readings into the time-series store. The write API is
// asynchronous and best-effort; Postgres stays the system of record.
type PointWriter interface {
	WritePoint(point *write.Point)
}

// HistoryWriter persists one telemetry message as a batch of reading rows,
// attributing each quantity to the sensor registered for it.
type HistoryWriter struct {
	readings readingWriter
	points   PointWriter
	logger   *zap.Logger
}

func NewHistoryWriter(readings readingWriter, points PointWriter, logger *zap.Logger) *HistoryWriter {
	return &HistoryWriter{readings: readings, points: points, logger: logger}
}

// Write maps each reading to its sensor and inserts the batch in one
// transaction. When several sensors claim the same quantity the
// last-registered one wins; quantities no sensor measures are skipped with a
// warning. A batch that maps to zero rows is a no-op.
func (w *HistoryWriter) Write(ctx context.Context, zoneID string, sensors []store.Sensor, readings map[string]float64, readAt time.Time) error {
	bySensor := make(map[string]string)
	for _, s := range sensors {
		for _, q := range s.Measures {
			bySensor[q] = s.ID
		}
	}

	rows := make([]store.Reading, 0, len(readings))
	for quantity, value := range readings {
		sensorID, ok := bySensor[quantity]
		if !ok {
			w.logger.Warn("no sensor registered for quantity",
				zap.String("zone_id", zoneID), zap.String("quantity", quantity))
			continue
		}
		rows = append(rows, store.Reading{
			SensorID: sensorID,
			ZoneID:   zoneID,
			Quantity: quantity,
			Value:    value,
			ReadAt:   readAt,
		})
	}
	if len(rows) == 0 {
		return nil
	}

	if err := w.readings.InsertReadings(ctx, rows); err != nil {
		return fmt.Errorf("error storing readings for zone %s: %w", zoneID, err)
	}

	if w.points != nil {
		for _, r := range rows {
			point := influxdb2.NewPoint(r.Quantity,
				map[string]string{"zoneId": r.ZoneID, "sensorId": r.SensorID},
				map[string]interface{}{"value": r.Value},
				r.ReadAt)
			w.points.WritePoint(point)
		}
	}
	return nil
}

type zoneReader interface {
	GetZone(ctx context.Context, zoneID string) (*store.Zone, error)
	ListSensorsByZone(ctx context.Context, zoneID string) ([]store.Sensor, error)
}

type statusUpdater interface {
	Update(ctx context.Context, zoneID string, patch store.StatusPatch) (*store.ZoneStatus, error)
}

// TelemetryPipeline runs the full ingestion path for one sensors-topic
// message: decode, evaluate thresholds, project status, persist history and
// publish an alert when a corrective action is suggested.
type TelemetryPipeline struct {
	zones     zoneReader
	projector statusUpdater
	history   *HistoryWriter
	pub       Publisher
	namespace string
	now       func() time.Time
	logger    *zap.Logger
}

func NewTelemetryPipeline(zones zoneReader, projector statusUpdater, history *HistoryWriter, pub Publisher, namespace string, logger *zap.Logger) *TelemetryPipeline {
	return &TelemetryPipeline{
		zones:     zones,
		projector: projector,
		history:   history,
		pub:       pub,
		namespace: namespace,
		now:       time.Now,
		logger:    logger,
	}
}

// ProcessSensorData handles one telemetry message. Unknown zones still get a
// status projection and stored history so devices can stream before their
// zone document exists; they just evaluate without thresholds.
func (p *TelemetryPipeline) ProcessSensorData(ctx context.Context, zoneID string, payload []byte) error {
	var telemetry TelemetryPayload
	if err := json.Unmarshal(payload, &telemetry); err != nil {
		return fmt.Errorf("error decoding telemetry for zone %s: %w", zoneID, err)
	}

	zoneName := zoneID
	var thresholds map[string]store.Threshold
	var sensors []store.Sensor

	zone, err := p.zones.GetZone(ctx, zoneID)
	switch {
	case err == nil:
		zoneName = zone.Name
		thresholds = zone.Thresholds
		sensors, err = p.zones.ListSensorsByZone(ctx, zoneID)
		if err != nil {
			return fmt.Errorf("error listing sensors for zone %s: %w", zoneID, err)
		}
	case err == store.ErrNotFound:
		p.logger.Warn("telemetry for unknown zone", zap.String("zone_id", zoneID))
	default:
		return fmt.Errorf("error loading zone %s: %w", zoneID, err)
	}

	eval := Evaluate(zoneName, telemetry.Readings, thresholds)

	patch := store.StatusPatch{
		Status:       &eval.Status,
		Suggestion:   &eval.Suggestion,
		LastReadings: telemetry.Readings,
	}
	if telemetry.ActuatorStates != nil {
		patch.ActuatorStates = telemetry.ActuatorStates
	}
	if _, err := p.projector.Update(ctx, zoneID, patch); err != nil {
		return err
	}

	if err := p.history.Write(ctx, zoneID, sensors, telemetry.Readings, p.now()); err != nil {
		return err
	}

	if eval.Suggestion != "" {
		n := Notification{
			Type:           "threshold_alert",
			Message:        eval.Message,
			Suggestion:     eval.Suggestion,
			SuggestionText: SuggestionText[eval.Suggestion],
			Severity:       eval.Severity,
		}
		body, err := json.Marshal(n)
		if err != nil {
			return fmt.Errorf("error encoding notification for zone %s: %w", zoneID, err)
		}
		if err := p.pub.Publish(ctx, notificationTopic(p.namespace, zoneID), body); err != nil {
			p.logger.Warn("failed to publish threshold alert",
				zap.String("zone_id", zoneID), zap.Error(err))
		}
	}
	return nil
}
