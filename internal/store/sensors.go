package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// ListSensorsByZone returns sensors ordered by creation time ascending. The
// mapper overwrites duplicate quantity entries while iterating, so the
// last-registered sensor wins for a duplicated quantity.
func (s *Store) ListSensorsByZone(ctx context.Context, zoneID string) ([]Sensor, error) {
	query := `
		SELECT id, zone_id, device_id, measures, created_at
		FROM sensors WHERE zone_id = $1
		ORDER BY created_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, zoneID)
	if err != nil {
		return nil, fmt.Errorf("error querying sensors for zone %s: %w", zoneID, err)
	}
	defer rows.Close()

	var sensors []Sensor
	for rows.Next() {
		var sensor Sensor
		if err := rows.Scan(&sensor.ID, &sensor.ZoneID, &sensor.DeviceID,
			pq.Array(&sensor.Measures), &sensor.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning sensor row: %w", err)
		}
		sensors = append(sensors, sensor)
	}
	return sensors, rows.Err()
}

func (s *Store) CreateSensor(ctx context.Context, sensor *Sensor) error {
	if sensor.ID == "" {
		sensor.ID = uuid.NewString()
	}
	sensor.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO sensors (id, zone_id, device_id, measures, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := s.db.ExecContext(ctx, query,
		sensor.ID, sensor.ZoneID, sensor.DeviceID, pq.Array(sensor.Measures), sensor.CreatedAt,
	); err != nil {
		return fmt.Errorf("error creating sensor: %w", err)
	}
	return nil
}
