package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// InsertReadings commits one ingestion event's staged readings as a single
// transaction. Partial failure rolls the whole batch back; readings are
// never written piecemeal.
func (s *Store) InsertReadings(ctx context.Context, readings []Reading) error {
	if len(readings) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting readings transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO readings (id, sensor_id, zone_id, quantity, value, read_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	for i := range readings {
		r := &readings[i]
		if r.ID == "" {
			r.ID = uuid.NewString()
		}
		if _, err := tx.ExecContext(ctx, query,
			r.ID, r.SensorID, r.ZoneID, r.Quantity, r.Value, r.ReadAt,
		); err != nil {
			return fmt.Errorf("error staging reading %s/%s: %w", r.ZoneID, r.Quantity, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing readings batch: %w", err)
	}
	return nil
}

// QueryReadings returns readings for a zone in a time range, optionally
// filtered by quantity. Newest first.
func (s *Store) QueryReadings(ctx context.Context, zoneID, quantity string, from, to time.Time, limit int) ([]Reading, error) {
	query := `
		SELECT id, sensor_id, zone_id, quantity, value, read_at
		FROM readings
		WHERE zone_id = $1 AND read_at >= $2 AND read_at <= $3
		  AND ($4 = '' OR quantity = $4)
		ORDER BY read_at DESC
		LIMIT $5
	`

	rows, err := s.db.QueryContext(ctx, query, zoneID, from, to, quantity, limit)
	if err != nil {
		return nil, fmt.Errorf("error querying readings for zone %s: %w", zoneID, err)
	}
	defer rows.Close()

	var readings []Reading
	for rows.Next() {
		var r Reading
		if err := rows.Scan(&r.ID, &r.SensorID, &r.ZoneID, &r.Quantity, &r.Value, &r.ReadAt); err != nil {
			return nil, fmt.Errorf("error scanning reading row: %w", err)
		}
		readings = append(readings, r)
	}
	return readings, rows.Err()
}
