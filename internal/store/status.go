package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// UpsertZoneStatus merges the patch into the zone's single status row. Nil
// patch fields keep the stored value; last_updated is always restamped.
// Create-if-absent so the first evaluation of a fresh zone succeeds.
func (s *Store) UpsertZoneStatus(ctx context.Context, zoneID string, patch StatusPatch) error {
	var readingsJSON, actuatorsJSON []byte
	var err error

	if patch.LastReadings != nil {
		if readingsJSON, err = json.Marshal(patch.LastReadings); err != nil {
			return fmt.Errorf("error encoding readings: %w", err)
		}
	}
	if patch.ActuatorStates != nil {
		if actuatorsJSON, err = json.Marshal(patch.ActuatorStates); err != nil {
			return fmt.Errorf("error encoding actuator states: %w", err)
		}
	}

	query := `
		INSERT INTO zone_status (zone_id, status, suggestion, last_readings, actuator_states, last_updated)
		VALUES ($1, COALESCE($2, 'Initializing'), COALESCE($3, ''), COALESCE($4::jsonb, '{}'::jsonb), COALESCE($5::jsonb, '{}'::jsonb), $6)
		ON CONFLICT (zone_id) DO UPDATE SET
			status = COALESCE($2, zone_status.status),
			suggestion = COALESCE($3, zone_status.suggestion),
			last_readings = COALESCE($4::jsonb, zone_status.last_readings),
			actuator_states = COALESCE($5::jsonb, zone_status.actuator_states),
			last_updated = EXCLUDED.last_updated
	`

	if _, err := s.db.ExecContext(ctx, query,
		zoneID, patch.Status, patch.Suggestion, readingsJSON, actuatorsJSON, time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("error upserting status for zone %s: %w", zoneID, err)
	}
	return nil
}

func (s *Store) GetZoneStatus(ctx context.Context, zoneID string) (*ZoneStatus, error) {
	query := `
		SELECT zone_id, status, suggestion, last_readings, actuator_states, last_updated
		FROM zone_status WHERE zone_id = $1
	`

	var zs ZoneStatus
	var readingsJSON, actuatorsJSON []byte
	err := s.db.QueryRowContext(ctx, query, zoneID).Scan(
		&zs.ZoneID, &zs.Status, &zs.Suggestion, &readingsJSON, &actuatorsJSON, &zs.LastUpdated,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error querying status for zone %s: %w", zoneID, err)
	}

	if len(readingsJSON) > 0 {
		if err := json.Unmarshal(readingsJSON, &zs.LastReadings); err != nil {
			return nil, fmt.Errorf("error parsing readings for zone %s: %w", zoneID, err)
		}
	}
	if len(actuatorsJSON) > 0 {
		if err := json.Unmarshal(actuatorsJSON, &zs.ActuatorStates); err != nil {
			return nil, fmt.Errorf("error parsing actuator states for zone %s: %w", zoneID, err)
		}
	}
	return &zs, nil
}
