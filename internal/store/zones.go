package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

func (s *Store) GetZone(ctx context.Context, zoneID string) (*Zone, error) {
	query := `
		SELECT id, name, owner, thresholds, crop_profile_id, created_at, updated_at
		FROM zones WHERE id = $1
	`

	var z Zone
	var thresholdsJSON []byte
	err := s.db.QueryRowContext(ctx, query, zoneID).Scan(
		&z.ID, &z.Name, &z.Owner, &thresholdsJSON, &z.CropProfileID, &z.CreatedAt, &z.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error querying zone %s: %w", zoneID, err)
	}

	if len(thresholdsJSON) > 0 {
		if err := json.Unmarshal(thresholdsJSON, &z.Thresholds); err != nil {
			return nil, fmt.Errorf("error parsing thresholds for zone %s: %w", zoneID, err)
		}
	}
	return &z, nil
}

func (s *Store) CreateZone(ctx context.Context, z *Zone) error {
	if z.ID == "" {
		z.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	z.CreatedAt = now
	z.UpdatedAt = now

	thresholdsJSON, err := json.Marshal(z.Thresholds)
	if err != nil {
		return fmt.Errorf("error encoding thresholds: %w", err)
	}

	query := `
		INSERT INTO zones (id, name, owner, thresholds, crop_profile_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if _, err := s.db.ExecContext(ctx, query,
		z.ID, z.Name, z.Owner, thresholdsJSON, z.CropProfileID, z.CreatedAt, z.UpdatedAt,
	); err != nil {
		return fmt.Errorf("error creating zone: %w", err)
	}
	return nil
}

func (s *Store) UpdateZoneThresholds(ctx context.Context, zoneID string, thresholds map[string]Threshold) error {
	thresholdsJSON, err := json.Marshal(thresholds)
	if err != nil {
		return fmt.Errorf("error encoding thresholds: %w", err)
	}

	query := `UPDATE zones SET thresholds = $2, updated_at = $3 WHERE id = $1`
	res, err := s.db.ExecContext(ctx, query, zoneID, thresholdsJSON, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("error updating thresholds for zone %s: %w", zoneID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
