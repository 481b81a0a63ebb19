package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

func (s *Store) CreateCommand(ctx context.Context, c *Command) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.Status = CommandPending
	c.CreatedAt = time.Now().UTC()
	c.ExecutedAt = nil

	query := `
		INSERT INTO commands (id, zone_id, device_id, action, payload, status, requested_by, created_at, executed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULL)
	`
	if _, err := s.db.ExecContext(ctx, query,
		c.ID, c.ZoneID, c.DeviceID, c.Action, c.Payload, c.Status, c.RequestedBy, c.CreatedAt,
	); err != nil {
		return fmt.Errorf("error creating command: %w", err)
	}
	return nil
}

// CompleteCommand marks the newest non-terminal command with the given
// action for a zone as completed. Returns ErrNotFound when no such command
// is tracked, which callers treat as a feedback for an untracked command.
func (s *Store) CompleteCommand(ctx context.Context, zoneID, action string) (*Command, error) {
	query := `
		UPDATE commands SET status = $3, executed_at = $4
		WHERE id = (
			SELECT id FROM commands
			WHERE zone_id = $1 AND action = $2 AND status IN ($5, $6)
			ORDER BY created_at DESC
			LIMIT 1
		)
		RETURNING id, zone_id, device_id, action, payload, status, requested_by, created_at, executed_at
	`

	now := time.Now().UTC()
	var c Command
	err := s.db.QueryRowContext(ctx, query,
		zoneID, action, CommandCompleted, now, CommandPending, CommandExecuting,
	).Scan(&c.ID, &c.ZoneID, &c.DeviceID, &c.Action, &c.Payload, &c.Status,
		&c.RequestedBy, &c.CreatedAt, &c.ExecutedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error completing command %s for zone %s: %w", action, zoneID, err)
	}
	return &c, nil
}

func (s *Store) ListPendingCommands(ctx context.Context, deviceID string, limit int) ([]Command, error) {
	query := `
		SELECT id, zone_id, device_id, action, payload, status, requested_by, created_at, executed_at
		FROM commands
		WHERE device_id = $1 AND status = $2
		ORDER BY created_at ASC
		LIMIT $3
	`

	rows, err := s.db.QueryContext(ctx, query, deviceID, CommandPending, limit)
	if err != nil {
		return nil, fmt.Errorf("error querying pending commands for device %s: %w", deviceID, err)
	}
	defer rows.Close()

	var commands []Command
	for rows.Next() {
		var c Command
		if err := rows.Scan(&c.ID, &c.ZoneID, &c.DeviceID, &c.Action, &c.Payload,
			&c.Status, &c.RequestedBy, &c.CreatedAt, &c.ExecutedAt); err != nil {
			return nil, fmt.Errorf("error scanning command row: %w", err)
		}
		commands = append(commands, c)
	}
	return commands, rows.Err()
}
