package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const scheduleColumns = `
	id, zone_id, name, device_id, device_type, action, command, run_time,
	repetition, run_date, days_of_week, day_of_month, is_active, created_at, updated_at
`

func (s *Store) scanSchedule(row interface{ Scan(...interface{}) error }) (*Schedule, error) {
	var sc Schedule
	var days []int64
	if err := row.Scan(
		&sc.ID, &sc.ZoneID, &sc.Name, &sc.DeviceID, &sc.DeviceType, &sc.Action,
		&sc.Command, &sc.Time, &sc.Repetition, &sc.Date, pq.Array(&days),
		&sc.DayOfMonth, &sc.IsActive, &sc.CreatedAt, &sc.UpdatedAt,
	); err != nil {
		return nil, err
	}
	for _, d := range days {
		sc.DaysOfWeek = append(sc.DaysOfWeek, int(d))
	}
	return &sc, nil
}

func (s *Store) GetSchedule(ctx context.Context, scheduleID string) (*Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE id = $1`

	sc, err := s.scanSchedule(s.db.QueryRowContext(ctx, query, scheduleID))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error querying schedule %s: %w", scheduleID, err)
	}
	return sc, nil
}

func (s *Store) ListActiveSchedules(ctx context.Context) ([]Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE is_active = true ORDER BY created_at ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error querying active schedules: %w", err)
	}
	defer rows.Close()

	var schedules []Schedule
	for rows.Next() {
		sc, err := s.scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning schedule row: %w", err)
		}
		schedules = append(schedules, *sc)
	}
	return schedules, rows.Err()
}

func (s *Store) CreateSchedule(ctx context.Context, sc *Schedule) error {
	if sc.ID == "" {
		sc.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	sc.CreatedAt = now
	sc.UpdatedAt = now

	query := `
		INSERT INTO schedules (` + scheduleColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	if _, err := s.db.ExecContext(ctx, query,
		sc.ID, sc.ZoneID, sc.Name, sc.DeviceID, sc.DeviceType, sc.Action,
		sc.Command, sc.Time, sc.Repetition, sc.Date, pq.Array(sc.DaysOfWeek),
		sc.DayOfMonth, sc.IsActive, sc.CreatedAt, sc.UpdatedAt,
	); err != nil {
		return fmt.Errorf("error creating schedule: %w", err)
	}
	return nil
}

func (s *Store) UpdateSchedule(ctx context.Context, sc *Schedule) error {
	sc.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE schedules SET
			name = $2, device_id = $3, device_type = $4, action = $5, command = $6,
			run_time = $7, repetition = $8, run_date = $9, days_of_week = $10,
			day_of_month = $11, is_active = $12, updated_at = $13
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, query,
		sc.ID, sc.Name, sc.DeviceID, sc.DeviceType, sc.Action, sc.Command,
		sc.Time, sc.Repetition, sc.Date, pq.Array(sc.DaysOfWeek),
		sc.DayOfMonth, sc.IsActive, sc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("error updating schedule %s: %w", sc.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) SetScheduleActive(ctx context.Context, scheduleID string, active bool) error {
	query := `UPDATE schedules SET is_active = $2, updated_at = $3 WHERE id = $1`
	res, err := s.db.ExecContext(ctx, query, scheduleID, active, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("error toggling schedule %s: %w", scheduleID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) DeleteSchedule(ctx context.Context, scheduleID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM schedules WHERE id = $1`, scheduleID)
	if err != nil {
		return fmt.Errorf("error deleting schedule %s: %w", scheduleID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
