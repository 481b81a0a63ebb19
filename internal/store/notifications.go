package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

func (s *Store) InsertNotificationLog(ctx context.Context, l *NotificationLog) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	l.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO notification_logs (id, zone_id, alert_type, severity, message, emails_sent, total_eligible, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	if _, err := s.db.ExecContext(ctx, query,
		l.ID, l.ZoneID, l.AlertType, l.Severity, l.Message,
		l.EmailsSent, l.TotalEligible, l.Status, l.CreatedAt,
	); err != nil {
		return fmt.Errorf("error inserting notification log: %w", err)
	}
	return nil
}
