package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

func (s *Store) GetUser(ctx context.Context, uid string) (*User, error) {
	query := `
		SELECT uid, email, display_name, email_verified, notification_preferences
		FROM users WHERE uid = $1
	`

	var u User
	var prefsJSON []byte
	err := s.db.QueryRowContext(ctx, query, uid).Scan(
		&u.UID, &u.Email, &u.DisplayName, &u.EmailVerified, &prefsJSON,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error querying user %s: %w", uid, err)
	}

	if len(prefsJSON) > 0 {
		if err := json.Unmarshal(prefsJSON, &u.Preferences); err != nil {
			return nil, fmt.Errorf("error parsing preferences for user %s: %w", uid, err)
		}
	}
	return &u, nil
}
