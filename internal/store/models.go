package store

import "time"

// Threshold is one configured band for a measured quantity.
type Threshold struct {
	Enabled bool    `json:"enabled"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
}

// Zone is the unit of isolation for all evaluation.
type Zone struct {
	ID            string               `json:"id"`
	Name          string               `json:"name"`
	Owner         string               `json:"owner"`
	Thresholds    map[string]Threshold `json:"thresholds"`
	CropProfileID string               `json:"cropProfileId"`
	CreatedAt     time.Time            `json:"createdAt"`
	UpdatedAt     time.Time            `json:"updatedAt"`
}

// Sensor maps one or more measured quantities to a physical device.
type Sensor struct {
	ID        string    `json:"id"`
	ZoneID    string    `json:"zoneId"`
	DeviceID  string    `json:"deviceId"`
	Measures  []string  `json:"measures"`
	CreatedAt time.Time `json:"createdAt"`
}

// Reading is an immutable fact. Created once, never mutated.
type Reading struct {
	ID       string    `json:"id"`
	SensorID string    `json:"sensorId"`
	ZoneID   string    `json:"zoneId"`
	Quantity string    `json:"type"`
	Value    float64   `json:"value"`
	ReadAt   time.Time `json:"readAt"`
}

// ZoneStatus is the latest-known projection per zone, one row per zone.
type ZoneStatus struct {
	ZoneID         string             `json:"zoneId"`
	Status         string             `json:"status"`
	Suggestion     string             `json:"suggestion"`
	LastReadings   map[string]float64 `json:"lastReadings"`
	ActuatorStates map[string]bool    `json:"actuatorStates"`
	LastUpdated    time.Time          `json:"lastUpdated"`
}

// StatusPatch carries the fields to merge into a zone's status row. Nil
// fields are left untouched by the merge-upsert.
type StatusPatch struct {
	Status         *string
	Suggestion     *string
	LastReadings   map[string]float64
	ActuatorStates map[string]bool
}

// Command lifecycle: created pending, device reports a terminal status.
const (
	CommandPending   = "pending"
	CommandExecuting = "executing"
	CommandCompleted = "completed"
	CommandFailed    = "failed"
	CommandCanceled  = "canceled"
)

type Command struct {
	ID          string     `json:"id"`
	ZoneID      string     `json:"zoneId"`
	DeviceID    string     `json:"deviceId"`
	Action      string     `json:"action"`
	Payload     string     `json:"payload"`
	Status      string     `json:"status"`
	RequestedBy string     `json:"requestedBy"`
	CreatedAt   time.Time  `json:"createdAt"`
	ExecutedAt  *time.Time `json:"executedAt"`
}

// Schedule repetition kinds.
const (
	RepeatOnce    = "once"
	RepeatDaily   = "daily"
	RepeatWeekly  = "weekly"
	RepeatMonthly = "monthly"
)

// Schedule is a time-based rule issuing a device command independent of
// sensor state. Kind-specific fields: Date (once), DaysOfWeek (weekly,
// 0=Sunday..6=Saturday), DayOfMonth (monthly).
type Schedule struct {
	ID         string    `json:"id"`
	ZoneID     string    `json:"zoneId"`
	Name       string    `json:"name"`
	DeviceID   string    `json:"deviceId"`
	DeviceType string    `json:"deviceType"`
	Action     string    `json:"action"`
	Command    string    `json:"command"`
	Time       string    `json:"time"` // HH:MM
	Repetition string    `json:"repetition"`
	Date       string    `json:"date,omitempty"` // YYYY-MM-DD
	DaysOfWeek []int     `json:"daysOfWeek,omitempty"`
	DayOfMonth int       `json:"dayOfMonth,omitempty"`
	IsActive   bool      `json:"isActive"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// NotificationPreferences live on the user profile. Email nil means opted
// in (the reference behavior defaults to sending).
type NotificationPreferences struct {
	Email       *bool  `json:"email,omitempty"`
	MinSeverity string `json:"minSeverity,omitempty"`
	MaxPerHour  int    `json:"maxPerHour,omitempty"`
	MaxPerDay   int    `json:"maxPerDay,omitempty"`
}

type User struct {
	UID           string                  `json:"uid"`
	Email         string                  `json:"email"`
	DisplayName   string                  `json:"displayName"`
	EmailVerified bool                    `json:"emailVerified"`
	Preferences   NotificationPreferences `json:"notificationPreferences"`
}

// NotificationLog is the audit row written after each fan-out.
type NotificationLog struct {
	ID            string    `json:"id"`
	ZoneID        string    `json:"zoneId"`
	AlertType     string    `json:"alertType"`
	Severity      string    `json:"severity"`
	Message       string    `json:"message"`
	EmailsSent    int       `json:"emailsSent"`
	TotalEligible int       `json:"totalEligible"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"createdAt"`
}
