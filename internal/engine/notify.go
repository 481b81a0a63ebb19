package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"ecohub-core/internal/services"
	"ecohub-core/internal/store"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	defaultMaxPerHour = 10
	defaultMaxPerDay  = 50
)

// RateLimiter caps how many notification emails a user receives per hour and
// per day, using Redis counters keyed by wall-clock window. Fails open: if
// Redis is down a notification is better delivered than silently dropped.
type RateLimiter struct {
	rdb    *redis.Client
	now    func() time.Time
	logger *zap.Logger
}

func NewRateLimiter(rdb *redis.Client, logger *zap.Logger) *RateLimiter {
	return &RateLimiter{rdb: rdb, now: time.Now, logger: logger}
}

func (r *RateLimiter) Allow(ctx context.Context, uid string, maxPerHour, maxPerDay int) bool {
	if r.rdb == nil {
		return true
	}
	now := r.now().UTC()
	if !r.allowWindow(ctx, fmt.Sprintf("notify:%s:h:%s", uid, now.Format("2006010215")), maxPerHour, time.Hour) {
		return false
	}
	return r.allowWindow(ctx, fmt.Sprintf("notify:%s:d:%s", uid, now.Format("20060102")), maxPerDay, 24*time.Hour)
}

func (r *RateLimiter) allowWindow(ctx context.Context, key string, max int, window time.Duration) bool {
	count, err := r.rdb.Incr(ctx, key).Result()
	if err != nil {
		r.logger.Warn("rate limit counter unavailable", zap.String("key", key), zap.Error(err))
		return true
	}
	if count == 1 {
		r.rdb.Expire(ctx, key, window)
	}
	return count <= int64(max)
}

// AlertSender delivers one alert email.
type AlertSender interface {
	SendAlert(recipient string, data services.AlertEmail) error
}

type notifyStore interface {
	GetZone(ctx context.Context, zoneID string) (*store.Zone, error)
	GetUser(ctx context.Context, uid string) (*store.User, error)
	InsertNotificationLog(ctx context.Context, l *store.NotificationLog) error
}

// Notifier turns published zone notifications into emails for the zone owner,
// honoring per-user preferences, a minimum-severity floor and rate caps.
type Notifier struct {
	store   notifyStore
	mailer  AlertSender
	limiter *RateLimiter
	now     func() time.Time
	logger  *zap.Logger
}

func NewNotifier(store notifyStore, mailer AlertSender, limiter *RateLimiter, logger *zap.Logger) *Notifier {
	return &Notifier{store: store, mailer: mailer, limiter: limiter, now: time.Now, logger: logger}
}

// Dispatch evaluates eligibility and sends the email. Completion signals are
// broker-only chatter and are never emailed.
func (n *Notifier) Dispatch(ctx context.Context, zoneID string, notification Notification) error {
	if notification.IsCompletionSignal {
		return nil
	}

	zone, err := n.store.GetZone(ctx, zoneID)
	if err != nil {
		if err == store.ErrNotFound {
			n.logger.Warn("notification for unknown zone", zap.String("zone_id", zoneID))
			return nil
		}
		return fmt.Errorf("error loading zone %s: %w", zoneID, err)
	}
	if zone.Owner == "" {
		return nil
	}

	user, err := n.store.GetUser(ctx, zone.Owner)
	if err != nil {
		if err == store.ErrNotFound {
			n.logger.Warn("zone owner not found", zap.String("zone_id", zoneID), zap.String("owner", zone.Owner))
			return nil
		}
		return fmt.Errorf("error loading user %s: %w", zone.Owner, err)
	}

	if !n.eligible(user, notification) {
		return nil
	}

	maxPerHour := user.Preferences.MaxPerHour
	if maxPerHour <= 0 {
		maxPerHour = defaultMaxPerHour
	}
	maxPerDay := user.Preferences.MaxPerDay
	if maxPerDay <= 0 {
		maxPerDay = defaultMaxPerDay
	}
	if n.limiter != nil && !n.limiter.Allow(ctx, user.UID, maxPerHour, maxPerDay) {
		n.logger.Info("notification rate cap reached",
			zap.String("uid", user.UID), zap.String("zone_id", zoneID))
		return nil
	}

	recipients := []string{user.Email}
	data := services.AlertEmail{
		RecipientName: user.DisplayName,
		ZoneName:      zone.Name,
		AlertType:     notification.Type,
		Severity:      notification.Severity,
		Message:       notification.Message,
		Suggestion:    notification.SuggestionText,
		Timestamp:     n.now().UTC().Format(time.RFC1123),
	}

	var sent int64
	var wg sync.WaitGroup
	for _, recipient := range recipients {
		wg.Add(1)
		go func(addr string) {
			defer wg.Done()
			if err := n.mailer.SendAlert(addr, data); err != nil {
				n.logger.Error("failed to send alert email",
					zap.String("recipient", addr), zap.String("zone_id", zoneID), zap.Error(err))
				return
			}
			atomic.AddInt64(&sent, 1)
		}(recipient)
	}
	wg.Wait()

	logStatus := "sent"
	if sent == 0 {
		logStatus = "failed"
	}
	if err := n.store.InsertNotificationLog(ctx, &store.NotificationLog{
		ZoneID:        zoneID,
		AlertType:     notification.Type,
		Severity:      notification.Severity,
		Message:       notification.Message,
		EmailsSent:    int(sent),
		TotalEligible: len(recipients),
		Status:        logStatus,
	}); err != nil {
		n.logger.Warn("failed to record notification log",
			zap.String("uid", user.UID), zap.Error(err))
	}
	if sent == 0 {
		return fmt.Errorf("no alert email delivered for zone %s", zoneID)
	}
	return nil
}

func (n *Notifier) eligible(user *store.User, notification Notification) bool {
	if !user.EmailVerified || user.Email == "" {
		return false
	}
	// Email delivery is opt-out: a nil preference means enabled.
	if user.Preferences.Email != nil && !*user.Preferences.Email {
		return false
	}
	floor := user.Preferences.MinSeverity
	if floor == "" {
		floor = SeverityInfo
	}
	return SeverityRank(notification.Severity) >= SeverityRank(floor)
}
