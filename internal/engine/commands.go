package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"ecohub-core/internal/services"
	"ecohub-core/internal/store"

	"go.uber.org/zap"
)

const completedPrefix = "COMPLETED:"

// TokenVerifier checks a bearer token against the auth service.
type TokenVerifier interface {
	VerifyToken(token string) (*services.AuthUser, error)
}

type commandStore interface {
	CreateCommand(ctx context.Context, c *store.Command) error
	CompleteCommand(ctx context.Context, zoneID, action string) (*store.Command, error)
}

// CommandService publishes actuator commands and closes their lifecycle from
// device feedback.
type CommandService struct {
	commands  commandStore
	pub       Publisher
	verifier  TokenVerifier
	namespace string
	logger    *zap.Logger
}

func NewCommandService(commands commandStore, pub Publisher, verifier TokenVerifier, namespace string, logger *zap.Logger) *CommandService {
	return &CommandService{commands: commands, pub: pub, verifier: verifier, namespace: namespace, logger: logger}
}

// Publish records a pending command and sends it to the zone's command topic.
// The record is best-effort: devices must still receive the command when the
// database write fails, the lifecycle just cannot be tracked for it.
func (c *CommandService) Publish(ctx context.Context, zoneID, deviceID, command, requestedBy string) error {
	record := &store.Command{
		ZoneID:      zoneID,
		DeviceID:    deviceID,
		Action:      command,
		Payload:     command,
		RequestedBy: requestedBy,
	}
	if err := c.commands.CreateCommand(ctx, record); err != nil {
		c.logger.Warn("failed to record command",
			zap.String("zone_id", zoneID), zap.String("command", command), zap.Error(err))
	}

	if err := c.pub.Publish(ctx, commandTopic(c.namespace, zoneID), []byte(command)); err != nil {
		return fmt.Errorf("error publishing command %s for zone %s: %w", command, zoneID, err)
	}
	c.logger.Info("command published",
		zap.String("zone_id", zoneID), zap.String("command", command), zap.String("requested_by", requestedBy))
	return nil
}

// PublishAs verifies the caller's token before publishing, attributing the
// command to the authenticated user.
func (c *CommandService) PublishAs(ctx context.Context, token, zoneID, deviceID, command string) error {
	user, err := c.verifier.VerifyToken(token)
	if err != nil {
		return fmt.Errorf("error verifying command requester: %w", err)
	}
	return c.Publish(ctx, zoneID, deviceID, command, user.UID)
}

// HandleFeedback processes one command_feedback message. The payload is the
// plain-text form "COMPLETED:<command>"; anything else is logged and dropped.
// A completion for an untracked command still produces the broker-side
// completion signal so live dashboards converge.
func (c *CommandService) HandleFeedback(ctx context.Context, zoneID string, payload []byte) error {
	body := strings.TrimSpace(string(payload))
	if !strings.HasPrefix(body, completedPrefix) {
		c.logger.Warn("unrecognized command feedback",
			zap.String("zone_id", zoneID), zap.String("payload", body))
		return nil
	}
	command := strings.TrimSpace(strings.TrimPrefix(body, completedPrefix))
	if command == "" {
		c.logger.Warn("command feedback without a command", zap.String("zone_id", zoneID))
		return nil
	}

	if _, err := c.commands.CompleteCommand(ctx, zoneID, command); err != nil {
		if err == store.ErrNotFound {
			c.logger.Warn("feedback for untracked command",
				zap.String("zone_id", zoneID), zap.String("command", command))
		} else {
			return err
		}
	}

	n := Notification{
		Type:               "command_completed",
		Message:            fmt.Sprintf("Command %s completed", command),
		IsCompletionSignal: true,
		CompletedCommand:   command,
	}
	bodyJSON, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("error encoding completion signal for zone %s: %w", zoneID, err)
	}
	if err := c.pub.Publish(ctx, notificationTopic(c.namespace, zoneID), bodyJSON); err != nil {
		c.logger.Warn("failed to publish completion signal",
			zap.String("zone_id", zoneID), zap.String("command", command), zap.Error(err))
	}
	return nil
}
