package engine

import (
	"fmt"
	"strings"
)

// Topic kinds the engine consumes.
const (
	topicSensors         = "sensors"
	topicNotifications   = "notifications"
	topicCommandFeedback = "command_feedback"
)

// parseTopic extracts (zoneID, kind) from an inbound topic of the form
// <namespace>/{zoneId}/<kind>.
func parseTopic(namespace, topic string) (string, string, error) {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 || parts[0] != namespace {
		return "", "", fmt.Errorf("topic not supported: %s", topic)
	}
	switch parts[2] {
	case topicSensors, topicNotifications, topicCommandFeedback:
		return parts[1], parts[2], nil
	}
	return "", "", fmt.Errorf("unknown topic kind: %s", topic)
}

func sensorsFilter(namespace string) string {
	return namespace + "/+/" + topicSensors
}

func notificationsFilter(namespace string) string {
	return namespace + "/+/" + topicNotifications
}

func commandFeedbackFilter(namespace string) string {
	return namespace + "/+/" + topicCommandFeedback
}

func commandTopic(namespace, zoneID string) string {
	return namespace + "/" + zoneID + "/commands"
}

func notificationTopic(namespace, zoneID string) string {
	return namespace + "/" + zoneID + "/" + topicNotifications
}

func statusUpdateTopic(namespace, zoneID string) string {
	return namespace + "/zones/" + zoneID + "/status_update"
}
