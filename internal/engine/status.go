package engine

import (
	"context"
	"encoding/json"
	"fmt"

	"ecohub-core/internal/store"

	"go.uber.org/zap"
)

type statusStore interface {
	UpsertZoneStatus(ctx context.Context, zoneID string, patch store.StatusPatch) error
	GetZoneStatus(ctx context.Context, zoneID string) (*store.ZoneStatus, error)
}

// StatusProjector maintains the single latest-status row per zone and
// republishes it for live subscribers after every merge.
type StatusProjector struct {
	statuses  statusStore
	pub       Publisher
	namespace string
	logger    *zap.Logger
}

func NewStatusProjector(statuses statusStore, pub Publisher, namespace string, logger *zap.Logger) *StatusProjector {
	return &StatusProjector{statuses: statuses, pub: pub, namespace: namespace, logger: logger}
}

// Update merge-upserts the patch, re-reads the full row and publishes the
// snapshot on the status-update topic. The publish is best-effort; a broker
// hiccup does not undo the persisted merge.
func (p *StatusProjector) Update(ctx context.Context, zoneID string, patch store.StatusPatch) (*store.ZoneStatus, error) {
	if err := p.statuses.UpsertZoneStatus(ctx, zoneID, patch); err != nil {
		return nil, fmt.Errorf("error updating status for zone %s: %w", zoneID, err)
	}

	zs, err := p.statuses.GetZoneStatus(ctx, zoneID)
	if err != nil {
		return nil, fmt.Errorf("error reading back status for zone %s: %w", zoneID, err)
	}

	payload, err := json.Marshal(zs)
	if err != nil {
		return zs, fmt.Errorf("error encoding status snapshot for zone %s: %w", zoneID, err)
	}
	if err := p.pub.Publish(ctx, statusUpdateTopic(p.namespace, zoneID), payload); err != nil {
		p.logger.Warn("failed to publish status update",
			zap.String("zone_id", zoneID), zap.Error(err))
	}
	return zs, nil
}

// Initialize seeds the "Initializing" row for a freshly provisioned zone so
// a readable status exists before any telemetry arrives.
func (p *StatusProjector) Initialize(ctx context.Context, zoneID string) error {
	status := StatusInitializing
	suggestion := ""
	_, err := p.Update(ctx, zoneID, store.StatusPatch{
		Status:         &status,
		Suggestion:     &suggestion,
		LastReadings:   map[string]float64{},
		ActuatorStates: map[string]bool{},
	})
	return err
}
