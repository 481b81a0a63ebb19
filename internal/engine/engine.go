package engine

import (
	"context"
	"encoding/json"
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"

	"ecohub-core/config"
	"ecohub-core/internal/services"
	"ecohub-core/internal/store"

	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type inboundMessage struct {
	zoneID  string
	kind    string
	payload []byte
}

// Engine owns the full message path: MQTT subscriptions feed per-zone
// sharded worker channels, so messages for one zone are handled in arrival
// order while different zones proceed in parallel.
type Engine struct {
	cfg    *config.Config
	mqtt   *services.MqttClient
	logger *zap.Logger

	cache     *zoneCache
	projector *StatusProjector
	pipeline  *TelemetryPipeline
	notifier  *Notifier
	commands  *CommandService
	scheduler *Scheduler

	shards   []chan inboundMessage
	wg       sync.WaitGroup
	msgCount uint64
}

func New(
	cfg *config.Config,
	mqtt *services.MqttClient,
	rdb *redis.Client,
	st *store.Store,
	points PointWriter,
	verifier TokenVerifier,
	mailer AlertSender,
	logger *zap.Logger,
) *Engine {
	cache := newZoneCache(rdb, st, time.Duration(cfg.Ingestion.CacheTTL)*time.Second, logger)
	projector := NewStatusProjector(st, mqtt, cfg.MQTT.Namespace, logger)
	history := NewHistoryWriter(st, points, logger)
	pipeline := NewTelemetryPipeline(cache, projector, history, mqtt, cfg.MQTT.Namespace, logger)
	limiter := NewRateLimiter(rdb, logger)
	notifier := NewNotifier(st, mailer, limiter, logger)
	commands := NewCommandService(st, mqtt, verifier, cfg.MQTT.Namespace, logger)
	scheduler := NewScheduler(st, commands, logger)

	workers := cfg.Ingestion.Workers
	if workers <= 0 {
		workers = 1
	}
	queueSize := cfg.Ingestion.QueueSize
	if queueSize <= 0 {
		queueSize = 64
	}
	shards := make([]chan inboundMessage, workers)
	for i := range shards {
		shards[i] = make(chan inboundMessage, queueSize)
	}

	return &Engine{
		cfg:       cfg,
		mqtt:      mqtt,
		logger:    logger,
		cache:     cache,
		projector: projector,
		pipeline:  pipeline,
		notifier:  notifier,
		commands:  commands,
		scheduler: scheduler,
		shards:    shards,
	}
}

// Start spawns the shard workers, wires the MQTT router and arms the stored
// schedules. Subscriptions are registered through the connect hook so they
// are replayed after every reconnect.
func (e *Engine) Start(ctx context.Context) error {
	for i := range e.shards {
		e.wg.Add(1)
		go e.worker(ctx, e.shards[i])
	}

	e.mqtt.Client.AddOnPublishReceived(func(pr autopaho.PublishReceived) (bool, error) {
		e.route(pr.Packet)
		return true, nil
	})

	namespace := e.cfg.MQTT.Namespace
	e.mqtt.OnConnect(func(cm *autopaho.ConnectionManager) {
		subCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if _, err := cm.Subscribe(subCtx, &paho.Subscribe{
			Subscriptions: []paho.SubscribeOptions{
				{Topic: sensorsFilter(namespace), QoS: 1},
				{Topic: notificationsFilter(namespace), QoS: 1},
				{Topic: commandFeedbackFilter(namespace), QoS: 1},
			},
		}); err != nil {
			e.logger.Error("failed to subscribe", zap.Error(err))
			return
		}
		e.logger.Info("subscribed",
			zap.Strings("filters", []string{
				sensorsFilter(namespace),
				notificationsFilter(namespace),
				commandFeedbackFilter(namespace),
			}))
	})

	e.scheduler.Start()
	if err := e.scheduler.Reload(ctx); err != nil {
		e.logger.Warn("failed to reload schedules at startup", zap.Error(err))
	}

	go e.reportLoop(ctx)
	return nil
}

// Stop drains in-flight work and stops the scheduler.
func (e *Engine) Stop() {
	for i := range e.shards {
		close(e.shards[i])
	}
	e.wg.Wait()
	e.scheduler.Stop()
}

func (e *Engine) route(p *paho.Publish) {
	zoneID, kind, err := parseTopic(e.cfg.MQTT.Namespace, p.Topic)
	if err != nil {
		e.logger.Warn("dropping message", zap.String("topic", p.Topic), zap.Error(err))
		return
	}

	payload := make([]byte, len(p.Payload))
	copy(payload, p.Payload)
	msg := inboundMessage{zoneID: zoneID, kind: kind, payload: payload}

	select {
	case e.shards[e.shardFor(zoneID)] <- msg:
		atomic.AddUint64(&e.msgCount, 1)
	default:
		e.logger.Warn("ingestion queue full, dropping message",
			zap.String("zone_id", zoneID), zap.String("kind", kind))
	}
}

// shardFor pins a zone to one worker so its messages keep arrival order.
func (e *Engine) shardFor(zoneID string) int {
	h := fnv.New32a()
	h.Write([]byte(zoneID))
	return int(h.Sum32() % uint32(len(e.shards)))
}

func (e *Engine) worker(ctx context.Context, ch <-chan inboundMessage) {
	defer e.wg.Done()
	for msg := range ch {
		e.handleMessage(ctx, msg)
	}
}

func (e *Engine) handleMessage(ctx context.Context, msg inboundMessage) {
	var err error
	switch msg.kind {
	case topicSensors:
		err = e.pipeline.ProcessSensorData(ctx, msg.zoneID, msg.payload)
	case topicCommandFeedback:
		err = e.commands.HandleFeedback(ctx, msg.zoneID, msg.payload)
	case topicNotifications:
		err = e.dispatchNotification(ctx, msg.zoneID, msg.payload)
	}
	if err != nil {
		e.logger.Error("error handling message",
			zap.String("zone_id", msg.zoneID), zap.String("kind", msg.kind), zap.Error(err))
	}
}

// dispatchNotification turns the engine's own published notifications into
// emails. Subscribing to the topic instead of calling the notifier inline
// also covers notifications injected by other publishers.
func (e *Engine) dispatchNotification(ctx context.Context, zoneID string, payload []byte) error {
	var n Notification
	if err := json.Unmarshal(payload, &n); err != nil {
		e.logger.Warn("undecodable notification", zap.String("zone_id", zoneID), zap.Error(err))
		return nil
	}
	if n.IsCompletionSignal {
		return nil
	}
	return e.notifier.Dispatch(ctx, zoneID, n)
}

func (e *Engine) reportLoop(ctx context.Context) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.logger.Info("messages accepted", zap.Uint64("count", atomic.LoadUint64(&e.msgCount)))
		}
	}
}

// EvaluateThresholds runs a pure threshold pass without touching any state.
func (e *Engine) EvaluateThresholds(zoneName string, readings map[string]float64, thresholds map[string]store.Threshold) Evaluation {
	return Evaluate(zoneName, readings, thresholds)
}

// InitializeZoneStatus seeds the status row for a freshly provisioned zone.
func (e *Engine) InitializeZoneStatus(ctx context.Context, zoneID string) error {
	return e.projector.Initialize(ctx, zoneID)
}

// ProcessSensorData runs the ingestion pipeline for one telemetry payload.
func (e *Engine) ProcessSensorData(ctx context.Context, zoneID string, payload []byte) error {
	return e.pipeline.ProcessSensorData(ctx, zoneID, payload)
}

// PublishCommand records and publishes an actuator command for a zone.
func (e *Engine) PublishCommand(ctx context.Context, zoneID, deviceID, command, requestedBy string) error {
	return e.commands.Publish(ctx, zoneID, deviceID, command, requestedBy)
}

// PublishCommandAs is PublishCommand with the requester resolved from a
// bearer token.
func (e *Engine) PublishCommandAs(ctx context.Context, token, zoneID, deviceID, command string) error {
	return e.commands.PublishAs(ctx, token, zoneID, deviceID, command)
}

// Scheduler exposes schedule management (create, update, toggle, reload).
func (e *Engine) Scheduler() *Scheduler {
	return e.scheduler
}

// ReloadSchedules rebuilds the armed jobs from the store.
func (e *Engine) ReloadSchedules(ctx context.Context) error {
	return e.scheduler.Reload(ctx)
}

// InvalidateZone drops the cached zone document after configuration edits.
func (e *Engine) InvalidateZone(ctx context.Context, zoneID string) {
	e.cache.Invalidate(ctx, zoneID)
}
