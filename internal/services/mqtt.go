package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/url"
	"sync"
	"time"

	"ecohub-core/config"

	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"
	"go.uber.org/zap"
)

// MqttClient wraps the autopaho connection manager. Reconnects and backoff
// are handled by autopaho itself; this wrapper only adds connect hooks so
// subscriptions can be replayed on every connection-up.
type MqttClient struct {
	Client *autopaho.ConnectionManager

	mu    sync.Mutex
	hooks []func(*autopaho.ConnectionManager)
}

func NewMqttClient(ctx context.Context, cfg config.MQTTConfig, logger *zap.Logger) (*MqttClient, error) {
	u, err := url.Parse(cfg.Broker)
	if err != nil {
		return nil, fmt.Errorf("error parsing broker URL: %w", err)
	}

	clientID, err := generateRandomClientID(cfg.ClientID, 8)
	if err != nil {
		return nil, fmt.Errorf("error generating client ID: %w", err)
	}

	mc := &MqttClient{}

	cliCfg := autopaho.ClientConfig{
		ServerUrls:                    []*url.URL{u},
		ConnectUsername:               cfg.Username,
		ConnectPassword:               []byte(cfg.Password),
		KeepAlive:                     60,
		CleanStartOnInitialConnection: true,
		SessionExpiryInterval:         0,
		OnConnectionUp: func(cm *autopaho.ConnectionManager, _ *paho.Connack) {
			logger.Info("MQTT connection up", zap.String("broker", cfg.Broker))
			mc.mu.Lock()
			hooks := append([]func(*autopaho.ConnectionManager){}, mc.hooks...)
			mc.mu.Unlock()
			for _, h := range hooks {
				h(cm)
			}
		},
		OnConnectError: func(err error) {
			logger.Error("MQTT connect attempt failed", zap.Error(err))
		},
		ClientConfig: paho.ClientConfig{
			ClientID: clientID,
			OnClientError: func(err error) {
				logger.Error("MQTT client error", zap.Error(err))
			},
			OnServerDisconnect: func(d *paho.Disconnect) {
				if d.Properties != nil {
					logger.Warn("MQTT server disconnect", zap.String("reason", d.Properties.ReasonString))
				} else {
					logger.Warn("MQTT server disconnect", zap.Int("reason_code", int(d.ReasonCode)))
				}
			},
		},
	}

	c, err := autopaho.NewConnection(ctx, cliCfg)
	if err != nil {
		return nil, fmt.Errorf("error creating MQTT connection: %w", err)
	}

	if err = c.AwaitConnection(ctx); err != nil {
		return nil, fmt.Errorf("error awaiting MQTT connection: %w", err)
	}

	mc.Client = c
	return mc, nil
}

// OnConnect registers a hook invoked on every connection-up, including the
// reconnects autopaho performs on its own. With SessionExpiryInterval 0 the
// broker drops subscriptions on disconnect, so subscribers must re-register
// here rather than once after construction.
func (m *MqttClient) OnConnect(hook func(*autopaho.ConnectionManager)) {
	m.mu.Lock()
	m.hooks = append(m.hooks, hook)
	m.mu.Unlock()
	if m.Client != nil {
		hook(m.Client)
	}
}

// Publish sends a message with QoS 1. Best-effort: callers log failures but
// do not retry.
func (m *MqttClient) Publish(ctx context.Context, topic string, payload []byte) error {
	_, err := m.Client.Publish(ctx, &paho.Publish{
		Topic:   topic,
		QoS:     1,
		Payload: payload,
	})
	if err != nil {
		return fmt.Errorf("error publishing to %s: %w", topic, err)
	}
	return nil
}

func generateRandomClientID(prefix string, length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return prefix + "-" + hex.EncodeToString(bytes), nil
}

func DisconnectMQTTClient(c *autopaho.ConnectionManager, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := c.Disconnect(ctx); err != nil {
		logger.Warn("error disconnecting MQTT client", zap.Error(err))
	} else {
		logger.Info("MQTT client disconnected")
	}
}
