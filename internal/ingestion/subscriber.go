package ingestion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"emi-device-manager/internal/logger"
	deviceUsecase "emi-device-manager/internal/usecase/device"
	pkgmqtt "emi-device-manager/pkg/mqtt"
)

// Config describes the topics device telemetry ingestion listens on.
type Config struct {
	HeartbeatTopic string // devices/+/heartbeat
	StatusTopic    string // devices/+/status
	QoS            byte
}

// HeartbeatMessage is the payload devices publish on their heartbeat and
// status topics.
type HeartbeatMessage struct {
	ConnectionType *string `json:"connection_type"`
	AppInstalled   *bool   `json:"app_installed"`
	AppTampered    *bool   `json:"app_tampered"`
	RootDetected   *bool   `json:"root_detected"`
}

// Subscriber wires MQTT device telemetry into the device service.
type Subscriber struct {
	cfg     *Config
	client  *pkgmqtt.Client
	devices *deviceUsecase.Service

	mu            sync.Mutex
	started       bool
	subscriptions []string
}

// NewSubscriber wraps an MQTT client. The client is shared with the
// command publisher so both sides ride one broker connection.
func NewSubscriber(cfg *Config, client *pkgmqtt.Client, devices *deviceUsecase.Service) (*Subscriber, error) {
	if cfg == nil {
		return nil, errors.New("mqtt ingestion config is not configured")
	}
	if client == nil {
		return nil, errors.New("mqtt client is required")
	}
	if devices == nil {
		return nil, errors.New("device service is required")
	}

	return &Subscriber{
		cfg:     cfg,
		client:  client,
		devices: devices,
	}, nil
}

// Start establishes the MQTT connection and subscribes to the topics.
func (s *Subscriber) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if err := s.client.Connect(); err != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}

	topics := []string{}
	if s.cfg.HeartbeatTopic != "" {
		topics = append(topics, s.cfg.HeartbeatTopic)
	}
	if s.cfg.StatusTopic != "" {
		topics = append(topics, s.cfg.StatusTopic)
	}
	if len(topics) == 0 {
		return errors.New("no MQTT topics configured for ingestion")
	}

	for _, topic := range topics {
		if err := s.client.Subscribe(topic, s.cfg.QoS, s.handleMessage); err != nil {
			s.client.Disconnect()
			return fmt.Errorf("subscribe failed for topic %s: %w", topic, err)
		}
		s.subscriptions = append(s.subscriptions, topic)
	}

	s.started = true
	return nil
}

// Stop unsubscribes and disconnects from the broker.
func (s *Subscriber) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	if len(s.subscriptions) > 0 {
		if err := s.client.Unsubscribe(s.subscriptions...); err != nil {
			logger.Warn("Failed to unsubscribe from MQTT topics", zap.Error(err))
		}
	}

	s.client.Disconnect()
	s.started = false
	s.subscriptions = nil
}

// handleMessage decodes a telemetry payload and records the heartbeat.
// The device identifier is the second topic segment: devices/{id}/....
func (s *Subscriber) handleMessage(topic string, payload []byte) {
	deviceID, err := deviceIDFromTopic(topic)
	if err != nil {
		logger.Warn("Unroutable MQTT message", zap.String("topic", topic), zap.Error(err))
		return
	}

	var msg HeartbeatMessage
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &msg); err != nil {
			logger.Warn("Invalid heartbeat payload",
				zap.String("device_id", deviceID),
				zap.Error(err),
			)
			return
		}
	}

	err = s.devices.Heartbeat(context.Background(), deviceID, &deviceUsecase.HeartbeatRequest{
		ConnectionType: msg.ConnectionType,
		AppInstalled:   msg.AppInstalled,
		AppTampered:    msg.AppTampered,
		RootDetected:   msg.RootDetected,
	})
	if err != nil {
		logger.Warn("Heartbeat rejected",
			zap.String("device_id", deviceID),
			zap.Error(err),
		)
	}
}

func deviceIDFromTopic(topic string) (string, error) {
	parts := strings.Split(topic, "/")
	if len(parts) < 3 || parts[0] != "devices" || parts[1] == "" {
		return "", fmt.Errorf("unexpected topic shape %q", topic)
	}
	return parts[1], nil
}
