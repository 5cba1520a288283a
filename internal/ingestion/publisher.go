package ingestion

import (
	"encoding/json"
	"fmt"
	"time"

	pkgmqtt "emi-device-manager/pkg/mqtt"
)

// CommandPublisher pushes lock and unlock commands down to devices on
// devices/{id}/commands. Commands are retained so a device that is offline
// picks the latest one up on reconnect.
type CommandPublisher struct {
	client *pkgmqtt.Client
	qos    byte
}

func NewCommandPublisher(client *pkgmqtt.Client, qos byte) *CommandPublisher {
	return &CommandPublisher{client: client, qos: qos}
}

type commandEnvelope struct {
	Command   string                 `json:"command"`
	Timestamp time.Time              `json:"timestamp"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
}

func (p *CommandPublisher) PublishCommand(deviceID, command string, payload map[string]interface{}) error {
	if p.client == nil || !p.client.IsConnected() {
		return fmt.Errorf("mqtt client is not connected")
	}

	data, err := json.Marshal(commandEnvelope{
		Command:   command,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	})
	if err != nil {
		return fmt.Errorf("failed to encode command: %w", err)
	}

	topic := fmt.Sprintf("devices/%s/commands", deviceID)
	return p.client.Publish(topic, p.qos, true, data)
}
