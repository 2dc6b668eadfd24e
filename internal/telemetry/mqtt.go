package telemetry

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTConfig holds broker connection settings for the telemetry forwarder.
type MQTTConfig struct {
	Host        string
	Port        int
	Username    string
	Password    string
	ClientID    string
	TopicPrefix string
}

// MQTTConfigFromEnv builds a config from MQTT_* environment variables.
// Returns ok=false when MQTT_HOST is unset, meaning forwarding is disabled.
func MQTTConfigFromEnv(defaultClientID string) (MQTTConfig, bool) {
	host := os.Getenv("MQTT_HOST")
	if host == "" {
		return MQTTConfig{}, false
	}

	port := 1883
	if v := os.Getenv("MQTT_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 {
			port = p
		}
	}

	clientID := os.Getenv("MQTT_CLIENT_ID")
	if clientID == "" {
		clientID = defaultClientID
	}

	prefix := os.Getenv("MQTT_TOPIC_PREFIX")
	if prefix == "" {
		prefix = "viewfinder/telemetry"
	}

	return MQTTConfig{
		Host:        host,
		Port:        port,
		Username:    os.Getenv("MQTT_USERNAME"),
		Password:    os.Getenv("MQTT_PASSWORD"),
		ClientID:    clientID,
		TopicPrefix: prefix,
	}, true
}

// MQTTSink forwards telemetry events to an MQTT broker as JSON messages on
// <prefix>/<plugin>/<event>. Publishes are asynchronous; a broker that
// cannot keep up costs nothing on the dispatch path.
type MQTTSink struct {
	client mqtt.Client
	prefix string
}

// NewMQTTSink connects to the broker described by cfg.
func NewMQTTSink(cfg MQTTConfig) (*MQTTSink, error) {
	broker := fmt.Sprintf("tcp://%s:%d", cfg.Host, cfg.Port)

	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(5 * time.Second)
	opts.SetKeepAlive(30 * time.Second)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	cli := mqtt.NewClient(opts)
	token := cli.Connect()
	if ok := token.WaitTimeout(10 * time.Second); !ok {
		return nil, fmt.Errorf("mqtt connect timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect error: %w", err)
	}

	return &MQTTSink{client: cli, prefix: cfg.TopicPrefix}, nil
}

// LogEvent publishes the event without waiting for broker acknowledgement.
func (s *MQTTSink) LogEvent(pluginName, name string, payload map[string]any) {
	msg, err := json.Marshal(map[string]any{
		"plugin":    pluginName,
		"event":     name,
		"payload":   payload,
		"timestamp": nowMillis(),
	})
	if err != nil {
		log.Printf("telemetry: failed to encode %s/%s: %v", pluginName, name, err)
		return
	}

	topic := fmt.Sprintf("%s/%s/%s", s.prefix, pluginName, name)
	s.client.Publish(topic, 0, false, msg)
}

// Close disconnects from the broker.
func (s *MQTTSink) Close() {
	if s.client != nil && s.client.IsConnected() {
		s.client.Disconnect(250)
	}
}
