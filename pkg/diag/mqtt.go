package diag

import (
	"encoding/json"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// DefaultPublishTimeout bounds how long Emit waits for the broker
const DefaultPublishTimeout = 2 * time.Second

// MQTT publishes events as JSON to a broker topic
type MQTT struct {
	client  mqtt.Client
	topic   string
	timeout time.Duration

	// OnError is called when an event cannot be published. May be nil
	OnError func(error)
}

// NewMQTT returns a sink publishing on topic using an already connected client
func NewMQTT(client mqtt.Client, topic string) *MQTT {
	return &MQTT{
		client:  client,
		topic:   topic,
		timeout: DefaultPublishTimeout,
	}
}

// DialMQTT connects to broker and returns a publishing sink
func DialMQTT(broker, clientID, topic string) (*MQTT, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)

	c := mqtt.NewClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}

	return NewMQTT(c, topic), nil
}

type mqttPayload struct {
	Event
	Error string `json:"error,omitempty"`
	Time  string `json:"time"`
}

// Emit implements Sink
func (m *MQTT) Emit(e Event) {
	blob, err := json.Marshal(mqttPayload{
		Event: e,
		Error: e.Message(),
		Time:  time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		m.fail(err)
		return
	}

	token := m.client.Publish(m.topic, 0, false, blob)
	if !token.WaitTimeout(m.timeout) {
		return
	}
	if err := token.Error(); err != nil {
		m.fail(err)
	}
}

func (m *MQTT) fail(err error) {
	if m.OnError != nil {
		m.OnError(err)
	}
}

// Close disconnects the underlying client
func (m *MQTT) Close() {
	m.client.Disconnect(250)
}

// compile time check
var _ Sink = &MQTT{}
