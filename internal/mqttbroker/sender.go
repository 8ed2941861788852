package mqttbroker

import (
	"github.com/DrmagicE/gmqtt"
	"github.com/DrmagicE/gmqtt/pkg/packets"
)

// MqttSender publishes to whatever clients are subscribed to topic,
// independent of which connection triggered the publish. Grounded on
// other_examples/5d967b47_relabs-tech-kurbisio__iot-broker-broker.go.go's
// PublishMessageQ1.
type MqttSender interface {
	Publish(topic string, payload []byte) error
}

type mqttSender struct {
	server gmqtt.Server
}

func (s mqttSender) Publish(topic string, payload []byte) error {
	msg := gmqtt.NewMessage(topic, payload, packets.Qos1)
	s.server.PublishService().Publish(msg)
	return nil
}
