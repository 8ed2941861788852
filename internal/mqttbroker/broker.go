// Package mqttbroker embeds an MQTT v3/v5 broker (github.com/DrmagicE/gmqtt)
// behind a small message-stream API: an inbound queue of published
// messages, a connect/disconnect event feed, and a publish handle.
// Grounded on other_examples/5d967b47_relabs-tech-kurbisio__iot-broker-broker.go.go's
// plugin shape, generalized from a single Postgres-backed "twin" topic
// scheme to a configurable multi-tenant shadow topic prefix.
package mqttbroker

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"

	"github.com/DrmagicE/gmqtt"
	"go.uber.org/zap"
)

// InboundMessage is one MQTT PUBLISH handed to the processor.
type InboundMessage struct {
	ClientID string
	Topic    string
	Payload  []byte
}

// ConnEventKind distinguishes a connect from a disconnect.
type ConnEventKind int

const (
	ConnEventConnected ConnEventKind = iota
	ConnEventDisconnected
)

type ConnEvent struct {
	Kind     ConnEventKind
	ClientID string
}

// Config holds everything StartBroker needs. mTLS is mandatory: a client
// certificate's CommonName must equal the MQTT client ID (spec.md §1/§7's
// "mTLS client-cert CN identity").
type Config struct {
	BindV3                string
	BindV5                string
	CertFile, KeyFile     string
	CAFile                string
	QueueSize             int
	ConnectionEventBuffer int
}

// Broker owns the gmqtt server and the channels its plugin feeds.
type Broker struct {
	server  gmqtt.Server
	plugin  *hookPlugin
	log     *zap.Logger
	inbound chan InboundMessage
	events  *fanout
}

// StartBroker builds the TLS listeners, wires the plugin's hooks into a new
// gmqtt.Server, and starts it. gmqtt negotiates MQTT v3 vs v5 per
// connection from the CONNECT packet; the two bind addresses exist purely
// so an operator can route v3/v5 traffic over separate network paths.
func StartBroker(cfg Config, log *zap.Logger) (*Broker, error) {
	tlsConfig, err := buildTLSConfig(cfg)
	if err != nil {
		return nil, err
	}

	lnV3, err := tls.Listen("tcp", cfg.BindV3, tlsConfig)
	if err != nil {
		return nil, fmt.Errorf("mqttbroker: listen v3 on %s: %w", cfg.BindV3, err)
	}
	lnV5, err := tls.Listen("tcp", cfg.BindV5, tlsConfig)
	if err != nil {
		return nil, fmt.Errorf("mqttbroker: listen v5 on %s: %w", cfg.BindV5, err)
	}

	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 1024
	}
	eventBuffer := cfg.ConnectionEventBuffer
	if eventBuffer <= 0 {
		eventBuffer = 64
	}

	b := &Broker{
		log:     log,
		inbound: make(chan InboundMessage, queueSize),
		events:  newFanout(eventBuffer),
	}
	b.plugin = &hookPlugin{broker: b, log: log}

	b.server = gmqtt.NewServer(
		gmqtt.WithTCPListener(lnV3),
		gmqtt.WithTCPListener(lnV5),
		gmqtt.WithPlugin(b.plugin),
	)
	b.server.Run()
	return b, nil
}

func buildTLSConfig(cfg Config) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("mqttbroker: load server keypair: %w", err)
	}

	caCert, err := os.ReadFile(cfg.CAFile)
	if err != nil {
		return nil, fmt.Errorf("mqttbroker: read CA bundle: %w", err)
	}
	caPool := x509.NewCertPool()
	if !caPool.AppendCertsFromPEM(caCert) {
		return nil, fmt.Errorf("mqttbroker: no usable certs in %s", cfg.CAFile)
	}

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		ClientCAs:    caPool,
		ClientAuth:   tls.RequireAndVerifyClientCert,
	}, nil
}

// Messages returns the inbound PUBLISH stream. Exactly one consumer is
// expected (the processor's message loop).
func (b *Broker) Messages() <-chan InboundMessage {
	return b.inbound
}

// ConnectionEvents registers a new subscriber to the connect/disconnect
// feed, buffered per Config.ConnectionEventBuffer.
func (b *Broker) ConnectionEvents() <-chan ConnEvent {
	return b.events.subscribe()
}

// Sender returns a handle for publishing to connected clients.
func (b *Broker) Sender() MqttSender {
	return mqttSender{server: b.server}
}

func (b *Broker) Shutdown(ctx context.Context) error {
	b.events.close()
	return b.server.Stop(ctx)
}
