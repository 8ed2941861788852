package mqttbroker

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// SelfTestConfig describes the mTLS client certificate a loopback check
// connects with; it exercises the exact path a real device takes
// (CONNECT, CN-identity enforcement, one PUBLISH) without needing a
// second physical device on hand.
type SelfTestConfig struct {
	Broker     string // e.g. "tcps://127.0.0.1:8883"
	DeviceID   string
	CertFile   string
	KeyFile    string
	CAFile     string
	ConnectTTL time.Duration
}

// PublishLoopback connects to the broker using the teacher's own MQTT
// dependency (paho.mqtt.golang, kept from dunnart rather than dropped)
// and publishes a single shadow-update message on the device's own
// topic, returning once the broker has acknowledged it at QoS 1.
func PublishLoopback(cfg SelfTestConfig, topic string, payload []byte) error {
	tlsConfig, err := selfTestTLSConfig(cfg)
	if err != nil {
		return err
	}

	ttl := cfg.ConnectTTL
	if ttl <= 0 {
		ttl = 5 * time.Second
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.DeviceID).
		SetTLSConfig(tlsConfig).
		SetConnectTimeout(ttl).
		SetAutoReconnect(false)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(ttl) {
		return fmt.Errorf("mqttbroker: self-test connect timed out after %s", ttl)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqttbroker: self-test connect: %w", err)
	}
	defer client.Disconnect(250)

	pubToken := client.Publish(topic, 1, false, payload)
	if !pubToken.WaitTimeout(ttl) {
		return fmt.Errorf("mqttbroker: self-test publish timed out after %s", ttl)
	}
	return pubToken.Error()
}

func selfTestTLSConfig(cfg SelfTestConfig) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("mqttbroker: load self-test keypair: %w", err)
	}
	caCert, err := os.ReadFile(cfg.CAFile)
	if err != nil {
		return nil, fmt.Errorf("mqttbroker: read self-test CA bundle: %w", err)
	}
	caPool := x509.NewCertPool()
	if !caPool.AppendCertsFromPEM(caCert) {
		return nil, fmt.Errorf("mqttbroker: no usable certs in %s", cfg.CAFile)
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		RootCAs:      caPool,
	}, nil
}
