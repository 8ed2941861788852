package mqttbroker

import (
	"context"
	"crypto/tls"
	"net"
	"sync"

	"github.com/DrmagicE/gmqtt"
	"go.uber.org/zap"

	"github.com/warthog618/shadowd/internal/metrics"
)

// hookPlugin wires shadowd's identity and routing rules into gmqtt's hook
// chain. Grounded on
// other_examples/5d967b47_relabs-tech-kurbisio__iot-broker-broker.go.go's
// plugin: the client certificate's CommonName is the only source of truth
// for device identity, checked once on accept and enforced again on
// connect.
type hookPlugin struct {
	broker *Broker
	log    *zap.Logger

	mu       sync.RWMutex
	deviceID map[net.Conn]string
}

func (p *hookPlugin) Load(service gmqtt.Server) error {
	if p.deviceID == nil {
		p.deviceID = make(map[net.Conn]string)
	}
	return nil
}

func (p *hookPlugin) Unload() error {
	return nil
}

func (p *hookPlugin) Name() string {
	return "shadowd-identity"
}

func (p *hookPlugin) HookWrapper() gmqtt.HookWrapper {
	return gmqtt.HookWrapper{
		OnAcceptWrapper:     p.onAcceptWrapper,
		OnConnectWrapper:    p.onConnectWrapper,
		OnClosedWrapper:     p.onClosedWrapper,
		OnMsgArrivedWrapper: p.onMsgArrivedWrapper,
		OnSubscribeWrapper:  p.onSubscribeWrapper,
		OnSubscribedWrapper: p.onSubscribedWrapper,
	}
}

// onAcceptWrapper extracts the device ID from the verified client
// certificate's CommonName. A connection with no verified chain, or an
// empty CN, is rejected before MQTT CONNECT processing begins.
func (p *hookPlugin) onAcceptWrapper(pre gmqtt.OnAccept) gmqtt.OnAccept {
	return func(ctx context.Context, conn net.Conn) bool {
		tlsConn, ok := conn.(*tls.Conn)
		if !ok {
			p.log.Warn("rejecting non-TLS connection", zap.String("remote", conn.RemoteAddr().String()))
			return false
		}
		state := tlsConn.ConnectionState()
		if len(state.VerifiedChains) == 0 || len(state.VerifiedChains[0]) == 0 {
			p.log.Warn("rejecting connection with no verified client certificate")
			return false
		}
		deviceID := state.VerifiedChains[0][0].Subject.CommonName
		if deviceID == "" {
			p.log.Warn("rejecting certificate with empty CommonName")
			return false
		}

		p.mu.Lock()
		p.deviceID[conn] = deviceID
		p.mu.Unlock()

		return pre(ctx, conn)
	}
}

// onConnectWrapper enforces that the MQTT ClientID matches the
// certificate-derived device ID, so a device can never assume another
// device's shadow or topic namespace.
func (p *hookPlugin) onConnectWrapper(pre gmqtt.OnConnect) gmqtt.OnConnect {
	return func(ctx context.Context, client gmqtt.Client) (code uint8) {
		conn := client.Connection()
		p.mu.RLock()
		deviceID, ok := p.deviceID[conn]
		p.mu.RUnlock()

		clientID := client.OptionsReader().ClientID()
		if !ok || clientID != deviceID {
			p.log.Warn("rejecting CONNECT with client-id/cert mismatch",
				zap.String("client_id", clientID), zap.String("cert_cn", deviceID))
			return packetCodeNotAuthorized
		}

		p.broker.events.publish(ConnEvent{Kind: ConnEventConnected, ClientID: clientID})
		return pre(ctx, client)
	}
}

func (p *hookPlugin) onClosedWrapper(pre gmqtt.OnClosed) gmqtt.OnClosed {
	return func(ctx context.Context, client gmqtt.Client, err error) {
		conn := client.Connection()
		p.mu.Lock()
		deviceID := p.deviceID[conn]
		delete(p.deviceID, conn)
		p.mu.Unlock()

		p.broker.events.publish(ConnEvent{Kind: ConnEventDisconnected, ClientID: deviceID})
		pre(ctx, client, err)
	}
}

// onMsgArrivedWrapper hands every PUBLISH to the processor's inbound
// queue. The queue is bounded (mqtt.queue_size): a full queue means the
// processor is behind, and shadowd drops the message rather than block
// the broker's I/O goroutine, counting the drop in metrics.
func (p *hookPlugin) onMsgArrivedWrapper(pre gmqtt.OnMsgArrived) gmqtt.OnMsgArrived {
	return func(ctx context.Context, client gmqtt.Client, req *gmqtt.MsgArrivedRequest) error {
		msg := req.Message
		inbound := InboundMessage{
			ClientID: client.OptionsReader().ClientID(),
			Topic:    msg.Topic(),
			Payload:  msg.Payload(),
		}
		select {
		case p.broker.inbound <- inbound:
			metrics.MessagesForwardedTotal.Inc()
		default:
			metrics.MessagesDroppedTotal.Inc()
			p.log.Warn("dropping inbound message, queue full",
				zap.String("client_id", inbound.ClientID), zap.String("topic", inbound.Topic))
		}
		return pre(ctx, client, req)
	}
}

// onSubscribeWrapper and onSubscribedWrapper are pass-throughs today;
// shadowd does not yet restrict which topics a device may subscribe to
// beyond what the processor publishes back to it.
func (p *hookPlugin) onSubscribeWrapper(pre gmqtt.OnSubscribe) gmqtt.OnSubscribe {
	return func(ctx context.Context, client gmqtt.Client, req *gmqtt.SubscribeRequest) error {
		return pre(ctx, client, req)
	}
}

func (p *hookPlugin) onSubscribedWrapper(pre gmqtt.OnSubscribed) gmqtt.OnSubscribed {
	return func(ctx context.Context, client gmqtt.Client, subscription *gmqtt.Subscription) {
		pre(ctx, client, subscription)
	}
}

// packetCodeNotAuthorized mirrors MQTT v3.1.1's CONNACK refusal code for
// "not authorized" (used across protocol versions by gmqtt's negotiation
// layer for a pre-CONNACK rejection).
const packetCodeNotAuthorized = 5
