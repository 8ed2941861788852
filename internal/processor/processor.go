// Package processor wires the MQTT message stream to the shadow engine
// and the time-series store: classify each inbound PUBLISH by topic,
// apply it as a shadow update or a set of metric extractions, and
// republish deltas. Unchanged in shape from spec.md §4.6.
package processor

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/warthog618/shadowd/internal/apperrors"
	"github.com/warthog618/shadowd/internal/dataconfig"
	"github.com/warthog618/shadowd/internal/metrics"
	"github.com/warthog618/shadowd/internal/model"
	"github.com/warthog618/shadowd/internal/mqttbroker"
	"github.com/warthog618/shadowd/internal/shadow"
	"github.com/warthog618/shadowd/internal/timeseries"
)

// MessageSource is the subset of mqttbroker.Broker the processor consumes.
type MessageSource interface {
	Messages() <-chan mqttbroker.InboundMessage
	ConnectionEvents() <-chan mqttbroker.ConnEvent
}

// Publisher republishes deltas back to devices.
type Publisher interface {
	Publish(topic string, payload []byte) error
}

// WorkSubmitter dispatches a blocking job off the caller's goroutine.
// Satisfied by *store.Pool; kept as an interface so tests can run jobs
// synchronously.
type WorkSubmitter interface {
	Submit(kind string, job func())
}

// Backend is everything the processor needs from storage: shadow
// upsert, metric persistence, and data-config resolution.
type Backend interface {
	UpsertShadow(engine shadow.Engine, update model.StateUpdateDocument) (model.Shadow, error)
	PutMetric(tenantID model.TenantId, deviceID, metricName string, point timeseries.Point) error
	dataconfig.Lookup
}

// Config holds the processor's routing parameters, sourced from
// processor.shadow_topic_prefix / processor.extra_update_topics.
type Config struct {
	ShadowTopicPrefix string
	ExtraUpdateTopics []string
}

// Processor runs the message-receive loop described in spec.md §4.6.
type Processor struct {
	cfg      Config
	suffixes []string

	source  MessageSource
	sender  Publisher
	backend Backend
	engine  shadow.Engine
	pool    WorkSubmitter
	conns   *ConnectionSet
	log     *zap.Logger

	now func() time.Time
}

func New(cfg Config, source MessageSource, sender Publisher, backend Backend, engine shadow.Engine, pool WorkSubmitter, log *zap.Logger) *Processor {
	suffixes := append([]string{"shadow/update"}, cfg.ExtraUpdateTopics...)
	return &Processor{
		cfg:      cfg,
		suffixes: suffixes,
		source:   source,
		sender:   sender,
		backend:  backend,
		engine:   engine,
		pool:     pool,
		conns:    NewConnectionSet(),
		log:      log,
		now:      time.Now,
	}
}

// SubscriptionTopics returns the topic patterns the broker must subscribe
// to for this processor to see every relevant PUBLISH.
func (p *Processor) SubscriptionTopics() []string {
	return subscriptionTopics(p.cfg.ShadowTopicPrefix, p.suffixes)
}

// Connections exposes the live connection set, e.g. for a device-list API
// endpoint to cross-reference against stored device metadata.
func (p *Processor) Connections() *ConnectionSet {
	return p.conns
}

// Run drives the message and connection-event loops until ctx is
// cancelled.
func (p *Processor) Run(ctx context.Context) error {
	messages := p.source.Messages()
	events := p.source.ConnectionEvents()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				messages = nil
				continue
			}
			p.handleMessage(msg)
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			p.handleConnEvent(ev)
		}
	}
}

func (p *Processor) handleConnEvent(ev mqttbroker.ConnEvent) {
	switch ev.Kind {
	case mqttbroker.ConnEventConnected:
		p.conns.Add(ev.ClientID)
	case mqttbroker.ConnEventDisconnected:
		p.conns.Remove(ev.ClientID)
	}
	metrics.ConnectedDevices.Set(float64(p.conns.Len()))
}

// handleMessage classifies one inbound PUBLISH and dispatches it. Every
// documented failure class is logged and dropped rather than propagated,
// per spec.md §4.6/§7: a malformed message from one device must never
// stop the processor's loop.
func (p *Processor) handleMessage(msg mqttbroker.InboundMessage) {
	tenant, device, ok := parseUpdateTopic(p.cfg.ShadowTopicPrefix, msg.Topic, p.suffixes)
	if !ok {
		p.log.Warn("dropping message on unrecognized topic", zap.String("topic", msg.Topic))
		return
	}

	var nested model.NestedStateDocument
	if err := json.Unmarshal(msg.Payload, &nested); err != nil {
		metrics.MessagesDroppedTotal.Inc()
		p.log.Warn("dropping message with invalid JSON payload",
			zap.String("topic", msg.Topic), zap.Error(err))
		return
	}

	tenantID := model.NewDefaultString(tenant)
	update := nested.ToUpdateDocument(device, model.Default, tenantID)

	p.pool.Submit("shadow-upsert", func() {
		p.applyShadowUpdate(tenantID, device, update)
	})
	p.pool.Submit("metric-upsert", func() {
		p.extractMetrics(tenantID, device, update.State.Reported)
	})
}

func (p *Processor) applyShadowUpdate(tenantID model.TenantId, device string, update model.StateUpdateDocument) {
	timer := metrics.NewTimer()
	result, err := p.backend.UpsertShadow(p.engine, update)
	timer.ObserveShadowUpdate()
	if err != nil {
		if apperrors.Is(err, apperrors.KindMismatch) {
			p.log.Error("shadow update identity mismatch, likely topic misrouting",
				zap.String("tenant", tenantID.String()), zap.String("device_id", device), zap.Error(err))
			return
		}
		metrics.MessagesDroppedTotal.Inc()
		p.log.Warn("dropping shadow update after storage error",
			zap.String("tenant", tenantID.String()), zap.String("device_id", device), zap.Error(err))
		return
	}
	metrics.ShadowUpdatesTotal.Inc()

	deltaJSON, err := result.GetDeltaJSON()
	if err != nil {
		p.log.Warn("failed to encode shadow delta", zap.Error(err))
		return
	}
	if deltaJSON == nil {
		return
	}

	topic := deltaTopic(p.cfg.ShadowTopicPrefix, tenantID.String(), device)
	if err := p.sender.Publish(topic, deltaJSON); err != nil {
		p.log.Warn("failed to publish shadow delta", zap.String("topic", topic), zap.Error(err))
		return
	}
	metrics.MessagesSentTotal.WithLabelValues("delta").Inc()
}

func (p *Processor) extractMetrics(tenantID model.TenantId, device string, reported model.JSONValue) {
	cfg, err := dataconfig.Resolve(p.backend, tenantID, device)
	if err != nil {
		p.log.Warn("failed to resolve data config",
			zap.String("tenant", tenantID.String()), zap.String("device_id", device), zap.Error(err))
		return
	}
	if len(cfg.Metrics) == 0 {
		return
	}

	timestamp := uint64(p.now().Unix())
	for _, metricCfg := range cfg.Metrics {
		value, ok := extractMetric(reported, metricCfg)
		if !ok {
			continue
		}
		point := timeseries.Point{Timestamp: timestamp, Value: value}
		if err := p.backend.PutMetric(tenantID, device, metricCfg.Name, point); err != nil {
			p.log.Warn("failed to persist metric point",
				zap.String("tenant", tenantID.String()), zap.String("device_id", device),
				zap.String("metric", metricCfg.Name), zap.Error(err))
		}
	}
}
