// Package api implements the peripheral HTTP admin surface: shadow
// GET/PUT, time-series range and last-N, data-config CRUD, connected
// device list, device metadata CRUD, backup trigger, and health/ready
// probes. Routing is github.com/go-chi/chi/v5, grounded on
// jordigilh-kubernaut's and orbas1-Synnergy's chi usage. None of this is
// "hard core" per spec.md §1 — every handler is a thin adapter over the
// storage/shadow/processor packages.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/warthog618/shadowd/internal/model"
	"github.com/warthog618/shadowd/internal/shadow"
	"github.com/warthog618/shadowd/internal/store"
	"github.com/warthog618/shadowd/internal/timeseries"
)

// Backend is every storage operation the HTTP surface needs. *store.Store
// satisfies it directly.
type Backend interface {
	GetShadow(tenantID model.TenantId, deviceID string, shadowName model.ShadowName) (model.Shadow, error)
	UpsertShadow(engine shadow.Engine, update model.StateUpdateDocument) (model.Shadow, error)

	GetMetric(tenantID model.TenantId, deviceID, metricName string, minTs, maxTs uint64) (timeseries.MetricTimeSeries, error)
	GetLastMetric(tenantID model.TenantId, deviceID, metricName string, limit uint64, now uint64) (timeseries.MetricTimeSeries, error)

	StoreTenantConfig(tenantID model.TenantId, cfg model.DataConfig) error
	StoreDeviceConfig(tenantID model.TenantId, devicePrefix string, cfg model.DataConfig) error
	DeleteDataConfig(tenantID model.TenantId, devicePrefix string) error
	TenantConfig(tenantID model.TenantId) (*model.DataConfig, error)
	ListDataConfigs(tenantID model.TenantId) ([]model.DataConfigEntry, error)

	PutDeviceMetadata(meta model.DeviceMetadata) error
	GetDeviceMetadata(tenantID model.TenantId, deviceID string) (*model.DeviceMetadata, error)
	ListDevices(tenantID model.TenantId) ([]model.DeviceMetadata, error)
	DeleteDeviceMetadata(tenantID model.TenantId, deviceID string) error

	CreateBackup(backupDir string) (string, error)
}

var _ Backend = (*store.Store)(nil)

// ConnectionChecker reports whether a device currently holds an open MQTT
// connection, backing the connected-device-list endpoint's "connected"
// field. Satisfied by *processor.ConnectionSet.
type ConnectionChecker interface {
	Contains(deviceID string) bool
}

// Health reports process readiness for the /readyz probe.
type Health interface {
	Ready() bool
}

// Server bundles everything handlers need.
type Server struct {
	backend   Backend
	conns     ConnectionChecker
	engine    shadow.Engine
	backupDir string
	health    Health
	log       *zap.Logger
}

func NewServer(backend Backend, conns ConnectionChecker, engine shadow.Engine, backupDir string, health Health, log *zap.Logger) *Server {
	return &Server{
		backend:   backend,
		conns:     conns,
		engine:    engine,
		backupDir: backupDir,
		health:    health,
		log:       log,
	}
}

// Router builds the full chi router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)

	r.Route("/api/v1/tenants/{tenant}", func(r chi.Router) {
		r.Get("/config", s.handleGetTenantConfig)
		r.Put("/config", s.handlePutTenantConfig)
		r.Delete("/config", s.handleDeleteTenantConfig)
		r.Get("/config/devices", s.handleListDataConfigs)
		r.Put("/config/devices/{prefix}", s.handlePutDeviceConfig)
		r.Delete("/config/devices/{prefix}", s.handleDeleteDeviceConfig)

		r.Get("/devices", s.handleListConnectedDevices)
		r.Get("/devices/{device}", s.handleGetDeviceMetadata)
		r.Put("/devices/{device}", s.handlePutDeviceMetadata)
		r.Delete("/devices/{device}", s.handleDeleteDeviceMetadata)

		r.Get("/devices/{device}/shadows/{name}", s.handleGetShadow)
		r.Put("/devices/{device}/shadows/{name}", s.handlePutShadow)

		r.Get("/devices/{device}/metrics/{metric}/range", s.handleMetricRange)
		r.Get("/devices/{device}/metrics/{metric}/last", s.handleMetricLast)
	})

	r.Post("/api/v1/backups", s.handleCreateBackup)

	return r
}
