package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/warthog618/shadowd/internal/apperrors"
	"github.com/warthog618/shadowd/internal/model"
	"github.com/warthog618/shadowd/internal/shadow"
	"github.com/warthog618/shadowd/internal/timeseries"
)

// fakeBackend is an in-memory Backend covering every method the handlers
// need, without a real bbolt store.
type fakeBackend struct {
	mu       sync.Mutex
	shadows  map[string]model.Shadow
	metrics  map[string]timeseries.MetricTimeSeries
	tenants  map[string]model.DataConfig
	devices   map[string]model.DeviceMetadata
	backupErr error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		shadows: make(map[string]model.Shadow),
		metrics: make(map[string]timeseries.MetricTimeSeries),
		tenants: make(map[string]model.DataConfig),
		devices: make(map[string]model.DeviceMetadata),
	}
}

func shadowKey(tenant model.TenantId, device string, name model.ShadowName) string {
	return tenant.String() + "#" + device + "#" + name.String()
}

func (b *fakeBackend) GetShadow(tenantID model.TenantId, deviceID string, shadowName model.ShadowName) (model.Shadow, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	sh, ok := b.shadows[shadowKey(tenantID, deviceID, shadowName)]
	if !ok {
		return model.Shadow{}, apperrors.New(apperrors.KindNotFound, "shadow not found")
	}
	return sh, nil
}

func (b *fakeBackend) UpsertShadow(engine shadow.Engine, update model.StateUpdateDocument) (model.Shadow, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := shadowKey(update.TenantID, update.DeviceID, update.ShadowName)
	current, ok := b.shadows[key]
	if !ok {
		current = model.NewShadow(update.DeviceID, update.ShadowName, update.TenantID)
	}
	next, err := engine.Update(current, update)
	if err != nil {
		return next, err
	}
	b.shadows[key] = next
	return next, nil
}

func (b *fakeBackend) GetMetric(tenantID model.TenantId, deviceID, metricName string, minTs, maxTs uint64) (timeseries.MetricTimeSeries, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.metrics[tenantID.String()+"#"+deviceID+"#"+metricName], nil
}

func (b *fakeBackend) GetLastMetric(tenantID model.TenantId, deviceID, metricName string, limit uint64, now uint64) (timeseries.MetricTimeSeries, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	series := b.metrics[tenantID.String()+"#"+deviceID+"#"+metricName]
	series.KeepLast(int(limit))
	return series, nil
}

func (b *fakeBackend) StoreTenantConfig(tenantID model.TenantId, cfg model.DataConfig) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tenants[tenantID.String()] = cfg
	return nil
}

func (b *fakeBackend) StoreDeviceConfig(tenantID model.TenantId, devicePrefix string, cfg model.DataConfig) error {
	return nil
}

func (b *fakeBackend) DeleteDataConfig(tenantID model.TenantId, devicePrefix string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if devicePrefix == "" {
		delete(b.tenants, tenantID.String())
	}
	return nil
}

func (b *fakeBackend) TenantConfig(tenantID model.TenantId) (*model.DataConfig, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	cfg, ok := b.tenants[tenantID.String()]
	if !ok {
		return nil, nil
	}
	return &cfg, nil
}

func (b *fakeBackend) ListDataConfigs(tenantID model.TenantId) ([]model.DataConfigEntry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	cfg, ok := b.tenants[tenantID.String()]
	if !ok {
		return nil, nil
	}
	return []model.DataConfigEntry{{TenantID: tenantID, Metrics: cfg.Metrics}}, nil
}

func (b *fakeBackend) PutDeviceMetadata(meta model.DeviceMetadata) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.devices[meta.TenantID.String()+"#"+meta.DeviceID] = meta
	return nil
}

func (b *fakeBackend) GetDeviceMetadata(tenantID model.TenantId, deviceID string) (*model.DeviceMetadata, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	meta, ok := b.devices[tenantID.String()+"#"+deviceID]
	if !ok {
		return nil, nil
	}
	return &meta, nil
}

func (b *fakeBackend) ListDevices(tenantID model.TenantId) ([]model.DeviceMetadata, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []model.DeviceMetadata
	for _, d := range b.devices {
		if d.TenantID.Equal(tenantID) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (b *fakeBackend) DeleteDeviceMetadata(tenantID model.TenantId, deviceID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.devices, tenantID.String()+"#"+deviceID)
	return nil
}

func (b *fakeBackend) CreateBackup(backupDir string) (string, error) {
	if b.backupErr != nil {
		return "", b.backupErr
	}
	return backupDir + "/backup.db", nil
}

type fakeConns struct {
	connected map[string]bool
}

func (c fakeConns) Contains(deviceID string) bool { return c.connected[deviceID] }

type fakeHealth struct {
	ready bool
}

func (h fakeHealth) Ready() bool { return h.ready }

func newTestServer(backend *fakeBackend) *Server {
	return NewServer(backend, fakeConns{connected: map[string]bool{}}, shadow.New(), "/tmp/backups", fakeHealth{ready: true}, zap.NewNop())
}

func doRequest(t *testing.T, s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)
	return rr
}

func TestHealthzAlwaysOK(t *testing.T) {
	s := newTestServer(newFakeBackend())
	rr := doRequest(t, s, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestReadyzReflectsHealth(t *testing.T) {
	backend := newFakeBackend()
	s := NewServer(backend, fakeConns{connected: map[string]bool{}}, shadow.New(), "/tmp", fakeHealth{ready: false}, zap.NewNop())
	rr := doRequest(t, s, http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestPutThenGetShadowRoundTrips(t *testing.T) {
	s := newTestServer(newFakeBackend())

	putBody := map[string]interface{}{
		"state": map[string]interface{}{
			"desired": map[string]interface{}{"target_temp": float64(21)},
		},
	}
	rr := doRequest(t, s, http.MethodPut, "/api/v1/tenants/T/devices/D/shadows/default", putBody)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doRequest(t, s, http.MethodGet, "/api/v1/tenants/T/devices/D/shadows/default", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var sh model.Shadow
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &sh))
	assert.Equal(t, "D", sh.DeviceID)
	assert.Equal(t, uint64(1), sh.Version)
}

func TestGetShadowNotFoundMapsTo404(t *testing.T) {
	s := newTestServer(newFakeBackend())
	rr := doRequest(t, s, http.MethodGet, "/api/v1/tenants/T/devices/unknown/shadows/default", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	var body errorBody
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.NotEmpty(t, body.Message)
}

func TestTenantConfigCRUD(t *testing.T) {
	s := newTestServer(newFakeBackend())

	cfg := model.DataConfig{Metrics: []model.MetricConfig{
		{JSONPointer: "/temp", Name: "temp", DataType: model.MetricTypeFloat},
	}}
	rr := doRequest(t, s, http.MethodPut, "/api/v1/tenants/T/config", cfg)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doRequest(t, s, http.MethodGet, "/api/v1/tenants/T/config", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var got model.DataConfig
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, cfg, got)

	rr = doRequest(t, s, http.MethodDelete, "/api/v1/tenants/T/config", nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)
}

func TestListConnectedDevicesJoinsConnectionSet(t *testing.T) {
	backend := newFakeBackend()
	require.NoError(t, backend.PutDeviceMetadata(model.NewDeviceMetadata("D1", model.NewDefaultString("T"), 100)))
	require.NoError(t, backend.PutDeviceMetadata(model.NewDeviceMetadata("D2", model.NewDefaultString("T"), 100)))

	s := NewServer(backend, fakeConns{connected: map[string]bool{"D1": true}}, shadow.New(), "/tmp", fakeHealth{ready: true}, zap.NewNop())

	rr := doRequest(t, s, http.MethodGet, "/api/v1/tenants/T/devices", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var infos []model.DeviceInformation
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &infos))
	require.Len(t, infos, 2)

	byID := map[string]model.DeviceInformation{}
	for _, info := range infos {
		byID[info.DeviceID] = info
	}
	assert.True(t, byID["D1"].Connected)
	assert.False(t, byID["D2"].Connected)
}

func TestCreateBackupReturnsPath(t *testing.T) {
	s := newTestServer(newFakeBackend())
	rr := doRequest(t, s, http.MethodPost, "/api/v1/backups", nil)
	require.Equal(t, http.StatusCreated, rr.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "/tmp/backups/backup.db", body["path"])
}
