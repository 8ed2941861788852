package dataconfig

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warthog618/shadowd/internal/model"
)

type fakeLookup struct {
	tenant  map[string]*model.DataConfig
	devices map[string]*model.DataConfig
}

func (f fakeLookup) TenantConfig(tenantID model.TenantId) (*model.DataConfig, error) {
	return f.tenant[tenantID.String()], nil
}

func (f fakeLookup) LongestPrefixConfig(tenantID model.TenantId, deviceID string) (*model.DataConfig, error) {
	var best *model.DataConfig
	bestLen := -1
	for prefix, cfg := range f.devices {
		if len(prefix) > bestLen && len(deviceID) >= len(prefix) && deviceID[:len(prefix)] == prefix {
			best = cfg
			bestLen = len(prefix)
		}
	}
	return best, nil
}

func TestResolveReturnsTenantConfigWithNoDeviceID(t *testing.T) {
	tenantCfg := &model.DataConfig{Metrics: []model.MetricConfig{{Name: "temp"}}}
	lookup := fakeLookup{tenant: map[string]*model.DataConfig{"default": tenantCfg}}

	got, err := Resolve(lookup, model.Default, "")
	require.NoError(t, err)
	assert.Equal(t, *tenantCfg, got)
}

func TestResolveMergesLongestDevicePrefix(t *testing.T) {
	tenantCfg := &model.DataConfig{Metrics: []model.MetricConfig{{Name: "temp", DataType: model.MetricTypeFloat}}}
	shortPrefix := &model.DataConfig{Metrics: []model.MetricConfig{{Name: "temp", DataType: model.MetricTypeInt}}}
	longPrefix := &model.DataConfig{Metrics: []model.MetricConfig{{Name: "humidity", DataType: model.MetricTypeFloat}}}

	lookup := fakeLookup{
		tenant: map[string]*model.DataConfig{"default": tenantCfg},
		devices: map[string]*model.DataConfig{
			"dev": shortPrefix,
			"dev-42": longPrefix,
		},
	}

	got, err := Resolve(lookup, model.Default, "dev-42-sensor")
	require.NoError(t, err)
	require.Len(t, got.Metrics, 2)
	assert.Contains(t, got.Metrics, model.MetricConfig{Name: "temp", DataType: model.MetricTypeFloat})
	assert.Contains(t, got.Metrics, model.MetricConfig{Name: "humidity", DataType: model.MetricTypeFloat})
}

func TestResolveReturnsEmptyWhenNothingConfigured(t *testing.T) {
	lookup := fakeLookup{}
	got, err := Resolve(lookup, model.Default, "dev-1")
	require.NoError(t, err)
	assert.Empty(t, got.Metrics)
}

func TestResolveReturnsDeviceOnlyConfigWhenNoTenantDefault(t *testing.T) {
	deviceCfg := &model.DataConfig{Metrics: []model.MetricConfig{{Name: "x"}}}
	lookup := fakeLookup{devices: map[string]*model.DataConfig{"dev": deviceCfg}}

	got, err := Resolve(lookup, model.Default, "dev-1")
	require.NoError(t, err)
	assert.Equal(t, *deviceCfg, got)
}
