package model

import "encoding/json"

// MetricDataType is the declared type of a configured metric extraction.
type MetricDataType string

const (
	MetricTypeFloat    MetricDataType = "float"
	MetricTypeInt      MetricDataType = "int"
	MetricTypeLocation MetricDataType = "location"
	MetricTypeString   MetricDataType = "string"
)

// MetricConfig describes one metric extraction: where to find it in the
// payload (a JSON pointer evaluated against state.reported), the stored
// metric name, and its declared type.
type MetricConfig struct {
	JSONPointer string         `json:"json_pointer"`
	Name        string         `json:"name"`
	DataType    MetricDataType `json:"data_type"`
}

// DataConfig is the metric list for a tenant or a device prefix.
type DataConfig struct {
	Metrics []MetricConfig `json:"metrics"`
}

func (c DataConfig) ToJSON() ([]byte, error) {
	return json.Marshal(c)
}

func DataConfigFromJSON(data []byte) (DataConfig, error) {
	var c DataConfig
	err := json.Unmarshal(data, &c)
	return c, err
}

// MergeWith merges a device config over this (tenant) config: tenant
// metrics come first, each replaced in place (json_pointer and data_type
// alike) by any device metric of the same name; device-only metrics are
// appended after, preserving device order.
func (c DataConfig) MergeWith(device DataConfig) DataConfig {
	deviceByName := make(map[string]MetricConfig, len(device.Metrics))
	for _, m := range device.Metrics {
		deviceByName[m.Name] = m
	}

	merged := make([]MetricConfig, 0, len(c.Metrics)+len(device.Metrics))
	seen := make(map[string]bool, len(c.Metrics))
	for _, tenantMetric := range c.Metrics {
		seen[tenantMetric.Name] = true
		if override, ok := deviceByName[tenantMetric.Name]; ok {
			merged = append(merged, override)
			continue
		}
		merged = append(merged, tenantMetric)
	}
	for _, deviceMetric := range device.Metrics {
		if seen[deviceMetric.Name] {
			continue
		}
		merged = append(merged, deviceMetric)
	}
	return DataConfig{Metrics: merged}
}

// DataConfigEntry decorates a DataConfig with the scope it applies to, for
// listing endpoints.
type DataConfigEntry struct {
	TenantID     TenantId `json:"tenant_id"`
	DevicePrefix *string  `json:"device_prefix,omitempty"`
	Metrics      []MetricConfig `json:"metrics"`
}
