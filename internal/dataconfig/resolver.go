// Package dataconfig resolves the effective metric-extraction config for a
// device by merging its tenant's default config with the longest matching
// device-ID-prefix override. Grounded on
// original_source/src/db/mod.rs's get_data_config.
package dataconfig

import "github.com/warthog618/shadowd/internal/model"

// Lookup is implemented by the storage layer. LongestPrefixConfig performs
// the prefix search itself (it needs ordered key iteration); this package
// only combines whatever Lookup returns.
type Lookup interface {
	TenantConfig(tenantID model.TenantId) (*model.DataConfig, error)
	LongestPrefixConfig(tenantID model.TenantId, deviceID string) (*model.DataConfig, error)
}

// Resolve returns the effective DataConfig for deviceID under tenantID: the
// tenant default, overridden by the longest device-prefix config that
// matches, merged per DataConfig.MergeWith. An empty DataConfig (no error)
// is returned when neither a tenant nor a device config exists.
func Resolve(lookup Lookup, tenantID model.TenantId, deviceID string) (model.DataConfig, error) {
	tenantCfg, err := lookup.TenantConfig(tenantID)
	if err != nil {
		return model.DataConfig{}, err
	}

	if deviceID == "" {
		if tenantCfg == nil {
			return model.DataConfig{}, nil
		}
		return *tenantCfg, nil
	}

	deviceCfg, err := lookup.LongestPrefixConfig(tenantID, deviceID)
	if err != nil {
		return model.DataConfig{}, err
	}

	switch {
	case tenantCfg != nil && deviceCfg != nil:
		return tenantCfg.MergeWith(*deviceCfg), nil
	case deviceCfg != nil:
		return *deviceCfg, nil
	case tenantCfg != nil:
		return *tenantCfg, nil
	default:
		return model.DataConfig{}, nil
	}
}
