package store

import (
	"go.etcd.io/bbolt"

	"github.com/warthog618/shadowd/internal/apperrors"
	"github.com/warthog618/shadowd/internal/model"
)

// StoreTenantConfig writes the tenant-wide default DataConfig.
func (s *Store) StoreTenantConfig(tenantID model.TenantId, cfg model.DataConfig) error {
	return s.putDataConfig(dataConfigKey(tenantID, ""), cfg)
}

// StoreDeviceConfig writes a DataConfig override for devicePrefix.
func (s *Store) StoreDeviceConfig(tenantID model.TenantId, devicePrefix string, cfg model.DataConfig) error {
	return s.putDataConfig(dataConfigKey(tenantID, devicePrefix), cfg)
}

func (s *Store) putDataConfig(key []byte, cfg model.DataConfig) error {
	encoded, err := cfg.ToJSON()
	if err != nil {
		return apperrors.Wrap(err, apperrors.KindSerialization, "encode data config")
	}
	return s.update(func(b *bbolt.Bucket) error {
		return b.Put(key, encoded)
	})
}

// DeleteDataConfig removes the tenant default (devicePrefix == "") or a
// device override.
func (s *Store) DeleteDataConfig(tenantID model.TenantId, devicePrefix string) error {
	key := dataConfigKey(tenantID, devicePrefix)
	return s.update(func(b *bbolt.Bucket) error {
		return b.Delete(key)
	})
}

// TenantConfig implements dataconfig.Lookup.
func (s *Store) TenantConfig(tenantID model.TenantId) (*model.DataConfig, error) {
	return s.getDataConfig(dataConfigKey(tenantID, ""))
}

func (s *Store) getDataConfig(key []byte) (*model.DataConfig, error) {
	var out *model.DataConfig
	err := s.view(func(b *bbolt.Bucket) error {
		data := b.Get(key)
		if data == nil {
			return nil
		}
		cfg, err := model.DataConfigFromJSON(data)
		if err != nil {
			return apperrors.Wrap(err, apperrors.KindSerialization, "decode data config")
		}
		out = &cfg
		return nil
	})
	return out, err
}

// LongestPrefixConfig implements dataconfig.Lookup: it reverse-scans from
// the key for deviceID down to the tenant's bare key, returning the config
// at the first key that is an actual prefix of deviceID. Grounded on
// original_source/src/db/mod.rs's get_data_config reverse-iterator search.
func (s *Store) LongestPrefixConfig(tenantID model.TenantId, deviceID string) (*model.DataConfig, error) {
	tenantPrefix := dataConfigTenantPrefix(tenantID)
	searchKey := dataConfigKey(tenantID, deviceID)

	var out *model.DataConfig
	err := s.view(func(b *bbolt.Bucket) error {
		c := b.Cursor()
		k, v := c.Seek(searchKey)
		if k == nil || string(k) > string(searchKey) {
			k, v = c.Prev()
		}
		for ; k != nil; k, v = c.Prev() {
			if !hasPrefix(k, tenantPrefix) {
				return nil
			}
			devicePrefix, err := splitDataConfigKey(k, tenantPrefix)
			if err != nil {
				return err
			}
			if devicePrefix == "" {
				// tenant's own bare key, not a device override
				continue
			}
			if len(deviceID) < len(devicePrefix) || deviceID[:len(devicePrefix)] != devicePrefix {
				continue
			}
			cfg, err := model.DataConfigFromJSON(v)
			if err != nil {
				return apperrors.Wrap(err, apperrors.KindSerialization, "decode data config")
			}
			out = &cfg
			return nil
		}
		return nil
	})
	return out, err
}

// ListDataConfigs returns every tenant default and device override stored
// for tenantID.
func (s *Store) ListDataConfigs(tenantID model.TenantId) ([]model.DataConfigEntry, error) {
	tenantPrefix := dataConfigTenantPrefix(tenantID)
	var entries []model.DataConfigEntry

	err := s.view(func(b *bbolt.Bucket) error {
		c := b.Cursor()
		for k, v := c.Seek(tenantPrefix); k != nil && hasPrefix(k, tenantPrefix); k, v = c.Next() {
			devicePrefix, err := splitDataConfigKey(k, tenantPrefix)
			if err != nil {
				return err
			}
			cfg, err := model.DataConfigFromJSON(v)
			if err != nil {
				return apperrors.Wrap(err, apperrors.KindSerialization, "decode data config")
			}
			entry := model.DataConfigEntry{TenantID: tenantID, Metrics: cfg.Metrics}
			if devicePrefix != "" {
				entry.DevicePrefix = &devicePrefix
			}
			entries = append(entries, entry)
		}
		return nil
	})
	return entries, err
}
