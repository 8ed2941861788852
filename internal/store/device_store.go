package store

import (
	"encoding/json"

	"go.etcd.io/bbolt"

	"github.com/warthog618/shadowd/internal/apperrors"
	"github.com/warthog618/shadowd/internal/model"
)

// PutDeviceMetadata upserts a device's metadata record.
func (s *Store) PutDeviceMetadata(meta model.DeviceMetadata) error {
	key := deviceMetadataKey(meta.TenantID, meta.DeviceID)
	encoded, err := json.Marshal(meta)
	if err != nil {
		return apperrors.Wrap(err, apperrors.KindSerialization, "encode device metadata")
	}
	return s.update(func(b *bbolt.Bucket) error {
		return b.Put(key, encoded)
	})
}

// GetDeviceMetadata returns (nil, nil) if no metadata exists for the device.
func (s *Store) GetDeviceMetadata(tenantID model.TenantId, deviceID string) (*model.DeviceMetadata, error) {
	key := deviceMetadataKey(tenantID, deviceID)
	var out *model.DeviceMetadata
	err := s.view(func(b *bbolt.Bucket) error {
		data := b.Get(key)
		if data == nil {
			return nil
		}
		var meta model.DeviceMetadata
		if err := json.Unmarshal(data, &meta); err != nil {
			return apperrors.Wrap(err, apperrors.KindSerialization, "decode device metadata")
		}
		out = &meta
		return nil
	})
	return out, err
}

// ListDevices returns every device registered under tenantID.
func (s *Store) ListDevices(tenantID model.TenantId) ([]model.DeviceMetadata, error) {
	prefix := deviceMetadataTenantPrefix(tenantID)
	var devices []model.DeviceMetadata
	err := s.view(func(b *bbolt.Bucket) error {
		c := b.Cursor()
		for k, v := c.Seek(prefix); k != nil && hasPrefix(k, prefix); k, v = c.Next() {
			var meta model.DeviceMetadata
			if err := json.Unmarshal(v, &meta); err != nil {
				return apperrors.Wrap(err, apperrors.KindSerialization, "decode device metadata")
			}
			devices = append(devices, meta)
		}
		return nil
	})
	return devices, err
}

// DeleteDeviceMetadata is idempotent: deleting an unknown key is not an error.
func (s *Store) DeleteDeviceMetadata(tenantID model.TenantId, deviceID string) error {
	key := deviceMetadataKey(tenantID, deviceID)
	return s.update(func(b *bbolt.Bucket) error {
		return b.Delete(key)
	})
}
