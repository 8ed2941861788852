package store

import (
	"go.etcd.io/bbolt"

	"github.com/warthog618/shadowd/internal/apperrors"
	"github.com/warthog618/shadowd/internal/model"
	"github.com/warthog618/shadowd/internal/shadow"
)

// GetShadow loads a shadow by its identity triple.
func (s *Store) GetShadow(tenantID model.TenantId, deviceID string, shadowName model.ShadowName) (model.Shadow, error) {
	key := shadowKey(tenantID, deviceID, shadowName)
	var out model.Shadow
	err := s.view(func(b *bbolt.Bucket) error {
		data := b.Get(key)
		if data == nil {
			return apperrors.Newf(apperrors.KindNotFound, "shadow %s/%s/%s not found", tenantID, deviceID, shadowName)
		}
		decoded, err := model.ShadowFromJSON(data)
		if err != nil {
			return apperrors.Wrap(err, apperrors.KindSerialization, "decode shadow")
		}
		out = decoded
		return nil
	})
	return out, err
}

// UpsertShadow loads (or creates) the shadow for update's identity, applies
// the update via engine, and writes the result back in the same
// transaction. Grounded on original_source/src/db/mod.rs's _upsert_shadow.
func (s *Store) UpsertShadow(engine shadow.Engine, update model.StateUpdateDocument) (model.Shadow, error) {
	key := shadowKey(update.TenantID, update.DeviceID, update.ShadowName)
	var result model.Shadow

	err := s.update(func(b *bbolt.Bucket) error {
		current := model.NewShadow(update.DeviceID, update.ShadowName, update.TenantID)
		if data := b.Get(key); data != nil {
			decoded, err := model.ShadowFromJSON(data)
			if err != nil {
				return apperrors.Wrap(err, apperrors.KindSerialization, "decode shadow")
			}
			current = decoded
		}

		next, err := engine.Update(current, update)
		if err != nil {
			return err
		}

		encoded, err := next.ToJSON()
		if err != nil {
			return apperrors.Wrap(err, apperrors.KindSerialization, "encode shadow")
		}
		if err := b.Put(key, encoded); err != nil {
			return err
		}
		result = next
		return nil
	})
	return result, err
}
