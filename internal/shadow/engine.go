// Package shadow implements the reported/desired/delta merge semantics for
// device shadow documents: a pure, timestamp-stamping recursive merge plus a
// recursive delta diff. Grounded on original_source/src/shadow.rs.
package shadow

import (
	"time"

	"github.com/warthog618/shadowd/internal/apperrors"
	"github.com/warthog618/shadowd/internal/model"
)

// Engine applies state updates to shadows. It holds no state of its own; a
// zero Engine is ready to use.
type Engine struct {
	// now is overridable in tests so timestamp assertions don't race the
	// clock; production callers leave it nil and get time.Now.
	now func() time.Time
}

func New() Engine {
	return Engine{}
}

func (e Engine) clock() time.Time {
	if e.now != nil {
		return e.now()
	}
	return time.Now()
}

// Update applies update to shadow, returning the new shadow. It never
// mutates the maps reachable from the input shadow. Identity mismatches
// (device_id, shadow_name, tenant_id) are rejected without touching state;
// callers are expected to have already loaded or freshly constructed shadow
// for the identity carried by update.
func (e Engine) Update(shadow model.Shadow, update model.StateUpdateDocument) (model.Shadow, error) {
	if shadow.DeviceID != update.DeviceID {
		return shadow, apperrors.New(apperrors.KindMismatch, "device_id does not match shadow").
			WithDetails("device_id")
	}
	if !shadow.ShadowName.Equal(update.ShadowName) {
		return shadow, apperrors.New(apperrors.KindMismatch, "shadow_name does not match shadow").
			WithDetails("shadow_name")
	}
	if !shadow.TenantID.Equal(update.TenantID) {
		return shadow, apperrors.New(apperrors.KindMismatch, "tenant_id does not match shadow").
			WithDetails("tenant_id")
	}

	timestamp := uint64(e.clock().Unix())

	if reportedUpdate, ok := update.State.Reported.(map[string]interface{}); ok {
		shadow.State.Reported, shadow.Metadata.Reported = mergeNode(
			shadow.State.Reported, reportedUpdate, shadow.Metadata.Reported, timestamp)
	}
	if desiredUpdate, ok := update.State.Desired.(map[string]interface{}); ok {
		shadow.State.Desired, shadow.Metadata.Desired = mergeNode(
			shadow.State.Desired, desiredUpdate, shadow.Metadata.Desired, timestamp)
	}

	if delta, ok := diffRecursive(shadow.State.Reported, shadow.State.Desired); ok {
		shadow.State.Delta = delta
	} else {
		shadow.State.Delta = nil
	}

	// Version always advances, even for a no-op update (SPEC_FULL.md OQ-1):
	// the wire contract is "this call produced a new version", not "this
	// call produced a new state".
	shadow.Version++

	return shadow, nil
}
