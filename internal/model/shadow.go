package model

import "encoding/json"

// JSONValue is an arbitrary decoded JSON value: nil, bool, float64, string,
// []interface{}, or map[string]interface{} (the shapes encoding/json
// produces when unmarshaling into interface{}).
type JSONValue = interface{}

// StateDocument holds the three JSON sub-documents that make up a shadow's
// state. Delta is computed by the shadow engine and is never accepted as
// update input (see StateUpdateDocument).
type StateDocument struct {
	Reported JSONValue `json:"reported,omitempty"`
	Desired  JSONValue `json:"desired,omitempty"`
	Delta    JSONValue `json:"delta,omitempty"`
}

// MetadataDocument mirrors the shape of state.reported/state.desired, with
// every leaf replaced by the unix-second timestamp it was last written at.
type MetadataDocument struct {
	Reported JSONValue `json:"reported"`
	Desired  JSONValue `json:"desired"`
}

// Shadow is the persisted per-device document.
type Shadow struct {
	DeviceID   string           `json:"device_id"`
	ShadowName ShadowName       `json:"shadow_name"`
	TenantID   TenantId         `json:"tenant_id"`
	State      StateDocument    `json:"state"`
	Metadata   MetadataDocument `json:"metadata"`
	Version    uint64           `json:"version"`
}

// NewShadow creates an empty shadow for a device/shadow-name/tenant triple.
func NewShadow(deviceID string, shadowName ShadowName, tenantID TenantId) Shadow {
	return Shadow{
		DeviceID:   deviceID,
		ShadowName: shadowName,
		TenantID:   tenantID,
	}
}

func (s *Shadow) ToJSON() ([]byte, error) {
	return json.Marshal(s)
}

func ShadowFromJSON(data []byte) (Shadow, error) {
	var s Shadow
	err := json.Unmarshal(data, &s)
	return s, err
}

// GetDeltaJSON returns the delta as a JSON object string, or nil if the
// delta is absent/empty (delta is either null or a non-empty object).
func (s *Shadow) GetDeltaJSON() ([]byte, error) {
	obj, ok := s.State.Delta.(map[string]interface{})
	if !ok || len(obj) == 0 {
		return nil, nil
	}
	return json.Marshal(obj)
}

// StateUpdateDocument is the input to Engine.Update. Only Reported and
// Desired are consumed by the merge; Delta, if present on the wire, is
// decoded but ignored (see SPEC_FULL.md Open Question OQ-2).
type StateUpdateDocument struct {
	DeviceID   string        `json:"device_id"`
	ShadowName ShadowName    `json:"shadow_name"`
	TenantID   TenantId      `json:"tenant_id"`
	State      StateDocument `json:"state"`
}

func NewStateUpdateDocument(deviceID string, shadowName ShadowName, tenantID TenantId) StateUpdateDocument {
	return StateUpdateDocument{
		DeviceID:   deviceID,
		ShadowName: shadowName,
		TenantID:   tenantID,
	}
}

// NestedStateDocument is the wire shape of an inbound MQTT shadow-update
// payload: {"state": {"reported": ..., "desired": ...}}.
type NestedStateDocument struct {
	State StateDocument `json:"state"`
}

func NestedStateDocumentFromJSON(data []byte) (NestedStateDocument, error) {
	var n NestedStateDocument
	err := json.Unmarshal(data, &n)
	return n, err
}

// ToUpdateDocument builds a StateUpdateDocument from a decoded nested
// payload plus the identity extracted from the MQTT topic.
func (n NestedStateDocument) ToUpdateDocument(deviceID string, shadowName ShadowName, tenantID TenantId) StateUpdateDocument {
	return StateUpdateDocument{
		DeviceID:   deviceID,
		ShadowName: shadowName,
		TenantID:   tenantID,
		State:      n.State,
	}
}
