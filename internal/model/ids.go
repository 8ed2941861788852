// Package model holds the wire-level data types shared by the shadow
// engine, the data-config resolver, and the storage layer: identifiers,
// shadow documents, and data-config records.
package model

import "strings"

// DefaultString is the tagged union backing TenantId and ShadowName: either
// the sentinel Default value or a custom string. The literal "default"
// (case-insensitive) always canonicalizes to Default.
type DefaultString struct {
	custom string
	isZero bool // true for the Default sentinel
}

// Default is the canonical sentinel identifier.
var Default = DefaultString{isZero: true}

// TenantId and ShadowName are both DefaultString; kept as distinct names so
// call sites read clearly even though the representation is identical.
type TenantId = DefaultString
type ShadowName = DefaultString

// NewDefaultString canonicalizes name: the case-insensitive literal
// "default" becomes Default, everything else is a Custom value.
func NewDefaultString(name string) DefaultString {
	if strings.EqualFold(name, "default") {
		return Default
	}
	return DefaultString{custom: name}
}

// DefaultStringFromOption mirrors the original's from_option: an absent
// name canonicalizes to Default.
func DefaultStringFromOption(name *string) DefaultString {
	if name == nil {
		return Default
	}
	return NewDefaultString(*name)
}

// IsDefault reports whether this is the Default sentinel.
func (d DefaultString) IsDefault() bool {
	return d.isZero
}

// String returns the wire form: "default" or the raw custom string.
func (d DefaultString) String() string {
	if d.isZero {
		return "default"
	}
	return d.custom
}

func (d DefaultString) Equal(other DefaultString) bool {
	return d.isZero == other.isZero && d.custom == other.custom
}

func (d DefaultString) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *DefaultString) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	*d = NewDefaultString(s)
	return nil
}
