package config

import (
	"crypto/subtle"
)

// SecretStringValue replaces secrets in any serialized output.
const SecretStringValue = "<secret>"

// SecretString is a string which never shows up in logs, dumps or reports.
type SecretString string

// String hides value from fmt and zap.Stringer.
func (s SecretString) String() string {
	if len(s) == 0 {
		return ""
	}
	return SecretStringValue
}

// MarshalJSON marshals SecretString to JSON making sure that actual value is not visible.
func (s SecretString) MarshalJSON() ([]byte, error) {
	if len(s) == 0 {
		return []byte("null"), nil
	}
	return []byte("\"" + SecretStringValue + "\""), nil
}

// MarshalYAML marshals SecretString to YAML making sure that actual value is not visible.
func (s SecretString) MarshalYAML() (any, error) {
	if len(s) == 0 {
		return nil, nil
	}
	return SecretStringValue, nil
}

// Matches compares candidate with secret in constant time. Empty secret
// matches nothing.
func (s SecretString) Matches(candidate string) bool {
	if len(s) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(s), []byte(candidate)) == 1
}
